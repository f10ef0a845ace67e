package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/abelbrown/goldmine/internal/cache"
	"github.com/abelbrown/goldmine/internal/model"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	st, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func analysis(id string, scanned time.Time, findings int) model.AnalysisResult {
	r := model.AnalysisResult{
		ID:        id,
		Topic:     "saas",
		Window:    model.WindowWeek,
		ScannedAt: scanned,
		Findings:  []model.Finding{},
	}
	for i := 1; i <= findings; i++ {
		r.Findings = append(r.Findings, model.Finding{
			Rank:      i,
			ID:        fmt.Sprintf("%s-f%d", id, i),
			Title:     fmt.Sprintf("finding %d", i),
			GoldScore: 100 - i,
			Blueprint: model.Blueprint{SolutionName: "S", MarketSize: model.MarketMedium},
		})
	}
	return r
}

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestOpen(t *testing.T) {
	st := openTest(t)
	if st.db == nil {
		t.Fatal("db is nil")
	}
}

func TestInMemoryStoresAreIsolated(t *testing.T) {
	a := openTest(t)
	b := openTest(t)
	ctx := context.Background()

	if err := a.SaveAnalysis(ctx, "u", analysis("only-in-a", base, 1)); err != nil {
		t.Fatal(err)
	}
	if _, err := b.GetAnalysis(ctx, "only-in-a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second store sees first store's data: err = %v", err)
	}
}

func TestSaveAndGetAnalysis(t *testing.T) {
	st := openTest(t)
	ctx := context.Background()

	in := analysis("run-1", base, 3)
	in.Degraded = []string{"classifying_relevance"}
	if err := st.SaveAnalysis(ctx, "alice", in); err != nil {
		t.Fatalf("SaveAnalysis: %v", err)
	}

	got, err := st.GetAnalysis(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetAnalysis: %v", err)
	}
	if got.ID != "run-1" || len(got.Findings) != 3 || got.Findings[2].Title != "finding 3" {
		t.Errorf("round trip = %+v", got)
	}
	if !got.ScannedAt.Equal(base) {
		t.Errorf("ScannedAt = %v", got.ScannedAt)
	}

	if _, err := st.GetAnalysis(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing err = %v", err)
	}
}

func TestSharedAnalysisInTwoHistories(t *testing.T) {
	st := openTest(t)
	ctx := context.Background()
	r := analysis("shared", base, 2)

	for _, user := range []string{"alice", "bob"} {
		if err := st.SaveAnalysis(ctx, user, r); err != nil {
			t.Fatalf("SaveAnalysis(%s): %v", user, err)
		}
	}
	for _, user := range []string{"alice", "bob"} {
		h, err := st.History(ctx, user)
		if err != nil {
			t.Fatalf("History(%s): %v", user, err)
		}
		if len(h) != 1 || h[0].ID != "shared" {
			t.Errorf("History(%s) = %+v", user, h)
		}
	}
	if _, err := st.GetAnalysis(ctx, "shared"); err != nil {
		t.Errorf("GetAnalysis: %v", err)
	}
}

func TestHistoryPrunesOldest(t *testing.T) {
	st := openTest(t)
	st.SetLimits(3, 0)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		r := analysis(fmt.Sprintf("run-%d", i), base.Add(time.Duration(i)*time.Hour), 1)
		if err := st.SaveAnalysis(ctx, "alice", r); err != nil {
			t.Fatalf("SaveAnalysis %d: %v", i, err)
		}
	}
	if err := st.SaveAnalysis(ctx, "bob", analysis("bob-run", base, 1)); err != nil {
		t.Fatal(err)
	}

	hist, err := st.History(ctx, "alice")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(hist) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(hist))
	}
	for i, want := range []string{"run-4", "run-3", "run-2"} {
		if hist[i].ID != want {
			t.Errorf("hist[%d] = %s, want %s", i, hist[i].ID, want)
		}
	}
	if hist[0].Window != model.WindowWeek || hist[0].Findings != 1 || hist[0].Degraded {
		t.Errorf("entry = %+v", hist[0])
	}

	if bob, _ := st.History(ctx, "bob"); len(bob) != 1 {
		t.Errorf("bob's history affected by alice's pruning: %d", len(bob))
	}
}

func TestFavorites(t *testing.T) {
	st := openTest(t)
	st.SetLimits(0, 2)
	ctx := context.Background()

	if err := st.SaveAnalysis(ctx, "alice", analysis("run-1", base, 3)); err != nil {
		t.Fatal(err)
	}

	fav, err := st.AddFavorite(ctx, "alice", "run-1", 2)
	if err != nil {
		t.Fatalf("AddFavorite: %v", err)
	}
	if fav.Finding.Title != "finding 2" {
		t.Errorf("favorite finding = %+v", fav.Finding)
	}

	// Re-adding is idempotent and does not count against the limit.
	if _, err := st.AddFavorite(ctx, "alice", "run-1", 2); err != nil {
		t.Fatalf("re-add: %v", err)
	}
	if _, err := st.AddFavorite(ctx, "alice", "run-1", 1); err != nil {
		t.Fatalf("second favorite: %v", err)
	}
	if _, err := st.AddFavorite(ctx, "alice", "run-1", 3); !errors.Is(err, ErrFavoritesLimit) {
		t.Errorf("third favorite err = %v, want ErrFavoritesLimit", err)
	}

	if _, err := st.AddFavorite(ctx, "alice", "run-1", 9); !errors.Is(err, ErrNotFound) {
		t.Errorf("bad rank err = %v", err)
	}
	if _, err := st.AddFavorite(ctx, "alice", "nope", 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("bad analysis err = %v", err)
	}
	if _, err := st.AddFavorite(ctx, "bob", "run-1", 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("favorite from another user's history err = %v, want ErrNotFound", err)
	}
	if favs, _ := st.Favorites(ctx, "bob"); len(favs) != 0 {
		t.Errorf("bob favorites = %+v", favs)
	}

	favs, err := st.Favorites(ctx, "alice")
	if err != nil {
		t.Fatalf("Favorites: %v", err)
	}
	if len(favs) != 2 || favs[0].Rank != 2 || favs[1].Rank != 1 {
		t.Errorf("favorites = %+v", favs)
	}

	if err := st.RemoveFavorite(ctx, "alice", "run-1", 2); err != nil {
		t.Fatalf("RemoveFavorite: %v", err)
	}
	if err := st.RemoveFavorite(ctx, "alice", "run-1", 2); !errors.Is(err, ErrNotFound) {
		t.Errorf("second remove err = %v", err)
	}
	if _, err := st.AddFavorite(ctx, "alice", "run-1", 3); err != nil {
		t.Errorf("add after remove: %v", err)
	}
}

func TestResultCache(t *testing.T) {
	st := openTest(t)
	c := st.ResultCache()
	now := base
	c.now = func() time.Time { return now }
	ctx := context.Background()

	if _, err := c.Get(ctx, "k"); !errors.Is(err, cache.ErrMiss) {
		t.Errorf("empty get err = %v", err)
	}

	if err := c.Put(ctx, "k", analysis("run-1", base, 2), time.Hour); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := c.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID != "run-1" || len(got.Findings) != 2 {
		t.Errorf("cached = %+v", got)
	}

	now = base.Add(2 * time.Hour)
	if _, err := c.Get(ctx, "k"); !errors.Is(err, cache.ErrMiss) {
		t.Errorf("expired get err = %v, want ErrMiss", err)
	}
}

func TestConcurrentAccess(t *testing.T) {
	st := openTest(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r := analysis(fmt.Sprintf("run-%d", i), base.Add(time.Duration(i)*time.Minute), 1)
			if err := st.SaveAnalysis(ctx, "alice", r); err != nil {
				t.Errorf("SaveAnalysis: %v", err)
			}
			if _, err := st.History(ctx, "alice"); err != nil {
				t.Errorf("History: %v", err)
			}
		}(i)
	}
	wg.Wait()

	hist, _ := st.History(ctx, "alice")
	if len(hist) != 10 {
		t.Errorf("expected 10 entries, got %d", len(hist))
	}
}

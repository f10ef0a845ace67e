package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/abelbrown/goldmine/internal/model"
)

// Favorite is a finding a user bookmarked. The finding is copied so it
// survives history pruning.
type Favorite struct {
	UserID     string
	AnalysisID string
	Rank       int
	CreatedAt  time.Time
	Finding    model.Finding
}

// AddFavorite bookmarks the finding at rank in analysisID, which must be in
// userID's history. Adding an existing favorite again is a no-op.
func (s *Store) AddFavorite(ctx context.Context, userID, analysisID string, rank int) (Favorite, error) {
	result, err := s.UserAnalysis(ctx, userID, analysisID)
	if err != nil {
		return Favorite{}, err
	}

	var finding *model.Finding
	for i := range result.Findings {
		if result.Findings[i].Rank == rank {
			finding = &result.Findings[i]
			break
		}
	}
	if finding == nil {
		return Favorite{}, fmt.Errorf("finding %d in %s: %w", rank, analysisID, ErrNotFound)
	}

	payload, err := json.Marshal(finding)
	if err != nil {
		return Favorite{}, fmt.Errorf("encode finding: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Favorite{}, err
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM favorites WHERE user_id = ? AND analysis_id = ? AND rank = ?",
		userID, analysisID, rank).Scan(&exists)
	if err != nil {
		return Favorite{}, err
	}

	fav := Favorite{UserID: userID, AnalysisID: analysisID, Rank: rank, Finding: *finding}

	if exists == 0 {
		var count int
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM favorites WHERE user_id = ?", userID).Scan(&count); err != nil {
			return Favorite{}, err
		}
		if count >= s.favoritesLimit {
			return Favorite{}, fmt.Errorf("%d favorites: %w", count, ErrFavoritesLimit)
		}

		fav.CreatedAt = time.Now().UTC()
		_, err = tx.ExecContext(ctx, `
			INSERT INTO favorites (user_id, analysis_id, rank, created_at, finding)
			VALUES (?, ?, ?, ?, ?)
		`, userID, analysisID, rank, fav.CreatedAt.UnixNano(), string(payload))
		if err != nil {
			return Favorite{}, fmt.Errorf("insert favorite: %w", err)
		}
	}

	return fav, tx.Commit()
}

// RemoveFavorite deletes a bookmark. Missing bookmarks are ErrNotFound.
func (s *Store) RemoveFavorite(ctx context.Context, userID, analysisID string, rank int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"DELETE FROM favorites WHERE user_id = ? AND analysis_id = ? AND rank = ?",
		userID, analysisID, rank)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("favorite %s#%d: %w", analysisID, rank, ErrNotFound)
	}
	return nil
}

// Favorites lists userID's bookmarks, oldest first.
func (s *Store) Favorites(ctx context.Context, userID string) ([]Favorite, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT analysis_id, rank, created_at, finding
		FROM favorites
		WHERE user_id = ?
		ORDER BY created_at, rowid
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var favs []Favorite
	for rows.Next() {
		var (
			f       = Favorite{UserID: userID}
			created int64
			payload string
		)
		if err := rows.Scan(&f.AnalysisID, &f.Rank, &created, &payload); err != nil {
			return nil, err
		}
		f.CreatedAt = time.Unix(0, created).UTC()
		if err := json.Unmarshal([]byte(payload), &f.Finding); err != nil {
			return nil, fmt.Errorf("decode favorite: %w", err)
		}
		favs = append(favs, f)
	}
	return favs, rows.Err()
}

// isNoRows reports whether err is sql.ErrNoRows.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

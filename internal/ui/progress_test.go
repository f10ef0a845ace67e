package ui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/goldmine/internal/model"
	"github.com/abelbrown/goldmine/internal/otel"
	"github.com/abelbrown/goldmine/internal/pipeline"
)

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func TestProgressInit(t *testing.T) {
	p := NewProgress("saas", nil, nil)
	if p.Init() == nil {
		t.Fatal("Init should start the spinner")
	}
}

func TestProgressTracksStages(t *testing.T) {
	p := NewProgress("saas", nil, nil)

	m, _ := p.Update(StageMsg{pipeline.StageEvent{RunID: "r1", Stage: pipeline.StageFetching, Count: 4}})
	m, _ = m.Update(StageMsg{pipeline.StageEvent{RunID: "r1", Stage: pipeline.StageDeduplicating, Count: 120, Elapsed: 1500 * time.Millisecond}})
	p = m.(Progress)

	if p.current != pipeline.StageDeduplicating {
		t.Errorf("current = %s", p.current)
	}
	if !p.stages[pipeline.StageFetching].reached {
		t.Error("fetching should be reached")
	}

	view := p.View()
	for _, want := range []string{"saas", pipeline.StageFetching.Label(), pipeline.StageBlueprints.Label(), "120", "1.5s"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestProgressDoneQuits(t *testing.T) {
	p := NewProgress("saas", nil, nil)
	res := model.AnalysisResult{ID: "r1", Topic: "saas"}

	m, cmd := p.Update(DoneMsg{Result: res, Cached: true})
	if !isQuit(cmd) {
		t.Error("DoneMsg should quit")
	}
	p = m.(Progress)
	got, cached, err := p.Result()
	if got.ID != "r1" || !cached || err != nil {
		t.Errorf("Result() = %+v, %v, %v", got, cached, err)
	}
	if p.Canceled() {
		t.Error("finished scan should not be canceled")
	}
}

func TestProgressDoneWithError(t *testing.T) {
	p := NewProgress("saas", nil, nil)
	boom := errors.New("boom")
	m, _ := p.Update(DoneMsg{Err: boom})
	if _, _, err := m.(Progress).Result(); !errors.Is(err, boom) {
		t.Errorf("err = %v", err)
	}
}

func TestProgressQuitCancels(t *testing.T) {
	canceled := false
	p := NewProgress("saas", nil, func() { canceled = true })

	m, cmd := p.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if !isQuit(cmd) {
		t.Error("ctrl+c should quit")
	}
	if !canceled {
		t.Error("ctrl+c should cancel the scan")
	}
	if !m.(Progress).Canceled() {
		t.Error("Canceled() should be true")
	}
}

func TestProgressShowsRunEvents(t *testing.T) {
	ring := otel.NewRingBuffer(16)
	ring.Push(otel.Event{Kind: otel.KindFetchError, RunID: "other", Channel: "r/elsewhere"})
	ring.Push(otel.Event{Kind: otel.KindClassifyDegraded, RunID: "r1", Stage: "classifying_relevance", Reason: "quota_exceeded"})

	p := NewProgress("saas", ring, nil)
	m, _ := p.Update(StageMsg{pipeline.StageEvent{RunID: "r1", Stage: pipeline.StageClassifying, Count: 20}})
	m, cmd := m.Update(eventsTick{})
	if cmd == nil {
		t.Error("events tick should reschedule while running")
	}

	view := m.(Progress).View()
	if !strings.Contains(view, "quota_exceeded") {
		t.Errorf("view missing run event:\n%s", view)
	}
	if strings.Contains(view, "r/elsewhere") {
		t.Errorf("view shows another run's event:\n%s", view)
	}
}

package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/goldmine/internal/model"
	"github.com/abelbrown/goldmine/internal/otel"
	"github.com/abelbrown/goldmine/internal/pipeline"
)

const (
	eventsInterval = 250 * time.Millisecond
	recentEvents   = 5
)

type stageState struct {
	count   int
	reached bool
}

// Progress shows a spinner and the stage list while a scan runs.
// It quits on DoneMsg; the caller reads Result and Err afterwards.
type Progress struct {
	topic  string
	ring   *otel.RingBuffer
	cancel func()

	spinner spinner.Model
	stages  map[pipeline.Stage]stageState
	current pipeline.Stage
	runID   string
	elapsed time.Duration
	events  []otel.Event

	result   model.AnalysisResult
	cached   bool
	err      error
	done     bool
	canceled bool
	width    int
}

// NewProgress creates the progress view. ring may be nil; cancel, if set,
// is called when the user quits early.
func NewProgress(topic string, ring *otel.RingBuffer, cancel func()) Progress {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = StageDone

	return Progress{
		topic:   topic,
		ring:    ring,
		cancel:  cancel,
		spinner: s,
		stages:  make(map[pipeline.Stage]stageState, len(pipeline.Stages)),
	}
}

func tickEvents() tea.Cmd {
	return tea.Tick(eventsInterval, func(time.Time) tea.Msg { return eventsTick{} })
}

// Init starts the spinner and the event refresh.
func (p Progress) Init() tea.Cmd {
	return tea.Batch(p.spinner.Tick, tickEvents())
}

// Update handles messages and returns the updated model and any commands.
func (p Progress) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			p.canceled = true
			if p.cancel != nil {
				p.cancel()
			}
			return p, tea.Quit
		}
		return p, nil

	case tea.WindowSizeMsg:
		p.width = msg.Width
		return p, nil

	case StageMsg:
		p.current = msg.Stage
		p.runID = msg.RunID
		p.elapsed = msg.Elapsed
		p.stages[msg.Stage] = stageState{count: msg.Count, reached: true}
		return p, nil

	case DoneMsg:
		p.done = true
		p.result = msg.Result
		p.cached = msg.Cached
		p.err = msg.Err
		return p, tea.Quit

	case eventsTick:
		p.refreshEvents()
		if p.done {
			return p, nil
		}
		return p, tickEvents()

	case spinner.TickMsg:
		var cmd tea.Cmd
		p.spinner, cmd = p.spinner.Update(msg)
		return p, cmd
	}

	return p, nil
}

func (p *Progress) refreshEvents() {
	if p.ring == nil {
		return
	}
	if p.runID != "" {
		evs := p.ring.ForRun(p.runID)
		if len(evs) > recentEvents {
			evs = evs[len(evs)-recentEvents:]
		}
		p.events = evs
		return
	}
	p.events = p.ring.Last(recentEvents)
}

// View renders the stage list.
func (p Progress) View() string {
	var b strings.Builder

	b.WriteString(Title.Render("goldmine"))
	b.WriteString(" ")
	b.WriteString(StageCount.Render(fmt.Sprintf("scanning %q", p.topic)))
	b.WriteString("\n\n")

	for _, s := range pipeline.Stages {
		st := p.stages[s]
		switch {
		case s == p.current && !p.done && s != pipeline.StageAssembled:
			b.WriteString(p.spinner.View())
			b.WriteString(" ")
			b.WriteString(StageActive.Render(s.Label()))
		case st.reached:
			b.WriteString(StageDone.Render("✓ "))
			b.WriteString(StageActive.Render(s.Label()))
		default:
			b.WriteString(StagePending.Render("· " + s.Label()))
		}
		if st.reached && s != pipeline.StageFetching {
			b.WriteString(StageCount.Render(fmt.Sprintf("  %d", st.count)))
		}
		b.WriteString("\n")
	}

	if len(p.events) > 0 {
		b.WriteString("\n")
		for _, e := range p.events {
			b.WriteString(EventLine.Render(formatEvent(e)))
			b.WriteString("\n")
		}
	}

	if p.elapsed > 0 {
		b.WriteString("\n")
		b.WriteString(StageCount.Render(fmt.Sprintf("%.1fs", p.elapsed.Seconds())))
		b.WriteString("\n")
	}
	return b.String()
}

func formatEvent(e otel.Event) string {
	parts := []string{e.Time.Format("15:04:05"), string(e.Kind)}
	for _, s := range []string{e.Channel, e.Stage, e.Reason, e.Err} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// Result returns the finished scan, whether it came from the cache, and
// its error.
func (p Progress) Result() (model.AnalysisResult, bool, error) {
	return p.result, p.cached, p.err
}

// Done reports whether the scan finished, successfully or not.
func (p Progress) Done() bool {
	return p.done
}

// Canceled reports whether the user quit before the scan finished.
func (p Progress) Canceled() bool {
	return p.canceled && !p.done
}

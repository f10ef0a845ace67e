// Package ui provides the Bubble Tea scan progress view and the lipgloss
// renderers for results.
package ui

import (
	"github.com/abelbrown/goldmine/internal/model"
	"github.com/abelbrown/goldmine/internal/pipeline"
)

// StageMsg is sent when the pipeline enters a stage.
type StageMsg struct {
	pipeline.StageEvent
}

// DoneMsg is sent when the scan finishes.
type DoneMsg struct {
	Result model.AnalysisResult
	Cached bool
	Err    error
}

// eventsTick asks the progress view to re-read the event ring.
type eventsTick struct{}

package ui

import "github.com/charmbracelet/lipgloss"

// Colors used in the application.
var (
	colorPrimary   = lipgloss.Color("62")  // Purple
	colorSecondary = lipgloss.Color("241") // Gray
	colorMuted     = lipgloss.Color("240") // Darker gray
	colorHighlight = lipgloss.Color("212") // Pink
	colorSuccess   = lipgloss.Color("78")  // Green
	colorWarn      = lipgloss.Color("214") // Amber
	colorGold      = lipgloss.Color("220")
)

// Title style for the scan header.
var Title = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("255")).
	Background(colorPrimary).
	Padding(0, 1)

// StageDone style for finished stages.
var StageDone = lipgloss.NewStyle().
	Foreground(colorSuccess).
	Bold(true)

// StageActive style for the running stage.
var StageActive = lipgloss.NewStyle().
	Foreground(lipgloss.Color("255"))

// StagePending style for stages not reached yet.
var StagePending = lipgloss.NewStyle().
	Foreground(colorMuted)

// StageCount style for item counts next to a stage.
var StageCount = lipgloss.NewStyle().
	Foreground(colorSecondary)

// EventLine style for recent events under the stage list.
var EventLine = lipgloss.NewStyle().
	Foreground(colorMuted)

// WarnStyle flags degraded stages.
var WarnStyle = lipgloss.NewStyle().
	Foreground(colorWarn)

// ErrorStyle for displaying errors.
var ErrorStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("196")).
	Bold(true).
	Padding(0, 1)

// HelpStyle for help text.
var HelpStyle = lipgloss.NewStyle().
	Foreground(colorMuted).
	Padding(1, 2)

// ScoreBadge style for a finding's gold score.
var ScoreBadge = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("0")).
	Background(colorGold).
	Padding(0, 1)

// ChannelBadge style for channel names.
var ChannelBadge = lipgloss.NewStyle().
	Foreground(colorPrimary).
	Background(lipgloss.Color("236")).
	Padding(0, 1).
	MarginRight(1)

// FindingTitle style for a finding's post title.
var FindingTitle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("255")).
	Bold(true)

// SolutionName style for a blueprint's name.
var SolutionName = lipgloss.NewStyle().
	Foreground(colorHighlight).
	Bold(true)

// Label style for field labels in a blueprint.
var Label = lipgloss.NewStyle().
	Foreground(colorSecondary)

// FindingBox frames one finding.
var FindingBox = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(colorMuted).
	Padding(0, 1).
	MarginBottom(1)

// Header style for table headings.
var Header = lipgloss.NewStyle().
	Bold(true).
	Foreground(colorHighlight)

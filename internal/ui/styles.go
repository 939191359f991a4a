package ui

import "github.com/charmbracelet/lipgloss"

// Colors used throughout the TUI.
var (
	ColorRed     = lipgloss.Color("#FF0000")
	ColorGreen   = lipgloss.Color("#00FF00")
	ColorYellow  = lipgloss.Color("#FFFF00")
	ColorCyan    = lipgloss.Color("#00FFFF")
	ColorGray    = lipgloss.Color("#666666")
	ColorDimGray = lipgloss.Color("#444444")
	ColorWhite   = lipgloss.Color("#FFFFFF")
	ColorMagenta = lipgloss.Color("#FF00FF")
)

// Base styles reused by UI components.
var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorCyan)

	StatusStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	RecordingDotStyle = lipgloss.NewStyle().
				Foreground(ColorRed).
				Bold(true)

	IdleDotStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorRed).
			Bold(true)

	ErrorTextStyle = lipgloss.NewStyle().
			Foreground(ColorRed)

	// CaptionStyle renders the in-flight partial line.
	CaptionStyle = lipgloss.NewStyle().
			Foreground(ColorYellow)

	TimestampStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	// LangLabelStyle renders target-language tags next to translations.
	LangLabelStyle = lipgloss.NewStyle().
			Foreground(ColorCyan)

	// PendingTextStyle renders provisional translation text.
	PendingTextStyle = lipgloss.NewStyle().
				Foreground(ColorGray)

	PanelTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorWhite)

	PanelTitleActiveStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(ColorCyan)

	SelectedStyle = lipgloss.NewStyle().
			Foreground(ColorCyan).
			Bold(true)

	DimStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	FooterKeyStyle = lipgloss.NewStyle().
			Foreground(ColorYellow).
			Bold(true)

	FooterDescStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	DividerStyle = lipgloss.NewStyle().
			Foreground(ColorDimGray)

	LiveBadgeStyle = lipgloss.NewStyle().
			Foreground(ColorGreen).
			Bold(true)

	ScrollBadgeStyle = lipgloss.NewStyle().
				Foreground(ColorYellow).
				Bold(true)

	// GeneratingStyle marks the notes extraction spinner.
	GeneratingStyle = lipgloss.NewStyle().
			Foreground(ColorMagenta)

	// ProvisionalStyle marks notes whose authoritative id has not arrived.
	ProvisionalStyle = lipgloss.NewStyle().
				Foreground(ColorYellow)

	// OverlayTextStyle renders the caption overlay strip.
	OverlayTextStyle = lipgloss.NewStyle().
				Foreground(ColorWhite).
				Bold(true)

	// LangActiveStyle and LangInactiveStyle render the language switcher.
	LangActiveStyle = lipgloss.NewStyle().
			Foreground(ColorGreen).
			Bold(true)

	LangInactiveStyle = lipgloss.NewStyle().
				Foreground(ColorDimGray)
)

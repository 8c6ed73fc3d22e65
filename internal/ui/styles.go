// Package ui holds the terminal styling of the peer client.
package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

var (
	Primary = lipgloss.Color("#22d3ee")
	Success = lipgloss.Color("#10B981")
	Warning = lipgloss.Color("#F59E0B")
	Error   = lipgloss.Color("#EF4444")
	Muted   = lipgloss.Color("#6B7280")
)

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Primary)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(Success).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(Warning)

	MutedStyle = lipgloss.NewStyle().
			Foreground(Muted)
)

const (
	IconSuccess = "✓"
	IconError   = "✗"
	IconWaiting = "…"
	IconPeer    = "●"
)

func PrintTitle(title, detail string) {
	fmt.Println(TitleStyle.Render(title) + " " + MutedStyle.Render(detail))
}

func PrintSuccess(msg string) {
	fmt.Println(SuccessStyle.Render(IconSuccess) + " " + msg)
}

func PrintWaiting(msg string) {
	fmt.Println(WarningStyle.Render(IconWaiting) + " " + msg)
}

func PrintPeer(id, event string) {
	fmt.Println(SuccessStyle.Render(IconPeer) + " " + MutedStyle.Render(id) + " " + event)
}

func PrintError(msg string) {
	fmt.Println(ErrorStyle.Render(IconError + " " + msg))
}

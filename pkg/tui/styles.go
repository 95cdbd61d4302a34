package tui

import "github.com/charmbracelet/lipgloss"

type styles struct {
	sidebar       lipgloss.Style
	sidebarItem   lipgloss.Style
	sidebarActive lipgloss.Style
	sidebarPinned lipgloss.Style

	chrome    lipgloss.Style
	userLabel lipgloss.Style
	botLabel  lipgloss.Style
	status    lipgloss.Style
	errBanner lipgloss.Style
	help      lipgloss.Style
}

func newStyles() styles {
	return styles{
		sidebar: lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderRight(true).
			BorderForeground(lipgloss.Color("240")).
			PaddingRight(1),
		sidebarItem:   lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
		sidebarActive: lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true),
		sidebarPinned: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),

		chrome:    lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		userLabel: lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true),
		botLabel:  lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true),
		status:    lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Italic(true),
		errBanner: lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		help:      lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
	}
}

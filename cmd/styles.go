package main

import "github.com/charmbracelet/lipgloss"

// --- STYLES ---
var (
	accent = lipgloss.Color("#3ddc84")

	docStyle   = lipgloss.NewStyle().Margin(1, 2)
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#0b1a12")).
			Background(accent).
			Padding(0, 1)
	helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	// Status styles
	upStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("46")).Bold(true)
	downStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	copiedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("46")).Bold(true)
	labelStyle   = lipgloss.NewStyle().Bold(true)
	valueStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	spinnerStyle = lipgloss.NewStyle().Foreground(accent)
)

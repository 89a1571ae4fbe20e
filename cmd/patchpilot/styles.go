package main

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/ochairo/patchpilot/internal/domain/entities"
)

var (
	styleAllow   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#A8B545"))
	styleAsk     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFD93D"))
	styleDeny    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#E05A3A"))
	styleHeading = lipgloss.NewStyle().Bold(true)
	styleFaint   = lipgloss.NewStyle().Faint(true)
)

var severityStyles = map[entities.Severity]lipgloss.Style{
	entities.SeverityCritical: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#E05A3A")),
	entities.SeverityHigh:     lipgloss.NewStyle().Foreground(lipgloss.Color("#E8833A")),
	entities.SeverityMedium:   lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD93D")),
	entities.SeverityLow:      lipgloss.NewStyle().Foreground(lipgloss.Color("#A8B545")),
	entities.SeverityUnknown:  styleFaint,
}

func decisionStyle(decision entities.Decision) lipgloss.Style {
	switch decision {
	case entities.DecisionDeny:
		return styleDeny
	case entities.DecisionAsk:
		return styleAsk
	default:
		return styleAllow
	}
}

package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/clinica/clinic/internal/desk/notify"
	"github.com/clinica/clinic/internal/platform/validation"
)

var (
	categoryStyles = map[notify.Category]lipgloss.Style{
		notify.CategoryAlert:   lipgloss.NewStyle().Foreground(lipgloss.Color("#DC2626")).Bold(true),
		notify.CategoryInfo:    lipgloss.NewStyle().Foreground(lipgloss.Color("#2563EB")),
		notify.CategoryWarning: lipgloss.NewStyle().Foreground(lipgloss.Color("#D97706")),
		notify.CategorySuccess: lipgloss.NewStyle().Foreground(lipgloss.Color("#059669")),
	}
	readStyle  = lipgloss.NewStyle().Faint(true)
	countStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1).Foreground(lipgloss.Color("#F9FAFB")).Background(lipgloss.Color("#DC2626"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#DC2626"))
)

func badgeLine(n int) string {
	if n == 0 {
		return readStyle.Render("Sin notificaciones pendientes")
	}
	return countStyle.Render(fmt.Sprintf("%d", n)) + " notificaciones pendientes"
}

// entryLine renders one panel entry; unread entries carry a bullet.
func entryLine(e notify.Entry) string {
	marker := "•"
	if e.Read {
		marker = " "
	}
	title := categoryStyles[e.Category].Render(e.Title)
	line := fmt.Sprintf("%s %s  %s  %s", marker, title, e.Message, readStyle.Render(e.TimeLabel))
	if e.Read {
		return readStyle.Render(line)
	}
	return line
}

func printPanel(w io.Writer, res notify.Result) {
	fmt.Fprintln(w, badgeLine(res.Unread))
	for _, e := range res.Entries {
		fmt.Fprintln(w, entryLine(e))
	}
	if len(res.Failed) > 0 {
		fmt.Fprintln(w, errorStyle.Render("No se pudo consultar: "+strings.Join(res.Failed, ", ")))
	}
}

func printFieldErrors(w io.Writer, errs validation.Errors) {
	for _, field := range errs.Fields() {
		for _, msg := range errs[field] {
			fmt.Fprintf(w, "%s: %s\n", field, errorStyle.Render(msg))
		}
	}
}

package main

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/smallnest/insightgraph/agents"
	"github.com/smallnest/insightgraph/rag/ingest"
	"github.com/smallnest/insightgraph/rag/overview"
)

type palette struct {
	title   lipgloss.Style
	role    lipgloss.Style
	muted   lipgloss.Style
	success lipgloss.Style
	warning lipgloss.Style
	err     lipgloss.Style
}

var styles = palette{
	title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED")),
	role:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#06B6D4")),
	muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086")),
	success: lipgloss.NewStyle().Foreground(lipgloss.Color("#A6E3A1")),
	warning: lipgloss.NewStyle().Foreground(lipgloss.Color("#F9E2AF")),
	err:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F38BA8")),
}

func printOverview(w io.Writer, ov *overview.Cache) error {
	text, err := ov.Read()
	if err != nil {
		return err
	}
	fmt.Fprintln(w, styles.title.Render("Documents overview"))
	fmt.Fprintln(w, strings.TrimRight(text, "\n"))
	fmt.Fprintln(w)
	return nil
}

func printFileResult(w io.Writer, res ingest.FileResult) {
	name := filepath.Base(res.Path)
	if errors.Is(res.Err, ingest.ErrNotRegularFile) {
		fmt.Fprintln(w, styles.muted.Render(fmt.Sprintf("Skipped %s: %v", name, ingest.ErrNotRegularFile)))
		return
	}
	if res.Err != nil {
		fmt.Fprintln(w, styles.err.Render(fmt.Sprintf("File %s inserted with result: %v", name, res.Err)))
		return
	}
	fmt.Fprintln(w, styles.success.Render(fmt.Sprintf("File %s inserted with result: %d chunks %v", name, len(res.IDs), res.IDs)))
}

func printConversation(w io.Writer, state agents.ConversationState) {
	for _, m := range state.Messages {
		header := string(m.Role)
		if m.Name != "" {
			header += " (" + m.Name + ")"
		}
		fmt.Fprintln(w, styles.role.Render(header))
		fmt.Fprintln(w, m.Content)
		fmt.Fprintln(w)
	}

	v := state.Visualization
	switch {
	case v == nil:
	case v.HasImages():
		fmt.Fprintln(w, styles.title.Render("Visualizations"))
		for _, img := range v.Images {
			fmt.Fprintln(w, "  "+img)
		}
	default:
		fmt.Fprintln(w, styles.muted.Render("Visualization: "+v.Error))
	}
}

func printError(w io.Writer, err error) {
	fmt.Fprintln(w, styles.err.Render("Error: "+err.Error()))
}

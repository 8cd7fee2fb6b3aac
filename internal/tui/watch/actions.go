package watch

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/mattjoyce/orchestra-gw/internal/events"
)

// ActionState accumulates per-action counters from the event stream.
type ActionState struct {
	Name           string
	OK             int
	Failed         int
	Rejected       int
	InFlight       int
	LastTenant     string
	LastError      string
	LastDurationMS int64
}

// updateActionState folds one event into the per-action counters.
func updateActionState(actions map[string]*ActionState, e events.Event) {
	data := make(map[string]any)
	_ = json.Unmarshal(e.Data, &data)

	name, _ := data["action"].(string)
	if name == "" {
		return
	}

	st, ok := actions[name]
	if !ok {
		st = &ActionState{Name: name}
		actions[name] = st
	}

	if tenant, ok := data["tenant"].(string); ok {
		st.LastTenant = tenant
	}

	switch e.Type {
	case events.TypeActionReceived:
		st.InFlight++
	case events.TypeActionCompleted:
		st.OK++
		st.LastError = ""
		if st.InFlight > 0 {
			st.InFlight--
		}
		if d, ok := data["duration_ms"].(float64); ok {
			st.LastDurationMS = int64(d)
		}
	case events.TypeActionFailed:
		st.Failed++
		if st.InFlight > 0 {
			st.InFlight--
		}
		if msg, ok := data["error"].(string); ok {
			st.LastError = msg
		}
		if d, ok := data["duration_ms"].(float64); ok {
			st.LastDurationMS = int64(d)
		}
	case events.TypeActionRejected:
		st.Rejected++
		if st.InFlight > 0 {
			st.InFlight--
		}
		if msg, ok := data["error"].(string); ok {
			st.LastError = msg
		}
	}
}

func renderActions(actions map[string]*ActionState, selected int, theme Theme, width int) string {
	innerWidth := width - 4

	if len(actions) == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			theme.Title.Render("ACTIONS"),
			theme.Dim.Render("  No actions dispatched yet..."),
		)
		return theme.Border.Width(innerWidth).Render(content)
	}

	names := make([]string, 0, len(actions))
	for name := range actions {
		names = append(names, name)
	}
	sort.Strings(names)

	header := theme.Header.Render(fmt.Sprintf("  %-22s %6s %6s %6s %6s  %-12s %s",
		"ACTION", "OK", "FAIL", "REJ", "BUSY", "TENANT", "LAST"))

	lines := []string{header}
	for i, name := range names {
		st := actions[name]

		cursor := "  "
		if i == selected {
			cursor = theme.Highlight.Render("> ")
		}

		last := fmt.Sprintf("%dms", st.LastDurationMS)
		if st.LastError != "" {
			last = theme.StatusFailed.Render(truncate(st.LastError, 40))
		}

		busy := " "
		if st.InFlight > 0 {
			busy = theme.StatusRunning.Render(fmt.Sprintf("%d", st.InFlight))
		}

		lines = append(lines, fmt.Sprintf("%s%-22s %s %s %s %6s  %-12s %s",
			cursor,
			truncate(name, 22),
			theme.StatusOK.Render(fmt.Sprintf("%6d", st.OK)),
			theme.StatusFailed.Render(fmt.Sprintf("%6d", st.Failed)),
			theme.StatusRejected.Render(fmt.Sprintf("%6d", st.Rejected)),
			busy,
			truncate(st.LastTenant, 12),
			last,
		))
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		theme.Title.Render("ACTIONS"),
		strings.Join(lines, "\n"),
	)
	return theme.Border.Width(innerWidth).Render(content)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

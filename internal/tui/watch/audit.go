package watch

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type auditMsg []auditRow

type auditRow struct {
	Tenant     string `json:"tenant"`
	Action     string `json:"action"`
	Status     string `json:"status"`
	Error      string `json:"error"`
	DurationMS int64  `json:"duration_ms"`
	CreatedAt  string `json:"created_at"`
}

// newAuditTable builds the audit panel table.
func newAuditTable() table.Model {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "TIME", Width: 8},
			{Title: "TENANT", Width: 12},
			{Title: "ACTION", Width: 22},
			{Title: "STATUS", Width: 8},
			{Title: "MS", Width: 8},
			{Title: "ERROR", Width: 36},
		}),
		table.WithHeight(8),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)
	return t
}

func auditRows(entries []auditRow) []table.Row {
	rows := make([]table.Row, 0, len(entries))
	for _, e := range entries {
		ts := e.CreatedAt
		if t, err := time.Parse(time.RFC3339Nano, e.CreatedAt); err == nil {
			ts = t.Local().Format("15:04:05")
		}
		rows = append(rows, table.Row{
			ts,
			truncate(e.Tenant, 12),
			truncate(e.Action, 22),
			e.Status,
			fmt.Sprintf("%d", e.DurationMS),
			truncate(e.Error, 36),
		})
	}
	return rows
}

// fetchAudit polls GET /audit for the latest entries.
func fetchAudit(apiURL, apiKey string) tea.Cmd {
	return func() tea.Msg {
		client := &http.Client{Timeout: 2 * time.Second}
		req, err := http.NewRequest("GET", apiURL+"/audit?limit=25", nil)
		if err != nil {
			return errMsg(err)
		}
		req.Header.Set("Authorization", "Bearer "+apiKey)

		resp, err := client.Do(req)
		if err != nil {
			return errMsg(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			// Audit may be disabled server-side; leave the panel empty.
			return auditMsg(nil)
		}

		var rows []auditRow
		if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
			return errMsg(err)
		}
		return auditMsg(rows)
	}
}

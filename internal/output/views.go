package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/atikulmunna/pulse/internal/model"
)

// Placeholders shown instead of a blank view.
const (
	NoData    = "no data"
	NoPayload = "no payload attached to this entry"
)

var (
	styleOnline  = lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("42")).Bold(true).Padding(0, 1)
	styleOffline = lipgloss.NewStyle().Foreground(lipgloss.Color("255")).Background(lipgloss.Color("196")).Bold(true).Padding(0, 1)
	styleHeader  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")).Padding(0, 1)
	styleCell    = lipgloss.NewStyle().Padding(0, 1)
)

// StatusLine renders the feed connection badge.
func StatusLine(connected bool) string {
	if connected {
		return styleOnline.Render("ONLINE")
	}
	return styleOffline.Render("OFFLINE")
}

// Table renders rows under headers. An empty rows slice yields the no-data
// placeholder.
func Table(headers []string, rows [][]string) string {
	if len(rows) == 0 {
		return styleFaint.Render(NoData)
	}
	styled := make([]string, len(headers))
	for i, h := range headers {
		styled[i] = styleHeader.Render(h)
	}
	padded := make([][]string, len(rows))
	for i, r := range rows {
		padded[i] = make([]string, len(r))
		for j, c := range r {
			padded[i][j] = styleCell.Render(c)
		}
	}
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(styleFaint).
		Headers(styled...).
		Rows(padded...)
	return t.String()
}

// Inspect writes the entry's payload as indented JSON.
func Inspect(w io.Writer, entry model.LogEntry) error {
	if !entry.HasData() {
		_, err := fmt.Fprintln(w, styleFaint.Render(NoPayload))
		return err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, entry.Data, "", "  "); err != nil {
		// Not valid JSON; show it verbatim.
		buf.Reset()
		buf.Write(entry.Data)
	}
	_, err := fmt.Fprintf(w, "%s %s\n%s\n", styleState.Render("["+entry.State+"]"), entry.Message, buf.String())
	return err
}

// WriteJSON writes v as indented JSON, for --output json on list commands.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

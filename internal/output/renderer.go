package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/atikulmunna/pulse/internal/model"
)

// Renderer writes LogEntry values to an output stream.
type Renderer interface {
	Render(entry model.LogEntry) error
}

// New returns the renderer for format ("text" or "json").
func New(format string, w io.Writer) (Renderer, error) {
	switch format {
	case "text", "":
		return NewTextRenderer(w), nil
	case "json":
		return NewJSONRenderer(w), nil
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}

// ---------------------------------------------------------------------------
// Text Renderer (colorized terminal output)
// ---------------------------------------------------------------------------

var (
	styleInfo    = lipgloss.NewStyle().Foreground(lipgloss.Color("245")) // gray
	styleRunning = lipgloss.NewStyle().Foreground(lipgloss.Color("220")) // yellow
	styleSuccess = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))  // green
	styleFailed  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	styleState   = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true) // cyan
	styleMarker  = lipgloss.NewStyle().Foreground(lipgloss.Color("213"))
	styleFaint   = lipgloss.NewStyle().Faint(true)
)

// dataMarker flags entries that carry an inspectable payload.
const dataMarker = "›"

// TextRenderer prints entries to the terminal with status-based colors.
type TextRenderer struct {
	w io.Writer
}

// NewTextRenderer returns a Renderer that writes colorized text to w.
func NewTextRenderer(w io.Writer) *TextRenderer {
	return &TextRenderer{w: w}
}

func (r *TextRenderer) Render(entry model.LogEntry) error {
	ts := styleFaint.Render(entry.Timestamp.Local().Format("15:04:05"))
	state := styleState.Render("[" + entry.State + "]")
	msg := statusStyle(entry.Status).Render(entry.Message)

	line := fmt.Sprintf("%s %s %s", ts, state, msg)
	if entry.HasData() {
		line += " " + styleMarker.Render(dataMarker)
	}
	_, err := fmt.Fprintln(r.w, line)
	return err
}

func statusStyle(s model.Status) lipgloss.Style {
	switch s {
	case model.StatusRunning:
		return styleRunning
	case model.StatusSuccess:
		return styleSuccess
	case model.StatusFailed:
		return styleFailed
	default:
		return styleInfo
	}
}

// ---------------------------------------------------------------------------
// JSON Renderer (structured output for piping)
// ---------------------------------------------------------------------------

// JSONRenderer prints each entry as a single JSON object per line.
type JSONRenderer struct {
	enc *json.Encoder
}

// NewJSONRenderer returns a Renderer that writes JSON lines to w.
func NewJSONRenderer(w io.Writer) *JSONRenderer {
	return &JSONRenderer{enc: json.NewEncoder(w)}
}

func (r *JSONRenderer) Render(entry model.LogEntry) error {
	return r.enc.Encode(entry)
}

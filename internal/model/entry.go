package model

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// Status is the progress marker the platform attaches to a pipeline step.
type Status string

const (
	StatusInfo    Status = "info"
	StatusRunning Status = "running"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// ParseStatus maps a wire value to a Status. Anything unrecognised is info.
func ParseStatus(s string) Status {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case StatusRunning:
		return StatusRunning
	case StatusSuccess:
		return StatusSuccess
	case StatusFailed:
		return StatusFailed
	default:
		return StatusInfo
	}
}

// LogEntry is one row of the live event feed. It is never modified after
// it has been appended.
type LogEntry struct {
	Timestamp time.Time       `json:"timestamp"`
	State     string          `json:"state"`   // pipeline step label, e.g. RAG, LLM
	Message   string          `json:"message"` // human-readable detail
	Status    Status          `json:"status,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// HasData reports whether the entry carries an inspectable payload.
func (e LogEntry) HasData() bool {
	d := bytes.TrimSpace(e.Data)
	return len(d) > 0 && !bytes.Equal(d, []byte("null"))
}

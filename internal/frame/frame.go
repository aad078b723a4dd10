// Package frame decodes the JSON messages pushed on the platform's log
// WebSocket into a closed set of typed frames.
package frame

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/atikulmunna/pulse/internal/model"
)

// Wire discriminators.
const (
	TypeLog       = "log"
	TypeGraphData = "graph_data"
	TypeGraphHeat = "graph_heat"
)

var (
	// ErrMalformed is returned for text that is not a valid frame.
	ErrMalformed = errors.New("malformed frame")
	// ErrUnknownType is returned for well-formed frames with an unrecognised type.
	ErrUnknownType = errors.New("unknown frame type")
)

// Frame is one decoded message. The concrete type is one of LogFrame,
// GraphDataFrame or GraphHeatFrame.
type Frame interface {
	Type() string
	isFrame()
}

// LogFrame reports progress of one pipeline step.
type LogFrame struct {
	Step    string
	Message string
	Status  model.Status
	Data    json.RawMessage
}

// GraphDataFrame carries a complete graph snapshot.
type GraphDataFrame struct {
	Graph model.Graph
}

// GraphHeatFrame sets the weight of a single node.
type GraphHeatFrame struct {
	NodeID string
	Val    float64
}

func (LogFrame) Type() string       { return TypeLog }
func (GraphDataFrame) Type() string { return TypeGraphData }
func (GraphHeatFrame) Type() string { return TypeGraphHeat }

func (LogFrame) isFrame()       {}
func (GraphDataFrame) isFrame() {}
func (GraphHeatFrame) isFrame() {}

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type logPayload struct {
	Step    string          `json:"step"`
	Detail  string          `json:"detail"`
	Message string          `json:"message"`
	Status  string          `json:"status"`
	Data    json.RawMessage `json:"data"`
}

type heatPayload struct {
	ID  string   `json:"id"`
	Val *float64 `json:"val"`
}

// Decode parses a single WebSocket text message.
func Decode(raw []byte) (Frame, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	switch env.Type {
	case TypeLog:
		return decodeLog(env.Payload)
	case TypeGraphData:
		var g model.Graph
		if err := unmarshalPayload(env.Payload, &g); err != nil {
			return nil, err
		}
		return GraphDataFrame{Graph: g}, nil
	case TypeGraphHeat:
		var p heatPayload
		if err := unmarshalPayload(env.Payload, &p); err != nil {
			return nil, err
		}
		if p.ID == "" || p.Val == nil {
			return nil, fmt.Errorf("%w: graph_heat needs id and val", ErrMalformed)
		}
		return GraphHeatFrame{NodeID: p.ID, Val: *p.Val}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}
}

func decodeLog(payload json.RawMessage) (Frame, error) {
	var p logPayload
	if err := unmarshalPayload(payload, &p); err != nil {
		return nil, err
	}

	step := p.Step
	if step == "" {
		step = "INFO"
	}
	msg := p.Detail
	if msg == "" {
		msg = p.Message
	}

	return LogFrame{
		Step:    step,
		Message: msg,
		Status:  model.ParseStatus(p.Status),
		Data:    p.Data,
	}, nil
}

func unmarshalPayload(payload json.RawMessage, v any) error {
	if len(payload) == 0 || bytes.Equal(bytes.TrimSpace(payload), []byte("null")) {
		return fmt.Errorf("%w: missing payload", ErrMalformed)
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}

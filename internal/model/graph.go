package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Group is a node's category. The topology endpoint sends names such as
// "root" or "pillar"; other endpoints send numeric ids. Both decode to the
// textual form.
type Group string

func (g *Group) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*g = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*g = Group(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("group must be a string or number: %w", err)
	}
	*g = Group(n.String())
	return nil
}

// GraphNode is one entity of the knowledge graph. Val is the rendering weight.
type GraphNode struct {
	ID    string  `json:"id"`
	Group Group   `json:"group"`
	Val   float64 `json:"val"`
}

// GraphLink connects two node ids. The server guarantees both ends exist.
type GraphLink struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Graph is a full topology snapshot.
type Graph struct {
	Nodes []GraphNode `json:"nodes"`
	Links []GraphLink `json:"links"`
}

// Clone returns a copy that shares no slices with g.
func (g Graph) Clone() Graph {
	out := Graph{
		Nodes: make([]GraphNode, len(g.Nodes)),
		Links: make([]GraphLink, len(g.Links)),
	}
	copy(out.Nodes, g.Nodes)
	copy(out.Links, g.Links)
	return out
}

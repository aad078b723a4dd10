package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupAcceptsNamesAndNumbers(t *testing.T) {
	var g Graph
	require.NoError(t, json.Unmarshal([]byte(`{"nodes":[
		{"id":"CIAY","group":"root","val":40},
		{"id":"IA","group":3,"val":1},
		{"id":"x","group":null},
		{"id":"y"}
	]}`), &g))

	require.Len(t, g.Nodes, 4)
	assert.Equal(t, Group("root"), g.Nodes[0].Group)
	assert.Equal(t, Group("3"), g.Nodes[1].Group)
	assert.Equal(t, Group(""), g.Nodes[2].Group)
	assert.Equal(t, Group(""), g.Nodes[3].Group)
}

func TestGroupRejectsOtherTypes(t *testing.T) {
	var n GraphNode
	assert.Error(t, json.Unmarshal([]byte(`{"id":"a","group":true}`), &n))
}

func TestIntelligenceNewEntities(t *testing.T) {
	var bi Intelligence
	require.NoError(t, json.Unmarshal([]byte(`{"kpis":{"total_sessions":2},"new_entities":[{"id":"Mérida","group":2,"val":5}]}`), &bi))
	require.Len(t, bi.NewEntities, 1)
	assert.Equal(t, Group("2"), bi.NewEntities[0].Group)
}

package loom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
name: summarize
nodes:
  - id: fetch
    kind: custom_code
    parameters:
      command: ["curl", "-s"]
  - id: summarize
    kind: llm
    parameters:
      model: claude-sonnet-4
      prompt: "Summarize: {input}"
    position: {x: 120, y: 40}
edges:
  - source: fetch
    target: summarize
environment:
  tier: lightweight
`

const sampleJSON = `{
  "name": "summarize",
  "nodes": [
    {"id": "fetch", "kind": "custom_code", "parameters": {"command": ["curl", "-s"]}},
    {"id": "summarize", "kind": "llm", "parameters": {"model": "claude-sonnet-4", "prompt": "Summarize: {input}"}}
  ],
  "edges": [{"source": "fetch", "target": "summarize"}],
  "environment": {"tier": "lightweight"}
}`

func TestParseYAML(t *testing.T) {
	g, err := ParseYAML([]byte(sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "summarize", g.Name)
	require.Len(t, g.Nodes, 2)
	assert.Equal(t, KindCustomCode, g.Nodes[0].Kind)
	assert.Equal(t, KindLLM, g.Nodes[1].Kind)
	assert.Equal(t, "claude-sonnet-4", g.Nodes[1].Parameters.String("model", ""))
	assert.Equal(t, 120.0, g.Nodes[1].Position["x"])

	require.Len(t, g.Edges, 1)
	assert.Equal(t, DefaultOutputPort, g.Edges[0].SourcePort)
	assert.Equal(t, DefaultInputPort, g.Edges[0].TargetPort)
	assert.Equal(t, "lightweight", string(g.Environment.Tier))
}

func TestParseJSON(t *testing.T) {
	g, err := ParseJSON([]byte(sampleJSON))
	require.NoError(t, err)
	assert.Equal(t, "summarize", g.Name)
	require.Len(t, g.Nodes, 2)
	assert.Equal(t, "Summarize: {input}", g.Nodes[1].Parameters.String("prompt", ""))
}

func TestParse_Malformed(t *testing.T) {
	_, err := ParseJSON([]byte("{nope"))
	assert.Error(t, err)
	_, err = ParseYAML([]byte(": bad: [yaml"))
	assert.Error(t, err)
}

func TestGraph_NodeLookup(t *testing.T) {
	g, err := ParseYAML([]byte(sampleYAML))
	require.NoError(t, err)

	n, ok := g.Node("fetch")
	require.True(t, ok)
	assert.Equal(t, KindCustomCode, n.Kind)

	_, ok = g.Node("missing")
	assert.False(t, ok)
}

func TestGraph_Hash_FormatIndependent(t *testing.T) {
	fromYAML, err := ParseYAML([]byte(sampleYAML))
	require.NoError(t, err)
	fromJSON, err := ParseJSON([]byte(sampleJSON))
	require.NoError(t, err)

	// Position is presentation data and must not affect the hash.
	assert.Equal(t, fromYAML.Hash(), fromJSON.Hash())
	assert.Len(t, fromYAML.Hash(), 64)
}

func TestGraph_Hash_OrderIndependent(t *testing.T) {
	a := &Graph{
		Nodes: []Node{node("x", nil), node("y", nil)},
		Edges: []Edge{edge("x", "y")},
	}
	b := &Graph{
		Nodes: []Node{node("y", nil), node("x", nil)},
		Edges: []Edge{{Source: "x", Target: "y", SourcePort: "output", TargetPort: "input"}},
	}
	assert.Equal(t, a.Hash(), b.Hash())
}

func TestGraph_Hash_SensitiveToStructure(t *testing.T) {
	base := &Graph{
		Nodes: []Node{node("x", nil), node("y", nil)},
		Edges: []Edge{edge("x", "y")},
	}
	extraNode := &Graph{
		Nodes: []Node{node("x", nil), node("y", nil), node("z", nil)},
		Edges: []Edge{edge("x", "y")},
	}
	flipped := &Graph{
		Nodes: []Node{node("x", nil), node("y", nil)},
		Edges: []Edge{edge("y", "x")},
	}
	reparam := &Graph{
		Nodes: []Node{node("x", map[string]any{"timeout": 5}), node("y", nil)},
		Edges: []Edge{edge("x", "y")},
	}

	assert.NotEqual(t, base.Hash(), extraNode.Hash())
	assert.NotEqual(t, base.Hash(), flipped.Hash())
	assert.NotEqual(t, base.Hash(), reparam.Hash())
}

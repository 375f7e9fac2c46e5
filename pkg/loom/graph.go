package loom

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/loomengine/loom/pkg/loom/config"
	"github.com/loomengine/loom/pkg/loom/sandbox"
)

// NodeKind identifies a node's behavior variant.
type NodeKind string

// Node kinds.
const (
	KindLLM        NodeKind = "llm"
	KindDecision   NodeKind = "decision"
	KindComposite  NodeKind = "composite"
	KindStorage    NodeKind = "storage"
	KindCustomCode NodeKind = "custom_code"
	KindTool       NodeKind = "tool"
)

// KnownKind reports whether k is one of the supported node kinds.
func KnownKind(k NodeKind) bool {
	switch k {
	case KindLLM, KindDecision, KindComposite, KindStorage, KindCustomCode, KindTool:
		return true
	}
	return false
}

// Default port names used when an edge omits its slot mapping.
const (
	DefaultOutputPort = "output"
	DefaultInputPort  = "input"
)

// Node is one unit of computation in a graph. Identity and configuration
// are immutable; runtime state lives in the run, not here.
type Node struct {
	ID   string   `json:"id" yaml:"id"`
	Kind NodeKind `json:"kind" yaml:"kind"`
	Name string   `json:"name,omitempty" yaml:"name,omitempty"`

	// Parameters is the kind-specific configuration, consumed only by
	// that kind's executor.
	Parameters config.Params `json:"parameters,omitempty" yaml:"parameters,omitempty"`

	// Position is editor presentation data. Ignored by the engine but
	// preserved through parse/serialize round trips.
	Position map[string]float64 `json:"position,omitempty" yaml:"position,omitempty"`
}

// Edge is a directed connection between two nodes, carrying a named
// output port to input port mapping.
type Edge struct {
	Source string `json:"source" yaml:"source"`
	Target string `json:"target" yaml:"target"`

	// SourcePort and TargetPort default to "output" and "input".
	SourcePort string `json:"source_port,omitempty" yaml:"source_port,omitempty"`
	TargetPort string `json:"target_port,omitempty" yaml:"target_port,omitempty"`
}

// Graph is the declarative description of a workflow: nodes, edges, and
// the environment policy they run under.
//
// Graph is a value object. Validate before running; Compile produces the
// immutable execution form.
type Graph struct {
	Name  string `json:"name,omitempty" yaml:"name,omitempty"`
	Nodes []Node `json:"nodes" yaml:"nodes"`
	Edges []Edge `json:"edges,omitempty" yaml:"edges,omitempty"`

	// Environment is the sandbox policy for the graph's untrusted code.
	Environment sandbox.Policy `json:"environment,omitempty" yaml:"environment,omitempty"`
}

// ParseJSON decodes a graph document from JSON and applies port defaults.
func ParseJSON(data []byte) (*Graph, error) {
	var g Graph
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("parse graph: %w", err)
	}
	g.normalize()
	return &g, nil
}

// ParseYAML decodes a graph document from YAML and applies port defaults.
func ParseYAML(data []byte) (*Graph, error) {
	var g Graph
	if err := yaml.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("parse graph: %w", err)
	}
	g.normalize()
	return &g, nil
}

// normalize fills defaulted edge ports.
func (g *Graph) normalize() {
	for i := range g.Edges {
		if g.Edges[i].SourcePort == "" {
			g.Edges[i].SourcePort = DefaultOutputPort
		}
		if g.Edges[i].TargetPort == "" {
			g.Edges[i].TargetPort = DefaultInputPort
		}
	}
}

// Node returns the node with the given id, or false.
func (g *Graph) Node(id string) (Node, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// Hash returns the content fingerprint of the graph: a sha256 over a
// canonical JSON rendering with nodes and edges sorted. Two graphs with
// the same structure and configuration hash identically regardless of
// declaration order or presentation data.
func (g *Graph) Hash() string {
	type hashEdge struct {
		Source     string `json:"source"`
		Target     string `json:"target"`
		SourcePort string `json:"source_port"`
		TargetPort string `json:"target_port"`
	}
	type hashNode struct {
		ID         string         `json:"id"`
		Kind       NodeKind       `json:"kind"`
		Parameters map[string]any `json:"parameters,omitempty"`
	}

	nodes := make([]hashNode, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		nodes = append(nodes, hashNode{ID: n.ID, Kind: n.Kind, Parameters: n.Parameters.Raw()})
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })

	edges := make([]hashEdge, 0, len(g.Edges))
	for _, e := range g.Edges {
		sp, tp := e.SourcePort, e.TargetPort
		if sp == "" {
			sp = DefaultOutputPort
		}
		if tp == "" {
			tp = DefaultInputPort
		}
		edges = append(edges, hashEdge{Source: e.Source, Target: e.Target, SourcePort: sp, TargetPort: tp})
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Source != edges[j].Source {
			return edges[i].Source < edges[j].Source
		}
		if edges[i].Target != edges[j].Target {
			return edges[i].Target < edges[j].Target
		}
		return edges[i].SourcePort < edges[j].SourcePort
	})

	canonical, err := json.Marshal(struct {
		Nodes []hashNode     `json:"nodes"`
		Edges []hashEdge     `json:"edges"`
		Env   sandbox.Policy `json:"environment"`
	}{nodes, edges, g.Environment})
	if err != nil {
		// Only non-serializable parameter values can get here; the
		// zero hash forces a GraphMismatch rather than a false match.
		return ""
	}

	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:])
}

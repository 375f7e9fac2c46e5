package loom

import (
	"fmt"
	"strings"
)

// ValidationError is a graph shape problem found before execution.
type ValidationError struct {
	// Kind is one of "cycle", "dangling_edge", "duplicate_id",
	// "unknown_kind", "empty".
	Kind string
	// NodeID or Edge identifies the offending element.
	NodeID string
	Edge   *Edge
	// Detail is a human-readable explanation.
	Detail string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid graph (%s): %s", e.Kind, e.Detail)
}

// Validate checks a graph for structural problems: duplicate node ids,
// unknown node kinds, edges referencing missing nodes, self edges, and
// cycles. The first problem found is returned with the offending node or
// edge identified.
func Validate(g *Graph) error {
	if len(g.Nodes) == 0 {
		return &ValidationError{Kind: "empty", Detail: "graph has no nodes"}
	}

	seen := make(map[string]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		if n.ID == "" {
			return &ValidationError{Kind: "duplicate_id", Detail: "node with empty id"}
		}
		if seen[n.ID] {
			return &ValidationError{
				Kind:   "duplicate_id",
				NodeID: n.ID,
				Detail: fmt.Sprintf("node id %q declared more than once", n.ID),
			}
		}
		seen[n.ID] = true

		if !KnownKind(n.Kind) {
			return &ValidationError{
				Kind:   "unknown_kind",
				NodeID: n.ID,
				Detail: fmt.Sprintf("node %q has unknown kind %q", n.ID, n.Kind),
			}
		}
	}

	for i := range g.Edges {
		e := &g.Edges[i]
		if !seen[e.Source] {
			return &ValidationError{
				Kind:   "dangling_edge",
				Edge:   e,
				Detail: fmt.Sprintf("edge references missing source node %q", e.Source),
			}
		}
		if !seen[e.Target] {
			return &ValidationError{
				Kind:   "dangling_edge",
				Edge:   e,
				Detail: fmt.Sprintf("edge references missing target node %q", e.Target),
			}
		}
		if e.Source == e.Target {
			return &ValidationError{
				Kind:   "cycle",
				NodeID: e.Source,
				Edge:   e,
				Detail: fmt.Sprintf("node %q has an edge to itself", e.Source),
			}
		}
	}

	if cycle := findCycle(g); len(cycle) > 0 {
		return &ValidationError{
			Kind:   "cycle",
			NodeID: cycle[0],
			Detail: "cycle detected: " + strings.Join(cycle, " -> "),
		}
	}
	return nil
}

// findCycle runs DFS coloring and returns the node ids along a cycle, or
// nil for acyclic graphs. The returned path starts and ends at the same
// node.
func findCycle(g *Graph) []string {
	succ := make(map[string][]string)
	for _, e := range g.Edges {
		succ[e.Source] = append(succ[e.Source], e.Target)
	}

	const (
		white = 0 // unvisited
		gray  = 1 // on the current DFS path
		black = 2 // fully explored
	)
	color := make(map[string]int, len(g.Nodes))
	parent := make(map[string]string)

	var cycle []string
	var visit func(id string) bool
	visit = func(id string) bool {
		color[id] = gray
		for _, next := range succ[id] {
			switch color[next] {
			case white:
				parent[next] = id
				if visit(next) {
					return true
				}
			case gray:
				// Walk the gray path back to close the loop.
				cycle = []string{next}
				for cur := id; ; cur = parent[cur] {
					cycle = append(cycle, cur)
					if cur == next {
						break
					}
				}
				// Reverse into forward edge order; the path already
				// starts and ends at the same node.
				for i, j := 0, len(cycle)-1; i < j; i, j = i+1, j-1 {
					cycle[i], cycle[j] = cycle[j], cycle[i]
				}
				return true
			}
		}
		color[id] = black
		return false
	}

	for _, n := range g.Nodes {
		if color[n.ID] == white && visit(n.ID) {
			return cycle
		}
	}
	return nil
}

// TopologicalLayers groups node ids into levels where a node sits in
// layer k iff the longest path from any source to it has length k. The
// layering is advisory; dispatch is event-driven, not layer-lockstep.
// The graph must already be validated acyclic.
func TopologicalLayers(g *Graph) [][]string {
	indegree := make(map[string]int, len(g.Nodes))
	succ := make(map[string][]string)
	for _, n := range g.Nodes {
		indegree[n.ID] = 0
	}
	for _, e := range g.Edges {
		succ[e.Source] = append(succ[e.Source], e.Target)
		indegree[e.Target]++
	}

	depth := make(map[string]int, len(g.Nodes))
	var frontier []string
	for _, n := range g.Nodes {
		if indegree[n.ID] == 0 {
			frontier = append(frontier, n.ID)
		}
	}

	maxDepth := 0
	for len(frontier) > 0 {
		var next []string
		for _, id := range frontier {
			for _, s := range succ[id] {
				if d := depth[id] + 1; d > depth[s] {
					depth[s] = d
					if d > maxDepth {
						maxDepth = d
					}
				}
				indegree[s]--
				if indegree[s] == 0 {
					next = append(next, s)
				}
			}
		}
		frontier = next
	}

	layers := make([][]string, maxDepth+1)
	for _, n := range g.Nodes {
		d := depth[n.ID]
		layers[d] = append(layers[d], n.ID)
	}
	return layers
}

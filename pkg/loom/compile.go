package loom

// CompiledGraph is a validated graph with adjacency precomputed for
// scheduling. Compile once, run many times.
type CompiledGraph struct {
	graph *Graph
	hash  string

	nodes map[string]Node
	// succ and pred index edges by source and target node ID.
	succ map[string][]Edge
	pred map[string][]Edge
	// sources have no in-edges, sinks no out-edges.
	sources []string
	sinks   []string
}

// Compile validates the graph and precomputes the adjacency structure the
// scheduler needs. The graph must not be mutated after compilation.
func Compile(g *Graph) (*CompiledGraph, error) {
	g.normalize()
	if err := Validate(g); err != nil {
		return nil, err
	}

	cg := &CompiledGraph{
		graph: g,
		hash:  g.Hash(),
		nodes: make(map[string]Node, len(g.Nodes)),
		succ:  make(map[string][]Edge, len(g.Nodes)),
		pred:  make(map[string][]Edge, len(g.Nodes)),
	}
	for _, n := range g.Nodes {
		cg.nodes[n.ID] = n
	}
	for _, e := range g.Edges {
		cg.succ[e.Source] = append(cg.succ[e.Source], e)
		cg.pred[e.Target] = append(cg.pred[e.Target], e)
	}
	for _, n := range g.Nodes {
		if len(cg.pred[n.ID]) == 0 {
			cg.sources = append(cg.sources, n.ID)
		}
		if len(cg.succ[n.ID]) == 0 {
			cg.sinks = append(cg.sinks, n.ID)
		}
	}
	return cg, nil
}

// Graph returns the underlying graph.
func (c *CompiledGraph) Graph() *Graph { return c.graph }

// Hash returns the canonical structure hash computed at compile time.
func (c *CompiledGraph) Hash() string { return c.hash }

// Node returns the node with the given ID.
func (c *CompiledGraph) Node(id string) (Node, bool) {
	n, ok := c.nodes[id]
	return n, ok
}

// Len returns the number of nodes.
func (c *CompiledGraph) Len() int { return len(c.nodes) }

// OutEdges returns the edges leaving the given node.
func (c *CompiledGraph) OutEdges(id string) []Edge { return c.succ[id] }

// InEdges returns the edges entering the given node.
func (c *CompiledGraph) InEdges(id string) []Edge { return c.pred[id] }

// Sources returns the IDs of nodes with no in-edges.
func (c *CompiledGraph) Sources() []string { return c.sources }

// Sinks returns the IDs of nodes with no out-edges.
func (c *CompiledGraph) Sinks() []string { return c.sinks }

package graph

// Neighbors returns the distinct ids joined to id by at least one edge, in edge order.
func (g *Graph) Neighbors(id string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, e := range g.Edges {
		if !e.Touches(id) {
			continue
		}
		other := e.Other(id)
		if other == id || seen[other] {
			continue
		}
		seen[other] = true
		out = append(out, other)
	}
	return out
}

// Degree counts incident edges, parallel edges included.
func (g *Graph) Degree(id string) int {
	d := 0
	for _, e := range g.Edges {
		if e.Touches(id) {
			d++
		}
	}
	return d
}

// Connected reports whether some edge joins a and b.
func (g *Graph) Connected(a, b string) bool {
	if a == b {
		return false
	}
	for _, e := range g.Edges {
		if e.Touches(a) && e.Other(a) == b {
			return true
		}
	}
	return false
}

// Reachable returns the ids reachable from the root, root included.
func (g *Graph) Reachable() map[string]bool {
	adj := make(map[string][]string, len(g.Nodes))
	for _, e := range g.Edges {
		adj[e.Source] = append(adj[e.Source], e.Target)
		adj[e.Target] = append(adj[e.Target], e.Source)
	}
	seen := map[string]bool{g.RootID: true}
	queue := []string{g.RootID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, next := range adj[id] {
			if !seen[next] {
				seen[next] = true
				queue = append(queue, next)
			}
		}
	}
	return seen
}

// Stats holds summary counts.
type Stats struct {
	Nodes    int            `json:"nodes"`
	Edges    int            `json:"edges"`
	ByOrigin map[Origin]int `json:"by_origin"`
	Kinds    map[Kind]int   `json:"kinds"`
}

// GetStats returns summary statistics.
func (g *Graph) GetStats() Stats {
	s := Stats{
		Nodes:    len(g.Nodes),
		Edges:    len(g.Edges),
		ByOrigin: make(map[Origin]int),
		Kinds:    make(map[Kind]int),
	}
	for _, e := range g.Edges {
		s.ByOrigin[e.Origin]++
	}
	for _, n := range g.Nodes {
		s.Kinds[n.Kind]++
	}
	return s
}

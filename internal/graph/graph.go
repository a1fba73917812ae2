package graph

import (
	"math"
)

// Kind tags a node for rendering weight. It has no effect on the simulation.
type Kind string

const (
	KindRoot    Kind = "root"
	KindProject Kind = "project"
	KindTask    Kind = "task"
	KindHabit   Kind = "habit"
	KindGoal    Kind = "goal"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindRoot, KindProject, KindTask, KindHabit, KindGoal:
		return true
	}
	return false
}

// Origin records which build step produced an edge.
type Origin string

const (
	OriginRoot     Origin = "root"
	OriginExplicit Origin = "explicit"
	OriginKeyword  Origin = "keyword"
)

// Entity is a project-like record owned by an external collaborator.
type Entity struct {
	ID            string   `json:"id" yaml:"id" toml:"id"`
	Name          string   `json:"name,omitempty" yaml:"name,omitempty" toml:"name,omitempty"`
	Kind          Kind     `json:"kind,omitempty" yaml:"kind,omitempty" toml:"kind,omitempty"`
	Description   string   `json:"description,omitempty" yaml:"description,omitempty" toml:"description,omitempty"`
	ExplicitLinks []string `json:"explicit_links,omitempty" yaml:"explicit_links,omitempty" toml:"explicit_links,omitempty"`
}

// Label returns the display name, falling back to the id.
func (e Entity) Label() string {
	if e.Name != "" {
		return e.Name
	}
	return e.ID
}

// Node is a point in the layout.
type Node struct {
	ID    string  `json:"id"`
	Label string  `json:"label"`
	Kind  Kind    `json:"kind"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

// Edge is an undirected spring between two nodes. Source is the owning side.
type Edge struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Origin Origin `json:"origin"`
}

// Touches reports whether id is one of the edge's endpoints.
func (e Edge) Touches(id string) bool {
	return e.Source == id || e.Target == id
}

// Other returns the endpoint opposite id.
func (e Edge) Other(id string) string {
	if e.Source == id {
		return e.Target
	}
	return e.Source
}

// DedupePolicy controls whether parallel edges between the same pair survive.
type DedupePolicy string

const (
	// DedupeNone keeps every emitted edge; parallel edges add their spring force.
	DedupeNone DedupePolicy = "none"
	// DedupePairs keeps the first edge emitted for each unordered pair.
	DedupePairs DedupePolicy = "pairs"
)

// Valid reports whether p is a known policy. The empty policy means DedupeNone.
func (p DedupePolicy) Valid() bool {
	switch p {
	case "", DedupeNone, DedupePairs:
		return true
	}
	return false
}

// Options configures Build. Zero fields take their defaults, so Options{} builds with
// keyword links on and no deduplication.
type Options struct {
	Width     float64
	Height    float64
	Radius    float64
	RootID    string
	RootLabel string

	// NoKeywordLinks skips edges between entities that share a keyword.
	NoKeywordLinks bool
	Dedupe         DedupePolicy
}

// DefaultOptions returns the builder defaults: an 800x600 canvas, entities seeded on a
// circle of radius 200, keyword links on, no deduplication.
func DefaultOptions() Options {
	return Options{
		Width:     800,
		Height:    600,
		Radius:    200,
		RootID:    "root",
		RootLabel: "Projects",
		Dedupe:    DedupeNone,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Width <= 0 {
		o.Width = d.Width
	}
	if o.Height <= 0 {
		o.Height = d.Height
	}
	if o.Radius <= 0 {
		o.Radius = d.Radius
	}
	if o.RootID == "" {
		o.RootID = d.RootID
	}
	if o.RootLabel == "" {
		o.RootLabel = d.RootLabel
	}
	if o.Dedupe == "" || !o.Dedupe.Valid() {
		o.Dedupe = d.Dedupe
	}
	return o
}

// Graph is a node and edge set ready for simulation.
type Graph struct {
	RootID string `json:"root"`
	Nodes  []Node `json:"nodes"`
	Edges  []Edge `json:"edges"`
}

// Build converts entities into a graph. It never fails: dangling or self links are
// dropped, and entities with an empty, duplicate or root-colliding id are skipped.
func Build(entities []Entity, opts Options) *Graph {
	opts = opts.withDefaults()
	cx, cy := opts.Width/2, opts.Height/2

	kept := usable(entities, opts.RootID)

	g := &Graph{
		RootID: opts.RootID,
		Nodes:  make([]Node, 0, len(kept)+1),
		Edges:  make([]Edge, 0, len(kept)*2),
	}
	g.Nodes = append(g.Nodes, Node{ID: opts.RootID, Label: opts.RootLabel, Kind: KindRoot, X: cx, Y: cy})

	known := make(map[string]bool, len(kept))
	for _, e := range kept {
		known[e.ID] = true
	}

	n := float64(len(kept))
	for i, e := range kept {
		angle := float64(i) / n * 2 * math.Pi
		kind := e.Kind
		if !kind.Valid() || kind == KindRoot {
			kind = KindProject
		}
		g.Nodes = append(g.Nodes, Node{
			ID:    e.ID,
			Label: e.Label(),
			Kind:  kind,
			X:     cx + opts.Radius*math.Cos(angle),
			Y:     cy + opts.Radius*math.Sin(angle),
		})
	}

	seen := make(map[[2]string]bool)
	add := func(edge Edge) {
		if opts.Dedupe == DedupePairs {
			key := pairKey(edge.Source, edge.Target)
			if seen[key] {
				return
			}
			seen[key] = true
		}
		g.Edges = append(g.Edges, edge)
	}

	for _, e := range kept {
		add(Edge{Source: opts.RootID, Target: e.ID, Origin: OriginRoot})
	}

	for _, e := range kept {
		for _, link := range e.ExplicitLinks {
			if link == e.ID || !known[link] {
				continue
			}
			add(Edge{Source: e.ID, Target: link, Origin: OriginExplicit})
		}
	}

	if !opts.NoKeywordLinks {
		for _, p := range keywordPairs(kept) {
			add(Edge{Source: kept[p[0]].ID, Target: kept[p[1]].ID, Origin: OriginKeyword})
		}
	}

	return g
}

func usable(entities []Entity, rootID string) []Entity {
	out := make([]Entity, 0, len(entities))
	seen := make(map[string]bool, len(entities))
	for _, e := range entities {
		if e.ID == "" || e.ID == rootID || seen[e.ID] {
			continue
		}
		seen[e.ID] = true
		out = append(out, e)
	}
	return out
}

func pairKey(a, b string) [2]string {
	if a > b {
		a, b = b, a
	}
	return [2]string{a, b}
}

// Node returns the node with the given id.
func (g *Graph) Node(id string) (Node, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// Clone returns a deep copy of the graph.
func (g *Graph) Clone() *Graph {
	c := &Graph{RootID: g.RootID}
	c.Nodes = append([]Node(nil), g.Nodes...)
	c.Edges = append([]Edge(nil), g.Edges...)
	return c
}

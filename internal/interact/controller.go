// Package interact turns pointer input into engine calls and derives highlight state
// from the current selection.
package interact

import (
	"sync"

	"github.com/msalah0e/orbit/internal/graph"
	"github.com/msalah0e/orbit/internal/layout"
)

// Controller owns the selection for one engine. Drag implies selection; releasing a
// drag keeps it.
type Controller struct {
	engine *layout.Engine
	opts   graph.Options

	mu       sync.Mutex
	selected string
}

// New wraps engine. opts are the builder options used by Rebuild.
func New(engine *layout.Engine, opts graph.Options) *Controller {
	return &Controller{engine: engine, opts: opts}
}

// Engine returns the wrapped engine.
func (c *Controller) Engine() *layout.Engine {
	return c.engine
}

// BeginDrag marks id as dragged, selects it and wakes the engine. Unknown ids are a
// no-op.
func (c *Controller) BeginDrag(id string) bool {
	if !c.engine.SetDragged(id) {
		return false
	}
	c.mu.Lock()
	c.selected = id
	c.mu.Unlock()
	return true
}

// UpdateDragPosition moves the dragged node to (x, y). It returns false when id is not
// being dragged.
func (c *Controller) UpdateDragPosition(id string, x, y float64) bool {
	return c.engine.MoveDragged(id, x, y)
}

// EndDrag releases the dragged node. The engine keeps running until it settles.
func (c *Controller) EndDrag() {
	c.engine.ReleaseDrag()
}

// Select sets the selection without dragging.
func (c *Controller) Select(id string) bool {
	if !c.engine.HasNode(id) {
		return false
	}
	c.mu.Lock()
	c.selected = id
	c.mu.Unlock()
	return true
}

// ClearSelection drops the selection.
func (c *Controller) ClearSelection() {
	c.mu.Lock()
	c.selected = ""
	c.mu.Unlock()
}

// Selected returns the selected node id.
func (c *Controller) Selected() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selected, c.selected != ""
}

// IsEdgeActive reports whether edge touches the selected node.
func (c *Controller) IsEdgeActive(edge graph.Edge) bool {
	sel, ok := c.Selected()
	return ok && edge.Touches(sel)
}

// IsNodeConnected reports whether some edge joins id and the selected node.
func (c *Controller) IsNodeConnected(id string) bool {
	sel, ok := c.Selected()
	if !ok || id == sel {
		return false
	}
	for _, e := range c.engine.Edges() {
		if e.Touches(sel) && e.Other(sel) == id {
			return true
		}
	}
	return false
}

// ActiveEdges returns the indexes of edges touching the selected node.
func (c *Controller) ActiveEdges() []int {
	sel, ok := c.Selected()
	if !ok {
		return nil
	}
	return activeEdges(c.engine.Edges(), sel)
}

// ConnectedNodes returns the neighbors of the selected node in edge order, without
// repeats.
func (c *Controller) ConnectedNodes() []string {
	sel, ok := c.Selected()
	if !ok {
		return nil
	}
	return connectedNodes(c.engine.Edges(), sel)
}

// Highlight is the selection state resolved against one edge list.
type Highlight struct {
	Selected    string
	ActiveEdges []int
	Connected   []string
}

// HighlightFor resolves the selection against edges, typically taken from an engine
// View. A selection that touches none of them still reports its id.
func (c *Controller) HighlightFor(edges []graph.Edge) Highlight {
	sel, ok := c.Selected()
	if !ok {
		return Highlight{}
	}
	return Highlight{
		Selected:    sel,
		ActiveEdges: activeEdges(edges, sel),
		Connected:   connectedNodes(edges, sel),
	}
}

func activeEdges(edges []graph.Edge, sel string) []int {
	var out []int
	for i, e := range edges {
		if e.Touches(sel) {
			out = append(out, i)
		}
	}
	return out
}

func connectedNodes(edges []graph.Edge, sel string) []string {
	seen := map[string]bool{sel: true}
	var out []string
	for _, e := range edges {
		if !e.Touches(sel) {
			continue
		}
		other := e.Other(sel)
		if !seen[other] {
			seen[other] = true
			out = append(out, other)
		}
	}
	return out
}

// Rebuild builds a graph from entities and loads it, which resets velocities and any
// drag. A selection whose node is gone is cleared.
func (c *Controller) Rebuild(entities []graph.Entity) *graph.Graph {
	g := graph.Build(entities, c.opts)
	c.engine.Load(g)

	c.mu.Lock()
	if c.selected != "" && !c.engine.HasNode(c.selected) {
		c.selected = ""
	}
	c.mu.Unlock()
	return g
}

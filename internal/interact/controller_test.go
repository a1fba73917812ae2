package interact

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/msalah0e/orbit/internal/graph"
	"github.com/msalah0e/orbit/internal/layout"
)

var projects = []graph.Entity{
	{ID: "p1", Description: "uses [api]"},
	{ID: "p2", Description: "consumes [api]", ExplicitLinks: []string{"p1"}},
	{ID: "p3", Description: "[cli] tool"},
}

func newController(t *testing.T) (*Controller, *layout.ManualTicks) {
	t.Helper()
	ticks := &layout.ManualTicks{}
	c := New(layout.New(layout.DefaultParams(), layout.WithTicks(ticks)), graph.DefaultOptions())
	c.Rebuild(projects)
	return c, ticks
}

func settle(ticks *layout.ManualTicks) {
	for ticks.Fire() {
	}
}

func TestBeginDragSelectsAndWakes(t *testing.T) {
	c, ticks := newController(t)
	settle(ticks)
	if c.Engine().State() != layout.Idle {
		t.Fatal("expected idle before drag")
	}

	if !c.BeginDrag("p2") {
		t.Fatal("BeginDrag failed")
	}
	if sel, _ := c.Selected(); sel != "p2" {
		t.Errorf("drag should select, got %q", sel)
	}
	if c.Engine().State() != layout.Running {
		t.Error("drag should wake the engine")
	}
	if id, ok := c.Engine().Dragged(); !ok || id != "p2" {
		t.Errorf("expected p2 dragged, got %q", id)
	}
}

func TestBeginDragUnknownIsNoop(t *testing.T) {
	c, ticks := newController(t)
	settle(ticks)

	if c.BeginDrag("ghost") {
		t.Error("BeginDrag should reject unknown ids")
	}
	if _, ok := c.Selected(); ok {
		t.Error("selection should stay empty")
	}
	if c.Engine().State() != layout.Idle {
		t.Error("engine should stay idle")
	}
}

func TestUpdateDragPositionPinsNode(t *testing.T) {
	c, ticks := newController(t)
	c.BeginDrag("p1")

	if !c.UpdateDragPosition("p1", 10, 20) {
		t.Fatal("UpdateDragPosition failed")
	}
	ticks.Fire()
	ticks.Fire()

	for _, n := range c.Engine().Nodes() {
		if n.ID == "p1" && (n.X != 10 || n.Y != 20) {
			t.Errorf("dragged node drifted to (%v, %v)", n.X, n.Y)
		}
	}
	if v, _ := c.Engine().Velocity("p1"); v != (layout.Vec{}) {
		t.Errorf("velocity should be zero, got %+v", v)
	}
	if c.UpdateDragPosition("p2", 1, 1) {
		t.Error("only the dragged node may be moved")
	}
}

func TestEndDragKeepsSelection(t *testing.T) {
	c, ticks := newController(t)
	c.BeginDrag("p1")
	c.EndDrag()

	if _, ok := c.Engine().Dragged(); ok {
		t.Error("drag marker should be cleared")
	}
	if sel, _ := c.Selected(); sel != "p1" {
		t.Errorf("selection should survive the drag, got %q", sel)
	}
	if c.Engine().State() != layout.Running {
		t.Error("engine should keep running after release")
	}
	settle(ticks)
	if c.Engine().State() != layout.Idle {
		t.Error("engine should settle after release")
	}
}

func TestSelectWithoutDrag(t *testing.T) {
	c, ticks := newController(t)
	settle(ticks)

	if !c.Select("p3") {
		t.Fatal("Select failed")
	}
	if _, ok := c.Engine().Dragged(); ok {
		t.Error("select must not drag")
	}
	if c.Engine().State() != layout.Idle {
		t.Error("select must not wake the engine")
	}
	if c.Select("ghost") {
		t.Error("Select should reject unknown ids")
	}
	if sel, _ := c.Selected(); sel != "p3" {
		t.Errorf("failed select should keep previous selection, got %q", sel)
	}

	c.ClearSelection()
	if _, ok := c.Selected(); ok {
		t.Error("selection should be cleared")
	}
}

func TestHighlightQueries(t *testing.T) {
	c, _ := newController(t)
	c.Select("p1")

	if diff := cmp.Diff([]int{0, 3, 4}, c.ActiveEdges()); diff != "" {
		t.Errorf("active edges (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"root", "p2"}, c.ConnectedNodes()); diff != "" {
		t.Errorf("connected nodes (-want +got):\n%s", diff)
	}

	if !c.IsEdgeActive(graph.Edge{Source: "p2", Target: "p1"}) {
		t.Error("edge touching selection should be active")
	}
	if c.IsEdgeActive(graph.Edge{Source: "root", Target: "p3"}) {
		t.Error("edge away from selection should not be active")
	}
	if !c.IsNodeConnected("p2") || !c.IsNodeConnected("root") {
		t.Error("p2 and root should be connected to p1")
	}
	if c.IsNodeConnected("p3") {
		t.Error("p3 shares nothing with p1")
	}
	if c.IsNodeConnected("p1") {
		t.Error("the selected node is not connected to itself")
	}
}

func TestHighlightWithoutSelection(t *testing.T) {
	c, _ := newController(t)

	if c.ActiveEdges() != nil || c.ConnectedNodes() != nil {
		t.Error("no highlight without a selection")
	}
	if c.IsEdgeActive(graph.Edge{Source: "root", Target: "p1"}) {
		t.Error("no edge is active without a selection")
	}
	if c.IsNodeConnected("p1") {
		t.Error("no node is connected without a selection")
	}
}

func TestHighlightForUsesGivenEdges(t *testing.T) {
	c, _ := newController(t)
	if h := c.HighlightFor(c.Engine().View().Edges); h.Selected != "" || h.ActiveEdges != nil {
		t.Errorf("expected empty highlight, got %+v", h)
	}

	c.Select("p1")
	edges := c.Engine().View().Edges
	h := c.HighlightFor(edges)
	want := Highlight{Selected: "p1", ActiveEdges: []int{0, 3, 4}, Connected: []string{"root", "p2"}}
	if diff := cmp.Diff(want, h); diff != "" {
		t.Errorf("highlight (-want +got):\n%s", diff)
	}

	// Indexes refer to the slice passed in, not to whatever the engine holds now.
	h = c.HighlightFor(edges[3:])
	if diff := cmp.Diff([]int{0, 1}, h.ActiveEdges); diff != "" {
		t.Errorf("active edges of the sub-slice (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"p2"}, h.Connected); diff != "" {
		t.Errorf("connected nodes of the sub-slice (-want +got):\n%s", diff)
	}
}

func TestRebuildResetsEngine(t *testing.T) {
	c, ticks := newController(t)
	c.BeginDrag("p1")
	c.UpdateDragPosition("p1", 5, 5)
	ticks.Fire()

	g := c.Rebuild(projects)
	if _, ok := c.Engine().Dragged(); ok {
		t.Error("rebuild should clear the drag")
	}
	if diff := cmp.Diff(g.Nodes, c.Engine().Nodes()); diff != "" {
		t.Errorf("rebuild should restore seeded positions (-want +got):\n%s", diff)
	}
	if sel, _ := c.Selected(); sel != "p1" {
		t.Errorf("selection of a surviving node should be kept, got %q", sel)
	}
	if c.Engine().State() != layout.Running {
		t.Error("rebuild should start the engine")
	}
}

func TestRebuildDropsVanishedSelection(t *testing.T) {
	c, _ := newController(t)
	c.Select("p3")

	c.Rebuild(projects[:2])
	if _, ok := c.Selected(); ok {
		t.Error("selection of a removed node should be cleared")
	}
}

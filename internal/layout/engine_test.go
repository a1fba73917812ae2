package layout

import (
	"fmt"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/msalah0e/orbit/internal/graph"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func scenario() *graph.Graph {
	return graph.Build([]graph.Entity{
		{ID: "p1", Description: "uses [api]"},
		{ID: "p2", Description: "consumes [api]", ExplicitLinks: []string{"p1"}},
		{ID: "p3", Description: "[cli] tool"},
	}, graph.DefaultOptions())
}

// dashboard generates n projects sharing keywords round-robin, with an explicit
// link to the next project on every nth entity.
func dashboard(n, keywords, every int) *graph.Graph {
	entities := make([]graph.Entity, n)
	for i := range entities {
		e := graph.Entity{
			ID:          fmt.Sprintf("e%d", i),
			Description: fmt.Sprintf("project [k%d]", i%keywords),
		}
		if i%every == 0 {
			e.ExplicitLinks = []string{fmt.Sprintf("e%d", (i+1)%n)}
		}
		entities[i] = e
	}
	return graph.Build(entities, graph.DefaultOptions())
}

func position(t *testing.T, nodes []graph.Node, id string) Vec {
	t.Helper()
	for _, n := range nodes {
		if n.ID == id {
			return Vec{n.X, n.Y}
		}
	}
	t.Fatalf("node %s not found", id)
	return Vec{}
}

func TestLoadEmptyGraphStaysIdle(t *testing.T) {
	e := New(DefaultParams())
	e.Load(&graph.Graph{})

	if e.State() != Idle {
		t.Fatalf("expected idle, got %s", e.State())
	}
	if e.Reason() != ReasonEmpty {
		t.Errorf("expected reason %q, got %q", ReasonEmpty, e.Reason())
	}
	s := e.Settle()
	if s.Frames != 0 {
		t.Errorf("expected no frames, got %d", s.Frames)
	}
}

func TestRootOnlyGraphStaysIdle(t *testing.T) {
	ticks := &ManualTicks{}
	e := New(DefaultParams(), WithTicks(ticks))
	e.Load(graph.Build(nil, graph.DefaultOptions()))

	if e.State() != Idle {
		t.Fatalf("expected idle, got %s", e.State())
	}
	if ticks.Pending() != 0 {
		t.Errorf("expected nothing scheduled, got %d", ticks.Pending())
	}
}

func TestLoadStartsRunning(t *testing.T) {
	ticks := &ManualTicks{}
	e := New(DefaultParams(), WithTicks(ticks))
	e.Load(scenario())

	if e.State() != Running {
		t.Fatalf("expected running after load, got %s", e.State())
	}
	if ticks.Pending() != 1 {
		t.Errorf("expected one scheduled frame, got %d", ticks.Pending())
	}
}

func TestStartIsReentrant(t *testing.T) {
	ticks := &ManualTicks{}
	e := New(DefaultParams(), WithTicks(ticks))
	e.Load(scenario())

	e.Start()
	e.Start()
	if ticks.Pending() != 1 {
		t.Errorf("expected a single loop, got %d scheduled frames", ticks.Pending())
	}
}

func TestManualTicksDriveToIdle(t *testing.T) {
	ticks := &ManualTicks{}
	var frames []Frame
	e := New(DefaultParams(), WithTicks(ticks), WithFrameHook(func(f Frame) {
		frames = append(frames, f)
	}))
	e.Load(scenario())

	fired := 0
	for ticks.Fire() {
		fired++
		if fired > DefaultParams().MaxFrames {
			t.Fatal("loop exceeded frame cap")
		}
	}

	if e.State() != Idle {
		t.Fatalf("expected idle, got %s", e.State())
	}
	if len(frames) != fired {
		t.Errorf("expected %d hooked frames, got %d", fired, len(frames))
	}
	last := frames[len(frames)-1]
	if last.State != Idle || last.Reason == ReasonNone {
		t.Errorf("last frame should carry the stop transition, got %+v", last)
	}
	for i, f := range frames {
		if f.Index != i+1 {
			t.Fatalf("frame %d has index %d", i, f.Index)
		}
	}
}

func TestTickWhileIdleDoesNotStep(t *testing.T) {
	e := New(DefaultParams())
	g := scenario()
	e.Load(g)
	e.Settle()

	before := e.Nodes()
	f := e.Tick()
	if f.Index != 0 || f.State != Idle {
		t.Errorf("expected idle frame, got index %d state %s", f.Index, f.State)
	}
	if diff := cmp.Diff(before, e.Nodes()); diff != "" {
		t.Errorf("idle tick moved nodes (-before +after):\n%s", diff)
	}
}

func TestScenarioConvergesWithLinkedPairCloser(t *testing.T) {
	e := New(DefaultParams())
	e.Load(scenario())
	s := e.Settle()

	if s.Reason != ReasonConverged {
		t.Fatalf("expected convergence, got %q after %d frames", s.Reason, s.Frames)
	}
	nodes := e.Nodes()
	p1, p2, p3 := position(t, nodes, "p1"), position(t, nodes, "p2"), position(t, nodes, "p3")
	linked := p1.Sub(p2).Len()
	if linked >= p1.Sub(p3).Len() || linked >= p2.Sub(p3).Len() {
		t.Errorf("p1-p2 (%.1f) should be closer than p1-p3 (%.1f) and p2-p3 (%.1f)",
			linked, p1.Sub(p3).Len(), p2.Sub(p3).Len())
	}
}

func TestSettleHaltsWithinBudget(t *testing.T) {
	for _, n := range []int{5, 10, 25, 40, 50} {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			e := New(DefaultParams())
			e.Load(dashboard(n, 5, 3))
			s := e.Settle()

			if e.State() != Idle {
				t.Fatalf("expected idle, got %s", e.State())
			}
			if s.Frames > DefaultParams().MaxFrames {
				t.Errorf("ran %d frames, cap is %d", s.Frames, DefaultParams().MaxFrames)
			}
			if s.Reason != ReasonConverged && s.Reason != ReasonFrameCap {
				t.Errorf("unexpected stop reason %q", s.Reason)
			}
		})
	}
}

func TestMovementTailDecays(t *testing.T) {
	cases := []struct{ n, keywords, every int }{
		{10, 3, 3},
		{20, 5, 4},
		{30, 10, 5},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("n=%d", tc.n), func(t *testing.T) {
			var movement []float64
			e := New(DefaultParams(), WithFrameHook(func(f Frame) {
				movement = append(movement, f.Movement)
			}))
			e.Load(dashboard(tc.n, tc.keywords, tc.every))
			s := e.Settle()

			if s.Reason != ReasonConverged {
				t.Fatalf("expected convergence, got %q after %d frames", s.Reason, s.Frames)
			}
			if s.Movement >= DefaultParams().StabilityThreshold {
				t.Errorf("final movement %.3f not below threshold", s.Movement)
			}

			w := 10
			if len(movement) < 2*w {
				w = len(movement) / 2
			}
			tail := maxOf(movement[len(movement)-w:])
			earlier := maxOf(movement[len(movement)-2*w : len(movement)-w])
			if tail > earlier+1e-6 {
				t.Errorf("movement envelope grew in the tail: %.4f > %.4f", tail, earlier)
			}
		})
	}
}

func maxOf(xs []float64) float64 {
	m := math.Inf(-1)
	for _, x := range xs {
		m = math.Max(m, x)
	}
	return m
}

func TestFrameCap(t *testing.T) {
	p := DefaultParams()
	p.MaxFrames = 3
	p.StabilityThreshold = 0
	e := New(p)
	e.Load(scenario())
	s := e.Settle()

	if s.Reason != ReasonFrameCap {
		t.Fatalf("expected frame cap, got %q", s.Reason)
	}
	if s.Frames != 3 {
		t.Errorf("expected 3 frames, got %d", s.Frames)
	}
}

func TestDraggedNodeIgnoresPhysics(t *testing.T) {
	e := New(DefaultParams())
	e.Load(scenario())

	if !e.SetDragged("p1") {
		t.Fatal("SetDragged failed for known node")
	}
	if !e.MoveDragged("p1", 10, 20) {
		t.Fatal("MoveDragged failed for dragged node")
	}
	before := e.Nodes()
	e.Tick()
	after := e.Nodes()

	if got := position(t, after, "p1"); got != (Vec{10, 20}) {
		t.Errorf("dragged node moved to %+v", got)
	}
	if position(t, before, "p2") == position(t, after, "p2") {
		t.Error("other nodes should react while p1 is dragged")
	}
	if v, _ := e.Velocity("p1"); v != (Vec{}) {
		t.Errorf("dragged node velocity should stay zero, got %+v", v)
	}
}

func TestDragKeepsLoopRunning(t *testing.T) {
	p := DefaultParams()
	p.StabilityThreshold = math.Inf(1)
	e := New(p)
	e.Load(scenario())
	e.SetDragged("p3")

	e.Tick()
	if e.State() != Running {
		t.Fatal("a dragged node must keep the loop running")
	}

	e.ReleaseDrag()
	e.Tick()
	if e.State() != Idle || e.Reason() != ReasonConverged {
		t.Errorf("expected convergence after release, got %s (%q)", e.State(), e.Reason())
	}
}

func TestDragRestartsIdleEngine(t *testing.T) {
	ticks := &ManualTicks{}
	e := New(DefaultParams(), WithTicks(ticks))
	e.Load(scenario())
	for ticks.Fire() {
	}
	if e.State() != Idle {
		t.Fatal("expected idle before drag")
	}

	e.SetDragged("p2")
	if e.State() != Running {
		t.Fatal("drag should restart the loop")
	}
	if e.Frames() != 0 {
		t.Errorf("restart should reset frame budget, got %d", e.Frames())
	}
	if ticks.Pending() != 1 {
		t.Errorf("expected one scheduled frame, got %d", ticks.Pending())
	}
}

func TestMoveDraggedRestartsIdleEngine(t *testing.T) {
	p := DefaultParams()
	p.MaxFrames = 1
	e := New(p)
	e.Load(scenario())
	e.SetDragged("p2")
	e.Tick()
	if e.State() != Idle || e.Reason() != ReasonFrameCap {
		t.Fatalf("expected frame cap, got %s (%q)", e.State(), e.Reason())
	}

	e.MoveDragged("p2", 50, 50)
	if e.State() != Running {
		t.Error("moving the dragged node should restart an idle loop")
	}
}

func TestDragUnknownNodeIsNoop(t *testing.T) {
	e := New(DefaultParams())
	e.Load(scenario())

	if e.SetDragged("ghost") {
		t.Error("SetDragged should reject unknown ids")
	}
	if _, ok := e.Dragged(); ok {
		t.Error("no node should be dragged")
	}
	if e.MoveDragged("p1", 1, 1) {
		t.Error("MoveDragged should reject a node that is not dragged")
	}
}

func TestTeardownCancelsPendingFrame(t *testing.T) {
	ticks := &ManualTicks{}
	e := New(DefaultParams(), WithTicks(ticks))
	e.Load(scenario())
	ticks.Fire()

	e.Teardown()
	if e.State() != Idle || e.Reason() != ReasonTeardown {
		t.Errorf("expected teardown idle, got %s (%q)", e.State(), e.Reason())
	}
	if ticks.Pending() != 0 {
		t.Errorf("expected pending frame cancelled, got %d", ticks.Pending())
	}
	before := e.Nodes()
	if ticks.Fire() {
		t.Error("no callback should fire after teardown")
	}
	if diff := cmp.Diff(before, e.Nodes()); diff != "" {
		t.Errorf("nodes changed after teardown:\n%s", diff)
	}
}

func TestStaleCallbackIsDiscarded(t *testing.T) {
	var stale func()
	e := New(DefaultParams(), WithTicks(scheduleFunc(func(fn func()) func() {
		stale = fn
		return func() {}
	})))
	e.Load(scenario())
	captured := stale

	e.Load(scenario())
	before := e.Nodes()
	captured()
	if diff := cmp.Diff(before, e.Nodes()); diff != "" {
		t.Errorf("callback from a previous load stepped the new graph:\n%s", diff)
	}
}

type scheduleFunc func(fn func()) func()

func (f scheduleFunc) Schedule(fn func()) func() { return f(fn) }

func TestReloadResetsState(t *testing.T) {
	g := scenario()
	e := New(DefaultParams())
	e.Load(g)
	e.Settle()

	e.Load(g)
	if diff := cmp.Diff(g.Nodes, e.Nodes()); diff != "" {
		t.Errorf("reload should restore initial positions (-want +got):\n%s", diff)
	}
	for _, n := range g.Nodes {
		if v, _ := e.Velocity(n.ID); v != (Vec{}) {
			t.Errorf("velocity of %s not reset: %+v", n.ID, v)
		}
	}

	fresh := New(DefaultParams())
	fresh.Load(g)
	if diff := cmp.Diff(fresh.Tick().Nodes, e.Tick().Nodes); diff != "" {
		t.Errorf("reloaded engine diverges from a fresh one:\n%s", diff)
	}
}

func TestVelocityClamp(t *testing.T) {
	p := DefaultParams()
	p.MaxVelocity = 1
	e := New(p)
	g := scenario()
	e.Load(g)
	f := e.Tick()

	for i, n := range f.Nodes {
		moved := Vec{n.X, n.Y}.Sub(Vec{g.Nodes[i].X, g.Nodes[i].Y}).Len()
		if moved > 1+1e-9 {
			t.Errorf("node %s moved %.4f, clamp is 1", n.ID, moved)
		}
	}
}

func TestCoincidentNodesSeparate(t *testing.T) {
	g := &graph.Graph{
		RootID: "a",
		Nodes:  []graph.Node{{ID: "a", X: 400, Y: 300}, {ID: "b", X: 400, Y: 300}},
	}
	e := New(DefaultParams())
	e.Load(g)
	f := e.Tick()

	if f.Nodes[0].X >= f.Nodes[1].X {
		t.Errorf("coincident nodes should split along x, got %v and %v", f.Nodes[0].X, f.Nodes[1].X)
	}
}

func TestPublishedNodesAreCopies(t *testing.T) {
	e := New(DefaultParams())
	e.Load(scenario())
	nodes := e.Nodes()
	nodes[1].X = -999

	if e.Nodes()[1].X == -999 {
		t.Error("Nodes must return a copy")
	}
}

func TestSnapshot(t *testing.T) {
	e := New(DefaultParams())
	g := scenario()
	e.Load(g)
	e.Settle()

	snap := e.Snapshot()
	if snap.RootID != "root" || len(snap.Nodes) != len(g.Nodes) || len(snap.Edges) != len(g.Edges) {
		t.Errorf("unexpected snapshot: %+v", snap)
	}
}

func TestViewDescribesOneFrame(t *testing.T) {
	ticks := &ManualTicks{}
	e := New(DefaultParams(), WithTicks(ticks))
	e.Load(scenario())
	ticks.Fire()
	f := e.Tick()

	v := e.View()
	if v.Frame != f.Index || v.Movement != f.Movement || v.State != f.State {
		t.Errorf("view %d/%v/%s does not match frame %d/%v/%s",
			v.Frame, v.Movement, v.State, f.Index, f.Movement, f.State)
	}
	if diff := cmp.Diff(f.Nodes, v.Nodes); diff != "" {
		t.Errorf("view nodes (-frame +view):\n%s", diff)
	}
	if len(v.Edges) != 5 {
		t.Errorf("expected 5 edges, got %d", len(v.Edges))
	}

	e.Settle()
	v = e.View()
	if v.State != Idle || v.Reason != ReasonConverged || v.Frame != e.Frames() {
		t.Errorf("unexpected settled view: frame %d state %s reason %q", v.Frame, v.State, v.Reason)
	}
	v.Nodes[1].X = -999
	if e.Nodes()[1].X == -999 {
		t.Error("View must return copies")
	}
}

func TestLogsTransitions(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	e := New(DefaultParams(), WithLogger(zap.New(core)))
	e.Load(scenario())
	e.Settle()

	if logs.FilterMessage("simulation started").Len() != 1 {
		t.Error("expected a start entry")
	}
	idle := logs.FilterMessage("simulation idle").All()
	if len(idle) != 1 {
		t.Fatalf("expected one idle entry, got %d", len(idle))
	}
	if got := idle[0].ContextMap()["reason"]; got != string(ReasonConverged) {
		t.Errorf("expected reason converged, got %v", got)
	}
}

func TestParamsValidate(t *testing.T) {
	if err := DefaultParams().Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}

	bad := []func(*Params){
		func(p *Params) { p.Width = 0 },
		func(p *Params) { p.Friction = 1 },
		func(p *Params) { p.MaxVelocity = 0 },
		func(p *Params) { p.MaxFrames = 0 },
		func(p *Params) { p.StabilityThreshold = -1 },
		func(p *Params) { p.Repulsion = -5 },
	}
	for i, mutate := range bad {
		p := DefaultParams()
		mutate(&p)
		if err := p.Validate(); err == nil {
			t.Errorf("case %d: expected validation error", i)
		}
	}
}

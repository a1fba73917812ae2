// Package layout runs the force-directed simulation that settles a project graph.
//
// An Engine owns one graph instance: node positions, velocities, the drag marker and the
// frame loop. Each frame reads the positions published by the previous frame and
// publishes a fresh node array, so readers never observe a half-updated frame.
package layout

import (
	"math"
	"sync"

	"github.com/msalah0e/orbit/internal/graph"
	"go.uber.org/zap"
)

// State is the loop state.
type State int

const (
	Idle State = iota
	Running
)

func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "idle"
}

// StopReason says why the loop went idle.
type StopReason string

const (
	ReasonNone      StopReason = ""
	ReasonConverged StopReason = "converged"
	ReasonFrameCap  StopReason = "frame-cap"
	ReasonTeardown  StopReason = "teardown"
	ReasonEmpty     StopReason = "empty"
)

// Frame is the result of one physics step.
type Frame struct {
	Index    int          `json:"frame"`
	Movement float64      `json:"movement"`
	State    State        `json:"-"`
	Reason   StopReason   `json:"reason,omitempty"`
	Nodes    []graph.Node `json:"nodes"`
}

// Summary describes a finished run.
type Summary struct {
	Frames   int        `json:"frames"`
	Reason   StopReason `json:"reason"`
	Movement float64    `json:"movement"`
}

// Option configures an Engine.
type Option func(*Engine)

// WithTicks drives the loop from a tick source. Without one the caller steps frames
// with Tick or Settle.
func WithTicks(ts TickSource) Option {
	return func(e *Engine) { e.ticks = ts }
}

// WithLogger sets the logger for loop transitions.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithFrameHook registers fn to receive every frame. It runs outside the engine lock
// and may call back into the engine.
func WithFrameHook(fn func(Frame)) Option {
	return func(e *Engine) { e.onFrame = fn }
}

// Engine is a simulation context for one graph.
type Engine struct {
	mu      sync.Mutex
	params  Params
	ticks   TickSource
	logger  *zap.Logger
	onFrame func(Frame)

	rootID string
	nodes  []graph.Node
	edges  []graph.Edge
	index  map[string]int
	adj    [][]int
	vel    []Vec

	state    State
	frames   int
	movement float64
	reason   StopReason
	dragged  int

	gen    uint64
	cancel func()
}

// New creates an idle engine with no graph loaded.
func New(params Params, opts ...Option) *Engine {
	e := &Engine{
		params:  params,
		logger:  zap.NewNop(),
		index:   make(map[string]int),
		dragged: -1,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Params returns the engine's coefficients.
func (e *Engine) Params() Params {
	return e.params
}

// Load replaces the graph, resets velocities and the drag marker, and starts the loop.
func (e *Engine) Load(g *graph.Graph) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.cancelLocked()
	e.gen++

	e.rootID = g.RootID
	e.nodes = append([]graph.Node(nil), g.Nodes...)
	e.edges = append([]graph.Edge(nil), g.Edges...)
	e.index = make(map[string]int, len(e.nodes))
	for i, n := range e.nodes {
		e.index[n.ID] = i
	}
	e.adj = make([][]int, len(e.nodes))
	for _, edge := range e.edges {
		s, okS := e.index[edge.Source]
		t, okT := e.index[edge.Target]
		if !okS || !okT || s == t {
			continue
		}
		e.adj[s] = append(e.adj[s], t)
		e.adj[t] = append(e.adj[t], s)
	}
	e.vel = make([]Vec, len(e.nodes))
	e.dragged = -1
	e.state = Idle
	e.frames = 0
	e.movement = 0
	e.reason = ReasonNone

	if e.beginLocked() {
		e.scheduleLocked()
	}
}

// Start enters Running. It is a no-op while already running.
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.beginLocked() {
		e.scheduleLocked()
	}
}

// beginLocked moves Idle to Running with a fresh frame budget. It reports whether the
// state changed.
func (e *Engine) beginLocked() bool {
	if e.state == Running {
		return false
	}
	if len(e.nodes) < 2 {
		e.reason = ReasonEmpty
		return false
	}
	e.state = Running
	e.frames = 0
	e.reason = ReasonNone
	e.logger.Debug("simulation started",
		zap.Int("nodes", len(e.nodes)),
		zap.Int("edges", len(e.edges)))
	return true
}

func (e *Engine) scheduleLocked() {
	if e.ticks == nil {
		return
	}
	gen := e.gen
	e.cancel = e.ticks.Schedule(func() { e.onTick(gen) })
}

func (e *Engine) cancelLocked() {
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
}

func (e *Engine) onTick(gen uint64) {
	e.mu.Lock()
	if gen != e.gen || e.state != Running {
		e.mu.Unlock()
		return
	}
	e.cancel = nil
	f := e.tickLocked()
	if e.state == Running {
		e.scheduleLocked()
	}
	hook := e.onFrame
	e.mu.Unlock()

	if hook != nil {
		hook(f)
	}
}

// Tick runs one frame if the engine is running and returns it. While idle it returns
// the current positions without stepping.
func (e *Engine) Tick() Frame {
	e.mu.Lock()
	f := e.tickLocked()
	hook := e.onFrame
	e.mu.Unlock()

	if hook != nil && f.Index > 0 {
		hook(f)
	}
	return f
}

func (e *Engine) tickLocked() Frame {
	if e.state != Running {
		return Frame{State: Idle, Reason: e.reason, Nodes: e.copyNodes()}
	}

	e.frames++
	e.movement = e.step()

	reason := ReasonNone
	switch {
	case e.movement < e.params.StabilityThreshold && e.dragged < 0:
		reason = ReasonConverged
	case e.frames >= e.params.MaxFrames:
		reason = ReasonFrameCap
	}
	if reason != ReasonNone {
		e.stopLocked(reason)
	}

	return Frame{
		Index:    e.frames,
		Movement: e.movement,
		State:    e.state,
		Reason:   reason,
		Nodes:    e.copyNodes(),
	}
}

func (e *Engine) stopLocked(reason StopReason) {
	e.state = Idle
	e.reason = reason
	e.logger.Debug("simulation idle",
		zap.String("reason", string(reason)),
		zap.Int("frames", e.frames),
		zap.Float64("movement", e.movement))
}

// step integrates one frame and returns the total movement. Forces are applied in a
// fixed order: gravity, repulsion, springs, then damping and the velocity clamp act on
// the accumulated velocity.
func (e *Engine) step() float64 {
	p := e.params
	prev := e.nodes
	next := append([]graph.Node(nil), prev...)
	center := p.Center()
	total := 0.0

	for i := range prev {
		if i == e.dragged {
			continue
		}
		pos := Vec{prev[i].X, prev[i].Y}
		v := e.vel[i]

		v = v.Add(center.Sub(pos).Mul(p.CenterGravity))

		for j := range prev {
			if j == i {
				continue
			}
			d := pos.Sub(Vec{prev[j].X, prev[j].Y})
			distSq := d.LenSq()
			var dir Vec
			if distSq == 0 {
				dir = separation(i, j)
			} else {
				dir = d.Mul(1 / math.Sqrt(distSq))
			}
			v = v.Add(dir.Mul(p.Repulsion / (distSq + 1)))
		}

		for _, j := range e.adj[i] {
			d := Vec{prev[j].X, prev[j].Y}.Sub(pos)
			dist := d.Len()
			if dist == 0 {
				continue
			}
			v = v.Add(d.Mul((dist - p.RestLength) / dist * p.Spring))
		}

		v = v.Mul(p.Friction).Clamp(p.MaxVelocity)

		e.vel[i] = v
		next[i].X += v.X
		next[i].Y += v.Y
		total += v.Manhattan()
	}

	e.nodes = next
	return total
}

// separation picks a direction for two coincident nodes so they push apart along
// opposite signs of the x axis.
func separation(i, j int) Vec {
	if i < j {
		return Vec{-1, 0}
	}
	return Vec{1, 0}
}

// Settle cancels any scheduled frame and steps synchronously until the engine is idle.
func (e *Engine) Settle() Summary {
	e.mu.Lock()
	e.cancelLocked()
	e.gen++
	e.beginLocked()
	e.mu.Unlock()

	for {
		e.mu.Lock()
		if e.state != Running {
			s := Summary{Frames: e.frames, Reason: e.reason, Movement: e.movement}
			e.mu.Unlock()
			return s
		}
		f := e.tickLocked()
		hook := e.onFrame
		e.mu.Unlock()

		if hook != nil {
			hook(f)
		}
	}
}

// Teardown stops the loop and drops any pending scheduled frame.
func (e *Engine) Teardown() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.cancelLocked()
	e.gen++
	e.dragged = -1
	if e.state == Running {
		e.stopLocked(ReasonTeardown)
	}
}

// ─── Drag ───

// SetDragged marks id as the dragged node and starts the loop. Unknown ids are ignored.
func (e *Engine) SetDragged(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	i, ok := e.index[id]
	if !ok {
		return false
	}
	e.dragged = i
	e.vel[i] = Vec{}
	if e.beginLocked() {
		e.scheduleLocked()
	}
	return true
}

// MoveDragged places the dragged node at (x, y) and zeroes its velocity. It returns
// false when id is not the dragged node. An idle engine restarts so the rest of the
// graph keeps reacting to a long drag.
func (e *Engine) MoveDragged(id string, x, y float64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.dragged < 0 || e.nodes[e.dragged].ID != id {
		return false
	}
	e.nodes[e.dragged].X = x
	e.nodes[e.dragged].Y = y
	e.vel[e.dragged] = Vec{}
	if e.beginLocked() {
		e.scheduleLocked()
	}
	return true
}

// ReleaseDrag clears the drag marker. The loop keeps running until it settles.
func (e *Engine) ReleaseDrag() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.dragged = -1
}

// Dragged returns the dragged node id, if any.
func (e *Engine) Dragged() (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.dragged < 0 {
		return "", false
	}
	return e.nodes[e.dragged].ID, true
}

// ─── Read model ───

func (e *Engine) copyNodes() []graph.Node {
	return append([]graph.Node(nil), e.nodes...)
}

// Nodes returns a copy of the last published positions.
func (e *Engine) Nodes() []graph.Node {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.copyNodes()
}

// Edges returns a copy of the loaded edges.
func (e *Engine) Edges() []graph.Edge {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]graph.Edge(nil), e.edges...)
}

// Snapshot returns the loaded graph at its current positions.
func (e *Engine) Snapshot() *graph.Graph {
	e.mu.Lock()
	defer e.mu.Unlock()
	return &graph.Graph{
		RootID: e.rootID,
		Nodes:  e.copyNodes(),
		Edges:  append([]graph.Edge(nil), e.edges...),
	}
}

// View is the read model at one instant.
type View struct {
	Frame    int
	Movement float64
	State    State
	Reason   StopReason
	Nodes    []graph.Node
	Edges    []graph.Edge
}

// View returns the loop state, positions and edges under a single lock, so all fields
// describe the same frame.
func (e *Engine) View() View {
	e.mu.Lock()
	defer e.mu.Unlock()
	return View{
		Frame:    e.frames,
		Movement: e.movement,
		State:    e.state,
		Reason:   e.reason,
		Nodes:    e.copyNodes(),
		Edges:    append([]graph.Edge(nil), e.edges...),
	}
}

// HasNode reports whether id is in the loaded graph.
func (e *Engine) HasNode(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.index[id]
	return ok
}

// Velocity returns the stored velocity of id.
func (e *Engine) Velocity(id string) (Vec, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	i, ok := e.index[id]
	if !ok {
		return Vec{}, false
	}
	return e.vel[i], true
}

// State returns the loop state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Frames returns the frames run since the loop last started.
func (e *Engine) Frames() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.frames
}

// Reason returns why the loop last went idle.
func (e *Engine) Reason() StopReason {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.reason
}

package serve

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/msalah0e/orbit/internal/graph"
	"github.com/msalah0e/orbit/internal/interact"
	"github.com/msalah0e/orbit/internal/layout"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Message types sent by the client.
const (
	MsgDragBegin = "drag_begin"
	MsgDragMove  = "drag_move"
	MsgDragEnd   = "drag_end"
	MsgSelect    = "select"
	MsgClear     = "clear"
	MsgRebuild   = "rebuild"
)

// ClientMessage is one input event.
type ClientMessage struct {
	Type string  `json:"type"`
	ID   string  `json:"id,omitempty"`
	X    float64 `json:"x,omitempty"`
	Y    float64 `json:"y,omitempty"`
}

// FrameMessage publishes the layout and highlight state.
type FrameMessage struct {
	Type        string       `json:"type"`
	Session     string       `json:"session"`
	Frame       int          `json:"frame"`
	State       string       `json:"state"`
	Reason      string       `json:"reason,omitempty"`
	Movement    float64      `json:"movement"`
	Nodes       []graph.Node `json:"nodes"`
	Edges       []graph.Edge `json:"edges"`
	Selected    string       `json:"selected,omitempty"`
	ActiveEdges []int        `json:"active_edges"`
	Connected   []string     `json:"connected"`
}

// ErrorMessage reports a rejected client message. The session stays open.
type ErrorMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

const maxMessageSize = 4096

// Session is one live connection.
type Session struct {
	ID string

	conn   *websocket.Conn
	source Source
	ctrl   *interact.Controller
	logger *zap.Logger

	notify chan struct{}
	errs   chan string
}

func newSession(conn *websocket.Conn, source Source, opts Options, logger *zap.Logger) *Session {
	s := &Session{
		ID:     uuid.NewString(),
		conn:   conn,
		source: source,
		notify: make(chan struct{}, 1),
		errs:   make(chan string, 16),
	}
	s.logger = logger.With(zap.String("session", s.ID))
	engine := layout.New(opts.Params,
		layout.WithTicks(layout.NewTimerTicks(opts.FrameInterval)),
		layout.WithLogger(s.logger),
		layout.WithFrameHook(s.onFrame))
	s.ctrl = interact.New(engine, opts.Graph)
	return s
}

func (s *Session) onFrame(layout.Frame) {
	s.wake()
}

// wake asks the writer for a fresh frame message. Pending wakes coalesce.
func (s *Session) wake() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *Session) fail(msg string) {
	select {
	case s.errs <- msg:
	default:
	}
}

func (s *Session) rebuild(entities []graph.Entity) {
	s.ctrl.Rebuild(entities)
}

// run drives the session until the client disconnects or ctx ends.
func (s *Session) run(ctx context.Context, entities []graph.Entity) error {
	defer s.ctrl.Engine().Teardown()

	s.rebuild(entities)
	s.wake()

	s.conn.SetReadLimit(maxMessageSize)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.readLoop() })
	g.Go(func() error { return s.writeLoop(gctx) })
	g.Go(func() error {
		<-gctx.Done()
		s.conn.Close()
		return nil
	})

	err := g.Wait()
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return nil
	}
	return err
}

func (s *Session) readLoop() error {
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return err
		}
		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.fail(fmt.Sprintf("bad message: %v", err))
			continue
		}
		if err := s.apply(msg); err != nil {
			s.fail(err.Error())
		}
		s.wake()
	}
}

// apply maps one client message onto the controller.
func (s *Session) apply(msg ClientMessage) error {
	switch msg.Type {
	case MsgDragBegin:
		s.ctrl.BeginDrag(msg.ID)
	case MsgDragMove:
		s.ctrl.UpdateDragPosition(msg.ID, msg.X, msg.Y)
	case MsgDragEnd:
		s.ctrl.EndDrag()
	case MsgSelect:
		s.ctrl.Select(msg.ID)
	case MsgClear:
		s.ctrl.ClearSelection()
	case MsgRebuild:
		entities, err := s.source()
		if err != nil {
			s.logger.Warn("rebuild failed", zap.Error(err))
			return fmt.Errorf("rebuild: %w", err)
		}
		s.rebuild(entities)
	default:
		return fmt.Errorf("unknown message type %q", msg.Type)
	}
	return nil
}

func (s *Session) writeLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-s.errs:
			if err := writeJSON(s.conn, ErrorMessage{Type: "error", Error: msg}); err != nil {
				return err
			}
		case <-s.notify:
			if err := writeJSON(s.conn, s.frameMessage()); err != nil {
				return err
			}
		}
	}
}

// frameMessage builds one message from a single engine view. The highlight is
// resolved against that view's edges.
func (s *Session) frameMessage() FrameMessage {
	v := s.ctrl.Engine().View()
	h := s.ctrl.HighlightFor(v.Edges)
	return FrameMessage{
		Type:        "frame",
		Session:     s.ID,
		Frame:       v.Frame,
		State:       v.State.String(),
		Reason:      string(v.Reason),
		Movement:    v.Movement,
		Nodes:       v.Nodes,
		Edges:       nonNilEdges(v.Edges),
		Selected:    h.Selected,
		ActiveEdges: nonNilInts(h.ActiveEdges),
		Connected:   nonNilStrings(h.Connected),
	}
}

func nonNilInts(s []int) []int {
	if s == nil {
		return []int{}
	}
	return s
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilEdges(s []graph.Edge) []graph.Edge {
	if s == nil {
		return []graph.Edge{}
	}
	return s
}

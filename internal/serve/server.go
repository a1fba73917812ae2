// Package serve runs live layout sessions over websockets. Each connection owns one
// engine and one interaction controller; closing the connection tears both down.
package serve

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/msalah0e/orbit/internal/graph"
	"github.com/msalah0e/orbit/internal/layout"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

//go:embed index.html
var indexHTML []byte

// Source returns the current entity collection. It is called when a session opens and
// on every rebuild request.
type Source func() ([]graph.Entity, error)

// Options configures a Server.
type Options struct {
	Params        layout.Params
	Graph         graph.Options
	FrameInterval time.Duration
	Logger        *zap.Logger
}

// Server serves the viewer page, static exports and live sessions.
type Server struct {
	source   Source
	opts     Options
	logger   *zap.Logger
	upgrader websocket.Upgrader

	mu       sync.Mutex
	sessions map[string]*Session
	closing  bool
	active   sync.WaitGroup
}

// New creates a server reading entities from source.
func New(source Source, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		source: source,
		opts:   opts,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 16384,
		},
		sessions: make(map[string]*Session),
	}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/ws", s.handleSession)
	mux.HandleFunc("/graph.json", s.handleGraphJSON)
	mux.HandleFunc("/graph.svg", s.handleGraphSVG)
	return mux
}

// Sessions returns the number of open sessions.
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// ListenAndServe listens on addr and serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down. Live sessions
// are cancelled through the request context and Serve returns once all of them have
// closed.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return gctx },
	}

	g.Go(func() error {
		s.logger.Info("listening", zap.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.mu.Lock()
		s.closing = true
		s.mu.Unlock()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		s.active.Wait()
		return err
	})
	return g.Wait()
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexHTML)
}

// settled builds the current graph and runs it to rest.
func (s *Server) settled() (*graph.Graph, layout.Summary, error) {
	entities, err := s.source()
	if err != nil {
		return nil, layout.Summary{}, err
	}
	e := layout.New(s.opts.Params, layout.WithLogger(s.logger))
	e.Load(graph.Build(entities, s.opts.Graph))
	sum := e.Settle()
	return e.Snapshot(), sum, nil
}

func (s *Server) handleGraphJSON(w http.ResponseWriter, r *http.Request) {
	g, _, err := s.settled()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	data, err := g.ExportJSON()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func (s *Server) handleGraphSVG(w http.ResponseWriter, r *http.Request) {
	g, _, err := s.settled()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Write([]byte(g.ExportSVG(r.URL.Query().Get("select"))))
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	entities, err := s.source()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	}
	s.active.Add(1)
	s.mu.Unlock()
	defer s.active.Done()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	sess := newSession(conn, s.source, s.opts, s.logger)
	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.sessions, sess.ID)
		s.mu.Unlock()
	}()

	s.logger.Info("session opened", zap.String("session", sess.ID), zap.String("remote", r.RemoteAddr))
	err = sess.run(r.Context(), entities)
	s.logger.Info("session closed", zap.String("session", sess.ID), zap.Error(err))
}

func writeJSON(conn *websocket.Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, data)
}

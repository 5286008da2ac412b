package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/kapu/famescale/internal/adapter"
	"github.com/kapu/famescale/internal/constants"
	"github.com/kapu/famescale/internal/fame"
	"go.uber.org/zap"
)

// Message is the envelope pushed over the WebSocket.
type Message struct {
	Type string                `json:"type"`
	Data *adapter.SnapshotView `json:"data"`
}

const MessageTypeSnapshot = "snapshot"

// Refresher runs one load cycle.
type Refresher interface {
	Refresh(ctx context.Context) *fame.Snapshot
}

// Server exposes the current fame snapshot over HTTP and WebSocket.
type Server struct {
	refresher Refresher
	hub       *Hub
	logger    *zap.Logger
	router    chi.Router

	mu       sync.RWMutex
	snapshot *fame.Snapshot

	refreshMu sync.Mutex
}

func New(refresher Refresher, logger *zap.Logger) *Server {
	s := &Server{
		refresher: refresher,
		hub:       NewHub(logger),
		logger:    logger,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/fame", s.handleFame)
		r.Post("/refresh", s.handleRefresh)
		r.Get("/characters", s.handleCharacters)
		r.Get("/characters/{name}", s.handleCharacter)
	})

	r.Get("/ws", s.handleWebSocket)
	return r
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Snapshot returns the most recent snapshot, or nil before the first cycle.
func (s *Server) Snapshot() *fame.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// Refresh runs one cycle, publishes the result and pushes it to WebSocket
// clients. Concurrent calls are serialized.
func (s *Server) Refresh(ctx context.Context) *fame.Snapshot {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	snap := s.refresher.Refresh(ctx)

	s.mu.Lock()
	s.snapshot = snap
	s.mu.Unlock()

	s.hub.Broadcast(&Message{Type: MessageTypeSnapshot, Data: adapter.NewSnapshotView(snap)})

	s.logger.Info("Fame snapshot refreshed",
		zap.Int("records", len(snap.Records)),
		zap.Bool("stale", snap.Stale),
		zap.Int("ws_clients", s.hub.ClientCount()),
	)
	return snap
}

// Run serves on addr until ctx is cancelled, refreshing every interval
// (zero disables periodic refresh).
func (s *Server) Run(ctx context.Context, addr string, interval time.Duration) error {
	s.Refresh(ctx)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: constants.ServerConfig.ReadHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", zap.String("addr", addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	var refreshC <-chan time.Time
	if interval > 0 {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		refreshC = ticker.C
	}

	pingTicker := time.NewTicker(constants.ServerConfig.PingInterval)
	defer pingTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Shutting down HTTP server")
			s.hub.Close()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ServerConfig.ShutdownTimeout)
			defer cancel()
			return httpServer.Shutdown(shutdownCtx)
		case err, ok := <-errCh:
			if ok && err != nil {
				s.hub.Close()
				return err
			}
			return nil
		case <-refreshC:
			s.Refresh(ctx)
		case <-pingTicker.C:
			s.hub.Ping()
		}
	}
}

// current returns the published snapshot, loading one on first use. Loads
// started by a request outlive the client's disconnect.
func (s *Server) current(ctx context.Context) *fame.Snapshot {
	if snap := s.Snapshot(); snap != nil {
		return snap
	}
	return s.Refresh(context.WithoutCancel(ctx))
}

func (s *Server) handleFame(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, adapter.NewSnapshotView(s.current(r.Context())))
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, adapter.NewSnapshotView(s.Refresh(context.WithoutCancel(r.Context()))))
}

func (s *Server) handleCharacters(w http.ResponseWriter, r *http.Request) {
	snap := s.current(r.Context())
	cards := fame.SearchByName(snap.Characters, r.URL.Query().Get("q"))
	writeJSON(w, http.StatusOK, adapter.NewRecordViews(cards, constants.PlaceholderConfig.CardSize))
}

func (s *Server) handleCharacter(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	record := fame.FindCharacter(s.current(r.Context()).Records, name)
	if record == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "character not found"})
		return
	}
	writeJSON(w, http.StatusOK, adapter.NewRecordView(record, constants.PlaceholderConfig.CardSize))
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	snap := s.current(r.Context())
	s.hub.Serve(w, r, &Message{Type: MessageTypeSnapshot, Data: adapter.NewSnapshotView(snap)})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// Package server exposes the scan engine over HTTP and a WebSocket stream.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"golang.org/x/time/rate"

	"github.com/soocke/card-scan-go/config"
	"github.com/soocke/card-scan-go/domain/scan"
	"github.com/soocke/card-scan-go/store"
)

const (
	writeTimeout    = 2 * time.Second
	captureRate     = 2 // manual captures per second
	captureBurst    = 1
	defaultListSize = 50
	shutdownTimeout = 5 * time.Second
	sendBuffer      = 64
)

// CaptureStore is the read side of capture persistence.
type CaptureStore interface {
	Captures(ctx context.Context, limit int) ([]*store.CaptureRecord, error)
	CaptureImage(ctx context.Context, id int64) ([]byte, error)
}

// Server handles HTTP and WebSocket connections.
type Server struct {
	ctrl     scan.Controller
	captures CaptureStore
	logger   *slog.Logger

	mu    sync.RWMutex
	conns map[*client]struct{}

	stateLimiter   *rate.Limiter
	captureLimiter *rate.Limiter

	sentMu sync.Mutex
	sent   *scan.DetectionState
}

// New creates a server for ctrl and subscribes to its state. captures may be nil.
func New(logger *slog.Logger, cfg *config.Config, ctrl scan.Controller, captures CaptureStore) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	hz := 10.0
	if cfg != nil && cfg.StateRateHz > 0 {
		hz = cfg.StateRateHz
	}
	s := &Server{
		ctrl:           ctrl,
		captures:       captures,
		logger:         logger,
		conns:          make(map[*client]struct{}),
		stateLimiter:   rate.NewLimiter(rate.Limit(hz), 1),
		captureLimiter: rate.NewLimiter(captureRate, captureBurst),
	}
	ctrl.AddStateListener(s.onState)
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/ws", s.handleWebSocket)

	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("POST /api/auto", s.handleAuto)
	mux.HandleFunc("POST /api/capture", s.handleCapture)
	mux.HandleFunc("POST /api/side", s.handleSide)
	mux.HandleFunc("POST /api/card", s.handleCard)
	mux.HandleFunc("POST /api/viewport", s.handleViewport)
	mux.HandleFunc("GET /api/captures", s.handleCaptures)
	mux.HandleFunc("GET /api/captures/{id}/image", s.handleCaptureImage)

	return corsMiddleware(mux)
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.logger.Info("http server listening", "addr", addr)
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.closeConns()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// onState runs on the engine loop and must not block. States are throttled
// to the configured rate, except that phase, mode, side and viewport changes
// are always forwarded.
func (s *Server) onState(st scan.DetectionState) {
	s.sentMu.Lock()
	changed := s.sent == nil || s.sent.Phase != st.Phase || s.sent.AutoMode != st.AutoMode || s.sent.Side != st.Side ||
		s.sent.DisplayWidth != st.DisplayWidth || s.sent.DisplayHeight != st.DisplayHeight
	if !changed && !s.stateLimiter.Allow() {
		s.sentMu.Unlock()
		return
	}
	s.sent = &st
	s.sentMu.Unlock()
	s.broadcast(StateMessage{Type: "state", State: st})
}

// NotifyCapture pushes a capture notification to every client.
func (s *Server) NotifyCapture(m CaptureMessage) {
	m.Type = "capture"
	s.broadcast(m)
}

// client is one WebSocket connection. Only its writer goroutine writes to
// conn, so messages leave in the order they were queued.
type client struct {
	conn *websocket.Conn
	send chan any
	once sync.Once
}

func newClient(conn *websocket.Conn) *client {
	return &client{conn: conn, send: make(chan any, sendBuffer)}
}

// enqueue queues msg without blocking. A client whose buffer is full is
// disconnected.
func (c *client) enqueue(msg any) bool {
	select {
	case c.send <- msg:
		return true
	default:
		c.close(websocket.StatusPolicyViolation, "slow consumer")
		return false
	}
}

func (c *client) close(code websocket.StatusCode, reason string) {
	c.once.Do(func() { go c.conn.Close(code, reason) })
}

func (c *client) writeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-c.send:
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(wctx, c.conn, msg)
			cancel()
			if err != nil {
				c.close(websocket.StatusInternalError, "write failed")
				return
			}
		}
	}
}

func (s *Server) broadcast(msg any) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for c := range s.conns {
		if !c.enqueue(msg) {
			s.logger.Warn("websocket client too slow, disconnecting")
		}
	}
}

func (s *Server) closeConns() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.conns {
		c.close(websocket.StatusGoingAway, "shutdown")
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.logger.Error("websocket accept error", "error", err)
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	c := newClient(conn)
	// the current state is queued before the client joins the broadcast set.
	c.enqueue(StateMessage{Type: "state", State: s.ctrl.State()})

	s.mu.Lock()
	s.conns[c] = struct{}{}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.conns, c)
		s.mu.Unlock()
	}()
	go c.writeLoop(ctx)

	s.logger.Info("websocket connected", "remote", r.RemoteAddr)
	for {
		var msg ControlMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			s.logger.Debug("websocket read error", "error", err)
			return
		}
		if err := s.control(ctx, msg); err != nil {
			c.enqueue(ErrorMessage{Type: "error", Message: err.Error()})
		}
	}
}

var errRateLimited = errors.New("rate limit exceeded")

func (s *Server) control(ctx context.Context, msg ControlMessage) error {
	switch msg.Type {
	case "capture":
		if !s.captureLimiter.Allow() {
			return errRateLimited
		}
		return s.ctrl.CaptureNow(ctx)
	case "auto":
		if msg.Enabled == nil {
			return errors.New("auto: missing enabled")
		}
		return s.ctrl.SetAutoMode(*msg.Enabled)
	case "side":
		side, err := scan.ParseSide(msg.Side)
		if err != nil {
			return err
		}
		return s.ctrl.SetSide(side)
	case "card":
		return s.ctrl.SetCardID(msg.CardID)
	case "viewport":
		if msg.Width <= 0 || msg.Height <= 0 {
			return errors.New("viewport: width and height must be positive")
		}
		return s.ctrl.SetViewport(msg.Width, msg.Height)
	}
	return errors.New("unknown message type " + strconv.Quote(msg.Type))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// statusFor maps control errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, scan.ErrCaptureInFlight):
		return http.StatusConflict
	case errors.Is(err, scan.ErrEngineStopped):
		return http.StatusServiceUnavailable
	case errors.Is(err, errRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout
	}
	return http.StatusBadRequest
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ctrl.State())
}

func (s *Server) handleAuto(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Enabled *bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.control(r.Context(), ControlMessage{Type: "auto", Enabled: body.Enabled}); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"auto_mode": *body.Enabled})
}

func (s *Server) handleCapture(w http.ResponseWriter, r *http.Request) {
	if err := s.control(r.Context(), ControlMessage{Type: "capture"}); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "captured"})
}

func (s *Server) handleSide(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Side string `json:"side"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.control(r.Context(), ControlMessage{Type: "side", Side: body.Side}); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"side": body.Side})
}

func (s *Server) handleCard(w http.ResponseWriter, r *http.Request) {
	var body struct {
		CardID string `json:"card_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.control(r.Context(), ControlMessage{Type: "card", CardID: body.CardID}); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"card_id": body.CardID})
}

func (s *Server) handleViewport(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.control(r.Context(), ControlMessage{Type: "viewport", Width: body.Width, Height: body.Height}); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"width": body.Width, "height": body.Height})
}

func (s *Server) handleCaptures(w http.ResponseWriter, r *http.Request) {
	if s.captures == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("capture store disabled"))
		return
	}
	limit := defaultListSize
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, errors.New("invalid limit"))
			return
		}
		limit = n
	}
	list, err := s.captures.Captures(r.Context(), limit)
	if err != nil {
		s.logger.Error("list captures", "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleCaptureImage(w http.ResponseWriter, r *http.Request) {
	if s.captures == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("capture store disabled"))
		return
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid id"))
		return
	}
	data, err := s.captures.CaptureImage(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
}

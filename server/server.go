// Package server exposes the action queue over REST.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/desk-next/deskcli/actions"
	"github.com/desk-next/deskcli/queue"
	"github.com/desk-next/deskcli/sysinfo"
	"github.com/desk-next/deskcli/utils"
)

// Server timeouts. The write timeout stays disabled: an action response may
// legitimately wait behind a full queue for longer than any fixed deadline.
const (
	ReadTimeout = 10 * time.Second
	IdleTimeout = 120 * time.Second
)

var okResponse = map[string]interface{}{"status": "ok"}

// Server routes REST requests to the action queue.
type Server struct {
	queue      *queue.Queue
	info       sysinfo.Info
	enableCORS bool

	httpServer *http.Server
	shutdownCh chan struct{}
}

// New builds a server around a running queue.
func New(q *queue.Queue, info sysinfo.Info, enableCORS bool) *Server {
	return &Server{
		queue:      q,
		info:       info,
		enableCORS: enableCORS,
		shutdownCh: make(chan struct{}, 1),
	}
}

// actionRequest is the wire form of POST /v1/action.
type actionRequest struct {
	Action actions.Envelope `json:"action"`
}

type actionResponse struct {
	Data map[string]interface{} `json:"data"`
}

type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

// Handler returns the full route tree, wrapped in CORS middleware when
// enabled.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/", s.sendBanner)
	mux.HandleFunc("/v1/system/info", s.handleSystemInfo)
	mux.HandleFunc("/v1/action", s.handleAction)
	mux.HandleFunc("/v1/monitor", s.handleMonitor)
	mux.HandleFunc("/v1/monitor/recent", s.handleRecentEvents)
	mux.HandleFunc("/v1/reconnect", s.handleReconnect)
	mux.HandleFunc("/v1/shutdown", s.handleShutdown)
	mux.Handle("/metrics", promhttp.HandlerFor(s.queue.Gatherer(), promhttp.HandlerOpts{}))

	var handler http.Handler = mux
	if s.enableCORS {
		handler = corsMiddleware(mux)
	}
	return handler
}

// Start listens on addr and serves until Shutdown is called or a shutdown
// request arrives.
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:        addr,
		Handler:     s.Handler(),
		ReadTimeout: ReadTimeout,
		IdleTimeout: IdleTimeout,
	}

	go func() {
		<-s.shutdownCh
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(ctx); err != nil {
			utils.Error("server shutdown: %v", err)
		}
	}()

	utils.Info("Starting server on http://%s...", addr)
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown requests a graceful stop.
func (s *Server) Shutdown() {
	select {
	case s.shutdownCh <- struct{}{}:
	default:
	}
}

func (s *Server) sendBanner(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, okResponse)
}

func (s *Server) handleSystemInfo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.info)
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req actionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, actions.Errorf(actions.KindValidation, "invalid request body: %v", err))
		return
	}

	action, err := actions.ParseRequest(req.Action)
	if err != nil {
		writeError(w, err)
		return
	}

	utils.Verbose("action %s submitted", action.Type())

	result, err := s.queue.Submit(r.Context(), action)
	if err != nil {
		if r.Context().Err() != nil {
			// client went away, nothing to write
			return
		}
		writeError(w, err)
		return
	}

	data := result.Data
	if data == nil {
		data = map[string]interface{}{}
	}
	writeJSON(w, http.StatusOK, actionResponse{Data: data})
}

func (s *Server) handleRecentEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"events": s.queue.RecentEvents()})
}

func (s *Server) handleReconnect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := s.queue.Reconnect(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse)
}

func (s *Server) handleShutdown(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	utils.Info("shutdown requested")
	writeJSON(w, http.StatusOK, okResponse)
	s.Shutdown()
}

// statusForKind maps the failure taxonomy to HTTP status codes.
func statusForKind(kind actions.Kind) int {
	switch kind {
	case actions.KindValidation, actions.KindInvalidKey,
		actions.KindOutOfBounds, actions.KindUnsupportedCharacter:
		return http.StatusBadRequest
	case actions.KindTimeout:
		return http.StatusRequestTimeout
	case actions.KindBusy, actions.KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	kind := actions.KindOf(err)
	writeJSON(w, statusForKind(kind), errorResponse{Error: errorBody{
		Kind:    string(kind),
		Message: actions.MessageOf(err),
	}})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// corsMiddleware handles CORS preflight requests and adds CORS headers to
// responses.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

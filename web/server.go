// Package web serves the HTTP surface: the player page, the chat
// websocket endpoint, the gate login and the health/status endpoints.
package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"streamroom/auth"
	"streamroom/contract"
	"streamroom/infrastructure/ws"
	"streamroom/internal"
	"streamroom/observability"
)

//go:embed static
var staticFS embed.FS

const shutdownGrace = 5 * time.Second

type Server struct {
	log     *slog.Logger
	config  internal.Config
	gate    *auth.Gate
	gateway *ws.Gateway
	chat    contract.IChatService
	stats   *observability.Monitor
	index   *template.Template
}

func NewServer(log *slog.Logger, config internal.Config, gate *auth.Gate,
	gateway *ws.Gateway, chat contract.IChatService, stats *observability.Monitor) *Server {
	index := template.Must(template.ParseFS(staticFS, "static/index.html"))
	return &Server{log: log, config: config, gate: gate, gateway: gateway,
		chat: chat, stats: stats, index: index}
}

// Run serves HTTP (or HTTPS when certificates are configured) until the
// context is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", s.config.Port),
		Handler: s.routes(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.log.Info("HTTP server listening", "addr", srv.Addr, "tls", s.config.TLSEnabled())

	var err error
	if s.config.TLSEnabled() {
		err = srv.ListenAndServeTLS(s.config.TLSCert, s.config.TLSKey)
	} else {
		err = srv.ListenAndServe()
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/{$}", s.handleIndex)
	mux.Handle("/static/", http.FileServer(http.FS(staticFS)))
	mux.HandleFunc("POST /v1/auth", s.gate.Login)
	mux.Handle("/v1/ws", s.gate.Middleware(s.gateway))
	mux.Handle("/v1/stream/status", s.gate.Middleware(http.HandlerFunc(s.handleStreamStatus)))
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/statusz", s.handleStatus)

	return mux
}

type indexData struct {
	Title       string
	GateEnabled bool
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	title := s.config.Title
	if title == "" {
		title = "streamroom"
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.index.Execute(w, indexData{Title: title, GateEnabled: s.gate.Enabled()}); err != nil {
		s.log.Warn("Index render failed", "error", err)
	}
}

func (s *Server) handleStreamStatus(w http.ResponseWriter, r *http.Request) {
	live, _ := s.stats.StreamStatus()
	writeJSON(w, map[string]any{
		"live":         live,
		"title":        s.config.Title,
		"participants": s.chat.Participants(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.stats.Snapshot())
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

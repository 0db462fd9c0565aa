package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"auto-trade-engine-go/internal/trading"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Server exposes the trading engine over HTTP.
type Server struct {
	server  *http.Server
	handler *Handler
	logger  *zap.Logger
}

// NewServer builds the router and wraps it in an http.Server.
func NewServer(port int, svc *trading.Service, metricsHandler http.Handler, logger *zap.Logger) *Server {
	h := &Handler{svc: svc, logger: logger.Named("api")}

	r := mux.NewRouter()
	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api/trading").Subrouter()
	api.HandleFunc("/profile", h.GetProfile).Methods(http.MethodGet)
	api.HandleFunc("/profile", h.UpdateProfile).Methods(http.MethodPut)
	api.HandleFunc("/mode", h.SetMode).Methods(http.MethodPut)

	api.HandleFunc("/suggestions", h.CreateSuggestion).Methods(http.MethodPost)
	api.HandleFunc("/suggestions", h.ListSuggestions).Methods(http.MethodGet)
	api.HandleFunc("/suggestions/{id}/approve", h.ApproveSuggestion).Methods(http.MethodPost)
	api.HandleFunc("/suggestions/{id}/reject", h.RejectSuggestion).Methods(http.MethodPost)

	api.HandleFunc("/trades/{suggestionId}/execute", h.ExecuteTrade).Methods(http.MethodPost)
	api.HandleFunc("/trades/{id}/close", h.CloseTrade).Methods(http.MethodPost)
	api.HandleFunc("/trades", h.ListTrades).Methods(http.MethodGet)

	api.HandleFunc("/kill-switch/trigger", h.TriggerKillSwitch).Methods(http.MethodPost)
	api.HandleFunc("/kill-switch/reset", h.ResetKillSwitch).Methods(http.MethodPost)

	api.HandleFunc("/milestones", h.GetMilestones).Methods(http.MethodGet)
	api.HandleFunc("/milestones/unlock", h.UnlockFullAuto).Methods(http.MethodPost)

	api.HandleFunc("/risk-check", h.RiskCheck).Methods(http.MethodPost)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{server: server, handler: h, logger: logger.Named("api-server")}
}

// Start runs the HTTP server in a new goroutine.
func (s *Server) Start() {
	s.logger.Info("Starting API server", zap.String("address", s.server.Addr))
	go func() {
		if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
			s.logger.Error("API server failed", zap.Error(err))
		}
	}()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping API server...")
	return s.server.Shutdown(ctx)
}

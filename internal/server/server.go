package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"training_log/internal/entry"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// Service is the entry layer as the HTTP boundary needs it. Satisfied
// by *entry.Service and by mocks in tests.
type Service interface {
	GetPlayers(ctx context.Context) (entry.Players, error)
	GetRecentDates(ctx context.Context, limit int) ([]string, error)
	Upsert(ctx context.Context, req entry.UpsertRequest) (entry.Result, error)
}

type Server struct {
	service Service
}

// NewRouter builds the API router. service may be nil when the ledger
// client failed to initialize; the API then reports itself
// unconfigured instead of crashing the process.
func NewRouter(service Service) http.Handler {
	s := &Server{service: service}

	r := chi.NewRouter()
	r.Use(requestLogger)
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.getHealth)
		r.Get("/players", s.getPlayers)
		r.Get("/dates", s.getDates)
		r.Post("/entry", s.postEntry)
	})
	return r
}

func (s *Server) getHealth(w http.ResponseWriter, _ *http.Request) {
	sendJSON(w, http.StatusOK, map[string]interface{}{
		"ok":         true,
		"configured": s.service != nil,
	})
}

func (s *Server) getPlayers(w http.ResponseWriter, r *http.Request) {
	if !s.requireConfigured(w) {
		return
	}

	result, err := s.service.GetPlayers(r.Context())
	if err != nil {
		sendError(w, http.StatusInternalServerError, err)
		return
	}
	sendJSON(w, http.StatusOK, result)
}

func (s *Server) getDates(w http.ResponseWriter, r *http.Request) {
	if !s.requireConfigured(w) {
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	dates, err := s.service.GetRecentDates(r.Context(), limit)
	if err != nil {
		sendError(w, http.StatusInternalServerError, err)
		return
	}
	if dates == nil {
		dates = []string{}
	}
	sendJSON(w, http.StatusOK, map[string]interface{}{"dates": dates})
}

func (s *Server) postEntry(w http.ResponseWriter, r *http.Request) {
	if !s.requireConfigured(w) {
		return
	}

	var req entry.UpsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}

	result, err := s.service.Upsert(r.Context(), req)
	if err != nil {
		var occupied *entry.DateOccupiedError
		if errors.As(err, &occupied) {
			sendJSON(w, http.StatusConflict, map[string]interface{}{
				"error":      occupied.Error(),
				"code":       occupied.Code(),
				"suggestion": occupied.Suggestion,
			})
			return
		}
		sendError(w, http.StatusBadRequest, err)
		return
	}

	sendJSON(w, http.StatusOK, map[string]interface{}{
		"ok":     true,
		"result": result,
	})
}

func (s *Server) requireConfigured(w http.ResponseWriter) bool {
	if s.service == nil {
		sendError(w, http.StatusInternalServerError,
			errors.New("server is not configured, check Google Sheets environment variables"))
		return false
	}
	return true
}

func sendJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("Failed to encode response body")
	}
}

func sendError(w http.ResponseWriter, status int, err error) {
	sendJSON(w, status, map[string]interface{}{"error": err.Error()})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("elapsed", time.Since(start)).
			Msg("Handled request")
	})
}

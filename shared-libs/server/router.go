package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/HarshavardhanKurtkoti/ChaCha-Chaudari-sub000/shared-libs/dto"
)

// NewRouter returns a chi router pre-configured with default middleware and a health endpoint.
// Request timeouts are applied per route group by the caller so long-lived streams can opt out.
func NewRouter(service string, register func(r chi.Router)) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, dto.HealthResponse{Status: "ok", Service: service, Version: dto.Version})
	})

	if register != nil {
		register(r)
	}

	return r
}

// Timeout is the default per-request deadline for JSON endpoints.
const Timeout = 60 * time.Second

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

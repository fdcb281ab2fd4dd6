package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/HarshavardhanKurtkoti/ChaCha-Chaudari-sub000/internal/gamification"
	"github.com/HarshavardhanKurtkoti/ChaCha-Chaudari-sub000/internal/portal"
	sharederrors "github.com/HarshavardhanKurtkoti/ChaCha-Chaudari-sub000/shared-libs/errors"
	sharedserver "github.com/HarshavardhanKurtkoti/ChaCha-Chaudari-sub000/shared-libs/server"
)

const serviceTimeout = 8 * time.Second

// Option configures RegisterRoutes.
type Option func(*routeOptions)

type routeOptions struct {
	admins map[string]struct{}
}

// WithAdmins allows the given user IDs to call operator routes such as the leaderboard
// reset. Without it those routes answer 403 to everyone.
func WithAdmins(ids ...string) Option {
	return func(o *routeOptions) {
		for _, id := range ids {
			if id = strings.TrimSpace(id); id != "" {
				o.admins[id] = struct{}{}
			}
		}
	}
}

// RegisterRoutes registers all portal routes
func RegisterRoutes(r chi.Router, service portal.Service, logger *slog.Logger, opts ...Option) {
	o := routeOptions{admins: map[string]struct{}{}}
	for _, opt := range opts {
		opt(&o)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(sharedserver.Timeout))

		r.Get("/v1/catalog", getCatalog(service))
		r.Get("/v1/dashboard/me", getDashboard(service, logger))

		r.Route("/v1/progress/me", func(r chi.Router) {
			r.Get("/", getProgress(service, logger))
			r.Post("/score", recordScore(service, logger))
			r.Post("/reset", resetProgress(service, logger))
		})

		r.Route("/v1/leaderboard", func(r chi.Router) {
			r.Get("/", getLeaderboard(service))
			r.Get("/search", searchLeaderboard(service))
			r.Post("/me", submitLeaderboard(service, logger))
			r.With(requireAdmin(o.admins, logger)).Delete("/", resetLeaderboard(service, logger))
		})

		r.Route("/v1/daily-reward/me", func(r chi.Router) {
			r.Get("/", getDailyStatus(service, logger))
			r.Post("/claim", claimDaily(service, logger))
		})

		r.Route("/v1/players/me", func(r chi.Router) {
			r.Get("/", getPlayer(service, logger))
			r.Put("/", putPlayer(service, logger))
		})

		registerGameRoutes(r, service, logger)
	})

	// Long-lived; bounded by the client connection instead of the request timeout.
	r.Get("/v1/events/me", streamEvents(service, logger))
}

func getCatalog(service portal.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, service.Catalog())
	}
}

func getDashboard(service portal.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := identityFromRequest(r)

		ctx, cancel := context.WithTimeout(r.Context(), serviceTimeout)
		defer cancel()

		dash, err := service.Dashboard(ctx, id)
		if err != nil {
			writeServiceError(w, r, logger, "failed to load dashboard", err, id.ProfileID)
			return
		}
		writeJSON(w, http.StatusOK, dash)
	}
}

func getProgress(service portal.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := identityFromRequest(r)

		ctx, cancel := context.WithTimeout(r.Context(), serviceTimeout)
		defer cancel()

		p, err := service.Progress(ctx, id.ProfileID)
		if err != nil {
			writeServiceError(w, r, logger, "failed to load progress", err, id.ProfileID)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

type scoreRequest struct {
	BasePoints int    `json:"basePoints" validate:"gte=0,lte=100"`
	Mission    string `json:"mission" validate:"required,oneof=quiz trash"`
	Event      string `json:"event" validate:"required,oneof=progress completed"`
}

func recordScore(service portal.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := identityFromRequest(r)

		var body scoreRequest
		if err := decodeBody(w, r, &body); err != nil {
			writeServiceError(w, r, logger, "failed to record score", err, id.ProfileID)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), serviceTimeout)
		defer cancel()

		result, err := service.RecordScore(ctx, id, portal.ScoreInput{
			BasePoints: body.BasePoints,
			Meta: gamification.ScoreMeta{
				Mission: gamification.Mission(body.Mission),
				Event:   gamification.Event(body.Event),
			},
		})
		if err != nil {
			writeServiceError(w, r, logger, "failed to record score", err, id.ProfileID)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func resetProgress(service portal.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := identityFromRequest(r)

		ctx, cancel := context.WithTimeout(r.Context(), serviceTimeout)
		defer cancel()

		p, err := service.ResetProgress(ctx, id.ProfileID)
		if err != nil {
			writeServiceError(w, r, logger, "failed to reset progress", err, id.ProfileID)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func getLeaderboard(service portal.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), serviceTimeout)
		defer cancel()

		writeJSON(w, http.StatusOK, map[string]any{"entries": service.Leaderboard(ctx)})
	}
}

func searchLeaderboard(service portal.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), serviceTimeout)
		defer cancel()

		query := r.URL.Query().Get("q")
		writeJSON(w, http.StatusOK, map[string]any{"query": query, "matches": service.SearchLeaderboard(ctx, query)})
	}
}

func submitLeaderboard(service portal.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := identityFromRequest(r)

		ctx, cancel := context.WithTimeout(r.Context(), serviceTimeout)
		defer cancel()

		board, err := service.SubmitLeaderboard(ctx, id)
		if err != nil {
			writeServiceError(w, r, logger, "failed to submit score", err, id.ProfileID)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"entries": board})
	}
}

// requireAdmin only lets configured operator IDs through.
func requireAdmin(admins map[string]struct{}, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := identityFromRequest(r)
			if id.ProfileID == "" {
				writeError(w, r, sharederrors.CodeUnauthorized, "missing user ID")
				return
			}
			if _, ok := admins[id.ProfileID]; !ok {
				logger.Warn("operator route refused",
					slog.String("userId", id.ProfileID),
					slog.String("path", r.URL.Path),
				)
				writeError(w, r, sharederrors.CodeForbidden, "admin access required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func resetLeaderboard(service portal.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), serviceTimeout)
		defer cancel()

		service.ResetLeaderboard(ctx)
		logger.Info("leaderboard reset", slog.String("userId", identityFromRequest(r).ProfileID))
		w.WriteHeader(http.StatusNoContent)
	}
}

func getDailyStatus(service portal.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := identityFromRequest(r)

		ctx, cancel := context.WithTimeout(r.Context(), serviceTimeout)
		defer cancel()

		status, err := service.DailyStatus(ctx, id.ProfileID)
		if err != nil {
			writeServiceError(w, r, logger, "failed to load daily reward", err, id.ProfileID)
			return
		}
		writeJSON(w, http.StatusOK, status)
	}
}

func claimDaily(service portal.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := identityFromRequest(r)

		ctx, cancel := context.WithTimeout(r.Context(), serviceTimeout)
		defer cancel()

		result, err := service.ClaimDaily(ctx, id)
		if err != nil {
			writeServiceError(w, r, logger, "failed to claim daily reward", err, id.ProfileID)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func getPlayer(service portal.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := identityFromRequest(r)

		ctx, cancel := context.WithTimeout(r.Context(), serviceTimeout)
		defer cancel()

		profile, err := service.Player(ctx, id)
		if err != nil {
			writeServiceError(w, r, logger, "failed to load player", err, id.ProfileID)
			return
		}
		writeJSON(w, http.StatusOK, profile)
	}
}

type nameRequest struct {
	Name string `json:"name" validate:"required,max=256"`
}

func putPlayer(service portal.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := identityFromRequest(r)

		var body nameRequest
		if err := decodeBody(w, r, &body); err != nil {
			writeServiceError(w, r, logger, "failed to update player", err, id.ProfileID)
			return
		}
		if strings.TrimSpace(body.Name) == "" {
			writeError(w, r, sharederrors.CodeBadRequest, "name is required")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), serviceTimeout)
		defer cancel()

		profile, err := service.SetPlayerName(ctx, id, body.Name)
		if err != nil {
			writeServiceError(w, r, logger, "failed to update player", err, id.ProfileID)
			return
		}
		writeJSON(w, http.StatusOK, profile)
	}
}

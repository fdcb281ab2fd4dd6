package httpapi

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/HarshavardhanKurtkoti/ChaCha-Chaudari-sub000/internal/portal"
)

func registerGameRoutes(r chi.Router, service portal.Service, logger *slog.Logger) {
	r.Route("/v1/games/quiz", func(r chi.Router) {
		r.Post("/", startQuiz(service, logger))
		r.Get("/{id}", getQuiz(service, logger))
		r.Post("/{id}/answer", answerQuiz(service, logger))
		r.Post("/{id}/next", nextQuiz(service, logger))
	})

	r.Route("/v1/games/trash", func(r chi.Router) {
		r.Post("/", startTrash(service, logger))
		r.Get("/{id}", getTrash(service, logger))
		r.Post("/{id}/sort", sortTrash(service, logger))
		r.Post("/{id}/next", nextTrash(service, logger))
	})
}

func startQuiz(service portal.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := identityFromRequest(r)

		ctx, cancel := context.WithTimeout(r.Context(), serviceTimeout)
		defer cancel()

		state, err := service.StartQuiz(ctx, id)
		if err != nil {
			writeServiceError(w, r, logger, "failed to start quiz", err, id.ProfileID)
			return
		}
		writeJSON(w, http.StatusCreated, state)
	}
}

func getQuiz(service portal.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := identityFromRequest(r)

		ctx, cancel := context.WithTimeout(r.Context(), serviceTimeout)
		defer cancel()

		state, err := service.Quiz(ctx, id, chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, r, logger, "failed to load quiz", err, id.ProfileID)
			return
		}
		writeJSON(w, http.StatusOK, state)
	}
}

type answerRequest struct {
	Choice *int `json:"choice" validate:"required,gte=0"`
}

func answerQuiz(service portal.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := identityFromRequest(r)

		var body answerRequest
		if err := decodeBody(w, r, &body); err != nil {
			writeServiceError(w, r, logger, "failed to answer quiz", err, id.ProfileID)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), serviceTimeout)
		defer cancel()

		state, err := service.AnswerQuiz(ctx, id, chi.URLParam(r, "id"), *body.Choice)
		if err != nil {
			writeServiceError(w, r, logger, "failed to answer quiz", err, id.ProfileID)
			return
		}
		writeJSON(w, http.StatusOK, state)
	}
}

func nextQuiz(service portal.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := identityFromRequest(r)

		ctx, cancel := context.WithTimeout(r.Context(), serviceTimeout)
		defer cancel()

		state, err := service.NextQuiz(ctx, id, chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, r, logger, "failed to advance quiz", err, id.ProfileID)
			return
		}
		writeJSON(w, http.StatusOK, state)
	}
}

func startTrash(service portal.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := identityFromRequest(r)

		ctx, cancel := context.WithTimeout(r.Context(), serviceTimeout)
		defer cancel()

		state, err := service.StartTrash(ctx, id)
		if err != nil {
			writeServiceError(w, r, logger, "failed to start trash sort", err, id.ProfileID)
			return
		}
		writeJSON(w, http.StatusCreated, state)
	}
}

func getTrash(service portal.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := identityFromRequest(r)

		ctx, cancel := context.WithTimeout(r.Context(), serviceTimeout)
		defer cancel()

		state, err := service.Trash(ctx, id, chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, r, logger, "failed to load trash sort", err, id.ProfileID)
			return
		}
		writeJSON(w, http.StatusOK, state)
	}
}

type sortRequest struct {
	Bin string `json:"bin" validate:"required"`
}

func sortTrash(service portal.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := identityFromRequest(r)

		var body sortRequest
		if err := decodeBody(w, r, &body); err != nil {
			writeServiceError(w, r, logger, "failed to sort item", err, id.ProfileID)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), serviceTimeout)
		defer cancel()

		state, err := service.SortTrash(ctx, id, chi.URLParam(r, "id"), body.Bin)
		if err != nil {
			writeServiceError(w, r, logger, "failed to sort item", err, id.ProfileID)
			return
		}
		writeJSON(w, http.StatusOK, state)
	}
}

func nextTrash(service portal.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := identityFromRequest(r)

		ctx, cancel := context.WithTimeout(r.Context(), serviceTimeout)
		defer cancel()

		state, err := service.NextTrash(ctx, id, chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, r, logger, "failed to advance trash sort", err, id.ProfileID)
			return
		}
		writeJSON(w, http.StatusOK, state)
	}
}

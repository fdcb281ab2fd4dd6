package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/HarshavardhanKurtkoti/ChaCha-Chaudari-sub000/internal/games"
	"github.com/HarshavardhanKurtkoti/ChaCha-Chaudari-sub000/internal/player"
	"github.com/HarshavardhanKurtkoti/ChaCha-Chaudari-sub000/internal/portal"
	"github.com/HarshavardhanKurtkoti/ChaCha-Chaudari-sub000/internal/progress"
	sharedauth "github.com/HarshavardhanKurtkoti/ChaCha-Chaudari-sub000/shared-libs/auth"
	sharederrors "github.com/HarshavardhanKurtkoti/ChaCha-Chaudari-sub000/shared-libs/errors"
	"github.com/HarshavardhanKurtkoti/ChaCha-Chaudari-sub000/shared-libs/logging"
)

const maxBodyBytes = 16 * 1024

var (
	validate          = validator.New()
	errInvalidPayload = errors.New("invalid request body")
)

// identityFromRequest builds the player identity from the authenticated user, falling back
// to the X-User-ID header when no auth middleware ran.
func identityFromRequest(r *http.Request) player.Identity {
	if user, ok := sharedauth.UserFromContext(r.Context()); ok {
		return player.Identity{
			ProfileID: user.UserID,
			Email:     user.Email,
			Name:      user.Name,
			Age:       user.Age,
		}
	}
	return player.Identity{ProfileID: headerUserID(r)}
}

func headerUserID(r *http.Request) string {
	if v := r.Header.Get("X-User-ID"); v != "" {
		return v
	}
	return r.Header.Get("x-user-id")
}

// decodeBody reads exactly one JSON object into dst and validates it.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return errInvalidPayload
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return errInvalidPayload
	}
	if err := validate.Struct(dst); err != nil {
		return errInvalidPayload
	}
	return nil
}

// classify maps a service error to a canonical code and a client-safe message.
func classify(err error) (string, string) {
	switch {
	case errors.Is(err, errInvalidPayload):
		return sharederrors.CodeBadRequest, errInvalidPayload.Error()
	case errors.Is(err, progress.ErrMissingProfileID):
		return sharederrors.CodeUnauthorized, "missing user ID"
	case errors.Is(err, games.ErrSessionNotFound):
		return sharederrors.CodeNotFound, err.Error()
	case errors.Is(err, games.ErrAlreadyAnswered),
		errors.Is(err, games.ErrNotAnswered),
		errors.Is(err, games.ErrFinished),
		errors.Is(err, portal.ErrReportLimit),
		errors.Is(err, portal.ErrNameRequired):
		return sharederrors.CodeConflict, err.Error()
	case errors.Is(err, games.ErrInvalidChoice),
		errors.Is(err, player.ErrInvalidName),
		errors.Is(err, portal.ErrInvalidScore):
		return sharederrors.CodeBadRequest, err.Error()
	default:
		return sharederrors.CodeInternal, "internal error"
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, r *http.Request, code, message string) {
	writeJSON(w, sharederrors.ToStatusCode(code), sharederrors.ErrorResponse{
		Code:      code,
		Message:   message,
		RequestID: middleware.GetReqID(r.Context()),
	})
}

// writeServiceError logs unexpected failures and writes the mapped error envelope.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, message string, err error, userID string) {
	code, text := classify(err)
	if code == sharederrors.CodeInternal {
		logRequestError(r.Context(), logger, message, err, userID)
		text = message
	}
	writeError(w, r, code, text)
}

func logRequestError(ctx context.Context, logger *slog.Logger, message string, err error, userID string) {
	if logger == nil || err == nil {
		return
	}
	logging.WithRequestID(ctx, logger, middleware.GetReqID(ctx)).Error(message,
		slog.String("userId", userID),
		slog.Any("error", err),
	)
}

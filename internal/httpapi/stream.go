package httpapi

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/HarshavardhanKurtkoti/ChaCha-Chaudari-sub000/internal/portal"
	sharederrors "github.com/HarshavardhanKurtkoti/ChaCha-Chaudari-sub000/shared-libs/errors"
)

const (
	streamBuffer    = 32
	streamKeepAlive = 25 * time.Second
)

// streamEvents pushes the caller's change notifications as server-sent events until the
// client disconnects. Notifications that arrive while the client is slow are dropped.
func streamEvents(service portal.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := identityFromRequest(r)
		if id.ProfileID == "" {
			writeError(w, r, sharederrors.CodeUnauthorized, "missing user ID")
			return
		}
		flusher, ok := w.(http.Flusher)
		if !ok {
			writeError(w, r, sharederrors.CodeInternal, "streaming unsupported")
			return
		}

		notifications := make(chan portal.Notification, streamBuffer)
		unsubscribe := service.Subscribe(id.ProfileID, func(n portal.Notification) {
			select {
			case notifications <- n:
			default:
				logger.Warn("dropping event for slow stream", slog.String("userId", id.ProfileID), slog.String("topic", n.Topic))
			}
		})
		defer unsubscribe()

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, ": connected\n\n")
		flusher.Flush()

		keepAlive := time.NewTicker(streamKeepAlive)
		defer keepAlive.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case <-keepAlive.C:
				fmt.Fprint(w, ": ping\n\n")
				flusher.Flush()
			case n := <-notifications:
				data, err := json.Marshal(n.Data)
				if err != nil {
					logRequestError(r.Context(), logger, "failed to encode event", err, id.ProfileID)
					continue
				}
				fmt.Fprintf(w, "event: %s\ndata: %s\n\n", n.Topic, data)
				flusher.Flush()
			}
		}
	}
}

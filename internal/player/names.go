package player

import (
	"context"
	"log/slog"
	"strings"

	"github.com/HarshavardhanKurtkoti/ChaCha-Chaudari-sub000/internal/kvstore"
)

const recordName = "playerName"

// Names persists the name a player typed in when they had no account name.
type Names struct {
	kv     kvstore.Store
	ns     string
	logger *slog.Logger
}

// NewNames builds a Names store keyed "<namespace>:<profile>:playerName".
func NewNames(kv kvstore.Store, namespace string, logger *slog.Logger) *Names {
	if namespace == "" {
		namespace = "ganga"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Names{kv: kv, ns: namespace, logger: logger}
}

// Get returns the stored name, sanitised. ok is false when none is stored.
func (n *Names) Get(ctx context.Context, profileID string) (string, bool) {
	var raw string
	found, err := kvstore.GetJSON(ctx, n.kv, n.key(profileID), &raw)
	if err != nil {
		n.logger.Warn("player name read failed", slog.String("profile_id", profileID), slog.Any("error", err))
		return "", false
	}
	if !found {
		return "", false
	}
	return SanitizeName(raw)
}

// Set sanitises and stores name, returning the stored form.
func (n *Names) Set(ctx context.Context, profileID, name string) (string, error) {
	clean, ok := SanitizeName(name)
	if !ok {
		return "", ErrInvalidName
	}
	if err := kvstore.SetJSON(ctx, n.kv, n.key(profileID), clean); err != nil {
		n.logger.Error("player name write failed", slog.String("profile_id", profileID), slog.Any("error", err))
	}
	return clean, nil
}

func (n *Names) key(profileID string) string {
	return kvstore.Key(n.ns, strings.TrimSpace(profileID), recordName)
}

// Package leaderboard keeps the origin-wide top-ten board of player names and scores.
package leaderboard

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/sahilm/fuzzy"

	"github.com/HarshavardhanKurtkoti/ChaCha-Chaudari-sub000/internal/kvstore"
	"github.com/HarshavardhanKurtkoti/ChaCha-Chaudari-sub000/shared-libs/events"
	"github.com/HarshavardhanKurtkoti/ChaCha-Chaudari-sub000/shared-libs/pubsub"
)

const recordName = "leaderboard"

// Store reads and writes the board through a kvstore.
type Store struct {
	kv     kvstore.Store
	key    string
	logger *slog.Logger
	now    func() time.Time
	hub    *pubsub.Hub[events.LeaderboardChanged]

	mu sync.Mutex
}

// NewStore builds a Store whose record lives under "<namespace>:leaderboard".
func NewStore(kv kvstore.Store, namespace string, logger *slog.Logger) *Store {
	if namespace == "" {
		namespace = "ganga"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		kv:     kv,
		key:    kvstore.Key(namespace, recordName),
		logger: logger,
		now:    time.Now,
		hub:    pubsub.NewHub[events.LeaderboardChanged](pubsub.TopicLeaderboardEvents),
	}
}

// Key is the storage key of the board.
func (s *Store) Key() string {
	return s.key
}

// Load returns the sanitised board. Absent or malformed records read as empty.
func (s *Store) Load(ctx context.Context) []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(ctx)
}

// Submit records score for name, keeping the higher of the old and new score. Blank names
// are ignored. The updated board is returned.
func (s *Store) Submit(ctx context.Context, name string, score int) []Entry {
	name = strings.TrimSpace(name)

	s.mu.Lock()
	board := s.read(ctx)
	if name == "" {
		s.mu.Unlock()
		return board
	}
	if score < 0 {
		score = 0
	}
	stored := score
	for _, entry := range board {
		if entry.Name == name && entry.Score > stored {
			stored = entry.Score
		}
	}
	next := normalize(append(board, Entry{Name: name, Score: score}))
	s.write(ctx, next)
	s.mu.Unlock()

	s.hub.Publish(events.LeaderboardChanged{Name: name, Score: stored, OccurredAt: s.now().UTC()})
	return next
}

// Reset clears the board.
func (s *Store) Reset(ctx context.Context) {
	s.mu.Lock()
	if err := s.kv.Delete(ctx, s.key); err != nil {
		s.logger.Error("leaderboard reset failed", slog.Any("error", err))
	}
	s.mu.Unlock()

	s.hub.Publish(events.LeaderboardChanged{Cleared: true, OccurredAt: s.now().UTC()})
}

// Search returns board entries whose names fuzzily match query, best match first. An empty
// query returns the whole board ranked.
func (s *Store) Search(ctx context.Context, query string) []Ranked {
	board := s.Load(ctx)
	query = strings.TrimSpace(query)

	if query == "" {
		out := make([]Ranked, len(board))
		for i, entry := range board {
			out[i] = Ranked{Entry: entry, Rank: i + 1}
		}
		return out
	}

	matches := fuzzy.FindFrom(query, entries(board))
	out := make([]Ranked, 0, len(matches))
	for _, match := range matches {
		out = append(out, Ranked{Entry: board[match.Index], Rank: match.Index + 1})
	}
	return out
}

// Rank reports the 1-based position of name, or false when it is not on the board.
func (s *Store) Rank(ctx context.Context, name string) (Ranked, bool) {
	name = strings.TrimSpace(name)
	for i, entry := range s.Load(ctx) {
		if entry.Name == name {
			return Ranked{Entry: entry, Rank: i + 1}, true
		}
	}
	return Ranked{}, false
}

// Watch forwards board writes made by other processes to subscribers, flagged as external.
// It is a no-op when the backend cannot report changes.
func (s *Store) Watch(ctx context.Context) error {
	watcher, ok := s.kv.(kvstore.Watcher)
	if !ok {
		return nil
	}
	return watcher.Watch(ctx, func(change kvstore.Change) {
		if change.Key != s.key {
			return
		}
		s.hub.Publish(events.LeaderboardChanged{
			Cleared:    change.Op == kvstore.OpDelete,
			External:   true,
			OccurredAt: s.now().UTC(),
		})
	})
}

// Subscribe registers fn for board changes and returns the unsubscribe func.
func (s *Store) Subscribe(fn func(events.LeaderboardChanged)) func() {
	return s.hub.Subscribe(fn)
}

func (s *Store) read(ctx context.Context) []Entry {
	var board []Entry
	found, err := kvstore.GetJSON(ctx, s.kv, s.key, &board)
	if err != nil {
		s.logger.Warn("leaderboard read failed, using empty board", slog.Any("error", err))
		return []Entry{}
	}
	if !found {
		return []Entry{}
	}
	return normalize(board)
}

func (s *Store) write(ctx context.Context, board []Entry) {
	if err := kvstore.SetJSON(ctx, s.kv, s.key, board); err != nil {
		s.logger.Error("leaderboard write failed", slog.Any("error", err))
	}
}

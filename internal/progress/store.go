// Package progress owns one profile's points, streak, badges and achievements. Every read
// reconciles the calendar-day boundary and every mutation persists synchronously.
package progress

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/HarshavardhanKurtkoti/ChaCha-Chaudari-sub000/internal/gamification"
	"github.com/HarshavardhanKurtkoti/ChaCha-Chaudari-sub000/internal/kvstore"
	"github.com/HarshavardhanKurtkoti/ChaCha-Chaudari-sub000/shared-libs/events"
	"github.com/HarshavardhanKurtkoti/ChaCha-Chaudari-sub000/shared-libs/pubsub"
)

const recordName = "progress"

// Reasons attached to change notifications.
const (
	ReasonScore    = "score"
	ReasonReset    = "reset"
	ReasonRollover = "rollover"
	ReasonExternal = "external"
)

// ScoreResult is the outcome of one scoring event.
type ScoreResult struct {
	Progress gamification.Progress `json:"progress"`
	Unlocks  gamification.Unlocks  `json:"unlocks"`
}

// Options configures a Store. Zero values fall back to sensible defaults.
type Options struct {
	Namespace string
	Location  *time.Location
	Clock     Clock
	Logger    *slog.Logger
}

// Store persists progress records through a kvstore and notifies subscribers of changes.
type Store struct {
	kv     kvstore.Store
	ns     string
	loc    *time.Location
	clock  Clock
	logger *slog.Logger
	hub    *pubsub.Hub[events.ProgressChanged]

	mu sync.Mutex
}

// NewStore builds a Store over kv.
func NewStore(kv kvstore.Store, opts Options) *Store {
	if opts.Namespace == "" {
		opts.Namespace = "ganga"
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Clock == nil {
		opts.Clock = NewSystemClock()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Store{
		kv:     kv,
		ns:     opts.Namespace,
		loc:    opts.Location,
		clock:  opts.Clock,
		logger: opts.Logger,
		hub:    pubsub.NewHub[events.ProgressChanged](pubsub.TopicProgressEvents),
	}
}

// Now is the store clock's current time.
func (s *Store) Now() time.Time {
	return s.clock.Now()
}

// Today is the current calendar day in the portal's time zone.
func (s *Store) Today() string {
	return gamification.DayKey(s.Now(), s.loc)
}

// Key is the storage key of a profile's progress record.
func (s *Store) Key(profileID string) string {
	return kvstore.Key(s.ns, profileID, recordName)
}

// Load returns the profile's progress. Absent or unreadable records yield zeroed defaults.
// A record last played on an earlier day has its streak reconciled and persisted first.
func (s *Store) Load(ctx context.Context, profileID string) (gamification.Progress, error) {
	profileID = strings.TrimSpace(profileID)
	if profileID == "" {
		return gamification.Progress{}, ErrMissingProfileID
	}

	today := s.Today()
	s.mu.Lock()
	current := s.read(ctx, profileID)
	if current.LastPlayDate == "" || current.LastPlayDate == today {
		s.mu.Unlock()
		return current, nil
	}

	next := reconcile(current, today)
	s.write(ctx, profileID, next)
	s.mu.Unlock()

	s.publish(profileID, ReasonRollover, current, next, false)
	return next, nil
}

// RecordScore applies one scoring event: day reconciliation, the streak-multiplied award,
// mission achievements and badge unlocks.
func (s *Store) RecordScore(ctx context.Context, profileID string, basePoints int, meta gamification.ScoreMeta) (ScoreResult, error) {
	profileID = strings.TrimSpace(profileID)
	if profileID == "" {
		return ScoreResult{}, ErrMissingProfileID
	}

	s.mu.Lock()
	before := s.read(ctx, profileID)
	next := reconcile(before, s.Today())
	next = gamification.AddPoints(next, basePoints, meta)
	next = gamification.ApplyBadgeUnlocks(next)
	s.write(ctx, profileID, next)
	s.mu.Unlock()

	result := ScoreResult{Progress: next, Unlocks: gamification.Diff(before, next)}
	s.publish(profileID, ReasonScore, before, next, false)
	return result, nil
}

// Reset restores zeroed defaults for the profile.
func (s *Store) Reset(ctx context.Context, profileID string) (gamification.Progress, error) {
	profileID = strings.TrimSpace(profileID)
	if profileID == "" {
		return gamification.Progress{}, ErrMissingProfileID
	}

	s.mu.Lock()
	before := s.read(ctx, profileID)
	next := gamification.NewProgress()
	s.write(ctx, profileID, next)
	s.mu.Unlock()

	s.publish(profileID, ReasonReset, before, next, false)
	return next, nil
}

// Subscribe registers fn for every change notification and returns the unsubscribe func.
func (s *Store) Subscribe(fn func(events.ProgressChanged)) func() {
	return s.hub.Subscribe(fn)
}

// Watch forwards progress records written by other processes to subscribers, flagged as
// external. It is a no-op when the backend cannot report changes.
func (s *Store) Watch(ctx context.Context) error {
	watcher, ok := s.kv.(kvstore.Watcher)
	if !ok {
		return nil
	}
	return watcher.Watch(ctx, func(change kvstore.Change) {
		profileID, ok := s.profileFromKey(change.Key)
		if !ok {
			return
		}

		next := gamification.NewProgress()
		switch {
		case change.Op == kvstore.OpDelete:
		case change.Value != nil:
			if err := next.UnmarshalJSON(change.Value); err != nil {
				s.logger.Warn("ignoring malformed external progress", slog.String("profile_id", profileID), slog.Any("error", err))
				return
			}
		default:
			next = s.read(ctx, profileID)
		}
		s.publish(profileID, ReasonExternal, next, next, true)
	})
}

func (s *Store) profileFromKey(key string) (string, bool) {
	prefix := s.ns + ":"
	suffix := ":" + recordName
	if !strings.HasPrefix(key, prefix) || !strings.HasSuffix(key, suffix) {
		return "", false
	}
	profileID := strings.TrimSuffix(strings.TrimPrefix(key, prefix), suffix)
	if profileID == "" {
		return "", false
	}
	return profileID, true
}

func (s *Store) read(ctx context.Context, profileID string) gamification.Progress {
	p := gamification.NewProgress()
	found, err := kvstore.GetJSON(ctx, s.kv, s.Key(profileID), &p)
	if err != nil {
		s.logger.Warn("progress read failed, using defaults",
			slog.String("profile_id", profileID),
			slog.Any("error", err),
		)
		return gamification.NewProgress()
	}
	if !found {
		return gamification.NewProgress()
	}
	return p
}

func (s *Store) write(ctx context.Context, profileID string, p gamification.Progress) {
	if err := kvstore.SetJSON(ctx, s.kv, s.Key(profileID), p); err != nil {
		s.logger.Error("progress write failed",
			slog.String("profile_id", profileID),
			slog.Any("error", err),
		)
	}
}

func (s *Store) publish(profileID, reason string, before, after gamification.Progress, external bool) {
	unlocks := gamification.Diff(before, after)
	s.hub.Publish(events.ProgressChanged{
		ProfileID:  profileID,
		Reason:     reason,
		Points:     after.Points,
		Streak:     after.Streak,
		Delta:      unlocks.Delta,
		NewBadges:  unlocks.NewBadges,
		External:   external,
		OccurredAt: s.Now().UTC(),
	})
}

func reconcile(p gamification.Progress, today string) gamification.Progress {
	return gamification.ApplyStreakAchievements(gamification.UpdateStreak(p, today))
}

package progress

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/HarshavardhanKurtkoti/ChaCha-Chaudari-sub000/internal/gamification"
	"github.com/HarshavardhanKurtkoti/ChaCha-Chaudari-sub000/internal/kvstore"
	"github.com/HarshavardhanKurtkoti/ChaCha-Chaudari-sub000/shared-libs/events"
	"github.com/HarshavardhanKurtkoti/ChaCha-Chaudari-sub000/shared-libs/logging"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) advanceDays(n int) { c.now = c.now.AddDate(0, 0, n) }

func newTestStore(t *testing.T, kv kvstore.Store) (*Store, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)}
	return NewStore(kv, Options{Namespace: "ganga", Clock: clock, Logger: logging.Discard()}), clock
}

var (
	quizProgress  = gamification.ScoreMeta{Mission: gamification.MissionQuiz, Event: gamification.EventProgress}
	quizCompleted = gamification.ScoreMeta{Mission: gamification.MissionQuiz, Event: gamification.EventCompleted}
)

func TestLoadReturnsDefaultsForNewProfile(t *testing.T) {
	store, _ := newTestStore(t, kvstore.NewMemory())

	got, err := store.Load(context.Background(), "p1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !got.Equal(gamification.NewProgress()) {
		t.Fatalf("expected zeroed defaults, got %+v", got)
	}
}

func TestLoadMalformedRecordFallsBackToDefaults(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemory()
	store, _ := newTestStore(t, kv)
	if err := kv.Set(ctx, store.Key("p1"), []byte("{broken")); err != nil {
		t.Fatalf("seed: %v", err)
	}

	got, err := store.Load(ctx, "p1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !got.Equal(gamification.NewProgress()) {
		t.Fatalf("expected defaults, got %+v", got)
	}
}

func TestMissingProfileID(t *testing.T) {
	store, _ := newTestStore(t, kvstore.NewMemory())
	ctx := context.Background()

	if _, err := store.Load(ctx, "  "); !errors.Is(err, ErrMissingProfileID) {
		t.Fatalf("Load: expected ErrMissingProfileID, got %v", err)
	}
	if _, err := store.RecordScore(ctx, "", 10, quizProgress); !errors.Is(err, ErrMissingProfileID) {
		t.Fatalf("RecordScore: expected ErrMissingProfileID, got %v", err)
	}
	if _, err := store.Reset(ctx, ""); !errors.Is(err, ErrMissingProfileID) {
		t.Fatalf("Reset: expected ErrMissingProfileID, got %v", err)
	}
}

func TestRecordScoreStartsStreakAndPersists(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemory()
	store, _ := newTestStore(t, kv)

	result, err := store.RecordScore(ctx, "p1", 10, quizCompleted)
	if err != nil {
		t.Fatalf("RecordScore: %v", err)
	}

	// First play starts the streak at 1, so the award is round(10 * 1.1).
	if result.Progress.Points != 11 || result.Progress.Streak != 1 {
		t.Fatalf("unexpected progress %+v", result.Progress)
	}
	if result.Progress.LastPlayDate != "2025-01-01" {
		t.Fatalf("expected lastPlayDate 2025-01-01, got %q", result.Progress.LastPlayDate)
	}
	if result.Unlocks.Delta != 11 || len(result.Unlocks.NewAchievements) != 1 || result.Unlocks.NewAchievements[0] != gamification.AchievementFirstQuiz {
		t.Fatalf("unexpected unlocks %+v", result.Unlocks)
	}

	var stored gamification.Progress
	found, err := kvstore.GetJSON(ctx, kv, "ganga:p1:progress", &stored)
	if err != nil || !found {
		t.Fatalf("expected persisted record, found=%v err=%v", found, err)
	}
	if !stored.Equal(result.Progress) {
		t.Fatalf("persisted %+v, returned %+v", stored, result.Progress)
	}
}

func TestRecordScoreUnlocksBadgesAtThreshold(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t, kvstore.NewMemory())

	var last ScoreResult
	for i := 0; i < 3; i++ {
		var err error
		last, err = store.RecordScore(ctx, "p1", 10, quizProgress)
		if err != nil {
			t.Fatalf("RecordScore: %v", err)
		}
	}
	if last.Progress.Points != 33 {
		t.Fatalf("expected 33 points, got %d", last.Progress.Points)
	}
	if !last.Progress.Badges.Has("seedling") || last.Progress.Badges.Len() != 1 {
		t.Fatalf("expected only seedling, got %v", last.Progress.Badges.Items())
	}
	if len(last.Unlocks.NewBadges) != 1 || last.Unlocks.NewBadges[0] != "seedling" {
		t.Fatalf("expected seedling unlock, got %+v", last.Unlocks)
	}
}

func TestLoadReconcilesDayBoundaryOnce(t *testing.T) {
	ctx := context.Background()
	store, clock := newTestStore(t, kvstore.NewMemory())

	if _, err := store.RecordScore(ctx, "p1", 10, quizProgress); err != nil {
		t.Fatalf("RecordScore: %v", err)
	}

	var rollovers int
	unsubscribe := store.Subscribe(func(e events.ProgressChanged) {
		if e.Reason == ReasonRollover {
			rollovers++
		}
	})
	defer unsubscribe()

	clock.advanceDays(1)
	for i := 0; i < 3; i++ {
		got, err := store.Load(ctx, "p1")
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if got.Streak != 2 || got.LastPlayDate != "2025-01-02" {
			t.Fatalf("load %d: unexpected %+v", i, got)
		}
	}
	if rollovers != 1 {
		t.Fatalf("expected exactly one rollover, got %d", rollovers)
	}
}

func TestStreakAchievementsAcrossDays(t *testing.T) {
	ctx := context.Background()
	store, clock := newTestStore(t, kvstore.NewMemory())

	for day := 1; day <= 3; day++ {
		if _, err := store.RecordScore(ctx, "p1", 5, quizProgress); err != nil {
			t.Fatalf("day %d: %v", day, err)
		}
		clock.advanceDays(1)
	}
	clock.advanceDays(-1)

	got, err := store.Load(ctx, "p1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Streak != 3 || !got.Achievements.Has(gamification.AchievementStreak3) {
		t.Fatalf("expected streak-3 after three days, got %+v", got)
	}

	clock.advanceDays(3)
	got, err = store.Load(ctx, "p1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Streak != 1 {
		t.Fatalf("expected streak reset after a gap, got %d", got.Streak)
	}
	if !got.Achievements.Has(gamification.AchievementStreak3) {
		t.Fatalf("achievements must never be revoked")
	}
}

func TestResetRestoresDefaults(t *testing.T) {
	ctx := context.Background()
	store, clock := newTestStore(t, kvstore.NewMemory())

	if _, err := store.RecordScore(ctx, "p1", 100, quizCompleted); err != nil {
		t.Fatalf("RecordScore: %v", err)
	}
	if _, err := store.Reset(ctx, "p1"); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	clock.advanceDays(5)
	got, err := store.Load(ctx, "p1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !got.Equal(gamification.NewProgress()) {
		t.Fatalf("expected defaults after reset, got %+v", got)
	}
}

type failingKV struct {
	kvstore.Store
}

func (failingKV) Set(context.Context, string, []byte) error {
	return errors.New("quota exceeded")
}

func TestWriteFailureKeepsInMemoryState(t *testing.T) {
	ctx := context.Background()
	cached, err := kvstore.NewCached(failingKV{Store: kvstore.NewMemory()}, 16)
	if err != nil {
		t.Fatalf("NewCached: %v", err)
	}
	store, _ := newTestStore(t, cached)

	result, err := store.RecordScore(ctx, "p1", 10, quizProgress)
	if err != nil {
		t.Fatalf("write failures must be swallowed, got %v", err)
	}
	got, err := store.Load(ctx, "p1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !got.Equal(result.Progress) {
		t.Fatalf("expected in-memory state %+v, got %+v", result.Progress, got)
	}
}

func TestWatchReportsExternalWrites(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shared := kvstore.NewMemory()
	local, _ := newTestStore(t, shared)
	other, _ := newTestStore(t, shared)

	var got []events.ProgressChanged
	local.Subscribe(func(e events.ProgressChanged) {
		if e.External {
			got = append(got, e)
		}
	})
	if err := local.Watch(ctx); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	if _, err := other.RecordScore(ctx, "p2", 20, quizProgress); err != nil {
		t.Fatalf("RecordScore: %v", err)
	}
	if err := shared.Set(ctx, "ganga:leaderboard", []byte("[]")); err != nil {
		t.Fatalf("unrelated write: %v", err)
	}

	if len(got) != 1 {
		t.Fatalf("expected one external event, got %d", len(got))
	}
	if got[0].ProfileID != "p2" || got[0].Points != 22 || got[0].Reason != ReasonExternal {
		t.Fatalf("unexpected event %+v", got[0])
	}
}

func TestTodayUsesLocation(t *testing.T) {
	kolkata := time.FixedZone("IST", 5*3600+1800)
	clock := &fakeClock{now: time.Date(2025, 1, 1, 20, 0, 0, 0, time.UTC)}
	store := NewStore(kvstore.NewMemory(), Options{Location: kolkata, Clock: clock, Logger: logging.Discard()})

	if got := store.Today(); got != "2025-01-02" {
		t.Fatalf("expected 2025-01-02 in IST, got %s", got)
	}
}

// Package dailyreward grants a fixed reward at most once per calendar day per profile.
package dailyreward

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/HarshavardhanKurtkoti/ChaCha-Chaudari-sub000/internal/gamification"
	"github.com/HarshavardhanKurtkoti/ChaCha-Chaudari-sub000/internal/kvstore"
	"github.com/HarshavardhanKurtkoti/ChaCha-Chaudari-sub000/internal/progress"
	"github.com/HarshavardhanKurtkoti/ChaCha-Chaudari-sub000/shared-libs/events"
	"github.com/HarshavardhanKurtkoti/ChaCha-Chaudari-sub000/shared-libs/pubsub"
)

// BaseReward is the award before the streak multiplier.
const BaseReward = 15

const recordName = "dailyRewardClaim"

var claimMeta = gamification.ScoreMeta{Mission: gamification.MissionDaily, Event: gamification.EventClaimed}

// CanClaim reports whether a reward last claimed on lastClaimDate may be claimed today.
func CanClaim(lastClaimDate, today string) bool {
	return lastClaimDate != today
}

// Status describes a profile's claim state for today.
type Status struct {
	LastClaimDate string `json:"lastClaimDate"`
	Today         string `json:"today"`
	Claimable     bool   `json:"claimable"`
	BaseReward    int    `json:"baseReward"`
}

// ClaimResult is the outcome of Claim. Score is nil when the reward was already claimed.
type ClaimResult struct {
	Claimed        bool                  `json:"claimed"`
	AlreadyClaimed bool                  `json:"alreadyClaimed"`
	ClaimDate      string                `json:"claimDate"`
	Score          *progress.ScoreResult `json:"score,omitempty"`
}

// Gate pairs the claim-date record with the progress store that receives the award.
type Gate struct {
	kv       kvstore.Store
	ns       string
	progress *progress.Store
	logger   *slog.Logger
	hub      *pubsub.Hub[events.DailyRewardClaimed]

	mu sync.Mutex
}

// NewGate builds a Gate. Claim dates are stored under "<namespace>:<profile>:dailyRewardClaim".
func NewGate(kv kvstore.Store, namespace string, progressStore *progress.Store, logger *slog.Logger) *Gate {
	if namespace == "" {
		namespace = "ganga"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{
		kv:       kv,
		ns:       namespace,
		progress: progressStore,
		logger:   logger,
		hub:      pubsub.NewHub[events.DailyRewardClaimed](pubsub.TopicDailyRewardEvents),
	}
}

// Status reports whether the profile can claim today.
func (g *Gate) Status(ctx context.Context, profileID string) (Status, error) {
	profileID = strings.TrimSpace(profileID)
	if profileID == "" {
		return Status{}, progress.ErrMissingProfileID
	}

	today := g.progress.Today()
	last := g.lastClaim(ctx, profileID)
	return Status{
		LastClaimDate: last,
		Today:         today,
		Claimable:     CanClaim(last, today),
		BaseReward:    BaseReward,
	}, nil
}

// Claim awards BaseReward through the progress store and records today as the claim date.
// A second claim on the same day changes nothing.
func (g *Gate) Claim(ctx context.Context, profileID string) (ClaimResult, error) {
	profileID = strings.TrimSpace(profileID)
	if profileID == "" {
		return ClaimResult{}, progress.ErrMissingProfileID
	}

	g.mu.Lock()
	today := g.progress.Today()
	last := g.lastClaim(ctx, profileID)
	if !CanClaim(last, today) {
		g.mu.Unlock()
		return ClaimResult{AlreadyClaimed: true, ClaimDate: last}, nil
	}

	score, err := g.progress.RecordScore(ctx, profileID, BaseReward, claimMeta)
	if err != nil {
		g.mu.Unlock()
		return ClaimResult{}, err
	}
	if err := kvstore.SetJSON(ctx, g.kv, g.key(profileID), today); err != nil {
		g.logger.Error("daily reward claim write failed",
			slog.String("profile_id", profileID),
			slog.Any("error", err),
		)
	}
	g.mu.Unlock()

	g.hub.Publish(events.DailyRewardClaimed{
		ProfileID:  profileID,
		ClaimDate:  today,
		Delta:      score.Unlocks.Delta,
		OccurredAt: g.progress.Now().UTC(),
	})
	return ClaimResult{Claimed: true, ClaimDate: today, Score: &score}, nil
}

// Subscribe registers fn for successful claims and returns the unsubscribe func.
func (g *Gate) Subscribe(fn func(events.DailyRewardClaimed)) func() {
	return g.hub.Subscribe(fn)
}

func (g *Gate) key(profileID string) string {
	return kvstore.Key(g.ns, profileID, recordName)
}

func (g *Gate) lastClaim(ctx context.Context, profileID string) string {
	var last string
	if _, err := kvstore.GetJSON(ctx, g.kv, g.key(profileID), &last); err != nil {
		g.logger.Warn("daily reward claim read failed", slog.String("profile_id", profileID), slog.Any("error", err))
		return ""
	}
	return last
}

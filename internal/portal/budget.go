package portal

import (
	"context"
	"log/slog"
	"sync"

	"github.com/HarshavardhanKurtkoti/ChaCha-Chaudari-sub000/internal/kvstore"
)

const budgetRecordName = "reportedScore"

// reportRecord is the persisted allowance usage for one profile.
type reportRecord struct {
	Date       string `json:"date"`
	BasePoints int    `json:"basePoints"`
}

// reportBudget meters client-reported base points per profile and calendar day.
type reportBudget struct {
	kv     kvstore.Store
	ns     string
	limit  int
	logger *slog.Logger

	mu sync.Mutex
}

func (b *reportBudget) key(profileID string) string {
	return kvstore.Key(b.ns, profileID, budgetRecordName)
}

// reserve books basePoints against today's allowance or returns ErrReportLimit.
func (b *reportBudget) reserve(ctx context.Context, profileID, today string, basePoints int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var rec reportRecord
	if _, err := kvstore.GetJSON(ctx, b.kv, b.key(profileID), &rec); err != nil {
		b.logger.Warn("reported score record unreadable, starting fresh",
			slog.String("profile_id", profileID),
			slog.Any("error", err),
		)
		rec = reportRecord{}
	}
	if rec.Date != today {
		rec = reportRecord{Date: today}
	}
	if rec.BasePoints+basePoints > b.limit {
		return ErrReportLimit
	}

	rec.BasePoints += basePoints
	if err := kvstore.SetJSON(ctx, b.kv, b.key(profileID), rec); err != nil {
		b.logger.Error("reported score record write failed",
			slog.String("profile_id", profileID),
			slog.Any("error", err),
		)
	}
	return nil
}

package portal

import (
	"context"

	"github.com/HarshavardhanKurtkoti/ChaCha-Chaudari-sub000/internal/dailyreward"
	"github.com/HarshavardhanKurtkoti/ChaCha-Chaudari-sub000/internal/games"
	"github.com/HarshavardhanKurtkoti/ChaCha-Chaudari-sub000/internal/gamification"
	"github.com/HarshavardhanKurtkoti/ChaCha-Chaudari-sub000/internal/leaderboard"
	"github.com/HarshavardhanKurtkoti/ChaCha-Chaudari-sub000/internal/player"
	"github.com/HarshavardhanKurtkoti/ChaCha-Chaudari-sub000/internal/progress"
)

// Catalog lists everything a player can unlock.
type Catalog struct {
	Badges       []gamification.BadgeRule   `json:"badges"`
	Achievements []gamification.Achievement `json:"achievements"`
	Multiplier   MultiplierRule             `json:"multiplier"`
}

// MultiplierRule documents the streak bonus.
type MultiplierRule struct {
	PerStreakDay float64 `json:"perStreakDay"`
	Cap          float64 `json:"cap"`
}

// Dashboard is everything the portal home screen shows for one player.
type Dashboard struct {
	Profile     player.Profile        `json:"profile"`
	Progress    gamification.Progress `json:"progress"`
	DailyReward dailyreward.Status    `json:"dailyReward"`
	Leaderboard []leaderboard.Entry   `json:"leaderboard"`
	Rank        *leaderboard.Ranked   `json:"rank,omitempty"`
}

// ScoreInput is a scoring event reported by a client-side mini-game.
type ScoreInput struct {
	BasePoints int                    `json:"basePoints"`
	Meta       gamification.ScoreMeta `json:"meta"`
}

// QuizState is returned by every quiz operation.
type QuizState struct {
	SessionID string                `json:"sessionId"`
	Quiz      games.QuizView        `json:"quiz"`
	Outcome   *games.Outcome        `json:"outcome,omitempty"`
	Score     *progress.ScoreResult `json:"score,omitempty"`
}

// TrashState is returned by every trash-sort operation.
type TrashState struct {
	SessionID string                `json:"sessionId"`
	Trash     games.TrashView       `json:"trash"`
	Outcome   *games.Outcome        `json:"outcome,omitempty"`
	Score     *progress.ScoreResult `json:"score,omitempty"`
}

// Notification is one change delivered to a subscriber. Topic is one of the pubsub topics.
type Notification struct {
	Topic string `json:"topic"`
	Data  any    `json:"data"`
}

// Service is the gamification facade used by the HTTP API and the CLI.
type Service interface {
	Catalog() Catalog
	Dashboard(ctx context.Context, id player.Identity) (*Dashboard, error)

	Progress(ctx context.Context, profileID string) (gamification.Progress, error)
	RecordScore(ctx context.Context, id player.Identity, input ScoreInput) (*progress.ScoreResult, error)
	ResetProgress(ctx context.Context, profileID string) (gamification.Progress, error)

	Leaderboard(ctx context.Context) []leaderboard.Entry
	SearchLeaderboard(ctx context.Context, query string) []leaderboard.Ranked
	SubmitLeaderboard(ctx context.Context, id player.Identity) ([]leaderboard.Entry, error)
	ResetLeaderboard(ctx context.Context)

	DailyStatus(ctx context.Context, profileID string) (dailyreward.Status, error)
	ClaimDaily(ctx context.Context, id player.Identity) (*dailyreward.ClaimResult, error)

	Player(ctx context.Context, id player.Identity) (player.Profile, error)
	SetPlayerName(ctx context.Context, id player.Identity, name string) (player.Profile, error)

	StartQuiz(ctx context.Context, id player.Identity) (*QuizState, error)
	Quiz(ctx context.Context, id player.Identity, sessionID string) (*QuizState, error)
	AnswerQuiz(ctx context.Context, id player.Identity, sessionID string, choice int) (*QuizState, error)
	NextQuiz(ctx context.Context, id player.Identity, sessionID string) (*QuizState, error)

	StartTrash(ctx context.Context, id player.Identity) (*TrashState, error)
	Trash(ctx context.Context, id player.Identity, sessionID string) (*TrashState, error)
	SortTrash(ctx context.Context, id player.Identity, sessionID, bin string) (*TrashState, error)
	NextTrash(ctx context.Context, id player.Identity, sessionID string) (*TrashState, error)

	Subscribe(profileID string, fn func(Notification)) func()
}

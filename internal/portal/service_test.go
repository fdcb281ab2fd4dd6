package portal

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/HarshavardhanKurtkoti/ChaCha-Chaudari-sub000/internal/dailyreward"
	"github.com/HarshavardhanKurtkoti/ChaCha-Chaudari-sub000/internal/games"
	"github.com/HarshavardhanKurtkoti/ChaCha-Chaudari-sub000/internal/gamification"
	"github.com/HarshavardhanKurtkoti/ChaCha-Chaudari-sub000/internal/kvstore"
	"github.com/HarshavardhanKurtkoti/ChaCha-Chaudari-sub000/internal/leaderboard"
	"github.com/HarshavardhanKurtkoti/ChaCha-Chaudari-sub000/internal/player"
	"github.com/HarshavardhanKurtkoti/ChaCha-Chaudari-sub000/internal/progress"
	"github.com/HarshavardhanKurtkoti/ChaCha-Chaudari-sub000/shared-libs/logging"
	"github.com/HarshavardhanKurtkoti/ChaCha-Chaudari-sub000/shared-libs/pubsub"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

type counterIDs struct{ n int }

func (c *counterIDs) NewID() string {
	c.n++
	return fmt.Sprintf("s%d", c.n)
}

func newTestService(t *testing.T) (Service, *fakeClock) {
	t.Helper()
	logger := logging.Discard()
	kv := kvstore.NewMemory()
	clock := &fakeClock{now: time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)}

	progressStore := progress.NewStore(kv, progress.Options{Namespace: "ganga", Clock: clock, Logger: logger})
	content, err := games.DefaultContent()
	if err != nil {
		t.Fatalf("DefaultContent: %v", err)
	}
	sessions, err := games.NewSessions(8, content,
		games.WithIDGenerator(&counterIDs{}),
		games.WithRandSource(func() *rand.Rand { return rand.New(rand.NewPCG(7, 7)) }),
	)
	if err != nil {
		t.Fatalf("NewSessions: %v", err)
	}

	svc := NewService(Deps{
		Progress:    progressStore,
		Leaderboard: leaderboard.NewStore(kv, "ganga", logger),
		Daily:       dailyreward.NewGate(kv, "ganga", progressStore, logger),
		Players:     player.NewResolver(player.NewNames(kv, "ganga", logger), player.NewMemoryDirectory(), logger),
		Sessions:    sessions,
		Logger:      logger,
	})
	return svc, clock
}

func TestQuizRecordsEveryAnswerAndUpdatesLeaderboard(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	id := player.Identity{ProfileID: "p1", Name: "Asha"}

	state, err := svc.StartQuiz(ctx, id)
	if err != nil {
		t.Fatalf("StartQuiz: %v", err)
	}
	total := state.Quiz.Total

	content, _ := games.DefaultContent()
	for i := 0; i < total; i++ {
		answered, err := svc.AnswerQuiz(ctx, id, state.SessionID, content.Questions[i].Answer)
		if err != nil {
			t.Fatalf("AnswerQuiz %d: %v", i, err)
		}
		if answered.Score == nil || answered.Outcome == nil || !answered.Outcome.Correct {
			t.Fatalf("question %d: expected a recorded correct answer, got %+v", i, answered)
		}
		if _, err := svc.NextQuiz(ctx, id, state.SessionID); err != nil {
			t.Fatalf("NextQuiz %d: %v", i, err)
		}
	}

	final, err := svc.Quiz(ctx, id, state.SessionID)
	if err != nil {
		t.Fatalf("Quiz: %v", err)
	}
	if final.Quiz.Phase != games.PhaseFinished || final.Quiz.Correct != total {
		t.Fatalf("unexpected final state %+v", final.Quiz)
	}

	p, err := svc.Progress(ctx, "p1")
	if err != nil {
		t.Fatalf("Progress: %v", err)
	}
	if p.GamesPlayed != total || !p.Achievements.Has(gamification.AchievementFirstQuiz) {
		t.Fatalf("unexpected progress %+v", p)
	}

	board := svc.Leaderboard(ctx)
	if len(board) != 1 || board[0].Name != "Asha" || board[0].Score != p.Points {
		t.Fatalf("unexpected leaderboard %+v (points %d)", board, p.Points)
	}
}

func TestAbandonedQuizKeepsEarnedPoints(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	id := player.Identity{ProfileID: "p1"}

	state, err := svc.StartQuiz(ctx, id)
	if err != nil {
		t.Fatalf("StartQuiz: %v", err)
	}

	content, _ := games.DefaultContent()
	for i := 0; i < 3; i++ {
		if _, err := svc.AnswerQuiz(ctx, id, state.SessionID, content.Questions[i].Answer); err != nil {
			t.Fatalf("AnswerQuiz %d: %v", i, err)
		}
		if _, err := svc.NextQuiz(ctx, id, state.SessionID); err != nil {
			t.Fatalf("NextQuiz %d: %v", i, err)
		}
	}

	p, err := svc.Progress(ctx, "p1")
	if err != nil {
		t.Fatalf("Progress: %v", err)
	}
	// Three correct answers at streak 1: 3 * round(10 * 1.1).
	if p.Points != 33 || p.GamesPlayed != 3 {
		t.Fatalf("expected incremental persistence, got %+v", p)
	}
	if p.Achievements.Has(gamification.AchievementFirstQuiz) {
		t.Fatalf("first-quiz must wait for the final question")
	}
}

func TestQuizSessionsAreOwned(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	state, err := svc.StartQuiz(ctx, player.Identity{ProfileID: "p1"})
	if err != nil {
		t.Fatalf("StartQuiz: %v", err)
	}
	_, err = svc.AnswerQuiz(ctx, player.Identity{ProfileID: "intruder"}, state.SessionID, 0)
	if !errors.Is(err, games.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if _, err := svc.StartQuiz(ctx, player.Identity{}); !errors.Is(err, progress.ErrMissingProfileID) {
		t.Fatalf("expected ErrMissingProfileID, got %v", err)
	}
}

func TestTrashWrongSortDoesNotScore(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	id := player.Identity{ProfileID: "p1"}

	state, err := svc.StartTrash(ctx, id)
	if err != nil {
		t.Fatalf("StartTrash: %v", err)
	}
	item := state.Trash.Item
	if item == nil {
		t.Fatalf("expected an item on the first round")
	}

	content, _ := games.DefaultContent()
	var expected, wrong string
	for _, it := range content.Trash.Items {
		if it.Name == item.Name {
			expected = it.Bin
		}
	}
	for _, b := range content.Trash.Bins {
		if b.ID != expected {
			wrong = b.ID
			break
		}
	}

	sorted, err := svc.SortTrash(ctx, id, state.SessionID, wrong)
	if err != nil {
		t.Fatalf("SortTrash: %v", err)
	}
	if sorted.Score != nil || sorted.Outcome.Correct {
		t.Fatalf("wrong sort must not score, got %+v", sorted)
	}
	p, _ := svc.Progress(ctx, "p1")
	if p.GamesPlayed != 0 || p.Points != 0 {
		t.Fatalf("expected untouched progress, got %+v", p)
	}

	next, err := svc.NextTrash(ctx, id, state.SessionID)
	if err != nil {
		t.Fatalf("NextTrash: %v", err)
	}
	if next.Trash.Round != 2 {
		t.Fatalf("expected round 2, got %d", next.Trash.Round)
	}

	for _, it := range content.Trash.Items {
		if it.Name == next.Trash.Item.Name {
			expected = it.Bin
		}
	}
	scored, err := svc.SortTrash(ctx, id, state.SessionID, expected)
	if err != nil {
		t.Fatalf("SortTrash: %v", err)
	}
	if scored.Score == nil || !scored.Score.Progress.Achievements.Has(gamification.AchievementFirstTrash) {
		t.Fatalf("expected first-trash on a correct sort, got %+v", scored.Score)
	}
}

func TestRecordScoreValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	id := player.Identity{ProfileID: "p1"}

	cases := []ScoreInput{
		{BasePoints: 10, Meta: gamification.ScoreMeta{Mission: gamification.MissionDaily, Event: gamification.EventClaimed}},
		{BasePoints: -1, Meta: gamification.ScoreMeta{Mission: gamification.MissionQuiz}},
		{BasePoints: MaxReportedBasePoints + 1, Meta: gamification.ScoreMeta{Mission: gamification.MissionTrash}},
	}
	for _, input := range cases {
		if _, err := svc.RecordScore(ctx, id, input); !errors.Is(err, ErrInvalidScore) {
			t.Fatalf("RecordScore(%+v): expected ErrInvalidScore, got %v", input, err)
		}
	}

	result, err := svc.RecordScore(ctx, id, ScoreInput{BasePoints: 10, Meta: gamification.ScoreMeta{Mission: gamification.MissionQuiz, Event: gamification.EventProgress}})
	if err != nil {
		t.Fatalf("RecordScore: %v", err)
	}
	if result.Progress.Points != 11 {
		t.Fatalf("expected 11 points, got %d", result.Progress.Points)
	}
	if board := svc.Leaderboard(ctx); len(board) != 0 {
		t.Fatalf("reported scores must not reach the board, got %+v", board)
	}
}

func TestReportedPointsAreCappedPerDay(t *testing.T) {
	ctx := context.Background()
	svc, clock := newTestService(t)
	id := player.Identity{ProfileID: "p1", Name: "Asha"}
	input := func(base int) ScoreInput {
		return ScoreInput{BasePoints: base, Meta: gamification.ScoreMeta{Mission: gamification.MissionTrash, Event: gamification.EventProgress}}
	}

	if _, err := svc.RecordScore(ctx, id, input(60)); err != nil {
		t.Fatalf("RecordScore: %v", err)
	}
	if _, err := svc.RecordScore(ctx, id, input(MaxReportedBasePointsPerDay-60)); err != nil {
		t.Fatalf("RecordScore up to the allowance: %v", err)
	}
	if _, err := svc.RecordScore(ctx, id, input(1)); !errors.Is(err, ErrReportLimit) {
		t.Fatalf("expected ErrReportLimit, got %v", err)
	}
	if _, err := svc.RecordScore(ctx, player.Identity{ProfileID: "p2"}, input(10)); err != nil {
		t.Fatalf("another profile has its own allowance: %v", err)
	}

	p, _ := svc.Progress(ctx, "p1")
	before := p.Points

	clock.now = clock.now.AddDate(0, 0, 1)
	if _, err := svc.RecordScore(ctx, id, input(10)); err != nil {
		t.Fatalf("expected a fresh allowance the next day, got %v", err)
	}
	p, _ = svc.Progress(ctx, "p1")
	if p.Points <= before {
		t.Fatalf("expected points to grow, got %d after %d", p.Points, before)
	}
	if board := svc.Leaderboard(ctx); len(board) != 0 {
		t.Fatalf("reported scores must not reach the board, got %+v", board)
	}

	board, err := svc.SubmitLeaderboard(ctx, id)
	if err != nil {
		t.Fatalf("SubmitLeaderboard: %v", err)
	}
	if len(board) != 1 || board[0].Name != "Asha" || board[0].Score != p.Points {
		t.Fatalf("expected explicit submit to post %d points, got %+v", p.Points, board)
	}
}

func TestUnnamedProfilesStayOffTheBoard(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	anon := player.Identity{ProfileID: "anon"}

	if _, err := svc.ClaimDaily(ctx, anon); err != nil {
		t.Fatalf("ClaimDaily: %v", err)
	}
	if board := svc.Leaderboard(ctx); len(board) != 0 {
		t.Fatalf("expected no entry for an unnamed profile, got %+v", board)
	}
	if _, err := svc.SubmitLeaderboard(ctx, anon); !errors.Is(err, ErrNameRequired) {
		t.Fatalf("expected ErrNameRequired, got %v", err)
	}

	if _, err := svc.SetPlayerName(ctx, anon, "Ghat Guardian"); err != nil {
		t.Fatalf("SetPlayerName: %v", err)
	}
	board, err := svc.SubmitLeaderboard(ctx, anon)
	if err != nil {
		t.Fatalf("SubmitLeaderboard: %v", err)
	}
	if len(board) != 1 || board[0].Name != "Ghat Guardian" {
		t.Fatalf("expected the stored name on the board, got %+v", board)
	}
}

func TestDailyClaimUpdatesBoardAndNotifies(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	id := player.Identity{ProfileID: "p1"}

	if _, err := svc.SetPlayerName(ctx, id, "  Ghat   Guardian "); err != nil {
		t.Fatalf("SetPlayerName: %v", err)
	}

	var topics []string
	unsubscribe := svc.Subscribe("p1", func(n Notification) { topics = append(topics, n.Topic) })
	defer unsubscribe()

	result, err := svc.ClaimDaily(ctx, id)
	if err != nil {
		t.Fatalf("ClaimDaily: %v", err)
	}
	if !result.Claimed {
		t.Fatalf("expected claim, got %+v", result)
	}
	again, err := svc.ClaimDaily(ctx, id)
	if err != nil {
		t.Fatalf("ClaimDaily: %v", err)
	}
	if !again.AlreadyClaimed {
		t.Fatalf("expected already claimed, got %+v", again)
	}

	board := svc.Leaderboard(ctx)
	if len(board) != 1 || board[0].Name != "Ghat Guardian" || board[0].Score != 17 {
		t.Fatalf("unexpected board %+v", board)
	}

	want := []string{pubsub.TopicProgressEvents, pubsub.TopicDailyRewardEvents, pubsub.TopicLeaderboardEvents}
	if len(topics) != len(want) {
		t.Fatalf("expected topics %v, got %v", want, topics)
	}
	for i := range want {
		if topics[i] != want[i] {
			t.Fatalf("expected topics %v, got %v", want, topics)
		}
	}
}

func TestSubscribeFiltersOtherProfiles(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	var got []Notification
	defer svc.Subscribe("p1", func(n Notification) { got = append(got, n) })()

	if _, err := svc.ResetProgress(ctx, "p2"); err != nil {
		t.Fatalf("ResetProgress: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no notifications for another profile, got %+v", got)
	}
}

func TestDashboard(t *testing.T) {
	ctx := context.Background()
	svc, clock := newTestService(t)
	id := player.Identity{ProfileID: "p1", Name: "Asha"}

	if _, err := svc.ClaimDaily(ctx, id); err != nil {
		t.Fatalf("ClaimDaily: %v", err)
	}
	clock.now = clock.now.AddDate(0, 0, 1)

	dash, err := svc.Dashboard(ctx, id)
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}
	if dash.Profile.Name != "Asha" || dash.Profile.Source != player.SourceAccount {
		t.Fatalf("unexpected profile %+v", dash.Profile)
	}
	if dash.Progress.Streak != 2 || dash.Progress.LastPlayDate != "2025-06-02" {
		t.Fatalf("expected reconciled streak, got %+v", dash.Progress)
	}
	if !dash.DailyReward.Claimable {
		t.Fatalf("expected claimable on the next day")
	}
	if dash.Rank == nil || dash.Rank.Rank != 1 {
		t.Fatalf("expected rank 1, got %+v", dash.Rank)
	}

	if _, err := svc.Dashboard(ctx, player.Identity{}); !errors.Is(err, progress.ErrMissingProfileID) {
		t.Fatalf("expected ErrMissingProfileID, got %v", err)
	}
}

func TestCatalog(t *testing.T) {
	svc, _ := newTestService(t)
	c := svc.Catalog()
	if len(c.Badges) != len(gamification.Badges()) || c.Multiplier.Cap != 1.5 || c.Multiplier.PerStreakDay != 0.1 {
		t.Fatalf("unexpected catalog %+v", c)
	}
}

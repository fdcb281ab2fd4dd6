// Package portal ties the gamification stores, the mini-games and player names together
// behind one Service.
package portal

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/HarshavardhanKurtkoti/ChaCha-Chaudari-sub000/internal/dailyreward"
	"github.com/HarshavardhanKurtkoti/ChaCha-Chaudari-sub000/internal/games"
	"github.com/HarshavardhanKurtkoti/ChaCha-Chaudari-sub000/internal/gamification"
	"github.com/HarshavardhanKurtkoti/ChaCha-Chaudari-sub000/internal/kvstore"
	"github.com/HarshavardhanKurtkoti/ChaCha-Chaudari-sub000/internal/leaderboard"
	"github.com/HarshavardhanKurtkoti/ChaCha-Chaudari-sub000/internal/player"
	"github.com/HarshavardhanKurtkoti/ChaCha-Chaudari-sub000/internal/progress"
	"github.com/HarshavardhanKurtkoti/ChaCha-Chaudari-sub000/shared-libs/events"
	"github.com/HarshavardhanKurtkoti/ChaCha-Chaudari-sub000/shared-libs/pubsub"
)

// Deps are the collaborators a Service needs. Store holds the self-reported score allowance
// and defaults to an in-memory store.
type Deps struct {
	Store       kvstore.Store
	Namespace   string
	Progress    *progress.Store
	Leaderboard *leaderboard.Store
	Daily       *dailyreward.Gate
	Players     *player.Resolver
	Sessions    *games.Sessions
	Logger      *slog.Logger
}

type service struct {
	progress    *progress.Store
	leaderboard *leaderboard.Store
	daily       *dailyreward.Gate
	players     *player.Resolver
	sessions    *games.Sessions
	budget      *reportBudget
	logger      *slog.Logger
}

// NewService creates a new portal service
func NewService(deps Deps) Service {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	kv := deps.Store
	if kv == nil {
		kv = kvstore.NewMemory()
	}
	namespace := deps.Namespace
	if namespace == "" {
		namespace = "ganga"
	}
	return &service{
		progress:    deps.Progress,
		leaderboard: deps.Leaderboard,
		daily:       deps.Daily,
		players:     deps.Players,
		sessions:    deps.Sessions,
		budget:      &reportBudget{kv: kv, ns: namespace, limit: MaxReportedBasePointsPerDay, logger: logger},
		logger:      logger,
	}
}

func (s *service) Catalog() Catalog {
	return Catalog{
		Badges:       gamification.Badges(),
		Achievements: gamification.Achievements(),
		Multiplier: MultiplierRule{
			PerStreakDay: gamification.MultiplierStep,
			Cap:          gamification.MultiplierCap,
		},
	}
}

func (s *service) Dashboard(ctx context.Context, id player.Identity) (*Dashboard, error) {
	if id.ProfileID == "" {
		return nil, progress.ErrMissingProfileID
	}

	var (
		out   Dashboard
		board []leaderboard.Entry
	)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		p, err := s.progress.Load(ctx, id.ProfileID)
		if err != nil {
			return err
		}
		out.Progress = p
		return nil
	})

	g.Go(func() error {
		st, err := s.daily.Status(ctx, id.ProfileID)
		if err != nil {
			return err
		}
		out.DailyReward = st
		return nil
	})

	g.Go(func() error {
		out.Profile = s.players.Resolve(ctx, id)
		return nil
	})

	g.Go(func() error {
		board = s.leaderboard.Load(ctx)
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	out.Leaderboard = board
	for i, entry := range board {
		if entry.Name == out.Profile.Name {
			out.Rank = &leaderboard.Ranked{Entry: entry, Rank: i + 1}
			break
		}
	}
	return &out, nil
}

func (s *service) Progress(ctx context.Context, profileID string) (gamification.Progress, error) {
	return s.progress.Load(ctx, profileID)
}

func (s *service) RecordScore(ctx context.Context, id player.Identity, input ScoreInput) (*progress.ScoreResult, error) {
	switch input.Meta.Mission {
	case gamification.MissionQuiz, gamification.MissionTrash:
	default:
		return nil, ErrInvalidScore
	}
	if input.BasePoints < 0 || input.BasePoints > MaxReportedBasePoints {
		return nil, ErrInvalidScore
	}
	if id.ProfileID == "" {
		return nil, progress.ErrMissingProfileID
	}
	if err := s.budget.reserve(ctx, id.ProfileID, s.progress.Today(), input.BasePoints); err != nil {
		return nil, err
	}

	// Self-reported events count toward progress only; the shared board is fed by the
	// server-run games and the daily reward.
	result, err := s.progress.RecordScore(ctx, id.ProfileID, input.BasePoints, input.Meta)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *service) ResetProgress(ctx context.Context, profileID string) (gamification.Progress, error) {
	return s.progress.Reset(ctx, profileID)
}

func (s *service) Leaderboard(ctx context.Context) []leaderboard.Entry {
	return s.leaderboard.Load(ctx)
}

func (s *service) SearchLeaderboard(ctx context.Context, query string) []leaderboard.Ranked {
	return s.leaderboard.Search(ctx, query)
}

// SubmitLeaderboard posts the player's current points under their resolved name. Profiles
// without a name of their own are refused.
func (s *service) SubmitLeaderboard(ctx context.Context, id player.Identity) ([]leaderboard.Entry, error) {
	p, err := s.progress.Load(ctx, id.ProfileID)
	if err != nil {
		return nil, err
	}
	profile := s.players.Resolve(ctx, id)
	if profile.Source == player.SourceDefault {
		return nil, ErrNameRequired
	}
	return s.leaderboard.Submit(ctx, profile.Name, p.Points), nil
}

func (s *service) ResetLeaderboard(ctx context.Context) {
	s.leaderboard.Reset(ctx)
}

func (s *service) DailyStatus(ctx context.Context, profileID string) (dailyreward.Status, error) {
	return s.daily.Status(ctx, profileID)
}

func (s *service) ClaimDaily(ctx context.Context, id player.Identity) (*dailyreward.ClaimResult, error) {
	result, err := s.daily.Claim(ctx, id.ProfileID)
	if err != nil {
		return nil, err
	}
	if result.Score != nil {
		s.submitIfScored(ctx, id, *result.Score)
	}
	return &result, nil
}

func (s *service) Player(ctx context.Context, id player.Identity) (player.Profile, error) {
	if id.ProfileID == "" {
		return player.Profile{}, progress.ErrMissingProfileID
	}
	return s.players.Resolve(ctx, id), nil
}

func (s *service) SetPlayerName(ctx context.Context, id player.Identity, name string) (player.Profile, error) {
	if id.ProfileID == "" {
		return player.Profile{}, progress.ErrMissingProfileID
	}
	if _, err := s.players.Names().Set(ctx, id.ProfileID, name); err != nil {
		return player.Profile{}, err
	}
	return s.players.Resolve(ctx, id), nil
}

// ===== Quiz =====

func (s *service) StartQuiz(_ context.Context, id player.Identity) (*QuizState, error) {
	if id.ProfileID == "" {
		return nil, progress.ErrMissingProfileID
	}
	sess := s.sessions.StartQuiz(id.ProfileID)
	sess.Lock()
	defer sess.Unlock()
	return &QuizState{SessionID: sess.ID, Quiz: sess.Quiz.View()}, nil
}

func (s *service) Quiz(_ context.Context, id player.Identity, sessionID string) (*QuizState, error) {
	sess, err := s.sessions.Get(id.ProfileID, sessionID, games.KindQuiz)
	if err != nil {
		return nil, err
	}
	sess.Lock()
	defer sess.Unlock()
	return &QuizState{SessionID: sess.ID, Quiz: sess.Quiz.View()}, nil
}

func (s *service) AnswerQuiz(ctx context.Context, id player.Identity, sessionID string, choice int) (*QuizState, error) {
	sess, err := s.sessions.Get(id.ProfileID, sessionID, games.KindQuiz)
	if err != nil {
		return nil, err
	}
	sess.Lock()
	defer sess.Unlock()

	outcome, err := sess.Quiz.Answer(choice)
	if err != nil {
		return nil, err
	}
	state := &QuizState{SessionID: sess.ID, Quiz: sess.Quiz.View(), Outcome: &outcome}
	if outcome.Record {
		if state.Score, err = s.record(ctx, id, outcome.BasePoints, outcome.Meta); err != nil {
			return nil, err
		}
	}
	return state, nil
}

func (s *service) NextQuiz(_ context.Context, id player.Identity, sessionID string) (*QuizState, error) {
	sess, err := s.sessions.Get(id.ProfileID, sessionID, games.KindQuiz)
	if err != nil {
		return nil, err
	}
	sess.Lock()
	defer sess.Unlock()

	if err := sess.Quiz.Next(); err != nil {
		return nil, err
	}
	return &QuizState{SessionID: sess.ID, Quiz: sess.Quiz.View()}, nil
}

// ===== Trash sort =====

func (s *service) StartTrash(_ context.Context, id player.Identity) (*TrashState, error) {
	if id.ProfileID == "" {
		return nil, progress.ErrMissingProfileID
	}
	sess := s.sessions.StartTrash(id.ProfileID)
	sess.Lock()
	defer sess.Unlock()
	return &TrashState{SessionID: sess.ID, Trash: sess.Trash.View()}, nil
}

func (s *service) Trash(_ context.Context, id player.Identity, sessionID string) (*TrashState, error) {
	sess, err := s.sessions.Get(id.ProfileID, sessionID, games.KindTrash)
	if err != nil {
		return nil, err
	}
	sess.Lock()
	defer sess.Unlock()
	return &TrashState{SessionID: sess.ID, Trash: sess.Trash.View()}, nil
}

func (s *service) SortTrash(ctx context.Context, id player.Identity, sessionID, bin string) (*TrashState, error) {
	sess, err := s.sessions.Get(id.ProfileID, sessionID, games.KindTrash)
	if err != nil {
		return nil, err
	}
	sess.Lock()
	defer sess.Unlock()

	outcome, err := sess.Trash.Sort(bin)
	if err != nil {
		return nil, err
	}
	state := &TrashState{SessionID: sess.ID, Trash: sess.Trash.View(), Outcome: &outcome}
	if outcome.Record {
		if state.Score, err = s.record(ctx, id, outcome.BasePoints, outcome.Meta); err != nil {
			return nil, err
		}
	}
	return state, nil
}

func (s *service) NextTrash(_ context.Context, id player.Identity, sessionID string) (*TrashState, error) {
	sess, err := s.sessions.Get(id.ProfileID, sessionID, games.KindTrash)
	if err != nil {
		return nil, err
	}
	sess.Lock()
	defer sess.Unlock()

	if err := sess.Trash.Next(); err != nil {
		return nil, err
	}
	return &TrashState{SessionID: sess.ID, Trash: sess.Trash.View()}, nil
}

// ===== Notifications =====

// Subscribe delivers the profile's own progress and daily reward changes plus every
// leaderboard change.
func (s *service) Subscribe(profileID string, fn func(Notification)) func() {
	unsubProgress := s.progress.Subscribe(func(e events.ProgressChanged) {
		if e.ProfileID == profileID {
			fn(Notification{Topic: pubsub.TopicProgressEvents, Data: e})
		}
	})
	unsubBoard := s.leaderboard.Subscribe(func(e events.LeaderboardChanged) {
		fn(Notification{Topic: pubsub.TopicLeaderboardEvents, Data: e})
	})
	unsubDaily := s.daily.Subscribe(func(e events.DailyRewardClaimed) {
		if e.ProfileID == profileID {
			fn(Notification{Topic: pubsub.TopicDailyRewardEvents, Data: e})
		}
	})
	return func() {
		unsubProgress()
		unsubBoard()
		unsubDaily()
	}
}

func (s *service) record(ctx context.Context, id player.Identity, basePoints int, meta gamification.ScoreMeta) (*progress.ScoreResult, error) {
	result, err := s.progress.RecordScore(ctx, id.ProfileID, basePoints, meta)
	if err != nil {
		return nil, err
	}
	s.submitIfScored(ctx, id, result)
	return &result, nil
}

// submitIfScored posts a positive award to the board. Anonymous profiles all resolve to
// the default name and would share one entry, so they are left off.
func (s *service) submitIfScored(ctx context.Context, id player.Identity, result progress.ScoreResult) {
	if result.Unlocks.Delta <= 0 {
		return
	}
	profile := s.players.Resolve(ctx, id)
	if profile.Source == player.SourceDefault {
		s.logger.Debug("leaderboard skipped for unnamed profile", slog.String("profile_id", id.ProfileID))
		return
	}
	s.leaderboard.Submit(ctx, profile.Name, result.Progress.Points)
	s.logger.Debug("leaderboard updated",
		slog.String("profile_id", id.ProfileID),
		slog.String("name", profile.Name),
		slog.Int("points", result.Progress.Points),
	)
}

package httpapi

import (
	"bufio"
	"context"
	"encoding/json"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HarshavardhanKurtkoti/ChaCha-Chaudari-sub000/internal/dailyreward"
	"github.com/HarshavardhanKurtkoti/ChaCha-Chaudari-sub000/internal/games"
	"github.com/HarshavardhanKurtkoti/ChaCha-Chaudari-sub000/internal/gamification"
	"github.com/HarshavardhanKurtkoti/ChaCha-Chaudari-sub000/internal/kvstore"
	"github.com/HarshavardhanKurtkoti/ChaCha-Chaudari-sub000/internal/leaderboard"
	"github.com/HarshavardhanKurtkoti/ChaCha-Chaudari-sub000/internal/player"
	"github.com/HarshavardhanKurtkoti/ChaCha-Chaudari-sub000/internal/portal"
	"github.com/HarshavardhanKurtkoti/ChaCha-Chaudari-sub000/internal/progress"
	sharedauth "github.com/HarshavardhanKurtkoti/ChaCha-Chaudari-sub000/shared-libs/auth"
	sharederrors "github.com/HarshavardhanKurtkoti/ChaCha-Chaudari-sub000/shared-libs/errors"
	"github.com/HarshavardhanKurtkoti/ChaCha-Chaudari-sub000/shared-libs/logging"
	"github.com/HarshavardhanKurtkoti/ChaCha-Chaudari-sub000/shared-libs/pubsub"
	sharedserver "github.com/HarshavardhanKurtkoti/ChaCha-Chaudari-sub000/shared-libs/server"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func newTestRouter(t *testing.T, opts ...Option) http.Handler {
	t.Helper()
	logger := logging.Discard()
	kv := kvstore.NewMemory()
	clock := fixedClock{now: time.Date(2025, 2, 14, 6, 0, 0, 0, time.UTC)}

	progressStore := progress.NewStore(kv, progress.Options{Clock: clock, Logger: logger})
	content, err := games.DefaultContent()
	require.NoError(t, err)
	sessions, err := games.NewSessions(16, content, games.WithRandSource(func() *rand.Rand {
		return rand.New(rand.NewPCG(3, 4))
	}))
	require.NoError(t, err)

	service := portal.NewService(portal.Deps{
		Progress:    progressStore,
		Leaderboard: leaderboard.NewStore(kv, "", logger),
		Daily:       dailyreward.NewGate(kv, "", progressStore, logger),
		Players:     player.NewResolver(player.NewNames(kv, "", logger), nil, logger),
		Sessions:    sessions,
		Logger:      logger,
	})

	verifier, err := sharedauth.NewVerifier(sharedauth.Config{Mode: sharedauth.ModeNoop})
	require.NoError(t, err)

	return sharedserver.NewRouter("gamification-service", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(sharedauth.Middleware(verifier))
			RegisterRoutes(r, service, logger, opts...)
		})
	})
}

func do(t *testing.T, h http.Handler, method, path, userID, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestProgressDefaults(t *testing.T) {
	h := newTestRouter(t)

	rec := do(t, h, http.MethodGet, "/v1/progress/me", "p1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t,
		`{"points":0,"badges":[],"gamesPlayed":0,"achievements":[],"lastPlayDate":null,"streak":0}`,
		rec.Body.String(),
	)
}

func TestRequestsWithoutIdentityAreRejected(t *testing.T) {
	h := newTestRouter(t)

	rec := do(t, h, http.MethodGet, "/v1/progress/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, h, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRecordScore(t *testing.T) {
	h := newTestRouter(t)

	rec := do(t, h, http.MethodPost, "/v1/progress/me/score", "p1", `{"basePoints":10,"mission":"daily","event":"claimed"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	errBody := decode[sharederrors.ErrorResponse](t, rec)
	assert.Equal(t, sharederrors.CodeBadRequest, errBody.Code)
	assert.NotEmpty(t, errBody.RequestID)

	rec = do(t, h, http.MethodPost, "/v1/progress/me/score", "p1", `{"basePoints":10,"mission":"quiz","event":"completed"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	result := decode[progress.ScoreResult](t, rec)
	assert.Equal(t, 11, result.Progress.Points)
	assert.Equal(t, []string{"first-quiz"}, result.Unlocks.NewAchievements)

	rec = do(t, h, http.MethodGet, "/v1/leaderboard", "p1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"entries":[]}`, rec.Body.String())
}

func TestRecordScoreDailyAllowance(t *testing.T) {
	h := newTestRouter(t)

	rec := do(t, h, http.MethodPost, "/v1/progress/me/score", "p1", `{"basePoints":100,"mission":"trash","event":"progress"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodPost, "/v1/progress/me/score", "p1", `{"basePoints":1,"mission":"trash","event":"progress"}`)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, portal.ErrReportLimit.Error(), decode[sharederrors.ErrorResponse](t, rec).Message)

	rec = do(t, h, http.MethodGet, "/v1/progress/me", "p1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 110, decode[gamification.Progress](t, rec).Points)
}

func TestLeaderboardSubmitNeedsName(t *testing.T) {
	h := newTestRouter(t)

	rec := do(t, h, http.MethodPost, "/v1/daily-reward/me/claim", "p1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodPost, "/v1/leaderboard/me", "p1", "")
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, sharederrors.CodeConflict, decode[sharederrors.ErrorResponse](t, rec).Code)

	rec = do(t, h, http.MethodGet, "/v1/leaderboard", "p1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"entries":[]}`, rec.Body.String())
}

func TestDailyRewardClaim(t *testing.T) {
	h := newTestRouter(t)

	rec := do(t, h, http.MethodGet, "/v1/daily-reward/me", "p1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	status := decode[dailyreward.Status](t, rec)
	assert.True(t, status.Claimable)
	assert.Equal(t, "2025-02-14", status.Today)

	rec = do(t, h, http.MethodPost, "/v1/daily-reward/me/claim", "p1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	first := decode[dailyreward.ClaimResult](t, rec)
	assert.True(t, first.Claimed)

	rec = do(t, h, http.MethodPost, "/v1/daily-reward/me/claim", "p1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	second := decode[dailyreward.ClaimResult](t, rec)
	assert.True(t, second.AlreadyClaimed)
	assert.Nil(t, second.Score)
}

func TestQuizEndpoints(t *testing.T) {
	h := newTestRouter(t)

	rec := do(t, h, http.MethodPost, "/v1/games/quiz", "p1", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	state := decode[portal.QuizState](t, rec)
	require.NotEmpty(t, state.SessionID)
	require.NotNil(t, state.Quiz.Question)
	base := "/v1/games/quiz/" + state.SessionID

	rec = do(t, h, http.MethodPost, base+"/next", "p1", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, h, http.MethodPost, base+"/answer", "p1", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, base+"/answer", "p1", `{"choice":99}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, base+"/answer", "p1", `{"choice":0}`)
	require.Equal(t, http.StatusOK, rec.Code)
	answered := decode[portal.QuizState](t, rec)
	require.NotNil(t, answered.Outcome)
	require.NotNil(t, answered.Score)
	assert.Equal(t, games.PhaseAnswered, answered.Quiz.Phase)

	rec = do(t, h, http.MethodPost, base+"/answer", "p1", `{"choice":0}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, h, http.MethodGet, base, "someone-else", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodPost, base+"/next", "p1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[portal.QuizState](t, rec).Quiz.Index)
}

func TestTrashEndpoints(t *testing.T) {
	h := newTestRouter(t)

	rec := do(t, h, http.MethodPost, "/v1/games/trash", "p1", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	state := decode[portal.TrashState](t, rec)
	require.NotNil(t, state.Trash.Item)
	assert.Equal(t, games.TrashRounds, state.Trash.Rounds)
	base := "/v1/games/trash/" + state.SessionID

	rec = do(t, h, http.MethodPost, base+"/sort", "p1", `{"bin":"ocean"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, base+"/sort", "p1", `{"bin":"wet"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	sorted := decode[portal.TrashState](t, rec)
	require.NotNil(t, sorted.Outcome)
	assert.Equal(t, sorted.Outcome.Correct, sorted.Score != nil)

	rec = do(t, h, http.MethodPost, base+"/next", "p1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, decode[portal.TrashState](t, rec).Trash.Round)
}

func TestPlayerName(t *testing.T) {
	h := newTestRouter(t)

	rec := do(t, h, http.MethodGet, "/v1/players/me", "p1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, player.DefaultName, decode[player.Profile](t, rec).Name)

	rec = do(t, h, http.MethodPut, "/v1/players/me", "p1", `{"name":"   "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPut, "/v1/players/me", "p1", `{"name":"  Sangam   Scout "}`)
	require.Equal(t, http.StatusOK, rec.Code)
	profile := decode[player.Profile](t, rec)
	assert.Equal(t, "Sangam Scout", profile.Name)
	assert.Equal(t, player.SourceStored, profile.Source)

	rec = do(t, h, http.MethodPut, "/v1/players/me", "p1", `{"name":"x","extra":true}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLeaderboardSearchAndReset(t *testing.T) {
	h := newTestRouter(t, WithAdmins("ops", " "))

	do(t, h, http.MethodPut, "/v1/players/me", "p1", `{"name":"Varanasi Volunteer"}`)
	rec := do(t, h, http.MethodPost, "/v1/progress/me/score", "p1", `{"basePoints":20,"mission":"trash","event":"progress"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/v1/leaderboard/search?q=vv", "p1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"query":"vv","matches":[]}`, rec.Body.String())

	rec = do(t, h, http.MethodPost, "/v1/leaderboard/me", "p1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"entries":[{"name":"Varanasi Volunteer","score":22}]}`, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/v1/leaderboard/search?q=vv", "p1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var search struct {
		Matches []leaderboard.Ranked `json:"matches"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &search))
	require.Len(t, search.Matches, 1)
	assert.Equal(t, 1, search.Matches[0].Rank)

	rec = do(t, h, http.MethodDelete, "/v1/leaderboard", "ops", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, h, http.MethodGet, "/v1/leaderboard", "p1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"entries":[]}`, rec.Body.String())
}

func TestLeaderboardResetRequiresAdmin(t *testing.T) {
	for name, opts := range map[string][]Option{
		"no admins configured": nil,
		"other admin":          {WithAdmins("ops")},
	} {
		t.Run(name, func(t *testing.T) {
			h := newTestRouter(t, opts...)

			do(t, h, http.MethodPut, "/v1/players/me", "p1", `{"name":"Varanasi Volunteer"}`)
			do(t, h, http.MethodPost, "/v1/daily-reward/me/claim", "p1", "")

			rec := do(t, h, http.MethodDelete, "/v1/leaderboard", "p1", "")
			require.Equal(t, http.StatusForbidden, rec.Code)
			assert.Equal(t, sharederrors.CodeForbidden, decode[sharederrors.ErrorResponse](t, rec).Code)

			rec = do(t, h, http.MethodDelete, "/v1/leaderboard", "", "")
			assert.Equal(t, http.StatusUnauthorized, rec.Code)

			rec = do(t, h, http.MethodGet, "/v1/leaderboard", "p1", "")
			require.Equal(t, http.StatusOK, rec.Code)
			assert.JSONEq(t, `{"entries":[{"name":"Varanasi Volunteer","score":17}]}`, rec.Body.String())
		})
	}
}

func TestEventStream(t *testing.T) {
	srv := httptest.NewServer(newTestRouter(t))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/v1/events/me", nil)
	require.NoError(t, err)
	req.Header.Set("X-User-ID", "p1")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, ": connected\n", line)

	claim, err := http.NewRequest(http.MethodPost, srv.URL+"/v1/daily-reward/me/claim", nil)
	require.NoError(t, err)
	claim.Header.Set("X-User-ID", "p1")
	claimResp, err := http.DefaultClient.Do(claim)
	require.NoError(t, err)
	claimResp.Body.Close()

	want := "event: " + pubsub.TopicProgressEvents + "\n"
	for {
		line, err = reader.ReadString('\n')
		require.NoError(t, err)
		if line == want {
			break
		}
	}
	data, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Contains(t, data, `"profileId":"p1"`)
	assert.Contains(t, data, `"reason":"score"`)
}

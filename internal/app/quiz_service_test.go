package app_test

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trivia-quiz-service/internal/app"
	"trivia-quiz-service/internal/domain"
	"trivia-quiz-service/internal/i18n"
	"trivia-quiz-service/internal/infra/memory"
	redisstore "trivia-quiz-service/internal/infra/redis"
)

func TestStartAndPlayThrough(t *testing.T) {
	ctx := context.Background()
	service, store := newTestService(catalogFixture(), linksFixture(5))

	view, err := service.Start(ctx, domain.TierBeginner, "en")
	require.NoError(t, err)
	require.Equal(t, app.StateAwaitingAnswer, view.State)
	require.Equal(t, 10, view.Total)
	require.NotNil(t, view.Question)

	for i := 0; i < view.Total; i++ {
		v, err := service.SelectAnswer(ctx, view.ID, "B")
		require.NoError(t, err)
		assert.Equal(t, "B", v.Selected)

		v, err = service.CheckAnswer(ctx, view.ID)
		require.NoError(t, err)
		require.NotNil(t, v.Feedback)
		assert.True(t, v.Feedback.Correct)
		assert.Contains(t, v.Feedback.Message, "Correct!")

		v, err = service.NextQuestion(ctx, view.ID)
		require.NoError(t, err)
		if i < view.Total-1 {
			assert.Equal(t, i+1, v.Index)
			assert.Equal(t, app.StateAwaitingAnswer, v.State)
			continue
		}
		require.Equal(t, app.StateCompleted, v.State)
		require.NotNil(t, v.Outcome)
		assert.Equal(t, domain.Outcome{Score: 10, Total: 10}, *v.Outcome)
	}

	_, err = service.Session(ctx, view.ID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound, "completed sessions are dropped")
	assert.Zero(t, store.Len())
}

func TestStartEmptyIsNotStored(t *testing.T) {
	ctx := context.Background()
	service, store := newTestService(catalogFixture(), nil)

	view, err := service.Start(ctx, domain.TierBeginner, "th")
	require.ErrorIs(t, err, domain.ErrEmptyQuestionSet)
	assert.Equal(t, app.StateEmpty, view.State)
	assert.Zero(t, view.Total)
	assert.Zero(t, store.Len())
}

func TestStartRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(catalogFixture(), nil)

	_, err := service.Start(ctx, "expert", "en")
	assert.ErrorIs(t, err, domain.ErrInvalidDifficulty)

	_, err = service.Start(ctx, domain.TierBeginner, "xx")
	assert.ErrorIs(t, err, domain.ErrUnsupportedLanguage)
}

func TestStartWithUnavailableCatalog(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSessionStore(time.Hour)
	service := app.NewQuizService(store, brokenCatalog{}, i18n.MustLoad())

	view, err := service.Start(ctx, domain.TierBeginner, "en")
	require.ErrorIs(t, err, domain.ErrEmptyQuestionSet)
	assert.Equal(t, app.StateEmpty, view.State)
	assert.Empty(t, service.Recommendations(ctx, 3))
}

func TestWrongAnswerFeedbackIsLocalized(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(catalogFixture(), nil)

	view, err := service.Start(ctx, domain.TierBeginner, "en")
	require.NoError(t, err)

	_, err = service.SelectAnswer(ctx, view.ID, "A")
	require.NoError(t, err)
	v, err := service.CheckAnswer(ctx, view.ID)
	require.NoError(t, err)
	assert.False(t, v.Feedback.Correct)
	assert.Equal(t, "B", v.Feedback.CorrectAnswer)
	assert.Contains(t, v.Feedback.Message, "B")

	reread, err := service.Session(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, v.Feedback.Message, reread.Feedback.Message)
}

func TestServiceTransitionErrors(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(catalogFixture(), nil)

	view, err := service.Start(ctx, domain.TierBeginner, "en")
	require.NoError(t, err)

	_, err = service.CheckAnswer(ctx, view.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	_, err = service.NextQuestion(ctx, view.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	_, err = service.SelectAnswer(ctx, view.ID, "nope")
	assert.ErrorIs(t, err, domain.ErrOptionNotFound)
	_, err = service.SelectAnswer(ctx, "missing", "A")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestOverlappingRequestsScoreOnce(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	store := &interleavingStore{SessionStore: redisstore.NewSessionStore(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}), time.Hour)}
	catalog := memory.NewCatalogRepository(memory.NewStaticCatalogLoader(catalogFixture(), nil), time.Minute)
	service := app.NewQuizService(store, catalog, i18n.MustLoad(), app.WithRand(rand.New(rand.NewSource(1))))

	view, err := service.Start(ctx, domain.TierBeginner, "en")
	require.NoError(t, err)
	_, err = service.SelectAnswer(ctx, view.ID, "A")
	require.NoError(t, err)

	// The select runs after the check has read its snapshot but before it writes.
	store.between = func() {
		_, err := service.SelectAnswer(ctx, view.ID, "B")
		require.NoError(t, err)
	}
	_, err = service.CheckAnswer(ctx, view.ID)
	require.ErrorIs(t, err, domain.ErrInvalidTransition)

	current, err := service.Session(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, app.StateAwaitingAnswer, current.State)
	assert.Equal(t, "B", current.Selected)
	assert.Zero(t, current.Score)

	checked, err := service.CheckAnswer(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, checked.Score)
	_, err = service.CheckAnswer(ctx, view.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

// interleavingStore runs between once inside the next Update, after the read.
type interleavingStore struct {
	*redisstore.SessionStore
	between func()
}

func (s *interleavingStore) Update(ctx context.Context, id string, fn func(*app.Session) error) (*app.Session, error) {
	hook := s.between
	s.between = nil
	return s.SessionStore.Update(ctx, id, func(session *app.Session) error {
		if hook != nil {
			hook()
		}
		return fn(session)
	})
}

func TestQuit(t *testing.T) {
	ctx := context.Background()
	service, store := newTestService(catalogFixture(), nil)

	view, err := service.Start(ctx, domain.TierBeginner, "en")
	require.NoError(t, err)
	require.Equal(t, 1, store.Len())

	require.NoError(t, service.Quit(ctx, view.ID))
	assert.Zero(t, store.Len())
	assert.ErrorIs(t, service.Quit(ctx, view.ID), domain.ErrSessionNotFound)
}

func TestResultDefaultsTotal(t *testing.T) {
	service, _ := newTestService(nil, nil)

	r := service.Result("en", 8, 0)
	assert.Equal(t, 10, r.Total)
	assert.Equal(t, domain.ResultCongrats, r.Tier)

	r = service.Result("fr", 3, 10)
	assert.Equal(t, domain.ResultEncouragement, r.Tier)
	assert.NotEmpty(t, r.Message.Title)
}

func TestRecommendations(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(nil, linksFixture(6))

	got := service.Recommendations(ctx, 0)
	assert.Len(t, got, app.DefaultRecommendations)

	got = service.Recommendations(ctx, 10)
	assert.Len(t, got, 6)
	seen := map[string]bool{}
	for _, l := range got {
		assert.False(t, seen[l.URL], "duplicate link %s", l.URL)
		seen[l.URL] = true
	}
}

func TestTiersAreLocalized(t *testing.T) {
	service, _ := newTestService(nil, nil)

	tiers := service.Tiers("ja")
	require.Len(t, tiers, 4)
	assert.Equal(t, domain.TierBeginner, tiers[0].Tier)
	assert.Equal(t, app.ClassLevels{Lower: 1, Upper: 2}, tiers[0].ClassLevels)
	assert.Equal(t, app.ClassLevels{Lower: 4, Upper: 5}, tiers[3].ClassLevels)
	assert.NotEmpty(t, tiers[3].Name)
}

func TestWarm(t *testing.T) {
	service, _ := newTestService(catalogFixture(), linksFixture(1))
	assert.NoError(t, service.Warm(context.Background()))

	broken := app.NewQuizService(memory.NewSessionStore(0), brokenCatalog{}, i18n.MustLoad())
	assert.ErrorIs(t, broken.Warm(context.Background()), domain.ErrResourceUnavailable)
}

func newTestService(questions []domain.Question, links []domain.AffiliateLink) (*app.QuizService, *memory.SessionStore) {
	store := memory.NewSessionStore(time.Hour)
	catalog := memory.NewCatalogRepository(memory.NewStaticCatalogLoader(questions, links), time.Minute)
	ids := 0
	service := app.NewQuizService(store, catalog, i18n.MustLoad(),
		app.WithRand(rand.New(rand.NewSource(1))),
		app.WithIDGenerator(func() string {
			ids++
			return fmt.Sprintf("session-%d", ids)
		}),
	)
	return service, store
}

func catalogFixture() []domain.Question {
	var out []domain.Question
	for level := 1; level <= 5; level++ {
		out = append(out, makeQuestions(level, "en", 6)...)
	}
	return out
}

func linksFixture(n int) []domain.AffiliateLink {
	out := make([]domain.AffiliateLink, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, domain.AffiliateLink{
			URL:   fmt.Sprintf("https://example.com/item/%d", i),
			Title: fmt.Sprintf("Item %d", i),
		})
	}
	return out
}

type brokenCatalog struct{}

func (brokenCatalog) Questions(context.Context) ([]domain.Question, error) {
	return nil, fmt.Errorf("%w: questions offline", domain.ErrResourceUnavailable)
}

func (brokenCatalog) AffiliateLinks(context.Context) ([]domain.AffiliateLink, error) {
	return nil, fmt.Errorf("%w: links offline", domain.ErrResourceUnavailable)
}

package app

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"trivia-quiz-service/internal/domain"
	"trivia-quiz-service/internal/i18n"
)

// DefaultRecommendations is how many affiliate links a result page shows.
const DefaultRecommendations = 3

// SessionRepository abstracts how quiz sessions are stored (in-memory, Redis, etc).
// Get and Update return domain.ErrSessionNotFound for unknown or expired ids.
// Update applies fn and persists the result atomically: when the stored
// session changed since it was read, nothing is written and Update returns
// domain.ErrInvalidTransition.
type SessionRepository interface {
	Create(ctx context.Context, session *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	Update(ctx context.Context, id string, fn func(*Session) error) (*Session, error)
	Delete(ctx context.Context, id string) error
}

// CatalogRepository loads the question and affiliate catalogs (from cache/backing store).
type CatalogRepository interface {
	Questions(ctx context.Context) ([]domain.Question, error)
	AffiliateLinks(ctx context.Context) ([]domain.AffiliateLink, error)
}

// CatalogLoader fetches catalog content from a backing store (file, URL, Postgres).
type CatalogLoader interface {
	LoadQuestions(ctx context.Context) ([]domain.Question, error)
	LoadAffiliateLinks(ctx context.Context) ([]domain.AffiliateLink, error)
}

// Recorder receives quiz events for metrics.
type Recorder interface {
	SessionStarted(tier domain.DifficultyTier, language string, questions int)
	AnswerChecked(tier domain.DifficultyTier, correct bool)
	SessionCompleted(tier domain.DifficultyTier, outcome domain.Outcome)
	CatalogError(kind string)
}

type nopRecorder struct{}

func (nopRecorder) SessionStarted(domain.DifficultyTier, string, int)      {}
func (nopRecorder) AnswerChecked(domain.DifficultyTier, bool)              {}
func (nopRecorder) SessionCompleted(domain.DifficultyTier, domain.Outcome) {}
func (nopRecorder) CatalogError(string)                                    {}

// TierInfo describes one difficulty tier in a given language.
type TierInfo struct {
	Tier        domain.DifficultyTier `json:"tier"`
	ClassLevels ClassLevels           `json:"classLevels"`
	Name        string                `json:"name"`
	Description string                `json:"description"`
}

// ClassLevels is the lower and upper class level of a tier.
type ClassLevels struct {
	Lower int `json:"lower"`
	Upper int `json:"upper"`
}

// Option customises a QuizService.
type Option func(*QuizService)

// WithLogger sets the service logger.
func WithLogger(log *zap.Logger) Option {
	return func(s *QuizService) { s.log = log }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(s *QuizService) { s.metrics = r }
}

// WithPerClass sets how many questions are drawn per class level.
func WithPerClass(n int) Option {
	return func(s *QuizService) {
		if n > 0 {
			s.perClass = n
		}
	}
}

// WithRecommendations sets the default number of affiliate links returned.
func WithRecommendations(n int) Option {
	return func(s *QuizService) {
		if n > 0 {
			s.recommendations = n
		}
	}
}

// WithRand replaces the random source; tests pass a seeded one.
func WithRand(rnd *rand.Rand) Option {
	return func(s *QuizService) { s.rnd = rnd }
}

// WithIDGenerator replaces the session id generator.
func WithIDGenerator(fn func() string) Option {
	return func(s *QuizService) { s.newID = fn }
}

// QuizService contains the core quiz use cases.
type QuizService struct {
	sessions SessionRepository
	catalog  CatalogRepository
	locales  *i18n.Catalog
	log      *zap.Logger
	metrics  Recorder

	perClass        int
	recommendations int
	newID           func() string

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewQuizService(store SessionRepository, catalog CatalogRepository, locales *i18n.Catalog, opts ...Option) *QuizService {
	s := &QuizService{
		sessions:        store,
		catalog:         catalog,
		locales:         locales,
		log:             zap.NewNop(),
		metrics:         nopRecorder{},
		perClass:        DefaultPerClass,
		recommendations: DefaultRecommendations,
		newID:           uuid.NewString,
		rnd:             rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Locale returns the message table for language, falling back to the default.
func (s *QuizService) Locale(language string) *i18n.Locale {
	return s.locales.Locale(language)
}

// Languages lists the supported locales.
func (s *QuizService) Languages() []*i18n.Locale {
	return s.locales.Languages()
}

// Tiers lists every difficulty tier with localized names.
func (s *QuizService) Tiers(language string) []TierInfo {
	locale := s.locales.Locale(language)
	tiers := domain.Tiers()
	out := make([]TierInfo, 0, len(tiers))
	for _, tier := range tiers {
		pair, _ := domain.ClassLevels(tier)
		text := locale.Tiers[tier]
		out = append(out, TierInfo{
			Tier:        tier,
			ClassLevels: ClassLevels{Lower: pair[0], Upper: pair[1]},
			Name:        text.Name,
			Description: text.Description,
		})
	}
	return out
}

// Warm loads both catalogs so the first session does not pay for it.
func (s *QuizService) Warm(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := s.catalog.Questions(ctx)
		return err
	})
	g.Go(func() error {
		_, err := s.catalog.AffiliateLinks(ctx)
		return err
	})
	return g.Wait()
}

// Start selects questions for tier and language and opens a session.
// When nothing matches it returns the empty view together with
// domain.ErrEmptyQuestionSet, and nothing is stored.
func (s *QuizService) Start(ctx context.Context, tier domain.DifficultyTier, language string) (SessionView, error) {
	if _, err := domain.ClassLevels(tier); err != nil {
		return SessionView{}, err
	}
	if !i18n.IsSupported(language) {
		return SessionView{}, domain.ErrUnsupportedLanguage
	}

	catalog := s.loadQuestions(ctx)

	s.rndMu.Lock()
	questions, err := SelectQuestions(s.rnd, tier, language, catalog, s.perClass)
	s.rndMu.Unlock()
	if err != nil {
		return SessionView{}, err
	}

	session := NewSession(s.newID(), tier, language, questions)
	s.metrics.SessionStarted(tier, language, len(questions))
	if len(questions) == 0 {
		s.log.Info("no questions for session",
			zap.String("tier", string(tier)),
			zap.String("language", language))
		return session.View(), domain.ErrEmptyQuestionSet
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return SessionView{}, err
	}
	s.log.Debug("session started",
		zap.String("session_id", session.ID()),
		zap.String("tier", string(tier)),
		zap.String("language", language),
		zap.Int("questions", len(questions)))
	return session.View(), nil
}

// Session returns the current view of a session.
func (s *QuizService) Session(ctx context.Context, id string) (SessionView, error) {
	session, err := s.sessions.Get(ctx, id)
	if err != nil {
		return SessionView{}, err
	}
	return s.decorate(session.View()), nil
}

// SelectAnswer records the pending answer for the current question.
func (s *QuizService) SelectAnswer(ctx context.Context, id, option string) (SessionView, error) {
	session, err := s.mutate(ctx, id, func(session *Session) error {
		return session.SelectAnswer(option)
	})
	if err != nil {
		return SessionView{}, err
	}
	return s.decorate(session.View()), nil
}

// CheckAnswer scores the pending answer and reveals the feedback.
func (s *QuizService) CheckAnswer(ctx context.Context, id string) (SessionView, error) {
	var fb Feedback
	session, err := s.mutate(ctx, id, func(session *Session) error {
		var err error
		fb, err = session.CheckAnswer()
		return err
	})
	if err != nil {
		return SessionView{}, err
	}
	view := session.View()
	s.metrics.AnswerChecked(view.Difficulty, fb.Correct)
	return s.decorate(view), nil
}

// NextQuestion advances the session. On the last question the session is
// completed, removed from the store and the returned view carries the outcome.
func (s *QuizService) NextQuestion(ctx context.Context, id string) (SessionView, error) {
	var (
		outcome domain.Outcome
		done    bool
	)
	session, err := s.sessions.Update(ctx, id, func(session *Session) error {
		var err error
		outcome, done, err = session.NextQuestion()
		return err
	})
	if err != nil {
		return SessionView{}, err
	}
	view := session.View()
	if !done {
		return view, nil
	}

	if err := s.sessions.Delete(ctx, id); err != nil {
		s.log.Warn("delete completed session", zap.String("session_id", id), zap.Error(err))
	}
	s.metrics.SessionCompleted(view.Difficulty, outcome)
	s.log.Debug("session completed",
		zap.String("session_id", id),
		zap.Int("score", outcome.Score),
		zap.Int("total", outcome.Total))
	return view, nil
}

// Quit abandons a session without producing a result.
func (s *QuizService) Quit(ctx context.Context, id string) error {
	if _, err := s.sessions.Get(ctx, id); err != nil {
		return err
	}
	return s.sessions.Delete(ctx, id)
}

// Result builds the localized result page. A non-positive total defaults to
// the full quiz length of two class levels.
func (s *QuizService) Result(language string, score, total int) domain.Result {
	if total <= 0 {
		total = 2 * s.perClass
	}
	return BuildResult(s.locales.Locale(language), score, total)
}

// Recommendations returns up to limit affiliate links in uniformly random order.
// A non-positive limit uses the configured default. Catalog failures yield none.
func (s *QuizService) Recommendations(ctx context.Context, limit int) []domain.AffiliateLink {
	if limit <= 0 {
		limit = s.recommendations
	}
	links, err := s.catalog.AffiliateLinks(ctx)
	if err != nil {
		s.metrics.CatalogError("affiliate_links")
		s.log.Warn("load affiliate links", zap.Error(err))
		return []domain.AffiliateLink{}
	}

	picked := append([]domain.AffiliateLink(nil), links...)
	s.rndMu.Lock()
	Shuffle(s.rnd, picked)
	s.rndMu.Unlock()
	if len(picked) > limit {
		picked = picked[:limit]
	}
	return picked
}

// loadQuestions never fails: an unavailable catalog behaves like an empty one.
func (s *QuizService) loadQuestions(ctx context.Context) []domain.Question {
	questions, err := s.catalog.Questions(ctx)
	if err != nil {
		s.metrics.CatalogError("questions")
		s.log.Error("load questions", zap.Error(err))
		return nil
	}
	return questions
}

func (s *QuizService) mutate(ctx context.Context, id string, fn func(*Session) error) (*Session, error) {
	return s.sessions.Update(ctx, id, fn)
}

// decorate fills in the localized feedback line.
func (s *QuizService) decorate(view SessionView) SessionView {
	if view.Feedback != nil {
		view.Feedback.Message = s.locales.Locale(view.Language).Feedback(view.Feedback.Correct, view.Feedback.CorrectAnswer)
	}
	return view
}

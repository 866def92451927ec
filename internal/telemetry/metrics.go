package telemetry

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"trivia-quiz-service/internal/domain"
)

// QuizMetrics implements app.Recorder on Prometheus collectors.
type QuizMetrics struct {
	sessionsStarted   *prometheus.CounterVec
	emptySessions     *prometheus.CounterVec
	answersChecked    *prometheus.CounterVec
	sessionsCompleted *prometheus.CounterVec
	scoreRatio        *prometheus.HistogramVec
	catalogErrors     *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
}

// NewQuizMetrics registers the quiz collectors with reg.
func NewQuizMetrics(reg prometheus.Registerer) *QuizMetrics {
	m := &QuizMetrics{
		sessionsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quiz",
			Name:      "sessions_started_total",
			Help:      "Quiz sessions started, by tier and language.",
		}, []string{"tier", "language"}),
		emptySessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quiz",
			Name:      "sessions_empty_total",
			Help:      "Session starts that found no questions.",
		}, []string{"tier", "language"}),
		answersChecked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quiz",
			Name:      "answers_checked_total",
			Help:      "Checked answers, by tier and correctness.",
		}, []string{"tier", "correct"}),
		sessionsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quiz",
			Name:      "sessions_completed_total",
			Help:      "Quiz sessions played to the end.",
		}, []string{"tier"}),
		scoreRatio: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "quiz",
			Name:      "score_ratio",
			Help:      "Final score divided by question count.",
			Buckets:   []float64{0.2, 0.4, 0.5, 0.6, 0.8, 1},
		}, []string{"tier"}),
		catalogErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quiz",
			Name:      "catalog_errors_total",
			Help:      "Catalog loads that failed.",
		}, []string{"kind"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "quiz",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	reg.MustRegister(
		m.sessionsStarted,
		m.emptySessions,
		m.answersChecked,
		m.sessionsCompleted,
		m.scoreRatio,
		m.catalogErrors,
		m.requestDuration,
	)
	return m
}

func (m *QuizMetrics) SessionStarted(tier domain.DifficultyTier, language string, questions int) {
	if questions == 0 {
		m.emptySessions.WithLabelValues(string(tier), language).Inc()
		return
	}
	m.sessionsStarted.WithLabelValues(string(tier), language).Inc()
}

func (m *QuizMetrics) AnswerChecked(tier domain.DifficultyTier, correct bool) {
	m.answersChecked.WithLabelValues(string(tier), strconv.FormatBool(correct)).Inc()
}

func (m *QuizMetrics) SessionCompleted(tier domain.DifficultyTier, outcome domain.Outcome) {
	m.sessionsCompleted.WithLabelValues(string(tier)).Inc()
	if outcome.Total > 0 {
		m.scoreRatio.WithLabelValues(string(tier)).Observe(float64(outcome.Score) / float64(outcome.Total))
	}
}

func (m *QuizMetrics) CatalogError(kind string) {
	m.catalogErrors.WithLabelValues(kind).Inc()
}

// GinMiddleware records request latency by route template.
func (m *QuizMetrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.requestDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}

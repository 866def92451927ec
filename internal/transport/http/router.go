package http

import (
	"net/http"
	"time"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"trivia-quiz-service/internal/app"
	"trivia-quiz-service/internal/telemetry"
)

type RouterConfig struct {
	Service *app.QuizService
	Logger  *zap.Logger

	// Optional. /metrics is only mounted when Gatherer is set.
	Metrics   *telemetry.QuizMetrics
	Gatherer  prometheus.Gatherer
	Profiling bool
}

// NewRouter builds the gin engine serving the JSON API, the websocket flow
// and the operational endpoints.
func NewRouter(c RouterConfig) *gin.Engine {
	log := c.Logger
	if log == nil {
		log = zap.NewNop()
	}

	e := gin.New()
	if c.Gatherer != nil {
		e.GET("/metrics", gin.WrapH(promhttp.HandlerFor(c.Gatherer, promhttp.HandlerOpts{})))
	}
	if c.Profiling {
		pprof.Register(e, "/debug/pprof")
	}
	e.Use(gin.Recovery(), requestLogger(log))
	if c.Metrics != nil {
		e.Use(c.Metrics.GinMiddleware())
	}

	e.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	NewAPI(c.Service, log).Register(e)
	ws := NewWSHandler(c.Service, log)
	e.GET("/ws", gin.WrapF(ws.ServeWS))
	return e
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("took", time.Since(start)))
	}
}

package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"trivia-quiz-service/internal/app"
	"trivia-quiz-service/internal/domain"
	"trivia-quiz-service/internal/i18n"
)

// API exposes the quiz use cases as JSON endpoints.
type API struct {
	service *app.QuizService
	log     *zap.Logger
}

func NewAPI(service *app.QuizService, log *zap.Logger) *API {
	if log == nil {
		log = zap.NewNop()
	}
	return &API{service: service, log: log}
}

// Register mounts every endpoint under r.
func (a *API) Register(r gin.IRouter) {
	api := r.Group("/api")
	api.GET("/languages", a.languages)
	api.POST("/language", a.setLanguage)
	api.GET("/tiers", a.tiers)

	api.POST("/sessions", a.startSession)
	api.GET("/sessions/:id", a.getSession)
	api.POST("/sessions/:id/select", a.selectAnswer)
	api.POST("/sessions/:id/check", a.checkAnswer)
	api.POST("/sessions/:id/next", a.nextQuestion)
	api.DELETE("/sessions/:id", a.quit)

	api.GET("/result", a.result)
	api.GET("/recommendations", a.recommendations)
}

type languageView struct {
	Code       string `json:"code"`
	Name       string `json:"name"`
	NativeName string `json:"nativeName"`
}

type languagesResponse struct {
	Current   string         `json:"current"`
	Languages []languageView `json:"languages"`
}

type setLanguageRequest struct {
	Language string `json:"language" binding:"required"`
}

type startRequest struct {
	Difficulty domain.DifficultyTier `json:"difficulty" binding:"required"`
	Language   string                `json:"language"`
}

type selectRequest struct {
	Option string `json:"option" binding:"required"`
}

type sessionResponse struct {
	app.SessionView
	Result *domain.Result `json:"result,omitempty"`
}

type emptyResponse struct {
	State   app.State `json:"state"`
	Message string    `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (a *API) languages(c *gin.Context) {
	locales := a.service.Languages()
	out := make([]languageView, 0, len(locales))
	for _, l := range locales {
		out = append(out, languageView{Code: l.Code, Name: l.Name, NativeName: l.NativeName})
	}
	c.JSON(http.StatusOK, languagesResponse{Current: requestLanguage(c.Request), Languages: out})
}

func (a *API) setLanguage(c *gin.Context) {
	var req setLanguageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid language payload"})
		return
	}
	if !i18n.IsSupported(req.Language) {
		a.writeError(c, domain.ErrUnsupportedLanguage)
		return
	}
	setLanguageCookie(c, req.Language)
	c.JSON(http.StatusOK, gin.H{"language": req.Language})
}

func (a *API) tiers(c *gin.Context) {
	c.JSON(http.StatusOK, a.service.Tiers(requestLanguage(c.Request)))
}

func (a *API) startSession(c *gin.Context) {
	var req startRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid session payload"})
		return
	}
	language := req.Language
	if language == "" {
		language = requestLanguage(c.Request)
	}

	view, err := a.service.Start(c.Request.Context(), req.Difficulty, language)
	if errors.Is(err, domain.ErrEmptyQuestionSet) {
		c.JSON(http.StatusNotFound, emptyResponse{
			State:   app.StateEmpty,
			Message: a.service.Locale(language).NoQuestions,
		})
		return
	}
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sessionResponse{SessionView: view})
}

func (a *API) getSession(c *gin.Context) {
	view, err := a.service.Session(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, a.withResult(view))
}

func (a *API) selectAnswer(c *gin.Context) {
	var req selectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid select payload"})
		return
	}
	view, err := a.service.SelectAnswer(c.Request.Context(), c.Param("id"), req.Option)
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessionResponse{SessionView: view})
}

func (a *API) checkAnswer(c *gin.Context) {
	view, err := a.service.CheckAnswer(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessionResponse{SessionView: view})
}

func (a *API) nextQuestion(c *gin.Context) {
	view, err := a.service.NextQuestion(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, a.withResult(view))
}

func (a *API) quit(c *gin.Context) {
	if err := a.service.Quit(c.Request.Context(), c.Param("id")); err != nil {
		a.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *API) result(c *gin.Context) {
	score, err := intQuery(c, "score", 0)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "score must be an integer"})
		return
	}
	total, err := intQuery(c, "total", 0)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "total must be an integer"})
		return
	}
	c.JSON(http.StatusOK, a.service.Result(requestLanguage(c.Request), score, total))
}

func (a *API) recommendations(c *gin.Context) {
	limit, err := intQuery(c, "limit", 0)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "limit must be an integer"})
		return
	}
	c.JSON(http.StatusOK, a.service.Recommendations(c.Request.Context(), limit))
}

// withResult attaches the localized result to a completed session view.
func (a *API) withResult(view app.SessionView) sessionResponse {
	resp := sessionResponse{SessionView: view}
	if view.Outcome != nil {
		result := a.service.Result(view.Language, view.Outcome.Score, view.Outcome.Total)
		resp.Result = &result
	}
	return resp
}

func (a *API) writeError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		a.log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(status, errorResponse{Error: "internal error"})
		return
	}
	c.JSON(status, errorResponse{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrEmptyQuestionSet):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidDifficulty),
		errors.Is(err, domain.ErrUnsupportedLanguage),
		errors.Is(err, domain.ErrOptionNotFound):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func intQuery(c *gin.Context, key string, fallback int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}

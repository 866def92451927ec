package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"trivia-quiz-service/internal/i18n"
)

const (
	languageCookie       = "selectedLanguage"
	languageCookieMaxAge = 30 * 24 * 60 * 60
)

// requestLanguage resolves the display language: ?lang=, then the cookie, then the default.
func requestLanguage(r *http.Request) string {
	candidates := []string{r.URL.Query().Get("lang")}
	if cookie, err := r.Cookie(languageCookie); err == nil {
		candidates = append(candidates, cookie.Value)
	}
	return i18n.Resolve(candidates...)
}

func setLanguageCookie(c *gin.Context, language string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(languageCookie, language, languageCookieMaxAge, "/", "", false, false)
}

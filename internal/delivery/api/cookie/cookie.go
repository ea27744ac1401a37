// Package cookie sets and reads the session and CSRF cookies.
package cookie

import (
	"net/http"
	"strings"

	"bidhub/config"
	"bidhub/internal/domain/entity"
	"bidhub/internal/domain/service"

	"github.com/labstack/echo/v4"
)

// Jar applies the cookie attributes of the running environment. Production
// cookies are Secure and SameSite=Strict; elsewhere the session cookie is Lax
// so a local frontend on another port keeps working.
type Jar struct {
	sessions   service.SessionTokenService
	session    config.SessionConfig
	csrf       config.CSRFConfig
	production bool
}

// NewJar is the constructor for Jar.
func NewJar(cfg *config.Config, sessions service.SessionTokenService) *Jar {
	return &Jar{
		sessions:   sessions,
		session:    cfg.Session,
		csrf:       cfg.CSRF,
		production: cfg.IsProduction(),
	}
}

// SetSession writes the httpOnly session cookie for the token. Max-Age is
// the session lifetime of the token's kind.
func (j *Jar) SetSession(c echo.Context, token *entity.SessionToken) {
	c.SetCookie(&http.Cookie{
		Name:     j.session.CookieName,
		Value:    token.Token,
		Path:     "/",
		Domain:   j.session.CookieDomain,
		Expires:  token.ExpiresAt,
		MaxAge:   int(j.sessions.TTL(token.Kind).Seconds()),
		HttpOnly: true,
		Secure:   j.production,
		SameSite: j.sessionSameSite(),
	})
}

// ClearSession expires the session cookie.
func (j *Jar) ClearSession(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     j.session.CookieName,
		Value:    "",
		Path:     "/",
		Domain:   j.session.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   j.production,
		SameSite: j.sessionSameSite(),
	})
}

// Session returns the session token sent by the client, if any.
func (j *Jar) Session(c echo.Context) string {
	return read(c, j.session.CookieName)
}

// SetCSRF writes the httpOnly half of the CSRF pair.
func (j *Jar) SetCSRF(c echo.Context, value string) {
	c.SetCookie(&http.Cookie{
		Name:     j.csrf.CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(j.csrf.TTL.Seconds()),
		HttpOnly: true,
		Secure:   j.production,
		SameSite: http.SameSiteStrictMode,
	})
}

// CSRF returns the CSRF cookie sent by the client, if any.
func (j *Jar) CSRF(c echo.Context) string {
	return read(c, j.csrf.CookieName)
}

func (j *Jar) sessionSameSite() http.SameSite {
	if j.production {
		return http.SameSiteStrictMode
	}

	return http.SameSiteLaxMode
}

func read(c echo.Context, name string) string {
	cookie, err := c.Cookie(name)
	if err != nil {
		return ""
	}

	return strings.TrimSpace(cookie.Value)
}

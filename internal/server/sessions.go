package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/mohammad-safakhou/askweb/session"
)

// sessionCookies maps the session cookie to a store session, issuing a new
// cookie whenever the store hands out a new id.
type sessionCookies struct {
	store session.Store
	ttl   time.Duration
	name  string
}

func (s *sessionCookies) ensure(c echo.Context) (session.Session, error) {
	var id string
	if cookie, err := c.Cookie(s.name); err == nil {
		id = cookie.Value
	}
	sess, err := s.store.EnsureSession(c.Request().Context(), id, s.ttl)
	if err != nil {
		return nil, err
	}
	c.SetCookie(&http.Cookie{
		Name:     s.name,
		Value:    sess.ID(),
		Path:     "/",
		MaxAge:   int(s.ttl / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return sess, nil
}

// lookup returns the session named by the request cookie without creating
// one. A missing cookie or an unknown id yields a nil session.
func (s *sessionCookies) lookup(c echo.Context) (session.Session, error) {
	cookie, err := c.Cookie(s.name)
	if err != nil || cookie.Value == "" {
		return nil, nil
	}
	sess, err := s.store.GetSession(c.Request().Context(), cookie.Value)
	if errors.Is(err, session.ErrNotFound) {
		return nil, nil
	}
	return sess, err
}

package session

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/telhawk-systems/debugconsole/internal/logging"
)

// CookieName is the cookie carrying the session key.
const CookieName = "sessionid"

type contextKey struct{}

// Middleware loads the session named by the sessionid cookie into the
// request context. Unknown or expired keys are ignored.
type Middleware struct {
	store        Store
	logger       *slog.Logger
	cookieDomain string
	cookieSecure bool
}

func NewMiddleware(store Store, logger *slog.Logger, cookieDomain string, cookieSecure bool) *Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return &Middleware{
		store:        store,
		logger:       logger,
		cookieDomain: cookieDomain,
		cookieSecure: cookieSecure,
	}
}

func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(CookieName)
		if err != nil || cookie.Value == "" {
			next.ServeHTTP(w, r)
			return
		}

		sess, err := m.store.Get(r.Context(), cookie.Value)
		if err != nil {
			if !errors.Is(err, ErrSessionNotFound) {
				m.logger.WarnContext(r.Context(), "session lookup failed", logging.Error(err))
			}
			next.ServeHTTP(w, r)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
	})
}

// SetCookie writes the sessionid cookie for sess.
func (m *Middleware) SetCookie(w http.ResponseWriter, sess *Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    sess.Key,
		Path:     "/",
		Domain:   m.cookieDomain,
		MaxAge:   int(time.Until(sess.ExpiresAt).Seconds()),
		Secure:   m.cookieSecure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (m *Middleware) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		Domain:   m.cookieDomain,
		MaxAge:   -1,
		Secure:   m.cookieSecure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func WithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, sess)
}

// FromContext returns the request's session, or nil.
func FromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(contextKey{}).(*Session)
	return sess
}

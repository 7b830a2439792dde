package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/telhawk-systems/debugconsole/internal/httputil"
	"github.com/telhawk-systems/debugconsole/internal/logging"
	"github.com/telhawk-systems/debugconsole/internal/models"
	"github.com/telhawk-systems/debugconsole/internal/session"
)

type contextKey struct{}

type Middleware struct {
	verifier *Verifier
	logger   *slog.Logger
}

func NewMiddleware(verifier *Verifier, logger *slog.Logger) *Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return &Middleware{
		verifier: verifier,
		logger:   logger,
	}
}

// Authenticate attaches the caller's user to the request context. A valid
// bearer token wins; otherwise the user of the current session, if any.
// Requests without credentials pass through as anonymous.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := m.resolve(r)
		if user == nil {
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

func (m *Middleware) resolve(r *http.Request) *models.User {
	if token, ok := bearerToken(r); ok && m.verifier != nil {
		user, err := m.verifier.Verify(token)
		if err == nil {
			return user
		}
		m.logger.DebugContext(r.Context(), "bearer token rejected", logging.Error(err))
	}
	if sess := session.FromContext(r.Context()); sess != nil && sess.User.IsAuthenticated() {
		return sess.User
	}
	return nil
}

// RequireAuth rejects callers Authenticate did not identify.
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !UserFromContext(r.Context()).IsAuthenticated() {
			httputil.WriteJSONAPIUnauthorizedError(w, "Authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, contextKey{}, user)
}

// UserFromContext returns the authenticated user, or nil.
func UserFromContext(ctx context.Context) *models.User {
	user, _ := ctx.Value(contextKey{}).(*models.User)
	return user
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return "", false
	}
	token := strings.TrimSpace(header[7:])
	return token, token != ""
}

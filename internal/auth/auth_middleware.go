package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/sebuszqo/ExpenseTracker/internal/respond"
	"go.uber.org/zap"
)

type ctxKey string

const sessionCtxKey ctxKey = "session"

// SessionMiddleware rejects requests without a valid, unrevoked session
// cookie and attaches the SessionInfo to the request context otherwise.
func (s *service) SessionMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				respond.Error(w, http.StatusUnauthorized, "No session")
				return
			}

			info, err := s.VerifySession(r.Context(), cookie.Value)
			if err != nil {
				if errors.Is(err, ErrInvalidSession) || errors.Is(err, ErrNoSession) {
					respond.Error(w, http.StatusUnauthorized, "Invalid session")
					return
				}
				s.log.Error("session verification failed", zap.Error(err))
				respond.Error(w, http.StatusInternalServerError, "Internal server error")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), info)))
		})
	}
}

func WithSession(ctx context.Context, info *SessionInfo) context.Context {
	return context.WithValue(ctx, sessionCtxKey, info)
}

func SessionFromContext(ctx context.Context) (*SessionInfo, bool) {
	info, ok := ctx.Value(sessionCtxKey).(*SessionInfo)
	return info, ok && info != nil
}

// UserIDFromContext returns the internal user id bound to the request session.
func UserIDFromContext(ctx context.Context) (string, bool) {
	info, ok := SessionFromContext(ctx)
	if !ok || info.UserID == "" {
		return "", false
	}
	return info.UserID, true
}

package auth

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/sebuszqo/ExpenseTracker/internal/respond"
	"go.uber.org/zap"
)

const (
	SessionCookieName = "session"
	UserIDCookieName  = "userId"
)

type Handler struct {
	authService   Service
	secureCookies bool
	sessionTTL    time.Duration
	log           *zap.Logger
}

func NewHandler(authService Service, secureCookies bool, sessionTTL time.Duration, log *zap.Logger) *Handler {
	if sessionTTL <= 0 {
		sessionTTL = DefaultSessionTTL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		authService:   authService,
		secureCookies: secureCookies,
		sessionTTL:    sessionTTL,
		log:           log,
	}
}

func (h *Handler) HandleSessionLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDToken string `json:"idToken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respond.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.IDToken == "" {
		respond.Error(w, http.StatusBadRequest, "Missing idToken")
		return
	}

	session, err := h.authService.CreateSession(r.Context(), req.IDToken)
	if err != nil {
		switch {
		case errors.Is(err, ErrMissingIDToken):
			respond.Error(w, http.StatusBadRequest, "Missing idToken")
		case errors.Is(err, ErrInvalidAssertion):
			h.log.Info("rejected identity assertion", zap.Error(err))
			respond.Error(w, http.StatusUnauthorized, "Unauthorized")
		case errors.Is(err, ErrSessionCreationFailed):
			respond.Error(w, http.StatusInternalServerError, "Failed to create user session")
		default:
			h.log.Error("session login failed", zap.Error(err))
			respond.Error(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	http.SetCookie(w, h.cookie(SessionCookieName, session.Token, true, session.ExpiresAt))
	http.SetCookie(w, h.cookie(UserIDCookieName, session.UserID, false, session.ExpiresAt))
	respond.Success(w, http.StatusOK, nil)
}

// HandleSessionLogout always answers 200 so the client can clear its state.
func (h *Handler) HandleSessionLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		if err := h.authService.RevokeSession(r.Context(), cookie.Value); err != nil {
			h.log.Warn("session revocation failed, clearing cookies anyway", zap.Error(err))
		}
	}

	http.SetCookie(w, h.expiredCookie(SessionCookieName, true))
	http.SetCookie(w, h.expiredCookie(UserIDCookieName, false))
	respond.Success(w, http.StatusOK, nil)
}

func (h *Handler) HandleGetMe(w http.ResponseWriter, r *http.Request) {
	info, ok := SessionFromContext(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	profile, err := h.authService.Me(r.Context(), info)
	if err != nil {
		if errors.Is(err, ErrUnauthorized) {
			respond.Error(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		h.log.Error("get me failed", zap.String("uid", info.UID), zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respond.JSON(w, http.StatusOK, profile)
}

func (h *Handler) cookie(name, value string, httpOnly bool, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		MaxAge:   int(h.sessionTTL.Seconds()),
		HttpOnly: httpOnly,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	}
}

func (h *Handler) expiredCookie(name string, httpOnly bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: httpOnly,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	}
}

package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sebuszqo/ExpenseTracker/internal/user"
	"go.uber.org/zap"
)

const DefaultSessionTTL = 5 * 24 * time.Hour

var (
	ErrMissingIDToken        = errors.New("missing idToken")
	ErrInvalidAssertion      = errors.New("invalid identity assertion")
	ErrSessionCreationFailed = errors.New("failed to create user session")
	ErrNoSession             = errors.New("no session")
	ErrInvalidSession        = errors.New("invalid session")
	ErrUnauthorized          = errors.New("unauthorized")
)

// Session is a freshly minted session credential.
type Session struct {
	Token     string
	UserID    string
	ExpiresAt time.Time
	Principal Principal
}

// SessionInfo is what the request gate attaches to the context.
type SessionInfo struct {
	SessionID string
	UID       string
	UserID    string
	Principal Principal
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type Service interface {
	CreateSession(ctx context.Context, idToken string) (*Session, error)
	VerifySession(ctx context.Context, token string) (*SessionInfo, error)
	RevokeSession(ctx context.Context, token string) error
	Me(ctx context.Context, info *SessionInfo) (*Profile, error)
	SessionMiddleware() func(http.Handler) http.Handler
}

type Options struct {
	Verifier    AssertionVerifier
	Users       user.Service
	Tokens      SessionTokenManager
	Revocations RevocationStore
	SessionTTL  time.Duration
	Logger      *zap.Logger
}

type service struct {
	verifier    AssertionVerifier
	userService user.Service
	tokens      SessionTokenManager
	revocations RevocationStore
	ttl         time.Duration
	log         *zap.Logger
	now         func() time.Time
}

func NewAuthService(opts Options) Service {
	ttl := opts.SessionTTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &service{
		verifier:    opts.Verifier,
		userService: opts.Users,
		tokens:      opts.Tokens,
		revocations: opts.Revocations,
		ttl:         ttl,
		log:         log,
		now:         time.Now,
	}
}

// CreateSession verifies the ID token, upserts the internal user and mints a
// session credential. Nothing is returned unless both the upsert and the mint
// succeed.
func (s *service) CreateSession(ctx context.Context, idToken string) (*Session, error) {
	if idToken == "" {
		return nil, ErrMissingIDToken
	}

	principal, err := s.verifier.Verify(ctx, idToken)
	if err != nil {
		if errors.Is(err, ErrInvalidAssertion) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidAssertion, err)
	}

	u, err := s.userService.Register(ctx, principal.UID, principal.Email, principal.Name, principal.Picture)
	if err != nil {
		s.log.Error("user upsert failed", zap.String("uid", principal.UID), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrSessionCreationFailed, err)
	}
	if u == nil || u.ID == "" {
		return nil, fmt.Errorf("%w: upsert returned no user", ErrSessionCreationFailed)
	}

	token, claims, err := s.tokens.Mint(principal, u.ID, s.ttl)
	if err != nil {
		s.log.Error("session mint failed", zap.String("uid", principal.UID), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrSessionCreationFailed, err)
	}

	return &Session{
		Token:     token,
		UserID:    u.ID,
		ExpiresAt: time.Unix(claims.ExpiresAt, 0),
		Principal: principal,
	}, nil
}

// VerifySession checks signature, expiry and revocation. Revocation lookup
// failures are returned unwrapped so callers can fail closed with a 5xx.
func (s *service) VerifySession(ctx context.Context, token string) (*SessionInfo, error) {
	if token == "" {
		return nil, ErrNoSession
	}

	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}

	validSince, revoked, err := s.revocations.ValidSince(ctx, claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("check revocation: %w", err)
	}
	if revoked && claims.IssuedAtMs <= validSince.UnixMilli() {
		return nil, fmt.Errorf("%w: revoked", ErrInvalidSession)
	}

	return &SessionInfo{
		SessionID: claims.Id,
		UID:       claims.Subject,
		UserID:    claims.UserID,
		Principal: claims.Principal(),
		IssuedAt:  time.UnixMilli(claims.IssuedAtMs),
		ExpiresAt: time.Unix(claims.ExpiresAt, 0),
	}, nil
}

// RevokeSession invalidates every session of the token's principal.
func (s *service) RevokeSession(ctx context.Context, token string) error {
	info, err := s.VerifySession(ctx, token)
	if err != nil {
		return err
	}
	return s.revocations.Revoke(ctx, info.UID, s.now(), s.ttl)
}

func (s *service) Me(ctx context.Context, info *SessionInfo) (*Profile, error) {
	if info == nil {
		return nil, ErrUnauthorized
	}

	u, err := s.userService.GetUserByID(ctx, info.UserID)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}

	p := info.Principal
	return &Profile{
		UID:           info.UID,
		Email:         firstNonEmpty(u.Email, p.Email),
		DisplayName:   firstNonEmpty(u.Name, p.Name),
		PhotoURL:      firstNonEmpty(u.AvatarURL, p.Picture),
		PhoneNumber:   p.PhoneNumber,
		EmailVerified: p.EmailVerified,
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

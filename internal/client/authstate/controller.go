// Package authstate owns the terminal client's notion of who is logged in. It
// pairs the identity-provider sign-in with the backend session exchange and
// rolls the first back when the second fails.
package authstate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/badoux/checkmail"
	"github.com/sebuszqo/ExpenseTracker/internal/auth"
	"github.com/sebuszqo/ExpenseTracker/internal/client/identity"
	"github.com/sebuszqo/ExpenseTracker/internal/client/saga"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -destination=mocks_test.go -package=authstate . IdentityProvider,SessionBackend

const MinPasswordLength = 6

var (
	ErrInvalidEmail  = errors.New("invalid email format")
	ErrWeakPassword  = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	ErrMissingFields = errors.New("email and password are required")
)

type Status int

const (
	SignedOut Status = iota
	Authenticating
	SignedIn
)

func (s Status) String() string {
	switch s {
	case Authenticating:
		return "authenticating"
	case SignedIn:
		return "signed in"
	default:
		return "signed out"
	}
}

// State is an immutable snapshot. User is set only when Status is SignedIn.
type State struct {
	Status Status
	User   *auth.Profile
}

type IdentityProvider interface {
	SignUp(ctx context.Context, email, password string) (*identity.Account, error)
	SignInWithPassword(ctx context.Context, email, password string) (*identity.Account, error)
	SignInWithGoogle(ctx context.Context) (*identity.Account, error)
	UpdateProfile(ctx context.Context, displayName string) error
	IDToken(ctx context.Context) (string, error)
	DeleteAccount(ctx context.Context) error
	SignOut()
}

type SessionBackend interface {
	SessionLogin(ctx context.Context, idToken string) error
	SessionLogout(ctx context.Context) error
	Me(ctx context.Context) (*auth.Profile, error)
}

// GoogleResult is the outcome of SignInWithGoogle.
type GoogleResult struct {
	User      *auth.Profile
	IsNewUser bool
}

type Controller struct {
	idp     IdentityProvider
	backend SessionBackend
	log     *zap.Logger

	sem   *semaphore.Weighted
	state atomic.Pointer[State]

	mu        sync.Mutex
	listeners map[int]func(State)
	nextID    int
}

func NewController(idp IdentityProvider, backend SessionBackend, log *zap.Logger) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Controller{
		idp:       idp,
		backend:   backend,
		log:       log.With(zap.String("component", "authstate")),
		sem:       semaphore.NewWeighted(1),
		listeners: make(map[int]func(State)),
	}
	c.state.Store(&State{Status: SignedOut})
	return c
}

// Current returns the latest state snapshot.
func (c *Controller) Current() State {
	return *c.state.Load()
}

// Subscribe registers fn to be called after every state change. The returned
// func removes it.
func (c *Controller) Subscribe(fn func(State)) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

func (c *Controller) set(s State) {
	c.state.Store(&s)

	c.mu.Lock()
	listeners := make([]func(State), 0, len(c.listeners))
	for _, fn := range c.listeners {
		listeners = append(listeners, fn)
	}
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(s)
	}
}

// begin serializes auth operations. A caller whose ctx ends while waiting
// gets ctx's error and the state is left untouched.
func (c *Controller) begin(ctx context.Context) (func(), error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	c.set(State{Status: Authenticating})
	return func() { c.sem.Release(1) }, nil
}

func (c *Controller) SignUp(ctx context.Context, email, password, name string) (*auth.Profile, error) {
	email = strings.TrimSpace(email)
	if err := validateCredentials(email, password); err != nil {
		return nil, err
	}

	release, err := c.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	var profile *auth.Profile
	var account *identity.Account
	err = saga.New("signup", c.log,
		saga.Step{
			Name: "create identity account",
			Action: func(ctx context.Context) error {
				acct, err := c.idp.SignUp(ctx, email, password)
				account = acct
				return err
			},
			Compensate: c.idp.DeleteAccount,
		},
		c.sessionLoginStep(func() string { return account.IDToken }),
		saga.Step{
			Name: "set display name",
			Action: func(ctx context.Context) error {
				if name = strings.TrimSpace(name); name == "" {
					return nil
				}
				if err := c.idp.UpdateProfile(ctx, name); err != nil {
					return err
				}
				// Only the refreshed ID token carries the name claim.
				token, err := c.idp.IDToken(ctx)
				if err != nil {
					return err
				}
				return c.backend.SessionLogin(ctx, token)
			},
		},
		c.fetchProfileStep(&profile),
	).Run(ctx)
	if err != nil {
		c.set(State{Status: SignedOut})
		return nil, err
	}

	c.set(State{Status: SignedIn, User: profile})
	return profile, nil
}

func (c *Controller) LogIn(ctx context.Context, email, password string) (*auth.Profile, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrMissingFields
	}

	release, err := c.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	var profile *auth.Profile
	var account *identity.Account
	err = saga.New("login", c.log,
		saga.Step{
			Name: "identity sign-in",
			Action: func(ctx context.Context) error {
				acct, err := c.idp.SignInWithPassword(ctx, email, password)
				account = acct
				return err
			},
			Compensate: c.signOutOfProvider,
		},
		c.sessionLoginStep(func() string { return account.IDToken }),
		c.fetchProfileStep(&profile),
	).Run(ctx)
	if err != nil {
		c.set(State{Status: SignedOut})
		return nil, err
	}

	c.set(State{Status: SignedIn, User: profile})
	return profile, nil
}

// SignInWithGoogle rolls back a failed backend exchange by deleting the
// provider account only when this sign-in created it.
func (c *Controller) SignInWithGoogle(ctx context.Context) (*GoogleResult, error) {
	release, err := c.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	var profile *auth.Profile
	var account *identity.Account
	err = saga.New("google", c.log,
		saga.Step{
			Name: "federated sign-in",
			Action: func(ctx context.Context) error {
				acct, err := c.idp.SignInWithGoogle(ctx)
				account = acct
				return err
			},
			Compensate: func(ctx context.Context) error {
				if account.IsNewUser {
					return c.idp.DeleteAccount(ctx)
				}
				return c.signOutOfProvider(ctx)
			},
		},
		c.sessionLoginStep(func() string { return account.IDToken }),
		c.fetchProfileStep(&profile),
	).Run(ctx)
	if err != nil {
		c.set(State{Status: SignedOut})
		return nil, err
	}

	c.set(State{Status: SignedIn, User: profile})
	return &GoogleResult{User: profile, IsNewUser: account.IsNewUser}, nil
}

// LogOut never fails because of the backend: the provider sign-out and the
// local state reset always happen.
func (c *Controller) LogOut(ctx context.Context) error {
	release, err := c.begin(ctx)
	if err != nil {
		return err
	}
	defer release()

	if err := c.backend.SessionLogout(ctx); err != nil {
		c.log.Warn("backend logout failed, signing out locally", zap.Error(err))
	}
	c.idp.SignOut()
	c.set(State{Status: SignedOut})
	return nil
}

// Restore adopts a session the backend still recognises, for example one
// kept in the cookie jar from earlier in the process.
func (c *Controller) Restore(ctx context.Context) (bool, error) {
	release, err := c.begin(ctx)
	if err != nil {
		return false, err
	}
	defer release()

	profile, err := c.backend.Me(ctx)
	if err != nil {
		c.log.Debug("no existing session", zap.Error(err))
		c.set(State{Status: SignedOut})
		return false, nil
	}
	c.set(State{Status: SignedIn, User: profile})
	return true, nil
}

func (c *Controller) sessionLoginStep(idToken func() string) saga.Step {
	return saga.Step{
		Name: "backend session login",
		Action: func(ctx context.Context) error {
			return c.backend.SessionLogin(ctx, idToken())
		},
		Compensate: c.backend.SessionLogout,
	}
}

func (c *Controller) fetchProfileStep(out **auth.Profile) saga.Step {
	return saga.Step{
		Name: "fetch profile",
		Action: func(ctx context.Context) error {
			profile, err := c.backend.Me(ctx)
			if err != nil {
				return err
			}
			*out = profile
			return nil
		},
	}
}

func (c *Controller) signOutOfProvider(context.Context) error {
	c.idp.SignOut()
	return nil
}

func validateCredentials(email, password string) error {
	if email == "" || password == "" {
		return ErrMissingFields
	}
	if err := checkmail.ValidateFormat(email); err != nil {
		return ErrInvalidEmail
	}
	if len(password) < MinPasswordLength {
		return ErrWeakPassword
	}
	return nil
}

// Package identity talks to the Firebase Identity Toolkit REST API on behalf of
// the terminal client and keeps the signed-in account in memory.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

const (
	DefaultBaseURL = "https://identitytoolkit.googleapis.com/v1"
	defaultTimeout = 15 * time.Second
)

var (
	ErrNotSignedIn        = errors.New("no identity provider account is signed in")
	ErrEmailExists        = errors.New("email already in use")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrWeakPassword       = errors.New("password is too weak")
	ErrGoogleDisabled     = errors.New("google sign-in is not configured")
	ErrMissingIDToken     = errors.New("google did not return an id_token")
)

// Account is the identity-provider account the client is signed in as.
type Account struct {
	UID          string
	Email        string
	DisplayName  string
	PhotoURL     string
	IDToken      string
	RefreshToken string
	IsNewUser    bool
}

// APIError is a non-2xx answer from the Identity Toolkit.
type APIError struct {
	Status int
	Code   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("identity toolkit: %d %s", e.Status, e.Code)
}

func (e *APIError) Is(target error) bool {
	code := e.Code
	if i := strings.Index(code, " "); i > 0 {
		code = code[:i]
	}
	switch target {
	case ErrEmailExists:
		return code == "EMAIL_EXISTS"
	case ErrInvalidCredentials:
		return code == "INVALID_LOGIN_CREDENTIALS" || code == "INVALID_PASSWORD" || code == "EMAIL_NOT_FOUND"
	case ErrWeakPassword:
		return code == "WEAK_PASSWORD"
	}
	return false
}

type Options struct {
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	// Google enables SignInWithGoogle. Nil disables it.
	Google *oauth2.Config
	// OnDeviceCode is shown the verification URL and user code during Google sign-in.
	OnDeviceCode func(*oauth2.DeviceAuthResponse)
}

type Client struct {
	apiKey       string
	baseURL      string
	http         *http.Client
	google       *oauth2.Config
	onDeviceCode func(*oauth2.DeviceAuthResponse)

	mu      sync.RWMutex
	current *Account
}

func NewClient(opts Options) *Client {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	onDeviceCode := opts.OnDeviceCode
	if onDeviceCode == nil {
		onDeviceCode = func(*oauth2.DeviceAuthResponse) {}
	}
	return &Client{
		apiKey:       opts.APIKey,
		baseURL:      baseURL,
		http:         httpClient,
		google:       opts.Google,
		onDeviceCode: onDeviceCode,
	}
}

// GoogleConfig builds the OAuth2 config for the Google device authorization flow.
func GoogleConfig(clientID, clientSecret string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Scopes:       []string{"openid", "email", "profile"},
		Endpoint: oauth2.Endpoint{
			AuthURL:       "https://accounts.google.com/o/oauth2/auth",
			TokenURL:      "https://oauth2.googleapis.com/token",
			DeviceAuthURL: "https://oauth2.googleapis.com/device/code",
			AuthStyle:     oauth2.AuthStyleInParams,
		},
	}
}

type authResponse struct {
	LocalID      string `json:"localId"`
	Email        string `json:"email"`
	DisplayName  string `json:"displayName"`
	PhotoURL     string `json:"photoUrl"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	IsNewUser    bool   `json:"isNewUser"`
}

func (r authResponse) account() *Account {
	return &Account{
		UID:          r.LocalID,
		Email:        r.Email,
		DisplayName:  r.DisplayName,
		PhotoURL:     r.PhotoURL,
		IDToken:      r.IDToken,
		RefreshToken: r.RefreshToken,
		IsNewUser:    r.IsNewUser,
	}
}

// SignUp creates a password account and signs in as it.
func (c *Client) SignUp(ctx context.Context, email, password string) (*Account, error) {
	var resp authResponse
	err := c.call(ctx, "accounts:signUp", map[string]interface{}{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}, &resp)
	if err != nil {
		return nil, err
	}
	acct := resp.account()
	acct.IsNewUser = true
	c.setCurrent(acct)
	return acct, nil
}

func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*Account, error) {
	var resp authResponse
	err := c.call(ctx, "accounts:signInWithPassword", map[string]interface{}{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}, &resp)
	if err != nil {
		return nil, err
	}
	acct := resp.account()
	c.setCurrent(acct)
	return acct, nil
}

// SignInWithGoogle runs the OAuth2 device flow against Google and exchanges the
// resulting Google ID token for an Identity Toolkit account.
func (c *Client) SignInWithGoogle(ctx context.Context) (*Account, error) {
	if c.google == nil {
		return nil, ErrGoogleDisabled
	}

	da, err := c.google.DeviceAuth(ctx)
	if err != nil {
		return nil, fmt.Errorf("start device authorization: %w", err)
	}
	c.onDeviceCode(da)

	token, err := c.google.DeviceAccessToken(ctx, da)
	if err != nil {
		return nil, fmt.Errorf("wait for device authorization: %w", err)
	}
	googleIDToken, _ := token.Extra("id_token").(string)
	if googleIDToken == "" {
		return nil, ErrMissingIDToken
	}

	return c.SignInWithIdp(ctx, googleIDToken)
}

// SignInWithIdp exchanges a Google ID token for an Identity Toolkit account.
func (c *Client) SignInWithIdp(ctx context.Context, googleIDToken string) (*Account, error) {
	postBody := url.Values{
		"id_token":   {googleIDToken},
		"providerId": {"google.com"},
	}
	var resp authResponse
	err := c.call(ctx, "accounts:signInWithIdp", map[string]interface{}{
		"postBody":            postBody.Encode(),
		"requestUri":          "http://localhost",
		"returnSecureToken":   true,
		"returnIdpCredential": true,
	}, &resp)
	if err != nil {
		return nil, err
	}
	acct := resp.account()
	c.setCurrent(acct)
	return acct, nil
}

// UpdateProfile sets the display name of the signed-in account and refreshes
// its ID token.
func (c *Client) UpdateProfile(ctx context.Context, displayName string) error {
	acct := c.Current()
	if acct == nil {
		return ErrNotSignedIn
	}

	var resp authResponse
	err := c.call(ctx, "accounts:update", map[string]interface{}{
		"idToken":           acct.IDToken,
		"displayName":       displayName,
		"returnSecureToken": true,
	}, &resp)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != nil && c.current.UID == acct.UID {
		updated := *c.current
		updated.DisplayName = displayName
		if resp.IDToken != "" {
			updated.IDToken = resp.IDToken
			updated.RefreshToken = resp.RefreshToken
		}
		c.current = &updated
	}
	return nil
}

// DeleteAccount deletes the signed-in account and signs out locally.
func (c *Client) DeleteAccount(ctx context.Context) error {
	acct := c.Current()
	if acct == nil {
		return ErrNotSignedIn
	}
	if err := c.call(ctx, "accounts:delete", map[string]interface{}{"idToken": acct.IDToken}, nil); err != nil {
		return err
	}
	c.SignOut()
	return nil
}

// IDToken returns the current ID token of the signed-in account.
func (c *Client) IDToken(_ context.Context) (string, error) {
	acct := c.Current()
	if acct == nil || acct.IDToken == "" {
		return "", ErrNotSignedIn
	}
	return acct.IDToken, nil
}

// SignOut forgets the signed-in account. The provider keeps no server-side
// session for REST clients.
func (c *Client) SignOut() {
	c.setCurrent(nil)
}

// Current returns a copy of the signed-in account, or nil.
func (c *Client) Current() *Account {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.current == nil {
		return nil
	}
	acct := *c.current
	return &acct
}

func (c *Client) setCurrent(acct *Account) {
	c.mu.Lock()
	c.current = acct
	c.mu.Unlock()
}

func (c *Client) call(ctx context.Context, method string, body interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", method, err)
	}

	endpoint := fmt.Sprintf("%s/%s?key=%s", c.baseURL, method, url.QueryEscape(c.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read %s response: %w", method, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.Unmarshal(raw, &apiErr)
		return &APIError{Status: resp.StatusCode, Code: apiErr.Error.Message}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s response: %w", method, err)
	}
	return nil
}

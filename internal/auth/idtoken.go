package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
)

const (
	firebaseIssuerPrefix   = "https://securetoken.google.com/"
	defaultProviderTimeout = 30 * time.Second
	authTimeSkew           = 5 * time.Minute
)

// AssertionVerifier checks an identity-provider ID token and decodes its principal.
type AssertionVerifier interface {
	Verify(ctx context.Context, rawIDToken string) (Principal, error)
}

// FirebaseVerifier validates Firebase Authentication ID tokens against the
// provider's published JWKS.
type FirebaseVerifier struct {
	verifier *gooidc.IDTokenVerifier
	now      func() time.Time
}

type firebaseClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
	PhoneNumber   string `json:"phone_number"`
	AuthTime      int64  `json:"auth_time"`
}

// NewFirebaseVerifier builds a verifier whose keys are fetched lazily from
// jwksURL and cached by go-oidc. ctx must outlive the verifier.
func NewFirebaseVerifier(ctx context.Context, projectID, jwksURL string, httpClient *http.Client) (*FirebaseVerifier, error) {
	if projectID == "" {
		return nil, errors.New("firebase project id is required")
	}
	if jwksURL == "" {
		return nil, errors.New("jwks url is required")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultProviderTimeout}
	}

	keySet := gooidc.NewRemoteKeySet(gooidc.ClientContext(ctx, httpClient), jwksURL)
	return NewFirebaseVerifierWithKeySet(projectID, keySet), nil
}

func NewFirebaseVerifierWithKeySet(projectID string, keySet gooidc.KeySet) *FirebaseVerifier {
	cfg := &gooidc.Config{ClientID: projectID}
	return &FirebaseVerifier{
		verifier: gooidc.NewVerifier(firebaseIssuerPrefix+projectID, keySet, cfg),
		now:      time.Now,
	}
}

func (v *FirebaseVerifier) Verify(ctx context.Context, rawIDToken string) (Principal, error) {
	if rawIDToken == "" {
		return Principal{}, ErrInvalidAssertion
	}

	idTok, err := v.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %v", ErrInvalidAssertion, err)
	}
	if idTok.Subject == "" {
		return Principal{}, fmt.Errorf("%w: empty subject", ErrInvalidAssertion)
	}

	var claims firebaseClaims
	if err := idTok.Claims(&claims); err != nil {
		return Principal{}, fmt.Errorf("%w: parse claims: %v", ErrInvalidAssertion, err)
	}
	if claims.AuthTime > 0 && time.Unix(claims.AuthTime, 0).After(v.now().Add(authTimeSkew)) {
		return Principal{}, fmt.Errorf("%w: auth_time in the future", ErrInvalidAssertion)
	}

	return Principal{
		UID:           idTok.Subject,
		Email:         claims.Email,
		Name:          claims.Name,
		Picture:       claims.Picture,
		PhoneNumber:   claims.PhoneNumber,
		EmailVerified: claims.EmailVerified,
	}, nil
}

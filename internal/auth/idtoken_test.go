package auth

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testProjectID = "expense-tracker-test"

func newTestSigner(t *testing.T) (*rsa.PrivateKey, *FirebaseVerifier) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	keySet := &gooidc.StaticKeySet{PublicKeys: []crypto.PublicKey{&key.PublicKey}}
	return key, NewFirebaseVerifierWithKeySet(testProjectID, keySet)
}

func signIDToken(t *testing.T, key *rsa.PrivateKey, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func validIDClaims() jwt.MapClaims {
	now := time.Now()
	return jwt.MapClaims{
		"iss":            firebaseIssuerPrefix + testProjectID,
		"aud":            testProjectID,
		"sub":            "fb-uid-1",
		"iat":            now.Unix(),
		"exp":            now.Add(time.Hour).Unix(),
		"auth_time":      now.Unix(),
		"email":          "ann@example.com",
		"email_verified": true,
		"name":           "Ann",
		"picture":        "https://img.example.com/ann.png",
	}
}

func TestFirebaseVerifier_Valid(t *testing.T) {
	key, v := newTestSigner(t)

	p, err := v.Verify(context.Background(), signIDToken(t, key, validIDClaims()))
	require.NoError(t, err)

	assert.Equal(t, Principal{
		UID:           "fb-uid-1",
		Email:         "ann@example.com",
		Name:          "Ann",
		Picture:       "https://img.example.com/ann.png",
		EmailVerified: true,
	}, p)
}

func TestFirebaseVerifier_Rejects(t *testing.T) {
	key, v := newTestSigner(t)
	otherKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token func() string
	}{
		{"empty", func() string { return "" }},
		{"garbage", func() string { return "not.a.jwt" }},
		{"wrong audience", func() string {
			c := validIDClaims()
			c["aud"] = "someone-else"
			return signIDToken(t, key, c)
		}},
		{"wrong issuer", func() string {
			c := validIDClaims()
			c["iss"] = "https://accounts.example.com"
			return signIDToken(t, key, c)
		}},
		{"expired", func() string {
			c := validIDClaims()
			c["exp"] = time.Now().Add(-time.Minute).Unix()
			return signIDToken(t, key, c)
		}},
		{"unknown key", func() string { return signIDToken(t, otherKey, validIDClaims()) }},
		{"auth time in future", func() string {
			c := validIDClaims()
			c["auth_time"] = time.Now().Add(time.Hour).Unix()
			return signIDToken(t, key, c)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Verify(context.Background(), tt.token())
			assert.ErrorIs(t, err, ErrInvalidAssertion)
		})
	}
}

func TestNewFirebaseVerifier_RequiresProject(t *testing.T) {
	_, err := NewFirebaseVerifier(context.Background(), "", "https://example.com/jwks", nil)
	assert.Error(t, err)

	_, err = NewFirebaseVerifier(context.Background(), testProjectID, "", nil)
	assert.Error(t, err)
}

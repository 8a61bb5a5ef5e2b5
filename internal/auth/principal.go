package auth

// Principal is the identity-provider account behind a request, decoded once
// from a verified ID token.
type Principal struct {
	UID           string `json:"uid"`
	Email         string `json:"email,omitempty"`
	Name          string `json:"name,omitempty"`
	Picture       string `json:"picture,omitempty"`
	PhoneNumber   string `json:"phone_number,omitempty"`
	EmailVerified bool   `json:"email_verified"`
}

// Profile is the body of GET /api/auth/me.
type Profile struct {
	UID           string `json:"uid"`
	Email         string `json:"email"`
	DisplayName   string `json:"displayName"`
	PhotoURL      string `json:"photoURL"`
	PhoneNumber   string `json:"phoneNumber"`
	EmailVerified bool   `json:"emailVerified"`
}

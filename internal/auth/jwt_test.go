package auth

import (
	"errors"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

func TestRoundTrip(t *testing.T) {
	tokens := NewTokens("s3cret", time.Hour)

	s, err := tokens.CreateAccessToken(42, "a@example.com")
	if err != nil {
		t.Fatal(err)
	}

	c, err := tokens.ParseValidate(s)
	if err != nil {
		t.Fatalf("ParseValidate: %v", err)
	}
	if c.UserID != 42 || c.Email != "a@example.com" || c.Subject != "42" {
		t.Fatalf("claims = %+v", c)
	}
}

func TestRejects(t *testing.T) {
	tokens := NewTokens("s3cret", time.Hour)
	good, _ := tokens.CreateAccessToken(7, "")

	expired := NewTokens("s3cret", time.Minute)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, _ := expired.CreateAccessToken(7, "")

	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: 7}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	noUser, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{}).SignedString([]byte("s3cret"))

	tests := map[string]struct {
		tokens *Tokens
		token  string
	}{
		"wrong secret": {NewTokens("other", time.Hour), good},
		"expired":      {tokens, old},
		"alg none":     {tokens, none},
		"garbage":      {tokens, "not.a.token"},
		"no user":      {tokens, noUser},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := tt.tokens.ParseValidate(tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("err = %v, want ErrInvalidToken", err)
			}
		})
	}
}

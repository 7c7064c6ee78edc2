package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var secret = []byte("0123456789abcdef0123456789abcdef")

func newVerifier(t *testing.T, now time.Time) *Verifier {
	t.Helper()
	v, err := NewVerifier(Config{
		Secret:   secret,
		Issuer:   "sitesmith",
		Audience: "sitesmith",
		TTL:      time.Hour,
		Now:      func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("NewVerifier error = %v", err)
	}
	return v
}

func TestIssueAndVerify(t *testing.T) {
	now := time.Now()
	v := newVerifier(t, now)

	token, err := v.Issue(Identity{UserID: "u1", Email: "ada@example.com"})
	if err != nil {
		t.Fatalf("Issue error = %v", err)
	}

	id, err := v.Verify(token)
	if err != nil {
		t.Fatalf("Verify error = %v", err)
	}
	if id.UserID != "u1" || id.Email != "ada@example.com" {
		t.Errorf("Verify = %+v", id)
	}
}

func TestVerify_Rejects(t *testing.T) {
	now := time.Now()
	v := newVerifier(t, now)

	sign := func(c jwt.Claims, method jwt.SigningMethod, key any) string {
		s, err := jwt.NewWithClaims(method, c).SignedString(key)
		if err != nil {
			t.Fatal(err)
		}
		return s
	}
	valid := func() claims {
		return claims{RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u1",
			Issuer:    "sitesmith",
			Audience:  jwt.ClaimStrings{"sitesmith"},
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		}}
	}

	expired := valid()
	expired.ExpiresAt = jwt.NewNumericDate(now.Add(-time.Minute))
	wrongIssuer := valid()
	wrongIssuer.Issuer = "someone-else"
	wrongAudience := valid()
	wrongAudience.Audience = jwt.ClaimStrings{"other"}
	noSubject := valid()
	noSubject.Subject = ""
	noExpiry := valid()
	noExpiry.ExpiresAt = nil

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"empty", "", ErrNoToken},
		{"garbage", "not-a-jwt", ErrInvalidToken},
		{"expired", sign(expired, jwt.SigningMethodHS256, secret), ErrExpiredToken},
		{"wrong secret", sign(valid(), jwt.SigningMethodHS256, []byte("another-secret-of-enough-length")), ErrInvalidToken},
		{"wrong alg", sign(valid(), jwt.SigningMethodHS512, secret), ErrInvalidToken},
		{"wrong issuer", sign(wrongIssuer, jwt.SigningMethodHS256, secret), ErrInvalidToken},
		{"wrong audience", sign(wrongAudience, jwt.SigningMethodHS256, secret), ErrInvalidToken},
		{"no subject", sign(noSubject, jwt.SigningMethodHS256, secret), ErrInvalidToken},
		{"no expiry", sign(noExpiry, jwt.SigningMethodHS256, secret), ErrInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Verify(tt.token)
			if !errors.Is(err, tt.want) {
				t.Errorf("Verify error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestFromRequest(t *testing.T) {
	v := newVerifier(t, time.Now())
	token, err := v.Issue(Identity{UserID: "u1"})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		prepare func(*http.Request)
		wantErr error
	}{
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }, nil},
		{"lowercase scheme", func(r *http.Request) { r.Header.Set("Authorization", "bearer "+token) }, nil},
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: DefaultCookie, Value: token}) }, nil},
		{"basic auth", func(r *http.Request) { r.Header.Set("Authorization", "Basic abc") }, ErrNoToken},
		{"nothing", func(*http.Request) {}, ErrNoToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			tt.prepare(r)
			id, err := v.FromRequest(r)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("FromRequest error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && id.UserID != "u1" {
				t.Errorf("FromRequest UserID = %q, want u1", id.UserID)
			}
		})
	}
}

func TestIdentityContext(t *testing.T) {
	ctx := context.Background()
	if _, err := Require(ctx); !errors.Is(err, ErrNotSignedIn) {
		t.Errorf("Require(empty) error = %v, want ErrNotSignedIn", err)
	}

	ctx = WithIdentity(ctx, Identity{UserID: "u1"})
	id, err := Require(ctx)
	if err != nil || id.UserID != "u1" {
		t.Errorf("Require = %+v, %v", id, err)
	}
}

func TestNewVerifier_RequiresSecret(t *testing.T) {
	if _, err := NewVerifier(Config{}); err == nil {
		t.Error("NewVerifier without secret should fail")
	}
}

package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type jwksFixture struct {
	privateKey *rsa.PrivateKey
	server     *httptest.Server
}

func newJWKSFixture(t *testing.T) *jwksFixture {
	t.Helper()
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}

	publicKey := privateKey.PublicKey
	jwksResponse := map[string]any{
		"keys": []any{map[string]string{
			"kty": "RSA",
			"alg": "RS256",
			"kid": "test-key",
			"use": "sig",
			"n":   base64.RawURLEncoding.EncodeToString(publicKey.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(publicKey.E)).Bytes()),
		}},
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(jwksResponse)
	}))
	t.Cleanup(server.Close)

	return &jwksFixture{privateKey: privateKey, server: server}
}

func (f *jwksFixture) signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = "test-key"
	signed, err := token.SignedString(f.privateKey)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func (f *jwksFixture) verifier(t *testing.T) *GoogleVerifier {
	t.Helper()
	verifier, err := NewGoogleVerifier(GoogleVerifierConfig{
		Audience:       "test-client",
		JWKSURL:        f.server.URL,
		AllowedIssuers: []string{"https://accounts.google.com", "accounts.google.com"},
		HTTPClient:     f.server.Client(),
	})
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}
	return verifier
}

func TestGoogleVerifierExtractsProfileClaims(t *testing.T) {
	fixture := newJWKSFixture(t)
	now := time.Now().UTC()

	signed := fixture.signToken(t, jwt.MapClaims{
		"aud":            "test-client",
		"iss":            "https://accounts.google.com",
		"sub":            "google-sub-9",
		"email":          "Ada@Example.com",
		"email_verified": true,
		"name":           "Ada Lovelace",
		"exp":            now.Add(5 * time.Minute).Unix(),
		"iat":            now.Unix(),
	})

	claims, err := fixture.verifier(t).Verify(context.Background(), signed)
	if err != nil {
		t.Fatalf("expected verification to succeed: %v", err)
	}
	if claims.Subject != "google-sub-9" {
		t.Fatalf("unexpected subject %s", claims.Subject)
	}
	if claims.Email != "ada@example.com" {
		t.Fatalf("expected normalized email, got %s", claims.Email)
	}
	if !claims.EmailVerified {
		t.Fatalf("expected email_verified to carry through")
	}
	if claims.Name != "Ada Lovelace" {
		t.Fatalf("unexpected name %s", claims.Name)
	}
}

func TestGoogleVerifierRejectsMissingEmail(t *testing.T) {
	fixture := newJWKSFixture(t)
	now := time.Now().UTC()

	signed := fixture.signToken(t, jwt.MapClaims{
		"aud": "test-client",
		"iss": "https://accounts.google.com",
		"sub": "google-sub-9",
		"exp": now.Add(5 * time.Minute).Unix(),
		"iat": now.Unix(),
	})

	_, err := fixture.verifier(t).Verify(context.Background(), signed)
	if !errors.Is(err, errMissingEmailClaim) {
		t.Fatalf("expected missing email error, got %v", err)
	}
}

func TestGoogleVerifierRejectsWrongAudience(t *testing.T) {
	fixture := newJWKSFixture(t)
	now := time.Now().UTC()

	signed := fixture.signToken(t, jwt.MapClaims{
		"aud":   "unexpected-client",
		"iss":   "https://accounts.google.com",
		"sub":   "google-sub-9",
		"email": "ada@example.com",
		"exp":   now.Add(5 * time.Minute).Unix(),
		"iat":   now.Unix(),
	})

	if _, err := fixture.verifier(t).Verify(context.Background(), signed); err == nil {
		t.Fatalf("expected verification to fail for mismatched audience")
	}
}

func TestGoogleVerifierRejectsUntrustedIssuer(t *testing.T) {
	fixture := newJWKSFixture(t)
	now := time.Now().UTC()

	signed := fixture.signToken(t, jwt.MapClaims{
		"aud":   "test-client",
		"iss":   "https://evil.example.com",
		"sub":   "google-sub-9",
		"email": "ada@example.com",
		"exp":   now.Add(5 * time.Minute).Unix(),
		"iat":   now.Unix(),
	})

	_, err := fixture.verifier(t).Verify(context.Background(), signed)
	if !errors.Is(err, errUntrustedIssuer) {
		t.Fatalf("expected untrusted issuer error, got %v", err)
	}
}

func TestNewGoogleVerifierValidatesConfiguration(t *testing.T) {
	_, err := NewGoogleVerifier(GoogleVerifierConfig{JWKSURL: "https://example.com/jwks"})
	if !errors.Is(err, ErrInvalidVerifierConfig) {
		t.Fatalf("expected invalid verifier config error, got %v", err)
	}
	if !strings.Contains(err.Error(), errMissingAudienceConfig.Error()) {
		t.Fatalf("expected audience validation error to be reported, got %v", err)
	}

	_, err = NewGoogleVerifier(GoogleVerifierConfig{Audience: "test-client", JWKSURL: " "})
	if !errors.Is(err, ErrInvalidVerifierConfig) {
		t.Fatalf("expected invalid verifier config error, got %v", err)
	}
	if !strings.Contains(err.Error(), errMissingJWKSURL.Error()) {
		t.Fatalf("expected jwks validation error to be reported, got %v", err)
	}
}

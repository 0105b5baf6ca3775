package auth

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestIssuer(t *testing.T, clock func() time.Time) *TokenIssuer {
	t.Helper()
	issuer, err := NewTokenIssuer(TokenIssuerConfig{
		SigningSecret: []byte("super-secret"),
		Issuer:        "notes-auth",
		Audience:      "notes-api",
		Clock:         clock,
	})
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}
	return issuer
}

func TestTokenIssuerIssuesWeekLongTokens(t *testing.T) {
	issuedAt := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	issuer := newTestIssuer(t, func() time.Time { return issuedAt })

	tokenString, expiresIn, err := issuer.Issue(context.Background(), "identity-1", "ada@example.com")
	if err != nil {
		t.Fatalf("expected successful issuance: %v", err)
	}
	if want := int64(7 * 24 * 3600); expiresIn != want {
		t.Fatalf("expected expiry of %d seconds, got %d", want, expiresIn)
	}

	claims, err := issuer.Validate(tokenString)
	if err != nil {
		t.Fatalf("expected validation success: %v", err)
	}
	if claims.Subject != "identity-1" {
		t.Fatalf("unexpected subject %s", claims.Subject)
	}
	if claims.Email != "ada@example.com" {
		t.Fatalf("unexpected email %s", claims.Email)
	}
	if claims.Issuer != "notes-auth" {
		t.Fatalf("unexpected issuer %s", claims.Issuer)
	}
	if len(claims.Audience) == 0 || claims.Audience[0] != "notes-api" {
		t.Fatalf("unexpected audience %#v", claims.Audience)
	}
}

func TestTokenIssuerRejectsExpiredTokens(t *testing.T) {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	issuer := newTestIssuer(t, func() time.Time { return now })

	tokenString, _, err := issuer.Issue(context.Background(), "identity-1", "ada@example.com")
	if err != nil {
		t.Fatalf("unexpected issuance error: %v", err)
	}

	now = now.Add(7*24*time.Hour - time.Second)
	if _, err := issuer.Validate(tokenString); err != nil {
		t.Fatalf("token should still validate just inside the window: %v", err)
	}

	now = now.Add(2 * time.Second)
	_, err = issuer.Validate(tokenString)
	if !errors.Is(err, ErrExpiredSessionToken) {
		t.Fatalf("expected expired token error, got %v", err)
	}
}

func TestTokenIssuerRejectsForeignSignature(t *testing.T) {
	issuer := newTestIssuer(t, nil)
	other, err := NewTokenIssuer(TokenIssuerConfig{
		SigningSecret: []byte("different-secret"),
		Issuer:        "notes-auth",
		Audience:      "notes-api",
	})
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}

	tokenString, _, err := other.Issue(context.Background(), "identity-1", "ada@example.com")
	if err != nil {
		t.Fatalf("unexpected issuance error: %v", err)
	}

	_, err = issuer.Validate(tokenString)
	if !errors.Is(err, ErrInvalidSessionToken) {
		t.Fatalf("expected invalid token error, got %v", err)
	}
}

func TestTokenIssuerRejectsMalformedTokens(t *testing.T) {
	issuer := newTestIssuer(t, nil)

	_, err := issuer.Validate("not.a.token")
	if !errors.Is(err, ErrInvalidSessionToken) {
		t.Fatalf("expected invalid token error, got %v", err)
	}
}

func TestNewTokenIssuerValidatesConfiguration(t *testing.T) {
	if _, err := NewTokenIssuer(TokenIssuerConfig{Issuer: "notes-auth", Audience: "notes-api"}); err == nil {
		t.Fatalf("expected error for missing signing secret")
	}
	if _, err := NewTokenIssuer(TokenIssuerConfig{SigningSecret: []byte("s"), Audience: "notes-api"}); err == nil {
		t.Fatalf("expected error for missing issuer")
	}
	if _, err := NewTokenIssuer(TokenIssuerConfig{SigningSecret: []byte("s"), Issuer: "notes-auth", Audience: " "}); err == nil {
		t.Fatalf("expected error for missing audience")
	}
}

func TestTokenIssuerRequiresIdentityID(t *testing.T) {
	issuer := newTestIssuer(t, nil)

	if _, _, err := issuer.Issue(context.Background(), "  ", "ada@example.com"); err == nil {
		t.Fatalf("expected error for blank identity id")
	}
}

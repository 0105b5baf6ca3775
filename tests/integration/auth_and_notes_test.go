package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Annibadakh/notes-taking-backend/internal/accounts"
	"github.com/Annibadakh/notes-taking-backend/internal/auth"
	"github.com/Annibadakh/notes-taking-backend/internal/notes"
	"github.com/Annibadakh/notes-taking-backend/internal/server"
)

const (
	signingSecret    = "integration-secret"
	registrationCode = "482913"
	loginCode        = "015204"
	jsonContentType  = "application/json"
)

type queuedPasscodes struct {
	codes []string
	index int
}

func (p *queuedPasscodes) Generate() (string, time.Time, error) {
	if p.index >= len(p.codes) {
		return "", time.Time{}, errors.New("exhausted passcodes")
	}
	code := p.codes[p.index]
	p.index++
	return code, time.Now().Add(10 * time.Minute), nil
}

type rejectAllVerifier struct{}

func (rejectAllVerifier) Verify(context.Context, string) (auth.GoogleClaims, error) {
	return auth.GoogleClaims{}, errors.New("no federated identities in this flow")
}

func TestRegistrationLoginAndNotesFlow(testContext *testing.T) {
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open("file:integration?mode=memory&cache=shared"), &gorm.Config{TranslateError: true})
	if err != nil {
		testContext.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&accounts.Identity{}, &notes.Note{}); err != nil {
		testContext.Fatalf("failed to migrate: %v", err)
	}

	tokenIssuer, err := auth.NewTokenIssuer(auth.TokenIssuerConfig{
		SigningSecret: []byte(signingSecret),
		Issuer:        "notes-auth",
		Audience:      "notes-api",
	})
	if err != nil {
		testContext.Fatalf("failed to construct token issuer: %v", err)
	}

	store, err := accounts.NewStore(db)
	if err != nil {
		testContext.Fatalf("failed to construct store: %v", err)
	}

	accountService, err := accounts.NewService(accounts.ServiceConfig{
		Store:     store,
		Hasher:    auth.NewPasswordHasher(4),
		Passcodes: &queuedPasscodes{codes: []string{registrationCode, loginCode}},
		Tokens:    tokenIssuer,
		Verifier:  rejectAllVerifier{},
		Logger:    zap.NewNop(),
	})
	if err != nil {
		testContext.Fatalf("failed to build account service: %v", err)
	}

	notesService, err := notes.NewService(notes.ServiceConfig{
		Database: db,
		Logger:   zap.NewNop(),
	})
	if err != nil {
		testContext.Fatalf("failed to build notes service: %v", err)
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		Accounts: accountService,
		Notes:    notesService,
		Tokens:   tokenIssuer,
		Logger:   zap.NewNop(),
	})
	if err != nil {
		testContext.Fatalf("failed to build handler: %v", err)
	}

	testServer := httptest.NewServer(handler)
	defer testServer.Close()

	postJSON := func(path, token string, body map[string]any) (*http.Response, map[string]any) {
		encoded, err := json.Marshal(body)
		if err != nil {
			testContext.Fatalf("failed to encode body: %v", err)
		}
		request, err := http.NewRequest(http.MethodPost, testServer.URL+path, bytes.NewReader(encoded))
		if err != nil {
			testContext.Fatalf("failed to build request: %v", err)
		}
		request.Header.Set("Content-Type", jsonContentType)
		if token != "" {
			request.Header.Set("Authorization", "Bearer "+token)
		}
		response, err := testServer.Client().Do(request)
		if err != nil {
			testContext.Fatalf("request to %s failed: %v", path, err)
		}
		defer response.Body.Close()
		payload := map[string]any{}
		if err := json.NewDecoder(response.Body).Decode(&payload); err != nil {
			testContext.Fatalf("failed to decode response from %s: %v", path, err)
		}
		return response, payload
	}

	getJSON := func(path, token string) (*http.Response, map[string]any) {
		request, err := http.NewRequest(http.MethodGet, testServer.URL+path, http.NoBody)
		if err != nil {
			testContext.Fatalf("failed to build request: %v", err)
		}
		request.Header.Set("Authorization", "Bearer "+token)
		response, err := testServer.Client().Do(request)
		if err != nil {
			testContext.Fatalf("request to %s failed: %v", path, err)
		}
		defer response.Body.Close()
		payload := map[string]any{}
		if err := json.NewDecoder(response.Body).Decode(&payload); err != nil {
			testContext.Fatalf("failed to decode response from %s: %v", path, err)
		}
		return response, payload
	}

	// Register a password account.
	response, _ := postJSON("/signup/register", "", map[string]any{
		"username": "Ada",
		"email":    "ada@example.com",
		"password": "s3cret-pass",
	})
	if response.StatusCode != http.StatusCreated {
		testContext.Fatalf("expected 201 from register, got %d", response.StatusCode)
	}

	// Logging in before verification is refused.
	response, _ = postJSON("/login/manual-login", "", map[string]any{
		"email":    "ada@example.com",
		"password": "s3cret-pass",
	})
	if response.StatusCode != http.StatusForbidden {
		testContext.Fatalf("expected 403 before verification, got %d", response.StatusCode)
	}

	// Verify the registration passcode.
	response, _ = postJSON("/signup/verify-otp", "", map[string]any{
		"email": "ada@example.com",
		"otp":   registrationCode,
	})
	if response.StatusCode != http.StatusOK {
		testContext.Fatalf("expected 200 from verify-otp, got %d", response.StatusCode)
	}

	// First factor issues a challenge, not a token.
	response, payload := postJSON("/login/manual-login", "", map[string]any{
		"email":    "ada@example.com",
		"password": "s3cret-pass",
	})
	if response.StatusCode != http.StatusOK {
		testContext.Fatalf("expected 200 from manual-login, got %d", response.StatusCode)
	}
	if _, hasToken := payload["token"]; hasToken {
		testContext.Fatalf("first factor must not yield a session token")
	}

	// Second factor mints the session token.
	response, payload = postJSON("/login/verify-otp", "", map[string]any{
		"email": "ada@example.com",
		"otp":   loginCode,
	})
	if response.StatusCode != http.StatusOK {
		testContext.Fatalf("expected 200 from login verify-otp, got %d", response.StatusCode)
	}
	sessionToken, ok := payload["token"].(string)
	if !ok || sessionToken == "" {
		testContext.Fatalf("expected a session token after the second factor")
	}

	// Create notes with the session token.
	for i := 1; i <= 3; i++ {
		response, _ = postJSON("/notes/create", sessionToken, map[string]any{
			"title":   fmt.Sprintf("Note %d", i),
			"content": "<p>alpha beta</p>",
		})
		if response.StatusCode != http.StatusCreated {
			testContext.Fatalf("expected 201 from note create, got %d", response.StatusCode)
		}
	}

	// List them back.
	response, payload = getJSON("/notes/get-notes", sessionToken)
	if response.StatusCode != http.StatusOK {
		testContext.Fatalf("expected 200 from get-notes, got %d", response.StatusCode)
	}
	data := payload["data"].(map[string]any)
	if listed := data["notes"].([]any); len(listed) != 3 {
		testContext.Fatalf("expected 3 notes, got %d", len(listed))
	}

	// Aggregate stats reflect the derived counters.
	response, payload = getJSON("/notes/stats", sessionToken)
	if response.StatusCode != http.StatusOK {
		testContext.Fatalf("expected 200 from stats, got %d", response.StatusCode)
	}
	stats := payload["data"].(map[string]any)
	if stats["total_notes"] != float64(3) {
		testContext.Fatalf("expected 3 notes in stats, got %v", stats["total_notes"])
	}
	if stats["total_words"] != float64(6) {
		testContext.Fatalf("expected 6 words in stats, got %v", stats["total_words"])
	}

	// The token gates every notes route.
	response, _ = getJSON("/notes/get-notes", "forged-token")
	if response.StatusCode != http.StatusUnauthorized {
		testContext.Fatalf("expected 401 for forged token, got %d", response.StatusCode)
	}
}

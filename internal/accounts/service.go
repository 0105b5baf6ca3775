package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Annibadakh/notes-taking-backend/internal/auth"
	"github.com/Annibadakh/notes-taking-backend/internal/mailer"
)

var (
	errMissingStore    = errors.New("accounts: store is required")
	errMissingHasher   = errors.New("accounts: password hasher is required")
	errMissingPasscode = errors.New("accounts: passcode generator is required")
	errMissingTokens   = errors.New("accounts: token issuer is required")
	errMissingVerifier = errors.New("accounts: federated verifier is required")
)

// PasscodeIssuer produces a one-time code and its absolute expiry.
type PasscodeIssuer interface {
	Generate() (code string, expiresAt time.Time, err error)
}

// PasswordHasher hashes and verifies stored credentials.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(hash, password string) bool
}

// TokenIssuer signs session tokens bound to an identity.
type TokenIssuer interface {
	Issue(ctx context.Context, identityID, email string) (token string, expiresIn int64, err error)
}

// FederatedVerifier validates externally-issued identity tokens.
type FederatedVerifier interface {
	Verify(ctx context.Context, rawToken string) (auth.GoogleClaims, error)
}

// ServiceConfig describes the collaborators of the account service.
type ServiceConfig struct {
	Store     Store
	Hasher    PasswordHasher
	Passcodes PasscodeIssuer
	Tokens    TokenIssuer
	Verifier  FederatedVerifier
	Notifier  mailer.Notifier
	Logger    *zap.Logger
	Clock     func() time.Time
	NewID     func() (string, error)
}

// Service orchestrates registration, OTP verification, password login and
// federated login against the credential store.
type Service struct {
	store     Store
	hasher    PasswordHasher
	passcodes PasscodeIssuer
	tokens    TokenIssuer
	verifier  FederatedVerifier
	notifier  mailer.Notifier
	logger    *zap.Logger
	clock     func() time.Time
	newID     func() (string, error)
}

// NewService constructs the account service with validated dependencies.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, errMissingStore
	}
	if cfg.Hasher == nil {
		return nil, errMissingHasher
	}
	if cfg.Passcodes == nil {
		return nil, errMissingPasscode
	}
	if cfg.Tokens == nil {
		return nil, errMissingTokens
	}
	if cfg.Verifier == nil {
		return nil, errMissingVerifier
	}

	notifier := cfg.Notifier
	if notifier == nil {
		notifier = &mailer.NopNotifier{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	newID := cfg.NewID
	if newID == nil {
		newID = func() (string, error) {
			value, err := uuid.NewV7()
			if err != nil {
				return "", err
			}
			return value.String(), nil
		}
	}

	return &Service{
		store:     cfg.Store,
		hasher:    cfg.Hasher,
		passcodes: cfg.Passcodes,
		tokens:    cfg.Tokens,
		verifier:  cfg.Verifier,
		notifier:  notifier,
		logger:    logger,
		clock:     clock,
		newID:     newID,
	}, nil
}

// RegisterInput carries the fields required to open a password account.
type RegisterInput struct {
	DisplayName string
	Email       string
	Password    string
}

// RegistrationResult is the caller-visible outcome of Register. It never
// includes the password, its hash or the passcode.
type RegistrationResult struct {
	IdentityID string `json:"id"`
	Email      string `json:"email"`
}

// Register creates an unverified password identity and dispatches the
// verification passcode. Mail delivery failures are logged, never surfaced.
func (s *Service) Register(ctx context.Context, input RegisterInput) (RegistrationResult, error) {
	displayName := strings.TrimSpace(input.DisplayName)
	email := normalizeEmail(input.Email)
	if displayName == "" || email == "" || input.Password == "" {
		return RegistrationResult{}, fmt.Errorf("%w: display name, email and password are required", ErrInvalidInput)
	}

	if _, err := s.store.FindByEmail(ctx, email); err == nil {
		return RegistrationResult{}, ErrDuplicateAccount
	} else if !errors.Is(err, ErrIdentityNotFound) {
		return RegistrationResult{}, fmt.Errorf("failed to check email availability: %w", err)
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return RegistrationResult{}, fmt.Errorf("failed to hash password: %w", err)
	}

	code, expiresAt, err := s.passcodes.Generate()
	if err != nil {
		return RegistrationResult{}, fmt.Errorf("failed to generate passcode: %w", err)
	}

	id, err := s.newID()
	if err != nil {
		return RegistrationResult{}, fmt.Errorf("failed to generate identity id: %w", err)
	}

	identity := &Identity{
		ID:            id,
		DisplayName:   displayName,
		Email:         email,
		PasswordHash:  &hash,
		EmailVerified: false,
		OtpCode:       &code,
		OtpExpiresAt:  &expiresAt,
	}
	if err := s.store.Create(ctx, identity); err != nil {
		// A concurrent registration winning the unique-email race surfaces
		// here rather than in the pre-check above.
		if errors.Is(err, ErrConstraintViolation) {
			return RegistrationResult{}, ErrDuplicateAccount
		}
		return RegistrationResult{}, fmt.Errorf("failed to create identity: %w", err)
	}

	s.dispatch(ctx, identity, mailer.KindVerifyEmail, code)

	return RegistrationResult{IdentityID: identity.ID, Email: identity.Email}, nil
}

// VerifyRegistrationOTP flips the email-verified flag exactly once. The
// AlreadyVerified guard makes repeat verification idempotent-by-rejection
// and distinguishes this path from the login second factor.
func (s *Service) VerifyRegistrationOTP(ctx context.Context, email, code string) error {
	email = normalizeEmail(email)
	if email == "" || strings.TrimSpace(code) == "" {
		return fmt.Errorf("%w: email and passcode are required", ErrInvalidInput)
	}

	identity, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if identity.EmailVerified {
		return ErrAlreadyVerified
	}
	if !identity.HasActiveChallenge(s.clock()) {
		return ErrOTPExpired
	}
	if *identity.OtpCode != code {
		return ErrOTPMismatch
	}

	consumed, err := s.store.ConsumeChallenge(ctx, identity.ID, code, true)
	if err != nil {
		return fmt.Errorf("failed to consume passcode: %w", err)
	}
	if !consumed {
		// Another request retired the code between the read and the
		// conditional update.
		return ErrOTPExpired
	}

	s.dispatch(ctx, identity, mailer.KindRegistrationSuccess, "")
	return nil
}

// ResendRegistrationOTP issues a fresh verification passcode for an
// unverified account, replacing any outstanding one.
func (s *Service) ResendRegistrationOTP(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return fmt.Errorf("%w: email is required", ErrInvalidInput)
	}

	identity, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if identity.EmailVerified {
		return ErrAlreadyVerified
	}

	code, expiresAt, err := s.passcodes.Generate()
	if err != nil {
		return fmt.Errorf("failed to generate passcode: %w", err)
	}
	if err := s.store.SetChallenge(ctx, identity.ID, code, expiresAt); err != nil {
		return fmt.Errorf("failed to store passcode: %w", err)
	}

	s.dispatch(ctx, identity, mailer.KindVerifyEmail, code)
	return nil
}

// ChallengeResult reports that a login passcode was issued. No session
// token exists until the second factor completes.
type ChallengeResult struct {
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Login checks the password first factor and, on success, issues the
// second-factor passcode. It never returns a session token.
func (s *Service) Login(ctx context.Context, email, password string) (ChallengeResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return ChallengeResult{}, fmt.Errorf("%w: email and password are required", ErrInvalidInput)
	}

	identity, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		return ChallengeResult{}, err
	}
	if !identity.EmailVerified {
		return ChallengeResult{}, ErrEmailNotVerified
	}
	if identity.PasswordHash == nil || !s.hasher.Verify(*identity.PasswordHash, password) {
		return ChallengeResult{}, ErrInvalidCredentials
	}

	code, expiresAt, err := s.passcodes.Generate()
	if err != nil {
		return ChallengeResult{}, fmt.Errorf("failed to generate passcode: %w", err)
	}
	if err := s.store.SetChallenge(ctx, identity.ID, code, expiresAt); err != nil {
		return ChallengeResult{}, fmt.Errorf("failed to store passcode: %w", err)
	}

	s.dispatch(ctx, identity, mailer.KindLoginCode, code)

	return ChallengeResult{Email: identity.Email, ExpiresAt: expiresAt}, nil
}

// SessionResult carries a signed session token and the public profile.
type SessionResult struct {
	Token     string  `json:"token"`
	ExpiresIn int64   `json:"expires_in"`
	Profile   Profile `json:"user"`
}

// VerifyLoginOTP completes the second factor and mints the session token.
// This is the only path that yields a usable token after a password login.
func (s *Service) VerifyLoginOTP(ctx context.Context, email, code string) (SessionResult, error) {
	email = normalizeEmail(email)
	if email == "" || strings.TrimSpace(code) == "" {
		return SessionResult{}, fmt.Errorf("%w: email and passcode are required", ErrInvalidInput)
	}

	identity, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		return SessionResult{}, err
	}
	if !identity.HasActiveChallenge(s.clock()) {
		return SessionResult{}, ErrOTPExpired
	}
	if *identity.OtpCode != code {
		return SessionResult{}, ErrOTPMismatch
	}

	consumed, err := s.store.ConsumeChallenge(ctx, identity.ID, code, false)
	if err != nil {
		return SessionResult{}, fmt.Errorf("failed to consume passcode: %w", err)
	}
	if !consumed {
		return SessionResult{}, ErrOTPExpired
	}

	token, expiresIn, err := s.tokens.Issue(ctx, identity.ID, identity.Email)
	if err != nil {
		return SessionResult{}, fmt.Errorf("failed to issue session token: %w", err)
	}

	s.dispatch(ctx, identity, mailer.KindLoginSuccess, "")

	return SessionResult{
		Token:     token,
		ExpiresIn: expiresIn,
		Profile:   identity.PublicProfile(),
	}, nil
}

// FederatedLogin validates the provider token and logs the account in,
// creating a pre-verified identity on first contact. No second-factor
// passcode applies; trust is delegated to the provider.
func (s *Service) FederatedLogin(ctx context.Context, rawToken string) (SessionResult, error) {
	claims, err := s.verifyFederatedToken(ctx, rawToken)
	if err != nil {
		return SessionResult{}, err
	}

	identity, created, err := s.findOrCreateFederated(ctx, claims)
	if err != nil {
		return SessionResult{}, err
	}
	if created {
		s.dispatch(ctx, identity, mailer.KindRegistrationSuccess, "")
	}

	token, expiresIn, err := s.tokens.Issue(ctx, identity.ID, identity.Email)
	if err != nil {
		return SessionResult{}, fmt.Errorf("failed to issue session token: %w", err)
	}

	s.dispatch(ctx, identity, mailer.KindLoginSuccess, "")

	return SessionResult{
		Token:     token,
		ExpiresIn: expiresIn,
		Profile:   identity.PublicProfile(),
	}, nil
}

// FederatedRegistrationResult reports the federated registration outcome.
// AlreadyRegistered is not an error; callers wanting a session must invoke
// FederatedLogin afterwards, as this path never mints a token.
type FederatedRegistrationResult struct {
	Profile           Profile `json:"user"`
	AlreadyRegistered bool    `json:"already_registered"`
}

// FederatedRegister creates a pre-verified identity from the provider
// token, or reports the existing record when the email is already on file.
func (s *Service) FederatedRegister(ctx context.Context, rawToken string) (FederatedRegistrationResult, error) {
	claims, err := s.verifyFederatedToken(ctx, rawToken)
	if err != nil {
		return FederatedRegistrationResult{}, err
	}

	if existing, err := s.store.FindByEmail(ctx, claims.Email); err == nil {
		return FederatedRegistrationResult{
			Profile:           existing.PublicProfile(),
			AlreadyRegistered: true,
		}, nil
	} else if !errors.Is(err, ErrIdentityNotFound) {
		return FederatedRegistrationResult{}, fmt.Errorf("failed to check email availability: %w", err)
	}

	identity, err := s.createFederated(ctx, claims)
	if err != nil {
		if errors.Is(err, ErrConstraintViolation) {
			// Lost a concurrent first-registration race; the record exists now.
			existing, findErr := s.store.FindByEmail(ctx, claims.Email)
			if findErr != nil {
				return FederatedRegistrationResult{}, fmt.Errorf("failed to refetch identity after race: %w", findErr)
			}
			return FederatedRegistrationResult{
				Profile:           existing.PublicProfile(),
				AlreadyRegistered: true,
			}, nil
		}
		return FederatedRegistrationResult{}, err
	}

	s.dispatch(ctx, identity, mailer.KindRegistrationSuccess, "")

	return FederatedRegistrationResult{Profile: identity.PublicProfile()}, nil
}

func (s *Service) verifyFederatedToken(ctx context.Context, rawToken string) (auth.GoogleClaims, error) {
	if strings.TrimSpace(rawToken) == "" {
		return auth.GoogleClaims{}, fmt.Errorf("%w: identity token is required", ErrInvalidInput)
	}
	claims, err := s.verifier.Verify(ctx, rawToken)
	if err != nil {
		s.logger.Warn("federated token verification failed", zap.Error(err))
		return auth.GoogleClaims{}, fmt.Errorf("%w: %v", ErrInvalidIDToken, err)
	}
	if claims.Email == "" || claims.Subject == "" {
		return auth.GoogleClaims{}, ErrInvalidIDToken
	}
	return claims, nil
}

func (s *Service) findOrCreateFederated(ctx context.Context, claims auth.GoogleClaims) (*Identity, bool, error) {
	identity, err := s.store.FindByEmailAndSubject(ctx, claims.Email, claims.Subject)
	if err == nil {
		return identity, false, nil
	}
	if !errors.Is(err, ErrIdentityNotFound) {
		return nil, false, fmt.Errorf("failed to look up federated identity: %w", err)
	}

	identity, err = s.createFederated(ctx, claims)
	if err == nil {
		return identity, true, nil
	}
	if !errors.Is(err, ErrConstraintViolation) {
		return nil, false, err
	}

	// The email row exists already: either a concurrent federated login won
	// the race, or a password account owns the address. Re-fetch and treat
	// it as the existing record rather than failing the login.
	identity, refetchErr := s.store.FindByEmailAndSubject(ctx, claims.Email, claims.Subject)
	if refetchErr == nil {
		return identity, false, nil
	}
	identity, refetchErr = s.store.FindByEmail(ctx, claims.Email)
	if refetchErr != nil {
		return nil, false, fmt.Errorf("failed to refetch identity after race: %w", refetchErr)
	}
	return identity, false, nil
}

func (s *Service) createFederated(ctx context.Context, claims auth.GoogleClaims) (*Identity, error) {
	id, err := s.newID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate identity id: %w", err)
	}

	displayName := claims.Name
	if displayName == "" {
		displayName = localPart(claims.Email)
	}

	subject := claims.Subject
	identity := &Identity{
		ID:            id,
		DisplayName:   displayName,
		Email:         claims.Email,
		GoogleSubject: &subject,
		EmailVerified: true,
	}
	if err := s.store.Create(ctx, identity); err != nil {
		if errors.Is(err, ErrConstraintViolation) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create federated identity: %w", err)
	}
	return identity, nil
}

// dispatch delivers a notification best-effort: failures are logged and
// never influence the outcome of the state transition that triggered them.
func (s *Service) dispatch(ctx context.Context, identity *Identity, kind mailer.Kind, code string) {
	err := s.notifier.Send(ctx, mailer.Message{
		To:          identity.Email,
		DisplayName: identity.DisplayName,
		Kind:        kind,
		Code:        code,
	})
	if err != nil {
		s.logger.Warn("notification delivery failed",
			zap.String("kind", string(kind)),
			zap.String("email", identity.Email),
			zap.Error(err))
	}
}

func localPart(email string) string {
	if at := strings.Index(email, "@"); at > 0 {
		return email[:at]
	}
	return email
}

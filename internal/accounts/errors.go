package accounts

import "errors"

// Expected, recoverable outcomes of the account flows. The HTTP boundary
// maps each to a transport status; none are process-fatal.
var (
	// ErrInvalidInput indicates a required field was missing or blank.
	ErrInvalidInput = errors.New("accounts: invalid input")
	// ErrDuplicateAccount indicates the email is already registered.
	ErrDuplicateAccount = errors.New("accounts: email already in use")
	// ErrIdentityNotFound indicates no identity matches the email.
	ErrIdentityNotFound = errors.New("accounts: identity not found")
	// ErrEmailNotVerified blocks password login before OTP verification.
	ErrEmailNotVerified = errors.New("accounts: email not verified")
	// ErrAlreadyVerified guards repeat registration verification.
	ErrAlreadyVerified = errors.New("accounts: email already verified")
	// ErrInvalidCredentials indicates the password check failed.
	ErrInvalidCredentials = errors.New("accounts: invalid credentials")
	// ErrOTPExpired indicates no challenge is pending or it has lapsed.
	ErrOTPExpired = errors.New("accounts: passcode expired")
	// ErrOTPMismatch indicates the submitted code differs from the stored one.
	ErrOTPMismatch = errors.New("accounts: passcode mismatch")
	// ErrInvalidIDToken indicates federated token verification failed.
	ErrInvalidIDToken = errors.New("accounts: invalid identity token")
	// ErrConstraintViolation is the store-level duplicate signal; the
	// service maps it to ErrDuplicateAccount or a find-or-create retry.
	ErrConstraintViolation = errors.New("accounts: unique constraint violation")
)

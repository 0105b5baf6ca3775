package auth

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"time"
)

const defaultPasscodeTTL = 10 * time.Minute

// passcodeSpan covers 100000-999999 so every code renders as six digits.
const (
	passcodeFloor = 100000
	passcodeSpan  = 900000
)

// PasscodeConfig configures one-time passcode generation.
type PasscodeConfig struct {
	TTL    time.Duration
	Clock  func() time.Time
	Reader io.Reader
}

// PasscodeGenerator produces short-lived six-digit codes for email challenges.
type PasscodeGenerator struct {
	ttl    time.Duration
	clock  func() time.Time
	reader io.Reader
}

// NewPasscodeGenerator constructs a generator with sane defaults.
func NewPasscodeGenerator(cfg PasscodeConfig) *PasscodeGenerator {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultPasscodeTTL
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	reader := cfg.Reader
	if reader == nil {
		reader = rand.Reader
	}
	return &PasscodeGenerator{ttl: ttl, clock: clock, reader: reader}
}

// Generate returns a uniformly random six-digit code and its absolute expiry.
func (g *PasscodeGenerator) Generate() (string, time.Time, error) {
	offset, err := rand.Int(g.reader, big.NewInt(passcodeSpan))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("passcode generation failed: %w", err)
	}
	code := fmt.Sprintf("%06d", offset.Int64()+passcodeFloor)
	return code, g.clock().Add(g.ttl).UTC(), nil
}

// TTL exposes the configured challenge lifetime.
func (g *PasscodeGenerator) TTL() time.Duration {
	return g.ttl
}

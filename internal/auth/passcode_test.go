package auth

import (
	"bytes"
	"strconv"
	"testing"
	"time"
)

func TestPasscodeGeneratorProducesSixDigitCodes(t *testing.T) {
	generator := NewPasscodeGenerator(PasscodeConfig{})

	for i := 0; i < 64; i++ {
		code, _, err := generator.Generate()
		if err != nil {
			t.Fatalf("unexpected generation error: %v", err)
		}
		if len(code) != 6 {
			t.Fatalf("expected six digit code, got %q", code)
		}
		value, err := strconv.Atoi(code)
		if err != nil {
			t.Fatalf("expected numeric code, got %q", code)
		}
		if value < 100000 || value > 999999 {
			t.Fatalf("code %d outside six digit range", value)
		}
	}
}

func TestPasscodeGeneratorAppliesTTLFromClock(t *testing.T) {
	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	generator := NewPasscodeGenerator(PasscodeConfig{
		TTL:   10 * time.Minute,
		Clock: func() time.Time { return fixed },
	})

	_, expiresAt, err := generator.Generate()
	if err != nil {
		t.Fatalf("unexpected generation error: %v", err)
	}
	if want := fixed.Add(10 * time.Minute); !expiresAt.Equal(want) {
		t.Fatalf("expected expiry %v, got %v", want, expiresAt)
	}
}

func TestPasscodeGeneratorPadsLowValues(t *testing.T) {
	generator := NewPasscodeGenerator(PasscodeConfig{
		Reader: bytes.NewReader(make([]byte, 64)),
	})

	code, _, err := generator.Generate()
	if err != nil {
		t.Fatalf("unexpected generation error: %v", err)
	}
	if code != "100000" {
		t.Fatalf("expected floor code for zero entropy, got %q", code)
	}
}

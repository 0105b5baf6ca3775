package auth

import "testing"

func TestPasswordHasherRoundTrip(t *testing.T) {
	hasher := NewPasswordHasher(4)

	hash, err := hasher.Hash("correct horse battery staple")
	if err != nil {
		t.Fatalf("unexpected hash error: %v", err)
	}
	if hash == "correct horse battery staple" {
		t.Fatalf("hash must not equal the plaintext")
	}

	if !hasher.Verify(hash, "correct horse battery staple") {
		t.Fatalf("expected matching password to verify")
	}
	if hasher.Verify(hash, "wrong password") {
		t.Fatalf("expected mismatched password to fail verification")
	}
}

func TestPasswordHasherRejectsEmptyPassword(t *testing.T) {
	hasher := NewPasswordHasher(4)

	if _, err := hasher.Hash(""); err == nil {
		t.Fatalf("expected error for empty password")
	}
}

func TestPasswordHasherVerifyRejectsMalformedHash(t *testing.T) {
	hasher := NewPasswordHasher(4)

	if hasher.Verify("not-a-bcrypt-hash", "anything") {
		t.Fatalf("expected malformed hash to fail verification")
	}
}

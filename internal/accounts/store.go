package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Store is the credential store contract consumed by the Service. The
// backing database enforces email uniqueness; that constraint is the sole
// concurrency guard for duplicate registration.
type Store interface {
	FindByEmail(ctx context.Context, email string) (*Identity, error)
	FindByEmailAndSubject(ctx context.Context, email, subject string) (*Identity, error)
	Create(ctx context.Context, identity *Identity) error
	Save(ctx context.Context, identity *Identity) error
	// SetChallenge installs a fresh passcode, overwriting any prior one.
	SetChallenge(ctx context.Context, identityID, code string, expiresAt time.Time) error
	// ConsumeChallenge clears the passcode (optionally flipping the
	// verified flag) only where the stored code still matches, as a single
	// conditional update. It reports false when another request consumed
	// the code first.
	ConsumeChallenge(ctx context.Context, identityID, code string, markVerified bool) (bool, error)
}

type gormStore struct {
	db *gorm.DB
}

// NewStore wraps the database handle in the Store contract.
func NewStore(db *gorm.DB) (Store, error) {
	if db == nil {
		return nil, fmt.Errorf("accounts: database handle is required")
	}
	return &gormStore{db: db}, nil
}

func (s *gormStore) FindByEmail(ctx context.Context, email string) (*Identity, error) {
	var identity Identity
	err := s.db.WithContext(ctx).
		Where("email = ?", normalizeEmail(email)).
		First(&identity).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrIdentityNotFound
	}
	if err != nil {
		return nil, err
	}
	return &identity, nil
}

func (s *gormStore) FindByEmailAndSubject(ctx context.Context, email, subject string) (*Identity, error) {
	var identity Identity
	err := s.db.WithContext(ctx).
		Where("email = ? AND google_subject = ?", normalizeEmail(email), subject).
		First(&identity).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrIdentityNotFound
	}
	if err != nil {
		return nil, err
	}
	return &identity, nil
}

func (s *gormStore) Create(ctx context.Context, identity *Identity) error {
	if err := s.db.WithContext(ctx).Create(identity).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %v", ErrConstraintViolation, err)
		}
		return err
	}
	return nil
}

func (s *gormStore) Save(ctx context.Context, identity *Identity) error {
	return s.db.WithContext(ctx).Save(identity).Error
}

func (s *gormStore) SetChallenge(ctx context.Context, identityID, code string, expiresAt time.Time) error {
	result := s.db.WithContext(ctx).Model(&Identity{}).
		Where("id = ?", identityID).
		Updates(map[string]interface{}{
			"otp_code":       code,
			"otp_expires_at": expiresAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrIdentityNotFound
	}
	return nil
}

func (s *gormStore) ConsumeChallenge(ctx context.Context, identityID, code string, markVerified bool) (bool, error) {
	updates := map[string]interface{}{
		"otp_code":       nil,
		"otp_expires_at": nil,
	}
	if markVerified {
		updates["email_verified"] = true
	}
	result := s.db.WithContext(ctx).Model(&Identity{}).
		Where("id = ? AND otp_code = ?", identityID, code).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// isUniqueViolation recognizes duplicate-key failures across the gorm
// translation layer and the raw sqlite driver message.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

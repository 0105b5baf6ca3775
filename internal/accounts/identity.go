package accounts

import (
	"strings"
	"time"
)

// Identity is the durable record of one account. PasswordHash is present
// only for password-based identities; GoogleSubject only once the account
// is linked to the provider. The OTP columns form a single pending
// challenge and are always set or cleared together.
type Identity struct {
	ID            string     `gorm:"column:id;primaryKey;size:36;not null"`
	DisplayName   string     `gorm:"column:display_name;size:190;not null"`
	Email         string     `gorm:"column:email;size:320;not null;uniqueIndex"`
	PasswordHash  *string    `gorm:"column:password_hash;size:100"`
	GoogleSubject *string    `gorm:"column:google_subject;size:190;index"`
	EmailVerified bool       `gorm:"column:email_verified;not null;default:false"`
	OtpCode       *string    `gorm:"column:otp_code;size:6"`
	OtpExpiresAt  *time.Time `gorm:"column:otp_expires_at"`
	CreatedAt     time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName exposes the table backing identities.
func (Identity) TableName() string {
	return "identities"
}

// HasActiveChallenge reports whether an unexpired passcode is outstanding.
func (i *Identity) HasActiveChallenge(now time.Time) bool {
	return i.OtpCode != nil && i.OtpExpiresAt != nil && !now.After(*i.OtpExpiresAt)
}

// Profile is the public projection of an Identity returned to callers.
// It never carries credentials or challenge state.
type Profile struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
}

// PublicProfile projects the identity into its caller-visible form.
func (i *Identity) PublicProfile() Profile {
	return Profile{
		ID:          i.ID,
		DisplayName: i.DisplayName,
		Email:       i.Email,
	}
}

// normalizeEmail trims whitespace and lowercases the address.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

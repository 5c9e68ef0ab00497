package models

import (
	"time"
)

type User struct {
	ID                      int64
	FirstName               string
	LastName                string
	Email                   string
	PasswordHash            string
	OTP                     *int // Legacy code generated at signup, never consumed
	PasswordResetOTP        *int
	PasswordResetOTPExpires *time.Time
	CreatedDate             time.Time
	UpdatedDate             time.Time
}

// NewUser builds a user record stamped with the given creation time.
// passwordHash must already be a bcrypt hash.
func NewUser(firstName, lastName, email, passwordHash string, now time.Time) *User {
	return &User{
		FirstName:    firstName,
		LastName:     lastName,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedDate:  now,
		UpdatedDate:  now,
	}
}

// Touch stamps the record as modified at now.
func (u *User) Touch(now time.Time) {
	u.UpdatedDate = now
}

// HasPendingPasswordReset reports whether a reset code has been issued and not yet consumed.
func (u *User) HasPendingPasswordReset() bool {
	return u.PasswordResetOTP != nil && u.PasswordResetOTPExpires != nil
}

// ClearPasswordResetOTP drops the reset code so it can never validate again.
func (u *User) ClearPasswordResetOTP() {
	u.PasswordResetOTP = nil
	u.PasswordResetOTPExpires = nil
}

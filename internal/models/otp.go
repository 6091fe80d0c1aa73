package models

import "time"

// OTP purposes.
const (
	OTPAccount       = "account"
	OTPPasswordReset = "password_reset"
)

// OTP is a one-time code issued by the backend.
type OTP struct {
	Email      string
	Purpose    string
	Code       string
	CreatedAt  time.Time
	VerifiedAt *time.Time
}

// Valid reports whether the code is still usable at now given ttl.
func (o OTP) Valid(now time.Time, ttl time.Duration) bool {
	return now.Sub(o.CreatedAt) < ttl
}

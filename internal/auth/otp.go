package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
)

// OTPLength is the number of digits in a one-time code.
const OTPLength = 6

var otpPattern = regexp.MustCompile(`^[0-9]{6}$`)

// NewOTP returns a uniformly random 6-digit code.
func NewOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("failed to generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// ValidOTPFormat reports whether code is exactly six digits.
func ValidOTPFormat(code string) bool {
	return otpPattern.MatchString(code)
}

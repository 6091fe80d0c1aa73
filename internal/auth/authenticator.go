package auth

import (
	"context"

	"github.com/mmynk/cookie/internal/models"
)

// Registration is the sign-up payload after JSON decoding.
type Registration struct {
	Name                 string
	Email                string
	Phone                string
	Password             string
	PasswordConfirmation string
}

// Authenticator owns account credentials for the backend's auth handlers.
// PasswordAuthenticator is the only implementation.
type Authenticator interface {
	// Register validates reg and creates the account.
	Register(ctx context.Context, reg Registration) (*models.User, error)

	// Authenticate returns the account for email when credential matches,
	// ErrInvalidCredentials otherwise.
	Authenticate(ctx context.Context, email, credential string) (*models.User, error)

	ValidateCredential(credential string) error

	// SetCredential replaces the password, as the reset flow does once its
	// OTP is verified.
	SetCredential(ctx context.Context, user *models.User, credential string) error
}

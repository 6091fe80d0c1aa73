package apiclient

import (
	"context"
	"net/http"
)

// RequestForgetPassword asks the backend to send a password-reset code.
func (c *Client) RequestForgetPassword(ctx context.Context, email string) (string, error) {
	return c.post(ctx, "password.forget", "/api/forget-password", map[string]string{"email": email})
}

// VerifyForgetPassword confirms the reset code sent to email.
func (c *Client) VerifyForgetPassword(ctx context.Context, email, otp string) (string, error) {
	return c.post(ctx, "password.verify", "/api/verify-forget-password", map[string]string{"email": email, "otp": otp})
}

// VerifyOTP confirms the signed-in user's account code.
func (c *Client) VerifyOTP(ctx context.Context, otp string) (string, error) {
	return c.post(ctx, "auth.verify_otp", "/api/verify-otp", map[string]string{"otp": otp})
}

// ResetPassword sets a new password after VerifyForgetPassword succeeded.
func (c *Client) ResetPassword(ctx context.Context, email, password string) (string, error) {
	return c.post(ctx, "password.reset", "/api/reset-password", map[string]string{"email": email, "password": password})
}

// post sends an authenticated, CSRF-protected POST and returns the message.
func (c *Client) post(ctx context.Context, endpoint, path string, payload any) (string, error) {
	body, err := c.do(ctx, request{
		endpoint: endpoint,
		method:   http.MethodPost,
		path:     path,
		body:     payload,
		csrf:     true,
		auth:     true,
	})
	if err != nil {
		return "", err
	}
	return message(endpoint, body)
}

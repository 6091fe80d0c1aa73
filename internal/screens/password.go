package screens

import (
	"context"
	"strings"
)

// ForgetPasswordScreen requests a password-reset code.
type ForgetPasswordScreen struct {
	form
	Email string
}

func NewForgetPasswordScreen(env *Env) *ForgetPasswordScreen {
	return &ForgetPasswordScreen{form: form{env: env}}
}

// Submit sends the code and moves to code verification.
func (s *ForgetPasswordScreen) Submit(ctx context.Context) error {
	return s.submit(ctx,
		func(v *validation) { v.required("email", s.Email, "Please enter your email.") },
		func(ctx context.Context) (string, error) {
			email := strings.TrimSpace(s.Email)
			msg, err := s.env.API.RequestForgetPassword(ctx, email)
			if err != nil {
				return "", err
			}
			s.env.Nav.Push(WithEmail(RouteVerifyForgetPassword, email))
			return orDefault(msg, "Password reset code sent to your email."), nil
		})
}

// VerifyForgetPasswordScreen confirms the reset code.
type VerifyForgetPasswordScreen struct {
	form
	Email string
	OTP   string
}

func NewVerifyForgetPasswordScreen(env *Env, email string) *VerifyForgetPasswordScreen {
	return &VerifyForgetPasswordScreen{form: form{env: env}, Email: email}
}

// Submit verifies the code and moves to the new-password form.
func (s *VerifyForgetPasswordScreen) Submit(ctx context.Context) error {
	return s.submit(ctx,
		func(v *validation) {
			v.required("email", s.Email, "Email is missing.")
			v.otp("otp", s.OTP)
		},
		func(ctx context.Context) (string, error) {
			email := strings.TrimSpace(s.Email)
			msg, err := s.env.API.VerifyForgetPassword(ctx, email, strings.TrimSpace(s.OTP))
			if err != nil {
				return "", err
			}
			s.env.Nav.Push(WithEmail(RouteResetPassword, email))
			return orDefault(msg, "Code verified."), nil
		})
}

// ResetPasswordScreen chooses a new password once the code is verified.
type ResetPasswordScreen struct {
	form
	Email                string
	Password             string
	PasswordConfirmation string
}

func NewResetPasswordScreen(env *Env, email string) *ResetPasswordScreen {
	return &ResetPasswordScreen{form: form{env: env}, Email: email}
}

// Submit sets the password and returns to login.
func (s *ResetPasswordScreen) Submit(ctx context.Context) error {
	return s.submit(ctx,
		func(v *validation) {
			v.required("email", s.Email, "Email is missing.")
			v.required("password", s.Password, "Password and confirmation are required.")
			v.required("password_confirmation", s.PasswordConfirmation, "Password and confirmation are required.")
			if s.Password != s.PasswordConfirmation {
				v.add("password_confirmation", "Passwords do not match.")
			}
		},
		func(ctx context.Context) (string, error) {
			msg, err := s.env.API.ResetPassword(ctx, strings.TrimSpace(s.Email), s.Password)
			if err != nil {
				return "", err
			}
			s.env.Nav.Replace(RouteLogin)
			return orDefault(msg, "Password reset successful!"), nil
		})
}

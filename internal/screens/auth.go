package screens

import (
	"context"
	"strings"

	"github.com/mmynk/cookie/internal/apiclient"
	"github.com/mmynk/cookie/internal/models"
)

// LoginScreen signs in with email and password.
type LoginScreen struct {
	form
	Email    string
	Password string
}

func NewLoginScreen(env *Env) *LoginScreen {
	return &LoginScreen{form: form{env: env}}
}

// Submit logs in and replaces the route with the profile.
func (s *LoginScreen) Submit(ctx context.Context) error {
	return s.submit(ctx,
		func(v *validation) {
			v.required("email", s.Email, "Email is required.")
			v.required("password", s.Password, "Password is required.")
		},
		func(ctx context.Context) (string, error) {
			if _, err := s.env.API.Login(ctx, strings.TrimSpace(s.Email), strings.TrimSpace(s.Password)); err != nil {
				return "", err
			}
			s.env.Nav.Replace(RouteProfile)
			return "Login successful!", nil
		})
}

// RegisterScreen creates an account.
type RegisterScreen struct {
	form
	Name                 string
	Email                string
	Password             string
	PasswordConfirmation string
	Phone                string
}

func NewRegisterScreen(env *Env) *RegisterScreen {
	return &RegisterScreen{form: form{env: env}}
}

// Submit registers. When the backend signs the user in right away the route
// moves to account OTP verification, otherwise to login.
func (s *RegisterScreen) Submit(ctx context.Context) error {
	return s.submit(ctx,
		func(v *validation) {
			v.required("name", s.Name, "Name is required.")
			v.required("email", s.Email, "Email is required.")
			v.required("password", s.Password, "Password is required.")
			v.required("phone", s.Phone, "Phone is required.")
			if strings.TrimSpace(s.Password) != strings.TrimSpace(s.PasswordConfirmation) {
				v.add("password_confirmation", "Passwords do not match.")
			}
		},
		func(ctx context.Context) (string, error) {
			res, err := s.env.API.Register(ctx, apiclient.Registration{
				Name:                 strings.TrimSpace(s.Name),
				Email:                strings.TrimSpace(s.Email),
				Password:             strings.TrimSpace(s.Password),
				PasswordConfirmation: strings.TrimSpace(s.PasswordConfirmation),
				Phone:                strings.TrimSpace(s.Phone),
			})
			if err != nil {
				return "", err
			}
			if res.Token != "" {
				s.env.Nav.Replace(RouteVerifyOTP)
			} else {
				s.env.Nav.Replace(RouteLogin)
			}
			return orDefault(res.Message, "Registration successful!"), nil
		})
}

// ProfileScreen shows the signed-in user.
type ProfileScreen struct {
	view[*models.User]
}

func NewProfileScreen(env *Env) *ProfileScreen {
	return &ProfileScreen{view: view[*models.User]{env: env}}
}

// Load fetches the profile.
func (s *ProfileScreen) Load(ctx context.Context) error {
	return s.load(ctx, func(ctx context.Context) (*models.User, error) {
		if _, err := s.env.requireSession(ctx); err != nil {
			return nil, err
		}
		return s.env.API.GetUser(ctx)
	})
}

// User returns the loaded user, or nil.
func (s *ProfileScreen) User() *models.User {
	u, _ := s.loader.Data()
	return u
}

// Logout drops the session and returns to login.
func (s *ProfileScreen) Logout(ctx context.Context) error {
	if err := s.env.API.Logout(ctx); err != nil {
		return err
	}
	s.env.Nav.Replace(RouteLogin)
	return nil
}

// OTPScreen confirms the account code sent after registration.
type OTPScreen struct {
	form
	OTP string
}

func NewOTPScreen(env *Env) *OTPScreen {
	return &OTPScreen{form: form{env: env}}
}

// Submit verifies the code and moves to the profile.
func (s *OTPScreen) Submit(ctx context.Context) error {
	return s.submit(ctx,
		func(v *validation) { v.otp("otp", s.OTP) },
		func(ctx context.Context) (string, error) {
			if _, err := s.env.requireSession(ctx); err != nil {
				return "", err
			}
			msg, err := s.env.API.VerifyOTP(ctx, strings.TrimSpace(s.OTP))
			if err != nil {
				return "", err
			}
			s.env.Nav.Replace(RouteProfile)
			return orDefault(msg, "OTP verified successfully!"), nil
		})
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

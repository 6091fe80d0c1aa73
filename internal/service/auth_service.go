package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/mmynk/cookie/internal/auth"
	"github.com/mmynk/cookie/internal/middleware"
	"github.com/mmynk/cookie/internal/models"
	"github.com/mmynk/cookie/internal/storage"
)

// AuthService serves registration, login, profile and the OTP flows.
type AuthService struct {
	authenticator auth.Authenticator
	jwtManager    *auth.JWTManager
	store         storage.Store
	otpTTL        time.Duration
	logger        *slog.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(authenticator auth.Authenticator, jwtManager *auth.JWTManager, store storage.Store, otpTTL time.Duration, logger *slog.Logger) *AuthService {
	return &AuthService{
		authenticator: authenticator,
		jwtManager:    jwtManager,
		store:         store,
		otpTTL:        otpTTL,
		logger:        logger,
	}
}

type registerRequest struct {
	Name                 string `json:"name"`
	Email                string `json:"email"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
	Phone                string `json:"phone"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Message string       `json:"message"`
	Token   string       `json:"token"`
	User    *models.User `json:"user"`
}

// Register creates a new user account and issues a token and account OTP.
func (s *AuthService) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Info("Register request", "email", req.Email)

	fields := FieldErrors{}
	if strings.TrimSpace(req.Name) == "" {
		fields.Add("name", "The name field is required.")
	}
	validateEmail(fields, req.Email)
	if strings.TrimSpace(req.Phone) == "" {
		fields.Add("phone", "The phone field is required.")
	}
	if req.Password == "" {
		fields.Add("password", "The password field is required.")
	}
	if len(fields) > 0 {
		writeValidation(w, fields)
		return
	}

	user, err := s.authenticator.Register(r.Context(), auth.Registration{
		Name:                 req.Name,
		Email:                req.Email,
		Phone:                req.Phone,
		Password:             req.Password,
		PasswordConfirmation: req.PasswordConfirmation,
	})
	switch {
	case errors.Is(err, auth.ErrEmailExists):
		writeValidation(w, FieldErrors{"email": {"The email has already been taken."}})
		return
	case errors.Is(err, auth.ErrWeakPassword):
		writeValidation(w, FieldErrors{"password": {"The password must be at least 8 characters."}})
		return
	case errors.Is(err, auth.ErrPasswordMismatch):
		writeValidation(w, FieldErrors{"password": {"The password confirmation does not match."}})
		return
	case err != nil:
		writeInternal(w, s.logger, "Registration failed", err)
		return
	}

	if err := s.issueOTP(r.Context(), user.Email, models.OTPAccount); err != nil {
		writeInternal(w, s.logger, "Failed to issue account OTP", err)
		return
	}

	token, err := s.jwtManager.Generate(user)
	if err != nil {
		writeInternal(w, s.logger, "Failed to generate token", err)
		return
	}

	s.logger.Info("User registered successfully", "user_id", user.ID, "email", user.Email)
	writeJSON(w, http.StatusCreated, authResponse{
		Message: "Registration successful! Check your email for OTP.",
		Token:   token,
		User:    user,
	})
}

// Login authenticates a user and returns a bearer token.
func (s *AuthService) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Info("Login request", "email", req.Email)

	fields := FieldErrors{}
	if strings.TrimSpace(req.Email) == "" {
		fields.Add("email", "The email field is required.")
	}
	if req.Password == "" {
		fields.Add("password", "The password field is required.")
	}
	if len(fields) > 0 {
		writeValidation(w, fields)
		return
	}

	user, err := s.authenticator.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		s.logger.Warn("Login failed", "email", req.Email, "error", err)
		writeMessage(w, http.StatusUnauthorized, "Invalid credentials.")
		return
	}

	token, err := s.jwtManager.Generate(user)
	if err != nil {
		writeInternal(w, s.logger, "Failed to generate token", err)
		return
	}

	s.logger.Info("User logged in successfully", "user_id", user.ID, "email", user.Email)
	writeJSON(w, http.StatusOK, authResponse{
		Message: "Login successful!",
		Token:   token,
		User:    user,
	})
}

// CurrentUser returns the authenticated user's profile.
func (s *AuthService) CurrentUser(w http.ResponseWriter, r *http.Request) {
	user, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type emailRequest struct {
	Email string `json:"email"`
}

// ForgetPassword issues a password-reset OTP. It answers the same way for
// unknown emails.
func (s *AuthService) ForgetPassword(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	fields := FieldErrors{}
	validateEmail(fields, req.Email)
	if len(fields) > 0 {
		writeValidation(w, fields)
		return
	}

	email := auth.NormalizeEmail(req.Email)
	user, err := s.store.GetUserByEmail(r.Context(), email)
	if err != nil {
		writeInternal(w, s.logger, "Failed to look up user", err)
		return
	}
	if user != nil {
		if err := s.issueOTP(r.Context(), email, models.OTPPasswordReset); err != nil {
			writeInternal(w, s.logger, "Failed to issue reset OTP", err)
			return
		}
	} else {
		s.logger.Info("Password reset requested for unknown email", "email", email)
	}
	writeMessage(w, http.StatusOK, "Password reset code sent to your email.")
}

type verifyForgetRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

// VerifyForgetPassword confirms a password-reset OTP.
func (s *AuthService) VerifyForgetPassword(w http.ResponseWriter, r *http.Request) {
	var req verifyForgetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	fields := FieldErrors{}
	validateEmail(fields, req.Email)
	if !auth.ValidOTPFormat(req.OTP) {
		fields.Add("otp", "The otp must be 6 digits.")
	}
	if len(fields) > 0 {
		writeValidation(w, fields)
		return
	}

	email := auth.NormalizeEmail(req.Email)
	if !s.checkOTP(w, r, email, models.OTPPasswordReset, req.OTP) {
		return
	}
	writeMessage(w, http.StatusOK, "OTP verified. You may now reset your password.")
}

type otpRequest struct {
	OTP string `json:"otp"`
}

// VerifyOTP confirms the authenticated user's account OTP.
func (s *AuthService) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req otpRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	if !auth.ValidOTPFormat(req.OTP) {
		writeValidation(w, FieldErrors{"otp": {"The otp must be 6 digits."}})
		return
	}

	user, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	if !s.checkOTP(w, r, user.Email, models.OTPAccount, req.OTP) {
		return
	}
	if err := s.store.MarkUserVerified(r.Context(), user.ID, time.Now()); err != nil {
		writeInternal(w, s.logger, "Failed to mark user verified", err)
		return
	}
	if err := s.store.DeleteOTP(r.Context(), user.Email, models.OTPAccount); err != nil {
		s.logger.Warn("Failed to delete account OTP", "user_id", user.ID, "error", err)
	}
	s.logger.Info("Account verified", "user_id", user.ID)
	writeMessage(w, http.StatusOK, "OTP verified successfully!")
}

type resetPasswordRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ResetPassword sets a new password once the reset OTP has been verified.
func (s *AuthService) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	fields := FieldErrors{}
	validateEmail(fields, req.Email)
	if err := s.authenticator.ValidateCredential(req.Password); err != nil {
		fields.Add("password", "The password must be at least 8 characters.")
	}
	if len(fields) > 0 {
		writeValidation(w, fields)
		return
	}

	email := auth.NormalizeEmail(req.Email)
	otp, err := s.store.GetOTP(r.Context(), email, models.OTPPasswordReset)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		writeInternal(w, s.logger, "Failed to load reset OTP", err)
		return
	}
	if otp == nil || otp.VerifiedAt == nil || !otp.Valid(time.Now(), s.otpTTL) {
		writeValidation(w, FieldErrors{"email": {"Verify the reset code before choosing a new password."}})
		return
	}

	user, err := s.store.GetUserByEmail(r.Context(), email)
	if err != nil {
		writeInternal(w, s.logger, "Failed to look up user", err)
		return
	}
	if user == nil {
		writeValidation(w, FieldErrors{"email": {"We can't find a user with that email address."}})
		return
	}
	if err := s.authenticator.SetCredential(r.Context(), user, req.Password); err != nil {
		writeInternal(w, s.logger, "Failed to reset password", err)
		return
	}
	if err := s.store.DeleteOTP(r.Context(), email, models.OTPPasswordReset); err != nil {
		s.logger.Warn("Failed to delete reset OTP", "user_id", user.ID, "error", err)
	}

	s.logger.Info("Password reset", "user_id", user.ID)
	writeMessage(w, http.StatusOK, "Password reset successful!")
}

// currentUser loads the authenticated user, answering 401 when the token
// refers to a user that no longer exists.
func (s *AuthService) currentUser(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	userID := middleware.GetUserID(r.Context())
	if userID == 0 {
		writeMessage(w, http.StatusUnauthorized, "Unauthenticated.")
		return nil, false
	}
	user, err := s.store.GetUserByID(r.Context(), userID)
	if err != nil {
		writeInternal(w, s.logger, "Failed to load user", err)
		return nil, false
	}
	if user == nil {
		writeMessage(w, http.StatusUnauthorized, "Unauthenticated.")
		return nil, false
	}
	return user, true
}

// issueOTP stores a fresh code. Delivery is out of scope for the reference
// backend, so the code is logged.
func (s *AuthService) issueOTP(ctx context.Context, email, purpose string) error {
	code, err := auth.NewOTP()
	if err != nil {
		return err
	}
	if err := s.store.SaveOTP(ctx, &models.OTP{Email: email, Purpose: purpose, Code: code}); err != nil {
		return err
	}
	s.logger.Info("OTP issued", "email", email, "purpose", purpose, "code", code)
	return nil
}

// checkOTP compares code against the stored one and marks it verified.
// It writes the response and returns false on any failure.
func (s *AuthService) checkOTP(w http.ResponseWriter, r *http.Request, email, purpose, code string) bool {
	otp, err := s.store.GetOTP(r.Context(), email, purpose)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		writeInternal(w, s.logger, "Failed to load OTP", err)
		return false
	}
	if otp == nil || otp.Code != code || !otp.Valid(time.Now(), s.otpTTL) {
		writeValidation(w, FieldErrors{"otp": {"The code is invalid or has expired."}})
		return false
	}
	if err := s.store.MarkOTPVerified(r.Context(), email, purpose, time.Now()); err != nil {
		writeInternal(w, s.logger, "Failed to verify OTP", err)
		return false
	}
	return true
}

func validateEmail(fields FieldErrors, email string) {
	email = strings.TrimSpace(email)
	if email == "" {
		fields.Add("email", "The email field is required.")
		return
	}
	if _, err := mail.ParseAddress(email); err != nil {
		fields.Add("email", "The email must be a valid email address.")
	}
}

package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mmynk/cookie/internal/models"
)

// Login authenticates and stores the returned session before returning.
func (c *Client) Login(ctx context.Context, email, password string) (*models.AuthResult, error) {
	const endpoint = "auth.login"
	body, err := c.do(ctx, request{
		endpoint: endpoint,
		method:   http.MethodPost,
		path:     "/api/login",
		body:     map[string]string{"email": email, "password": password},
		csrf:     true,
	})
	if err != nil {
		return nil, err
	}

	var res models.AuthResult
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, decodeError(endpoint, err)
	}
	if res.Token == "" {
		return nil, decodeError(endpoint, errors.New("response carries no token"))
	}
	if !res.User.Complete() {
		return nil, decodeError(endpoint, errors.New("response carries no complete user"))
	}
	if err := c.sessions.Set(ctx, res.Token, res.User); err != nil {
		return nil, err
	}
	c.logger.Info("Logged in", "user_id", res.User.ID, "email", res.User.Email)
	return &res, nil
}

// Registration is the sign-up form.
type Registration struct {
	Name                 string `json:"name"`
	Email                string `json:"email"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
	Phone                string `json:"phone"`
}

// Register creates an account. When the backend returns a token the session
// is stored, so the account OTP can be verified right away.
func (c *Client) Register(ctx context.Context, reg Registration) (*models.AuthResult, error) {
	const endpoint = "auth.register"
	body, err := c.do(ctx, request{
		endpoint: endpoint,
		method:   http.MethodPost,
		path:     "/api/register",
		body:     reg,
		csrf:     true,
	})
	if err != nil {
		return nil, err
	}

	var res models.AuthResult
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, decodeError(endpoint, err)
	}
	if res.Token != "" {
		if err := c.sessions.Set(ctx, res.Token, res.User); err != nil {
			return nil, err
		}
	}
	return &res, nil
}

// Logout discards the local session. The backend keeps no server-side
// session for bearer tokens.
func (c *Client) Logout(ctx context.Context) error {
	return c.sessions.Clear(ctx)
}

// GetUser returns the authenticated user's profile.
func (c *Client) GetUser(ctx context.Context) (*models.User, error) {
	const endpoint = "auth.user"
	body, err := c.do(ctx, request{
		endpoint: endpoint,
		method:   http.MethodGet,
		path:     "/api/user",
		auth:     true,
	})
	if err != nil {
		return nil, err
	}
	user, err := unwrapData[models.User](endpoint, body)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

package api

import (
	"context"
	"errors"
	"strings"

	apierrors "github.com/kutbudev/agenda-cli/internal/errors"
	"github.com/kutbudev/agenda-cli/internal/models"
)

// User is the account returned by the auth endpoints.
type User struct {
	ID    models.ID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

// AuthResult is the response of login, register and refresh.
type AuthResult struct {
	Token     string `json:"token"`
	User      *User  `json:"user,omitempty"`
	Message   string `json:"message,omitempty"`
	ExpiresIn int    `json:"expires_in,omitempty"`
}

// RegisterRequest is the body for /auth/register.
type RegisterRequest struct {
	Name                 string `json:"name"`
	Email                string `json:"email"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
}

func decodeAuth(body []byte) (*AuthResult, error) {
	var res AuthResult
	if err := decode("auth", body, &res); err != nil {
		return nil, err
	}
	if strings.TrimSpace(res.Token) == "" {
		return nil, &apierrors.MalformedResponseError{Resource: "auth", Reason: "no token in response"}
	}
	return &res, nil
}

// Login exchanges email and password for a token.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	body, err := c.send(ctx, call{
		method:   "POST",
		endpoint: "/auth/login",
		body:     map[string]string{"email": email, "password": password},
		noRetry:  true,
	})
	if err != nil {
		return nil, err
	}
	return decodeAuth(body)
}

// Register creates an account and returns its first token.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*AuthResult, error) {
	if req.PasswordConfirmation == "" {
		req.PasswordConfirmation = req.Password
	}
	body, err := c.send(ctx, call{method: "POST", endpoint: "/auth/register", body: req, noRetry: true})
	if err != nil {
		return nil, err
	}
	return decodeAuth(body)
}

// Refresh trades token for a new one. It never triggers the refresh retry.
func (c *Client) Refresh(ctx context.Context, token string) (*AuthResult, error) {
	if token == "" {
		return nil, errors.New("no token to refresh")
	}
	body, err := c.send(ctx, call{method: "POST", endpoint: "/auth/refresh", bearer: token, noRetry: true})
	if err != nil {
		return nil, err
	}
	return decodeAuth(body)
}

// Logout revokes the current token on the server.
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.send(ctx, call{method: "POST", endpoint: "/auth/logout", body: struct{}{}, noRetry: true})
	return err
}

// Me returns the account behind the current token.
func (c *Client) Me(ctx context.Context) (*User, error) {
	body, err := c.send(ctx, call{method: "GET", endpoint: "/auth/me"})
	if err != nil {
		return nil, err
	}
	var u User
	if err := decode("user", body, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

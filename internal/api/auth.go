package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/desertthunder/sonicvision/internal/credentials"
	"github.com/desertthunder/sonicvision/internal/models"
)

// Login exchanges username and password for a token pair and stores it.
func (c *Client) Login(ctx context.Context, username, password string) (*models.AuthResponse, error) {
	var resp models.AuthResponse
	if err := c.anonymous(ctx, http.MethodPost, "/users/token/", models.LoginRequest{Username: username, Password: password}, &resp); err != nil {
		return nil, err
	}
	if err := c.storeTokens(ctx, resp.Pair()); err != nil {
		return nil, err
	}
	c.logger.Debug("logged in", "username", username)
	return &resp, nil
}

// Register creates an account. Tokens are stored when the backend issues them with the response.
func (c *Client) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	var resp models.AuthResponse
	if err := c.anonymous(ctx, http.MethodPost, "/users/register/", req, &resp); err != nil {
		return nil, err
	}
	if pair := resp.Pair(); pair.Access != "" {
		if err := c.storeTokens(ctx, pair); err != nil {
			return nil, err
		}
	}
	return &resp, nil
}

// GoogleLogin hands an OAuth authorization code to the backend, which performs the exchange.
func (c *Client) GoogleLogin(ctx context.Context, code, redirectURI string) (*models.AuthResponse, error) {
	var resp models.AuthResponse
	req := models.GoogleLoginRequest{Code: code, RedirectURI: redirectURI}
	if err := c.anonymous(ctx, http.MethodPost, "/auth/google/", req, &resp); err != nil {
		return nil, err
	}
	if err := c.storeTokens(ctx, resp.Pair()); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Logout tells the backend to blacklist the refresh token, then clears local credentials.
//
// The local clear happens even when the backend call fails; only a failure to clear is returned.
func (c *Client) Logout(ctx context.Context) error {
	vault := c.pipe.Vault()

	pair, err := vault.Load(ctx)
	if err == nil && pair.RefreshToken != "" {
		body := map[string]string{"refresh": pair.RefreshToken}
		if err := c.anonymous(ctx, http.MethodPost, "/users/logout/", body, nil); err != nil {
			c.logger.Warn("backend logout failed, clearing local session anyway", "error", err)
		}
	}

	return vault.Clear(ctx)
}

// Profile returns the authenticated user.
func (c *Client) Profile(ctx context.Context) (*models.User, error) {
	var u models.User
	if err := c.call(ctx, http.MethodGet, "/users/profile/", nil, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateProfile patches the authenticated user's profile.
func (c *Client) UpdateProfile(ctx context.Context, update models.ProfileUpdate) (*models.User, error) {
	var u models.User
	if err := c.call(ctx, http.MethodPatch, "/users/profile/", nil, update, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// ChangePassword updates the password of the authenticated user.
func (c *Client) ChangePassword(ctx context.Context, change models.PasswordChange) error {
	return c.call(ctx, http.MethodPost, "/users/password/", nil, change, nil)
}

func (c *Client) storeTokens(ctx context.Context, pair models.TokenPair) error {
	if pair.Access == "" {
		return fmt.Errorf("login response did not include an access token")
	}
	return c.pipe.Vault().Replace(ctx, credentials.Pair{AccessToken: pair.Access, RefreshToken: pair.Refresh})
}

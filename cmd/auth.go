package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/sonicvision/internal/credentials"
	"github.com/desertthunder/sonicvision/internal/models"
	"github.com/desertthunder/sonicvision/internal/server"
	"github.com/desertthunder/sonicvision/internal/shared"
)

const oauthTimeout = 2 * time.Minute

// AuthLogin signs in with username and password and stores the token pair.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	password := cmd.String("password")
	if password == "" {
		return fmt.Errorf("%w: --password or SV_PASSWORD", shared.ErrMissingArgument)
	}

	m, _, err := r.backend(ctx)
	if err != nil {
		return err
	}

	user, err := m.Login(ctx, cmd.String("username"), password)
	if err != nil {
		return err
	}
	r.logger.Info("authentication successful", "user", user.Username)
	return r.writePlain("✓ Logged in as %s\n", user.Username)
}

// AuthRegister creates an account and signs in when the backend returns tokens.
func (r *Runner) AuthRegister(ctx context.Context, cmd *cli.Command) error {
	password := cmd.String("password")
	if password == "" {
		return fmt.Errorf("%w: --password or SV_PASSWORD", shared.ErrMissingArgument)
	}

	m, _, err := r.backend(ctx)
	if err != nil {
		return err
	}

	user, err := m.Register(ctx, models.RegisterRequest{
		Username: cmd.String("username"),
		Email:    cmd.String("email"),
		Password: password,
	})
	if err != nil {
		return err
	}
	if !m.IsAuthenticated() || user == nil {
		return r.writePlain("✓ Account created. Run 'sv auth login -u %s' to sign in.\n", cmd.String("username"))
	}
	return r.writePlain("✓ Registered and logged in as %s\n", user.Username)
}

// AuthGoogle runs the browser sign-in: the local callback captures the code and the backend exchanges it.
func (r *Runner) AuthGoogle(ctx context.Context, cmd *cli.Command) error {
	clientID := r.config.Google.ClientID
	if clientID == "" || clientID == "your_google_client_id" {
		return fmt.Errorf("%w: google.client_id", shared.ErrMissingCredentials)
	}

	m, _, err := r.backend(ctx)
	if err != nil {
		return err
	}

	state, err := server.GenerateState()
	if err != nil {
		return err
	}

	host, port := r.config.Server.Host, r.config.Server.Port
	redirect := server.RedirectURL(host, port)
	authURL := server.GoogleAuthURL(clientID, redirect, state)

	ln, err := server.Listen(net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return err
	}

	r.writePlain("Opening browser for Google sign-in...\n")
	r.writePlain("If the browser does not open, visit:\n%s\n\n", authURL)

	open := func() error { return shared.OpenBrowser(authURL) }
	code, err := server.AwaitCode(ctx, ln, server.NewOAuthHandler(state), oauthTimeout, open, r.logger)
	if err != nil {
		return err
	}

	user, err := m.LoginWithGoogle(ctx, code, redirect)
	if err != nil {
		return err
	}
	return r.writePlain("✓ Logged in as %s\n", user.Username)
}

// AuthLogout clears the stored tokens.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	m, _, err := r.backend(ctx)
	if err != nil {
		return err
	}
	if err := m.Logout(ctx); err != nil {
		return err
	}
	return r.writePlain("✓ Logged out\n")
}

type authStatus struct {
	Authenticated bool         `json:"authenticated"`
	User          *models.User `json:"user,omitempty"`
	ExpiresAt     *time.Time   `json:"access_expires_at,omitempty"`
}

// AuthStatus restores the session from storage and reports the signed-in user.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	m, client, err := r.backend(ctx)
	if err != nil {
		return err
	}

	r.logger.Info("checking auth status")

	var status authStatus
	user, err := m.Restore(ctx)
	switch {
	case errors.Is(err, shared.ErrNotAuthenticated):
	case err != nil:
		return err
	default:
		status.Authenticated = true
		status.User = user
		if token, err := client.Pipeline().Vault().AccessToken(ctx); err == nil {
			if exp, ok := credentials.ExpiresAt(token); ok {
				status.ExpiresAt = &exp
			}
		}
	}

	if cmd.Bool("json") {
		return r.writeJSON(status, cmd.Bool("pretty"))
	}

	if !status.Authenticated {
		return r.writePlain("Authentication: ✗ Not logged in\n")
	}
	r.writePlain("Authentication: ✓ Logged in as %s\n", status.User.Username)
	if status.User.Email != "" {
		r.writePlain("Email: %s\n", status.User.Email)
	}
	if status.ExpiresAt != nil {
		r.writePlain("Access token expires: %s\n", status.ExpiresAt.Local().Format(time.RFC1123))
	}
	return nil
}

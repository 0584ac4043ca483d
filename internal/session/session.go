// Package session tracks who is logged in and tells the shell when to send the user back to login.
//
// [Manager] installs itself as the pipeline's auth-expired hook. A terminal auth failure always
// clears the stored tokens (done by the pipeline) and publishes [LoginRoute] on [Manager.Navigate].
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/sonicvision/internal/api"
	"github.com/desertthunder/sonicvision/internal/models"
	"github.com/desertthunder/sonicvision/internal/pipeline"
	"github.com/desertthunder/sonicvision/internal/shared"
)

// LoginRoute is published when the session ends involuntarily.
const LoginRoute = "/login"

// Manager owns the session state derived from the stored tokens and the fetched profile.
type Manager struct {
	client *api.Client
	logger *log.Logger

	mu   sync.RWMutex
	user *models.User

	navigate chan string
	expired  func(err error)
}

// New creates a [Manager]. Call [Manager.HandleAuthExpired] from pipeline.Options.OnAuthExpired,
// or use [Bind] to build the pipeline and manager together.
func New(client *api.Client, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Manager{
		client:   client,
		logger:   shared.WithLogger(logger, "component", "session"),
		navigate: make(chan string, 1),
	}
}

// Navigate delivers route changes requested by the session. At most one pending signal is kept.
func (m *Manager) Navigate() <-chan string { return m.navigate }

// OnExpired registers an extra callback run after the session is marked unauthenticated.
func (m *Manager) OnExpired(fn func(err error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expired = fn
}

// HandleAuthExpired marks the session unauthenticated and signals navigation to [LoginRoute].
func (m *Manager) HandleAuthExpired(_ context.Context, err *pipeline.AuthExpiredError) {
	m.mu.Lock()
	m.user = nil
	fn := m.expired
	m.mu.Unlock()

	m.logger.Info("session expired, login required", "status", err.StatusCode)

	select {
	case m.navigate <- LoginRoute:
	default:
	}

	if fn != nil {
		fn(err)
	}
}

// Login authenticates, stores the tokens and fetches the profile.
func (m *Manager) Login(ctx context.Context, username, password string) (*models.User, error) {
	if _, err := m.client.Login(ctx, username, password); err != nil {
		return nil, err
	}
	return m.Restore(ctx)
}

// Register creates the account and, when the backend issued tokens, loads the profile.
func (m *Manager) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	resp, err := m.client.Register(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.Pair().Access == "" {
		return resp.User, nil
	}
	return m.Restore(ctx)
}

// LoginWithGoogle completes a Google sign-in with an authorization code.
func (m *Manager) LoginWithGoogle(ctx context.Context, code, redirectURI string) (*models.User, error) {
	if _, err := m.client.GoogleLogin(ctx, code, redirectURI); err != nil {
		return nil, err
	}
	return m.Restore(ctx)
}

// Restore fetches the profile when an access or refresh token is stored.
//
// It returns [shared.ErrNotAuthenticated] when nothing is stored.
func (m *Manager) Restore(ctx context.Context) (*models.User, error) {
	pair, err := m.client.Pipeline().Vault().Load(ctx)
	if err != nil {
		return nil, err
	}
	if pair.AccessToken == "" && pair.RefreshToken == "" {
		return nil, shared.ErrNotAuthenticated
	}

	user, err := m.client.Profile(ctx)
	if err != nil {
		m.setUser(nil)
		if errors.Is(err, shared.ErrAuthExpired) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}

	m.setUser(user)
	return user, nil
}

// Logout ends the session on the backend and locally.
func (m *Manager) Logout(ctx context.Context) error {
	m.setUser(nil)
	return m.client.Logout(ctx)
}

// IsAuthenticated reports whether a profile was fetched with the stored token.
func (m *Manager) IsAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.user != nil
}

// CurrentUser returns the loaded profile or nil.
func (m *Manager) CurrentUser() *models.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.user == nil {
		return nil
	}
	u := *m.user
	return &u
}

func (m *Manager) setUser(u *models.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.user = u
}

// Bind builds a pipeline from opts with the returned manager installed as its auth-expired hook.
//
// Any OnAuthExpired already set in opts still runs, before the manager's handler.
func Bind(opts pipeline.Options, logger *log.Logger) (*Manager, *api.Client, error) {
	var m *Manager
	prev := opts.OnAuthExpired
	opts.OnAuthExpired = func(ctx context.Context, err *pipeline.AuthExpiredError) {
		if prev != nil {
			prev(ctx, err)
		}
		m.HandleAuthExpired(ctx, err)
	}

	pipe, err := pipeline.New(opts)
	if err != nil {
		return nil, nil, err
	}

	client := api.New(pipe, logger)
	m = New(client, logger)
	return m, client, nil
}

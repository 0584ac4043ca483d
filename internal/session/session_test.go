package session

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/sonicvision/internal/api"
	"github.com/desertthunder/sonicvision/internal/credentials"
	"github.com/desertthunder/sonicvision/internal/models"
	"github.com/desertthunder/sonicvision/internal/pipeline"
	"github.com/desertthunder/sonicvision/internal/shared"
	tu "github.com/desertthunder/sonicvision/internal/testing"
)

func newManager(t *testing.T) (*Manager, *api.Client, *tu.Backend, *credentials.Vault) {
	t.Helper()

	backend := tu.NewBackend(t)
	backend.HandleAuthed("GET /api/users/profile/", func(w http.ResponseWriter, r *http.Request) {
		tu.WriteJSON(w, http.StatusOK, models.User{ID: 1, Username: tu.Username})
	})
	backend.HandleAuthed("GET /api/playlists/42/", func(w http.ResponseWriter, r *http.Request) {
		tu.WriteJSON(w, http.StatusOK, models.Playlist{ID: 42})
	})

	vault := credentials.NewVault(credentials.NewMemoryKV(), "", "")
	m, client, err := Bind(pipeline.Options{BaseURL: backend.URL(), Vault: vault}, nil)
	if err != nil {
		t.Fatalf("failed to bind session: %v", err)
	}
	return m, client, backend, vault
}

func TestManager(t *testing.T) {
	ctx := context.Background()

	t.Run("Login fetches profile", func(t *testing.T) {
		m, _, _, _ := newManager(t)

		if m.IsAuthenticated() {
			t.Fatal("should start unauthenticated")
		}

		u, err := m.Login(ctx, tu.Username, tu.Password)
		if err != nil {
			t.Fatalf("login failed: %v", err)
		}
		if u.Username != tu.Username || !m.IsAuthenticated() {
			t.Errorf("expected authenticated session for %s", tu.Username)
		}
		if cu := m.CurrentUser(); cu == nil || cu.ID != 1 {
			t.Errorf("unexpected current user %+v", cu)
		}
	})

	t.Run("Restore without tokens", func(t *testing.T) {
		m, _, _, _ := newManager(t)
		if _, err := m.Restore(ctx); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("Restore with stored tokens", func(t *testing.T) {
		m, _, backend, vault := newManager(t)
		access, refresh := backend.IssueTokens()
		_ = vault.Save(ctx, credentials.Pair{AccessToken: access, RefreshToken: refresh})

		if _, err := m.Restore(ctx); err != nil {
			t.Fatalf("restore failed: %v", err)
		}
		if !m.IsAuthenticated() {
			t.Error("restored session should be authenticated")
		}
	})

	t.Run("failed refresh logs out and navigates to login", func(t *testing.T) {
		m, client, backend, vault := newManager(t)
		if _, err := m.Login(ctx, tu.Username, tu.Password); err != nil {
			t.Fatalf("login failed: %v", err)
		}

		var extra atomic.Int32
		m.OnExpired(func(err error) { extra.Add(1) })

		backend.ExpireAccess()
		backend.FailRefresh(true)

		_, err := client.Playlist(ctx, 42)
		if !errors.Is(err, shared.ErrAuthExpired) {
			t.Fatalf("expected auth expired, got %v", err)
		}

		if m.IsAuthenticated() {
			t.Error("session should be unauthenticated")
		}
		if pair, _ := vault.Load(ctx); pair != (credentials.Pair{}) {
			t.Errorf("tokens should be cleared, got %+v", pair)
		}

		select {
		case route := <-m.Navigate():
			if route != LoginRoute {
				t.Errorf("expected %s, got %s", LoginRoute, route)
			}
		case <-time.After(time.Second):
			t.Fatal("expected navigation signal")
		}
		if extra.Load() != 1 {
			t.Errorf("expected OnExpired callback once, got %d", extra.Load())
		}
	})

	t.Run("navigation signal does not block repeated expiries", func(t *testing.T) {
		m, _, _, _ := newManager(t)
		for i := 0; i < 3; i++ {
			m.HandleAuthExpired(ctx, &pipeline.AuthExpiredError{StatusCode: 401})
		}
		if got := <-m.Navigate(); got != LoginRoute {
			t.Errorf("unexpected route %s", got)
		}
	})

	t.Run("Logout", func(t *testing.T) {
		m, _, _, vault := newManager(t)
		_, _ = m.Login(ctx, tu.Username, tu.Password)

		if err := m.Logout(ctx); err != nil {
			t.Fatalf("logout failed: %v", err)
		}
		if m.IsAuthenticated() {
			t.Error("should be unauthenticated after logout")
		}
		if pair, _ := vault.Load(ctx); pair.AccessToken != "" {
			t.Error("tokens should be cleared after logout")
		}
		select {
		case <-m.Navigate():
			t.Error("voluntary logout should not publish navigation")
		default:
		}
	})
}

package credentials

import (
	"context"
	"fmt"
	"sync"
)

const (
	DefaultAccessKey  = "access_token"
	DefaultRefreshKey = "refresh_token"
)

// Pair is the stored credential pair. Either token may be empty.
type Pair struct {
	AccessToken  string
	RefreshToken string
}

// Vault reads and writes the credential pair under fixed key names.
//
// The mutex orders writes from this process so a reader that starts after a completed
// Save or SetAccess observes the new value. The KV backend is the source of truth.
type Vault struct {
	kv         KV
	accessKey  string
	refreshKey string
	mu         sync.RWMutex
}

// NewVault creates a [Vault] over kv. Empty key names fall back to [DefaultAccessKey] and [DefaultRefreshKey].
func NewVault(kv KV, accessKey, refreshKey string) *Vault {
	if accessKey == "" {
		accessKey = DefaultAccessKey
	}
	if refreshKey == "" {
		refreshKey = DefaultRefreshKey
	}
	return &Vault{kv: kv, accessKey: accessKey, refreshKey: refreshKey}
}

// KV exposes the backing store for other cached values such as provider tokens.
func (v *Vault) KV() KV { return v.kv }

// Load returns the stored pair.
func (v *Vault) Load(ctx context.Context) (Pair, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	access, _, err := v.kv.Get(ctx, v.accessKey)
	if err != nil {
		return Pair{}, fmt.Errorf("failed to read access token: %w", err)
	}
	refresh, _, err := v.kv.Get(ctx, v.refreshKey)
	if err != nil {
		return Pair{}, fmt.Errorf("failed to read refresh token: %w", err)
	}
	return Pair{AccessToken: access, RefreshToken: refresh}, nil
}

// AccessToken returns only the stored access token.
func (v *Vault) AccessToken(ctx context.Context) (string, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	access, _, err := v.kv.Get(ctx, v.accessKey)
	if err != nil {
		return "", fmt.Errorf("failed to read access token: %w", err)
	}
	return access, nil
}

// Save stores both tokens. An empty RefreshToken leaves the stored refresh token untouched.
func (v *Vault) Save(ctx context.Context, p Pair) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.kv.Set(ctx, v.accessKey, p.AccessToken); err != nil {
		return fmt.Errorf("failed to store access token: %w", err)
	}
	if p.RefreshToken != "" {
		if err := v.kv.Set(ctx, v.refreshKey, p.RefreshToken); err != nil {
			return fmt.Errorf("failed to store refresh token: %w", err)
		}
	}
	return nil
}

// Replace stores p as the whole pair. Unlike [Vault.Save] an empty RefreshToken removes the
// stored one, so tokens from a previous sign-in never outlive a new one.
func (v *Vault) Replace(ctx context.Context, p Pair) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.kv.Delete(ctx, v.accessKey, v.refreshKey); err != nil {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}
	if err := v.kv.Set(ctx, v.accessKey, p.AccessToken); err != nil {
		return fmt.Errorf("failed to store access token: %w", err)
	}
	if p.RefreshToken != "" {
		if err := v.kv.Set(ctx, v.refreshKey, p.RefreshToken); err != nil {
			return fmt.Errorf("failed to store refresh token: %w", err)
		}
	}
	return nil
}

// SetAccess replaces the access token only.
func (v *Vault) SetAccess(ctx context.Context, token string) error {
	return v.Save(ctx, Pair{AccessToken: token})
}

// Clear removes both tokens.
func (v *Vault) Clear(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.kv.Delete(ctx, v.accessKey, v.refreshKey); err != nil {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}
	return nil
}

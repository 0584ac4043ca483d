package credentials

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
)

func newRedisKV(t *testing.T) (*RedisKV, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisKV(client, "sv:"), mr
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": 7,
		"exp":     exp.Unix(),
	})
	s, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return s
}

func TestKVBackends(t *testing.T) {
	ctx := context.Background()

	backends := map[string]func(t *testing.T) KV{
		"memory": func(t *testing.T) KV { return NewMemoryKV() },
		"redis": func(t *testing.T) KV {
			kv, _ := newRedisKV(t)
			return kv
		},
	}

	for name, newKV := range backends {
		t.Run(name, func(t *testing.T) {
			kv := newKV(t)

			if _, ok, err := kv.Get(ctx, "missing"); err != nil || ok {
				t.Fatalf("Get(missing) = ok %v, err %v; want false, nil", ok, err)
			}

			if err := kv.Set(ctx, "access_token", "abc"); err != nil {
				t.Fatalf("Set failed: %v", err)
			}
			v, ok, err := kv.Get(ctx, "access_token")
			if err != nil || !ok || v != "abc" {
				t.Fatalf("Get(access_token) = %q, %v, %v", v, ok, err)
			}

			if err := kv.Delete(ctx, "access_token", "never_set"); err != nil {
				t.Fatalf("Delete failed: %v", err)
			}
			if _, ok, _ := kv.Get(ctx, "access_token"); ok {
				t.Error("key should be gone after Delete")
			}

			if err := kv.Delete(ctx); err != nil {
				t.Errorf("Delete with no keys should be a no-op: %v", err)
			}
		})
	}

	t.Run("redis prefixes keys", func(t *testing.T) {
		kv, mr := newRedisKV(t)
		if err := kv.Set(ctx, "refresh_token", "r1"); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		got, err := mr.Get("sv:refresh_token")
		if err != nil || got != "r1" {
			t.Errorf("expected prefixed key in redis, got %q (%v)", got, err)
		}
	})

	t.Run("redis unavailable", func(t *testing.T) {
		kv, mr := newRedisKV(t)
		mr.Close()
		if _, _, err := kv.Get(ctx, "access_token"); err == nil {
			t.Error("expected error when redis is down")
		}
	})
}

func TestVault(t *testing.T) {
	ctx := context.Background()

	t.Run("Save and Load", func(t *testing.T) {
		v := NewVault(NewMemoryKV(), "", "")
		if err := v.Save(ctx, Pair{AccessToken: "a1", RefreshToken: "r1"}); err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		p, err := v.Load(ctx)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if p.AccessToken != "a1" || p.RefreshToken != "r1" {
			t.Errorf("unexpected pair %+v", p)
		}
	})

	t.Run("SetAccess keeps refresh token", func(t *testing.T) {
		v := NewVault(NewMemoryKV(), "", "")
		_ = v.Save(ctx, Pair{AccessToken: "a1", RefreshToken: "r1"})

		if err := v.SetAccess(ctx, "a2"); err != nil {
			t.Fatalf("SetAccess failed: %v", err)
		}
		p, _ := v.Load(ctx)
		if p.AccessToken != "a2" || p.RefreshToken != "r1" {
			t.Errorf("unexpected pair after SetAccess %+v", p)
		}
	})

	t.Run("Replace drops a refresh token the new pair lacks", func(t *testing.T) {
		v := NewVault(NewMemoryKV(), "", "")
		_ = v.Save(ctx, Pair{AccessToken: "a1", RefreshToken: "r1"})

		if err := v.Replace(ctx, Pair{AccessToken: "a2"}); err != nil {
			t.Fatalf("Replace failed: %v", err)
		}
		p, _ := v.Load(ctx)
		if p.AccessToken != "a2" || p.RefreshToken != "" {
			t.Errorf("unexpected pair after Replace %+v", p)
		}

		_ = v.Replace(ctx, Pair{AccessToken: "a3", RefreshToken: "r3"})
		if p, _ := v.Load(ctx); p != (Pair{AccessToken: "a3", RefreshToken: "r3"}) {
			t.Errorf("unexpected pair after full Replace %+v", p)
		}
	})

	t.Run("Clear removes both", func(t *testing.T) {
		kv := NewMemoryKV()
		v := NewVault(kv, "", "")
		_ = v.Save(ctx, Pair{AccessToken: "a1", RefreshToken: "r1"})
		_ = kv.Set(ctx, "spotify_token", "{}")

		if err := v.Clear(ctx); err != nil {
			t.Fatalf("Clear failed: %v", err)
		}
		p, _ := v.Load(ctx)
		if p != (Pair{}) {
			t.Errorf("expected empty pair, got %+v", p)
		}
		if kv.Len() != 1 {
			t.Errorf("Clear should only remove token keys, %d keys left", kv.Len())
		}
	})

	t.Run("custom key names", func(t *testing.T) {
		kv := NewMemoryKV()
		v := NewVault(kv, "sv_access", "sv_refresh")
		_ = v.Save(ctx, Pair{AccessToken: "a", RefreshToken: "r"})

		if got, ok, _ := kv.Get(ctx, "sv_access"); !ok || got != "a" {
			t.Errorf("expected access under custom key, got %q", got)
		}
		if _, ok, _ := kv.Get(ctx, DefaultAccessKey); ok {
			t.Error("default key should not be written when custom keys are configured")
		}
	})

	t.Run("concurrent readers see completed writes", func(t *testing.T) {
		v := NewVault(NewMemoryKV(), "", "")
		_ = v.Save(ctx, Pair{AccessToken: "old", RefreshToken: "r"})

		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(2)
			go func() {
				defer wg.Done()
				_, _ = v.Load(ctx)
			}()
			go func() {
				defer wg.Done()
				_ = v.SetAccess(ctx, "new")
			}()
		}
		wg.Wait()

		if got, _ := v.AccessToken(ctx); got != "new" {
			t.Errorf("expected new token after writes complete, got %q", got)
		}
	})
}

func TestTokenExpiry(t *testing.T) {
	now := time.Now()

	t.Run("ExpiresAt reads exp", func(t *testing.T) {
		exp := now.Add(time.Hour).Truncate(time.Second)
		got, ok := ExpiresAt(signedToken(t, exp))
		if !ok {
			t.Fatal("expected exp claim to be found")
		}
		if !got.Equal(exp) {
			t.Errorf("ExpiresAt = %v, want %v", got, exp)
		}
	})

	tests := []struct {
		name  string
		token string
		want  bool
	}{
		{name: "valid", token: signedToken(t, now.Add(time.Hour)), want: false},
		{name: "expired", token: signedToken(t, now.Add(-time.Minute)), want: true},
		{name: "within skew", token: signedToken(t, now.Add(2*time.Second)), want: true},
		{name: "opaque", token: "not-a-jwt", want: false},
		{name: "empty", token: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsExpired(tt.token, now); got != tt.want {
				t.Errorf("IsExpired = %v, want %v", got, tt.want)
			}
		})
	}
}

package repositories

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/sonicvision/internal/credentials"
	"github.com/desertthunder/sonicvision/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

var _ credentials.KV = (*KVStore)(nil)

func TestKVStore(t *testing.T) {
	ctx := context.Background()

	t.Run("Set and Get", func(t *testing.T) {
		store := NewKVStore(setupTestDB(t))

		if err := store.Set(ctx, "access_token", "a1"); err != nil {
			t.Fatalf("failed to set: %v", err)
		}

		v, ok, err := store.Get(ctx, "access_token")
		if err != nil || !ok || v != "a1" {
			t.Fatalf("Get = %q, %v, %v", v, ok, err)
		}
	})

	t.Run("Set overwrites", func(t *testing.T) {
		store := NewKVStore(setupTestDB(t))
		_ = store.Set(ctx, "access_token", "a1")
		_ = store.Set(ctx, "access_token", "a2")

		v, _, _ := store.Get(ctx, "access_token")
		if v != "a2" {
			t.Errorf("expected overwritten value a2, got %q", v)
		}

		keys, err := store.Keys(ctx)
		if err != nil {
			t.Fatalf("failed to list keys: %v", err)
		}
		if len(keys) != 1 {
			t.Errorf("expected one key, got %v", keys)
		}
	})

	t.Run("Get missing", func(t *testing.T) {
		store := NewKVStore(setupTestDB(t))
		if _, ok, err := store.Get(ctx, "nope"); ok || err != nil {
			t.Errorf("expected missing key without error, got ok=%v err=%v", ok, err)
		}
	})

	t.Run("Delete several", func(t *testing.T) {
		store := NewKVStore(setupTestDB(t))
		_ = store.Set(ctx, "access_token", "a")
		_ = store.Set(ctx, "refresh_token", "r")
		_ = store.Set(ctx, "spotify_token", "s")

		if err := store.Delete(ctx, "access_token", "refresh_token"); err != nil {
			t.Fatalf("failed to delete: %v", err)
		}

		keys, _ := store.Keys(ctx)
		if len(keys) != 1 || keys[0] != "spotify_token" {
			t.Errorf("expected only spotify_token to remain, got %v", keys)
		}
	})

	t.Run("Persists across connections", func(t *testing.T) {
		cfg := shared.DatabaseConfig{Path: t.TempDir() + "/sv.db"}

		db, err := shared.OpenMigrated(cfg)
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		vault := credentials.NewVault(NewKVStore(db), "", "")
		if err := vault.Save(ctx, credentials.Pair{AccessToken: "a", RefreshToken: "r"}); err != nil {
			t.Fatalf("failed to save pair: %v", err)
		}
		db.Close()

		db, err = shared.OpenMigrated(cfg)
		if err != nil {
			t.Fatalf("failed to reopen database: %v", err)
		}
		defer db.Close()

		pair, err := credentials.NewVault(NewKVStore(db), "", "").Load(ctx)
		if err != nil {
			t.Fatalf("failed to load pair: %v", err)
		}
		if pair.AccessToken != "a" || pair.RefreshToken != "r" {
			t.Errorf("tokens did not survive restart: %+v", pair)
		}
	})

	t.Run("Concurrent writers", func(t *testing.T) {
		db, err := shared.OpenMigrated(shared.DatabaseConfig{Path: t.TempDir() + "/sv.db", MaxOpenConns: 4})
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()
		store := NewKVStore(db)

		var wg sync.WaitGroup
		errs := make(chan error, 20)
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- store.Set(ctx, "access_token", shared.GenerateID())
			}()
		}
		wg.Wait()
		close(errs)

		for err := range errs {
			if err != nil {
				t.Errorf("concurrent Set failed: %v", err)
			}
		}
	})
}

func TestMediaCache(t *testing.T) {
	ctx := context.Background()

	t.Run("Put and Get", func(t *testing.T) {
		cache := NewMediaCache(setupTestDB(t), time.Hour)

		if err := cache.Put(ctx, "tmdb", "search:Dune", []byte(`{"results":[]}`)); err != nil {
			t.Fatalf("failed to put: %v", err)
		}

		payload, ok, err := cache.Get(ctx, "tmdb", "  SEARCH:dune ")
		if err != nil || !ok {
			t.Fatalf("expected normalized key hit, got ok=%v err=%v", ok, err)
		}
		if string(payload) != `{"results":[]}` {
			t.Errorf("unexpected payload %s", payload)
		}

		if _, ok, _ := cache.Get(ctx, "spotify", "search:dune"); ok {
			t.Error("entries must be scoped per provider")
		}
	})

	t.Run("Expiry", func(t *testing.T) {
		cache := NewMediaCache(setupTestDB(t), time.Minute)
		base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
		cache.now = func() time.Time { return base }

		_ = cache.Put(ctx, "spotify", "new-releases", []byte(`[]`))

		cache.now = func() time.Time { return base.Add(2 * time.Minute) }
		if _, ok, _ := cache.Get(ctx, "spotify", "new-releases"); ok {
			t.Error("expired entry should not be returned")
		}

		n, err := cache.Prune(ctx)
		if err != nil {
			t.Fatalf("failed to prune: %v", err)
		}
		if n != 1 {
			t.Errorf("expected 1 pruned row, got %d", n)
		}
	})

	t.Run("Put refreshes entry", func(t *testing.T) {
		cache := NewMediaCache(setupTestDB(t), time.Minute)
		_ = cache.Put(ctx, "tmdb", "trending", []byte(`1`))
		_ = cache.Put(ctx, "tmdb", "trending", []byte(`2`))

		payload, _, _ := cache.Get(ctx, "tmdb", "trending")
		if string(payload) != "2" {
			t.Errorf("expected replaced payload, got %s", payload)
		}
	})
}

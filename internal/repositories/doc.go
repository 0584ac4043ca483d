// Package repositories implements SQLite persistence for the client.
//
// Key Implementations:
//   - [KVStore] : the default credentials.KV backend, one row per key in kv_store
//   - [MediaCache] : provider responses cached by provider and normalized query with an expiry
//
// Both expect the schema created by shared.RunMigrations.
package repositories

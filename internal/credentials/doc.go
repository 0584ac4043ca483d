// Package credentials stores the access and refresh tokens used by the request pipeline.
//
// Every caller goes through a [Vault], which is a thin facade over a string-keyed [KV] backend:
//   - [MemoryKV] : process-local store for tests and ephemeral sessions
//   - [RedisKV] : shared store backed by Redis, for several processes using one login
//   - repositories.KVStore : the default SQLite store, file persisted
//
// Access tokens that are JWTs can be inspected with [ExpiresAt] without verifying the signature.
package credentials

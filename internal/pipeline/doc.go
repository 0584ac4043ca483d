// Package pipeline implements the authenticated request path every backend call goes through.
//
// # Credentials
//
// Before a request is sent, [Pipeline] attaches `Authorization: Bearer <access>` from the
// credentials.Vault (skipped when the stored token is a JWT whose exp has passed) and, for
// state-changing methods, mirrors the CSRF cookie from the cookie jar into the CSRF header.
//
// # Refresh and retry
//
// A 401 or 403 response triggers one refresh against the refresh endpoint, then exactly one
// retry with the new access token. Requests that fail with 401 at the same time share a single
// refresh through [singleflight.Group]; a request whose token was already rotated by someone
// else retries with the current token without refreshing again.
//
// When the refresh fails, when no refresh token is stored, or when the retry fails again, both
// tokens are cleared, Options.OnAuthExpired is invoked and the caller receives an [*AuthExpiredError].
//
// # Errors
//
// Failures are always one of the typed errors in this package, each matching a sentinel from
// the shared package with errors.Is:
//   - [*AuthExpiredError] : shared.ErrAuthExpired
//   - [*ValidationError] : shared.ErrValidation, 4xx with field errors
//   - [*NotFoundError] : shared.ErrNotFound
//   - [*NetworkError] : shared.ErrNetwork, no response received
//   - [*ServerError] : shared.ErrServer, 5xx
//   - [*HTTPError] : shared.ErrAPIRequest, any other non-2xx
//
// [singleflight.Group]: https://pkg.go.dev/golang.org/x/sync/singleflight#Group
package pipeline

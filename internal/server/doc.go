// # Callback Flow
//
// Google sign-in runs in the browser. The CLI builds a consent URL with [GoogleAuthURL], binds a
// listener on the configured host and port, and waits in [AwaitCode] for the redirect to [CallbackPath].
//
// [OAuthHandler] validates the state parameter and captures the authorization code exactly once.
// It does not exchange the code: the backend's /users/google/ endpoint does that, so the client
// never holds a Google client secret.
//
// # Router
//
// [BasicRouter] wraps [http.ServeMux] with method filtering and a middleware stack.
// Middleware is applied in reverse order (last added executes first).
// [RequestLogger] logs each request with its status and duration.
package server

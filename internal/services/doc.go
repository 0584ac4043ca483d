// Package services implements the discovery providers behind music and movie search.
//
// # Spotify
//
// [Spotify] authenticates with the client-credentials grant through [clientcredentials.Config].
// The app token is reused until it expires and, when a [credentials.KV] is supplied, persisted
// under [SpotifyTokenKey] so separate CLI runs do not request a new token each time.
//
// Search pages hold twenty tracks; HasMore is reported when a full page comes back.
//
// # TMDB
//
// [TMDB] accepts either a v3 API key, sent as the api_key query parameter, or a v4 read access
// token sent as a bearer header. Poster paths are expanded with [PosterURL].
//
// # Rate limiting and caching
//
// Both providers wait on a [rate.Limiter] before every request. Successful responses are
// stored in the optional [Cache], keyed by path and query without credentials.
//
// # Error Handling
//
// Non-2xx responses are classified with [pipeline.ClassifyResponse], so callers can match
// [shared.ErrNotFound], [shared.ErrServer] and the other sentinels the backend client uses.
// A rejected client-credentials exchange wraps [shared.ErrInvalidCredentials].
package services

// Package models defines the resources exchanged with the SonicVision backend and the view models
// produced by the external provider adapters.
//
// The package contains two categories of types:
//
// 1. Backend resources: JSON shapes returned by the SonicVision API (snake_case fields)
//   - [User] : Account profile returned by /users/profile/
//   - [Playlist] : Music playlist with [PlaylistTrack] entries and [Collaborator] grants
//   - [Watchlist] : Movie list with per-entry watched state
//   - [Post] and [Comment] : Community feed entries
//   - [Notification] : User inbox items
//   - [TokenPair] : Access and refresh tokens issued by /users/token/
//
// 2. View models: provider responses adapted for display
//   - [Music] and [MusicPage] : Spotify tracks
//   - [Movie] and [MovieDetail] : TMDB movies
//
// Request payloads carry `validate` tags checked client-side before any network call.
package models

package models

import "time"

// TokenPair is the credential pair issued at login and (partially) at refresh.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

// User is the authenticated account profile.
type User struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Avatar   string `json:"avatar,omitempty"`
	Bio      string `json:"bio,omitempty"`
}

// UserRef is the compact user representation embedded in other resources.
type UserRef struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

// Playlist is a backend music playlist.
type Playlist struct {
	ID            int             `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Owner         UserRef         `json:"owner"`
	IsPublic      bool            `json:"is_public"`
	CoverImage    string          `json:"cover_image,omitempty"`
	SpotifyID     string          `json:"spotify_id,omitempty"`
	ShareCode     string          `json:"share_code,omitempty"`
	TrackCount    int             `json:"track_count"`
	Tracks        []PlaylistTrack `json:"tracks"`
	Collaborators []Collaborator  `json:"collaborators"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// PlaylistTrack places a Spotify track in a playlist.
type PlaylistTrack struct {
	ID       int       `json:"id"`
	TrackID  string    `json:"track_id"`
	Position int       `json:"position"`
	AddedBy  *UserRef  `json:"added_by,omitempty"`
	AddedAt  time.Time `json:"added_at"`
}

// Collaborator grants another user access to a playlist.
type Collaborator struct {
	ID      int       `json:"id"`
	User    UserRef   `json:"user"`
	CanEdit bool      `json:"can_edit"`
	AddedAt time.Time `json:"added_at"`
}

// ShareLink is returned when a playlist share code is generated.
type ShareLink struct {
	ShareCode string `json:"share_code"`
	ShareURL  string `json:"share_url"`
}

// Watchlist is a backend movie list.
type Watchlist struct {
	ID           int              `json:"id"`
	Name         string           `json:"name"`
	Description  string           `json:"description"`
	Owner        string           `json:"owner"`
	IsPublic     bool             `json:"is_public"`
	CoverURL     string           `json:"cover_url,omitempty"`
	MovieCount   int              `json:"movie_count"`
	WatchedCount int              `json:"watched_count"`
	Movies       []WatchlistMovie `json:"movies"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// WatchlistMovie is a TMDB movie held in a watchlist.
type WatchlistMovie struct {
	ID        int      `json:"id"`
	Title     string   `json:"title"`
	Year      int      `json:"year"`
	PosterURL string   `json:"poster_url"`
	Duration  int      `json:"duration"`
	Genres    []string `json:"genres,omitempty"`
	Watched   bool     `json:"watched"`
}

// Post is a community feed entry.
type Post struct {
	ID           int       `json:"id"`
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	Category     string    `json:"category"`
	MediaURL     string    `json:"media_url,omitempty"`
	Author       string    `json:"author"`
	AuthorAvatar string    `json:"author_avatar,omitempty"`
	Likes        int       `json:"likes"`
	Comments     []Comment `json:"comments"`
	CreatedAt    time.Time `json:"created_at"`
}

// Comment is a reply on a [Post].
type Comment struct {
	ID           int       `json:"id"`
	Author       string    `json:"author"`
	AuthorAvatar string    `json:"author_avatar,omitempty"`
	Content      string    `json:"content"`
	CreatedAt    time.Time `json:"created_at"`
}

// NotificationType enumerates the kinds of inbox items.
type NotificationType string

const (
	NotificationLike    NotificationType = "like"
	NotificationComment NotificationType = "comment"
	NotificationFollow  NotificationType = "follow"
	NotificationSystem  NotificationType = "system"
)

// Notification is a user inbox item.
type Notification struct {
	ID        int              `json:"id"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	IsRead    bool             `json:"is_read"`
	Link      string           `json:"link,omitempty"`
	Sender    *UserRef         `json:"sender,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

// AuthResponse is returned by the login, registration and Google sign-in endpoints.
//
// Registration and Google sign-in name the access token "token" instead of "access".
type AuthResponse struct {
	Access  string `json:"access,omitempty"`
	Token   string `json:"token,omitempty"`
	Refresh string `json:"refresh,omitempty"`
	User    *User  `json:"user,omitempty"`
	Message string `json:"message,omitempty"`
}

// Pair returns the issued tokens whichever field name the endpoint used.
func (r AuthResponse) Pair() TokenPair {
	access := r.Access
	if access == "" {
		access = r.Token
	}
	return TokenPair{Access: access, Refresh: r.Refresh}
}

package models

// LoginRequest is posted to /users/token/.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest is posted to /users/register/.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=150"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// ProfileUpdate is a partial profile change; empty fields are not sent.
type ProfileUpdate struct {
	Username string `json:"username,omitempty" validate:"omitempty,min=3,max=150"`
	Email    string `json:"email,omitempty" validate:"omitempty,email"`
	Bio      string `json:"bio,omitempty" validate:"omitempty,max=500"`
}

// PasswordChange is posted to /users/password/.
type PasswordChange struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,nefield=CurrentPassword"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=NewPassword"`
}

// GoogleLoginRequest hands an authorization code to the backend for exchange.
type GoogleLoginRequest struct {
	Code        string `json:"code" validate:"required"`
	RedirectURI string `json:"redirect_uri" validate:"required,url"`
}

// PlaylistInput creates a playlist.
type PlaylistInput struct {
	Name        string `json:"name,omitempty" validate:"required,max=200"`
	Description string `json:"description,omitempty" validate:"max=1000"`
	IsPublic    *bool  `json:"is_public,omitempty"`
}

// PlaylistPatch is a partial playlist update.
type PlaylistPatch struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=1000"`
	IsPublic    *bool   `json:"is_public,omitempty"`
}

// WatchlistInput creates or replaces a watchlist.
type WatchlistInput struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description,omitempty" validate:"max=1000"`
	IsPublic    bool   `json:"is_public"`
}

// NewPost creates a community post.
type NewPost struct {
	Title    string `json:"title" validate:"required,max=200"`
	Content  string `json:"content" validate:"required"`
	Category string `json:"category" validate:"required"`
	MediaURL string `json:"media_url,omitempty" validate:"omitempty,url"`
}

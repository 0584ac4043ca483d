package models

// Music is a track as shown to the user.
type Music struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Artist     string `json:"artist"`
	Album      string `json:"album,omitempty"`
	CoverURL   string `json:"cover_url"`
	Duration   int    `json:"duration"` // seconds
	SpotifyURL string `json:"spotify_url,omitempty"`
	PreviewURL string `json:"preview_url,omitempty"`
}

// MusicPage is one page of track search results.
type MusicPage struct {
	Items   []Music `json:"items"`
	Page    int     `json:"page"`
	Total   int     `json:"total"`
	HasMore bool    `json:"has_more"`
}

// Movie is a TMDB movie summary.
type Movie struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	Overview    string  `json:"overview,omitempty"`
	PosterURL   string  `json:"poster_url"`
	ReleaseDate string  `json:"release_date"`
	VoteAverage float64 `json:"vote_average"`
}

// Year returns the release year, or 0 when the date is missing or malformed.
func (m Movie) Year() int {
	if len(m.ReleaseDate) < 4 {
		return 0
	}
	y := 0
	for _, r := range m.ReleaseDate[:4] {
		if r < '0' || r > '9' {
			return 0
		}
		y = y*10 + int(r-'0')
	}
	return y
}

// MoviePage is one page of movie results.
type MoviePage struct {
	Items      []Movie `json:"items"`
	Page       int     `json:"page"`
	TotalPages int     `json:"total_pages"`
	Total      int     `json:"total"`
}

// Genre is a TMDB genre.
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// CastMember is a credited actor.
type CastMember struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Character string `json:"character"`
}

// CrewMember is a credited crew member.
type CrewMember struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	Job        string `json:"job"`
	Department string `json:"department"`
}

// MovieDetail extends [Movie] with the details endpoint fields and credits.
type MovieDetail struct {
	Movie
	Genres   []Genre      `json:"genres"`
	Runtime  int          `json:"runtime"`
	Budget   int64        `json:"budget"`
	Revenue  int64        `json:"revenue"`
	Director string       `json:"director,omitempty"`
	Cast     []CastMember `json:"cast"`
	Crew     []CrewMember `json:"crew"`
}

package testing

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// Test account accepted by the fake backend's login endpoint.
const (
	Username = "alice"
	Password = "correct-horse"
)

// RecordedRequest is what the fake backend saw for one request.
type RecordedRequest struct {
	Method        string
	Path          string
	Authorization string
	CSRF          string
	Body          string
}

// Backend is a fake SonicVision API modelled on Django REST framework with SimpleJWT.
//
// All routes live under /api. Access tokens are JWTs issued by the backend and can be
// revoked to simulate expiry on the server side. Handlers registered with [Backend.HandleAuthed]
// answer 401 unless the request carries a live access token.
type Backend struct {
	Server *httptest.Server

	// RefreshDelay holds refresh responses so concurrent 401s overlap.
	RefreshDelay time.Duration
	// RotateRefresh issues a new refresh token on every refresh, like ROTATE_REFRESH_TOKENS.
	RotateRefresh bool

	mux          *http.ServeMux
	mu           sync.Mutex
	access       map[string]bool
	refresh      map[string]bool
	failRefresh  bool
	requests     []RecordedRequest
	refreshCalls atomic.Int32
	seq          atomic.Int64
}

// NewBackend starts a fake backend that is closed when the test ends.
func NewBackend(t *testing.T) *Backend {
	t.Helper()

	b := &Backend{
		mux:     http.NewServeMux(),
		access:  map[string]bool{},
		refresh: map[string]bool{},
	}

	b.mux.HandleFunc("POST /api/users/token/", b.handleLogin)
	b.mux.HandleFunc("POST /api/users/token/refresh/", b.handleRefresh)
	b.mux.HandleFunc("GET /api/csrf/", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "csrftoken", Value: "csrf-" + fmt.Sprint(b.seq.Add(1)), Path: "/"})
		WriteJSON(w, http.StatusOK, map[string]string{"detail": "CSRF cookie set"})
	})

	b.Server = httptest.NewServer(http.HandlerFunc(b.serve))
	t.Cleanup(b.Server.Close)
	return b
}

// URL is the API base URL, e.g. http://127.0.0.1:PORT/api.
func (b *Backend) URL() string {
	return b.Server.URL + "/api"
}

func (b *Backend) serve(w http.ResponseWriter, r *http.Request) {
	var body []byte
	if r.Body != nil {
		body, _ = io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))
	}

	b.mu.Lock()
	b.requests = append(b.requests, RecordedRequest{
		Method:        r.Method,
		Path:          r.URL.Path,
		Authorization: r.Header.Get("Authorization"),
		CSRF:          r.Header.Get("X-CSRFToken"),
		Body:          string(body),
	})
	b.mu.Unlock()

	b.mux.ServeHTTP(w, r)
}

// Handle registers an unauthenticated handler, pattern as accepted by [http.ServeMux].
func (b *Backend) Handle(pattern string, h http.HandlerFunc) {
	b.mux.HandleFunc(pattern, h)
}

// HandleAuthed registers a handler that requires a live access token.
func (b *Backend) HandleAuthed(pattern string, h http.HandlerFunc) {
	b.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		if !b.authorized(r) {
			WriteJSON(w, http.StatusUnauthorized, map[string]any{
				"detail": "Given token not valid for any token type",
				"code":   "token_not_valid",
			})
			return
		}
		h(w, r)
	})
}

func (b *Backend) authorized(r *http.Request) bool {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.access[token]
}

// IssueTokens creates a live token pair as a login would.
func (b *Backend) IssueTokens() (access, refresh string) {
	access = b.newToken("access", time.Hour)
	refresh = b.newToken("refresh", 24*time.Hour)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.access[access] = true
	b.refresh[refresh] = true
	return access, refresh
}

func (b *Backend) newToken(kind string, ttl time.Duration) string {
	return mustMint(fmt.Sprintf("%s-%d", kind, b.seq.Add(1)), time.Now().Add(ttl))
}

// ExpireAccess makes every issued access token invalid, as if they had all timed out server side.
func (b *Backend) ExpireAccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.access = map[string]bool{}
}

// FailRefresh makes the refresh endpoint answer 401 (refresh token expired or blacklisted).
func (b *Backend) FailRefresh(fail bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failRefresh = fail
}

// RefreshCalls reports how many times the refresh endpoint was hit.
func (b *Backend) RefreshCalls() int {
	return int(b.refreshCalls.Load())
}

// Requests returns a copy of every request received so far.
func (b *Backend) Requests() []RecordedRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]RecordedRequest(nil), b.requests...)
}

// RequestsTo returns recorded requests whose path equals path.
func (b *Backend) RequestsTo(path string) []RecordedRequest {
	var out []RecordedRequest
	for _, r := range b.Requests() {
		if r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

func (b *Backend) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		WriteJSON(w, http.StatusBadRequest, map[string]any{"detail": "malformed body"})
		return
	}
	if creds.Username != Username || creds.Password != Password {
		WriteJSON(w, http.StatusUnauthorized, map[string]any{"detail": "No active account found with the given credentials"})
		return
	}

	access, refresh := b.IssueTokens()
	WriteJSON(w, http.StatusOK, map[string]string{"access": access, "refresh": refresh})
}

func (b *Backend) handleRefresh(w http.ResponseWriter, r *http.Request) {
	b.refreshCalls.Add(1)
	if b.RefreshDelay > 0 {
		time.Sleep(b.RefreshDelay)
	}

	var body struct {
		Refresh string `json:"refresh"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Refresh == "" {
		WriteJSON(w, http.StatusBadRequest, map[string]any{"refresh": []string{"This field is required."}})
		return
	}

	b.mu.Lock()
	fail := b.failRefresh || !b.refresh[body.Refresh]
	b.mu.Unlock()
	if fail {
		WriteJSON(w, http.StatusUnauthorized, map[string]any{"detail": "Token is invalid or expired", "code": "token_not_valid"})
		return
	}

	access := b.newToken("access", time.Hour)
	resp := map[string]string{"access": access}

	b.mu.Lock()
	b.access[access] = true
	if b.RotateRefresh {
		delete(b.refresh, body.Refresh)
		rotated := mustMint(fmt.Sprintf("refresh-%d", b.seq.Add(1)), time.Now().Add(24*time.Hour))
		b.refresh[rotated] = true
		resp["refresh"] = rotated
	}
	b.mu.Unlock()

	WriteJSON(w, http.StatusOK, resp)
}

// WriteJSON writes v as a JSON response with status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

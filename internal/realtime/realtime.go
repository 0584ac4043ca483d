// Package realtime connects to the backend's room websockets for chat and shared listening.
//
// Rooms live at /ws/chat/<room>/ and /ws/music/<room>/ on the API host. The bearer token is
// sent on the handshake; the server broadcasts every message to all members of the room.
package realtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/desertthunder/sonicvision/internal/shared"
)

// Kind selects the room consumer.
type Kind string

const (
	Chat  Kind = "chat"
	Music Kind = "music"
)

const (
	maxReadBytes  = 1 << 20 // 1MiB
	defaultBuffer = 64
	writeTimeout  = 5 * time.Second
)

// Message is a room frame. Chat rooms use Message and Username; music rooms use Type and Message.
type Message struct {
	Type     string `json:"type,omitempty"`
	Message  string `json:"message"`
	Username string `json:"username,omitempty"`
}

// TokenFunc returns the current access token. An empty token dials without Authorization.
type TokenFunc func(ctx context.Context) (string, error)

// Options configures [Dial].
type Options struct {
	BaseURL    string // API base URL; only scheme and host are used
	Token      TokenFunc
	Origin     string
	Buffer     int // inbox capacity, default 64
	HTTPClient *http.Client
	Logger     *log.Logger
}

// Room is a connected room. Read incoming frames from [Room.Messages].
type Room struct {
	kind   Kind
	name   string
	conn   *websocket.Conn
	logger *log.Logger

	inbox chan Message
	done  chan struct{}

	closeOnce sync.Once
	mu        sync.Mutex
	err       error
}

// URL returns the websocket URL of room on the host of baseURL.
func URL(baseURL string, kind Kind, room string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("%w: base url: %v", shared.ErrInvalidConfig, err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("%w: unsupported scheme %q", shared.ErrInvalidConfig, u.Scheme)
	}
	if strings.TrimSpace(u.Host) == "" {
		return "", fmt.Errorf("%w: base url missing host", shared.ErrInvalidConfig)
	}
	if kind != Chat && kind != Music {
		return "", fmt.Errorf("%w: room kind %q", shared.ErrInvalidArgument, kind)
	}

	room = strings.TrimSpace(room)
	if room == "" {
		return "", fmt.Errorf("%w: room name", shared.ErrMissingArgument)
	}

	u.Path = fmt.Sprintf("/ws/%s/%s/", kind, room)
	u.RawPath = fmt.Sprintf("/ws/%s/%s/", kind, url.PathEscape(room))
	u.RawQuery = ""
	return u.String(), nil
}

// Dial joins room. The connection stays open until ctx is cancelled or [Room.Close] is called.
func Dial(ctx context.Context, kind Kind, room string, opts Options) (*Room, error) {
	wsURL, err := URL(opts.BaseURL, kind, room)
	if err != nil {
		return nil, err
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	if opts.Buffer <= 0 {
		opts.Buffer = defaultBuffer
	}

	h := http.Header{}
	if opts.Origin != "" {
		h.Set("Origin", opts.Origin)
	}
	if opts.Token != nil {
		token, err := opts.Token(ctx)
		if err != nil {
			return nil, err
		}
		if token != "" {
			h.Set("Authorization", "Bearer "+token)
		}
	}

	conn, resp, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		HTTPHeader: h,
		HTTPClient: opts.HTTPClient,
	})
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return nil, fmt.Errorf("%w: room %s rejected the handshake (%d)", shared.ErrNotAuthenticated, room, resp.StatusCode)
		}
		return nil, fmt.Errorf("%w: dial %s: %v", shared.ErrNetwork, wsURL, err)
	}
	conn.SetReadLimit(maxReadBytes)

	r := &Room{
		kind:   kind,
		name:   room,
		conn:   conn,
		logger: shared.WithLogger(opts.Logger, "room", string(kind)+"/"+room),
		inbox:  make(chan Message, opts.Buffer),
		done:   make(chan struct{}),
	}
	go r.readLoop(ctx)

	r.logger.Debug("joined room", "url", wsURL)
	return r, nil
}

// Messages delivers incoming frames. It is closed when the connection ends.
func (r *Room) Messages() <-chan Message { return r.inbox }

// Err reports why the connection ended. It is nil after a normal close.
func (r *Room) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Send posts a chat message.
func (r *Room) Send(ctx context.Context, text string) error {
	return r.write(ctx, Message{Message: text})
}

// Broadcast posts a typed frame to a music room, e.g. a now-playing update.
func (r *Room) Broadcast(ctx context.Context, typ, text string) error {
	if r.kind != Music {
		return fmt.Errorf("%w: typed frames are only accepted by music rooms", shared.ErrInvalidArgument)
	}
	return r.write(ctx, Message{Type: typ, Message: text})
}

func (r *Room) write(ctx context.Context, m Message) error {
	if strings.TrimSpace(m.Message) == "" {
		return fmt.Errorf("%w: empty message", shared.ErrInvalidInput)
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	if err := wsjson.Write(ctx, r.conn, m); err != nil {
		return fmt.Errorf("%w: send: %v", shared.ErrNetwork, err)
	}
	return nil
}

// Close leaves the room.
func (r *Room) Close() error {
	var err error
	r.closeOnce.Do(func() {
		close(r.done)
		err = r.conn.Close(websocket.StatusNormalClosure, "bye")
	})
	return err
}

func (r *Room) readLoop(ctx context.Context) {
	defer close(r.inbox)

	for {
		var m Message
		if err := wsjson.Read(ctx, r.conn, &m); err != nil {
			if !isNormalClose(err) {
				select {
				case <-r.done:
				default:
					r.setErr(err)
					r.logger.Warn("room connection ended", "error", err)
				}
			}
			return
		}

		select {
		case r.inbox <- m:
		case <-r.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (r *Room) setErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

func isNormalClose(err error) bool {
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return true
	}
	return errors.Is(err, context.Canceled)
}

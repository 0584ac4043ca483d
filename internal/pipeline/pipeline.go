package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/singleflight"

	"github.com/desertthunder/sonicvision/internal/credentials"
	"github.com/desertthunder/sonicvision/internal/shared"
)

const (
	DefaultAuthHeader  = "Authorization"
	DefaultAuthScheme  = "Bearer"
	DefaultCSRFCookie  = "csrftoken"
	DefaultCSRFHeader  = "X-CSRFToken"
	DefaultCSRFPath    = "/csrf/"
	DefaultRefreshPath = "/users/token/refresh/"
	DefaultTimeout     = 15 * time.Second
	DefaultUserAgent   = "sonicvision-cli"

	maxBodyBytes = 8 << 20
)

// Options configures a [Pipeline]. Only BaseURL and Vault are required.
type Options struct {
	// BaseURL is prefixed to every relative request path, e.g. http://localhost:8000/api.
	BaseURL string
	Vault   *credentials.Vault

	AuthHeader  string // header carrying the access token, "Authorization"
	AuthScheme  string // scheme prefix, "Bearer"
	CSRFCookie  string // cookie mirrored into CSRFHeader, "csrftoken"
	CSRFHeader  string // "X-CSRFToken"
	CSRFPath    string // endpoint that sets the CSRF cookie before the first write, "/csrf/"
	RefreshPath string // "/users/token/refresh/"
	Timeout     time.Duration
	UserAgent   string

	// OnAuthExpired is called once per terminal failure, after the tokens are cleared.
	OnAuthExpired func(ctx context.Context, err *AuthExpiredError)

	// Refresher overrides the default HTTP call to RefreshPath.
	Refresher  Refresher
	HTTPClient *http.Client
	Jar        http.CookieJar
	Logger     *log.Logger
	Registerer prometheus.Registerer
	Now        func() time.Time
}

// Pipeline sends backend requests with credentials attached and recovers from expired access tokens.
//
// A Pipeline is safe for concurrent use.
type Pipeline struct {
	opts      Options
	base      *url.URL
	client    *http.Client
	jar       http.CookieJar
	vault     *credentials.Vault
	refresher Refresher
	group     singleflight.Group
	metrics   *Metrics
	logger    *log.Logger

	csrfMu          sync.Mutex
	csrfUnavailable bool
}

// New validates opts, fills defaults and creates a [Pipeline].
func New(opts Options) (*Pipeline, error) {
	if opts.Vault == nil {
		return nil, fmt.Errorf("%w: pipeline requires a credential vault", shared.ErrInvalidConfig)
	}

	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%w: invalid base url %q", shared.ErrInvalidConfig, opts.BaseURL)
	}

	setDefault(&opts.AuthHeader, DefaultAuthHeader)
	setDefault(&opts.AuthScheme, DefaultAuthScheme)
	setDefault(&opts.CSRFCookie, DefaultCSRFCookie)
	setDefault(&opts.CSRFHeader, DefaultCSRFHeader)
	setDefault(&opts.CSRFPath, DefaultCSRFPath)
	setDefault(&opts.RefreshPath, DefaultRefreshPath)
	setDefault(&opts.UserAgent, DefaultUserAgent)
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}

	jar := opts.Jar
	var client http.Client
	if opts.HTTPClient != nil {
		client = *opts.HTTPClient
		if jar == nil {
			jar = client.Jar
		}
	} else {
		client.Timeout = opts.Timeout
	}
	if jar == nil {
		jar, _ = cookiejar.New(nil)
	}
	client.Jar = jar

	p := &Pipeline{
		opts:    opts,
		base:    base,
		client:  &client,
		jar:     jar,
		vault:   opts.Vault,
		metrics: NewMetrics(opts.Registerer),
		logger:  shared.WithLogger(opts.Logger, "component", "pipeline"),
	}

	p.refresher = opts.Refresher
	if p.refresher == nil {
		p.refresher = &httpRefresher{p: p}
	}

	return p, nil
}

func setDefault(s *string, v string) {
	if *s == "" {
		*s = v
	}
}

// Vault returns the credential store the pipeline reads from.
func (p *Pipeline) Vault() *credentials.Vault { return p.vault }

// Metrics returns the pipeline counters.
func (p *Pipeline) Metrics() *Metrics { return p.metrics }

// Do sends req and applies the refresh and retry rules.
//
// A failed exchange with the backend is always reported as one of the typed errors of this
// package. A request that cannot be built wraps [shared.ErrInvalidArgument]. req is not modified.
func (p *Pipeline) Do(ctx context.Context, req *Request) (*Response, error) {
	attempt := *req
	attempt.retried = false

	resp, err := p.do(ctx, &attempt)

	outcome := outcomeOf(err)
	if err == nil && attempt.retried {
		outcome = outcomeRetried
	}
	p.metrics.Requests.WithLabelValues(attempt.Method, outcome).Inc()

	return resp, err
}

func (p *Pipeline) do(ctx context.Context, req *Request) (*Response, error) {
	sent, resp, err := p.send(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.OK() {
		return resp, nil
	}

	target := p.resolve(req).String()
	failure := ClassifyResponse(req.Method, target, resp.StatusCode, resp.Body)
	if !isAuthFailure(resp.StatusCode) {
		return nil, failure
	}

	if req.retried {
		return nil, p.expire(ctx, resp.StatusCode, failure, nil)
	}

	p.logger.Debug("auth failure, refreshing", "method", req.Method, "url", target, "status", resp.StatusCode)

	if err := p.refresh(ctx, sent); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, &NetworkError{Method: req.Method, URL: target, Err: ctxErr}
		}
		return nil, p.expire(ctx, resp.StatusCode, failure, err)
	}

	req.retried = true
	p.logger.Debug("retrying with refreshed token", "method", req.Method, "url", target)

	_, resp, err = p.send(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.OK() {
		return resp, nil
	}

	return nil, p.expire(ctx, resp.StatusCode, ClassifyResponse(req.Method, target, resp.StatusCode, resp.Body), nil)
}

// expire clears both tokens and notifies OnAuthExpired.
func (p *Pipeline) expire(ctx context.Context, status int, cause, refreshErr error) *AuthExpiredError {
	authErr := &AuthExpiredError{StatusCode: status, Cause: cause, RefreshErr: refreshErr}

	clearCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.opts.Timeout)
	defer cancel()
	if err := p.vault.Clear(clearCtx); err != nil {
		p.logger.Error("failed to clear credentials", "error", err)
	}

	p.metrics.AuthExpired.Inc()
	p.logger.Warn("session expired", "status", status, "cause", cause, "refresh_error", refreshErr)

	if p.opts.OnAuthExpired != nil {
		p.opts.OnAuthExpired(ctx, authErr)
	}
	return authErr
}

// send performs one HTTP round trip, returning the access token that was attached (empty when none).
func (p *Pipeline) send(ctx context.Context, req *Request) (string, *Response, error) {
	return p.roundTrip(ctx, req, true)
}

// sendUnauthenticated is send without the access token, used for the refresh call.
func (p *Pipeline) sendUnauthenticated(ctx context.Context, req *Request) (string, *Response, error) {
	return p.roundTrip(ctx, req, false)
}

func (p *Pipeline) roundTrip(ctx context.Context, req *Request, withAuth bool) (string, *Response, error) {
	if !isSafeMethod(req.Method) {
		p.primeCSRF(ctx)
	}

	target := p.resolve(req)

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target.String(), body)
	if err != nil {
		return "", nil, fmt.Errorf("%w: failed to create request: %v", shared.ErrInvalidArgument, err)
	}

	sent, err := p.attachCredentials(ctx, httpReq, req, withAuth)
	if err != nil {
		return "", nil, &NetworkError{Method: req.Method, URL: target.String(), Err: err}
	}

	start := time.Now()
	res, err := p.client.Do(httpReq)
	if err != nil {
		p.logger.Debug("request failed", "method", req.Method, "url", target.String(), "error", err)
		return sent, nil, &NetworkError{Method: req.Method, URL: target.String(), Err: err}
	}
	defer res.Body.Close()

	data, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))
	if err != nil {
		return sent, nil, &NetworkError{Method: req.Method, URL: target.String(), Err: fmt.Errorf("failed to read response: %w", err)}
	}

	p.logger.Debug("response",
		"method", req.Method,
		"url", target.String(),
		"status", res.StatusCode,
		"retried", req.retried,
		"duration", time.Since(start),
	)

	return sent, &Response{StatusCode: res.StatusCode, Header: res.Header, Body: data}, nil
}

// attachCredentials copies the request headers onto httpReq and adds auth, CSRF and bookkeeping headers.
//
// A stored access token is attached only when withAuth is set and it is not a JWT past its exp.
// Any caller supplied auth header is removed so a stale value is never sent.
func (p *Pipeline) attachCredentials(ctx context.Context, httpReq *http.Request, req *Request, withAuth bool) (string, error) {
	for k, vs := range req.Header {
		httpReq.Header[k] = append([]string(nil), vs...)
	}

	if httpReq.Header.Get("Accept") == "" {
		httpReq.Header.Set("Accept", "application/json")
	}
	if len(req.Body) > 0 && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("User-Agent", p.opts.UserAgent)
	if httpReq.Header.Get("X-Request-ID") == "" {
		httpReq.Header.Set("X-Request-ID", uuid.NewString())
	}

	httpReq.Header.Del(p.opts.AuthHeader)
	var token string
	if withAuth {
		stored, err := p.vault.AccessToken(ctx)
		if err != nil {
			return "", err
		}
		if stored != "" && credentials.IsExpired(stored, p.opts.Now()) {
			p.logger.Debug("stored access token expired, sending without it")
			stored = ""
		}
		if stored != "" {
			token = stored
			httpReq.Header.Set(p.opts.AuthHeader, p.opts.AuthScheme+" "+token)
		}
	}

	if !isSafeMethod(httpReq.Method) {
		if csrf := p.csrfToken(httpReq.URL); csrf != "" {
			httpReq.Header.Set(p.opts.CSRFHeader, csrf)
		}
	}

	return token, nil
}

// resolve joins req.Path onto the base URL unless it is already absolute.
func (p *Pipeline) resolve(req *Request) *url.URL {
	var u *url.URL
	if parsed, err := url.Parse(req.Path); err == nil && parsed.IsAbs() {
		u = parsed
	} else {
		path, rawQuery, _ := strings.Cut(req.Path, "?")
		u = &url.URL{
			Scheme:   p.base.Scheme,
			Host:     p.base.Host,
			User:     p.base.User,
			Path:     p.base.Path + "/" + strings.TrimLeft(path, "/"),
			RawQuery: rawQuery,
		}
	}

	if len(req.Query) > 0 {
		q := u.Query()
		for k, vs := range req.Query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u
}

// Anonymous sends req once without an access token and without the refresh rules.
//
// Used for login and registration, where a stale bearer header would be rejected and
// a 401 means bad credentials rather than an expired session.
func (p *Pipeline) Anonymous(ctx context.Context, req *Request) (*Response, error) {
	attempt := *req
	_, resp, err := p.sendUnauthenticated(ctx, &attempt)
	if err == nil && !resp.OK() {
		err = ClassifyResponse(attempt.Method, p.resolve(&attempt).String(), resp.StatusCode, resp.Body)
	}
	p.metrics.Requests.WithLabelValues(attempt.Method, outcomeOf(err)).Inc()
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// JSON is a convenience around [Pipeline.Do]: it encodes in (when not nil), sends the request
// and decodes a 2xx body into out (when not nil). Encoding failures wrap [shared.ErrInvalidInput]
// and undecodable bodies wrap [shared.ErrAPIRequest].
func (p *Pipeline) JSON(ctx context.Context, method, path string, query url.Values, in, out any) error {
	req, err := NewRequest(method, path, in)
	if err != nil {
		return err
	}
	req.Query = query

	resp, err := p.Do(ctx, req)
	if err != nil {
		return err
	}
	return resp.Decode(out)
}

// IsAuthExpired reports whether err ended the session.
func IsAuthExpired(err error) bool {
	return errors.Is(err, shared.ErrAuthExpired)
}

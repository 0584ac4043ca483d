package pipeline

import (
	"context"
	"errors"
	"net/http"
	"net/url"
)

// csrfToken returns the CSRF cookie the jar holds for u, or "".
func (p *Pipeline) csrfToken(u *url.URL) string {
	for _, c := range p.jar.Cookies(u) {
		if c.Name == p.opts.CSRFCookie {
			return c.Value
		}
	}
	return ""
}

// EnsureCSRF fetches Options.CSRFPath once when the jar has no CSRF cookie for the backend yet.
//
// The cookie is needed before the first state-changing request to a session-protected endpoint.
func (p *Pipeline) EnsureCSRF(ctx context.Context) error {
	if p.csrfToken(p.base) != "" {
		return nil
	}

	req := &Request{Method: http.MethodGet, Path: p.opts.CSRFPath, Header: http.Header{}}
	_, resp, err := p.sendUnauthenticated(ctx, req)
	if err != nil {
		return err
	}
	return ClassifyResponse(req.Method, p.resolve(req).String(), resp.StatusCode, resp.Body)
}

// primeCSRF runs [Pipeline.EnsureCSRF] before a state-changing request when the jar has no cookie.
//
// A backend that answers without setting the cookie is not asked again. Transport failures are
// retried on the next write. The request itself is sent either way.
func (p *Pipeline) primeCSRF(ctx context.Context) {
	if p.csrfToken(p.base) != "" {
		return
	}

	p.csrfMu.Lock()
	defer p.csrfMu.Unlock()
	if p.csrfUnavailable || p.csrfToken(p.base) != "" {
		return
	}

	err := p.EnsureCSRF(ctx)
	var netErr *NetworkError
	switch {
	case errors.As(err, &netErr):
		p.logger.Debug("csrf priming failed", "error", err)
		return
	case err != nil:
		p.logger.Debug("csrf endpoint rejected request", "error", err)
	}
	if p.csrfToken(p.base) == "" {
		p.logger.Debug("backend set no csrf cookie, sending writes without it", "path", p.opts.CSRFPath)
		p.csrfUnavailable = true
	}
}

// CSRFToken exposes the current CSRF cookie value for the backend, mainly for diagnostics.
func (p *Pipeline) CSRFToken() string {
	return p.csrfToken(p.base)
}

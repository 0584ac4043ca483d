package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/desertthunder/sonicvision/internal/credentials"
	"github.com/desertthunder/sonicvision/internal/models"
	"github.com/desertthunder/sonicvision/internal/shared"
)

const refreshKey = "refresh"

// Refresher exchanges a refresh token for a new access token.
//
// The returned pair's Refresh field is set only when the backend rotated the refresh token.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (models.TokenPair, error)
}

// RefresherFunc adapts a function to [Refresher].
type RefresherFunc func(ctx context.Context, refreshToken string) (models.TokenPair, error)

func (f RefresherFunc) Refresh(ctx context.Context, refreshToken string) (models.TokenPair, error) {
	return f(ctx, refreshToken)
}

// refresh obtains a usable access token after a request sent with sent was rejected.
//
// Concurrent callers share one in-flight refresh. The shared call runs detached from any single
// caller's context so one cancelled request does not fail the refresh for the others.
func (p *Pipeline) refresh(ctx context.Context, sent string) error {
	ch := p.group.DoChan(refreshKey, func() (any, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.opts.Timeout)
		defer cancel()
		return nil, p.rotate(rctx, sent)
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// rotate performs the refresh unless another caller already replaced the token that was rejected.
func (p *Pipeline) rotate(ctx context.Context, sent string) error {
	pair, err := p.vault.Load(ctx)
	if err != nil {
		p.metrics.Refreshes.WithLabelValues(refreshFailure).Inc()
		return fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
	}

	if current := pair.AccessToken; current != "" && current != sent && !credentials.IsExpired(current, p.opts.Now()) {
		p.metrics.Refreshes.WithLabelValues(refreshSkipped).Inc()
		p.logger.Debug("token already rotated, skipping refresh")
		return nil
	}

	if pair.RefreshToken == "" {
		p.metrics.Refreshes.WithLabelValues(refreshFailure).Inc()
		return fmt.Errorf("%w: %w", shared.ErrRefreshFailed, shared.ErrNoRefreshToken)
	}

	tokens, err := p.refresher.Refresh(ctx, pair.RefreshToken)
	if err == nil && tokens.Access == "" {
		err = fmt.Errorf("refresh response missing access token")
	}
	if err != nil {
		p.metrics.Refreshes.WithLabelValues(refreshFailure).Inc()
		p.logger.Debug("refresh failed", "error", err)
		return fmt.Errorf("%w: %w", shared.ErrRefreshFailed, err)
	}

	if err := p.vault.Save(ctx, credentials.Pair{AccessToken: tokens.Access, RefreshToken: tokens.Refresh}); err != nil {
		p.metrics.Refreshes.WithLabelValues(refreshFailure).Inc()
		return fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
	}

	p.metrics.Refreshes.WithLabelValues(refreshSuccess).Inc()
	p.logger.Debug("access token refreshed", "rotated_refresh", tokens.Refresh != "")
	return nil
}

// httpRefresher posts {"refresh": token} to Options.RefreshPath and reads {"access", "refresh"}.
//
// It bypasses [Pipeline.Do] so a failing refresh can never trigger another refresh.
type httpRefresher struct {
	p *Pipeline
}

func (r *httpRefresher) Refresh(ctx context.Context, refreshToken string) (models.TokenPair, error) {
	body, err := json.Marshal(map[string]string{"refresh": refreshToken})
	if err != nil {
		return models.TokenPair{}, err
	}

	req := &Request{Method: http.MethodPost, Path: r.p.opts.RefreshPath, Header: http.Header{}, Body: body}
	_, resp, err := r.p.sendUnauthenticated(ctx, req)
	if err != nil {
		return models.TokenPair{}, err
	}
	if !resp.OK() {
		return models.TokenPair{}, ClassifyResponse(req.Method, r.p.resolve(req).String(), resp.StatusCode, resp.Body)
	}

	var tokens models.TokenPair
	if err := resp.Decode(&tokens); err != nil {
		return models.TokenPair{}, err
	}
	return tokens, nil
}

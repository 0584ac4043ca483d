package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/desertthunder/sonicvision/internal/models"
	"github.com/desertthunder/sonicvision/internal/pipeline"
	"github.com/desertthunder/sonicvision/internal/shared"
)

// MusicProvider searches tracks.
type MusicProvider interface {
	SearchMusic(ctx context.Context, query string, page int) (*models.MusicPage, error)
	TrendingMusic(ctx context.Context) ([]models.Music, error)
	Name() string
}

// MovieProvider searches movies.
type MovieProvider interface {
	SearchMovies(ctx context.Context, query string, page int) (*models.MoviePage, error)
	TrendingMovies(ctx context.Context) ([]models.Movie, error)
	Name() string
}

// Cache stores raw provider responses. *repositories.MediaCache satisfies it.
type Cache interface {
	Get(ctx context.Context, provider, key string) ([]byte, bool, error)
	Put(ctx context.Context, provider, key string, payload []byte) error
}

const maxResponseBytes = 4 << 20

// provider is the HTTP plumbing shared by the providers: rate limiting, caching and error classification.
type provider struct {
	name    string
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	cache   Cache
	logger  *log.Logger
}

func newLimiter(perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := int(perSecond)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}

// getJSON fetches path with query into out. auth may add credentials to the request.
func (p *provider) getJSON(ctx context.Context, path string, query url.Values, auth func(*http.Request), out any) error {
	key := path
	if len(query) > 0 {
		key += "?" + query.Encode()
	}

	if p.cache != nil {
		if payload, ok, err := p.cache.Get(ctx, p.name, key); err != nil {
			p.logger.Warn("cache read failed", "key", key, "error", err)
		} else if ok {
			if err := json.Unmarshal(payload, out); err == nil {
				p.logger.Debug("cache hit", "key", key)
				return nil
			}
		}
	}

	body, err := p.fetch(ctx, path, query, auth)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", p.name, err)
	}

	if p.cache != nil {
		if err := p.cache.Put(ctx, p.name, key, body); err != nil {
			p.logger.Warn("cache write failed", "key", key, "error", err)
		}
	}
	return nil
}

func (p *provider) fetch(ctx context.Context, path string, query url.Values, auth func(*http.Request)) ([]byte, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, &pipeline.NetworkError{Method: http.MethodGet, URL: p.baseURL + path, Err: err}
	}

	u := p.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if auth != nil {
		auth(req)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil {
			classified := pipeline.ClassifyResponse(http.MethodPost, p.name+" token endpoint", re.Response.StatusCode, re.Body)
			return nil, fmt.Errorf("%w: %s token: %w", shared.ErrInvalidCredentials, p.name, classified)
		}
		var ue *url.Error
		if errors.As(err, &ue) {
			err = ue.Err
		}
		return nil, &pipeline.NetworkError{Method: http.MethodGet, URL: u, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &pipeline.NetworkError{Method: http.MethodGet, URL: u, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, pipeline.ClassifyResponse(http.MethodGet, u, resp.StatusCode, body)
	}

	p.logger.Debug("provider request", "provider", p.name, "path", path, "status", resp.StatusCode)
	return body, nil
}

package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/sonicvision/internal/api"
	"github.com/desertthunder/sonicvision/internal/credentials"
	"github.com/desertthunder/sonicvision/internal/models"
	"github.com/desertthunder/sonicvision/internal/pipeline"
	"github.com/desertthunder/sonicvision/internal/repositories"
	"github.com/desertthunder/sonicvision/internal/services"
	"github.com/desertthunder/sonicvision/internal/session"
	"github.com/desertthunder/sonicvision/internal/shared"
	"github.com/desertthunder/sonicvision/internal/tasks"
)

const loginHint = "Session expired. Run 'sv auth login' to sign in again."

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// Storage, the session and the providers are opened on first use so commands that do not
// need them (setup, help) never touch the network or the database.
type Runner struct {
	config     *shared.Config
	configPath string
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	metrics    *prometheus.Registry

	kv      credentials.KV
	db      *sql.DB
	closers []func() error
	session *session.Manager
	client  *api.Client
	spotify *services.Spotify
	tmdb    *services.TMDB
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config // Loaded from --config when nil
	ConfigPath string
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	KV         credentials.KV // Overrides storage.backend
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		metrics:    prometheus.NewRegistry(),
		kv:         opts.KV,
	}
}

// App builds the root command.
func (r *Runner) App() *cli.Command {
	return &cli.Command{
		Name:    "sv",
		Usage:   "SonicVision from the terminal: playlists, watchlists, community and discovery",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
				Sources: cli.EnvVars("SV_CONFIG"),
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level (debug, info, warn, error)",
			},
			&cli.StringFlag{
				Name:  "metrics",
				Usage: "Write request pipeline counters to this file after the command (- for stderr)",
			},
		},
		Before:   r.before,
		After:    r.after,
		Commands: r.register(),
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, playlistsCommand, watchlistsCommand, postsCommand, notificationsCommand,
		musicCommand, moviesCommand, chatCommand, curateCommand, browseCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

func (r *Runner) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if r.config == nil {
		path := cmd.String("config")
		config, err := shared.LoadConfigOrDefault(path)
		if err != nil {
			return ctx, err
		}
		r.config = config
		r.configPath = path
	}

	level := r.config.LogLevel
	if lvl := cmd.String("log-level"); lvl != "" {
		level = lvl
	}
	shared.SetLogLevel(r.logger, shared.ParseLogLevel(level))
	return ctx, nil
}

// after drains the session's navigation signal and releases storage.
func (r *Runner) after(ctx context.Context, cmd *cli.Command) error {
	if r.session != nil {
		select {
		case route := <-r.session.Navigate():
			r.logger.Debug("navigation requested", "route", route)
			r.writePlain("\n%s\n", loginHint)
		default:
		}
	}
	if path := cmd.String("metrics"); path != "" {
		if err := r.dumpMetrics(path); err != nil {
			r.logger.Error("failed to write metrics", "path", path, "error", err)
		}
	}
	return r.Close()
}

// Close releases every resource opened by the runner, newest first.
func (r *Runner) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}

func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

// database opens the sqlite database and applies migrations.
func (r *Runner) database() (*sql.DB, error) {
	if r.db != nil {
		return r.db, nil
	}
	db, err := shared.OpenMigrated(r.config.Database)
	if err != nil {
		return nil, err
	}
	r.db = db
	r.closers = append(r.closers, db.Close)
	return db, nil
}

// store returns the key-value backend selected by storage.backend.
func (r *Runner) store(ctx context.Context) (credentials.KV, error) {
	if r.kv != nil {
		return r.kv, nil
	}

	switch r.config.Storage.Backend {
	case "memory":
		r.kv = credentials.NewMemoryKV()
	case "redis":
		rc := r.config.Redis
		kv, err := credentials.DialRedis(ctx, rc.Addr, rc.Password, rc.DB, rc.KeyPrefix)
		if err != nil {
			return nil, err
		}
		r.closers = append(r.closers, kv.Close)
		r.kv = kv
	default:
		db, err := r.database()
		if err != nil {
			return nil, err
		}
		r.kv = repositories.NewKVStore(db)
	}

	r.logger.Debug("credential store ready", "backend", r.config.Storage.Backend)
	return r.kv, nil
}

// backend returns the session manager and API client sharing one pipeline.
func (r *Runner) backend(ctx context.Context) (*session.Manager, *api.Client, error) {
	if r.session != nil {
		return r.session, r.client, nil
	}

	kv, err := r.store(ctx)
	if err != nil {
		return nil, nil, err
	}

	cfg := r.config.API
	vault := credentials.NewVault(kv, r.config.Storage.AccessKey, r.config.Storage.RefreshKey)
	m, client, err := session.Bind(pipeline.Options{
		BaseURL:     cfg.BaseURL,
		Vault:       vault,
		CSRFCookie:  cfg.CSRFCookie,
		CSRFHeader:  cfg.CSRFHeader,
		RefreshPath: cfg.RefreshPath,
		Timeout:     cfg.Timeout,
		UserAgent:   cfg.UserAgent,
		CSRFPath:    cfg.CSRFPath,
		HTTPClient:  &http.Client{Transport: r.httpClient.Transport, Timeout: cfg.Timeout},
		Logger:      r.logger,
		Registerer:  r.metrics,
		OnAuthExpired: func(_ context.Context, err *pipeline.AuthExpiredError) {
			r.logger.Warn("session expired, credentials cleared", "status", err.StatusCode)
		},
	}, r.logger)
	if err != nil {
		return nil, nil, err
	}

	r.session, r.client = m, client
	return m, client, nil
}

// apiClient is [Runner.backend] for commands that only need the client.
func (r *Runner) apiClient(ctx context.Context) (*api.Client, error) {
	_, client, err := r.backend(ctx)
	return client, err
}

// cache returns the provider response cache, or nil when the database is unavailable.
func (r *Runner) cache() services.Cache {
	db, err := r.database()
	if err != nil {
		r.logger.Warn("media cache disabled", "error", err)
		return nil
	}
	return repositories.NewMediaCache(db, r.config.TMDB.CacheTTL)
}

func (r *Runner) spotifyProvider(ctx context.Context) (*services.Spotify, error) {
	if r.spotify != nil {
		return r.spotify, nil
	}
	kv, err := r.store(ctx)
	if err != nil {
		return nil, err
	}
	sp, err := services.NewSpotify(r.config.Spotify, services.SpotifyOptions{
		Tokens:     kv,
		Cache:      r.cache(),
		HTTPClient: r.httpClient,
		Logger:     r.logger,
	})
	if err != nil {
		return nil, err
	}
	r.spotify = sp
	return sp, nil
}

func (r *Runner) tmdbProvider() (*services.TMDB, error) {
	if r.tmdb != nil {
		return r.tmdb, nil
	}
	t, err := services.NewTMDB(r.config.TMDB, services.TMDBOptions{
		Cache:      r.cache(),
		HTTPClient: r.httpClient,
		Logger:     r.logger,
	})
	if err != nil {
		return nil, err
	}
	r.tmdb = t
	return t, nil
}

// trackResolver looks up playlist tracks on Spotify. It returns nil when Spotify is not configured.
func (r *Runner) trackResolver(ctx context.Context) tasks.TrackResolver {
	sp, err := r.spotifyProvider(ctx)
	if err != nil {
		r.logger.Debug("track titles unavailable", "error", err)
		return nil
	}

	return func(ctx context.Context, ids []string) map[string]models.Music {
		resolved := make(map[string]models.Music, len(ids))
		for _, id := range ids {
			if _, ok := resolved[id]; ok {
				continue
			}
			m, err := sp.Track(ctx, id)
			if err != nil {
				if ctx.Err() != nil {
					break
				}
				r.logger.Debug("track lookup failed", "track_id", id, "error", err)
				continue
			}
			resolved[id] = *m
		}
		return resolved
	}
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}

// idArg parses the positional argument name as a positive integer ID.
func idArg(cmd *cli.Command, name string) (int, error) {
	raw := cmd.StringArg(name)
	if raw == "" {
		return 0, fmt.Errorf("%w: %s", shared.ErrMissingArgument, name)
	}
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer, got %q", shared.ErrInvalidArgument, name, raw)
	}
	return id, nil
}

// stringArg returns the positional argument name or a missing-argument error.
func stringArg(cmd *cli.Command, name string) (string, error) {
	v := cmd.StringArg(name)
	if v == "" {
		return "", fmt.Errorf("%w: %s", shared.ErrMissingArgument, name)
	}
	return v, nil
}

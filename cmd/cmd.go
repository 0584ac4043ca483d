// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func jsonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print JSON output",
			Value: true,
		},
	}
}

func idArgs(names ...string) []cli.Argument {
	args := make([]cli.Argument, len(names))
	for i, name := range names {
		args[i] = &cli.StringArg{Name: name}
	}
	return args
}

func exportFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "Export format: json, csv, markdown, txt",
			Value:   "json",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output directory (default: sonicvision_export_{timestamp})",
		},
		&cli.IntFlag{
			Name:  "workers",
			Usage: "Concurrent exports",
			Value: 5,
		},
		&cli.FloatFlag{
			Name:  "rate",
			Usage: "Backend fetches per second",
			Value: 5,
		},
	}
}

// setupCommand handles configuration and database initialisation.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write an example config.toml to the --config path",
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Action: r.SetupDatabase,
			},
		},
	}
}

// authCommand handles authentication operations
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage the SonicVision session",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Sign in with username and password",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "username", Aliases: []string{"u"}, Usage: "Account username", Required: true},
					&cli.StringFlag{Name: "password", Aliases: []string{"p"}, Usage: "Account password", Sources: cli.EnvVars("SV_PASSWORD")},
				},
				Action: r.AuthLogin,
			},
			{
				Name:  "register",
				Usage: "Create an account and sign in",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "username", Aliases: []string{"u"}, Usage: "Account username", Required: true},
					&cli.StringFlag{Name: "email", Aliases: []string{"e"}, Usage: "Account email", Required: true},
					&cli.StringFlag{Name: "password", Aliases: []string{"p"}, Usage: "Account password", Sources: cli.EnvVars("SV_PASSWORD")},
				},
				Action: r.AuthRegister,
			},
			{
				Name:   "google",
				Usage:  "Sign in with Google in the browser",
				Action: r.AuthGoogle,
			},
			{
				Name:   "logout",
				Usage:  "Clear the stored tokens",
				Action: r.AuthLogout,
			},
			{
				Name:   "status",
				Usage:  "Show the signed-in user and token expiry",
				Flags:  jsonFlags(),
				Action: r.AuthStatus,
			},
		},
	}
}

// playlistsCommand handles playlist operations
func playlistsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "playlists",
		Aliases: []string{"pl"},
		Usage:   "Manage playlists",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List your playlists",
				Flags:  jsonFlags(),
				Action: r.PlaylistsList,
			},
			{
				Name:      "get",
				Usage:     "Show a playlist and its tracks",
				Arguments: idArgs("id"),
				Flags:     jsonFlags(),
				Action:    r.PlaylistsGet,
			},
			{
				Name:  "create",
				Usage: "Create a playlist",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "Playlist name", Required: true},
					&cli.StringFlag{Name: "description", Aliases: []string{"d"}, Usage: "Playlist description"},
					&cli.BoolFlag{Name: "public", Usage: "Make the playlist public"},
				},
				Action: r.PlaylistsCreate,
			},
			{
				Name:      "update",
				Usage:     "Change a playlist's name, description or visibility",
				Arguments: idArgs("id"),
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "New name"},
					&cli.StringFlag{Name: "description", Aliases: []string{"d"}, Usage: "New description"},
					&cli.BoolFlag{Name: "public", Usage: "Public visibility"},
				},
				Action: r.PlaylistsUpdate,
			},
			{
				Name:      "delete",
				Usage:     "Delete a playlist",
				Arguments: idArgs("id"),
				Action:    r.PlaylistsDelete,
			},
			{
				Name:      "add-track",
				Usage:     "Add a Spotify track to a playlist",
				Arguments: idArgs("id", "track-id"),
				Action:    r.PlaylistsAddTrack,
			},
			{
				Name:      "remove-track",
				Usage:     "Remove a track from a playlist",
				Arguments: idArgs("id", "track-id"),
				Action:    r.PlaylistsRemoveTrack,
			},
			{
				Name:      "share",
				Usage:     "Create a share link for a playlist",
				Arguments: idArgs("id"),
				Action:    r.PlaylistsShare,
			},
			{
				Name:      "export",
				Usage:     "Export playlists by ID (all when none given)",
				ArgsUsage: "[id...]",
				Flags:     exportFlags(),
				Action:    r.PlaylistsExport,
			},
		},
	}
}

// watchlistsCommand handles watchlist operations
func watchlistsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "watchlists",
		Aliases: []string{"wl"},
		Usage:   "Manage watchlists",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List your watchlists",
				Flags:  jsonFlags(),
				Action: r.WatchlistsList,
			},
			{
				Name:      "get",
				Usage:     "Show a watchlist and its movies",
				Arguments: idArgs("id"),
				Flags:     jsonFlags(),
				Action:    r.WatchlistsGet,
			},
			{
				Name:  "create",
				Usage: "Create a watchlist",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "Watchlist name", Required: true},
					&cli.StringFlag{Name: "description", Aliases: []string{"d"}, Usage: "Watchlist description"},
					&cli.BoolFlag{Name: "public", Usage: "Make the watchlist public"},
				},
				Action: r.WatchlistsCreate,
			},
			{
				Name:      "delete",
				Usage:     "Delete a watchlist",
				Arguments: idArgs("id"),
				Action:    r.WatchlistsDelete,
			},
			{
				Name:      "add-movie",
				Usage:     "Add a TMDB movie to a watchlist",
				Arguments: idArgs("id", "movie-id"),
				Action:    r.WatchlistsAddMovie,
			},
			{
				Name:      "watched",
				Usage:     "Toggle the watched flag of a movie",
				Arguments: idArgs("id", "movie-id"),
				Action:    r.WatchlistsToggleWatched,
			},
			{
				Name:      "export",
				Usage:     "Export watchlists by ID (all when none given)",
				ArgsUsage: "[id...]",
				Flags:     exportFlags(),
				Action:    r.WatchlistsExport,
			},
		},
	}
}

// postsCommand handles the community feed
func postsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "posts",
		Usage: "Read and write community posts",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "Show the community feed",
				Flags:  jsonFlags(),
				Action: r.PostsList,
			},
			{
				Name:  "create",
				Usage: "Publish a post",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "Post title", Required: true},
					&cli.StringFlag{Name: "content", Usage: "Post body", Required: true},
					&cli.StringFlag{Name: "category", Usage: "Post category", Value: "general"},
					&cli.StringFlag{Name: "media-url", Usage: "Optional media link"},
				},
				Action: r.PostsCreate,
			},
			{
				Name:      "like",
				Usage:     "Like a post",
				Arguments: idArgs("id"),
				Action:    r.PostsLike,
			},
			{
				Name:      "comment",
				Usage:     "Comment on a post",
				Arguments: idArgs("id", "text"),
				Action:    r.PostsComment,
			},
			{
				Name:      "delete",
				Usage:     "Delete a post",
				Arguments: idArgs("id"),
				Action:    r.PostsDelete,
			},
		},
	}
}

// notificationsCommand handles notifications
func notificationsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "notifications",
		Aliases: []string{"notif"},
		Usage:   "Read notifications",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List notifications",
				Flags: append(jsonFlags(),
					&cli.BoolFlag{Name: "unread", Usage: "Only unread notifications"},
				),
				Action: r.NotificationsList,
			},
			{
				Name:      "read",
				Usage:     "Mark a notification read (all when no ID given)",
				Arguments: idArgs("id"),
				Action:    r.NotificationsRead,
			},
		},
	}
}

// musicCommand handles Spotify discovery
func musicCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "music",
		Usage: "Discover music on Spotify",
		Commands: []*cli.Command{
			{
				Name:      "search",
				Usage:     "Search tracks",
				Arguments: idArgs("query"),
				Flags: append(jsonFlags(),
					&cli.IntFlag{Name: "page", Usage: "Result page", Value: 1},
				),
				Action: r.MusicSearch,
			},
			{
				Name:   "trending",
				Usage:  "Show new releases",
				Flags:  jsonFlags(),
				Action: r.MusicTrending,
			},
		},
	}
}

// moviesCommand handles TMDB discovery
func moviesCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "movies",
		Usage: "Discover movies on TMDB",
		Commands: []*cli.Command{
			{
				Name:      "search",
				Usage:     "Search movies",
				Arguments: idArgs("query"),
				Flags: append(jsonFlags(),
					&cli.IntFlag{Name: "page", Usage: "Result page", Value: 1},
				),
				Action: r.MoviesSearch,
			},
			{
				Name:   "trending",
				Usage:  "Show this week's trending movies",
				Flags:  jsonFlags(),
				Action: r.MoviesTrending,
			},
			{
				Name:      "details",
				Usage:     "Show details, director and cast for a movie",
				Arguments: idArgs("id"),
				Flags:     jsonFlags(),
				Action:    r.MoviesDetails,
			},
		},
	}
}

// chatCommand joins a realtime room
func chatCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "chat",
		Usage:     "Join a chat or music room; lines typed on stdin are sent",
		Arguments: idArgs("room"),
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "music", Usage: "Join the music room instead of chat"},
		},
		Action: r.Chat,
	}
}

// curateCommand builds collections from search queries
func curateCommand(r *Runner) *cli.Command {
	flags := func(what string) []cli.Flag {
		return []cli.Flag{
			&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "Name of the new " + what, Required: true},
			&cli.StringFlag{Name: "file", Usage: "Read one query per line from file"},
			&cli.IntFlag{Name: "workers", Usage: "Concurrent requests", Value: 4},
		}
	}

	return &cli.Command{
		Name:  "curate",
		Usage: "Build playlists and watchlists from search queries",
		Commands: []*cli.Command{
			{
				Name:      "playlist",
				Usage:     "Search each query on Spotify and add the best match",
				ArgsUsage: "[query...]",
				Flags:     flags("playlist"),
				Action:    r.CuratePlaylist,
			},
			{
				Name:      "watchlist",
				Usage:     "Search each title on TMDB and add the best match",
				ArgsUsage: "[title...]",
				Flags:     flags("watchlist"),
				Action:    r.CurateWatchlist,
			},
		},
	}
}

// browseCommand returns the top-level TUI command.
func browseCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "browse",
		Aliases: []string{"tui", "ui"},
		Usage:   "Launch the interactive terminal browser",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "log-file", Usage: "Where to write logs while the browser runs", Value: "./tmp/sv-tui.log"},
		},
		Action: r.Browse,
	}
}

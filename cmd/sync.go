package cmd

import (
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jfmyers9/syncfm/internal/config"
	"github.com/jfmyers9/syncfm/internal/engine"
	"github.com/jfmyers9/syncfm/internal/journal"
	"github.com/jfmyers9/syncfm/internal/matcher"
	"github.com/jfmyers9/syncfm/internal/retry"
	"github.com/jfmyers9/syncfm/pkg/lastfm"
	"github.com/jfmyers9/syncfm/pkg/subsonic"
)

var (
	syncDryRun   bool
	syncMax      int
	syncLogFile  string
	syncLogLevel string
)

// syncCmd represents the sync command
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one reconciliation pass",
	Long: `Run one reconciliation pass against the configured servers.

The pass scans the Navidrome library for played tracks, compares each
local playcount with the Last.fm one, and scrobbles the difference with
randomized backdated timestamps, paced to respect Last.fm's request
budget. Tracks already caught up, unmatched on Last.fm, or past their
caps are skipped.

Use --dry-run to see what would be scrobbled without submitting
anything, and --max to cap the total scrobbles for the invocation.
Ctrl-C stops the run cleanly after the current track.`,
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)

	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "Log what would be scrobbled without submitting")
	syncCmd.Flags().IntVar(&syncMax, "max", 0, "Cap total scrobbles for this run (0 = unlimited)")
	syncCmd.Flags().StringVar(&syncLogFile, "log-file", "", "Log file path (default: stderr)")
	syncCmd.Flags().StringVar(&syncLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
}

func runSync(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if cfg.Navidrome.URL == "" || cfg.Navidrome.Username == "" || cfg.Navidrome.Password == "" {
		return fmt.Errorf("Navidrome server not configured. Set navidrome.url, navidrome.username and navidrome.password in %s/config.yaml", config.GetConfigDir())
	}
	if cfg.LastFM.APIKey == "" || cfg.LastFM.APISecret == "" {
		return fmt.Errorf("Last.fm credentials not configured. Run 'syncfm auth' first")
	}
	if cfg.LastFM.SessionKey == "" || cfg.LastFM.Username == "" {
		return fmt.Errorf("no Last.fm session. Run 'syncfm auth' first")
	}

	logger := setupLogger(syncLogFile, syncLogLevel)

	if syncDryRun {
		logger.Info().Msg("=== DRY RUN: nothing will be submitted ===")
	} else {
		logger.Info().Msg("=== LIVE RUN: scrobbles will be submitted ===")
	}

	// Ctrl-C stops the loop at the next step boundary.
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Scan the catalog
	subsonicClient, err := subsonic.NewClient(subsonic.Config{
		BaseURL:  cfg.Navidrome.URL,
		Username: cfg.Navidrome.Username,
		Password: cfg.Navidrome.Password,
		Logger:   apiLogger{logger.With().Str("component", "subsonic").Logger()},
	})
	if err != nil {
		return fmt.Errorf("failed to create Navidrome client: %w", err)
	}

	catalogRetry := retry.NewExecutor(retry.Policy{
		MaxAttempts:  3,
		InitialDelay: time.Second,
		Factor:       2,
	}, logger)

	logger.Info().Str("server", cfg.Navidrome.URL).Msg("Scanning library for played tracks")
	played, err := subsonicClient.Library().PlayedTracks(ctx, subsonic.PlayedTracksOptions{
		PageSize: cfg.Sync.PageSize,
		Workers:  cfg.Sync.Workers,
		Executor: catalogRetry,
	})
	if err != nil {
		return fmt.Errorf("failed to scan library: %w", err)
	}
	if len(played) == 0 {
		logger.Info().Msg("No played tracks found, nothing to do")
		return nil
	}
	logger.Info().Int("tracks", len(played)).Msg("Library scan complete")

	pool := make([]engine.Track, len(played))
	for i, t := range played {
		pool[i] = engine.Track{Artist: t.Artist, Title: t.Title, LocalPlaycount: t.PlayCount}
	}

	// Last.fm side
	lastfmClient, err := lastfm.NewClient(lastfm.Config{
		APIKey:     cfg.LastFM.APIKey,
		APISecret:  cfg.LastFM.APISecret,
		Username:   cfg.LastFM.Username,
		SessionKey: cfg.LastFM.SessionKey,
		BaseURL:    cfg.LastFM.BaseURL,
		Logger:     apiLogger{logger.With().Str("component", "lastfm").Logger()},
	})
	if err != nil {
		return fmt.Errorf("failed to create Last.fm client: %w", err)
	}

	norms := matcher.NewNormalizer()

	resolveRetry := retry.NewExecutor(retry.Policy{
		MaxAttempts:  3,
		InitialDelay: time.Second,
		Factor:       2,
	}, logger)
	trackMatcher := matcher.New(lastfmClient.Track(), resolveRetry, norms, cfg.Sync.FuzzyThreshold, logger)
	cache := engine.NewPlaycountCache(trackMatcher, norms, logger)

	emitRetry := retry.NewExecutor(retry.Policy{
		MaxAttempts:  5,
		InitialDelay: 2 * time.Second,
		Factor:       2,
	}, logger)
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	emitter := engine.NewEmitter(lastfmClient.Scrobble(), emitRetry, cfg.Sync.ScrobbleDelay, rng, logger)

	// Journal
	jnl, err := journal.Open(config.JournalPath())
	if err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}
	defer jnl.Close()

	e := engine.New(pool, cache, emitter, norms, jnl, engine.Options{
		PerTrackRunLimit: cfg.Sync.PerTrackRunLimit,
		TrackTotalLimit:  cfg.Sync.TrackTotalLimit,
		MaxScrobbles:     syncMax,
		FailureLimit:     cfg.Sync.FailureLimit,
		DryRun:           syncDryRun,
	}, rng, logger)

	summary := e.Run(ctx)

	avg := 0.0
	if summary.Scrobbled > 0 {
		avg = summary.Elapsed.Seconds() / float64(summary.Scrobbled)
	}
	logger.Info().
		Stringer("state", summary.State).
		Int("scrobbled", summary.Scrobbled).
		Int("skipped", summary.Removed).
		Dur("elapsed", summary.Elapsed).
		Float64("avg_seconds_per_scrobble", avg).
		Msg("Sync complete")

	return nil
}

// apiLogger adapts zerolog to the API clients' Debugf interface.
type apiLogger struct {
	log zerolog.Logger
}

func (l apiLogger) Debugf(format string, args ...interface{}) {
	l.log.Debug().Msgf(format, args...)
}

// setupLogger creates a logger with the specified configuration
func setupLogger(logFile, logLevel string) zerolog.Logger {
	// Parse log level
	level := zerolog.InfoLevel
	switch logLevel {
	case "debug":
		level = zerolog.DebugLevel
	case "info":
		level = zerolog.InfoLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	// Set up output
	var output *os.File
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
			output = os.Stderr
		} else {
			output = f
		}
	} else {
		output = os.Stderr
	}

	// Create logger
	logger := zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Logger()

	// Use pretty console output if logging to stderr
	if output == os.Stderr {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	return logger
}

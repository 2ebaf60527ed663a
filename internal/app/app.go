package app

import (
	"context"
	"fmt"
	"time"

	"github.com/five82/easel/internal/collection"
	"github.com/five82/easel/internal/config"
	"github.com/five82/easel/internal/logging"
	"github.com/five82/easel/internal/midjourney"
	"github.com/five82/easel/internal/poller"
	"github.com/five82/easel/internal/prefs"
	"github.com/five82/easel/internal/state"
	"github.com/five82/easel/internal/transport"
	"github.com/five82/easel/internal/ui"
)

var _ ui.Actions = (*Session)(nil)

// Options configure the easel application.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/easel/prefs.toml
	PollEvery  int    // seconds; zero uses the configured poll interval
}

// Run boots the easel TUI until the context is cancelled.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, closer, err := logging.New(cfg.LogPath, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer func() { _ = closer.Close() }()

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}
	userPrefs := prefs.Load(prefsPath)

	genTransport, err := transport.NewClient(transport.Options{
		BaseURL:         cfg.GenerationURL,
		Headers:         cfg.APIHeaders(),
		MaxAttempts:     cfg.MaxAttempts,
		MutationTimeout: cfg.MutationTimeout,
		PollTimeout:     cfg.PollTimeout,
		Logger:          logger.With().Str("service", "generation").Logger(),
	})
	if err != nil {
		return fmt.Errorf("init generation client: %w", err)
	}
	collTransport, err := transport.NewClient(transport.Options{
		BaseURL:         cfg.CollectionURL,
		MaxAttempts:     cfg.MaxAttempts,
		MutationTimeout: cfg.MutationTimeout,
		PollTimeout:     cfg.PollTimeout,
		Logger:          logger.With().Str("service", "collection").Logger(),
	})
	if err != nil {
		return fmt.Errorf("init collection client: %w", err)
	}

	gen := midjourney.NewClient(genTransport, cfg.AccountHash)
	coll := collection.NewClient(collTransport)

	interval := cfg.PollInterval
	if opts.PollEvery > 0 {
		interval = time.Duration(opts.PollEvery) * time.Second
	}

	ctx, cancel := context.WithCancel(ctx)

	store := &state.Store{}
	scheduler := poller.New(gen, interval, logger)
	session := NewSession(ctx, store, gen, coll, scheduler, logger)
	defer session.Close()
	// Deferred after Close so it runs first: requests still in flight are
	// cancelled before the lifecycles are torn down.
	defer cancel()

	StartKeepWarm(ctx, coll, cfg.KeepWarmInterval, logger)

	logger.Info().
		Str("generation_url", cfg.GenerationURL).
		Str("collection_url", cfg.CollectionURL).
		Dur("poll_interval", interval).
		Msg("easel started")

	uiOpts := ui.Options{
		Context:    ctx,
		Actions:    session,
		Store:      store,
		PollTick:   time.Second,
		ThemeName:  userPrefs.Theme,
		Parameters: userPrefs.Parameters,
		PrefsPath:  prefsPath,
		LogPath:    cfg.LogPath,
	}
	return ui.Run(uiOpts)
}

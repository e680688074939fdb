package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"weather-wallpaper/internal/api"
	"weather-wallpaper/internal/apply"
	"weather-wallpaper/internal/config"
	"weather-wallpaper/internal/engine"
	"weather-wallpaper/internal/listener"
	"weather-wallpaper/internal/observability"
	"weather-wallpaper/internal/storage"
	"weather-wallpaper/internal/weather"
)

// Run starts the daemon and blocks until SIGINT/SIGTERM.
// Rule and weather changes in the config file apply without a restart;
// the poll interval and listen address are read once.
func Run(cfg config.Config, loader *config.Loader) {
	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Rules
	eng := engine.NewEngine()
	switch cfg.Rules.Source {
	case config.SourcePostgres:
		store, err := storage.New(rootCtx, cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("init storage")
		}
		defer store.Close()
		if err := eng.BuildSnapshot(rootCtx, store); err != nil {
			log.Fatal().Err(err).Msg("initial snapshot build")
		}
		observability.RulesLoaded.Set(float64(len(eng.Rules())))
		go listener.ListenAndRefresh(rootCtx, store, eng, cfg.Listener.Channel, cfg.Backoff())
	default:
		if err := LoadFileRules(rootCtx, eng, cfg); err != nil {
			log.Fatal().Err(err).Msg("initial snapshot build")
		}
	}

	// Poller
	applier, err := apply.New(cfg.Apply.Commands, apply.ExecRunner, engine.OSFileExists)
	if err != nil {
		log.Fatal().Err(err).Msg("init applier")
	}
	state := storage.NewCache()
	poller := NewPoller(eng, state, weather.NewClient(cfg.Weather), applier)

	if loader != nil {
		newApplier := func(cmds []string) (Applier, error) {
			return apply.New(cmds, apply.ExecRunner, engine.OSFileExists)
		}
		loader.Watch(func(next config.Config) {
			Reload(rootCtx, eng, poller, cfg.Rules.Source, next, newApplier)
		})
	}

	// HTTP
	h := api.NewHandler(eng, state)
	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      api.Router(h),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 3 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("status server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server crashed")
		}
	}()

	go poller.Run(rootCtx, cfg.PollInterval())

	waitForSignal()
	log.Info().Msg("shutdown...")

	shCtx, shCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shCancel()
	cancel() // stop background goroutines
	_ = srv.Shutdown(shCtx)
}

// Reload applies a freshly loaded config to the running daemon. It runs on the
// config watcher goroutine, so it only touches state that is safe to swap while
// the poller and HTTP handlers are reading. Rules from the file are reloaded only
// when the daemon was started with file rules.
func Reload(ctx context.Context, eng *engine.WallpaperEngine, p *Poller, source string, next config.Config, newApplier func([]string) (Applier, error)) {
	config.SetLevel(next.Server.LogLevel)
	p.SetWeather(weather.NewClient(next.Weather))

	if a, err := newApplier(next.Apply.Commands); err != nil {
		log.Error().Err(err).Msg("keeping previous apply commands")
	} else {
		p.SetApplier(a)
	}

	if source == config.SourceFile && next.Rules.Source == config.SourceFile {
		if err := LoadFileRules(ctx, eng, next); err != nil {
			log.Error().Err(err).Msg("keeping previous rules")
		}
	}
}

// LoadFileRules swaps in the rules listed in cfg.Items.
func LoadFileRules(ctx context.Context, eng *engine.WallpaperEngine, cfg config.Config) error {
	src, err := storage.NewStatic(cfg.Items)
	if err != nil {
		return err
	}
	if err := eng.BuildSnapshot(ctx, src); err != nil {
		return err
	}
	observability.RulesLoaded.Set(float64(len(cfg.Items)))
	return nil
}

func waitForSignal() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
}

package app

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"weather-wallpaper/internal/cache"
	"weather-wallpaper/internal/engine"
	"weather-wallpaper/internal/observability"
	"weather-wallpaper/internal/storage"
	"weather-wallpaper/internal/weather"
)

// Applier puts an image on the desktop.
type Applier interface {
	Apply(ctx context.Context, path string) error
}

// Poller runs one evaluation per cycle: weather, clock, search, apply on change.
// Weather source and applier can be swapped between cycles on config reload.
type Poller struct {
	eng     *engine.WallpaperEngine
	state   *storage.Cache
	clock   func() time.Time
	exists  engine.FileExists
	weather cache.Snapshot[weather.Source]
	applier cache.Snapshot[Applier]
}

type PollerOption func(*Poller)

func WithClock(fn func() time.Time) PollerOption {
	return func(p *Poller) { p.clock = fn }
}

func WithFileExists(fn engine.FileExists) PollerOption {
	return func(p *Poller) { p.exists = fn }
}

func NewPoller(eng *engine.WallpaperEngine, state *storage.Cache, src weather.Source, a Applier, opts ...PollerOption) *Poller {
	p := &Poller{
		eng:    eng,
		state:  state,
		clock:  time.Now,
		exists: engine.OSFileExists,
	}
	p.SetWeather(src)
	p.SetApplier(a)
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Poller) SetWeather(src weather.Source) { p.weather.Store(src) }

func (p *Poller) SetApplier(a Applier) { p.applier.Store(a) }

// Run ticks once immediately and then every interval until ctx is done.
func (p *Poller) Run(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()

	p.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("poller stopped")
			return
		case <-t.C:
			p.Tick(ctx)
		}
	}
}

// Tick evaluates the rules once. A failed apply leaves the state untouched so
// the next cycle retries; no match keeps whatever is on screen.
func (p *Poller) Tick(ctx context.Context) {
	logger := log.With().Str("cycle", uuid.NewString()).Logger()

	cond := p.condition(ctx, logger)
	now := p.clock()
	month, hour := int(now.Month()), now.Hour()
	logger.Debug().Int("month", month).Int("hour", hour).Str("weather", cond.String()).Msg("checking wallpaper")

	sel, ok := p.eng.Select(cond, month, hour, p.exists)
	if !ok {
		observability.NoMatch.Inc()
		logger.Info().Str("weather", cond.String()).Msg("no match")
		return
	}
	observability.Selections.WithLabelValues(sel.Tier.String()).Inc()

	if sel.Path == p.state.AppliedPath() {
		logger.Debug().Str("path", sel.Path).Msg("wallpaper unchanged")
		return
	}

	a, _ := p.applier.Load()
	if a == nil {
		logger.Warn().Str("path", sel.Path).Msg("no applier configured")
		return
	}
	if err := a.Apply(ctx, sel.Path); err != nil {
		observability.Applies.WithLabelValues("error").Inc()
		logger.Error().Err(err).Str("path", sel.Path).Msg("apply wallpaper")
		return
	}
	observability.Applies.WithLabelValues("ok").Inc()
	p.state.SetApplied(storage.Applied{Selection: sel, Weather: cond, AppliedAt: now})
	logger.Info().
		Str("path", sel.Path).
		Str("tier", sel.Tier.String()).
		Str("weather", cond.String()).
		Msg("wallpaper applied")
}

func (p *Poller) condition(ctx context.Context, logger zerolog.Logger) engine.Condition {
	src, _ := p.weather.Load()
	if src == nil {
		p.state.SetCondition(engine.Clear)
		return engine.Clear
	}

	cond, err := src.Current(ctx)
	switch {
	case errors.Is(err, weather.ErrNotConfigured):
		observability.WeatherFetches.WithLabelValues("unconfigured").Inc()
		cond = engine.Clear
	case err != nil:
		observability.WeatherFetches.WithLabelValues("error").Inc()
		prev := p.state.Condition()
		logger.Error().Err(err).Str("using", prev.String()).Msg("failed to fetch weather")
		return prev
	default:
		observability.WeatherFetches.WithLabelValues("ok").Inc()
	}
	p.state.SetCondition(cond)
	return cond
}

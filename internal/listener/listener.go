package listener

import (
	"context"
	"math/rand"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"weather-wallpaper/internal/engine"
	"weather-wallpaper/internal/observability"
	"weather-wallpaper/internal/storage"
)

const debounce = 200 * time.Millisecond

// ListenAndRefresh rebuilds the engine's rule snapshot whenever the rules table
// announces a change on the channel. It returns when ctx is done.
func ListenAndRefresh(ctx context.Context, st *storage.Store, eng *engine.WallpaperEngine, channel string, baseBackoff time.Duration) {
	if channel == "" {
		channel = st.ListenChannel()
	}
	for ctx.Err() == nil {
		if err := listen(ctx, st, eng, channel); err != nil && ctx.Err() == nil {
			backoff := jitter(baseBackoff)
			log.Error().Err(err).Dur("retry_in", backoff).Msg("rule listener error")
			select {
			case <-ctx.Done():
			case <-time.After(backoff):
			}
		}
	}
	log.Info().Msg("listener stopped")
}

func listen(ctx context.Context, st *storage.Store, eng *engine.WallpaperEngine, channel string) error {
	conn, err := st.PgxPool().Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if _, err = conn.Exec(ctx, "LISTEN "+pgx.Identifier{channel}.Sanitize()); err != nil {
		return err
	}
	log.Info().Str("channel", channel).Msg("listening for rule changes")

	// catch changes made while we were not listening
	refresh(ctx, st, eng)

	ctx, cancel := context.WithCancel(ctx)
	changes := make(chan struct{}, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		coalesce(ctx, changes, debounce, func() { refresh(ctx, st, eng) })
	}()
	defer func() {
		cancel()
		<-done
	}()

	for {
		ntf, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		log.Debug().Str("channel", ntf.Channel).Msg("rules changed")
		notify(changes)
	}
}

// notify marks a change as pending without blocking; one pending mark is enough
// because the refresh that consumes it reads the whole table.
func notify(changes chan<- struct{}) {
	select {
	case changes <- struct{}{}:
	default:
	}
}

// coalesce calls refresh once changes has been quiet for the quiet period, so a
// burst of notifications costs one refresh and the last change of a burst is
// always picked up. A change arriving during a refresh schedules another one.
func coalesce(ctx context.Context, changes <-chan struct{}, quiet time.Duration, refresh func()) {
	timer := time.NewTimer(quiet)
	timer.Stop()
	defer timer.Stop()

	pending := false
	for {
		select {
		case <-ctx.Done():
			return
		case <-changes:
			pending = true
			timer.Reset(quiet)
		case <-timer.C:
			if pending {
				pending = false
				log.Info().Msg("refreshing rule snapshot")
				refresh()
			}
		}
	}
}

func refresh(ctx context.Context, st *storage.Store, eng *engine.WallpaperEngine) {
	if err := eng.BuildSnapshot(ctx, st); err != nil {
		log.Error().Err(err).Msg("refresh snapshot error")
		return
	}
	observability.RulesLoaded.Set(float64(len(eng.Rules())))
}

func jitter(base time.Duration) time.Duration {
	if base <= 0 {
		base = time.Second
	}
	factor := 0.5 + rand.Float64() // 0.5x-1.5x
	return time.Duration(float64(base) * factor)
}

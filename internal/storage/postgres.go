package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"weather-wallpaper/internal/config"
	"weather-wallpaper/internal/engine"
)

// Store reads wallpaper rules from Postgres.
//
//	CREATE TABLE wallpaper_rules (
//	    id             bigserial PRIMARY KEY,
//	    position       int      NOT NULL DEFAULT 0,
//	    start_hour     smallint NOT NULL,
//	    end_hour       smallint NOT NULL,
//	    start_month    smallint NOT NULL,
//	    end_month      smallint NOT NULL,
//	    weather        text     NOT NULL,
//	    wallpaper_path text     NOT NULL
//	);
type Store struct {
	pool    *pgxpool.Pool
	channel string
}

func New(ctx context.Context, cfg config.Config) (*Store, error) {
	dsn := cfg.DSN()
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres DSN: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.Postgres.MaxOpenConns)
	poolCfg.MinConns = int32(min(cfg.Postgres.MaxIdleConns, cfg.Postgres.MaxOpenConns))
	poolCfg.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	return &Store{pool: pool, channel: cfg.Listener.Channel}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// LoadRules loads every rule in table order.
func (s *Store) LoadRules(ctx context.Context) (engine.RuleSet, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := s.pool.Query(ctx, `
		SELECT start_hour, end_hour, start_month, end_month, weather, wallpaper_path
		FROM wallpaper_rules
		ORDER BY position, id
	`)
	if err != nil {
		return nil, fmt.Errorf("query rules: %w", err)
	}
	defer rows.Close()

	var out engine.RuleSet
	for rows.Next() {
		var (
			r       engine.Rule
			weather string
		)
		if err := rows.Scan(&r.StartHour, &r.EndHour, &r.StartMonth, &r.EndMonth, &weather, &r.ImagePath); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		if r.Condition, err = engine.ParseCondition(weather); err != nil {
			return nil, fmt.Errorf("rule %s: %w", r.ImagePath, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read rules: %w", err)
	}
	return out, nil
}

// ListenChannel is the NOTIFY channel announcing rule changes.
func (s *Store) ListenChannel() string {
	if s.channel == "" {
		return "wallpaper_rules_changed"
	}
	return s.channel
}

func (s *Store) PgxPool() *pgxpool.Pool {
	if s.pool == nil {
		panic(errors.New("pgx pool is nil"))
	}
	return s.pool
}

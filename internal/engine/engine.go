package engine

import (
	"context"
	"slices"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"weather-wallpaper/internal/cache"
)

// FileExists reports, read-only, whether an image path is usable.
type FileExists func(path string) bool

// FSFileExists builds a FileExists over the given filesystem.
func FSFileExists(fs afero.Fs) FileExists {
	return func(path string) bool {
		if path == "" {
			return false
		}
		ok, err := afero.Exists(fs, path)
		return err == nil && ok
	}
}

// OSFileExists checks the real filesystem.
var OSFileExists = FSFileExists(afero.NewOsFs())

// RuleLoader supplies the full rule set, e.g. from the config file or the database.
type RuleLoader interface {
	LoadRules(ctx context.Context) (RuleSet, error)
}

type snapshot struct{ rules RuleSet }

// WallpaperEngine holds the live rule set and answers searches against it
// without locking. Reloads swap the whole rule set at once.
type WallpaperEngine struct{ snap cache.Snapshot[snapshot] }

func NewEngine() *WallpaperEngine { return &WallpaperEngine{} }

// BuildSnapshot loads rules and makes them the live set.
// On error the previous set stays live.
func (e *WallpaperEngine) BuildSnapshot(ctx context.Context, l RuleLoader) error {
	rules, err := l.LoadRules(ctx)
	if err != nil {
		return err
	}
	e.snap.Store(snapshot{rules: slices.Clone(rules)})
	log.Info().Int("rules", len(rules)).Msg("rule snapshot loaded")
	return nil
}

// Rules returns a copy of the live rule set.
func (e *WallpaperEngine) Rules() RuleSet {
	s, _ := e.snap.Load()
	return slices.Clone(s.rules)
}

// Select runs the search against the live rule set.
func (e *WallpaperEngine) Select(cond Condition, month, hour int, exists FileExists) (Selection, bool) {
	s, _ := e.snap.Load()
	return Search(cond, s.rules, month, hour, exists)
}

type tier struct {
	tier  Tier
	match func(rule, current Condition) bool
}

// strongest first
var tiers = [...]tier{
	{TierExact, func(r, c Condition) bool { return r == c }},
	{TierAdjacent, IsAdjacent},
	{TierLooselyAdjacent, IsLooselyAdjacent},
	{TierDefault, func(r, _ Condition) bool { return r == Clear }},
}

// SelectWallpaper returns the best image path for the condition at (month, hour),
// or "" when nothing usable exists anywhere in the year.
func SelectWallpaper(cond Condition, rules RuleSet, month, hour int, exists FileExists) string {
	sel, _ := Search(cond, rules, month, hour, exists)
	return sel.Path
}

// Search walks slots forward from (month, hour): every hour of the current month
// first, then every hour of each following month, wrapping both domains, so at
// most 12*24 slots are tried. At each slot the tiers are tried strongest first and
// the first rule that matches and whose image exists wins.
func Search(cond Condition, rules RuleSet, month, hour int, exists FileExists) (Selection, bool) {
	if exists == nil {
		exists = OSFileExists
	}
	start := Slot{Month: month, Hour: hour}

	for m := 0; m < monthsPerYear; m++ {
		for h := 0; h < hoursPerDay; h++ {
			slot := start.advance(m, h)
			candidates := rules.At(slot)
			if len(candidates) == 0 {
				continue
			}
			if r, t, ok := bestAt(cond, candidates, exists); ok {
				return Selection{Path: r.ImagePath, Condition: r.Condition, Tier: t, Slot: slot}, true
			}
			log.Debug().
				Int("month", slot.Month).
				Int("hour", slot.Hour).
				Int("candidates", len(candidates)).
				Msg("no usable image at slot")
		}
	}
	return Selection{}, false
}

// At returns the rules whose windows cover the slot, in rule order.
func (rs RuleSet) At(s Slot) []Rule {
	var out []Rule
	for _, r := range rs {
		if r.Contains(s) {
			out = append(out, r)
		}
	}
	return out
}

func bestAt(cond Condition, candidates []Rule, exists FileExists) (Rule, Tier, bool) {
	for _, t := range tiers {
		for _, r := range candidates {
			if !t.match(r.Condition, cond) {
				continue
			}
			if exists(r.ImagePath) {
				return r, t.tier, true
			}
			log.Debug().Str("tier", t.tier.String()).Str("path", r.ImagePath).Msg("image missing")
		}
	}
	return Rule{}, 0, false
}

func (s Slot) advance(monthOffset, hourOffset int) Slot {
	return Slot{
		Month: wrap(s.Month+monthOffset, FirstMonth, monthsPerYear),
		Hour:  wrap(s.Hour+hourOffset, FirstHour, hoursPerDay),
	}
}

func wrap(v, first, size int) int {
	return ((v-first)%size+size)%size + first
}

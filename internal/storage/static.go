package storage

import (
	"context"
	"fmt"

	"weather-wallpaper/internal/config"
	"weather-wallpaper/internal/engine"
)

// Static serves the rules listed in the config file.
type Static struct {
	rules engine.RuleSet
}

// NewStatic converts config items into rules, failing on an unknown weather name.
func NewStatic(items []config.Item) (*Static, error) {
	rules := make(engine.RuleSet, 0, len(items))
	for i, it := range items {
		cond, err := engine.ParseCondition(it.Weather)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		rules = append(rules, engine.Rule{
			StartHour:  it.StartHour,
			EndHour:    it.EndHour,
			StartMonth: it.StartMonth,
			EndMonth:   it.EndMonth,
			Condition:  cond,
			ImagePath:  it.WallpaperPath,
		})
	}
	return &Static{rules: rules}, nil
}

func (s *Static) LoadRules(context.Context) (engine.RuleSet, error) {
	return s.rules, nil
}

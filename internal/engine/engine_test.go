package engine

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func existing(paths ...string) FileExists {
	return func(p string) bool { return slices.Contains(paths, p) }
}

func allYear(c Condition, path string) Rule {
	return Rule{StartHour: 0, EndHour: 23, StartMonth: 1, EndMonth: 12, Condition: c, ImagePath: path}
}

func TestSearch_Scenarios(t *testing.T) {
	tests := []struct {
		name     string
		cond     Condition
		rules    RuleSet
		month    int
		hour     int
		exists   FileExists
		wantPath string
		wantTier Tier
		wantSlot Slot
	}{
		{
			name:     "single exact rule",
			cond:     Rain,
			rules:    RuleSet{allYear(Rain, "/rain.jpg")},
			month:    4, hour: 9,
			exists:   existing("/rain.jpg"),
			wantPath: "/rain.jpg", wantTier: TierExact, wantSlot: Slot{4, 9},
		},
		{
			name:     "exact missing falls to clear default",
			cond:     Rain,
			rules:    RuleSet{allYear(Rain, "/rain.jpg"), allYear(Clear, "/clear.jpg")},
			month:    4, hour: 9,
			exists:   existing("/clear.jpg"),
			wantPath: "/clear.jpg", wantTier: TierDefault, wantSlot: Slot{4, 9},
		},
		{
			name: "adjacent beats loosely adjacent and default",
			cond: Rain,
			rules: RuleSet{
				allYear(Clear, "/clear.jpg"),
				allYear(Cloudy, "/cloudy.jpg"),
				allYear(Thunderstorm, "/storm.jpg"),
			},
			month: 7, hour: 13,
			exists:   existing("/clear.jpg", "/cloudy.jpg", "/storm.jpg"),
			wantPath: "/storm.jpg", wantTier: TierAdjacent, wantSlot: Slot{7, 13},
		},
		{
			name:     "loosely adjacent",
			cond:     Rain,
			rules:    RuleSet{allYear(Clear, "/clear.jpg"), allYear(Cloudy, "/cloudy.jpg")},
			month:    7, hour: 13,
			exists:   existing("/clear.jpg", "/cloudy.jpg"),
			wantPath: "/cloudy.jpg", wantTier: TierLooselyAdjacent, wantSlot: Slot{7, 13},
		},
		{
			name:     "fog resolves overcast at the adjacent tier",
			cond:     Fog,
			rules:    RuleSet{allYear(Overcast, "/overcast.jpg")},
			month:    1, hour: 0,
			exists:   existing("/overcast.jpg"),
			wantPath: "/overcast.jpg", wantTier: TierAdjacent, wantSlot: Slot{1, 0},
		},
		{
			name:     "missing exact does not block adjacent at the same slot",
			cond:     Clear,
			rules:    RuleSet{allYear(Clear, "/clear.jpg"), allYear(Cloudy, "/cloudy.jpg")},
			month:    3, hour: 8,
			exists:   existing("/cloudy.jpg"),
			wantPath: "/cloudy.jpg", wantTier: TierAdjacent, wantSlot: Slot{3, 8},
		},
		{
			name:     "first existing rule within a tier",
			cond:     Snow,
			rules:    RuleSet{allYear(Snow, "/a.jpg"), allYear(Snow, "/b.jpg"), allYear(Snow, "/c.jpg")},
			month:    12, hour: 6,
			exists:   existing("/b.jpg", "/c.jpg"),
			wantPath: "/b.jpg", wantTier: TierExact, wantSlot: Slot{12, 6},
		},
		{
			name: "weaker tier at current slot beats exact at a later slot",
			cond: Snow,
			rules: RuleSet{
				{StartHour: 11, EndHour: 11, StartMonth: 1, EndMonth: 12, Condition: Snow, ImagePath: "/snow.jpg"},
				allYear(Clear, "/clear.jpg"),
			},
			month: 6, hour: 10,
			exists:   existing("/snow.jpg", "/clear.jpg"),
			wantPath: "/clear.jpg", wantTier: TierLooselyAdjacent, wantSlot: Slot{6, 10},
		},
		{
			name:     "advances hour",
			cond:     Clear,
			rules:    RuleSet{{StartHour: 15, EndHour: 17, StartMonth: 1, EndMonth: 12, Condition: Clear, ImagePath: "/day.jpg"}},
			month:    5, hour: 10,
			exists:   existing("/day.jpg"),
			wantPath: "/day.jpg", wantTier: TierExact, wantSlot: Slot{5, 15},
		},
		{
			name:     "hour wraps past midnight within the month",
			cond:     Clear,
			rules:    RuleSet{{StartHour: 3, EndHour: 3, StartMonth: 5, EndMonth: 5, Condition: Clear, ImagePath: "/night.jpg"}},
			month:    5, hour: 22,
			exists:   existing("/night.jpg"),
			wantPath: "/night.jpg", wantTier: TierExact, wantSlot: Slot{5, 3},
		},
		{
			name:     "month wraps past december",
			cond:     Clear,
			rules:    RuleSet{{StartHour: 0, EndHour: 0, StartMonth: 1, EndMonth: 1, Condition: Clear, ImagePath: "/jan.jpg"}},
			month:    12, hour: 23,
			exists:   existing("/jan.jpg"),
			wantPath: "/jan.jpg", wantTier: TierExact, wantSlot: Slot{1, 0},
		},
		{
			name:     "reaches the last month and hour before the start",
			cond:     Clear,
			rules:    RuleSet{{StartHour: 9, EndHour: 9, StartMonth: 4, EndMonth: 4, Condition: Clear, ImagePath: "/late.jpg"}},
			month:    5, hour: 10,
			exists:   existing("/late.jpg"),
			wantPath: "/late.jpg", wantTier: TierExact, wantSlot: Slot{4, 9},
		},
		{
			name:     "wrapped windows in both domains",
			cond:     Snow,
			rules:    RuleSet{{StartHour: 22, EndHour: 4, StartMonth: 11, EndMonth: 2, Condition: Snow, ImagePath: "/winter-night.jpg"}},
			month:    1, hour: 2,
			exists:   existing("/winter-night.jpg"),
			wantPath: "/winter-night.jpg", wantTier: TierExact, wantSlot: Slot{1, 2},
		},
		{
			name:     "unrelated condition with missing clear is no match",
			cond:     Clear,
			rules:    RuleSet{allYear(Clear, "/clear.jpg"), allYear(Rain, "/rain.jpg")},
			month:    3, hour: 8,
			exists:   existing("/rain.jpg"),
			wantPath: "",
		},
		{
			name:     "no window ever matches",
			cond:     Clear,
			rules:    RuleSet{{StartHour: 30, EndHour: 40, StartMonth: 1, EndMonth: 12, Condition: Clear, ImagePath: "/x.jpg"}},
			month:    3, hour: 8,
			exists:   existing("/x.jpg"),
			wantPath: "",
		},
		{
			name:     "empty rule set",
			cond:     Cloudy,
			month:    3, hour: 8,
			exists:   existing(),
			wantPath: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel, ok := Search(tt.cond, tt.rules, tt.month, tt.hour, tt.exists)
			assert.Equal(t, tt.wantPath, SelectWallpaper(tt.cond, tt.rules, tt.month, tt.hour, tt.exists))
			if tt.wantPath == "" {
				assert.False(t, ok)
				assert.Equal(t, Selection{}, sel)
				return
			}
			require.True(t, ok)
			assert.Equal(t, tt.wantPath, sel.Path)
			assert.Equal(t, tt.wantTier, sel.Tier)
			assert.Equal(t, tt.wantSlot, sel.Slot)
		})
	}
}

func TestSearch_VisitsEverySlotOnce(t *testing.T) {
	rules := RuleSet{allYear(Clear, "/missing.jpg")}
	lookups := 0
	seen := map[Slot]int{}
	exists := func(string) bool { lookups++; return false }

	_, ok := Search(Clear, rules, 8, 17, exists)
	assert.False(t, ok)
	// exact and default tiers both check the one Clear rule
	assert.Equal(t, 2*12*24, lookups)

	start := Slot{Month: 8, Hour: 17}
	for m := 0; m < 12; m++ {
		for h := 0; h < 24; h++ {
			seen[start.advance(m, h)]++
		}
	}
	assert.Len(t, seen, 12*24)
	for s, n := range seen {
		assert.Equal(t, 1, n, "slot %+v", s)
	}
}

func TestSearch_NormalizesStart(t *testing.T) {
	rules := RuleSet{{StartHour: 0, EndHour: 0, StartMonth: 1, EndMonth: 1, Condition: Clear, ImagePath: "/x.jpg"}}
	sel, ok := Search(Clear, rules, 13, 24, existing("/x.jpg"))
	require.True(t, ok)
	assert.Equal(t, Slot{1, 0}, sel.Slot)
}

func TestSearch_DoesNotMutateRules(t *testing.T) {
	rules := RuleSet{allYear(Rain, "/rain.jpg"), allYear(Clear, "/clear.jpg")}
	before := slices.Clone(rules)
	_ = SelectWallpaper(Rain, rules, 1, 1, existing("/clear.jpg"))
	assert.Equal(t, before, rules)
}

func TestFSFileExists(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/walls/clear.jpg", []byte("x"), 0o644))

	exists := FSFileExists(fs)
	assert.True(t, exists("/walls/clear.jpg"))
	assert.False(t, exists("/walls/rain.jpg"))
	assert.False(t, exists(""))

	rules := RuleSet{allYear(Rain, "/walls/rain.jpg"), allYear(Clear, "/walls/clear.jpg")}
	assert.Equal(t, "/walls/clear.jpg", SelectWallpaper(Rain, rules, 2, 2, exists))
}

type stubLoader struct {
	rules RuleSet
	err   error
}

func (s stubLoader) LoadRules(context.Context) (RuleSet, error) { return s.rules, s.err }

func TestEngine_BuildSnapshot(t *testing.T) {
	eng := NewEngine()
	ctx := context.Background()

	_, ok := eng.Select(Clear, 1, 1, existing("/clear.jpg"))
	assert.False(t, ok, "empty engine selects nothing")

	require.NoError(t, eng.BuildSnapshot(ctx, stubLoader{rules: RuleSet{allYear(Clear, "/clear.jpg")}}))
	sel, ok := eng.Select(Clear, 1, 1, existing("/clear.jpg"))
	require.True(t, ok)
	assert.Equal(t, "/clear.jpg", sel.Path)

	err := eng.BuildSnapshot(ctx, stubLoader{err: errors.New("boom")})
	assert.Error(t, err)
	assert.Len(t, eng.Rules(), 1, "failed reload keeps previous rules")

	require.NoError(t, eng.BuildSnapshot(ctx, stubLoader{rules: RuleSet{allYear(Fog, "/fog.jpg")}}))
	sel, ok = eng.Select(Fog, 1, 1, existing("/fog.jpg"))
	require.True(t, ok)
	assert.Equal(t, "/fog.jpg", sel.Path)
}

func TestEngine_RulesIsACopy(t *testing.T) {
	eng := NewEngine()
	require.NoError(t, eng.BuildSnapshot(context.Background(), stubLoader{rules: RuleSet{allYear(Clear, "/clear.jpg")}}))

	rs := eng.Rules()
	rs[0].ImagePath = "/changed.jpg"
	assert.Equal(t, "/clear.jpg", eng.Rules()[0].ImagePath)
}

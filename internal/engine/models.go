package engine

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownCondition is returned when a weather name is not one of the known conditions.
var ErrUnknownCondition = errors.New("unknown weather condition")

// Condition is the weather a rule is scoped to.
// Closed set; compare by value only.
type Condition int

const (
	Clear Condition = iota
	Cloudy
	Overcast
	Rain
	Thunderstorm
	Snow
	Fog
)

// Conditions lists every condition in declaration order.
var Conditions = []Condition{Clear, Cloudy, Overcast, Rain, Thunderstorm, Snow, Fog}

var conditionNames = [...]string{
	Clear:        "Clear",
	Cloudy:       "Cloudy",
	Overcast:     "Overcast",
	Rain:         "Rain",
	Thunderstorm: "Thunderstorm",
	Snow:         "Snow",
	Fog:          "Fog",
}

func (c Condition) String() string {
	if c < 0 || int(c) >= len(conditionNames) {
		return fmt.Sprintf("Condition(%d)", int(c))
	}
	return conditionNames[c]
}

// ParseCondition accepts a condition name in any case.
func ParseCondition(s string) (Condition, error) {
	name := strings.TrimSpace(s)
	for i, n := range conditionNames {
		if strings.EqualFold(n, name) {
			return Condition(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCondition, s)
}

func (c Condition) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *Condition) UnmarshalText(b []byte) error {
	v, err := ParseCondition(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// Hour and month domains. Windows outside them never match.
const (
	FirstHour  = 0
	LastHour   = 23
	FirstMonth = 1
	LastMonth  = 12

	hoursPerDay   = LastHour - FirstHour + 1
	monthsPerYear = LastMonth - FirstMonth + 1
)

// Rule scopes one image to an hour window, a month window and a condition.
// A window whose start is after its end wraps past the end of its domain.
type Rule struct {
	StartHour  int       `json:"start_hour"`
	EndHour    int       `json:"end_hour"`
	StartMonth int       `json:"start_month"`
	EndMonth   int       `json:"end_month"`
	Condition  Condition `json:"weather"`
	ImagePath  string    `json:"wallpaper_path"`
}

// RuleSet is the ordered rule collection searched as a whole.
type RuleSet []Rule

// Contains reports whether the rule's windows both cover the slot.
func (r Rule) Contains(s Slot) bool {
	return inWindow(r.StartMonth, r.EndMonth, s.Month) && inWindow(r.StartHour, r.EndHour, s.Hour)
}

func inWindow(start, end, v int) bool {
	if start > end {
		return v >= start || v <= end
	}
	return v >= start && v <= end
}

// Slot is a concrete (month, hour) pair evaluated by the search.
type Slot struct {
	Month int `json:"month"`
	Hour  int `json:"hour"`
}

// Tier is the match strength that produced a selection, strongest first.
type Tier int

const (
	TierExact Tier = iota
	TierAdjacent
	TierLooselyAdjacent
	TierDefault
)

var tierNames = [...]string{
	TierExact:           "exact",
	TierAdjacent:        "adjacent",
	TierLooselyAdjacent: "loosely_adjacent",
	TierDefault:         "default",
}

func (t Tier) String() string {
	if t < 0 || int(t) >= len(tierNames) {
		return fmt.Sprintf("Tier(%d)", int(t))
	}
	return tierNames[t]
}

func (t Tier) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// Selection is a successful search result.
type Selection struct {
	Path      string    `json:"path"`
	Condition Condition `json:"condition"`
	Tier      Tier      `json:"tier"`
	Slot      Slot      `json:"slot"`
}

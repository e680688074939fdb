package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSimilarity_Irreflexive(t *testing.T) {
	for _, c := range Conditions {
		assert.False(t, IsAdjacent(c, c), "%s adjacent to itself", c)
		assert.False(t, IsLooselyAdjacent(c, c), "%s loosely adjacent to itself", c)
	}
}

func TestSimilarity_Symmetric(t *testing.T) {
	for _, a := range Conditions {
		for _, b := range Conditions {
			assert.Equal(t, IsAdjacent(a, b), IsAdjacent(b, a), "adjacent(%s,%s)", a, b)
			assert.Equal(t, IsLooselyAdjacent(a, b), IsLooselyAdjacent(b, a), "loose(%s,%s)", a, b)
		}
	}
}

func TestSimilarity_Tables(t *testing.T) {
	wantAdjacent := [][2]Condition{
		{Clear, Cloudy}, {Cloudy, Overcast}, {Rain, Thunderstorm}, {Snow, Cloudy}, {Fog, Overcast},
	}
	wantLoose := [][2]Condition{
		{Clear, Overcast}, {Cloudy, Rain}, {Cloudy, Thunderstorm}, {Snow, Clear}, {Rain, Overcast}, {Fog, Overcast},
	}

	count := func(f func(a, b Condition) bool) int {
		n := 0
		for i, a := range Conditions {
			for _, b := range Conditions[i+1:] {
				if f(a, b) {
					n++
				}
			}
		}
		return n
	}

	for _, p := range wantAdjacent {
		assert.True(t, IsAdjacent(p[0], p[1]), "%s/%s", p[0], p[1])
	}
	for _, p := range wantLoose {
		assert.True(t, IsLooselyAdjacent(p[0], p[1]), "%s/%s", p[0], p[1])
	}
	assert.Equal(t, len(wantAdjacent), count(IsAdjacent))
	assert.Equal(t, len(wantLoose), count(IsLooselyAdjacent))
}

func TestSimilarity_FogOvercastInBoth(t *testing.T) {
	assert.True(t, IsAdjacent(Fog, Overcast))
	assert.True(t, IsLooselyAdjacent(Fog, Overcast))
	assert.False(t, IsAdjacent(Fog, Clear))
	assert.False(t, IsLooselyAdjacent(Fog, Clear))
}

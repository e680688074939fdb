package engine

type conditionPair struct{ a, b Condition }

func pair(a, b Condition) conditionPair {
	if a > b {
		a, b = b, a
	}
	return conditionPair{a, b}
}

// cloudy looks like clear or overcast, but not much like rain
var adjacent = map[conditionPair]struct{}{
	pair(Clear, Cloudy):      {},
	pair(Cloudy, Overcast):   {},
	pair(Rain, Thunderstorm): {},
	pair(Snow, Cloudy):       {},
	pair(Fog, Overcast):      {},
}

// Fog/Overcast is listed in both tables; the adjacent tier always claims it first.
var looselyAdjacent = map[conditionPair]struct{}{
	pair(Clear, Overcast):      {},
	pair(Cloudy, Rain):         {},
	pair(Cloudy, Thunderstorm): {},
	pair(Snow, Clear):          {},
	pair(Rain, Overcast):       {},
	pair(Fog, Overcast):        {},
}

// IsAdjacent reports whether two different conditions look alike.
func IsAdjacent(a, b Condition) bool {
	_, ok := adjacent[pair(a, b)]
	return ok
}

// IsLooselyAdjacent reports whether two conditions are a weaker stand-in for each other.
func IsLooselyAdjacent(a, b Condition) bool {
	_, ok := looselyAdjacent[pair(a, b)]
	return ok
}

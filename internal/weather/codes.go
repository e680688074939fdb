package weather

import "weather-wallpaper/internal/engine"

// weatherapi.com condition codes, folded into the closest condition.
// Sleet and freezing drizzle count as snow.
var codeConditions = map[int]engine.Condition{
	1000: engine.Clear,

	1003: engine.Cloudy, 1006: engine.Cloudy, 1063: engine.Cloudy, 1066: engine.Cloudy, 1069: engine.Cloudy,

	1009: engine.Overcast,

	1030: engine.Fog, 1135: engine.Fog, 1147: engine.Fog,

	1150: engine.Rain, 1153: engine.Rain, 1168: engine.Rain, 1171: engine.Rain,
	1180: engine.Rain, 1183: engine.Rain, 1186: engine.Rain, 1189: engine.Rain, 1192: engine.Rain, 1195: engine.Rain,
	1198: engine.Rain, 1201: engine.Rain,
	1240: engine.Rain, 1243: engine.Rain, 1246: engine.Rain,

	1087: engine.Thunderstorm, 1273: engine.Thunderstorm, 1276: engine.Thunderstorm,

	1114: engine.Snow, 1117: engine.Snow,
	1204: engine.Snow, 1207: engine.Snow,
	1210: engine.Snow, 1213: engine.Snow, 1216: engine.Snow, 1219: engine.Snow, 1222: engine.Snow, 1225: engine.Snow,
	1237: engine.Snow,
	1255: engine.Snow, 1258: engine.Snow,
	1261: engine.Snow, 1264: engine.Snow,
	1279: engine.Snow, 1282: engine.Snow,
	1072: engine.Snow, 1249: engine.Snow, 1252: engine.Snow,
}

// ConditionForCode maps a provider code to a condition; unknown codes are Clear.
func ConditionForCode(code int) engine.Condition {
	if c, ok := codeConditions[code]; ok {
		return c
	}
	return engine.Clear
}

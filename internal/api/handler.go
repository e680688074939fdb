package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"weather-wallpaper/internal/engine"
	"weather-wallpaper/internal/storage"
)

type WallpaperHandler struct {
	Eng    *engine.WallpaperEngine
	State  *storage.Cache
	Clock  func() time.Time
	Exists engine.FileExists
}

func NewHandler(eng *engine.WallpaperEngine, state *storage.Cache) *WallpaperHandler {
	return &WallpaperHandler{Eng: eng, State: state, Clock: time.Now, Exists: engine.OSFileExists}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// Current reports the wallpaper on screen, 204 before the first apply.
func (h *WallpaperHandler) Current(w http.ResponseWriter, _ *http.Request) {
	applied, ok := h.State.Applied()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, applied)
}

// Preview runs a search without applying anything.
// Query: condition, month, hour; each defaults to the live value.
func (h *WallpaperHandler) Preview(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	now := h.Clock()

	cond := h.State.Condition()
	if v := q.Get("condition"); v != "" {
		c, err := engine.ParseCondition(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		cond = c
	}
	month, err := intParam(q.Get("month"), int(now.Month()), engine.FirstMonth, engine.LastMonth)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("month: %w", err))
		return
	}
	hour, err := intParam(q.Get("hour"), now.Hour(), engine.FirstHour, engine.LastHour)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("hour: %w", err))
		return
	}

	sel, ok := h.Eng.Select(cond, month, hour, h.Exists)
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, sel)
}

// Rules lists the live rule set.
func (h *WallpaperHandler) Rules(w http.ResponseWriter, _ *http.Request) {
	rules := h.Eng.Rules()
	if rules == nil {
		rules = engine.RuleSet{}
	}
	writeJSON(w, http.StatusOK, rules)
}

func intParam(raw string, def, lo, hi int) (int, error) {
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if v < lo || v > hi {
		return 0, fmt.Errorf("%d out of range %d-%d", v, lo, hi)
	}
	return v, nil
}

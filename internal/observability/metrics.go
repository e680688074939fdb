package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wallpaperd_http_requests_total",
			Help: "Total status API requests",
		}, []string{"code"},
	)
	Latency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "wallpaperd_http_request_duration_seconds",
		Help:    "Request latency seconds",
		Buckets: prometheus.DefBuckets,
	})
	InFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "wallpaperd_http_in_flight",
		Help: "In-flight HTTP requests",
	})

	Selections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wallpaper_selections_total",
			Help: "Searches that found an image, by match tier",
		}, []string{"tier"},
	)
	NoMatch = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wallpaper_no_match_total",
		Help: "Searches that found no usable image",
	})
	Applies = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wallpaper_apply_total",
			Help: "Wallpaper apply attempts by result",
		}, []string{"result"},
	)
	WeatherFetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weather_fetch_total",
			Help: "Weather lookups by result",
		}, []string{"result"},
	)
	RulesLoaded = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "wallpaper_rules_loaded",
		Help: "Rules in the live snapshot",
	})
)

func init() {
	prometheus.MustRegister(RequestsTotal, Latency, InFlight, Selections, NoMatch, Applies, WeatherFetches, RulesLoaded)
}

func MetricsHandler() http.Handler { return promhttp.Handler() }

type rec struct {
	http.ResponseWriter
	code int
}

func (r *rec) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

func Measure(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		InFlight.Inc()
		defer InFlight.Dec()

		rr := &rec{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rr, r)

		Latency.Observe(time.Since(start).Seconds())
		RequestsTotal.WithLabelValues(strconv.Itoa(rr.code)).Inc()
	})
}

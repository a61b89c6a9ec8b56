package obs

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTP metrics
var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

// Identity metrics
var (
	authEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scentshop_auth_events_total",
			Help: "Registrations, logins and provider links by outcome.",
		},
		[]string{"event", "outcome"},
	)

	tokensIssuedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scentshop_tokens_issued_total",
			Help: "Bearer tokens issued, by the flow that issued them.",
		},
		[]string{"trigger"},
	)

	tokensRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scentshop_tokens_rejected_total",
			Help: "Bearer tokens rejected, by reason.",
		},
		[]string{"reason"},
	)

	readyGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "scentshop_ready",
		Help: "1 when the backing stores answered the last readiness probe.",
	})

	buildInfo = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "scentshop_build_info",
		Help: "Always 1; labelled with the running version and commit.",
	}, []string{"version", "commit"})
)

var initOnce sync.Once

// Init registers the metrics in the default registry. Safe to call more than once.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			httpInFlight, httpRequestsTotal, httpRequestDuration,
			authEventsTotal, tokensIssuedTotal, tokensRejectedTotal,
			readyGauge, buildInfo,
		)
	})
}

// Handler serves the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// AuthEvent counts an identity event such as ("login", "invalid_credentials").
func AuthEvent(event, outcome string) {
	authEventsTotal.WithLabelValues(event, outcome).Inc()
}

// TokenIssued counts a token minted by trigger (register, login, oauth).
func TokenIssued(trigger string) {
	tokensIssuedTotal.WithLabelValues(trigger).Inc()
}

// TokenRejected counts a bearer token that failed verification.
func TokenRejected(reason string) {
	tokensRejectedTotal.WithLabelValues(reason).Inc()
}

// SetBuildInfo publishes the running version. Call after Init.
func SetBuildInfo(version, commit string) {
	buildInfo.Reset()
	buildInfo.WithLabelValues(version, commit).Set(1)
}

// SetReady records the outcome of the last readiness probe.
func SetReady(ok bool) {
	if ok {
		readyGauge.Set(1)
		return
	}
	readyGauge.Set(0)
}

// Instrument records RPS, latency and in-flight requests.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := CanonicalPath(r.URL.Path)
		method := r.Method

		httpInFlight.Inc()
		defer httpInFlight.Dec()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(sw.code)

		httpRequestDuration.WithLabelValues(method, path, status).Observe(duration)
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	})
}

// CanonicalPath collapses identifiers so metric label cardinality stays bounded.
func CanonicalPath(raw string) string {
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		raw = raw[:i]
	}
	if raw == "" || raw == "/" {
		return "/"
	}
	parts := strings.Split(strings.Trim(raw, "/"), "/")
	switch {
	case parts[0] == "members" && len(parts) == 2:
		return "/members/:id"
	case parts[0] == "members" && len(parts) == 3 && parts[2] == "password":
		return "/members/:id/password"
	case parts[0] == "perfumes" && len(parts) == 3 && parts[2] == "comments":
		return "/perfumes/:id/comments"
	case parts[0] == "perfumes" && len(parts) == 4 && parts[2] == "comments":
		return "/perfumes/:id/comments/:commentId"
	case parts[0] == "auth" && len(parts) == 2:
		return "/auth/:provider"
	case parts[0] == "auth" && len(parts) == 3 && parts[2] == "callback":
		return "/auth/:provider/callback"
	}
	return "/" + strings.Join(parts, "/")
}

type statusWriter struct {
	http.ResponseWriter
	code        int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.code = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	w.wroteHeader = true
	return w.ResponseWriter.Write(b)
}

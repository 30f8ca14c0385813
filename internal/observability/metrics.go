package observability

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "llrpd"

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
	readerBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reader",
			Name:      "bytes_total",
			Help:      "Bytes received from readers.",
		},
		[]string{"origin"},
	)
	readerMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reader",
			Name:      "messages_total",
			Help:      "Decoded LLRP messages by type.",
		},
		[]string{"origin", "type"},
	)
	readerDecodeErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reader",
			Name:      "decode_errors_total",
			Help:      "Chunks whose decode stopped early.",
		},
		[]string{"origin", "kind"},
	)
	readerStatusErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reader",
			Name:      "status_errors_total",
			Help:      "Messages carrying a nonzero LLRPStatus.",
		},
		[]string{"origin", "code"},
	)
	readerCommands = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reader",
			Name:      "commands_total",
			Help:      "Command buffers written to readers.",
		},
		[]string{"origin"},
	)
	readerReadings = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reader",
			Name:      "readings_total",
			Help:      "Tag readings extracted from reports.",
		},
		[]string{"origin"},
	)
	readerConnects = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reader",
			Name:      "connect_attempts_total",
			Help:      "Reader dial attempts by outcome.",
		},
		[]string{"origin", "success"},
	)
	readerConnected = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "reader",
			Name:      "connected",
			Help:      "1 while a reader connection is up.",
		},
		[]string{"origin"},
	)
	sinkErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sink",
			Name:      "errors_total",
			Help:      "Readings a sink failed to accept.",
		},
		[]string{"sink"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			httpDuration,
			readerBytes,
			readerMessages,
			readerDecodeErrors,
			readerStatusErrors,
			readerCommands,
			readerReadings,
			readerConnects,
			readerConnected,
			sinkErrors,
		)
	})
}

// Handler serves the default registry.
func Handler() http.Handler {
	RegisterMetrics()
	return promhttp.Handler()
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}

func RecordChunk(origin string, n int) {
	RegisterMetrics()
	readerBytes.WithLabelValues(origin).Add(float64(n))
}

func RecordMessage(origin, msgType string) {
	RegisterMetrics()
	readerMessages.WithLabelValues(origin, msgType).Inc()
}

// RecordDecodeError counts an early decode stop; kind is "frame" or
// "parameter".
func RecordDecodeError(origin, kind string) {
	RegisterMetrics()
	readerDecodeErrors.WithLabelValues(origin, kind).Inc()
}

func RecordStatusError(origin, code string) {
	RegisterMetrics()
	readerStatusErrors.WithLabelValues(origin, code).Inc()
}

func RecordCommands(origin string, n int) {
	RegisterMetrics()
	readerCommands.WithLabelValues(origin).Add(float64(n))
}

func RecordReadings(origin string, n int) {
	RegisterMetrics()
	readerReadings.WithLabelValues(origin).Add(float64(n))
}

func RecordConnectAttempt(origin string, success bool) {
	RegisterMetrics()
	readerConnects.WithLabelValues(origin, strconv.FormatBool(success)).Inc()
}

func SetConnected(origin string, up bool) {
	RegisterMetrics()
	v := 0.0
	if up {
		v = 1
	}
	readerConnected.WithLabelValues(origin).Set(v)
}

func RecordSinkError(sink string) {
	RegisterMetrics()
	sinkErrors.WithLabelValues(sink).Inc()
}

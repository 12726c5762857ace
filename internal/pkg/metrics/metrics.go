package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

const namespace = "fieldarchitect"

func counter(subsystem, name, help string) prometheus.Counter {
	return promauto.NewCounter(prometheus.CounterOpts{Namespace: namespace, Subsystem: subsystem, Name: name, Help: help})
}

func gauge(subsystem, name, help string) prometheus.Gauge {
	return promauto.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Subsystem: subsystem, Name: name, Help: help})
}

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "http", Name: "requests_total",
		Help: "HTTP requests processed, by route pattern",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: "http", Name: "request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	httpResponseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: "http", Name: "response_size_bytes",
		Help:    "HTTP response body size",
		Buckets: prometheus.ExponentialBuckets(100, 10, 6),
	}, []string{"method", "path"})
)

// Domain metrics.
var (
	ActiveSessions = gauge("measure", "active_sessions", "Measurement sessions held in memory")
	FieldsSaved    = counter("fields", "saved_total", "Field boundaries saved")
	FieldsDeleted  = counter("fields", "deleted_total", "Field boundaries deleted")

	HealthCells = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "survey", Name: "health_cells_total",
		Help: "Health raster cells generated, by classification",
	}, []string{"classification"})

	SensorsPlaced = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: "survey", Name: "sensors_placed",
		Help:    "Sensors accepted per placement run",
		Buckets: []float64{0, 1, 2, 4, 8, 16, 32, 64},
	})
	SensorShortfalls = counter("survey", "sensor_shortfalls_total", "Placement runs that ran out of attempts before the target count")
)

// Infrastructure metrics.
var (
	ActiveWebSockets = gauge("ws", "active_connections", "Open WebSocket relay connections")

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "cache", Name: "hits_total", Help: "Cache hits, by operation",
	}, []string{"operation"})
	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "cache", Name: "misses_total", Help: "Cache misses, by operation",
	}, []string{"operation"})

	// BreakerState is 0 closed, 1 half-open, 2 open.
	BreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: "store", Name: "breaker_state",
		Help: "Circuit breaker state in front of the field store",
	}, []string{"breaker"})

	DBPoolConnsOpen     = gauge("db", "pool_conns_open", "Connections open in the database pool")
	DBPoolConnsAcquired = gauge("db", "pool_conns_acquired", "Connections currently acquired from the pool")
	DBPoolConnsIdle     = gauge("db", "pool_conns_idle", "Idle connections in the pool")
	DBPoolEmptyAcquires = counter("db", "pool_empty_acquires_total", "Acquires that had to open a new connection")
)

// Middleware records request metrics.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		// Label by route pattern, never the raw path.
		path := c.Route().Path
		if path == "" {
			path = "unmatched"
		}
		method := c.Method()

		httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(c.Response().StatusCode())).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
		httpResponseSize.WithLabelValues(method, path).Observe(float64(len(c.Response().Body())))

		return err
	}
}

// Handler serves the Prometheus registry through fasthttpadaptor.
func Handler() fiber.Handler {
	h := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
	return func(c *fiber.Ctx) error {
		h(c.Context())
		return nil
	}
}

// PoolStat is the subset of pgxpool.Stat read by UpdateDBPoolMetrics,
// kept as an interface so this package does not import pgx.
type PoolStat interface {
	AcquiredConns() int32
	IdleConns() int32
	TotalConns() int32
	EmptyAcquireCount() int64
}

var lastEmptyAcquires int64

// UpdateDBPoolMetrics copies pool stats into the db gauges. Call it from a single goroutine.
func UpdateDBPoolMetrics(s PoolStat) {
	DBPoolConnsAcquired.Set(float64(s.AcquiredConns()))
	DBPoolConnsIdle.Set(float64(s.IdleConns()))
	DBPoolConnsOpen.Set(float64(s.TotalConns()))

	if n := s.EmptyAcquireCount(); n > lastEmptyAcquires {
		DBPoolEmptyAcquires.Add(float64(n - lastEmptyAcquires))
		lastEmptyAcquires = n
	}
}

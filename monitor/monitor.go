// monitor/monitor.go
package monitor

import (
	"context"
	"expvar"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	OnlinePlayers       prometheus.Gauge
	ActiveRooms         prometheus.Gauge
	MessagesReceived    prometheus.Counter
	MessageLatency      prometheus.Histogram
	GamesStarted        prometheus.Counter
	GamesEnded          *prometheus.CounterVec
	PersistenceFailures prometheus.Counter
	AllocationShortfall *prometheus.CounterVec
}

func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		OnlinePlayers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "online_players",
			Help:      "Number of online players",
		}),
		ActiveRooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_rooms",
			Help:      "Number of active rooms",
		}),
		MessagesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_received_total",
			Help:      "Total number of messages received",
		}),
		MessageLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "message_latency_seconds",
			Help:      "Message processing latency",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 10),
		}),
		GamesStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_started_total",
			Help:      "Rounds that reached the active phase",
		}),
		GamesEnded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_ended_total",
			Help:      "Rounds ended, by outcome",
		}, []string{"outcome"}),
		PersistenceFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persistence_failures_total",
			Help:      "Round records that could not be stored",
		}),
		AllocationShortfall: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "allocation_shortfalls_total",
			Help:      "Seats dealt fewer candidate roles than requested",
		}, []string{"role_type"}),
	}

	reg.MustRegister(
		m.OnlinePlayers,
		m.ActiveRooms,
		m.MessagesReceived,
		m.MessageLatency,
		m.GamesStarted,
		m.GamesEnded,
		m.PersistenceFailures,
		m.AllocationShortfall,
	)

	return m
}

// Outcome labels for GamesEnded.
const (
	OutcomeRecorded     = "recorded"
	OutcomeRecordFailed = "record_failed"
	OutcomeNoWinner     = "no_winner"
	OutcomeAborted      = "aborted"
)

// Monitor wraps the metrics. A nil *Monitor is valid and records nothing.
type Monitor struct {
	metrics      *Metrics
	gatherer     prometheus.Gatherer
	startTime    time.Time
	requestCount int64
	mutex        sync.Mutex
	server       *http.Server
}

// NewMonitor registers metrics with the default prometheus registry.
func NewMonitor(namespace string) *Monitor {
	return newMonitor(namespace, prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
}

// NewMonitorWithRegistry registers metrics with reg only.
func NewMonitorWithRegistry(namespace string, reg *prometheus.Registry) *Monitor {
	return newMonitor(namespace, reg, reg)
}

func newMonitor(namespace string, reg prometheus.Registerer, gatherer prometheus.Gatherer) *Monitor {
	return &Monitor{
		metrics:   NewMetrics(namespace, reg),
		gatherer:  gatherer,
		startTime: time.Now(),
	}
}

var publishOnce sync.Once

// Handler serves /metrics and /debug/vars.
func (m *Monitor) Handler() http.Handler {
	// 添加expvar指标
	publishOnce.Do(func() {
		expvar.Publish("uptime", expvar.Func(func() interface{} {
			return time.Since(m.startTime).Seconds()
		}))
		expvar.Publish("requests", expvar.Func(func() interface{} {
			m.mutex.Lock()
			defer m.mutex.Unlock()
			return m.requestCount
		}))
	})

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{}))
	mux.Handle("/debug/vars", expvar.Handler())
	return mux
}

func (m *Monitor) StartServer(addr string) {
	m.server = &http.Server{Addr: addr, Handler: m.Handler()}
	go m.server.ListenAndServe()
}

func (m *Monitor) Shutdown(ctx context.Context) error {
	if m == nil || m.server == nil {
		return nil
	}
	return m.server.Shutdown(ctx)
}

func (m *Monitor) SetOnlinePlayers(count int) {
	if m == nil {
		return
	}
	m.metrics.OnlinePlayers.Set(float64(count))
}

func (m *Monitor) SetActiveRooms(count int) {
	if m == nil {
		return
	}
	m.metrics.ActiveRooms.Set(float64(count))
}

func (m *Monitor) IncMessagesReceived() {
	if m == nil {
		return
	}
	m.metrics.MessagesReceived.Inc()
	m.mutex.Lock()
	m.requestCount++
	m.mutex.Unlock()
}

func (m *Monitor) ObserveMessageLatency(duration time.Duration) {
	if m == nil {
		return
	}
	m.metrics.MessageLatency.Observe(duration.Seconds())
}

func (m *Monitor) IncGamesStarted() {
	if m == nil {
		return
	}
	m.metrics.GamesStarted.Inc()
}

func (m *Monitor) IncGamesEnded(outcome string) {
	if m == nil {
		return
	}
	m.metrics.GamesEnded.WithLabelValues(outcome).Inc()
}

func (m *Monitor) IncPersistenceFailures() {
	if m == nil {
		return
	}
	m.metrics.PersistenceFailures.Inc()
}

func (m *Monitor) IncAllocationShortfall(roleType string) {
	if m == nil {
		return
	}
	m.metrics.AllocationShortfall.WithLabelValues(roleType).Inc()
}

func (m *Monitor) RequestCount() int64 {
	if m == nil {
		return 0
	}
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.requestCount
}

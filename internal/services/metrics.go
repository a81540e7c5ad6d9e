package services

import (
	"runtime"
	"sync/atomic"
	"time"
)

// Health thresholds, expressed against a nominal capacity of 10k connections
// and 1k rooms per process.
const (
	healthCriticalConnections = 9000
	healthCriticalRooms       = 900
	healthWarningConnections  = 8000
	healthWarningRooms        = 800
	healthWarningErrors       = 100
)

// Metrics aggregates the counters behind /metrics and /healthz: live
// connections and rooms, message throughput, and error rates. All counters
// are updated lock-free from the hub, the client pumps, and the registry.
type Metrics struct {
	activeConnections atomic.Int64
	totalConnections  atomic.Int64
	activeRooms       atomic.Int64

	messagesReceived atomic.Int64
	messagesSent     atomic.Int64
	lastMessageUnix  atomic.Int64

	connectionErrors    atomic.Int64
	broadcastErrors     atomic.Int64
	rateLimitViolations atomic.Int64

	startTime time.Time
}

func NewMetrics() *Metrics {
	return &Metrics{
		startTime: time.Now(),
	}
}

func (m *Metrics) IncrementConnections() {
	m.activeConnections.Add(1)
	m.totalConnections.Add(1)
}

func (m *Metrics) DecrementConnections() {
	m.activeConnections.Add(-1)
}

func (m *Metrics) IncrementRooms() {
	m.activeRooms.Add(1)
}

func (m *Metrics) DecrementRooms() {
	m.activeRooms.Add(-1)
}

func (m *Metrics) IncrementMessagesReceived() {
	m.messagesReceived.Add(1)
	m.lastMessageUnix.Store(time.Now().Unix())
}

func (m *Metrics) IncrementMessagesSent() {
	m.messagesSent.Add(1)
}

func (m *Metrics) IncrementConnectionErrors() {
	m.connectionErrors.Add(1)
}

func (m *Metrics) IncrementBroadcastErrors() {
	m.broadcastErrors.Add(1)
}

func (m *Metrics) IncrementRateLimitViolations() {
	m.rateLimitViolations.Add(1)
}

// MetricsSnapshot is the JSON shape served on /metrics.
type MetricsSnapshot struct {
	ActiveConnections int64 `json:"active_connections"`
	TotalConnections  int64 `json:"total_connections"`
	ActiveRooms       int64 `json:"active_rooms"`

	MessagesReceived  int64   `json:"messages_received"`
	MessagesSent      int64   `json:"messages_sent"`
	MessagesPerSecond float64 `json:"messages_per_second"`
	LastMessageTime   string  `json:"last_message_time"`

	ConnectionErrors    int64 `json:"connection_errors"`
	BroadcastErrors     int64 `json:"broadcast_errors"`
	RateLimitViolations int64 `json:"rate_limit_violations"`

	UptimeSeconds int64  `json:"uptime_seconds"`
	MemoryUsageMB uint64 `json:"memory_usage_mb"`
	NumGoroutines int    `json:"num_goroutines"`

	HealthStatus string `json:"health_status"`
}

// Snapshot returns a point-in-time view of all counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	uptime := time.Since(m.startTime)

	lastMessage := "never"
	if ts := m.lastMessageUnix.Load(); ts > 0 {
		lastMessage = time.Unix(ts, 0).Format(time.RFC3339)
	}

	return MetricsSnapshot{
		ActiveConnections:   m.activeConnections.Load(),
		TotalConnections:    m.totalConnections.Load(),
		ActiveRooms:         m.activeRooms.Load(),
		MessagesReceived:    m.messagesReceived.Load(),
		MessagesSent:        m.messagesSent.Load(),
		MessagesPerSecond:   float64(m.messagesReceived.Load()) / uptime.Seconds(),
		LastMessageTime:     lastMessage,
		ConnectionErrors:    m.connectionErrors.Load(),
		BroadcastErrors:     m.broadcastErrors.Load(),
		RateLimitViolations: m.rateLimitViolations.Load(),
		UptimeSeconds:       int64(uptime.Seconds()),
		MemoryUsageMB:       memStats.Alloc / 1024 / 1024,
		NumGoroutines:       runtime.NumGoroutine(),
		HealthStatus:        m.healthStatus(),
	}
}

// healthStatus grades the process for /healthz. Critical means the load
// balancer should stop routing new rooms here.
func (m *Metrics) healthStatus() string {
	conns := m.activeConnections.Load()
	rooms := m.activeRooms.Load()
	errs := m.connectionErrors.Load() + m.broadcastErrors.Load()

	switch {
	case conns > healthCriticalConnections || rooms > healthCriticalRooms:
		return "critical"
	case conns > healthWarningConnections || rooms > healthWarningRooms || errs > healthWarningErrors:
		return "warning"
	default:
		return "healthy"
	}
}

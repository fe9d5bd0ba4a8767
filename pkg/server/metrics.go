package server

import (
	"encoding/json"
	"log/slog"
	"sync/atomic"
	"time"
)

// Metrics tracks server runtime statistics.
// All counters use atomic operations for lock-free concurrent access.
type Metrics struct {
	startTime time.Time

	// Connection counters
	TotalConnections  atomic.Int64 // lifetime TCP connections accepted
	ActiveConnections atomic.Int64 // current open connections (incl. handshaking)
	HandshakeRejects  atomic.Int64 // rejected username proposals
	Disconnects       atomic.Int64 // sessions removed (logout, kick, I/O failure)

	// Message counters
	BroadcastsSent   atomic.Int64 // chat broadcasts delivered
	PrivateMessages  atomic.Int64 // private deliveries
	FilteredMessages atomic.Int64 // broadcasts dropped by the bad-word filter

	// Moderation counters
	KickCount atomic.Int64 // users kicked by the coordinator
}

// NewMetrics creates a new Metrics instance with the start time set to now.
func NewMetrics() *Metrics {
	return &Metrics{
		startTime: time.Now(),
	}
}

// MetricsSnapshot is a point-in-time view of all metrics as a serializable struct.
type MetricsSnapshot struct {
	Uptime        string `json:"uptime"`
	UptimeSeconds int64  `json:"uptime_seconds"`

	ActiveConnections int64 `json:"active_connections"`
	TotalConnections  int64 `json:"total_connections"`
	HandshakeRejects  int64 `json:"handshake_rejects"`
	Disconnects       int64 `json:"disconnects"`

	BroadcastsSent   int64 `json:"broadcasts_sent"`
	PrivateMessages  int64 `json:"private_messages"`
	FilteredMessages int64 `json:"filtered_messages"`

	KickCount int64 `json:"kick_count"`
}

// Snapshot returns a read-consistent snapshot of all metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	uptime := time.Since(m.startTime)
	return MetricsSnapshot{
		Uptime:            uptime.Truncate(time.Second).String(),
		UptimeSeconds:     int64(uptime.Seconds()),
		ActiveConnections: m.ActiveConnections.Load(),
		TotalConnections:  m.TotalConnections.Load(),
		HandshakeRejects:  m.HandshakeRejects.Load(),
		Disconnects:       m.Disconnects.Load(),
		BroadcastsSent:    m.BroadcastsSent.Load(),
		PrivateMessages:   m.PrivateMessages.Load(),
		FilteredMessages:  m.FilteredMessages.Load(),
		KickCount:         m.KickCount.Load(),
	}
}

// JSON returns the metrics snapshot as a JSON string.
func (m *Metrics) JSON() string {
	data, err := json.MarshalIndent(m.Snapshot(), "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}

// LogSummary writes a periodic metrics summary to the logger.
func (m *Metrics) LogSummary() {
	s := m.Snapshot()
	slog.Info("metrics",
		"uptime", s.Uptime,
		"connections", s.ActiveConnections,
		"total_connections", s.TotalConnections,
		"broadcasts", s.BroadcastsSent,
		"privates", s.PrivateMessages,
		"filtered", s.FilteredMessages,
		"kicks", s.KickCount,
	)
}

// StartPeriodicLog starts a goroutine that logs metrics every interval.
// It stops when the done channel is closed.
func (m *Metrics) StartPeriodicLog(interval time.Duration, done <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				m.LogSummary()
			}
		}
	}()
}

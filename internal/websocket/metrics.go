package websocket

import (
	"sync"
	"time"
)

// Metrics tracks hub traffic. It is safe for concurrent use.
type Metrics struct {
	mu sync.Mutex

	TotalConnections  int64
	ActiveConnections int64
	MaxConcurrent     int64
	MessagesSent      int64
	BytesSent         int64
	MessagesReceived  int64
	DroppedMessages   int64

	totalConnected time.Duration
	closed         int64
}

// NewMetrics creates a new metrics instance
func NewMetrics() *Metrics {
	return &Metrics{}
}

// RecordConnection records a new connection
func (m *Metrics) RecordConnection() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.TotalConnections++
	m.ActiveConnections++
	if m.ActiveConnections > m.MaxConcurrent {
		m.MaxConcurrent = m.ActiveConnections
	}
}

// RecordDisconnection records a closed connection and how long it lasted
func (m *Metrics) RecordDisconnection(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ActiveConnections > 0 {
		m.ActiveConnections--
	}
	m.totalConnected += d
	m.closed++
}

// RecordSent records one delivered message
func (m *Metrics) RecordSent(size int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MessagesSent++
	m.BytesSent += int64(size)
}

// RecordReceived records one message read from a client
func (m *Metrics) RecordReceived() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MessagesReceived++
}

// RecordDropped records a message that could not be queued
func (m *Metrics) RecordDropped() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DroppedMessages++
}

// Snapshot returns a copy of the counters
func (m *Metrics) Snapshot() map[string]int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	var avg int64
	if m.closed > 0 {
		avg = int64(m.totalConnected/time.Duration(m.closed)) / int64(time.Millisecond)
	}
	return map[string]int64{
		"total_connections":      m.TotalConnections,
		"active_connections":     m.ActiveConnections,
		"max_concurrent":         m.MaxConcurrent,
		"messages_sent":          m.MessagesSent,
		"bytes_sent":             m.BytesSent,
		"messages_received":      m.MessagesReceived,
		"dropped_messages":       m.DroppedMessages,
		"avg_connection_time_ms": avg,
	}
}

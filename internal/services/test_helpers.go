package services

import (
	"github.com/stretchr/testify/mock"

	"cptmerge/pkg/contracts/events"
)

// MockBroadcaster is a mock for the Broadcaster interface
type MockBroadcaster struct {
	mock.Mock
}

func (m *MockBroadcaster) BroadcastToSession(sessionID string, msg events.WebSocketMessage) {
	m.Called(sessionID, msg)
}

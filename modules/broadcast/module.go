package broadcast

import (
	"context"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
)

// BroadcastModule owns the room hub for the lifetime of the process.
type BroadcastModule struct {
	hub    *Hub
	logger types.Logger
}

// Compile-time interface checks.
var _ mono.Module = (*BroadcastModule)(nil)
var _ mono.HealthCheckableModule = (*BroadcastModule)(nil)

// NewModule creates a new BroadcastModule with an empty hub.
func NewModule(logger types.Logger) *BroadcastModule {
	return &BroadcastModule{
		hub:    NewHub(logger),
		logger: logger,
	}
}

// Name returns the module name.
func (m *BroadcastModule) Name() string {
	return "broadcast"
}

// Start has nothing to do; rooms are created on demand.
func (m *BroadcastModule) Start(_ context.Context) error {
	m.logger.Info("Broadcast module started")
	return nil
}

// Stop closes every connected client so their writers exit.
func (m *BroadcastModule) Stop(_ context.Context) error {
	closed := m.hub.Shutdown()
	m.logger.Info("Broadcast module stopped", "closedClients", closed)
	return nil
}

// Health returns the health status.
func (m *BroadcastModule) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"connected_clients": m.hub.ClientCount(),
			"rooms":             m.hub.RoomCount(),
		},
	}
}

// GetHub returns the hub shared with the chat and api modules.
func (m *BroadcastModule) GetHub() *Hub {
	return m.hub
}

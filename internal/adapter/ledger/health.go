package ledger

import (
	"context"
	"fmt"
)

// HealthCheck implements ports.HealthChecker for the RPC node.
type HealthCheck struct {
	client EthClient
	want   int64
}

// NewHealthCheck creates a ledger health checker that also verifies the
// node serves the configured chain.
func NewHealthCheck(g *Gateway) *HealthCheck {
	return &HealthCheck{client: g.client, want: g.chainID.Int64()}
}

// Ping checks the node answers and reports the expected network id.
func (h *HealthCheck) Ping(ctx context.Context) error {
	id, err := h.client.NetworkID(ctx)
	if err != nil {
		return fmt.Errorf("ledger network id: %w", err)
	}
	if id.Int64() != h.want {
		return fmt.Errorf("ledger network id %d, want %d", id.Int64(), h.want)
	}
	return nil
}

// Name returns the dependency name.
func (h *HealthCheck) Name() string {
	return "ledger"
}

package robot

import (
	"context"
	"sync"
)

// Mock records all actions for testing.
type Mock struct {
	mu         sync.Mutex
	deliveries []string
	organizes  int
	err        error
}

// NewMock creates a mock actuator.
func NewMock() *Mock {
	return &Mock{}
}

// FailWith makes subsequent calls record the action and return err.
func (m *Mock) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// DeliverTool records the delivery.
func (m *Mock) DeliverTool(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deliveries = append(m.deliveries, name)
	return m.err
}

// OrganizeTools records the call.
func (m *Mock) OrganizeTools(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.organizes++
	return m.err
}

// Deliveries returns the delivered tool names in order.
func (m *Mock) Deliveries() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.deliveries...)
}

// Organizes returns the number of OrganizeTools calls.
func (m *Mock) Organizes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.organizes
}

var _ Actuator = (*Mock)(nil)

package service

import (
	"context"
	"errors"
	"sync"

	"github.com/Dhoini/isp-subscription-service/internal/domain"
	"github.com/shopspring/decimal"
)

type recordingMetrics struct {
	mu          sync.Mutex
	operations  []string
	revenue     map[domain.Category]decimal.Decimal
	transitions []string
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{revenue: make(map[domain.Category]decimal.Decimal)}
}

func (m *recordingMetrics) ObserveOperation(operation string, category domain.Category, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.operations = append(m.operations, operation+"/"+string(category)+"/"+outcome)
}

func (m *recordingMetrics) AddRevenue(category domain.Category, amount decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revenue[category] = m.revenue[category].Add(amount)
}

func (m *recordingMetrics) ObserveSweepTransition(transition string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitions = append(m.transitions, transition)
}

func (m *recordingMetrics) lastOperation() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.operations) == 0 {
		return ""
	}
	return m.operations[len(m.operations)-1]
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.SubscriptionEvent
	fail   bool
}

func (p *recordingPublisher) Publish(ctx context.Context, event domain.SubscriptionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("broker unavailable")
	}
	p.events = append(p.events, event)
	return nil
}

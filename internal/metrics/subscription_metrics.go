package metrics

import (
	"github.com/Dhoini/isp-subscription-service/internal/domain"
	"github.com/Dhoini/isp-subscription-service/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
)

// SubscriptionMetrics метрики жизненного цикла подписок
type SubscriptionMetrics struct {
	log         *logger.Logger
	operations  *prometheus.CounterVec
	revenue     *prometheus.CounterVec
	charges     *prometheus.HistogramVec
	transitions *prometheus.CounterVec
}

// NewRegistry создает реестр с коллекторами Go и процесса
func NewRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return registry
}

// NewSubscriptionMetrics регистрирует метрики подписок в registry
func NewSubscriptionMetrics(registry prometheus.Registerer, log *logger.Logger) *SubscriptionMetrics {
	operations := promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "subscription_operations_total",
			Help: "The total number of subscription operations by outcome",
		},
		[]string{"operation", "category", "outcome"},
	)

	revenue := promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "subscription_revenue_total",
			Help: "Accrued subscription price by category",
		},
		[]string{"category"},
	)

	charges := promauto.With(registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "subscription_charge_amount",
			Help:    "Price added by a single subscribe call",
			Buckets: []float64{5, 10, 20, 50, 100, 250, 500, 1000},
		},
		[]string{"category"},
	)

	transitions := promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "subscription_sweep_transitions_total",
			Help: "Status changes applied by the expiry sweeper",
		},
		[]string{"transition"},
	)

	return &SubscriptionMetrics{
		log:         log,
		operations:  operations,
		revenue:     revenue,
		charges:     charges,
		transitions: transitions,
	}
}

// ObserveOperation увеличивает счетчик операций
func (m *SubscriptionMetrics) ObserveOperation(operation string, category domain.Category, outcome string) {
	label := string(category)
	if label == "" {
		label = "unknown"
	}
	m.operations.WithLabelValues(operation, label, outcome).Inc()
}

// AddRevenue учитывает начисленную стоимость
func (m *SubscriptionMetrics) AddRevenue(category domain.Category, amount decimal.Decimal) {
	value := amount.InexactFloat64()
	if value < 0 {
		m.log.Warnw("Negative revenue ignored", "category", category, "amount", amount.String())
		return
	}
	m.revenue.WithLabelValues(string(category)).Add(value)
	m.charges.WithLabelValues(string(category)).Observe(value)
}

// ObserveSweepTransition увеличивает счетчик переходов статуса
func (m *SubscriptionMetrics) ObserveSweepTransition(transition string) {
	m.transitions.WithLabelValues(transition).Inc()
}

// Nop пустая реализация для тестов и утилит
type Nop struct{}

// ObserveOperation ничего не делает
func (Nop) ObserveOperation(string, domain.Category, string) {}

// AddRevenue ничего не делает
func (Nop) AddRevenue(domain.Category, decimal.Decimal) {}

// ObserveSweepTransition ничего не делает
func (Nop) ObserveSweepTransition(string) {}

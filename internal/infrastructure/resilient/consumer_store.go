// Package resilient guards store adapters with circuit breakers.
package resilient

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"

	"github.com/wms-platform/reallocation-service/internal/domain"
	"github.com/wms-platform/reallocation-service/pkg/logging"
	"github.com/wms-platform/reallocation-service/pkg/metrics"
	"github.com/wms-platform/reallocation-service/pkg/resilience"
)

const breakerName = "consumer-store"

// DefaultBreakerTimeout is how long the consumer-store breaker stays open. Saga retries
// back off for longer than this so a compensating write outlives one open period.
const DefaultBreakerTimeout = 5 * time.Second

// ConsumerStore wraps a domain.ConsumerStore so that an unhealthy backend fails fast.
// Missing records and version conflicts are answers, not outages, and never trip the breaker.
type ConsumerStore struct {
	next    domain.ConsumerStore
	breaker *resilience.CircuitBreaker
}

// NewConsumerStore wraps next with a breaker built from config (nil means defaults)
func NewConsumerStore(next domain.ConsumerStore, config *resilience.CircuitBreakerConfig, logger *logging.Logger, m *metrics.Metrics) *ConsumerStore {
	if config == nil {
		config = resilience.DefaultCircuitBreakerConfig(breakerName)
		config.Timeout = DefaultBreakerTimeout
	}
	config.IsSuccessful = isHealthyOutcome
	config.OnStateChange = func(name string, _, to gobreaker.State) {
		m.SetCircuitBreakerState(name, resilience.StateValue(to))
		if to == gobreaker.StateOpen {
			m.RecordCircuitBreakerTrip(name)
		}
	}
	m.SetCircuitBreakerState(config.Name, resilience.StateValue(gobreaker.StateClosed))

	return &ConsumerStore{
		next:    next,
		breaker: resilience.NewCircuitBreaker(config, logger.Logger),
	}
}

func isHealthyOutcome(err error) bool {
	return err == nil ||
		errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrConcurrentModification) ||
		errors.Is(err, domain.ErrValidation) ||
		errors.Is(err, context.Canceled)
}

// GetByID loads a consumer through the breaker
func (s *ConsumerStore) GetByID(ctx context.Context, consumer domain.ConsumerRef) (*domain.ConsumerRecord, error) {
	return resilience.Call(ctx, s.breaker, func(ctx context.Context) (*domain.ConsumerRecord, error) {
		return s.next.GetByID(ctx, consumer)
	})
}

// Update replaces a consumer through the breaker
func (s *ConsumerStore) Update(ctx context.Context, record *domain.ConsumerRecord) (*domain.ConsumerRecord, error) {
	return resilience.Call(ctx, s.breaker, func(ctx context.Context) (*domain.ConsumerRecord, error) {
		return s.next.Update(ctx, record)
	})
}

// FindByMaterial lists consumers through the breaker
func (s *ConsumerStore) FindByMaterial(ctx context.Context, materialID string) ([]*domain.ConsumerRecord, error) {
	return resilience.Call(ctx, s.breaker, func(ctx context.Context) ([]*domain.ConsumerRecord, error) {
		return s.next.FindByMaterial(ctx, materialID)
	})
}

// State exposes the breaker state for readiness checks
func (s *ConsumerStore) State() gobreaker.State {
	return s.breaker.State()
}

package circuitbreaker

import (
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"github.com/tvet-apply/applicants-api/pkg/logger"
	"github.com/tvet-apply/applicants-api/pkg/metrics"
	"go.uber.org/zap"
)

// ErrOpen is returned while the breaker rejects calls
var ErrOpen = gobreaker.ErrOpenState

// Config describes when a breaker trips and how long it stays open
type Config struct {
	Name string
	// requests let through while half-open
	HalfOpenRequests uint32
	// counts reset after this long in the closed state
	Window time.Duration
	// how long the breaker stays open before probing again
	Cooldown time.Duration
	// trip once MinRequests were seen and FailureRatio of them failed
	MinRequests  uint32
	FailureRatio float64
	// IgnoreError keeps matching errors from counting as failures
	IgnoreError func(error) bool
}

// DefaultConfig trips after 3+ requests with at least 60% failures
func DefaultConfig(name string) Config {
	return Config{
		Name:             name,
		HalfOpenRequests: 3,
		Window:           time.Minute,
		Cooldown:         30 * time.Second,
		MinRequests:      3,
		FailureRatio:     0.6,
	}
}

// Breaker guards calls to one external dependency
type Breaker struct {
	cb *gobreaker.CircuitBreaker
}

// New builds a breaker that logs transitions and exports its state
func New(cfg Config) *Breaker {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.HalfOpenRequests,
		Interval:    cfg.Window,
		Timeout:     cfg.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
			metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(stateValue(to)))
		},
	}
	if cfg.IgnoreError != nil {
		settings.IsSuccessful = func(err error) bool {
			return err == nil || cfg.IgnoreError(err)
		}
	}

	metrics.CircuitBreakerState.WithLabelValues(cfg.Name).Set(0)
	return &Breaker{cb: gobreaker.NewCircuitBreaker(settings)}
}

// Name returns the breaker name
func (b *Breaker) Name() string {
	return b.cb.Name()
}

// Open reports whether calls are currently rejected
func (b *Breaker) Open() bool {
	return b.cb.State() == gobreaker.StateOpen
}

// Run calls fn unless the breaker is open. Rejections name the breaker
// and still match ErrOpen.
func (b *Breaker) Run(fn func() error) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("circuit breaker '%s' is %s: %w", b.Name(), b.cb.State(), err)
	}
	return err
}

func stateValue(s gobreaker.State) int {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

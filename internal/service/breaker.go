package service

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// BreakerState is the circuit breaker state machine position.
type BreakerState string

const (
	BreakerClosed   BreakerState = "CLOSED"
	BreakerOpen     BreakerState = "OPEN"
	BreakerHalfOpen BreakerState = "HALF_OPEN"
)

// BreakerSettings configures one circuit breaker. Settings apply at creation
// time only; later Get calls for the same name ignore them.
type BreakerSettings struct {
	FailureThreshold int
	ResetTimeout     time.Duration
	MonitoringPeriod time.Duration // informational, reported in snapshots
}

// DefaultBreakerSettings returns the stock per-target configuration.
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		FailureThreshold: 5,
		ResetTimeout:     60 * time.Second,
		MonitoringPeriod: 300 * time.Second,
	}
}

// CircuitOpenError is returned by Execute when the breaker is OPEN and the
// cooldown has not elapsed. The wrapped operation is never invoked.
type CircuitOpenError struct {
	Name    string
	RetryAt time.Time
}

func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("circuit breaker open for %s until %s", e.Name, e.RetryAt.UTC().Format(time.RFC3339))
}

// CircuitBreaker guards calls to one downstream target. It trips OPEN after
// FailureThreshold consecutive failures, rejects calls for ResetTimeout, then
// lets a probe through (HALF_OPEN) to test recovery. Long-lived and cyclic;
// there is no terminal state.
type CircuitBreaker struct {
	name     string
	settings BreakerSettings

	mu              sync.Mutex
	state           BreakerState
	failureCount    int
	successCount    int
	lastFailureTime *time.Time
	nextAttemptTime *time.Time

	now func() time.Time // injectable clock for tests
}

// NewCircuitBreaker creates a CLOSED breaker for the named target.
func NewCircuitBreaker(name string, settings BreakerSettings) *CircuitBreaker {
	if settings.FailureThreshold <= 0 {
		settings.FailureThreshold = DefaultBreakerSettings().FailureThreshold
	}
	if settings.ResetTimeout <= 0 {
		settings.ResetTimeout = DefaultBreakerSettings().ResetTimeout
	}
	return &CircuitBreaker{
		name:     name,
		settings: settings,
		state:    BreakerClosed,
		now:      time.Now,
	}
}

// Execute runs op through the breaker. While OPEN and before the cooldown
// expires it fails fast with *CircuitOpenError without invoking op. The first
// call after the cooldown moves the breaker to HALF_OPEN and probes.
func (b *CircuitBreaker) Execute(op func() error) error {
	if err := b.beforeCall(); err != nil {
		return err
	}

	err := op()
	b.afterCall(err == nil)
	return err
}

func (b *CircuitBreaker) beforeCall() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == BreakerOpen {
		now := b.now()
		if b.nextAttemptTime != nil && now.Before(*b.nextAttemptTime) {
			return &CircuitOpenError{Name: b.name, RetryAt: *b.nextAttemptTime}
		}
		b.state = BreakerHalfOpen
	}
	return nil
}

func (b *CircuitBreaker) afterCall(success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if success {
		b.successCount++
		b.failureCount = 0
		if b.state == BreakerHalfOpen {
			b.state = BreakerClosed
			b.nextAttemptTime = nil
		}
		return
	}

	now := b.now()
	b.failureCount++
	b.successCount = 0
	b.lastFailureTime = &now

	// A failed probe reopens immediately; in CLOSED the threshold applies.
	if b.state == BreakerHalfOpen || b.failureCount >= b.settings.FailureThreshold {
		b.state = BreakerOpen
		next := now.Add(b.settings.ResetTimeout)
		b.nextAttemptTime = &next
	}
}

// State returns the current state.
func (b *CircuitBreaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Reset forces the breaker CLOSED with counters zeroed (administrative override).
func (b *CircuitBreaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = BreakerClosed
	b.failureCount = 0
	b.successCount = 0
	b.lastFailureTime = nil
	b.nextAttemptTime = nil
}

// BreakerSnapshot is a point-in-time view of one breaker for observability.
type BreakerSnapshot struct {
	Name             string       `json:"name"`
	State            BreakerState `json:"state"`
	FailureCount     int          `json:"failure_count"`
	SuccessCount     int          `json:"success_count"`
	FailureThreshold int          `json:"failure_threshold"`
	ResetTimeout     string       `json:"reset_timeout"`
	MonitoringPeriod string       `json:"monitoring_period"`
	LastFailureTime  *time.Time   `json:"last_failure_time,omitempty"`
	NextAttemptTime  *time.Time   `json:"next_attempt_time,omitempty"`
}

// Snapshot returns the breaker's current state and counters.
func (b *CircuitBreaker) Snapshot() BreakerSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return BreakerSnapshot{
		Name:             b.name,
		State:            b.state,
		FailureCount:     b.failureCount,
		SuccessCount:     b.successCount,
		FailureThreshold: b.settings.FailureThreshold,
		ResetTimeout:     b.settings.ResetTimeout.String(),
		MonitoringPeriod: b.settings.MonitoringPeriod.String(),
		LastFailureTime:  b.lastFailureTime,
		NextAttemptTime:  b.nextAttemptTime,
	}
}

// BreakerRegistry owns the process-wide set of per-target breakers.
// Explicitly constructed and injected into the dispatcher; never a package
// global, so tests and multiple configurations can coexist in one process.
type BreakerRegistry struct {
	mu       sync.Mutex
	breakers map[string]*CircuitBreaker
	defaults BreakerSettings
}

// NewBreakerRegistry creates an empty registry with the given default settings.
func NewBreakerRegistry(defaults BreakerSettings) *BreakerRegistry {
	if defaults.FailureThreshold <= 0 {
		defaults = DefaultBreakerSettings()
	}
	return &BreakerRegistry{
		breakers: make(map[string]*CircuitBreaker),
		defaults: defaults,
	}
}

// Get returns the breaker for name, creating one with the registry defaults
// on first reference. Creation is serialized; concurrent callers for the
// same name always receive the same instance.
func (r *BreakerRegistry) Get(name string) *CircuitBreaker {
	return r.GetWithSettings(name, r.defaults)
}

// GetWithSettings returns the breaker for name, creating it with the given
// settings on first reference. Settings only apply at creation; an existing
// breaker is returned unchanged regardless of the settings argument.
func (r *BreakerRegistry) GetWithSettings(name string, settings BreakerSettings) *CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok := r.breakers[name]; ok {
		return b
	}
	b := NewCircuitBreaker(name, settings)
	r.breakers[name] = b
	return b
}

// Lookup returns the breaker for name without creating one.
func (r *BreakerRegistry) Lookup(name string) (*CircuitBreaker, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.breakers[name]
	return b, ok
}

// Snapshot returns a stable view of every registered breaker, sorted by name.
func (r *BreakerRegistry) Snapshot() []BreakerSnapshot {
	r.mu.Lock()
	breakers := make([]*CircuitBreaker, 0, len(r.breakers))
	for _, b := range r.breakers {
		breakers = append(breakers, b)
	}
	r.mu.Unlock()

	snapshots := make([]BreakerSnapshot, 0, len(breakers))
	for _, b := range breakers {
		snapshots = append(snapshots, b.Snapshot())
	}
	sort.Slice(snapshots, func(i, j int) bool { return snapshots[i].Name < snapshots[j].Name })
	return snapshots
}

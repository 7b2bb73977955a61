package triggerflow

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/randalmurphal/triggerflow/pkg/triggerflow/bypass"
	"github.com/randalmurphal/triggerflow/pkg/triggerflow/loopcount"
	"github.com/randalmurphal/triggerflow/pkg/triggerflow/observability"
)

const bypassAllToken = bypass.AllToken

// UnitOfWork is the state shared by every supervisor within one externally
// defined unit of work: the bypass registry and the recursion counters.
//
// Create one per unit of work and pass it to each NewSupervisor call. Units
// that run concurrently must each have their own UnitOfWork.
type UnitOfWork struct {
	mu       sync.RWMutex
	id       string
	bypass   *bypass.Registry
	loops    *loopcount.Counters
	settings Settings

	logger  *slog.Logger
	metrics observability.MetricsRecorder
	spans   observability.SpanManager
	limits  LimitsProvider
}

// UnitOfWorkOption configures a UnitOfWork.
type UnitOfWorkOption func(*UnitOfWork)

// WithUnitID sets the unit identifier used in logs and spans.
// If not set, a UUID is generated.
func WithUnitID(id string) UnitOfWorkOption {
	return func(u *UnitOfWork) {
		if id != "" {
			u.id = id
		}
	}
}

// WithLogger sets the logger. Supervisors enrich it with unit_id and
// handler. A nil logger disables logging, which is also the default.
func WithLogger(logger *slog.Logger) UnitOfWorkOption {
	return func(u *UnitOfWork) {
		u.logger = logger
	}
}

// WithMetrics enables OpenTelemetry metrics using the global meter provider.
// Default: disabled.
func WithMetrics(enabled bool) UnitOfWorkOption {
	return func(u *UnitOfWork) {
		if enabled {
			u.metrics = observability.NewMetricsRecorder()
		} else {
			u.metrics = observability.NoopMetrics{}
		}
	}
}

// WithMetricsRecorder sets a custom metrics recorder.
func WithMetricsRecorder(m observability.MetricsRecorder) UnitOfWorkOption {
	return func(u *UnitOfWork) {
		if m != nil {
			u.metrics = m
		}
	}
}

// WithTracing enables OpenTelemetry spans using the global tracer provider.
// Default: disabled.
func WithTracing(enabled bool) UnitOfWorkOption {
	return func(u *UnitOfWork) {
		if enabled {
			u.spans = observability.NewSpanManager()
		} else {
			u.spans = observability.NoopSpanManager{}
		}
	}
}

// WithSpanManager sets a custom span manager.
func WithSpanManager(s observability.SpanManager) UnitOfWorkOption {
	return func(u *UnitOfWork) {
		if s != nil {
			u.spans = s
		}
	}
}

// WithSettings applies file-level settings: initial bypasses, default max
// loop counts and the diagnostics flag.
func WithSettings(s Settings) UnitOfWorkOption {
	return func(u *UnitOfWork) {
		u.settings = s
	}
}

// WithLimitsProvider sets the source of resource usage counters reported
// by supervisors with diagnostics enabled.
func WithLimitsProvider(p LimitsProvider) UnitOfWorkOption {
	return func(u *UnitOfWork) {
		u.limits = p
	}
}

// NewUnitOfWork creates an empty unit of work.
//
// Example:
//
//	uow := triggerflow.NewUnitOfWork(
//	    triggerflow.WithLogger(logger),
//	    triggerflow.WithSettings(settings),
//	)
//	sup, err := triggerflow.NewSupervisor(uow, "AccountHandler", h)
func NewUnitOfWork(opts ...UnitOfWorkOption) *UnitOfWork {
	u := &UnitOfWork{
		id:      uuid.New().String(),
		bypass:  bypass.New(),
		loops:   loopcount.New(),
		metrics: observability.NoopMetrics{},
		spans:   observability.NoopSpanManager{},
	}
	for _, opt := range opts {
		opt(u)
	}
	u.applySettings()
	return u
}

// ID returns the unit identifier.
func (u *UnitOfWork) ID() string {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.id
}

// Bypasses returns the bypass registry of this unit of work.
func (u *UnitOfWork) Bypasses() *bypass.Registry {
	return u.bypass
}

// LoopCounts returns the recursion counters of this unit of work.
func (u *UnitOfWork) LoopCounts() *loopcount.Counters {
	return u.loops
}

// Settings returns the settings the unit of work was created with.
func (u *UnitOfWork) Settings() Settings {
	return u.settings
}

// Reset starts a fresh unit of work in place. Every bypass is dropped and
// every loop count goes back to zero, while max loop counts stay with their
// identities so supervisors created earlier keep their limits. A new ID is
// generated and the initial bypasses from Settings are applied again.
func (u *UnitOfWork) Reset() {
	u.mu.Lock()
	prev := u.id
	u.id = uuid.New().String()
	next := u.id
	u.mu.Unlock()

	u.bypass.ClearAllBypasses()
	u.loops.Reset()
	u.applySettings()
	observability.LogUnitReset(u.logger, prev, next)
}

func (u *UnitOfWork) applySettings() {
	for _, id := range u.settings.Bypass {
		u.bypass.Bypass(id)
	}
	if u.settings.BypassAll {
		u.bypass.SetGlobalBypass()
	}
}

// Bypass suppresses id for the rest of the unit of work.
func (u *UnitOfWork) Bypass(id string) { u.bypass.Bypass(id) }

// ClearBypass lifts the suppression of id.
func (u *UnitOfWork) ClearBypass(id string) { u.bypass.ClearBypass(id) }

// IsBypassed reports whether id is suppressed by name or globally.
func (u *UnitOfWork) IsBypassed(id string) bool { return u.bypass.IsBypassed(id) }

// BypassList returns the suppressed identities, plus "bypassAll" when the
// global flag is set.
func (u *UnitOfWork) BypassList() []string { return u.bypass.BypassList() }

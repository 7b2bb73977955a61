package triggerflow

import (
	"context"
	"log/slog"
	"runtime/debug"

	"github.com/randalmurphal/triggerflow/pkg/triggerflow/observability"
	"go.opentelemetry.io/otel/attribute"
)

// Supervisor runs one handler for one event invocation. It applies the
// unit of work's bypass registry and recursion guard, then dispatches to the
// handler's callback for the active phase.
//
// A Supervisor holds no state of its own between runs; everything that must
// survive re-entrant invocations lives on the UnitOfWork.
type Supervisor struct {
	identity    string
	handler     any
	uow         *UnitOfWork
	diagnostics bool
	logger      *slog.Logger
}

// NewSupervisor creates a supervisor for handler under identity.
//
// handler may implement any subset of the phase capability interfaces
// (BeforeInsertHandler, AfterUpdateHandler, ...). identity must be non-empty
// and unique per handler type within the unit of work; it is the key for
// both bypasses and loop counts.
//
// Misconfiguration fails here rather than at Run: the error is a
// *ConfigError wrapping ErrNilUnitOfWork, ErrEmptyIdentity,
// ErrReservedIdentity or ErrNilHandler.
func NewSupervisor(uow *UnitOfWork, identity string, handler any, opts ...Option) (*Supervisor, error) {
	if uow == nil {
		return nil, &ConfigError{Identity: identity, Field: "unit of work", Err: ErrNilUnitOfWork}
	}
	if err := validateIdentity(identity); err != nil {
		return nil, &ConfigError{Identity: identity, Field: "identity", Err: err}
	}
	if handler == nil {
		return nil, &ConfigError{Identity: identity, Field: "handler", Err: ErrNilHandler}
	}

	var cfg supervisorConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	defaultMax, _ := uow.settings.MaxLoopCount(identity)
	uow.loops.Ensure(identity, defaultMax)
	if cfg.maxLoopCount != nil {
		uow.loops.SetMax(identity, *cfg.maxLoopCount)
	}

	diagnostics := uow.settings.Diagnostics
	if cfg.diagnostics != nil {
		diagnostics = *cfg.diagnostics
	}

	return &Supervisor{
		identity:    identity,
		handler:     handler,
		uow:         uow,
		diagnostics: diagnostics,
		logger:      observability.EnrichLogger(uow.logger, uow.ID(), identity),
	}, nil
}

// Identity returns the handler identity.
func (s *Supervisor) Identity() string {
	return s.identity
}

// SetMaxLoopCount changes the limit for this identity in the unit of work.
// Values <= 0 remove it.
func (s *Supervisor) SetMaxLoopCount(n int) {
	s.uow.loops.SetMax(s.identity, n)
}

// ClearMaxLoopCount removes the limit for this identity.
func (s *Supervisor) ClearMaxLoopCount() {
	s.uow.loops.ClearMax(s.identity)
}

// LoopCount returns how many runs of this identity the recursion guard has
// counted in the unit of work.
func (s *Supervisor) LoopCount() int {
	ctr, _ := s.uow.loops.Get(s.identity)
	return ctr.Count
}

// MaxLoopCount returns the current limit, 0 meaning unlimited.
func (s *Supervisor) MaxLoopCount() int {
	ctr, _ := s.uow.loops.Get(s.identity)
	return ctr.Max
}

// Run handles one event invocation.
//
// Run flow:
//  1. If the handler is bypassed (by name or globally), return nil without
//     calling anything or logging.
//  2. If the event's phase is not a lifecycle phase, return nil.
//  3. Count the run. If the count is above the max loop count, return a
//     *RecursionLimitError without calling the handler.
//  4. Call the handler's callback for the phase, if it implements one.
//  5. With diagnostics on, report the LimitsProvider's counters after the
//     outermost invocation.
//
// Callback failures come back as *HandlerError, callback panics as
// *PanicError. A RecursionLimitError raised by a nested run inside the
// callback stays reachable with errors.As and must be propagated.
//
// ctx carries trace and metric context only; Run never blocks on it.
func (s *Supervisor) Run(ctx context.Context, ev EventContext) error {
	if ctx == nil {
		return ErrNilContext
	}
	if ev == nil {
		return ErrNilEvent
	}

	phase := ev.Phase()
	if s.uow.bypass.IsBypassed(s.identity) {
		s.uow.metrics.RecordSuppressed(ctx, s.identity, phase.String())
		return nil
	}
	if !phase.Valid() {
		return nil
	}

	ctr := s.uow.loops.Increment(s.identity)
	if ctr.Exceeded() {
		observability.LogRecursionExceeded(s.logger, phase.String(), ctr.Count, ctr.Max)
		s.uow.metrics.RecordRecursionExceeded(ctx, s.identity, phase.String(), ctr.Max)
		return &RecursionLimitError{
			Identity: s.identity,
			Phase:    phase,
			Max:      ctr.Max,
			Count:    ctr.Count,
		}
	}

	fn := callback(s.handler, phase)
	if fn == nil {
		return nil
	}

	spanCtx, span := s.uow.spans.StartRunSpan(ctx, s.uow.ID(), s.identity, phase.String(), ev.IsOuter())
	observability.LogDispatchStart(s.logger, phase.String(), ctr.Count)

	elapsed := observability.TimedOperation()
	err := s.invoke(spanCtx, phase, fn)
	duration := elapsed()

	s.uow.metrics.RecordDispatch(spanCtx, s.identity, phase.String(), duration, err)
	if err != nil {
		observability.LogDispatchError(s.logger, phase.String(), err, observability.Milliseconds(duration))
	} else {
		observability.LogDispatchComplete(s.logger, phase.String(), observability.Milliseconds(duration))
	}

	if s.diagnostics && ev.IsOuter() {
		s.reportLimits(spanCtx, phase)
	}

	s.uow.spans.EndSpanWithError(span, err)
	return err
}

// invoke calls fn, converting a returned error into a HandlerError and a
// panic into a PanicError.
func (s *Supervisor) invoke(ctx context.Context, phase Phase, fn func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{
				Identity: s.identity,
				Phase:    phase,
				Value:    r,
				Stack:    string(debug.Stack()),
			}
		}
	}()

	if cbErr := fn(ctx); cbErr != nil {
		return &HandlerError{Identity: s.identity, Phase: phase, Err: cbErr}
	}
	return nil
}

// reportLimits forwards the platform's resource usage counters to the log,
// the metrics recorder and the current span.
func (s *Supervisor) reportLimits(ctx context.Context, phase Phase) {
	if s.uow.limits == nil {
		return
	}
	limits := s.uow.limits.Limits(ctx)
	for _, l := range limits {
		observability.LogLimit(s.logger, phase.String(), l.Name, l.Used, l.Max)
		s.uow.metrics.RecordLimit(ctx, s.identity, l.Name, l.Used, l.Max)
	}
	s.uow.spans.AddSpanEvent(ctx, "triggerflow.limits",
		attribute.String("handler.name", s.identity),
		attribute.Int("limits.count", len(limits)),
	)
}

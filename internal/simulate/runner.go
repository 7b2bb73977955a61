package simulate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/randalmurphal/triggerflow/pkg/triggerflow"
	"github.com/randalmurphal/triggerflow/pkg/triggerflow/config"
	"github.com/randalmurphal/triggerflow/pkg/triggerflow/loopcount"
)

// Outcome is what happened to one step.
type Outcome string

const (
	// Dispatched means the handler's callback ran and returned nil.
	Dispatched Outcome = "dispatched"
	// Suppressed means the handler was bypassed.
	Suppressed Outcome = "suppressed"
	// Skipped means the handler does not implement the phase.
	Skipped Outcome = "skipped"
	// Refused means the recursion guard stopped the run.
	Refused Outcome = "refused"
	// Failed means the callback, or a run nested inside it, returned an error.
	Failed Outcome = "failed"
	// Applied means a bypass registry step took effect.
	Applied Outcome = "applied"
)

// Result is the record of one executed step.
type Result struct {
	// Path numbers the step; nested steps get dotted paths like "2.1".
	Path    string
	Depth   int
	Action  string
	Handler string
	Phase   string
	Outcome Outcome
	Err     error
}

// Report summarizes a simulation.
type Report struct {
	UnitID     string
	Results    []Result
	Bypasses   []string
	LoopCounts []loopcount.Entry
}

// Failed reports whether any top-level step failed or was refused.
func (r Report) Failed() bool {
	for _, res := range r.Results {
		if res.Depth == 0 && res.Err != nil {
			return true
		}
	}
	return false
}

// DefaultMaxDepth is how deeply on_run steps may nest before the runner
// stops descending.
const DefaultMaxDepth = 64

// ErrMaxDepth is recorded on a run step nested deeper than the runner allows.
var ErrMaxDepth = errors.New("simulation nested too deeply")

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger handed to the unit of work.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithFailFast stops the simulation at the first failing top-level step.
func WithFailFast(enabled bool) Option {
	return func(r *Runner) {
		r.failFast = enabled
	}
}

// WithMaxDepth caps how deeply on_run steps may nest. Handlers without a
// max_loop_count that run themselves would otherwise never stop. Values
// <= 0 keep DefaultMaxDepth.
func WithMaxDepth(depth int) Option {
	return func(r *Runner) {
		if depth > 0 {
			r.maxDepth = depth
		}
	}
}

// WithUnitOptions passes extra options to the unit of work.
func WithUnitOptions(opts ...triggerflow.UnitOfWorkOption) Option {
	return func(r *Runner) {
		r.unitOpts = append(r.unitOpts, opts...)
	}
}

// Runner executes a Script in a single unit of work.
type Runner struct {
	script   *Script
	logger   *slog.Logger
	failFast bool
	maxDepth int
	unitOpts []triggerflow.UnitOfWorkOption

	uow         *triggerflow.UnitOfWork
	supervisors map[string]*triggerflow.Supervisor
	specs       map[string]HandlerSpec

	results []Result
	path    []int
}

// New prepares a runner. The script is validated again, and its settings
// are parsed the same way a settings file would be.
func New(script *Script, opts ...Option) (*Runner, error) {
	if script == nil {
		return nil, fmt.Errorf("%w: nil script", ErrInvalidScript)
	}
	if err := script.Validate(); err != nil {
		return nil, err
	}

	r := &Runner{
		script:      script,
		supervisors: make(map[string]*triggerflow.Supervisor, len(script.Handlers)),
		specs:       make(map[string]HandlerSpec, len(script.Handlers)),
		maxDepth:    DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(r)
	}

	settings, err := triggerflow.SettingsFromConfig(config.New(script.Settings))
	if err != nil {
		return nil, err
	}

	unitOpts := append([]triggerflow.UnitOfWorkOption{
		triggerflow.WithLogger(r.logger),
		triggerflow.WithSettings(settings),
	}, r.unitOpts...)
	r.uow = triggerflow.NewUnitOfWork(unitOpts...)

	for _, spec := range script.Handlers {
		var supOpts []triggerflow.Option
		if spec.MaxLoopCount > 0 {
			supOpts = append(supOpts, triggerflow.WithMaxLoopCount(spec.MaxLoopCount))
		}
		sup, err := triggerflow.NewSupervisor(r.uow, spec.Name, r.handlerFor(spec), supOpts...)
		if err != nil {
			return nil, err
		}
		r.supervisors[spec.Name] = sup
		r.specs[spec.Name] = spec
	}
	return r, nil
}

// Unit returns the unit of work the script runs in.
func (r *Runner) Unit() *triggerflow.UnitOfWork {
	return r.uow
}

// Run executes every top-level step in order. Step failures are recorded
// in the report rather than returned; Run only returns ctx's error.
func (r *Runner) Run(ctx context.Context) (Report, error) {
	for i, step := range r.script.Steps {
		if err := ctx.Err(); err != nil {
			return r.report(), err
		}
		r.path = []int{i + 1}
		err := r.runStep(ctx, step)
		if err != nil && r.failFast {
			break
		}
	}
	return r.report(), nil
}

func (r *Runner) report() Report {
	return Report{
		UnitID:     r.uow.ID(),
		Results:    r.results,
		Bypasses:   r.uow.BypassList(),
		LoopCounts: r.uow.LoopCounts().Snapshot(),
	}
}

func (r *Runner) currentPath() string {
	parts := make([]string, len(r.path))
	for i, n := range r.path {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ".")
}

// runStep executes step and records its result. It returns the error of a
// run step so nested failures propagate out of the enclosing callback.
func (r *Runner) runStep(ctx context.Context, step Step) error {
	action, err := step.Action()
	if err != nil {
		return err
	}

	idx := len(r.results)
	depth := len(r.path) - 1
	r.results = append(r.results, Result{
		Path:    r.currentPath(),
		Depth:   depth,
		Action:  action,
		Handler: step.Target(),
	})

	if action == ActionRun && depth > r.maxDepth {
		res := &r.results[idx]
		res.Phase = step.Phase
		res.Outcome = Failed
		res.Err = fmt.Errorf("%w: %s at depth %d (max %d)", ErrMaxDepth, step.Run, depth, r.maxDepth)
		return res.Err
	}

	bypasses := r.uow.Bypasses()
	switch action {
	case ActionBypass:
		bypasses.Bypass(step.Bypass)
	case ActionClearBypass:
		bypasses.ClearBypass(step.ClearBypass)
	case ActionBypassAll:
		bypasses.SetGlobalBypass()
	case ActionClearGlobal:
		bypasses.ClearGlobalBypass()
	case ActionClearAll:
		bypasses.ClearAllBypasses()
	case ActionRun:
		return r.runHandler(ctx, step, idx)
	}
	r.results[idx].Outcome = Applied
	return nil
}

func (r *Runner) runHandler(ctx context.Context, step Step, idx int) error {
	phase, err := triggerflow.ParsePhase(step.Phase)
	if err != nil {
		return err
	}
	r.results[idx].Phase = phase.String()

	ev := triggerflow.NestedEvent(phase)
	if len(r.path) == 1 {
		ev = triggerflow.OuterEvent(phase)
	}

	suppressed := r.uow.IsBypassed(step.Run)
	err = r.supervisors[step.Run].Run(ctx, ev)

	var (
		handlerErr *triggerflow.HandlerError
		limitErr   *triggerflow.RecursionLimitError
	)
	res := &r.results[idx]
	switch {
	case suppressed:
		res.Outcome = Suppressed
	case errors.As(err, &handlerErr):
		res.Outcome = Failed
	case errors.As(err, &limitErr):
		res.Outcome = Refused
	case err != nil:
		res.Outcome = Failed
	case !r.implements(step.Run, phase):
		res.Outcome = Skipped
	default:
		res.Outcome = Dispatched
	}
	res.Err = err
	return err
}

func (r *Runner) implements(name string, phase triggerflow.Phase) bool {
	spec := r.specs[name]
	if len(spec.Phases) == 0 {
		return true
	}
	for _, p := range spec.Phases {
		if got, err := triggerflow.ParsePhase(p); err == nil && got == phase {
			return true
		}
	}
	return false
}

// handlerFor builds a handler implementing the declared phases. Its callback
// runs the on_run steps as nested invocations and then fails if the handler
// says so.
func (r *Runner) handlerFor(spec HandlerSpec) triggerflow.HandlerFuncs {
	h := triggerflow.PhaseFunc(func(ctx context.Context, _ triggerflow.Phase) error {
		parent := r.path
		defer func() { r.path = parent }()

		for i, step := range spec.OnRun {
			r.path = append(append([]int(nil), parent...), i+1)
			if err := r.runStep(ctx, step); err != nil {
				return err
			}
		}
		if spec.Error != "" {
			return errors.New(spec.Error)
		}
		return nil
	})

	if len(spec.Phases) == 0 {
		return h
	}
	keep := make(map[triggerflow.Phase]bool, len(spec.Phases))
	for _, name := range spec.Phases {
		if p, err := triggerflow.ParsePhase(name); err == nil {
			keep[p] = true
		}
	}
	if !keep[triggerflow.BeforeInsert] {
		h.OnBeforeInsert = nil
	}
	if !keep[triggerflow.BeforeUpdate] {
		h.OnBeforeUpdate = nil
	}
	if !keep[triggerflow.BeforeDelete] {
		h.OnBeforeDelete = nil
	}
	if !keep[triggerflow.AfterInsert] {
		h.OnAfterInsert = nil
	}
	if !keep[triggerflow.AfterUpdate] {
		h.OnAfterUpdate = nil
	}
	if !keep[triggerflow.AfterDelete] {
		h.OnAfterDelete = nil
	}
	if !keep[triggerflow.AfterUndelete] {
		h.OnAfterUndelete = nil
	}
	return h
}

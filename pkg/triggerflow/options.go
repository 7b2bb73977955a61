package triggerflow

// supervisorConfig holds per-supervisor configuration.
type supervisorConfig struct {
	maxLoopCount *int
	diagnostics  *bool
}

// Option configures a Supervisor.
type Option func(*supervisorConfig)

// WithMaxLoopCount sets how many times the handler may run within the unit
// of work. Values <= 0 remove the limit.
// Default: the handler's entry in Settings.MaxLoopCounts, otherwise unlimited.
//
// The limit is stored on the identity's shared counter, so it applies to
// every supervisor of that identity in the unit of work.
//
// Example:
//
//	sup, err := triggerflow.NewSupervisor(uow, "AccountHandler", h,
//	    triggerflow.WithMaxLoopCount(2))
func WithMaxLoopCount(n int) Option {
	return func(c *supervisorConfig) {
		c.maxLoopCount = &n
	}
}

// WithDiagnostics turns the post-run resource usage report on or off for
// this supervisor, overriding Settings.Diagnostics. The report needs a
// LimitsProvider on the unit of work and is only produced for outer
// invocations.
func WithDiagnostics(enabled bool) Option {
	return func(c *supervisorConfig) {
		c.diagnostics = &enabled
	}
}

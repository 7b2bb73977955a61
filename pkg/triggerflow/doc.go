/*
Package triggerflow supervises record lifecycle handlers.

# Overview

A platform fires handlers when records are inserted, updated, deleted or
undeleted, once before the change and once after. Handlers often write
records themselves, which fires handlers again within the same unit of
work. triggerflow sits between the platform and each handler and decides
whether the handler should run at all:

  - A bypass registry lets code switch handlers off by name, or switch all
    of them off at once, for the rest of the unit of work.
  - A recursion guard counts how often each handler ran in the unit of work
    and refuses to run it past a configured maximum.

Both are shared by every supervisor in a unit of work and live on a
UnitOfWork value.

# Basic Usage

Implement the phases you care about and run a supervisor per invocation:

	type AccountHandler struct {
	    triggerflow.Base
	}

	func (h *AccountHandler) AfterUpdate(ctx context.Context) error {
	    return syncContacts(ctx)
	}

	uow := triggerflow.NewUnitOfWork(triggerflow.WithLogger(logger))

	sup, err := triggerflow.NewSupervisor(uow, "AccountHandler", &AccountHandler{},
	    triggerflow.WithMaxLoopCount(2))
	if err != nil {
	    return err
	}
	if err := sup.Run(ctx, triggerflow.OuterEvent(triggerflow.AfterUpdate)); err != nil {
	    return err
	}

Phases a handler does not implement are skipped silently.

# Bypassing

	uow.Bypass("ContactHandler")
	defer uow.ClearBypass("ContactHandler")

A bypassed handler's Run returns nil without calling the handler and
without logging. bypass.Registry.Suppress scopes a bypass to one function
and restores the previous state afterwards, even on panic.

# Recursion Guard

Every run of a valid phase increments the identity's loop count, whether or
not the handler implements the phase. When the count passes the maximum,
Run returns a *RecursionLimitError and the handler is not called. That
error means the unit of work has to be aborted; do not swallow it.

	var rle *triggerflow.RecursionLimitError
	if errors.As(err, &rle) {
	    // rle.Identity, rle.Max
	}

# Errors

RecursionLimitError is the only error the guard itself raises. Callback
failures come back as *HandlerError and recovered panics as *PanicError.
Calling Run with a nil context or nil event returns ErrNilContext or
ErrNilEvent; both are programming errors and nothing is counted.

# Settings

Initial bypasses, default limits and diagnostics can be loaded from YAML:

	settings, err := triggerflow.LoadSettings("triggerflow.yaml")
	uow := triggerflow.NewUnitOfWork(triggerflow.WithSettings(settings))

# Observability

Pass WithLogger, WithMetrics and WithTracing to NewUnitOfWork. Each is off
by default. With diagnostics enabled and a LimitsProvider set, the outermost
run of each supervisor reports the platform's resource usage counters.

# Thread Safety

A UnitOfWork is safe for concurrent use, but the bypass and loop counts of
units that run concurrently must not be shared: give each its own
UnitOfWork.
*/
package triggerflow

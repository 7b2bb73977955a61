package triggerflow

import (
	"context"
	"reflect"
)

// Handler capabilities. A concrete handler implements any combination of
// these; phases it does not implement are silently skipped.
//
// The changed records are not passed in. Handlers capture them from the
// platform before calling Supervisor.Run.
type (
	BeforeInsertHandler interface {
		BeforeInsert(ctx context.Context) error
	}
	BeforeUpdateHandler interface {
		BeforeUpdate(ctx context.Context) error
	}
	BeforeDeleteHandler interface {
		BeforeDelete(ctx context.Context) error
	}
	AfterInsertHandler interface {
		AfterInsert(ctx context.Context) error
	}
	AfterUpdateHandler interface {
		AfterUpdate(ctx context.Context) error
	}
	AfterDeleteHandler interface {
		AfterDelete(ctx context.Context) error
	}
	AfterUndeleteHandler interface {
		AfterUndelete(ctx context.Context) error
	}
)

// Handler is the full capability set. Embed Base to get no-op defaults and
// override only the phases you need.
type Handler interface {
	BeforeInsertHandler
	BeforeUpdateHandler
	BeforeDeleteHandler
	AfterInsertHandler
	AfterUpdateHandler
	AfterDeleteHandler
	AfterUndeleteHandler
}

// Base implements every phase as a no-op.
//
//	type AccountHandler struct {
//	    triggerflow.Base
//	    accounts []Account
//	}
//
//	func (h *AccountHandler) AfterUpdate(ctx context.Context) error {
//	    return h.syncContacts(ctx)
//	}
type Base struct{}

// Compile-time interface check.
var _ Handler = Base{}

func (Base) BeforeInsert(context.Context) error  { return nil }
func (Base) BeforeUpdate(context.Context) error  { return nil }
func (Base) BeforeDelete(context.Context) error  { return nil }
func (Base) AfterInsert(context.Context) error   { return nil }
func (Base) AfterUpdate(context.Context) error   { return nil }
func (Base) AfterDelete(context.Context) error   { return nil }
func (Base) AfterUndelete(context.Context) error { return nil }

// HandlerFuncs adapts plain functions to Handler. Nil fields are no-ops.
type HandlerFuncs struct {
	OnBeforeInsert  func(ctx context.Context) error
	OnBeforeUpdate  func(ctx context.Context) error
	OnBeforeDelete  func(ctx context.Context) error
	OnAfterInsert   func(ctx context.Context) error
	OnAfterUpdate   func(ctx context.Context) error
	OnAfterDelete   func(ctx context.Context) error
	OnAfterUndelete func(ctx context.Context) error
}

// Compile-time interface check.
var _ Handler = HandlerFuncs{}

func call(fn func(context.Context) error, ctx context.Context) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

func (f HandlerFuncs) BeforeInsert(ctx context.Context) error  { return call(f.OnBeforeInsert, ctx) }
func (f HandlerFuncs) BeforeUpdate(ctx context.Context) error  { return call(f.OnBeforeUpdate, ctx) }
func (f HandlerFuncs) BeforeDelete(ctx context.Context) error  { return call(f.OnBeforeDelete, ctx) }
func (f HandlerFuncs) AfterInsert(ctx context.Context) error   { return call(f.OnAfterInsert, ctx) }
func (f HandlerFuncs) AfterUpdate(ctx context.Context) error   { return call(f.OnAfterUpdate, ctx) }
func (f HandlerFuncs) AfterDelete(ctx context.Context) error   { return call(f.OnAfterDelete, ctx) }
func (f HandlerFuncs) AfterUndelete(ctx context.Context) error { return call(f.OnAfterUndelete, ctx) }

// PhaseFunc returns a HandlerFuncs that calls fn for every phase.
func PhaseFunc(fn func(ctx context.Context, p Phase) error) HandlerFuncs {
	bind := func(p Phase) func(context.Context) error {
		return func(ctx context.Context) error { return fn(ctx, p) }
	}
	return HandlerFuncs{
		OnBeforeInsert:  bind(BeforeInsert),
		OnBeforeUpdate:  bind(BeforeUpdate),
		OnBeforeDelete:  bind(BeforeDelete),
		OnAfterInsert:   bind(AfterInsert),
		OnAfterUpdate:   bind(AfterUpdate),
		OnAfterDelete:   bind(AfterDelete),
		OnAfterUndelete: bind(AfterUndelete),
	}
}

// callback returns the function handling phase p on h, or nil when h does
// not implement it.
func callback(h any, p Phase) func(context.Context) error {
	switch p {
	case BeforeInsert:
		if c, ok := h.(BeforeInsertHandler); ok {
			return c.BeforeInsert
		}
	case BeforeUpdate:
		if c, ok := h.(BeforeUpdateHandler); ok {
			return c.BeforeUpdate
		}
	case BeforeDelete:
		if c, ok := h.(BeforeDeleteHandler); ok {
			return c.BeforeDelete
		}
	case AfterInsert:
		if c, ok := h.(AfterInsertHandler); ok {
			return c.AfterInsert
		}
	case AfterUpdate:
		if c, ok := h.(AfterUpdateHandler); ok {
			return c.AfterUpdate
		}
	case AfterDelete:
		if c, ok := h.(AfterDeleteHandler); ok {
			return c.AfterDelete
		}
	case AfterUndelete:
		if c, ok := h.(AfterUndeleteHandler); ok {
			return c.AfterUndelete
		}
	}
	return nil
}

// TypeIdentity returns the name of v's concrete type with pointers removed,
// e.g. "AccountHandler" for *app.AccountHandler. It returns "" for nil and
// for unnamed types. Supervisors never derive an identity on their own;
// pass the result of TypeIdentity explicitly if that naming suits you.
func TypeIdentity(v any) string {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return ""
	}
	return t.Name()
}

package triggerflow

import (
	"context"
	"log/slog"
	"sync"
)

// Test handler types used across tests

// recorder is a full Handler that records every callback it receives.
type recorder struct {
	mu    sync.Mutex
	calls []Phase
	err   error
}

func (r *recorder) record(p Phase) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, p)
	return r.err
}

func (r *recorder) Calls() []Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Phase(nil), r.calls...)
}

func (r *recorder) BeforeInsert(context.Context) error  { return r.record(BeforeInsert) }
func (r *recorder) BeforeUpdate(context.Context) error  { return r.record(BeforeUpdate) }
func (r *recorder) BeforeDelete(context.Context) error  { return r.record(BeforeDelete) }
func (r *recorder) AfterInsert(context.Context) error   { return r.record(AfterInsert) }
func (r *recorder) AfterUpdate(context.Context) error   { return r.record(AfterUpdate) }
func (r *recorder) AfterDelete(context.Context) error   { return r.record(AfterDelete) }
func (r *recorder) AfterUndelete(context.Context) error { return r.record(AfterUndelete) }

// afterUpdateOnly implements a single capability.
type afterUpdateOnly struct {
	calls int
}

func (h *afterUpdateOnly) AfterUpdate(context.Context) error {
	h.calls++
	return nil
}

// capturedRecord is one log record flattened to a map.
type capturedRecord struct {
	Level slog.Level
	Msg   string
	Attrs map[string]any
}

// captureHandler collects slog records in memory.
type captureHandler struct {
	mu      *sync.Mutex
	records *[]capturedRecord
	attrs   []slog.Attr
}

func newCaptureHandler() *captureHandler {
	return &captureHandler{mu: &sync.Mutex{}, records: &[]capturedRecord{}}
}

func (h *captureHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *captureHandler) Handle(_ context.Context, r slog.Record) error {
	rec := capturedRecord{Level: r.Level, Msg: r.Message, Attrs: map[string]any{}}
	for _, a := range h.attrs {
		rec.Attrs[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		rec.Attrs[a.Key] = a.Value.Any()
		return true
	})
	h.mu.Lock()
	*h.records = append(*h.records, rec)
	h.mu.Unlock()
	return nil
}

func (h *captureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &captureHandler{
		mu:      h.mu,
		records: h.records,
		attrs:   append(append([]slog.Attr(nil), h.attrs...), attrs...),
	}
}

func (h *captureHandler) WithGroup(string) slog.Handler { return h }

func (h *captureHandler) Records() []capturedRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]capturedRecord(nil), *h.records...)
}

// messages returns the log messages in order.
func (h *captureHandler) messages() []string {
	var out []string
	for _, r := range h.Records() {
		out = append(out, r.Msg)
	}
	return out
}

// newTestUnit creates a unit of work that logs to a capture handler.
func newTestUnit(opts ...UnitOfWorkOption) (*UnitOfWork, *captureHandler) {
	h := newCaptureHandler()
	opts = append([]UnitOfWorkOption{WithLogger(slog.New(h))}, opts...)
	return NewUnitOfWork(opts...), h
}

// mustSupervisor builds a supervisor or panics.
func mustSupervisor(uow *UnitOfWork, id string, handler any, opts ...Option) *Supervisor {
	sup, err := NewSupervisor(uow, id, handler, opts...)
	if err != nil {
		panic(err)
	}
	return sup
}

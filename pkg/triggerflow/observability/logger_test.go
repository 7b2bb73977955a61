package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testHandler captures log records for testing.
type testHandler struct {
	buf   *bytes.Buffer
	level slog.Level
	attrs []slog.Attr
}

func newTestHandler() *testHandler {
	return &testHandler{
		buf:   &bytes.Buffer{},
		level: slog.LevelDebug,
	}
}

func (h *testHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *testHandler) Handle(_ context.Context, r slog.Record) error {
	data := map[string]any{
		"level": r.Level.String(),
		"msg":   r.Message,
	}
	for _, attr := range h.attrs {
		data[attr.Key] = attr.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		data[a.Key] = a.Value.Any()
		return true
	})
	return json.NewEncoder(h.buf).Encode(data)
}

func (h *testHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newH := &testHandler{
		buf:   h.buf,
		level: h.level,
		attrs: make([]slog.Attr, len(h.attrs)+len(attrs)),
	}
	copy(newH.attrs, h.attrs)
	copy(newH.attrs[len(h.attrs):], attrs)
	return newH
}

func (h *testHandler) WithGroup(string) slog.Handler {
	return h
}

func (h *testHandler) getLastRecord() map[string]any {
	lines := bytes.Split(h.buf.Bytes(), []byte("\n"))
	for i := len(lines) - 1; i >= 0; i-- {
		if len(lines[i]) > 0 {
			var m map[string]any
			if err := json.Unmarshal(lines[i], &m); err == nil {
				return m
			}
		}
	}
	return nil
}

func TestEnrichLogger(t *testing.T) {
	t.Run("adds unit_id and handler", func(t *testing.T) {
		h := newTestHandler()
		logger := slog.New(h)

		enriched := EnrichLogger(logger, "uow-123", "AccountHandler")
		enriched.Info("test message")

		record := h.getLastRecord()
		require.NotNil(t, record)
		assert.Equal(t, "uow-123", record["unit_id"])
		assert.Equal(t, "AccountHandler", record["handler"])
		assert.Equal(t, "test message", record["msg"])
	})

	t.Run("nil logger returns nil", func(t *testing.T) {
		assert.Nil(t, EnrichLogger(nil, "uow", "h"))
	})
}

func TestLogDispatchStart(t *testing.T) {
	h := newTestHandler()

	LogDispatchStart(slog.New(h), "before_insert", 2)

	record := h.getLastRecord()
	require.NotNil(t, record)
	assert.Equal(t, "DEBUG", record["level"])
	assert.Equal(t, "handler dispatch starting", record["msg"])
	assert.Equal(t, "before_insert", record["phase"])
	assert.Equal(t, float64(2), record["loop_count"]) // JSON decodes ints as float64
}

func TestLogDispatchComplete(t *testing.T) {
	h := newTestHandler()

	LogDispatchComplete(slog.New(h), "after_update", 12.5)

	record := h.getLastRecord()
	require.NotNil(t, record)
	assert.Equal(t, "DEBUG", record["level"])
	assert.Equal(t, "handler dispatch completed", record["msg"])
	assert.Equal(t, 12.5, record["duration_ms"])
}

func TestLogDispatchError(t *testing.T) {
	h := newTestHandler()

	LogDispatchError(slog.New(h), "after_delete", errors.New("boom"), 3)

	record := h.getLastRecord()
	require.NotNil(t, record)
	assert.Equal(t, "ERROR", record["level"])
	assert.Equal(t, "handler dispatch failed", record["msg"])
	assert.Equal(t, "after_delete", record["phase"])
	assert.Equal(t, "boom", record["error"])
}

func TestLogRecursionExceeded(t *testing.T) {
	h := newTestHandler()

	LogRecursionExceeded(slog.New(h), "after_update", 3, 2)

	record := h.getLastRecord()
	require.NotNil(t, record)
	assert.Equal(t, "ERROR", record["level"])
	assert.Equal(t, "handler recursion limit exceeded", record["msg"])
	assert.Equal(t, float64(3), record["loop_count"])
	assert.Equal(t, float64(2), record["max_loop_count"])
}

func TestLogLimit(t *testing.T) {
	h := newTestHandler()

	LogLimit(slog.New(h), "after_insert", "queries", 12, 100)

	record := h.getLastRecord()
	require.NotNil(t, record)
	assert.Equal(t, "INFO", record["level"])
	assert.Equal(t, "queries", record["limit"])
	assert.Equal(t, float64(12), record["used"])
	assert.Equal(t, float64(100), record["max"])
}

func TestLogUnitReset(t *testing.T) {
	h := newTestHandler()

	LogUnitReset(slog.New(h), "old", "new")

	record := h.getLastRecord()
	require.NotNil(t, record)
	assert.Equal(t, "old", record["previous_unit_id"])
	assert.Equal(t, "new", record["unit_id"])
}

func TestNilLoggerDoesNotPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		LogDispatchStart(nil, "p", 1)
		LogDispatchComplete(nil, "p", 1)
		LogDispatchError(nil, "p", errors.New("err"), 1)
		LogRecursionExceeded(nil, "p", 2, 1)
		LogLimit(nil, "p", "queries", 1, 2)
		LogUnitReset(nil, "a", "b")
	})
}

func TestTimedOperation(t *testing.T) {
	t.Run("measures duration", func(t *testing.T) {
		done := TimedOperation()
		time.Sleep(10 * time.Millisecond)
		elapsed := done()

		assert.GreaterOrEqual(t, elapsed, 10*time.Millisecond)
	})

	t.Run("can be called multiple times", func(t *testing.T) {
		done := TimedOperation()
		d1 := done()
		time.Sleep(2 * time.Millisecond)
		d2 := done()

		assert.Greater(t, d2, d1)
	})
}

func TestMilliseconds(t *testing.T) {
	assert.Equal(t, 1.5, Milliseconds(1500*time.Microsecond))
	assert.Equal(t, 0.0, Milliseconds(0))
}

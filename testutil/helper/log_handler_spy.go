package helper

import (
	"context"
	"log/slog"
	"strings"
	"sync"
)

// LogHandlerSpy is a slog.Handler that captures records for testing.
// Use it as slog.New(spy) wherever a ledger.Logger or ledger.ContextualLogger is accepted.
type LogHandlerSpy struct {
	mu      *sync.Mutex
	records *[]SpyLogRecord
	attrs   []slog.Attr
}

// SpyLogRecord is a captured log record with its attributes flattened to strings.
type SpyLogRecord struct {
	Level   slog.Level
	Message string
	Attrs   map[string]string
}

func NewLogHandlerSpy() *LogHandlerSpy {
	return &LogHandlerSpy{mu: &sync.Mutex{}, records: &[]SpyLogRecord{}}
}

func (h *LogHandlerSpy) Enabled(context.Context, slog.Level) bool {
	return true
}

func (h *LogHandlerSpy) Handle(_ context.Context, record slog.Record) error {
	attrs := make(map[string]string)
	for _, attr := range h.attrs {
		attrs[attr.Key] = attr.Value.String()
	}
	record.Attrs(func(attr slog.Attr) bool {
		attrs[attr.Key] = attr.Value.String()
		return true
	})

	h.mu.Lock()
	defer h.mu.Unlock()

	*h.records = append(*h.records, SpyLogRecord{
		Level:   record.Level,
		Message: record.Message,
		Attrs:   attrs,
	})

	return nil
}

func (h *LogHandlerSpy) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &LogHandlerSpy{mu: h.mu, records: h.records, attrs: append(append([]slog.Attr(nil), h.attrs...), attrs...)}
}

func (h *LogHandlerSpy) WithGroup(string) slog.Handler {
	return h
}

// Records returns a copy of all captured records.
func (h *LogHandlerSpy) Records() []SpyLogRecord {
	h.mu.Lock()
	defer h.mu.Unlock()

	return append([]SpyLogRecord(nil), *h.records...)
}

// HasRecord reports whether a record at level contains msg.
func (h *LogHandlerSpy) HasRecord(level slog.Level, msg string) bool {
	return h.FindRecord(level, msg) != nil
}

// FindRecord returns the first record at level whose message contains msg.
func (h *LogHandlerSpy) FindRecord(level slog.Level, msg string) *SpyLogRecord {
	for _, record := range h.Records() {
		if record.Level == level && strings.Contains(record.Message, msg) {
			return &record
		}
	}

	return nil
}

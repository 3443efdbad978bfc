package logging

import (
	"os"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Secret represents a value that should never appear in logs. Formatting it
// through any of the standard verbs yields a redacted placeholder.
type Secret string

// String implements fmt.Stringer, always returning a redacted value.
func (s Secret) String() string {
	return "[REDACTED]"
}

// GoString implements fmt.GoStringer for %#v formatting.
func (s Secret) GoString() string {
	return "[REDACTED]"
}

// Masker holds the set of sensitive values to scrub from log output.
// Values are matched longest-first so partial overlaps redact cleanly.
type Masker struct {
	mu     sync.RWMutex
	values []string
}

// NewMasker creates an empty masker.
func NewMasker() *Masker {
	return &Masker{}
}

// Add registers values for redaction. Empty and trivial values are ignored.
func (m *Masker) Add(values ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range values {
		if len(v) <= 3 {
			continue
		}
		if !contains(m.values, v) {
			m.values = append(m.values, v)
		}
	}
	sort.Slice(m.values, func(i, j int) bool { return len(m.values[i]) > len(m.values[j]) })
}

// Remove deregisters previously added values.
func (m *Masker) Remove(values ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range values {
		for i, existing := range m.values {
			if existing == v {
				m.values = append(m.values[:i], m.values[i+1:]...)
				break
			}
		}
	}
}

// Redact replaces every registered value in s with a placeholder.
func (m *Masker) Redact(s string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, v := range m.values {
		s = strings.ReplaceAll(s, v, "*****")
	}
	return s
}

func contains(values []string, v string) bool {
	for _, existing := range values {
		if existing == v {
			return true
		}
	}
	return false
}

// maskingCore wraps a zapcore.Core and scrubs registered secret values from
// entry messages and string fields before they reach the underlying core.
type maskingCore struct {
	zapcore.Core
	masker *Masker
}

// NewMaskingCore wraps core with redaction backed by masker.
func NewMaskingCore(core zapcore.Core, masker *Masker) zapcore.Core {
	return &maskingCore{Core: core, masker: masker}
}

func (c *maskingCore) With(fields []zapcore.Field) zapcore.Core {
	return &maskingCore{Core: c.Core.With(c.redactFields(fields)), masker: c.masker}
}

func (c *maskingCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *maskingCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	ent.Message = c.masker.Redact(ent.Message)
	return c.Core.Write(ent, c.redactFields(fields))
}

func (c *maskingCore) redactFields(fields []zapcore.Field) []zapcore.Field {
	out := make([]zapcore.Field, len(fields))
	for i, f := range fields {
		if f.Type == zapcore.StringType {
			f.String = c.masker.Redact(f.String)
		}
		out[i] = f
	}
	return out
}

// New builds the process logger. Output is JSON on stdout so the platform's
// log collector can ingest it directly. The returned masker is shared by
// every component that handles credential material.
func New(level string) (*zap.Logger, *Masker) {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "timestamp"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		zapcore.Lock(os.Stdout),
		parseLevel(level),
	)

	masker := NewMasker()
	return zap.New(NewMaskingCore(core, masker)), masker
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return zapcore.DebugLevel
	case "INFO":
		return zapcore.InfoLevel
	default:
		return zapcore.WarnLevel
	}
}

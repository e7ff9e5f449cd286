package testutil

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/systmms/vaultdoor/internal/logging"
)

// CapturedLogger wraps a real logging.Logger whose output is kept in
// memory, so tests can assert on what was logged. Because it drives the
// production logger rather than a fake, redaction checks cover the code
// path that runs in the server.
//
// Example usage:
//
//	logs := testutil.NewCapturedLogger(t)
//	logs.Info("stored %s", logging.Secret("db-password"))
//	logs.AssertRedacted(t, "db-password")
type CapturedLogger struct {
	*logging.Logger
	buffer *syncBuffer
}

// NewCapturedLogger creates a capture logger with debug output enabled
// and colors disabled, which keeps the buffer free of ANSI escapes.
func NewCapturedLogger(t *testing.T) *CapturedLogger {
	t.Helper()

	buf := &syncBuffer{}
	return &CapturedLogger{
		Logger: logging.NewWithOutput(buf, true, true),
		buffer: buf,
	}
}

// Output returns everything logged so far.
func (l *CapturedLogger) Output() string {
	return l.buffer.String()
}

// Clear discards the captured output, for reuse across test cases.
func (l *CapturedLogger) Clear() {
	l.buffer.Reset()
}

// Lines returns the captured output split into non-empty lines.
func (l *CapturedLogger) Lines() []string {
	lines := strings.Split(l.buffer.String(), "\n")

	result := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			result = append(result, line)
		}
	}
	return result
}

// AssertContains asserts that the log output contains substr.
func (l *CapturedLogger) AssertContains(t *testing.T, substr string) {
	t.Helper()
	assert.Contains(t, l.Output(), substr, "expected log output to contain %q", substr)
}

// AssertNotContains asserts that the log output does not contain substr.
// This is the primary check that secret values stay out of logs.
func (l *CapturedLogger) AssertNotContains(t *testing.T, substr string) {
	t.Helper()
	assert.NotContains(t, l.Output(), substr, "expected log output to not contain %q", substr)
}

// AssertRedacted asserts that a secret never reached the output in the
// clear and that the [REDACTED] marker was emitted in its place.
func (l *CapturedLogger) AssertRedacted(t *testing.T, secretValue string) {
	t.Helper()

	output := l.Output()
	assert.NotContains(t, output, secretValue,
		"secret value %q should be redacted, but appears in logs", secretValue)
	assert.Contains(t, output, "[REDACTED]",
		"expected [REDACTED] marker in logs when a secret is logged")
}

// AssertLogCount asserts how many lines of a given level were logged.
// Levels are identified by their prefix glyph: info "✓", warn "⚠",
// error "✗", debug "[DEBUG]".
func (l *CapturedLogger) AssertLogCount(t *testing.T, level string, count int) {
	t.Helper()

	var marker string
	switch level {
	case "info":
		marker = "✓"
	case "warn":
		marker = "⚠"
	case "error":
		marker = "✗"
	case "debug":
		marker = "[DEBUG]"
	default:
		t.Fatalf("unknown log level: %s", level)
	}

	actual := strings.Count(l.Output(), marker)
	assert.Equal(t, count, actual, "expected %d %s log lines, got %d", count, level, actual)
}

// syncBuffer is a bytes.Buffer safe for writes from handler goroutines
// while the test goroutine reads.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *syncBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.Reset()
}

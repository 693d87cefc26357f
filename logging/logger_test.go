package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	json "github.com/goccy/go-json"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		m := map[string]any{}
		require.NoError(t, json.Unmarshal(line, &m))
		out = append(out, m)
	}
	return out
}

func TestStructuredLogger_ContextAndLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&LoggerConfig{Level: LogLevelInfo, Format: "json", Output: &buf}).
		WithComponent("orchestrator").
		WithRequest("req-1").
		WithContext("product", "Eco Tote Bags")

	l.Debug("hidden")
	l.Info("round started", "round", 1)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "round started", lines[0]["msg"])
	assert.Equal(t, "orchestrator", lines[0]["component"])
	assert.Equal(t, "req-1", lines[0]["request_id"])
	assert.Equal(t, "Eco Tote Bags", lines[0]["product"])
	assert.EqualValues(t, 1, lines[0]["round"])
}

func TestStructuredLogger_DomainHelpers(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&LoggerConfig{Level: LogLevelDebug, Output: &buf})

	LogLLMCall(l, "gpt-4o-mini", time.Second, false, errors.New("timeout"))
	LogStageAttempt(l, "pricing_strategy", 2, 7.5, true, nil)
	LogWorkflow(l, 3, time.Second, true, nil)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 3)
	assert.Equal(t, "LLM call failed", lines[0]["msg"])
	assert.Equal(t, "ERROR", lines[0]["level"])
	assert.Equal(t, "Stage attempt evaluated", lines[1]["msg"])
	assert.Equal(t, true, lines[1]["accepted"])
	assert.Equal(t, "Workflow execution completed", lines[2]["msg"])
}

func TestRedactingHandler(t *testing.T) {
	var buf bytes.Buffer
	h := NewRedactingHandler(slog.NewJSONHandler(&buf, nil), "sk-secret", "")
	logger := slog.New(h).With("auth", "Bearer sk-secret")

	logger.Info("calling with sk-secret", "err", errors.New("bad key sk-secret"), slog.Group("req", "key", "sk-secret"))

	out := buf.String()
	assert.NotContains(t, out, "sk-secret")
	assert.Contains(t, out, Redacted)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LogLevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, LogLevelWarn, ParseLevel("warning"))
	assert.Equal(t, LogLevelError, ParseLevel("error"))
	assert.Equal(t, LogLevelInfo, ParseLevel("nonsense"))
	assert.Equal(t, "WARN", LogLevelWarn.String())
}

func TestStartTimer(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&LoggerConfig{Level: LogLevelDebug, Output: &buf})

	stop := StartTimer(l, "round", "round", 2)
	stop()

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "round", lines[0]["operation"])
	assert.Equal(t, float64(2), lines[0]["round"])
	assert.Contains(t, lines[0], "duration_ms")

	buf.Reset()
	StartTimer(NewLogger(&LoggerConfig{Level: LogLevelInfo, Output: &buf}), "round")()
	assert.Zero(t, buf.Len())
}

func TestDefaultLoggerConfig(t *testing.T) {
	cfg := DefaultLoggerConfig()

	assert.Equal(t, LogLevelInfo, cfg.Level)
	assert.Equal(t, "json", cfg.Format)
	assert.NotNil(t, cfg.Output)
}

func TestOrNoOp(t *testing.T) {
	assert.IsType(t, NoOpLogger{}, OrNoOp(nil))
	l := NewSlogAdapter(slog.Default())
	assert.Same(t, l, OrNoOp(l))
}

func TestForRequestAndComponent(t *testing.T) {
	var buf bytes.Buffer
	l := ForRequest(ForComponent(NewLogger(&LoggerConfig{Level: LogLevelInfo, Output: &buf}), "executor"), "req-9")

	l.Info("hello")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "executor", lines[0]["component"])
	assert.Equal(t, "req-9", lines[0]["request_id"])

	assert.Equal(t, NoOpLogger{}, ForRequest(nil, "x"))
	assert.Equal(t, NoOpLogger{}, ForComponent(NoOpLogger{}, "x"))
}

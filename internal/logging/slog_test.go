package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/Graylog2/go-gelf/gelf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// swapStdout points the default console at a buffer for one test.
func swapStdout(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	orig := osStdout
	osStdout = &buf
	t.Cleanup(func() { osStdout = orig })
	return &buf
}

func TestSetup_FileOnly_NoStdout(t *testing.T) {
	stdout := swapStdout(t)

	var file bytes.Buffer
	m := NewSlogManager()
	m.Setup(Options{File: &file, Level: "info"})
	m.Logger().Info("hello file")

	assert.Contains(t, file.String(), "hello file")
	assert.Empty(t, stdout.String())
}

func TestSetup_NoSinks_WritesToStdout(t *testing.T) {
	stdout := swapStdout(t)

	m := NewSlogManager()
	m.Setup(Options{Level: "info"})
	m.Logger().Info("hello console")

	assert.Contains(t, stdout.String(), "hello console")
}

func TestSetup_ConsoleAndFile(t *testing.T) {
	var console, file bytes.Buffer
	m := NewSlogManager()
	m.Setup(Options{Console: &console, File: &file})
	m.Logger().Info("both")

	assert.Contains(t, console.String(), "both")
	assert.Contains(t, file.String(), "both")
}

func TestSetup_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	m := NewSlogManager()
	m.Setup(Options{File: &buf, Level: "warn"})

	m.Logger().Info("filtered")
	m.Logger().Warn("kept")

	assert.NotContains(t, buf.String(), "filtered")
	assert.Contains(t, buf.String(), "kept")
}

func TestSetup_ReplacesLogger(t *testing.T) {
	var buf1, buf2 bytes.Buffer
	m := NewSlogManager()

	m.Setup(Options{File: &buf1})
	m.Logger().Info("first")
	m.Setup(Options{File: &buf2})
	m.Logger().Info("second")

	assert.Contains(t, buf1.String(), "first")
	assert.NotContains(t, buf1.String(), "second")
	assert.Contains(t, buf2.String(), "second")
}

func TestSetup_ContextProviderAddsAttrs(t *testing.T) {
	var buf bytes.Buffer
	m := NewSlogManager()
	m.Setup(Options{
		File: &buf,
		Context: CombineProviders(
			func(context.Context) []slog.Attr { return []slog.Attr{slog.String("match", "m-1")} },
			PlayerAttrs,
		),
	})

	m.Logger().InfoContext(WithPlayer(context.Background(), 4), "shot fired")

	assert.Contains(t, buf.String(), "match=m-1")
	assert.Contains(t, buf.String(), "tankID=4")
}

func TestSetup_ContextProviderSkipsKeysAlreadySet(t *testing.T) {
	var buf bytes.Buffer
	m := NewSlogManager()
	m.Setup(Options{
		File: &buf,
		Context: func(context.Context) []slog.Attr {
			return []slog.Attr{slog.String("match", "m-1"), slog.Uint64("tick", 9)}
		},
	})

	m.Logger().With("component", "worker").Info("Match started", "match", "m-1", "walls", 0)
	m.Logger().With("tick", 3).Info("Tick")

	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, "match=m-1 walls=0"), out)
	assert.Equal(t, 2, strings.Count(out, "match=m-1"), out)
	assert.Equal(t, 1, strings.Count(out, "tick=9"), out)
	assert.Contains(t, out, "tick=3")
}

func TestSetup_GraylogSink(t *testing.T) {
	sink := &gelfSink{}
	var file bytes.Buffer
	m := NewSlogManager()
	m.Setup(Options{File: &file, Graylog: sink, ServiceName: "arena"})
	m.Logger().Warn("lag spike", "tick", 12)

	msgs := sink.all()
	require.NotEmpty(t, msgs)
	last := msgs[len(msgs)-1]
	assert.Equal(t, "lag spike", last.Short)
	assert.Equal(t, "arena", last.Facility)
	assert.Equal(t, int32(4), last.Level)
	assert.Equal(t, int64(12), last.Extra["tick"])
}

func TestLogger_DefaultBeforeSetup(t *testing.T) {
	m := NewSlogManager()
	assert.Equal(t, slog.Default(), m.Logger())
}

func TestFlush(t *testing.T) {
	m := NewSlogManager()
	assert.NoError(t, m.Flush(context.Background()))

	m.Setup(Options{File: &bytes.Buffer{}, Provider: sdklog.NewLoggerProvider()})
	m.Logger().Info("otel integrated")
	assert.NoError(t, m.Flush(context.Background()))
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"", slog.LevelInfo},
		{"invalid", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.input))
		})
	}
}

func TestMultiHandler_FansOutAndSkipsNil(t *testing.T) {
	var buf1, buf2 bytes.Buffer
	multi := NewMultiHandler(nil, slog.NewTextHandler(&buf1, nil), slog.NewTextHandler(&buf2, nil))
	require.Len(t, multi.handlers, 2)

	slog.New(multi).Info("fanned out")
	assert.Contains(t, buf1.String(), "fanned out")
	assert.Contains(t, buf2.String(), "fanned out")
}

func TestMultiHandler_Enabled(t *testing.T) {
	info := slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelInfo})
	debug := slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelDebug})

	assert.False(t, NewMultiHandler(info).Enabled(context.Background(), slog.LevelDebug))
	assert.True(t, NewMultiHandler(info, debug).Enabled(context.Background(), slog.LevelDebug))
	assert.False(t, NewMultiHandler().Enabled(context.Background(), slog.LevelInfo))
}

func TestMultiHandler_AttrsAndGroups(t *testing.T) {
	var buf bytes.Buffer
	multi := NewMultiHandler(slog.NewTextHandler(&buf, nil))

	slog.New(multi.WithAttrs([]slog.Attr{slog.String("component", "engine")})).Info("a")
	slog.New(multi.WithGroup("grp")).Info("b", "key", "val")

	assert.Contains(t, buf.String(), "component=engine")
	assert.Contains(t, buf.String(), "grp.key=val")
	assert.Same(t, multi, multi.WithGroup(""))
}

type errorHandler struct {
	slog.Handler
}

func (h *errorHandler) Handle(context.Context, slog.Record) error { return errors.New("sink down") }
func (h *errorHandler) Enabled(context.Context, slog.Level) bool  { return true }

func TestMultiHandler_FailingSinkDoesNotBlockOthers(t *testing.T) {
	var buf bytes.Buffer
	multi := NewMultiHandler(&errorHandler{}, slog.NewTextHandler(&buf, nil))

	r := slog.NewRecord(testTime, slog.LevelInfo, "should reach spy", 0)
	err := multi.Handle(context.Background(), r)

	assert.ErrorContains(t, err, "sink down")
	assert.Contains(t, buf.String(), "should reach spy")
}

var _ MessageWriter = (*gelf.Writer)(nil)

package profiler

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProfilerCounters(t *testing.T) {
	p := NewProfiler(WithInterval(time.Hour))

	p.CompileSucceeded(3 * time.Millisecond)
	p.CompileSucceeded(2 * time.Millisecond)
	p.CompileFailed()
	p.CompileDiscarded()
	assert.False(t, p.Tick(time.Millisecond))
	assert.False(t, p.Tick(time.Millisecond))

	assert.Equal(t, Stats{
		Frames:    2,
		Compiles:  2,
		Failures:  1,
		Discarded: 1,
		Compile:   5 * time.Millisecond,
	}, p.Stats())
}

func TestProfilerLogsAtInterval(t *testing.T) {
	var buf bytes.Buffer
	p := NewProfiler(
		WithInterval(time.Nanosecond),
		WithLogger(slog.New(slog.NewTextHandler(&buf, nil))),
	)
	time.Sleep(time.Millisecond)

	assert.True(t, p.Tick(time.Millisecond))
	assert.Contains(t, buf.String(), "[Profiler] render stats")
	assert.Contains(t, buf.String(), "compiles=0")
}

func TestWithIntervalIgnoresNonPositive(t *testing.T) {
	p := NewProfiler(WithInterval(0))
	assert.Equal(t, time.Second, p.updateInterval)
}

package scheduler

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"drive-autoposter/internal/logging"
)

func newTestWatcher(s *memSample, out *bytes.Buffer) (*memWatcher, *bool, *time.Time) {
	cancelled := false
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	m := newMemWatcher(logging.NewWithWriters(out, out), func() { cancelled = true })
	m.sample = func() memSample { return *s }
	m.now = func() time.Time { return now }
	return m, &cancelled, &now
}

func TestMemWatcherQuiet(t *testing.T) {
	var out bytes.Buffer
	s := memSample{heap: 10 << 20, goroutines: 12}
	m, cancelled, _ := newTestWatcher(&s, &out)

	m.check()
	assert.False(t, *cancelled)
	assert.Empty(t, out.String())
}

func TestMemWatcherWarnsOncePerInterval(t *testing.T) {
	var out bytes.Buffer
	s := memSample{heap: memWarnThresholdBytes + 1, goroutines: 12}
	m, cancelled, now := newTestWatcher(&s, &out)

	m.check()
	m.check()
	assert.Equal(t, 1, strings.Count(out.String(), "WARN"))

	*now = now.Add(memWarnEvery + time.Second)
	m.check()
	assert.Equal(t, 2, strings.Count(out.String(), "WARN"))
	assert.False(t, *cancelled)
}

func TestMemWatcherStopsOnGoroutineLeak(t *testing.T) {
	var out bytes.Buffer
	s := memSample{heap: 10 << 20, goroutines: goroutineCritThreshold}
	m, cancelled, _ := newTestWatcher(&s, &out)

	m.check()
	assert.True(t, *cancelled)
	assert.True(t, m.tripped())
	assert.Contains(t, out.String(), "CRITICAL")
}

func TestMemWatcherRunExitsOnCancel(t *testing.T) {
	m := newMemWatcher(logging.Discard(), func() {})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("run did not exit")
	}
}

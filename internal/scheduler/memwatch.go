package scheduler

import (
	"context"
	"runtime"
	"sync/atomic"
	"time"

	"drive-autoposter/internal/logging"
)

const (
	memWarnThresholdBytes  = 600 * 1024 * 1024
	memCritThresholdBytes  = 1200 * 1024 * 1024
	memCheckInterval       = 30 * time.Second
	memWarnEvery           = 10 * time.Minute
	goroutineWarnThreshold = 500
	goroutineCritThreshold = 1000
)

type memSample struct {
	heap, sys  uint64
	goroutines int
}

func readMemSample() memSample {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return memSample{heap: ms.HeapAlloc, sys: ms.Sys, goroutines: runtime.NumGoroutine()}
}

// memWatcher warns above the soft limits and stops the daemon above the
// hard ones.
type memWatcher struct {
	log      *logging.Logger
	stop     context.CancelFunc
	sample   func() memSample
	now      func() time.Time
	lastWarn time.Time
	stopped  atomic.Bool
}

func newMemWatcher(log *logging.Logger, stop context.CancelFunc) *memWatcher {
	return &memWatcher{log: log, stop: stop, sample: readMemSample, now: time.Now}
}

func (m *memWatcher) run(ctx context.Context) {
	ticker := time.NewTicker(memCheckInterval)
	defer ticker.Stop()

	m.log.Infof("memwatch: started (warn=%dMB, crit=%dMB, goroutines warn=%d crit=%d)",
		memWarnThresholdBytes/(1024*1024), memCritThresholdBytes/(1024*1024),
		goroutineWarnThreshold, goroutineCritThreshold)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.check()
		}
	}
}

func (m *memWatcher) check() {
	s := m.sample()
	heapMB, sysMB := s.heap/(1024*1024), s.sys/(1024*1024)

	if s.goroutines >= goroutineCritThreshold || s.heap >= memCritThresholdBytes {
		m.log.Errorf("memwatch: CRITICAL heap=%dMB sys=%dMB goroutines=%d, stopping", heapMB, sysMB, s.goroutines)
		m.stopped.Store(true)
		m.stop()
		return
	}

	warn := s.heap > memWarnThresholdBytes || s.goroutines >= goroutineWarnThreshold
	if warn && m.now().Sub(m.lastWarn) > memWarnEvery {
		m.log.Warnf("memwatch: heap=%dMB sys=%dMB goroutines=%d", heapMB, sysMB, s.goroutines)
		runtime.GC()
		m.lastWarn = m.now()
	}
}

func (m *memWatcher) tripped() bool { return m.stopped.Load() }

package profiler

import (
	"log/slog"
	"runtime"
	"sync"
	"time"
)

// Stats is a copy of the counters kept by a Profiler.
type Stats struct {
	Frames    uint64        // frames rendered since construction
	Compiles  uint64        // successful compiles
	Failures  uint64        // failed parses and compiles
	Discarded uint64        // compiles discarded because the source changed while they ran
	Compile   time.Duration // time spent in successful compiles
}

// Profiler tracks frame rate, compile activity and memory statistics of a render session.
// Outputs stats to the logger at a configurable interval. A Profiler is safe for concurrent use.
type Profiler struct {
	mu     *sync.Mutex
	logger *slog.Logger

	frameCount     int
	renderTime     time.Duration
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64

	stats Stats
}

// NewProfiler creates a new Profiler. The update interval defaults to 1 second and the logger
// to slog.Default().
//
// Parameters:
//   - options: functional options for the profiler
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerBuilderOption) *Profiler {
	p := &Profiler{
		mu:             &sync.Mutex{},
		logger:         slog.Default(),
		lastTime:       time.Now(),
		updateInterval: time.Second,
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

// CompileSucceeded records a successful compile.
//
// Parameters:
//   - d: the time the compile took
func (p *Profiler) CompileSucceeded(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stats.Compiles++
	p.stats.Compile += d
}

// CompileFailed records a failed parse or compile.
func (p *Profiler) CompileFailed() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stats.Failures++
}

// CompileDiscarded records a compile whose result was superseded by a newer source.
func (p *Profiler) CompileDiscarded() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stats.Discarded++
}

// Stats returns a copy of the counters.
func (p *Profiler) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// Tick should be called once per rendered frame.
// Logs performance statistics when the update interval has elapsed.
// Statistics include: FPS, mean frame time, compile counters, heap usage, allocation rate and GC pauses.
//
// Parameters:
//   - renderTime: the time the frame took to render
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick(renderTime time.Duration) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stats.Frames++
	p.frameCount++
	p.renderTime += renderTime
	currentTime := time.Now()
	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return false
	}

	fps := float64(p.frameCount) / elapsed.Seconds()
	frameMs := float64(p.renderTime.Microseconds()) / 1000 / float64(p.frameCount)

	runtime.ReadMemStats(&p.memStats)
	allocMB := float64(p.memStats.Alloc) / 1024 / 1024
	allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc
	allocRateMB := float64(allocDelta) / 1024 / 1024 / elapsed.Seconds()

	gcCount := p.memStats.NumGC
	var maxPauseUs uint64
	// PauseNs is a circular buffer of the last 256 GC pauses
	startIdx := p.lastGCCount
	if gcCount-startIdx > 256 {
		startIdx = gcCount - 256
	}
	for i := startIdx; i < gcCount; i++ {
		if pause := p.memStats.PauseNs[i%256] / 1000; pause > maxPauseUs {
			maxPauseUs = pause
		}
	}

	p.logger.Info("[Profiler] render stats",
		"fps", fps,
		"frame_ms", frameMs,
		"compiles", p.stats.Compiles,
		"failures", p.stats.Failures,
		"discarded", p.stats.Discarded,
		"heap_mb", allocMB,
		"alloc_mb_s", allocRateMB,
		"gc", gcCount,
		"gc_max_pause_us", maxPauseUs,
	)

	p.frameCount = 0
	p.renderTime = 0
	p.lastTime = currentTime
	p.lastGCCount = gcCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return true
}

// Package metrics provides per-session metrics collection. The
// Collector accumulates counters while a debug session runs. It is a
// leaf package with no internal dependencies.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of all session counters.
// Returned by Collector.Snapshot(). Safe to read concurrently after creation.
type Snapshot struct {
	// Protocol traffic
	LinesRead    int64
	ParseErrors  int64
	AsyncApplied int64

	// Command correlation
	CommandsSent   int64
	ResultsMatched int64
	ResultsDropped int64

	// Execution control
	Interrupts    int64
	StopRefreshes int64

	// Memory
	MemoryReads     int64
	MemoryReadBytes int64

	// Dimensions (informational, set at construction)
	Target string
	Remote string
}

// Collector accumulates metrics during a single session.
// Thread-safe via sync.Mutex. All increment methods are nil-receiver safe.
type Collector struct {
	mu sync.Mutex

	linesRead    int64
	parseErrors  int64
	asyncApplied int64

	commandsSent   int64
	resultsMatched int64
	resultsDropped int64

	interrupts    int64
	stopRefreshes int64

	memoryReads     int64
	memoryReadBytes int64

	target string
	remote string
}

// NewCollector creates a Collector with dimension labels. target is
// the inferior binary (may be empty when attaching), remote the
// debugger endpoint for remote sessions.
func NewCollector(target, remote string) *Collector {
	return &Collector{target: target, remote: remote}
}

// IncLinesRead records one inbound protocol line.
func (c *Collector) IncLinesRead() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.linesRead++
	c.mu.Unlock()
}

// IncParseErrors records a line the protocol parser rejected.
func (c *Collector) IncParseErrors() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.parseErrors++
	c.mu.Unlock()
}

// IncAsyncApplied records an async record applied to session state.
func (c *Collector) IncAsyncApplied() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.asyncApplied++
	c.mu.Unlock()
}

// IncCommandsSent records a tokened command written to the debugger.
func (c *Collector) IncCommandsSent() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.commandsSent++
	c.mu.Unlock()
}

// IncResultsMatched records a result record matched to its command.
func (c *Collector) IncResultsMatched() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.resultsMatched++
	c.mu.Unlock()
}

// IncResultsDropped records a result record whose token matched
// nothing outstanding.
func (c *Collector) IncResultsDropped() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.resultsDropped++
	c.mu.Unlock()
}

// IncInterrupts records a stop request delivered to the target.
func (c *Collector) IncInterrupts() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.interrupts++
	c.mu.Unlock()
}

// IncStopRefreshes records one full state refresh after a stop.
func (c *Collector) IncStopRefreshes() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.stopRefreshes++
	c.mu.Unlock()
}

// AddMemoryRead records a completed target memory read of n bytes.
func (c *Collector) AddMemoryRead(n int) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.memoryReads++
	c.memoryReadBytes += int64(n)
	c.mu.Unlock()
}

// Snapshot returns an immutable point-in-time view of all metrics.
// The returned Snapshot is safe to read concurrently; the Collector
// can continue to be mutated independently.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	return Snapshot{
		LinesRead:    c.linesRead,
		ParseErrors:  c.parseErrors,
		AsyncApplied: c.asyncApplied,

		CommandsSent:   c.commandsSent,
		ResultsMatched: c.resultsMatched,
		ResultsDropped: c.resultsDropped,

		Interrupts:    c.interrupts,
		StopRefreshes: c.stopRefreshes,

		MemoryReads:     c.memoryReads,
		MemoryReadBytes: c.memoryReadBytes,

		Target: c.target,
		Remote: c.remote,
	}
}

package handler

import (
	"go.uber.org/atomic"

	"github.com/philipp01105/nlogsink/core"
)

// OverflowPolicy defines how to handle full async queues
type OverflowPolicy int

const (
	// DropNewest drops the newest log entry when queue is full
	DropNewest OverflowPolicy = iota
	// DropOldest drops the oldest log entry when queue is full
	DropOldest
	// Block blocks the caller until space is available, dropping the entry
	// when the timeout expires
	Block
)

// String returns the string representation of the policy
func (p OverflowPolicy) String() string {
	switch p {
	case DropNewest:
		return "DropNewest"
	case DropOldest:
		return "DropOldest"
	case Block:
		return "Block"
	default:
		return "Unknown"
	}
}

// ParseOverflowPolicy converts a policy name back into an OverflowPolicy.
func ParseOverflowPolicy(s string) (OverflowPolicy, bool) {
	switch s {
	case "DropNewest", "drop_newest":
		return DropNewest, true
	case "DropOldest", "drop_oldest":
		return DropOldest, true
	case "Block", "block":
		return Block, true
	default:
		return DropNewest, false
	}
}

// DefaultLevelPolicy returns the default level-based overflow policies
func DefaultLevelPolicy() map[core.Level]OverflowPolicy {
	return map[core.Level]OverflowPolicy{
		core.DebugLevel: DropNewest, // Drop debug logs when full
		core.InfoLevel:  DropNewest, // Drop info logs when full
		core.WarnLevel:  DropNewest, // Drop warn logs when full
		core.ErrorLevel: Block,      // Block for errors (with timeout)
		core.FatalLevel: Block,
		core.PanicLevel: Block,
	}
}

// PolicyFor returns the policy for level, DropNewest when none is set.
func PolicyFor(policies map[core.Level]OverflowPolicy, level core.Level) OverflowPolicy {
	if p, ok := policies[level]; ok {
		return p
	}
	return DropNewest
}

// Stats tracks handler statistics
type Stats struct {
	dropped   [core.PanicLevel + 1]atomic.Uint64
	blocked   atomic.Uint64
	processed atomic.Uint64
	failed    atomic.Uint64
}

// NewStats creates a new Stats instance
func NewStats() *Stats {
	return &Stats{}
}

// IncrementDropped increments the dropped counter for a level
func (s *Stats) IncrementDropped(level core.Level) {
	if level < core.DebugLevel || level > core.PanicLevel {
		return
	}
	s.dropped[level].Inc()
}

// IncrementBlocked increments the blocked counter
func (s *Stats) IncrementBlocked() {
	s.blocked.Inc()
}

// IncrementProcessed increments the processed counter
func (s *Stats) IncrementProcessed() {
	s.processed.Inc()
}

// IncrementFailed counts an entry that could not be written
func (s *Stats) IncrementFailed() {
	s.failed.Inc()
}

// GetDropped returns the dropped count for a level
func (s *Stats) GetDropped(level core.Level) uint64 {
	if level < core.DebugLevel || level > core.PanicLevel {
		return 0
	}
	return s.dropped[level].Load()
}

// GetBlocked returns the blocked count
func (s *Stats) GetBlocked() uint64 {
	return s.blocked.Load()
}

// GetProcessed returns the processed count
func (s *Stats) GetProcessed() uint64 {
	return s.processed.Load()
}

// GetFailed returns the failed count
func (s *Stats) GetFailed() uint64 {
	return s.failed.Load()
}

// GetTotalDropped returns the total dropped across all levels
func (s *Stats) GetTotalDropped() uint64 {
	var total uint64
	for i := range s.dropped {
		total += s.dropped[i].Load()
	}
	return total
}

// Reset resets all counters to zero
func (s *Stats) Reset() {
	for i := range s.dropped {
		s.dropped[i].Store(0)
	}
	s.blocked.Store(0)
	s.processed.Store(0)
	s.failed.Store(0)
}

// Snapshot returns a snapshot of current stats
type Snapshot struct {
	DroppedTotal   map[core.Level]uint64
	BlockedTotal   uint64
	ProcessedTotal uint64
	FailedTotal    uint64
}

// GetSnapshot returns a snapshot of current statistics
func (s *Stats) GetSnapshot() Snapshot {
	dropped := make(map[core.Level]uint64, len(s.dropped))
	for i := range s.dropped {
		dropped[core.Level(i)] = s.dropped[i].Load()
	}
	return Snapshot{
		DroppedTotal:   dropped,
		BlockedTotal:   s.GetBlocked(),
		ProcessedTotal: s.GetProcessed(),
		FailedTotal:    s.GetFailed(),
	}
}

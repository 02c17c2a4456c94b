package handler

import (
	"sync"
	"time"

	"github.com/philipp01105/nlogsink/core"
)

// EntryWriter is the synchronous side of an async handler. WriteEntry and
// FlushEntries may be called from the queue's writer goroutine and, after
// Close, from callers writing directly, so implementations serialize them
// internally.
type EntryWriter interface {
	WriteEntry(entry *core.Entry) error
	FlushEntries() error
}

// QueueConfig configures a Queue.
type QueueConfig struct {
	// Size is the queue capacity (default: 1000)
	Size int
	// OverflowPolicy defines per-level overflow behavior (default: DefaultLevelPolicy)
	OverflowPolicy map[core.Level]OverflowPolicy
	// BlockTimeout bounds how long a Block policy waits (default: 100ms)
	BlockTimeout time.Duration
	// DrainTimeout bounds how long Close drains the queue (default: 5s)
	DrainTimeout time.Duration
	// OnError receives errors from the writer goroutine.
	OnError func(err error)
}

func (c *QueueConfig) applyDefaults() {
	if c.Size <= 0 {
		c.Size = 1000
	}
	if c.OverflowPolicy == nil {
		c.OverflowPolicy = DefaultLevelPolicy()
	}
	if c.BlockTimeout == 0 {
		c.BlockTimeout = 100 * time.Millisecond
	}
	if c.DrainTimeout == 0 {
		c.DrainTimeout = 5 * time.Second
	}
	if c.OnError == nil {
		c.OnError = func(error) {}
	}
}

// Queue is a bounded entry queue drained by a single writer goroutine.
// After every drained batch the writer flushes, so entries reach the sink
// without waiting for Close.
type Queue struct {
	cfg    QueueConfig
	w      EntryWriter
	stats  *Stats
	queue  chan *core.Entry
	closed chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
	// mu is held shared by Enqueue and exclusively while closing, so no
	// entry enters the queue after the writer goroutine starts draining.
	mu sync.RWMutex
}

// NewQueue starts the writer goroutine for w.
func NewQueue(w EntryWriter, stats *Stats, cfg QueueConfig) *Queue {
	cfg.applyDefaults()
	q := &Queue{
		cfg:    cfg,
		w:      w,
		stats:  stats,
		queue:  make(chan *core.Entry, cfg.Size),
		closed: make(chan struct{}),
	}
	q.wg.Add(1)
	go q.process()
	return q
}

// Enqueue copies entry into the queue, applying the overflow policy for
// its level when the queue is full. A Block entry that is still waiting
// when BlockTimeout fires is dropped and counted as blocked. Entries
// handed over after Close are written directly once the writer goroutine
// has drained the queue.
func (q *Queue) Enqueue(entry *core.Entry) error {
	q.mu.RLock()
	select {
	case <-q.closed:
		q.mu.RUnlock()
		return q.writeAfterClose(entry)
	default:
	}
	defer q.mu.RUnlock()

	queued := entry.Clone()
	switch PolicyFor(q.cfg.OverflowPolicy, entry.Level) {
	case Block:
		select {
		case q.queue <- queued:
			return nil
		default:
		}
		timer := time.NewTimer(q.cfg.BlockTimeout)
		defer timer.Stop()
		select {
		case q.queue <- queued:
		case <-timer.C:
			q.stats.IncrementBlocked()
			q.stats.IncrementDropped(entry.Level)
		}
		return nil

	case DropOldest:
		select {
		case q.queue <- queued:
			return nil
		default:
		}
		select {
		case old := <-q.queue:
			q.stats.IncrementDropped(old.Level)
		default:
		}
		select {
		case q.queue <- queued:
		default:
			q.stats.IncrementDropped(entry.Level)
		}
		return nil

	default:
		select {
		case q.queue <- queued:
		default:
			q.stats.IncrementDropped(entry.Level)
		}
		return nil
	}
}

// writeAfterClose waits for the writer goroutine to finish so a direct
// write never overtakes a queued entry.
func (q *Queue) writeAfterClose(entry *core.Entry) error {
	q.wg.Wait()
	return q.w.WriteEntry(entry)
}

func (q *Queue) write(entry *core.Entry) {
	if err := q.w.WriteEntry(entry); err != nil {
		q.cfg.OnError(err)
	}
}

func (q *Queue) flush() {
	if err := q.w.FlushEntries(); err != nil {
		q.cfg.OnError(err)
	}
}

func (q *Queue) process() {
	defer q.wg.Done()

	for {
		select {
		case entry := <-q.queue:
			q.write(entry)
			// Batch drain: process additional queued entries without blocking
		batchDrain:
			for {
				select {
				case entry := <-q.queue:
					q.write(entry)
				default:
					break batchDrain
				}
			}
			q.flush()
		case <-q.closed:
			deadline := time.NewTimer(q.cfg.DrainTimeout)
			defer deadline.Stop()
		drainLoop:
			for {
				select {
				case entry := <-q.queue:
					q.write(entry)
				case <-deadline.C:
					q.discard()
					break drainLoop
				default:
					break drainLoop
				}
			}
			q.flush()
			return
		}
	}
}

// discard drops everything still queued.
func (q *Queue) discard() {
	for {
		select {
		case entry := <-q.queue:
			q.stats.IncrementDropped(entry.Level)
		default:
			return
		}
	}
}

// Len returns the number of queued entries.
func (q *Queue) Len() int {
	return len(q.queue)
}

// Close stops accepting queued entries, drains the queue within the drain
// timeout and waits for the writer goroutine. Entries handed to Enqueue
// after Close are written synchronously.
func (q *Queue) Close() {
	q.once.Do(func() {
		q.mu.Lock()
		close(q.closed)
		q.mu.Unlock()
	})
	q.wg.Wait()
}

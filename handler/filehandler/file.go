package filehandler

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cockroachdb/errors"
	"github.com/spf13/afero"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/philipp01105/nlogsink/core"
	"github.com/philipp01105/nlogsink/formatter"
	"github.com/philipp01105/nlogsink/handler"
	"github.com/philipp01105/nlogsink/serializer"
	"github.com/philipp01105/nlogsink/serializer/formats"
	"github.com/philipp01105/nlogsink/serializer/lifecycle"
)

// backupTimeFormat is the suffix appended to files moved aside.
const backupTimeFormat = "2006-01-02T15-04-05"

// sizeTrackingWriter wraps an io.Writer and tracks total bytes written
type sizeTrackingWriter struct {
	w       io.Writer
	written int64
}

func (s *sizeTrackingWriter) Write(p []byte) (n int, err error) {
	n, err = s.w.Write(p)
	s.written += int64(n)
	return
}

// FileConfig holds configuration for file handler
type FileConfig struct {
	// Filename is the path to the log file
	Filename string
	// Format is the serializer format name (default: "text")
	Format string
	// Registry resolves Format (default: formats.Default())
	Registry *serializer.Registry
	// Layout renders entries for the serializer (default: TextFormatter)
	Layout formatter.Formatter
	// Fs is the filesystem holding the file (default: the OS filesystem)
	Fs afero.Fs
	// Async enables asynchronous logging
	Async bool
	// BufferSize is the size of the async queue (default: 1000)
	BufferSize int
	// MaxSize is the size in bytes written to the file before it is
	// rolled (0 = no size rotation)
	MaxSize int64
	// RotateInterval is the interval for time-based rotation (0 = no interval rotation)
	RotateInterval time.Duration
	// MaxBackups is the maximum number of old log files to retain (0 = keep all)
	MaxBackups int
	// FlushEvery flushes and syncs the file after this many entries
	// (0 = only on Flush, after each async batch, and on Close)
	FlushEvery int
	// OverflowPolicy defines per-level overflow behavior (default: uses DefaultLevelPolicy)
	OverflowPolicy map[core.Level]handler.OverflowPolicy
	// BlockTimeout is the timeout for blocking overflow policy (default: 100ms)
	BlockTimeout time.Duration
	// DrainTimeout is the timeout for draining queue on Close (default: 5s)
	DrainTimeout time.Duration
	// RetryMaxElapsed bounds the backoff used to open the file again after
	// a failure (default: 2s, negative = a single attempt). The backoff runs
	// under the handler lock and stalls other callers; once it has given
	// up, opens within the next RetryMaxElapsed make a single attempt.
	RetryMaxElapsed time.Duration
	// Logger receives driver diagnostics (default: no-op)
	Logger *zap.Logger
	// Metrics receives driver counters (default: unregistered metrics)
	Metrics *Metrics
}

// applyFileDefaults fills in zero-value fields with defaults.
func applyFileDefaults(cfg *FileConfig) {
	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Registry == nil {
		cfg.Registry = formats.Default()
	}
	if cfg.Layout == nil {
		cfg.Layout = formatter.NewTextFormatter(formatter.Config{})
	}
	if cfg.Fs == nil {
		cfg.Fs = afero.NewOsFs()
	}
	if cfg.RetryMaxElapsed == 0 {
		cfg.RetryMaxElapsed = 2 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = NewMetrics(nil)
	}
}

// fileBase drives one serializer session per physical file. All methods
// that touch the file hold mu, so there is a single writer at a time.
type fileBase struct {
	filename string
	fs       afero.Fs
	builder  serializer.Builder
	layout   formatter.Formatter
	log      *zap.Logger
	metrics  *Metrics
	stats    *handler.Stats

	maxSize         int64
	rotateInterval  time.Duration
	maxBackups      int
	flushEvery      int
	retryMaxElapsed time.Duration
	now             func() time.Time

	mu         sync.Mutex
	file       afero.File
	sizeWriter *sizeTrackingWriter
	session    *lifecycle.Session
	openedAt   time.Time
	gaveUpAt   time.Time
	sinceFlush int
	closed     bool
}

// initFileBase initializes a fileBase in place with the given config.
func initFileBase(b *fileBase, cfg FileConfig, builder serializer.Builder) {
	b.filename = cfg.Filename
	b.fs = cfg.Fs
	b.builder = builder
	b.layout = cfg.Layout
	b.log = cfg.Logger.With(zap.String("file", cfg.Filename), zap.String("format", cfg.Format))
	b.metrics = cfg.Metrics
	b.stats = handler.NewStats()
	b.maxSize = cfg.MaxSize
	b.rotateInterval = cfg.RotateInterval
	b.maxBackups = cfg.MaxBackups
	b.flushEvery = cfg.FlushEvery
	b.retryMaxElapsed = cfg.RetryMaxElapsed
	b.now = time.Now
}

// Open opens the file now instead of on the first entry.
func (b *fileBase) Open() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return handler.ErrClosed
	}
	return b.ensureOpen()
}

// WriteEntry writes entry to the file, opening or rolling it first when
// needed.
func (b *fileBase) WriteEntry(entry *core.Entry) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return handler.ErrClosed
	}
	if err := b.ensureOpen(); err != nil {
		b.stats.IncrementFailed()
		return err
	}
	if err := b.rotateIfNeeded(); err != nil {
		b.stats.IncrementFailed()
		return err
	}
	if err := b.session.Write(entry, b.layout); err != nil {
		b.stats.IncrementFailed()
		return b.fail(err, lifecycle.HookWrite.String())
	}
	b.stats.IncrementProcessed()
	b.metrics.EventsWritten.Inc()

	b.sinceFlush++
	if b.flushEvery > 0 && b.sinceFlush >= b.flushEvery {
		return b.flushLocked()
	}
	return nil
}

// FlushEntries flushes the serializer and syncs the file.
func (b *fileBase) FlushEntries() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.session == nil {
		return nil
	}
	return b.flushLocked()
}

func (b *fileBase) flushLocked() error {
	b.sinceFlush = 0
	if err := b.session.Flush(); err != nil {
		return b.fail(err, lifecycle.HookFlush.String())
	}
	if err := b.file.Sync(); err != nil {
		err = serializer.WrapSinkErr(err, "sync")
		b.session.Abandon(err)
		return b.fail(err, "Sync")
	}
	return nil
}

// ensureOpen opens the file if no session is active, retrying with
// exponential backoff.
func (b *fileBase) ensureOpen() error {
	if b.session != nil {
		return nil
	}

	var policy backoff.BackOff = &backoff.StopBackOff{}
	if b.retryMaxElapsed > 0 && !b.recentlyGaveUp() {
		eb := backoff.NewExponentialBackOff()
		eb.InitialInterval = 10 * time.Millisecond
		eb.MaxInterval = b.retryMaxElapsed / 4
		eb.MaxElapsedTime = b.retryMaxElapsed
		policy = eb
	}

	err := backoff.RetryNotify(func() error {
		err := b.open()
		if errors.Is(err, serializer.ErrIllegalTransition) {
			return backoff.Permanent(err)
		}
		return err
	}, policy, func(err error, next time.Duration) {
		b.log.Warn("open failed, will retry", zap.Error(err), zap.Duration("backoff", next))
	})
	if err != nil {
		b.gaveUpAt = b.now()
		return err
	}
	b.gaveUpAt = time.Time{}
	return nil
}

func (b *fileBase) recentlyGaveUp() bool {
	return !b.gaveUpAt.IsZero() && b.now().Sub(b.gaveUpAt) < b.retryMaxElapsed
}

// open binds a new session to the file. An existing non-empty file is
// reopened when the format supports it; otherwise it is moved aside
// untouched and a fresh file is created.
func (b *fileBase) open() error {
	if dir := filepath.Dir(b.filename); dir != "." {
		if err := b.fs.MkdirAll(dir, 0755); err != nil {
			return serializer.WrapSinkErr(err, "create directory")
		}
	}

	info, err := b.fs.Stat(b.filename)
	if err != nil && !os.IsNotExist(err) {
		return serializer.WrapSinkErr(err, "stat")
	}
	if err == nil && info.Size() > 0 {
		file, err := b.fs.OpenFile(b.filename, os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return serializer.WrapSinkErr(err, "open for append")
		}
		sw := &sizeTrackingWriter{w: file, written: info.Size()}
		session := lifecycle.NewSession(b.builder.Build(sw))
		if session.SupportsReopen() {
			b.attach(file, sw, session)
			if err := session.Reopen(); err != nil {
				return b.fail(err, lifecycle.HookAfterReopen.String())
			}
			b.metrics.Opens.WithLabelValues(OpenModeReopen).Inc()
			b.log.Debug("reopened file", zap.Int64("size", info.Size()))
			return nil
		}

		// Finalized by its format: leave the bytes alone and start over.
		if err := file.Close(); err != nil {
			return serializer.WrapSinkErr(err, "close finalized file")
		}
		backup, err := b.moveAside()
		if err != nil {
			return err
		}
		b.log.Info("moved finalized file aside", zap.String("backup", backup))
	}
	return b.create()
}

// create truncates or creates the file and runs AfterCreate.
func (b *fileBase) create() error {
	file, err := b.fs.OpenFile(b.filename, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return serializer.WrapSinkErr(err, "create")
	}
	sw := &sizeTrackingWriter{w: file}
	session := lifecycle.NewSession(b.builder.Build(sw))
	b.attach(file, sw, session)
	if err := session.Create(); err != nil {
		return b.fail(err, lifecycle.HookAfterCreate.String())
	}
	b.metrics.Opens.WithLabelValues(OpenModeCreate).Inc()
	b.log.Debug("created file")
	return nil
}

func (b *fileBase) attach(file afero.File, sw *sizeTrackingWriter, session *lifecycle.Session) {
	b.file = file
	b.sizeWriter = sw
	b.session = session
	b.openedAt = b.now()
	b.sinceFlush = 0
}

// fail discards the current session and file handle after err. The next
// write opens the file again.
func (b *fileBase) fail(err error, hook string) error {
	b.metrics.HookFailures.WithLabelValues(hook).Inc()
	b.log.Error("serializer failed, discarding file handle", zap.String("hook", hook), zap.Error(err))
	if b.file != nil {
		if closeErr := b.file.Close(); closeErr != nil {
			b.log.Warn("closing failed file", zap.Error(closeErr))
		}
	}
	b.file = nil
	b.sizeWriter = nil
	b.session = nil
	return err
}

// rotateIfNeeded checks and performs rotation if needed
func (b *fileBase) rotateIfNeeded() error {
	needRotate := false

	// Check size-based rotation
	if b.maxSize > 0 && b.sizeWriter.written >= b.maxSize {
		needRotate = true
	}

	// Check interval-based rotation
	if b.rotateInterval > 0 && b.now().Sub(b.openedAt) >= b.rotateInterval {
		needRotate = true
	}

	if !needRotate {
		return nil
	}

	return b.rotate()
}

// rotate finishes the current file, moves it aside and creates the next.
func (b *fileBase) rotate() error {
	if err := b.closeFile(); err != nil {
		return err
	}
	backup, err := b.moveAside()
	if err != nil {
		return err
	}
	b.metrics.Rolls.Inc()
	b.log.Info("rolled file", zap.String("backup", backup))

	// Clean up old backups if needed
	if b.maxBackups > 0 {
		b.cleanupOldBackups()
	}
	return b.create()
}

// moveAside renames the file with a timestamp suffix that no other
// backup uses.
func (b *fileBase) moveAside() (string, error) {
	stamp := b.now().Format(backupTimeFormat)
	backup := fmt.Sprintf("%s.%s", b.filename, stamp)
	for i := 1; ; i++ {
		if _, err := b.fs.Stat(backup); err != nil {
			if os.IsNotExist(err) {
				break
			}
			return "", serializer.WrapSinkErr(err, "stat backup")
		}
		backup = fmt.Sprintf("%s.%s.%d", b.filename, stamp, i)
	}
	if err := b.fs.Rename(b.filename, backup); err != nil {
		return "", serializer.WrapSinkErr(err, "rename")
	}
	return backup, nil
}

// cleanupOldBackups removes old backup files based on MaxBackups
func (b *fileBase) cleanupOldBackups() {
	base := filepath.Base(b.filename)
	matches, err := afero.Glob(b.fs, b.filename+".*")
	if err != nil {
		b.log.Warn("listing backups", zap.Error(err))
		return
	}

	type backup struct {
		name    string
		modTime time.Time
	}
	var backups []backup
	for _, match := range matches {
		if !strings.HasPrefix(filepath.Base(match), base+".") {
			continue
		}
		info, err := b.fs.Stat(match)
		if err != nil {
			continue
		}
		backups = append(backups, backup{name: match, modTime: info.ModTime()})
	}

	// Oldest first; names carry the timestamp and break ties.
	sort.Slice(backups, func(i, j int) bool {
		if !backups[i].modTime.Equal(backups[j].modTime) {
			return backups[i].modTime.Before(backups[j].modTime)
		}
		return backups[i].name < backups[j].name
	})

	if len(backups) > b.maxBackups {
		for _, old := range backups[:len(backups)-b.maxBackups] {
			if err := b.fs.Remove(old.name); err != nil {
				b.log.Warn("removing backup", zap.String("backup", old.name), zap.Error(err))
				return
			}
		}
	}
}

// closeFile runs BeforeClose, then syncs and closes the file.
func (b *fileBase) closeFile() error {
	if b.session == nil {
		return nil
	}
	if err := b.session.Close(); err != nil {
		return b.fail(err, lifecycle.HookBeforeClose.String())
	}
	err := multierr.Append(
		serializer.WrapSinkErr(b.file.Sync(), "sync"),
		serializer.WrapSinkErr(b.file.Close(), "close"),
	)
	b.file = nil
	b.sizeWriter = nil
	b.session = nil
	if err != nil {
		b.metrics.HookFailures.WithLabelValues("Sync").Inc()
		b.log.Error("closing file", zap.Error(err))
	}
	return err
}

// shutdown closes the file for good. Later calls return nil.
func (b *fileBase) shutdown() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	return b.closeFile()
}

// Stats returns a snapshot of the current statistics
func (b *fileBase) Stats() handler.Snapshot {
	return b.stats.GetSnapshot()
}

// NewFileHandler creates a new file handler.
// Returns a SyncFileHandler when Async is false, or an AsyncFileHandler
// when Async is true. Both implement Handler, Flusher, and StatsProvider.
// The file itself is opened on the first entry or on Open.
func NewFileHandler(cfg FileConfig) (handler.Handler, error) {
	if cfg.Filename == "" {
		return nil, errors.New("filehandler: filename is required")
	}
	applyFileDefaults(&cfg)

	builder, err := cfg.Registry.Builder(cfg.Format)
	if err != nil {
		return nil, err
	}

	if cfg.Async {
		return newAsyncFileHandler(cfg, builder), nil
	}
	return newSyncFileHandler(cfg, builder), nil
}

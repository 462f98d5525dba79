package fs

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math/rand/v2"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
)

// ChaosConfig controls fault injection probabilities.
// Each rate is a float64 from 0.0 (never) to 1.0 (always).
//
// The zero value disables all fault injection, which turns [Chaos] into a
// tracing passthrough.
type ChaosConfig struct {
	// OpenFailRate controls how often FS.OpenFile fails. Read-only opens
	// return EACCES, EIO, EMFILE or ENFILE. Opens that can create or write
	// add ENOSPC, EDQUOT and EROFS.
	OpenFailRate float64

	// ReadFailRate controls how often File.Read fails entirely, returning
	// zero bytes and EIO.
	ReadFailRate float64

	// PartialReadRate controls how often File.Read is limited to a random
	// prefix of the caller's buffer. The short read has a nil error. This is
	// valid io.Reader behavior and checks that callers do not confuse a short
	// read with end of file.
	PartialReadRate float64

	// WriteFailRate controls how often File.Write fails entirely, writing
	// zero bytes and returning EIO, ENOSPC, EDQUOT or EROFS.
	WriteFailRate float64

	// PartialWriteRate controls how often File.Write writes only a prefix
	// before failing. Returns n > 0 along with an error.
	PartialWriteRate float64

	// ShortWriteRate is the fraction of partial writes that report
	// io.ErrShortWrite instead of an errno.
	ShortWriteRate float64

	// SeekFailRate controls how often File.Seek fails, returning position 0
	// and EIO or EINVAL.
	SeekFailRate float64

	// SyncFailRate controls how often File.Sync fails with EIO, ENOSPC,
	// EDQUOT or EROFS.
	SyncFailRate float64

	// CloseFailRate controls how often File.Close reports EIO. The
	// underlying descriptor is always closed.
	CloseFailRate float64

	// StatFailRate controls how often FS.Stat, FS.Exists and File.Stat fail
	// with EACCES or EIO.
	StatFailRate float64

	// TraceCapacity is the max number of operations kept in the trace log.
	// Set to 0 (default) to disable tracing.
	TraceCapacity int
}

// ChaosMode controls how [Chaos] behaves.
type ChaosMode uint8

const (
	// ChaosModeActive enables fault-rate injection.
	// This is the default mode for a new [Chaos].
	ChaosModeActive ChaosMode = iota

	// ChaosModeNoOp passes every operation directly to the underlying FS.
	// Operations are still traced.
	ChaosModeNoOp
)

// ChaosStats contains counts of injected faults.
type ChaosStats struct {
	OpenFails     int64
	ReadFails     int64
	PartialReads  int64
	WriteFails    int64
	PartialWrites int64
	SeekFails     int64
	SyncFails     int64
	CloseFails    int64
	StatFails     int64
}

// Total returns the sum of all counters.
func (s ChaosStats) Total() int64 {
	return s.OpenFails + s.ReadFails + s.PartialReads + s.WriteFails +
		s.PartialWrites + s.SeekFails + s.SyncFails + s.CloseFails + s.StatFails
}

// chaosError marks an error as intentionally injected by [Chaos].
//
// It wraps an [*fs.PathError] carrying a real [syscall.Errno] (or a bare
// [io.ErrShortWrite]) so errors.Is/As keep working.
type chaosError struct {
	Err error
}

func (e *chaosError) Error() string {
	return "chaos: " + e.Err.Error()
}

func (e *chaosError) Unwrap() error {
	return e.Err
}

// IsChaosErr reports whether err (or any wrapped error) was injected by [Chaos].
// Returns false if err is nil.
func IsChaosErr(err error) bool {
	var injected *chaosError

	return errors.As(err, &injected)
}

// fault identifies an injectable failure. The value doubles as the op name
// in injected errors.
type fault string

const (
	faultOpen   fault = "open"
	faultCreate fault = "create"
	faultRead   fault = "read"
	faultWrite  fault = "write"
	faultSeek   fault = "seek"
	faultSync   fault = "sync"
	faultClose  fault = "close"
	faultStat   fault = "stat"
)

// faultErrnos lists the errnos each fault may surface. ENOENT is never
// injected: missing-path errors come from the wrapped FS. EINTR is never
// injected: the stdlib retries it internally.
var faultErrnos = map[fault][]syscall.Errno{
	faultOpen:   {syscall.EACCES, syscall.EIO, syscall.EMFILE, syscall.ENFILE},
	faultCreate: {syscall.EACCES, syscall.EIO, syscall.EMFILE, syscall.ENFILE, syscall.ENOSPC, syscall.EDQUOT, syscall.EROFS},
	faultRead:   {syscall.EIO},
	faultWrite:  {syscall.EIO, syscall.ENOSPC, syscall.EDQUOT, syscall.EROFS},
	faultSeek:   {syscall.EIO, syscall.EINVAL},
	faultSync:   {syscall.EIO, syscall.ENOSPC, syscall.EDQUOT, syscall.EROFS},
	faultClose:  {syscall.EIO},
	faultStat:   {syscall.EACCES, syscall.EIO},
}

// Chaos wraps an [FS] and injects random failures for testing.
//
// Return shapes follow [os.File] on Unix:
//   - File.Read failures return n==0 with a non-nil error.
//   - File.Write may return n>0 with a non-nil error (partial progress).
//   - File.Seek failures return pos==0 with a non-nil error.
//   - File.Close failures still close the underlying file.
//   - End of file is never injected; it comes from the wrapped FS as io.EOF.
//
// Every descriptor-level call is recorded in the trace (when enabled),
// including calls made in [ChaosModeNoOp]. Tests use the trace to count and
// size the OS calls a buffering layer issues.
type Chaos struct {
	fs     FS
	config ChaosConfig
	mode   atomic.Uint32
	trace  *chaosTrace

	rngMu sync.Mutex
	rng   *rand.Rand

	stats struct {
		open, read, partialRead, write, partialWrite atomic.Int64
		seek, sync, close, stat                       atomic.Int64
	}
}

// NewChaos creates a new [Chaos] filesystem wrapping the given [FS].
// The seed controls random fault injection for reproducibility.
// Panics if underlying is nil.
func NewChaos(underlying FS, seed int64, config ChaosConfig) *Chaos {
	if underlying == nil {
		panic("underlying fs is nil")
	}

	return &Chaos{
		fs:     underlying,
		rng:    rand.New(rand.NewPCG(uint64(seed), uint64(seed))),
		config: config,
		trace:  newChaosTrace(config.TraceCapacity),
	}
}

// SetMode switches between [ChaosModeActive] and [ChaosModeNoOp].
// Safe to call concurrently with filesystem operations.
func (c *Chaos) SetMode(m ChaosMode) { c.mode.Store(uint32(m)) }

// Trace returns a formatted string of recent operations, one per line.
// Returns an empty string if tracing is disabled.
func (c *Chaos) Trace() string {
	return c.trace.String()
}

// TraceEvents returns a snapshot of the trace buffer.
// Returns nil if tracing is disabled.
func (c *Chaos) TraceEvents() []TraceEvent {
	return c.trace.snapshot()
}

// ResetTrace drops all recorded events. Sequence numbers keep increasing.
func (c *Chaos) ResetTrace() {
	c.trace.reset()
}

// Stats returns the current fault injection counts.
func (c *Chaos) Stats() ChaosStats {
	return ChaosStats{
		OpenFails:     c.stats.open.Load(),
		ReadFails:     c.stats.read.Load(),
		PartialReads:  c.stats.partialRead.Load(),
		WriteFails:    c.stats.write.Load(),
		PartialWrites: c.stats.partialWrite.Load(),
		SeekFails:     c.stats.seek.Load(),
		SyncFails:     c.stats.sync.Load(),
		CloseFails:    c.stats.close.Load(),
		StatFails:     c.stats.stat.Load(),
	}
}

// OpenFile opens a file with fault injection. The returned [File] injects
// faults on every descriptor call.
func (c *Chaos) OpenFile(path string, flag int, perm os.FileMode) (File, error) {
	kind := faultOpen
	if flag&(os.O_WRONLY|os.O_RDWR|os.O_APPEND|os.O_CREATE|os.O_TRUNC) != 0 {
		kind = faultCreate
	}

	if err := c.inject(kind, path, c.config.OpenFailRate); err != nil {
		return nil, err
	}

	file, err := c.fs.OpenFile(path, flag, perm)

	c.trace.add(string(kind), path, boolKind(err == nil), err, false,
		TraceAttr{"flag", fmt.Sprintf("%#x", flag)})

	if err != nil {
		return nil, err
	}

	return &chaosFile{f: file, chaos: c, path: path}, nil
}

// Stat returns file info with fault injection.
func (c *Chaos) Stat(path string) (os.FileInfo, error) {
	if err := c.inject(faultStat, path, c.config.StatFailRate); err != nil {
		return nil, err
	}

	info, err := c.fs.Stat(path)

	c.trace.add("stat", path, boolKind(err == nil), err, false)

	if err != nil {
		return nil, err
	}

	return info, nil
}

// Exists checks file existence with fault injection.
func (c *Chaos) Exists(path string) (bool, error) {
	if err := c.inject(faultStat, path, c.config.StatFailRate); err != nil {
		return false, err
	}

	exists, err := c.fs.Exists(path)

	c.trace.add("exists", path, boolKind(err == nil), err, false,
		TraceAttr{"exists", strconv.FormatBool(exists)})

	return exists, err
}

// Remove is never faulted; it only exists for test cleanup through the
// same [FS].
func (c *Chaos) Remove(path string) error {
	err := c.fs.Remove(path)

	c.trace.add("remove", path, boolKind(err == nil), err, false)

	return err
}

func (c *Chaos) getMode() ChaosMode {
	if c.mode.Load() == uint32(ChaosModeNoOp) {
		return ChaosModeNoOp
	}

	return ChaosModeActive
}

// inject rolls the dice for kind and returns the injected error, if any.
// The returned error is already traced and counted.
func (c *Chaos) inject(kind fault, path string, rate float64) error {
	if !c.should(rate) {
		return nil
	}

	c.counter(kind).Add(1)

	errno := c.pick(faultErrnos[kind])
	err := pathError(opName(kind), path, errno)

	c.trace.add(traceOp(kind), path, "fail", err, true, TraceAttr{"errno", errno.Error()})

	return err
}

func (c *Chaos) counter(kind fault) *atomic.Int64 {
	switch kind {
	case faultOpen, faultCreate:
		return &c.stats.open
	case faultRead:
		return &c.stats.read
	case faultWrite:
		return &c.stats.write
	case faultSeek:
		return &c.stats.seek
	case faultSync:
		return &c.stats.sync
	case faultClose:
		return &c.stats.close
	case faultStat:
		return &c.stats.stat
	default:
		panic("unknown fault: " + string(kind))
	}
}

// should returns true with the given probability when chaos is injecting.
func (c *Chaos) should(rate float64) bool {
	if rate <= 0 || c.getMode() != ChaosModeActive {
		return false
	}

	return c.randFloat() < rate
}

func (c *Chaos) randFloat() float64 {
	c.rngMu.Lock()
	defer c.rngMu.Unlock()

	return c.rng.Float64()
}

func (c *Chaos) randIntn(n int) int {
	c.rngMu.Lock()
	defer c.rngMu.Unlock()

	return c.rng.IntN(n)
}

func (c *Chaos) pick(errnos []syscall.Errno) syscall.Errno {
	return errnos[c.randIntn(len(errnos))]
}

// opName maps a fault to the Op recorded in the *fs.PathError, matching
// what the os package reports.
func opName(kind fault) string {
	if kind == faultCreate {
		return "open"
	}

	return string(kind)
}

// traceOp maps a fault to its trace op. Descriptor calls are prefixed with
// "file." so they can be told apart from path calls.
func traceOp(kind fault) string {
	switch kind {
	case faultOpen, faultCreate, faultStat:
		return string(kind)
	default:
		return "file." + string(kind)
	}
}

// pathError creates an injected [*fs.PathError]. Wrapped in [chaosError] so
// [IsChaosErr] can identify it while os.IsPermission and friends still work.
func pathError(op, path string, errno syscall.Errno) error {
	return &chaosError{Err: &fs.PathError{Op: op, Path: path, Err: errno}}
}

// chaosFile wraps a [File] and injects faults on descriptor calls.
type chaosFile struct {
	f     File
	chaos *Chaos
	path  string
}

var _ File = (*chaosFile)(nil)

func (cf *chaosFile) Read(buf []byte) (int, error) {
	c := cf.chaos

	if err := c.inject(faultRead, cf.path, c.config.ReadFailRate); err != nil {
		return 0, err
	}

	// Limit the underlying read instead of shrinking the returned count,
	// otherwise the file offset advances past bytes the caller never saw.
	if len(buf) > 1 && c.should(c.config.PartialReadRate) {
		c.stats.partialRead.Add(1)
		cutoff := c.randIntn(len(buf)-1) + 1

		n, err := cf.f.Read(buf[:cutoff])

		c.trace.add("file.read", cf.path, "short_read", err, true,
			TraceAttr{"n", strconv.Itoa(n)},
			TraceAttr{"requested", strconv.Itoa(len(buf))})

		return n, err
	}

	n, err := cf.f.Read(buf)

	kind := boolKind(err == nil)
	if errors.Is(err, io.EOF) {
		kind = "eof"
	}

	c.trace.add("file.read", cf.path, kind, err, false,
		TraceAttr{"n", strconv.Itoa(n)},
		TraceAttr{"requested", strconv.Itoa(len(buf))})

	return n, err
}

func (cf *chaosFile) Write(data []byte) (int, error) {
	c := cf.chaos

	if err := c.inject(faultWrite, cf.path, c.config.WriteFailRate); err != nil {
		return 0, err
	}

	if len(data) > 1 && c.should(c.config.PartialWriteRate) {
		c.stats.partialWrite.Add(1)
		cutoff := c.randIntn(len(data)-1) + 1

		n, err := cf.f.Write(data[:cutoff])
		if err == nil {
			if c.randFloat() < c.config.ShortWriteRate {
				err = &chaosError{Err: io.ErrShortWrite}
			} else {
				err = pathError("write", cf.path, c.pick(faultErrnos[faultWrite]))
			}
		}

		c.trace.add("file.write", cf.path, "partial_write", err, true,
			TraceAttr{"n", strconv.Itoa(n)},
			TraceAttr{"requested", strconv.Itoa(len(data))})

		return n, err
	}

	n, err := cf.f.Write(data)

	c.trace.add("file.write", cf.path, boolKind(err == nil), err, false,
		TraceAttr{"n", strconv.Itoa(n)})

	return n, err
}

func (cf *chaosFile) Close() error {
	c := cf.chaos
	injected := c.should(c.config.CloseFailRate)

	// Always close the underlying file so tests do not leak descriptors.
	err := cf.f.Close()
	if err != nil {
		c.trace.add("file.close", cf.path, "fail", err, false)

		return err
	}

	if injected {
		c.stats.close.Add(1)
		err := pathError("close", cf.path, syscall.EIO)

		c.trace.add("file.close", cf.path, "fail", err, true)

		return err
	}

	c.trace.add("file.close", cf.path, "ok", nil, false)

	return nil
}

func (cf *chaosFile) Seek(offset int64, whence int) (int64, error) {
	if err := cf.chaos.inject(faultSeek, cf.path, cf.chaos.config.SeekFailRate); err != nil {
		return 0, err
	}

	pos, err := cf.f.Seek(offset, whence)

	cf.chaos.trace.add("file.seek", cf.path, boolKind(err == nil), err, false,
		TraceAttr{"offset", strconv.FormatInt(offset, 10)},
		TraceAttr{"whence", strconv.Itoa(whence)},
		TraceAttr{"pos", strconv.FormatInt(pos, 10)})

	return pos, err
}

func (cf *chaosFile) Fd() uintptr {
	return cf.f.Fd()
}

func (cf *chaosFile) Stat() (os.FileInfo, error) {
	if err := cf.chaos.inject(faultStat, cf.path, cf.chaos.config.StatFailRate); err != nil {
		return nil, err
	}

	info, err := cf.f.Stat()

	cf.chaos.trace.add("file.stat", cf.path, boolKind(err == nil), err, false)

	if err != nil {
		return nil, err
	}

	return info, nil
}

func (cf *chaosFile) Sync() error {
	if err := cf.chaos.inject(faultSync, cf.path, cf.chaos.config.SyncFailRate); err != nil {
		return err
	}

	err := cf.f.Sync()

	cf.chaos.trace.add("file.sync", cf.path, boolKind(err == nil), err, false)

	return err
}

var _ FS = (*Chaos)(nil)

// TraceEvent records a single Chaos operation.
type TraceEvent struct {
	// Seq is the monotonically increasing sequence number.
	Seq uint64
	// Op is the operation name ("open", "create", "file.read", "file.write", ...).
	Op string
	// Path is the filesystem path involved.
	Path string
	// Err is the error returned by the operation (nil for success).
	Err error
	// Injected is true if Chaos altered the operation, including short
	// reads that returned a nil error.
	Injected bool
	// Kind is a short label: "ok", "fail", "eof", "short_read", "partial_write".
	Kind string
	// Attrs contains additional key-value details ("n=4096", "errno=EIO").
	Attrs []TraceAttr
}

// TraceAttr is a key-value pair for trace event context.
type TraceAttr struct {
	Key   string
	Value string
}

// Attr returns the value of the attribute named key, or "" if absent.
func (e TraceEvent) Attr(key string) string {
	for _, a := range e.Attrs {
		if a.Key == key {
			return a.Value
		}
	}

	return ""
}

func (e TraceEvent) String() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "#%d", e.Seq)

	if e.Injected {
		fmt.Fprintf(&sb, " [CHAOS:%s]", e.Kind)
	}

	fmt.Fprintf(&sb, " %s", e.Op)

	if e.Path != "" {
		fmt.Fprintf(&sb, " path=%q", e.Path)
	}

	for _, a := range e.Attrs {
		fmt.Fprintf(&sb, " %s=%s", a.Key, a.Value)
	}

	if !e.Injected {
		sb.WriteString(" ")
		sb.WriteString(e.Kind)
	}

	if e.Err != nil {
		fmt.Fprintf(&sb, " err=%v", e.Err)
	}

	return sb.String()
}

// chaosTrace is a bounded ring of [TraceEvent]. A nil *chaosTrace is a
// disabled trace; every method is safe to call on it.
type chaosTrace struct {
	mu       sync.Mutex
	capacity int
	events   []TraceEvent
	next     int
	full     bool
	seq      uint64
}

func newChaosTrace(capacity int) *chaosTrace {
	if capacity <= 0 {
		return nil
	}

	return &chaosTrace{
		capacity: capacity,
		events:   make([]TraceEvent, 0, capacity),
	}
}

func (t *chaosTrace) String() string {
	events := t.snapshot()

	lines := make([]string, 0, len(events))
	for _, e := range events {
		lines = append(lines, e.String())
	}

	return strings.Join(lines, "\n")
}

func (t *chaosTrace) add(op, path, kind string, err error, injected bool, attrs ...TraceAttr) {
	if t == nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.seq++

	event := TraceEvent{
		Seq:      t.seq,
		Op:       op,
		Path:     path,
		Err:      err,
		Injected: injected,
		Kind:     kind,
		Attrs:    attrs,
	}

	if len(t.events) < t.capacity {
		t.events = append(t.events, event)

		return
	}

	t.events[t.next] = event
	t.next = (t.next + 1) % t.capacity
	t.full = true
}

func (t *chaosTrace) reset() {
	if t == nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.events = t.events[:0]
	t.next = 0
	t.full = false
}

func (t *chaosTrace) snapshot() []TraceEvent {
	if t == nil {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.full {
		return append([]TraceEvent(nil), t.events...)
	}

	out := make([]TraceEvent, 0, len(t.events))
	out = append(out, t.events[t.next:]...)
	out = append(out, t.events[:t.next]...)

	return out
}

func boolKind(ok bool) string {
	if ok {
		return "ok"
	}

	return "fail"
}

package stream

import (
	"errors"
	"fmt"
	"io"

	"github.com/calvinalkan/sostream/pkg/fs"
)

// bufState tags what the shared buffer currently holds.
type bufState uint8

const (
	// stateClean: the buffer holds nothing; fill == pos == 0.
	stateClean bufState = iota
	// stateReadAhead: buf[pos:fill] are bytes read from the OS that the
	// caller has not consumed yet. The OS offset is cursor + (fill - pos).
	stateReadAhead
	// stateWriteBehind: buf[:fill] are bytes accepted from the caller that
	// have not been written yet. The OS offset is cursor - fill.
	// fill < len(buf) between calls: a full buffer is flushed at once.
	stateWriteBehind
)

func (s bufState) String() string {
	switch s {
	case stateClean:
		return "clean"
	case stateReadAhead:
		return "read-ahead"
	case stateWriteBehind:
		return "write-behind"
	default:
		return fmt.Sprintf("bufState(%d)", uint8(s))
	}
}

// Stream is a buffered handle over one open file.
//
// Create it with [Open] or [OpenWith] and release it with [Stream.Close].
// Every method except the read-only accessors fails with [ErrClosed] after
// Close.
type Stream struct {
	path string
	mode Mode
	file fs.File

	buf   []byte
	state bufState
	fill  int
	pos   int

	cursor int64

	eof     bool
	failed  bool
	lastErr error
	closed  bool
}

// Interface compliance.
var (
	_ io.ReadWriteSeeker = (*Stream)(nil)
	_ io.Closer          = (*Stream)(nil)
	_ io.ByteReader      = (*Stream)(nil)
	_ io.ByteWriter      = (*Stream)(nil)
)

// Open opens path with the given C-style mode ("r", "r+", "w", "w+", "a",
// "a+") using [DefaultOptions].
func Open(path, mode string) (*Stream, error) {
	return OpenWith(path, mode, DefaultOptions())
}

// OpenWith is [Open] with explicit options.
//
// Returns an error wrapping [ErrInvalidMode] for a bad mode string (nothing
// is opened), [ErrInvalidBufferSize] for a negative buffer size, or
// [ErrOpenFailed] wrapping the OS error when the open itself fails.
func OpenWith(path, mode string, opts Options) (*Stream, error) {
	m, err := ParseMode(mode)
	if err != nil {
		return nil, err
	}

	opts, err = opts.withDefaults()
	if err != nil {
		return nil, err
	}

	flags := m.Flags()

	file, err := opts.FS.OpenFile(path, flags, opts.Perm)
	if err != nil {
		return nil, fmt.Errorf("%w: %s (%s): %w", ErrOpenFailed, path, describeFlags(flags), err)
	}

	// Best effort: pipes and some filesystems reject fadvise.
	_ = fs.Advise(file, opts.Advise)

	return &Stream{
		path: path,
		mode: m,
		file: file,
		buf:  make([]byte, opts.BufferSize),
	}, nil
}

// Path returns the path the stream was opened with.
func (s *Stream) Path() string { return s.path }

// Mode returns the parsed access mode.
func (s *Stream) Mode() Mode { return s.mode }

// BufferSize returns the buffer capacity. Zero after Close.
func (s *Stream) BufferSize() int { return len(s.buf) }

// Fd returns the underlying OS file descriptor. Meaningless after Close.
func (s *Stream) Fd() uintptr { return s.file.Fd() }

// Tell returns the logical cursor: the file offset as seen by the caller.
func (s *Stream) Tell() int64 { return s.cursor }

// IsEOF reports whether a read has hit end of file. Sticky until Close.
func (s *Stream) IsEOF() bool { return s.eof }

// HasError reports whether any I/O failure occurred. Sticky until Close.
func (s *Stream) HasError() bool { return s.failed }

// LastError returns the first I/O failure recorded on the handle, or nil.
func (s *Stream) LastError() error { return s.lastErr }

// ReadByte returns the next byte.
//
// When the buffer has no unread bytes it is refilled with one OS read of up
// to [Stream.BufferSize] bytes. Returns [io.EOF] (and sets the EOF flag)
// when that read returns nothing, or an [ErrIO] error (and sets the error
// flag) when it fails.
func (s *Stream) ReadByte() (byte, error) {
	if err := s.beginRead(); err != nil {
		return 0, err
	}

	if s.state != stateReadAhead || s.pos == s.fill {
		if err := s.refill(); err != nil {
			return 0, err
		}
	}

	c := s.buf[s.pos]
	s.pos++
	s.cursor++

	return c, nil
}

// WriteByte appends c to the buffer. The buffer is flushed as soon as it
// reaches capacity; a failure of that flush is returned as an [ErrIO] error.
func (s *Stream) WriteByte(c byte) error {
	if err := s.beginWrite(); err != nil {
		return err
	}

	s.buf[s.fill] = c
	s.fill++
	s.cursor++
	s.state = stateWriteBehind

	if s.fill == len(s.buf) {
		return s.flush()
	}

	return nil
}

// ReadBlock copies up to size*count bytes into p and returns the number of
// bytes copied. size*count is clamped to len(p).
//
// A result shorter than requested means a refill read returned nothing or
// failed; check [Stream.IsEOF] and [Stream.HasError] to tell which.
func (s *Stream) ReadBlock(p []byte, size, count int) int {
	n, _ := s.read(clampBlock(p, size, count))

	return n
}

// WriteBlock buffers size*count bytes from p and returns the number of
// bytes accepted. size*count is clamped to len(p).
//
// A result shorter than requested means a flush failed mid-way; the bytes
// lost in that flush are not counted. [Stream.HasError] is set.
func (s *Stream) WriteBlock(p []byte, size, count int) int {
	n, _ := s.write(clampBlock(p, size, count))

	return n
}

// Read implements [io.Reader] over the same engine as [Stream.ReadBlock].
//
// Read keeps refilling until p is full, end of file, or an error. It
// returns [io.EOF] only when no byte was delivered.
func (s *Stream) Read(p []byte) (int, error) {
	n, err := s.read(p)
	if n > 0 && errors.Is(err, io.EOF) {
		return n, nil
	}

	return n, err
}

// Write implements [io.Writer] over the same engine as [Stream.WriteBlock].
func (s *Stream) Write(p []byte) (int, error) {
	return s.write(p)
}

// Flush writes any buffered bytes to the OS. It is a no-op (and issues no
// OS call) when nothing is buffered.
//
// The buffer is emptied even when the write fails; the failure is returned
// as an [ErrIO] error and sets the error flag.
func (s *Stream) Flush() error {
	if s.closed {
		return ErrClosed
	}

	return s.flush()
}

// Sync flushes the buffer and then commits the file to stable storage.
func (s *Stream) Sync() error {
	if err := s.Flush(); err != nil {
		return err
	}

	if err := s.file.Sync(); err != nil {
		return s.fail("sync", err)
	}

	return nil
}

// Seek implements [io.Seeker].
//
// Pending writes are flushed before the descriptor moves; if that flush
// fails Seek returns the error without repositioning. On success the
// read-ahead is discarded and the logical cursor is set to the offset the
// OS reports. [io.SeekCurrent] is relative to the logical cursor.
//
// On failure the error flag is set and the buffer is left as it was.
func (s *Stream) Seek(offset int64, whence int) (int64, error) {
	if s.closed {
		return 0, ErrClosed
	}

	if whence != io.SeekStart && whence != io.SeekCurrent && whence != io.SeekEnd {
		return 0, s.fail("seek", fmt.Errorf("%w %d", ErrInvalidWhence, whence))
	}

	if err := s.flush(); err != nil {
		return 0, err
	}

	if whence == io.SeekCurrent {
		// The OS offset runs ahead of the cursor by the unread read-ahead,
		// so resolve against the cursor instead.
		offset += s.cursor
		whence = io.SeekStart
	}

	pos, err := s.file.Seek(offset, whence)
	if err != nil {
		return 0, s.fail("seek", err)
	}

	s.reset()
	s.cursor = pos

	return pos, nil
}

// Close flushes pending writes, then closes the descriptor and releases the
// buffer. The descriptor is closed even when the flush fails. Errors from
// both steps are joined.
//
// Close on an already closed stream returns [ErrClosed].
func (s *Stream) Close() error {
	if s.closed {
		return ErrClosed
	}

	s.closed = true

	flushErr := s.flush()

	var closeErr error
	if err := s.file.Close(); err != nil {
		closeErr = s.fail("close", err)
	}

	s.reset()
	s.buf = nil

	return errors.Join(flushErr, closeErr)
}

func (s *Stream) read(p []byte) (int, error) {
	if len(p) == 0 {
		if s.closed {
			return 0, ErrClosed
		}

		return 0, nil
	}

	if err := s.beginRead(); err != nil {
		return 0, err
	}

	n := 0

	for n < len(p) {
		if s.state != stateReadAhead || s.pos == s.fill {
			if err := s.refill(); err != nil {
				return n, err
			}
		}

		c := copy(p[n:], s.buf[s.pos:s.fill])
		s.pos += c
		s.cursor += int64(c)
		n += c
	}

	return n, nil
}

func (s *Stream) write(p []byte) (int, error) {
	if len(p) == 0 {
		if s.closed {
			return 0, ErrClosed
		}

		return 0, nil
	}

	if err := s.beginWrite(); err != nil {
		return 0, err
	}

	n := 0

	for n < len(p) {
		c := copy(s.buf[s.fill:], p[n:])
		s.fill += c
		s.cursor += int64(c)
		s.state = stateWriteBehind
		n += c

		if s.fill < len(s.buf) {
			continue
		}

		before := s.cursor

		if err := s.flush(); err != nil {
			// flush pulled the cursor back by the bytes that never reached
			// the OS; some of them may belong to earlier calls.
			lost := int(before - s.cursor)

			return max(n-lost, 0), err
		}
	}

	return n, nil
}

// beginRead resolves pending write-behind before a read.
func (s *Stream) beginRead() error {
	if s.closed {
		return ErrClosed
	}

	if !s.mode.CanRead() {
		return s.fail("read", ErrNotReadable)
	}

	if s.state == stateWriteBehind {
		return s.flush()
	}

	return nil
}

// beginWrite resolves pending read-ahead before a write: the unread bytes
// are dropped and the descriptor is moved back to the logical cursor so the
// write lands where the caller expects.
func (s *Stream) beginWrite() error {
	if s.closed {
		return ErrClosed
	}

	if !s.mode.CanWrite() {
		return s.fail("write", ErrNotWritable)
	}

	if s.state != stateReadAhead {
		return nil
	}

	// Append writes ignore the offset, so there is nothing to rewind.
	if unread := s.fill - s.pos; unread > 0 && !s.mode.Appends() {
		if _, err := s.file.Seek(-int64(unread), io.SeekCurrent); err != nil {
			return s.fail("seek", err)
		}
	}

	s.reset()

	return nil
}

// refill issues exactly one OS read of up to len(buf) bytes. The previous
// read-ahead must be fully consumed (or absent).
func (s *Stream) refill() error {
	n, err := s.file.Read(s.buf)
	if n > 0 {
		s.state = stateReadAhead
		s.fill = n
		s.pos = 0

		if err != nil && !errors.Is(err, io.EOF) {
			_ = s.fail("read", err)
		}

		return nil
	}

	s.reset()

	if err == nil || errors.Is(err, io.EOF) {
		s.eof = true

		return io.EOF
	}

	return s.fail("read", err)
}

// flush writes buf[:fill] with one OS write when the buffer holds
// write-behind. On a failed or short write the unwritten bytes are dropped
// and the cursor is pulled back so it matches the OS offset again.
func (s *Stream) flush() error {
	if s.state != stateWriteBehind || s.fill == 0 {
		return nil
	}

	pending := s.fill

	n, err := s.file.Write(s.buf[:pending])
	s.reset()

	if err == nil && n < pending {
		err = io.ErrShortWrite
	}

	if err != nil {
		s.cursor -= int64(pending - max(n, 0))

		return s.fail("write", err)
	}

	if s.mode.Appends() {
		// O_APPEND moved the descriptor to end of file; follow it.
		pos, err := s.file.Seek(0, io.SeekCurrent)
		if err != nil {
			return s.fail("seek", err)
		}

		s.cursor = pos
	}

	return nil
}

func (s *Stream) reset() {
	s.state = stateClean
	s.fill = 0
	s.pos = 0
}

// fail records err on the handle and returns it wrapped in [ErrIO].
func (s *Stream) fail(op string, err error) error {
	s.failed = true

	wrapped := fmt.Errorf("%w: %s %s: %w", ErrIO, op, s.path, err)
	if s.lastErr == nil {
		s.lastErr = wrapped
	}

	return wrapped
}

func clampBlock(p []byte, size, count int) []byte {
	if size <= 0 || count <= 0 {
		return p[:0]
	}

	total := size * count
	if total/count != size || total > len(p) {
		total = len(p)
	}

	return p[:total]
}

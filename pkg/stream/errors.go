package stream

import "errors"

var (
	// ErrInvalidMode is returned by [ParseMode] and [Open] for a mode string
	// whose leading character is not one of r, w, a, or that carries
	// unknown trailing characters. Nothing is opened.
	ErrInvalidMode = errors.New("invalid mode")

	// ErrOpenFailed wraps the OS error when the underlying open fails
	// (missing file in read mode, permissions, ...). Nothing is returned.
	ErrOpenFailed = errors.New("open failed")

	// ErrIO wraps every underlying read, write, seek, sync or close failure.
	// Returning it always sets the handle's sticky error flag.
	ErrIO = errors.New("io failure")

	// ErrClosed is returned by every operation on a closed [Stream].
	ErrClosed = errors.New("stream is closed")

	// ErrNotReadable is wrapped in [ErrIO] when reading a handle opened with
	// a write-only mode.
	ErrNotReadable = errors.New("stream not opened for reading")

	// ErrNotWritable is wrapped in [ErrIO] when writing a handle opened with
	// a read-only mode.
	ErrNotWritable = errors.New("stream not opened for writing")

	// ErrInvalidBufferSize is returned by [OpenWith] for a negative buffer size.
	ErrInvalidBufferSize = errors.New("invalid buffer size")

	// ErrInvalidWhence is wrapped in [ErrIO] by [Stream.Seek] for a whence
	// other than io.SeekStart, io.SeekCurrent or io.SeekEnd.
	ErrInvalidWhence = errors.New("invalid whence")
)

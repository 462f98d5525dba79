// Package stream implements a buffered file handle over an [fs.File].
//
// A [Stream] owns one descriptor and one fixed-size buffer. The buffer is
// used for read-ahead or write-behind, never both at once: reading while
// writes are pending flushes them first, and writing while read-ahead is
// pending discards it (moving the descriptor back to the logical cursor).
//
// The logical cursor reported by [Stream.Tell] always counts bytes
// delivered to or accepted from the caller, not bytes moved between the
// buffer and the OS.
//
// Failures are reported twice: the triggering call returns an error, and
// the handle records a sticky flag ([Stream.HasError], [Stream.IsEOF]) that
// stays set until [Stream.Close]. Block operations ([Stream.ReadBlock],
// [Stream.WriteBlock]) only return a byte count; callers use the flags to
// tell a short count at end of file from a short count after an I/O error.
//
// Example:
//
//	s, err := stream.Open("t.txt", "w+")
//	if err != nil {
//	    return err
//	}
//	defer s.Close()
//
//	s.WriteBlock([]byte("abcd"), 1, 4)
//	s.Seek(0, io.SeekStart)
//
//	buf := make([]byte, 4)
//	n := s.ReadBlock(buf, 1, 4) // n == 4, buf == "abcd", s.Tell() == 4
//
// A Stream is not safe for concurrent use.
package stream

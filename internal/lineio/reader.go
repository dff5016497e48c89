// Package lineio implements the CR/LF line reader: a single
// read-one-line operation over either a network stream or an open file,
// with a load-bearing three-way return: a non-negative length, -1 on
// buffer overflow, or -2 on clean EOF with nothing read.
//
// Per SPEC_FULL.md §5, the process-wide buffer the original firmware
// reused across requests is not kept here: both readers fill a buffer
// supplied by the caller, and the server allocates one per connection,
// since connections are no longer strictly serialized.
package lineio

import (
	"bufio"
	"errors"
	"io"
)

// Result codes for ReadLine / ReadLineFile, mirroring exactly.
const (
	Overflow = -1 // buffer filled before a terminator was found
	EOF      = -2 // no bytes read, stream exhausted
)

// ErrOverflow is an error value for the Overflow condition. ReadLine and
// ReadLineFile do not return it: they report overflow only through the
// Overflow sentinel length, with a nil error.
var ErrOverflow = errors.New("lineio: line exceeds buffer capacity")

// ReadLine reads one CR- or LF-terminated line from r into buf, consuming
// a paired LF that immediately follows a CR. The terminator and a
// trailing NUL are written into buf when they fit ("\r\n\x00"), matching
// the stream variant's buffer contract. It returns the number of
// characters placed in buf not counting the terminator, Overflow, or EOF.
func ReadLine(r *bufio.Reader, buf []byte) (n int, err error) {
	if len(buf) == 0 {
		return Overflow, nil
	}
	var sawAny bool
	for {
		b, rerr := r.ReadByte()
		if rerr != nil {
			if !sawAny {
				return EOF, nil
			}
			break
		}
		sawAny = true
		if b == '\r' {
			// consume a paired LF if present
			if nb, nerr := r.Peek(1); nerr == nil && len(nb) == 1 && nb[0] == '\n' {
				r.ReadByte()
			}
			break
		}
		if b == '\n' {
			break
		}
		if n >= len(buf)-3 {
			// no room left for terminator+NUL; caller must keep reading
			// the remainder of this physical line itself.
			writeTerminator(buf, n)
			return Overflow, nil
		}
		buf[n] = b
		n++
	}
	writeTerminator(buf, n)
	return n, nil
}

func writeTerminator(buf []byte, n int) {
	if n+2 < len(buf) {
		buf[n] = '\r'
		buf[n+1] = '\n'
		buf[n+2] = 0
	} else if n+1 < len(buf) {
		buf[n] = '\r'
		buf[n+1] = 0
	} else if n < len(buf) {
		buf[n] = 0
	}
}

// ReadLineFile reads one CR/LF-terminated line from an open file-like
// reader into buf, writing a single trailing NUL (no CRLF is appended,
// since files already carry their own line endings). Unless
// allowControl is true, a line consisting solely of leading control
// bytes is skipped and reading continues — this lets strfile/tinylog
// readers tolerate stray control characters in input files without
// treating them as content.
func ReadLineFile(r *bufio.Reader, buf []byte, allowControl bool) (n int, err error) {
	for {
		n, err = readRawLine(r, buf)
		if n <= 0 || allowControl {
			return
		}
		if !isAllControl(buf[:n]) {
			return
		}
		// skip this all-control line and try again
	}
}

func readRawLine(r *bufio.Reader, buf []byte) (int, error) {
	if len(buf) == 0 {
		return Overflow, nil
	}
	var n int
	var sawAny bool
	for {
		b, rerr := r.ReadByte()
		if rerr != nil {
			if rerr != io.EOF {
				return n, rerr
			}
			if !sawAny {
				return EOF, nil
			}
			break
		}
		sawAny = true
		if b == '\r' {
			if nb, nerr := r.Peek(1); nerr == nil && len(nb) == 1 && nb[0] == '\n' {
				r.ReadByte()
			}
			break
		}
		if b == '\n' {
			break
		}
		if n >= len(buf)-1 {
			if n < len(buf) {
				buf[n] = 0
			}
			return Overflow, nil
		}
		buf[n] = b
		n++
	}
	if n < len(buf) {
		buf[n] = 0
	}
	return n, nil
}

func isAllControl(b []byte) bool {
	for _, c := range b {
		if c >= 0x20 {
			return false
		}
	}
	return true
}

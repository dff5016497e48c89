// Package fortune implements the fortune-cookie generator: a strfile
// reader plus the Gemini quote-wrap emitter. The binary layout is
// fixed by the historical strfile format, so it's hand-written
// directly against that byte layout (see DESIGN.md).
package fortune

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/cstroie/kore/internal/lineio"
	"github.com/cstroie/kore/internal/uri"
)

// header mirrors the 24-byte BE strfile header.
type header struct {
	Version uint32
	NumStr  uint32
	LongLen uint32
	ShortLen uint32
	Flags   uint32
	Delim   byte
}

// strRotated is the strfile "rotated" flag bit; Pick tests it with a
// bitwise AND against the header flags.
const strRotated = 0x04

func readHeader(r io.Reader) (header, error) {
	var raw [24]byte
	if _, err := io.ReadFull(r, raw[:]); err != nil {
		return header{}, err
	}
	h := header{
		Version:  binary.BigEndian.Uint32(raw[0:4]),
		NumStr:   binary.BigEndian.Uint32(raw[4:8]),
		LongLen:  binary.BigEndian.Uint32(raw[8:12]),
		ShortLen: binary.BigEndian.Uint32(raw[12:16]),
		Flags:    binary.BigEndian.Uint32(raw[16:20]),
		Delim:    raw[20],
	}
	return h, nil
}

// Pick reads <dir>/<name>.dat and <dir>/<name>, selects entry
// index mod numstr (the caller supplies index, so determinism under a
// fixed RNG is the caller's responsibility), and returns the raw
// (un-wrapped) cookie lines.
func Pick(dir, name string, index int) ([]string, error) {
	datPath := dir + "/" + name + ".dat"
	dat, err := os.Open(datPath)
	if err != nil {
		return nil, err
	}
	defer dat.Close()

	h, err := readHeader(dat)
	if err != nil {
		return nil, err
	}
	if h.NumStr == 0 {
		return nil, errors.New("fortune: empty strfile")
	}
	idx := uint32(index) % h.NumStr

	if _, err := dat.Seek(int64(24+4*idx), io.SeekStart); err != nil {
		return nil, err
	}
	var offBuf [4]byte
	if _, err := io.ReadFull(dat, offBuf[:]); err != nil {
		return nil, err
	}
	offset := int64(binary.BigEndian.Uint32(offBuf[:]))

	txt, err := os.Open(dir + "/" + name)
	if err != nil {
		return nil, err
	}
	defer txt.Close()
	if _, err := txt.Seek(offset, io.SeekStart); err != nil {
		return nil, err
	}

	r := bufio.NewReader(txt)
	buf := make([]byte, 4096)
	var lines []string
	delim := string([]byte{h.Delim})
	for {
		n, rerr := lineio.ReadLineFile(r, buf, false)
		if rerr != nil {
			return nil, rerr
		}
		if n == lineio.EOF {
			break
		}
		end := n
		if n == lineio.Overflow {
			end = len(buf) - 1
		}
		line := string(buf[:end])
		if line == delim {
			break
		}
		if h.Flags&strRotated != 0 {
			line = uri.ROT13(line)
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// WrapGemini renders cookie lines as a Gemini quote block:
// each quoted line is prefixed "\r\n> ", except when the previous
// line's last rune is a lowercase letter, space, comma, semicolon, or
// hyphen, in which case the next line continues the same quote joined
// by a single space.
func WrapGemini(lines []string) string {
	var b strings.Builder
	for i, line := range lines {
		if i == 0 {
			b.WriteString("\r\n> ")
			b.WriteString(line)
			continue
		}
		prev := lines[i-1]
		if continues(prev) {
			b.WriteByte(' ')
			b.WriteString(line)
		} else {
			b.WriteString("\r\n> ")
			b.WriteString(line)
		}
	}
	return b.String()
}

func continues(prevLine string) bool {
	if prevLine == "" {
		return false
	}
	c := prevLine[len(prevLine)-1]
	switch {
	case c >= 'a' && c <= 'z':
		return true
	case c == ' ' || c == ',' || c == ';' || c == '-':
		return true
	}
	return false
}

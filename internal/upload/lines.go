package upload

import (
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

const readBufferSize = 32 * 1024

var ErrInvalidUTF8 = errors.New("invalid UTF-8")

// CountLines returns the number of lines in r, read as UTF-8 text. "\n",
// "\r\n" and a lone "\r" each terminate a line, and trailing text without a
// terminator counts as one more line. Content that is not valid UTF-8 is
// rejected with ErrInvalidUTF8.
func CountLines(r io.Reader) (int, error) {
	buf := make([]byte, readBufferSize+utf8.UTFMax)
	var c lineCounter
	carry := 0

	for {
		n, err := r.Read(buf[carry : carry+readBufferSize])
		data := buf[:carry+n]
		atEOF := err == io.EOF
		if err != nil && !atEOF {
			return 0, err
		}

		// a rune split across reads is validated with the next chunk
		cut := len(data)
		if !atEOF {
			cut = completeRunes(data)
		}
		if err := c.feed(data[:cut]); err != nil {
			return 0, err
		}
		carry = copy(buf, data[cut:])

		if atEOF {
			return c.total(), nil
		}
	}
}

type lineCounter struct {
	offset  int64
	lines   int
	last    byte
	pending bool // text seen since the last terminator
}

func (c *lineCounter) feed(data []byte) error {
	if !utf8.Valid(data) {
		i := invalidIndex(data)
		return fmt.Errorf("%w: can't decode byte 0x%02x in position %d", ErrInvalidUTF8, data[i], c.offset+int64(i))
	}

	for _, b := range data {
		switch b {
		case '\n':
			if c.last != '\r' {
				c.lines++
			}
			c.pending = false
		case '\r':
			c.lines++
			c.pending = false
		default:
			c.pending = true
		}
		c.last = b
	}
	c.offset += int64(len(data))
	return nil
}

func (c *lineCounter) total() int {
	if c.pending {
		return c.lines + 1
	}
	return c.lines
}

// completeRunes returns the length of the longest prefix of data that does
// not end inside a multi-byte sequence.
func completeRunes(data []byte) int {
	for i := len(data) - 1; i >= 0 && i >= len(data)-utf8.UTFMax; i-- {
		if utf8.RuneStart(data[i]) {
			if utf8.FullRune(data[i:]) {
				return len(data)
			}
			return i
		}
	}
	return len(data)
}

func invalidIndex(data []byte) int {
	for i := 0; i < len(data); {
		r, size := utf8.DecodeRune(data[i:])
		if r == utf8.RuneError && size == 1 {
			return i
		}
		i += size
	}
	return 0
}

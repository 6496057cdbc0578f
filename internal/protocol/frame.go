package protocol

import (
	"bufio"
	"errors"
	"fmt"
	"io"
)

// DefaultMaxLine bounds how much of a single message the reader will buffer
// before giving up. Commands carry whole scripts, so the limit is generous.
const DefaultMaxLine = 1024 * 1024

var ErrLineTooLong = errors.New("protocol: line exceeds maximum length")

// LineReader reads newline-terminated messages, draining each line fully
// rather than truncating at a fixed buffer size.
type LineReader struct {
	r   *bufio.Reader
	max int
}

func NewLineReader(r io.Reader, max int) *LineReader {
	if max <= 0 {
		max = DefaultMaxLine
	}
	return &LineReader{
		r:   bufio.NewReader(r),
		max: max,
	}
}

// ReadLine returns the next message without its terminator. A message that
// ends at EOF without a newline is returned as-is; a bare EOF with no data
// is reported as io.EOF.
func (lr *LineReader) ReadLine() ([]byte, error) {
	var buf []byte
	for {
		chunk, err := lr.r.ReadSlice('\n')
		buf = append(buf, chunk...)
		if len(buf) > lr.max {
			return nil, ErrLineTooLong
		}
		if err == nil {
			return trimLine(buf), nil
		}
		if err == bufio.ErrBufferFull {
			continue
		}
		if err == io.EOF {
			if len(buf) == 0 {
				return nil, io.EOF
			}
			return trimLine(buf), nil
		}
		return nil, fmt.Errorf("reading line: %w", err)
	}
}

func trimLine(b []byte) []byte {
	for len(b) > 0 && (b[len(b)-1] == '\n' || b[len(b)-1] == '\r') {
		b = b[:len(b)-1]
	}
	return b
}

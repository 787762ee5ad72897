package probe

import "bytes"

// LineBuffer accumulates subprocess output and yields complete
// newline-delimited lines. Incomplete trailing data is held until the
// next Feed, so message framing survives arbitrary chunk boundaries.
type LineBuffer struct {
	buf []byte
}

// Feed appends chunk and returns every complete line received so far,
// without the trailing newline. Carriage returns before the newline are
// stripped.
func (b *LineBuffer) Feed(chunk []byte) [][]byte {
	b.buf = append(b.buf, chunk...)

	var lines [][]byte
	for {
		i := bytes.IndexByte(b.buf, '\n')
		if i < 0 {
			break
		}
		line := b.buf[:i]
		if len(line) > 0 && line[len(line)-1] == '\r' {
			line = line[:len(line)-1]
		}
		out := make([]byte, len(line))
		copy(out, line)
		lines = append(lines, out)
		b.buf = b.buf[i+1:]
	}
	return lines
}

// Pending returns the number of buffered bytes not yet terminated by a
// newline.
func (b *LineBuffer) Pending() int { return len(b.buf) }

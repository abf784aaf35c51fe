// Public domain.

package catalog

import (
	"bufio"
	"fmt"
	"io"
)

// Reader reads the header and then the lines of a catalog.
type Reader struct {
	Header   *Header
	Preamble []string // comment lines before the header

	sc   *bufio.Scanner
	line string
}

// NewReader reads up to and including the header.  A catalog without a
// valid header gives ErrHeader.
func NewReader(r io.Reader) (*Reader, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	cr := &Reader{sc: sc}
	for n := 1; sc.Scan(); n++ {
		line := sc.Text()
		if IsComment(line) {
			cr.Preamble = append(cr.Preamble, line)
			continue
		}
		h, err := ParseHeader(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", n, err)
		}
		cr.Header = h
		return cr, nil
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("%w: none found", ErrHeader)
}

// Scan advances to the next line, which is then available from Line.
// It returns false at end of input or on error.
func (r *Reader) Scan() bool {
	if !r.sc.Scan() {
		return false
	}
	r.line = r.sc.Text()
	return true
}

// Line returns the current line.
func (r *Reader) Line() string { return r.line }

// Err returns the first read error.
func (r *Reader) Err() error { return r.sc.Err() }

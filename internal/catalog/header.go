// Public domain.

// Package catalog reads and writes orbit catalogs.
//
// A catalog is line oriented.  Lines starting with # are comments.  The
// first other line is the header, naming the columns.  Each field of a
// record spans from the column where its name starts in the header to the
// column where the next name starts.  The last field runs to end of line.
package catalog

import (
	"errors"
	"fmt"
	"strings"
)

// Column names.
const (
	Desig = "Desig"
	Tp    = "Tp"
	Epoch = "Epoch"
	Q     = "q"
	Incl  = "Incl"
	Node  = "Node"
	Peri  = "Peri"
	Ecc   = "e"
	RMS   = "RMS"
	Obs   = "Obs"
	Arc   = "Arc"
	H     = "H"
	G     = "G"
	Src   = "Src" // output only, provenance digest
)

// Columns lists the names every catalog header must contain.
var Columns = []string{Desig, Tp, Epoch, Q, Incl, Node, Peri, Ecc, RMS, Obs, Arc, H, G}

// ErrHeader means the catalog header is missing or unusable.
var ErrHeader = errors.New("catalog: bad header")

// Header locates fields within record lines.
type Header struct {
	Line  string
	names []string
	start []int
	index map[string]int
}

// IsComment reports whether a line is a comment.
func IsComment(line string) bool {
	return strings.HasPrefix(line, "#")
}

// ParseHeader parses a header line.  All Columns must be present, each
// once.
func ParseHeader(line string) (*Header, error) {
	line = strings.TrimRight(line, "\r\n")
	h := &Header{Line: line, index: map[string]int{}}
	for i := 0; i < len(line); {
		if line[i] == ' ' {
			i++
			continue
		}
		j := i
		for j < len(line) && line[j] != ' ' {
			j++
		}
		name := line[i:j]
		if _, dup := h.index[name]; dup {
			return nil, fmt.Errorf("%w: column %q repeated", ErrHeader, name)
		}
		h.index[name] = len(h.names)
		h.names = append(h.names, name)
		h.start = append(h.start, i)
		i = j
	}
	if len(h.names) == 0 || h.start[0] != 0 {
		return nil, fmt.Errorf("%w: %q", ErrHeader, line)
	}
	for _, c := range Columns {
		if _, ok := h.index[c]; !ok {
			return nil, fmt.Errorf("%w: no %s column", ErrHeader, c)
		}
	}
	return h, nil
}

// Has reports whether the header has a column.
func (h *Header) Has(name string) bool {
	_, ok := h.index[name]
	return ok
}

// span returns the column range of field i; end is -1 for the last.
func (h *Header) span(i int) (start, end int) {
	if i+1 < len(h.start) {
		return h.start[i], h.start[i+1]
	}
	return h.start[i], -1
}

// Raw returns the bytes of a field in line, untrimmed.  A line too short
// to contain the field gives what is there, possibly "".
func (h *Header) Raw(line, name string) string {
	i, ok := h.index[name]
	if !ok {
		return ""
	}
	s, e := h.span(i)
	if s >= len(line) {
		return ""
	}
	if e < 0 || e > len(line) {
		return line[s:]
	}
	return line[s:e]
}

// Field returns a field of line with surrounding blanks removed.
func (h *Header) Field(line, name string) string {
	return strings.TrimSpace(h.Raw(line, name))
}

// minimum width given the input's last column when Src is appended
const minLastWidth = 10

// Output returns the header for output records, which adds the Src
// column if the input lacks it.
func (h *Header) Output() *Header {
	if h.Has(Src) {
		return h
	}
	line := strings.TrimRight(h.Line, " ")
	pad := h.start[len(h.start)-1] + minLastWidth - len(line)
	if pad < 2 {
		pad = 2
	}
	o, _ := ParseHeader(line + strings.Repeat(" ", pad) + Src)
	return o
}

// Width returns the width of a field, or -1 for the last field.
func (h *Header) Width(name string) int {
	i, ok := h.index[name]
	if !ok {
		return 0
	}
	s, e := h.span(i)
	if e < 0 {
		return -1
	}
	return e - s
}

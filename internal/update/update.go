// Public domain.

// Package update avoids re-integrating catalog records that have not changed
// since a previous run.
//
// Records are matched to lines of the previous output by a key hashed from
// identity fields.  A key match is only a candidate; the previous line is
// reused only after its identity fields and its Src provenance digest are
// verified against the current input.
package update

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"strconv"

	"github.com/soniakeys/encke/internal/catalog"
	"github.com/soniakeys/encke/internal/perturb"
)

// IdentityFields are the fields hashed into a Key.
var IdentityFields = []string{
	catalog.Desig, catalog.H, catalog.G, catalog.RMS, catalog.Obs, catalog.Arc,
}

// ErrLayout means the previous output has a different column layout than
// the output of this run, so its lines cannot be reused.
var ErrLayout = errors.New("update: previous output layout differs")

// Key is the identity hash of a record.
type Key uint64

// writeField writes a length prefixed field so adjacent fields cannot run
// together.
func writeField(h hash.Hash, s string) {
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(len(s)))
	h.Write(n[:])
	h.Write([]byte(s))
}

// KeyOf computes the key of a record line.
func KeyOf(h *catalog.Header, line string) Key {
	s := sha256.New()
	for _, f := range IdentityFields {
		writeField(s, h.Field(line, f))
	}
	return Key(binary.BigEndian.Uint64(s.Sum(nil)))
}

// Params are the run parameters that affect integrated output.  They are
// part of the provenance digest, so changing any of them invalidates all
// previous output.
type Params struct {
	Target      float64
	Tolerance   float64
	MacroStep   float64
	Perturbers  perturb.Mask
	Relativity  bool
	RadiusFudge float64
	Backend     string
	Promoted    string // Digest of the asteroid perturber input lines
}

// Digest returns a short digest of strings, in order.
func Digest(s ...string) string {
	h := sha256.New()
	for _, f := range s {
		writeField(h, f)
	}
	return hex.EncodeToString(h.Sum(nil)[:8])
}

// Src returns the provenance digest of an input record line: every input
// column and the run parameters.
func Src(h *catalog.Header, line string, p Params) string {
	s := sha256.New()
	for _, f := range catalog.Columns {
		writeField(s, h.Field(line, f))
	}
	writeField(s, strconv.FormatFloat(p.Target, 'f', 9, 64))
	writeField(s, strconv.FormatFloat(p.Tolerance, 'g', -1, 64))
	writeField(s, strconv.FormatFloat(p.MacroStep, 'g', -1, 64))
	writeField(s, strconv.FormatUint(uint64(p.Perturbers), 16))
	writeField(s, strconv.FormatBool(p.Relativity))
	writeField(s, strconv.FormatFloat(p.RadiusFudge, 'g', -1, 64))
	writeField(s, p.Backend)
	writeField(s, p.Promoted)
	return hex.EncodeToString(s.Sum(nil)[:8])
}

// Index holds previous output lines by key.  It is read only after Load
// and safe for concurrent use.
type Index struct {
	hdr   *catalog.Header
	lines []string
	byKey map[Key][]int
}

// Load reads a previous output catalog.  out is the output header of the
// current run; a previous file with a different layout gives ErrLayout.
func Load(r io.Reader, out *catalog.Header) (*Index, error) {
	cr, err := catalog.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("previous output: %w", err)
	}
	if cr.Header.Line != out.Line {
		return nil, ErrLayout
	}
	x := &Index{hdr: cr.Header, byKey: map[Key][]int{}}
	for cr.Scan() {
		line := cr.Line()
		if catalog.IsComment(line) || x.hdr.Field(line, catalog.Src) == "" {
			continue // passed through last time, nothing to reuse
		}
		k := KeyOf(x.hdr, line)
		x.byKey[k] = append(x.byKey[k], len(x.lines))
		x.lines = append(x.lines, line)
	}
	if err := cr.Err(); err != nil {
		return nil, fmt.Errorf("previous output: %w", err)
	}
	return x, nil
}

// Len returns the number of reusable lines.
func (x *Index) Len() int { return len(x.lines) }

// Lookup returns the previous output line for input line, if one exists
// and is verified.  h is the input header and src the line's digest from
// Src.
func (x *Index) Lookup(h *catalog.Header, line, src string) (string, bool) {
	if x == nil {
		return "", false
	}
	for _, i := range x.byKey[KeyOf(h, line)] {
		if prev := x.lines[i]; x.verify(h, line, prev, src) {
			return prev, true
		}
	}
	return "", false
}

// verify compares identity fields byte for byte and the provenance digest.
func (x *Index) verify(h *catalog.Header, line, prev, src string) bool {
	for _, f := range IdentityFields {
		if h.Field(line, f) != x.hdr.Field(prev, f) {
			return false
		}
	}
	return x.hdr.Field(prev, catalog.Src) == src
}

// Public domain.

package catalog

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/soniakeys/meeus/v3/julian"
	"github.com/soniakeys/unit"

	"github.com/soniakeys/encke/internal/kepel"
)

// ErrRecord is wrapped by errors from parsing a record.
var ErrRecord = errors.New("catalog: bad record")

// ErrWidth means a formatted value does not fit its column.
var ErrWidth = errors.New("catalog: value too wide for column")

// Record is one parsed catalog line.
type Record struct {
	Desig    string
	Elements kepel.Elements
	Line     string

	hdr *Header
}

// Field returns a trimmed field of the record's line.
func (r *Record) Field(name string) string {
	return r.hdr.Field(r.Line, name)
}

// Parse parses a record line.  Only fields needed for integration are
// interpreted; the rest are carried in Line.
func (h *Header) Parse(line string) (*Record, error) {
	line = strings.TrimRight(line, "\r\n")
	r := &Record{Line: line, hdr: h, Desig: h.Field(line, Desig)}
	if r.Desig == "" {
		return nil, fmt.Errorf("%w: no designation", ErrRecord)
	}
	bad := func(name string, e error) error {
		return fmt.Errorf("%w: %s %s: %v", ErrRecord, r.Desig, name, e)
	}
	el := &r.Elements
	tp, err := ParseDate(h.Field(line, Tp))
	if err != nil {
		return nil, bad(Tp, err)
	}
	if el.Epoch, err = ParseDate(h.Field(line, Epoch)); err != nil {
		return nil, bad(Epoch, err)
	}
	el.SetTimeP(tp)
	var f [5]float64
	for i, c := range []string{Q, Ecc, Incl, Peri, Node} {
		if f[i], err = strconv.ParseFloat(h.Field(line, c), 64); err != nil {
			return nil, bad(c, err)
		}
	}
	el.Q, el.Ecc = f[0], f[1]
	el.Inc = unit.AngleFromDeg(f[2])
	el.ArgP = unit.AngleFromDeg(f[3])
	el.Node = unit.AngleFromDeg(f[4])
	switch {
	case !(el.Q > 0):
		return nil, bad(Q, errors.New("not positive"))
	case !(el.Ecc >= 0):
		return nil, bad(Ecc, errors.New("negative"))
	case !(f[2] >= 0 && f[2] <= 180):
		return nil, bad(Incl, errors.New("out of range"))
	}
	return r, nil
}

// Decimal places written for element columns, most and fewest.  Values
// are written with the most that fit the column.
const (
	maxDateDec, minDateDec   = 7, 4
	maxQEDec, minQEDec       = 10, 5
	maxAngleDec, minAngleDec = 8, 4
)

// fit returns f(d) for the largest d in [min, max] whose result fits a
// column of width w, leaving a blank.  w < 0 is an open last column.  If
// nothing fits the result for min is returned.
func fit(w, min, max int, f func(d int) string) string {
	for d := max; d > min; d-- {
		if v := f(d); w < 0 || len(v) < w {
			return v
		}
	}
	return f(min)
}

func decimal(x float64) func(int) string {
	return func(d int) string { return strconv.FormatFloat(x, 'f', d, 64) }
}

// Format formats an output line for r with elements el and provenance src.
// Element columns are written from el; other columns are copied from the
// input line.
func (h *Header) Format(r *Record, el *kepel.Elements, src string) (string, error) {
	var b strings.Builder
	for i, name := range h.names {
		s, e := h.span(i)
		w := -1
		if e >= 0 {
			w = e - s
		}
		var v string
		switch name {
		case Tp:
			tp := el.TimeP()
			v = fit(w, minDateDec, maxDateDec, func(d int) string { return formatDate(tp, d) })
		case Epoch:
			v = fit(w, minDateDec, maxDateDec, func(d int) string { return formatDate(el.Epoch, d) })
		case Q:
			v = fit(w, minQEDec, maxQEDec, decimal(el.Q))
		case Ecc:
			v = fit(w, minQEDec, maxQEDec, decimal(el.Ecc))
		case Incl:
			v = fit(w, minAngleDec, maxAngleDec, decimal(el.Inc.Deg()))
		case Peri:
			v = fit(w, minAngleDec, maxAngleDec, decimal(el.ArgP.Mod1().Deg()))
		case Node:
			v = fit(w, minAngleDec, maxAngleDec, decimal(el.Node.Mod1().Deg()))
		case Src:
			v = src
		default:
			v = strings.TrimRight(r.hdr.Raw(r.Line, name), " ")
		}
		if b.Len() < s {
			b.WriteString(strings.Repeat(" ", s-b.Len()))
		}
		if e >= 0 && len(v) >= e-s {
			return "", fmt.Errorf("%w: %s %s %q", ErrWidth, r.Desig, name, v)
		}
		b.WriteString(v)
	}
	return strings.TrimRight(b.String(), " "), nil
}

// ParseDate parses a TT calendar date "YYYY MM DD.ddddddd" to JDE.
func ParseDate(s string) (float64, error) {
	f := strings.Fields(s)
	if len(f) != 3 {
		return 0, fmt.Errorf("date %q", s)
	}
	y, err := strconv.Atoi(f[0])
	if err != nil {
		return 0, err
	}
	m, err := strconv.Atoi(f[1])
	if err != nil {
		return 0, err
	}
	if m < 1 || m > 12 {
		return 0, fmt.Errorf("month %d", m)
	}
	d, err := strconv.ParseFloat(f[2], 64)
	if err != nil {
		return 0, err
	}
	if d < 1 || d >= 32 {
		return 0, fmt.Errorf("day %g", d)
	}
	return julian.CalendarGregorianToJD(y, m, d), nil
}

// FormatDate formats a JDE as a TT calendar date with seven decimals of
// day.
func FormatDate(jde float64) string {
	return formatDate(jde, maxDateDec)
}

// formatDate formats a JDE as a TT calendar date with dec decimals of day.
func formatDate(jde float64, dec int) string {
	// round at the fraction of day so 31.99999999 carries into the month
	x := jde + .5
	day := math.Floor(x)
	p := math.Pow(10, float64(dec))
	frac := math.Round((x-day)*p) / p
	if frac >= 1 {
		day++
		frac = 0
	}
	y, m, d := julian.JDToCalendar(day - .5)
	return fmt.Sprintf("%4d %02d %0*.*f", y, m, dec+3, dec, math.Round(d)+frac)
}

// Public domain.

package update

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/soniakeys/encke/internal/catalog"
	"github.com/soniakeys/encke/internal/perturb"
)

var params = Params{
	Target:      2460200.5,
	Tolerance:   1e-12,
	MacroStep:   20,
	Perturbers:  perturb.All,
	Relativity:  true,
	RadiusFudge: 1.2,
	Backend:     "kepler",
	Promoted:    Digest("Ceres", "1 ..."),
}

// fakeRun formats every record of a catalog as output, unchanged
// elements, with provenance.
func fakeRun(t *testing.T, in string) (string, *catalog.Header) {
	cr, err := catalog.NewReader(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	out := cr.Header.Output()
	var b strings.Builder
	b.WriteString(out.Line + "\n")
	for cr.Scan() {
		rec, err := cr.Header.Parse(cr.Line())
		if err != nil {
			t.Fatal(err)
		}
		line, err := out.Format(rec, &rec.Elements, Src(cr.Header, cr.Line(), params))
		if err != nil {
			t.Fatal(err)
		}
		b.WriteString(line + "\n")
	}
	return b.String(), out
}

func synth(t *testing.T) string {
	var b bytes.Buffer
	if err := catalog.Synthesize(&b, 20, 3, 2460000.5, false); err != nil {
		t.Fatal(err)
	}
	return b.String()
}

// changeH replaces the H value of the nth record line.
func changeH(t *testing.T, cat string, n int) string {
	lines := strings.Split(cat, "\n")
	col := strings.Index(lines[1], " H ") + 1
	if col == 0 {
		t.Fatal("no H column")
	}
	l := lines[2+n]
	lines[2+n] = l[:col] + "99.99" + l[col+5:]
	return strings.Join(lines, "\n")
}

func TestOneChanged(t *testing.T) {
	a := synth(t)
	prev, out := fakeRun(t, a)
	x, err := Load(strings.NewReader(prev), out)
	if err != nil {
		t.Fatal(err)
	}
	if x.Len() != 20 {
		t.Fatal("indexed", x.Len())
	}
	b := changeH(t, a, 7)
	cr, err := catalog.NewReader(strings.NewReader(b))
	if err != nil {
		t.Fatal(err)
	}
	var missed []string
	for cr.Scan() {
		line := cr.Line()
		if _, ok := x.Lookup(cr.Header, line, Src(cr.Header, line, params)); !ok {
			missed = append(missed, cr.Header.Field(line, catalog.Desig))
		}
	}
	if len(missed) != 1 || missed[0] != "S0000008" {
		t.Fatal("re-integrated", missed)
	}
}

func TestParamsInvalidate(t *testing.T) {
	a := synth(t)
	prev, out := fakeRun(t, a)
	x, err := Load(strings.NewReader(prev), out)
	if err != nil {
		t.Fatal(err)
	}
	for _, tc := range []struct {
		name   string
		change func(*Params)
	}{
		{"target", func(p *Params) { p.Target++ }},
		{"tolerance", func(p *Params) { p.Tolerance = 1e-10 }},
		{"step", func(p *Params) { p.MacroStep = 40 }},
		{"perturbers", func(p *Params) { p.Perturbers = perturb.Planets }},
		{"relativity", func(p *Params) { p.Relativity = false }},
		{"radius fudge", func(p *Params) { p.RadiusFudge = 500 }},
		{"backend", func(p *Params) { p.Backend = "vsop87" }},
		{"promoted", func(p *Params) { p.Promoted = Digest("Ceres", "1 changed") }},
	} {
		p := params
		tc.change(&p)
		cr, _ := catalog.NewReader(strings.NewReader(a))
		for cr.Scan() {
			line := cr.Line()
			if _, ok := x.Lookup(cr.Header, line, Src(cr.Header, line, p)); ok {
				t.Fatal("reused output after changing", tc.name)
			}
		}
	}
}

func TestDigest(t *testing.T) {
	if Digest("ab", "c") == Digest("a", "bc") {
		t.Fatal("fields ran together")
	}
	if d := Digest(); len(d) != 16 {
		t.Fatal("digest length", d)
	}
}

func TestCollision(t *testing.T) {
	a := synth(t)
	prev, out := fakeRun(t, a)
	x, err := Load(strings.NewReader(prev), out)
	if err != nil {
		t.Fatal(err)
	}
	cr, _ := catalog.NewReader(strings.NewReader(a))
	cr.Scan()
	first := cr.Line()
	cr.Scan()
	second := cr.Line()
	// make the second record's key point only at the first record's line
	k := KeyOf(cr.Header, second)
	x.byKey[k] = []int{0}
	if _, ok := x.Lookup(cr.Header, second, Src(cr.Header, second, params)); ok {
		t.Fatal("colliding key served the wrong record")
	}
	got, ok := x.Lookup(cr.Header, first, Src(cr.Header, first, params))
	if !ok || out.Field(got, catalog.Desig) != "S0000001" {
		t.Fatal("first record lookup", got)
	}
}

func TestLayout(t *testing.T) {
	a := synth(t)
	prev, _ := fakeRun(t, a)
	other, _ := catalog.ParseHeader(strings.Replace(catalog.SynthHeader(), "Desig ", "Desig  ", 1) + " Src")
	if _, err := Load(strings.NewReader(prev), other); !errors.Is(err, ErrLayout) {
		t.Fatal(err)
	}
	var nilIndex *Index
	if _, ok := nilIndex.Lookup(other, "x", "y"); ok {
		t.Fatal("nil index hit")
	}
}

func TestKeyStable(t *testing.T) {
	h, _ := catalog.ParseHeader(catalog.SynthHeader())
	lines := strings.Split(synth(t), "\n")
	if KeyOf(h, lines[2]) != KeyOf(h, lines[2]) {
		t.Fatal("key not deterministic")
	}
	if KeyOf(h, lines[2]) == KeyOf(h, lines[3]) {
		t.Fatal("distinct records share a key")
	}
}

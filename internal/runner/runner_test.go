// Public domain.

package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/soniakeys/encke/internal/catalog"
	"github.com/soniakeys/encke/internal/encke"
	"github.com/soniakeys/encke/internal/perturb"
)

const epoch = 2460000.5

func testOptions(workers int) Options {
	cfg := encke.DefaultConfig()
	cfg.Tolerance = 1e-10
	return Options{
		Target:  epoch + 60,
		Engine:  cfg,
		Backend: "kepler",
		Workers: workers,
	}
}

func synth(t *testing.T, n int, promote bool) string {
	var b bytes.Buffer
	if err := catalog.Synthesize(&b, n, 11, epoch, promote); err != nil {
		t.Fatal(err)
	}
	return b.String()
}

func runString(t *testing.T, in string, opt Options) (string, *Summary) {
	var out bytes.Buffer
	sum, err := Run(context.Background(), strings.NewReader(in), &out, opt)
	if err != nil {
		t.Fatal(err)
	}
	return out.String(), sum
}

func TestWorkerCountEquivalence(t *testing.T) {
	in := synth(t, 16, true)
	one, s1 := runString(t, in, testOptions(1))
	four, s4 := runString(t, in, testOptions(4))
	if one != four {
		t.Fatal("output differs between 1 and 4 workers")
	}
	if s1.Integrated != 16 || s4.Integrated != 16 {
		t.Fatal("integrated", s1.Integrated, s4.Integrated)
	}
	if s1.Perturbers != perturb.All.String() {
		t.Fatal("perturbers", s1.Perturbers)
	}
	// every record line carries the new epoch
	lines := strings.Split(strings.TrimSpace(one), "\n")
	if len(lines) != 18 {
		t.Fatal("lines", len(lines))
	}
	h, err := catalog.ParseHeader(lines[1])
	if err != nil {
		t.Fatal(err)
	}
	want := catalog.FormatDate(epoch + 60)
	for _, l := range lines[2:] {
		if got := h.Field(l, catalog.Epoch); got != want {
			t.Fatal("epoch", got)
		}
	}
}

func TestMissingAsteroidPerturbers(t *testing.T) {
	_, sum := runString(t, synth(t, 4, false), testOptions(2))
	if sum.Perturbers != perturb.Planets.String() {
		t.Fatal("perturbers", sum.Perturbers)
	}
}

func TestPassAndCopyThrough(t *testing.T) {
	in := synth(t, 3, false)
	lines := strings.Split(strings.TrimSpace(in), "\n")
	// a record already at the target epoch, a junk line, and a comment
	opt := testOptions(2)
	opt.Target = epoch
	in = strings.Join(append(lines, "junk record", "# note"), "\n") + "\n"
	out, sum := runString(t, in, opt)
	if sum.CopiedThrough != 3 || sum.PassedThrough != 1 || sum.Records != 4 {
		t.Fatalf("%+v", sum)
	}
	if !strings.Contains(out, "\njunk record\n# note\n") {
		t.Fatal("pass through lines missing:\n", out)
	}
	if sum.CacheSteps != 0 {
		t.Fatal("cache built for a zero span")
	}
}

func TestFailureFallback(t *testing.T) {
	in := synth(t, 2, false)
	opt := testOptions(1)
	opt.Engine.Tolerance = 1e-300 // forces step underflow
	_, sum := runString(t, in, opt)
	if sum.Failed != 2 {
		t.Fatalf("%+v", sum)
	}
	opt.IncludeUnperturbed = true
	out, sum := runString(t, in, opt)
	if sum.Fallback != 2 {
		t.Fatalf("%+v", sum)
	}
	if !strings.Contains(out, catalog.FormatDate(epoch+60)) {
		t.Fatal("fallback not propagated")
	}
}

// relayout rewrites a catalog with the given column widths, cutting each
// field to leave a blank before the next column.
func relayout(t *testing.T, in string, widths map[string]int) string {
	cr, err := catalog.NewReader(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	cols := append([]string{}, catalog.Columns...)
	row := func(field func(string) string) string {
		var b strings.Builder
		for _, c := range cols {
			w := widths[c]
			v := field(c)
			if w > 0 && len(v) >= w {
				v = v[:w-1]
			}
			fmt.Fprintf(&b, "%-*s", w, v)
		}
		return strings.TrimRight(b.String(), " ") + "\n"
	}
	out := row(func(c string) string { return c })
	for cr.Scan() {
		out += row(func(c string) string { return cr.Header.Field(cr.Line(), c) })
	}
	return out
}

func TestNarrowColumns(t *testing.T) {
	widths := map[string]int{
		catalog.Desig: 9, catalog.Tp: 16, catalog.Epoch: 16, catalog.Q: 11,
		catalog.Incl: 10, catalog.Node: 10, catalog.Peri: 10, catalog.Ecc: 9,
		catalog.RMS: 5, catalog.Obs: 5, catalog.Arc: 10, catalog.H: 6,
	}
	in := relayout(t, synth(t, 4, false), widths)
	out, sum := runString(t, in, testOptions(2))
	if sum.Records != 4 || sum.Integrated != 4 || sum.Failed != 0 {
		t.Fatalf("%+v", sum)
	}
	if !strings.Contains(out, catalog.FormatDate(epoch+60)[:15]) {
		t.Fatal("not propagated:\n", out)
	}
	// a q column too narrow for any written precision passes records
	// through, counted once as failed
	widths[catalog.Q] = 7
	in = relayout(t, synth(t, 4, false), widths)
	out, sum = runString(t, in, testOptions(2))
	if sum.Records != 4 || sum.Integrated != 0 || sum.Failed != 4 {
		t.Fatalf("%+v", sum)
	}
	for _, l := range strings.Split(strings.TrimSpace(in), "\n")[1:] {
		if !strings.Contains(out, l+"\n") {
			t.Fatal("record not passed through:", l)
		}
	}
}

func TestIncremental(t *testing.T) {
	dir := t.TempDir()
	a := synth(t, 12, false)
	prevPath := filepath.Join(dir, "a.out")
	first, _ := runString(t, a, testOptions(3))
	if err := os.WriteFile(prevPath, []byte(first), 0666); err != nil {
		t.Fatal(err)
	}
	// change H of the 6th record
	lines := strings.Split(a, "\n")
	col := strings.Index(lines[1], " H ") + 1
	l := lines[2+5]
	lines[2+5] = l[:col] + "99.99" + l[col+5:]
	b := strings.Join(lines, "\n")

	opt := testOptions(3)
	opt.Previous = prevPath
	second, sum := runString(t, b, opt)
	if sum.Reused != 11 || sum.Integrated != 1 {
		t.Fatalf("%+v", sum)
	}
	// everything but the changed line is identical
	fl := strings.Split(first, "\n")
	sl := strings.Split(second, "\n")
	for i := range fl {
		if (fl[i] != sl[i]) != (i == 2+5) {
			t.Fatal("line", i)
		}
	}
}

func TestIncrementalInvalidation(t *testing.T) {
	dir := t.TempDir()
	in := synth(t, 8, true)
	prevPath := filepath.Join(dir, "prev.out")
	first, _ := runString(t, in, testOptions(2))
	if err := os.WriteFile(prevPath, []byte(first), 0666); err != nil {
		t.Fatal(err)
	}

	// unchanged input and settings reuse everything
	opt := testOptions(2)
	opt.Previous = prevPath
	if _, sum := runString(t, in, opt); sum.Reused != 8 {
		t.Fatalf("%+v", sum)
	}

	// a different softening radius changes every result
	opt.Engine.RadiusFudge = 500
	if _, sum := runString(t, in, opt); sum.Reused != 0 || sum.Integrated != 8 {
		t.Fatalf("radius fudge: %+v", sum)
	}

	// so does a change to Ceres, which perturbs every other record
	lines := strings.Split(in, "\n")
	h, err := catalog.ParseHeader(lines[1])
	if err != nil {
		t.Fatal(err)
	}
	ceres := lines[2]
	if h.Field(ceres, catalog.Desig) != "1" {
		t.Fatal("first record not Ceres", ceres)
	}
	q := h.Field(ceres, catalog.Q)
	i := strings.Index(ceres, q) + len(q) - 1
	d := '1'
	if ceres[i] == '1' {
		d = '2'
	}
	lines[2] = ceres[:i] + string(d) + ceres[i+1:]
	opt = testOptions(2)
	opt.Previous = prevPath
	if _, sum := runString(t, strings.Join(lines, "\n"), opt); sum.Reused != 0 || sum.Integrated != 8 {
		t.Fatalf("Ceres changed: %+v", sum)
	}
}

func TestWorkerPanicFailsRun(t *testing.T) {
	dir := t.TempDir()
	inPath := filepath.Join(dir, "in")
	outPath := filepath.Join(dir, "out")
	if err := os.WriteFile(inPath, []byte(synth(t, 12, false)), 0666); err != nil {
		t.Fatal(err)
	}
	opt := testOptions(4)
	opt.fault = func(w int, line string) {
		if strings.HasPrefix(line, "S0000007") {
			panic("worker crashed")
		}
	}
	_, err := RunFiles(context.Background(), inPath, outPath, "", opt)
	if err == nil || !strings.Contains(err.Error(), "panic") {
		t.Fatal("expected panic error, got", err)
	}
	if _, err := os.Stat(outPath); !os.IsNotExist(err) {
		t.Fatal("output left behind")
	}
	ents, _ := os.ReadDir(dir)
	if len(ents) != 1 {
		t.Fatal("temp files left behind", ents)
	}
}

func TestRunFilesSamples(t *testing.T) {
	dir := t.TempDir()
	inPath := filepath.Join(dir, "in")
	outPath := filepath.Join(dir, "out")
	smpPath := filepath.Join(dir, "samples")
	if err := os.WriteFile(inPath, []byte(synth(t, 2, false)), 0666); err != nil {
		t.Fatal(err)
	}
	if _, err := RunFiles(context.Background(), inPath, outPath, smpPath, testOptions(2)); err != nil {
		t.Fatal(err)
	}
	smp, err := os.ReadFile(smpPath)
	if err != nil {
		t.Fatal(err)
	}
	// start, grid boundaries at JD 2460005, 2460025, 2460045, and target
	if n := strings.Count(string(smp), "\n"); n != 10 {
		t.Fatal("samples", n, string(smp))
	}
	if !strings.HasPrefix(string(smp), "S0000001") {
		t.Fatal(string(smp))
	}
}

func TestBadHeader(t *testing.T) {
	_, err := Run(context.Background(), strings.NewReader("Desig q e\n"), &bytes.Buffer{}, testOptions(1))
	if !errors.Is(err, catalog.ErrHeader) {
		t.Fatal(err)
	}
}

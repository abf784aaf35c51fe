// Public domain.

package catalog

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/soniakeys/astro"
	xrand "golang.org/x/exp/rand"
)

// column widths of synthesized catalogs, last is open
var synthCols = []struct {
	name  string
	width int
}{
	{Desig, 12}, {Tp, 20}, {Epoch, 20}, {Q, 15}, {Incl, 14}, {Node, 14},
	{Peri, 14}, {Ecc, 14}, {RMS, 7}, {Obs, 6}, {Arc, 11}, {H, 7}, {G, 0},
}

// SynthHeader returns the header line used by Synthesize.
func SynthHeader() string {
	var b strings.Builder
	for _, c := range synthCols {
		fmt.Fprintf(&b, "%-*s", c.width, c.name)
	}
	return b.String()
}

// approximate osculating elements of the promotable asteroids:
// a, e, i, node, peri, mean anomaly at J2000.
var bigThree = []struct {
	desig string
	el    [6]float64
}{
	{"1", [6]float64{2.7675, .0758, 10.583, 80.49, 73.92, 6.77}},
	{"2", [6]float64{2.7725, .2310, 34.847, 173.10, 310.06, 352.96}},
	{"4", [6]float64{2.3618, .0901, 7.134, 103.91, 149.85, 341.86}},
}

// Synthesize writes a reproducible catalog of n random main belt orbits
// at epoch.  If promote is true the first three records are Ceres,
// Pallas, and Vesta.
func Synthesize(w io.Writer, n int, seed uint64, epoch float64, promote bool) error {
	rnd := xrand.New(&xrand.PCGSource{})
	rnd.Seed(seed)
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# synthetic catalog, seed %d\n", seed)
	fmt.Fprintln(bw, strings.TrimRight(SynthHeader(), " "))
	for i := 0; i < n; i++ {
		var desig string
		var a, e, inc, node, peri, m float64
		if promote && i < len(bigThree) {
			b := bigThree[i]
			desig = b.desig
			a, e, inc, node, peri = b.el[0], b.el[1], b.el[2], b.el[3], b.el[4]
			nm := astro.K / (a * math.Sqrt(a)) * 180 / math.Pi // deg/day
			m = math.Mod(b.el[5]+nm*(epoch-2451545), 360)
		} else {
			desig = fmt.Sprintf("S%07d", i+1)
			a = 1.8 + 1.7*rnd.Float64()
			e = .3 * rnd.Float64()
			inc = 25 * rnd.Float64()
			node = 360 * rnd.Float64()
			peri = 360 * rnd.Float64()
			m = 360 * rnd.Float64()
		}
		nm := astro.K / (a * math.Sqrt(a)) // rad/day
		tp := epoch - m*math.Pi/180/nm
		first := 1990 + rnd.Intn(25)
		vals := []string{
			desig,
			FormatDate(tp),
			FormatDate(epoch),
			fmt.Sprintf("%.10f", a*(1-e)),
			fmt.Sprintf("%.8f", inc),
			fmt.Sprintf("%.8f", node),
			fmt.Sprintf("%.8f", peri),
			fmt.Sprintf("%.10f", e),
			fmt.Sprintf("%.2f", .2+.6*rnd.Float64()),
			fmt.Sprint(20 + rnd.Intn(3000)),
			fmt.Sprintf("%d-%d", first, first+1+rnd.Intn(10)),
			fmt.Sprintf("%.2f", 10+10*rnd.Float64()),
			"0.15",
		}
		var b strings.Builder
		for j, c := range synthCols {
			fmt.Fprintf(&b, "%-*s", c.width, vals[j])
		}
		fmt.Fprintln(bw, strings.TrimRight(b.String(), " "))
	}
	return bw.Flush()
}

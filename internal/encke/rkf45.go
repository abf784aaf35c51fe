// Public domain.

package encke

// Stages are the Runge-Kutta-Fehlberg 4(5) stage fractions.  The perturber
// cache is built at these fractions of each macro-step.
var Stages = [6]float64{0, 1. / 4, 3. / 8, 12. / 13, 1, 1. / 2}

// Fehlberg tableau
var rkA = [6][5]float64{
	{},
	{1. / 4},
	{3. / 32, 9. / 32},
	{1932. / 2197, -7200. / 2197, 7296. / 2197},
	{439. / 216, -8, 3680. / 513, -845. / 4104},
	{-8. / 27, 2, -3544. / 2565, 1859. / 4104, -11. / 40},
}

var (
	// fifth order weights
	rkB = [6]float64{16. / 135, 0, 6656. / 12825, 28561. / 56430, -9. / 50, 2. / 55}
	// fifth minus fourth order weights
	rkE = [6]float64{1. / 360, 0, -128. / 4275, -2197. / 75240, 1. / 50, 2. / 55}
)

// step takes one RKF45 step of size h from time t and deviation d.
// It returns the fifth order result and, if errv is not nil, stores the
// difference from the embedded fourth order result in errv.
func (w *Integrator) step(t, h float64, d *Deviation, errv *Deviation) (Deviation, error) {
	k := &w.k
	for s := range Stages {
		y := *d
		for j := 0; j < s; j++ {
			a := rkA[s][j] * h
			if a == 0 {
				continue
			}
			for c := range y {
				y[c] += a * k[j][c]
			}
		}
		var err error
		if k[s], err = w.deriv(t+Stages[s]*h, &y); err != nil {
			return Deviation{}, err
		}
	}
	n := *d
	for c := range n {
		var sb, se float64
		for s := range Stages {
			sb += rkB[s] * k[s][c]
			se += rkE[s] * k[s][c]
		}
		n[c] += h * sb
		if errv != nil {
			errv[c] = h * se
		}
	}
	return n, nil
}

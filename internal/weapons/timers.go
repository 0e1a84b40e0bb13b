// Package weapons holds the per-aircraft cannon, missile hardpoints and the
// missile lock state machine.
package weapons

const timerEpsilon = 1e-9

// countdown decrements t by dt and snaps residues below timerEpsilon to 0.
func countdown(t, dt float64) float64 {
	t -= dt
	if t < timerEpsilon {
		return 0
	}
	return t
}

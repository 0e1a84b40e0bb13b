// Package curve implements piecewise-linear keyframe tables used for
// aerodynamic coefficients.
package curve

import (
	"errors"
	"fmt"
	"sort"
)

var ErrDuplicateKey = errors.New("duplicate curve key")

// Key is a single keyframe.
type Key struct {
	T float64
	V float64
}

// Curve evaluates by linear interpolation between keys and clamps to the
// first/last value outside the keyed range. The zero Curve evaluates to 0.
type Curve struct {
	keys []Key
}

// New sorts keys by T. Two keys sharing a T are rejected.
func New(keys ...Key) (Curve, error) {
	ks := append([]Key(nil), keys...)
	sort.Slice(ks, func(i, j int) bool { return ks[i].T < ks[j].T })
	for i := 1; i < len(ks); i++ {
		if ks[i].T == ks[i-1].T {
			return Curve{}, fmt.Errorf("%w at t=%g", ErrDuplicateKey, ks[i].T)
		}
	}
	return Curve{keys: ks}, nil
}

// MustNew is New for static tables in tests and defaults.
func MustNew(keys ...Key) Curve {
	c, err := New(keys...)
	if err != nil {
		panic(err)
	}
	return c
}

// Constant returns a curve that evaluates to v everywhere.
func Constant(v float64) Curve {
	return Curve{keys: []Key{{T: 0, V: v}}}
}

// FromPairs builds a curve from [[t, v], ...] as found in config files.
func FromPairs(pairs [][]float64) (Curve, error) {
	keys := make([]Key, 0, len(pairs))
	for i, p := range pairs {
		if len(p) != 2 {
			return Curve{}, fmt.Errorf("curve key %d: expected [t, v], got %d values", i, len(p))
		}
		keys = append(keys, Key{T: p[0], V: p[1]})
	}
	return New(keys...)
}

// Pairs is the inverse of FromPairs.
func (c Curve) Pairs() [][]float64 {
	out := make([][]float64, len(c.keys))
	for i, k := range c.keys {
		out[i] = []float64{k.T, k.V}
	}
	return out
}

func (c Curve) Len() int { return len(c.keys) }

func (c Curve) Evaluate(t float64) float64 {
	n := len(c.keys)
	switch {
	case n == 0:
		return 0
	case t <= c.keys[0].T:
		return c.keys[0].V
	case t >= c.keys[n-1].T:
		return c.keys[n-1].V
	}
	i := sort.Search(n, func(i int) bool { return c.keys[i].T >= t })
	a, b := c.keys[i-1], c.keys[i]
	f := (t - a.T) / (b.T - a.T)
	return a.V + (b.V-a.V)*f
}

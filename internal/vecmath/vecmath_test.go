package vecmath

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

const eps = 1e-9

func TestMoveTowards(t *testing.T) {
	tests := []struct {
		name                     string
		value, target, speed, dt float64
		want                     float64
	}{
		{"step limited", 0, 1, 2, 0.1, 0.2},
		{"reaches target", 0.9, 1, 2, 0.1, 1},
		{"moves down", 0.5, 0, 1, 0.1, 0.4},
		{"zero speed holds", 0.5, 1, 0, 0.1, 0.5},
		{"clamped to range", 0.95, 5, 10, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, MoveTowards01(tt.value, tt.target, tt.speed, tt.dt), eps)
		})
	}

	assert.InDelta(t, -3, MoveTowards(0, -10, 100, 1, -3, 3), eps)
}

func TestScale6(t *testing.T) {
	got := Scale6(V(0.5, -0.5, 0), 2, 3, 4, 5, 6, 7)
	assert.InDelta(t, 1.0, got.X, eps)
	assert.InDelta(t, -2.5, got.Y, eps)
	assert.InDelta(t, 0.0, got.Z, eps)

	got = Scale6(V(-1, 1, -1), 2, 3, 4, 5, 6, 7)
	assert.Equal(t, V(-3, 4, -7), got)
}

func TestFirstOrderInterceptStationaryTarget(t *testing.T) {
	target := V(100, 20, -50)
	for _, shooter := range []Vec3{Zero, V(5, 5, 5), V(-300, 0, 12)} {
		for _, speed := range []float64{1, 50, 900} {
			got := FirstOrderIntercept(shooter, Zero, speed, target, Zero)
			assert.Equal(t, target, got)
		}
	}
}

func TestFirstOrderInterceptRoundTrip(t *testing.T) {
	cases := []struct {
		shooter, target, targetVel Vec3
		speed                      float64
	}{
		{Zero, V(0, 0, 1000), V(100, 0, 0), 300},
		{V(10, 50, 0), V(400, 80, 400), V(-50, 0, -20), 250},
		{Zero, V(500, 0, 0), V(0, 30, 0), 31},
	}
	for _, c := range cases {
		relPos := c.target.Sub(c.shooter)
		tm := InterceptTime(c.speed, relPos, c.targetVel)
		assert.Greater(t, tm, 0.0)

		point := FirstOrderIntercept(c.shooter, Zero, c.speed, c.target, c.targetVel)
		advanced := c.target.Add(c.targetVel.Mul(tm))
		assert.True(t, point.ApproxEqual(advanced, 1e-6))
		assert.InDelta(t, c.speed*tm, point.Dist(c.shooter), 1e-6)
	}
}

func TestFirstOrderInterceptUnreachable(t *testing.T) {
	// target runs straight away faster than the shot
	target := V(0, 0, 100)
	got := FirstOrderIntercept(Zero, Zero, 10, target, V(0, 0, 50))
	assert.Equal(t, target, got)
}

func TestAngleAndProject(t *testing.T) {
	assert.InDelta(t, 90, Angle(Forward, Up), eps)
	assert.InDelta(t, 180, Angle(Forward, Forward.Neg()), 1e-6)
	assert.InDelta(t, 0, Angle(Zero, Up), eps)

	p := ProjectOnPlane(V(3, 4, 5), Right)
	assert.Equal(t, V(0, 4, 5), p)
}

func TestRotateTowards(t *testing.T) {
	got := RotateTowards(Forward, Up, 10*Deg2Rad)
	assert.InDelta(t, 10, Angle(Forward, got), 1e-6)
	assert.InDelta(t, 80, Angle(got, Up), 1e-6)
	assert.InDelta(t, 1, got.Len(), eps)

	got = RotateTowards(Forward, Up, math.Pi)
	assert.True(t, got.ApproxEqual(Up, 1e-9))

	got = RotateTowards(Forward.Mul(3), Forward.Neg(), 30*Deg2Rad)
	assert.InDelta(t, 30, Angle(Forward, got), 1e-6)
	assert.InDelta(t, 3, got.Len(), 1e-9)
}

func TestQuat(t *testing.T) {
	q := Euler(0, 90, 0)
	assert.True(t, q.Forward().ApproxEqual(Right, 1e-9))
	assert.InDelta(t, 90, q.Yaw(), 1e-9)

	// positive pitch lowers the nose
	pitch := Euler(10, 0, 0).Forward()
	assert.Less(t, pitch.Y, 0.0)

	inv := q.Inverse().Rotate(q.Rotate(V(1, 2, 3)))
	assert.True(t, inv.ApproxEqual(V(1, 2, 3), 1e-9))

	look := LookRotation(V(1, 0, 1), Up)
	assert.True(t, look.Forward().ApproxEqual(V(1, 0, 1).Normalize(), 1e-9))
	assert.True(t, look.Up().ApproxEqual(Up, 1e-9))

	spun := Identity.Integrate(V(0, math.Pi/2, 0), 1)
	assert.True(t, spun.Forward().ApproxEqual(Right, 1e-9))
}

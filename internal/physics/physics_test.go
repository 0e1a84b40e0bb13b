package physics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OCAP2/dogfight/internal/actor"
	"github.com/OCAP2/dogfight/internal/vecmath"
)

func TestBodyForceModes(t *testing.T) {
	b := NewBody(vecmath.Zero, vecmath.Identity, 2)

	b.AddForce(vecmath.V(4, 0, 0), Force)
	b.AddForce(vecmath.V(0, 1, 0), Acceleration)
	b.Integrate(1)
	assert.InDelta(t, 2, b.Velocity.X, 1e-12)
	assert.InDelta(t, 1, b.Velocity.Y, 1e-12)

	b.AddForce(vecmath.V(0, 0, 5), VelocityChange)
	assert.InDelta(t, 5, b.Velocity.Z, 1e-12, "velocity change is immediate")

	b.Integrate(1)
	assert.InDelta(t, 2, b.Velocity.X, 1e-12, "accumulated forces are cleared")
}

func TestBodyRelativeForce(t *testing.T) {
	b := NewBody(vecmath.Zero, vecmath.Euler(0, 90, 0), 1)
	b.AddRelativeForce(vecmath.Forward, Acceleration)
	b.Integrate(1)
	assert.True(t, b.Velocity.ApproxEqual(vecmath.Right, 1e-9))
}

func TestBodyTorqueIgnoresMass(t *testing.T) {
	b := NewBody(vecmath.Zero, vecmath.Identity, 1000)
	b.AddRelativeTorque(vecmath.V(0, 1, 0), VelocityChange)
	assert.InDelta(t, 1, b.AngularVelocity.Y, 1e-12)
}

func TestBodyFreezeAndKinematic(t *testing.T) {
	b := NewBody(vecmath.V(0, 100, 0), vecmath.Identity, 1)
	b.UseGravity = true
	b.Velocity = vecmath.V(0, 0, 50)
	b.Freeze(vecmath.V(1, 2, 3), vecmath.Identity)
	b.AddForce(vecmath.V(100, 0, 0), VelocityChange)
	b.Integrate(1)
	assert.Equal(t, vecmath.V(1, 2, 3), b.Position)
	assert.Equal(t, vecmath.Zero, b.Velocity)
}

func TestRaycast(t *testing.T) {
	s := NewSpace(0, true)
	near := &Collider{ID: 1, Layer: LayerAircraft, Radius: 1, Body: NewBody(vecmath.V(0, 10, 10), vecmath.Identity, 1)}
	far := &Collider{ID: 2, Layer: LayerAircraft, Radius: 1, Body: NewBody(vecmath.V(0, 10, 20), vecmath.Identity, 1)}
	s.Add(near)
	s.Add(far)

	hit, ok := s.Raycast(vecmath.V(0, 10, 0), vecmath.Forward, 100, LayerAll)
	require.True(t, ok)
	assert.Equal(t, actor.ID(1), hit.ID)
	assert.InDelta(t, 9, hit.Distance, 1e-9)

	hit, ok = s.Raycast(vecmath.V(0, 10, 0), vecmath.Forward, 100, LayerAll, 1)
	require.True(t, ok)
	assert.Equal(t, actor.ID(2), hit.ID, "ignored collider is skipped")

	_, ok = s.Raycast(vecmath.V(0, 10, 0), vecmath.Forward, 5, LayerAll)
	assert.False(t, ok, "out of range")

	_, ok = s.Raycast(vecmath.V(0, 10, 0), vecmath.Forward, 100, LayerProjectile)
	assert.False(t, ok, "masked out")

	hit, ok = s.Raycast(vecmath.V(0, 10, 0), vecmath.V(0, -1, 0), 50, LayerGround)
	require.True(t, ok)
	assert.True(t, hit.Ground)
	assert.InDelta(t, 10, hit.Distance, 1e-9)
}

func TestOverlapSphereStrict(t *testing.T) {
	s := NewSpace(0, false)
	for id, z := range map[actor.ID]float64{1: 15, 2: 25, 3: 20} {
		s.Add(&Collider{ID: id, Layer: LayerAircraft, Radius: 2, Body: NewBody(vecmath.V(0, 0, z), vecmath.Identity, 1)})
	}
	assert.Equal(t, []actor.ID{1}, s.OverlapSphere(vecmath.Zero, 20, LayerAircraft))
	assert.Empty(t, s.OverlapSphere(vecmath.Zero, 20, LayerProjectile))
}

func TestContacts(t *testing.T) {
	s := NewSpace(0, true)
	s.Add(&Collider{ID: 1, Layer: LayerAircraft, Radius: 5, Body: NewBody(vecmath.V(0, 100, 0), vecmath.Identity, 1)})
	s.Add(&Collider{ID: 2, Layer: LayerAircraft, Radius: 5, Body: NewBody(vecmath.V(0, 100, 8), vecmath.Identity, 1)})
	s.Add(&Collider{ID: 3, Layer: LayerAircraft, Radius: 5, Body: NewBody(vecmath.V(500, 3, 0), vecmath.Identity, 1)})

	cs := s.Contacts(LayerAircraft)
	require.Len(t, cs, 2)
	assert.Equal(t, actor.ID(1), cs[0].A)
	assert.Equal(t, actor.ID(2), cs[0].B)
	assert.True(t, cs[1].Ground)
	assert.Equal(t, actor.ID(3), cs[1].A)
	assert.InDelta(t, 0, cs[1].Point.Y, 1e-12)
}

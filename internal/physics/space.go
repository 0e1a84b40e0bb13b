package physics

import (
	"math"
	"sort"

	"github.com/OCAP2/dogfight/internal/actor"
	"github.com/OCAP2/dogfight/internal/vecmath"
)

// Layer is a collision layer bit.
type Layer uint32

const (
	LayerAircraft Layer = 1 << iota
	LayerProjectile
	LayerGround

	LayerAll Layer = math.MaxUint32
)

// Collider is a sphere attached to a body.
type Collider struct {
	ID     actor.ID
	Layer  Layer
	Radius float64
	Body   *Body
}

// Hit describes a raycast result. Ground hits carry actor.None.
type Hit struct {
	ID       actor.ID
	Point    vecmath.Vec3
	Normal   vecmath.Vec3
	Distance float64
	Ground   bool
}

// Space holds the colliders of one replica and an optional flat ground
// plane at GroundHeight.
type Space struct {
	GroundHeight float64
	HasGround    bool

	colliders map[actor.ID]*Collider
}

func NewSpace(groundHeight float64, hasGround bool) *Space {
	return &Space{
		GroundHeight: groundHeight,
		HasGround:    hasGround,
		colliders:    make(map[actor.ID]*Collider),
	}
}

func (s *Space) Add(c *Collider) { s.colliders[c.ID] = c }

func (s *Space) Remove(id actor.ID) { delete(s.colliders, id) }

func (s *Space) Get(id actor.ID) (*Collider, bool) {
	c, ok := s.colliders[id]
	return c, ok
}

func (s *Space) Len() int { return len(s.colliders) }

// Raycast returns the nearest hit within maxDist along dir. Colliders not in
// mask and those listed in ignore are skipped.
func (s *Space) Raycast(origin, dir vecmath.Vec3, maxDist float64, mask Layer, ignore ...actor.ID) (Hit, bool) {
	d := dir.Normalize()
	if d == vecmath.Zero || maxDist <= 0 {
		return Hit{}, false
	}

	best := Hit{Distance: math.Inf(1)}
	found := false

	for _, c := range s.sorted() {
		if c.Layer&mask == 0 || contains(ignore, c.ID) {
			continue
		}
		t, ok := raySphere(origin, d, c.Body.Position, c.Radius)
		if !ok || t > maxDist || t >= best.Distance {
			continue
		}
		p := origin.Add(d.Mul(t))
		best = Hit{ID: c.ID, Point: p, Normal: p.Sub(c.Body.Position).Normalize(), Distance: t}
		found = true
	}

	if s.HasGround && mask&LayerGround != 0 && d.Y < 0 {
		t := (s.GroundHeight - origin.Y) / d.Y
		if t >= 0 && t <= maxDist && t < best.Distance {
			best = Hit{Point: origin.Add(d.Mul(t)), Normal: vecmath.Up, Distance: t, Ground: true}
			found = true
		}
	}
	return best, found
}

// OverlapSphere returns the IDs of colliders in mask whose centre lies
// strictly within radius of center, in ID order.
func (s *Space) OverlapSphere(center vecmath.Vec3, radius float64, mask Layer) []actor.ID {
	var out []actor.ID
	for _, c := range s.sorted() {
		if c.Layer&mask == 0 {
			continue
		}
		if c.Body.Position.Dist(center) < radius {
			out = append(out, c.ID)
		}
	}
	return out
}

// Contact is a pairwise overlap or a ground penetration.
type Contact struct {
	A, B   actor.ID // B is actor.None for ground contacts
	Point  vecmath.Vec3
	Ground bool
}

// Contacts reports overlapping collider pairs and ground penetrations for
// colliders in mask.
func (s *Space) Contacts(mask Layer) []Contact {
	cs := s.sorted()
	var out []Contact
	for i, a := range cs {
		if a.Layer&mask == 0 || a.Body.Kinematic {
			continue
		}
		if s.HasGround && a.Body.Position.Y-a.Radius <= s.GroundHeight {
			p := a.Body.Position
			p.Y = s.GroundHeight
			out = append(out, Contact{A: a.ID, Point: p, Ground: true})
		}
		for _, b := range cs[i+1:] {
			if b.Layer&mask == 0 || b.Body.Kinematic {
				continue
			}
			delta := b.Body.Position.Sub(a.Body.Position)
			if delta.Len() < a.Radius+b.Radius {
				out = append(out, Contact{
					A:     a.ID,
					B:     b.ID,
					Point: a.Body.Position.Add(delta.Normalize().Mul(a.Radius)),
				})
			}
		}
	}
	return out
}

func (s *Space) sorted() []*Collider {
	out := make([]*Collider, 0, len(s.colliders))
	for _, c := range s.colliders {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// raySphere returns the distance to the first intersection of a unit ray
// with a sphere. Origins inside the sphere hit at distance 0.
func raySphere(origin, dir, center vecmath.Vec3, radius float64) (float64, bool) {
	m := origin.Sub(center)
	c := m.SqrLen() - radius*radius
	if c <= 0 {
		return 0, true
	}
	b := m.Dot(dir)
	if b > 0 {
		return 0, false
	}
	disc := b*b - c
	if disc < 0 {
		return 0, false
	}
	return -b - math.Sqrt(disc), true
}

func contains(ids []actor.ID, id actor.ID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

package projectile

import (
	"github.com/OCAP2/dogfight/internal/actor"
	"github.com/OCAP2/dogfight/internal/authority"
	"github.com/OCAP2/dogfight/internal/physics"
	"github.com/OCAP2/dogfight/internal/vecmath"
)

type MissileConfig struct {
	Lifetime      float64
	Speed         float64
	TrackingAngle float64 // degrees
	Damage        float64
	DamageRadius  float64
	TurningGForce float64
	SettleTime    float64 // seconds the wreck lingers after detonation
	Mask          physics.Layer
	DamageMask    physics.Layer
}

// TurnRate is the maximum turn rate in rad/s for a sustained TurningGForce
// at Speed.
func (c MissileConfig) TurnRate() float64 {
	if c.Speed <= 0 {
		return 0
	}
	return c.TurningGForce * vecmath.Gravity / c.Speed
}

// Missile flies at a fixed speed along its nose and steers toward the
// first-order intercept of its target.
type Missile struct {
	ID     actor.ID
	Owner  actor.ID
	Target actor.ID // actor.None when launched without lock
	Tag    authority.Tag

	cfg      MissileConfig
	body     *physics.Body
	timer    float64
	exploded bool
	settle   float64
	lastPos  vecmath.Vec3
	start    vecmath.Vec3
	flight   float64
	outcome  Outcome
	hit      actor.ID
}

// Launch creates a missile on body. The caller registers it with Register
// once its world can locate it.
func Launch(id, owner, tgt actor.ID, tag authority.Tag, body *physics.Body, cfg MissileConfig) *Missile {
	m := &Missile{
		ID:     id,
		Owner:  owner,
		Target: tgt,
		Tag:    tag,
		cfg:    cfg,
		body:   body,
		timer:  cfg.Lifetime,
	}
	if body != nil {
		body.Velocity = body.Rotation.Forward().Mul(cfg.Speed)
		m.lastPos = body.Position
		m.start = body.Position
	}
	return m
}

// Register adds the missile to its target's incoming list. Registration
// sorts the list, so w.Locate must already resolve the missile.
func (m *Missile) Register(w World) {
	if !m.Target.Valid() {
		return
	}
	if rec, ok := w.TargetRecord(m.Target); ok {
		rec.NotifyMissile(m.ID, true, w.Locate)
	}
}

func (m *Missile) Exploded() bool { return m.exploded }

func (m *Missile) Body() *physics.Body { return m.body }

// SetBody attaches a physics body, for example after a mirror promotion.
func (m *Missile) SetBody(b *physics.Body) { m.body = b }

func (m *Missile) Remaining() float64 { return m.timer }

// Tick advances the missile on its state-authoritative replica and reports
// whether it should be despawned now. A missing body aborts this missile's
// update and leaves its state unchanged.
func (m *Missile) Tick(dt float64, w World) (bool, error) {
	if !m.Tag.HasState() {
		return false, nil
	}
	if m.exploded {
		m.settle -= dt
		return m.settle <= timerEpsilon, nil
	}
	if m.body == nil {
		return false, ErrMissingBody
	}

	m.timer -= dt
	if m.timer <= timerEpsilon {
		m.outcome = OutcomeExpired
		m.Detonate(w)
		return m.settled(), nil
	}

	// the body moved along last tick's velocity; sweep that segment
	m.body.Integrate(dt)
	m.flight += dt
	if m.checkCollision(w) {
		return m.settled(), nil
	}

	if m.track(dt, w) {
		return m.settled(), nil
	}

	m.body.Velocity = m.body.Rotation.Forward().Mul(m.cfg.Speed)
	m.lastPos = m.body.Position
	return false, nil
}

func (m *Missile) checkCollision(w World) bool {
	cur := m.body.Position
	move := cur.Sub(m.lastPos)
	hit, ok := w.Space().Raycast(m.lastPos, move, move.Len(), m.cfg.Mask, m.Owner, m.ID)
	m.lastPos = cur
	if !ok {
		return false
	}
	m.body.Position = hit.Point
	m.hit = hit.ID
	m.outcome = OutcomeHit
	m.Detonate(w)
	return true
}

// track steers toward the intercept point. It returns true when the
// intercept falls outside the seeker cone and the missile self-destructs.
func (m *Missile) track(dt float64, w World) bool {
	if !m.Target.Valid() {
		return false
	}
	rec, ok := w.TargetRecord(m.Target)
	if !ok {
		// target despawned: fly on unguided
		return false
	}

	pos := m.body.Position
	fwd := m.body.Rotation.Forward()
	intercept := vecmath.FirstOrderIntercept(pos, vecmath.Zero, m.cfg.Speed, rec.Position(), rec.Velocity())
	dir := intercept.Sub(pos).Normalize()
	if dir == vecmath.Zero {
		return false
	}

	if vecmath.Angle(fwd, dir) > m.cfg.TrackingAngle {
		m.outcome = OutcomeLostTrack
		m.Detonate(w)
		return true
	}

	next := vecmath.RotateTowards(fwd, dir, m.cfg.TurnRate()*dt)
	m.body.Rotation = vecmath.LookRotation(next, vecmath.Up)
	return false
}

// Detonate applies flat splash damage to every aircraft other than the owner
// whose centre lies within DamageRadius. Calling it again is a no-op.
func (m *Missile) Detonate(w World) {
	if m.exploded {
		return
	}
	m.exploded = true
	if m.outcome == OutcomeNone {
		m.outcome = OutcomeDetonated
	}
	m.settle = m.cfg.SettleTime

	var center vecmath.Vec3
	if m.body != nil {
		center = m.body.Position
		m.body.Freeze(center, m.body.Rotation)
	}

	for _, id := range w.Space().OverlapSphere(center, m.cfg.DamageRadius, m.cfg.DamageMask) {
		if id == m.Owner || !w.IsAircraft(id) {
			continue
		}
		w.RequestDamage(Damage{
			Victim:     id,
			Source:     m.Owner,
			Projectile: m.ID,
			Amount:     m.cfg.Damage,
			Cause:      CauseMissile,
			Point:      center,
		})
	}

	if m.Target.Valid() {
		if rec, ok := w.TargetRecord(m.Target); ok {
			rec.NotifyMissile(m.ID, false, nil)
		}
	}
}

func (m *Missile) settled() bool { return m.settle <= timerEpsilon }

func (m *Missile) Summary() Summary {
	s := Summary{
		ID:      m.ID,
		Kind:    actor.KindMissile,
		Owner:   m.Owner,
		Target:  m.Target,
		Start:   m.start,
		Outcome: m.outcome,
		Hit:     m.hit,
		Flight:  m.flight,
	}
	if m.body != nil {
		s.End = m.body.Position
	}
	return s
}

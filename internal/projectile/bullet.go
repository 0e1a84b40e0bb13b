package projectile

import (
	"github.com/OCAP2/dogfight/internal/actor"
	"github.com/OCAP2/dogfight/internal/authority"
	"github.com/OCAP2/dogfight/internal/physics"
	"github.com/OCAP2/dogfight/internal/vecmath"
)

type BulletConfig struct {
	Speed    float64
	Damage   float64
	Lifetime float64
	Mask     physics.Layer
}

// Bullet is a hit-scan round that sweeps speed*dt along its heading each tick.
type Bullet struct {
	ID    actor.ID
	Owner actor.ID
	Tag   authority.Tag

	cfg     BulletConfig
	pos     vecmath.Vec3
	rot     vecmath.Quat
	timer   float64
	start   vecmath.Vec3
	flight  float64
	outcome Outcome
	hit     actor.ID
}

func NewBullet(id, owner actor.ID, tag authority.Tag, pos vecmath.Vec3, rot vecmath.Quat, cfg BulletConfig) *Bullet {
	return &Bullet{
		ID:    id,
		Owner: owner,
		Tag:   tag,
		cfg:   cfg,
		pos:   pos,
		rot:   rot,
		timer: cfg.Lifetime,
		start: pos,
	}
}

func (b *Bullet) Position() vecmath.Vec3 { return b.pos }
func (b *Bullet) Rotation() vecmath.Quat { return b.rot }
func (b *Bullet) Remaining() float64     { return b.timer }
func (b *Bullet) Done() bool             { return b.outcome != OutcomeNone }

// Velocity is the bullet's constant world velocity.
func (b *Bullet) Velocity() vecmath.Vec3 { return b.rot.Forward().Mul(b.cfg.Speed) }

// Tick advances the bullet and returns true when it must despawn.
func (b *Bullet) Tick(dt float64, w World) bool {
	if b.Done() {
		return true
	}
	if b.timer <= timerEpsilon {
		b.outcome = OutcomeExpired
		return true
	}

	step := b.cfg.Speed * dt
	dir := b.rot.Forward()
	if hit, ok := w.Space().Raycast(b.pos, dir, step, b.cfg.Mask); ok {
		b.pos = hit.Point
		b.outcome = OutcomeHit
		b.hit = hit.ID
		if !hit.Ground && hit.ID != b.Owner && w.IsAircraft(hit.ID) && b.Tag.HasState() {
			w.RequestDamage(Damage{
				Victim:     hit.ID,
				Source:     b.Owner,
				Projectile: b.ID,
				Amount:     b.cfg.Damage,
				Cause:      CauseCannon,
				Point:      hit.Point,
			})
		}
		return true
	}

	b.pos = b.pos.Add(dir.Mul(step))
	b.timer -= dt
	b.flight += dt
	return false
}

func (b *Bullet) Summary() Summary {
	return Summary{
		ID:      b.ID,
		Kind:    actor.KindBullet,
		Owner:   b.Owner,
		Start:   b.start,
		End:     b.pos,
		Outcome: b.outcome,
		Hit:     b.hit,
		Flight:  b.flight,
	}
}

const timerEpsilon = 1e-9

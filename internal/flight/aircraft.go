package flight

import (
	"errors"
	"math/rand"

	"github.com/OCAP2/dogfight/internal/actor"
	"github.com/OCAP2/dogfight/internal/authority"
	"github.com/OCAP2/dogfight/internal/physics"
	"github.com/OCAP2/dogfight/internal/projectile"
	"github.com/OCAP2/dogfight/internal/vecmath"
	"github.com/OCAP2/dogfight/internal/weapons"
)

// ErrMissingBody is returned by Tick when the aircraft has no physics body.
var ErrMissingBody = errors.New("aircraft has no physics body")

// Armory spawns the projectiles an aircraft fires and resolves lock targets.
type Armory interface {
	SpawnBullet(shooter *Aircraft, pos vecmath.Vec3, rot vecmath.Quat)
	SpawnMissile(shooter *Aircraft, hardpoint int, pos vecmath.Vec3, rot vecmath.Quat, target actor.ID)
	LockTarget(id actor.ID) *weapons.LockTarget
}

// DamageSource remembers who last hurt an aircraft.
type DamageSource struct {
	Attacker actor.ID
	Cause    projectile.Cause
}

// Aircraft is one simulated airframe. All mutators that touch canonical
// state require state authority on this replica.
type Aircraft struct {
	ID       actor.ID
	Callsign string
	Team     string

	tag     authority.Tag
	profile Profile
	body    *physics.Body

	health    float64
	maxHealth float64
	dead      bool
	crashed   bool

	throttle      float64
	throttleInput float64
	controlInput  vecmath.Vec3
	flaps         bool
	airbrake      bool

	velocity             vecmath.Vec3
	lastVelocity         vecmath.Vec3
	localVelocity        vecmath.Vec3
	localAngularVelocity vecmath.Vec3
	localGForce          vecmath.Vec3
	effectiveInput       vecmath.Vec3
	aoa                  float64
	aoaYaw               float64

	lock       *weapons.Lock
	cannon     *weapons.Cannon
	hardpoints *weapons.Hardpoints
	target     actor.ID

	fireMissile bool // latched until the next Tick

	damageEffect bool
	deathEffect  bool
	lastDamage   DamageSource
}

// New spawns an aircraft on body. The body's velocity is set to the
// profile's initial speed along the nose.
func New(id actor.ID, callsign string, p Profile, body *physics.Body, tag authority.Tag, rng *rand.Rand) *Aircraft {
	a := &Aircraft{
		ID:         id,
		Callsign:   callsign,
		tag:        tag,
		profile:    p,
		body:       body,
		lock:       weapons.NewLock(p.Lock),
		cannon:     weapons.NewCannon(p.Cannon, rng),
		hardpoints: weapons.NewHardpoints(len(p.Hardpoints), p.MissileReloadTime, p.MissileDebounceTime),
	}
	if body != nil {
		body.Mass = p.Mass
		body.UseGravity = true
		body.Velocity = body.Rotation.Rotate(vecmath.V(0, 0, p.InitialSpeed))
		a.lastVelocity = body.Velocity
		a.calculateState()
	}
	if tag.HasState() {
		_ = a.InitHealth(p.MaxHealth)
	}
	return a
}

// InitHealth sets max health once at spawn.
func (a *Aircraft) InitHealth(max float64) error {
	if err := authority.Require(a.ID, "initHealth", a.tag, authority.State); err != nil {
		return err
	}
	a.maxHealth = max0(max)
	a.health = a.maxHealth
	return nil
}

func (a *Aircraft) Tag() authority.Tag { return a.tag }

// SetTag updates the local authority flags after an ownership change.
func (a *Aircraft) SetTag(t authority.Tag) { a.tag = t }

func (a *Aircraft) Body() *physics.Body { return a.body }
func (a *Aircraft) Profile() Profile    { return a.profile }

func (a *Aircraft) Health() float64    { return a.health }
func (a *Aircraft) MaxHealth() float64 { return a.maxHealth }
func (a *Aircraft) Dead() bool         { return a.dead }
func (a *Aircraft) Crashed() bool      { return a.crashed }
func (a *Aircraft) Throttle() float64  { return a.throttle }
func (a *Aircraft) Flaps() bool        { return a.flaps }
func (a *Aircraft) Airbrake() bool     { return a.airbrake }

func (a *Aircraft) LocalVelocity() vecmath.Vec3        { return a.localVelocity }
func (a *Aircraft) LocalAngularVelocity() vecmath.Vec3 { return a.localAngularVelocity }
func (a *Aircraft) LocalGForce() vecmath.Vec3          { return a.localGForce }
func (a *Aircraft) EffectiveInput() vecmath.Vec3       { return a.effectiveInput }
func (a *Aircraft) ControlInput() vecmath.Vec3         { return a.controlInput }

// AngleOfAttack is in radians.
func (a *Aircraft) AngleOfAttack() float64    { return a.aoa }
func (a *Aircraft) AngleOfAttackYaw() float64 { return a.aoaYaw }

func (a *Aircraft) DamageEffect() bool { return a.damageEffect }
func (a *Aircraft) DeathEffect() bool  { return a.deathEffect }

func (a *Aircraft) LastDamage() DamageSource { return a.lastDamage }

func (a *Aircraft) Lock() *weapons.Lock             { return a.lock }
func (a *Aircraft) Hardpoints() *weapons.Hardpoints { return a.hardpoints }
func (a *Aircraft) Cannon() *weapons.Cannon         { return a.cannon }
func (a *Aircraft) Target() actor.ID                { return a.target }

// Pos and Vel satisfy target.Body.
func (a *Aircraft) Pos() vecmath.Vec3 {
	if a.body == nil {
		return vecmath.Zero
	}
	return a.body.Position
}

func (a *Aircraft) Vel() vecmath.Vec3 {
	if a.body == nil {
		return vecmath.Zero
	}
	return a.body.Velocity
}

// LockDirection is the seeker direction in world space.
func (a *Aircraft) LockDirection() vecmath.Vec3 {
	if a.body == nil {
		return a.lock.Direction()
	}
	return a.body.Rotation.Rotate(a.lock.Direction())
}

func (a *Aircraft) SetThrottleInput(v float64) {
	if a.dead {
		return
	}
	a.throttleInput = vecmath.Clamp(v, -1, 1)
}

// SetControlInput takes (pitch, yaw, roll) and clamps it to unit length.
func (a *Aircraft) SetControlInput(v vecmath.Vec3) {
	if a.dead {
		return
	}
	a.controlInput = v.ClampLen(1)
}

func (a *Aircraft) SetCannonInput(held bool) {
	if a.dead {
		return
	}
	a.cannon.SetTrigger(held)
}

// ToggleFlaps only works below the flap retract speed.
func (a *Aircraft) ToggleFlaps() {
	if a.dead {
		return
	}
	if a.localVelocity.Z < a.profile.FlapsRetractSpeed {
		a.flaps = !a.flaps
	}
}

// SetTarget assigns the lock target. Only the state owner may retarget.
func (a *Aircraft) SetTarget(id actor.ID) error {
	if err := authority.Require(a.ID, "setTarget", a.tag, authority.State); err != nil {
		return err
	}
	if id != a.target {
		a.target = id
	}
	return nil
}

// TryFireMissile requests a launch from the next ready hardpoint. The
// request is resolved on the next Tick after integration and the lock
// update, so guidance and the spawn pose reflect that tick.
func (a *Aircraft) TryFireMissile() error {
	if a.dead {
		return nil
	}
	if err := authority.Require(a.ID, "fireMissile", a.tag, authority.State); err != nil {
		return err
	}
	if a.body == nil {
		return ErrMissingBody
	}
	a.fireMissile = true
	return nil
}

// launchMissile fires a latched request. The missile is guided only when
// the lock is held.
func (a *Aircraft) launchMissile(arm Armory) bool {
	if !a.fireMissile {
		return false
	}
	a.fireMissile = false
	idx, ok := a.hardpoints.TryFire()
	if !ok {
		return false
	}
	tgt := actor.None
	if a.lock.Locked() {
		tgt = a.target
	}
	pos := a.body.Position.Add(a.body.Rotation.Rotate(a.profile.Hardpoints[idx]))
	arm.SpawnMissile(a, idx, pos, a.body.Rotation, tgt)
	return true
}

// Report summarises discrete transitions of one tick.
type Report struct {
	LockFrom weapons.LockState
	LockTo   weapons.LockState
	Missile  bool
	Died     bool
}

// Tick runs one authoritative simulation step.
func (a *Aircraft) Tick(dt float64, arm Armory) (Report, error) {
	var r Report
	if err := authority.Require(a.ID, "tick", a.tag, authority.State); err != nil {
		return r, err
	}
	if a.body == nil {
		return r, ErrMissingBody
	}

	// pick up anything that changed the body since the last tick
	a.calculateState()
	a.calculateGForce(dt)
	a.updateFlaps()
	a.updateThrottle(dt)

	if !a.dead {
		a.updateThrust()
		a.updateLift()
		a.updateSteering(dt)
	} else {
		a.alignWithVelocity()
	}
	a.updateDrag()
	a.updateAngularDrag()

	a.body.Integrate(dt)
	a.calculateState()

	r = a.updateWeapons(dt, arm)

	a.damageEffect = a.health <= a.maxHealth*0.5 && a.health > 0
	if a.health == 0 && a.maxHealth != 0 && !a.dead {
		a.die()
		r.Died = true
	}
	return r, nil
}

func (a *Aircraft) updateWeapons(dt float64, arm Armory) Report {
	a.cannon.Cooldown(dt)
	a.hardpoints.Cooldown(dt)

	var lt *weapons.LockTarget
	if a.target.Valid() {
		lt = arm.LockTarget(a.target)
	}
	from := a.lock.Update(dt, a.body.Position, a.body.Rotation, lt)
	fired := a.launchMissile(arm)

	if rot, ok := a.cannon.TryFire(); ok {
		muzzle := a.body.Position.Add(a.body.Rotation.Rotate(a.cannon.Mount()))
		arm.SpawnBullet(a, muzzle, a.body.Rotation.Mul(rot))
	}
	return Report{LockFrom: from, LockTo: a.lock.State(), Missile: fired}
}

func (a *Aircraft) die() {
	a.throttleInput = 0
	a.throttle = 0
	a.dead = true
	a.fireMissile = false
	a.cannon.SetTrigger(false)
	a.damageEffect = false
	a.deathEffect = true
}

func max0(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

package flight

import (
	"math"

	"github.com/OCAP2/dogfight/internal/curve"
	"github.com/OCAP2/dogfight/internal/physics"
	"github.com/OCAP2/dogfight/internal/vecmath"
)

func (a *Aircraft) calculateState() {
	inv := a.body.Rotation.Inverse()
	a.velocity = a.body.Velocity
	a.localVelocity = inv.Rotate(a.velocity)
	a.localAngularVelocity = inv.Rotate(a.body.AngularVelocity)
	a.calculateAngleOfAttack()
}

func (a *Aircraft) calculateAngleOfAttack() {
	lv := a.localVelocity
	if lv.SqrLen() < 0.1 {
		a.aoa = 0
		a.aoaYaw = 0
		return
	}
	a.aoa = math.Atan2(-lv.Y, lv.Z)
	a.aoaYaw = math.Atan2(lv.X, lv.Z)
}

func (a *Aircraft) calculateGForce(dt float64) {
	if dt <= 0 {
		return
	}
	accel := a.velocity.Sub(a.lastVelocity).Mul(1 / dt)
	a.localGForce = a.body.Rotation.Inverse().Rotate(accel)
	a.lastVelocity = a.velocity
}

func (a *Aircraft) updateFlaps() {
	if a.localVelocity.Z > a.profile.FlapsRetractSpeed {
		a.flaps = false
	}
}

// updateThrottle maps input in [-1, 1] onto throttle in [0, 1]. Full reverse
// at idle deploys the airbrake.
func (a *Aircraft) updateThrottle(dt float64) {
	target := 0.0
	if a.throttleInput > 0 {
		target = 1
	}
	a.throttle = vecmath.MoveTowards01(a.throttle, target, a.profile.ThrottleSpeed*math.Abs(a.throttleInput), dt)
	a.airbrake = a.throttle == 0 && a.throttleInput == -1
}

func (a *Aircraft) updateThrust() {
	a.body.AddRelativeForce(vecmath.Forward.Mul(a.throttle*a.profile.MaxThrust), physics.Force)
}

func (a *Aircraft) updateDrag() {
	lv := a.localVelocity
	lv2 := lv.SqrLen()
	p := &a.profile

	extra := 0.0
	if a.airbrake {
		extra += p.AirbrakeDrag
	}
	if a.flaps {
		extra += p.FlapsDrag
	}

	dir := lv.Normalize()
	coeff := vecmath.Scale6(dir,
		p.DragRight.Evaluate(math.Abs(lv.X)), p.DragLeft.Evaluate(math.Abs(lv.X)),
		p.DragTop.Evaluate(math.Abs(lv.Y)), p.DragBottom.Evaluate(math.Abs(lv.Y)),
		p.DragForward.Evaluate(math.Abs(lv.Z))+extra, p.DragBack.Evaluate(math.Abs(lv.Z)),
	)
	drag := dir.Neg().Mul(coeff.Len() * lv2)
	a.body.AddRelativeForce(drag, physics.Force)
}

// calculateLift returns the lift force plus induced drag generated by a
// surface whose span lies along rightAxis.
func (a *Aircraft) calculateLift(aoa float64, rightAxis vecmath.Vec3, power float64, aoaCurve, inducedCurve curve.Curve) vecmath.Vec3 {
	liftVel := vecmath.ProjectOnPlane(a.localVelocity, rightAxis)
	v2 := liftVel.SqrLen()
	dir := liftVel.Normalize()

	coeff := aoaCurve.Evaluate(aoa * vecmath.Rad2Deg)
	lift := dir.Cross(rightAxis).Mul(v2 * coeff * power)

	dragForce := coeff * coeff
	induced := dir.Neg().Mul(v2 * dragForce * a.profile.InducedDrag * inducedCurve.Evaluate(math.Max(0, a.localVelocity.Z)))
	return lift.Add(induced)
}

func (a *Aircraft) updateLift() {
	if a.localVelocity.SqrLen() < 1 {
		return
	}
	p := &a.profile
	power, bias := p.LiftPower, 0.0
	if a.flaps {
		power += p.FlapsLiftPower
		bias = p.FlapsAOABias
	}

	wing := a.calculateLift(a.aoa+bias*vecmath.Deg2Rad, vecmath.Right, power, p.LiftAOACurve, p.InducedDragCurve)
	rudder := a.calculateLift(a.aoaYaw, vecmath.Up, p.RudderPower, p.RudderAOACurve, p.RudderInducedDragCurve)
	a.body.AddRelativeForce(wing, physics.Force)
	a.body.AddRelativeForce(rudder, physics.Force)
}

// centripetalAccel estimates the acceleration of turning velocity at
// angular rate omega.
func centripetalAccel(omega, velocity vecmath.Vec3) vecmath.Vec3 {
	return omega.Cross(velocity)
}

func (a *Aircraft) gForceLimit(input vecmath.Vec3) vecmath.Vec3 {
	p := &a.profile
	return vecmath.Scale6(input, p.GLimit, p.GLimitPitch, p.GLimit, p.GLimit, p.GLimit, p.GLimit).Mul(vecmath.Gravity)
}

// gLimiter returns the factor in (0, 1] that keeps a full-deflection turn at
// maxAngularVelocity (rad/s) within the configured G limit.
func (a *Aircraft) gLimiter(input, maxAngularVelocity vecmath.Vec3) float64 {
	if input.Len() < 0.01 {
		return 1
	}
	maxInput := input.Normalize()
	limit := a.gForceLimit(maxInput).Len()
	maxG := centripetalAccel(maxInput.Scale(maxAngularVelocity), a.localVelocity).Len()
	if maxG > limit && maxG > 0 {
		return limit / maxG
	}
	return 1
}

// steeringCorrection is the per-axis angular velocity change for one tick,
// bounded by the acceleration budget.
func steeringCorrection(dt, angularVelocity, target, acceleration float64) float64 {
	budget := acceleration * dt
	return vecmath.Clamp(target-angularVelocity, -budget, budget)
}

func (a *Aircraft) updateSteering(dt float64) {
	p := &a.profile
	speed := math.Max(0, a.localVelocity.Z)
	power := p.SteeringCurve.Evaluate(speed)

	gScale := a.gLimiter(a.controlInput, p.TurnSpeed.Mul(vecmath.Deg2Rad*power))
	targetAV := a.controlInput.Scale(p.TurnSpeed.Mul(power * gScale))
	av := a.localAngularVelocity.Mul(vecmath.Rad2Deg)

	correction := vecmath.V(
		steeringCorrection(dt, av.X, targetAV.X, p.TurnAcceleration.X*power),
		steeringCorrection(dt, av.Y, targetAV.Y, p.TurnAcceleration.Y*power),
		steeringCorrection(dt, av.Z, targetAV.Z, p.TurnAcceleration.Z*power),
	)
	a.body.AddRelativeTorque(correction.Mul(vecmath.Deg2Rad), physics.VelocityChange)

	correctionInput := vecmath.V(
		ratio(targetAV.X-av.X, p.TurnAcceleration.X),
		ratio(targetAV.Y-av.Y, p.TurnAcceleration.Y),
		ratio(targetAV.Z-av.Z, p.TurnAcceleration.Z),
	)
	eff := correctionInput.Add(a.controlInput).Mul(gScale)
	a.effectiveInput = vecmath.V(
		vecmath.Clamp(eff.X, -1, 1),
		vecmath.Clamp(eff.Y, -1, 1),
		vecmath.Clamp(eff.Z, -1, 1),
	)
}

func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return vecmath.Clamp(num/den, -1, 1)
}

func (a *Aircraft) updateAngularDrag() {
	av := a.localAngularVelocity
	drag := av.Normalize().Neg().Mul(av.SqrLen())
	a.body.AddRelativeTorque(drag.Scale(a.profile.AngularDrag), physics.Acceleration)
}

// alignWithVelocity lets a dead aircraft's nose follow its flight path.
func (a *Aircraft) alignWithVelocity() {
	fwd := a.body.Velocity.Normalize()
	if fwd == vecmath.Zero {
		return
	}
	a.body.Rotation = vecmath.LookRotation(fwd, a.body.Rotation.Up())
}

// Package flight implements the aircraft flight model: thrust, lift and
// induced drag, anisotropic drag, G-limited steering and the health
// lifecycle of an aircraft.
package flight

import (
	"github.com/OCAP2/dogfight/internal/curve"
	"github.com/OCAP2/dogfight/internal/vecmath"
	"github.com/OCAP2/dogfight/internal/weapons"
)

// Profile is the tuning data of an aircraft type. Curves index angles in
// degrees and speeds in m/s.
type Profile struct {
	Name string

	Mass          float64
	MaxThrust     float64
	ThrottleSpeed float64
	GLimit        float64
	GLimitPitch   float64

	LiftPower              float64
	LiftAOACurve           curve.Curve
	InducedDrag            float64
	InducedDragCurve       curve.Curve
	RudderPower            float64
	RudderAOACurve         curve.Curve
	RudderInducedDragCurve curve.Curve
	FlapsLiftPower         float64
	FlapsAOABias           float64 // degrees
	FlapsDrag              float64
	FlapsRetractSpeed      float64

	TurnSpeed        vecmath.Vec3 // deg/s per axis (pitch, yaw, roll)
	TurnAcceleration vecmath.Vec3 // deg/s² per axis
	SteeringCurve    curve.Curve

	DragForward  curve.Curve
	DragBack     curve.Curve
	DragLeft     curve.Curve
	DragRight    curve.Curve
	DragTop      curve.Curve
	DragBottom   curve.Curve
	AngularDrag  vecmath.Vec3
	AirbrakeDrag float64

	InitialSpeed   float64
	MaxHealth      float64
	ColliderRadius float64

	// a ground contact counts as a landing when gear is down, the wings
	// are within GearMaxTilt degrees of level and the sink rate is low
	GearMaxTilt     float64
	GearMaxSinkRate float64

	Hardpoints          []vecmath.Vec3
	MissileReloadTime   float64
	MissileDebounceTime float64
	Lock                weapons.LockConfig
	Cannon              weapons.CannonConfig
}

func k(t, v float64) curve.Key { return curve.Key{T: t, V: v} }

// DefaultProfile is a generic jet fighter.
func DefaultProfile() Profile {
	return Profile{
		Name:          "default",
		Mass:          10000,
		MaxThrust:     130000,
		ThrottleSpeed: 0.5,
		GLimit:        8,
		GLimitPitch:   3,

		LiftPower:              6,
		LiftAOACurve:           curve.MustNew(k(-90, 0), k(-15, -1.2), k(0, 0.1), k(15, 1.2), k(25, 0.8), k(90, 0)),
		InducedDrag:            0.4,
		InducedDragCurve:       curve.MustNew(k(0, 1), k(150, 0.8), k(400, 0.4)),
		RudderPower:            2,
		RudderAOACurve:         curve.MustNew(k(-90, 0), k(-10, -0.5), k(0, 0), k(10, 0.5), k(90, 0)),
		RudderInducedDragCurve: curve.MustNew(k(0, 1), k(400, 0.5)),
		FlapsLiftPower:         2,
		FlapsAOABias:           5,
		FlapsDrag:              0.2,
		FlapsRetractSpeed:      90,

		TurnSpeed:        vecmath.V(30, 15, 270),
		TurnAcceleration: vecmath.V(60, 30, 540),
		SteeringCurve:    curve.MustNew(k(0, 0), k(100, 1), k(300, 1), k(400, 0.7)),

		DragForward:  curve.MustNew(k(0, 0.5), k(300, 0.6), k(340, 1.5), k(400, 3)),
		DragBack:     curve.Constant(0.5),
		DragLeft:     curve.Constant(2),
		DragRight:    curve.Constant(2),
		DragTop:      curve.Constant(5),
		DragBottom:   curve.Constant(5),
		AngularDrag:  vecmath.V(0.2, 0.1, 0.2),
		AirbrakeDrag: 0.6,

		InitialSpeed:   150,
		MaxHealth:      100,
		ColliderRadius: 6,

		GearMaxTilt:     15,
		GearMaxSinkRate: 5,

		Hardpoints:          []vecmath.Vec3{vecmath.V(-2, -0.5, 0), vecmath.V(2, -0.5, 0)},
		MissileReloadTime:   10,
		MissileDebounceTime: 0.2,
		Lock:                weapons.LockConfig{Range: 2000, Angle: 45, Speed: 60},
		Cannon:              weapons.CannonConfig{FireRate: 1200, Spread: 0.5, Mount: vecmath.V(0, 0, 8)},
	}
}

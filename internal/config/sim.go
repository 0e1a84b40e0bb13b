package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/OCAP2/dogfight/internal/curve"
	"github.com/OCAP2/dogfight/internal/flight"
	"github.com/OCAP2/dogfight/internal/physics"
	"github.com/OCAP2/dogfight/internal/projectile"
	"github.com/OCAP2/dogfight/internal/vecmath"
	"github.com/OCAP2/dogfight/internal/weapons"
)

// SpawnPoint is a pose aircraft of a team may spawn at.
type SpawnPoint struct {
	Position []float64 `json:"position" mapstructure:"position"`
	Heading  float64   `json:"heading" mapstructure:"heading"`
}

// Vec returns the spawn position, or the origin when malformed.
func (s SpawnPoint) Vec() vecmath.Vec3 {
	if len(s.Position) != 3 {
		return vecmath.Zero
	}
	return vecmath.V(s.Position[0], s.Position[1], s.Position[2])
}

// BotConfig describes a host-controlled aircraft spawned with the match.
type BotConfig struct {
	Callsign string `json:"callsign" mapstructure:"callsign"`
	Team     string `json:"team" mapstructure:"team"`
	Profile  string `json:"profile" mapstructure:"profile"`
}

// SimConfig holds tick loop settings
type SimConfig struct {
	TickRate       int                     `json:"tickRate" mapstructure:"tickRate"`
	SnapshotEvery  int                     `json:"snapshotEvery" mapstructure:"snapshotEvery"`
	StateEvery     int                     `json:"stateEvery" mapstructure:"stateEvery"`
	AuthorityGrace time.Duration           `json:"authorityGrace" mapstructure:"authorityGrace"`
	TargetRetry    time.Duration           `json:"targetRetry" mapstructure:"targetRetry"`
	GroundHeight   float64                 `json:"groundHeight" mapstructure:"groundHeight"`
	Seed           int64                   `json:"seed" mapstructure:"seed"`
	SpawnPoints    map[string][]SpawnPoint `json:"spawnPoints" mapstructure:"spawnPoints"`
	Bots           []BotConfig             `json:"bots" mapstructure:"bots"`
}

// TickDuration is the fixed step length.
func (c SimConfig) TickDuration() time.Duration {
	if c.TickRate <= 0 {
		return time.Second / 60
	}
	return time.Second / time.Duration(c.TickRate)
}

func setSimDefaults() {
	viper.SetDefault("sim.tickRate", 60)
	viper.SetDefault("sim.snapshotEvery", 2)
	viper.SetDefault("sim.stateEvery", 6)
	viper.SetDefault("sim.authorityGrace", "3s")
	viper.SetDefault("sim.targetRetry", "1s")
	viper.SetDefault("sim.groundHeight", 0.0)
	viper.SetDefault("sim.seed", 1)
	viper.SetDefault("sim.spawnPoints", map[string]any{
		"A": []any{
			map[string]any{"position": []any{-200, 1500, -4000}, "heading": 0},
			map[string]any{"position": []any{200, 1500, -4000}, "heading": 0},
		},
		"B": []any{
			map[string]any{"position": []any{-200, 1500, 4000}, "heading": 180},
			map[string]any{"position": []any{200, 1500, 4000}, "heading": 180},
		},
	})
	viper.SetDefault("sim.bots", []any{
		map[string]any{"callsign": "drone-1", "team": "B", "profile": "default"},
	})

	viper.SetDefault("bullet.speed", 800.0)
	viper.SetDefault("bullet.damage", 10.0)
	viper.SetDefault("bullet.lifetime", 2.0)

	viper.SetDefault("missile.lifetime", 15.0)
	viper.SetDefault("missile.speed", 340.0)
	viper.SetDefault("missile.trackingAngle", 60.0)
	viper.SetDefault("missile.damage", 50.0)
	viper.SetDefault("missile.damageRadius", 20.0)
	viper.SetDefault("missile.turningGForce", 30.0)
	viper.SetDefault("missile.settleTime", 1.0)
}

// GetSimConfig returns the tick loop settings.
func GetSimConfig() (SimConfig, error) {
	cfg := SimConfig{
		TickRate:       viper.GetInt("sim.tickRate"),
		SnapshotEvery:  viper.GetInt("sim.snapshotEvery"),
		StateEvery:     viper.GetInt("sim.stateEvery"),
		AuthorityGrace: viper.GetDuration("sim.authorityGrace"),
		TargetRetry:    viper.GetDuration("sim.targetRetry"),
		GroundHeight:   viper.GetFloat64("sim.groundHeight"),
		Seed:           viper.GetInt64("sim.seed"),
	}
	var spawns map[string][]SpawnPoint
	if err := viper.UnmarshalKey("sim.spawnPoints", &spawns); err != nil {
		return cfg, fmt.Errorf("sim.spawnPoints: %w", err)
	}
	// viper lowercases map keys
	cfg.SpawnPoints = make(map[string][]SpawnPoint, len(spawns))
	for team, points := range spawns {
		cfg.SpawnPoints[strings.ToUpper(team)] = points
	}
	if err := viper.UnmarshalKey("sim.bots", &cfg.Bots); err != nil {
		return cfg, fmt.Errorf("sim.bots: %w", err)
	}
	return cfg, nil
}

// Projectiles bundles the bullet and missile tuning.
type Projectiles struct {
	Bullet  projectile.BulletConfig
	Missile projectile.MissileConfig
}

// GetProjectileConfig returns bullet and missile tuning.
func GetProjectileConfig() Projectiles {
	hitMask := physics.LayerAircraft | physics.LayerGround
	return Projectiles{
		Bullet: projectile.BulletConfig{
			Speed:    viper.GetFloat64("bullet.speed"),
			Damage:   viper.GetFloat64("bullet.damage"),
			Lifetime: viper.GetFloat64("bullet.lifetime"),
			Mask:     hitMask,
		},
		Missile: projectile.MissileConfig{
			Lifetime:      viper.GetFloat64("missile.lifetime"),
			Speed:         viper.GetFloat64("missile.speed"),
			TrackingAngle: viper.GetFloat64("missile.trackingAngle"),
			Damage:        viper.GetFloat64("missile.damage"),
			DamageRadius:  viper.GetFloat64("missile.damageRadius"),
			TurningGForce: viper.GetFloat64("missile.turningGForce"),
			SettleTime:    viper.GetFloat64("missile.settleTime"),
			Mask:          hitMask,
			DamageMask:    physics.LayerAircraft,
		},
	}
}

// profileFile mirrors flight.Profile in config-file form: curves are
// [[t, v], ...] tables and vectors are [x, y, z].
type profileFile struct {
	Mass          float64 `mapstructure:"mass"`
	MaxThrust     float64 `mapstructure:"maxThrust"`
	ThrottleSpeed float64 `mapstructure:"throttleSpeed"`
	GLimit        float64 `mapstructure:"gLimit"`
	GLimitPitch   float64 `mapstructure:"gLimitPitch"`

	LiftPower              float64     `mapstructure:"liftPower"`
	LiftAOACurve           [][]float64 `mapstructure:"liftAOACurve"`
	InducedDrag            float64     `mapstructure:"inducedDrag"`
	InducedDragCurve       [][]float64 `mapstructure:"inducedDragCurve"`
	RudderPower            float64     `mapstructure:"rudderPower"`
	RudderAOACurve         [][]float64 `mapstructure:"rudderAOACurve"`
	RudderInducedDragCurve [][]float64 `mapstructure:"rudderInducedDragCurve"`
	FlapsLiftPower         float64     `mapstructure:"flapsLiftPower"`
	FlapsAOABias           float64     `mapstructure:"flapsAOABias"`
	FlapsDrag              float64     `mapstructure:"flapsDrag"`
	FlapsRetractSpeed      float64     `mapstructure:"flapsRetractSpeed"`

	TurnSpeed        []float64   `mapstructure:"turnSpeed"`
	TurnAcceleration []float64   `mapstructure:"turnAcceleration"`
	SteeringCurve    [][]float64 `mapstructure:"steeringCurve"`

	DragForward  [][]float64 `mapstructure:"dragForward"`
	DragBack     [][]float64 `mapstructure:"dragBack"`
	DragLeft     [][]float64 `mapstructure:"dragLeft"`
	DragRight    [][]float64 `mapstructure:"dragRight"`
	DragTop      [][]float64 `mapstructure:"dragTop"`
	DragBottom   [][]float64 `mapstructure:"dragBottom"`
	AngularDrag  []float64   `mapstructure:"angularDrag"`
	AirbrakeDrag float64     `mapstructure:"airbrakeDrag"`

	InitialSpeed    float64 `mapstructure:"initialSpeed"`
	MaxHealth       float64 `mapstructure:"maxHealth"`
	ColliderRadius  float64 `mapstructure:"colliderRadius"`
	GearMaxTilt     float64 `mapstructure:"gearMaxTilt"`
	GearMaxSinkRate float64 `mapstructure:"gearMaxSinkRate"`

	Hardpoints          [][]float64 `mapstructure:"hardpoints"`
	MissileReloadTime   float64     `mapstructure:"missileReloadTime"`
	MissileDebounceTime float64     `mapstructure:"missileDebounceTime"`
	LockRange           float64     `mapstructure:"lockRange"`
	LockAngle           float64     `mapstructure:"lockAngle"`
	LockSpeed           float64     `mapstructure:"lockSpeed"`
	CannonFireRate      float64     `mapstructure:"cannonFireRate"`
	CannonSpread        float64     `mapstructure:"cannonSpread"`
	CannonMount         []float64   `mapstructure:"cannonMount"`
}

// GetAircraftProfile decodes aircraft.<name> on top of the built-in
// profile. Keys absent from the config keep their default values.
func GetAircraftProfile(name string) (flight.Profile, error) {
	def := flight.DefaultProfile()
	raw := toFile(def)

	key := "aircraft." + name
	if viper.IsSet(key) {
		err := viper.UnmarshalKey(key, &raw, func(c *mapstructure.DecoderConfig) {
			c.ZeroFields = true
		})
		if err != nil {
			return def, fmt.Errorf("aircraft profile %q: %w", name, err)
		}
	}

	p, err := fromFile(raw)
	if err != nil {
		return def, fmt.Errorf("aircraft profile %q: %w", name, err)
	}
	p.Name = name
	return p, nil
}

func toFile(p flight.Profile) profileFile {
	hp := make([][]float64, len(p.Hardpoints))
	for i, h := range p.Hardpoints {
		hp[i] = vec(h)
	}
	return profileFile{
		Mass:                   p.Mass,
		MaxThrust:              p.MaxThrust,
		ThrottleSpeed:          p.ThrottleSpeed,
		GLimit:                 p.GLimit,
		GLimitPitch:            p.GLimitPitch,
		LiftPower:              p.LiftPower,
		LiftAOACurve:           p.LiftAOACurve.Pairs(),
		InducedDrag:            p.InducedDrag,
		InducedDragCurve:       p.InducedDragCurve.Pairs(),
		RudderPower:            p.RudderPower,
		RudderAOACurve:         p.RudderAOACurve.Pairs(),
		RudderInducedDragCurve: p.RudderInducedDragCurve.Pairs(),
		FlapsLiftPower:         p.FlapsLiftPower,
		FlapsAOABias:           p.FlapsAOABias,
		FlapsDrag:              p.FlapsDrag,
		FlapsRetractSpeed:      p.FlapsRetractSpeed,
		TurnSpeed:              vec(p.TurnSpeed),
		TurnAcceleration:       vec(p.TurnAcceleration),
		SteeringCurve:          p.SteeringCurve.Pairs(),
		DragForward:            p.DragForward.Pairs(),
		DragBack:               p.DragBack.Pairs(),
		DragLeft:               p.DragLeft.Pairs(),
		DragRight:              p.DragRight.Pairs(),
		DragTop:                p.DragTop.Pairs(),
		DragBottom:             p.DragBottom.Pairs(),
		AngularDrag:            vec(p.AngularDrag),
		AirbrakeDrag:           p.AirbrakeDrag,
		InitialSpeed:           p.InitialSpeed,
		MaxHealth:              p.MaxHealth,
		ColliderRadius:         p.ColliderRadius,
		GearMaxTilt:            p.GearMaxTilt,
		GearMaxSinkRate:        p.GearMaxSinkRate,
		Hardpoints:             hp,
		MissileReloadTime:      p.MissileReloadTime,
		MissileDebounceTime:    p.MissileDebounceTime,
		LockRange:              p.Lock.Range,
		LockAngle:              p.Lock.Angle,
		LockSpeed:              p.Lock.Speed,
		CannonFireRate:         p.Cannon.FireRate,
		CannonSpread:           p.Cannon.Spread,
		CannonMount:            vec(p.Cannon.Mount),
	}
}

func fromFile(f profileFile) (flight.Profile, error) {
	p := flight.Profile{
		Mass:                f.Mass,
		MaxThrust:           f.MaxThrust,
		ThrottleSpeed:       f.ThrottleSpeed,
		GLimit:              f.GLimit,
		GLimitPitch:         f.GLimitPitch,
		LiftPower:           f.LiftPower,
		InducedDrag:         f.InducedDrag,
		RudderPower:         f.RudderPower,
		FlapsLiftPower:      f.FlapsLiftPower,
		FlapsAOABias:        f.FlapsAOABias,
		FlapsDrag:           f.FlapsDrag,
		FlapsRetractSpeed:   f.FlapsRetractSpeed,
		AirbrakeDrag:        f.AirbrakeDrag,
		InitialSpeed:        f.InitialSpeed,
		MaxHealth:           f.MaxHealth,
		ColliderRadius:      f.ColliderRadius,
		GearMaxTilt:         f.GearMaxTilt,
		GearMaxSinkRate:     f.GearMaxSinkRate,
		MissileReloadTime:   f.MissileReloadTime,
		MissileDebounceTime: f.MissileDebounceTime,
		Lock: weapons.LockConfig{
			Range: f.LockRange,
			Angle: f.LockAngle,
			Speed: f.LockSpeed,
		},
	}

	curves := []struct {
		name string
		src  [][]float64
		dst  *curve.Curve
	}{
		{"liftAOACurve", f.LiftAOACurve, &p.LiftAOACurve},
		{"inducedDragCurve", f.InducedDragCurve, &p.InducedDragCurve},
		{"rudderAOACurve", f.RudderAOACurve, &p.RudderAOACurve},
		{"rudderInducedDragCurve", f.RudderInducedDragCurve, &p.RudderInducedDragCurve},
		{"steeringCurve", f.SteeringCurve, &p.SteeringCurve},
		{"dragForward", f.DragForward, &p.DragForward},
		{"dragBack", f.DragBack, &p.DragBack},
		{"dragLeft", f.DragLeft, &p.DragLeft},
		{"dragRight", f.DragRight, &p.DragRight},
		{"dragTop", f.DragTop, &p.DragTop},
		{"dragBottom", f.DragBottom, &p.DragBottom},
	}
	for _, c := range curves {
		cv, err := curve.FromPairs(c.src)
		if err != nil {
			return p, fmt.Errorf("%s: %w", c.name, err)
		}
		*c.dst = cv
	}

	vectors := []struct {
		name string
		src  []float64
		dst  *vecmath.Vec3
	}{
		{"turnSpeed", f.TurnSpeed, &p.TurnSpeed},
		{"turnAcceleration", f.TurnAcceleration, &p.TurnAcceleration},
		{"angularDrag", f.AngularDrag, &p.AngularDrag},
		{"cannonMount", f.CannonMount, &p.Cannon.Mount},
	}
	for _, v := range vectors {
		out, err := toVec(v.src)
		if err != nil {
			return p, fmt.Errorf("%s: %w", v.name, err)
		}
		*v.dst = out
	}

	for i, h := range f.Hardpoints {
		out, err := toVec(h)
		if err != nil {
			return p, fmt.Errorf("hardpoints[%d]: %w", i, err)
		}
		p.Hardpoints = append(p.Hardpoints, out)
	}

	p.Cannon.FireRate = f.CannonFireRate
	p.Cannon.Spread = f.CannonSpread
	return p, nil
}

func vec(v vecmath.Vec3) []float64 { return []float64{v.X, v.Y, v.Z} }

func toVec(s []float64) (vecmath.Vec3, error) {
	if len(s) != 3 {
		return vecmath.Zero, fmt.Errorf("expected [x, y, z], got %d values", len(s))
	}
	return vecmath.V(s[0], s[1], s[2]), nil
}

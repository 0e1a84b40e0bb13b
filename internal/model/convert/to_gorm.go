// Package convert provides functions to convert between GORM models and core models
package convert

import (
	"encoding/json"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"

	"github.com/OCAP2/dogfight/internal/model"
	"github.com/OCAP2/dogfight/pkg/core"
)

// position3DToPoint converts a core.Position3D to an XYZ geom.Point
func position3DToPoint(p core.Position3D) geom.Point {
	return geom.NewPoint(geom.Coordinates{XY: geom.XY{X: p.X, Y: p.Y}, Z: p.Z, Type: geom.DimXYZ})
}

// mapToJSON converts free-form data to datatypes.JSON, "{}" when empty.
func mapToJSON(m map[string]any) datatypes.JSON {
	if len(m) == 0 {
		return datatypes.JSON("{}")
	}
	data, err := json.Marshal(m)
	if err != nil {
		return datatypes.JSON("{}")
	}
	return datatypes.JSON(data)
}

// CoreToMatch converts a core.Match to a GORM model.Match. The origin is
// stored as lon/lat.
func CoreToMatch(m core.Match) model.Match {
	return model.Match{
		SessionID: m.SessionID,
		Name:      m.Name,
		WorldName: m.WorldName,
		Tag:       m.Tag,
		StartTime: m.StartTime,
		TickRate:  m.TickRate,
		Origin:    geom.NewPoint(geom.Coordinates{XY: geom.XY{X: m.OriginLon, Y: m.OriginLat}, Type: geom.DimXY}),
		Settings:  mapToJSON(m.Settings),
	}
}

// CoreToAircraft converts a core.Aircraft to a GORM model.Aircraft.
// core.Aircraft.ID maps to GORM Aircraft.ObjectID.
func CoreToAircraft(a core.Aircraft) model.Aircraft {
	return model.Aircraft{
		ObjectID:   a.ID,
		JoinTime:   a.JoinTime,
		JoinTick:   a.JoinTick,
		Callsign:   a.Callsign,
		Profile:    a.Profile,
		Team:       a.Team,
		InputOwner: a.InputOwner,
		StateOwner: a.StateOwner,
		Bot:        a.Bot,
	}
}

func CoreToAircraftState(s core.AircraftState) model.AircraftState {
	return model.AircraftState{
		Time:             s.Time,
		Tick:             s.Tick,
		AircraftObjectID: s.AircraftID,
		Position:         position3DToPoint(s.Position),
		Altitude:         float32(s.Position.Y),
		VelocityX:        float32(s.Velocity.X),
		VelocityY:        float32(s.Velocity.Y),
		VelocityZ:        float32(s.Velocity.Z),
		Heading:          s.Heading,
		Pitch:            s.Pitch,
		Roll:             s.Roll,
		Speed:            s.Speed,
		Throttle:         s.Throttle,
		Health:           s.Health,
		GForce:           s.GForce,
		Flaps:            s.Flaps,
		IsAlive:          s.IsAlive,
		Crashed:          s.Crashed,
		LockState:        s.LockState,
		TargetID:         s.TargetID,
	}
}

func CoreToFiredEvent(e core.FiredEvent) model.FiredEvent {
	return model.FiredEvent{
		Time:          e.Time,
		Tick:          e.Tick,
		ShooterID:     e.ShooterID,
		ProjectileID:  e.ProjectileID,
		Weapon:        e.Weapon,
		Hardpoint:     e.Hardpoint,
		TargetID:      e.TargetID,
		StartPosition: position3DToPoint(e.Position),
		Direction:     position3DToPoint(e.Direction),
	}
}

// CoreToProjectileEvent stores the trajectory as a LineStringZM whose M
// ordinate is the tick. Paths with fewer than two points are left empty.
func CoreToProjectileEvent(e core.ProjectileEvent) model.ProjectileEvent {
	result := model.ProjectileEvent{
		Time:         e.Time,
		LaunchTick:   e.LaunchTick,
		EndTick:      e.EndTick,
		ProjectileID: e.ProjectileID,
		Kind:         e.Kind,
		OwnerID:      e.OwnerID,
		TargetID:     e.TargetID,
		Outcome:      e.Outcome,
		HitID:        e.HitID,
		FlightTime:   e.FlightTime,
		HitDetails:   datatypes.JSON("{}"),
	}

	if len(e.Trajectory) >= 2 {
		coords := make([]float64, 0, len(e.Trajectory)*4)
		for _, tp := range e.Trajectory {
			coords = append(coords, tp.Position.X, tp.Position.Y, tp.Position.Z, float64(tp.Tick))
		}
		seq := geom.NewSequence(coords, geom.DimXYZM)
		result.Trajectory = geom.NewLineString(seq).AsGeometry()
	}

	if e.HitID != 0 {
		result.HitDetails = mapToJSON(map[string]any{"hitId": e.HitID, "outcome": e.Outcome})
	}
	return result
}

func CoreToHitEvent(e core.HitEvent) model.HitEvent {
	return model.HitEvent{
		ID:           e.ID,
		Time:         e.Time,
		Tick:         e.Tick,
		VictimID:     e.VictimID,
		ShooterID:    e.ShooterID,
		ProjectileID: e.ProjectileID,
		Cause:        e.Cause,
		Amount:       e.Amount,
		HealthBefore: e.HealthBefore,
		HealthAfter:  e.HealthAfter,
		Position:     position3DToPoint(e.Position),
		Distance:     e.Distance,
	}
}

func CoreToKillEvent(e core.KillEvent) model.KillEvent {
	return model.KillEvent{
		ID:       e.ID,
		Time:     e.Time,
		Tick:     e.Tick,
		VictimID: e.VictimID,
		KillerID: e.KillerID,
		Cause:    e.Cause,
		Position: position3DToPoint(e.Position),
		Crashed:  e.Crashed,
	}
}

func CoreToLockEvent(e core.LockEvent) model.LockEvent {
	return model.LockEvent{
		Time:       e.Time,
		Tick:       e.Tick,
		AircraftID: e.AircraftID,
		TargetID:   e.TargetID,
		From:       e.From,
		To:         e.To,
	}
}

func CoreToAuthorityEvent(e core.AuthorityEvent) model.AuthorityEvent {
	return model.AuthorityEvent{
		Time:       e.Time,
		Tick:       e.Tick,
		ActorID:    e.ActorID,
		ReplacedBy: e.ReplacedBy,
		Kind:       e.Kind,
		InputOwner: e.InputOwner,
		StateOwner: e.StateOwner,
		Reason:     e.Reason,
	}
}

func CoreToGeneralEvent(e core.GeneralEvent) model.GeneralEvent {
	return model.GeneralEvent{
		ID:        e.ID,
		Time:      e.Time,
		Tick:      e.Tick,
		Name:      e.Name,
		Message:   e.Message,
		ExtraData: mapToJSON(e.ExtraData),
	}
}

func CoreToServerPerformance(p core.ServerPerformance) model.ServerPerformance {
	return model.ServerPerformance{
		Time:         p.Time,
		Tick:         p.Tick,
		TickAvgMs:    p.TickAvgMs,
		TickMaxMs:    p.TickMaxMs,
		Aircraft:     p.Aircraft,
		Projectiles:  p.Projectiles,
		Clients:      p.Clients,
		DroppedInput: p.DroppedInput,
	}
}

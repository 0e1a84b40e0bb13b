package convert

import (
	"encoding/json"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"

	"github.com/OCAP2/dogfight/internal/model"
	"github.com/OCAP2/dogfight/pkg/core"
)

// pointToPosition3D converts a geom.Point to a core.Position3D
func pointToPosition3D(p geom.Point) core.Position3D {
	coord, ok := p.Coordinates()
	if !ok {
		return core.Position3D{}
	}
	return core.Position3D{X: coord.XY.X, Y: coord.XY.Y, Z: coord.Z}
}

func jsonToMap(j datatypes.JSON) map[string]any {
	if len(j) == 0 {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(j, &m); err != nil || len(m) == 0 {
		return nil
	}
	return m
}

// MatchToCore converts a GORM Match to a core.Match.
func MatchToCore(m model.Match) core.Match {
	result := core.Match{
		ID:        m.ID,
		SessionID: m.SessionID,
		Name:      m.Name,
		WorldName: m.WorldName,
		Tag:       m.Tag,
		StartTime: m.StartTime,
		TickRate:  m.TickRate,
		Settings:  jsonToMap(m.Settings),
	}
	if c, ok := m.Origin.Coordinates(); ok {
		result.OriginLon = c.XY.X
		result.OriginLat = c.XY.Y
	}
	return result
}

// AircraftToCore converts a GORM Aircraft to a core.Aircraft.
// GORM Aircraft.ObjectID maps to core Aircraft.ID.
func AircraftToCore(a model.Aircraft) core.Aircraft {
	return core.Aircraft{
		ID:         a.ObjectID,
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

func AircraftStateToCore(s model.AircraftState) core.AircraftState {
	return core.AircraftState{
		AircraftID: s.AircraftObjectID,
		Time:       s.Time,
		Tick:       s.Tick,
		Position:   pointToPosition3D(s.Position),
		Velocity:   core.Position3D{X: float64(s.VelocityX), Y: float64(s.VelocityY), Z: float64(s.VelocityZ)},
		Heading:    s.Heading,
		Pitch:      s.Pitch,
		Roll:       s.Roll,
		Speed:      s.Speed,
		Throttle:   s.Throttle,
		Health:     s.Health,
		GForce:     s.GForce,
		Flaps:      s.Flaps,
		IsAlive:    s.IsAlive,
		Crashed:    s.Crashed,
		LockState:  s.LockState,
		TargetID:   s.TargetID,
	}
}

func FiredEventToCore(e model.FiredEvent) core.FiredEvent {
	return core.FiredEvent{
		Time:         e.Time,
		Tick:         e.Tick,
		ShooterID:    e.ShooterID,
		ProjectileID: e.ProjectileID,
		Weapon:       e.Weapon,
		Hardpoint:    e.Hardpoint,
		TargetID:     e.TargetID,
		Position:     pointToPosition3D(e.StartPosition),
		Direction:    pointToPosition3D(e.Direction),
	}
}

// ProjectileEventToCore reads the trajectory back from its LineStringZM.
func ProjectileEventToCore(e model.ProjectileEvent) core.ProjectileEvent {
	result := core.ProjectileEvent{
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
	}
	ls, ok := e.Trajectory.AsLineString()
	if !ok {
		return result
	}
	seq := ls.Coordinates()
	for i := 0; i < seq.Length(); i++ {
		c := seq.Get(i)
		result.Trajectory = append(result.Trajectory, core.TrajectoryPoint{
			Position: core.Position3D{X: c.XY.X, Y: c.XY.Y, Z: c.Z},
			Tick:     uint(c.M),
		})
	}
	return result
}

func HitEventToCore(e model.HitEvent) core.HitEvent {
	return core.HitEvent{
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
		Position:     pointToPosition3D(e.Position),
		Distance:     e.Distance,
	}
}

func KillEventToCore(e model.KillEvent) core.KillEvent {
	return core.KillEvent{
		ID:       e.ID,
		Time:     e.Time,
		Tick:     e.Tick,
		VictimID: e.VictimID,
		KillerID: e.KillerID,
		Cause:    e.Cause,
		Position: pointToPosition3D(e.Position),
		Crashed:  e.Crashed,
	}
}

func LockEventToCore(e model.LockEvent) core.LockEvent {
	return core.LockEvent{
		Time:       e.Time,
		Tick:       e.Tick,
		AircraftID: e.AircraftID,
		TargetID:   e.TargetID,
		From:       e.From,
		To:         e.To,
	}
}

func AuthorityEventToCore(e model.AuthorityEvent) core.AuthorityEvent {
	return core.AuthorityEvent{
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

func GeneralEventToCore(e model.GeneralEvent) core.GeneralEvent {
	return core.GeneralEvent{
		ID:        e.ID,
		Time:      e.Time,
		Tick:      e.Tick,
		Name:      e.Name,
		Message:   e.Message,
		ExtraData: jsonToMap(e.ExtraData),
	}
}

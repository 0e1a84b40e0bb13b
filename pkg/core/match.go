// Package core holds the recording types shared by the simulation, the
// recorder backends and the streaming protocol.
package core

import "time"

// Position3D is a point in the local world frame, metres. Y is up.
type Position3D struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
	Z float64 `json:"z" msgpack:"z"`
}

// Match is one recorded session of the world.
type Match struct {
	ID        uint
	SessionID string // uuid, stable across backends
	Name      string
	WorldName string
	Tag       string
	StartTime time.Time
	TickRate  int
	OriginLat float64
	OriginLon float64
	Settings  map[string]any
}

// Aircraft is registered once per spawned airframe. ID is the actor ID,
// which is never reused within a match.
type Aircraft struct {
	ID         uint64
	JoinTime   time.Time
	JoinTick   uint
	Callsign   string
	Profile    string
	Team       string
	InputOwner int32
	StateOwner int32
	Bot        bool
}

// AircraftState is a sampled pose of an aircraft.
type AircraftState struct {
	AircraftID uint64
	Time       time.Time
	Tick       uint
	Position   Position3D
	Velocity   Position3D
	Heading    float32 // degrees, [0, 360)
	Pitch      float32
	Roll       float32
	Speed      float32
	Throttle   float32
	Health     float32
	GForce     float32
	Flaps      bool
	IsAlive    bool
	Crashed    bool
	LockState  string
	TargetID   uint64
}

// UploadMetadata describes an exported match file for upload.
type UploadMetadata struct {
	MatchName string
	WorldName string
	Duration  float64 // seconds
	Tag       string
	Aircraft  int
	SessionID string
}

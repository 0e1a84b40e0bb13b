package streaming

import (
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Game client message types. Frames are binary msgpack.
const (
	MsgJoin      = "join"
	MsgInput     = "input"
	MsgAuthority = "authority"
	MsgState     = "state"

	MsgWelcome  = "welcome"
	MsgSnapshot = "snapshot"
	MsgEvent    = "event"
	MsgDamage   = "damage"
	MsgError    = "error"
)

// ErrUntyped rejects a frame without a message type.
var ErrUntyped = errors.New("frame without type")

// Frame is the envelope of every message between a game client and the
// server.
type Frame struct {
	Type    string             `msgpack:"type"`
	Payload msgpack.RawMessage `msgpack:"payload"`
}

// Encode wraps payload in a Frame of the given type.
func Encode(msgType string, payload any) ([]byte, error) {
	raw, err := msgpack.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	data, err := msgpack.Marshal(Frame{Type: msgType, Payload: raw})
	if err != nil {
		return nil, fmt.Errorf("marshal %s frame: %w", msgType, err)
	}
	return data, nil
}

// Decode reads a Frame without decoding its payload.
func Decode(data []byte) (Frame, error) {
	var f Frame
	if err := msgpack.Unmarshal(data, &f); err != nil {
		return Frame{}, fmt.Errorf("unmarshal frame: %w", err)
	}
	if f.Type == "" {
		return Frame{}, ErrUntyped
	}
	return f, nil
}

// Into decodes the payload into v.
func (f Frame) Into(v any) error {
	if err := msgpack.Unmarshal(f.Payload, v); err != nil {
		return fmt.Errorf("unmarshal %s payload: %w", f.Type, err)
	}
	return nil
}

// JoinMsg asks the server for an aircraft.
type JoinMsg struct {
	Callsign string `msgpack:"callsign"`
}

// InputMsg is one tick of pilot input for an aircraft the client drives.
type InputMsg struct {
	Actor       uint64     `msgpack:"actor"`
	Tick        uint       `msgpack:"tick"`
	Throttle    float64    `msgpack:"throttle"`
	PitchRoll   [2]float64 `msgpack:"pitchRoll"` // roll, pitch
	Yaw         float64    `msgpack:"yaw"`
	FireCannon  bool       `msgpack:"fireCannon"`
	FireMissile bool       `msgpack:"fireMissile"`
	Buttons     uint8      `msgpack:"buttons"`
}

// AuthorityMsg claims or releases input authority of an actor.
type AuthorityMsg struct {
	Actor uint64 `msgpack:"actor"`
	Claim bool   `msgpack:"claim"`
}

// StateMsg is a state update from a client that owns an actor's state.
type StateMsg struct {
	Actor           uint64     `msgpack:"actor"`
	Position        [3]float64 `msgpack:"position"`
	Rotation        [4]float64 `msgpack:"rotation"` // x, y, z, w
	Velocity        [3]float64 `msgpack:"velocity"`
	AngularVelocity [3]float64 `msgpack:"angularVelocity"`
	Throttle        float64    `msgpack:"throttle"`
	Health          float64    `msgpack:"health"`
	MaxHealth       float64    `msgpack:"maxHealth"`
	Flaps           bool       `msgpack:"flaps"`
	Dead            bool       `msgpack:"dead"`
	Crashed         bool       `msgpack:"crashed"`
}

// WelcomeMsg answers a join.
type WelcomeMsg struct {
	Participant int32  `msgpack:"participant"`
	Actor       uint64 `msgpack:"actor"`
	Team        string `msgpack:"team"`
	TickRate    int    `msgpack:"tickRate"`
}

// AircraftMsg is one aircraft in a snapshot.
type AircraftMsg struct {
	ID             uint64     `msgpack:"id"`
	Callsign       string     `msgpack:"callsign"`
	Team           string     `msgpack:"team"`
	InputOwner     int32      `msgpack:"inputOwner"`
	StateOwner     int32      `msgpack:"stateOwner"`
	Pilot          int32      `msgpack:"pilot"`
	Position       [3]float64 `msgpack:"position"`
	Rotation       [4]float64 `msgpack:"rotation"`
	Velocity       [3]float64 `msgpack:"velocity"`
	Throttle       float64    `msgpack:"throttle"`
	Health         float64    `msgpack:"health"`
	MaxHealth      float64    `msgpack:"maxHealth"`
	Flaps          bool       `msgpack:"flaps"`
	Dead           bool       `msgpack:"dead"`
	Crashed        bool       `msgpack:"crashed"`
	DamageEffect   bool       `msgpack:"damageEffect"`
	DeathEffect    bool       `msgpack:"deathEffect"`
	Lock           string     `msgpack:"lock"`
	Target         uint64     `msgpack:"target,omitempty"`
	TargetDistance float64    `msgpack:"targetDistance,omitempty"`
	Incoming       uint64     `msgpack:"incoming,omitempty"`
}

// ProjectileMsg is one bullet or missile in a snapshot.
type ProjectileMsg struct {
	ID       uint64     `msgpack:"id"`
	Kind     string     `msgpack:"kind"`
	Owner    uint64     `msgpack:"owner"`
	Target   uint64     `msgpack:"target,omitempty"`
	Position [3]float64 `msgpack:"position"`
	Rotation [4]float64 `msgpack:"rotation"`
	Velocity [3]float64 `msgpack:"velocity"`
	Exploded bool       `msgpack:"exploded,omitempty"`
}

// SnapshotMsg is the world at the end of a tick.
type SnapshotMsg struct {
	Tick        uint            `msgpack:"tick"`
	Time        int64           `msgpack:"time"` // unix milliseconds
	Aircraft    []AircraftMsg   `msgpack:"aircraft"`
	Projectiles []ProjectileMsg `msgpack:"projectiles"`
}

// EventMsg carries one world event. Data is the event struct itself.
type EventMsg struct {
	Kind string `msgpack:"kind"`
	Data any    `msgpack:"data"`
}

// DamageMsg asks a client that owns the victim's state to apply damage.
type DamageMsg struct {
	Victim     uint64     `msgpack:"victim"`
	Source     uint64     `msgpack:"source"`
	Projectile uint64     `msgpack:"projectile"`
	Amount     float64    `msgpack:"amount"`
	Cause      string     `msgpack:"cause"`
	Point      [3]float64 `msgpack:"point"`
}

// ErrorMsg reports a rejected request.
type ErrorMsg struct {
	For     string `msgpack:"for"`
	Message string `msgpack:"message"`
}

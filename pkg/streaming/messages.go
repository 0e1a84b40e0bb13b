package streaming

import (
	"encoding/json"

	"github.com/OCAP2/dogfight/pkg/core"
)

// Message types of the recorder stream.
const (
	TypeStartMatch      = "start_match"
	TypeEndMatch        = "end_match"
	TypeAddAircraft     = "add_aircraft"
	TypeAircraftState   = "aircraft_state"
	TypeFiredEvent      = "fired_event"
	TypeHitEvent        = "hit_event"
	TypeKillEvent       = "kill_event"
	TypeProjectileEvent = "projectile_event"
	TypeLockEvent       = "lock_event"
	TypeAuthorityEvent  = "authority_event"
	TypeGeneralEvent    = "general_event"
	TypeServerPerf      = "server_performance"
)

// Envelope wraps all messages sent to the recording server.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the server's acknowledgement response.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`  // the message type being acknowledged
}

// StartMatchPayload carries the match being recorded.
type StartMatchPayload struct {
	Match *core.Match `json:"match"`
}

package model

import (
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DatabaseModels is every table of the recording schema, in migration order.
// Geometry columns are stored as WKB, so the same list migrates on Postgres
// and SQLite.
var DatabaseModels = []interface{}{
	&Match{},
	&Aircraft{},
	&AircraftState{},
	&FiredEvent{},
	&ProjectileEvent{},
	&HitEvent{},
	&KillEvent{},
	&LockEvent{},
	&AuthorityEvent{},
	&GeneralEvent{},
	&ServerPerformance{},
}

// Match is one recorded session.
type Match struct {
	gorm.Model
	SessionID string         `json:"sessionId" gorm:"size:36;uniqueIndex"`
	Name      string         `json:"name" gorm:"size:127"`
	WorldName string         `json:"worldName" gorm:"size:127"`
	Tag       string         `json:"tag" gorm:"size:127"`
	StartTime time.Time      `json:"startTime" gorm:"type:timestamptz;index:idx_match_start"`
	EndTime   *time.Time     `json:"endTime" gorm:"type:timestamptz"`
	TickRate  int            `json:"tickRate"`
	Origin    geom.Point     `json:"origin"` // lon/lat of the world origin
	Settings  datatypes.JSON `json:"settings" gorm:"default:'{}'"`
}

func (*Match) TableName() string {
	return "matches"
}

// Aircraft is keyed by (MatchID, ObjectID). ObjectID is the actor ID.
type Aircraft struct {
	MatchID    uint      `json:"matchId" gorm:"primaryKey;autoIncrement:false"`
	ObjectID   uint64    `json:"id" gorm:"primaryKey;autoIncrement:false"`
	Match      Match     `gorm:"foreignkey:MatchID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	JoinTime   time.Time `json:"joinTime" gorm:"type:timestamptz;NOT NULL"`
	JoinTick   uint      `json:"joinTick"`
	Callsign   string    `json:"callsign" gorm:"size:32"`
	Profile    string    `json:"profile" gorm:"size:64"`
	Team       string    `json:"team" gorm:"size:8"`
	InputOwner int32     `json:"inputOwner"`
	StateOwner int32     `json:"stateOwner"`
	Bot        bool      `json:"bot" gorm:"default:false"`
}

func (*Aircraft) TableName() string {
	return "aircraft"
}

type AircraftState struct {
	ID               uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time             time.Time `json:"time" gorm:"type:timestamptz;"`
	MatchID          uint      `json:"matchId" gorm:"index:idx_aircraftstate_match_id"`
	Match            Match     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:MatchID;"`
	Tick             uint      `json:"tick" gorm:"index:idx_aircraftstate_tick"`
	AircraftObjectID uint64    `json:"aircraftId" gorm:"index:idx_aircraftstate_aircraft_id"`
	Aircraft         Aircraft  `gorm:"foreignkey:MatchID,AircraftObjectID;references:MatchID,ObjectID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`

	Position  geom.Point `json:"position"` // XYZ, local frame
	Altitude  float32    `json:"altitude"`
	VelocityX float32    `json:"velocityX"`
	VelocityY float32    `json:"velocityY"`
	VelocityZ float32    `json:"velocityZ"`
	Heading   float32    `json:"heading"`
	Pitch     float32    `json:"pitch"`
	Roll      float32    `json:"roll"`
	Speed     float32    `json:"speed"`
	Throttle  float32    `json:"throttle"`
	Health    float32    `json:"health"`
	GForce    float32    `json:"gForce"`
	Flaps     bool       `json:"flaps"`
	IsAlive   bool       `json:"isAlive"`
	Crashed   bool       `json:"crashed"`
	LockState string     `json:"lockState" gorm:"size:16"`
	TargetID  uint64     `json:"targetId"`
}

func (*AircraftState) TableName() string {
	return "aircraft_states"
}

type FiredEvent struct {
	ID           uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time         time.Time `json:"time" gorm:"type:timestamptz;"`
	MatchID      uint      `json:"matchId" gorm:"index:idx_firedevent_match_id"`
	Match        Match     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:MatchID;"`
	Tick         uint      `json:"tick" gorm:"index:idx_firedevent_tick"`
	ShooterID    uint64    `json:"shooterId" gorm:"index:idx_firedevent_shooter_id"`
	ProjectileID uint64    `json:"projectileId"`
	Weapon       string    `json:"weapon" gorm:"size:16"`
	Hardpoint    int       `json:"hardpoint"`
	TargetID     uint64    `json:"targetId"`

	StartPosition geom.Point `json:"startPos"`
	Direction     geom.Point `json:"direction"` // unit vector
}

func (*FiredEvent) TableName() string {
	return "fired_events"
}

type ProjectileEvent struct {
	ID           uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time         time.Time `json:"time" gorm:"type:timestamptz;"`
	MatchID      uint      `json:"matchId" gorm:"index:idx_projectile_match_id"`
	Match        Match     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:MatchID;"`
	LaunchTick   uint      `json:"launchTick" gorm:"index:idx_projectile_launch_tick"`
	EndTick      uint      `json:"endTick"`
	ProjectileID uint64    `json:"projectileId"`
	Kind         string    `json:"kind" gorm:"size:16"`
	OwnerID      uint64    `json:"ownerId" gorm:"index:idx_projectile_owner_id"`
	TargetID     uint64    `json:"targetId"`
	Outcome      string    `json:"outcome" gorm:"size:16"`
	HitID        uint64    `json:"hitId"`
	FlightTime   float32   `json:"flightTime"`

	Trajectory geom.Geometry  `json:"-"` // LineStringZM, M is the tick
	HitDetails datatypes.JSON `json:"hitDetails" gorm:"default:'{}'"`
}

func (*ProjectileEvent) TableName() string {
	return "projectile_events"
}

type HitEvent struct {
	ID           uint       `json:"id" gorm:"primarykey;autoIncrement;"`
	Time         time.Time  `json:"time" gorm:"type:timestamptz;"`
	MatchID      uint       `json:"matchId" gorm:"index:idx_hitevent_match_id"`
	Match        Match      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:MatchID;"`
	Tick         uint       `json:"tick" gorm:"index:idx_hitevent_tick"`
	VictimID     uint64     `json:"victimId" gorm:"index:idx_hitevent_victim_id"`
	ShooterID    uint64     `json:"shooterId" gorm:"index:idx_hitevent_shooter_id"`
	ProjectileID uint64     `json:"projectileId"`
	Cause        string     `json:"cause" gorm:"size:16"`
	Amount       float32    `json:"amount"`
	HealthBefore float32    `json:"healthBefore"`
	HealthAfter  float32    `json:"healthAfter"`
	Position     geom.Point `json:"position"`
	Distance     float32    `json:"distance"`
}

func (*HitEvent) TableName() string {
	return "hit_events"
}

type KillEvent struct {
	ID       uint       `json:"id" gorm:"primarykey;autoIncrement;"`
	Time     time.Time  `json:"time" gorm:"type:timestamptz;"`
	MatchID  uint       `json:"matchId" gorm:"index:idx_killevent_match_id"`
	Match    Match      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:MatchID;"`
	Tick     uint       `json:"tick" gorm:"index:idx_killevent_tick"`
	VictimID uint64     `json:"victimId" gorm:"index:idx_killevent_victim_id"`
	KillerID uint64     `json:"killerId" gorm:"index:idx_killevent_killer_id"`
	Cause    string     `json:"cause" gorm:"size:16"`
	Position geom.Point `json:"position"`
	Crashed  bool       `json:"crashed"`
}

func (*KillEvent) TableName() string {
	return "kill_events"
}

type LockEvent struct {
	ID         uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time       time.Time `json:"time" gorm:"type:timestamptz;"`
	MatchID    uint      `json:"matchId" gorm:"index:idx_lockevent_match_id"`
	Match      Match     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:MatchID;"`
	Tick       uint      `json:"tick"`
	AircraftID uint64    `json:"aircraftId" gorm:"index:idx_lockevent_aircraft_id"`
	TargetID   uint64    `json:"targetId"`
	From       string    `json:"from" gorm:"size:16"`
	To         string    `json:"to" gorm:"size:16"`
}

func (*LockEvent) TableName() string {
	return "lock_events"
}

type AuthorityEvent struct {
	ID         uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time       time.Time `json:"time" gorm:"type:timestamptz;"`
	MatchID    uint      `json:"matchId" gorm:"index:idx_authorityevent_match_id"`
	Match      Match     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:MatchID;"`
	Tick       uint      `json:"tick"`
	ActorID    uint64    `json:"actorId" gorm:"index:idx_authorityevent_actor_id"`
	ReplacedBy uint64    `json:"replacedBy"`
	Kind       string    `json:"kind" gorm:"size:16"`
	InputOwner int32     `json:"inputOwner"`
	StateOwner int32     `json:"stateOwner"`
	Reason     string    `json:"reason" gorm:"size:32"`
}

func (*AuthorityEvent) TableName() string {
	return "authority_events"
}

type GeneralEvent struct {
	ID        uint           `json:"id" gorm:"primarykey;autoIncrement;"`
	Time      time.Time      `json:"time" gorm:"type:timestamptz;"`
	MatchID   uint           `json:"matchId" gorm:"index:idx_generalevent_match_id"`
	Match     Match          `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:MatchID;"`
	Tick      uint           `json:"tick"`
	Name      string         `json:"name" gorm:"size:64"`
	Message   string         `json:"message"`
	ExtraData datatypes.JSON `json:"extraData" gorm:"default:'{}'"`
}

func (*GeneralEvent) TableName() string {
	return "general_events"
}

// ServerPerformance is a tick loop health sample.
type ServerPerformance struct {
	Time         time.Time `json:"time" gorm:"type:timestamptz;index:idx_serverperf_time"`
	MatchID      uint      `json:"matchId" gorm:"index:idx_serverperf_match_id"`
	Match        Match     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:MatchID;"`
	Tick         uint      `json:"tick"`
	TickAvgMs    float32   `json:"tickAvgMs"`
	TickMaxMs    float32   `json:"tickMaxMs"`
	Aircraft     int       `json:"aircraft"`
	Projectiles  int       `json:"projectiles"`
	Clients      int       `json:"clients"`
	DroppedInput int       `json:"droppedInput"`
}

func (*ServerPerformance) TableName() string {
	return "server_performances"
}

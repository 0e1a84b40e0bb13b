// Package authority models the single-writer ownership of replicated actors.
//
// Every actor has one participant that feeds it input and one that owns its
// canonical state. A replica derives its local Tag from those owners and
// gates every mutation behind Require.
package authority

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/OCAP2/dogfight/internal/actor"
)

// ErrNotAuthorized is returned when a replica attempts a mutation it does
// not hold the authority for.
var ErrNotAuthorized = errors.New("not authorized")

// Participant identifies a network peer.
type Participant int32

const (
	Nobody Participant = -1
	Host   Participant = 0
)

func (p Participant) String() string {
	switch p {
	case Nobody:
		return "nobody"
	case Host:
		return "host"
	}
	return "p" + strconv.Itoa(int(p))
}

// Owners is the cluster-wide authority assignment for one actor.
type Owners struct {
	Input Participant `json:"input" msgpack:"input"`
	State Participant `json:"state" msgpack:"state"`
}

// Bound returns owners where p holds both input and state authority.
func Bound(p Participant) Owners { return Owners{Input: p, State: p} }

// TagFor derives the flags held by the replica of participant local.
func (o Owners) TagFor(local Participant) Tag {
	var t Tag
	if o.Input != Nobody && o.Input == local {
		t |= Input
	}
	if o.State != Nobody && o.State == local {
		t |= State
	}
	return t
}

// Tag holds the authority flags of one replica for one actor.
type Tag uint8

const (
	Input Tag = 1 << iota
	State

	None Tag = 0
)

func (t Tag) HasInput() bool { return t&Input != 0 }
func (t Tag) HasState() bool { return t&State != 0 }

// Consistent reports whether input authority implies state authority.
func (t Tag) Consistent() bool { return !t.HasInput() || t.HasState() }

func (t Tag) String() string {
	switch t {
	case None:
		return "none"
	case Input:
		return "input"
	case State:
		return "state"
	case Input | State:
		return "input+state"
	}
	return "invalid"
}

// Error describes a rejected mutation.
type Error struct {
	Actor   actor.ID
	Op      string
	Missing Tag
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s on actor %s: missing %s authority", e.Op, e.Actor, e.Missing)
}

func (e *Error) Unwrap() error { return ErrNotAuthorized }

// Require returns an *Error wrapping ErrNotAuthorized unless have contains
// every flag in need.
func Require(id actor.ID, op string, have, need Tag) error {
	if missing := need &^ have; missing != None {
		return &Error{Actor: id, Op: op, Missing: missing}
	}
	return nil
}

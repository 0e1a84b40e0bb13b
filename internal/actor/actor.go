// Package actor provides non-owning handles to simulated entities.
//
// An ID is never reused within a process, so a handle to a despawned actor
// resolves to "gone" instead of silently aliasing a newer entity.
package actor

import (
	"fmt"
	"sort"
	"sync/atomic"
)

// ID identifies a spawned actor. The zero ID is never allocated.
type ID uint64

const None ID = 0

func (id ID) Valid() bool { return id != None }

func (id ID) String() string { return fmt.Sprintf("#%d", uint64(id)) }

// Kind classifies what an ID refers to.
type Kind uint8

const (
	KindAircraft Kind = iota + 1
	KindBullet
	KindMissile
)

func (k Kind) String() string {
	switch k {
	case KindAircraft:
		return "aircraft"
	case KindBullet:
		return "bullet"
	case KindMissile:
		return "missile"
	}
	return "unknown"
}

// Allocator hands out monotonically increasing IDs.
type Allocator struct {
	last atomic.Uint64
}

func (a *Allocator) Next() ID {
	return ID(a.last.Add(1))
}

// Set stores actors of one type by ID and iterates in ID order so every
// replica walks the same sequence.
type Set[T any] struct {
	items map[ID]T
}

func NewSet[T any]() *Set[T] {
	return &Set[T]{items: make(map[ID]T)}
}

func (s *Set[T]) Put(id ID, v T) { s.items[id] = v }

// Get resolves a handle; ok is false when the actor is gone.
func (s *Set[T]) Get(id ID) (v T, ok bool) {
	v, ok = s.items[id]
	return v, ok
}

func (s *Set[T]) Has(id ID) bool {
	_, ok := s.items[id]
	return ok
}

func (s *Set[T]) Delete(id ID) bool {
	_, ok := s.items[id]
	delete(s.items, id)
	return ok
}

func (s *Set[T]) Len() int { return len(s.items) }

// IDs returns a sorted snapshot of the stored IDs. Callers may mutate the
// set while ranging over the result.
func (s *Set[T]) IDs() []ID {
	ids := make([]ID, 0, len(s.items))
	for id := range s.items {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

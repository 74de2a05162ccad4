package entities

import (
	"github.com/diwise/record-mirror/pkg/mirror/types"
)

// valueStore holds the current field values of an entity together with the
// set of pending removals and the per field dirty state. Each mutation
// bumps a generation counter for the touched field, so that a save can
// acknowledge exactly the mutations it transmitted and nothing newer.
type valueStore struct {
	fields   map[string]types.Value
	removals map[string]struct{}
	dirty    map[string]struct{}

	generation  uint64
	generations map[string]uint64
}

func newValueStore() *valueStore {
	return &valueStore{
		fields:      map[string]types.Value{},
		removals:    map[string]struct{}{},
		dirty:       map[string]struct{}{},
		generations: map[string]uint64{},
	}
}

func (s *valueStore) get(name string) (types.Value, bool) {
	v, ok := s.fields[name]
	return v, ok
}

func (s *valueStore) set(name string, value types.Value) {
	delete(s.removals, name)

	s.fields[name] = value
	s.dirty[name] = struct{}{}

	s.generation++
	s.generations[name] = s.generation
}

// remove clears any current value and records the removal intent. The
// intent is recorded even if the field was never observed locally, since
// it may still exist server side.
func (s *valueStore) remove(name string) {
	delete(s.fields, name)
	delete(s.dirty, name)

	s.removals[name] = struct{}{}

	s.generation++
	s.generations[name] = s.generation
}

func (s *valueStore) hasChanges() bool {
	return len(s.dirty) > 0 || len(s.removals) > 0
}

// snapshot copies the dirty fields and pending removals along with their
// generations, forming the diff to be transmitted by a save.
func (s *valueStore) snapshot() (map[string]types.Value, []string, map[string]uint64) {
	fields := make(map[string]types.Value, len(s.dirty))
	generations := make(map[string]uint64, len(s.dirty)+len(s.removals))

	for name := range s.dirty {
		fields[name] = s.fields[name]
		generations[name] = s.generations[name]
	}

	removals := make([]string, 0, len(s.removals))
	for name := range s.removals {
		removals = append(removals, name)
		generations[name] = s.generations[name]
	}

	return fields, removals, generations
}

// acknowledge clears the dirty state for every transmitted field whose
// generation still matches the snapshot. Fields that were mutated while
// the save was in flight keep their dirty state and will be retransmitted
// by the next save.
func (s *valueStore) acknowledge(generations map[string]uint64) {
	for name, gen := range generations {
		if s.generations[name] != gen {
			continue
		}

		delete(s.dirty, name)
		delete(s.removals, name)
		delete(s.generations, name)
	}
}

// replaceAll overwrites the entire store with server state, discarding any
// pending local mutations.
func (s *valueStore) replaceAll(fields map[string]types.Value) {
	s.fields = make(map[string]types.Value, len(fields))
	for name, value := range fields {
		s.fields[name] = value
	}

	s.removals = map[string]struct{}{}
	s.dirty = map[string]struct{}{}
	s.generations = map[string]uint64{}
}

package entities

import (
	"fmt"
	"time"

	mirrorerrors "github.com/diwise/record-mirror/pkg/mirror/errors"
	"github.com/diwise/record-mirror/pkg/mirror/types"
)

// Changeset is the diff a save transmits: the currently dirty fields, the
// pending removals and, when it has been reattached, the access policy.
// The generations recorded at snapshot time let the entity acknowledge
// exactly these mutations once the server has confirmed them.
type Changeset struct {
	Fields   map[string]types.Value
	Removals []string

	// Policy is the access policy to transmit when PolicyChanged is set.
	// A nil Policy with PolicyChanged set detaches the policy server side.
	Policy        types.Policy
	PolicyChanged bool

	generations      map[string]uint64
	policyGeneration uint64
}

func (cs *Changeset) Empty() bool {
	return len(cs.Fields) == 0 && len(cs.Removals) == 0 && !cs.PolicyChanged
}

// Changes snapshots the diff to transmit on the next save. Every reference
// in the diff must resolve to an identity, a save is never allowed to
// silently omit a link to an unsaved entity.
//
// The remaining methods in this file are used by the sync coordinator to
// apply server responses and are not meant to be called directly.
func (e *Entity) Changes() (*Changeset, error) {
	e.mu.Lock()

	if e.deleted {
		e.mu.Unlock()
		return nil, mirrorerrors.NewUsageAfterDeleteError(e.kind)
	}

	fields, removals, generations := e.values.snapshot()

	cs := &Changeset{
		Fields:      fields,
		Removals:    removals,
		generations: generations,
	}

	if e.policyDirty {
		cs.Policy = e.policy
		cs.PolicyChanged = true
		cs.policyGeneration = e.policyGeneration
	}

	e.mu.Unlock()

	// resolution must happen outside the entity lock, the target of a
	// reference may be this very entity
	for name, value := range fields {
		ref, ok := value.Reference()
		if !ok {
			continue
		}

		if _, resolved := ref.Resolve(); !resolved {
			return nil, mirrorerrors.NewUnresolvedReferenceError(
				fmt.Sprintf("field %q references an unsaved entity of kind %s", name, ref.Kind()),
			)
		}
	}

	return cs, nil
}

// Dependencies returns the targets of any unresolved references among the
// dirty fields. The batch coordinator uses this to order saves so that an
// entity is never transmitted before the entities it points at.
func (e *Entity) Dependencies() []*Entity {
	e.mu.Lock()

	refs := make([]*types.Reference, 0, 2)

	for name := range e.values.dirty {
		if ref, ok := e.values.fields[name].Reference(); ok {
			refs = append(refs, ref)
		}
	}

	e.mu.Unlock()

	deps := make([]*Entity, 0, len(refs))

	for _, ref := range refs {
		if _, resolved := ref.Resolve(); resolved {
			continue
		}

		if target, ok := ref.Target().(*Entity); ok {
			deps = append(deps, target)
		}
	}

	return deps
}

// ApplyCreated records the server response to a successful create call.
func (e *Entity) ApplyCreated(identity string, createdAt, updatedAt time.Time, cs *Changeset) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.identity = identity
	e.createdAt = createdAt
	e.updatedAt = updatedAt

	e.acknowledge(cs)
}

// ApplyUpdated records the server response to a successful update call.
func (e *Entity) ApplyUpdated(updatedAt time.Time, cs *Changeset) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.updatedAt = updatedAt

	e.acknowledge(cs)
}

func (e *Entity) acknowledge(cs *Changeset) {
	e.values.acknowledge(cs.generations)

	if cs.PolicyChanged && e.policyGeneration == cs.policyGeneration {
		e.policyDirty = false
	}
}

// ApplyRefreshed overwrites all local state with the fetched server
// record. Pending local mutations are discarded, refresh establishes a new
// ground truth.
func (e *Entity) ApplyRefreshed(fields map[string]types.Value, createdAt, updatedAt time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.values.replaceAll(fields)
	e.createdAt = createdAt
	e.updatedAt = updatedAt
	e.policyDirty = false
}

// MarkDeleted transitions the entity to its terminal state. Any operation
// after this point is a usage error.
func (e *Entity) MarkDeleted() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.deleted = true
}

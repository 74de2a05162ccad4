package entities

import (
	"fmt"
	"regexp"
	"sync"
	"time"

	mirrorerrors "github.com/diwise/record-mirror/pkg/mirror/errors"
	"github.com/diwise/record-mirror/pkg/mirror/types"
)

var kindPattern = regexp.MustCompile("^[A-Za-z][A-Za-z0-9]*$")

type EntityDecoratorFunc func(e *Entity)

// New creates a local entity of the given kind that has never been
// persisted remotely. The kind can be any alphanumeric string that begins
// with a letter and is fixed for the lifetime of the entity.
func New(kind string, decorators ...EntityDecoratorFunc) (*Entity, error) {
	if !kindPattern.MatchString(kind) {
		return nil, mirrorerrors.NewInvalidKeyError(fmt.Sprintf("invalid entity kind %q", kind))
	}

	e := &Entity{
		kind:   kind,
		values: newValueStore(),
	}

	for _, decorator := range decorators {
		decorator(e)
	}

	return e, nil
}

// NewFromRecord hydrates a clean entity from a server record. The entity
// starts out non dirty, with the identity and timestamps assigned by the
// remote service.
func NewFromRecord(kind, identity string, fields map[string]types.Value, createdAt, updatedAt time.Time) (*Entity, error) {
	if !kindPattern.MatchString(kind) {
		return nil, mirrorerrors.NewInvalidKeyError(fmt.Sprintf("invalid entity kind %q", kind))
	}

	if identity == "" {
		return nil, mirrorerrors.NewNotPersistedError("a hydrated entity requires an identity")
	}

	e := &Entity{
		kind:      kind,
		identity:  identity,
		createdAt: createdAt,
		updatedAt: updatedAt,
		values:    newValueStore(),
	}
	e.values.replaceAll(fields)

	return e, nil
}

func F(name string, value types.Value) EntityDecoratorFunc {
	return func(e *Entity) { e.Set(name, value) }
}

func Text(name, value string) EntityDecoratorFunc {
	return F(name, types.Text(value))
}

func Number(name string, value float64) EntityDecoratorFunc {
	return F(name, types.Number(value))
}

func Bool(name string, value bool) EntityDecoratorFunc {
	return F(name, types.Bool(value))
}

func R(name string, ref *types.Reference) EntityDecoratorFunc {
	return F(name, types.EntityRef(ref))
}

func WithPolicy(policy types.Policy) EntityDecoratorFunc {
	return func(e *Entity) { e.SetPolicy(policy) }
}

// Entity is the local mirror of one remote record. All state transitions
// go through the get/set/remove contract and the sync coordinator; the
// entity itself never talks to the network.
type Entity struct {
	mu sync.Mutex

	kind     string
	identity string

	createdAt time.Time
	updatedAt time.Time

	values *valueStore

	policy           types.Policy
	policyDirty      bool
	policyGeneration uint64

	deleted bool
}

func (e *Entity) Kind() string {
	return e.kind
}

func (e *Entity) Identity() string {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.identity
}

// CreatedAt returns the server assigned creation timestamp, or the zero
// time if the entity has never been saved.
func (e *Entity) CreatedAt() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.createdAt
}

func (e *Entity) UpdatedAt() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.updatedAt
}

// Get returns the current value of a field. Fields that are neither set
// locally nor known from the server report absent, no implicit fetch is
// performed. Reads on a deleted entity report absent as well, only
// mutating and syncing operations fail after delete.
func (e *Entity) Get(key string) (types.Value, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.deleted {
		return types.Value{}, false
	}

	return e.values.get(key)
}

func (e *Entity) Set(key string, value types.Value) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.deleted {
		return mirrorerrors.NewUsageAfterDeleteError(e.kind)
	}

	if key == "" {
		return mirrorerrors.NewInvalidKeyError("field keys must be non empty strings")
	}

	e.values.set(key, value)
	return nil
}

func (e *Entity) Remove(key string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.deleted {
		return mirrorerrors.NewUsageAfterDeleteError(e.kind)
	}

	if key == "" {
		return mirrorerrors.NewInvalidKeyError("field keys must be non empty strings")
	}

	e.values.remove(key)
	return nil
}

func (e *Entity) Policy() types.Policy {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.policy
}

func (e *Entity) SetPolicy(policy types.Policy) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.deleted {
		return mirrorerrors.NewUsageAfterDeleteError(e.kind)
	}

	e.policy = policy
	e.policyDirty = true
	e.policyGeneration++
	return nil
}

// IsDirty reports whether the entity has local mutations that the server
// has not acknowledged. An entity without an identity is always dirty.
func (e *Entity) IsDirty() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.isDirty()
}

func (e *Entity) isDirty() bool {
	return e.identity == "" || e.values.hasChanges() || e.policyDirty
}

// Address returns a reference to this entity, so that other entities can
// point at it before or after it has been assigned an identity.
func (e *Entity) Address() *types.Reference {
	return types.NewReference(e)
}

func (e *Entity) Deleted() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.deleted
}

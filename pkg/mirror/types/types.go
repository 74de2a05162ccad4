package types

import (
	"sync"
)

// ValueKind enumerates the variants a field value can take.
type ValueKind int

const (
	KindText ValueKind = iota
	KindNumber
	KindBool
	KindBytes
	KindReference
)

// Value is the tagged union stored under each field name. Consumers
// pattern match on Kind and downcast via the typed accessors, the core
// never interprets field contents.
type Value struct {
	kind    ValueKind
	text    string
	number  float64
	boolean bool
	bytes   []byte
	ref     *Reference
}

func Text(v string) Value {
	return Value{kind: KindText, text: v}
}

func Number(v float64) Value {
	return Value{kind: KindNumber, number: v}
}

func Bool(v bool) Value {
	return Value{kind: KindBool, boolean: v}
}

func Bytes(v []byte) Value {
	return Value{kind: KindBytes, bytes: v}
}

func EntityRef(ref *Reference) Value {
	return Value{kind: KindReference, ref: ref}
}

func (v Value) Kind() ValueKind {
	return v.kind
}

// Contents returns the underlying value as one of string, float64, bool,
// []byte or *Reference depending on Kind.
func (v Value) Contents() any {
	switch v.kind {
	case KindText:
		return v.text
	case KindNumber:
		return v.number
	case KindBool:
		return v.boolean
	case KindBytes:
		return v.bytes
	default:
		return v.ref
	}
}

func (v Value) Text() (string, bool) {
	return v.text, v.kind == KindText
}

func (v Value) Number() (float64, bool) {
	return v.number, v.kind == KindNumber
}

func (v Value) Bool() (bool, bool) {
	return v.boolean, v.kind == KindBool
}

func (v Value) Bytes() ([]byte, bool) {
	return v.bytes, v.kind == KindBytes
}

func (v Value) Reference() (*Reference, bool) {
	return v.ref, v.kind == KindReference
}

// Referent is anything a Reference can point at. Entities implement it.
type Referent interface {
	Kind() string
	Identity() string
}

// Reference is a lightweight pointer to another entity. A reference to an
// entity that has not been assigned an identity yet is unresolved and keeps
// a non-owning handle to its target, so that resolution can be retried
// after the target has been saved. References are safe for concurrent use.
type Reference struct {
	mu sync.Mutex

	kind     string
	identity string
	target   Referent
}

// NewReference captures the target's kind and, when the target has already
// been persisted, its identity.
func NewReference(target Referent) *Reference {
	r := &Reference{
		kind:     target.Kind(),
		identity: target.Identity(),
	}

	if r.identity == "" {
		r.target = target
	}

	return r
}

// ResolvedReference creates a reference from a kind and identity received
// over the wire.
func ResolvedReference(kind, identity string) *Reference {
	return &Reference{kind: kind, identity: identity}
}

func (r *Reference) Kind() string {
	return r.kind
}

// Resolve returns the identity of the referenced entity. The target is
// consulted live, so a reference created before its target was saved
// resolves as soon as the target has been assigned an identity. Callers
// must not hold the target's lock when resolving, the target of a
// reference may be the calling entity itself.
func (r *Reference) Resolve() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.identity != "" {
		return r.identity, true
	}

	if r.target != nil {
		if identity := r.target.Identity(); identity != "" {
			r.identity = identity
			r.target = nil
			return identity, true
		}
	}

	return "", false
}

// Target returns the entity handle this reference was created from, or nil
// once the reference has been resolved.
func (r *Reference) Target() Referent {
	if _, ok := r.Resolve(); ok {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	return r.target
}

// Policy is an opaque access control descriptor attached to an entity. It
// is transmitted as-is with the next save and enforced by the remote
// service, never interpreted locally.
type Policy map[string]any

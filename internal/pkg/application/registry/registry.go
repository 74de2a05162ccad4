package registry

import (
	"context"
	"time"
)

// Record is a stored server side record, the ground truth that client side
// mirrors reconcile against.
type Record struct {
	Identity  string
	Kind      string
	Fields    map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RecordRegistry stores records keyed by tenant, kind and identity.
type RecordRegistry interface {
	Create(ctx context.Context, tenant, kind string, fields map[string]any) (*Record, error)
	Retrieve(ctx context.Context, tenant, kind, identity string) (*Record, error)
	Update(ctx context.Context, tenant, kind, identity string, set map[string]any, remove []string) (*Record, error)
	Delete(ctx context.Context, tenant, kind, identity string) error
}

package mirror

import (
	"context"

	"github.com/diwise/record-mirror/pkg/mirror/entities"
	mirrorerrors "github.com/diwise/record-mirror/pkg/mirror/errors"
)

// Coordinator reconciles local entity state with the remote store. It
// computes the diff to transmit, issues the create or update call and
// applies the server response back onto the entity.
//
// A failed operation leaves the entity exactly as it was before the call,
// so save is always safe to retry: the diff is recomputed from the live
// dirty state each time.
type Coordinator struct {
	store RemoteStore
}

func NewCoordinator(store RemoteStore) *Coordinator {
	return &Coordinator{store: store}
}

// Save transmits the entity's pending mutations. A non dirty entity
// succeeds trivially without a remote call. Every reference in the diff
// must resolve, otherwise the whole save fails before anything is sent.
func (c *Coordinator) Save(ctx context.Context, e *entities.Entity) error {
	cs, err := e.Changes()
	if err != nil {
		return err
	}

	identity := e.Identity()

	if identity != "" && cs.Empty() {
		return nil
	}

	if identity == "" {
		result, err := c.store.Create(ctx, e.Kind(), cs)
		if err != nil {
			return err
		}

		e.ApplyCreated(result.Identity(), result.CreatedAt(), result.UpdatedAt(), cs)
		return nil
	}

	result, err := c.store.Update(ctx, e.Kind(), identity, cs)
	if err != nil {
		return err
	}

	e.ApplyUpdated(result.UpdatedAt(), cs)
	return nil
}

// Delete removes the remote record. The entity transitions to its terminal
// state on success and should be discarded by the caller, local field
// state is left untouched.
func (c *Coordinator) Delete(ctx context.Context, e *entities.Entity) error {
	if e.Deleted() {
		return mirrorerrors.NewUsageAfterDeleteError(e.Kind())
	}

	identity := e.Identity()
	if identity == "" {
		return mirrorerrors.NewNotPersistedError("delete requires an entity that has been saved")
	}

	err := c.store.Delete(ctx, e.Kind(), identity)
	if err != nil {
		return err
	}

	e.MarkDeleted()
	return nil
}

// Refresh overwrites all local state with the current server record.
// Pending local mutations are discarded.
func (c *Coordinator) Refresh(ctx context.Context, e *entities.Entity) error {
	if e.Deleted() {
		return mirrorerrors.NewUsageAfterDeleteError(e.Kind())
	}

	identity := e.Identity()
	if identity == "" {
		return mirrorerrors.NewNotPersistedError("refresh requires an entity that has been saved")
	}

	result, err := c.store.Fetch(ctx, e.Kind(), identity)
	if err != nil {
		return err
	}

	e.ApplyRefreshed(result.Fields, result.CreatedAt, result.UpdatedAt)
	return nil
}

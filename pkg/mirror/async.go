package mirror

import (
	"context"

	"github.com/diwise/record-mirror/pkg/mirror/entities"
)

// Background variants of every operation. Each invocation delivers exactly
// one terminal notification on a worker goroutine: success or failure,
// never both and never neither. Once dispatched an operation runs to
// completion, callers that need cancellation should ignore the callback.
//
// Concurrent background operations on the same entity are not serialized
// here. Callers must avoid overlapping mutating calls on one entity if
// ordering matters.

type SaveCallback func(saved bool, err error)
type DeleteCallback func(deleted bool, err error)
type RefreshCallback func(e *entities.Entity, err error)
type BatchSaveCallback func(result *BatchSaveResult, err error)

func (c *Coordinator) SaveInBackground(ctx context.Context, e *entities.Entity, callback SaveCallback) {
	go func() {
		err := c.Save(ctx, e)
		if callback != nil {
			callback(err == nil, err)
		}
	}()
}

func (c *Coordinator) DeleteInBackground(ctx context.Context, e *entities.Entity, callback DeleteCallback) {
	go func() {
		err := c.Delete(ctx, e)
		if callback != nil {
			callback(err == nil, err)
		}
	}()
}

func (c *Coordinator) RefreshInBackground(ctx context.Context, e *entities.Entity, callback RefreshCallback) {
	go func() {
		err := c.Refresh(ctx, e)
		if callback != nil {
			if err != nil {
				callback(nil, err)
			} else {
				callback(e, nil)
			}
		}
	}()
}

func (c *Coordinator) SaveAllInBackground(ctx context.Context, batch []*entities.Entity, callback BatchSaveCallback) {
	go func() {
		result, err := c.SaveAll(ctx, batch)
		if callback != nil {
			callback(result, err)
		}
	}()
}

package mirror

import (
	"time"

	"github.com/diwise/record-mirror/pkg/mirror/entities"
	"github.com/diwise/record-mirror/pkg/mirror/types"
)

type CreateResult struct {
	identity  string
	createdAt time.Time
	updatedAt time.Time
}

func NewCreateResult(identity string, createdAt, updatedAt time.Time) *CreateResult {
	return &CreateResult{
		identity:  identity,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}
}

func (r CreateResult) Identity() string {
	return r.identity
}

func (r CreateResult) CreatedAt() time.Time {
	return r.createdAt
}

func (r CreateResult) UpdatedAt() time.Time {
	return r.updatedAt
}

type UpdateResult struct {
	updatedAt time.Time
}

func NewUpdateResult(updatedAt time.Time) *UpdateResult {
	return &UpdateResult{updatedAt: updatedAt}
}

func (r UpdateResult) UpdatedAt() time.Time {
	return r.updatedAt
}

type FetchResult struct {
	Fields    map[string]types.Value
	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewFetchResult(fields map[string]types.Value, createdAt, updatedAt time.Time) *FetchResult {
	return &FetchResult{
		Fields:    fields,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}
}

// BatchSaveResult reports which entities a batch save managed to persist
// and which were never attempted because an earlier tier failed. Entities
// that were saved stay saved, the remote service is not assumed to support
// cross entity transactions.
type BatchSaveResult struct {
	Saved        []*entities.Entity
	NotAttempted []*entities.Entity
}

package mirror

import (
	"context"

	"github.com/diwise/record-mirror/pkg/mirror/entities"
)

//go:generate moq -rm -out ../test/remotestore_mock.go . RemoteStore

// RemoteStore is the remote service collaborator. All calls are keyed by
// kind and identity, nothing here prescribes a specific wire encoding.
type RemoteStore interface {
	Create(ctx context.Context, kind string, cs *entities.Changeset) (*CreateResult, error)
	Update(ctx context.Context, kind, identity string, cs *entities.Changeset) (*UpdateResult, error)
	Delete(ctx context.Context, kind, identity string) error
	Fetch(ctx context.Context, kind, identity string) (*FetchResult, error)
}

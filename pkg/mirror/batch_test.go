package mirror_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/diwise/record-mirror/pkg/mirror"
	"github.com/diwise/record-mirror/pkg/mirror/entities"
	mirrorerrors "github.com/diwise/record-mirror/pkg/mirror/errors"
	"github.com/diwise/record-mirror/pkg/mirror/types"

	"github.com/matryer/is"
)

func TestSaveAllOrdersByDependency(t *testing.T) {
	is := is.New(t)

	var mu sync.Mutex
	order := []string{}

	store := storingMock()
	inner := store.CreateFunc
	store.CreateFunc = func(ctx context.Context, kind string, cs *entities.Changeset) (*mirror.CreateResult, error) {
		mu.Lock()
		order = append(order, kind)
		mu.Unlock()
		return inner(ctx, kind, cs)
	}

	c := mirror.NewCoordinator(store)

	publisher, _ := entities.New("Publisher")
	author, _ := entities.New("Author")
	author.Set("publisher", types.EntityRef(publisher.Address()))
	note, _ := entities.New("Note")
	note.Set("author", types.EntityRef(author.Address()))

	result, err := c.SaveAll(context.Background(), []*entities.Entity{note, author, publisher})
	is.NoErr(err)

	is.Equal(len(result.Saved), 3)
	is.Equal(len(result.NotAttempted), 0)

	is.Equal(order, []string{"Publisher", "Author", "Note"})

	for _, e := range []*entities.Entity{publisher, author, note} {
		is.True(e.Identity() != "")
		is.True(!e.IsDirty())
	}
}

func TestSaveAllToleratesDuplicateEntries(t *testing.T) {
	is := is.New(t)
	store := storingMock()
	c := mirror.NewCoordinator(store)

	e, _ := entities.New("Note", entities.Text("title", "Hi"))

	result, err := c.SaveAll(context.Background(), []*entities.Entity{e, e, e})
	is.NoErr(err)

	is.Equal(len(result.Saved), 1)
	is.Equal(len(store.CreateCalls()), 1)
}

func TestSaveAllSavesIndependentEntitiesConcurrently(t *testing.T) {
	is := is.New(t)
	store := storingMock()
	c := mirror.NewCoordinator(store)

	batch := make([]*entities.Entity, 0, 8)
	for range 8 {
		e, _ := entities.New("Note", entities.Text("title", "Hi"))
		batch = append(batch, e)
	}

	result, err := c.SaveAll(context.Background(), batch)
	is.NoErr(err)

	is.Equal(len(result.Saved), 8)
	is.Equal(len(store.CreateCalls()), 8)
}

func TestSaveAllStopsAtFirstFailedTier(t *testing.T) {
	is := is.New(t)

	store := storingMock()
	inner := store.CreateFunc
	store.CreateFunc = func(ctx context.Context, kind string, cs *entities.Changeset) (*mirror.CreateResult, error) {
		if kind == "Author" {
			return nil, mirrorerrors.NewRemoteError("service unavailable", nil)
		}
		return inner(ctx, kind, cs)
	}

	c := mirror.NewCoordinator(store)

	publisher, _ := entities.New("Publisher")
	author, _ := entities.New("Author")
	author.Set("publisher", types.EntityRef(publisher.Address()))
	note, _ := entities.New("Note")
	note.Set("author", types.EntityRef(author.Address()))

	result, err := c.SaveAll(context.Background(), []*entities.Entity{note, author, publisher})
	is.True(errors.Is(err, mirrorerrors.ErrRemote))

	is.Equal(len(result.Saved), 1)
	is.Equal(result.Saved[0], publisher)

	is.Equal(len(result.NotAttempted), 1)
	is.Equal(result.NotAttempted[0], note)

	// the earlier tier stays saved
	is.True(publisher.Identity() != "")
	is.True(note.IsDirty())
}

func TestSaveAllRejectsCyclicBatches(t *testing.T) {
	is := is.New(t)
	store := storingMock()
	c := mirror.NewCoordinator(store)

	a, _ := entities.New("Author")
	b, _ := entities.New("Author")
	a.Set("mentor", types.EntityRef(b.Address()))
	b.Set("mentor", types.EntityRef(a.Address()))

	_, err := c.SaveAll(context.Background(), []*entities.Entity{a, b})
	is.True(errors.Is(err, mirrorerrors.ErrCyclicDependency))

	is.Equal(len(store.CreateCalls()), 0)
	is.True(a.IsDirty())
	is.True(b.IsDirty())
}

func TestSaveAllRejectsSelfReferencingEntity(t *testing.T) {
	is := is.New(t)
	store := storingMock()
	c := mirror.NewCoordinator(store)

	note, _ := entities.New("Note")
	note.Set("self", types.EntityRef(note.Address()))

	_, err := c.SaveAll(context.Background(), []*entities.Entity{note})
	is.True(errors.Is(err, mirrorerrors.ErrCyclicDependency))
	is.Equal(len(store.CreateCalls()), 0)
}

func TestSaveAllIgnoresDependenciesOutsideTheBatch(t *testing.T) {
	is := is.New(t)
	store := storingMock()
	c := mirror.NewCoordinator(store)

	// saved concurrently by someone else, before the batch runs
	author, _ := entities.New("Author")
	is.NoErr(c.Save(context.Background(), author))

	note, _ := entities.New("Note")
	note.Set("author", types.EntityRef(author.Address()))

	result, err := c.SaveAll(context.Background(), []*entities.Entity{note})
	is.NoErr(err)
	is.Equal(len(result.Saved), 1)
}

func TestSaveAllWithEmptyBatchSucceeds(t *testing.T) {
	is := is.New(t)
	c := mirror.NewCoordinator(storingMock())

	result, err := c.SaveAll(context.Background(), nil)
	is.NoErr(err)
	is.Equal(len(result.Saved), 0)
	is.Equal(len(result.NotAttempted), 0)
}

func TestSaveAllRejectsBatchesContainingDeletedEntities(t *testing.T) {
	is := is.New(t)
	store := storingMock()
	c := mirror.NewCoordinator(store)

	gone := saved(t, c, "Note", entities.Text("title", "Hi"))
	is.NoErr(c.Delete(context.Background(), gone))

	fine, _ := entities.New("Note")

	_, err := c.SaveAll(context.Background(), []*entities.Entity{fine, gone})
	is.True(errors.Is(err, mirrorerrors.ErrUsageAfterDelete))
	is.Equal(len(store.CreateCalls()), 1)
}

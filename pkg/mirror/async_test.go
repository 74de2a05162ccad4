package mirror_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/diwise/record-mirror/pkg/mirror"
	"github.com/diwise/record-mirror/pkg/mirror/entities"
	mirrorerrors "github.com/diwise/record-mirror/pkg/mirror/errors"
	"github.com/diwise/record-mirror/pkg/mirror/types"

	"github.com/matryer/is"
)

func TestSaveInBackgroundNotifiesExactlyOnce(t *testing.T) {
	is := is.New(t)
	c := mirror.NewCoordinator(storingMock())

	e, _ := entities.New("Note", entities.Text("title", "Hi"))

	notifications := make(chan error, 2)
	c.SaveInBackground(context.Background(), e, func(saved bool, err error) {
		is.True(saved == (err == nil))
		notifications <- err
	})

	is.NoErr(<-notifications)
	is.True(e.Identity() != "")

	select {
	case <-notifications:
		t.Fatal("callback invoked more than once")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSaveInBackgroundReportsFailure(t *testing.T) {
	is := is.New(t)

	store := storingMock()
	store.CreateFunc = func(ctx context.Context, kind string, cs *entities.Changeset) (*mirror.CreateResult, error) {
		return nil, mirrorerrors.NewRemoteError("service unavailable", nil)
	}

	c := mirror.NewCoordinator(store)
	e, _ := entities.New("Note", entities.Text("title", "Hi"))

	notifications := make(chan error, 1)
	c.SaveInBackground(context.Background(), e, func(saved bool, err error) {
		is.True(!saved)
		notifications <- err
	})

	is.True(errors.Is(<-notifications, mirrorerrors.ErrRemote))
	is.True(e.IsDirty())
}

func TestSaveInBackgroundToleratesNilCallback(t *testing.T) {
	is := is.New(t)
	store := storingMock()
	c := mirror.NewCoordinator(store)

	e, _ := entities.New("Note", entities.Text("title", "Hi"))

	c.SaveInBackground(context.Background(), e, nil)

	deadline := time.Now().Add(time.Second)
	for e.IsDirty() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	is.True(!e.IsDirty())
	is.Equal(len(store.CreateCalls()), 1)
}

func TestDeleteInBackgroundNotifies(t *testing.T) {
	is := is.New(t)
	store := storingMock()
	c := mirror.NewCoordinator(store)

	e := saved(t, c, "Note", entities.Text("title", "Hi"))

	notifications := make(chan error, 1)
	c.DeleteInBackground(context.Background(), e, func(deleted bool, err error) {
		is.True(deleted == (err == nil))
		notifications <- err
	})

	is.NoErr(<-notifications)
	is.True(e.Deleted())
}

func TestRefreshInBackgroundDeliversTheEntity(t *testing.T) {
	is := is.New(t)
	store := storingMock()
	c := mirror.NewCoordinator(store)

	e := saved(t, c, "Note", entities.Text("title", "Hi"))
	e.Set("title", types.Text("uncommitted"))

	notifications := make(chan *entities.Entity, 1)
	c.RefreshInBackground(context.Background(), e, func(refreshed *entities.Entity, err error) {
		is.NoErr(err)
		notifications <- refreshed
	})

	refreshed := <-notifications
	is.Equal(refreshed, e)

	v, _ := refreshed.Get("title")
	title, _ := v.Text()
	is.Equal(title, "Hi")
}

func TestRefreshInBackgroundReportsFailureWithNilEntity(t *testing.T) {
	is := is.New(t)
	store := storingMock()
	c := mirror.NewCoordinator(store)

	e, _ := entities.New("Note")

	notifications := make(chan error, 1)
	c.RefreshInBackground(context.Background(), e, func(refreshed *entities.Entity, err error) {
		is.True(refreshed == nil)
		notifications <- err
	})

	is.True(errors.Is(<-notifications, mirrorerrors.ErrNotPersisted))
}

func TestSaveAllInBackgroundDeliversTheResult(t *testing.T) {
	is := is.New(t)
	store := storingMock()
	c := mirror.NewCoordinator(store)

	author, _ := entities.New("Author")
	note, _ := entities.New("Note")
	note.Set("author", types.EntityRef(author.Address()))

	notifications := make(chan *mirror.BatchSaveResult, 1)
	c.SaveAllInBackground(context.Background(), []*entities.Entity{note, author}, func(result *mirror.BatchSaveResult, err error) {
		is.NoErr(err)
		notifications <- result
	})

	result := <-notifications
	is.Equal(len(result.Saved), 2)
	is.Equal(len(store.CreateCalls()), 2)
}

package noteservice

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/nisabo/internal/apperr"
	"github.com/starford/nisabo/internal/checksum"
	"github.com/starford/nisabo/internal/models"
	"github.com/starford/nisabo/internal/sse"
	"github.com/starford/nisabo/internal/testutil"
)

type recorder struct {
	mu     sync.Mutex
	events []sse.Kind
}

func (r *recorder) PublishNoteEvent(kind sse.Kind, _ int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, kind)
}

func newTestService(t *testing.T) (*Service, *recorder) {
	t.Helper()
	rec := &recorder{}
	return NewService(testutil.TestStore(t), rec, nil), rec
}

func strPtr(s string) *string { return &s }

func TestCreateNote(t *testing.T) {
	svc, rec := newTestService(t)
	ctx := context.Background()

	n, err := svc.CreateNote(ctx, "plain", strPtr("hello"), nil)
	require.NoError(t, err)
	assert.Equal(t, "hello", n.Body())
	assert.Equal(t, checksum.Sum([]byte("hello")), n.Checksum)
	assert.NotNil(t, n.Links)

	versions, err := svc.Versions(ctx, n.ID)
	require.NoError(t, err)
	assert.Len(t, versions, 1, "initial content is version 1")

	child, err := svc.CreateNote(ctx, "child", strPtr("inner"), &n.ID)
	require.NoError(t, err)
	assert.Equal(t, "inner", child.Body())
	assert.Equal(t, child.CreatedAt, child.UpdatedAt, "child is written in one statement")
	childVersions, err := svc.Versions(ctx, child.ID)
	require.NoError(t, err)
	assert.Len(t, childVersions, 1)
	require.Len(t, child.Links, 1)
	assert.Equal(t, models.LinkParent, child.Links[0].Type)

	empty, err := svc.CreateNote(ctx, "empty", nil, nil)
	require.NoError(t, err)
	assert.Nil(t, empty.Content)

	_, err = svc.CreateNote(ctx, "", nil, nil)
	assert.ErrorIs(t, err, apperr.ErrConstraint)
	missing := int64(999)
	_, err = svc.CreateNote(ctx, "x", nil, &missing)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	assert.Equal(t, []sse.Kind{sse.NoteCreated, sse.NoteCreated, sse.NoteCreated}, rec.events)
}

func TestSaveContent(t *testing.T) {
	svc, rec := newTestService(t)
	ctx := context.Background()

	readme, err := svc.GetNote(ctx, 1)
	require.NoError(t, err)

	saved, err := svc.SaveContent(ctx, 1, "# Welcome to nisabo\nExtra line", checksum.ETag(readme.Checksum))
	require.NoError(t, err)
	assert.Equal(t, "# Welcome to nisabo\nExtra line", saved.Body())

	_, err = svc.SaveContent(ctx, 1, "stale write", readme.Checksum)
	assert.ErrorIs(t, err, apperr.ErrConflict)

	_, err = svc.SaveContent(ctx, 1, saved.Body(), "")
	require.NoError(t, err)

	versions, err := svc.Versions(ctx, 1)
	require.NoError(t, err)
	require.Len(t, versions, 1, "identical content is not recorded")

	v, err := svc.Version(ctx, versions[0].ID)
	require.NoError(t, err)
	require.Len(t, v.Changes, 1)
	assert.Equal(t, "Extra line", v.Changes[0].Text)
	assert.Equal(t, 1, v.Changes[0].Index)

	before, err := svc.ContentAt(ctx, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, "# Welcome to nisabo", before)

	_, err = svc.SaveContent(ctx, 999, "x", "")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	assert.Equal(t, []sse.Kind{sse.NoteUpdated}, rec.events)
}

func TestTrashLifecycle(t *testing.T) {
	svc, rec := newTestService(t)
	ctx := context.Background()

	parent, err := svc.CreateNote(ctx, "parent", nil, nil)
	require.NoError(t, err)
	_, err = svc.CreateNote(ctx, "child", nil, &parent.ID)
	require.NoError(t, err)

	require.NoError(t, svc.TrashNote(ctx, parent.ID))
	trash, err := svc.Trash(ctx)
	require.NoError(t, err)
	assert.Len(t, trash, 2)

	tree, err := svc.Tree(ctx)
	require.NoError(t, err)
	require.Len(t, tree, 1)
	assert.Equal(t, "README", tree[0].Name)

	require.NoError(t, svc.RestoreNote(ctx, parent.ID))
	n, err := svc.EmptyTrash(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = svc.EmptyTrash(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, svc.PurgeNote(ctx, parent.ID))
	assert.ErrorIs(t, svc.PurgeNote(ctx, parent.ID), apperr.ErrNotFound)
	assert.ErrorIs(t, svc.TrashNote(ctx, parent.ID), apperr.ErrNotFound)

	assert.Equal(t, []sse.Kind{
		sse.NoteCreated, sse.NoteCreated,
		sse.NoteTrashed, sse.NoteRestored, sse.TrashEmptied, sse.NoteDeleted,
	}, rec.events)
}

func TestRenameLinkAndSearch(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	a, err := svc.CreateNote(ctx, "alpha", strPtr("first body"), nil)
	require.NoError(t, err)
	b, err := svc.CreateNote(ctx, "beta", strPtr("second body"), nil)
	require.NoError(t, err)

	renamed, err := svc.RenameNote(ctx, a.ID, "gamma")
	require.NoError(t, err)
	assert.Equal(t, "gamma", renamed.Name)

	require.NoError(t, svc.Link(ctx, a.ID, b.ID, models.LinkRelated))
	links, err := svc.Links(ctx, b.ID)
	require.NoError(t, err)
	assert.Len(t, links, 1)

	hits, err := svc.Search(ctx, "gamma", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, a.ID, hits[0].ID)
}

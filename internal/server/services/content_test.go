package services

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell-blog/inkwell/internal/common"
	"github.com/inkwell-blog/inkwell/internal/server/avatar"
	"github.com/inkwell-blog/inkwell/internal/server/models"
	"github.com/inkwell-blog/inkwell/internal/server/policy"
)

type contentFixture struct {
	svc    *ContentService
	store  *memStore
	mock   sqlmock.Sqlmock
	admin  policy.Actor
	author policy.Actor
	reader policy.Actor
}

func newContent(t *testing.T) *contentFixture {
	t.Helper()
	db, mock := newSQLMockDB(t)

	store := newMemStore()
	admin := store.addUser("admin@example.com", "Admin")
	author := store.addUser("author@example.com", "Author")
	reader := store.addUser("reader@example.com", "Reader")

	svc := NewContentService(db, &fakeRepoManager{s: store}, policy.New(admin.ID), avatar.NewGravatar())
	svc.now = func() time.Time { return time.Date(2024, time.May, 1, 12, 0, 0, 0, time.UTC) }

	return &contentFixture{
		svc:    svc,
		store:  store,
		mock:   mock,
		admin:  policy.AuthenticatedActor(admin),
		author: policy.AuthenticatedActor(author),
		reader: policy.AuthenticatedActor(reader),
	}
}

func (f *contentFixture) expectCommit() {
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
}

func (f *contentFixture) expectRollback() {
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
}

var fields = models.PostFields{Title: "Hello", Subtitle: "World", Body: "<p>hi</p>", ImgURL: "http://img/1.jpg"}

func TestCreatePost_Admin(t *testing.T) {
	f := newContent(t)
	f.expectCommit()

	p, err := f.svc.CreatePost(context.Background(), f.admin, fields)
	require.NoError(t, err)

	assert.Equal(t, "May 01, 2024", p.Date)
	assert.Equal(t, f.admin.UserID, p.AuthorID)
	assert.Equal(t, "Hello", p.Title)
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestCreatePost_ForbiddenWithoutTouchingStore(t *testing.T) {
	f := newContent(t)

	for _, a := range []policy.Actor{policy.Anonymous, f.author, f.reader} {
		_, err := f.svc.CreatePost(context.Background(), a, fields)
		assert.ErrorIs(t, err, common.ErrForbidden)
	}
	assert.Empty(t, f.store.posts)
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestCreatePost_DuplicateTitle(t *testing.T) {
	f := newContent(t)
	f.store.addPost("Hello", f.admin.UserID)
	f.expectRollback()

	_, err := f.svc.CreatePost(context.Background(), f.admin, fields)
	assert.ErrorIs(t, err, common.ErrDuplicateTitle)
	assert.Len(t, f.store.posts, 1)
}

func TestCreatePost_StoreError(t *testing.T) {
	f := newContent(t)
	f.store.fail["posts.Create"] = errBoom{}
	f.expectRollback()

	_, err := f.svc.CreatePost(context.Background(), f.admin, fields)
	assert.Regexp(t, `error creating post: .*boom`, err.Error())
}

func TestListPosts_InsertionOrder(t *testing.T) {
	f := newContent(t)
	f.store.addPost("B", f.admin.UserID)
	f.store.addPost("A", f.admin.UserID)

	got, err := f.svc.ListPosts(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "B", got[0].Title)
	assert.Equal(t, "A", got[1].Title)

	authors, err := f.svc.Authors(context.Background(), got)
	require.NoError(t, err)
	assert.Equal(t, "Admin", authors[f.admin.UserID].Name)
	assert.Len(t, authors, 1)
}

func TestGetPost(t *testing.T) {
	f := newContent(t)
	p := f.store.addPost("A", f.admin.UserID)

	got, err := f.svc.GetPost(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, "A", got.Title)

	_, err = f.svc.GetPost(context.Background(), 999)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestUpdatePost(t *testing.T) {
	ctx := context.Background()
	edit := models.PostFields{Title: "New", Subtitle: "Sub", Body: "Body", ImgURL: "Img"}

	t.Run("author may edit own post", func(t *testing.T) {
		f := newContent(t)
		p := f.store.addPost("Old", f.author.UserID)
		f.expectCommit()

		got, err := f.svc.UpdatePost(ctx, f.author, p.ID, edit)
		require.NoError(t, err)
		assert.Equal(t, "New", got.Title)
		assert.Equal(t, "May 01, 2024", got.Date)
		assert.Equal(t, f.author.UserID, got.AuthorID)
		assert.Equal(t, "New", f.store.posts[p.ID].Title)
	})

	t.Run("admin may edit any post", func(t *testing.T) {
		f := newContent(t)
		p := f.store.addPost("Old", f.author.UserID)
		f.expectCommit()

		_, err := f.svc.UpdatePost(ctx, f.admin, p.ID, edit)
		require.NoError(t, err)
		assert.Equal(t, f.author.UserID, f.store.posts[p.ID].AuthorID)
	})

	t.Run("other users are forbidden", func(t *testing.T) {
		f := newContent(t)
		p := f.store.addPost("Old", f.author.UserID)
		f.expectRollback()
		f.expectRollback()

		_, err := f.svc.UpdatePost(ctx, f.reader, p.ID, edit)
		assert.ErrorIs(t, err, common.ErrForbidden)
		_, err = f.svc.UpdatePost(ctx, policy.Anonymous, p.ID, edit)
		assert.ErrorIs(t, err, common.ErrForbidden)
		assert.Equal(t, "Old", f.store.posts[p.ID].Title)
	})

	t.Run("missing post", func(t *testing.T) {
		f := newContent(t)
		f.expectRollback()

		_, err := f.svc.UpdatePost(ctx, f.admin, 42, edit)
		assert.ErrorIs(t, err, common.ErrorNotFound)
	})

	t.Run("title collision", func(t *testing.T) {
		f := newContent(t)
		f.store.addPost("New", f.admin.UserID)
		p := f.store.addPost("Old", f.admin.UserID)
		f.expectRollback()

		_, err := f.svc.UpdatePost(ctx, f.admin, p.ID, edit)
		assert.ErrorIs(t, err, common.ErrDuplicateTitle)
	})
}

func TestDeletePost_CascadesComments(t *testing.T) {
	f := newContent(t)
	p := f.store.addPost("A", f.admin.UserID)
	other := f.store.addPost("B", f.admin.UserID)
	f.store.addComment("one", f.reader.UserID, p.ID)
	f.store.addComment("two", f.author.UserID, p.ID)
	keep := f.store.addComment("three", f.reader.UserID, other.ID)
	f.expectCommit()

	require.NoError(t, f.svc.DeletePost(context.Background(), f.admin, p.ID))

	assert.NotContains(t, f.store.posts, p.ID)
	assert.Len(t, f.store.comments, 1)
	assert.Contains(t, f.store.comments, keep.ID)

	_, err := f.svc.GetPost(context.Background(), p.ID)
	assert.ErrorIs(t, err, common.ErrorNotFound)
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestDeletePost_Forbidden(t *testing.T) {
	f := newContent(t)
	p := f.store.addPost("A", f.author.UserID)

	for _, a := range []policy.Actor{policy.Anonymous, f.author, f.reader} {
		assert.ErrorIs(t, f.svc.DeletePost(context.Background(), a, p.ID), common.ErrForbidden)
	}
	assert.Contains(t, f.store.posts, p.ID)
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestDeletePost_NotFound(t *testing.T) {
	f := newContent(t)
	f.expectRollback()

	assert.ErrorIs(t, f.svc.DeletePost(context.Background(), f.admin, 7), common.ErrorNotFound)
}

func TestAddComment(t *testing.T) {
	f := newContent(t)
	p := f.store.addPost("A", f.admin.UserID)
	f.expectCommit()

	c, err := f.svc.AddComment(context.Background(), f.reader, p.ID, "nice")
	require.NoError(t, err)
	assert.Equal(t, f.reader.UserID, c.AuthorID)
	assert.Equal(t, p.ID, c.PostID)
}

func TestAddComment_Anonymous(t *testing.T) {
	f := newContent(t)
	p := f.store.addPost("A", f.admin.UserID)

	_, err := f.svc.AddComment(context.Background(), policy.Anonymous, p.ID, "spam")
	assert.ErrorIs(t, err, common.ErrForbidden)
	assert.Empty(t, f.store.comments)
}

func TestAddComment_MissingPost(t *testing.T) {
	f := newContent(t)
	f.expectRollback()

	_, err := f.svc.AddComment(context.Background(), f.reader, 99, "hello?")
	assert.ErrorIs(t, err, common.ErrorNotFound)
	assert.Empty(t, f.store.comments)
}

func TestGetPostView(t *testing.T) {
	f := newContent(t)
	p := f.store.addPost("A", f.author.UserID)
	f.store.addComment("first", f.reader.UserID, p.ID)
	f.store.addComment("second", f.admin.UserID, p.ID)

	v, err := f.svc.GetPostView(context.Background(), p.ID)
	require.NoError(t, err)

	assert.Equal(t, "Author", v.Author.Name)
	require.Len(t, v.Comments, 2)
	assert.Equal(t, "first", v.Comments[0].Comment.Text)
	assert.Equal(t, "Reader", v.Comments[0].AuthorName)
	assert.Equal(t, avatar.NewGravatar().URL("reader@example.com"), v.Comments[0].AvatarURL)
	assert.Equal(t, "Admin", v.Comments[1].AuthorName)

	_, err = f.svc.GetPostView(context.Background(), 404)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestListComments_StoreError(t *testing.T) {
	f := newContent(t)
	f.store.fail["comments.ListByPost"] = errBoom{}

	_, err := f.svc.ListComments(context.Background(), 1)
	assert.Regexp(t, `error listing comments: .*boom`, err.Error())
}

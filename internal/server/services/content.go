package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/inkwell-blog/inkwell/internal/common"
	"github.com/inkwell-blog/inkwell/internal/dbx"
	"github.com/inkwell-blog/inkwell/internal/server/avatar"
	"github.com/inkwell-blog/inkwell/internal/server/models"
	"github.com/inkwell-blog/inkwell/internal/server/policy"
	"github.com/inkwell-blog/inkwell/internal/server/repositories/repomanager"
)

// CommentView is a comment ready for display.
type CommentView struct {
	Comment    *models.Comment
	AuthorName string
	AvatarURL  string
}

// PostView is a post page: the post, its author and its comments.
type PostView struct {
	Post     *models.Post
	Author   *models.User
	Comments []CommentView
}

// ContentService manages posts and comments. Every mutation consults the
// policy before touching storage.
type ContentService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	policy      policy.Policy
	avatars     avatar.Provider
	now         func() time.Time
}

func NewContentService(db *sql.DB, m repomanager.RepositoryManager, p policy.Policy, avatars avatar.Provider) *ContentService {
	return &ContentService{
		db:          db,
		repomanager: m,
		policy:      p,
		avatars:     avatars,
		now:         time.Now,
	}
}

// ListPosts returns all posts in creation order.
func (s *ContentService) ListPosts(ctx context.Context) ([]*models.Post, error) {
	posts, err := s.repomanager.Posts(s.db).List(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing posts: %w", err)
	}
	return posts, nil
}

// Authors loads the authors of posts keyed by user id.
func (s *ContentService) Authors(ctx context.Context, posts []*models.Post) (map[int64]*models.User, error) {
	ids := make([]int64, 0, len(posts))
	seen := make(map[int64]bool, len(posts))
	for _, p := range posts {
		if !seen[p.AuthorID] {
			seen[p.AuthorID] = true
			ids = append(ids, p.AuthorID)
		}
	}

	authors, err := s.repomanager.Users(s.db).GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("error loading authors: %w", err)
	}
	return authors, nil
}

func (s *ContentService) GetPost(ctx context.Context, id int64) (*models.Post, error) {
	p, err := s.repomanager.Posts(s.db).Get(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("error loading post: %w", err)
	}
	return p, nil
}

func (s *ContentService) GetPostView(ctx context.Context, id int64) (*PostView, error) {
	p, err := s.GetPost(ctx, id)
	if err != nil {
		return nil, err
	}

	author, err := s.repomanager.Users(s.db).GetByID(ctx, p.AuthorID)
	if err != nil {
		return nil, fmt.Errorf("error loading author: %w", err)
	}

	comments, err := s.ListComments(ctx, id)
	if err != nil {
		return nil, err
	}

	return &PostView{Post: p, Author: author, Comments: comments}, nil
}

// ListComments returns a post's comments with their authors' names and
// avatars, oldest first.
func (s *ContentService) ListComments(ctx context.Context, postID int64) ([]CommentView, error) {
	comments, err := s.repomanager.Comments(s.db).ListByPost(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("error listing comments: %w", err)
	}

	ids := make([]int64, 0, len(comments))
	for _, c := range comments {
		ids = append(ids, c.AuthorID)
	}
	authors, err := s.repomanager.Users(s.db).GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("error loading comment authors: %w", err)
	}

	out := make([]CommentView, 0, len(comments))
	for _, c := range comments {
		v := CommentView{Comment: c}
		if u, ok := authors[c.AuthorID]; ok {
			v.AuthorName = u.Name
			v.AvatarURL = s.avatars.URL(u.Email)
		}
		out = append(out, v)
	}
	return out, nil
}

// CreatePost publishes a new post authored by actor. Only the admin may
// do this.
func (s *ContentService) CreatePost(ctx context.Context, actor policy.Actor, f models.PostFields) (*models.Post, error) {
	if !s.policy.CanCreatePost(actor) {
		return nil, common.ErrForbidden
	}

	post := &models.Post{
		Title:    f.Title,
		Subtitle: f.Subtitle,
		Body:     f.Body,
		ImgURL:   f.ImgURL,
		Date:     s.now().Format(common.PostDateLayout),
		AuthorID: actor.UserID,
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		post, err = s.repomanager.Posts(tx).Create(ctx, post)
		return err
	})
	if err != nil {
		return nil, wrapStoreErr("error creating post", err)
	}

	return post, nil
}

// UpdatePost changes the editable fields of a post. The admin and the
// post's author may edit it.
func (s *ContentService) UpdatePost(ctx context.Context, actor policy.Actor, id int64, f models.PostFields) (*models.Post, error) {
	var post *models.Post
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Posts(tx)

		var err error
		post, err = repo.Get(ctx, id)
		if err != nil {
			return err
		}
		if !s.policy.CanEditPost(actor, post) {
			return common.ErrForbidden
		}

		if err := repo.Update(ctx, id, f); err != nil {
			return err
		}

		post.Title, post.Subtitle, post.Body, post.ImgURL = f.Title, f.Subtitle, f.Body, f.ImgURL
		return nil
	})
	if err != nil {
		return nil, wrapStoreErr("error updating post", err)
	}

	return post, nil
}

// DeletePost removes a post together with its comments. Only the admin
// may do this.
func (s *ContentService) DeletePost(ctx context.Context, actor policy.Actor, id int64) error {
	if !s.policy.CanDeletePost(actor, nil) {
		return common.ErrForbidden
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := s.repomanager.Comments(tx).DeleteByPost(ctx, id); err != nil {
			return err
		}
		return s.repomanager.Posts(tx).Delete(ctx, id)
	})
	if err != nil {
		return wrapStoreErr("error deleting post", err)
	}

	return nil
}

// AddComment attaches a comment by actor to an existing post.
func (s *ContentService) AddComment(ctx context.Context, actor policy.Actor, postID int64, text string) (*models.Comment, error) {
	if !s.policy.CanComment(actor) {
		return nil, common.ErrForbidden
	}

	var comment *models.Comment
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := s.repomanager.Posts(tx).Get(ctx, postID); err != nil {
			return err
		}

		var err error
		comment, err = s.repomanager.Comments(tx).Create(ctx, &models.Comment{
			Text:     text,
			AuthorID: actor.UserID,
			PostID:   postID,
		})
		return err
	})
	if err != nil {
		return nil, wrapStoreErr("error adding comment", err)
	}

	return comment, nil
}

// wrapStoreErr passes domain errors through untouched and wraps the rest.
func wrapStoreErr(msg string, err error) error {
	for _, domain := range []error{
		common.ErrForbidden,
		common.ErrorNotFound,
		common.ErrDuplicateTitle,
	} {
		if errors.Is(err, domain) {
			return domain
		}
	}
	return fmt.Errorf("%s: %w", msg, err)
}

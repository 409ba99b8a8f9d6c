package comments

import (
	"context"

	"github.com/inkwell-blog/inkwell/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, c *models.Comment) (*models.Comment, error)
	ListByPost(ctx context.Context, postID int64) ([]*models.Comment, error)
	DeleteByPost(ctx context.Context, postID int64) (int64, error)
}

package posts

import (
	"context"

	"github.com/inkwell-blog/inkwell/internal/server/models"
)

type Repository interface {
	List(ctx context.Context) ([]*models.Post, error)
	Get(ctx context.Context, id int64) (*models.Post, error)
	Create(ctx context.Context, post *models.Post) (*models.Post, error)
	Update(ctx context.Context, id int64, fields models.PostFields) error
	Delete(ctx context.Context, id int64) error
}

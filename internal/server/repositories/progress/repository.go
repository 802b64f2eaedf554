package progress

import (
	"context"

	"github.com/dmitrijs2005/questkeeper/internal/server/models"
)

type Repository interface {
	ListByUser(ctx context.Context, userID int64) ([]models.Progress, error)
	DeleteByUser(ctx context.Context, userID int64) error
	Insert(ctx context.Context, userID int64, items []models.Progress) error
}

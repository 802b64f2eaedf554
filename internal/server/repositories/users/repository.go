package users

import (
	"context"

	"github.com/dmitrijs2005/questkeeper/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByToken(ctx context.Context, token string) (*models.User, error)
	GetByTempToken(ctx context.Context, tempToken string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id int64) error
	LockByID(ctx context.Context, id int64) error
}

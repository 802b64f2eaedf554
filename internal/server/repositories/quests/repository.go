package quests

import (
	"context"

	"github.com/dmitrijs2005/questkeeper/internal/server/models"
)

type Repository interface {
	List(ctx context.Context) ([]models.Quest, error)
	Upsert(ctx context.Context, quest *models.Quest) (int64, error)
	ReplaceLocations(ctx context.Context, questID int64, locations []models.Location) error
}

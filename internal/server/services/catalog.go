package services

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/questkeeper/internal/server/models"
	"github.com/dmitrijs2005/questkeeper/internal/server/repositories/repomanager"
	"github.com/samber/oops"
)

// PreviewResolver turns a stored preview reference into a URL a client can fetch.
type PreviewResolver interface {
	ResolveURL(ctx context.Context, ref string) (string, error)
}

type CatalogService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	previews    PreviewResolver
}

// NewCatalogService returns a catalog reader. previews may be nil, in which
// case preview URLs are returned as stored.
func NewCatalogService(db *sql.DB, m repomanager.RepositoryManager, previews PreviewResolver) *CatalogService {
	return &CatalogService{db: db, repomanager: m, previews: previews}
}

// ListQuests returns the whole catalog with nested locations.
func (s *CatalogService) ListQuests(ctx context.Context) ([]models.Quest, error) {
	quests, err := s.repomanager.Quests(s.db).List(ctx)
	if err != nil {
		return nil, oops.Code("QUEST_LIST_FAILED").Wrap(err)
	}
	if s.previews == nil {
		return quests, nil
	}

	for i := range quests {
		url, err := s.previews.ResolveURL(ctx, quests[i].PreviewURL)
		if err != nil {
			return nil, oops.Code("PREVIEW_PRESIGN_FAILED").With("quest_id", quests[i].ID).Wrap(err)
		}
		quests[i].PreviewURL = url
	}
	return quests, nil
}

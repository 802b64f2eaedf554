package services

import (
	"context"
	"database/sql"
	"errors"

	"github.com/dmitrijs2005/questkeeper/internal/common"
	"github.com/dmitrijs2005/questkeeper/internal/dbx"
	"github.com/dmitrijs2005/questkeeper/internal/server/models"
	"github.com/dmitrijs2005/questkeeper/internal/server/repositories/repomanager"
	"github.com/samber/oops"
)

// Authenticator resolves a session token to an active account.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

// ProgressService keeps the set of visited locations per user. The set is
// always replaced as a whole.
type ProgressService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	auth        Authenticator
}

func NewProgressService(db *sql.DB, m repomanager.RepositoryManager, auth Authenticator) *ProgressService {
	return &ProgressService{db: db, repomanager: m, auth: auth}
}

func (s *ProgressService) Get(ctx context.Context, token string) ([]models.Progress, error) {
	user, err := s.auth.Authenticate(ctx, token)
	if err != nil {
		return nil, err
	}

	items, err := s.repomanager.Progress(s.db).ListByUser(ctx, user.ID)
	if err != nil {
		return nil, oops.Code("PROGRESS_LIST_FAILED").With("user_id", user.ID).Wrap(err)
	}
	return items, nil
}

// Replace makes items the user's complete progress and returns what is stored.
// Quest and location ids are not checked against the catalog. Concurrent
// replaces for one user are serialized on the user row.
func (s *ProgressService) Replace(ctx context.Context, token string, items []models.Progress) ([]models.Progress, error) {
	user, err := s.auth.Authenticate(ctx, token)
	if err != nil {
		return nil, err
	}

	var stored []models.Progress
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Users(tx).LockByID(ctx, user.ID); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrInvalidToken
			}
			return oops.Code("USER_LOCK_FAILED").With("user_id", user.ID).Wrap(err)
		}

		repo := s.repomanager.Progress(tx)
		if err := repo.DeleteByUser(ctx, user.ID); err != nil {
			return oops.Code("PROGRESS_DELETE_FAILED").With("user_id", user.ID).Wrap(err)
		}
		if err := repo.Insert(ctx, user.ID, items); err != nil {
			return oops.Code("PROGRESS_INSERT_FAILED").With("user_id", user.ID, "count", len(items)).Wrap(err)
		}

		stored, err = repo.ListByUser(ctx, user.ID)
		if err != nil {
			return oops.Code("PROGRESS_LIST_FAILED").With("user_id", user.ID).Wrap(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return stored, nil
}

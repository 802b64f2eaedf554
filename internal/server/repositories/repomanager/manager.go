package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/questkeeper/internal/dbx"
	"github.com/dmitrijs2005/questkeeper/internal/server/repositories/progress"
	"github.com/dmitrijs2005/questkeeper/internal/server/repositories/quests"
	"github.com/dmitrijs2005/questkeeper/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Progress(db dbx.DBTX) progress.Repository
	Quests(db dbx.DBTX) quests.Repository
}

// Package progress provides PostgreSQL-backed storage of visited quest locations.
package progress

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/questkeeper/internal/dbx"
	"github.com/dmitrijs2005/questkeeper/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// ListByUser returns the user's rows in insertion order.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID int64) ([]models.Progress, error) {
	query := `SELECT quest_id, location_id FROM progress WHERE user_id = $1 ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := []models.Progress{}
	for rows.Next() {
		var item models.Progress
		if err := rows.Scan(&item.QuestID, &item.LocationID); err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) DeleteByUser(ctx context.Context, userID int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM progress WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// insertBatchRows bounds the rows per INSERT statement. Postgres accepts at
// most 65535 bind parameters and every row takes three.
var insertBatchRows = 10000

// Insert stores all items with as few multi-row statements as the parameter
// limit allows. Duplicates are kept. Callers wanting all-or-nothing run it
// inside a transaction.
func (r *PostgresRepository) Insert(ctx context.Context, userID int64, items []models.Progress) error {
	for start := 0; start < len(items); start += insertBatchRows {
		end := min(start+insertBatchRows, len(items))
		if err := r.insertBatch(ctx, userID, items[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (r *PostgresRepository) insertBatch(ctx context.Context, userID int64, items []models.Progress) error {
	var sb strings.Builder
	sb.WriteString(`INSERT INTO progress (user_id, quest_id, location_id) VALUES `)
	args := make([]any, 0, len(items)*3)
	for i, item := range items {
		if i > 0 {
			sb.WriteString(", ")
		}
		n := len(args)
		fmt.Fprintf(&sb, "($%d, $%d, $%d)", n+1, n+2, n+3)
		args = append(args, userID, item.QuestID, item.LocationID)
	}

	if _, err := r.db.ExecContext(ctx, sb.String(), args...); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

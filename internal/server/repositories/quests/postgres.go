// Package quests provides the PostgreSQL-backed quest catalog.
package quests

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/questkeeper/internal/dbx"
	"github.com/dmitrijs2005/questkeeper/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// List returns every quest with its locations in route order.
func (r *PostgresRepository) List(ctx context.Context) ([]models.Quest, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, preview_url, description, "time", distance FROM quests ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := []models.Quest{}
	index := map[int64]int{}
	for rows.Next() {
		q := models.Quest{Locations: []models.Location{}}
		if err := rows.Scan(&q.ID, &q.Name, &q.PreviewURL, &q.Description, &q.Time, &q.Distance); err != nil {
			return nil, err
		}
		index[q.ID] = len(result)
		result = append(result, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	if len(result) == 0 {
		return result, nil
	}

	locRows, err := r.db.QueryContext(ctx,
		`SELECT id, quest_id, latitude, longitude, story, epilog FROM locations ORDER BY quest_id, position, id`)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer locRows.Close()

	for locRows.Next() {
		var l models.Location
		if err := locRows.Scan(&l.ID, &l.QuestID, &l.Latitude, &l.Longitude, &l.Story, &l.Epilog); err != nil {
			return nil, err
		}
		if i, ok := index[l.QuestID]; ok {
			result[i].Locations = append(result[i].Locations, l)
		}
	}
	if err := locRows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return result, nil
}

// Upsert inserts the quest or, when a quest with the same name exists,
// overwrites its attributes. It returns the quest ID either way.
func (r *PostgresRepository) Upsert(ctx context.Context, quest *models.Quest) (int64, error) {
	query := `
		INSERT INTO quests (name, preview_url, description, "time", distance)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (name)
		DO UPDATE SET
			preview_url = EXCLUDED.preview_url,
			description = EXCLUDED.description,
			"time" = EXCLUDED."time",
			distance = EXCLUDED.distance
		RETURNING id
	`
	var id int64
	err := r.db.QueryRowContext(ctx, query,
		quest.Name, quest.PreviewURL, quest.Description, quest.Time, quest.Distance).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	quest.ID = id
	return id, nil
}

// ReplaceLocations drops the quest's locations and stores the given ones,
// keeping their order as the route position.
func (r *PostgresRepository) ReplaceLocations(ctx context.Context, questID int64, locations []models.Location) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM locations WHERE quest_id = $1`, questID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	query := `INSERT INTO locations (quest_id, position, latitude, longitude, story, epilog)
		VALUES ($1, $2, $3, $4, $5, $6)`
	for i, l := range locations {
		if _, err := r.db.ExecContext(ctx, query, questID, i, l.Latitude, l.Longitude, l.Story, l.Epilog); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
	}
	return nil
}

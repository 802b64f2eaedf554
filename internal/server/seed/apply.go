package seed

import (
	"context"
	"database/sql"
	"errors"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/questkeeper/internal/dbx"
	"github.com/dmitrijs2005/questkeeper/internal/logging"
	"github.com/dmitrijs2005/questkeeper/internal/netx"
	"github.com/dmitrijs2005/questkeeper/internal/server/models"
	"github.com/dmitrijs2005/questkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/questkeeper/internal/server/services"
	"github.com/samber/oops"
)

var errNoStorage = errors.New("preview_file needs the s3 settings")

// Uploader hands out presigned PUT URLs for preview objects.
type Uploader interface {
	PresignPut(ctx context.Context, key, contentType string) (string, error)
}

type Result struct {
	Quests    int
	Locations int
	Uploaded  int
}

type Seeder struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	uploader    Uploader
	client      *http.Client
	logger      logging.Logger
}

// NewSeeder returns a Seeder. uploader may be nil when no quest uses
// preview_file.
func NewSeeder(db *sql.DB, m repomanager.RepositoryManager, uploader Uploader, l logging.Logger) *Seeder {
	return &Seeder{db: db, repomanager: m, uploader: uploader, client: http.DefaultClient, logger: l}
}

// Apply uploads preview files and then writes the catalog in one transaction.
// Uploaded objects are not removed when the transaction fails.
func (s *Seeder) Apply(ctx context.Context, f *File) (Result, error) {
	var res Result

	quests := make([]models.Quest, 0, len(f.Quests))
	for _, q := range f.Quests {
		preview := q.PreviewURL
		if q.PreviewFile != "" {
			key, err := s.upload(ctx, q.PreviewFile)
			if err != nil {
				return res, oops.Code("PREVIEW_UPLOAD_FAILED").With("quest", q.Name, "file", q.PreviewFile).Wrap(err)
			}
			preview = key
			res.Uploaded++
		}

		quest := models.Quest{
			Name:        q.Name,
			PreviewURL:  preview,
			Description: q.Description,
			Time:        q.Time,
			Distance:    q.Distance,
		}
		for _, l := range q.Locations {
			quest.Locations = append(quest.Locations, models.Location{
				Latitude:  l.Latitude,
				Longitude: l.Longitude,
				Story:     l.Story,
				Epilog:    l.Epilog,
			})
		}
		quests = append(quests, quest)
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Quests(tx)
		for i := range quests {
			q := &quests[i]
			id, err := repo.Upsert(ctx, q)
			if err != nil {
				return oops.Code("QUEST_UPSERT_FAILED").With("quest", q.Name).Wrap(err)
			}
			if err := repo.ReplaceLocations(ctx, id, q.Locations); err != nil {
				return oops.Code("LOCATIONS_REPLACE_FAILED").With("quest", q.Name, "quest_id", id).Wrap(err)
			}
			s.logger.Info(ctx, "Quest seeded", "quest", q.Name, "quest_id", id, "locations", len(q.Locations))
			res.Quests++
			res.Locations += len(q.Locations)
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	return res, nil
}

func (s *Seeder) upload(ctx context.Context, path string) (string, error) {
	if s.uploader == nil {
		return "", errNoStorage
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	ext := filepath.Ext(path)
	contentType := mime.TypeByExtension(ext)
	key := services.NewPreviewKey(ext)

	url, err := s.uploader.PresignPut(ctx, key, contentType)
	if err != nil {
		if errors.Is(err, services.ErrStorageDisabled) {
			return "", errNoStorage
		}
		return "", err
	}

	if err := netx.UploadToPresignedURL(ctx, s.client, url, contentType, data); err != nil {
		return "", err
	}

	s.logger.Debug(ctx, "Preview uploaded", "file", path, "key", key)
	return key, nil
}

package server

import (
	"context"
	"database/sql"
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/questkeeper/internal/dbx"
	"github.com/dmitrijs2005/questkeeper/internal/logging"
	"github.com/dmitrijs2005/questkeeper/internal/server/auth"
	"github.com/dmitrijs2005/questkeeper/internal/server/config"
	"github.com/dmitrijs2005/questkeeper/internal/server/models"
	"github.com/dmitrijs2005/questkeeper/internal/server/repositories/progress"
	"github.com/dmitrijs2005/questkeeper/internal/server/repositories/quests"
	"github.com/dmitrijs2005/questkeeper/internal/server/repositories/users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQuests struct{ upserted []string }

func (f *fakeQuests) List(context.Context) ([]models.Quest, error) { return nil, nil }
func (f *fakeQuests) Upsert(_ context.Context, q *models.Quest) (int64, error) {
	f.upserted = append(f.upserted, q.Name)
	return int64(len(f.upserted)), nil
}
func (f *fakeQuests) ReplaceLocations(context.Context, int64, []models.Location) error { return nil }

type fakeManager struct {
	migrations   int
	migrationErr error
	q            *fakeQuests
}

func (m *fakeManager) RunMigrations(context.Context, *sql.DB) error {
	m.migrations++
	return m.migrationErr
}
func (m *fakeManager) Users(dbx.DBTX) users.Repository       { return nil }
func (m *fakeManager) Progress(dbx.DBTX) progress.Repository { return nil }
func (m *fakeManager) Quests(dbx.DBTX) quests.Repository     { return m.q }

func testConfig() *config.Config {
	c := &config.Config{}
	c.LoadDefaults()
	c.EndpointAddrHTTP = "127.0.0.1:0"
	c.EndpointAddrGRPC = ""
	c.EndpointAddrMetrics = ""
	return c
}

// newTestApp builds an App on top of sqlmock with a fake repository manager.
func newTestApp(t *testing.T, c *config.Config) (*App, sqlmock.Sqlmock, *fakeManager) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	orig := openDB
	openDB = func(context.Context, string, uint64, time.Duration) (*sql.DB, error) { return db, nil }
	t.Cleanup(func() { openDB = orig })

	app, err := NewApp(context.Background(), c, logging.Discard)
	require.NoError(t, err)
	t.Cleanup(func() { app.Close() })

	fm := &fakeManager{q: &fakeQuests{}}
	app.repomanager = fm
	return app, mock, fm
}

func TestNewApp_DBOpenError(t *testing.T) {
	orig := openDB
	defer func() { openDB = orig }()
	openDB = func(context.Context, string, uint64, time.Duration) (*sql.DB, error) {
		return nil, errors.New("refused")
	}

	_, err := NewApp(context.Background(), testConfig(), logging.Discard)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db init error")
}

func TestNewApp_RejectsAlgorithm(t *testing.T) {
	c := testConfig()
	c.JWTAlgorithm = "RS256"

	_, err := NewApp(context.Background(), c, logging.Discard)
	require.ErrorIs(t, err, auth.ErrUnsupportedAlgorithm)
}

func TestRun_StopsOnCancel(t *testing.T) {
	app, _, fm := newTestApp(t, testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	time.Sleep(200 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("Run did not return")
	}
	assert.Equal(t, 1, fm.migrations)
}

func TestRun_MigrationError(t *testing.T) {
	app, _, fm := newTestApp(t, testConfig())
	fm.migrationErr = errors.New("bad migration")

	err := app.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "migrations error")
}

func TestRun_EndpointFailureStopsTheRest(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	c := testConfig()
	c.EndpointAddrMetrics = l.Addr().String()
	app, _, _ := newTestApp(t, c)

	done := make(chan error, 1)
	go func() { done <- app.Run(context.Background()) }()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.Contains(t, err.Error(), "metrics server")
	case <-time.After(15 * time.Second):
		t.Fatal("Run did not return")
	}
}

func TestSeed_LoadsFileIntoCatalog(t *testing.T) {
	app, mock, fm := newTestApp(t, testConfig())
	mock.ExpectBegin()
	mock.ExpectCommit()

	path := filepath.Join(t.TempDir(), "quests.yaml")
	require.NoError(t, os.WriteFile(path, []byte("quests:\n  - name: Park\n  - name: Bridge\n"), 0o600))

	res, err := app.Seed(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Quests)
	assert.Equal(t, []string{"Park", "Bridge"}, fm.q.upserted)
	require.NoError(t, mock.ExpectationsWereMet())
}

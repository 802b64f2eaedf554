package services

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/questkeeper/internal/common"
	"github.com/dmitrijs2005/questkeeper/internal/cryptox"
	"github.com/dmitrijs2005/questkeeper/internal/dbx"
	"github.com/dmitrijs2005/questkeeper/internal/server/auth"
	"github.com/dmitrijs2005/questkeeper/internal/server/config"
	"github.com/dmitrijs2005/questkeeper/internal/server/models"
	progressrepo "github.com/dmitrijs2005/questkeeper/internal/server/repositories/progress"
	questsrepo "github.com/dmitrijs2005/questkeeper/internal/server/repositories/quests"
	usersrepo "github.com/dmitrijs2005/questkeeper/internal/server/repositories/users"
)

var errBoom = errors.New("boom")

// --- users ---

type fakeUsersRepo struct {
	mu     sync.Mutex
	rows   map[int64]models.User
	nextID int64

	getErr    error
	createErr error
	updateErr error
	deleteErr error
	lockErr   error
}

func newFakeUsersRepo() *fakeUsersRepo {
	return &fakeUsersRepo{rows: map[int64]models.User{}, nextID: 1}
}

func (f *fakeUsersRepo) find(match func(models.User) bool) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, u := range f.rows {
		if match(u) {
			cp := u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	for _, row := range f.rows {
		if row.Email == u.Email {
			return nil, common.ErrorAlreadyExists
		}
	}
	u.ID = f.nextID
	f.nextID++
	f.rows[u.ID] = *u
	return u, nil
}

func (f *fakeUsersRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return f.find(func(u models.User) bool { return u.Email == email })
}

func (f *fakeUsersRepo) GetByToken(ctx context.Context, token string) (*models.User, error) {
	return f.find(func(u models.User) bool { return token != "" && u.Token == token })
}

func (f *fakeUsersRepo) GetByTempToken(ctx context.Context, tempToken string) (*models.User, error) {
	return f.find(func(u models.User) bool { return tempToken != "" && u.TempToken == tempToken })
}

func (f *fakeUsersRepo) Update(ctx context.Context, u *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	if _, ok := f.rows[u.ID]; !ok {
		return common.ErrorNotFound
	}
	for id, row := range f.rows {
		if id != u.ID && row.Email == u.Email {
			return common.ErrorAlreadyExists
		}
	}
	f.rows[u.ID] = *u
	return nil
}

func (f *fakeUsersRepo) Delete(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.rows[id]; !ok {
		return common.ErrorNotFound
	}
	delete(f.rows, id)
	return nil
}

func (f *fakeUsersRepo) LockByID(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lockErr != nil {
		return f.lockErr
	}
	if _, ok := f.rows[id]; !ok {
		return common.ErrorNotFound
	}
	return nil
}

func (f *fakeUsersRepo) get(t *testing.T, email string) models.User {
	t.Helper()
	u, err := f.GetByEmail(context.Background(), email)
	if err != nil {
		t.Fatalf("user %q not stored: %v", email, err)
	}
	return *u
}

// --- progress ---

type fakeProgressRepo struct {
	mu   sync.Mutex
	rows map[int64][]models.Progress

	listErr   error
	deleteErr error
	insertErr error
}

func newFakeProgressRepo() *fakeProgressRepo {
	return &fakeProgressRepo{rows: map[int64][]models.Progress{}}
}

func (f *fakeProgressRepo) ListByUser(ctx context.Context, userID int64) ([]models.Progress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]models.Progress{}, f.rows[userID]...), nil
}

func (f *fakeProgressRepo) DeleteByUser(ctx context.Context, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.rows, userID)
	return nil
}

func (f *fakeProgressRepo) Insert(ctx context.Context, userID int64, items []models.Progress) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	f.rows[userID] = append(f.rows[userID], items...)
	return nil
}

// --- quests ---

type fakeQuestsRepo struct {
	list    []models.Quest
	listErr error
}

func (f *fakeQuestsRepo) List(ctx context.Context) ([]models.Quest, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]models.Quest{}, f.list...), nil
}

func (f *fakeQuestsRepo) Upsert(ctx context.Context, q *models.Quest) (int64, error) {
	return 0, errors.New("not implemented")
}

func (f *fakeQuestsRepo) ReplaceLocations(ctx context.Context, questID int64, locations []models.Location) error {
	return errors.New("not implemented")
}

// --- manager ---

type fakeRepoManager struct {
	u *fakeUsersRepo
	p *fakeProgressRepo
	q *fakeQuestsRepo
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{u: newFakeUsersRepo(), p: newFakeProgressRepo(), q: &fakeQuestsRepo{}}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository       { return m.u }
func (m *fakeRepoManager) Progress(db dbx.DBTX) progressrepo.Repository { return m.p }
func (m *fakeRepoManager) Quests(db dbx.DBTX) questsrepo.Repository     { return m.q }

// --- notifier ---

type sentMessage struct {
	to       string
	template string
	vars     map[string]any
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (n *fakeNotifier) Notify(ctx context.Context, to, template string, vars map[string]any) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, sentMessage{to: to, template: template, vars: vars})
	return nil
}

func (n *fakeNotifier) last(t *testing.T) sentMessage {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.sent) == 0 {
		t.Fatal("no notification sent")
	}
	return n.sent[len(n.sent)-1]
}

// --- fixture ---

type accountFixture struct {
	svc      *AccountService
	repos    *fakeRepoManager
	notifier *fakeNotifier
	issuer   *auth.Issuer
	db       *sql.DB
	mock     sqlmock.Sqlmock
}

func newAccountFixture(t *testing.T, strict bool) *accountFixture {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	issuer, err := auth.NewIssuer("k", "HS256", time.Hour)
	if err != nil {
		t.Fatalf("NewIssuer error: %v", err)
	}

	repos := newFakeRepoManager()
	notifier := &fakeNotifier{}
	cfg := &config.Config{StrictTokens: strict}
	svc := NewAccountService(db, repos, cryptox.NewBcryptHasher(4), issuer, notifier, cfg)

	return &accountFixture{svc: svc, repos: repos, notifier: notifier, issuer: issuer, db: db, mock: mock}
}

func (f *accountFixture) expectTx(commit bool) {
	f.mock.ExpectBegin()
	if commit {
		f.mock.ExpectCommit()
	} else {
		f.mock.ExpectRollback()
	}
}

// registerActive registers and confirms an account and returns the stored row.
func (f *accountFixture) registerActive(t *testing.T, email, name, password string) models.User {
	t.Helper()
	ctx := context.Background()

	f.expectTx(true)
	reg, err := f.svc.Register(ctx, email, name, password)
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}
	code := f.notifier.last(t).vars["activation_code"].(string)
	if err := f.svc.ConfirmRegistration(ctx, reg.TempToken, code); err != nil {
		t.Fatalf("ConfirmRegistration error: %v", err)
	}
	return f.repos.u.get(t, email)
}

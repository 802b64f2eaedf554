package rest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dmitrijs2005/questkeeper/internal/logging"
	"github.com/dmitrijs2005/questkeeper/internal/server/models"
	"github.com/dmitrijs2005/questkeeper/internal/server/observability"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

// fakeAccounts records the last call and returns user/err for every method.
type fakeAccounts struct {
	user *models.User
	err  error

	calls int
	args  []string
	patch models.UserPatch
}

func (f *fakeAccounts) record(args ...string) {
	f.calls++
	f.args = args
}

func (f *fakeAccounts) Register(ctx context.Context, email, name, password string) (*models.User, error) {
	f.record(email, name, password)
	return f.user, f.err
}

func (f *fakeAccounts) ConfirmRegistration(ctx context.Context, tempToken, code string) error {
	f.record(tempToken, code)
	return f.err
}

func (f *fakeAccounts) Login(ctx context.Context, email, password string) (*models.User, error) {
	f.record(email, password)
	return f.user, f.err
}

func (f *fakeAccounts) RequestPasswordReset(ctx context.Context, email string) error {
	f.record(email)
	return f.err
}

func (f *fakeAccounts) ConfirmResetCode(ctx context.Context, email, code string) (*models.User, error) {
	f.record(email, code)
	return f.user, f.err
}

func (f *fakeAccounts) SetNewPassword(ctx context.Context, tempToken, password string) error {
	f.record(tempToken, password)
	return f.err
}

func (f *fakeAccounts) GetSelf(ctx context.Context, token string) (*models.User, error) {
	f.record(token)
	return f.user, f.err
}

func (f *fakeAccounts) UpdateSelf(ctx context.Context, token string, patch models.UserPatch) (*models.User, error) {
	f.record(token)
	f.patch = patch
	return f.user, f.err
}

func (f *fakeAccounts) DeleteSelf(ctx context.Context, token string) error {
	f.record(token)
	return f.err
}

type fakeProgress struct {
	items []models.Progress
	err   error

	token    string
	replaced []models.Progress
	calls    int
}

func (f *fakeProgress) Get(ctx context.Context, token string) ([]models.Progress, error) {
	f.calls++
	f.token = token
	return f.items, f.err
}

func (f *fakeProgress) Replace(ctx context.Context, token string, items []models.Progress) ([]models.Progress, error) {
	f.calls++
	f.token = token
	f.replaced = items
	if f.err != nil {
		return nil, f.err
	}
	return items, nil
}

type fakeCatalog struct {
	quests []models.Quest
	err    error
}

func (f *fakeCatalog) ListQuests(ctx context.Context) ([]models.Quest, error) {
	return f.quests, f.err
}

type fixture struct {
	server   *Server
	accounts *fakeAccounts
	progress *fakeProgress
	catalog  *fakeCatalog
}

func newFixture(t *testing.T, m *observability.Metrics, authRateLimit int) *fixture {
	t.Helper()
	f := &fixture{accounts: &fakeAccounts{}, progress: &fakeProgress{}, catalog: &fakeCatalog{}}
	f.server = NewServer("127.0.0.1:0", logging.Discard, f.accounts, f.progress, f.catalog, m, authRateLimit)
	return f
}

// do sends a request through the app. token, if set, is sent as a bearer.
func (f *fixture) do(t *testing.T, method, path, body, token string) (*http.Response, map[string]any) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := f.server.App().Test(req, -1)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var decoded map[string]any
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded), "body: %s", raw)
	}
	return resp, decoded
}

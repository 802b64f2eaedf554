package users

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/questkeeper/internal/common"
	"github.com/dmitrijs2005/questkeeper/internal/server/models"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

var userColumns = []string{"id", "email", "name", "hashed_password", "token", "temp_token",
	"activation_code", "is_active", "is_admin"}

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^INSERT\s+INTO\s+users\s*\(email,.*RETURNING\s+id`).
		WithArgs("a@x.io", "Ann", "hash", "tok", "temp", "123456", false, false).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))

	u := &models.User{Email: "a@x.io", Name: "Ann", HashedPassword: "hash", Token: "tok",
		TempToken: "temp", ActivationCode: "123456"}
	got, err := repo.Create(context.Background(), u)
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if got.ID != 42 || got.Email != "a@x.io" {
		t.Fatalf("unexpected user: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestCreate_UniqueViolation(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`INSERT\s+INTO\s+users`).
		WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation})

	_, err := repo.Create(context.Background(), &models.User{Email: "a@x.io"})
	if !errors.Is(err, common.ErrorAlreadyExists) {
		t.Fatalf("want common.ErrorAlreadyExists, got %v", err)
	}
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`INSERT\s+INTO\s+users`).
		WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), &models.User{Email: "a@x.io"})
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestGetByEmail_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows(userColumns).
		AddRow(int64(7), "a@x.io", "Ann", "hash", "tok", nil, "654321", true, false)
	mock.ExpectQuery(`(?s)FROM\s+users\s+WHERE\s+email\s*=\s*\$1`).
		WithArgs("a@x.io").
		WillReturnRows(rows)

	got, err := repo.GetByEmail(context.Background(), "a@x.io")
	if err != nil {
		t.Fatalf("GetByEmail error: %v", err)
	}
	want := models.User{ID: 7, Email: "a@x.io", Name: "Ann", HashedPassword: "hash", Token: "tok",
		ActivationCode: "654321", IsActive: true}
	if *got != want {
		t.Fatalf("got %+v, want %+v", *got, want)
	}
}

func TestGetByEmail_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`WHERE\s+email`).
		WithArgs("ghost@x.io").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByEmail(context.Background(), "ghost@x.io")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestGetByToken(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows(userColumns).
		AddRow(int64(1), "a@x.io", "Ann", "hash", "tok", "temp", "111111", false, false)
	mock.ExpectQuery(`WHERE\s+token\s*=\s*\$1`).
		WithArgs("tok").
		WillReturnRows(rows)

	got, err := repo.GetByToken(context.Background(), "tok")
	if err != nil {
		t.Fatalf("GetByToken error: %v", err)
	}
	if got.TempToken != "temp" || got.IsActive {
		t.Fatalf("unexpected user: %+v", got)
	}
}

func TestGetByToken_EmptyNeverQueries(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	if _, err := repo.GetByToken(context.Background(), ""); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
	if _, err := repo.GetByTempToken(context.Background(), ""); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestGetByTempToken_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`WHERE\s+temp_token\s*=\s*\$1`).
		WithArgs("temp").
		WillReturnError(errors.New("db err"))

	_, err := repo.GetByTempToken(context.Background(), "temp")
	if err == nil || !regexp.MustCompile(`db error: .*db err`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestUpdate_StoresEmptyTempTokenAsNull(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)^UPDATE\s+users\s+SET`).
		WithArgs(int64(3), "a@x.io", "Ann", "hash2", "tok2", nil, "000000", true).
		WillReturnResult(sqlmock.NewResult(0, 1))

	u := &models.User{ID: 3, Email: "a@x.io", Name: "Ann", HashedPassword: "hash2", Token: "tok2",
		ActivationCode: "000000", IsActive: true}
	if err := repo.Update(context.Background(), u); err != nil {
		t.Fatalf("Update error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestUpdate_Errors(t *testing.T) {
	t.Run("missing row", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()
		mock.ExpectExec(`UPDATE\s+users`).WillReturnResult(sqlmock.NewResult(0, 0))
		if err := repo.Update(context.Background(), &models.User{ID: 1}); !errors.Is(err, common.ErrorNotFound) {
			t.Fatalf("want common.ErrorNotFound, got %v", err)
		}
	})
	t.Run("email taken", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()
		mock.ExpectExec(`UPDATE\s+users`).WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation})
		if err := repo.Update(context.Background(), &models.User{ID: 1}); !errors.Is(err, common.ErrorAlreadyExists) {
			t.Fatalf("want common.ErrorAlreadyExists, got %v", err)
		}
	})
	t.Run("rows affected", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()
		mock.ExpectExec(`UPDATE\s+users`).WillReturnResult(sqlmock.NewErrorResult(errors.New("nope")))
		err := repo.Update(context.Background(), &models.User{ID: 1})
		if err == nil || !regexp.MustCompile(`rows affected error: nope`).MatchString(err.Error()) {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}

func TestDelete(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`^DELETE\s+FROM\s+users\s+WHERE\s+id\s*=\s*\$1$`).
		WithArgs(int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`^DELETE\s+FROM\s+users`).
		WithArgs(int64(10)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.Delete(context.Background(), 9); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if err := repo.Delete(context.Background(), 10); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestLockByID(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FOR\s+UPDATE$`).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(5)))
	mock.ExpectQuery(`FOR\s+UPDATE$`).
		WithArgs(int64(6)).
		WillReturnError(sql.ErrNoRows)

	if err := repo.LockByID(context.Background(), 5); err != nil {
		t.Fatalf("LockByID error: %v", err)
	}
	if err := repo.LockByID(context.Background(), 6); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

package directory_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianhq/portal-backend/internal/database"
	"github.com/meridianhq/portal-backend/internal/directory"
	perrors "github.com/meridianhq/portal-backend/internal/errors"
	"github.com/meridianhq/portal-backend/internal/secrets"
)

const appSecretJSON = `{"username":"app_user","password":"apw12345","host":"db.internal","port":"5432","dbname":"example"}`

func newService(t *testing.T, conn *sql.DB) *directory.Service {
	t.Helper()

	resolver := secrets.NewResolver("eu-west-1", nil, nil,
		secrets.WithLookup(func(key string) (string, bool) {
			if key == "DB_APP_SECRET" {
				return appSecretJSON, true
			}
			return "", false
		}),
	)
	manager := database.NewManager(resolver, "db-app-secret", "example", nil, database.WithConn(conn))
	return directory.NewService(manager, nil)
}

func userColumns() []string {
	return []string{"id", "user_name", "name", "email", "organisation_id", "created", "modified"}
}

func TestUpsertCreatesUnknownUser(t *testing.T) {
	t.Parallel()

	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM "user_account"`).
		WillReturnRows(sqlmock.NewRows(userColumns()))
	mock.ExpectExec(`INSERT INTO "user_account"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	svc := newService(t, conn)
	err = svc.Upsert(context.Background(), "jdoe", directory.Attributes{
		Email:      "jdoe@example.com",
		FamilyName: "Doe",
		GivenName:  "Jane",
	})

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertUpdatesKnownUser(t *testing.T) {
	t.Parallel()

	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM "user_account"`).
		WillReturnRows(sqlmock.NewRows(userColumns()).
			AddRow(uuid.NewString(), "jdoe", "Old Name", "old@example.com", nil, now, now))
	mock.ExpectExec(`UPDATE "user_account" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	svc := newService(t, conn)
	err = svc.Upsert(context.Background(), "jdoe", directory.Attributes{
		Email: "jdoe@example.com",
		Name:  "Jane Doe",
	})

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertRejectsInvalidAttributes(t *testing.T) {
	t.Parallel()

	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	svc := newService(t, conn)
	err = svc.Upsert(context.Background(), "jdoe", directory.Attributes{Email: "not-an-email"})

	var verr perrors.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertRejectsEmptyUserName(t *testing.T) {
	t.Parallel()

	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	svc := newService(t, conn)
	err = svc.Upsert(context.Background(), "", directory.Attributes{Email: "jdoe@example.com"})

	var verr perrors.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "userName", verr.Field)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteRemovesUser(t *testing.T) {
	t.Parallel()

	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM "user_account"`).
		WillReturnRows(sqlmock.NewRows(userColumns()).
			AddRow(uuid.NewString(), "jdoe", "Jane Doe", "jdoe@example.com", nil, now, now))
	mock.ExpectExec(`DELETE FROM "user_account"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	svc := newService(t, conn)
	err = svc.Delete(context.Background(), "jdoe")

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteUnknownUserFailsWithoutMutation(t *testing.T) {
	t.Parallel()

	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM "user_account"`).
		WillReturnRows(sqlmock.NewRows(userColumns()))
	mock.ExpectRollback()

	svc := newService(t, conn)
	err = svc.Delete(context.Background(), "jdoe")

	var rerr perrors.RequestError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "User not found", rerr.Message)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetProjectsUser(t *testing.T) {
	t.Parallel()

	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM "user_account"`).
		WillReturnRows(sqlmock.NewRows(userColumns()).
			AddRow(uuid.NewString(), "jdoe", "Jane Doe", "jdoe@example.com", nil, now, now))
	mock.ExpectCommit()

	svc := newService(t, conn)
	out, err := svc.Get(context.Background(), "jdoe")

	require.NoError(t, err)
	assert.Equal(t, "jdoe", out["userName"])
	assert.Equal(t, "Jane Doe", out["name"])
	assert.Equal(t, "jdoe@example.com", out["email"])
	assert.Nil(t, out["organisation"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUnknownUserFails(t *testing.T) {
	t.Parallel()

	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM "user_account"`).
		WillReturnRows(sqlmock.NewRows(userColumns()))
	mock.ExpectRollback()

	svc := newService(t, conn)
	_, err = svc.Get(context.Background(), "jdoe")

	var rerr perrors.RequestError
	require.ErrorAs(t, err, &rerr)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStorageFailureIsContained(t *testing.T) {
	t.Parallel()

	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM "user_account"`).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	svc := newService(t, conn)
	err = svc.Upsert(context.Background(), "jdoe", directory.Attributes{Email: "jdoe@example.com"})

	var serr perrors.ServiceError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "Internal server error", err.Error())
	assert.NoError(t, mock.ExpectationsWereMet())
}

package hooks_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianhq/portal-backend/internal/database"
	"github.com/meridianhq/portal-backend/internal/directory"
	"github.com/meridianhq/portal-backend/internal/hooks"
	"github.com/meridianhq/portal-backend/internal/secrets"
)

const appSecretJSON = `{"username":"app_user","password":"apw12345","host":"db.internal","port":"5432","dbname":"example"}`

func newHandler(t *testing.T, conn *sql.DB, prefix string) *hooks.Handler {
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
	return hooks.NewHandler(directory.NewService(manager, nil), prefix, nil)
}

func TestParseCustomGroups(t *testing.T) {
	t.Parallel()

	conn, _, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()
	h := newHandler(t, conn, "DEV_")

	tests := []struct {
		name  string
		input string
		want  map[string]struct{}
	}{
		{"empty", "", map[string]struct{}{}},
		{"single", "[DEV_SYSADMIN]", map[string]struct{}{"SYSADMIN": {}}},
		{
			"multiple with spaces", "[DEV_SYSADMIN, DEV_USER]",
			map[string]struct{}{"SYSADMIN": {}, "USER": {}},
		},
		{"unprefixed kept", "[SYSADMIN]", map[string]struct{}{"SYSADMIN": {}}},
		{"no brackets", "DEV_SYSADMIN", map[string]struct{}{"SYSADMIN": {}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, h.ParseCustomGroups(tc.input))
		})
	}
}

func TestTokenGenerationAugmentsGroups(t *testing.T) {
	t.Parallel()

	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()
	h := newHandler(t, conn, "DEV_")

	raw := json.RawMessage(`{
		"triggerSource": "TokenGeneration_Authentication",
		"userName": "jdoe",
		"request": {
			"userAttributes": {"custom:groups": "[DEV_SYSADMIN, DEV_OTHER]"},
			"groupConfiguration": {
				"groupsToOverride": ["existing"],
				"iamRolesToOverride": ["arn:aws:iam::123:role/portal"],
				"preferredRole": null
			}
		}
	}`)

	out, err := h.Handle(context.Background(), raw)
	require.NoError(t, err)

	event, ok := out.(events.CognitoEventUserPoolsPreTokenGen)
	require.True(t, ok)
	details := event.Response.ClaimsOverrideDetails.GroupOverrideDetails
	assert.Equal(t, []string{"existing", "SYSADMIN"}, details.GroupsToOverride)
	assert.Equal(t, []string{"arn:aws:iam::123:role/portal"}, details.IAMRolesToOverride)
	assert.Nil(t, details.PreferredRole)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenGenerationWithoutCustomGroups(t *testing.T) {
	t.Parallel()

	conn, _, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()
	h := newHandler(t, conn, "DEV_")

	raw := json.RawMessage(`{
		"triggerSource": "TokenGeneration_RefreshTokens",
		"request": {
			"userAttributes": {},
			"groupConfiguration": {"groupsToOverride": [], "iamRolesToOverride": []}
		}
	}`)

	out, err := h.Handle(context.Background(), raw)
	require.NoError(t, err)

	event := out.(events.CognitoEventUserPoolsPreTokenGen)
	assert.Empty(t, event.Response.ClaimsOverrideDetails.GroupOverrideDetails.GroupsToOverride)
}

func TestPostConfirmationSyncsUser(t *testing.T) {
	t.Parallel()

	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()
	h := newHandler(t, conn, "DEV_")

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM "user_account"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_name", "name", "email", "organisation_id", "created", "modified"}))
	mock.ExpectExec(`INSERT INTO "user_account"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	raw := json.RawMessage(`{
		"triggerSource": "PostConfirmation_ConfirmSignUp",
		"userName": "jdoe",
		"request": {
			"userAttributes": {
				"email": "jdoe@example.com",
				"family_name": "Doe",
				"given_name": "Jane"
			}
		}
	}`)

	out, err := h.Handle(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, raw, out)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUnknownTriggerPassesThrough(t *testing.T) {
	t.Parallel()

	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()
	h := newHandler(t, conn, "DEV_")

	raw := json.RawMessage(`{"triggerSource": "CustomMessage_SignUp", "userName": "jdoe"}`)
	out, err := h.Handle(context.Background(), raw)

	require.NoError(t, err)
	assert.Equal(t, raw, out)
	assert.NoError(t, mock.ExpectationsWereMet())
}

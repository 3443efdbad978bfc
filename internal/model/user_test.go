package model_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianhq/portal-backend/internal/entity"
	"github.com/meridianhq/portal-backend/internal/model"
)

func newUser() *model.UserAccount {
	return &model.UserAccount{
		ID:       uuid.MustParse("8b2e8a1e-0a64-4a24-93b5-6e2f17a3c001"),
		UserName: "jdoe",
		Name:     "Jane Doe",
		Email:    "jane@example.com",
		Created:  time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		Modified: time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestUserToDict(t *testing.T) {
	t.Parallel()

	p := entity.NewProjector(nil)
	user := newUser()
	org := &model.Organisation{
		ID:          uuid.New(),
		Name:        "acme",
		DisplayName: "ACME Corp",
	}
	user.Organisation = org

	out := user.ToDict(p, nil)

	assert.Equal(t, "jdoe", out["userName"])
	assert.Equal(t, "Jane Doe", out["name"])
	assert.Equal(t, "jane@example.com", out["email"])
	assert.Equal(t, "8b2e8a1e-0a64-4a24-93b5-6e2f17a3c001", out["id"])
	assert.Equal(t, "2024-01-01T12:00:00Z", out["created"])

	nested, ok := out["organisation"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "acme", nested["name"])
	assert.Equal(t, "ACME Corp", nested["displayName"])
	assert.NotContains(t, nested, "users")
}

func TestUserToDictWithoutOrganisation(t *testing.T) {
	t.Parallel()

	p := entity.NewProjector(nil)
	out := newUser().ToDict(p, nil)

	v, ok := out["organisation"]
	require.True(t, ok)
	assert.Nil(t, v)
}

func TestOrganisationProjectionWithMembers(t *testing.T) {
	t.Parallel()

	first := newUser()
	second := newUser()
	second.UserName = "asmith"
	org := &model.Organisation{
		ID:          uuid.New(),
		Name:        "acme",
		DisplayName: "ACME Corp",
		Users:       []model.UserAccount{*first, *second},
	}

	p := entity.NewProjector(nil)
	out := p.Project(org, entity.Options{Show: []string{"users", "users.user_name"}})

	members, ok := out["users"].([]map[string]any)
	require.True(t, ok)
	require.Len(t, members, 2)
	assert.Equal(t, "jdoe", members[0]["userName"])
	assert.Equal(t, "asmith", members[1]["userName"])
}

func TestUserDescriptorShape(t *testing.T) {
	t.Parallel()

	desc := newUser().Descriptor()
	assert.Equal(t, "user_account", desc.Collection)
	assert.True(t, desc.HasField("user_name"))
	assert.True(t, desc.HasField("organisation"))
	assert.False(t, desc.HasField("password"))
}

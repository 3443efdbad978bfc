package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/meridianhq/portal-backend/internal/entity"
)

// DefaultUserShow is the show list applied on the standard user read path.
var DefaultUserShow = []string{
	"user_name",
	"name",
	"email",
	"organisation",
	"organisation.name",
	"organisation.display_name",
}

// UserAccount is a portal user synced from the identity provider.
type UserAccount struct {
	ID             uuid.UUID     `gorm:"type:uuid;primaryKey;column:id"`
	UserName       string        `gorm:"column:user_name;uniqueIndex;not null"`
	Name           string        `gorm:"column:name;not null"`
	Email          string        `gorm:"column:email;not null"`
	OrganisationID *uuid.UUID    `gorm:"type:uuid;column:organisation_id"`
	Organisation   *Organisation `gorm:"foreignKey:OrganisationID"`
	Created        time.Time     `gorm:"column:created;autoCreateTime"`
	Modified       time.Time     `gorm:"column:modified;autoUpdateTime"`
}

// TableName overrides GORM's pluralized default.
func (UserAccount) TableName() string {
	return "user_account"
}

// BeforeCreate assigns a fresh identifier when none is set.
func (u *UserAccount) BeforeCreate(_ *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

var userDescriptor = &entity.Descriptor{
	Collection: "user_account",
	Fields: []entity.Field{
		{Name: "id"},
		{Name: "user_name"},
		{Name: "name"},
		{Name: "email"},
		{Name: "created"},
		{Name: "modified"},
		{Name: "organisation", Kind: entity.Relation},
	},
}

// Descriptor implements entity.Entity.
func (u *UserAccount) Descriptor() *entity.Descriptor {
	return userDescriptor
}

// Field implements entity.Entity.
func (u *UserAccount) Field(name string) any {
	switch name {
	case "id":
		return u.ID
	case "user_name":
		return u.UserName
	case "name":
		return u.Name
	case "email":
		return u.Email
	case "created":
		return u.Created
	case "modified":
		return u.Modified
	case "organisation":
		if u.Organisation == nil {
			return nil
		}
		return u.Organisation
	}
	return nil
}

// ToDict projects the user for transport. A nil show list applies the
// standard read-path visibility.
func (u *UserAccount) ToDict(p *entity.Projector, show []string) map[string]any {
	if show == nil {
		show = DefaultUserShow
	}
	return p.Project(u, entity.Options{Show: show})
}

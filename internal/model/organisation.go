package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/meridianhq/portal-backend/internal/entity"
)

// Organisation groups portal users under one tenant.
type Organisation struct {
	ID          uuid.UUID     `gorm:"type:uuid;primaryKey;column:id"`
	Name        string        `gorm:"column:name;uniqueIndex;not null"`
	DisplayName string        `gorm:"column:display_name"`
	Users       []UserAccount `gorm:"foreignKey:OrganisationID"`
	Created     time.Time     `gorm:"column:created;autoCreateTime"`
	Modified    time.Time     `gorm:"column:modified;autoUpdateTime"`
}

// TableName overrides GORM's pluralized default.
func (Organisation) TableName() string {
	return "organisation"
}

// BeforeCreate assigns a fresh identifier when none is set.
func (o *Organisation) BeforeCreate(_ *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

var organisationDescriptor = &entity.Descriptor{
	Collection: "organisation",
	Fields: []entity.Field{
		{Name: "id"},
		{Name: "name"},
		{Name: "display_name"},
		{Name: "created"},
		{Name: "modified"},
		{Name: "users", Kind: entity.Relation, List: true},
	},
	Defaults: []string{"name", "display_name"},
}

// Descriptor implements entity.Entity.
func (o *Organisation) Descriptor() *entity.Descriptor {
	return organisationDescriptor
}

// Field implements entity.Entity.
func (o *Organisation) Field(name string) any {
	switch name {
	case "id":
		return o.ID
	case "name":
		return o.Name
	case "display_name":
		return o.DisplayName
	case "created":
		return o.Created
	case "modified":
		return o.Modified
	case "users":
		items := make([]entity.Entity, len(o.Users))
		for i := range o.Users {
			items[i] = &o.Users[i]
		}
		return items
	}
	return nil
}

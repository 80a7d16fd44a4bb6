package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Ingredient is reference data. Two rows may share a name only under
// different measurement units.
type Ingredient struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name            string    `gorm:"size:128;not null;uniqueIndex:idx_ingredient_name_unit;index" json:"name"`
	MeasurementUnit string    `gorm:"size:64;not null;uniqueIndex:idx_ingredient_name_unit" json:"measurement_unit"`
}

func (Ingredient) TableName() string {
	return "ingredients"
}

func (i *Ingredient) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

type Tag struct {
	ID   uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name string    `gorm:"size:32;uniqueIndex;not null" json:"name"`
	Slug string    `gorm:"size:32;uniqueIndex;not null" json:"slug"`
}

func (Tag) TableName() string {
	return "tags"
}

func (t *Tag) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

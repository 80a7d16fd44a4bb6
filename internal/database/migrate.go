package database

import (
	"gorm.io/gorm"

	"github.com/forkful/forkful-backend/internal/models"
)

// Migrate creates or updates the schema for every persisted entity. The
// relation tables get their composite unique indexes from the model tags;
// those indexes, not application pre-checks, enforce the one-row-per-pair
// invariants under concurrent writes.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Follow{},
		&models.Tag{},
		&models.Ingredient{},
		&models.Recipe{},
		&models.RecipeIngredient{},
		&models.Favorite{},
		&models.CartItem{},
	)
}

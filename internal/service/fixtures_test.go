package service

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/forkful/forkful-backend/internal/models"
)

func newUser(t *testing.T, db *gorm.DB, username string) models.User {
	t.Helper()
	user := models.User{
		Email:        username + "@example.com",
		Username:     username,
		FirstName:    "Test",
		LastName:     "User",
		PasswordHash: "x",
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func newIngredient(t *testing.T, db *gorm.DB, name, unit string) models.Ingredient {
	t.Helper()
	ingredient := models.Ingredient{Name: name, MeasurementUnit: unit}
	require.NoError(t, db.Create(&ingredient).Error)
	return ingredient
}

func newTag(t *testing.T, db *gorm.DB, name, slug string) models.Tag {
	t.Helper()
	tag := models.Tag{Name: name, Slug: slug}
	require.NoError(t, db.Create(&tag).Error)
	return tag
}

func newRecipe(t *testing.T, db *gorm.DB, author models.User, name string) models.Recipe {
	t.Helper()
	recipe := models.Recipe{
		AuthorID:    author.ID,
		Name:        name,
		Text:        "test recipe",
		CookingTime: 10,
	}
	require.NoError(t, db.Create(&recipe).Error)
	return recipe
}

func addIngredient(t *testing.T, db *gorm.DB, recipe models.Recipe, ingredient models.Ingredient, amount int) {
	t.Helper()
	row := models.RecipeIngredient{
		RecipeID:     recipe.ID,
		IngredientID: ingredient.ID,
		Amount:       amount,
	}
	require.NoError(t, db.Create(&row).Error)
}

func addTag(t *testing.T, db *gorm.DB, recipe models.Recipe, tag models.Tag) {
	t.Helper()
	require.NoError(t, db.Model(&recipe).Association("Tags").Append(&tag))
}

func addToCart(t *testing.T, db *gorm.DB, user models.User, recipe models.Recipe) {
	t.Helper()
	require.NoError(t, db.Create(&models.CartItem{UserID: user.ID, RecipeID: recipe.ID}).Error)
}

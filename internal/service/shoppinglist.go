package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/forkful/forkful-backend/internal/apperr"
)

// ErrEmptyCart is returned when the user's cart holds no recipes, or the
// cart recipes contribute no ingredients.
var ErrEmptyCart = apperr.Validation("shopping cart is empty")

// LineItem is an aggregated (name, unit, summed amount) triple.
type LineItem struct {
	Name            string `json:"name"`
	MeasurementUnit string `json:"measurement_unit"`
	Amount          int    `json:"amount"`
}

// ShoppingListService aggregates the ingredients of all recipes in a user's
// cart.
type ShoppingListService struct {
	db *gorm.DB
}

func NewShoppingListService(db *gorm.DB) *ShoppingListService {
	return &ShoppingListService{db: db}
}

// BuildShoppingList groups the cart's recipe ingredients by the rendered
// (name, measurement unit) key and sums amounts across recipes. Ordered by
// name then unit, so repeated calls against unchanged data match.
func (s *ShoppingListService) BuildShoppingList(ctx context.Context, userID uuid.UUID) ([]LineItem, error) {
	var items []LineItem
	err := s.db.WithContext(ctx).
		Table("recipe_ingredients").
		Select("ingredients.name AS name, ingredients.measurement_unit AS measurement_unit, SUM(recipe_ingredients.amount) AS amount").
		Joins("JOIN ingredients ON ingredients.id = recipe_ingredients.ingredient_id").
		Joins("JOIN cart_items ON cart_items.recipe_id = recipe_ingredients.recipe_id").
		Where("cart_items.user_id = ?", userID).
		Group("ingredients.name, ingredients.measurement_unit").
		Order("ingredients.name ASC, ingredients.measurement_unit ASC").
		Scan(&items).Error
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}
	return items, nil
}

// RenderShoppingList formats line items as the plain-text export. Pure
// function of the grouped data.
func RenderShoppingList(items []LineItem) string {
	lines := make([]string, 0, len(items))
	for _, item := range items {
		lines = append(lines, fmt.Sprintf("%s (%s) - %d", item.Name, item.MeasurementUnit, item.Amount))
	}
	return strings.Join(lines, "\n")
}

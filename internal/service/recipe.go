package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/forkful/forkful-backend/internal/apperr"
	"github.com/forkful/forkful-backend/internal/models"
)

// RecipeService handles recipe CRUD, the filtered list view and the
// favorite/cart toggles.
type RecipeService struct {
	db       *gorm.DB
	pageSize int
}

func NewRecipeService(db *gorm.DB, pageSize int) *RecipeService {
	return &RecipeService{db: db, pageSize: pageSize}
}

// IngredientAmount pairs an ingredient with its per-recipe amount.
type IngredientAmount struct {
	IngredientID uuid.UUID
	Amount       int
}

// RecipeInput is the validated write payload. Ingredient and tag sets are
// full replacements, never patches.
type RecipeInput struct {
	Name        string
	Text        string
	ImageURL    string
	CookingTime int
	TagIDs      []uuid.UUID
	Ingredients []IngredientAmount
}

// RecipeFilter selects and pages the recipe list.
type RecipeFilter struct {
	Author    *uuid.UUID
	TagSlugs  []string
	Favorited bool
	InCart    bool
	Page      int
	Limit     int
}

// RecipeWithFlags is a recipe plus the per-viewer computed flags.
type RecipeWithFlags struct {
	models.Recipe
	IsFavorited      bool
	IsInShoppingCart bool
}

func (s *RecipeService) validateInput(ctx context.Context, input *RecipeInput) ([]models.Tag, error) {
	if input.Name == "" {
		return nil, apperr.Validation("name is required")
	}
	if input.Text == "" {
		return nil, apperr.Validation("text is required")
	}
	if input.CookingTime < 1 {
		return nil, apperr.Validation("cooking_time must be at least 1")
	}
	if len(input.Ingredients) == 0 {
		return nil, apperr.Validation("at least one ingredient is required")
	}
	seen := make(map[uuid.UUID]bool, len(input.Ingredients))
	ingredientIDs := make([]uuid.UUID, 0, len(input.Ingredients))
	for _, ing := range input.Ingredients {
		if ing.Amount < 1 {
			return nil, apperr.Validation("ingredient amount must be at least 1")
		}
		if seen[ing.IngredientID] {
			return nil, apperr.Validation("ingredients must not repeat")
		}
		seen[ing.IngredientID] = true
		ingredientIDs = append(ingredientIDs, ing.IngredientID)
	}
	if len(input.TagIDs) == 0 {
		return nil, apperr.Validation("at least one tag is required")
	}
	seenTags := make(map[uuid.UUID]bool, len(input.TagIDs))
	for _, id := range input.TagIDs {
		if seenTags[id] {
			return nil, apperr.Validation("tags must not repeat")
		}
		seenTags[id] = true
	}

	var ingredientCount int64
	if err := s.db.WithContext(ctx).Model(&models.Ingredient{}).
		Where("id IN ?", ingredientIDs).Count(&ingredientCount).Error; err != nil {
		return nil, err
	}
	if int(ingredientCount) != len(ingredientIDs) {
		return nil, apperr.Validation("unknown ingredient")
	}

	var tags []models.Tag
	if err := s.db.WithContext(ctx).Where("id IN ?", input.TagIDs).Find(&tags).Error; err != nil {
		return nil, err
	}
	if len(tags) != len(input.TagIDs) {
		return nil, apperr.Validation("unknown tag")
	}
	return tags, nil
}

// Create validates, then writes the recipe, its tag associations and its
// ingredient rows in one transaction.
func (s *RecipeService) Create(ctx context.Context, authorID uuid.UUID, input RecipeInput) (*models.Recipe, error) {
	tags, err := s.validateInput(ctx, &input)
	if err != nil {
		return nil, err
	}

	recipe := models.Recipe{
		AuthorID:    authorID,
		Name:        input.Name,
		Text:        input.Text,
		ImageURL:    input.ImageURL,
		CookingTime: input.CookingTime,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&recipe).Error; err != nil {
			return err
		}
		if err := tx.Model(&recipe).Association("Tags").Replace(tags); err != nil {
			return err
		}
		rows := buildIngredientRows(recipe.ID, input.Ingredients)
		return tx.Create(&rows).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.Conflict("duplicate recipe ingredient")
		}
		return nil, err
	}
	return s.load(ctx, recipe.ID)
}

// Update replaces the recipe's fields, tag set and ingredient set
// all-or-nothing. Only the author may update.
func (s *RecipeService) Update(ctx context.Context, recipeID, actorID uuid.UUID, input RecipeInput) (*models.Recipe, error) {
	recipe, err := s.load(ctx, recipeID)
	if err != nil {
		return nil, err
	}
	if recipe.AuthorID != actorID {
		return nil, apperr.Forbidden("only the author may modify this recipe")
	}

	tags, err := s.validateInput(ctx, &input)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"name":         input.Name,
		"text":         input.Text,
		"cooking_time": input.CookingTime,
	}
	// An empty image keeps the prior one.
	if input.ImageURL != "" {
		updates["image_url"] = input.ImageURL
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Recipe{}).Where("id = ?", recipeID).Updates(updates).Error; err != nil {
			return err
		}
		if err := tx.Model(recipe).Association("Tags").Replace(tags); err != nil {
			return err
		}
		if err := tx.Where("recipe_id = ?", recipeID).Delete(&models.RecipeIngredient{}).Error; err != nil {
			return err
		}
		rows := buildIngredientRows(recipeID, input.Ingredients)
		return tx.Create(&rows).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.Conflict("duplicate recipe ingredient")
		}
		return nil, err
	}
	return s.load(ctx, recipeID)
}

// Delete removes the recipe. Only the author may delete.
func (s *RecipeService) Delete(ctx context.Context, recipeID, actorID uuid.UUID) error {
	recipe, err := s.resolve(ctx, recipeID)
	if err != nil {
		return err
	}
	if recipe.AuthorID != actorID {
		return apperr.Forbidden("only the author may delete this recipe")
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(recipe).Association("Tags").Clear(); err != nil {
			return err
		}
		for _, m := range []interface{}{
			&models.RecipeIngredient{}, &models.Favorite{}, &models.CartItem{},
		} {
			if err := tx.Where("recipe_id = ?", recipeID).Delete(m).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&models.Recipe{}, "id = ?", recipeID).Error
	})
}

func buildIngredientRows(recipeID uuid.UUID, ingredients []IngredientAmount) []models.RecipeIngredient {
	rows := make([]models.RecipeIngredient, 0, len(ingredients))
	for _, ing := range ingredients {
		rows = append(rows, models.RecipeIngredient{
			RecipeID:     recipeID,
			IngredientID: ing.IngredientID,
			Amount:       ing.Amount,
		})
	}
	return rows
}

// resolve fetches the bare recipe row or reports the entity as missing.
func (s *RecipeService) resolve(ctx context.Context, recipeID uuid.UUID) (*models.Recipe, error) {
	var recipe models.Recipe
	if err := s.db.WithContext(ctx).First(&recipe, "id = ?", recipeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("recipe not found")
		}
		return nil, err
	}
	return &recipe, nil
}

// load fetches the recipe with tags, ingredients and author preloaded.
func (s *RecipeService) load(ctx context.Context, recipeID uuid.UUID) (*models.Recipe, error) {
	var recipe models.Recipe
	err := s.db.WithContext(ctx).
		Preload("Tags").
		Preload("Ingredients.Ingredient").
		Preload("Author").
		First(&recipe, "id = ?", recipeID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("recipe not found")
		}
		return nil, err
	}
	return &recipe, nil
}

// Get returns one recipe with per-viewer flags.
func (s *RecipeService) Get(ctx context.Context, recipeID uuid.UUID, viewer *uuid.UUID) (*RecipeWithFlags, error) {
	recipe, err := s.load(ctx, recipeID)
	if err != nil {
		return nil, err
	}
	out := RecipeWithFlags{Recipe: *recipe}
	if viewer != nil {
		if out.IsFavorited, err = relationExists[models.Favorite](ctx, s.db,
			"user_id = ? AND recipe_id = ?", *viewer, recipeID); err != nil {
			return nil, err
		}
		if out.IsInShoppingCart, err = relationExists[models.CartItem](ctx, s.db,
			"user_id = ? AND recipe_id = ?", *viewer, recipeID); err != nil {
			return nil, err
		}
	}
	return &out, nil
}

// List returns the filtered, paginated recipe view, newest first. An unknown
// tag slug is a validation error rather than a silent empty result. The
// favorited/in-cart filters are ignored for an anonymous viewer.
func (s *RecipeService) List(ctx context.Context, filter RecipeFilter, viewer *uuid.UUID) ([]RecipeWithFlags, int64, error) {
	if filter.Page < 1 {
		return nil, 0, apperr.Validation("page must be a positive integer")
	}
	limit := filter.Limit
	if limit < 1 {
		limit = s.pageSize
	}

	q := s.db.WithContext(ctx).Model(&models.Recipe{})

	if filter.Author != nil {
		q = q.Where("recipes.author_id = ?", *filter.Author)
	}
	if len(filter.TagSlugs) > 0 {
		tagIDs, err := s.resolveTagSlugs(ctx, filter.TagSlugs)
		if err != nil {
			return nil, 0, err
		}
		q = q.Where("recipes.id IN (?)", s.db.WithContext(ctx).Table("recipe_tags").
			Select("recipe_id").Where("tag_id IN ?", tagIDs))
	}
	if viewer != nil {
		if filter.Favorited {
			q = q.Where("recipes.id IN (?)", s.db.WithContext(ctx).Table("favorites").
				Select("recipe_id").Where("user_id = ?", *viewer))
		}
		if filter.InCart {
			q = q.Where("recipes.id IN (?)", s.db.WithContext(ctx).Table("cart_items").
				Select("recipe_id").Where("user_id = ?", *viewer))
		}
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var recipes []models.Recipe
	err := q.
		Preload("Tags").
		Preload("Ingredients.Ingredient").
		Preload("Author").
		Order("recipes.created_at DESC, recipes.id DESC").
		Offset((filter.Page - 1) * limit).
		Limit(limit).
		Find(&recipes).Error
	if err != nil {
		return nil, 0, err
	}

	out, err := s.attachFlags(ctx, recipes, viewer)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (s *RecipeService) resolveTagSlugs(ctx context.Context, slugs []string) ([]uuid.UUID, error) {
	var tags []models.Tag
	if err := s.db.WithContext(ctx).Where("slug IN ?", slugs).Find(&tags).Error; err != nil {
		return nil, err
	}
	known := make(map[string]uuid.UUID, len(tags))
	for _, tag := range tags {
		known[tag.Slug] = tag.ID
	}
	ids := make([]uuid.UUID, 0, len(slugs))
	for _, slug := range slugs {
		id, ok := known[slug]
		if !ok {
			return nil, apperr.Validation("unknown tag: %s", slug)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// attachFlags computes is_favorited / is_in_shopping_cart for a page of
// recipes in two batched queries. Both stay false for an anonymous viewer.
func (s *RecipeService) attachFlags(ctx context.Context, recipes []models.Recipe, viewer *uuid.UUID) ([]RecipeWithFlags, error) {
	out := make([]RecipeWithFlags, len(recipes))
	for i := range recipes {
		out[i] = RecipeWithFlags{Recipe: recipes[i]}
	}
	if viewer == nil || len(recipes) == 0 {
		return out, nil
	}

	ids := make([]uuid.UUID, len(recipes))
	for i := range recipes {
		ids[i] = recipes[i].ID
	}

	favorited, err := relationSet[models.Favorite](ctx, s.db, *viewer, ids)
	if err != nil {
		return nil, err
	}
	inCart, err := relationSet[models.CartItem](ctx, s.db, *viewer, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].IsFavorited = favorited[out[i].ID]
		out[i].IsInShoppingCart = inCart[out[i].ID]
	}
	return out, nil
}

func relationSet[T any](ctx context.Context, db *gorm.DB, userID uuid.UUID, recipeIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	var ids []uuid.UUID
	err := db.WithContext(ctx).Model(new(T)).
		Where("user_id = ? AND recipe_id IN ?", userID, recipeIDs).
		Pluck("recipe_id", &ids).Error
	if err != nil {
		return nil, err
	}
	set := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}

// Favorite adds the recipe to the user's favorites and returns the recipe
// for the short-form response. The recipe must exist; duplicate adds are
// Conflict.
func (s *RecipeService) Favorite(ctx context.Context, userID, recipeID uuid.UUID) (*models.Recipe, error) {
	recipe, err := s.resolve(ctx, recipeID)
	if err != nil {
		return nil, err
	}
	err = addRelation(ctx, s.db, &models.Favorite{UserID: userID, RecipeID: recipeID},
		"recipe is already in favorites")
	if err != nil {
		return nil, err
	}
	return recipe, nil
}

func (s *RecipeService) Unfavorite(ctx context.Context, userID, recipeID uuid.UUID) error {
	if _, err := s.resolve(ctx, recipeID); err != nil {
		return err
	}
	return removeRelation[models.Favorite](ctx, s.db, "recipe is not in favorites",
		"user_id = ? AND recipe_id = ?", userID, recipeID)
}

// AddToCart and RemoveFromCart mirror the favorite toggle for the shopping
// cart relation.
func (s *RecipeService) AddToCart(ctx context.Context, userID, recipeID uuid.UUID) (*models.Recipe, error) {
	recipe, err := s.resolve(ctx, recipeID)
	if err != nil {
		return nil, err
	}
	err = addRelation(ctx, s.db, &models.CartItem{UserID: userID, RecipeID: recipeID},
		"recipe is already in the shopping cart")
	if err != nil {
		return nil, err
	}
	return recipe, nil
}

func (s *RecipeService) RemoveFromCart(ctx context.Context, userID, recipeID uuid.UUID) error {
	if _, err := s.resolve(ctx, recipeID); err != nil {
		return err
	}
	return removeRelation[models.CartItem](ctx, s.db, "recipe is not in the shopping cart",
		"user_id = ? AND recipe_id = ?", userID, recipeID)
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/forkful/forkful-backend/internal/apperr"
	"github.com/forkful/forkful-backend/internal/models"
)

const catalogCacheTTL = 10 * time.Minute

// CatalogService serves the tag and ingredient reference data. Both listings
// are read-mostly, so they go through a redis page cache; a cache failure
// falls back to the database.
type CatalogService struct {
	db     *gorm.DB
	cache  *redis.Client
	logger *zap.Logger
}

func NewCatalogService(db *gorm.DB, cache *redis.Client, logger *zap.Logger) *CatalogService {
	return &CatalogService{db: db, cache: cache, logger: logger}
}

// ListTags returns all tags ordered by name.
func (s *CatalogService) ListTags(ctx context.Context) ([]models.Tag, error) {
	var tags []models.Tag
	if s.cachedList(ctx, "catalog:tags", &tags) {
		return tags, nil
	}
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&tags).Error; err != nil {
		return nil, err
	}
	s.storeList(ctx, "catalog:tags", tags)
	return tags, nil
}

// GetTag returns one tag by id.
func (s *CatalogService) GetTag(ctx context.Context, id uuid.UUID) (*models.Tag, error) {
	var tag models.Tag
	if err := s.db.WithContext(ctx).First(&tag, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("tag not found")
		}
		return nil, err
	}
	return &tag, nil
}

// ListIngredients returns ingredients, optionally prefix-filtered by name,
// ordered by name then unit.
func (s *CatalogService) ListIngredients(ctx context.Context, namePrefix string) ([]models.Ingredient, error) {
	key := "catalog:ingredients:" + namePrefix
	var ingredients []models.Ingredient
	if s.cachedList(ctx, key, &ingredients) {
		return ingredients, nil
	}

	q := s.db.WithContext(ctx).Order("name ASC, measurement_unit ASC")
	if namePrefix != "" {
		q = q.Where("name LIKE ?", namePrefix+"%")
	}
	if err := q.Find(&ingredients).Error; err != nil {
		return nil, err
	}
	s.storeList(ctx, key, ingredients)
	return ingredients, nil
}

// GetIngredient returns one ingredient by id.
func (s *CatalogService) GetIngredient(ctx context.Context, id uuid.UUID) (*models.Ingredient, error) {
	var ingredient models.Ingredient
	if err := s.db.WithContext(ctx).First(&ingredient, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("ingredient not found")
		}
		return nil, err
	}
	return &ingredient, nil
}

// InvalidateCache drops the cached catalog listings; called after seeding.
func (s *CatalogService) InvalidateCache(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	iter := s.cache.Scan(ctx, 0, "catalog:*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return s.cache.Del(ctx, keys...).Err()
}

func (s *CatalogService) cachedList(ctx context.Context, key string, dest interface{}) bool {
	if s.cache == nil {
		return false
	}
	raw, err := s.cache.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn("catalog cache read failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		s.logger.Warn("catalog cache decode failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (s *CatalogService) storeList(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, raw, catalogCacheTTL).Err(); err != nil {
		s.logger.Warn("catalog cache write failed", zap.String("key", key), zap.Error(err))
	}
}

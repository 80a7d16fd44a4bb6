// Command seed loads tag and ingredient fixtures from JSON files into the
// database and drops the catalog cache afterwards.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"os"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/forkful/forkful-backend/config"
	"github.com/forkful/forkful-backend/internal/database"
	"github.com/forkful/forkful-backend/internal/models"
	"github.com/forkful/forkful-backend/internal/service"
)

func main() {
	ingredientsPath := flag.String("ingredients", "", "path to ingredients JSON fixture")
	tagsPath := flag.String("tags", "", "path to tags JSON fixture")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if *ingredientsPath == "" && *tagsPath == "" {
		logger.Fatal("nothing to seed, pass -ingredients and/or -tags")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	db, err := database.New(cfg)
	if err != nil {
		logger.Fatal("connect database", zap.Error(err))
	}

	if *ingredientsPath != "" {
		n, err := seedIngredients(db, *ingredientsPath)
		if err != nil {
			logger.Fatal("seed ingredients", zap.Error(err))
		}
		logger.Info("ingredients seeded", zap.Int("count", n))
	}
	if *tagsPath != "" {
		n, err := seedTags(db, *tagsPath)
		if err != nil {
			logger.Fatal("seed tags", zap.Error(err))
		}
		logger.Info("tags seeded", zap.Int("count", n))
	}

	redisClient, err := database.NewRedisClient(cfg)
	if err != nil {
		logger.Warn("redis unavailable, catalog cache not invalidated", zap.Error(err))
		return
	}
	catalog := service.NewCatalogService(db, redisClient, logger)
	if err := catalog.InvalidateCache(context.Background()); err != nil {
		logger.Warn("catalog cache invalidation failed", zap.Error(err))
	}
}

func seedIngredients(db *gorm.DB, path string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	var rows []struct {
		Name            string `json:"name"`
		MeasurementUnit string `json:"measurement_unit"`
	}
	if err := json.Unmarshal(raw, &rows); err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, errors.New("fixture is empty")
	}

	ingredients := make([]models.Ingredient, 0, len(rows))
	for _, row := range rows {
		ingredients = append(ingredients, models.Ingredient{
			Name:            row.Name,
			MeasurementUnit: row.MeasurementUnit,
		})
	}
	// Re-running the seed skips rows that already exist.
	err = db.Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(&ingredients, 500).Error
	return len(ingredients), err
}

func seedTags(db *gorm.DB, path string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	var rows []struct {
		Name string `json:"name"`
		Slug string `json:"slug"`
	}
	if err := json.Unmarshal(raw, &rows); err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, errors.New("fixture is empty")
	}

	tags := make([]models.Tag, 0, len(rows))
	for _, row := range rows {
		tags = append(tags, models.Tag{Name: row.Name, Slug: row.Slug})
	}
	err = db.Clauses(clause.OnConflict{DoNothing: true}).Create(&tags).Error
	return len(tags), err
}

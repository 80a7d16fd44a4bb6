package service

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/forkful/forkful-backend/internal/apperr"
)

// The relation helpers are the single write path for Favorite, CartItem and
// Follow rows. Uniqueness is enforced by the composite unique index on each
// table; the duplicate-key translation here closes the check-then-insert race
// under concurrent requests.

// addRelation inserts a relation row and maps a duplicate-key violation to
// Conflict.
func addRelation[T any](ctx context.Context, db *gorm.DB, row *T, dupMessage string) error {
	if err := db.WithContext(ctx).Create(row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperr.Conflict("%s", dupMessage)
		}
		return err
	}
	return nil
}

// removeRelation deletes the row matching query and reports an absent row as
// a relation-level not-found, never silently.
func removeRelation[T any](ctx context.Context, db *gorm.DB, missingMessage string, query string, args ...interface{}) error {
	res := db.WithContext(ctx).Where(query, args...).Delete(new(T))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.RelationNotFound("%s", missingMessage)
	}
	return nil
}

// relationExists probes for a relation row.
func relationExists[T any](ctx context.Context, db *gorm.DB, query string, args ...interface{}) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Model(new(T)).Where(query, args...).Count(&count).Error
	return count > 0, err
}

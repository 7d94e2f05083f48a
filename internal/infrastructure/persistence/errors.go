package persistence

import (
	"errors"

	"github.com/google/uuid"
	"github.com/invoicing/backend/internal/domain/shared"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// translateError maps driver errors onto domain errors.
// Unique, foreign key and check violations arrive as gorm sentinels because TranslateError is enabled.
func translateError(err error, notFound error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound) && notFound != nil:
		return notFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return shared.ErrAlreadyExists
	case errors.Is(err, gorm.ErrCheckConstraintViolated):
		return shared.ErrInvalidInput
	}
	return err
}

// saveVersioned writes an aggregate row guarded by its version.
// An aggregate that was never persisted is inserted as is. Any other aggregate is
// updated only when the stored version still equals its version, and the stored
// version is advanced by one. A missing row yields notFound, a newer one a conflict.
// It reports whether an update happened so the caller can advance the in-memory version.
func saveVersioned(tx *gorm.DB, model any, aggregate shared.AggregateRoot, columns map[string]any, notFound error) (bool, error) {
	if !aggregate.IsPersisted() {
		if err := tx.Omit(clause.Associations).Create(model).Error; err != nil {
			return false, translateError(err, nil)
		}
		return false, nil
	}

	columns["version"] = gorm.Expr("version + ?", 1)
	result := tx.Model(model).
		Where("id = ? AND version = ?", aggregate.GetID(), aggregate.GetVersion()).
		Updates(columns)
	if result.Error != nil {
		return false, translateError(result.Error, nil)
	}
	if result.RowsAffected > 0 {
		return true, nil
	}
	return false, missOrConflict(tx, model, aggregate.GetID(), notFound)
}

// missOrConflict explains a guarded write that matched no row
func missOrConflict(tx *gorm.DB, model any, id uuid.UUID, notFound error) error {
	var count int64
	if err := tx.Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return shared.ErrConcurrencyConflict
	}
	return notFound
}

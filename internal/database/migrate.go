package database

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/smartrecipe/backend/internal/model"
)

// Models lists every persisted type in dependency order.
func Models() []interface{} {
	return []interface{}{
		&model.User{},
		&model.Recipe{},
		&model.SavedRecipe{},
		&model.Review{},
	}
}

// Migrate creates or updates the schema of every persisted type.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

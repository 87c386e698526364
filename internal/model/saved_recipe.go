package model

import (
	"time"

	"github.com/google/uuid"
)

// SavedRecipe is one entry of a user's saved set. The composite key makes a
// (user, recipe) pair appear at most once.
type SavedRecipe struct {
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"userId"`
	RecipeID  uuid.UUID `gorm:"type:uuid;primaryKey;index" json:"recipeId"`
	CreatedAt time.Time `json:"createdAt"`
}

func (SavedRecipe) TableName() string {
	return "saved_recipes"
}

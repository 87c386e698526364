package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Recipe is a persisted recipe. UserID is the owner and never changes after creation.
type Recipe struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt    time.Time  `gorm:"index;<-:create" json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	RecipeName   string     `gorm:"size:255;not null" json:"recipeName"`
	Description  string     `gorm:"type:text;not null" json:"description"`
	CookingTime  int        `gorm:"not null" json:"cookingTime"`
	Calories     *int       `json:"calories"`
	Ingredients  StringList `gorm:"type:jsonb;not null;default:'[]'" json:"ingredients"`
	Instructions Steps      `gorm:"type:text;not null" json:"instructions"`
	Image        *string    `gorm:"size:1024" json:"image"`
	UserID       uuid.UUID  `gorm:"type:uuid;not null;index;<-:create" json:"userId"`
}

// BeforeCreate assigns an id when the caller did not.
func (r *Recipe) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

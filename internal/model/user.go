package model

import (
	"time"

	"github.com/google/uuid"
)

// User mirrors an identity issued by the external identity provider.
// The id comes from the token subject and is never generated here.
type User struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Username  string    `gorm:"size:100;not null;uniqueIndex" json:"username"`
	Email     *string   `gorm:"size:255;uniqueIndex" json:"email,omitempty"`
}

// Package testhelpers provides databases and identities for tests.
package testhelpers

import (
	"fmt"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/smartrecipe/backend/internal/database"
	"github.com/smartrecipe/backend/internal/model"
	"github.com/smartrecipe/backend/internal/types"
)

// TestJWTSecret signs tokens produced by NewToken.
const TestJWTSecret = "test-jwt-secret"

// NewTestDB returns a migrated in-memory SQLite database private to t.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	cfg := database.GormConfig()
	cfg.Logger = gormlogger.Default.LogMode(gormlogger.Silent)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), cfg)
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

// CreateUser inserts a user with a unique username.
func CreateUser(t *testing.T, db *gorm.DB) *model.User {
	t.Helper()
	id := uuid.New()
	user := &model.User{ID: id, Username: "user-" + id.String()[:8]}
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreateRecipe inserts a valid recipe owned by ownerID.
func CreateRecipe(t *testing.T, db *gorm.DB, ownerID uuid.UUID, name string) *model.Recipe {
	t.Helper()
	recipe := &model.Recipe{
		RecipeName:   name,
		Description:  "A test recipe",
		CookingTime:  30,
		Ingredients:  model.StringList{"2 cups flour", "1 egg"},
		Instructions: model.Steps{"Mix", "Bake"},
		UserID:       ownerID,
	}
	require.NoError(t, db.Create(recipe).Error)
	return recipe
}

// NewToken signs an HS256 bearer token for userID with TestJWTSecret.
func NewToken(t *testing.T, userID uuid.UUID, username string) string {
	t.Helper()
	claims := types.TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		UserID:   userID,
		Username: username,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(TestJWTSecret))
	require.NoError(t, err)
	return token
}

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/smartrecipe/backend/internal/model"
)

// LibraryService manages each user's saved set of recipes.
type LibraryService struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewLibraryService(db *gorm.DB, logger *zap.Logger) *LibraryService {
	return &LibraryService{db: db, logger: logger}
}

// Save adds recipeID to the saved set of userID and returns the resulting set.
// Saving a member again fails with ErrAlreadySaved.
func (s *LibraryService) Save(ctx context.Context, userID, recipeID uuid.UUID) ([]uuid.UUID, error) {
	var recipe model.Recipe
	err := s.db.WithContext(ctx).Select("id").First(&recipe, "id = ?", recipeID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: recipe %s", ErrNotFound, recipeID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load recipe: %w", err)
	}

	// Insert-if-absent in one statement; the composite key rejects duplicates.
	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.SavedRecipe{UserID: userID, RecipeID: recipeID, CreatedAt: time.Now().UTC()})
	if result.Error != nil {
		return nil, fmt.Errorf("failed to save recipe: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrAlreadySaved
	}

	s.logger.Debug("recipe saved", zap.String("user_id", userID.String()), zap.String("recipe_id", recipeID.String()))
	return s.SavedIDs(ctx, userID)
}

// Unsave removes recipeID from the saved set of userID. Removing a
// non-member is a no-op.
func (s *LibraryService) Unsave(ctx context.Context, userID, recipeID uuid.UUID) ([]uuid.UUID, error) {
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND recipe_id = ?", userID, recipeID).
		Delete(&model.SavedRecipe{}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to unsave recipe: %w", err)
	}
	return s.SavedIDs(ctx, userID)
}

// SavedIDs returns the saved set of userID in the order it was built,
// including references to recipes that no longer exist.
func (s *LibraryService) SavedIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var saved []model.SavedRecipe
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&saved).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load saved recipes: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(saved))
	for _, entry := range saved {
		ids = append(ids, entry.RecipeID)
	}
	return ids, nil
}

// ListSaved resolves the saved set of userID to recipes, most recently saved
// first. References to deleted recipes are skipped.
func (s *LibraryService) ListSaved(ctx context.Context, userID uuid.UUID) ([]model.Recipe, error) {
	recipes := []model.Recipe{}
	err := s.db.WithContext(ctx).
		Model(&model.Recipe{}).
		Joins("JOIN saved_recipes ON saved_recipes.recipe_id = recipes.id").
		Where("saved_recipes.user_id = ?", userID).
		Order("saved_recipes.created_at DESC").
		Find(&recipes).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list saved recipes: %w", err)
	}
	return recipes, nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/smartrecipe/backend/internal/model"
)

type ReviewService struct {
	db     *gorm.DB
	logger *zap.Logger
	now    func() time.Time
}

func NewReviewService(db *gorm.DB, logger *zap.Logger) *ReviewService {
	return &ReviewService{
		db:     db,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Create adds a review by authorID to an existing recipe.
func (s *ReviewService) Create(ctx context.Context, recipeID, authorID uuid.UUID, comment string) (*model.Review, error) {
	text := strings.TrimSpace(comment)
	if text == "" {
		return nil, fmt.Errorf("%w: comment must not be empty", ErrInvalidInput)
	}

	var recipe model.Recipe
	err := s.db.WithContext(ctx).Select("id").First(&recipe, "id = ?", recipeID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: recipe %s", ErrNotFound, recipeID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load recipe: %w", err)
	}

	review := &model.Review{
		RecipeID:  recipeID,
		AuthorID:  authorID,
		Comment:   text,
		CreatedAt: s.now(),
	}
	if err := s.db.WithContext(ctx).Create(review).Error; err != nil {
		return nil, fmt.Errorf("failed to create review: %w", err)
	}
	return review, nil
}

// Delete removes a review written by callerID.
func (s *ReviewService) Delete(ctx context.Context, reviewID, callerID uuid.UUID) error {
	result := s.db.WithContext(ctx).
		Where("id = ? AND author_id = ?", reviewID, callerID).
		Delete(&model.Review{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete review: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&model.Review{}).Where("id = ?", reviewID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to load review: %w", err)
	}
	if count == 0 {
		return fmt.Errorf("%w: review %s", ErrNotFound, reviewID)
	}
	return fmt.Errorf("%w: review %s was written by another user", ErrForbidden, reviewID)
}

// ListByRecipe returns the reviews of recipeID, most recent first.
func (s *ReviewService) ListByRecipe(ctx context.Context, recipeID uuid.UUID) ([]model.Review, error) {
	reviews := []model.Review{}
	err := s.db.WithContext(ctx).
		Where("recipe_id = ?", recipeID).
		Order("created_at DESC").
		Find(&reviews).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	return reviews, nil
}

package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/smartrecipe/backend/internal/model"
)

// RecipeFields carries caller supplied recipe attributes. A nil field was not
// supplied; on update it keeps its stored value.
type RecipeFields struct {
	RecipeName   *string  `json:"recipeName"`
	Description  *string  `json:"description"`
	CookingTime  *int     `json:"cookingTime"`
	Calories     *int     `json:"calories"`
	Ingredients  []string `json:"ingredients"`
	Instructions []string `json:"instructions"`
	// ImageURL references an asset that is already stored, such as the image
	// of a generated recipe.
	ImageURL *string `json:"imageUrl"`
}

// RecipeView is a recipe as seen by a particular viewer.
type RecipeView struct {
	model.Recipe
	IsSaved bool `json:"isSaved"`
}

// RecipeService owns the recipe lifecycle: create, read, update, delete and search.
type RecipeService struct {
	db     *gorm.DB
	assets AssetStore
	logger *zap.Logger
}

func NewRecipeService(db *gorm.DB, assets AssetStore, logger *zap.Logger) *RecipeService {
	return &RecipeService{
		db:     db,
		assets: assets,
		logger: logger,
	}
}

// Create validates fields, stores image if given and persists a recipe owned by ownerID.
func (s *RecipeService) Create(ctx context.Context, ownerID uuid.UUID, fields RecipeFields, image *ImageSource) (*model.Recipe, error) {
	recipe, err := fields.build(ownerID)
	if err != nil {
		return nil, err
	}

	var stored string
	switch {
	case image != nil:
		stored, err = s.assets.Store(ctx, image)
		if err != nil {
			return nil, err
		}
		recipe.Image = &stored
	case fields.ImageURL != nil && strings.TrimSpace(*fields.ImageURL) != "":
		ref, err := validImageURL(*fields.ImageURL)
		if err != nil {
			return nil, err
		}
		recipe.Image = &ref
	}

	if err := s.db.WithContext(ctx).Create(recipe).Error; err != nil {
		if stored != "" {
			s.assets.Discard(stored)
		}
		return nil, fmt.Errorf("failed to create recipe: %w", err)
	}

	s.logger.Info("recipe created", zap.String("recipe_id", recipe.ID.String()), zap.String("user_id", ownerID.String()))
	return recipe, nil
}

// Update applies the supplied fields of a recipe owned by callerID. A new
// image is stored before the record changes; the previous one is discarded
// only after the change is committed.
func (s *RecipeService) Update(ctx context.Context, recipeID, callerID uuid.UUID, fields RecipeFields, image *ImageSource) (*model.Recipe, error) {
	existing, err := s.find(ctx, recipeID)
	if err != nil {
		return nil, err
	}
	if existing.UserID != callerID {
		return nil, fmt.Errorf("%w: recipe %s belongs to another user", ErrForbidden, recipeID)
	}

	updates, err := fields.updates()
	if err != nil {
		return nil, err
	}

	var newImage, stored string
	switch {
	case image != nil:
		stored, err = s.assets.Store(ctx, image)
		if err != nil {
			return nil, err
		}
		newImage = stored
	case fields.ImageURL != nil && strings.TrimSpace(*fields.ImageURL) != "":
		newImage, err = validImageURL(*fields.ImageURL)
		if err != nil {
			return nil, err
		}
	}
	if newImage != "" {
		updates["image"] = newImage
	}

	if len(updates) == 0 {
		return existing, nil
	}

	result := s.db.WithContext(ctx).
		Model(&model.Recipe{}).
		Where("id = ? AND user_id = ?", recipeID, callerID).
		Updates(updates)
	if result.Error == nil && result.RowsAffected == 0 {
		result.Error = s.missingOrForbidden(ctx, recipeID)
	}
	if result.Error != nil {
		if stored != "" {
			s.assets.Discard(stored)
		}
		if errors.Is(result.Error, ErrNotFound) || errors.Is(result.Error, ErrForbidden) {
			return nil, result.Error
		}
		return nil, fmt.Errorf("failed to update recipe: %w", result.Error)
	}

	if newImage != "" && existing.Image != nil && *existing.Image != newImage {
		s.assets.Discard(*existing.Image)
	}

	updated, err := s.find(ctx, recipeID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("recipe updated", zap.String("recipe_id", recipeID.String()), zap.Int("fields", len(updates)))
	return updated, nil
}

// Delete removes a recipe owned by callerID, then discards its image.
// Reviews and saved references to it are left in place.
func (s *RecipeService) Delete(ctx context.Context, recipeID, callerID uuid.UUID) error {
	existing, err := s.find(ctx, recipeID)
	if err != nil {
		return err
	}
	if existing.UserID != callerID {
		return fmt.Errorf("%w: recipe %s belongs to another user", ErrForbidden, recipeID)
	}

	result := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", recipeID, callerID).
		Delete(&model.Recipe{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete recipe: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return s.missingOrForbidden(ctx, recipeID)
	}

	// The asset goes after the record so no stored recipe points at a deleted image.
	if existing.Image != nil {
		s.assets.Discard(*existing.Image)
	}

	s.logger.Info("recipe deleted", zap.String("recipe_id", recipeID.String()))
	return nil
}

// GetByID returns a recipe and whether viewerID has it saved. viewerID may be nil.
func (s *RecipeService) GetByID(ctx context.Context, recipeID uuid.UUID, viewerID *uuid.UUID) (*RecipeView, error) {
	recipe, err := s.find(ctx, recipeID)
	if err != nil {
		return nil, err
	}

	view := &RecipeView{Recipe: *recipe}
	if viewerID == nil {
		return view, nil
	}

	var count int64
	err = s.db.WithContext(ctx).
		Model(&model.SavedRecipe{}).
		Where("user_id = ? AND recipe_id = ?", *viewerID, recipeID).
		Count(&count).Error
	if err != nil {
		return nil, fmt.Errorf("failed to check saved state: %w", err)
	}
	view.IsSaved = count > 0
	return view, nil
}

// List returns every recipe, newest first.
func (s *RecipeService) List(ctx context.Context) ([]model.Recipe, error) {
	recipes := []model.Recipe{}
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&recipes).Error; err != nil {
		return nil, fmt.Errorf("failed to list recipes: %w", err)
	}
	return recipes, nil
}

// ListByOwner returns the recipes of ownerID, newest first.
func (s *RecipeService) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.Recipe, error) {
	recipes := []model.Recipe{}
	err := s.db.WithContext(ctx).
		Where("user_id = ?", ownerID).
		Order("created_at DESC").
		Find(&recipes).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list recipes of user: %w", err)
	}
	return recipes, nil
}

// Search returns recipes whose name, description or any ingredient contains
// query, ignoring case, newest first.
func (s *RecipeService) Search(ctx context.Context, query string) ([]model.Recipe, error) {
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return nil, fmt.Errorf("%w: search query is required", ErrInvalidInput)
	}

	// The SQL predicate narrows candidates; matchesQuery decides.
	like := "%" + escapeLike(needle) + "%"
	ingredientsLike := "%" + escapeLike(jsonEscape(needle)) + "%"
	ingredientsColumn := "LOWER(ingredients)"
	if s.db.Dialector.Name() == "postgres" {
		ingredientsColumn = "LOWER(ingredients::text)"
	}

	tx := s.db.WithContext(ctx)
	// SQLite folds ASCII only; non-ASCII queries are matched in Go alone.
	if s.db.Dialector.Name() == "postgres" || isASCII(needle) {
		tx = tx.Where(`LOWER(recipe_name) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\' OR `+ingredientsColumn+` LIKE ? ESCAPE '\'`,
			like, like, ingredientsLike)
	}

	var candidates []model.Recipe
	err := tx.Order("created_at DESC").Find(&candidates).Error
	if err != nil {
		return nil, fmt.Errorf("failed to search recipes: %w", err)
	}

	recipes := make([]model.Recipe, 0, len(candidates))
	for _, r := range candidates {
		if matchesQuery(&r, needle) {
			recipes = append(recipes, r)
		}
	}
	return recipes, nil
}

func (s *RecipeService) find(ctx context.Context, recipeID uuid.UUID) (*model.Recipe, error) {
	var recipe model.Recipe
	err := s.db.WithContext(ctx).First(&recipe, "id = ?", recipeID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: recipe %s", ErrNotFound, recipeID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load recipe: %w", err)
	}
	return &recipe, nil
}

// missingOrForbidden explains why an ownership-conditioned write matched no row.
func (s *RecipeService) missingOrForbidden(ctx context.Context, recipeID uuid.UUID) error {
	if _, err := s.find(ctx, recipeID); err != nil {
		return err
	}
	return fmt.Errorf("%w: recipe %s belongs to another user", ErrForbidden, recipeID)
}

func (f RecipeFields) build(ownerID uuid.UUID) (*model.Recipe, error) {
	if f.RecipeName == nil {
		return nil, fmt.Errorf("%w: recipeName is required", ErrInvalidInput)
	}
	if f.Description == nil {
		return nil, fmt.Errorf("%w: description is required", ErrInvalidInput)
	}
	if f.CookingTime == nil {
		return nil, fmt.Errorf("%w: cookingTime is required", ErrInvalidInput)
	}
	if f.Ingredients == nil {
		return nil, fmt.Errorf("%w: ingredients are required", ErrInvalidInput)
	}
	if f.Instructions == nil {
		return nil, fmt.Errorf("%w: instructions are required", ErrInvalidInput)
	}

	updates, err := f.updates()
	if err != nil {
		return nil, err
	}

	recipe := &model.Recipe{
		RecipeName:   updates["recipe_name"].(string),
		Description:  updates["description"].(string),
		CookingTime:  updates["cooking_time"].(int),
		Ingredients:  updates["ingredients"].(model.StringList),
		Instructions: updates["instructions"].(model.Steps),
		UserID:       ownerID,
	}
	if calories, ok := updates["calories"].(int); ok {
		recipe.Calories = &calories
	}
	return recipe, nil
}

// updates validates every supplied field and returns them keyed by column.
func (f RecipeFields) updates() (map[string]interface{}, error) {
	updates := map[string]interface{}{}

	if f.RecipeName != nil {
		name := strings.TrimSpace(*f.RecipeName)
		if name == "" {
			return nil, fmt.Errorf("%w: recipeName must not be empty", ErrInvalidInput)
		}
		updates["recipe_name"] = name
	}
	if f.Description != nil {
		description := strings.TrimSpace(*f.Description)
		if description == "" {
			return nil, fmt.Errorf("%w: description must not be empty", ErrInvalidInput)
		}
		updates["description"] = description
	}
	if f.CookingTime != nil {
		if *f.CookingTime <= 0 {
			return nil, fmt.Errorf("%w: cookingTime must be a positive number of minutes", ErrInvalidInput)
		}
		updates["cooking_time"] = *f.CookingTime
	}
	if f.Calories != nil {
		if *f.Calories < 0 {
			return nil, fmt.Errorf("%w: calories must not be negative", ErrInvalidInput)
		}
		updates["calories"] = *f.Calories
	}
	if f.Ingredients != nil {
		ingredients, err := normalizeList(f.Ingredients, "ingredients")
		if err != nil {
			return nil, err
		}
		updates["ingredients"] = model.StringList(ingredients)
	}
	if f.Instructions != nil {
		steps, err := normalizeSteps(f.Instructions)
		if err != nil {
			return nil, err
		}
		updates["instructions"] = model.Steps(steps)
	}

	return updates, nil
}

func validImageURL(raw string) (string, error) {
	ref := strings.TrimSpace(raw)
	u, err := url.Parse(ref)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%w: imageUrl must be an absolute http(s) URL", ErrInvalidInput)
	}
	return ref, nil
}

func matchesQuery(r *model.Recipe, needle string) bool {
	if strings.Contains(strings.ToLower(r.RecipeName), needle) ||
		strings.Contains(strings.ToLower(r.Description), needle) {
		return true
	}
	for _, ingredient := range r.Ingredients {
		if strings.Contains(strings.ToLower(ingredient), needle) {
			return true
		}
	}
	return false
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// jsonEscape renders s the way it appears inside the stored JSON array.
func jsonEscape(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return s
	}
	encoded := strings.TrimSuffix(buf.String(), "\n")
	return encoded[1 : len(encoded)-1]
}

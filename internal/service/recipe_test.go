package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/smartrecipe/backend/internal/mocks"
	"github.com/smartrecipe/backend/internal/model"
	"github.com/smartrecipe/backend/internal/testhelpers"
)

type recipeFixture struct {
	db      *gorm.DB
	store   *mocks.MockBlobStore
	gateway *ImageGateway
	recipes *RecipeService
	library *LibraryService
}

func newRecipeFixture(t *testing.T) *recipeFixture {
	t.Helper()
	db := testhelpers.NewTestDB(t)
	store := new(mocks.MockBlobStore)
	gateway := newTestGateway(nil, store)
	return &recipeFixture{
		db:      db,
		store:   store,
		gateway: gateway,
		recipes: NewRecipeService(db, gateway, zap.NewNop()),
		library: NewLibraryService(db, zap.NewNop()),
	}
}

func ptr[T any](v T) *T { return &v }

func validFields() RecipeFields {
	return RecipeFields{
		RecipeName:   ptr("Pancakes"),
		Description:  ptr("Fluffy breakfast pancakes"),
		CookingTime:  ptr(30),
		Calories:     ptr(450),
		Ingredients:  []string{"2 cups flour", "1 egg"},
		Instructions: []string{"Mix", "Bake"},
	}
}

func TestRecipeService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("should round trip ingredients and instructions in order", func(t *testing.T) {
		f := newRecipeFixture(t)
		owner := uuid.New()

		created, err := f.recipes.Create(ctx, owner, validFields(), nil)
		require.NoError(t, err)
		assert.Equal(t, owner, created.UserID)
		assert.Nil(t, created.Image)

		view, err := f.recipes.GetByID(ctx, created.ID, nil)
		require.NoError(t, err)
		assert.Equal(t, model.StringList{"2 cups flour", "1 egg"}, view.Ingredients)
		assert.Equal(t, model.Steps{"Mix", "Bake"}, view.Instructions)
		assert.Equal(t, 30, view.CookingTime)
		assert.Equal(t, 450, *view.Calories)
		assert.False(t, view.IsSaved)
	})

	t.Run("should reject invalid fields without touching storage", func(t *testing.T) {
		f := newRecipeFixture(t)

		cases := map[string]func(*RecipeFields){
			"missing name":       func(r *RecipeFields) { r.RecipeName = nil },
			"blank name":         func(r *RecipeFields) { r.RecipeName = ptr("  ") },
			"missing time":       func(r *RecipeFields) { r.CookingTime = nil },
			"zero time":          func(r *RecipeFields) { r.CookingTime = ptr(0) },
			"negative calories":  func(r *RecipeFields) { r.Calories = ptr(-1) },
			"empty ingredients":  func(r *RecipeFields) { r.Ingredients = []string{} },
			"blank ingredient":   func(r *RecipeFields) { r.Ingredients = []string{"egg", ""} },
			"empty instructions": func(r *RecipeFields) { r.Instructions = []string{} },
		}
		for name, mutate := range cases {
			fields := validFields()
			mutate(&fields)
			_, err := f.recipes.Create(ctx, uuid.New(), fields, &ImageSource{Data: pngBytes})
			assert.ErrorIs(t, err, ErrInvalidInput, name)
		}

		fields := validFields()
		fields.ImageURL = ptr("ftp://x")
		_, err := f.recipes.Create(ctx, uuid.New(), fields, nil)
		assert.ErrorIs(t, err, ErrInvalidInput)

		f.store.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything)

		var count int64
		f.db.Model(&model.Recipe{}).Count(&count)
		assert.Zero(t, count)
	})

	t.Run("should store the uploaded image", func(t *testing.T) {
		f := newRecipeFixture(t)
		f.store.On("Upload", mock.Anything, mock.Anything, "image/png", pngBytes).
			Return(testBaseURL+"/smartrecipe/new.png", nil).Once()

		created, err := f.recipes.Create(ctx, uuid.New(), validFields(), &ImageSource{Data: pngBytes})
		require.NoError(t, err)
		require.NotNil(t, created.Image)
		assert.Equal(t, testBaseURL+"/smartrecipe/new.png", *created.Image)
	})

	t.Run("should not persist when the upload fails", func(t *testing.T) {
		f := newRecipeFixture(t)
		f.store.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return("", errors.New("s3 down")).Once()

		_, err := f.recipes.Create(ctx, uuid.New(), validFields(), &ImageSource{Data: pngBytes})
		assert.ErrorIs(t, err, ErrStorage)

		var count int64
		f.db.Model(&model.Recipe{}).Count(&count)
		assert.Zero(t, count)
	})

	t.Run("should accept a stored image reference", func(t *testing.T) {
		f := newRecipeFixture(t)
		fields := validFields()
		fields.ImageURL = ptr(testBaseURL + "/smartrecipe/generated.png")

		created, err := f.recipes.Create(ctx, uuid.New(), fields, nil)
		require.NoError(t, err)
		assert.Equal(t, testBaseURL+"/smartrecipe/generated.png", *created.Image)
	})
}

func TestRecipeService_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("should change only supplied fields", func(t *testing.T) {
		f := newRecipeFixture(t)
		owner := uuid.New()
		created, err := f.recipes.Create(ctx, owner, validFields(), nil)
		require.NoError(t, err)

		updated, err := f.recipes.Update(ctx, created.ID, owner, RecipeFields{
			CookingTime:  ptr(45),
			Instructions: []string{"Mix well", "Rest", "Bake"},
		}, nil)
		require.NoError(t, err)

		assert.Equal(t, 45, updated.CookingTime)
		assert.Equal(t, model.Steps{"Mix well", "Rest", "Bake"}, updated.Instructions)
		assert.Equal(t, "Pancakes", updated.RecipeName)
		assert.Equal(t, model.StringList{"2 cups flour", "1 egg"}, updated.Ingredients)
		assert.Equal(t, owner, updated.UserID)
		assert.Equal(t, created.CreatedAt.Unix(), updated.CreatedAt.Unix())
	})

	t.Run("should forbid other callers and leave the record untouched", func(t *testing.T) {
		f := newRecipeFixture(t)
		owner := uuid.New()
		created, err := f.recipes.Create(ctx, owner, validFields(), nil)
		require.NoError(t, err)

		_, err = f.recipes.Update(ctx, created.ID, uuid.New(), RecipeFields{RecipeName: ptr("Stolen")}, &ImageSource{Data: pngBytes})
		assert.ErrorIs(t, err, ErrForbidden)

		view, err := f.recipes.GetByID(ctx, created.ID, nil)
		require.NoError(t, err)
		assert.Equal(t, "Pancakes", view.RecipeName)
		f.store.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("should report missing recipes", func(t *testing.T) {
		f := newRecipeFixture(t)
		_, err := f.recipes.Update(ctx, uuid.New(), uuid.New(), RecipeFields{CookingTime: ptr(5)}, nil)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("should reject invalid supplied fields", func(t *testing.T) {
		f := newRecipeFixture(t)
		owner := uuid.New()
		created, err := f.recipes.Create(ctx, owner, validFields(), nil)
		require.NoError(t, err)

		_, err = f.recipes.Update(ctx, created.ID, owner, RecipeFields{Ingredients: []string{}}, nil)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("should replace the image and delete the old one exactly once", func(t *testing.T) {
		f := newRecipeFixture(t)
		owner := uuid.New()
		oldURL := testBaseURL + "/smartrecipe/old.png"
		newURL := testBaseURL + "/smartrecipe/new.png"

		f.store.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(oldURL, nil).Once()
		created, err := f.recipes.Create(ctx, owner, validFields(), &ImageSource{Data: pngBytes})
		require.NoError(t, err)

		f.store.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(newURL, nil).Once()
		f.store.On("Delete", mock.Anything, "smartrecipe/old.png").Return(nil).Once()

		updated, err := f.recipes.Update(ctx, created.ID, owner, RecipeFields{}, &ImageSource{Data: pngBytes})
		require.NoError(t, err)
		waitForDeletions(t, f.gateway)

		assert.Equal(t, newURL, *updated.Image)
		f.store.AssertNumberOfCalls(t, "Delete", 1)
		f.store.AssertExpectations(t)
	})

	t.Run("should discard the new image when the row vanishes before the write", func(t *testing.T) {
		f := newRecipeFixture(t)
		owner := uuid.New()
		created, err := f.recipes.Create(ctx, owner, validFields(), nil)
		require.NoError(t, err)

		// delete the row inside the update transaction, after ownership was checked
		require.NoError(t, f.db.Callback().Update().Before("gorm:update").Register("drop_recipe_row", func(tx *gorm.DB) {
			if tx.Statement.Table != "recipes" {
				return
			}
			_, err := tx.Statement.ConnPool.ExecContext(tx.Statement.Context, "DELETE FROM recipes WHERE id = ?", created.ID)
			require.NoError(t, err)
		}))

		newURL := testBaseURL + "/smartrecipe/new.png"
		f.store.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(newURL, nil).Once()
		f.store.On("Delete", mock.Anything, "smartrecipe/new.png").Return(nil).Once()

		_, err = f.recipes.Update(ctx, created.ID, owner, RecipeFields{}, &ImageSource{Data: pngBytes})
		assert.ErrorIs(t, err, ErrNotFound)
		waitForDeletions(t, f.gateway)
		f.store.AssertExpectations(t)
	})

	t.Run("should discard the new image when the write fails", func(t *testing.T) {
		f := newRecipeFixture(t)
		owner := uuid.New()
		created, err := f.recipes.Create(ctx, owner, validFields(), nil)
		require.NoError(t, err)

		require.NoError(t, f.db.Callback().Update().Before("gorm:update").Register("reject_recipe_write", func(tx *gorm.DB) {
			if tx.Statement.Table == "recipes" {
				_ = tx.AddError(errors.New("disk I/O error"))
			}
		}))

		f.store.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(testBaseURL+"/smartrecipe/new.png", nil).Once()
		f.store.On("Delete", mock.Anything, "smartrecipe/new.png").Return(nil).Once()

		_, err = f.recipes.Update(ctx, created.ID, owner, RecipeFields{RecipeName: ptr("Crepes")}, &ImageSource{Data: pngBytes})
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrNotFound)
		assert.NotErrorIs(t, err, ErrForbidden)
		waitForDeletions(t, f.gateway)
		f.store.AssertExpectations(t)

		view, err := f.recipes.GetByID(ctx, created.ID, nil)
		require.NoError(t, err)
		assert.Equal(t, "Pancakes", view.RecipeName)
		assert.Nil(t, view.Image)
	})

	t.Run("should succeed even when the old image cannot be deleted", func(t *testing.T) {
		f := newRecipeFixture(t)
		owner := uuid.New()
		fields := validFields()
		fields.ImageURL = ptr(testBaseURL + "/smartrecipe/old.png")
		created, err := f.recipes.Create(ctx, owner, fields, nil)
		require.NoError(t, err)

		f.store.On("Delete", mock.Anything, "smartrecipe/old.png").Return(errors.New("access denied")).Once()

		updated, err := f.recipes.Update(ctx, created.ID, owner, RecipeFields{
			ImageURL: ptr(testBaseURL + "/smartrecipe/other.png"),
		}, nil)
		require.NoError(t, err)
		waitForDeletions(t, f.gateway)

		assert.Equal(t, testBaseURL+"/smartrecipe/other.png", *updated.Image)
		f.store.AssertExpectations(t)
	})

	t.Run("should keep the image when the same reference is supplied", func(t *testing.T) {
		f := newRecipeFixture(t)
		owner := uuid.New()
		fields := validFields()
		fields.ImageURL = ptr(testBaseURL + "/smartrecipe/same.png")
		created, err := f.recipes.Create(ctx, owner, fields, nil)
		require.NoError(t, err)

		_, err = f.recipes.Update(ctx, created.ID, owner, RecipeFields{ImageURL: fields.ImageURL}, nil)
		require.NoError(t, err)
		waitForDeletions(t, f.gateway)

		f.store.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})
}

func TestRecipeService_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("should remove the record and discard its image", func(t *testing.T) {
		f := newRecipeFixture(t)
		owner := uuid.New()
		fields := validFields()
		fields.ImageURL = ptr(testBaseURL + "/smartrecipe/dish.png")
		created, err := f.recipes.Create(ctx, owner, fields, nil)
		require.NoError(t, err)

		f.store.On("Delete", mock.Anything, "smartrecipe/dish.png").Return(nil).Once()

		require.NoError(t, f.recipes.Delete(ctx, created.ID, owner))
		waitForDeletions(t, f.gateway)

		_, err = f.recipes.GetByID(ctx, created.ID, nil)
		assert.ErrorIs(t, err, ErrNotFound)
		f.store.AssertExpectations(t)
	})

	t.Run("should forbid other callers", func(t *testing.T) {
		f := newRecipeFixture(t)
		owner := uuid.New()
		created, err := f.recipes.Create(ctx, owner, validFields(), nil)
		require.NoError(t, err)

		assert.ErrorIs(t, f.recipes.Delete(ctx, created.ID, uuid.New()), ErrForbidden)

		_, err = f.recipes.GetByID(ctx, created.ID, nil)
		assert.NoError(t, err)
	})

	t.Run("should report missing recipes", func(t *testing.T) {
		f := newRecipeFixture(t)
		assert.ErrorIs(t, f.recipes.Delete(ctx, uuid.New(), uuid.New()), ErrNotFound)
	})
}

func TestRecipeService_GetByIDIsSaved(t *testing.T) {
	ctx := context.Background()
	f := newRecipeFixture(t)
	created, err := f.recipes.Create(ctx, uuid.New(), validFields(), nil)
	require.NoError(t, err)

	viewer := uuid.New()
	view, err := f.recipes.GetByID(ctx, created.ID, &viewer)
	require.NoError(t, err)
	assert.False(t, view.IsSaved)

	_, err = f.library.Save(ctx, viewer, created.ID)
	require.NoError(t, err)

	view, err = f.recipes.GetByID(ctx, created.ID, &viewer)
	require.NoError(t, err)
	assert.True(t, view.IsSaved)

	view, err = f.recipes.GetByID(ctx, created.ID, nil)
	require.NoError(t, err)
	assert.False(t, view.IsSaved)
}

func TestRecipeService_Search(t *testing.T) {
	ctx := context.Background()
	f := newRecipeFixture(t)
	owner := uuid.New()

	create := func(name, description string, ingredients ...string) *model.Recipe {
		fields := validFields()
		fields.RecipeName = ptr(name)
		fields.Description = ptr(description)
		fields.Ingredients = ingredients
		r, err := f.recipes.Create(ctx, owner, fields, nil)
		require.NoError(t, err)
		return r
	}

	soup := create("Chicken Soup", "Warm and hearty", "1 chicken", "water")
	bowl := create("Veggie Bowl", "Fresh greens", "lettuce", "100% cocoa nibs")
	spicy := create("Tacos", "Street food", "salt & pepper", "CHICKEN thighs")

	t.Run("should match names case-insensitively", func(t *testing.T) {
		results, err := f.recipes.Search(ctx, "chicken")
		require.NoError(t, err)

		ids := recipeIDs(results)
		assert.ElementsMatch(t, []uuid.UUID{soup.ID, spicy.ID}, ids)
		assert.NotContains(t, ids, bowl.ID)
	})

	t.Run("should match descriptions and ingredients", func(t *testing.T) {
		results, err := f.recipes.Search(ctx, "GREENS")
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{bowl.ID}, recipeIDs(results))

		results, err = f.recipes.Search(ctx, "salt & pepper")
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{spicy.ID}, recipeIDs(results))
	})

	t.Run("should treat wildcard characters literally", func(t *testing.T) {
		results, err := f.recipes.Search(ctx, "100%")
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{bowl.ID}, recipeIDs(results))

		results, err = f.recipes.Search(ctx, "%")
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{bowl.ID}, recipeIDs(results))
	})

	t.Run("should not match across ingredient boundaries", func(t *testing.T) {
		results, err := f.recipes.Search(ctx, `water"`)
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("should fold non-ASCII case", func(t *testing.T) {
		creme := create("CRÈME Brûlée", "Torched custard", "cream", "sugar")

		results, err := f.recipes.Search(ctx, "crème")
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{creme.ID}, recipeIDs(results))
	})

	t.Run("should reject an empty query", func(t *testing.T) {
		_, err := f.recipes.Search(ctx, "   ")
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestRecipeService_Listing(t *testing.T) {
	ctx := context.Background()
	f := newRecipeFixture(t)
	alice, bob := uuid.New(), uuid.New()

	first, err := f.recipes.Create(ctx, alice, validFields(), nil)
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	second, err := f.recipes.Create(ctx, bob, validFields(), nil)
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	third, err := f.recipes.Create(ctx, alice, validFields(), nil)
	require.NoError(t, err)

	all, err := f.recipes.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{third.ID, second.ID, first.ID}, recipeIDs(all))

	mine, err := f.recipes.ListByOwner(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{third.ID, first.ID}, recipeIDs(mine))

	none, err := f.recipes.ListByOwner(ctx, uuid.New())
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func recipeIDs(recipes []model.Recipe) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(recipes))
	for _, r := range recipes {
		ids = append(ids, r.ID)
	}
	return ids
}

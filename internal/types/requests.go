package types

// GenerateRecipeRequest is the body of POST /generate-recipe.
type GenerateRecipeRequest struct {
	Ingredients []string `json:"ingredients"`
}

// SaveRecipeRequest is the body of POST /users/me/saved.
type SaveRecipeRequest struct {
	RecipeID string `json:"recipeId" binding:"required"`
}

// CreateReviewRequest is the body of POST /recipes/:id/reviews.
type CreateReviewRequest struct {
	Comment string `json:"comment"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

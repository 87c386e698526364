package api

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/smartrecipe/backend/internal/middleware"
	"github.com/smartrecipe/backend/internal/service"
)

// recipeBody is the JSON form of a recipe write. ImageData carries an
// inline image as base64 or a data URL.
type recipeBody struct {
	service.RecipeFields
	ImageData string `json:"imageData"`
}

func (h *Handler) ListRecipes(c *gin.Context) {
	recipes, err := h.recipes.List(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, recipes)
}

func (h *Handler) SearchRecipes(c *gin.Context) {
	recipes, err := h.recipes.Search(c.Request.Context(), c.Query("query"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, recipes)
}

func (h *Handler) ListUserRecipes(c *gin.Context) {
	ownerID, ok := pathID(c, "userId")
	if !ok {
		return
	}
	recipes, err := h.recipes.ListByOwner(c.Request.Context(), ownerID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, recipes)
}

// GetRecipe returns a recipe with isSaved computed for the caller, if any.
func (h *Handler) GetRecipe(c *gin.Context) {
	recipeID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var viewer *uuid.UUID
	if id, ok := middleware.UserID(c); ok {
		viewer = &id
	}

	view, err := h.recipes.GetByID(c.Request.Context(), recipeID, viewer)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) CreateRecipe(c *gin.Context) {
	fields, image, err := parseRecipeRequest(c)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	recipe, err := h.recipes.Create(c.Request.Context(), callerID(c), fields, image)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, recipe)
}

func (h *Handler) UpdateRecipe(c *gin.Context) {
	recipeID, ok := pathID(c, "id")
	if !ok {
		return
	}
	fields, image, err := parseRecipeRequest(c)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	recipe, err := h.recipes.Update(c.Request.Context(), recipeID, callerID(c), fields, image)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, recipe)
}

func (h *Handler) DeleteRecipe(c *gin.Context) {
	recipeID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.recipes.Delete(c.Request.Context(), recipeID, callerID(c)); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// parseRecipeRequest reads a recipe write from a JSON body or a multipart
// form with an optional "image" file.
func parseRecipeRequest(c *gin.Context) (service.RecipeFields, *service.ImageSource, error) {
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		return parseRecipeForm(c)
	}

	var body recipeBody
	if err := c.ShouldBindJSON(&body); err != nil {
		return service.RecipeFields{}, nil, fmt.Errorf("invalid recipe body: %v", err)
	}
	if body.ImageData == "" {
		return body.RecipeFields, nil, nil
	}
	data, err := decodeImageData(body.ImageData)
	if err != nil {
		return service.RecipeFields{}, nil, err
	}
	return body.RecipeFields, &service.ImageSource{Data: data}, nil
}

func parseRecipeForm(c *gin.Context) (service.RecipeFields, *service.ImageSource, error) {
	var fields service.RecipeFields
	if v, ok := c.GetPostForm("recipeName"); ok {
		fields.RecipeName = &v
	}
	if v, ok := c.GetPostForm("description"); ok {
		fields.Description = &v
	}
	if v, ok := c.GetPostForm("imageUrl"); ok {
		fields.ImageURL = &v
	}
	for name, target := range map[string]**int{"cookingTime": &fields.CookingTime, "calories": &fields.Calories} {
		v, ok := c.GetPostForm(name)
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fields, nil, fmt.Errorf("%s must be a whole number", name)
		}
		*target = &n
	}
	var err error
	if v, ok := c.GetPostForm("ingredients"); ok {
		if fields.Ingredients, err = formList(v); err != nil {
			return fields, nil, fmt.Errorf("ingredients: %v", err)
		}
	}
	if v, ok := c.GetPostForm("instructions"); ok {
		if fields.Instructions, err = formList(v); err != nil {
			return fields, nil, fmt.Errorf("instructions: %v", err)
		}
	}

	header, err := c.FormFile("image")
	if err == http.ErrMissingFile {
		return fields, nil, nil
	}
	if err != nil {
		return fields, nil, fmt.Errorf("invalid image upload: %v", err)
	}
	if header.Size > service.MaxImageBytes {
		return fields, nil, fmt.Errorf("image exceeds %d bytes", service.MaxImageBytes)
	}
	file, err := header.Open()
	if err != nil {
		return fields, nil, fmt.Errorf("invalid image upload: %v", err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, service.MaxImageBytes+1))
	if err != nil {
		return fields, nil, fmt.Errorf("invalid image upload: %v", err)
	}
	return fields, &service.ImageSource{Data: data, ContentType: header.Header.Get("Content-Type")}, nil
}

// formList accepts a JSON array or one entry per line.
func formList(v string) ([]string, error) {
	trimmed := strings.TrimSpace(v)
	if strings.HasPrefix(trimmed, "[") {
		var items []string
		if err := json.Unmarshal([]byte(trimmed), &items); err != nil {
			return nil, fmt.Errorf("must be a JSON array of strings")
		}
		return items, nil
	}
	items := []string{}
	for _, line := range strings.Split(trimmed, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			items = append(items, line)
		}
	}
	return items, nil
}

func decodeImageData(v string) ([]byte, error) {
	if strings.HasPrefix(v, "data:") {
		i := strings.Index(v, ",")
		if i < 0 {
			return nil, fmt.Errorf("imageData is not a valid data URL")
		}
		v = v[i+1:]
	}
	data, err := base64.StdEncoding.DecodeString(v)
	if err != nil {
		return nil, fmt.Errorf("imageData is not valid base64")
	}
	return data, nil
}

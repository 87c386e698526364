package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const chefInstruction = "You are a professional chef who creates delicious recipes from the ingredients a cook has on hand. " +
	"Return your response as a single JSON object without markdown formatting or code blocks."

var (
	fencePrefix   = regexp.MustCompile("^```[a-zA-Z]*")
	leadingNumber = regexp.MustCompile(`-?\d+(\.\d+)?`)
)

// DraftRecipe is a generated recipe that has not been persisted yet.
type DraftRecipe struct {
	RecipeName   string   `json:"recipeName"`
	Description  string   `json:"description"`
	CookingTime  int      `json:"cookingTime"`
	Calories     int      `json:"calories"`
	Ingredients  []string `json:"ingredients"`
	Instructions []string `json:"instructions"`
}

// Generation is the validated output of one generation call.
type Generation struct {
	Draft       DraftRecipe
	ImagePrompt string
}

// generationReply mirrors the JSON object the model is asked to produce.
// Numbers are kept raw so that "30 minutes" style answers can be coerced.
type generationReply struct {
	RecipeName   *string         `json:"recipeName"`
	Description  *string         `json:"description"`
	CookingTime  json.RawMessage `json:"cookingTime"`
	Calories     json.RawMessage `json:"calories"`
	Ingredients  []string        `json:"ingredients"`
	Instructions []string        `json:"instructions"`
	ImagePrompt  string          `json:"imagePrompt"`
}

// RecipeGenerator turns a list of ingredients into a validated DraftRecipe.
type RecipeGenerator struct {
	completer TextCompleter
	timeout   time.Duration
	logger    *zap.Logger
}

func NewRecipeGenerator(completer TextCompleter, timeout time.Duration, logger *zap.Logger) *RecipeGenerator {
	return &RecipeGenerator{
		completer: completer,
		timeout:   timeout,
		logger:    logger,
	}
}

// Generate asks the text model for a recipe. It never returns a partially
// populated draft: the reply either passes validation or the call fails.
func (g *RecipeGenerator) Generate(ctx context.Context, ingredients []string) (*Generation, error) {
	cleaned, err := normalizeList(ingredients, "ingredients")
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	text, err := g.completer.Complete(ctx, BuildRecipePrompt(cleaned), chefInstruction)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: no reply within %s", ErrGeneration, g.timeout)
		}
		return nil, fmt.Errorf("%w: %w", ErrGeneration, err)
	}

	gen, err := ParseRecipeReply(text)
	if err != nil {
		g.logger.Warn("discarding generation reply",
			zap.Error(err),
			zap.Int("reply_length", len(text)),
		)
		return nil, err
	}

	g.logger.Info("recipe generated",
		zap.String("recipe_name", gen.Draft.RecipeName),
		zap.Duration("elapsed", time.Since(start)),
	)
	return gen, nil
}

// BuildRecipePrompt renders the single user prompt sent to the text model.
func BuildRecipePrompt(ingredients []string) string {
	var b strings.Builder
	b.WriteString("Create a recipe using these ingredients: ")
	b.WriteString(strings.Join(ingredients, ", "))
	b.WriteString(".\n\nRespond with a JSON object in exactly this shape:\n")
	b.WriteString(`{
  "recipeName": "Name of the dish",
  "description": "A short description of the dish",
  "cookingTime": 30,
  "calories": 450,
  "ingredients": ["quantity and ingredient", "..."],
  "instructions": ["first step", "second step", "..."],
  "imagePrompt": "A detailed visual description of the finished dish for an image generator"
}`)
	b.WriteString("\n\ncookingTime is the total time in minutes and calories is per serving, both as plain numbers.")
	return b.String()
}

// ParseRecipeReply strips code fences from a model reply and validates it
// into a Generation. Every failure wraps ErrMalformedResponse.
func ParseRecipeReply(text string) (*Generation, error) {
	body := stripCodeFence(text)

	var reply generationReply
	if err := json.Unmarshal([]byte(body), &reply); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	if reply.RecipeName == nil || strings.TrimSpace(*reply.RecipeName) == "" {
		return nil, fmt.Errorf("%w: recipeName missing", ErrMalformedResponse)
	}
	if reply.Description == nil {
		return nil, fmt.Errorf("%w: description missing", ErrMalformedResponse)
	}

	cookingTime, ok := coerceNumber(reply.CookingTime)
	if !ok || cookingTime <= 0 {
		return nil, fmt.Errorf("%w: cookingTime must be a positive number", ErrMalformedResponse)
	}
	calories, ok := coerceNumber(reply.Calories)
	if !ok || calories < 0 {
		return nil, fmt.Errorf("%w: calories must be a non-negative number", ErrMalformedResponse)
	}

	ingredients, err := normalizeList(reply.Ingredients, "ingredients")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	instructions, err := normalizeSteps(reply.Instructions)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	return &Generation{
		Draft: DraftRecipe{
			RecipeName:   strings.TrimSpace(*reply.RecipeName),
			Description:  strings.TrimSpace(*reply.Description),
			CookingTime:  cookingTime,
			Calories:     calories,
			Ingredients:  ingredients,
			Instructions: instructions,
		},
		ImagePrompt: strings.TrimSpace(reply.ImagePrompt),
	}, nil
}

func stripCodeFence(text string) string {
	body := strings.TrimSpace(text)
	if strings.HasPrefix(body, "```") {
		body = fencePrefix.ReplaceAllString(body, "")
		body = strings.TrimSuffix(strings.TrimSpace(body), "```")
		body = strings.TrimSpace(body)
	}
	// Some replies carry a sentence before or after the object.
	start := strings.Index(body, "{")
	end := strings.LastIndex(body, "}")
	if start >= 0 && end > start {
		body = body[start : end+1]
	}
	return body
}

// coerceNumber accepts a JSON number or a string holding one ("25 minutes")
// and rounds it to the nearest integer.
func coerceNumber(raw json.RawMessage) (int, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, false
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return roundNumber(f)
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, false
	}
	match := leadingNumber.FindString(s)
	if match == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, false
	}
	return roundNumber(f)
}

func roundNumber(f float64) (int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) > math.MaxInt32 {
		return 0, false
	}
	return int(math.Round(f)), true
}

// normalizeList trims every entry and rejects empty lists and blank entries.
func normalizeList(items []string, field string) ([]string, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: %s must contain at least one entry", ErrInvalidInput, field)
	}
	out := make([]string, 0, len(items))
	for i, item := range items {
		trimmed := strings.TrimSpace(item)
		if trimmed == "" {
			return nil, fmt.Errorf("%w: %s entry %d is empty", ErrInvalidInput, field, i+1)
		}
		out = append(out, trimmed)
	}
	return out, nil
}

// normalizeSteps is normalizeList for instructions. A multi-line entry is
// split into one step per non-blank line since steps are stored newline-joined.
func normalizeSteps(items []string) ([]string, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: instructions must contain at least one step", ErrInvalidInput)
	}
	out := make([]string, 0, len(items))
	for i, item := range items {
		if strings.TrimSpace(item) == "" {
			return nil, fmt.Errorf("%w: instruction step %d is empty", ErrInvalidInput, i+1)
		}
		for _, line := range strings.Split(item, "\n") {
			if step := strings.TrimSpace(line); step != "" {
				out = append(out, step)
			}
		}
	}
	return out, nil
}

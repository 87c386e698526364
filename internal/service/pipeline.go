package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/smartrecipe/backend/internal/metrics"
)

// GeneratedRecipe is the public result of the generation pipeline.
type GeneratedRecipe struct {
	DraftID string `json:"draftId,omitempty"`
	DraftRecipe
	Image *string `json:"image"`
}

// GenerationPipeline runs text generation, image synthesis and image storage
// for one request. Only text generation can fail the request.
type GenerationPipeline struct {
	generator *RecipeGenerator
	images    *ImageGateway
	drafts    DraftCache
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

// NewGenerationPipeline wires the pipeline. drafts may be nil when no cache is configured.
func NewGenerationPipeline(generator *RecipeGenerator, images *ImageGateway, drafts DraftCache, logger *zap.Logger, m *metrics.Metrics) *GenerationPipeline {
	return &GenerationPipeline{
		generator: generator,
		images:    images,
		drafts:    drafts,
		logger:    logger,
		metrics:   m,
	}
}

// Generate produces a recipe for ingredients on behalf of callerID. The work
// is detached from ctx cancellation so a client that disconnects can still
// pick the result up as a draft; every outbound call has its own deadline.
func (p *GenerationPipeline) Generate(ctx context.Context, callerID uuid.UUID, ingredients []string) (*GeneratedRecipe, error) {
	ctx = context.WithoutCancel(ctx)
	start := time.Now()

	gen, err := p.generator.Generate(ctx, ingredients)
	if err != nil {
		p.metrics.ObserveGeneration(generationOutcome(err), time.Since(start))
		return nil, err
	}

	result := &GeneratedRecipe{DraftRecipe: gen.Draft}
	if url, ok := p.attachImage(ctx, gen); ok {
		result.Image = &url
	} else {
		p.metrics.ImageFallback()
	}

	if p.drafts != nil {
		id, err := p.drafts.SaveDraft(ctx, callerID, result)
		if err != nil {
			p.logger.Warn("failed to cache generated recipe", zap.String("user_id", callerID.String()), zap.Error(err))
		} else {
			result.DraftID = id
		}
	}

	p.metrics.ObserveGeneration("success", time.Since(start))
	return result, nil
}

// GetDraft returns a previously generated recipe of callerID.
func (p *GenerationPipeline) GetDraft(ctx context.Context, draftID string, callerID uuid.UUID) (*GeneratedRecipe, error) {
	if p.drafts == nil {
		return nil, ErrNotFound
	}
	return p.drafts.GetDraft(ctx, draftID, callerID)
}

// attachImage synthesizes and stores the dish image. Failures are logged
// and reported as !ok.
func (p *GenerationPipeline) attachImage(ctx context.Context, gen *Generation) (string, bool) {
	if p.images == nil {
		return "", false
	}

	prompt := gen.ImagePrompt
	if prompt == "" {
		prompt = FallbackImagePrompt(gen.Draft)
	}

	img, err := p.images.Synthesize(ctx, prompt)
	if err != nil {
		p.logger.Warn("image synthesis failed, returning recipe without image",
			zap.String("recipe_name", gen.Draft.RecipeName), zap.Error(err))
		return "", false
	}

	url, err := p.images.Store(ctx, img)
	if err != nil {
		p.logger.Warn("image upload failed, returning recipe without image",
			zap.String("recipe_name", gen.Draft.RecipeName), zap.Error(err))
		return "", false
	}
	return url, true
}

func generationOutcome(err error) string {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed"
	default:
		return "error"
	}
}

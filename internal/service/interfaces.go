package service

import (
	"context"

	"github.com/google/uuid"
)

// TextCompleter is the generative text service.
type TextCompleter interface {
	Complete(ctx context.Context, prompt, systemInstruction string) (string, error)
}

// ImageSynthesizer is the generative image service. It returns base64 encoded image bytes.
type ImageSynthesizer interface {
	SynthesizeImage(ctx context.Context, prompt string) (string, error)
}

// BlobStore is durable storage for image bytes addressed by key.
type BlobStore interface {
	Upload(ctx context.Context, key, contentType string, data []byte) (string, error)
	Delete(ctx context.Context, key string) error
	// BaseURL is the public prefix every uploaded object URL starts with.
	BaseURL() string
}

// AssetStore is the part of the image gateway the recipe lifecycle depends on.
type AssetStore interface {
	Store(ctx context.Context, src *ImageSource) (string, error)
	// Discard schedules best-effort deletion of the asset behind url.
	Discard(url string)
}

// DraftCache keeps generated recipes around for requesters that disconnected.
type DraftCache interface {
	SaveDraft(ctx context.Context, ownerID uuid.UUID, draft *GeneratedRecipe) (string, error)
	GetDraft(ctx context.Context, draftID string, callerID uuid.UUID) (*GeneratedRecipe, error)
}

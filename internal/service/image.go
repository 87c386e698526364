package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/smartrecipe/backend/internal/metrics"
)

// MaxImageBytes caps uploaded and synthesized images.
const MaxImageBytes = 5 << 20

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
}

// ImageSource is image bytes waiting to be stored, either decoded from the
// image model or received as an upload.
type ImageSource struct {
	Data        []byte
	ContentType string
}

// GatewayConfig holds the storage layout and call deadlines of an ImageGateway.
type GatewayConfig struct {
	Folder           string
	SynthesisTimeout time.Duration
	StorageTimeout   time.Duration
}

// ImageGateway synthesizes recipe images and moves them in and out of blob storage.
type ImageGateway struct {
	synth   ImageSynthesizer
	store   BlobStore
	cfg     GatewayConfig
	logger  *zap.Logger
	metrics *metrics.Metrics

	pending sync.WaitGroup
}

func NewImageGateway(synth ImageSynthesizer, store BlobStore, cfg GatewayConfig, logger *zap.Logger, m *metrics.Metrics) *ImageGateway {
	cfg.Folder = strings.Trim(cfg.Folder, "/")
	return &ImageGateway{
		synth:   synth,
		store:   store,
		cfg:     cfg,
		logger:  logger,
		metrics: m,
	}
}

// Synthesize requests one square image for prompt and decodes it.
func (g *ImageGateway) Synthesize(ctx context.Context, prompt string) (*ImageSource, error) {
	if g.synth == nil {
		return nil, fmt.Errorf("%w: no image model configured", ErrSynthesis)
	}
	if strings.TrimSpace(prompt) == "" {
		return nil, fmt.Errorf("%w: empty prompt", ErrSynthesis)
	}

	ctx, cancel := context.WithTimeout(ctx, g.cfg.SynthesisTimeout)
	defer cancel()

	encoded, err := g.synth.SynthesizeImage(ctx, prompt)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: no image within %s", ErrSynthesis, g.cfg.SynthesisTimeout)
		}
		return nil, fmt.Errorf("%w: %w", ErrSynthesis, err)
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding image: %v", ErrSynthesis, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty image", ErrSynthesis)
	}

	return &ImageSource{Data: data, ContentType: http.DetectContentType(data)}, nil
}

// Store uploads src under the asset folder and returns its public URL.
// Only JPEG and PNG up to MaxImageBytes are accepted.
func (g *ImageGateway) Store(ctx context.Context, src *ImageSource) (string, error) {
	if src == nil || len(src.Data) == 0 {
		return "", fmt.Errorf("%w: image is empty", ErrInvalidInput)
	}
	if len(src.Data) > MaxImageBytes {
		return "", fmt.Errorf("%w: image exceeds %d MB", ErrInvalidInput, MaxImageBytes>>20)
	}

	contentType := http.DetectContentType(src.Data)
	ext, ok := imageExtensions[contentType]
	if !ok {
		return "", fmt.Errorf("%w: only JPEG and PNG images are allowed", ErrInvalidInput)
	}

	key := path.Join(g.cfg.Folder, uuid.NewString()+ext)

	ctx, cancel := context.WithTimeout(ctx, g.cfg.StorageTimeout)
	defer cancel()

	assetURL, err := g.store.Upload(ctx, key, contentType, src.Data)
	if err != nil {
		g.metrics.ObserveAssetUpload("failure")
		return "", fmt.Errorf("%w: uploading %s: %w", ErrStorage, key, err)
	}
	g.metrics.ObserveAssetUpload("success")

	g.logger.Debug("image stored", zap.String("key", key), zap.Int("bytes", len(src.Data)))
	return assetURL, nil
}

// Deref maps an asset URL back to its storage key. It reports false for
// anything that is not an object under the asset folder of this store.
func (g *ImageGateway) Deref(assetURL string) (string, bool) {
	base, err := url.Parse(strings.TrimSuffix(g.store.BaseURL(), "/"))
	if err != nil || base.Host == "" {
		return "", false
	}
	u, err := url.Parse(strings.TrimSpace(assetURL))
	if err != nil || !strings.EqualFold(u.Scheme, base.Scheme) || !strings.EqualFold(u.Host, base.Host) {
		return "", false
	}

	rest, ok := strings.CutPrefix(u.Path, base.Path+"/")
	if !ok {
		return "", false
	}
	name, ok := strings.CutPrefix(rest, g.cfg.Folder+"/")
	if !ok || name == "" || strings.HasSuffix(name, "/") {
		return "", false
	}
	for _, segment := range strings.Split(name, "/") {
		if segment == "" || segment == "." || segment == ".." {
			return "", false
		}
	}
	return rest, true
}

// Delete removes the object at key. Failures are logged and swallowed.
func (g *ImageGateway) Delete(ctx context.Context, key string) {
	ctx, cancel := context.WithTimeout(ctx, g.cfg.StorageTimeout)
	defer cancel()

	if err := g.store.Delete(ctx, key); err != nil {
		g.metrics.ObserveAssetDeletion("failure")
		g.logger.Error("failed to delete image", zap.String("key", key), zap.Error(err))
		return
	}
	g.metrics.ObserveAssetDeletion("success")
	g.logger.Info("image deleted", zap.String("key", key))
}

// Discard deletes the asset behind assetURL in the background. URLs that
// do not point into the asset folder are ignored.
func (g *ImageGateway) Discard(assetURL string) {
	key, ok := g.Deref(assetURL)
	if !ok {
		g.logger.Debug("not a stored asset, nothing to delete", zap.String("url", assetURL))
		return
	}

	g.pending.Add(1)
	go func() {
		defer g.pending.Done()
		g.Delete(context.Background(), key)
	}()
}

// Wait blocks until every deletion started by Discard has finished or ctx is done.
func (g *ImageGateway) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		g.pending.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// FallbackImagePrompt describes the dish for the image model when the text
// model did not supply an imagePrompt.
func FallbackImagePrompt(draft DraftRecipe) string {
	subject := strings.ToLower(draft.RecipeName)
	if draft.Description != "" {
		subject += ", " + strings.ToLower(draft.Description)
	}

	prompt := "A professional food photography shot of " + subject +
		", natural lighting, shallow depth of field, restaurant quality plating, appetizing colors"
	if len(prompt) > 900 {
		prompt = prompt[:900]
	}
	return prompt
}

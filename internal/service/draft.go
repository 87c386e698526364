package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DraftTTL is how long a generated recipe stays retrievable.
const DraftTTL = 24 * time.Hour

type storedDraft struct {
	OwnerID   uuid.UUID       `json:"ownerId"`
	CreatedAt time.Time       `json:"createdAt"`
	Recipe    GeneratedRecipe `json:"recipe"`
}

// DraftStore keeps generated recipes in Redis under recipe:draft:<id>.
type DraftStore struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewDraftStore(client *redis.Client) *DraftStore {
	return &DraftStore{redis: client, ttl: DraftTTL}
}

func draftKey(id string) string {
	return fmt.Sprintf("recipe:draft:%s", id)
}

// SaveDraft stores draft for ownerID and returns the new draft id.
func (s *DraftStore) SaveDraft(ctx context.Context, ownerID uuid.UUID, draft *GeneratedRecipe) (string, error) {
	id := uuid.NewString()

	stored := storedDraft{OwnerID: ownerID, CreatedAt: time.Now().UTC(), Recipe: *draft}
	stored.Recipe.DraftID = id

	data, err := json.Marshal(stored)
	if err != nil {
		return "", fmt.Errorf("failed to marshal draft: %w", err)
	}

	if err := s.redis.Set(ctx, draftKey(id), data, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("failed to save draft to Redis: %w", err)
	}
	return id, nil
}

// GetDraft returns the draft if it exists and belongs to callerID.
func (s *DraftStore) GetDraft(ctx context.Context, draftID string, callerID uuid.UUID) (*GeneratedRecipe, error) {
	if _, err := uuid.Parse(draftID); err != nil {
		return nil, fmt.Errorf("%w: draft %s", ErrNotFound, draftID)
	}

	data, err := s.redis.Get(ctx, draftKey(draftID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: draft %s", ErrNotFound, draftID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get draft from Redis: %w", err)
	}

	var stored storedDraft
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("failed to unmarshal draft: %w", err)
	}
	if stored.OwnerID != callerID {
		return nil, fmt.Errorf("%w: draft belongs to another user", ErrForbidden)
	}

	return &stored.Recipe, nil
}

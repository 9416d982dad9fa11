package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/presensia/presensia-api/internal/models"
	appErrors "github.com/presensia/presensia-api/pkg/errors"
)

const tokenKeyPrefix = "attendance:token:"

// TokenRepository stores issued attendance tokens in Redis. Values carry a
// retention TTL far above the policy expiry window so abandoned tokens lapse
// on their own; the 30-second policy window itself is enforced by the
// validation pipeline, which deletes expired tokens explicitly.
type TokenRepository struct {
	client    *redis.Client
	retention time.Duration
}

// NewTokenRepository constructs the repository.
func NewTokenRepository(client *redis.Client, retention time.Duration) *TokenRepository {
	if retention <= 0 {
		retention = time.Hour
	}
	return &TokenRepository{client: client, retention: retention}
}

// Put persists a freshly issued token.
func (r *TokenRepository) Put(ctx context.Context, token *models.AttendanceToken) error {
	payload, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("marshal token %s: %w", token.ID, err)
	}
	if err := r.client.Set(ctx, tokenKeyPrefix+token.ID, payload, r.retention).Err(); err != nil {
		return fmt.Errorf("redis set token %s: %w", token.ID, err)
	}
	return nil
}

// Get fetches a token by id. Absence is reported as ErrTokenNotFound so the
// caller can tell a missing token apart from a store failure.
func (r *TokenRepository) Get(ctx context.Context, id string) (*models.AttendanceToken, error) {
	raw, err := r.client.Get(ctx, tokenKeyPrefix+id).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, appErrors.ErrTokenNotFound
		}
		return nil, fmt.Errorf("redis get token %s: %w", id, err)
	}
	var token models.AttendanceToken
	if err := json.Unmarshal(raw, &token); err != nil {
		return nil, fmt.Errorf("unmarshal token %s: %w", id, err)
	}
	return &token, nil
}

// Delete removes a token. Deleting an absent token is not an error, so
// concurrent expiry-triggered deletes of the same token cannot fault.
func (r *TokenRepository) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, tokenKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("redis delete token %s: %w", id, err)
	}
	return nil
}

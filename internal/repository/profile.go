package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/omok-backend/internal/entity"
)

var ErrProfileNotFound = errors.New("profile not found")

const profileKeyPrefix = "profile:"

type ProfileRepository interface {
	CreateOrUpdate(ctx context.Context, profile *entity.Profile) error
	GetByID(ctx context.Context, id string) (*entity.Profile, error)
}

type dbProfile struct {
	client *redis.Client
}

func NewProfileRepository(client *redis.Client) ProfileRepository {
	return &dbProfile{
		client: client,
	}
}

func (that *dbProfile) CreateOrUpdate(ctx context.Context, profile *entity.Profile) error {
	profileJSON, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}

	if err = that.client.Set(ctx, profileKeyPrefix+profile.ID, profileJSON, 0).Err(); err != nil {
		return fmt.Errorf("failed to set profile: %w", err)
	}

	return nil
}

func (that *dbProfile) GetByID(ctx context.Context, id string) (*entity.Profile, error) {
	response, err := that.client.Get(ctx, profileKeyPrefix+id).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrProfileNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get profile by ID: %w", err)
	}

	var profile entity.Profile
	if err = json.Unmarshal([]byte(response), &profile); err != nil {
		return nil, fmt.Errorf("failed to unmarshal profile: %w", err)
	}

	return &profile, nil
}

package twin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const ProfileKeyPrefix = "twin:profile:"

type redisRepo struct {
	client *redis.Client
}

func NewRedisRepo(client *redis.Client) Repo {
	return &redisRepo{client: client}
}

// Append stores the profile with SETNX so an existing id is never overwritten.
func (r *redisRepo) Append(ctx context.Context, p *Profile) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding profile: %w", err)
	}

	ok, err := r.client.SetNX(ctx, ProfileKeyPrefix+p.ID, data, 0).Result()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("profile %s already exists", p.ID)
	}
	return nil
}

func (r *redisRepo) Get(ctx context.Context, id string) (*Profile, error) {
	data, err := r.client.Get(ctx, ProfileKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decoding profile %s: %w", id, err)
	}
	return &p, nil
}

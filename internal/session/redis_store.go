package session

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "session:"

type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to redisURL (redis://host:port/db) and verifies the
// connection. A non-empty password overrides the one in the URL.
func NewRedisStore(redisURL, password string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if password != "" {
		opts.Password = password
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &RedisStore{client: rdb}, nil
}

func NewRedisStoreFromClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func redisKey(id string) string {
	return redisKeyPrefix + id
}

// Save writes the session as a hash and lets redis expire it with the session.
func (r *RedisStore) Save(ctx context.Context, s *Session) error {
	key := redisKey(s.ID)
	fields := map[string]any{
		"user_id":    s.UserID,
		"created_at": s.CreatedAt.Format(time.RFC3339Nano),
		"expires_at": s.ExpiresAt.Format(time.RFC3339Nano),
	}

	ttl := time.Until(s.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session %s already expired", s.ID)
	}

	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (r *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	fields, err := r.client.HGetAll(ctx, redisKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}

	s := &Session{ID: id}
	if s.UserID, err = strconv.ParseInt(fields["user_id"], 10, 64); err != nil {
		return nil, fmt.Errorf("invalid user_id in redis for session %s: %w", id, err)
	}
	if s.CreatedAt, err = time.Parse(time.RFC3339Nano, fields["created_at"]); err != nil {
		return nil, fmt.Errorf("invalid created_at in redis for session %s: %w", id, err)
	}
	if s.ExpiresAt, err = time.Parse(time.RFC3339Nano, fields["expires_at"]); err != nil {
		return nil, fmt.Errorf("invalid expires_at in redis for session %s: %w", id, err)
	}
	if s.Expired(time.Now()) {
		return nil, ErrNotFound
	}
	return s, nil
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	return r.client.Del(ctx, redisKey(id)).Err()
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

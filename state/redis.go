package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore persists flow runs in Redis. Each run is a JSON value under
// <prefix>:run:<id>, indexed by flow name in <prefix>:index:<flowName> and
// globally in <prefix>:index.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithKeyPrefix overrides the default "flowkit" key prefix.
func WithKeyPrefix(prefix string) RedisOption {
	return func(s *RedisStore) { s.prefix = prefix }
}

// WithTTL expires run snapshots after d. Zero keeps them forever.
func WithTTL(d time.Duration) RedisOption {
	return func(s *RedisStore) { s.ttl = d }
}

// NewRedisStore wraps an existing client; the caller owns its lifecycle.
func NewRedisStore(client *redis.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{client: client, prefix: "flowkit"}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) runKey(id string) string { return fmt.Sprintf("%s:run:%s", s.prefix, id) }

func (s *RedisStore) indexKey(flowName string) string {
	if flowName == "" {
		return s.prefix + ":index"
	}
	return s.prefix + ":index:" + flowName
}

func (s *RedisStore) Save(ctx context.Context, run *FlowRun) error {
	cp := *run
	now := time.Now().UTC()
	cp.UpdatedAt = now
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = now
	}

	b, err := json.Marshal(&cp)
	if err != nil {
		return fmt.Errorf("marshal flow run %q: %w", run.ID, err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.runKey(cp.ID), b, s.ttl)
	pipe.SAdd(ctx, s.indexKey(""), cp.ID)
	pipe.SAdd(ctx, s.indexKey(cp.FlowName), cp.ID)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisStore) Load(ctx context.Context, id string) (*FlowRun, error) {
	b, err := s.client.Get(ctx, s.runKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var run FlowRun
	if err := json.Unmarshal(b, &run); err != nil {
		return nil, fmt.Errorf("unmarshal flow run %q: %w", id, err)
	}
	return &run, nil
}

func (s *RedisStore) List(ctx context.Context, flowName string) ([]*FlowRun, error) {
	ids, err := s.client.SMembers(ctx, s.indexKey(flowName)).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(ids)

	var out []*FlowRun
	for _, id := range ids {
		run, err := s.Load(ctx, id)
		if errors.Is(err, ErrNotFound) {
			// Expired snapshot still indexed; skip it.
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	run, err := s.Load(ctx, id)
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.runKey(id))
	pipe.SRem(ctx, s.indexKey(""), id)
	pipe.SRem(ctx, s.indexKey(run.FlowName), id)
	_, err = pipe.Exec(ctx)
	return err
}

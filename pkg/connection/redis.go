package connection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis stores connections as JSON values with set indexes:
//
//	{social}:conn:{id}                                JSON record
//	{social}:identity:{provider}:{provider_user_id}   connection id
//	{social}:user:{user_id}                           set of connection ids
//	{social}:all                                      set of connection ids
//
// The prefix ("social" by default) is wrapped in a hash tag so every key
// maps to one Redis Cluster slot; MGET and MULTI span several keys.
// Writes are immediate.
type Redis struct {
	client redis.UniversalClient
	prefix string
}

// RedisOption configures the Redis datastore.
type RedisOption func(*Redis)

// WithRedisPrefix sets the key prefix.
// Default: "social".
func WithRedisPrefix(prefix string) RedisOption {
	return func(r *Redis) {
		if prefix != "" {
			r.prefix = prefix
		}
	}
}

// NewRedisDatastore creates a datastore over client.
// The client should be obtained from pkg/redis.Open.
func NewRedisDatastore(client redis.UniversalClient, opts ...RedisOption) *Redis {
	r := &Redis{client: client, prefix: "social"}
	for _, opt := range opts {
		opt(r)
	}
	r.prefix = hashTag(r.prefix)
	return r
}

// hashTag wraps prefix in braces unless it already carries a hash tag.
func hashTag(prefix string) string {
	if strings.Contains(prefix, "{") {
		return prefix
	}
	return "{" + prefix + "}"
}

// Begin returns the datastore itself; Redis writes are applied immediately.
func (r *Redis) Begin(context.Context) (Store, error) {
	return r, nil
}

// Healthcheck pings Redis.
func (r *Redis) Healthcheck(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) FindConnection(ctx context.Context, f Filter) (*Connection, error) {
	conns, err := r.FindConnections(ctx, f)
	if err != nil {
		return nil, err
	}
	if len(conns) == 0 {
		return nil, ErrNotFound
	}
	return conns[0], nil
}

func (r *Redis) FindConnections(ctx context.Context, f Filter) ([]*Connection, error) {
	ids, err := r.candidates(ctx, f)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []*Connection{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.connKey(id)
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("connection: load: %w", err)
	}

	conns := make([]*Connection, 0, len(values))
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			// Index entry outlived its record.
			continue
		}
		var c Connection
		if err := json.Unmarshal([]byte(s), &c); err != nil {
			return nil, fmt.Errorf("connection: decode: %w", err)
		}
		if f.Match(&c) {
			conns = append(conns, &c)
		}
	}
	sortByRank(conns)
	return conns, nil
}

func (r *Redis) CreateConnection(ctx context.Context, c *Connection) (*Connection, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}

	stored := *c
	stored.prepareCreate()

	data, err := json.Marshal(&stored)
	if err != nil {
		return nil, fmt.Errorf("connection: encode: %w", err)
	}

	identity := r.identityKey(stored.ProviderID, stored.ProviderUserID)
	ok, err := r.client.SetNX(ctx, identity, stored.ID, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("connection: reserve identity: %w", err)
	}
	if !ok {
		return nil, ErrDuplicate
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.connKey(stored.ID), data, 0)
		pipe.SAdd(ctx, r.userKey(stored.UserID), stored.ID)
		pipe.SAdd(ctx, r.allKey(), stored.ID)
		return nil
	})
	if err != nil {
		_ = r.client.Del(ctx, identity).Err()
		return nil, fmt.Errorf("connection: create: %w", err)
	}
	return &stored, nil
}

func (r *Redis) UpdateConnection(ctx context.Context, c *Connection) error {
	raw, err := r.client.Get(ctx, r.connKey(c.ID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		return fmt.Errorf("connection: load: %w", err)
	}

	var existing Connection
	if err := json.Unmarshal(raw, &existing); err != nil {
		return fmt.Errorf("connection: decode: %w", err)
	}

	updated := *c
	updated.UserID = existing.UserID
	updated.ProviderID = existing.ProviderID
	updated.ProviderUserID = existing.ProviderUserID
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(&updated)
	if err != nil {
		return fmt.Errorf("connection: encode: %w", err)
	}
	ok, err := r.client.SetXX(ctx, r.connKey(c.ID), data, redis.KeepTTL).Result()
	if err != nil {
		return fmt.Errorf("connection: update: %w", err)
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

func (r *Redis) DeleteConnection(ctx context.Context, f Filter) (bool, error) {
	if f.IsEmpty() {
		return false, ErrEmptyFilter
	}

	conns, err := r.FindConnections(ctx, f)
	if err != nil {
		return false, err
	}
	if len(conns) == 0 {
		return false, nil
	}
	return true, r.remove(ctx, conns[:1])
}

func (r *Redis) DeleteConnections(ctx context.Context, f Filter) (bool, error) {
	if f.IsEmpty() {
		return false, ErrEmptyFilter
	}

	conns, err := r.FindConnections(ctx, f)
	if err != nil {
		return false, err
	}
	if len(conns) == 0 {
		return false, nil
	}
	return true, r.remove(ctx, conns)
}

func (r *Redis) Commit(context.Context) error   { return nil }
func (r *Redis) Rollback(context.Context) error { return nil }

// candidates returns the ids worth loading for a filter, using the narrowest index.
func (r *Redis) candidates(ctx context.Context, f Filter) ([]string, error) {
	switch {
	case f.ProviderID != "" && f.ProviderUserID != "":
		id, err := r.client.Get(ctx, r.identityKey(f.ProviderID, f.ProviderUserID)).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return nil, nil
			}
			return nil, fmt.Errorf("connection: lookup identity: %w", err)
		}
		return []string{id}, nil
	case f.UserID != "":
		ids, err := r.client.SMembers(ctx, r.userKey(f.UserID)).Result()
		if err != nil {
			return nil, fmt.Errorf("connection: lookup user: %w", err)
		}
		return ids, nil
	default:
		ids, err := r.client.SMembers(ctx, r.allKey()).Result()
		if err != nil {
			return nil, fmt.Errorf("connection: list: %w", err)
		}
		return ids, nil
	}
}

func (r *Redis) remove(ctx context.Context, conns []*Connection) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, c := range conns {
			pipe.Del(ctx, r.connKey(c.ID), r.identityKey(c.ProviderID, c.ProviderUserID))
			pipe.SRem(ctx, r.userKey(c.UserID), c.ID)
			pipe.SRem(ctx, r.allKey(), c.ID)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("connection: delete: %w", err)
	}
	return nil
}

func (r *Redis) connKey(id string) string {
	return r.prefix + ":conn:" + id
}

func (r *Redis) identityKey(providerID, providerUserID string) string {
	return r.prefix + ":identity:" + providerID + ":" + providerUserID
}

func (r *Redis) userKey(userID string) string {
	return r.prefix + ":user:" + userID
}

func (r *Redis) allKey() string {
	return r.prefix + ":all"
}

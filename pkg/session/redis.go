package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis stores sessions as JSON with keys expiring at the session expiry:
//
//	{social}:session:{token}            JSON record
//	{social}:session_id:{id}            token
//	{social}:user_sessions:{user_id}    set of session ids
//
// The prefix is wrapped in a hash tag so transactions touching several keys
// stay in one Redis Cluster slot.
// The user index does not expire; ids of sessions that expired on their own
// are dropped by DeleteByUserID.
type Redis struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore creates a store over client. An empty prefix means "social".
func NewRedisStore(client redis.UniversalClient, prefix string) *Redis {
	if prefix == "" {
		prefix = "social"
	}
	if !strings.Contains(prefix, "{") {
		prefix = "{" + prefix + "}"
	}
	return &Redis{client: client, prefix: prefix}
}

func (r *Redis) tokenKey(token string) string { return r.prefix + ":session:" + token }
func (r *Redis) idKey(id string) string       { return r.prefix + ":session_id:" + id }
func (r *Redis) userKey(userID string) string { return r.prefix + ":user_sessions:" + userID }

func (r *Redis) Create(ctx context.Context, s *Session) error {
	return r.write(ctx, s, "")
}

func (r *Redis) Get(ctx context.Context, token string) (*Session, error) {
	data, err := r.client.Get(ctx, r.tokenKey(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("session: get: %w", err)
	}

	s, err := unmarshalRecord(data)
	if err != nil {
		return nil, fmt.Errorf("session: decode: %w", err)
	}
	if s.IsExpired() {
		return nil, ErrExpired
	}
	return s, nil
}

func (r *Redis) Update(ctx context.Context, s *Session) error {
	oldToken, err := r.client.Get(ctx, r.idKey(s.ID)).Result()
	if errors.Is(err, redis.Nil) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("session: lookup: %w", err)
	}
	return r.write(ctx, s, oldToken)
}

// write stores s and drops staleToken when the token was rotated.
func (r *Redis) write(ctx context.Context, s *Session, staleToken string) error {
	ttl := time.Until(s.ExpiresAt)
	if ttl <= 0 {
		return ErrExpired
	}
	data, err := marshalRecord(s)
	if err != nil {
		return fmt.Errorf("session: encode: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if staleToken != "" && staleToken != s.Token {
			pipe.Del(ctx, r.tokenKey(staleToken))
		}
		pipe.Set(ctx, r.tokenKey(s.Token), data, ttl)
		pipe.Set(ctx, r.idKey(s.ID), s.Token, ttl)
		if s.UserID != "" {
			pipe.SAdd(ctx, r.userKey(s.UserID), s.ID)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("session: save: %w", err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, id string) error {
	token, err := r.client.Get(ctx, r.idKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("session: lookup: %w", err)
	}

	var userID string
	if data, err := r.client.Get(ctx, r.tokenKey(token)).Bytes(); err == nil {
		if s, err := unmarshalRecord(data); err == nil {
			userID = s.UserID
		}
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.tokenKey(token), r.idKey(id))
		if userID != "" {
			pipe.SRem(ctx, r.userKey(userID), id)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("session: delete: %w", err)
	}
	return nil
}

func (r *Redis) DeleteByUserID(ctx context.Context, userID string) error {
	ids, err := r.client.SMembers(ctx, r.userKey(userID)).Result()
	if err != nil {
		return fmt.Errorf("session: list user sessions: %w", err)
	}
	for _, id := range ids {
		if err := r.Delete(ctx, id); err != nil {
			return err
		}
	}
	if err := r.client.Del(ctx, r.userKey(userID)).Err(); err != nil {
		return fmt.Errorf("session: delete user index: %w", err)
	}
	return nil
}

func (r *Redis) Touch(ctx context.Context, id string, lastActiveAt time.Time) error {
	token, err := r.client.Get(ctx, r.idKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("session: lookup: %w", err)
	}

	s, err := r.Get(ctx, token)
	if err != nil {
		return err
	}
	s.LastActiveAt = lastActiveAt

	data, err := marshalRecord(s)
	if err != nil {
		return fmt.Errorf("session: encode: %w", err)
	}
	ok, err := r.client.SetXX(ctx, r.tokenKey(token), data, redis.KeepTTL).Result()
	if err != nil {
		return fmt.Errorf("session: touch: %w", err)
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

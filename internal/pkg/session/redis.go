package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps sessions in redis so every replica resolves the same tokens.
// Each session is a JSON value with the session TTL; a per-user set indexes the
// keys for RevokeUser.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
	opts      Options
}

// NewRedisStore returns a RedisStore. An empty keyPrefix defaults to "session:".
func NewRedisStore(client *redis.Client, keyPrefix string, opts Options) *RedisStore {
	if keyPrefix == "" {
		keyPrefix = "session:"
	}
	return &RedisStore{
		client:    client,
		keyPrefix: keyPrefix,
		opts:      opts.withDefaults(),
	}
}

func (s *RedisStore) tokenKey(digest string) string {
	return s.keyPrefix + "token:" + digest
}

func (s *RedisStore) userKey(userID int64) string {
	return fmt.Sprintf("%suser:%d", s.keyPrefix, userID)
}

func (s *RedisStore) Issue(ctx context.Context, id Identity) (string, error) {
	token := s.opts.Tokens.Generate()
	digest, err := s.opts.key(token)
	if err != nil {
		return "", err
	}

	raw, err := json.Marshal(s.opts.newSession(id))
	if err != nil {
		return "", err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.tokenKey(digest), raw, s.opts.TTL)
		pipe.SAdd(ctx, s.userKey(id.UserID), digest)
		if s.opts.TTL > 0 {
			pipe.Expire(ctx, s.userKey(id.UserID), s.opts.TTL)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	return token, nil
}

func (s *RedisStore) Resolve(ctx context.Context, token string) (Identity, error) {
	digest, err := s.opts.key(token)
	if err != nil {
		return Identity{}, err
	}

	val, err := s.client.Get(ctx, s.tokenKey(digest)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Identity{}, ErrInvalidToken
	}
	if err != nil {
		return Identity{}, err
	}

	var sess Session
	if err := json.Unmarshal(val, &sess); err != nil {
		return Identity{}, err
	}

	if sess.expired(s.opts.Clock.Now()) {
		return Identity{}, ErrInvalidToken
	}

	return sess.Identity, nil
}

func (s *RedisStore) Revoke(ctx context.Context, token string) error {
	digest, err := s.opts.key(token)
	if err != nil {
		return err
	}

	val, err := s.client.GetDel(ctx, s.tokenKey(digest)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return err
	}

	var sess Session
	if err := json.Unmarshal(val, &sess); err != nil {
		return nil //nolint:nilerr // token is already gone, the index entry expires with the set
	}

	return s.client.SRem(ctx, s.userKey(sess.UserID), digest).Err()
}

func (s *RedisStore) RevokeUser(ctx context.Context, userID int64) error {
	digests, err := s.client.SMembers(ctx, s.userKey(userID)).Result()
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(digests)+1)
	for _, d := range digests {
		keys = append(keys, s.tokenKey(d))
	}
	keys = append(keys, s.userKey(userID))

	return s.client.Del(ctx, keys...).Err()
}

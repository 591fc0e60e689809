package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const keyPrefix = "nawaem:session:"

type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(addr string, password string, db int) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisStore{client: client}
}

func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

func (r *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	return decode(r.client.Get(ctx, keyPrefix+id).Result())
}

func (r *RedisStore) Save(ctx context.Context, sess *Session) error {
	payload, ttl, err := encode(sess)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, keyPrefix+sess.ID, payload, ttl).Err()
}

func (r *RedisStore) Update(ctx context.Context, id string, fn func(*Session) error) (*Session, error) {
	key := keyPrefix + id
	var updated *Session

	txf := func(tx *redis.Tx) error {
		sess, err := decode(tx.Get(ctx, key).Result())
		if err != nil {
			return err
		}
		if err := fn(sess); err != nil {
			return err
		}
		payload, ttl, err := encode(sess)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, ttl)
			return nil
		})
		if err == nil {
			updated = sess
		}
		return err
	}

	for attempt := 0; attempt < 5; attempt++ {
		err := r.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return updated, nil
	}
	return nil, redis.TxFailedErr
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	return r.client.Del(ctx, keyPrefix+id).Err()
}

func decode(val string, err error) (*Session, error) {
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var sess Session
	if err := json.Unmarshal([]byte(val), &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

func encode(sess *Session) ([]byte, time.Duration, error) {
	ttl := time.Until(sess.ExpiresAt)
	if ttl <= 0 {
		return nil, 0, ErrNotFound
	}
	payload, err := json.Marshal(sess)
	if err != nil {
		return nil, 0, err
	}
	return payload, ttl, nil
}

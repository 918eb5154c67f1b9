// Package idempotency remembers the first response to a keyed request so
// client retries replay it instead of repeating the side effect.
package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

const Header = "Idempotency-Key"

const inFlight = "__in_flight__"

var ErrInFlight = errors.New("request with this idempotency key is in progress")

func Key(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(Header))
}

// Client is the subset of the Redis client the store needs.
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

type Response struct {
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body"`
}

type Store struct {
	rdb Client
	ttl time.Duration
}

func NewStore(rdb Client, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl}
}

// Begin claims key. It returns a stored response when the key already
// completed, ErrInFlight when another request holds it, or (nil, nil) when
// the caller now owns the key and must call Complete or Abort.
func (s *Store) Begin(ctx context.Context, key string) (*Response, error) {
	claimed, err := s.rdb.SetNX(ctx, key, inFlight, s.ttl).Result()
	if err != nil {
		return nil, err
	}
	if claimed {
		return nil, nil
	}

	raw, err := s.rdb.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// Released between SetNX and Get; treat as busy and let the client retry.
			return nil, ErrInFlight
		}
		return nil, err
	}
	if raw == inFlight {
		return nil, ErrInFlight
	}

	var resp Response
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *Store) Complete(ctx context.Context, key string, resp Response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, key, data, s.ttl).Err()
}

func (s *Store) Abort(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}

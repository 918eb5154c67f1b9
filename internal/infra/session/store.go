// Package session resolves the caller of a request from a signed session
// cookie backed by Redis.
package session

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"checkout-service/internal/config"
	"checkout-service/internal/domain"

	"github.com/go-redis/redis/v8"
)

var ErrUnauthenticated = errors.New("not authenticated")

// Getter is the subset of the Redis client the store needs.
type Getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

type Store struct {
	rdb    Getter
	cookie string
	secret string
	prefix string
}

func NewStore(rdb Getter, cfg config.Session) *Store {
	return &Store{
		rdb:    rdb,
		cookie: cfg.Cookie,
		secret: cfg.Secret,
		prefix: cfg.Prefix,
	}
}

type record struct {
	UserID *uint64 `json:"userId"`
}

// Authenticate returns the account id bound to the request's session.
func (s *Store) Authenticate(r *http.Request) (uint64, error) {
	c, err := r.Cookie(s.cookie)
	if err != nil {
		return 0, ErrUnauthenticated
	}
	sid, ok := Unsign(c.Value, s.secret)
	if !ok {
		return 0, ErrUnauthenticated
	}

	raw, err := s.rdb.Get(r.Context(), s.prefix+sid).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, ErrUnauthenticated
		}
		return 0, fmt.Errorf("%w: session lookup: %v", domain.ErrStorageUnavailable, err)
	}

	var rec record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil || rec.UserID == nil {
		return 0, ErrUnauthenticated
	}
	return *rec.UserID, nil
}

// Sign produces the cookie value for sid: "s:" + sid + "." + base64(HMAC-SHA256)
// with padding removed.
func Sign(sid, secret string) string {
	return "s:" + sid + "." + mac(sid, secret)
}

// Unsign validates a signed cookie value and returns the session id.
func Unsign(value, secret string) (string, bool) {
	if decoded, err := url.PathUnescape(value); err == nil {
		value = decoded
	}
	if !strings.HasPrefix(value, "s:") {
		return "", false
	}
	value = strings.TrimPrefix(value, "s:")

	dot := strings.LastIndex(value, ".")
	if dot <= 0 {
		return "", false
	}
	sid, sig := value[:dot], value[dot+1:]
	if !hmac.Equal([]byte(sig), []byte(mac(sid, secret))) {
		return "", false
	}
	return sid, true
}

func mac(sid, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(sid))
	return strings.TrimRight(base64.StdEncoding.EncodeToString(h.Sum(nil)), "=")
}

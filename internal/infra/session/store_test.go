package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"checkout-service/internal/config"
	"checkout-service/internal/domain"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRedis struct {
	mock.Mock
}

func (m *MockRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	args := m.Called(ctx, key)
	return redis.NewStringResult(args.String(0), args.Error(1))
}

var testCfg = config.Session{Cookie: "connect.sid", Secret: "keyboard cat", Prefix: "sess:"}

func TestSignUnsign(t *testing.T) {
	signed := Sign("abc123", "keyboard cat")

	sid, ok := Unsign(signed, "keyboard cat")
	require.True(t, ok)
	assert.Equal(t, "abc123", sid)

	sid, ok = Unsign(url.QueryEscape(signed), "keyboard cat")
	require.True(t, ok, "cookie values arrive URL-encoded")
	assert.Equal(t, "abc123", sid)

	_, ok = Unsign(signed, "other secret")
	assert.False(t, ok)

	_, ok = Unsign("abc123", "keyboard cat")
	assert.False(t, ok)

	_, ok = Unsign("s:abc123.forged", "keyboard cat")
	assert.False(t, ok)
}

func requestWithCookie(value string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	if value != "" {
		r.AddCookie(&http.Cookie{Name: "connect.sid", Value: value})
	}
	return r
}

func TestStore_Authenticate(t *testing.T) {
	tests := []struct {
		name       string
		cookie     string
		setupMocks func(*MockRedis)
		wantID     uint64
		wantErr    error
	}{
		{
			name:   "valid session",
			cookie: Sign("sid-1", testCfg.Secret),
			setupMocks: func(m *MockRedis) {
				m.On("Get", mock.Anything, "sess:sid-1").Return(`{"cookie":{},"userId":42,"role":"user"}`, nil)
			},
			wantID: 42,
		},
		{
			name:    "no cookie",
			wantErr: ErrUnauthenticated,
		},
		{
			name:    "bad signature never reaches redis",
			cookie:  "s:sid-1.bad",
			wantErr: ErrUnauthenticated,
		},
		{
			name:   "expired session",
			cookie: Sign("sid-2", testCfg.Secret),
			setupMocks: func(m *MockRedis) {
				m.On("Get", mock.Anything, "sess:sid-2").Return("", redis.Nil)
			},
			wantErr: ErrUnauthenticated,
		},
		{
			name:   "anonymous session",
			cookie: Sign("sid-3", testCfg.Secret),
			setupMocks: func(m *MockRedis) {
				m.On("Get", mock.Anything, "sess:sid-3").Return(`{"cookie":{}}`, nil)
			},
			wantErr: ErrUnauthenticated,
		},
		{
			name:   "redis down",
			cookie: Sign("sid-4", testCfg.Secret),
			setupMocks: func(m *MockRedis) {
				m.On("Get", mock.Anything, "sess:sid-4").Return("", errors.New("dial tcp: refused"))
			},
			wantErr: domain.ErrStorageUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := new(MockRedis)
			if tt.setupMocks != nil {
				tt.setupMocks(m)
			}
			store := NewStore(m, testCfg)

			id, err := store.Authenticate(requestWithCookie(tt.cookie))
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.wantID, id)
			}
			m.AssertExpectations(t)
		})
	}
}

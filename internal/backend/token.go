package backend

import (
	"context"
	"encoding/json"
	"time"

	"github.com/golang-jwt/jwt/v5"

	pkgredis "github.com/rohanmehta-dev/vastrakart/pkg/redis"
)

// TokenPair holds the backend session credentials for one storefront session.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	UserID       string `json:"user_id,omitempty"`
}

// TokenStore persists token pairs keyed by storefront session id.
type TokenStore interface {
	Get(ctx context.Context, sessionID string) (*TokenPair, error)
	Save(ctx context.Context, sessionID string, pair TokenPair) error
	Delete(ctx context.Context, sessionID string) error
}

// RedisTokenStore keeps token pairs in Redis so any gateway instance can
// serve the session.
type RedisTokenStore struct {
	client *pkgredis.Client
	ttl    time.Duration
}

// NewRedisTokenStore builds the store with the session TTL.
func NewRedisTokenStore(client *pkgredis.Client, ttl time.Duration) *RedisTokenStore {
	return &RedisTokenStore{client: client, ttl: ttl}
}

func (s *RedisTokenStore) Get(ctx context.Context, sessionID string) (*TokenPair, error) {
	raw, err := s.client.GetOptional(ctx, s.client.SessionTokenKey(sessionID))
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return nil, nil
	}
	var pair TokenPair
	if err := json.Unmarshal([]byte(raw), &pair); err != nil {
		return nil, err
	}
	return &pair, nil
}

func (s *RedisTokenStore) Save(ctx context.Context, sessionID string, pair TokenPair) error {
	raw, err := json.Marshal(pair)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.client.SessionTokenKey(sessionID), string(raw), s.ttl)
}

func (s *RedisTokenStore) Delete(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, s.client.SessionTokenKey(sessionID))
}

// expiringSoon reports whether the access token's exp claim falls within
// the skew window. The signature is not verified here; only the backend
// can do that, and a wrong guess just costs one refresh round trip.
func expiringSoon(accessToken string, skew time.Duration, now time.Time) bool {
	if accessToken == "" {
		return true
	}
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(accessToken, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return now.Add(skew).After(exp.Time)
}

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"ipvcore/internal/session/models"
	id "ipvcore/pkg/domain"
	"ipvcore/pkg/platform/sentinel"
)

var redisOpDurationMs = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "ipvcore_session_store_duration_ms",
	Help:    "Latency of session store operations in milliseconds",
	Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
}, []string{"op"})

const (
	ipvSessionKeyPrefix    = "ipv:session:"
	clientSessionKeyPrefix = "ipv:client-session:"
	criOAuthKeyPrefix      = "ipv:cri-oauth:"
)

// RedisStore keeps sessions as JSON values with a TTL per key family.
type RedisStore struct {
	client     *redis.Client
	sessionTTL time.Duration
	criTTL     time.Duration
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithSessionTTL bounds IPV and client sessions.
func WithSessionTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) {
		s.sessionTTL = ttl
	}
}

// WithCriOAuthTTL bounds CRI correlation records.
func WithCriOAuthTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) {
		s.criTTL = ttl
	}
}

func NewRedis(client *redis.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{client: client, sessionTTL: time.Hour, criTTL: time.Hour}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *RedisStore) CreateIpvSession(ctx context.Context, sess *models.IpvSession) error {
	return s.setNX(ctx, "create_session", ipvSessionKeyPrefix+sess.ID.String(), sess, s.sessionTTL)
}

func (s *RedisStore) GetIpvSession(ctx context.Context, sessionID id.SessionID) (*models.IpvSession, error) {
	var sess models.IpvSession
	if err := s.get(ctx, "get_session", ipvSessionKeyPrefix+sessionID.String(), &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

// SaveIpvSession keeps the remaining TTL and refuses to resurrect an expired
// session.
func (s *RedisStore) SaveIpvSession(ctx context.Context, sess *models.IpvSession) error {
	defer observe("save_session", time.Now())
	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	err = s.client.SetArgs(ctx, ipvSessionKeyPrefix+sess.ID.String(), payload, redis.SetArgs{Mode: "XX", KeepTTL: true}).Err()
	if errors.Is(err, redis.Nil) {
		return fmt.Errorf("session %s: %w", sess.ID, sentinel.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *RedisStore) CreateClientSession(ctx context.Context, c *models.ClientOAuthSession) error {
	return s.setNX(ctx, "create_client_session", clientSessionKeyPrefix+c.ID.String(), c, s.sessionTTL)
}

func (s *RedisStore) GetClientSession(ctx context.Context, clientSessionID id.ClientOAuthSessionID) (*models.ClientOAuthSession, error) {
	var c models.ClientOAuthSession
	if err := s.get(ctx, "get_client_session", clientSessionKeyPrefix+clientSessionID.String(), &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *RedisStore) SaveCriOAuthSession(ctx context.Context, c *models.CriOAuthSession) error {
	defer observe("save_cri_oauth", time.Now())
	payload, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal cri oauth session: %w", err)
	}
	return s.client.Set(ctx, criOAuthKeyPrefix+c.State, payload, s.criTTL).Err()
}

func (s *RedisStore) GetCriOAuthSession(ctx context.Context, state string) (*models.CriOAuthSession, error) {
	var c models.CriOAuthSession
	if err := s.get(ctx, "get_cri_oauth", criOAuthKeyPrefix+state, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *RedisStore) setNX(ctx context.Context, op, key string, v any, ttl time.Duration) error {
	defer observe(op, time.Now())
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	ok, err := s.client.SetNX(ctx, key, payload, ttl).Result()
	if err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	if !ok {
		return fmt.Errorf("%s: %w", key, sentinel.ErrConflict)
	}
	return nil
}

func (s *RedisStore) get(ctx context.Context, op, key string, dst any) error {
	defer observe(op, time.Now())
	raw, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return fmt.Errorf("%s: %w", key, sentinel.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func observe(op string, start time.Time) {
	redisOpDurationMs.WithLabelValues(op).Observe(float64(time.Since(start).Microseconds()) / 1000.0)
}

package lease

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/magicianlee007/tpn-subnet/internal/pool"
)

// RedisStore implements Store on Redis.
//
// Layout under the configured prefix:
//
//	cred:<username>  hash  {password, ip_address, port, available}
//	avail            set   usernames grantable right now
//	lease:<username> string lease id, TTL = remaining lease time
//
// SPOP on the avail set plus SETNX on the lease key keeps grants mutually
// exclusive across concurrent callers and across processes.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a Redis-backed lease store.
func NewRedisStore(addr, password string, db int, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "tpn:"
	}
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})
	return &RedisStore{client: client, prefix: prefix}
}

// Initialize tests the Redis connection.
func (s *RedisStore) Initialize(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// Health checks Redis availability.
func (s *RedisStore) Health(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) credKey(username string) string  { return s.prefix + "cred:" + username }
func (s *RedisStore) leaseKey(username string) string { return s.prefix + "lease:" + username }
func (s *RedisStore) availKey() string                { return s.prefix + "avail" }

// CountAvailable returns the size of the available set.
func (s *RedisStore) CountAvailable(ctx context.Context) (int, error) {
	n, err := s.client.SCard(ctx, s.availKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("count available credentials: %w", err)
	}
	return int(n), nil
}

// RegisterLease pops an available credential and locks it until expiresAt.
func (s *RedisStore) RegisterLease(ctx context.Context, expiresAt time.Time) (*Grant, error) {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil, fmt.Errorf("lease expiry %s is in the past", expiresAt.Format(time.RFC3339))
	}

	for {
		username, err := s.client.SPop(ctx, s.availKey()).Result()
		if errors.Is(err, redis.Nil) {
			return nil, ErrNoCredentials
		}
		if err != nil {
			return nil, fmt.Errorf("pop available credential: %w", err)
		}

		leaseID := uuid.NewString()
		ok, err := s.client.SetNX(ctx, s.leaseKey(username), leaseID, ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("register lease for %s: %w", username, err)
		}
		if !ok {
			// Stale avail entry for a still-leased credential; skip it.
			continue
		}

		fields, err := s.client.HGetAll(ctx, s.credKey(username)).Result()
		if err != nil {
			return nil, fmt.Errorf("read credential %s: %w", username, err)
		}
		if len(fields) == 0 {
			// Credential vanished between pool rewrites; release the lease
			// key and try the next one.
			s.client.Del(ctx, s.leaseKey(username))
			continue
		}

		port, _ := strconv.Atoi(fields["port"])
		return &Grant{
			LeaseID:   leaseID,
			Username:  username,
			Password:  fields["password"],
			IPAddress: fields["ip_address"],
			Port:      port,
			ExpiresAt: expiresAt.UnixMilli(),
		}, nil
	}
}

// BulkWrite replaces the stored pool. Credentials under an active lease stay
// out of the available set regardless of what the new snapshot says.
func (s *RedisStore) BulkWrite(ctx context.Context, creds []pool.Credential) error {
	oldKeys, err := s.client.Keys(ctx, s.prefix+"cred:*").Result()
	if err != nil {
		return fmt.Errorf("list stored credentials: %w", err)
	}

	pipe := s.client.TxPipeline()
	if len(oldKeys) > 0 {
		pipe.Del(ctx, oldKeys...)
	}
	pipe.Del(ctx, s.availKey())
	for _, c := range creds {
		pipe.HSet(ctx, s.credKey(c.Username), map[string]interface{}{
			"password":   c.Password,
			"ip_address": c.IPAddress,
			"port":       strconv.Itoa(c.Port),
			"available":  boolField(c.Available),
		})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("write credential pool: %w", err)
	}

	for _, c := range creds {
		if !c.Available {
			continue
		}
		leased, err := s.client.Exists(ctx, s.leaseKey(c.Username)).Result()
		if err != nil {
			return fmt.Errorf("check lease for %s: %w", c.Username, err)
		}
		if leased > 0 {
			continue
		}
		if err := s.client.SAdd(ctx, s.availKey(), c.Username).Err(); err != nil {
			return fmt.Errorf("mark %s available: %w", c.Username, err)
		}
	}
	return nil
}

func boolField(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

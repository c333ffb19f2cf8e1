// internal/interfaces/http/middleware/idempotency.go
package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	// IdempotencyKeyHeader lets a client retry a write without repeating it
	IdempotencyKeyHeader = "Idempotency-Key"
	// IdempotentReplayHeader marks a response served from the store
	IdempotentReplayHeader = "Idempotent-Replayed"

	maxIdempotencyKeyLength = 255
	inFlightTTL             = 30 * time.Second
)

var ErrIdempotencyKeyNotFound = errors.New("idempotency key not found")

// StoredResponse is a completed response kept for replay
type StoredResponse struct {
	Method string `json:"method"`
	Path   string `json:"path"`
	Status int    `json:"status"`
	Body   []byte `json:"body"`
}

// IdempotencyStore stores completed responses by idempotency key
type IdempotencyStore interface {
	// Get returns ErrIdempotencyKeyNotFound when nothing is stored
	Get(ctx context.Context, key string) (*StoredResponse, error)
	Save(ctx context.Context, key string, resp *StoredResponse, ttl time.Duration) error
	// Lock claims key for one in-flight request; false means another holds it
	Lock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}

// RedisIdempotencyStore keeps responses under idempotency:<key>
type RedisIdempotencyStore struct {
	client *redis.Client
}

// NewRedisIdempotencyStore creates a Redis-backed store
func NewRedisIdempotencyStore(client *redis.Client) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{client: client}
}

func idempotencyKey(key string) string {
	return fmt.Sprintf("idempotency:%s", key)
}

func (s *RedisIdempotencyStore) Get(ctx context.Context, key string) (*StoredResponse, error) {
	data, err := s.client.Get(ctx, idempotencyKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrIdempotencyKeyNotFound
		}
		return nil, err
	}
	var resp StoredResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode stored response: %w", err)
	}
	return &resp, nil
}

func (s *RedisIdempotencyStore) Save(ctx context.Context, key string, resp *StoredResponse, ttl time.Duration) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("failed to encode response: %w", err)
	}
	return s.client.Set(ctx, idempotencyKey(key), data, ttl).Err()
}

func (s *RedisIdempotencyStore) Lock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, idempotencyKey(key)+":lock", "1", ttl).Result()
}

func (s *RedisIdempotencyStore) Unlock(ctx context.Context, key string) error {
	return s.client.Del(ctx, idempotencyKey(key)+":lock").Err()
}

// Idempotency replays the first successful response for a repeated
// Idempotency-Key, so a client that lost a response can retry a commit
// without creating a second sale. Requests without the header pass
// through, and store failures let the request through (fail open).
func Idempotency(store IdempotencyStore, log *logrus.Logger, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyKeyHeader)
		if key == "" || store == nil {
			c.Next()
			return
		}
		if len(key) > maxIdempotencyKeyLength {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error":   "ValidationError",
				"message": "Idempotency-Key is too long",
			})
			return
		}

		ctx := c.Request.Context()
		entry := log.WithFields(logrus.Fields{
			"idempotency_key": key,
			"request_id":      GetRequestID(c),
		})

		stored, err := store.Get(ctx, key)
		switch {
		case err == nil:
			if stored.Method != c.Request.Method || stored.Path != c.Request.URL.Path {
				c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{
					"error":   "IdempotencyKeyReused",
					"message": "Idempotency-Key was already used for a different request",
				})
				return
			}
			entry.Info("Duplicate request detected, returning stored response")
			c.Header(IdempotentReplayHeader, "true")
			c.Data(stored.Status, "application/json; charset=utf-8", stored.Body)
			c.Abort()
			return
		case !errors.Is(err, ErrIdempotencyKeyNotFound):
			entry.WithError(err).Warn("Idempotency store unavailable, processing request")
			c.Next()
			return
		}

		locked, err := store.Lock(ctx, key, inFlightTTL)
		if err != nil {
			entry.WithError(err).Warn("Idempotency store unavailable, processing request")
			c.Next()
			return
		}
		if !locked {
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{
				"error":   "RequestInProgress",
				"message": "A request with this Idempotency-Key is still being processed",
			})
			return
		}
		defer func() {
			if err := store.Unlock(context.WithoutCancel(ctx), key); err != nil {
				entry.WithError(err).Warn("Failed to release idempotency lock")
			}
		}()

		writer := &responseWriter{ResponseWriter: c.Writer}
		c.Writer = writer

		c.Next()

		// Only successful responses are stored; a rejected or failed commit
		// wrote nothing and may be retried with the same key.
		status := writer.Status()
		if status < 200 || status >= 300 {
			return
		}
		resp := &StoredResponse{
			Method: c.Request.Method,
			Path:   c.Request.URL.Path,
			Status: status,
			Body:   writer.body,
		}
		if err := store.Save(context.WithoutCancel(ctx), key, resp, ttl); err != nil {
			entry.WithError(err).Warn("Failed to store response for idempotency")
		}
	}
}

// responseWriter captures the response body
type responseWriter struct {
	gin.ResponseWriter
	body []byte
}

func (w *responseWriter) Write(b []byte) (int, error) {
	w.body = append(w.body, b...)
	return w.ResponseWriter.Write(b)
}

func (w *responseWriter) WriteString(s string) (int, error) {
	w.body = append(w.body, s...)
	return w.ResponseWriter.WriteString(s)
}

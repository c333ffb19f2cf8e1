// internal/domain/cart/store.go
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const maxUpdateRetries = 5

// releaseClaim deletes a checkout claim only if it still holds our token
var releaseClaim = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Store keeps session carts in Redis, one JSON document per session with
// a sliding TTL
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStore creates a Redis cart store
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Store{client: client, ttl: ttl}
}

func cartKey(sessionID string) string {
	return fmt.Sprintf("cart:session:%s", sessionID)
}

func claimKey(sessionID string) string {
	return fmt.Sprintf("cart:checkout:%s", sessionID)
}

// Create stores a new empty cart. It fails if the session already exists.
func (s *Store) Create(ctx context.Context, c *Cart) error {
	payload, err := s.encode(c)
	if err != nil {
		return err
	}
	ok, err := s.client.SetNX(ctx, cartKey(c.SessionID), payload, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to create cart: %w", err)
	}
	if !ok {
		return fmt.Errorf("cart session %s already exists", c.SessionID)
	}
	return nil
}

// Load returns the cart for a session
func (s *Store) Load(ctx context.Context, sessionID string) (*Cart, error) {
	data, err := s.client.Get(ctx, cartKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	return decode(data)
}

// Update applies fn to the stored cart under optimistic locking. fn's
// changes are saved only if no other writer touched the cart meanwhile;
// otherwise the read and fn are retried.
func (s *Store) Update(ctx context.Context, sessionID string, fn func(*Cart) error) (*Cart, error) {
	key := cartKey(sessionID)
	claim := claimKey(sessionID)
	var updated *Cart

	txf := func(tx *redis.Tx) error {
		claimed, err := tx.Exists(ctx, claim).Result()
		if err != nil {
			return fmt.Errorf("failed to check checkout claim: %w", err)
		}
		if claimed > 0 {
			return ErrCheckoutInProgress
		}

		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return ErrCartNotFound
			}
			return fmt.Errorf("failed to load cart: %w", err)
		}
		c, err := decode(data)
		if err != nil {
			return err
		}
		if err := fn(c); err != nil {
			return err
		}
		payload, err := s.encode(c)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, s.ttl)
			return nil
		})
		if err == nil {
			updated = c
		}
		return err
	}

	for i := 0; i < maxUpdateRetries; i++ {
		err := s.client.Watch(ctx, txf, key, claim)
		if err == nil {
			return updated, nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			return nil, err
		}
	}
	return nil, ErrCartConflict
}

// Claim marks a cart as being checked out. While the claim is held other
// checkouts and all updates of the cart are refused with
// ErrCheckoutInProgress. ttl bounds a claim whose holder never released it.
func (s *Store) Claim(ctx context.Context, sessionID string, ttl time.Duration) (release func(), err error) {
	key := claimKey(sessionID)
	token := uuid.NewString()

	ok, err := s.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to claim cart: %w", err)
	}
	if !ok {
		return nil, ErrCheckoutInProgress
	}

	release = func() {
		releaseClaim.Run(context.WithoutCancel(ctx), s.client, []string{key}, token)
	}
	return release, nil
}

// Delete removes a session's cart
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, cartKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	return nil
}

func (s *Store) encode(c *Cart) ([]byte, error) {
	c.ExpiresAt = time.Now().UTC().Add(s.ttl)
	payload, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to encode cart: %w", err)
	}
	return payload, nil
}

func decode(data []byte) (*Cart, error) {
	var c Cart
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to decode cart: %w", err)
	}
	if c.Lines == nil {
		c.Lines = []Line{}
	}
	return &c, nil
}

// README: Pending store keeps generated text in Redis when persistence fails, so a resubmit can save it without regenerating.
package itinerary

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	pendingKeyPrefix  = "itinerary:pending:%s:%s"
	defaultPendingTTL = 15 * time.Minute
)

// Generated is a model result waiting to be persisted.
type Generated struct {
	Text        string    `json:"text"`
	Model       string    `json:"model"`
	GeneratedAt time.Time `json:"generated_at"`
}

type PendingStore struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewPendingStore(client *redis.Client, ttl time.Duration) *PendingStore {
	if ttl <= 0 {
		ttl = defaultPendingTTL
	}
	return &PendingStore{redis: client, ttl: ttl}
}

// TTL is how long a stashed result stays available.
func (s *PendingStore) TTL() time.Duration {
	return s.ttl
}

// Save stashes g for owner under the prompt that produced it.
func (s *PendingStore) Save(ctx context.Context, owner, prompt string, g Generated) error {
	b, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("pending: encode: %w", err)
	}
	return s.redis.Set(ctx, pendingKey(owner, prompt), b, s.ttl).Err()
}

// Load returns the stashed result for owner and prompt, if any.
func (s *PendingStore) Load(ctx context.Context, owner, prompt string) (Generated, bool, error) {
	val, err := s.redis.Get(ctx, pendingKey(owner, prompt)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Generated{}, false, nil
	}
	if err != nil {
		return Generated{}, false, err
	}
	var g Generated
	if err := json.Unmarshal(val, &g); err != nil {
		return Generated{}, false, fmt.Errorf("pending: decode: %w", err)
	}
	return g, true, nil
}

func (s *PendingStore) Drop(ctx context.Context, owner, prompt string) error {
	return s.redis.Del(ctx, pendingKey(owner, prompt)).Err()
}

// pendingKey hashes the prompt; the prompt itself is derived from every trip field.
func pendingKey(owner, prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return fmt.Sprintf(pendingKeyPrefix, owner, hex.EncodeToString(sum[:]))
}

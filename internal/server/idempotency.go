package server

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"golang.org/x/sync/singleflight"
)

// replay is a cached successful response.
type replay struct {
	bodyHash string
	status   int
	body     []byte
}

// Idempotency replays successful course responses for a repeated
// Idempotency-Key without running or charging the generation again.
// Concurrent requests with the same key share one generation.
type Idempotency struct {
	cache *ristretto.Cache[string, replay]
	ttl   time.Duration
	group singleflight.Group
}

// NewIdempotency creates a cache holding up to maxCostBytes of responses,
// each kept for ttl.
func NewIdempotency(maxCostBytes int64, ttl time.Duration) (*Idempotency, error) {
	counters := maxCostBytes / 1000 * 10 // ~10x expected items
	if counters < 100 {
		counters = 100
	}
	c, err := ristretto.NewCache(&ristretto.Config[string, replay]{
		NumCounters: counters,
		MaxCost:     maxCostBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("creating idempotency cache: %w", err)
	}
	return &Idempotency{cache: c, ttl: ttl}, nil
}

func (i *Idempotency) get(key string) (replay, bool) {
	return i.cache.Get(key)
}

func (i *Idempotency) put(key string, r replay) {
	i.cache.SetWithTTL(key, r, int64(len(r.body)), i.ttl)
	i.cache.Wait()
}

// Close releases the cache.
func (i *Idempotency) Close() {
	i.cache.Close()
}

func hashBody(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func idemKey(clientID, key string) string {
	return clientID + "|" + key
}

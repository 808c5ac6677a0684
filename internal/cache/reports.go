package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	redisInfra "github.com/codeclash/similitude/internal/infra/redis"
	"github.com/codeclash/similitude/internal/similarity"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const keyPrefix = "similitude:report:"

// ReportCache stores finished reports in Redis keyed by the pair digest,
// so a repeated comparison of identical inputs is answered without
// recomputation.
type ReportCache struct {
	client *redisInfra.Client
	ttl    time.Duration
}

func NewReportCache(client *redisInfra.Client, ttl time.Duration) *ReportCache {
	return &ReportCache{client: client, ttl: ttl}
}

// PairDigest hashes the two sources in order, length-prefixed so
// concatenation ambiguity cannot collide. The key is deliberately
// order-sensitive: match evidence is oriented (A vs B), so a reversed pair
// must not reuse the same entry.
func PairDigest(sourceA, sourceB string) string {
	h := sha256.New()
	fmt.Fprintf(h, "%d:", len(sourceA))
	h.Write([]byte(sourceA))
	fmt.Fprintf(h, "%d:", len(sourceB))
	h.Write([]byte(sourceB))
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached report for a digest, or nil on a miss.
func (c *ReportCache) Get(ctx context.Context, digest string) (*similarity.Report, error) {
	payload, err := c.client.Get(ctx, keyPrefix+digest).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cached report: %w", err)
	}

	var report similarity.Report
	if err := json.Unmarshal(payload, &report); err != nil {
		// A corrupt entry is dropped, not surfaced.
		log.Warn().Err(err).Str("digest", digest).Msg("Discarding undecodable cached report")
		c.client.Del(ctx, keyPrefix+digest)
		return nil, nil
	}
	return &report, nil
}

// Put stores a report under its digest with the configured TTL.
func (c *ReportCache) Put(ctx context.Context, digest string, report *similarity.Report) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if err := c.client.Set(ctx, keyPrefix+digest, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache report: %w", err)
	}
	return nil
}

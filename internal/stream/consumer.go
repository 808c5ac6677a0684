package stream

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/codeclash/similitude/internal/cache"
	"github.com/codeclash/similitude/internal/models"
	"github.com/codeclash/similitude/internal/repository"
	"github.com/codeclash/similitude/internal/similarity"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Consumer reads comparison submissions from a Redis stream, runs them
// through the engine and archives the reports. It is the asynchronous
// counterpart to the synchronous compare endpoint.
type Consumer struct {
	client       *redis.Client
	streamKey    string
	group        string
	consumerName string

	engine       *similarity.Engine
	comparisons  *repository.ComparisonsRepository
	reportCache  *cache.ReportCache
	retryHandler *RetryHandler

	retention           time.Duration
	cleanupInterval     time.Duration
	pelRecoveryInterval time.Duration
	lastPELCheck        time.Time
}

func NewConsumer(
	client *redis.Client,
	streamKey, group, consumerName string,
	engine *similarity.Engine,
	comparisons *repository.ComparisonsRepository,
	reportCache *cache.ReportCache,
	retryHandler *RetryHandler,
	retention time.Duration,
) *Consumer {
	return &Consumer{
		client:              client,
		streamKey:           streamKey,
		group:               group,
		consumerName:        consumerName,
		engine:              engine,
		comparisons:         comparisons,
		reportCache:         reportCache,
		retryHandler:        retryHandler,
		retention:           retention,
		cleanupInterval:     time.Hour,
		pelRecoveryInterval: 30 * time.Second,
		lastPELCheck:        time.Now(),
	}
}

// Start blocks, consuming until the context is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	if err := c.createConsumerGroup(ctx); err != nil {
		return err
	}

	// Reclaim submissions stranded by a crashed or restarted consumer.
	if err := c.recoverPEL(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to recover pending submissions on startup")
	}
	c.lastPELCheck = time.Now()

	go c.runCleanupPeriodically(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			if err := c.consume(ctx); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Msg("Error consuming submissions")
				time.Sleep(time.Second)
			}
		}
	}
}

func (c *Consumer) createConsumerGroup(ctx context.Context) error {
	err := c.client.XGroupCreateMkStream(ctx, c.streamKey, c.group, "$").Err()
	if err != nil {
		if strings.Contains(err.Error(), "BUSYGROUP") {
			log.Debug().Str("group", c.group).Msg("Consumer group already exists")
			return nil
		}
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	log.Info().
		Str("group", c.group).
		Str("stream", c.streamKey).
		Msg("Created consumer group")
	return nil
}

func (c *Consumer) consume(ctx context.Context) error {
	if time.Since(c.lastPELCheck) > c.pelRecoveryInterval {
		if err := c.recoverPEL(ctx); err != nil {
			log.Warn().Err(err).Msg("Failed to recover pending submissions")
		}
		c.lastPELCheck = time.Now()
	}

	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.group,
		Consumer: c.consumerName,
		Streams:  []string{c.streamKey, ">"},
		Count:    10,
		Block:    time.Second,
	}).Result()

	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read from stream: %w", err)
	}

	for _, stream := range streams {
		if stream.Stream != c.streamKey {
			continue
		}
		for _, msg := range stream.Messages {
			if err := c.processMessage(ctx, &msg); err != nil {
				log.Error().
					Err(err).
					Str("message_id", msg.ID).
					Msg("Failed to process submission")
			}
		}
	}

	return nil
}

// recoverPEL claims submissions left on the Pending Entry List by a
// consumer that died mid-processing, and runs them through the normal
// processing path.
func (c *Consumer) recoverPEL(ctx context.Context) error {
	pending, err := c.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: c.streamKey,
		Group:  c.group,
		Start:  "-",
		End:    "+",
		Count:  100,
	}).Result()
	if err != nil {
		if err == redis.Nil {
			return nil
		}
		return fmt.Errorf("failed to read pending entries: %w", err)
	}

	messageIDs := claimableIDs(pending, pelMinIdle)
	if len(messageIDs) == 0 {
		return nil
	}

	claimed, err := c.client.XClaim(ctx, &redis.XClaimArgs{
		Stream:   c.streamKey,
		Group:    c.group,
		Consumer: c.consumerName,
		MinIdle:  pelMinIdle,
		Messages: messageIDs,
	}).Result()
	if err != nil {
		return fmt.Errorf("failed to claim pending entries: %w", err)
	}
	if len(claimed) == 0 {
		return nil
	}

	log.Info().
		Int("claimed", len(claimed)).
		Msg("Reclaimed stranded submissions")

	for _, msg := range claimed {
		if err := c.processMessage(ctx, &msg); err != nil {
			log.Error().
				Err(err).
				Str("message_id", msg.ID).
				Msg("Failed to process reclaimed submission")
		}
	}
	return nil
}

// pelMinIdle is the idle time after which a pending entry is considered
// abandoned by its original consumer.
const pelMinIdle = time.Minute

// claimableIDs filters the pending entries down to those idle long enough
// to claim.
func claimableIDs(pending []redis.XPendingExt, minIdle time.Duration) []string {
	ids := make([]string, 0, len(pending))
	for _, p := range pending {
		if p.Idle >= minIdle {
			ids = append(ids, p.ID)
		}
	}
	return ids
}

func (c *Consumer) processMessage(ctx context.Context, msg *redis.XMessage) error {
	submission, err := parseSubmission(msg)
	if err != nil {
		log.Error().Err(err).Str("message_id", msg.ID).Msg("Dropping malformed submission")
		// Acknowledge so a bad message is never reprocessed.
		return c.acknowledge(ctx, msg.ID)
	}

	err = c.retryHandler.RetryWithBackoff(ctx, func() error {
		return c.processSubmission(ctx, submission)
	}, msg.ID, msg.Values)

	if err != nil {
		if ctx.Err() != nil {
			// Shutdown aborted the retries before any dead-lettering;
			// leave the entry pending so PEL recovery reclaims it.
			return err
		}
		// Attempts exhausted and parked on the dead-letter stream; ack
		// the original.
		_ = c.acknowledge(ctx, msg.ID)
		return err
	}

	return c.acknowledge(ctx, msg.ID)
}

func (c *Consumer) processSubmission(ctx context.Context, submission *models.StreamSubmission) error {
	report, err := c.engine.Compare(ctx,
		similarity.Submission{Name: submission.NameA, Source: submission.SourceA},
		similarity.Submission{Name: submission.NameB, Source: submission.SourceB},
	)
	if err != nil {
		return fmt.Errorf("comparison failed: %w", err)
	}

	digest := cache.PairDigest(submission.SourceA, submission.SourceB)

	if c.comparisons != nil {
		record := &models.ComparisonRecord{
			ComparisonID: submission.SubmissionID,
			Digest:       digest,
			Report:       report,
		}
		if err := c.comparisons.InsertComparison(ctx, record); err != nil {
			return err
		}
	}
	if c.reportCache != nil {
		if err := c.reportCache.Put(ctx, digest, report); err != nil {
			log.Warn().Err(err).Msg("Failed to cache stream report")
		}
	}

	log.Info().
		Str("submissionId", submission.SubmissionID).
		Float64("finalScore", report.Final).
		Str("rating", string(report.Rating)).
		Msg("Stream comparison completed")
	return nil
}

func parseSubmission(msg *redis.XMessage) (*models.StreamSubmission, error) {
	fields := make(map[string]string, len(msg.Values))
	for key, val := range msg.Values {
		if value, ok := val.(string); ok {
			fields[key] = value
		}
	}

	submission := &models.StreamSubmission{
		SubmissionID: fields["submissionId"],
		NameA:        fields["nameA"],
		SourceA:      fields["sourceA"],
		NameB:        fields["nameB"],
		SourceB:      fields["sourceB"],
	}
	if submission.SubmissionID == "" {
		submission.SubmissionID = uuid.New().String()
	}
	if _, ok := fields["sourceA"]; !ok {
		return nil, fmt.Errorf("submission %s missing sourceA", msg.ID)
	}
	if _, ok := fields["sourceB"]; !ok {
		return nil, fmt.Errorf("submission %s missing sourceB", msg.ID)
	}
	return submission, nil
}

// cleanupOldMessages trims entries older than the retention window.
func (c *Consumer) cleanupOldMessages(ctx context.Context) error {
	cutoff := time.Now().Add(-c.retention)
	minID := fmt.Sprintf("%d-0", cutoff.UnixMilli())

	trimmed, err := c.client.XTrimMinID(ctx, c.streamKey, minID).Result()
	if err != nil {
		return fmt.Errorf("failed to trim stream: %w", err)
	}
	if trimmed > 0 {
		log.Debug().
			Int64("trimmed", trimmed).
			Dur("retention", c.retention).
			Msg("Trimmed old stream entries")
	}
	return nil
}

func (c *Consumer) runCleanupPeriodically(ctx context.Context) {
	ticker := time.NewTicker(c.cleanupInterval)
	defer ticker.Stop()

	if err := c.cleanupOldMessages(ctx); err != nil {
		log.Error().Err(err).Msg("Failed initial stream cleanup")
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.cleanupOldMessages(ctx); err != nil {
				log.Error().Err(err).Msg("Failed stream cleanup")
			}
		}
	}
}

func (c *Consumer) acknowledge(ctx context.Context, messageID string) error {
	if err := c.client.XAck(ctx, c.streamKey, c.group, messageID).Err(); err != nil {
		log.Error().Err(err).Str("message_id", messageID).Msg("Failed to acknowledge message")
		return err
	}
	return nil
}

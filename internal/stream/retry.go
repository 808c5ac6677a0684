package stream

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	maxAttempts    = 3
	initialBackoff = 500 * time.Millisecond
)

// RetryHandler retries a failing submission with exponential backoff and
// parks it on the dead-letter stream when the attempts are exhausted.
type RetryHandler struct {
	client        *redis.Client
	deadLetterKey string
}

func NewRetryHandler(client *redis.Client, deadLetterKey string) *RetryHandler {
	return &RetryHandler{
		client:        client,
		deadLetterKey: deadLetterKey,
	}
}

// RetryWithBackoff runs fn up to maxAttempts times. On final failure the
// original message fields are appended to the dead-letter stream along
// with the error, and the last error is returned.
func (r *RetryHandler) RetryWithBackoff(
	ctx context.Context,
	fn func() error,
	messageID string,
	fields map[string]interface{},
) error {
	backoff := initialBackoff

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		log.Warn().
			Err(lastErr).
			Str("message_id", messageID).
			Int("attempt", attempt).
			Msg("Submission processing failed")

		if attempt == maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}

	r.deadLetter(ctx, messageID, fields, lastErr)
	return lastErr
}

func (r *RetryHandler) deadLetter(ctx context.Context, messageID string, fields map[string]interface{}, cause error) {
	values := make(map[string]interface{}, len(fields)+2)
	for k, v := range fields {
		values[k] = v
	}
	values["original_id"] = messageID
	values["error"] = cause.Error()

	if err := r.client.XAdd(ctx, &redis.XAddArgs{
		Stream: r.deadLetterKey,
		Values: values,
	}).Err(); err != nil {
		log.Error().Err(err).Str("message_id", messageID).Msg("Failed to write dead-letter entry")
		return
	}

	log.Info().Str("message_id", messageID).Msg("Submission moved to dead-letter stream")
}

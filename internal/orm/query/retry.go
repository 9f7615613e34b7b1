package query

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

const (
	// DefaultMaxAttempts is the default number of transaction attempts
	DefaultMaxAttempts = 3
	// DefaultBaseBackoff is the delay before the first retry; it doubles per attempt
	DefaultBaseBackoff = 50 * time.Millisecond
)

// ErrRetriesExhausted is returned when every attempt failed with a retryable error
var ErrRetriesExhausted = errors.New("transaction retries exhausted")

// RetryPolicy controls WithRetry
type RetryPolicy struct {
	MaxAttempts int
	BaseBackoff time.Duration
}

// DefaultRetryPolicy returns the default retry policy
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: DefaultMaxAttempts,
		BaseBackoff: DefaultBaseBackoff,
	}
}

// WithRetry runs fn in a transaction, starting over when it fails with a
// deadlock, serialization failure or busy database. Other errors return at once.
func (db *DB) WithRetry(ctx context.Context, policy RetryPolicy, fn func(tx *DB) error) error {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = DefaultMaxAttempts
	}

	var lastErr error
	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("transaction cancelled before attempt %d: %w", attempt+1, err)
		}

		err := db.WithTransaction(ctx, fn)
		if err == nil {
			return nil
		}
		if !IsRetryable(err) {
			return err
		}
		lastErr = err

		backoff := policy.BaseBackoff * time.Duration(1<<uint(attempt))
		db.logger.Debug("retrying transaction",
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", backoff),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return fmt.Errorf("transaction cancelled during retry: %w", ctx.Err())
		case <-time.After(backoff):
		}
	}

	return fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, policy.MaxAttempts, lastErr)
}

// SQLite primary result codes worth retrying
const (
	sqliteBusy   = 5
	sqliteLocked = 6
)

// IsRetryable reports whether err is a transient conflict a new transaction may avoid
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40P01" || pgErr.Code == "40001"
	}

	var coded interface{ Code() int }
	if errors.As(err, &coded) {
		switch coded.Code() & 0xff {
		case sqliteBusy, sqliteLocked:
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	for _, s := range []string{"deadlock detected", "could not serialize access", "database is locked"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

package dbretry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
)

var (
	maxElapsedTime  = 30 * time.Second
	initialInterval = 500 * time.Millisecond
	maxInterval     = 5 * time.Second
	maxRetries      = uint64(5)
)

// IsRetryableError checks if the given error is retryable.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	// Connection errors (class 08), serialization failures and deadlocks
	// (class 40), resource exhaustion (class 53) and operator intervention
	// (class 57) are worth retrying; everything else is permanent.
	var pgerr *pgdriver.Error
	if errors.As(err, &pgerr) {
		switch pgerr.Field('C') {
		case "08000", // connection_exception
			"08003", // connection_does_not_exist
			"08006", // connection_failure
			"08001", // sqlclient_unable_to_establish_sqlconnection
			"40001", // serialization_failure
			"40P01", // deadlock_detected
			"53300", // too_many_connections
			"57P01", // admin_shutdown
			"57P03", // cannot_connect_now
			"55P03": // lock_not_available
			return true
		}
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}

	// Network failures surface as plain error strings from the driver.
	errMsg := err.Error()

	return strings.Contains(errMsg, "connection reset by peer") ||
		strings.Contains(errMsg, "broken pipe") ||
		strings.Contains(errMsg, "connection refused") ||
		strings.Contains(errMsg, "i/o timeout") ||
		strings.Contains(errMsg, "EOF")
}

func retry(ctx context.Context, operation func() error) error {
	var lastErr error

	b := backoff.WithMaxRetries(backoff.NewExponentialBackOff(
		backoff.WithMaxElapsedTime(maxElapsedTime),
		backoff.WithInitialInterval(initialInterval),
		backoff.WithMaxInterval(maxInterval),
	), maxRetries)

	err := backoff.Retry(func() error {
		err := operation()
		if err != nil {
			if !IsRetryableError(err) {
				return backoff.Permanent(fmt.Errorf("non-retryable error: %w", err))
			}

			lastErr = err

			return err
		}

		return nil
	}, backoff.WithContext(b, ctx))
	if err != nil {
		if lastErr != nil {
			// Return the last actual database error instead of the retry error
			return fmt.Errorf("database operation failed after retries: %w", lastErr)
		}

		return fmt.Errorf("database operation failed: %w", err)
	}

	return nil
}

// Operation wraps a database operation that returns a result with retry logic.
func Operation[T any](ctx context.Context, operation func(context.Context) (T, error)) (T, error) {
	var result T

	err := retry(ctx, func() error {
		var err error
		result, err = operation(ctx)

		return err
	})

	return result, err
}

// NoResult wraps a database operation that doesn't return a result.
func NoResult(ctx context.Context, operation func(context.Context) error) error {
	return retry(ctx, func() error {
		return operation(ctx)
	})
}

// Transaction wraps a database transaction with retry logic.
func Transaction(ctx context.Context, db *bun.DB, fn func(context.Context, bun.Tx) error) error {
	return NoResult(ctx, func(ctx context.Context) error {
		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			return fn(ctx, tx)
		})
	})
}

package dbretry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rolewarden/rolewarden/internal/database/dbretry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsRetryableError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{name: "nil error", err: nil, retryable: false},
		{name: "deadline exceeded", err: context.DeadlineExceeded, retryable: true},
		{name: "context canceled", err: context.Canceled, retryable: true},
		{name: "connection reset", err: errors.New("read tcp: connection reset by peer"), retryable: true},
		{name: "broken pipe", err: errors.New("write: broken pipe"), retryable: true},
		{name: "connection refused", err: errors.New("dial tcp: connection refused"), retryable: true},
		{name: "io timeout", err: errors.New("read tcp: i/o timeout"), retryable: true},
		{name: "eof", err: errors.New("unexpected EOF"), retryable: true},
		{name: "constraint violation", err: errors.New("duplicate key value violates unique constraint"), retryable: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.retryable, dbretry.IsRetryableError(tt.err))
		})
	}
}

func TestOperationPermanentErrorShortCircuits(t *testing.T) {
	t.Parallel()

	permanent := errors.New("column does not exist")
	attempts := 0

	_, err := dbretry.Operation(t.Context(), func(context.Context) (int, error) {
		attempts++
		return 0, permanent
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, attempts)
}

func TestOperationRetriesTransientError(t *testing.T) {
	t.Parallel()

	attempts := 0

	result, err := dbretry.Operation(t.Context(), func(context.Context) (string, error) {
		attempts++
		if attempts == 1 {
			return "", errors.New("read tcp: i/o timeout")
		}

		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 2, attempts)
}

func TestNoResultSuccess(t *testing.T) {
	t.Parallel()

	called := false

	err := dbretry.NoResult(t.Context(), func(context.Context) error {
		called = true
		return nil
	})

	require.NoError(t, err)
	assert.True(t, called)
}

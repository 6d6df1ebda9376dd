package lending

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBusy = sqlite3.Error{Code: sqlite3.ErrBusy}

func TestRetryWithBackoff(t *testing.T) {
	fast := WithBaseDelay(time.Millisecond)

	t.Run("retries lock contention until success", func(t *testing.T) {
		calls := 0
		err := retryWithBackoff(context.Background(), func(context.Context) error {
			calls++
			if calls < 3 {
				return errBusy
			}
			return nil
		}, fast)

		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("fails fast on other errors", func(t *testing.T) {
		calls := 0
		err := retryWithBackoff(context.Background(), func(context.Context) error {
			calls++
			return ErrUnavailable
		}, fast)

		assert.ErrorIs(t, err, ErrUnavailable)
		assert.Equal(t, 1, calls)
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		calls := 0
		err := retryWithBackoff(context.Background(), func(context.Context) error {
			calls++
			return errBusy
		}, fast, WithMaxAttempts(4))

		assert.True(t, isLockContention(err))
		assert.Equal(t, 4, calls)
	})

	t.Run("stops when the context ends during backoff", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		err := retryWithBackoff(ctx, func(context.Context) error {
			return errBusy
		}, WithBaseDelay(time.Second))

		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("rejects invalid options", func(t *testing.T) {
		noop := func(context.Context) error { return nil }

		assert.ErrorIs(t, retryWithBackoff(context.Background(), noop, WithMaxAttempts(0)), ErrInvalidMaxAttempts)
		assert.ErrorIs(t, retryWithBackoff(context.Background(), noop, WithBaseDelay(-time.Second)), ErrNegativeBaseDelay)
	})
}

func TestClassify(t *testing.T) {
	expired, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name    string
		ctx     context.Context
		err     error
		wantErr error
	}{
		{"nil stays nil", context.Background(), nil, nil},
		{"domain errors pass through", context.Background(), ErrAlreadyBorrowed, ErrAlreadyBorrowed},
		{"integrity errors pass through", context.Background(), &IntegrityError{LoanIDs: []uint{1, 2}}, ErrIntegrityViolation},
		{"busy is transient", context.Background(), errBusy, ErrTransient},
		{"locked is transient", context.Background(), sqlite3.Error{Code: sqlite3.ErrLocked}, ErrTransient},
		{"interrupt is transient", context.Background(), sqlite3.Error{Code: sqlite3.ErrInterrupt}, ErrTransient},
		{"deadline is transient", context.Background(), context.DeadlineExceeded, ErrTransient},
		{"ended context is transient", expired, errors.New("sql: transaction has already been committed or rolled back"), ErrTransient},
		{"unique violation is already borrowed", context.Background(),
			sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique}, ErrAlreadyBorrowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classify(tt.ctx, tt.err)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	t.Run("unknown errors are kept", func(t *testing.T) {
		boom := errors.New("boom")
		err := classify(context.Background(), boom)
		assert.ErrorIs(t, err, boom)
		assert.NotErrorIs(t, err, ErrTransient)
	})
}

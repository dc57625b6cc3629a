package queue

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"distq/internal/tree"
)

func TestRetryPolicy(t *testing.T) {
	conflict := fmt.Errorf("commit: %w", tree.ErrConflict)

	t.Run("single retry budget", func(t *testing.T) {
		calls, recovers := 0, 0
		err := singleRetryPolicy.Do(t.Context(), func(int) error {
			calls++
			return conflict
		}, func() error {
			recovers++
			return nil
		})
		require.ErrorIs(t, err, tree.ErrConflict)
		require.Equal(t, 2, calls)
		require.Equal(t, 1, recovers)
	})

	t.Run("attempt numbers", func(t *testing.T) {
		var attempts []int
		err := RetryPolicy{Attempts: 3}.Do(t.Context(), func(attempt int) error {
			attempts = append(attempts, attempt)
			if attempt < 2 {
				return conflict
			}
			return nil
		}, nil)
		require.NoError(t, err)
		require.Equal(t, []int{0, 1, 2}, attempts)
	})

	t.Run("non conflict is final", func(t *testing.T) {
		calls := 0
		boom := errors.New("boom")
		err := singleRetryPolicy.Do(t.Context(), func(int) error {
			calls++
			return boom
		}, nil)
		require.ErrorIs(t, err, boom)
		require.Equal(t, 1, calls)
	})

	t.Run("zero attempts runs once", func(t *testing.T) {
		calls := 0
		_ = RetryPolicy{}.Do(t.Context(), func(int) error {
			calls++
			return conflict
		}, nil)
		require.Equal(t, 1, calls)
	})

	t.Run("recover failure stops", func(t *testing.T) {
		calls := 0
		err := singleRetryPolicy.Do(t.Context(), func(int) error {
			calls++
			return conflict
		}, func() error { return errors.New("refresh failed") })
		require.ErrorContains(t, err, "refresh failed")
		require.Equal(t, 1, calls)
	})

	t.Run("canceled context stops", func(t *testing.T) {
		ctx, cancel := context.WithCancel(t.Context())
		calls := 0
		err := singleRetryPolicy.Do(ctx, func(int) error {
			calls++
			cancel()
			return conflict
		}, nil)
		require.ErrorIs(t, err, context.Canceled)
		require.Equal(t, 1, calls)
	})
}

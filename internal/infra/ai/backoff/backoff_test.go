package backoff

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domai "github.com/bryanwahyu/neurolint/internal/domain/ai"
)

func fastBase(t *testing.T) {
	t.Helper()
	old := Base
	Base = time.Millisecond
	t.Cleanup(func() { Base = old })
}

func TestDo_RetriesRateLimitThenSucceeds(t *testing.T) {
	fastBase(t)
	calls := 0
	err := Do(context.Background(), 3, func() error {
		calls++
		if calls < 3 {
			return &StatusError{Provider: "test", Code: 429}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_DoesNotRetryAuth(t *testing.T) {
	fastBase(t)
	calls := 0
	err := Do(context.Background(), 3, func() error {
		calls++
		return &StatusError{Provider: "test", Code: 401, Body: "bad key"}
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, domai.ErrUpstreamAuth)
}

func TestDo_ExhaustsRetries(t *testing.T) {
	fastBase(t)
	calls := 0
	err := Do(context.Background(), 2, func() error {
		calls++
		return &StatusError{Provider: "test", Code: 429}
	})
	assert.Equal(t, 3, calls)
	assert.ErrorIs(t, err, domai.ErrQuotaExceeded)
}

func TestDo_PlainErrorsAreNotRetried(t *testing.T) {
	calls := 0
	boom := errors.New("boom")
	err := Do(context.Background(), 3, func() error {
		calls++
		return boom
	})
	assert.Same(t, boom, err)
	assert.Equal(t, 1, calls)
}

func TestDo_StopsOnContextCancel(t *testing.T) {
	old := Base
	Base = time.Hour
	t.Cleanup(func() { Base = old })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Do(ctx, 3, func() error { return &StatusError{Provider: "test", Code: 503} })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCheckStatus(t *testing.T) {
	assert.NoError(t, CheckStatus("x", 200, nil))

	err := CheckStatus("x", 500, []byte("oops"))
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.True(t, se.Retryable())
	assert.Contains(t, err.Error(), "status 500")
}

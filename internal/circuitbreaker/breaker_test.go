package circuitbreaker

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"result-cache/internal/common/errors"
	"result-cache/internal/common/logging"
)

func testConfig() Config {
	return Config{
		MaxFailures:           2,
		Timeout:               50 * time.Millisecond,
		MaxConcurrentRequests: 1,
	}
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
	assert.Error(t, Config{MaxFailures: 0, Timeout: time.Second, MaxConcurrentRequests: 1}.Validate())
	assert.Error(t, Config{MaxFailures: 1, Timeout: 0, MaxConcurrentRequests: 1}.Validate())
	assert.Error(t, Config{MaxFailures: 1, Timeout: time.Second, MaxConcurrentRequests: 0}.Validate())
}

func TestBreaker(t *testing.T) {
	logger := logging.NewNopLogger()
	ctx := context.Background()

	t.Run("starts closed and passes calls through", func(t *testing.T) {
		cb := New("test-basic", testConfig(), logger)
		assert.Equal(t, StateClosed, cb.State())
		assert.Equal(t, "test-basic", cb.Name())

		called := false
		err := cb.Execute(ctx, func() error {
			called = true
			return nil
		})
		assert.NoError(t, err)
		assert.True(t, called)
	})

	t.Run("opens after consecutive retryable failures", func(t *testing.T) {
		cb := New("test-open", testConfig(), logger)

		for i := 0; i < 2; i++ {
			err := cb.Execute(ctx, func() error {
				return errors.ConnectionError("dial failed", fmt.Errorf("failure %d", i))
			})
			assert.Error(t, err)
		}
		assert.Equal(t, StateOpen, cb.State())

		err := cb.Execute(ctx, func() error {
			t.Fatal("should not be called while open")
			return nil
		})
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrTypeUnavailable))
		assert.Contains(t, err.Error(), "open")
	})

	t.Run("permanent failures do not trip", func(t *testing.T) {
		cb := New("test-permanent", testConfig(), logger)

		for i := 0; i < 5; i++ {
			err := cb.Execute(ctx, func() error {
				return errors.SerializationError("bad payload", nil)
			})
			assert.True(t, errors.IsType(err, errors.ErrTypeSerialization))
		}
		assert.Equal(t, StateClosed, cb.State())
	})

	t.Run("recovers through half-open", func(t *testing.T) {
		cb := New("test-recover", testConfig(), logger)

		for i := 0; i < 2; i++ {
			_ = cb.Execute(ctx, func() error { return errors.TimeoutError("GET", nil) })
		}
		require.Equal(t, StateOpen, cb.State())

		time.Sleep(80 * time.Millisecond)
		assert.Equal(t, StateHalfOpen, cb.State())

		assert.NoError(t, cb.Execute(ctx, func() error { return nil }))
		assert.Equal(t, StateClosed, cb.State())
	})

	t.Run("caller cancellation does not trip", func(t *testing.T) {
		cb := New("test-canceled", testConfig(), logger)

		for i := 0; i < 5; i++ {
			err := cb.Execute(ctx, func() error {
				return errors.CanceledError("GET", context.Canceled)
			})
			assert.True(t, errors.IsType(err, errors.ErrTypeCanceled))
		}
		assert.Equal(t, StateClosed, cb.State())

		assert.NoError(t, cb.Execute(ctx, func() error { return nil }))
	})

	t.Run("done context skips the call", func(t *testing.T) {
		cb := New("test-done", testConfig(), logger)

		cancelled, cancel := context.WithCancel(context.Background())
		cancel()

		for i := 0; i < 5; i++ {
			err := cb.Execute(cancelled, func() error {
				t.Fatal("should not be called with a done context")
				return nil
			})
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrTypeCanceled))
			assert.ErrorIs(t, err, context.Canceled)
		}
		assert.Equal(t, StateClosed, cb.State())
	})

	t.Run("invalid config falls back to defaults", func(t *testing.T) {
		cb := New("test-invalid", Config{}, nil)
		assert.Equal(t, StateClosed, cb.State())
	})
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
	assert.Equal(t, "unknown", State(9).String())
}

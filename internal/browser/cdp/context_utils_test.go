// internal/browser/cdp/context_utils_test.go
package cdp

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ctxKey string

func TestCombineContext(t *testing.T) {
	const key ctxKey = "target"

	t.Run("values come from master", func(t *testing.T) {
		master := context.WithValue(context.Background(), key, "tab-1")
		combined, cancel := CombineContext(master, context.Background())
		defer cancel()

		assert.Equal(t, "tab-1", combined.Value(key))
		assert.NoError(t, combined.Err())
	})

	t.Run("canceled by master", func(t *testing.T) {
		master, cancelMaster := context.WithCancel(context.Background())
		combined, cancel := CombineContext(master, context.Background())
		defer cancel()

		cancelMaster()
		assert.Eventually(t, func() bool { return combined.Err() != nil }, time.Second, 5*time.Millisecond)
		assert.ErrorIs(t, combined.Err(), context.Canceled)
	})

	t.Run("canceled when the operation deadline passes", func(t *testing.T) {
		op, cancelOp := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancelOp()
		combined, cancel := CombineContext(context.Background(), op)
		defer cancel()

		select {
		case <-combined.Done():
		case <-time.After(time.Second):
			t.Fatal("combined context outlived the operation deadline")
		}
		assert.ErrorIs(t, combined.Err(), context.Canceled)
	})

	t.Run("master deadline is inherited", func(t *testing.T) {
		deadline := time.Now().Add(time.Minute)
		master, cancelMaster := context.WithDeadline(context.Background(), deadline)
		defer cancelMaster()
		combined, cancel := CombineContext(master, context.Background())
		defer cancel()

		got, ok := combined.Deadline()
		require.True(t, ok)
		assert.WithinDuration(t, deadline, got, time.Millisecond)
	})

	t.Run("explicit cancel stops the watcher", func(t *testing.T) {
		combined, cancel := CombineContext(context.Background(), context.Background())
		cancel()
		assert.ErrorIs(t, combined.Err(), context.Canceled)
	})
}

func TestDetach(t *testing.T) {
	const key ctxKey = "alloc"
	parent, cancel := context.WithTimeout(context.WithValue(context.Background(), key, "v"), time.Millisecond)
	defer cancel()
	detached := Detach(parent)

	<-parent.Done()
	assert.NoError(t, detached.Err())
	assert.Nil(t, detached.Done())
	_, ok := detached.Deadline()
	assert.False(t, ok)
	assert.Equal(t, "v", detached.Value(key))
}

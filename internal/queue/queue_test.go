package queue

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEnqueueAndHandle(t *testing.T) {
	q := New(16, 3)

	var mu sync.Mutex
	var handled []string
	q.Start(1, func(username string) error {
		mu.Lock()
		handled = append(handled, username)
		mu.Unlock()
		return nil
	})

	q.Enqueue("thomas")
	q.Enqueue("other")
	q.Stop()

	require.ElementsMatch(t, []string{"thomas", "other"}, handled)
}

func TestRetryUntilSuccess(t *testing.T) {
	q := New(16, 3)

	var attempts atomic.Int32
	q.Start(1, func(username string) error {
		if attempts.Add(1) < 3 {
			return errors.New("transient")
		}
		return nil
	})

	q.Enqueue("thomas")
	require.Eventually(t, func() bool {
		return attempts.Load() == 3
	}, 2*time.Second, 10*time.Millisecond)

	q.Stop()
	require.EqualValues(t, 3, attempts.Load())
}

func TestGiveUpAfterMaxAttempts(t *testing.T) {
	q := New(16, 2)

	var attempts atomic.Int32
	q.Start(1, func(username string) error {
		attempts.Add(1)
		return errors.New("persistent")
	})

	q.Enqueue("thomas")
	require.Eventually(t, func() bool {
		return attempts.Load() == 2
	}, 2*time.Second, 10*time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	q.Stop()
	require.EqualValues(t, 2, attempts.Load())
}

func TestEnqueueAfterStop(t *testing.T) {
	q := New(16, 3)

	var handled atomic.Int32
	q.Start(1, func(username string) error {
		handled.Add(1)
		return nil
	})
	q.Stop()

	// must not panic, the task is dropped
	q.Enqueue("thomas")
	require.EqualValues(t, 0, handled.Load())
}

package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPutGetForget(t *testing.T) {
	s, err := NewStore()
	require.NoError(t, err)

	_, ok := s.Get("gists.thomas")
	require.False(t, ok)

	require.NoError(t, s.Put("gists.thomas", []string{"g1", "g2"}, time.Minute))
	v, ok := s.Get("gists.thomas")
	require.True(t, ok)
	require.Equal(t, []string{"g1", "g2"}, v)
	require.True(t, s.Has("gists.thomas"))

	require.NoError(t, s.Forget("gists.thomas"))
	require.False(t, s.Has("gists.thomas"))
}

func TestEntryExpiry(t *testing.T) {
	s, err := NewStore()
	require.NoError(t, err)

	require.NoError(t, s.Put("gists.thomas", "value", 10*time.Millisecond))
	require.True(t, s.Has("gists.thomas"))

	time.Sleep(20 * time.Millisecond)
	require.False(t, s.Has("gists.thomas"))
}

func TestClaim(t *testing.T) {
	s, err := NewStore()
	require.NoError(t, err)

	require.True(t, s.TryClaim("thomas", time.Minute))
	require.False(t, s.TryClaim("thomas", time.Minute))

	// claims are per username
	require.True(t, s.TryClaim("other", time.Minute))

	s.Release("thomas")
	require.True(t, s.TryClaim("thomas", time.Minute))
}

func TestClaimExpiry(t *testing.T) {
	s, err := NewStore()
	require.NoError(t, err)

	require.True(t, s.TryClaim("thomas", 10*time.Millisecond))
	require.False(t, s.TryClaim("thomas", time.Minute))

	// an expired claim is reclaimable, as if the refresh holding it crashed
	time.Sleep(20 * time.Millisecond)
	require.True(t, s.TryClaim("thomas", time.Minute))
}

func TestConcurrentClaims(t *testing.T) {
	s, err := NewStore()
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	granted := 0

	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.TryClaim("thomas", time.Minute) {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, granted)
}

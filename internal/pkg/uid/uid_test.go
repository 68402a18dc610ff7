package uid

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnowflake(t *testing.T) {
	t.Run("UniqueUnderConcurrency", func(t *testing.T) {
		gen, err := NewSnowflakeWithNode(1)
		require.NoError(t, err)

		var mu sync.Mutex
		seen := make(map[int64]struct{})
		var wg sync.WaitGroup
		for range 8 {
			wg.Go(func() {
				for range 500 {
					id := gen.Generate()
					mu.Lock()
					seen[id] = struct{}{}
					mu.Unlock()
				}
			})
		}
		wg.Wait()

		assert.Len(t, seen, 8*500)
	})

	t.Run("InvalidNode", func(t *testing.T) {
		_, err := NewSnowflakeWithNode(4096)
		require.Error(t, err)
	})
}

func TestToken(t *testing.T) {
	t.Run("LengthAndAlphabet", func(t *testing.T) {
		tok := NewToken(32).Generate()
		assert.Len(t, tok, 43)
		assert.Regexp(t, `^[A-Za-z0-9_-]+$`, tok)
	})

	t.Run("SmallSizeRaised", func(t *testing.T) {
		assert.Len(t, NewToken(4).Generate(), 43)
	})

	t.Run("Unique", func(t *testing.T) {
		gen := NewToken(0)
		seen := make(map[string]struct{}, 1000)
		for range 1000 {
			seen[gen.Generate()] = struct{}{}
		}
		assert.Len(t, seen, 1000)
	})
}

func TestNodeNumberInRange(t *testing.T) {
	n := nodeNumber()
	assert.GreaterOrEqual(t, n, int64(0))
	assert.Less(t, n, int64(1024))
}

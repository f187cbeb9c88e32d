package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFixedTokenGenerator_ReturnsSameToken(t *testing.T) {
	gen := NewFixedTokenGenerator("scenario-123")

	assert.Equal(t, "scenario-123", gen.Generate())
	assert.Equal(t, "scenario-123", gen.Generate())
}

func TestFixedTokenGenerator_EmptyTokenDefault(t *testing.T) {
	gen := NewFixedTokenGenerator("")
	assert.Equal(t, "test-token-default", gen.Generate())
}

func TestFixedTokenGenerator_ThreadSafe(t *testing.T) {
	gen := NewFixedTokenGenerator("thread-safe-token")

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				assert.Equal(t, "thread-safe-token", gen.Generate())
			}
		}()
	}
	wg.Wait()
}

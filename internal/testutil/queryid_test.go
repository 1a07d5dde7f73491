package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFixedQueryIDGenerator(t *testing.T) {
	g := NewFixedQueryIDGenerator("q-1")
	assert.Equal(t, "q-1", g.Generate())
	assert.Equal(t, "q-1", g.Generate())
}

func TestFixedQueryIDGenerator_Default(t *testing.T) {
	assert.Equal(t, "test-query-default", NewFixedQueryIDGenerator("").Generate())
}

func TestFixedQueryIDGenerator_Concurrent(t *testing.T) {
	g := NewFixedQueryIDGenerator("q-1")
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, "q-1", g.Generate())
		}()
	}
	wg.Wait()
}

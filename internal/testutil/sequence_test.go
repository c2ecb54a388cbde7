package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSequenceGenerator_StartsAtOne(t *testing.T) {
	gen := NewSequenceGenerator("")
	assert.Equal(t, int64(0), gen.Current())
	assert.Equal(t, "op-1", gen.Generate())
	assert.Equal(t, "op-2", gen.Generate())
	assert.Equal(t, int64(2), gen.Current())
}

func TestSequenceGenerator_Prefix(t *testing.T) {
	gen := NewSequenceGenerator("scn")
	assert.Equal(t, "scn-1", gen.Generate())
}

func TestSequenceGenerator_Reset(t *testing.T) {
	gen := NewSequenceGenerator("op")
	gen.Generate()
	gen.Generate()
	gen.Reset()
	assert.Equal(t, int64(0), gen.Current())
	assert.Equal(t, "op-1", gen.Generate())
}

func TestSequenceGenerator_Concurrent(t *testing.T) {
	gen := NewSequenceGenerator("op")
	var wg sync.WaitGroup
	seen := sync.Map{}

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := gen.Generate()
			_, dup := seen.LoadOrStore(id, true)
			assert.False(t, dup, "duplicate id %s", id)
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(50), gen.Current())
}

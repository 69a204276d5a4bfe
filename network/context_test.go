package network

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActiveStackPushIsImmutable(t *testing.T) {
	base := context.Background()
	outer := New(WithName("outer"))
	inner := New(WithName("inner"))

	ctx1 := WithActive(base, outer)
	ctx2 := WithActive(ctx1, inner)

	_, ok := Active(base)
	assert.False(t, ok, "base context never sees a network")

	got1, ok := Active(ctx1)
	require.True(t, ok)
	assert.Equal(t, outer.ID(), got1.ID())

	got2, ok := Active(ctx2)
	require.True(t, ok)
	assert.Equal(t, inner.ID(), got2.ID(), "innermost network is active")

	stack := ActiveStack(ctx2)
	require.Len(t, stack, 2)
	assert.Equal(t, outer.ID(), stack[0].ID())
	assert.Equal(t, inner.ID(), stack[1].ID())

	// Pushing onto ctx1 never mutated it.
	assert.Len(t, ActiveStack(ctx1), 1)
}

func TestActiveStackIsolatedAcrossGoroutines(t *testing.T) {
	base := context.Background()
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			own := New()
			ctx := WithActive(base, own)
			for j := 0; j < 100; j++ {
				got, ok := Active(ctx)
				if !ok || got.ID() != own.ID() {
					t.Errorf("goroutine observed foreign active network")
					return
				}
			}
		}()
	}
	wg.Wait()
}

package memory_test

import (
	"context"
	"sync"
	"testing"

	"github.com/fredclo/Gestion-Comptable-Immobiliation/store"
	"github.com/fredclo/Gestion-Comptable-Immobiliation/store/memory"
	"github.com/fredclo/Gestion-Comptable-Immobiliation/store/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store { return memory.New() })
}

func TestStore_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.SaveAsset(ctx, storetest.SampleRecord("A1")))
		}()
		go func() {
			defer wg.Done()
			_, err := s.ListAssets(ctx)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	all, err := s.ListAssets(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

package match

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OCAP2/dogfight/internal/geo"
	"github.com/OCAP2/dogfight/pkg/core"
)

func TestContextLifecycle(t *testing.T) {
	c := NewContext()
	assert.Nil(t, c.Match())
	assert.Empty(t, c.SessionID())

	m := &core.Match{SessionID: "abc", OriginLat: 45, OriginLon: 7}
	require.NoError(t, c.Start(m))
	assert.Same(t, m, c.Match())
	assert.Equal(t, "abc", c.SessionID())
	assert.Equal(t, 45.0, c.Origin().Lat)

	assert.Same(t, m, c.End())
	assert.Nil(t, c.Match())
	assert.Nil(t, c.End())
}

func TestStartRejectsBadOrigin(t *testing.T) {
	c := NewContext()
	err := c.Start(&core.Match{OriginLat: 91})
	assert.ErrorIs(t, err, geo.ErrInvalidCoordinates)
	assert.Nil(t, c.Match())
}

func TestContext_ThreadSafe(t *testing.T) {
	c := NewContext()
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = c.Start(&core.Match{ID: uint(i)})
		}()
		go func() {
			defer wg.Done()
			_ = c.SessionID()
			_ = c.Origin()
		}()
	}
	wg.Wait()
	assert.NotNil(t, c.Match())
}

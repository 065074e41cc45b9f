package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"texture-extractor/internal/opencv/safe"
)

func newMat(t *testing.T, rows, cols int, matType gocv.MatType, tag string) (*safe.Mat, error) {
	t.Helper()
	return safe.Adopt(gocv.NewMatWithSize(rows, cols, matType), tag)
}

func TestTrackAndRelease(t *testing.T) {
	m := NewManager(0)

	mat, err := newMat(t, 4, 5, gocv.MatTypeCV8UC3, "test")
	require.NoError(t, err)
	require.NoError(t, m.Track(mat))

	stats := m.GetStats()
	assert.Equal(t, int64(60), stats.TotalAllocated)
	assert.Equal(t, int64(1), stats.ActiveMats)
	assert.Equal(t, DefaultMaxBytes, stats.MaxAllowed)

	m.Release(mat)
	assert.False(t, mat.IsValid())

	stats = m.GetStats()
	assert.Equal(t, int64(0), stats.InUse())
	assert.Equal(t, int64(0), stats.ActiveMats)
	assert.Equal(t, int64(1), stats.PeakActiveMats)
}

func TestTrackEnforcesLimit(t *testing.T) {
	m := NewManager(100)

	first, err := newMat(t, 8, 8, gocv.MatTypeCV8UC1, "first")
	require.NoError(t, err)
	require.NoError(t, m.Track(first))

	second, err := newMat(t, 8, 8, gocv.MatTypeCV8UC1, "second")
	require.NoError(t, err)
	assert.ErrorContains(t, m.Track(second), "memory limit exceeded")
	assert.False(t, second.IsValid())

	m.Release(first)
	third, err := newMat(t, 8, 8, gocv.MatTypeCV8UC1, "third")
	require.NoError(t, err)
	assert.NoError(t, m.Track(third))
	m.Release(third)
}

func TestCleanupClosesLeakedMats(t *testing.T) {
	m := NewManager(0)

	for i := 0; i < 3; i++ {
		mat, err := newMat(t, 2, 2, gocv.MatTypeCV8UC1, "leak")
		require.NoError(t, err)
		require.NoError(t, m.Track(mat))
	}

	assert.Equal(t, 3, m.Cleanup())
	assert.Equal(t, int64(0), m.GetStats().ActiveMats)
	assert.Equal(t, 0, m.Cleanup())
}

package timing

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackerSummary(t *testing.T) {
	tr := NewTracker()
	tr.Record("glcm_build", 2*time.Millisecond)
	tr.Record("glcm_build", 4*time.Millisecond)
	tr.Record("decode", time.Millisecond)

	stats := tr.Summary()
	require.Len(t, stats, 2)

	assert.Equal(t, "decode", stats[0].Operation)
	assert.Equal(t, "glcm_build", stats[1].Operation)
	assert.Equal(t, 2, stats[1].Count)
	assert.Equal(t, 6*time.Millisecond, stats[1].Total)
	assert.Equal(t, 3*time.Millisecond, stats[1].Average)
	assert.Equal(t, 4*time.Millisecond, stats[1].Max)
	assert.Equal(t, 3*time.Millisecond, tr.GetAverageTime("glcm_build"))
}

func TestTrackerStartEndConcurrent(t *testing.T) {
	tr := NewTracker()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx := tr.StartTiming("extract")
			tr.EndTiming(ctx)
		}()
	}
	wg.Wait()

	assert.Len(t, tr.GetTimings("extract"), 8)
}

func TestTrackerDisabledAndReset(t *testing.T) {
	tr := NewTracker()
	tr.SetEnabled(false)
	tr.EndTiming(tr.StartTiming("ignored"))
	assert.Empty(t, tr.Summary())

	tr.SetEnabled(true)
	tr.Record("a", time.Second)
	tr.Record("b", time.Second)
	tr.Reset("a")
	assert.Nil(t, tr.GetTimings("a"))
	tr.Reset("")
	assert.Empty(t, tr.Summary())
}

func TestNopRecordsNothing(t *testing.T) {
	var n Nop
	ctx := n.StartTiming("anything")
	require.NotNil(t, ctx)
	assert.Nil(t, ctx.Value(timingKey{}))
	n.EndTiming(ctx)
}

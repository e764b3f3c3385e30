package pilot_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pilotcsp.dev/pilot"
	"pilotcsp.dev/pilot/pkg/transport/local"
)

// TestSelectReturnsTheReadyChannel builds a select bundle over two
// channels (one per writer rank) and has only rank 2 ever write; Select
// on rank 0 must block until rank 2's channel specifically has data, and
// TrySelect must report nothing before that write happens.
func TestSelectReturnsTheReadyChannel(t *testing.T) {
	world := local.NewWorld(3)
	var wg sync.WaitGroup
	var tryBefore bool
	var tryErr, selectErr error
	var selected, wantChan *pilot.Channel
	release := make(chan struct{})

	wg.Add(3)

	// rank 0: narrow consumer
	go func() {
		defer wg.Done()
		ctx := pilot.New(world.Rank(0), false).WithErrorMode(pilot.ReturnOnError)
		_, _, err := ctx.Configure(nil)
		require.NoError(t, err)
		w1, err := ctx.CreateProcess(func(int, any) int { return 0 }, 0, nil)
		require.NoError(t, err)
		w2, err := ctx.CreateProcess(func(int, any) int { return 0 }, 0, nil)
		require.NoError(t, err)
		ch1, err := ctx.CreateChannel(w1, ctx.Base(), "from1")
		require.NoError(t, err)
		ch2, err := ctx.CreateChannel(w2, ctx.Base(), "from2")
		require.NoError(t, err)
		bundle, err := ctx.CreateSelectBundle(ctx.Base(), []*pilot.Channel{ch1, ch2})
		require.NoError(t, err)
		wantChan = ch2

		require.NoError(t, ctx.StartAll())
		_, tryBefore, tryErr = ctx.TrySelect(bundle)
		close(release)
		selected, selectErr = ctx.Select(bundle)
		require.NoError(t, ctx.StopMain(0))
	}()

	// rank 1: silent writer
	go func() {
		defer wg.Done()
		ctx := pilot.New(world.Rank(1), false).WithErrorMode(pilot.ReturnOnError)
		_, _, err := ctx.Configure(nil)
		require.NoError(t, err)
		p1, err := ctx.CreateProcess(func(int, any) int { return 0 }, 0, nil)
		require.NoError(t, err)
		p2, err := ctx.CreateProcess(func(int, any) int { return 0 }, 0, nil)
		require.NoError(t, err)
		_, err = ctx.CreateChannel(p1, ctx.Base(), "from1")
		require.NoError(t, err)
		_, err = ctx.CreateChannel(p2, ctx.Base(), "from2")
		require.NoError(t, err)
		require.NoError(t, ctx.StartAll())
	}()

	// rank 2: sends once released
	go func() {
		defer wg.Done()
		ctx := pilot.New(world.Rank(2), false).WithErrorMode(pilot.ReturnOnError)
		var ch2 *pilot.Channel
		workFn := func(int, any) int {
			<-release
			require.NoError(t, ctx.Write(ch2, "%i", 1))
			return 0
		}
		_, _, err := ctx.Configure(nil)
		require.NoError(t, err)
		p1, err := ctx.CreateProcess(func(int, any) int { return 0 }, 0, nil)
		require.NoError(t, err)
		w2, err := ctx.CreateProcess(workFn, 0, nil)
		require.NoError(t, err)
		_, err = ctx.CreateChannel(p1, ctx.Base(), "from1")
		require.NoError(t, err)
		ch2, err = ctx.CreateChannel(w2, ctx.Base(), "from2")
		require.NoError(t, err)
		require.NoError(t, ctx.StartAll())
	}()

	wg.Wait()

	require.NoError(t, tryErr)
	require.NoError(t, selectErr)
	assert.False(t, tryBefore)
	assert.Equal(t, wantChan.WriterRank(), selected.WriterRank())
}

package pilot_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pilotcsp.dev/pilot"
	"pilotcsp.dev/pilot/pkg/transport"
	"pilotcsp.dev/pilot/pkg/transport/local"
)

func sumOp() transport.ReduceOp {
	return transport.ReduceOp{Code: transport.OpSum, Func: func(a, b any) any {
		return a.(int32) + b.(int32)
	}}
}

// TestReduceCombinesWriterContributions runs a 3-rank world where every
// rank builds the identical channel/bundle topology against its own
// Context (the SPMD pattern every real topology follows), so tags and
// membership agree without any shared data structure. Rank 0 is the
// narrow consumer; ranks 1 and 2 each contribute a value that the
// reference transport combines with sumOp before forwarding to rank 0.
func TestReduceCombinesWriterContributions(t *testing.T) {
	world := local.NewWorld(3)
	var wg sync.WaitGroup
	var result any
	var reduceErr error
	wg.Add(3)

	for r := 0; r < 3; r++ {
		r := r
		go func() {
			defer wg.Done()
			ctx := pilot.New(world.Rank(r), false).WithErrorMode(pilot.ReturnOnError)
			_, _, err := ctx.Configure(nil)
			require.NoError(t, err)

			var bundle *pilot.Bundle
			// Ranks other than 0 must contribute inside their own work
			// function: StartAll dispatches a non-base rank's work and
			// then stops it before StartAll returns to this goroutine, so
			// any call that needs PhaseRunning has to live in the closure.
			contribute := func(int, any) int {
				_, err := ctx.Reduce(bundle, "%i", sumOp(), int32(r*10))
				require.NoError(t, err)
				return 0
			}

			workers := make([]*pilot.Process, 0, 2)
			for i := 0; i < 2; i++ {
				var w *pilot.Process
				var err error
				if r != 0 && i == r-1 {
					w, err = ctx.CreateProcess(contribute, 0, nil)
				} else {
					w, err = ctx.CreateProcess(func(int, any) int { return 0 }, 0, nil)
				}
				require.NoError(t, err)
				workers = append(workers, w)
			}

			chans := make([]*pilot.Channel, 0, 2)
			for _, w := range workers {
				ch, err := ctx.CreateChannel(w, ctx.Base(), "contrib")
				require.NoError(t, err)
				chans = append(chans, ch)
			}
			bundle, err = ctx.CreateReduceBundle(ctx.Base(), chans)
			require.NoError(t, err)

			require.NoError(t, ctx.StartAll())
			if r == 0 {
				val, err := ctx.Reduce(bundle, "%i", sumOp(), int32(0))
				reduceErr = err
				result = val
				require.NoError(t, ctx.StopMain(0))
			}
		}()
	}
	wg.Wait()
	require.NoError(t, reduceErr)
	assert.Equal(t, int32(30), result.(int32)) // 1*10 + 2*10
}

// TestChannelHasDataReportsWithoutConsuming runs both endpoints as real
// ranks: rank 1 writes once then blocks so rank 0 can observe the probe
// toggle from false to true, and confirm Probe doesn't consume the
// message before the following Read does.
func TestChannelHasDataReportsWithoutConsuming(t *testing.T) {
	world := local.NewWorld(2)
	var wg sync.WaitGroup
	var beforeWrite, afterWrite, stillThere bool
	var probeErr1, probeErr2, probeErr3, readErr error
	var got int32
	writerReady := make(chan struct{})
	proceedToWrite := make(chan struct{})

	wg.Add(2)
	go func() {
		defer wg.Done()
		ctx := pilot.New(world.Rank(0), false).WithErrorMode(pilot.ReturnOnError)
		_, _, err := ctx.Configure(nil)
		require.NoError(t, err)
		worker, err := ctx.CreateProcess(func(int, any) int { return 0 }, 0, nil)
		require.NoError(t, err)
		ch, err := ctx.CreateChannel(worker, ctx.Base(), "probe-target")
		require.NoError(t, err)
		require.NoError(t, ctx.StartAll())

		beforeWrite, probeErr1 = ctx.ChannelHasData(ch)
		close(proceedToWrite)
		<-writerReady

		for {
			has, err := ctx.ChannelHasData(ch)
			probeErr2 = err
			if has || err != nil {
				afterWrite = has
				break
			}
		}
		stillThere, probeErr3 = ctx.ChannelHasData(ch)
		readErr = ctx.Read(ch, "%i", &got)

		require.NoError(t, ctx.StopMain(0))
	}()
	go func() {
		defer wg.Done()
		ctx := pilot.New(world.Rank(1), false).WithErrorMode(pilot.ReturnOnError)
		var ch *pilot.Channel
		workFn := func(int, any) int {
			<-proceedToWrite
			err := ctx.Write(ch, "%i", int32(9))
			require.NoError(t, err)
			close(writerReady)
			return 0
		}
		_, _, err := ctx.Configure(nil)
		require.NoError(t, err)
		worker, err := ctx.CreateProcess(workFn, 0, nil)
		require.NoError(t, err)
		ch, err = ctx.CreateChannel(worker, ctx.Base(), "probe-target")
		require.NoError(t, err)
		require.NoError(t, ctx.StartAll())
	}()
	wg.Wait()

	require.NoError(t, probeErr1)
	require.NoError(t, probeErr2)
	require.NoError(t, probeErr3)
	require.NoError(t, readErr)
	assert.False(t, beforeWrite)
	assert.True(t, afterWrite)
	assert.True(t, stillThere)
	assert.Equal(t, int32(9), got)
}

func TestCopyChannelsPreservesEndpointsFreshTags(t *testing.T) {
	world := local.NewWorld(2)
	ctx := pilot.New(world.Rank(0), false).WithErrorMode(pilot.ReturnOnError)
	_, _, err := ctx.Configure(nil)
	require.NoError(t, err)
	worker, err := ctx.CreateProcess(func(int, any) int { return 0 }, 0, nil)
	require.NoError(t, err)
	ch, err := ctx.CreateChannel(ctx.Base(), worker, "orig")
	require.NoError(t, err)

	copies, err := ctx.CopyChannels([]*pilot.Channel{ch}, pilot.Same)
	require.NoError(t, err)
	require.Len(t, copies, 1)
	assert.Equal(t, ch.WriterRank(), copies[0].WriterRank())
	assert.Equal(t, ch.ReaderRank(), copies[0].ReaderRank())
	assert.NotEqual(t, ch, copies[0])
}

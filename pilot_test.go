package pilot_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pilotcsp.dev/pilot"
	"pilotcsp.dev/pilot/pkg/transport/local"
)

// runPhased spawns a world of worldSize ranks. Every rank runs setup while
// still in Config, then calls StartAll. Non-zero ranks run a no-op work
// function and return once StartAll's internal dispatch completes. Rank 0
// alone runs check once Running, then calls StopMain; runPhased returns
// whatever check returned.
func runPhased(
	t *testing.T,
	worldSize int,
	setup func(ctx *pilot.Context, workers []*pilot.Process),
	check func(ctx *pilot.Context, workers []*pilot.Process) error,
) error {
	t.Helper()
	world := local.NewWorld(worldSize)
	var wg sync.WaitGroup
	var checkErr error
	for r := 0; r < worldSize; r++ {
		r := r
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx := pilot.New(world.Rank(r), false).WithErrorMode(pilot.ReturnOnError)
			_, _, err := ctx.Configure(nil)
			require.NoError(t, err)

			workers := make([]*pilot.Process, 0, worldSize-1)
			for i := 0; i < worldSize-1; i++ {
				w, err := ctx.CreateProcess(func(int, any) int { return 0 }, 0, nil)
				require.NoError(t, err)
				workers = append(workers, w)
			}

			if setup != nil {
				setup(ctx, workers)
			}

			require.NoError(t, ctx.StartAll())
			if r == 0 {
				if check != nil {
					checkErr = check(ctx, workers)
				}
				require.NoError(t, ctx.StopMain(0))
			}
		}()
	}
	wg.Wait()
	return checkErr
}

func asErr(t *testing.T, err error) *pilot.Error {
	t.Helper()
	perr, ok := err.(*pilot.Error)
	require.True(t, ok, "expected *pilot.Error, got %T: %v", err, err)
	return perr
}

func TestWriteReadIntArrayRoundTrip(t *testing.T) {
	world := local.NewWorld(2)
	var wg sync.WaitGroup
	var writeErr, readErr error
	var got [3]int32
	wg.Add(2)
	go func() {
		defer wg.Done()
		ctx := pilot.New(world.Rank(0), false).WithErrorMode(pilot.ReturnOnError)
		_, _, err := ctx.Configure(nil)
		require.NoError(t, err)
		worker, err := ctx.CreateProcess(func(int, any) int { return 0 }, 0, nil)
		require.NoError(t, err)
		ch, err := ctx.CreateChannel(ctx.Base(), worker, "data")
		require.NoError(t, err)
		require.NoError(t, ctx.StartAll())
		writeErr = ctx.Write(ch, "%3i", []int32{1, 2, 3})
		require.NoError(t, ctx.StopMain(0))
	}()
	go func() {
		defer wg.Done()
		ctx := pilot.New(world.Rank(1), false).WithErrorMode(pilot.ReturnOnError)
		var ch *pilot.Channel
		workFn := func(int, any) int {
			dst := make([]int32, 3)
			readErr = ctx.Read(ch, "%3i", dst)
			copy(got[:], dst)
			return 0
		}
		_, _, err := ctx.Configure(nil)
		require.NoError(t, err)
		worker, err := ctx.CreateProcess(workFn, 0, nil)
		require.NoError(t, err)
		ch, err = ctx.CreateChannel(ctx.Base(), worker, "data")
		require.NoError(t, err)
		require.NoError(t, ctx.StartAll())
	}()
	wg.Wait()
	assert.NoError(t, writeErr)
	assert.NoError(t, readErr)
	assert.Equal(t, [3]int32{1, 2, 3}, got)
}

func TestWriteReadStringRoundTrip(t *testing.T) {
	world := local.NewWorld(2)
	var wg sync.WaitGroup
	var writeErr, readErr error
	var got string
	wg.Add(2)
	go func() {
		defer wg.Done()
		ctx := pilot.New(world.Rank(0), false).WithErrorMode(pilot.ReturnOnError)
		_, _, err := ctx.Configure(nil)
		require.NoError(t, err)
		worker, err := ctx.CreateProcess(func(int, any) int { return 0 }, 0, nil)
		require.NoError(t, err)
		ch, err := ctx.CreateChannel(ctx.Base(), worker, "greeting")
		require.NoError(t, err)
		require.NoError(t, ctx.StartAll())
		writeErr = ctx.Write(ch, "%s", "hello pilot")
		require.NoError(t, ctx.StopMain(0))
	}()
	go func() {
		defer wg.Done()
		ctx := pilot.New(world.Rank(1), false).WithErrorMode(pilot.ReturnOnError)
		var ch *pilot.Channel
		workFn := func(int, any) int {
			readErr = ctx.Read(ch, "%s", &got)
			return 0
		}
		_, _, err := ctx.Configure(nil)
		require.NoError(t, err)
		worker, err := ctx.CreateProcess(workFn, 0, nil)
		require.NoError(t, err)
		ch, err = ctx.CreateChannel(ctx.Base(), worker, "greeting")
		require.NoError(t, err)
		require.NoError(t, ctx.StartAll())
	}()
	wg.Wait()
	assert.NoError(t, writeErr)
	assert.NoError(t, readErr)
	assert.Equal(t, "hello pilot", got)
}

func TestConfigureWrongPhase(t *testing.T) {
	world := local.NewWorld(1)
	ctx := pilot.New(world.Rank(0), false).WithErrorMode(pilot.ReturnOnError)
	_, _, err := ctx.Configure(nil)
	require.NoError(t, err)
	_, _, err = ctx.Configure(nil)
	require.Error(t, err)
	assert.Equal(t, pilot.WrongPhase, asErr(t, err).Code)
}

func TestBundleAlreadyRejected(t *testing.T) {
	var setupErr error
	err := runPhased(t, 3,
		func(ctx *pilot.Context, workers []*pilot.Process) {
			if ctx.Rank() != 0 {
				return
			}
			ch, err := ctx.CreateChannel(ctx.Base(), workers[0], "a")
			require.NoError(t, err)
			_, err = ctx.CreateBroadcastBundle(ctx.Base(), []*pilot.Channel{ch})
			require.NoError(t, err)
			_, setupErr = ctx.CreateGatherBundle(ctx.Base(), []*pilot.Channel{ch})
		},
		nil,
	)
	require.NoError(t, err)
	require.Error(t, setupErr)
	assert.Equal(t, pilot.BundleAlready, asErr(t, setupErr).Code)
}

func TestWriteOnBundledChannelRejected(t *testing.T) {
	var ch *pilot.Channel
	err := runPhased(t, 2,
		func(ctx *pilot.Context, workers []*pilot.Process) {
			if ctx.Rank() != 0 {
				return
			}
			var err error
			ch, err = ctx.CreateChannel(ctx.Base(), workers[0], "a")
			require.NoError(t, err)
			_, err = ctx.CreateBroadcastBundle(ctx.Base(), []*pilot.Channel{ch})
			require.NoError(t, err)
		},
		func(ctx *pilot.Context, workers []*pilot.Process) error {
			return ctx.Write(ch, "%i", 1)
		},
	)
	require.Error(t, err)
	assert.Equal(t, pilot.BundledChannel, asErr(t, err).Code)
}

func TestArrayLengthBoundaryRejected(t *testing.T) {
	var ch *pilot.Channel
	err := runPhased(t, 2,
		func(ctx *pilot.Context, workers []*pilot.Process) {
			if ctx.Rank() != 0 {
				return
			}
			var err error
			ch, err = ctx.CreateChannel(ctx.Base(), workers[0], "a")
			require.NoError(t, err)
		},
		func(ctx *pilot.Context, workers []*pilot.Process) error {
			return ctx.Write(ch, "%1i", 1)
		},
	)
	require.Error(t, err)
	assert.Equal(t, pilot.ArrayLength, asErr(t, err).Code)
}

func TestFormatTermLimitRejected(t *testing.T) {
	var ch *pilot.Channel
	err := runPhased(t, 2,
		func(ctx *pilot.Context, workers []*pilot.Process) {
			if ctx.Rank() != 0 {
				return
			}
			var err error
			ch, err = ctx.CreateChannel(ctx.Base(), workers[0], "a")
			require.NoError(t, err)
		},
		func(ctx *pilot.Context, workers []*pilot.Process) error {
			format := ""
			args := make([]any, 0, 51)
			for i := 0; i < 51; i++ {
				format += "%i"
				args = append(args, i)
			}
			return ctx.Write(ch, format, args...)
		},
	)
	require.Error(t, err)
	assert.Equal(t, pilot.FormatArgs, asErr(t, err).Code)
}

func TestArgCountMismatchRejected(t *testing.T) {
	var ch *pilot.Channel
	err := runPhased(t, 2,
		func(ctx *pilot.Context, workers []*pilot.Process) {
			if ctx.Rank() != 0 {
				return
			}
			var err error
			ch, err = ctx.CreateChannel(ctx.Base(), workers[0], "a")
			require.NoError(t, err)
		},
		func(ctx *pilot.Context, workers []*pilot.Process) error {
			return ctx.Write(ch, "%i%i", 1)
		},
	)
	require.Error(t, err)
	assert.Equal(t, pilot.FormatArgs, asErr(t, err).Code)
}

func TestBogusPointerRejected(t *testing.T) {
	var ch *pilot.Channel
	err := runPhased(t, 2,
		func(ctx *pilot.Context, workers []*pilot.Process) {
			if ctx.Rank() != 0 {
				return
			}
			var err error
			ch, err = ctx.CreateChannel(workers[0], ctx.Base(), "a")
			require.NoError(t, err)
		},
		func(ctx *pilot.Context, workers []*pilot.Process) error {
			var notAPointer int
			return ctx.Read(ch, "%i", notAPointer)
		},
	)
	require.Error(t, err)
	assert.Equal(t, pilot.BogusPointerArg, asErr(t, err).Code)
}

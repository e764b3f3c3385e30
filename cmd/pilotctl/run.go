package main

import (
	"fmt"
	"sync"

	"github.com/spf13/cobra"

	"pilotcsp.dev/pilot"
	"pilotcsp.dev/pilot/internal/config"
	"pilotcsp.dev/pilot/pkg/transport/local"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a topology manifest against the in-process reference transport",
	Run: func(cmd *cobra.Command, args []string) {
		if configFile == "" {
			exitWithError("run", fmt.Errorf("-c/--config is required"))
		}
		m, err := config.Load(configFile)
		if err != nil {
			exitWithError("run", err)
		}
		if err := runManifest(m); err != nil {
			exitWithError("run", err)
		}
	},
}

// workRegistry resolves the "work" key named by a manifest's process
// entries to an actual WorkFunc; pilotctl ships only a demo entry, real
// deployments register their own before calling runManifest.
var workRegistry = map[string]pilot.WorkFunc{
	"noop": func(argInt int, argPtr any) int { return 0 },
}

func runManifest(m *config.Manifest) error {
	auxReserved := (m.Services.Calls || m.Services.Deadlock || m.Services.Trace) && len(m.Processes) > 0
	size := 1 + len(m.Processes)
	if auxReserved {
		size++
	}
	world := local.NewWorld(size)

	flags := []string{fmt.Sprintf("-picheck=%d", m.CheckLevel), fmt.Sprintf("-pilog=%s", m.Log.BaseName)}
	if svc := serviceLetters(m.Services); svc != "" {
		flags = append(flags, "-pisvc="+svc)
	}

	var wg sync.WaitGroup
	errs := make([]error, size)
	for r := 0; r < size; r++ {
		r := r
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx := pilot.New(world.Rank(r), false).WithErrorMode(pilot.ReturnOnError)
			userVisible, _, err := ctx.Configure(flags)
			if err != nil {
				errs[r] = err
				return
			}
			if r == 0 {
				fmt.Printf("pilotctl: configured, %d application rank(s) available\n", userVisible)
			}
			for _, pc := range m.Processes {
				_, _ = ctx.CreateProcess(workRegistry[pc.Work], pc.ArgInt, nil)
			}
			errs[r] = ctx.StartAll()
		}()
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func serviceLetters(s config.ServicesConfig) string {
	out := ""
	if s.Calls {
		out += "c"
	}
	if s.Deadlock {
		out += "d"
	}
	if s.Trace {
		out += "j"
	}
	return out
}

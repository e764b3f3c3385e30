// Package pilot implements a CSP-style message-passing coordination layer
// over an opaque Transport substrate: processes communicate over
// point-to-point channels and collective bundles, with a printf-style
// format grammar marshalling every message and a dedicated aux rank
// carrying the optional log/deadlock/trace services.
package pilot

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"pilotcsp.dev/pilot/internal/log"
	"pilotcsp.dev/pilot/internal/logpipe"
	"pilotcsp.dev/pilot/pkg/deadlock"
	"pilotcsp.dev/pilot/pkg/tracer"
	"pilotcsp.dev/pilot/pkg/transport"
)

// Phase is the coordination state machine named in spec §3: every public
// entry point checks it's being called from the phase that permits it.
type Phase int

const (
	PhasePreInit Phase = iota
	PhaseConfig
	PhaseRunning
	PhasePostRun
)

func (p Phase) String() string {
	switch p {
	case PhasePreInit:
		return "PreInit"
	case PhaseConfig:
		return "Config"
	case PhaseRunning:
		return "Running"
	case PhasePostRun:
		return "PostRun"
	default:
		return "Phase(?)"
	}
}

// Services names the optional 'c'/'d'/'j' letters a topology can enable on
// the command line (-pisvc=cdj) or via a manifest. Any of them enabled
// reserves world rank 1 for the log/deadlock aux process instead of
// application work (spec §4.7).
type Services struct {
	Calls    bool // 'c': record every messaging call
	Deadlock bool // 'd': messaging and log writes use synchronous sends
	Trace    bool // 'j': forward structured events to a tracer.Tracer
}

func (s Services) any() bool { return s.Calls || s.Deadlock || s.Trace }

// Context is the handle every Pilot call hangs off. The zero value is not
// usable; construct one with New.
type Context struct {
	tr        transport.Transport
	benchMode bool
	errorMode ErrorMode

	phase   Phase
	rank    int
	size    int // transport world size, including the aux rank if reserved
	auxRank bool

	checkLevel int
	services   Services
	logBase    string

	nextRank  int
	processes []*Process

	nextChannelID int
	channels      []*Channel

	nextBundleID int
	bundles      []*Bundle

	logWriter *logpipe.Writer
	ambient   *logrus.Logger
	tracer    tracer.Tracer
	detector  deadlock.Detector

	lastErr *Error
}

// New builds a Context over an already-constructed Transport. bench marks
// whether the caller intends to call Configure/StopMain repeatedly for
// successive benchmark iterations (spec §3, "bench-mode reuse"): when
// true, StopMain returns the Context to PhasePreInit instead of
// PhasePostRun, and the process/channel/bundle tables are cleared for
// reuse instead of retired.
func New(tr transport.Transport, bench bool) *Context {
	return &Context{
		tr:        tr,
		benchMode: bench,
		errorMode: AbortOnError,
		phase:     PhasePreInit,
		ambient:   log.New(log.Config{}),
		tracer:    tracer.Noop{},
		detector:  deadlock.Noop{},
	}
}

// WithErrorMode overrides the default AbortOnError propagation mode,
// intended for the library's own self-tests (spec §6, "ErrorMode").
func (c *Context) WithErrorMode(mode ErrorMode) *Context {
	c.errorMode = mode
	return c
}

// WithTracer installs a Tracer that receives every traced event once the
// 'j' service is enabled.
func (c *Context) WithTracer(t tracer.Tracer) *Context {
	if t != nil {
		c.tracer = t
	}
	return c
}

// WithDetector installs a Detector, which StartAll hands to the aux
// process when one is reserved. The aux process does not call the
// Detector's Report method, so it receives no wait-state reports.
func (c *Context) WithDetector(d deadlock.Detector) *Context {
	if d != nil {
		c.detector = d
	}
	return c
}

// Phase reports the Context's current state.
func (c *Context) Phase() Phase { return c.phase }

// Rank reports this process's rank in the world, valid from PhaseConfig
// onward.
func (c *Context) Rank() int { return c.rank }

// WorldSize reports the transport's total rank count, valid from
// PhaseConfig onward.
func (c *Context) WorldSize() int { return c.size }

// CheckLevel reports the agreed -picheck value, valid from PhaseConfig
// onward.
func (c *Context) CheckLevel() int { return c.checkLevel }

// ServicesEnabled reports which of the 'c'/'d'/'j' services this world
// agreed on, valid from PhaseConfig onward.
func (c *Context) ServicesEnabled() Services { return c.services }

// Configure parses the -pi* flag surface out of args, agrees service
// flags/check level/log base name across every rank by broadcasting
// rank 0's parsed values, allocates the process table, and optionally
// reserves rank 1 for the log/deadlock/trace aux process. It returns the
// count of ranks available to the user — the world size minus the aux
// rank, if reserved, but including the base itself — and the args left
// after stripping recognized -pi* flags.
func (c *Context) Configure(args []string) (int, []string, error) {
	site := callerSite(1)
	if c.phase != PhasePreInit {
		return 0, nil, c.raise(site, WrongPhase, "Configure", "", "must be called before any other entry point")
	}

	checkLevel, services, logBase, remaining := parseFlags(args)

	c.rank = c.tr.Rank()
	c.size = c.tr.Size()

	allRanks := make([]int, c.size)
	for i := range allRanks {
		allRanks[i] = i
	}
	worldComm, err := c.tr.CreateComm(allRanks)
	if err != nil {
		return 0, nil, c.raise(site, TransportError, "Configure", "", err.Error())
	}
	defer c.tr.FreeComm(worldComm)

	type agreed struct {
		CheckLevel int
		Services   Services
		LogBase    string
	}
	msg := transport.Message{Value: agreed{checkLevel, services, logBase}}
	if err := c.tr.Broadcast(&msg, 0, worldComm); err != nil {
		return 0, nil, c.raise(site, TransportError, "Configure", "", err.Error())
	}
	a := msg.Value.(agreed)
	c.checkLevel, c.services, c.logBase = a.CheckLevel, a.Services, a.LogBase

	if c.size < 1 {
		return 0, nil, c.raise(site, InsufficientProcs, "Configure", "", "world has no ranks")
	}

	c.auxRank = c.services.any() && c.size > 1
	c.processes = make([]*Process, c.size)
	c.processes[0] = &Process{handle: handle{tag: magicProcess}, rank: 0, name: "base"}
	c.nextRank = 1
	if c.auxRank {
		c.processes[1] = &Process{handle: handle{tag: magicProcess}, rank: 1, name: "logpipe"}
		c.nextRank = 2
	}
	// ids start at 1 so id == tag never collides with the 0/negative tags
	// reserved internally (spec §8).
	c.nextChannelID = 1

	if c.auxRank {
		c.logWriter = logpipe.NewWriter(c.tr)
	}

	c.phase = PhaseConfig

	// procsAvail is the count available to the user and includes the base
	// itself (spec §4.1, "returns the count available to the user
	// (includes base)"); only the aux reservation, if any, is subtracted.
	procsAvail := c.size
	if c.auxRank {
		procsAvail--
	}
	return procsAvail, remaining, nil
}

func parseFlags(args []string) (checkLevel int, services Services, logBase string, remaining []string) {
	checkLevel = 2
	logBase = "pilot"
	for _, a := range args {
		switch {
		case strings.HasPrefix(a, "-picheck="):
			if n, err := strconv.Atoi(strings.TrimPrefix(a, "-picheck=")); err == nil {
				checkLevel = n
			}
		case strings.HasPrefix(a, "-pisvc="):
			for _, r := range strings.TrimPrefix(a, "-pisvc=") {
				switch r {
				case 'c':
					services.Calls = true
				case 'd':
					services.Deadlock = true
				case 'j':
					services.Trace = true
				}
			}
		case strings.HasPrefix(a, "-pilog="):
			logBase = strings.TrimPrefix(a, "-pilog=")
		default:
			remaining = append(remaining, a)
		}
	}
	return checkLevel, services, logBase, remaining
}

// StartAll transitions Config -> Running. Every rank synchronizes on a
// barrier; rank 0 then logs the allocation summary and returns to let
// the caller continue as the base process (the aux rank, if reserved,
// already has the log file base name from Configure's broadcast). Every other rank instead
// dispatches its registered work function inline, then behaves as if it
// had called StopMain with the function's return value, and only then
// returns to its own caller (spec §3, "process dispatch").
func (c *Context) StartAll() error {
	site := callerSite(1)
	if c.phase != PhaseConfig {
		return c.raise(site, WrongPhase, "StartAll", "", "must be called during Config")
	}
	c.phase = PhaseRunning

	if err := c.tr.Barrier(); err != nil {
		return c.raise(site, TransportError, "StartAll", "", err.Error())
	}

	switch {
	case c.rank == 0:
		apps := c.nextRank - 1 // ranks given a work function by CreateProcess
		if c.auxRank {
			apps--
		}
		c.ambient.Infof("pilot: world size %d, %d application rank(s), aux=%v", c.size, apps, c.auxRank)
		return nil

	case c.auxRank && c.rank == 1:
		// Every user-visible rank except the aux process itself sends a
		// FIN, including the base (spec §4.7, point 7): the original
		// counts FINs as worldsize minus the log process, and rank 0 is
		// only ever skipped when it *is* the log process on rank 1.
		writers := make([]int, 0, c.size-1)
		writers = append(writers, 0)
		for r := 2; r < c.size; r++ {
			writers = append(writers, r)
		}
		aux, err := logpipe.NewAux(c.tr, c.logBase, c.detector, c.tracer)
		if err != nil {
			return c.raise(site, LogOpen, "StartAll", c.logBase, err.Error())
		}
		if err := aux.Run(writers); err != nil {
			return c.raise(site, TransportError, "StartAll", "", err.Error())
		}
		return c.StopMain(0)

	default:
		p := c.processes[c.rank]
		if p == nil || p.work == nil {
			return c.raise(site, NullFunction, "StartAll", "", fmt.Sprintf("rank %d has no registered work function", c.rank))
		}
		status := p.work(p.argInt, p.argPtr)
		if c.logWriter != nil {
			c.logWriter.Fin()
		}
		return c.StopMain(status)
	}
}

// StopMain transitions Running -> PostRun (or, in bench mode, back to
// PreInit for reuse). status is the caller's reported exit status;
// StopMain neither interprets nor stores it.
func (c *Context) StopMain(status int) error {
	site := callerSite(1)
	if c.phase != PhaseRunning {
		return c.raise(site, WrongPhase, "StopMain", "", "must be called during Running")
	}

	// The base rank never goes through StartAll's default dispatch branch
	// (it returns immediately to keep running application code), so it is
	// the one rank that must still send its own FIN here, once it is
	// actually done logging, rather than have the aux process close the
	// log file out from under it the moment the other ranks finish.
	if c.rank == 0 && c.logWriter != nil {
		if err := c.logWriter.Fin(); err != nil {
			return c.raise(site, TransportError, "StopMain", "", err.Error())
		}
	}

	for _, b := range c.bundles {
		if b != nil && b.comm != 0 {
			c.tr.FreeComm(b.comm)
		}
	}

	if err := c.tr.Barrier(); err != nil {
		return c.raise(site, TransportError, "StopMain", "", err.Error())
	}

	if c.benchMode {
		c.phase = PhasePreInit
		c.processes = nil
		c.channels = nil
		c.bundles = nil
		c.nextRank = 0
		c.nextChannelID = 1
		c.nextBundleID = 0
	} else {
		c.phase = PhasePostRun
	}
	return nil
}

// abort is the single path every raised Error in AbortOnError mode takes:
// print to stderr and bring down the whole world together, the way the
// source's PI_Abort/PI_BomAbort pair does.
func (c *Context) abort(err *Error) {
	fmt.Fprintf(os.Stderr, "pilot: aborting: %s\n", err.Error())
	if c.tr != nil {
		c.tr.Abort(int(err.Code), err.Error())
	}
}

package pilot

// WorkFunc is the signature every non-base process must supply. It replaces
// the source's PI_WORK_FUNC/PI_WORK_FTN pair: Go has one calling convention,
// so the "call_style" field of the original record has no Go equivalent.
type WorkFunc func(argInt int, argPtr any) int

// Process is one entry in the rank-indexed process table.
type Process struct {
	handle
	rank    int
	name    string
	work    WorkFunc
	argInt  int
	argPtr  any
}

// Rank returns the process's assigned rank.
func (p *Process) Rank() int { return p.rank }

// Base returns the process record for rank 0, pre-allocated by Configure.
// Valid from PhaseConfig onward.
func (c *Context) Base() *Process {
	if len(c.processes) == 0 {
		return nil
	}
	return c.processes[0]
}

// CreateProcess allocates the next free rank and assigns fn as its work
// function. Only valid in PhaseConfig. Rank 0 (the base) is pre-allocated
// by Configure and is never returned by CreateProcess; fn must be non-nil
// for every other rank.
func (c *Context) CreateProcess(fn WorkFunc, argInt int, argPtr any) (*Process, error) {
	site := callerSite(1)
	if c.phase != PhaseConfig {
		return nil, c.raise(site, WrongPhase, "CreateProcess", "", "must be called during Config")
	}
	if c.nextRank >= len(c.processes) {
		return nil, c.raise(site, InsufficientProcs, "CreateProcess", "", "no free rank left in the process table")
	}
	if fn == nil && c.nextRank > 0 {
		return nil, c.raise(site, NullFunction, "CreateProcess", "", "work function required for rank > 0")
	}

	rank := c.nextRank
	c.nextRank++

	p := &Process{
		handle: handle{tag: magicProcess},
		rank:   rank,
		name:   defaultName("P", rank),
		work:   fn,
		argInt: argInt,
		argPtr: argPtr,
	}
	c.processes[rank] = p
	return p, nil
}

package pilot

// SetName overrides the default name given to a process, channel, or
// bundle record; it accepts any of the three handle kinds and truncates
// past NameLen (spec §4, "Naming"). Passing an unrecognized handle is a
// precondition failure, not a silent no-op.
func (c *Context) SetName(obj any, name string) error {
	site := callerSite(1)
	if c.phase != PhaseConfig {
		return c.raise(site, WrongPhase, "SetName", "", "must be called during Config")
	}
	name = truncateName(name)
	switch v := obj.(type) {
	case *Process:
		if !validHandle(&v.handle, magicProcess) {
			return c.raise(site, InvalidObj, "SetName", "", "not a valid process")
		}
		v.name = name
	case *Channel:
		if !validHandle(&v.handle, magicChannel) {
			return c.raise(site, InvalidObj, "SetName", "", "not a valid channel")
		}
		v.name = name
	case *Bundle:
		if !validHandle(&v.handle, magicBundle) {
			return c.raise(site, InvalidObj, "SetName", "", "not a valid bundle")
		}
		v.name = name
	default:
		return c.raise(site, InvalidObj, "SetName", "", "object must be a *Process, *Channel, or *Bundle")
	}
	return nil
}

// GetName returns the current name of a process, channel, or bundle. A nil
// obj asks for the caller's own process name instead: if the Context has
// reached PhaseRunning, that's this rank's process record; otherwise the
// rank isn't bound to a process table entry yet, so a placeholder is
// returned (spec §4.1, "GetName").
func (c *Context) GetName(obj any) (string, error) {
	site := callerSite(1)
	if obj == nil {
		if c.phase == PhaseRunning && c.rank < len(c.processes) && c.processes[c.rank] != nil {
			return c.processes[c.rank].name, nil
		}
		return defaultName("P", c.rank), nil
	}
	switch v := obj.(type) {
	case *Process:
		if !validHandle(&v.handle, magicProcess) {
			return "", c.raise(site, InvalidObj, "GetName", "", "not a valid process")
		}
		return v.name, nil
	case *Channel:
		if !validHandle(&v.handle, magicChannel) {
			return "", c.raise(site, InvalidObj, "GetName", "", "not a valid channel")
		}
		return v.name, nil
	case *Bundle:
		if !validHandle(&v.handle, magicBundle) {
			return "", c.raise(site, InvalidObj, "GetName", "", "not a valid bundle")
		}
		return v.name, nil
	default:
		return "", c.raise(site, InvalidObj, "GetName", "", "object must be a *Process, *Channel, or *Bundle")
	}
}

package pilot

import "pilotcsp.dev/pilot/internal/wire"

// codeByReason maps a *wire.Error's Reason string to the pilot.Code of
// the same name. wire can't import pilot (pilot already imports wire for
// the format marshaller), so it reports reasons as strings and this is
// the one place they're translated back into Codes.
var codeByReason = map[string]Code{
	"NullFormat":      NullFormat,
	"FormatInvalid":   FormatInvalid,
	"FormatArgs":      FormatArgs,
	"FormatMismatch":  FormatMismatch,
	"ArrayLength":     ArrayLength,
	"OpMissing":       OpMissing,
	"OpInvalid":       OpInvalid,
	"BogusPointerArg": BogusPointerArg,
}

// raiseWire translates a wire parse failure into this Context's raise
// choke point, falling back to SystemError for any reason it doesn't
// recognize (defensive only; every reason wire.Parse can produce is
// listed above).
func (c *Context) raiseWire(site callSite, op string, err error) error {
	werr, ok := err.(*wire.Error)
	if !ok {
		return c.raise(site, SystemError, op, "", err.Error())
	}
	code, ok := codeByReason[werr.Reason]
	if !ok {
		code = SystemError
	}
	return c.raise(site, code, op, "", werr.Msg)
}

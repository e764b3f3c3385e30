package pilot

import "fmt"

// Code identifies a Pilot error. Codes are contiguous so abort paths can
// stringify them without a lookup miss.
type Code int

const (
	codeNone Code = iota

	// Phase
	WrongPhase

	// Object identity
	InvalidObj
	NullChannel
	NullBundle
	NullFunction

	// Endpoint
	EndpointWriter
	EndpointReader
	EndpointDuplicate
	BundledChannel
	BundleUsage
	BundleReadEnd
	BundleWriteEnd
	BundleDuplicate
	BundleAlready
	BundleIndex

	// Resource
	MallocError
	InsufficientProcs
	MaxTags
	MaxBundles
	ZeroMembers

	// Format
	NullFormat
	FormatInvalid
	FormatArgs
	FormatMismatch
	ArrayLength
	OpMissing
	OpInvalid
	BogusPointerArg

	// I/O
	LogOpen
	TransportError
	SystemError

	codeMax
)

var codeNames = [codeMax]string{
	codeNone:          "none",
	WrongPhase:        "WrongPhase",
	InvalidObj:        "InvalidObj",
	NullChannel:       "NullChannel",
	NullBundle:        "NullBundle",
	NullFunction:      "NullFunction",
	EndpointWriter:    "EndpointWriter",
	EndpointReader:    "EndpointReader",
	EndpointDuplicate: "EndpointDuplicate",
	BundledChannel:    "BundledChannel",
	BundleUsage:       "BundleUsage",
	BundleReadEnd:     "BundleReadEnd",
	BundleWriteEnd:    "BundleWriteEnd",
	BundleDuplicate:   "BundleDuplicate",
	BundleAlready:     "BundleAlready",
	BundleIndex:       "BundleIndex",
	MallocError:       "MallocError",
	InsufficientProcs: "InsufficientProcs",
	MaxTags:           "MaxTags",
	MaxBundles:        "MaxBundles",
	ZeroMembers:       "ZeroMembers",
	NullFormat:        "NullFormat",
	FormatInvalid:     "FormatInvalid",
	FormatArgs:        "FormatArgs",
	FormatMismatch:    "FormatMismatch",
	ArrayLength:       "ArrayLength",
	OpMissing:         "OpMissing",
	OpInvalid:         "OpInvalid",
	BogusPointerArg:   "BogusPointerArg",
	LogOpen:           "LogOpen",
	TransportError:    "TransportError",
	SystemError:       "SystemError",
}

func (c Code) String() string {
	if c < 0 || c >= codeMax {
		return fmt.Sprintf("Code(%d)", int(c))
	}
	return codeNames[c]
}

// Error is the uniform error type raised by every public entry point.
type Error struct {
	Code    Code
	Op      string // the failing operation, e.g. "CreateChannel"
	Arg     string // the offending argument, formatted by the caller
	File    string // call-site file, from the call-site macro substitute
	Line    int
	Message string
}

func (e *Error) Error() string {
	if e.Arg != "" {
		return fmt.Sprintf("%s(%s) @ %s:%d: %s: %s", e.Op, e.Arg, e.File, e.Line, e.Code, e.Message)
	}
	return fmt.Sprintf("%s @ %s:%d: %s: %s", e.Op, e.File, e.Line, e.Code, e.Message)
}

// ErrorMode controls how a raised Error is propagated.
type ErrorMode int

const (
	// AbortOnError is the default: a raised error is printed to stderr and
	// the whole process group is aborted via Transport.Abort.
	AbortOnError ErrorMode = iota
	// ReturnOnError records the error on the Context and lets the call
	// return its type-specific sentinel instead of aborting. Intended for
	// library self-tests; user code should generally run in AbortOnError.
	ReturnOnError
)

// raise is the single choke point every public entry uses to signal a
// precondition failure. site carries the call-site file/line recorded by
// the call-site wrapper, taking the place of the source's caller_file/
// caller_line macro slots.
func (c *Context) raise(site callSite, code Code, op, arg, msg string) *Error {
	err := &Error{Code: code, Op: op, Arg: arg, File: site.file, Line: site.line, Message: msg}
	c.lastErr = err
	if c.errorMode == AbortOnError {
		c.abort(err)
	}
	return err
}

// callSite is the file/line pinpoint recorded ahead of dispatch, standing
// in for the source's call-site macros (see spec §6, "Call-site macros").
type callSite struct {
	file string
	line int
}

// LastError returns the most recently raised error for this Context, or
// nil. Only meaningful when the Context runs in ReturnOnError mode.
func (c *Context) LastError() *Error {
	return c.lastErr
}

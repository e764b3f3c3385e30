package pilot

import (
	"runtime"
	"strconv"
)

// callerSite records the file/line of the caller `skip` frames up, taking
// the place of the source's call-site macros (spec §6): every public
// entry point pins its own caller before dispatching to the
// implementation, so abort paths can point at application code instead
// of library internals.
func callerSite(skip int) callSite {
	_, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		return callSite{file: "?", line: 0}
	}
	return callSite{file: file, line: line}
}

func truncateName(s string) string {
	if len(s) > NameLen {
		return s[:NameLen]
	}
	return s
}

func defaultName(prefix string, n int) string {
	return prefix + strconv.Itoa(n)
}

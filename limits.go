package pilot

// Compiled-in limits, carried over from the original's pilot_limits.h so
// callers hitting one of them can see the same numbers documented there.
const (
	// NameLen is the maximum length of a process/channel/bundle name.
	NameLen = 100
	// MaxBundleCount is the maximum number of bundles that can be created;
	// exceeding it raises the MaxBundles error code.
	MaxBundleCount = 1024
	// maxSubstrateTag stands in for the substrate's tag space limit
	// (spec treats the real value as substrate-defined); channel ids
	// beyond it raise MaxTags.
	maxSubstrateTag = 1 << 20
)

package pilot

// magic tags object kinds so downstream calls can reject a stale or
// wrong-typed pointer before dereferencing it (spec §4.1, "Object identity
// check"). Each record kind gets a distinct constant; SetName/GetName and
// every endpoint op assert pointer != nil && pointer.magic == want before
// touching the record.
type magic uint32

const (
	magicProcess magic = 0x50524f43 // "PROC"
	magicChannel magic = 0x4348414e // "CHAN"
	magicBundle  magic = 0x42554e44 // "BUND"
)

// handle is the minimal shape every table record embeds so validity can be
// checked uniformly regardless of concrete type.
type handle struct {
	tag magic
}

func validHandle(h *handle, want magic) bool {
	return h != nil && h.tag == want
}

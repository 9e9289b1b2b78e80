package grid

// BusMode is the solve-time classification of a bus. It is derived from the
// attached devices when the grid is compiled and may change during a solve
// when reactive limits are enforced; the static Bus record is never touched.
type BusMode int

const (
	ModePQ BusMode = iota + 1 // load bus: P and Q known
	ModePV                    // voltage-controlled bus: P and |V| known
	ModeSlack                 // angle reference: |V| and angle known
	ModeNone                  // disconnected or inactive
	ModeStorageDispatch       // dispatchable storage, solved as PQ
)

// String returns the mode label.
func (m BusMode) String() string {
	switch m {
	case ModePQ:
		return "PQ"
	case ModePV:
		return "PV"
	case ModeSlack:
		return "slack"
	case ModeNone:
		return "none"
	case ModeStorageDispatch:
		return "storage"
	default:
		return "unknown"
	}
}

// IsPQLike reports whether the mode is solved with fixed P and Q.
func (m BusMode) IsPQLike() bool {
	return m == ModePQ || m == ModeStorageDispatch
}

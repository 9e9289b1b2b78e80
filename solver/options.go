package solver

// Options contains the iteration engine's configuration parameters.
type Options struct {
	Tolerance            float64 // mismatch infinity-norm target, per unit
	MaxIterations        int     // Newton iteration cap per control round
	MaxControlIterations int     // reactive-limit switching rounds
	ControlQLimits       bool    // enforce generator reactive limits
	UseIwamoto           bool    // Iwamoto step-length damping
	Trace                bool    // record the mismatch norm of every iteration
}

// DefaultOptions returns balanced settings suitable for most grids.
func DefaultOptions() *Options {
	return &Options{
		Tolerance:            1e-6,
		MaxIterations:        25,
		MaxControlIterations: 10,
		ControlQLimits:       true,
		UseIwamoto:           false,
	}
}

// RobustOptions returns settings for ill-conditioned grids. Iwamoto
// damping shortens the Newton step when the quadratic model is poor,
// trading iterations for stability.
func RobustOptions() *Options {
	return &Options{
		Tolerance:            1e-6,
		MaxIterations:        50,
		MaxControlIterations: 10,
		ControlQLimits:       true,
		UseIwamoto:           true,
	}
}

// FastOptions returns settings for screening studies where speed matters
// more than tight convergence or limit enforcement.
func FastOptions() *Options {
	return &Options{
		Tolerance:            1e-4,
		MaxIterations:        10,
		MaxControlIterations: 1,
		ControlQLimits:       false,
		UseIwamoto:           false,
	}
}

// State identifies where the iteration engine is in its lifecycle.
type State int

const (
	Initialized State = iota
	Iterating
	ControlCheck
	Converged
	MaxIterExceeded
)

func (s State) String() string {
	switch s {
	case Initialized:
		return "initialized"
	case Iterating:
		return "iterating"
	case ControlCheck:
		return "control-check"
	case Converged:
		return "converged"
	case MaxIterExceeded:
		return "max-iter-exceeded"
	default:
		return "unknown"
	}
}

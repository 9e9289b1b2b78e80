package grid

import "fmt"

// ZeroImpedanceError marks an active branch whose series impedance is zero.
// The branch admittance model divides by z, so this is a fatal configuration
// error for the island that contains the branch.
type ZeroImpedanceError struct {
	Branch int
	Name   string
}

func (e *ZeroImpedanceError) Error() string {
	return fmt.Sprintf("branch %d (%s): series impedance is zero", e.Branch, e.Name)
}

// SetpointConflictError marks a bus where two voltage-controlling devices
// disagree on the voltage set-point.
type SetpointConflictError struct {
	Bus    int
	A, B   float64
	Device string
}

func (e *SetpointConflictError) Error() string {
	return fmt.Sprintf("bus %d: conflicting voltage set-points %g and %g (%s)",
		e.Bus, e.A, e.B, e.Device)
}

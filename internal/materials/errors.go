package materials

import "errors"

// Error kinds returned across the materials package. Unknown-material and
// shape-mismatch errors are fatal at database construction;
// out-of-range energy queries are expected to be recovered locally by
// the caller (the physics/transport layer drops the offending photon, it
// does not propagate here).
var (
	ErrUnknownMaterial  = errors.New("unknown material")
	ErrEnergyOutOfRange = errors.New("energy out of tabulated range")
	ErrShapeMismatch    = errors.New("data shape mismatch")
)

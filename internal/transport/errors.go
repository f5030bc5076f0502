package transport

import "errors"

// Error kinds returned across the transport package. ConfigError and
// DataError are fatal at SimulationManager construction; EnergyOutOfRange
// and NumericalError surface from a propagation step and are the
// caller's choice whether to drop the photon or abort the run.
// InterruptRequested marks a run that ended early via context
// cancellation rather than natural drain. SinkError wraps a failure
// returned by a Sink implementation.
var (
	ErrConfig             = errors.New("invalid transport configuration")
	ErrData               = errors.New("invalid simulation data")
	ErrEnergyOutOfRange   = errors.New("energy out of tabulated range")
	ErrNumerical          = errors.New("numerical error during propagation")
	ErrInterruptRequested = errors.New("simulation interrupted")
	ErrSink               = errors.New("sink error")
)

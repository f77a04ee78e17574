package sensor

// Device defines the interface for raw-sensor sources (real or simulated).
// The variant is selected once at startup; the measurement chain is agnostic
// to which one feeds it.
type Device interface {
	Connect() error
	Close() error
	Samples() <-chan RawSample
	SetSampleCount(n int) error
	IsConnected() bool
}

// Ensure Serial implements Device.
var _ Device = (*Serial)(nil)

// Ensure Sim implements Device.
var _ Device = (*Sim)(nil)

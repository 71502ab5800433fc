package device

// Device defines the interface for sensor sample sources (real or mocked).
type Device interface {
	Connect() error
	Close() error
	Samples() <-chan RawSample
	IsConnected() bool
}

var (
	_ Device = (*Serial)(nil)
	_ Device = (*Mock)(nil)
)

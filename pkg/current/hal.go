package current

import "time"

// ADC is a single analog input. It stands for the pin the sensor output is
// wired to; the sensor never looks inside it.
type ADC interface {
	// Configure prepares the pin for analog input. Called once from Begin.
	Configure() error
	// Get performs one acquisition and returns a code in [0, Resolution].
	Get() uint16
}

// Clock is a monotonic microsecond counter with a blocking delay.
//
// Micros is allowed to wrap around; differences are always taken with
// unsigned subtraction.
type Clock interface {
	Micros() uint32
	Sleep(d time.Duration)
}

// elapsed returns now-since, correct across a single counter wraparound.
func elapsed(now, since uint32) uint32 {
	return now - since
}

// maxPeriod is the longest interval the microsecond counter can measure.
const maxPeriod = float32(1 << 31)

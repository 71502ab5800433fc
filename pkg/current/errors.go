package current

// Error is a constant error value returned by the sensor.
type Error string

func (e Error) Error() string {
	return string(e)
}

const (
	ErrInvalidSensitivity  = Error("sensitivity must be positive")
	ErrInvalidZeroPoint    = Error("zero point must be finite")
	ErrInvalidFrequency    = Error("frequency must be positive")
	ErrInvalidReference    = Error("voltage reference must be positive")
	ErrInvalidResolution   = Error("adc resolution must be positive")
	ErrInvalidSampling     = Error("invalid sampling parameters")
	ErrAccumulatorOverflow = Error("sample threshold overflows accumulator")
	ErrInvalidMode         = Error("invalid sampling mode")
)

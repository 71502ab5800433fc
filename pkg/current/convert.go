package current

// Converter maps ADC codes to voltages and currents.
type Converter struct {
	VoltageReference float32
	Resolution       uint16
}

// ToVoltage converts an ADC code to volts. Fractional codes produced by
// averaging are accepted.
func (c Converter) ToVoltage(code float32) float32 {
	return (code / float32(c.Resolution)) * c.VoltageReference
}

// Current converts an ADC code to amperes using the calibration.
// Positive values flow in the sensor's forward direction.
func (c Converter) Current(code float32, cal Calibration) float32 {
	voltage := c.ToVoltage(code)
	zeroVoltage := c.ToVoltage(cal.ZeroPoint)
	return (voltage - zeroVoltage) / cal.Sensitivity
}

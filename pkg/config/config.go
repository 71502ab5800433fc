package config

import (
	"fmt"
	"math"
	"os"
	"time"

	"github.com/itohio/goacs712/pkg/current"
	"gopkg.in/yaml.v3"
)

// SensorModel names an ACS712 variant.
type SensorModel string

const (
	Model05B SensorModel = "05B"
	Model20A SensorModel = "20A"
	Model30A SensorModel = "30A"
)

// Sensitivity returns the model's nominal sensitivity in V/A, or 0 for an
// unknown model.
func (m SensorModel) Sensitivity() float64 {
	switch m {
	case Model05B:
		return float64(current.Sensitivity05B)
	case Model20A:
		return float64(current.Sensitivity20A)
	case Model30A:
		return float64(current.Sensitivity30A)
	}
	return 0
}

// Config represents the application configuration.
type Config struct {
	Serial      SerialConfig      `yaml:"serial"`
	Sensor      SensorConfig      `yaml:"sensor"`
	Calibration CalibrationConfig `yaml:"calibration"`
	Sampling    SamplingConfig    `yaml:"sampling"`
	Measurement MeasurementConfig `yaml:"measurement"`
	Mock        MockConfig        `yaml:"mock"`
}

// SerialConfig contains serial port configuration.
type SerialConfig struct {
	Port     string `yaml:"port"`
	BaudRate int    `yaml:"baud_rate"`
}

// SensorConfig describes the sensor and the ADC it is wired to.
type SensorConfig struct {
	Model      SensorModel `yaml:"model"`
	VRef       float64     `yaml:"vref"`
	Resolution uint16      `yaml:"resolution"` // full-scale ADC code
}

// CalibrationConfig holds the persisted calibration. A zero sensitivity
// falls back to the sensor model; a zero zero_point to mid-scale.
type CalibrationConfig struct {
	Sensitivity float64 `yaml:"sensitivity"`
	ZeroPoint   float64 `yaml:"zero_point"`
}

// SamplingConfig contains the oversampling tunables.
type SamplingConfig struct {
	Mode               string        `yaml:"mode"` // fixed, window or incremental
	CalibrationSamples int           `yaml:"calibration_samples"`
	CalibrationDelay   time.Duration `yaml:"calibration_delay"`
	DCSamples          int           `yaml:"dc_samples"`
	DCDelay            time.Duration `yaml:"dc_delay"`
	Frequency          float64       `yaml:"frequency"` // AC frequency (Hz)
	Interval           time.Duration `yaml:"interval"`  // incremental sample spacing
	Threshold          int           `yaml:"threshold"` // incremental samples per estimate
}

// MeasurementConfig contains host-side stream processing parameters.
type MeasurementConfig struct {
	WindowSeconds  float64       `yaml:"window_seconds"`  // meter statistics window
	AverageSamples int           `yaml:"average_samples"` // Number of samples to average (0 = disabled, default)
	RMSPeriod      time.Duration `yaml:"rms_period"`      // RMS window over the stream (0 = disabled)
}

// MockConfig contains simulated sensor parameters.
type MockConfig struct {
	DCAmps     float64       `yaml:"dc_amps"`
	ACAmps     float64       `yaml:"ac_amps"` // peak amplitude of the AC component
	Frequency  float64       `yaml:"frequency"`
	NoiseAmps  float64       `yaml:"noise_amps"`
	SampleRate time.Duration `yaml:"sample_rate"`
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	sampling := current.DefaultSampling()
	return &Config{
		Serial: SerialConfig{
			Port:     "COM3", // Default for Windows, should be "/dev/ttyACM0" on Linux/Mac
			BaudRate: 115200,
		},
		Sensor: SensorConfig{
			Model:      Model05B,
			VRef:       float64(current.DefaultVoltageReference),
			Resolution: current.DefaultResolution,
		},
		Calibration: CalibrationConfig{
			Sensitivity: Model05B.Sensitivity(),
			ZeroPoint:   float64(current.DefaultResolution) / 2,
		},
		Sampling: SamplingConfig{
			Mode:               current.ModeFixedCount.String(),
			CalibrationSamples: sampling.CalibrationSamples,
			CalibrationDelay:   sampling.CalibrationDelay,
			DCSamples:          sampling.DCSamples,
			DCDelay:            sampling.DCDelay,
			Frequency:          float64(sampling.Frequency),
			Interval:           sampling.Interval,
			Threshold:          sampling.Threshold,
		},
		Measurement: MeasurementConfig{
			WindowSeconds:  10,
			AverageSamples: 0, // No averaging by default
			RMSPeriod:      0,
		},
		Mock: MockConfig{
			DCAmps:     0.5,
			ACAmps:     0,
			Frequency:  60,
			NoiseAmps:  0.02,
			SampleRate: 2 * time.Millisecond,
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			// File doesn't exist, return defaults
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Calibration defaults depend on the sensor section, so they are derived
	// after parsing.
	cfg.Calibration = CalibrationConfig{}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Ensure minimum required fields are set (use defaults if missing)
	cfg.ensureDefaults()

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Current converts the configuration into the sensor configuration and the
// calibration to start from.
func (c *Config) Current() (current.Config, current.Calibration, error) {
	mode, err := current.ParseMode(c.Sampling.Mode)
	if err != nil {
		return current.Config{}, current.Calibration{}, fmt.Errorf("sampling mode %q: %w", c.Sampling.Mode, err)
	}

	cfg := current.Config{
		VoltageReference: float32(c.Sensor.VRef),
		Resolution:       c.Sensor.Resolution,
		Mode:             mode,
		Sampling: current.Sampling{
			CalibrationSamples: c.Sampling.CalibrationSamples,
			CalibrationDelay:   c.Sampling.CalibrationDelay,
			DCSamples:          c.Sampling.DCSamples,
			DCDelay:            c.Sampling.DCDelay,
			Frequency:          float32(c.Sampling.Frequency),
			Interval:           c.Sampling.Interval,
			Threshold:          c.Sampling.Threshold,
		},
	}
	if err := cfg.Validate(); err != nil {
		return current.Config{}, current.Calibration{}, fmt.Errorf("invalid sensor configuration: %w", err)
	}

	cal := current.Calibration{
		Sensitivity: float32(c.Calibration.Sensitivity),
		ZeroPoint:   float32(c.Calibration.ZeroPoint),
	}
	if !(cal.Sensitivity > 0) {
		return current.Config{}, current.Calibration{}, fmt.Errorf("calibration: %w", current.ErrInvalidSensitivity)
	}
	if math.IsNaN(c.Calibration.ZeroPoint) || math.IsInf(c.Calibration.ZeroPoint, 0) {
		return current.Config{}, current.Calibration{}, fmt.Errorf("calibration: %w", current.ErrInvalidZeroPoint)
	}

	return cfg, cal, nil
}

// SetCalibration stores cal so that it survives a Save.
func (c *Config) SetCalibration(cal current.Calibration) {
	c.Calibration.Sensitivity = float64(cal.Sensitivity)
	c.Calibration.ZeroPoint = float64(cal.ZeroPoint)
}

// ensureDefaults ensures that all required fields have default values if missing.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Serial.Port == "" {
		c.Serial.Port = def.Serial.Port
	}
	if c.Serial.BaudRate == 0 {
		c.Serial.BaudRate = def.Serial.BaudRate
	}

	if c.Sensor.Model == "" {
		c.Sensor.Model = def.Sensor.Model
	}
	if c.Sensor.VRef == 0 {
		c.Sensor.VRef = def.Sensor.VRef
	}
	if c.Sensor.Resolution == 0 {
		c.Sensor.Resolution = def.Sensor.Resolution
	}

	if c.Calibration.Sensitivity == 0 {
		c.Calibration.Sensitivity = c.Sensor.Model.Sensitivity()
	}
	if c.Calibration.ZeroPoint == 0 {
		c.Calibration.ZeroPoint = float64(c.Sensor.Resolution) / 2
	}

	if c.Sampling.Mode == "" {
		c.Sampling.Mode = def.Sampling.Mode
	}
	if c.Sampling.CalibrationSamples == 0 {
		c.Sampling.CalibrationSamples = def.Sampling.CalibrationSamples
	}
	if c.Sampling.CalibrationDelay == 0 {
		c.Sampling.CalibrationDelay = def.Sampling.CalibrationDelay
	}
	if c.Sampling.DCSamples == 0 {
		c.Sampling.DCSamples = def.Sampling.DCSamples
	}
	if c.Sampling.Frequency == 0 {
		c.Sampling.Frequency = def.Sampling.Frequency
	}
	if c.Sampling.Interval == 0 {
		c.Sampling.Interval = def.Sampling.Interval
	}
	if c.Sampling.Threshold == 0 {
		c.Sampling.Threshold = def.Sampling.Threshold
	}

	if c.Measurement.WindowSeconds == 0 {
		c.Measurement.WindowSeconds = def.Measurement.WindowSeconds
	}

	if c.Mock.Frequency == 0 {
		c.Mock.Frequency = def.Mock.Frequency
	}
	if c.Mock.SampleRate == 0 {
		c.Mock.SampleRate = def.Mock.SampleRate
	}
}

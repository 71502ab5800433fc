package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/itohio/goacs712/pkg/config"
	"github.com/itohio/goacs712/pkg/device"
)

func main() {
	var (
		portFlag           = flag.String("p", "", "Serial port override (e.g., COM3 or /dev/ttyACM0)")
		configFlag         = flag.String("config", "config.yaml", "Configuration file path")
		mockFlag           = flag.Bool("mock", false, "Use mocked device instead of serial port")
		modeFlag           = flag.String("mode", "stream", "stream, dc, ac, poll or measure (the last four run the sensor against a simulated ADC)")
		calibrateFlag      = flag.Bool("calibrate", false, "Estimate the zero point before measuring (no current may flow)")
		saveFlag           = flag.Bool("save", false, "Save the calibration to the configuration file")
		durationFlag       = flag.Duration("duration", 0, "Stop after this long (0 = until interrupted)")
		reportFlag         = flag.Duration("report", time.Second, "Reporting interval")
		averageSamplesFlag = flag.Int("average-samples", -1, "Number of samples to average (0 = disabled, overrides config)")
		listFlag           = flag.Bool("list", false, "List serial ports and exit")
		guiFlag            = flag.Bool("gui", false, "Show the stream as a live scope window")
	)
	flag.Parse()

	if *listFlag {
		ports, err := device.Ports()
		if err != nil {
			log.Fatalf("Failed to list ports: %v", err)
		}
		for _, p := range ports {
			log.Printf("%s\t%s", p.Name, p.Description)
		}
		return
	}

	// Load configuration
	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Override serial port if provided via command line
	if *portFlag != "" {
		cfg.Serial.Port = *portFlag
	}

	// Override average samples if provided via command line
	if *averageSamplesFlag >= 0 {
		cfg.Measurement.AverageSamples = *averageSamplesFlag
	}

	opts := options{
		calibrate: *calibrateFlag,
		report:    *reportFlag,
	}

	if *guiFlag {
		runGUI(cfg, *configFlag, *mockFlag, opts)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if *durationFlag > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *durationFlag)
		defer cancel()
	}

	switch *modeFlag {
	case "stream":
		err = runStream(ctx, cfg, *mockFlag, opts)
	default:
		err = runLocal(ctx, cfg, *modeFlag, opts)
	}
	if err != nil {
		log.Fatalf("Measurement failed: %v", err)
	}

	if *saveFlag {
		if err := cfg.Save(*configFlag); err != nil {
			log.Fatalf("Failed to save configuration: %v", err)
		}
		log.Printf("Calibration saved to %s (zero point %.2f)", *configFlag, cfg.Calibration.ZeroPoint)
	}
}

// options holds the command line settings shared by all modes.
type options struct {
	calibrate bool
	report    time.Duration
}

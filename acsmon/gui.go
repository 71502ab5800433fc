package main

import (
	"context"
	"log"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/itohio/goacs712/pkg/config"
	"github.com/itohio/goacs712/pkg/meter"
	"github.com/itohio/goacs712/pkg/sample"
	"github.com/itohio/goacs712/pkg/scope"
)

// Scope redraw throttle, ~60 FPS
const updateInterval = 16 * time.Millisecond

// appState holds the GUI state.
type appState struct {
	cfg          *config.Config
	configPath   string
	useMock      bool
	calibrate    bool
	currentMeter *meter.Meter
	scopeWidget  *scope.ScopeWidget
	window       fyne.Window
	chain        *measurementChain // Current measurement chain (nil if not connected)

	// Throttling for scope updates
	lastUpdateTime time.Time
	updateMu       sync.Mutex
}

// runGUI shows the meter window as a live scope until the window is closed.
func runGUI(cfg *config.Config, configPath string, useMock bool, opts options) {
	application := app.NewWithID("com.itohio.goacs712")

	window := application.NewWindow("ACS712 Current Monitor")
	window.Resize(fyne.NewSize(1200, 800))
	window.CenterOnScreen()

	state := &appState{
		cfg:          cfg,
		configPath:   configPath,
		useMock:      useMock,
		calibrate:    opts.calibrate,
		currentMeter: meter.New(cfg),
		scopeWidget:  scope.New(cfg),
		window:       window,
	}

	// Register the scope feed once, before any chain is started
	state.currentMeter.OnUpdate(state.onMeterUpdate)

	window.SetContent(container.NewBorder(createToolbar(state), nil, nil, nil, state.scopeWidget))
	window.SetOnClosed(func() {
		closeMeasurementChain(state.chain)
		state.chain = nil
	})
	window.ShowAndRun()
}

// createToolbar creates the Connect and Save calibration buttons.
func createToolbar(state *appState) fyne.CanvasObject {
	connectBtn := widget.NewButtonWithIcon("", theme.LoginIcon(), func() {
		handleConnect(state)
	})
	saveBtn := widget.NewButtonWithIcon("", theme.DocumentSaveIcon(), func() {
		if err := state.cfg.Save(state.configPath); err != nil {
			dialog.ShowError(err, state.window)
			return
		}
		log.Printf("Calibration saved to %s (zero point %.2f)", state.configPath, state.cfg.Calibration.ZeroPoint)
	})
	return container.NewHBox(connectBtn, saveBtn)
}

// handleConnect toggles the measurement chain.
func handleConnect(state *appState) {
	if state.chain != nil {
		closeMeasurementChain(state.chain)
		state.chain = nil
		log.Println("Disconnected")
		return
	}

	dev, err := openDevice(state.cfg, state.useMock)
	if err != nil {
		dialog.ShowError(err, state.window)
		return
	}

	// Calibrate on the first connection only
	chain, err := startMeasurementChain(context.Background(), state.cfg, dev, state.currentMeter, state.calibrate)
	if err != nil {
		dialog.ShowError(err, state.window)
		return
	}
	state.calibrate = false
	state.chain = chain
}

// onMeterUpdate forwards the meter window to the scope on the main thread.
func (state *appState) onMeterUpdate(samples []sample.Sample, stats meter.Stats) {
	// Throttle updates to prevent UI from being overwhelmed
	state.updateMu.Lock()
	now := time.Now()
	if now.Sub(state.lastUpdateTime) < updateInterval {
		state.updateMu.Unlock()
		return
	}
	state.lastUpdateTime = now
	state.updateMu.Unlock()

	fyne.Do(func() {
		state.scopeWidget.UpdateData(samples, stats)
	})
}

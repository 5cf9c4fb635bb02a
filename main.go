// Program trafficdash polls a traffic metrics endpoint and renders per-client
// inbound/outbound volumes as a live bar chart with protocol drill-down.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trafficdash/config"
	"trafficdash/coordinator"
	"trafficdash/poller"
	"trafficdash/ui"

	"golang.org/x/term"
)

const shutdownTimeout = 2 * time.Second

// Purpose: Report whether stdout is a TTY for UI gating.
// Key aspects: Uses term.IsTerminal on stdout fd.
// Upstream: main UI selection.
// Downstream: term.IsTerminal.
func isStdoutTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// Purpose: Decide which renderer to run.
// Key aspects: Interactive modes fall back to headless without a TTY; the note explains why.
// Upstream: main startup.
// Downstream: None.
func resolveUIMode(mode string, tty bool) (string, string) {
	switch mode {
	case config.UIModeHeadless:
		return config.UIModeHeadless, "UI disabled (mode=headless)"
	case config.UIModeTview, config.UIModeANSI:
		if !tty {
			return config.UIModeHeadless, "UI disabled (" + mode + " requires an interactive console)"
		}
		return mode, ""
	default:
		return config.UIModeHeadless, "UI mode " + mode + " not recognized; defaulting to headless"
	}
}

// Purpose: Build the renderer surface for the resolved mode.
// Key aspects: Returns nil for headless; tview surfaces are bound to the coordinator later.
// Upstream: main startup.
// Downstream: ui.NewDashboard and newANSIConsole.
func newSurface(mode string, cfg config.UIConfig, metrics *coordinator.Metrics) ui.Surface {
	switch mode {
	case config.UIModeTview:
		return ui.NewDashboard(cfg, metrics)
	case config.UIModeANSI:
		return newANSIConsole(cfg, os.Stdout)
	default:
		return nil
	}
}

// Purpose: Program entrypoint; wires config, logging, poller, coordinator and UI.
// Key aspects: Shuts down on SIGINT/SIGTERM or a quit request from the UI.
// Upstream: OS process start.
// Downstream: poller.Run, coordinator.Run.
func main() {
	configPath := flag.String("config", "", "path to YAML config (overrides $"+config.EnvVar+" and "+config.DefaultFile+")")
	flag.Parse()

	cfg, configSource, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	fanout, logErr := setupLogging(cfg.Logging, os.Stdout)
	defer fanout.Close()
	// Sinks add their own timestamps.
	log.SetFlags(0)
	log.SetOutput(fanout)
	if logErr != nil {
		log.Printf("Logging: file logging disabled: %v", logErr)
	}
	if configSource == "" {
		log.Printf("No config file found; using defaults")
	} else {
		log.Printf("Loaded configuration from %s", configSource)
	}

	mode, note := resolveUIMode(cfg.UI.Mode, isStdoutTTY())
	if note != "" {
		log.Print(note)
	}

	metrics := coordinator.NewMetrics()
	surface := newSurface(mode, cfg.UI, metrics)
	var renderer coordinator.Renderer = newHeadlessRenderer(nil)
	var quit <-chan struct{}
	if surface != nil {
		surface.WaitReady()
		defer surface.Stop()
		// The tview log pane stamps lines itself.
		fanout.SetConsoleSink(surface.SystemWriter(), mode != config.UIModeTview)
		renderer = surface
		quit = surface.Done()
	}

	coord, err := coordinator.New(renderer, metrics, cfg.Endpoint.WindowLabel())
	if err != nil {
		log.Fatalf("Error creating coordinator: %v", err)
	}
	if dash, ok := surface.(*ui.Dashboard); ok {
		dash.Bind(coord.Select, coord.Back)
	}

	fetcher := poller.NewHTTPFetcher(cfg.Endpoint.URL, &http.Client{})
	p, err := poller.New(poller.Config{
		Interval:       cfg.Endpoint.PollInterval(),
		RequestTimeout: cfg.Endpoint.RequestTimeout(),
	}, fetcher)
	if err != nil {
		log.Fatalf("Error creating poller: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	results := make(chan poller.Result, 4)
	pollerDone := make(chan struct{})
	go func() {
		p.Run(ctx, results)
		close(pollerDone)
	}()
	coordDone := make(chan struct{})
	go func() {
		coord.Run(ctx, results)
		close(coordDone)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	log.Printf("Polling %s every %s", cfg.Endpoint.URL, cfg.Endpoint.PollInterval())
	select {
	case sig := <-sigChan:
		log.Printf("Received %s, shutting down", sig)
	case <-quit:
		log.Printf("Quit requested, shutting down")
	}
	cancel()
	waitWithTimeout(shutdownTimeout, coordDone, pollerDone)
	// Later lines go to stderr once the UI stops owning the screen.
	fanout.SetConsoleSink(os.Stderr, true)
}

// Purpose: Bound shutdown waits so a stuck request cannot hang exit.
// Key aspects: Waits on each channel against one shared deadline.
// Upstream: main shutdown.
// Downstream: time.After.
func waitWithTimeout(timeout time.Duration, chans ...<-chan struct{}) bool {
	deadline := time.After(timeout)
	for _, ch := range chans {
		select {
		case <-ch:
		case <-deadline:
			log.Printf("Shutdown timed out after %s", timeout)
			return false
		}
	}
	return true
}

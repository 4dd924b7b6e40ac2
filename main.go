package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/smazurov/grabnode/cmd"
	"github.com/smazurov/grabnode/internal/api"
	"github.com/smazurov/grabnode/internal/camera"
	"github.com/smazurov/grabnode/internal/config"
	"github.com/smazurov/grabnode/internal/events"
	"github.com/smazurov/grabnode/internal/indicator"
	"github.com/smazurov/grabnode/internal/inventory"
	"github.com/smazurov/grabnode/internal/logging"
	"github.com/smazurov/grabnode/internal/metrics"
	natsbridge "github.com/smazurov/grabnode/internal/nats"
	"github.com/smazurov/grabnode/internal/provider/sim"
	"github.com/smazurov/grabnode/internal/rig"
	"github.com/smazurov/grabnode/internal/systemd"
	"github.com/smazurov/grabnode/internal/version"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"config.toml"`

	// Server settings
	Port string `help:"Port to listen on" short:"p" default:":8090" toml:"server.port" env:"SERVER_PORT"`

	// Inventory settings
	InventoryFile     string `help:"Camera inventory file" default:"cameras.toml" toml:"inventory.file" env:"INVENTORY_FILE"`
	InventoryWatch    bool   `help:"Re-apply the inventory when the file changes" default:"true" toml:"inventory.watch" env:"INVENTORY_WATCH"`
	InventoryDebounce string `help:"Quiet period before a changed inventory is applied" default:"1500ms" toml:"inventory.debounce" env:"INVENTORY_DEBOUNCE"`

	// Simulated provider settings
	SimFrameInterval string `help:"Interval between synthetic frames" default:"100ms" toml:"sim.frame_interval" env:"SIM_FRAME_INTERVAL"`
	SimFailStart     bool   `help:"Make every acquisition start fail" default:"false" toml:"sim.fail_start" env:"SIM_FAIL_START"`

	// NATS settings
	NATSURL      string `help:"NATS server to mirror events to; empty disables" default:"" toml:"nats.url" env:"NATS_URL"`
	NATSEmbedded bool   `help:"Run an embedded NATS server and connect to it" default:"false" toml:"nats.embedded" env:"NATS_EMBEDDED"`
	NATSPort     int    `help:"Embedded NATS server port" default:"4222" toml:"nats.port" env:"NATS_PORT"`
	NATSControl  bool   `help:"Accept camera control requests over NATS" default:"true" toml:"nats.control" env:"NATS_CONTROL"`

	// Auth settings
	AuthUsername string `help:"Basic auth username" default:"admin" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `help:"Basic auth password" default:"password" toml:"auth.password" env:"AUTH_PASSWORD"`

	// Features settings
	FeaturesLEDControl bool `help:"Drive the board status LED from camera state" default:"false" toml:"features.led_control_enabled" env:"FEATURES_LED_CONTROL"`
	FeaturesPrometheus bool `help:"Serve Prometheus metrics on /metrics" default:"true" toml:"features.prometheus_enabled" env:"FEATURES_PROMETHEUS"`

	// Logging settings
	LoggingLevel     string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat    string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingCamera    string `help:"Camera core logging level" default:"info" toml:"logging.camera" env:"LOGGING_CAMERA"`
	LoggingRig       string `help:"Rig logging level" default:"info" toml:"logging.rig" env:"LOGGING_RIG"`
	LoggingSim       string `help:"Simulated provider logging level" default:"info" toml:"logging.sim" env:"LOGGING_SIM"`
	LoggingAPI       string `help:"API logging level" default:"info" toml:"logging.api" env:"LOGGING_API"`
	LoggingHTTP      string `help:"HTTP request logging level" default:"info" toml:"logging.http" env:"LOGGING_HTTP"`
	LoggingIndicator string `help:"Indicator logging level" default:"info" toml:"logging.indicator" env:"LOGGING_INDICATOR"`
	LoggingNATS      string `help:"NATS logging level" default:"info" toml:"logging.nats" env:"LOGGING_NATS"`
}

func parseDuration(value string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func main() {
	var cli humacli.CLI
	cli = humacli.New(func(hooks humacli.Hooks, opts *Options) {
		if loadErr := config.LoadConfig(opts, cli.Root()); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		logging.Initialize(logging.Config{
			Level:  opts.LoggingLevel,
			Format: opts.LoggingFormat,
			Modules: map[string]string{
				"camera":    opts.LoggingCamera,
				"rig":       opts.LoggingRig,
				"sim":       opts.LoggingSim,
				"api":       opts.LoggingAPI,
				"http":      opts.LoggingHTTP,
				"indicator": opts.LoggingIndicator,
				"nats":      opts.LoggingNATS,
			},
		})
		logger := logging.GetLogger("main")

		eventBus := events.New()

		collector := metrics.New(prometheus.DefaultRegisterer)
		detachMetrics := collector.Attach(eventBus)

		simProvider := sim.New(sim.Options{
			FrameInterval: parseDuration(opts.SimFrameInterval, 100*time.Millisecond),
			FailStart:     opts.SimFailStart,
		})
		// Cameras call through the binding; Bind swaps providers at runtime.
		binding := camera.NewBinding(camera.FuncsOf(collector.Instrument(simProvider)))

		frames := api.NewFrameHub()
		manager := rig.New(rig.Options{
			Provider: binding,
			Bus:      eventBus,
			Hooks:    camera.Hooks{OnFrame: collector.ObserveFrame},
			Handler:  frames.Deliver,
		})

		cams, err := inventory.ReadFile(opts.InventoryFile)
		if err != nil {
			logger.Error("Failed to read inventory", "path", opts.InventoryFile, "error", err)
			os.Exit(1)
		}
		if applyErr := manager.Apply(context.Background(), cams); applyErr != nil {
			logger.Warn("Inventory applied with errors", "path", opts.InventoryFile, "error", applyErr)
		}
		logger.Info("Inventory loaded", "path", opts.InventoryFile, "cameras", manager.Len())

		var ledManager *indicator.Manager
		if opts.FeaturesLEDControl {
			ledLogger := logging.GetLogger("indicator")
			controller, led := indicator.New(ledLogger)
			ledManager = indicator.NewManager(controller, led, eventBus, ledLogger)
		}

		apiOpts := &api.Options{
			AuthUsername: opts.AuthUsername,
			AuthPassword: opts.AuthPassword,
			Rig:          manager,
			Bus:          eventBus,
			Metrics:      collector,
			Indicator:    ledManager,
			Frames:       frames,
			Store:        inventory.NewTOML(opts.InventoryFile),
		}
		if opts.FeaturesPrometheus {
			apiOpts.PrometheusHandler = collector.Handler()
		}

		debounce := parseDuration(opts.InventoryDebounce, config.DefaultDebounce)
		watcher := manager.Watcher(opts.InventoryFile, config.WithDebounce[[]inventory.Camera](debounce))
		apiOpts.Inventory = watcher

		server := api.NewServer(apiOpts)
		notifier := systemd.NewNotifier(logging.GetLogger("systemd"))

		var natsServer *natsbridge.Server
		var bridge *natsbridge.Bridge
		natsURL := opts.NATSURL
		if opts.NATSEmbedded {
			natsServer = natsbridge.NewServer(natsbridge.ServerOptions{Port: opts.NATSPort})
			natsURL = natsServer.ClientURL()
		}
		if natsURL != "" {
			var controller natsbridge.Controller
			if opts.NATSControl {
				controller = manager
			}
			bridge = natsbridge.NewBridge(natsURL, eventBus, controller, logging.GetLogger("nats"))
		}

		hooks.OnStart(func() {
			if opts.InventoryWatch {
				if watchErr := watcher.Start(); watchErr != nil {
					logger.Warn("Failed to watch inventory", "path", opts.InventoryFile, "error", watchErr)
				}
			}

			if ledManager != nil {
				ledManager.Start()
			}

			if natsServer != nil {
				if natsErr := natsServer.Start(); natsErr != nil {
					logger.Error("Failed to start embedded NATS server", "error", natsErr)
					os.Exit(1)
				}
			}
			if bridge != nil {
				if natsErr := bridge.Start(); natsErr != nil {
					logger.Warn("NATS bridge unavailable", "url", natsURL, "error", natsErr)
				}
			}

			notifier.Ready()
			logger.Info("Starting HTTP server", "port", opts.Port, "version", version.String())
			if startErr := server.Start(opts.Port); startErr != nil && !errors.Is(startErr, http.ErrServerClosed) {
				logger.Error("Failed to start HTTP server", "error", startErr)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down server")
			notifier.Stopping()
			if stopErr := server.Stop(); stopErr != nil {
				logger.Error("Error stopping HTTP server", "error", stopErr)
			}

			if stopErr := watcher.Stop(); stopErr != nil {
				logger.Warn("Error stopping inventory watcher", "error", stopErr)
			}
			if bridge != nil {
				bridge.Stop()
			}
			if natsServer != nil {
				natsServer.Stop()
			}

			// Close cameras after the HTTP server stops accepting new requests.
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if closeErr := manager.Close(ctx); closeErr != nil {
				logger.Error("Error closing cameras", "error", closeErr)
			}
			simProvider.Close()

			if ledManager != nil {
				ledManager.Stop()
			}
			detachMetrics()
		})
	})

	cli.Root().Version = version.String()
	cli.Root().AddCommand(cmd.CreateValidateCmd())
	cli.Root().AddCommand(cmd.CreateSimulateCmd())

	cli.Run()
}

package main

import (
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"

	"github.com/dmtar/camgate/cmd"
	"github.com/dmtar/camgate/internal/api"
	"github.com/dmtar/camgate/internal/camera"
	"github.com/dmtar/camgate/internal/config"
	"github.com/dmtar/camgate/internal/devices"
	"github.com/dmtar/camgate/internal/events"
	"github.com/dmtar/camgate/internal/hardware"
	"github.com/dmtar/camgate/internal/logging"
	"github.com/dmtar/camgate/internal/metrics"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"config.toml"`

	// Server settings
	Port string `help:"Address to listen on" short:"p" default:":8090" toml:"server.port" env:"SERVER_PORT"`

	// Device settings
	DevicesFile        string `help:"Device definitions file" default:"devices.toml" toml:"devices.file" env:"DEVICES_FILE"`
	DevicesWatch       bool   `help:"Reload the devices file on change" default:"true" toml:"devices.watch" env:"DEVICES_WATCH"`
	HardwareLatencyMs  int    `help:"Simulated per-operation hardware latency in milliseconds" default:"0" toml:"hardware.latency_ms" env:"HARDWARE_LATENCY_MS"`
	OperationTimeoutMs int    `help:"Synchronous operation timeout in milliseconds" default:"2500" toml:"camera.operation_timeout_ms" env:"OPERATION_TIMEOUT_MS"`

	// Auth settings
	AuthUsername string `help:"Basic auth username" default:"" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `help:"Basic auth password" default:"" toml:"auth.password" env:"AUTH_PASSWORD"`

	// Logging settings
	LoggingLevel  string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingCamera string `help:"Camera engine logging level" default:"info" toml:"logging.camera" env:"LOGGING_CAMERA"`
	LoggingWorker string `help:"Worker loop logging level" default:"info" toml:"logging.worker" env:"LOGGING_WORKER"`
	LoggingAPI    string `help:"API logging level" default:"info" toml:"logging.api" env:"LOGGING_API"`
	LoggingHTTP   string `help:"HTTP request logging level" default:"info" toml:"logging.http" env:"LOGGING_HTTP"`
}

func main() {
	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		if loadErr := config.Load(opts, nil); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		logging.Initialize(logging.Config{
			Level:  opts.LoggingLevel,
			Format: opts.LoggingFormat,
			Modules: map[string]string{
				"camera": opts.LoggingCamera,
				"worker": opts.LoggingWorker,
				"api":    opts.LoggingAPI,
				"http":   opts.LoggingHTTP,
			},
		})
		logger := logging.GetLogger("main")

		// Device registry, reloadable from the devices file.
		registry := devices.NewTableRegistry(nil)
		if infos, err := devices.LoadFile(opts.DevicesFile); err != nil {
			logger.Warn("Failed to load devices file, starting with empty registry",
				"path", opts.DevicesFile, "error", err)
		} else {
			registry.Replace(infos)
			logger.Info("Device registry loaded", "path", opts.DevicesFile, "devices", len(infos))
		}

		var watcher *config.Watcher[[]devices.Info]
		if opts.DevicesWatch {
			watcher = config.NewWatcher(opts.DevicesFile, devices.LoadFile,
				logging.GetLogger("devices"))
			watcher.OnReload(func(infos []devices.Info) {
				registry.Replace(infos)
				logger.Info("Device registry reloaded", "devices", len(infos))
			})
		}

		eventBus := events.New()

		backend := hardware.NewSimulated(
			hardware.WithLatency(time.Duration(opts.HardwareLatencyMs) * time.Millisecond))

		// The manager is built lazily on first acquire and torn down
		// when the last client releases.
		shared := camera.NewShared(func() *camera.Manager {
			return camera.NewManager(backend, registry, eventBus)
		})
		client, manager := shared.Acquire()

		bridge := metrics.NewBridge(eventBus, logging.GetLogger("metrics"))

		server := api.NewServer(&api.Options{
			AuthUsername:      opts.AuthUsername,
			AuthPassword:      opts.AuthPassword,
			Manager:           manager,
			Registry:          registry,
			PrometheusHandler: metrics.Handler(),
			OperationTimeout:  time.Duration(opts.OperationTimeoutMs) * time.Millisecond,
		})

		hooks.OnStart(func() {
			bridge.Start()

			if watcher != nil {
				if err := watcher.Start(); err != nil {
					logger.Warn("Failed to watch devices file", "error", err)
				}
			}

			logger.Info("Starting HTTP server", "port", opts.Port)
			if err := server.Start(opts.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Failed to start HTTP server", "error", err)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down")
			if err := server.Stop(); err != nil {
				logger.Error("Error stopping HTTP server", "error", err)
			}

			if watcher != nil {
				if err := watcher.Stop(); err != nil {
					logger.Error("Error stopping devices watcher", "error", err)
				}
			}

			// Releasing the last client shuts the manager down and
			// closes every open device session.
			client.Release()
			bridge.Stop()
		})
	})

	cli.Root().AddCommand(cmd.ListDevicesCmd)

	cli.Run()
}

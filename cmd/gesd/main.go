// Guardian Event Simulator daemon.
//
// gesd hosts a fleet of simulated water-safety devices (shutoff valves
// and leak detectors) behind a UDP control plane. Operators spawn
// devices, start and kill simulation runs, and pair detectors to valves
// by sending JSON datagrams; gesctl is the matching client.
package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	_ "github.com/guardiansim/ges-core/migrations"

	"github.com/guardiansim/ges-core/internal/comm"
	"github.com/guardiansim/ges-core/internal/control"
	"github.com/guardiansim/ges-core/internal/device"
	"github.com/guardiansim/ges-core/internal/history"
	"github.com/guardiansim/ges-core/internal/infrastructure/config"
	"github.com/guardiansim/ges-core/internal/infrastructure/logging"
	"github.com/guardiansim/ges-core/internal/simulation"
	"github.com/guardiansim/ges-core/internal/telemetry"
	"github.com/guardiansim/ges-core/internal/uplink"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// options holds the command-line flags.
type options struct {
	configPath string
	ip         string
	port       int
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newRootCmd builds the daemon's command-line interface.
func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:           "gesd",
		Short:         "Guardian Event Simulator daemon",
		Long:          "gesd simulates a fleet of water shutoff valves and leak detectors,\ncontrolled over a local UDP command socket.",
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts, cmd.Flags().Changed("ip"), cmd.Flags().Changed("port"))
		},
	}

	cmd.Flags().StringVar(&opts.configPath, "config", "", "path to config.yaml (defaults apply when omitted)")
	cmd.Flags().StringVar(&opts.ip, "ip", "127.0.0.1", "listener bind address")
	cmd.Flags().IntVarP(&opts.port, "port", "p", 7700, "listener port")

	return cmd
}

// run is the actual daemon logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//   - opts: Parsed command-line flags
//   - ipSet, portSet: Whether the listener flags were given explicitly
//     (explicit flags override the config file)
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context, opts *options, ipSet, portSet bool) error {
	cfg, err := loadConfig(opts, ipSet, portSet)
	if err != nil {
		return err
	}

	log, err := logging.New(cfg.Logging, version)
	if err != nil {
		return fmt.Errorf("initialising logger: %w", err)
	}
	defer log.Close() //nolint:errcheck // Best effort on shutdown

	log.Info("starting gesd",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Journal (optional)
	var recorder control.Recorder = control.NopRecorder{}
	if cfg.History.Enabled {
		store, err := history.Open(cfg.History)
		if err != nil {
			return fmt.Errorf("opening journal: %w", err)
		}
		defer func() {
			log.Info("closing journal")
			if closeErr := store.Close(); closeErr != nil {
				log.Error("error closing journal", "error", closeErr)
			}
		}()

		if err := store.Migrate(ctx); err != nil {
			return fmt.Errorf("migrating journal: %w", err)
		}
		log.Info("journal ready", "path", store.Path())
		recorder = store
	} else {
		log.Info("journal disabled")
	}

	// Cloud uplink (optional)
	var events device.EventSink = device.NopEventSink{}
	var uplinkClient *uplink.Client
	if cfg.Uplink.Enabled {
		uplinkClient, err = uplink.Connect(cfg.Uplink)
		if err != nil {
			return fmt.Errorf("connecting uplink: %w", err)
		}
		defer func() {
			log.Info("disconnecting uplink")
			if closeErr := uplinkClient.Close(); closeErr != nil {
				log.Error("error closing uplink", "error", closeErr)
			}
		}()

		uplinkClient.SetLogger(log)
		uplinkClient.SetOnConnect(func() {
			log.Info("uplink connected")
		})
		uplinkClient.SetOnDisconnect(func(err error) {
			log.Warn("uplink disconnected", "error", err)
		})
		log.Info("uplink connected",
			"broker", fmt.Sprintf("%s:%d", cfg.Uplink.Broker.Host, cfg.Uplink.Broker.Port),
			"client_id", cfg.Uplink.Broker.ClientID,
		)
		events = uplinkClient
	} else {
		log.Info("uplink disabled")
	}

	// Telemetry (optional)
	var metrics device.MetricSink = device.NopMetricSink{}
	var telemetryClient *telemetry.Client
	if cfg.Telemetry.Enabled {
		telemetryClient, err = telemetry.Connect(cfg.Telemetry)
		if err != nil {
			return fmt.Errorf("connecting telemetry: %w", err)
		}
		defer func() {
			log.Info("closing telemetry")
			if closeErr := telemetryClient.Close(); closeErr != nil {
				log.Error("error closing telemetry", "error", closeErr)
			}
		}()

		telemetryClient.SetOnError(func(err error) {
			log.Error("telemetry write error", "error", err)
		})
		log.Info("telemetry connected",
			"url", cfg.Telemetry.URL,
			"org", cfg.Telemetry.Org,
			"bucket", cfg.Telemetry.Bucket,
		)
		metrics = telemetryClient
	} else {
		log.Info("telemetry disabled")
	}

	// Simulation engine and control plane
	seed := cfg.Simulation.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // Simulation randomness, not cryptographic

	env := simulation.NewEnvironment(simulation.Options{
		Realtime: cfg.Simulation.Realtime,
		Logger:   log,
	})
	rf := comm.NewTunnel(comm.MediumRF, log)
	registry := device.NewRegistry(log)
	runner := control.NewRunner(env, log)

	listener, err := control.NewListener(cfg.Listener, log)
	if err != nil {
		return fmt.Errorf("starting listener: %w", err)
	}
	defer listener.Close() //nolint:errcheck // Serve's shutdown already closes

	controller := control.NewController(control.ControllerOptions{
		Registry:  registry,
		Runner:    runner,
		RF:        rf,
		Responder: listener,
		Recorder:  recorder,
		Events:    events,
		Metrics:   metrics,
		Rand:      rng,
		Logger:    log,
	})
	listener.SetHandler(controller)

	// Forward run transitions to the journal, the uplink and telemetry.
	go watchLifecycle(ctx, runner, recorder, uplinkClient, telemetryClient, log)

	log.Info("control listener ready",
		"addr", listener.Addr().String(),
		"realtime", cfg.Simulation.Realtime,
	)

	if err := listener.Serve(ctx); err != nil {
		return fmt.Errorf("listener: %w", err)
	}

	log.Info("shutdown signal received, cleaning up")

	// Hard-stop any active run before the deferred close chain.
	if err := runner.Kill(); err == nil {
		log.Info("active run killed for shutdown")
	}

	log.Info("gesd stopped")
	return nil
}

// loadConfig loads the configuration file (or defaults) and applies
// explicit listener flags over it.
func loadConfig(opts *options, ipSet, portSet bool) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if opts.configPath != "" {
		cfg, err = config.Load(opts.configPath)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
	} else {
		cfg = config.Default()
	}

	if ipSet {
		cfg.Listener.IP = opts.ip
	}
	if portSet {
		cfg.Listener.Port = opts.port
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// watchLifecycle consumes runner transitions until shutdown, journalling
// each and forwarding it to the uplink and telemetry when connected.
func watchLifecycle(ctx context.Context, runner *control.Runner, recorder control.Recorder, uplinkClient *uplink.Client, telemetryClient *telemetry.Client, log *logging.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-runner.Events():
			log.Info("simulation transition",
				"from", string(ev.From),
				"to", string(ev.To),
				"reason", ev.Reason,
				"clock", ev.Clock,
			)

			detail := map[string]any{
				"from":   string(ev.From),
				"to":     string(ev.To),
				"reason": ev.Reason,
				"clock":  ev.Clock,
			}
			if err := recorder.RecordEvent(ctx, "lifecycle", "", detail); err != nil {
				log.Warn("journalling transition failed", "error", err)
			}
			if uplinkClient != nil {
				uplinkClient.Lifecycle("simulation_"+string(ev.To), detail)
			}
			if telemetryClient != nil {
				telemetryClient.WritePoint("simulation_runs",
					map[string]string{
						"to":     string(ev.To),
						"reason": ev.Reason,
					},
					map[string]interface{}{
						"clock_seconds": float64(ev.Clock),
					},
				)
			}
		}
	}
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/pulsedeck/decisiond/internal/audit"
	"github.com/pulsedeck/decisiond/internal/clock"
	"github.com/pulsedeck/decisiond/internal/config"
	"github.com/pulsedeck/decisiond/internal/engine"
	"github.com/pulsedeck/decisiond/internal/gates"
	httpiface "github.com/pulsedeck/decisiond/internal/interfaces/http"
	"github.com/pulsedeck/decisiond/internal/market"
	"github.com/pulsedeck/decisiond/internal/metrics"
	"github.com/pulsedeck/decisiond/internal/store"
)

const appName = "decisiond"

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	if term.IsTerminal(int(os.Stderr.Fd())) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Deterministic trading decision engine",
		Version: config.EngineVersion,
		Long: `decisiond ingests producer webhooks (signals, regime phases, trend
snapshots, structural setups), keeps them in short-TTL stores, and
evaluates an ordered gate pipeline into EXECUTE / WAIT / SKIP packets.`,
	}
	rootCmd.PersistentFlags().String("config", "", "Path to settings YAML (defaults apply when empty)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (trace|debug|info|warn|error)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook and query HTTP server",
		RunE:  runServe,
	}

	decideCmd := &cobra.Command{
		Use:   "decide [ticker]",
		Short: "Evaluate one decision offline and print the packet",
		Long: `Evaluates the gate pipeline for a ticker against webhook payloads
read from files, without starting a server. Useful for replaying a
production moment from captured payloads.`,
		Args: cobra.ExactArgs(1),
		RunE: runDecide,
	}
	decideCmd.Flags().StringSlice("payload", nil, "Webhook payload file to ingest before deciding (repeatable)")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print engine version and config hash",
		RunE:  runVersion,
	}

	rootCmd.AddCommand(serveCmd, decideCmd, versionCmd)
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func setup(cmd *cobra.Command) (config.Settings, *config.Registry, error) {
	levelName, _ := cmd.Flags().GetString("log-level")
	level, err := zerolog.ParseLevel(levelName)
	if err != nil {
		return config.Settings{}, nil, fmt.Errorf("invalid log level %q", levelName)
	}
	zerolog.SetGlobalLevel(level)

	path, _ := cmd.Flags().GetString("config")
	settings, err := config.LoadSettings(path)
	if err != nil {
		return config.Settings{}, nil, err
	}
	return settings, config.MustRegistry(config.Defaults()), nil
}

// buildEngine wires the full decision stack from settings.
func buildEngine(settings config.Settings, reg *config.Registry) (*engine.Engine, engine.Stores, *market.Builder, *audit.Log, *metrics.Registry, error) {
	clk := clock.System{}
	rng := clock.NewSeededRNG(time.Now().UnixNano())

	stores, err := buildStores(settings, clk, reg.Version())
	if err != nil {
		return nil, engine.Stores{}, nil, nil, nil, err
	}

	session, err := gates.NewSessionClock(settings.Decision.SessionTimezone)
	if err != nil {
		return nil, engine.Stores{}, nil, nil, nil, fmt.Errorf("session timezone: %w", err)
	}

	builder := market.NewFromSettings(settings.Providers, clk, rng)
	trail := audit.NewLog(settings.Decision.AuditSize)
	met := metrics.NewRegistry()

	eng := engine.New(reg, stores, builder, session, trail, met, clk,
		settings.Decision.SoftBudget, log.Logger)
	return eng, stores, builder, trail, met, nil
}

func buildStores(settings config.Settings, clk clock.Clock, version string) (engine.Stores, error) {
	contexts := store.NewContextStore(clk, version)
	switch settings.Store.Backend {
	case "", "memory":
		return engine.Stores{
			Signals:  store.NewMemorySignalStore(clk),
			Phases:   store.NewMemoryPhaseStore(clk),
			Trends:   store.NewMemoryTrendStore(clk),
			Contexts: contexts,
		}, nil
	case "redis":
		rdb := store.NewRedisClient(settings.Store.RedisAddr, settings.Store.RedisDB)
		return engine.Stores{
			Signals:  store.NewRedisSignalStore(rdb, clk),
			Phases:   store.NewRedisPhaseStore(rdb, clk),
			Trends:   store.NewRedisTrendStore(rdb, clk),
			Contexts: contexts,
		}, nil
	default:
		return engine.Stores{}, fmt.Errorf("unknown store backend %q", settings.Store.Backend)
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	settings, reg, err := setup(cmd)
	if err != nil {
		return err
	}

	eng, stores, builder, trail, met, err := buildEngine(settings, reg)
	if err != nil {
		return err
	}

	srv, err := httpiface.NewServer(settings, reg, eng, stores, builder, trail, met, clock.System{}, log.Logger)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	log.Info().
		Str("addr", srv.Address()).
		Str("config_hash", reg.Hash()).
		Str("version", reg.Version()).
		Msg("decisiond serving")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}

func runDecide(cmd *cobra.Command, args []string) error {
	settings, reg, err := setup(cmd)
	if err != nil {
		return err
	}
	ticker := args[0]

	eng, _, _, _, _, err := buildEngine(settings, reg)
	if err != nil {
		return err
	}

	ctx := context.Background()
	paths, _ := cmd.Flags().GetStringSlice("payload")
	for i, path := range paths {
		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read payload %s: %w", path, err)
		}
		if _, err := eng.Ingest(ctx, raw, fmt.Sprintf("replay-%d", i)); err != nil {
			return fmt.Errorf("ingest %s: %w", path, err)
		}
	}

	packet := eng.Evaluate(ctx, ticker)
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(packet)
}

func runVersion(cmd *cobra.Command, _ []string) error {
	_, reg, err := setup(cmd)
	if err != nil {
		return err
	}
	fmt.Printf("%s %s (config %s)\n", appName, reg.Version(), reg.Hash())
	return nil
}

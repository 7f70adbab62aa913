// Package cmd implements the rplinfo subcommands. Each Run function takes
// the arguments after the subcommand name.
package cmd

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"grimm.is/rplinfo/internal/brand"
	"grimm.is/rplinfo/internal/channel"
	"grimm.is/rplinfo/internal/config"
	"grimm.is/rplinfo/internal/i18n"
	"grimm.is/rplinfo/internal/logging"
	"grimm.is/rplinfo/internal/metrics"
	"grimm.is/rplinfo/internal/rplinfo"
	"grimm.is/rplinfo/internal/state"
)

// Printer is the global message printer for the CLI
var Printer = i18n.NewCLIPrinter()

// Stdout receives command output. Tests replace it.
var Stdout io.Writer = os.Stdout

// globalFlags are accepted by every subcommand that touches records.
type globalFlags struct {
	config      string
	stateDir    string
	backend     string
	metricsFile string
	verbose     bool
}

func addGlobalFlags(fs *flag.FlagSet) *globalFlags {
	g := &globalFlags{}
	fs.StringVar(&g.config, "config", brand.GetConfigPath(), "Configuration file")
	fs.StringVar(&g.config, "c", brand.GetConfigPath(), "Configuration file (short)")
	fs.StringVar(&g.stateDir, "state-dir", "", "Override state directory")
	fs.StringVar(&g.backend, "backend", "", "Override backend (file or sqlite)")
	fs.StringVar(&g.metricsFile, "metrics-file", "", "Write metrics to this *.prom file on exit")
	fs.BoolVar(&g.verbose, "v", false, "Verbose logging")
	return g
}

// env is everything a subcommand needs to work on channels.
type env struct {
	cfg     *config.Config
	opts    *rplinfo.Options
	logger  *logging.Logger
	metrics *metrics.Registry
	store   *state.SQLiteStore
	backend channel.Backend
	manager *channel.Manager
}

func openEnv(g *globalFlags) (*env, error) {
	cfg, err := config.LoadFile(g.config)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if g.stateDir != "" {
		cfg.StateDir = g.stateDir
	}
	if g.backend != "" {
		cfg.Backend = g.backend
	}
	if g.metricsFile != "" {
		cfg.Metrics.Textfile = g.metricsFile
	}
	if errs := cfg.Validate(); errs.HasErrors() {
		return nil, errs
	}

	settings, err := cfg.Settings()
	if err != nil {
		return nil, err
	}
	opts := rplinfo.NewOptions()
	opts.Apply(settings)

	e := &env{
		cfg:     cfg,
		opts:    opts,
		logger:  newLogger(cfg, g.verbose),
		metrics: metrics.Get(),
	}

	e.backend, e.store, err = openBackend(cfg.Backend, cfg)
	if err != nil {
		return nil, err
	}
	e.manager = channel.NewManager(channel.Deps{
		Backend: e.backend,
		Options: e.opts,
		Logger:  e.logger,
		Metrics: e.metrics,
	})
	return e, nil
}

func newLogger(cfg *config.Config, verbose bool) *logging.Logger {
	level, _ := logging.ParseLevel(cfg.Logging.Level)
	if verbose {
		level = logging.LevelDebug
	}
	l := logging.New(logging.Config{Level: level, Output: os.Stderr, JSON: cfg.Logging.JSON})
	logging.SetDefault(l)
	return l
}

// openBackend opens the named backend with the locations in cfg. The store
// is nil for the file backend.
func openBackend(kind string, cfg *config.Config) (channel.Backend, *state.SQLiteStore, error) {
	switch kind {
	case config.BackendFile:
		return channel.NewFileBackend(cfg.StateDir, cfg.MasterInfoFile, cfg.RelayLogInfoFile), nil, nil
	case config.BackendSQLite:
		store, err := state.NewSQLiteStore(state.DefaultOptions(cfg.DatabasePath()))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open state database: %w", err)
		}
		b, err := channel.NewSQLiteBackend(store)
		if err != nil {
			store.Close()
			return nil, nil, err
		}
		return b, store, nil
	}
	return nil, nil, fmt.Errorf("unknown backend %q", kind)
}

// Close writes the metrics textfile, if configured, and releases the store.
func (e *env) Close() error {
	var errs []error
	if path := e.cfg.Metrics.Textfile; path != "" {
		if err := e.metrics.WriteTextfile(path); err != nil {
			errs = append(errs, fmt.Errorf("write metrics: %w", err))
		}
	}
	if e.store != nil {
		errs = append(errs, e.store.Close())
	}
	return errors.Join(errs...)
}

// channels opens the named channel, or every stored channel when name is
// empty and all is set.
func (e *env) channels(name string, all bool) ([]*channel.Channel, error) {
	if all {
		return e.manager.Discover()
	}
	c, err := e.manager.Open(name)
	if c == nil {
		return nil, err
	}
	return []*channel.Channel{c}, err
}

func displayName(name string) string {
	if name == "" {
		return "default"
	}
	return name
}

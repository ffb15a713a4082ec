package app

import (
	"fmt"
	"os"
	"time"

	"github.com/computerscienceiscool/pyocd-probe/pkg/audit"
	"github.com/computerscienceiscool/pyocd-probe/pkg/config"
	"github.com/computerscienceiscool/pyocd-probe/pkg/probe"
	"github.com/computerscienceiscool/pyocd-probe/pkg/runner"
	"github.com/rs/zerolog"
)

// Option customizes Bootstrap.
type Option func(*App)

// WithLogger sets the logger handed to the runner and service.
func WithLogger(logger zerolog.Logger) Option {
	return func(a *App) { a.logger = logger }
}

// WithRunner replaces the configured runner backend.
func WithRunner(r runner.Runner) Option {
	return func(a *App) { a.runner = r }
}

// Bootstrap initializes and returns a configured App
func Bootstrap(cfg *config.Config, opts ...Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &App{config: cfg, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(a)
	}

	if a.runner == nil {
		r, err := newRunner(cfg, a.logger)
		if err != nil {
			return nil, err
		}
		a.runner = r
		if cfg.Runner.Backend == config.BackendContainer {
			a.dockerCheck = runner.CheckDockerAvailability
		}
	}

	// Attach audit logging to every invocation
	var observers []runner.Observer
	if cfg.Audit.Enabled {
		auditLog, err := audit.NewLogger(cfg.Audit.Path, runID())
		if err != nil {
			return nil, err
		}
		a.audit = auditLog
		observers = append(observers, auditLog.Observer())
	}

	a.service = probe.NewService(runner.Observe(a.runner, observers...), probe.Options{
		ToolPath:      cfg.Tool.Path,
		Timeout:       cfg.Tool.Timeout(),
		ExpectedMajor: cfg.Tool.ExpectedMajor,
		Logger:        a.logger,
	})

	a.logger.Debug().
		Str("tool", cfg.Tool.Path).
		Str("backend", cfg.Runner.Backend).
		Dur("timeout", cfg.Tool.Timeout()).
		Bool("inventory", cfg.Inventory.Enabled).
		Bool("audit", cfg.Audit.Enabled).
		Msg("bootstrapped")
	return a, nil
}

func newRunner(cfg *config.Config, logger zerolog.Logger) (runner.Runner, error) {
	switch cfg.Runner.Backend {
	case config.BackendContainer:
		r := runner.NewContainerRunner(cfg.Container.Image, logger)
		r.Devices = cfg.Container.Devices
		r.MemoryLimit = cfg.Container.MemoryLimit
		r.CPULimit = cfg.Container.CPULimit
		r.Network = cfg.Container.Network
		return r, nil
	case config.BackendLocal:
		return runner.NewLocalRunner(logger), nil
	default:
		return nil, fmt.Errorf("unknown runner backend %q", cfg.Runner.Backend)
	}
}

func runID() string {
	return fmt.Sprintf("%d-%d", os.Getpid(), time.Now().Unix())
}

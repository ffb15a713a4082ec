// Package app wires configuration, the runner backend, the probe service,
// the inventory store and the audit log into one application object used
// by the CLI.
package app

import (
	"errors"

	"github.com/computerscienceiscool/pyocd-probe/pkg/audit"
	"github.com/computerscienceiscool/pyocd-probe/pkg/config"
	perrors "github.com/computerscienceiscool/pyocd-probe/pkg/errors"
	"github.com/computerscienceiscool/pyocd-probe/pkg/inventory"
	"github.com/computerscienceiscool/pyocd-probe/pkg/probe"
	"github.com/computerscienceiscool/pyocd-probe/pkg/runner"
	"github.com/rs/zerolog"
)

// App represents the main application
type App struct {
	config  *config.Config
	logger  zerolog.Logger
	runner  runner.Runner
	service *probe.Service
	store   *inventory.Store
	audit   *audit.Logger

	// dockerCheck runs before version checks on the container backend.
	dockerCheck func() error
}

// CheckResult reports whether the installed pyocd is recent enough.
type CheckResult struct {
	Installed probe.Version `json:"installed"`
	Minimum   probe.Version `json:"minimum"`
	OK        bool          `json:"ok"`
}

// GetConfig returns the app configuration
func (a *App) GetConfig() *config.Config {
	return a.config
}

// Service returns the probe service.
func (a *App) Service() *probe.Service {
	return a.service
}

// Boards lists connected probes and records them when the inventory is enabled.
func (a *App) Boards() ([]probe.Board, error) {
	boards, err := a.service.Boards()
	if err != nil {
		return nil, err
	}
	if a.config.Inventory.Enabled {
		store, err := a.Inventory()
		if err != nil {
			return nil, err
		}
		snap, err := store.SaveBoards(boards)
		if err != nil {
			return nil, err
		}
		a.logger.Debug().Int64("snapshot", snap.ID).Int("count", snap.Count).Msg("boards recorded")
	}
	return boards, nil
}

// Targets lists supported targets and records them when the inventory is enabled.
func (a *App) Targets() ([]probe.Target, error) {
	targets, err := a.service.Targets()
	if err != nil {
		return nil, err
	}
	if a.config.Inventory.Enabled {
		store, err := a.Inventory()
		if err != nil {
			return nil, err
		}
		snap, err := store.SaveTargets(targets)
		if err != nil {
			return nil, err
		}
		a.logger.Debug().Int64("snapshot", snap.ID).Int("count", snap.Count).Msg("targets recorded")
	}
	return targets, nil
}

// Version queries the installed pyocd version.
func (a *App) Version() (probe.Version, error) {
	return a.service.Version()
}

// Check compares the installed version against minimum, or against the
// configured minimum when minimum is empty.
func (a *App) Check(minimum string) (CheckResult, error) {
	if minimum == "" {
		minimum = a.config.Tool.MinimumVersion
	}
	min, ok := probe.ParseVersion(minimum)
	if !ok {
		return CheckResult{}, perrors.New(perrors.KindConfig, "no minimum version configured")
	}

	if a.dockerCheck != nil {
		if err := a.dockerCheck(); err != nil {
			return CheckResult{}, perrors.Wrap(perrors.KindLaunch, "container backend unusable", err)
		}
	}

	installed, err := a.service.Version()
	if err != nil {
		return CheckResult{}, err
	}
	return CheckResult{Installed: installed, Minimum: min, OK: installed.AtLeast(min)}, nil
}

// Inventory opens the inventory store on first use. Reading the history
// does not require recording to be enabled.
func (a *App) Inventory() (*inventory.Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	if a.config.Inventory.Path == "" {
		return nil, perrors.New(perrors.KindConfig, "inventory.path is not set")
	}
	store, err := inventory.Open(a.config.Inventory.Path)
	if err != nil {
		return nil, err
	}
	a.store = store
	return store, nil
}

// Close releases the inventory database and audit log.
func (a *App) Close() error {
	var errs []error
	if a.store != nil {
		errs = append(errs, a.store.Close())
		a.store = nil
	}
	if a.audit != nil {
		errs = append(errs, a.audit.Close())
		a.audit = nil
	}
	return errors.Join(errs...)
}

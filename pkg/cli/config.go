package cli

import (
	"errors"
	"os"
	"strings"

	"github.com/computerscienceiscool/pyocd-probe/pkg/app"
	"github.com/computerscienceiscool/pyocd-probe/pkg/config"
	"github.com/computerscienceiscool/pyocd-probe/pkg/logging"
	"github.com/pterm/pterm"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// flagKeys maps persistent flags onto configuration keys.
var flagKeys = map[string]string{
	"tool-path":      "tool.path",
	"timeout":        "tool.timeout_seconds",
	"min-version":    "tool.minimum_version",
	"backend":        "runner.backend",
	"image":          "container.image",
	"device":         "container.devices",
	"record":         "inventory.enabled",
	"inventory-path": "inventory.path",
	"json":           "output.json",
	"sort":           "output.sort",
	"log-level":      "logging.level",
	"log-format":     "logging.format",
	"log-file":       "logging.file",
}

// state is shared by the commands of one root command.
type state struct {
	v        *viper.Viper
	cfgFile  string
	cfg      *config.Config
	logger   zerolog.Logger
	closeLog func() error
	flags    *pflag.FlagSet
}

func newState() *state {
	return &state{v: viper.New(), logger: zerolog.Nop(), closeLog: func() error { return nil }}
}

func (s *state) bind(pf *pflag.FlagSet) {
	s.flags = pf
	for flag, key := range flagKeys {
		// Only flags the user actually set override the file and env.
		_ = s.v.BindPFlag(key, pf.Lookup(flag))
	}
}

// load reads the config file and environment, then builds the logger.
func (s *state) load(cmd *cobra.Command) error {
	if err := s.initConfig(); err != nil {
		return err
	}

	// --audit-log both enables auditing and sets the path
	if f := s.flags.Lookup("audit-log"); f != nil && f.Changed {
		s.v.Set("audit.enabled", true)
		s.v.Set("audit.path", f.Value.String())
	}

	cfg, err := config.Load(s.v)
	if err != nil {
		return err
	}
	s.cfg = cfg

	noColor, _ := s.flags.GetBool("no-color")
	if noColor {
		pterm.DisableColor()
	}

	logger, closeLog, err := logging.New(logging.Options{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		File:    cfg.Logging.File,
		Out:     cmd.ErrOrStderr(),
		NoColor: noColor,
	})
	if err != nil {
		return err
	}
	s.logger = logger
	s.closeLog = closeLog
	return nil
}

// initConfig reads in config file and ENV variables if set
func (s *state) initConfig() error {
	config.SetDefaults(s.v)

	s.v.SetEnvPrefix(config.EnvPrefix)
	s.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	s.v.AutomaticEnv()

	path := s.cfgFile
	if path == "" {
		path = config.GetConfigPath()
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			// Config file not found; using defaults and flags
			return nil
		}
	}
	s.v.SetConfigFile(path)
	return s.v.ReadInConfig()
}

// bootstrap builds the application for a single command run.
func (s *state) bootstrap() (*app.App, error) {
	return app.Bootstrap(s.cfg, app.WithLogger(s.logger))
}

// withApp runs fn with a bootstrapped app and releases it afterwards.
func (s *state) withApp(fn func(cmd *cobra.Command, args []string, a *app.App) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := s.bootstrap()
		if err != nil {
			return err
		}
		runErr := fn(cmd, args, a)
		return errors.Join(runErr, a.Close(), s.close())
	}
}

func (s *state) close() error {
	err := s.closeLog()
	s.closeLog = func() error { return nil }
	return err
}

func (s *state) printer(cmd *cobra.Command) *printer {
	return &printer{out: cmd.OutOrStdout(), json: s.cfg.Output.JSON, sort: s.cfg.Output.Sort}
}

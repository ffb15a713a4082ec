// Package cli implements the pyocd-probe command line.
package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCmd builds the complete command tree.
func NewRootCmd() *cobra.Command {
	st := newState()

	rootCmd := &cobra.Command{
		Use:   "pyocd-probe",
		Short: "Query pyocd for connected debug probes and supported targets",
		Long: `pyocd-probe runs pyocd in JSON mode, validates the versioned output envelope
and lists the connected debug probes ("boards") and supported target devices.
pyocd can run on the host or inside a Docker container with USB devices mapped.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return st.load(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return st.close()
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&st.cfgFile, "config", "", "Config file (default ./pyocd-probe.config.yaml or ~/.pyocd-probe.config.yaml)")

	// Tool flags
	pf.String("tool-path", "", "pyocd executable (resolved on PATH when bare)")
	pf.Int("timeout", 0, "Seconds to wait for pyocd before killing it")
	pf.String("min-version", "", "Minimum pyocd version for the check command")

	// Runner flags
	pf.String("backend", "", "Where pyocd runs: local or container")
	pf.String("image", "", "Docker image for the container backend")
	pf.StringSlice("device", nil, "Host device to map into the container, host[:container[:perms]]")

	// Persistence flags
	pf.Bool("record", false, "Save listings to the inventory database")
	pf.String("inventory-path", "", "Inventory database file")
	pf.String("audit-log", "", "Append one line per pyocd invocation to this file")

	// Output flags
	pf.Bool("json", false, "Output in JSON format")
	pf.Bool("sort", false, "Sort listings by name")
	pf.Bool("no-color", false, "Disable colored output")

	// Logging flags
	pf.String("log-level", "", "Log level: trace, debug, info, warn, error, off")
	pf.String("log-format", "", "Log format: console or json")
	pf.String("log-file", "", "Write logs to this file instead of stderr")

	st.bind(pf)

	rootCmd.AddCommand(
		newBoardsCmd(st),
		newTargetsCmd(st),
		newVersionCmd(st),
		newCheckCmd(st),
		newInventoryCmd(st),
		newConfigCmd(st),
	)
	return rootCmd
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().Execute()
}

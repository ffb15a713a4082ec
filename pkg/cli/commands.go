package cli

import (
	"fmt"

	"github.com/computerscienceiscool/pyocd-probe/pkg/app"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

func newBoardsCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:     "boards",
		Aliases: []string{"probes"},
		Short:   "List connected debug probes",
		Long: `Runs "pyocd json --probes" and lists every connected debug probe together
with the board and target it reports. Entries pyocd describes incompletely
are skipped; run with --log-level debug to see why.`,
		Args: cobra.NoArgs,
		RunE: st.withApp(func(cmd *cobra.Command, args []string, a *app.App) error {
			boards, err := a.Boards()
			if err != nil {
				return err
			}
			return st.printer(cmd).boards(boards)
		}),
	}
}

func newTargetsCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "targets",
		Short: "List target devices pyocd supports",
		Long:  `Runs "pyocd json --targets" and lists the built-in and pack-provided targets.`,
		Args:  cobra.NoArgs,
		RunE: st.withApp(func(cmd *cobra.Command, args []string, a *app.App) error {
			targets, err := a.Targets()
			if err != nil {
				return err
			}
			return st.printer(cmd).targets(targets)
		}),
	}
}

func newVersionCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show the installed pyocd version",
		Args:  cobra.NoArgs,
		RunE: st.withApp(func(cmd *cobra.Command, args []string, a *app.App) error {
			v, err := a.Version()
			if err != nil {
				return err
			}
			p := st.printer(cmd)
			if p.json {
				return p.writeJSON(v)
			}
			_, err = fmt.Fprintf(p.out, "pyocd %s\n", v)
			return err
		}),
	}
}

func newCheckCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "check [minimum-version]",
		Short: "Verify pyocd is installed and recent enough",
		Long: `Runs "pyocd --version" and compares the result with the minimum version
given as argument, --min-version or tool.minimum_version in the config.
Exits non-zero when pyocd is missing or too old.`,
		Args: cobra.MaximumNArgs(1),
		RunE: st.withApp(func(cmd *cobra.Command, args []string, a *app.App) error {
			minimum := ""
			if len(args) == 1 {
				minimum = args[0]
			}
			res, err := a.Check(minimum)
			if err != nil {
				return err
			}

			p := st.printer(cmd)
			if p.json {
				if err := p.writeJSON(res); err != nil {
					return err
				}
			} else if res.OK {
				fmt.Fprint(p.out, pterm.Success.Sprintfln("pyocd %s satisfies minimum %s", res.Installed, res.Minimum))
			} else {
				fmt.Fprint(p.out, pterm.Error.Sprintfln("pyocd %s is older than minimum %s", res.Installed, res.Minimum))
			}
			if !res.OK {
				return fmt.Errorf("pyocd %s is older than required %s", res.Installed, res.Minimum)
			}
			return nil
		}),
	}
}

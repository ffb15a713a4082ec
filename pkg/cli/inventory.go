package cli

import (
	"fmt"

	"github.com/computerscienceiscool/pyocd-probe/pkg/app"
	perrors "github.com/computerscienceiscool/pyocd-probe/pkg/errors"
	"github.com/computerscienceiscool/pyocd-probe/pkg/inventory"
	"github.com/spf13/cobra"
)

func newInventoryCmd(st *state) *cobra.Command {
	inventoryCmd := &cobra.Command{
		Use:   "inventory",
		Short: "Show listings saved with --record",
		Long: `Listings are saved to the inventory database when recording is enabled
(--record or inventory.enabled). These commands read the saved history
without running pyocd.`,
	}

	boardsCmd := &cobra.Command{
		Use:   "boards",
		Short: "Show the most recently recorded boards",
		Args:  cobra.NoArgs,
		RunE: st.withApp(func(cmd *cobra.Command, args []string, a *app.App) error {
			store, err := a.Inventory()
			if err != nil {
				return err
			}
			snap, boards, err := store.LatestBoards()
			if err != nil {
				return err
			}
			p := st.printer(cmd)
			if err := p.snapshot(snap); err != nil {
				return err
			}
			return p.boards(boards)
		}),
	}

	targetsCmd := &cobra.Command{
		Use:   "targets",
		Short: "Show the most recently recorded targets",
		Args:  cobra.NoArgs,
		RunE: st.withApp(func(cmd *cobra.Command, args []string, a *app.App) error {
			store, err := a.Inventory()
			if err != nil {
				return err
			}
			snap, targets, err := store.LatestTargets()
			if err != nil {
				return err
			}
			p := st.printer(cmd)
			if err := p.snapshot(snap); err != nil {
				return err
			}
			return p.targets(targets)
		}),
	}

	var limit int
	historyCmd := &cobra.Command{
		Use:       "history {boards|targets}",
		Short:     "List recorded snapshots, newest first",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{inventory.KindBoards, inventory.KindTargets},
		RunE: st.withApp(func(cmd *cobra.Command, args []string, a *app.App) error {
			if limit < 1 {
				return perrors.Newf(perrors.KindConfig, "--limit must be at least 1, got %d", limit)
			}
			store, err := a.Inventory()
			if err != nil {
				return err
			}
			snaps, err := store.Snapshots(args[0], limit)
			if err != nil {
				return err
			}
			return st.printer(cmd).snapshots(snaps)
		}),
	}
	historyCmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of snapshots to list")

	var keep int
	pruneCmd := &cobra.Command{
		Use:       "prune {boards|targets}",
		Short:     "Delete all but the newest snapshots",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{inventory.KindBoards, inventory.KindTargets},
		RunE: st.withApp(func(cmd *cobra.Command, args []string, a *app.App) error {
			if keep < 0 {
				return perrors.Newf(perrors.KindConfig, "--keep must not be negative, got %d", keep)
			}
			store, err := a.Inventory()
			if err != nil {
				return err
			}
			n, err := store.Prune(args[0], keep)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Removed %d %s snapshot(s)\n", n, args[0])
			return err
		}),
	}
	pruneCmd.Flags().IntVar(&keep, "keep", 10, "Number of snapshots to keep")

	inventoryCmd.AddCommand(boardsCmd, targetsCmd, historyCmd, pruneCmd)
	return inventoryCmd
}

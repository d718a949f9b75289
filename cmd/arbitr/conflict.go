package main

import (
	"fmt"

	"github.com/mark3labs/arbitr/internal/ledger"
	"github.com/spf13/cobra"
)

var conflictCmd = &cobra.Command{
	Use:   "conflict",
	Short: "Inspect and resolve claim conflicts",
}

var conflictListFlags struct {
	session string
	all     bool
}

var conflictListCmd = &cobra.Command{
	Use:   "list",
	Short: "List pending conflicts",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		rt, err := openRuntime(ctx, conflictListFlags.session)
		if err != nil {
			return err
		}
		defer rt.Close()

		state := rt.coordinator.State()
		var conflicts []*ledger.Conflict
		if conflictListFlags.all {
			for _, c := range state.Conflicts {
				conflicts = append(conflicts, c)
			}
		} else {
			conflicts = state.PendingConflicts()
		}

		if len(conflicts) == 0 {
			fmt.Println("No conflicts")
			return nil
		}
		for _, c := range conflicts {
			fmt.Printf("%s  %-19s %-30s agent=%s resolution=%s\n",
				c.ID, c.Kind, c.Path, c.AgentID, c.Resolution)
		}
		return nil
	},
}

var conflictResolveFlags struct {
	session string
}

var conflictResolveCmd = &cobra.Command{
	Use:   "resolve CONFLICT_ID RESOLUTION",
	Short: "Record the orchestrator's decision on a conflict",
	Long: `Record the orchestrator's decision on a pending conflict.

RESOLUTION is one of: agent_a_wins, agent_b_wins, escalated, aborted.
arbitr never derives a resolution itself; this value comes from the human
or orchestrator judging the conflict. Resolved conflicts are immutable.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		resolution, err := ledger.ParseResolution(args[1])
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		rt, err := openRuntime(ctx, conflictResolveFlags.session)
		if err != nil {
			return err
		}
		defer rt.Close()

		conflict, err := rt.coordinator.ResolveConflict(ctx, args[0], resolution)
		if err != nil {
			return err
		}
		fmt.Printf("Conflict resolved: %s\n  path: %s\n  resolution: %s\n",
			conflict.ID, conflict.Path, conflict.Resolution)
		return nil
	},
}

func init() {
	conflictListCmd.Flags().StringVarP(&conflictListFlags.session, "session", "s", "", "Session name")
	conflictListCmd.Flags().BoolVar(&conflictListFlags.all, "all", false, "Include resolved conflicts")
	conflictResolveCmd.Flags().StringVarP(&conflictResolveFlags.session, "session", "s", "", "Session name")

	conflictCmd.AddCommand(conflictListCmd)
	conflictCmd.AddCommand(conflictResolveCmd)
}

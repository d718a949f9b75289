package main

import (
	"fmt"

	"github.com/mark3labs/arbitr/internal/detector"
	"github.com/spf13/cobra"
)

var claimCmd = &cobra.Command{
	Use:   "claim",
	Short: "Manage resource claims",
}

var claimTryFlags struct {
	session string
	agent   string
	path    string
	domain  string
}

var claimTryCmd = &cobra.Command{
	Use:   "try",
	Short: "Attempt an exclusive claim on a path",
	Long: `Attempt an exclusive claim on a path.

Succeeds only if the path is unclaimed, unblocked, and inside the declared
domain's boundary (or unowned). A rejection prints the conflict and exits
nonzero; it is recorded in the ledger either way. Never retried.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		rt, err := openRuntime(ctx, claimTryFlags.session)
		if err != nil {
			return err
		}
		defer rt.Close()

		res, err := rt.coordinator.TryClaim(ctx, detector.TryClaimParams{
			AgentID: claimTryFlags.agent,
			Path:    claimTryFlags.path,
			Domain:  claimTryFlags.domain,
		})
		if err != nil {
			return err
		}

		if res.Acquired {
			fmt.Printf("Claim acquired: %s\n  path: %s\n  agent: %s\n",
				res.Claim.ID, res.Claim.Path, res.Claim.AgentID)
			return nil
		}

		fmt.Printf("Claim rejected: %s\n  conflict: %s\n  path: %s\n",
			res.Conflict.Kind, res.Conflict.ID, res.Conflict.Path)
		if res.Conflict.HolderClaimID != "" {
			fmt.Printf("  held by claim: %s\n", res.Conflict.HolderClaimID)
		}
		if res.Conflict.RightfulDomain != "" {
			fmt.Printf("  rightful domain: %s\n", res.Conflict.RightfulDomain)
		}
		return fmt.Errorf("claim conflict: %s", res.Conflict.Kind)
	},
}

var claimReleaseFlags struct {
	session string
}

var claimReleaseCmd = &cobra.Command{
	Use:   "release CLAIM_ID",
	Short: "Release an active claim",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		rt, err := openRuntime(ctx, claimReleaseFlags.session)
		if err != nil {
			return err
		}
		defer rt.Close()

		claim, err := rt.coordinator.Release(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Claim released: %s (path %s)\n", claim.ID, claim.Path)
		return nil
	},
}

var claimListFlags struct {
	session string
}

var claimListCmd = &cobra.Command{
	Use:   "list",
	Short: "List active claims",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		rt, err := openRuntime(ctx, claimListFlags.session)
		if err != nil {
			return err
		}
		defer rt.Close()

		claims := rt.coordinator.State().ActiveClaims()
		if len(claims) == 0 {
			fmt.Println("No active claims")
			return nil
		}
		for _, c := range claims {
			fmt.Printf("%s  %-30s %s\n", c.ID, c.Path, c.AgentID)
		}
		return nil
	},
}

func init() {
	claimTryCmd.Flags().StringVarP(&claimTryFlags.session, "session", "s", "", "Session name")
	claimTryCmd.Flags().StringVarP(&claimTryFlags.agent, "agent", "a", "", "Agent identifier")
	claimTryCmd.Flags().StringVarP(&claimTryFlags.path, "path", "p", "", "Resource path to claim")
	claimTryCmd.Flags().StringVarP(&claimTryFlags.domain, "domain", "d", "", "Domain the agent is acting for")
	_ = claimTryCmd.MarkFlagRequired("agent")
	_ = claimTryCmd.MarkFlagRequired("path")

	claimReleaseCmd.Flags().StringVarP(&claimReleaseFlags.session, "session", "s", "", "Session name")
	claimListCmd.Flags().StringVarP(&claimListFlags.session, "session", "s", "", "Session name")

	claimCmd.AddCommand(claimTryCmd)
	claimCmd.AddCommand(claimReleaseCmd)
	claimCmd.AddCommand(claimListCmd)
}

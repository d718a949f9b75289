package main

import (
	"fmt"

	"github.com/mark3labs/arbitr/internal/ledger"
	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Record session-level control data",
}

var varietyFlags struct {
	session     string
	novelty     int
	scope       int
	uncertainty int
	risk        int
}

var sessionVarietyCmd = &cobra.Command{
	Use:   "variety",
	Short: "Record the session's variety score",
	Long: `Record the session's variety score.

Each dimension is rated 1-5 by the orchestrator at session start. The total
picks the report format: up to 9 renders the lightweight report, 10 and
above the full one.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		rt, err := openRuntime(ctx, varietyFlags.session)
		if err != nil {
			return err
		}
		defer rt.Close()

		v := ledger.VarietyScore{
			Novelty:     varietyFlags.novelty,
			Scope:       varietyFlags.scope,
			Uncertainty: varietyFlags.uncertainty,
			Risk:        varietyFlags.risk,
		}
		if err := rt.coordinator.SetVariety(ctx, v); err != nil {
			return err
		}
		fmt.Printf("Variety score recorded: %d\n", v.Total())
		return nil
	},
}

var outcomeFlags struct {
	session string
}

var sessionOutcomeCmd = &cobra.Command{
	Use:   "outcome SUMMARY",
	Short: "Record the session outcome",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		rt, err := openRuntime(ctx, outcomeFlags.session)
		if err != nil {
			return err
		}
		defer rt.Close()

		if err := rt.coordinator.SetOutcome(ctx, args[0]); err != nil {
			return err
		}
		fmt.Println("Outcome recorded")
		return nil
	},
}

var signalFlags struct {
	session  string
	kind     string
	severity string
}

var sessionSignalCmd = &cobra.Command{
	Use:   "signal CONTENT",
	Short: "Send an algedonic signal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		rt, err := openRuntime(ctx, signalFlags.session)
		if err != nil {
			return err
		}
		defer rt.Close()

		sig, err := rt.coordinator.SendSignal(ctx, signalFlags.kind, signalFlags.severity, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Signal recorded: %s (%s)\n", sig.ID, sig.Kind)
		return nil
	},
}

func init() {
	sessionVarietyCmd.Flags().StringVarP(&varietyFlags.session, "session", "s", "", "Session name")
	sessionVarietyCmd.Flags().IntVar(&varietyFlags.novelty, "novelty", 0, "Novelty rating (1-5)")
	sessionVarietyCmd.Flags().IntVar(&varietyFlags.scope, "scope", 0, "Scope rating (1-5)")
	sessionVarietyCmd.Flags().IntVar(&varietyFlags.uncertainty, "uncertainty", 0, "Uncertainty rating (1-5)")
	sessionVarietyCmd.Flags().IntVar(&varietyFlags.risk, "risk", 0, "Risk rating (1-5)")
	_ = sessionVarietyCmd.MarkFlagRequired("novelty")
	_ = sessionVarietyCmd.MarkFlagRequired("scope")
	_ = sessionVarietyCmd.MarkFlagRequired("uncertainty")
	_ = sessionVarietyCmd.MarkFlagRequired("risk")

	sessionOutcomeCmd.Flags().StringVarP(&outcomeFlags.session, "session", "s", "", "Session name")

	sessionSignalCmd.Flags().StringVarP(&signalFlags.session, "session", "s", "", "Session name")
	sessionSignalCmd.Flags().StringVarP(&signalFlags.kind, "kind", "k", "pain", "Signal kind: pain, pleasure, or escalation")
	sessionSignalCmd.Flags().StringVar(&signalFlags.severity, "severity", "", "Severity hint (e.g. low, high)")

	sessionCmd.AddCommand(sessionVarietyCmd)
	sessionCmd.AddCommand(sessionOutcomeCmd)
	sessionCmd.AddCommand(sessionSignalCmd)
}

package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/x/term"
	"github.com/mark3labs/arbitr/internal/coord"
	"github.com/mark3labs/arbitr/internal/report"
	"github.com/spf13/cobra"
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Append to and read the session decision log",
}

var logAppendFlags struct {
	session    string
	phase      string
	rationale  string
	agent      string
	duration   string
	checkpoint string
	findings   string
}

var logAppendCmd = &cobra.Command{
	Use:   "append DECISION",
	Short: "Append a decision log entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		rt, err := openRuntime(ctx, logAppendFlags.session)
		if err != nil {
			return err
		}
		defer rt.Close()

		entry, err := rt.coordinator.AppendDecision(ctx, coord.AppendParams{
			Phase:      logAppendFlags.phase,
			Decision:   args[0],
			Rationale:  logAppendFlags.rationale,
			Agent:      logAppendFlags.agent,
			Duration:   logAppendFlags.duration,
			Checkpoint: logAppendFlags.checkpoint,
			Findings:   logAppendFlags.findings,
		})
		if err != nil {
			return err
		}
		fmt.Printf("Logged decision #%d [%s]\n", entry.Seq, entry.Phase)
		return nil
	},
}

var logShowFlags struct {
	session string
	phase   string
	since   int64
}

var logShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show decision log entries in sequence order",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		rt, err := openRuntime(ctx, logShowFlags.session)
		if err != nil {
			return err
		}
		defer rt.Close()

		entries := rt.coordinator.Query(logShowFlags.phase, logShowFlags.since)
		if len(entries) == 0 {
			fmt.Println("No matching entries")
			return nil
		}
		for _, e := range entries {
			fmt.Printf("#%-4d [%-9s] %s\n", e.Seq, e.Phase, e.Decision)
			if e.Rationale != "" {
				fmt.Printf("      %s\n", e.Rationale)
			}
		}
		return nil
	},
}

var logRenderFlags struct {
	session string
	format  string
	pretty  bool
}

var logRenderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render the session report",
	Long: `Render the session report as markdown.

With --format auto (the default) the recorded variety score picks the
shape: low-variety sessions get the lightweight report, high-variety
sessions the full one with variety breakdown, tensions and retrospective.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := report.ParseFormat(logRenderFlags.format)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		rt, err := openRuntime(ctx, logRenderFlags.session)
		if err != nil {
			return err
		}
		defer rt.Close()

		md := report.Render(rt.coordinator.State(), format)
		if logRenderFlags.pretty {
			width := 80
			if w, _, err := term.GetSize(os.Stdout.Fd()); err == nil {
				width = w
			}
			fmt.Println(report.Pretty(md, width))
		} else {
			fmt.Print(md)
		}
		return nil
	},
}

func init() {
	logAppendCmd.Flags().StringVarP(&logAppendFlags.session, "session", "s", "", "Session name")
	logAppendCmd.Flags().StringVarP(&logAppendFlags.phase, "phase", "p", "", "Workflow phase (PREPARE, ARCHITECT, CODE, TEST, REVIEW, DONE)")
	logAppendCmd.Flags().StringVarP(&logAppendFlags.rationale, "rationale", "r", "", "Why it was decided")
	logAppendCmd.Flags().StringVar(&logAppendFlags.agent, "agent", "", "Agent that made the decision")
	logAppendCmd.Flags().StringVar(&logAppendFlags.duration, "duration", "", "Time spent (free-form)")
	logAppendCmd.Flags().StringVar(&logAppendFlags.checkpoint, "checkpoint", "", "Checkpoint reference")
	logAppendCmd.Flags().StringVar(&logAppendFlags.findings, "findings", "", "Findings or follow-ups")
	_ = logAppendCmd.MarkFlagRequired("phase")

	logShowCmd.Flags().StringVarP(&logShowFlags.session, "session", "s", "", "Session name")
	logShowCmd.Flags().StringVarP(&logShowFlags.phase, "phase", "p", "", "Only entries in this phase")
	logShowCmd.Flags().Int64Var(&logShowFlags.since, "since", 0, "Only entries with sequence >= this value")

	logRenderCmd.Flags().StringVarP(&logRenderFlags.session, "session", "s", "", "Session name")
	logRenderCmd.Flags().StringVarP(&logRenderFlags.format, "format", "f", "auto", "Report format: auto, lightweight, or full")
	logRenderCmd.Flags().BoolVar(&logRenderFlags.pretty, "pretty", false, "Render for the terminal with syntax highlighting")

	logCmd.AddCommand(logAppendCmd)
	logCmd.AddCommand(logShowCmd)
	logCmd.AddCommand(logRenderCmd)
}

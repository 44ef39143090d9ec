package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nhle/lakeconsole/internal/cronpolicy"
)

func newCronCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cron",
		Short: "Sync policy helpers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newCronDescribeCommand())
	return cmd
}

func newCronDescribeCommand() *cobra.Command {
	var manual bool

	cmd := &cobra.Command{
		Use:   "describe [expression]",
		Short: "Show the frequency label and next three runs of a cron expression",
		Example: `  lakeconsole cron describe "0 0 * * *"
  lakeconsole cron describe --manual`,
		RunE: func(cmd *cobra.Command, args []string) error {
			expr := strings.Join(args, " ")
			if !manual && strings.TrimSpace(expr) == "" {
				return fmt.Errorf("an expression is required unless --manual is set")
			}
			return describeCron(cmd.OutOrStdout(), manual, expr, time.Now())
		},
	}

	cmd.Flags().BoolVar(&manual, "manual", false, "Describe a manual policy")
	return cmd
}

func describeCron(w io.Writer, manual bool, expr string, now time.Time) error {
	d := cronpolicy.Describe(manual, expr, now)
	if !d.Valid {
		return fmt.Errorf("invalid cron expression %q: %w", expr, d.Err)
	}

	fmt.Fprintf(w, "Frequency: %s\n", d.Label)
	if d.Label == cronpolicy.LabelManual {
		fmt.Fprintln(w, "Runs only when triggered")
		return nil
	}
	fmt.Fprintf(w, "Expression: %s\n", d.Config)
	if d.Description != "" {
		fmt.Fprintf(w, "Description: %s\n", d.Description)
	}
	fmt.Fprintf(w, "Next runs (UTC%s):\n", cronpolicy.UTCOffsetLabel(now))
	for _, t := range d.NextTimes {
		fmt.Fprintf(w, "  %s\n", t.Format("2006-01-02 15:04"))
	}
	return nil
}

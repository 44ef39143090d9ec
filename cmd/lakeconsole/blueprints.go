package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/nhle/lakeconsole/internal/blueprint"
	"github.com/nhle/lakeconsole/internal/cronpolicy"
	"github.com/nhle/lakeconsole/internal/devlake"
	"github.com/nhle/lakeconsole/internal/model"
	"github.com/nhle/lakeconsole/internal/ui/blueprints"
)

func newBlueprintsCommand(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "blueprints",
		Short: "List, inspect, trigger and export blueprints",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newBlueprintsListCommand(g))
	cmd.AddCommand(newBlueprintsShowCommand(g))
	cmd.AddCommand(newBlueprintsTriggerCommand(g))
	cmd.AddCommand(newBlueprintsExportCommand(g))
	return cmd
}

func newBlueprintsListCommand(g *globalFlags) *cobra.Command {
	var (
		typeFilter string
		page       int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print one page of blueprints",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSession(g)
			if err != nil {
				return err
			}
			filter := devlake.BlueprintFilter{Page: page, PageSize: s.cfg.Display.PageSize}
			if !strings.EqualFold(typeFilter, "all") {
				filter.Type = strings.ToUpper(typeFilter)
			}

			list, err := s.client(s.consoleLogger()).ListBlueprints(cmd.Context(), filter)
			if err != nil {
				return fmt.Errorf("listing blueprints: %w", err)
			}
			printBlueprintTable(cmd.OutOrStdout(), list, time.Now())
			return nil
		},
	}

	cmd.Flags().StringVar(&typeFilter, "type", "all", "Frequency filter: "+strings.Join(blueprints.TypeFilters, ", "))
	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	return cmd
}

func printBlueprintTable(w io.Writer, list *model.BlueprintList, now time.Time) {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "Name", "Data Connections", "Frequency", "Next Run", "Project", "Status")
	for i, row := range blueprints.Rows(list.Blueprints, now) {
		t.Row(append([]string{strconv.Itoa(list.Blueprints[i].ID)}, row...)...)
	}
	fmt.Fprintln(w, t.String())
	fmt.Fprintf(w, "%d of %d blueprints\n", len(list.Blueprints), list.Count)
}

func newBlueprintsShowCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print a blueprint's settings and schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			s, err := loadSession(g)
			if err != nil {
				return err
			}
			bp, err := s.client(s.consoleLogger()).GetBlueprint(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("loading blueprint %d: %w", id, err)
			}
			printBlueprint(cmd.OutOrStdout(), *bp, time.Now())
			return nil
		},
	}
}

func printBlueprint(w io.Writer, bp model.Blueprint, now time.Time) {
	d := cronpolicy.Describe(bp.IsManual, bp.CronConfig, now)

	fmt.Fprintf(w, "Blueprint #%d %s (%s)\n", bp.ID, bp.Name, bp.Mode)
	fmt.Fprintf(w, "  Status:      %s\n", blueprints.EnabledLabel(bp.Enable))
	fmt.Fprintf(w, "  Sync Policy: %s %s\n", d.Label, d.Config)
	fmt.Fprintf(w, "  Next Run:    %s\n", blueprints.NextRunLabel(d))
	fmt.Fprintf(w, "  Skip Failed: %t\n", bp.SkipOnFail)
	if bp.TimeAfter != nil {
		fmt.Fprintf(w, "  Data Since:  %s\n", cronpolicy.FormatTimeAfter(*bp.TimeAfter))
	}
	if bp.ProjectName != "" {
		fmt.Fprintf(w, "  Project:     %s\n", bp.ProjectName)
	}
	if bp.Mode == model.ModeAdvanced {
		fmt.Fprintf(w, "  Plan:        %s\n", string(bp.Plan))
		return
	}
	fmt.Fprintf(w, "  Connections: %s\n", blueprints.ConnectionsLabel(bp))
	for _, c := range bp.Connections {
		ids := make([]string, len(c.Scopes))
		for i, sc := range c.Scopes {
			ids[i] = sc.ScopeID
		}
		fmt.Fprintf(w, "    %s scopes: %s\n", c.Key(), strings.Join(ids, ", "))
	}
}

func newBlueprintsTriggerCommand(g *globalFlags) *cobra.Command {
	var (
		retransform bool
		fullSync    bool
		watch       bool
	)

	cmd := &cobra.Command{
		Use:   "trigger <id>",
		Short: "Start a pipeline for a blueprint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if retransform && fullSync {
				return fmt.Errorf("--retransform and --full cannot be combined")
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			s, err := loadSession(g)
			if err != nil {
				return err
			}
			log := s.consoleLogger()

			opts := model.TriggerOptions{SkipCollectors: retransform, FullSync: fullSync}
			p, err := s.client(log).TriggerBlueprint(cmd.Context(), id, opts)
			if err != nil {
				return fmt.Errorf("triggering blueprint %d: %w", id, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s started pipeline #%d\n", blueprint.TriggerLabel(opts), p.ID)

			if !watch {
				return nil
			}
			return watchPipelines(cmd, s, log, id)
		},
	}

	cmd.Flags().BoolVar(&retransform, "retransform", false, "Skip collectors and only re-run transformations")
	cmd.Flags().BoolVar(&fullSync, "full", false, "Discard collected data and collect everything again")
	cmd.Flags().BoolVar(&watch, "watch", false, "Follow the pipeline until it finishes")
	return cmd
}

// exportDoc is the YAML form of a blueprint. The plan is decoded so that it
// reads as YAML rather than an embedded JSON string.
type exportDoc struct {
	model.Blueprint `yaml:",inline"`
	Plan            any `yaml:"plan,omitempty"`
}

func newBlueprintsExportCommand(g *globalFlags) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Write a blueprint as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			s, err := loadSession(g)
			if err != nil {
				return err
			}
			bp, err := s.client(zerolog.Nop()).GetBlueprint(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("loading blueprint %d: %w", id, err)
			}

			w := cmd.OutOrStdout()
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("creating %s: %w", output, err)
				}
				defer f.Close()
				w = f
			}
			return exportBlueprint(w, *bp)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "-", "Destination file, - for stdout")
	return cmd
}

func exportBlueprint(w io.Writer, bp model.Blueprint) error {
	doc := exportDoc{Blueprint: bp}
	if len(bp.Plan) > 0 {
		if err := json.Unmarshal(bp.Plan, &doc.Plan); err != nil {
			return fmt.Errorf("decoding plan: %w", err)
		}
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding blueprint: %w", err)
	}
	return enc.Close()
}

func parseID(arg string) (int, error) {
	id, err := strconv.Atoi(arg)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", arg)
	}
	return id, nil
}

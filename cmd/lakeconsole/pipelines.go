package main

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/nhle/lakeconsole/internal/model"
	appsync "github.com/nhle/lakeconsole/internal/sync"
)

func newPipelinesCommand(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pipelines",
		Short: "Inspect and follow pipelines",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newPipelinesShowCommand(g))
	cmd.AddCommand(newPipelinesWatchCommand(g))
	return cmd
}

func newPipelinesShowCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "show <pipeline id>",
		Short: "Print a pipeline and its tasks",
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
			client := s.client(s.consoleLogger())

			p, err := client.GetPipeline(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("loading pipeline %d: %w", id, err)
			}
			tasks, err := client.ListPipelineTasks(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("loading tasks of pipeline %d: %w", id, err)
			}
			printPipeline(cmd.OutOrStdout(), *p, tasks.Tasks, time.Now())
			return nil
		},
	}
}

func printPipeline(w io.Writer, p model.Pipeline, tasks []model.PipelineTask, now time.Time) {
	fmt.Fprintf(w, "Pipeline #%d of blueprint #%d: %s (%d/%d tasks, %s)\n",
		p.ID, p.BlueprintID, p.Status.Label(), p.FinishedTasks, p.TotalTasks,
		p.Duration(now).Round(time.Second))
	if p.Message != "" {
		fmt.Fprintf(w, "  %s\n", p.Message)
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("Task", "Plugin", "Status", "Progress", "Message")
	for _, task := range tasks {
		t.Row(
			fmt.Sprintf("#%d", task.ID),
			task.Plugin,
			task.Status.Label(),
			fmt.Sprintf("%.0f%%", task.Progress*100),
			task.Message,
		)
	}
	fmt.Fprintln(w, t.String())
}

func newPipelinesWatchCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <blueprint id>",
		Short: "Follow the pipelines of a blueprint until all of them finish",
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
			return watchPipelines(cmd, s, s.consoleLogger(), id)
		},
	}
}

// watchPipelines polls a blueprint and prints every status change until all
// its pipelines are terminal or the command is interrupted.
func watchPipelines(cmd *cobra.Command, s *session, log zerolog.Logger, blueprintID int) error {
	st, err := s.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	interval := time.Duration(s.cfg.Poll.IntervalSec) * time.Second
	poller := appsync.New(s.client(log), st, interval, log)
	defer poller.Stop()
	poller.Watch(blueprintID)

	out := cmd.OutOrStdout()
	last := make(map[int]model.PipelineStatus)
	for {
		select {
		case <-cmd.Context().Done():
			return nil
		case msg := <-poller.Results():
			if msg.BlueprintID != blueprintID {
				continue
			}
			if msg.AuthError {
				return fmt.Errorf("polling blueprint %d: %w", blueprintID, msg.Error)
			}
			if msg.Error != nil {
				log.Warn().Err(msg.Error).Bool("stale", msg.Stale).Msg("poll failed, retrying")
				continue
			}
			for _, p := range msg.Pipelines {
				if last[p.ID] == p.Status {
					continue
				}
				last[p.ID] = p.Status
				fmt.Fprintf(out, "pipeline #%d %s (%d/%d tasks)\n", p.ID, p.Status.Label(), p.FinishedTasks, p.TotalTasks)
			}
			if msg.Done {
				return nil
			}
		}
	}
}

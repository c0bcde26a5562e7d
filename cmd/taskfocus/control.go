package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/taskfocus/taskfocus/internal/client"
	"github.com/taskfocus/taskfocus/internal/config"
	"github.com/taskfocus/taskfocus/internal/daemon"
	"github.com/taskfocus/taskfocus/internal/focus"
)

const requestTimeout = 10 * time.Second

func newClient(cfg *config.Config) *client.Client {
	return client.New("http://"+cfg.Address(), requestTimeout)
}

func stopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.New()
			if err != nil {
				return err
			}
			dm := daemon.New(cfg.Daemon.PIDFile)

			running, pid, err := dm.IsRunning()
			if err != nil {
				return errors.Wrap(err, "failed to check daemon status")
			}
			if !running {
				fmt.Println("Daemon is not running")
				return nil
			}

			fmt.Printf("Stopping daemon (PID: %d)...\n", pid)
			if err := dm.Stop(); err != nil {
				return errors.Wrap(err, "failed to stop daemon")
			}
			fmt.Println("Daemon stopped successfully")
			return nil
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon status and open focus sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.New()
			if err != nil {
				return err
			}
			dm := daemon.New(cfg.Daemon.PIDFile)

			running, pid, err := dm.IsRunning()
			if err != nil {
				return errors.Wrap(err, "failed to check daemon status")
			}
			if !running {
				fmt.Println("Status: Not running")
				return nil
			}
			fmt.Printf("Status: Running (PID: %d)\n", pid)

			status, err := newClient(cfg).Status(cmd.Context())
			if err != nil {
				fmt.Printf("\nCould not reach web API: %v\n", err)
				return nil
			}
			fmt.Printf("Web API: http://%s\n", cfg.Address())
			fmt.Printf("Backend: %v (%v tier)\n", status["backend"], status["tier"])
			fmt.Printf("Uptime:  %v\n", status["uptime"])
			if subs, ok := status["subscribers"].([]interface{}); ok {
				fmt.Printf("Surfaces listening: %d\n", len(subs))
			}
			return printSessions(cmd.Context(), newClient(cfg))
		},
	}
}

func sessionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List focus sessions of the running daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.New()
			if err != nil {
				return err
			}
			return printSessions(cmd.Context(), newClient(cfg))
		},
	}
}

func printSessions(ctx context.Context, c *client.Client) error {
	sessions, err := c.Sessions(ctx)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Println("\nNo focus sessions.")
		return nil
	}

	fmt.Println()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TASK\tSTATE\tPANEL\tVISIBLE")
	for _, s := range sessions {
		fmt.Fprintf(w, "%s\t%s\t%s\t%v\n", s.TaskID, s.State, s.PanelLabel, s.PanelVisible)
	}
	return w.Flush()
}

func openCmd() *cobra.Command {
	var (
		name      string
		duration  float64
		timeSpent float64
	)

	cmd := &cobra.Command{
		Use:   "open <task-id>",
		Short: "Open the focus panel of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.New()
			if err != nil {
				return err
			}
			req := buildOpenRequest(args[0], name, cmd.Flags().Changed("duration"), duration, cmd.Flags().Changed("time-spent"), timeSpent)
			if err := newClient(cfg).Open(cmd.Context(), req); err != nil {
				return err
			}
			fmt.Printf("Opened focus panel for %s\n", req.TaskID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "Task name shown on the panel")
	cmd.Flags().Float64Var(&duration, "duration", 0, "Planned duration in minutes")
	cmd.Flags().Float64Var(&timeSpent, "time-spent", 0, "Time already spent in minutes")
	return cmd
}

func buildOpenRequest(taskID, name string, hasDuration bool, duration float64, hasSpent bool, spent float64) focus.OpenRequest {
	if strings.TrimSpace(name) == "" {
		name = taskID
	}
	req := focus.OpenRequest{TaskID: taskID, TaskName: name}
	if hasDuration {
		req.Duration = &duration
	}
	if hasSpent {
		req.TimeSpent = &spent
	}
	return req
}

func homeCmd() *cobra.Command {
	var (
		complete  bool
		elapsedMs float64
	)

	cmd := &cobra.Command{
		Use:   "home <task-id>",
		Short: "End focus on a task and return to the primary window",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.New()
			if err != nil {
				return err
			}
			req := focus.HomeRequest{TaskID: args[0]}
			if cmd.Flags().Changed("complete") {
				req.CompleteOnHome = &complete
			}
			if cmd.Flags().Changed("elapsed-ms") {
				req.ElapsedMs = &elapsedMs
			}
			return newClient(cfg).Home(cmd.Context(), req)
		},
	}

	cmd.Flags().BoolVar(&complete, "complete", false, "Mark the task completed")
	cmd.Flags().Float64Var(&elapsedMs, "elapsed-ms", 0, "Focused time to record, in milliseconds")
	return cmd
}

func closeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "close <task-id>",
		Short: "Close the focus surfaces of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.New()
			if err != nil {
				return err
			}
			return newClient(cfg).Close(cmd.Context(), args[0])
		},
	}
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to format JSON")
	}
	fmt.Println(string(data))
	return nil
}

package main

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"scribe/internal/daemonctl"
)

const (
	daemonStartTimeout = 10 * time.Second
	daemonStopGrace    = 5 * time.Second
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Manage the scribed background process",
	}
	cmd.AddCommand(newDaemonStartCommand(ctx))
	cmd.AddCommand(newDaemonStopCommand(ctx))
	cmd.AddCommand(newDaemonRestartCommand(ctx))
	cmd.AddCommand(newDaemonStatusCommand(ctx))
	return cmd
}

func newDaemonStartCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Launch the daemon if it is not already running",
		RunE: func(cmd *cobra.Command, args []string) error {
			exe, err := resolveDaemonExecutable()
			if err != nil {
				return err
			}
			opts := daemonctl.LaunchOptions{ConfigPath: ctx.configPath()}
			result, err := daemonctl.EnsureStarted(ctx.socketPath(), exe, opts, daemonStartTimeout)
			if err != nil {
				return err
			}
			switch result.State {
			case daemonctl.StartStateAlreadyRunning:
				fmt.Fprintf(cmd.OutOrStdout(), "Daemon already running (pid %d)\n", result.PID)
			default:
				fmt.Fprintf(cmd.OutOrStdout(), "Daemon started (pid %d)\n", result.PID)
			}
			return nil
		},
	}
}

func newDaemonStopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the daemon, force-killing it if it does not exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := daemonctl.StopAndTerminate(ctx.socketPath(), ctx.configValue(), daemonStopGrace)
			if err != nil {
				if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
					fmt.Fprintln(cmd.OutOrStdout(), "Daemon is not running")
					return nil
				}
				return err
			}
			if result.ForcedKill {
				fmt.Fprintf(cmd.OutOrStdout(), "Daemon force-killed (pid %d)\n", result.PID)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Daemon stopped")
			return nil
		},
	}
}

func newDaemonRestartCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "restart",
		Short: "Restart the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			exe, err := resolveDaemonExecutable()
			if err != nil {
				return err
			}
			opts := daemonctl.LaunchOptions{ConfigPath: ctx.configPath()}
			result, err := daemonctl.Restart(ctx.socketPath(), ctx.configValue(), exe, opts, daemonStopGrace, daemonStartTimeout)
			if err != nil {
				return err
			}
			if result.WasRunning {
				fmt.Fprintf(cmd.OutOrStdout(), "Daemon restarted (pid %d)\n", result.Start.PID)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Daemon started (pid %d)\n", result.Start.PID)
			}
			return nil
		},
	}
}

func newDaemonStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonFlag bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon and pipeline status",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := daemonctl.BuildStatusSnapshot(cmd.Context(), ctx.socketPath(), ctx.configValue())
			if err != nil {
				return err
			}
			if jsonFlag {
				return writeJSON(cmd, status)
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			running := "stopped"
			if status.Running {
				running = "running"
			}
			fmt.Fprintf(out, "Daemon:   %s\n", colorizeStatus(running, colorize))
			if status.PID > 0 {
				fmt.Fprintf(out, "PID:      %d\n", status.PID)
			}
			if status.StartedAt != "" {
				fmt.Fprintf(out, "Since:    %s\n", status.StartedAt)
			}
			if status.APIAddr != "" {
				fmt.Fprintf(out, "API:      http://%s\n", status.APIAddr)
			}
			if status.JobDBPath != "" {
				fmt.Fprintf(out, "Database: %s\n", status.JobDBPath)
			}

			if len(status.Stats) > 0 {
				stages := make([]string, 0, len(status.Stats))
				for stage := range status.Stats {
					stages = append(stages, stage)
				}
				sort.Strings(stages)
				rows := make([][]string, 0, len(stages))
				for _, stage := range stages {
					rows = append(rows, []string{stageLabel(stage), fmt.Sprintf("%d", status.Stats[stage])})
				}
				fmt.Fprintln(out)
				fmt.Fprintln(out, renderTable([]string{"Stage", "Count"}, rows))
			}

			if len(status.StageHealth) > 0 {
				fmt.Fprintln(out)
				for _, health := range status.StageHealth {
					state := "ready"
					if !health.Ready {
						state = "not ready"
					}
					line := fmt.Sprintf("  %-16s %s", stageLabel(health.Name), colorizeStatus(state, colorize))
					if health.Detail != "" {
						line += " (" + health.Detail + ")"
					}
					fmt.Fprintln(out, line)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonFlag, "json", false, "Emit status as JSON")
	return cmd
}

// resolveDaemonExecutable finds scribed next to the CLI binary, falling back
// to PATH lookup.
func resolveDaemonExecutable() (string, error) {
	if self, err := os.Executable(); err == nil {
		sibling := filepath.Join(filepath.Dir(self), "scribed")
		if info, statErr := os.Stat(sibling); statErr == nil && !info.IsDir() {
			return sibling, nil
		}
	}
	path, err := exec.LookPath("scribed")
	if err != nil {
		return "", fmt.Errorf("locate scribed executable: %w", err)
	}
	return path, nil
}

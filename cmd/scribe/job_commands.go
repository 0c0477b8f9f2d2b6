package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"scribe/internal/ipc"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var language string
	var minutesFlag string
	var jsonFlag bool
	cmd := &cobra.Command{
		Use:   "submit <file>",
		Short: "Submit a meeting recording for processing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := filepath.Abs(strings.TrimSpace(args[0]))
			if err != nil {
				return err
			}
			req := ipc.SubmitRequest{Path: path, Language: language}
			if minutesFlag != "" {
				switch strings.ToLower(minutesFlag) {
				case "on", "true", "yes":
					enabled := true
					req.Minutes = &enabled
				case "off", "false", "no":
					enabled := false
					req.Minutes = &enabled
				default:
					return fmt.Errorf("invalid --minutes value %q (use on or off)", minutesFlag)
				}
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Submit(req)
				if err != nil {
					return err
				}
				if jsonFlag {
					return writeJSON(cmd, resp.Job)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Job %s submitted (%s)\n", shortID(resp.Job.ID), filepath.Base(path))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&language, "language", "", "Language hint for transcription")
	cmd.Flags().StringVar(&minutesFlag, "minutes", "", "Override minutes generation (on/off)")
	cmd.Flags().BoolVar(&jsonFlag, "json", false, "Emit created job as JSON")
	return cmd
}

func newListCommand(ctx *commandContext) *cobra.Command {
	var stages []string
	var jsonFlag bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.List(stages)
				if err != nil {
					return err
				}
				if jsonFlag {
					return writeJSON(cmd, resp.Jobs)
				}
				if len(resp.Jobs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No jobs")
					return nil
				}
				rows := make([][]string, 0, len(resp.Jobs))
				for _, job := range resp.Jobs {
					rows = append(rows, []string{
						shortID(job.ID),
						stageLabel(job.Stage),
						job.Status,
						progressCell(job.Progress),
						fmt.Sprintf("%d", job.Attempt),
						filepath.Base(job.SourceRef),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Stage", "Status", "Progress", "Attempt", "Recording"}, rows))
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVar(&stages, "stage", nil, "Filter by stage (repeatable)")
	cmd.Flags().BoolVar(&jsonFlag, "json", false, "Emit jobs as JSON")
	return cmd
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	var jsonFlag bool
	var transcriptFlag bool
	var minutesOnly bool
	cmd := &cobra.Command{
		Use:   "show <job-id>",
		Short: "Show one job with its artifacts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Describe(strings.TrimSpace(args[0]))
				if err != nil {
					return err
				}
				job := resp.Job
				if jsonFlag {
					return writeJSON(cmd, job)
				}
				out := cmd.OutOrStdout()
				if minutesOnly {
					if job.MinutesText == "" {
						return errors.New("job has no minutes")
					}
					fmt.Fprintln(out, job.MinutesText)
					return nil
				}

				colorize := shouldColorize(out)
				fmt.Fprintf(out, "Job:       %s\n", job.ID)
				fmt.Fprintf(out, "Stage:     %s\n", colorizeStatus(job.Stage, colorize))
				fmt.Fprintf(out, "Status:    %s (%s, attempt %d)\n", job.Status, progressCell(job.Progress), job.Attempt)
				fmt.Fprintf(out, "Recording: %s\n", job.SourceRef)
				if job.LanguageHint != "" {
					fmt.Fprintf(out, "Language:  %s\n", job.LanguageHint)
				}
				fmt.Fprintf(out, "Minutes:   %s\n", yesNo(job.MinutesEnabled))
				if job.FailedStage != "" {
					fmt.Fprintf(out, "Failed in: %s\n", stageLabel(job.FailedStage))
				}
				if job.ErrorMessage != "" {
					fmt.Fprintf(out, "Error:     %s\n", job.ErrorMessage)
				}
				if job.Quality != nil {
					fmt.Fprintf(out, "Quality:   %d/100 (%s)\n", job.Quality.Overall, job.Quality.Grade)
					for _, rec := range job.Quality.Recommendations {
						fmt.Fprintf(out, "  - %s\n", rec)
					}
				}
				if job.MinutesText != "" {
					fmt.Fprintln(out)
					fmt.Fprintln(out, job.MinutesText)
				}
				if transcriptFlag && job.TranscriptJSON != "" {
					fmt.Fprintln(out)
					fmt.Fprintln(out, job.TranscriptJSON)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonFlag, "json", false, "Emit job as JSON")
	cmd.Flags().BoolVar(&transcriptFlag, "transcript", false, "Include raw transcript JSON")
	cmd.Flags().BoolVar(&minutesOnly, "minutes", false, "Print only the generated minutes")
	return cmd
}

func newCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <job-id>",
		Short: "Cancel a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Cancel(strings.TrimSpace(args[0]))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Job %s cancelled\n", shortID(resp.Job.ID))
				return nil
			})
		},
	}
}

func newRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <job-id>",
		Short: "Retry a failed job from the stage that broke",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Retry(strings.TrimSpace(args[0]))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Job %s retrying from %s (attempt %d)\n",
					shortID(resp.Job.ID), stageLabel(resp.Job.Stage), resp.Job.Attempt)
				return nil
			})
		},
	}
}

func newHealthCommand(ctx *commandContext) *cobra.Command {
	var jsonFlag bool
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Show stage readiness",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Health()
				if err != nil {
					return err
				}
				if jsonFlag {
					return writeJSON(cmd, resp.Stages)
				}
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				for _, health := range resp.Stages {
					state := "ready"
					if !health.Ready {
						state = "not ready"
					}
					line := fmt.Sprintf("%-16s %s", stageLabel(health.Name), colorizeStatus(state, colorize))
					if health.Detail != "" {
						line += " (" + health.Detail + ")"
					}
					fmt.Fprintln(out, line)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonFlag, "json", false, "Emit health as JSON")
	return cmd
}

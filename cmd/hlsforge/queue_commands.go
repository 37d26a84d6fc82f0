package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"hlsforge/internal/api"
	"hlsforge/internal/ipc"
	"hlsforge/internal/queue"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage transcoding jobs",
	}

	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueRetryCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))
	queueCmd.AddCommand(newQueueRemoveCommand(ctx))
	queueCmd.AddCommand(newQueueRequeueOrphansCommand(ctx))
	queueCmd.AddCommand(newQueueHealthCommand(ctx))

	return queueCmd
}

func parseStatuses(values []string) ([]queue.Status, error) {
	statuses := make([]queue.Status, 0, len(values))
	for _, value := range values {
		status, ok := queue.ParseStatus(value)
		if !ok {
			return nil, fmt.Errorf("unknown status %q", value)
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var listStatuses []string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses, err := parseStatuses(listStatuses)
			if err != nil {
				return err
			}
			return ctx.withStore(cmd.Context(), func(client *ipc.Client, store queue.StatusStore) error {
				var jobs []api.Job
				if client != nil {
					resp, err := client.List(listStatuses)
					if err != nil {
						return err
					}
					jobs = resp.Jobs
				} else {
					records, err := store.List(cmd.Context(), statuses...)
					if err != nil {
						return err
					}
					jobs = api.FromRecords(records)
				}

				if asJSON {
					return writeJSON(cmd, jobs)
				}
				if len(jobs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				colorize := shouldColorize(cmd.OutOrStdout())
				rows := make([][]string, 0, len(jobs))
				for _, job := range jobs {
					rows = append(rows, []string{
						job.Name,
						colorStatus(job.Status, colorize),
						strconv.Itoa(job.Attempt),
						job.CreatedAt,
						job.Message,
					})
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable(
					[]string{"Name", "Status", "Attempt", "Created", "Message"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&listStatuses, "status", "s", nil, "Filter by status (repeatable)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <name>",
		Short: "Queue a failed job for another attempt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Retry(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Job %s queued (attempt %d)\n", resp.Job.Name, resp.Job.Attempt)
				return nil
			})
		},
	}
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	var clearSuccess bool
	var clearFailed bool
	var purgeSources bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove finished job records",
		Long: `Remove finished job records.

Without --success or --failed both terminal states are cleared. Pending and
processing jobs are never removed. --purge-sources also deletes the source
files of cleared jobs that still live in the upload directory.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var statuses []string
			if clearSuccess {
				statuses = append(statuses, string(queue.StatusSuccess))
			}
			if clearFailed {
				statuses = append(statuses, string(queue.StatusFailed))
			}
			return ctx.withStore(cmd.Context(), func(client *ipc.Client, store queue.StatusStore) error {
				out := cmd.OutOrStdout()
				if client != nil {
					resp, err := client.Clear(statuses, purgeSources)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Cleared %d jobs\n", len(resp.Removed))
					if purgeSources {
						fmt.Fprintf(out, "Purged %d source files\n", resp.SourcesPurged)
					}
					return nil
				}
				if purgeSources {
					return errors.New("--purge-sources requires a running daemon")
				}
				parsed, err := parseStatuses(statuses)
				if err != nil {
					return err
				}
				removed, err := store.ClearTerminal(cmd.Context(), parsed...)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Cleared %d jobs\n", len(removed))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&clearSuccess, "success", false, "Only clear successful jobs")
	cmd.Flags().BoolVar(&clearFailed, "failed", false, "Only clear failed jobs")
	cmd.Flags().BoolVar(&purgeSources, "purge-sources", false, "Delete remaining source files of cleared jobs")
	return cmd
}

func newQueueRemoveCommand(ctx *commandContext) *cobra.Command {
	var purgeSource bool

	cmd := &cobra.Command{
		Use:   "remove <name>",
		Short: "Remove a single finished job record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			return ctx.withStore(cmd.Context(), func(client *ipc.Client, store queue.StatusStore) error {
				out := cmd.OutOrStdout()
				if client != nil {
					resp, err := client.Remove(name, purgeSource)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Removed %s\n", resp.Job.Name)
					if resp.SourcePurged {
						fmt.Fprintln(out, "Purged source file")
					}
					return nil
				}
				if purgeSource {
					return errors.New("--purge-source requires a running daemon")
				}
				if err := store.Remove(cmd.Context(), name); err != nil {
					return err
				}
				fmt.Fprintf(out, "Removed %s\n", name)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&purgeSource, "purge-source", false, "Also delete the source file if it is still in the upload directory")
	return cmd
}

func newQueueRequeueOrphansCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "requeue-orphans",
		Short: "Queue pending jobs left behind by a previous daemon run",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.RequeueOrphans()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Queued %d orphaned jobs\n", resp.Queued)
				return nil
			})
		},
	}
}

func newQueueHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show status store diagnostics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(client *ipc.Client, store queue.StatusStore) error {
				var health queue.DatabaseHealth
				var summary queue.HealthSummary
				if client != nil {
					db, err := client.DatabaseHealth()
					if err != nil {
						return err
					}
					counts, err := client.QueueHealth()
					if err != nil {
						return err
					}
					health = queue.DatabaseHealth(*db)
					summary = queue.HealthSummary(*counts)
				} else {
					var err error
					if health, err = store.CheckHealth(cmd.Context()); err != nil {
						return err
					}
					if summary, err = store.Health(cmd.Context()); err != nil {
						return err
					}
				}

				colorize := shouldColorize(cmd.OutOrStdout())
				lines := renderSectionHeader("Status store", colorize)
				lines = append(lines,
					renderStatusLine("Driver", statusInfo, health.Driver, colorize),
					renderStatusLine("Location", statusInfo, health.Location, colorize),
					renderStatusLine("Reachable", readyKind(health.DatabaseReadable), yesNo(health.DatabaseReadable), colorize),
					renderStatusLine("Schema version", statusInfo, valueOr(health.SchemaVersion, "unknown"), colorize),
					renderStatusLine("Jobs table", readyKind(health.TableExists), yesNo(health.TableExists), colorize),
					renderStatusLine("Integrity", readyKind(health.IntegrityCheck), yesNo(health.IntegrityCheck), colorize),
				)
				if len(health.MissingColumns) > 0 {
					lines = append(lines, renderStatusLine("Missing columns", statusError, fmt.Sprint(health.MissingColumns), colorize))
				}
				if health.Error != "" {
					lines = append(lines, renderStatusLine("Error", statusError, health.Error, colorize))
				}
				for _, line := range lines {
					fmt.Fprintln(cmd.OutOrStdout(), line)
				}

				fmt.Fprint(cmd.OutOrStdout(), renderTable(
					[]string{"Status", "Count"},
					[][]string{
						{queue.StatusPending.Title(), strconv.Itoa(summary.Pending)},
						{queue.StatusProcessing.Title(), strconv.Itoa(summary.Processing)},
						{queue.StatusSuccess.Title(), strconv.Itoa(summary.Success)},
						{queue.StatusFailed.Title(), strconv.Itoa(summary.Failed)},
						{"Total", strconv.Itoa(summary.Total)},
					},
					[]columnAlignment{alignLeft, alignRight},
				))
				return nil
			})
		},
	}
}

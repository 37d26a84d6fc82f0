package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"hlsforge/internal/api"
	"hlsforge/internal/ipc"
	"hlsforge/internal/queue"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, worker and dependency status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				status, err := client.Status()
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, status)
				}
				printStatus(cmd.OutOrStdout(), status, shouldColorize(cmd.OutOrStdout()))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func printStatus(out io.Writer, status *api.DaemonStatus, colorize bool) {
	lines := renderSectionHeader("Daemon", colorize)
	daemonKind, daemonMsg := statusError, "not processing"
	if status.Running {
		daemonKind, daemonMsg = statusOK, fmt.Sprintf("running (pid %d)", status.PID)
	}
	lines = append(lines,
		renderStatusLine("Daemon", daemonKind, daemonMsg, colorize),
		renderStatusLine("API", statusInfo, valueOr(status.APIAddress, "not listening"), colorize),
		renderStatusLine("Status store", statusInfo, strings.TrimSpace(status.StoreDriver+" "+status.StorePath), colorize),
	)

	wf := status.Workflow
	lines = append(lines, "")
	lines = append(lines, renderSectionHeader("Worker", colorize)...)
	if wf.ActiveJob != "" {
		lines = append(lines, renderStatusLine("Active job", statusWarn, wf.ActiveJob+" since "+wf.ActiveSince, colorize))
	} else {
		lines = append(lines, renderStatusLine("Active job", statusInfo, "idle", colorize))
	}
	lines = append(lines, renderStatusLine("Queue depth", statusInfo, fmt.Sprintf("%d", wf.QueueDepth), colorize))
	if wf.Orphaned > 0 {
		lines = append(lines, renderStatusLine("Orphaned", statusWarn,
			fmt.Sprintf("%d pending records not queued (hlsforge queue requeue-orphans)", wf.Orphaned), colorize))
	}
	for _, s := range queue.AllStatuses() {
		lines = append(lines, renderStatusLine(s.Title(), statusInfo, fmt.Sprintf("%d", wf.QueueStats[string(s)]), colorize))
	}
	if wf.LastError != "" {
		lines = append(lines, renderStatusLine("Last error", statusError, wf.LastError, colorize))
	}
	if wf.LastJob != nil {
		lines = append(lines, renderStatusLine("Last job", jobStatusKind(wf.LastJob.Status),
			wf.LastJob.Name+" "+queue.Status(wf.LastJob.Status).Title(), colorize))
	}
	lines = append(lines, renderStatusLine("Executor", readyKind(wf.ExecutorHealth.Ready), valueOr(wf.ExecutorHealth.Detail, "ready"), colorize))

	lines = append(lines, "")
	lines = append(lines, renderSectionHeader("Dependencies", colorize)...)
	for _, dep := range status.Dependencies {
		kind := readyKind(dep.Available)
		if !dep.Available && dep.Optional {
			kind = statusWarn
		}
		message := dep.Command
		if dep.Detail != "" {
			message = dep.Detail
		}
		lines = append(lines, renderStatusLine(dep.Name, kind, message, colorize))
	}

	if len(status.Checks) > 0 {
		lines = append(lines, "")
		lines = append(lines, renderSectionHeader("Checks", colorize)...)
		for _, check := range status.Checks {
			lines = append(lines, renderStatusLine(check.Name, readyKind(check.Passed), check.Detail, colorize))
		}
	}

	fmt.Fprintln(out, strings.Join(lines, "\n"))
}

func readyKind(ok bool) statusKind {
	if ok {
		return statusOK
	}
	return statusError
}

func valueOr(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

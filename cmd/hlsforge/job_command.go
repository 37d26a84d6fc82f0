package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"hlsforge/internal/api"
	"hlsforge/internal/ipc"
	"hlsforge/internal/queue"
)

func newJobCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "job <name>",
		Short: "Show the status of one transcoding job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			return ctx.withStore(cmd.Context(), func(client *ipc.Client, store queue.StatusStore) error {
				var job api.Job
				if client != nil {
					resp, err := client.JobStatus(name)
					if err != nil {
						return err
					}
					job = resp.Job
				} else {
					record, err := store.Find(cmd.Context(), name)
					if err != nil {
						return err
					}
					job = api.FromRecord(record)
				}
				if asJSON {
					return writeJSON(cmd, job)
				}
				printJob(cmd.OutOrStdout(), job, shouldColorize(cmd.OutOrStdout()))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func printJob(out io.Writer, job api.Job, colorize bool) {
	rows := [][]string{
		{"Name", job.Name},
		{"Status", colorStatus(job.Status, colorize)},
		{"Attempt", strconv.Itoa(job.Attempt)},
		{"Playlist", job.URL},
		{"Source", valueOr(job.SourcePath, "-")},
		{"Created", valueOr(job.CreatedAt, "-")},
		{"Updated", valueOr(job.UpdatedAt, "-")},
	}
	if job.LastHeartbeat != "" {
		rows = append(rows, []string{"Heartbeat", job.LastHeartbeat})
	}
	if job.Message != "" {
		rows = append(rows, []string{"Message", job.Message})
	}
	fmt.Fprint(out, renderTable([]string{"Field", "Value"}, rows, nil))
}

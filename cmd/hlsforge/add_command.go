package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"hlsforge/internal/ipc"
)

func newAddCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "add <file>",
		Short: "Copy a local video into the upload directory and queue it",
		Long: `Copy a local video into the upload directory and queue it.

The original file is left untouched; only the staged copy is removed once
transcoding succeeds.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolve path: %w", err)
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.AddFile(path)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp.Job)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Queued %s\n", resp.Job.Name)
				fmt.Fprintf(out, "Playlist will be served at %s\n", resp.Job.URL)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

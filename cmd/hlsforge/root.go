package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var socketFlag, configFlag string
	ctx := newCommandContext(&socketFlag, &configFlag)

	rootCmd := &cobra.Command{
		Use:           "hlsforge",
		Short:         "Upload-to-HLS transcoding queue",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		// Commands annotated skipConfigLoad manage the config file itself.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&socketFlag, "socket", "", "Daemon IPC socket (default <log_dir>/hlsforge.sock)")
	flags.StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	rootCmd.AddGroup(
		&cobra.Group{ID: "daemon", Title: "Daemon:"},
		&cobra.Group{ID: "jobs", Title: "Jobs:"},
	)
	for _, cmd := range newDaemonCommands(ctx) {
		cmd.GroupID = "daemon"
		rootCmd.AddCommand(cmd)
	}
	for _, cmd := range []*cobra.Command{
		newAddCommand(ctx),
		newJobCommand(ctx),
		newQueueCommand(ctx),
		newLogsCommand(ctx),
	} {
		cmd.GroupID = "jobs"
		rootCmd.AddCommand(cmd)
	}
	statusCmd := newStatusCommand(ctx)
	statusCmd.GroupID = "daemon"
	rootCmd.AddCommand(statusCmd, newTestNotifyCommand(ctx), newConfigCommand(ctx))

	return rootCmd
}

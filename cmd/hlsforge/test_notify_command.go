package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"hlsforge/internal/ipc"
)

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Publish a test message to the configured ntfy topic",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.TestNotification()
				if err != nil {
					return fmt.Errorf("send test notification: %w", err)
				}
				if !resp.Sent {
					fmt.Fprintf(cmd.OutOrStdout(), "Not sent: %s\n", valueOr(resp.Message, "no reason given"))
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Test notification published")
				return nil
			})
		},
	}
}

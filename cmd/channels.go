package cmd

import (
	"fmt"
	"io"

	"robocam/internal/servo"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newChannelsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "channels",
		Short: "サーボのチャンネル割り当てを表示する",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			printChannels(cmd.OutOrStdout())
			return nil
		},
	}
}

func printChannels(out io.Writer) {
	_, _ = fmt.Fprintf(out, "パルス幅: %d-%d\n", servo.PulseMin, servo.PulseMax)
	for _, ch := range servo.Channels() {
		_, _ = fmt.Fprintf(out, "  %-18s %s\n", ch.Name, color.CyanString("%2d", ch.Number))
	}
}

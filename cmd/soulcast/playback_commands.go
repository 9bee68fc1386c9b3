package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newPlayCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "play <id>",
		Short: "Play an episode, or pause/resume it if it is already playing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			return ctx.withService(cmd, func(svc service) error {
				state, err := svc.Play(cmd.Context(), id)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				switch {
				case state.CurrentID != id:
					fmt.Fprintf(out, "%s has no audio yet\n", id)
					return nil
				case state.Paused:
					fmt.Fprintf(out, "Paused %s\n", id)
					return nil
				}
				if svc.Mode() == "daemon" {
					fmt.Fprintf(out, "Playing %s\n", id)
					return nil
				}
				fmt.Fprintf(out, "Playing %s (Ctrl-C to stop)\n", id)
				return ignoreCanceled(svc.AwaitPlayback(cmd.Context(), id))
			})
		},
	}
}

func newStopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop playback on the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(cmd, func(svc service) error {
				if _, err := svc.StopPlayback(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Playback stopped")
				return nil
			})
		},
	}
}

// ignoreCanceled treats an interrupted wait as a normal stop.
func ignoreCanceled(err error) error {
	if err == nil || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

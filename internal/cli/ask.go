package cli

import (
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/wolfman30/messenger-booking-relay/internal/app/bootstrap"
)

func newAskCmd(a *app) *cobra.Command {
	var userID string
	var noPace bool

	cmd := &cobra.Command{
		Use:   "ask [text...]",
		Short: "Run one utterance through session, NLU, dispatcher and sequencer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			console := &consoleChannel{out: cmd.OutOrStdout()}
			opts := bootstrap.RuntimeOptions{
				Registerer: prometheus.NewRegistry(),
				NLU:        a.nlu,
				Sender:     console,
				Typing:     console,
				Scheduler:  a.scheduler,
			}
			if noPace {
				opts.Scheduler = instantScheduler{}
			}

			rt, err := bootstrap.BuildRuntime(cmd.Context(), a.cfg, a.logger, opts)
			if err != nil {
				return fmt.Errorf("build runtime: %w", err)
			}

			text := strings.Join(args, " ")
			fmt.Fprintf(cmd.OutOrStdout(), "<- %s: %s\n", userID, text)
			rt.Relay.HandleText(cmd.Context(), userID, text)
			return rt.Shutdown(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&userID, "user", "console", "Channel user ID to act as")
	cmd.Flags().BoolVar(&noPace, "no-pace", false, "Deliver without pacing delays")

	return cmd
}

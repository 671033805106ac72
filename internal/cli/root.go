// Package cli implements relayctl, the operator CLI for poking the relay's
// collaborators from a terminal.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/wolfman30/messenger-booking-relay/internal/booking"
	appconfig "github.com/wolfman30/messenger-booking-relay/internal/config"
	"github.com/wolfman30/messenger-booking-relay/internal/conversation"
	"github.com/wolfman30/messenger-booking-relay/internal/delivery"
	"github.com/wolfman30/messenger-booking-relay/pkg/logging"
)

type app struct {
	cfg    *appconfig.Config
	logger *logging.Logger

	// nlu and scheduler replace Dialogflow and real pacing when set.
	nlu       conversation.IntentDetector
	scheduler delivery.Scheduler
}

func wireApp() *app {
	cfg := appconfig.Load()
	return &app{cfg: cfg, logger: logging.New(cfg.LogLevel)}
}

func (a *app) bookingClient() *booking.Client {
	return booking.NewClient(a.cfg.BookingBackendURL, a.logger, booking.WithTimeout(a.cfg.BookingTimeout))
}

func Execute() error {
	return newRootCmd(wireApp()).Execute()
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "relayctl",
		Short:         "Operator CLI for the Messenger booking relay",
		Long:          "relayctl runs utterances through the relay pipeline, previews delivery plans, and calls the booking backend directly.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.AddCommand(
		newAskCmd(a),
		newPlanCmd(a),
		newAvailabilityCmd(a),
		newBookingsCmd(a),
		newCancelCmd(a),
	)

	return rootCmd
}

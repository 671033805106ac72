package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wolfman30/messenger-booking-relay/internal/delivery"
	"github.com/wolfman30/messenger-booking-relay/internal/fragment"
)

type instantScheduler struct{}

func (instantScheduler) Wait(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

type planStep struct {
	OffsetMS int64                 `json:"offset_ms"`
	Unit     fragment.DeliveryUnit `json:"unit"`
}

func newPlanCmd(a *app) *cobra.Command {
	var interval time.Duration
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the delivery plan for a JSON fragment list read from stdin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var frags []fragment.Fragment
			if err := json.NewDecoder(cmd.InOrStdin()).Decode(&frags); err != nil {
				return fmt.Errorf("decode fragments: %w", err)
			}

			if interval <= 0 {
				interval = a.cfg.PacingInterval
			}
			steps := delivery.Plan(frags, interval)

			if asJSON {
				out := make([]planStep, 0, len(steps))
				for _, s := range steps {
					out = append(out, planStep{OffsetMS: s.Offset.Milliseconds(), Unit: s.Unit})
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}

			for _, s := range steps {
				kind := "single"
				if s.Unit.IsCarousel() {
					kind = "carousel"
				}
				if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%6dms  %-8s %d\n", s.Offset.Milliseconds(), kind, s.Unit.Size()); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 0, "Pacing interval (default: PACING_INTERVAL)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")

	return cmd
}

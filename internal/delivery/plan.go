// Package delivery turns a fragment list into paced delivery units and
// replays them to a channel.
package delivery

import (
	"time"

	"github.com/wolfman30/messenger-booking-relay/internal/fragment"
)

// DefaultInterval is the pause between consecutive sends.
const DefaultInterval = 1100 * time.Millisecond

// Step is one delivery unit and its offset from the start of the replay.
type Step struct {
	Unit   fragment.DeliveryUnit
	Offset time.Duration
}

// Plan groups fragments into delivery units and assigns each a send offset.
//
// A non-card fragment at index i goes out at i*interval. A run of cards is
// collapsed into one carousel: when a non-card fragment closes the run, the
// carousel takes the slot of the run's last card; when the run reaches the
// end of the list it goes one slot earlier (never below zero). Offsets are
// non-decreasing, so replaying in order keeps fragment order.
func Plan(fragments []fragment.Fragment, interval time.Duration) []Step {
	if interval < 0 {
		interval = 0
	}
	steps := make([]Step, 0, len(fragments))
	var cards []fragment.Card

	for i, f := range fragments {
		if f.IsCard() {
			cards = append(cards, *f.Card)
			if i == len(fragments)-1 {
				steps = append(steps, Step{
					Unit:   fragment.Carousel(cards),
					Offset: slot(i-1, interval),
				})
				cards = nil
			}
			continue
		}
		if len(cards) > 0 {
			steps = append(steps, Step{
				Unit:   fragment.Carousel(cards),
				Offset: slot(i-1, interval),
			})
			cards = nil
		}
		steps = append(steps, Step{Unit: fragment.Single(f), Offset: slot(i, interval)})
	}
	return steps
}

func slot(index int, interval time.Duration) time.Duration {
	if index < 0 {
		index = 0
	}
	return time.Duration(index) * interval
}

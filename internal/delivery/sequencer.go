package delivery

import (
	"context"
	"sync"
	"time"

	"github.com/wolfman30/messenger-booking-relay/internal/fragment"
	"github.com/wolfman30/messenger-booking-relay/pkg/logging"
)

// Sender performs one best-effort channel send.
type Sender interface {
	Send(ctx context.Context, recipientID string, unit fragment.DeliveryUnit)
}

// Scheduler waits for d to pass. Tests swap in an instant implementation.
type Scheduler interface {
	Wait(ctx context.Context, d time.Duration) error
}

// TimerScheduler waits on real timers.
type TimerScheduler struct{}

// Wait blocks for d or until ctx is done.
func (TimerScheduler) Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Sequencer replays delivery plans in the background.
type Sequencer struct {
	sender    Sender
	scheduler Scheduler
	interval  time.Duration
	logger    *logging.Logger
	wg        sync.WaitGroup
}

// NewSequencer creates a Sequencer. A zero interval means DefaultInterval;
// a nil scheduler means real timers.
func NewSequencer(sender Sender, scheduler Scheduler, interval time.Duration, logger *logging.Logger) *Sequencer {
	if scheduler == nil {
		scheduler = TimerScheduler{}
	}
	if interval == 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Sequencer{sender: sender, scheduler: scheduler, interval: interval, logger: logger}
}

// Deliver schedules fragments for recipientID and returns without waiting.
// Once scheduled, a replay runs to completion.
func (s *Sequencer) Deliver(recipientID string, fragments []fragment.Fragment) {
	if len(fragments) == 0 {
		return
	}
	steps := Plan(fragments, s.interval)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.replay(context.Background(), recipientID, steps)
	}()
}

// Wait blocks until every scheduled replay has finished.
func (s *Sequencer) Wait() {
	s.wg.Wait()
}

func (s *Sequencer) replay(ctx context.Context, recipientID string, steps []Step) {
	var elapsed time.Duration
	for _, step := range steps {
		if gap := step.Offset - elapsed; gap > 0 {
			if err := s.scheduler.Wait(ctx, gap); err != nil {
				s.logger.Warn("delivery: replay interrupted", "recipient_id", recipientID, "error", err)
				return
			}
			elapsed = step.Offset
		}
		s.sender.Send(ctx, recipientID, step.Unit)
	}
}

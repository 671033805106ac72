package conversation

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/wolfman30/messenger-booking-relay/internal/booking"
	"github.com/wolfman30/messenger-booking-relay/internal/fragment"
	"github.com/wolfman30/messenger-booking-relay/pkg/logging"
)

// BookingBackend is the subset of the booking client the dispatcher uses.
type BookingBackend interface {
	CheckAvailability(ctx context.Context, date string) (booking.Availability, error)
	ListBookings(ctx context.Context, userID string) ([]booking.Record, error)
	CreateBooking(ctx context.Context, req booking.Request) (string, error)
	CancelBooking(ctx context.Context, token string) (bool, error)
}

// Reply is what a handler wants sent back. FollowUp, when set, is an
// utterance to run through the NLU after Fragments are delivered.
type Reply struct {
	Fragments []fragment.Fragment
	FollowUp  string
}

// Dispatcher turns an NLU result into the fragments to deliver.
type Dispatcher struct {
	backend  BookingBackend
	logger   *logging.Logger
	observer Observer
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(backend BookingBackend, logger *logging.Logger, observer Observer) *Dispatcher {
	if logger == nil {
		logger = logging.Default()
	}
	if observer == nil {
		observer = nopObserver{}
	}
	return &Dispatcher{backend: backend, logger: logger, observer: observer}
}

// Respond picks the reply for result: a dispatched action when the NLU
// named one, otherwise its fragments, otherwise its fulfillment text.
func (d *Dispatcher) Respond(ctx context.Context, sender string, result *IntentResult) Reply {
	switch {
	case result == nil:
		return textReply(msgNotSure)
	case result.Action != "":
		return d.Dispatch(ctx, NewCommand(sender, result), result)
	case len(result.Fragments) > 0:
		return Reply{Fragments: result.Fragments}
	case result.FulfillmentText == "":
		return textReply(msgNotSure)
	default:
		return textReply(result.FulfillmentText)
	}
}

// Dispatch runs the handler for cmd.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd Command, result *IntentResult) Reply {
	d.observer.ObserveAction(cmd.Action.String())

	switch cmd.Action {
	case ActionCheckAvailability:
		return d.checkAvailability(ctx, cmd.Availability, result)
	case ActionCancelBooking:
		return d.cancelBooking(ctx, cmd, result)
	case ActionConfirmBooking:
		return d.confirmBooking(ctx, cmd, result)
	case ActionBookingDetails:
		return d.bookingDetails(cmd.Details, result)
	default:
		return Reply{Fragments: result.Fragments}
	}
}

func (d *Dispatcher) checkAvailability(ctx context.Context, q *AvailabilityQuery, result *IntentResult) Reply {
	if q == nil || q.Date == "" {
		return Reply{Fragments: result.Fragments}
	}

	avail, err := d.backend.CheckAvailability(ctx, q.Date)
	if err != nil {
		d.logger.Warn("check availability failed", "date", q.Date, "error", err)
		return apology(msgTryAgain)
	}

	lines := make([]string, 0, len(avail))
	for _, room := range avail {
		lines = append(lines, fmt.Sprintf("%s: %s", room.RoomType, room.Count))
	}
	return Reply{Fragments: []fragment.Fragment{
		fragment.NewText(fmt.Sprintf(msgAvailabilityHeader, q.Date)),
		fragment.NewText(strings.Join(lines, "\n")),
	}}
}

func (d *Dispatcher) cancelBooking(ctx context.Context, cmd Command, result *IntentResult) Reply {
	q := cmd.Cancellation
	if q == nil {
		return Reply{Fragments: result.Fragments}
	}

	switch {
	case q.Token == "" && q.Confirm == "":
		return d.listForCancellation(ctx, cmd.Sender, result)

	case q.Token != "" && q.Confirm == "":
		prompt := result.primaryText()
		if prompt == "" {
			prompt = msgConfirmCancel
		}
		return Reply{Fragments: []fragment.Fragment{
			fragment.NewQuickReplyOptions(prompt,
				fragment.Option{Title: "Yes", Payload: "yes"},
				fragment.Option{Title: "No", Payload: "no"},
			),
		}}

	case q.Token != "" && q.Confirm == "yes":
		if _, err := d.backend.CancelBooking(ctx, q.Token); err != nil {
			d.logger.Warn("cancel booking failed", "error", err)
			if be, ok := booking.AsBackendError(err); ok && !be.Transport() {
				return textReply(msgSomeError)
			}
			return apology(msgTryAgain)
		}
		return textReply(msgCancelled)

	case q.Token != "" && q.Confirm == "no":
		return textReply(msgNotCancelled)

	default:
		return Reply{Fragments: result.Fragments}
	}
}

func (d *Dispatcher) listForCancellation(ctx context.Context, sender string, result *IntentResult) Reply {
	records, err := d.backend.ListBookings(ctx, sender)
	if err != nil {
		d.logger.Warn("list bookings failed", "sender_id", sender, "error", err)
		return apology(msgTryAgain)
	}
	if len(records) == 0 {
		return Reply{
			Fragments: []fragment.Fragment{fragment.NewText(msgNoBookings)},
			FollowUp:  cancelUtterance,
		}
	}

	frags := make([]fragment.Fragment, 0, len(records)+len(result.Fragments))
	for _, r := range records {
		frags = append(frags, fragment.NewText(fmt.Sprintf(msgBookingSummary,
			datePart(r.BookingDate), r.RoomType, r.Token, r.NumberOfRooms, r.NumberOfDays)))
	}
	frags = append(frags, result.Fragments...)
	return Reply{Fragments: frags}
}

func (d *Dispatcher) confirmBooking(ctx context.Context, cmd Command, result *IntentResult) Reply {
	if cmd.Booking == nil {
		// Nothing to book without the collected details; the user gets no
		// reply, so make it visible to operators.
		d.logger.Warn("confirm_booking without confirm_room context",
			"sender_id", cmd.Sender,
			"contexts", len(result.Contexts),
		)
		d.observer.ObserveMissingContext(cmd.Action.String(), confirmRoomContext)
		return Reply{}
	}

	token, err := d.backend.CreateBooking(ctx, *cmd.Booking)
	if err != nil {
		d.logger.Warn("create booking failed", "sender_id", cmd.Booking.UserID, "error", err)
		if be, ok := booking.AsBackendError(err); ok &&
			(be.Status == http.StatusBadRequest || be.Status == http.StatusInternalServerError) {
			if msg, ok := be.Message(); ok {
				return textReply(msg)
			}
		}
		return apology(msgTryBookAgain)
	}

	frags := make([]fragment.Fragment, 0, len(result.Fragments)+1)
	frags = append(frags, result.Fragments...)
	frags = append(frags, fragment.NewText(fmt.Sprintf(msgBookingToken, token)))
	return Reply{Fragments: frags}
}

func (d *Dispatcher) bookingDetails(q *DetailsQuery, result *IntentResult) Reply {
	if q == nil || q.RoomType != "" {
		return Reply{Fragments: result.Fragments}
	}

	frags := make([]fragment.Fragment, len(result.Fragments))
	copy(frags, result.Fragments)
	for i, f := range frags {
		if f.FirstLine() == roomTypePrompt {
			frags[i] = fragment.NewQuickReplies(roomTypePrompt, roomTypes...)
			return Reply{Fragments: frags}
		}
	}
	return Reply{Fragments: result.Fragments}
}

func textReply(lines ...string) Reply {
	return Reply{Fragments: []fragment.Fragment{fragment.NewText(lines...)}}
}

// apology is the generic two-line failure reply, sent back to back.
func apology(second string) Reply {
	return textReply(msgErrorOccurred, second)
}

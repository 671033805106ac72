package conversation

import (
	"strings"
	"time"

	"github.com/wolfman30/messenger-booking-relay/internal/booking"
)

// Action is the closed set of NLU actions the relay knows how to handle.
type Action int

const (
	// ActionPassthrough covers every action without a dedicated handler:
	// the NLU fragments are delivered unchanged.
	ActionPassthrough Action = iota
	ActionCheckAvailability
	ActionCancelBooking
	ActionConfirmBooking
	ActionBookingDetails
)

var actionNames = map[string]Action{
	"check_availability": ActionCheckAvailability,
	"cancel_booking":     ActionCancelBooking,
	"confirm_booking":    ActionConfirmBooking,
	"booking_details":    ActionBookingDetails,
}

// ParseAction maps an NLU action name to an Action.
func ParseAction(name string) Action {
	if a, ok := actionNames[strings.TrimSpace(name)]; ok {
		return a
	}
	return ActionPassthrough
}

func (a Action) String() string {
	for name, v := range actionNames {
		if v == a {
			return name
		}
	}
	return "passthrough"
}

// Command is an action together with its decoded parameters. Exactly the
// field belonging to Action is populated; a nil field means the NLU did not
// supply the parameters that action needs.
type Command struct {
	Action Action
	Name   string
	Sender string

	Availability *AvailabilityQuery
	Cancellation *CancellationQuery
	Booking      *booking.Request
	Details      *DetailsQuery
}

// AvailabilityQuery is the check_availability parameter shape.
type AvailabilityQuery struct {
	// Date is YYYY-MM-DD, or "" when the NLU value was absent or not a date.
	Date string
}

// CancellationQuery is the cancel_booking parameter shape.
type CancellationQuery struct {
	Token   string
	Confirm string
}

// DetailsQuery is the booking_details parameter shape.
type DetailsQuery struct {
	RoomType string
}

// NewCommand decodes the parameters result carries for its action. sender
// is the channel user id, used as the booking owner.
func NewCommand(sender string, result *IntentResult) Command {
	cmd := Command{Action: ParseAction(result.Action), Name: result.Action, Sender: sender}

	switch cmd.Action {
	case ActionCheckAvailability:
		if result.Parameters != nil {
			date, _ := isoDate(result.Parameters.Text("Date"))
			cmd.Availability = &AvailabilityQuery{Date: date}
		}
	case ActionCancelBooking:
		if result.Parameters != nil {
			cmd.Cancellation = &CancellationQuery{
				Token:   strings.TrimSpace(result.Parameters.Text("bookingToken")),
				Confirm: strings.ToLower(strings.TrimSpace(result.Parameters.Text("confirmCancel"))),
			}
		}
	case ActionConfirmBooking:
		if c, ok := FindContext(result.Contexts, confirmRoomContext); ok {
			req := bookingRequestFromContext(sender, c)
			cmd.Booking = &req
		}
	case ActionBookingDetails:
		if result.Parameters != nil {
			cmd.Details = &DetailsQuery{RoomType: strings.TrimSpace(result.Parameters.Text("roomType"))}
		}
	}
	return cmd
}

const confirmRoomContext = "confirm_room"

func bookingRequestFromContext(sender string, c Context) booking.Request {
	p := c.Parameters
	return booking.Request{
		UserID:        sender,
		Age:           p.Text("age"),
		BookingDate:   datePart(p.Text("bookingDate")),
		Name:          p.Text("name"),
		AadhaarUID:    p.Text("aadhaarUID"),
		RoomType:      p.Text("roomType"),
		NumberOfDays:  p.Text("numberOfDays"),
		NumberOfRooms: p.Text("numberOfRooms"),
		Email:         p.Text("email"),
		Gender:        p.Text("gender"),
	}
}

// isoDate accepts "YYYY-MM-DD" optionally followed by a "T..." time part
// and returns the date portion.
func isoDate(value string) (string, bool) {
	value = strings.TrimSpace(value)
	if len(value) < 10 {
		return "", false
	}
	if len(value) > 10 && value[10] != 'T' {
		return "", false
	}
	if _, err := time.Parse("2006-01-02", value[:10]); err != nil {
		return "", false
	}
	return value[:10], true
}

// datePart drops the time component of an ISO timestamp.
func datePart(value string) string {
	if i := strings.Index(value, "T"); i >= 0 {
		return value[:i]
	}
	return value
}

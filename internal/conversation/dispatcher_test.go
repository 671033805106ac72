package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/messenger-booking-relay/internal/booking"
	"github.com/wolfman30/messenger-booking-relay/internal/fragment"
	"github.com/wolfman30/messenger-booking-relay/pkg/logging"
)

type fakeBackend struct {
	mu sync.Mutex

	availability booking.Availability
	availErr     error
	records      []booking.Record
	listErr      error
	token        string
	createErr    error
	cancelErr    error

	availDates []string
	listUsers  []string
	created    []booking.Request
	cancelled  []string
}

func (f *fakeBackend) CheckAvailability(_ context.Context, date string) (booking.Availability, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.availDates = append(f.availDates, date)
	return f.availability, f.availErr
}

func (f *fakeBackend) ListBookings(_ context.Context, userID string) ([]booking.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listUsers = append(f.listUsers, userID)
	return f.records, f.listErr
}

func (f *fakeBackend) CreateBooking(_ context.Context, req booking.Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, req)
	return f.token, f.createErr
}

func (f *fakeBackend) CancelBooking(_ context.Context, token string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, token)
	return f.cancelErr == nil, f.cancelErr
}

type recordingObserver struct {
	mu      sync.Mutex
	events  []string
	actions []string
	missing []string
	nlu     []string
}

func (o *recordingObserver) ObserveEvent(kind string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, kind)
}

func (o *recordingObserver) ObserveAction(action string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.actions = append(o.actions, action)
}

func (o *recordingObserver) ObserveMissingContext(action, context string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.missing = append(o.missing, action+"/"+context)
}

func (o *recordingObserver) ObserveNLU(status string, _ float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.nlu = append(o.nlu, status)
}

func newTestDispatcher(backend BookingBackend) (*Dispatcher, *recordingObserver) {
	obs := &recordingObserver{}
	return NewDispatcher(backend, logging.New("error"), obs), obs
}

func textLines(t *testing.T, frags []fragment.Fragment) [][]string {
	t.Helper()
	out := make([][]string, 0, len(frags))
	for _, f := range frags {
		require.Equal(t, fragment.KindText, f.Kind)
		out = append(out, f.Text.Lines)
	}
	return out
}

func TestRespond_Fallbacks(t *testing.T) {
	d, _ := newTestDispatcher(&fakeBackend{})
	ctx := context.Background()

	reply := d.Respond(ctx, "u1", &IntentResult{})
	assert.Equal(t, [][]string{{msgNotSure}}, textLines(t, reply.Fragments))

	reply = d.Respond(ctx, "u1", &IntentResult{FulfillmentText: "Hi there"})
	assert.Equal(t, [][]string{{"Hi there"}}, textLines(t, reply.Fragments))

	img := fragment.NewImage("https://x/y.png")
	reply = d.Respond(ctx, "u1", &IntentResult{Fragments: []fragment.Fragment{img}, FulfillmentText: "ignored"})
	assert.Equal(t, []fragment.Fragment{img}, reply.Fragments)

	reply = d.Respond(ctx, "u1", nil)
	assert.Equal(t, [][]string{{msgNotSure}}, textLines(t, reply.Fragments))
}

func TestDispatch_UnknownActionPassesThrough(t *testing.T) {
	backend := &fakeBackend{}
	d, obs := newTestDispatcher(backend)

	frags := []fragment.Fragment{fragment.NewText("Welcome!")}
	reply := d.Respond(context.Background(), "u1", &IntentResult{Action: "input.welcome", Fragments: frags})

	assert.Equal(t, frags, reply.Fragments)
	assert.Equal(t, []string{"passthrough"}, obs.actions)
	assert.Empty(t, backend.availDates)
}

func TestCheckAvailability_ListsRoomsInOrder(t *testing.T) {
	var avail booking.Availability
	require.NoError(t, json.Unmarshal([]byte(`{"Single":2,"Double":0}`), &avail))
	backend := &fakeBackend{availability: avail}
	d, obs := newTestDispatcher(backend)

	reply := d.Respond(context.Background(), "u1", &IntentResult{
		Action:     "check_availability",
		Parameters: Params{"Date": "2024-05-01T12:00:00+05:30"},
	})

	assert.Equal(t, []string{"2024-05-01"}, backend.availDates)
	assert.Equal(t, [][]string{
		{"Following is the availability of rooms on 2024-05-01"},
		{"Single: 2\nDouble: 0"},
	}, textLines(t, reply.Fragments))
	assert.Equal(t, []string{"check_availability"}, obs.actions)
}

func TestCheckAvailability_NoDateDeliversNLUFragments(t *testing.T) {
	backend := &fakeBackend{}
	d, _ := newTestDispatcher(backend)
	frags := []fragment.Fragment{fragment.NewText("Which date?")}

	for _, params := range []Params{nil, {"Date": ""}, {"Date": "tomorrow"}} {
		reply := d.Respond(context.Background(), "u1", &IntentResult{
			Action:     "check_availability",
			Parameters: params,
			Fragments:  frags,
		})
		assert.Equal(t, frags, reply.Fragments)
	}
	assert.Empty(t, backend.availDates)
}

func TestCheckAvailability_BackendFailure(t *testing.T) {
	backend := &fakeBackend{availErr: &booking.BackendError{Op: "check availability", Err: errors.New("dial tcp")}}
	d, _ := newTestDispatcher(backend)

	reply := d.Respond(context.Background(), "u1", &IntentResult{
		Action:     "check_availability",
		Parameters: Params{"Date": "2024-05-01"},
	})
	assert.Equal(t, [][]string{{msgErrorOccurred, msgTryAgain}}, textLines(t, reply.Fragments))
}

func TestCancelBooking_NoBookingsFollowsUp(t *testing.T) {
	backend := &fakeBackend{records: []booking.Record{}}
	d, _ := newTestDispatcher(backend)

	reply := d.Respond(context.Background(), "u1", &IntentResult{
		Action:     "cancel_booking",
		Parameters: Params{"bookingToken": "", "confirmCancel": ""},
	})

	assert.Equal(t, [][]string{{msgNoBookings}}, textLines(t, reply.Fragments))
	assert.Equal(t, "cancel", reply.FollowUp)
	assert.Equal(t, []string{"u1"}, backend.listUsers)
}

func TestCancelBooking_ListsBookingsThenPrompt(t *testing.T) {
	backend := &fakeBackend{records: []booking.Record{{
		Token:         "tok1",
		BookingDate:   "2024-06-01T00:00:00.000Z",
		RoomType:      "SingleRoom",
		NumberOfRooms: json.Number("1"),
		NumberOfDays:  json.Number("3"),
	}}}
	d, _ := newTestDispatcher(backend)
	prompt := fragment.NewText("Which booking token?")

	reply := d.Respond(context.Background(), "u1", &IntentResult{
		Action:     "cancel_booking",
		Parameters: Params{},
		Fragments:  []fragment.Fragment{prompt},
	})

	require.Len(t, reply.Fragments, 2)
	assert.Equal(t, "Booking Date: 2024-06-01\nRoomType : SingleRoom\nBooking Token: tok1\nNumber of Rooms: 1\nNumber of Days: 3",
		reply.Fragments[0].FirstLine())
	assert.Equal(t, prompt, reply.Fragments[1])
	assert.Empty(t, reply.FollowUp)
}

func TestCancelBooking_AsksForConfirmation(t *testing.T) {
	d, _ := newTestDispatcher(&fakeBackend{})

	reply := d.Respond(context.Background(), "u1", &IntentResult{
		Action:     "cancel_booking",
		Parameters: Params{"bookingToken": "tok1"},
		Fragments:  []fragment.Fragment{fragment.NewText("Do you really want to cancel?")},
	})

	require.Len(t, reply.Fragments, 1)
	qr := reply.Fragments[0]
	require.Equal(t, fragment.KindQuickReplies, qr.Kind)
	assert.Equal(t, "Do you really want to cancel?", qr.QuickReplies.Title)
	assert.Equal(t, []fragment.Option{{Title: "Yes", Payload: "yes"}, {Title: "No", Payload: "no"}}, qr.QuickReplies.Options)
}

func TestCancelBooking_Confirmed(t *testing.T) {
	backend := &fakeBackend{}
	d, _ := newTestDispatcher(backend)

	reply := d.Respond(context.Background(), "u1", &IntentResult{
		Action:     "cancel_booking",
		Parameters: Params{"bookingToken": "tok1", "confirmCancel": "Yes"},
	})

	assert.Equal(t, []string{"tok1"}, backend.cancelled)
	assert.Equal(t, [][]string{{msgCancelled}}, textLines(t, reply.Fragments))
}

func TestCancelBooking_Declined(t *testing.T) {
	backend := &fakeBackend{}
	d, _ := newTestDispatcher(backend)

	reply := d.Respond(context.Background(), "u1", &IntentResult{
		Action:     "cancel_booking",
		Parameters: Params{"bookingToken": "tok1", "confirmCancel": "no"},
	})

	assert.Empty(t, backend.cancelled)
	assert.Equal(t, [][]string{{msgNotCancelled}}, textLines(t, reply.Fragments))
}

func TestCancelBooking_Failures(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want [][]string
	}{
		{
			name: "rejected",
			err:  &booking.BackendError{Op: "cancel booking", Status: http.StatusNotFound, Body: "not found"},
			want: [][]string{{msgSomeError}},
		},
		{
			name: "unreachable",
			err:  &booking.BackendError{Op: "cancel booking", Err: errors.New("timeout")},
			want: [][]string{{msgErrorOccurred, msgTryAgain}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, _ := newTestDispatcher(&fakeBackend{cancelErr: tt.err})
			reply := d.Respond(context.Background(), "u1", &IntentResult{
				Action:     "cancel_booking",
				Parameters: Params{"bookingToken": "tok1", "confirmCancel": "yes"},
			})
			assert.Equal(t, tt.want, textLines(t, reply.Fragments))
		})
	}
}

func confirmRoomResult() *IntentResult {
	return &IntentResult{
		Action: "confirm_booking",
		Contexts: []Context{
			{Name: "projects/p/agent/sessions/s/contexts/other"},
			{
				Name: "projects/p/agent/sessions/s/contexts/confirm_room",
				Parameters: Params{
					"age":           float64(30),
					"bookingDate":   "2024-07-10T12:00:00+05:30",
					"name":          "Asha",
					"aadhaarUID":    float64(123456789012),
					"roomType":      "DoubleRoom",
					"numberOfDays":  float64(2),
					"numberOfRooms": float64(1),
					"email":         "asha@example.com",
					"gender":        "female",
				},
			},
		},
		Fragments: []fragment.Fragment{fragment.NewText("Your room is booked!")},
	}
}

func TestConfirmBooking_Success(t *testing.T) {
	backend := &fakeBackend{token: "abc123"}
	d, _ := newTestDispatcher(backend)

	reply := d.Respond(context.Background(), "u1", confirmRoomResult())

	require.Len(t, backend.created, 1)
	assert.Equal(t, booking.Request{
		UserID:        "u1",
		Age:           "30",
		BookingDate:   "2024-07-10",
		Name:          "Asha",
		AadhaarUID:    "123456789012",
		RoomType:      "DoubleRoom",
		NumberOfDays:  "2",
		NumberOfRooms: "1",
		Email:         "asha@example.com",
		Gender:        "female",
	}, backend.created[0])

	require.Len(t, reply.Fragments, 2)
	assert.Equal(t, "Your room is booked!", reply.Fragments[0].FirstLine())
	assert.Contains(t, reply.Fragments[1].FirstLine(), "abc123")
}

func TestConfirmBooking_BackendMessageShownVerbatim(t *testing.T) {
	backend := &fakeBackend{createErr: &booking.BackendError{
		Op: "create booking", Status: http.StatusBadRequest, Body: `"Rooms not available"`,
	}}
	d, _ := newTestDispatcher(backend)

	reply := d.Respond(context.Background(), "u1", confirmRoomResult())
	assert.Equal(t, [][]string{{"Rooms not available"}}, textLines(t, reply.Fragments))
}

func TestConfirmBooking_OtherFailuresApologize(t *testing.T) {
	for _, err := range []error{
		&booking.BackendError{Op: "create booking", Status: http.StatusBadGateway, Body: "bad gateway"},
		&booking.BackendError{Op: "create booking", Status: http.StatusBadRequest, Body: `{"error":"x"}`},
		&booking.BackendError{Op: "create booking", Err: errors.New("connection refused")},
	} {
		d, _ := newTestDispatcher(&fakeBackend{createErr: err})
		reply := d.Respond(context.Background(), "u1", confirmRoomResult())
		assert.Equal(t, [][]string{{msgErrorOccurred, msgTryBookAgain}}, textLines(t, reply.Fragments))
	}
}

func TestConfirmBooking_MissingContext(t *testing.T) {
	backend := &fakeBackend{token: "abc123"}
	d, obs := newTestDispatcher(backend)

	reply := d.Respond(context.Background(), "u1", &IntentResult{
		Action:    "confirm_booking",
		Fragments: []fragment.Fragment{fragment.NewText("Booked")},
	})

	assert.Empty(t, reply.Fragments)
	assert.Empty(t, backend.created)
	assert.Equal(t, []string{"confirm_booking/confirm_room"}, obs.missing)
}

func TestBookingDetails_OffersRoomTypes(t *testing.T) {
	d, _ := newTestDispatcher(&fakeBackend{})
	intro := fragment.NewText("Great, let's get you a room.")

	reply := d.Respond(context.Background(), "u1", &IntentResult{
		Action:     "booking_details",
		Parameters: Params{"roomType": ""},
		Fragments:  []fragment.Fragment{intro, fragment.NewText(roomTypePrompt)},
	})

	require.Len(t, reply.Fragments, 2)
	assert.Equal(t, intro, reply.Fragments[0])
	qr := reply.Fragments[1]
	require.Equal(t, fragment.KindQuickReplies, qr.Kind)
	assert.Equal(t, roomTypePrompt, qr.QuickReplies.Title)
	require.Len(t, qr.QuickReplies.Options, len(roomTypes))
	assert.Equal(t, fragment.Option{Title: "SingleRoom", Payload: "SingleRoom"}, qr.QuickReplies.Options[0])
}

func TestBookingDetails_OtherPromptsPassThrough(t *testing.T) {
	d, _ := newTestDispatcher(&fakeBackend{})
	frags := []fragment.Fragment{fragment.NewText("How many days?")}

	reply := d.Respond(context.Background(), "u1", &IntentResult{
		Action:     "booking_details",
		Parameters: Params{"roomType": "SingleRoom"},
		Fragments:  frags,
	})
	assert.Equal(t, frags, reply.Fragments)

	reply = d.Respond(context.Background(), "u1", &IntentResult{
		Action:     "booking_details",
		Parameters: Params{},
		Fragments:  frags,
	})
	assert.Equal(t, frags, reply.Fragments)
}

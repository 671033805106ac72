// Package booking is a client for the hotel booking backend that owns room
// availability and reservations.
package booking

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// RoomAvailability is the number of free rooms of one type.
type RoomAvailability struct {
	RoomType string
	Count    json.Number
}

// Availability lists free rooms per type in the order the backend sent them.
type Availability []RoomAvailability

// UnmarshalJSON decodes {"Single": 2, "Double": 0} keeping key order.
func (a *Availability) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("booking: availability must be an object, got %v", tok)
	}

	var out Availability
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)

		var value any
		if err := dec.Decode(&value); err != nil {
			return err
		}
		out = append(out, RoomAvailability{RoomType: key, Count: json.Number(fmt.Sprint(value))})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*a = out
	return nil
}

// Request is the body of POST /booking. Numeric fields travel as their
// decimal string form.
type Request struct {
	UserID        string `json:"userID"`
	Age           string `json:"age"`
	BookingDate   string `json:"bookingDate"`
	Name          string `json:"name"`
	AadhaarUID    string `json:"aadhaarUID"`
	RoomType      string `json:"roomType"`
	NumberOfDays  string `json:"numberOfDays"`
	NumberOfRooms string `json:"numberOfRooms"`
	Email         string `json:"email"`
	Gender        string `json:"gender"`
}

// Record is a booking as returned by GET /booking/info/id/:userId.
type Record struct {
	Token         string      `json:"token"`
	UserID        string      `json:"userID,omitempty"`
	Name          string      `json:"name,omitempty"`
	Email         string      `json:"email,omitempty"`
	BookingDate   string      `json:"bookingDate"`
	RoomType      string      `json:"roomType"`
	NumberOfRooms json.Number `json:"numberOfRooms"`
	NumberOfDays  json.Number `json:"numberOfDays"`
}

type createResponse struct {
	Token string `json:"token"`
}

package conversation

// User-facing canned replies.
const (
	msgNotSure            = "I'm not sure what you want. Can you be more specific?"
	msgErrorOccurred      = "Error has occurred"
	msgTryAgain           = "Sorry for your trouble, Please try again"
	msgTryBookAgain       = "Sorry for your trouble, Please try to book again"
	msgSomeError          = "Some error occurred. Please try again"
	msgNoBookings         = "You have no bookings"
	msgCancelled          = "Booking Cancelled Successfully"
	msgNotCancelled       = "Ok! Booking not cancelled. Enjoy your stay"
	msgAvailabilityHeader = "Following is the availability of rooms on %s"
	msgBookingToken       = "Here is your Booking Token for future reference. Please save it somewhere.\nBooking Token : %s"
	msgBookingSummary     = "Booking Date: %s\nRoomType : %s\nBooking Token: %s\nNumber of Rooms: %s\nNumber of Days: %s"
	msgConfirmCancel      = "Are you sure you want to cancel this booking?"
	msgAttachmentReceived = "Attachment received. Thank you."
	msgAuthenticated      = "Authentication successful"
	roomTypePrompt        = "Please choose your room type from the following"
	cancelUtterance       = "cancel"
)

// roomTypes are the quick reply options offered when the user has not
// picked a room type yet.
var roomTypes = []string{
	"SingleRoom",
	"DoubleRoom",
	"TripleRoom",
	"QwadRoom",
	"TwinRoom",
	"DeluxeRoom",
	"SuperDeluxeRoom",
	"StudioRoom",
	"ExecutiveSuiteRoom",
	"PresidentialSuiteRoom",
}

package application

import (
	"time"

	"github.com/example/room-booking/internal/booking"
)

// Principal represents the authenticated user invoking a service method.
type Principal struct {
	UserID  string
	IsAdmin bool
}

// RoomInput captures caller provided room fields.
type RoomInput struct {
	Name        string
	Capacity    int
	Amenities   []string
	Location    string
	Description *string
	IsActive    *bool
}

// Room represents a catalog entry for a physical meeting room.
type Room struct {
	ID          string
	Name        string
	Capacity    int
	Amenities   []string
	Location    string
	Description *string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CreateRoomParams wraps the data required to create a room.
type CreateRoomParams struct {
	Principal Principal
	Input     RoomInput
}

// UpdateRoomParams wraps the data required to update a room.
type UpdateRoomParams struct {
	Principal Principal
	RoomID    string
	Input     RoomInput
}

// RoomListFilter narrows room catalog listings.
type RoomListFilter struct {
	MinCapacity int
	Amenities   []string
	Location    string
	IsActive    *bool
}

// BookingInput captures caller provided booking fields. Date carries the
// calendar day; StartTime and EndTime are the absolute slot bounds.
type BookingInput struct {
	Date            time.Time
	StartTime       time.Time
	EndTime         time.Time
	Purpose         string
	PreferredRoomID *string
}

// Booking represents a persisted reservation.
type Booking struct {
	ID        string
	RoomID    string
	UserID    string
	Date      time.Time
	StartTime time.Time
	EndTime   time.Time
	Purpose   string
	Status    booking.Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreateBookingParams wraps the data required to create a booking.
type CreateBookingParams struct {
	Principal Principal
	Input     BookingInput
}

// CreateBookingResult pairs the persisted booking with the allocation outcome.
type CreateBookingResult struct {
	Booking          Booking
	WasPreferredRoom bool
}

// ReschedulePatch carries the optional field changes of a reschedule. Nil
// fields keep the booking's current value.
type ReschedulePatch struct {
	Date      *time.Time
	StartTime *time.Time
	EndTime   *time.Time
	Purpose   *string
}

// RescheduleBookingParams wraps the data required to reschedule a booking.
type RescheduleBookingParams struct {
	Principal Principal
	BookingID string
	Patch     ReschedulePatch
}

// MyBookingsRange selects the time slice of a user's own booking listing.
type MyBookingsRange string

const (
	// MyBookingsAll returns every non-cancelled booking of the user.
	MyBookingsAll MyBookingsRange = "all"
	// MyBookingsUpcoming returns bookings that have not started yet.
	MyBookingsUpcoming MyBookingsRange = "upcoming"
	// MyBookingsPast returns bookings that have already ended.
	MyBookingsPast MyBookingsRange = "past"
)

// ListMyBookingsParams wraps the data required to list a user's own bookings.
type ListMyBookingsParams struct {
	Principal Principal
	Range     MyBookingsRange
}

// ListBookingsParams wraps the cross-user booking listing used by the admin
// surface. Non-admin callers must scope the query by room or date.
type ListBookingsParams struct {
	Principal Principal
	Status    booking.Status
	RoomID    string
	DateFrom  *time.Time
	DateTo    *time.Time
}

// UserInput captures caller provided user attributes.
type UserInput struct {
	Email       string
	DisplayName string
	Password    string
	IsAdmin     bool
}

// User represents an account exposed by the application services.
type User struct {
	ID          string
	Email       string
	DisplayName string
	IsAdmin     bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// RegisterUserParams wraps the data required for public signup.
type RegisterUserParams struct {
	Input UserInput
}

// CreateUserParams wraps the data required for an admin to create a user.
type CreateUserParams struct {
	Principal Principal
	Input     UserInput
}

// Session represents an authenticated session issued to a user.
type Session struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
	RevokedAt *time.Time
}

// AuthenticateParams captures the data required to authenticate a user.
type AuthenticateParams struct {
	Email    string
	Password string
}

// AuthenticateResult captures the outcome of a successful authentication attempt.
type AuthenticateResult struct {
	User    User
	Session Session
}

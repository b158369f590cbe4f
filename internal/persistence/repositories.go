package persistence

import (
	"context"
	"time"
)

// UserRepository exposes CRUD operations for users.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) error
	UpdateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
}

// RoomFilter narrows room catalog queries.
type RoomFilter struct {
	MinCapacity int
	Amenities   []string
	Location    string
	IsActive    *bool
}

// RoomRepository exposes catalog operations for rooms. Deactivation is the
// only deletion; historical bookings keep resolving against inactive rooms.
type RoomRepository interface {
	CreateRoom(ctx context.Context, room Room) error
	UpdateRoom(ctx context.Context, room Room) error
	GetRoom(ctx context.Context, id string) (Room, error)
	ListRooms(ctx context.Context, filter RoomFilter) ([]Room, error)
	DeactivateRoom(ctx context.Context, id string) error
}

// BookingFilter narrows booking queries.
type BookingFilter struct {
	UserID           string
	RoomID           string
	Status           string
	StartsAfter      *time.Time
	StartsBefore     *time.Time
	EndsBefore       *time.Time
	ExcludeCancelled bool
}

// BookingRepository stores booking records and answers the room-scan used for
// conflict detection.
type BookingRepository interface {
	CreateBooking(ctx context.Context, booking Booking) error
	UpdateBooking(ctx context.Context, booking Booking) error
	GetBooking(ctx context.Context, id string) (Booking, error)
	// ListBookingsForRoom returns every non-cancelled booking for the room,
	// ordered by start time. This is the input to the overlap scan.
	ListBookingsForRoom(ctx context.Context, roomID string) ([]Booking, error)
	ListBookings(ctx context.Context, filter BookingFilter) ([]Booking, error)
}

// SessionRepository stores authentication session state.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, token string) (Session, error)
	RevokeSession(ctx context.Context, token string, revokedAt time.Time) (Session, error)
	DeleteExpiredSessions(ctx context.Context, reference time.Time) error
}

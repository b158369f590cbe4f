package persistence

import "time"

// User represents an account stored for authentication and booking ownership.
type User struct {
	ID           string
	Email        string
	DisplayName  string
	PasswordHash string
	IsAdmin      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Room represents a meeting room catalog entry. Rooms are never physically
// deleted; IsActive=false marks a soft-deleted room that existing bookings
// still resolve against.
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

// Booking represents a reservation of one room by one user for a half-open
// time slot [StartTime, EndTime).
type Booking struct {
	ID        string
	RoomID    string
	UserID    string
	Date      time.Time
	StartTime time.Time
	EndTime   time.Time
	Purpose   string
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Session represents an authentication session persisted for a user.
type Session struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
	RevokedAt *time.Time
}

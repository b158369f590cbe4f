package sqlite

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/example/room-booking/internal/persistence"
)

// Storage provides an in-memory implementation of every persistence
// repository. It backs the test harness and local runs that do not need a
// database file; semantics (ordering, uniqueness, soft delete) match the
// SQLite repositories.
type Storage struct {
	mu       sync.RWMutex
	users    map[string]persistence.User
	rooms    map[string]persistence.Room
	bookings map[string]persistence.Booking
	sessions map[string]persistence.Session
}

// OpenMemory returns a new in-memory Storage instance.
func OpenMemory() *Storage {
	return &Storage{
		users:    make(map[string]persistence.User),
		rooms:    make(map[string]persistence.Room),
		bookings: make(map[string]persistence.Booking),
		sessions: make(map[string]persistence.Session),
	}
}

// Close releases resources held by the storage. No-op for the in-memory
// implementation.
func (s *Storage) Close() error {
	return nil
}

// --- UserRepository implementation ---

// CreateUser stores a new user, enforcing email uniqueness.
func (s *Storage) CreateUser(ctx context.Context, user persistence.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; ok {
		return persistence.ErrDuplicate
	}
	if err := s.ensureUniqueEmailLocked(user.ID, user.Email); err != nil {
		return err
	}

	user.Email = strings.ToLower(user.Email)
	s.users[user.ID] = user
	return nil
}

// UpdateUser updates an existing user.
func (s *Storage) UpdateUser(ctx context.Context, user persistence.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; !ok {
		return persistence.ErrNotFound
	}
	if err := s.ensureUniqueEmailLocked(user.ID, user.Email); err != nil {
		return err
	}

	user.Email = strings.ToLower(user.Email)
	s.users[user.ID] = user
	return nil
}

// GetUser retrieves a user by ID.
func (s *Storage) GetUser(ctx context.Context, id string) (persistence.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return persistence.User{}, persistence.ErrNotFound
	}
	return user, nil
}

// GetUserByEmail retrieves a user by email, case-insensitively.
func (s *Storage) GetUserByEmail(ctx context.Context, email string) (persistence.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.users {
		if user.Email == email {
			return user, nil
		}
	}
	return persistence.User{}, persistence.ErrNotFound
}

// ListUsers returns all users ordered by display name then ID.
func (s *Storage) ListUsers(ctx context.Context) ([]persistence.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]persistence.User, 0, len(s.users))
	for _, user := range s.users {
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].DisplayName == users[j].DisplayName {
			return users[i].ID < users[j].ID
		}
		return users[i].DisplayName < users[j].DisplayName
	})
	return users, nil
}

func (s *Storage) ensureUniqueEmailLocked(id, email string) error {
	email = strings.ToLower(email)
	for _, existing := range s.users {
		if existing.ID != id && existing.Email == email {
			return persistence.ErrDuplicate
		}
	}
	return nil
}

// --- RoomRepository implementation ---

// CreateRoom stores a new room, enforcing name uniqueness and the capacity
// bounds the SQLite schema checks.
func (s *Storage) CreateRoom(ctx context.Context, room persistence.Room) error {
	if room.Capacity < 1 || room.Capacity > 1000 {
		return persistence.ErrConstraintViolation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rooms[room.ID]; ok {
		return persistence.ErrDuplicate
	}
	for _, existing := range s.rooms {
		if existing.Name == room.Name {
			return persistence.ErrDuplicate
		}
	}

	s.rooms[room.ID] = cloneRoom(room)
	return nil
}

// UpdateRoom updates an existing room.
func (s *Storage) UpdateRoom(ctx context.Context, room persistence.Room) error {
	if room.Capacity < 1 || room.Capacity > 1000 {
		return persistence.ErrConstraintViolation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rooms[room.ID]; !ok {
		return persistence.ErrNotFound
	}
	for _, existing := range s.rooms {
		if existing.ID != room.ID && existing.Name == room.Name {
			return persistence.ErrDuplicate
		}
	}

	s.rooms[room.ID] = cloneRoom(room)
	return nil
}

// GetRoom retrieves a room by ID, inactive rooms included.
func (s *Storage) GetRoom(ctx context.Context, id string) (persistence.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	room, ok := s.rooms[id]
	if !ok {
		return persistence.Room{}, persistence.ErrNotFound
	}
	return cloneRoom(room), nil
}

// ListRooms returns rooms matching the filter ordered by name then ID.
func (s *Storage) ListRooms(ctx context.Context, filter persistence.RoomFilter) ([]persistence.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rooms := make([]persistence.Room, 0, len(s.rooms))
	for _, room := range s.rooms {
		if !matchesRoomFilter(room, filter) {
			continue
		}
		rooms = append(rooms, cloneRoom(room))
	}
	sort.Slice(rooms, func(i, j int) bool {
		if rooms[i].Name == rooms[j].Name {
			return rooms[i].ID < rooms[j].ID
		}
		return rooms[i].Name < rooms[j].Name
	})
	return rooms, nil
}

// DeactivateRoom soft-deletes a room.
func (s *Storage) DeactivateRoom(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[id]
	if !ok {
		return persistence.ErrNotFound
	}
	room.IsActive = false
	room.UpdatedAt = time.Now().UTC()
	s.rooms[id] = room
	return nil
}

func matchesRoomFilter(room persistence.Room, filter persistence.RoomFilter) bool {
	if filter.MinCapacity > 0 && room.Capacity < filter.MinCapacity {
		return false
	}
	if filter.IsActive != nil && room.IsActive != *filter.IsActive {
		return false
	}
	if loc := strings.TrimSpace(filter.Location); loc != "" {
		if !strings.Contains(strings.ToLower(room.Location), strings.ToLower(loc)) {
			return false
		}
	}
	for _, wanted := range filter.Amenities {
		found := false
		for _, amenity := range room.Amenities {
			if amenity == wanted {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func cloneRoom(room persistence.Room) persistence.Room {
	out := room
	if room.Amenities != nil {
		out.Amenities = append([]string(nil), room.Amenities...)
	}
	if room.Description != nil {
		desc := *room.Description
		out.Description = &desc
	}
	return out
}

// --- BookingRepository implementation ---

// CreateBooking stores a new booking.
func (s *Storage) CreateBooking(ctx context.Context, booking persistence.Booking) error {
	if !booking.EndTime.After(booking.StartTime) {
		return persistence.ErrConstraintViolation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.bookings[booking.ID]; ok {
		return persistence.ErrDuplicate
	}
	if _, ok := s.rooms[booking.RoomID]; !ok {
		return persistence.ErrForeignKeyViolation
	}
	if _, ok := s.users[booking.UserID]; !ok {
		return persistence.ErrForeignKeyViolation
	}

	s.bookings[booking.ID] = booking
	return nil
}

// UpdateBooking replaces the mutable fields of an existing booking. Room and
// owner references are preserved from the stored record.
func (s *Storage) UpdateBooking(ctx context.Context, booking persistence.Booking) error {
	if !booking.EndTime.After(booking.StartTime) {
		return persistence.ErrConstraintViolation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.bookings[booking.ID]
	if !ok {
		return persistence.ErrNotFound
	}

	booking.RoomID = current.RoomID
	booking.UserID = current.UserID
	booking.CreatedAt = current.CreatedAt
	s.bookings[booking.ID] = booking
	return nil
}

// GetBooking retrieves a booking by ID.
func (s *Storage) GetBooking(ctx context.Context, id string) (persistence.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	booking, ok := s.bookings[id]
	if !ok {
		return persistence.Booking{}, persistence.ErrNotFound
	}
	return booking, nil
}

// ListBookingsForRoom returns the room's non-cancelled bookings ordered by
// start time.
func (s *Storage) ListBookingsForRoom(ctx context.Context, roomID string) ([]persistence.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var bookings []persistence.Booking
	for _, booking := range s.bookings {
		if booking.RoomID != roomID || booking.Status == "cancelled" {
			continue
		}
		bookings = append(bookings, booking)
	}
	sortBookings(bookings)
	return bookings, nil
}

// ListBookings returns bookings matching the filter ordered by start time.
func (s *Storage) ListBookings(ctx context.Context, filter persistence.BookingFilter) ([]persistence.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var bookings []persistence.Booking
	for _, booking := range s.bookings {
		if !matchesBookingFilter(booking, filter) {
			continue
		}
		bookings = append(bookings, booking)
	}
	sortBookings(bookings)
	return bookings, nil
}

func matchesBookingFilter(booking persistence.Booking, filter persistence.BookingFilter) bool {
	if filter.UserID != "" && booking.UserID != filter.UserID {
		return false
	}
	if filter.RoomID != "" && booking.RoomID != filter.RoomID {
		return false
	}
	if filter.Status != "" {
		if booking.Status != filter.Status {
			return false
		}
	} else if filter.ExcludeCancelled && booking.Status == "cancelled" {
		return false
	}
	if filter.StartsAfter != nil && booking.StartTime.Before(*filter.StartsAfter) {
		return false
	}
	if filter.StartsBefore != nil && booking.StartTime.After(*filter.StartsBefore) {
		return false
	}
	if filter.EndsBefore != nil && !booking.EndTime.Before(*filter.EndsBefore) {
		return false
	}
	return true
}

func sortBookings(bookings []persistence.Booking) {
	sort.Slice(bookings, func(i, j int) bool {
		if bookings[i].StartTime.Equal(bookings[j].StartTime) {
			return bookings[i].ID < bookings[j].ID
		}
		return bookings[i].StartTime.Before(bookings[j].StartTime)
	})
}

// --- SessionRepository implementation ---

// CreateSession stores a freshly issued session.
func (s *Storage) CreateSession(ctx context.Context, session persistence.Session) (persistence.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.sessions {
		if existing.Token == session.Token {
			return persistence.Session{}, persistence.ErrDuplicate
		}
	}
	s.sessions[session.ID] = cloneSession(session)
	return session, nil
}

// GetSession retrieves a session by token.
func (s *Storage) GetSession(ctx context.Context, token string) (persistence.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, session := range s.sessions {
		if session.Token == token {
			return cloneSession(session), nil
		}
	}
	return persistence.Session{}, persistence.ErrNotFound
}

// RevokeSession marks a session revoked.
func (s *Storage) RevokeSession(ctx context.Context, token string, revokedAt time.Time) (persistence.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, session := range s.sessions {
		if session.Token != token {
			continue
		}
		if session.RevokedAt != nil {
			return persistence.Session{}, persistence.ErrNotFound
		}
		at := revokedAt
		session.RevokedAt = &at
		session.UpdatedAt = revokedAt
		s.sessions[id] = session
		return cloneSession(session), nil
	}
	return persistence.Session{}, persistence.ErrNotFound
}

// DeleteExpiredSessions prunes sessions past their expiry.
func (s *Storage) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, session := range s.sessions {
		if !session.ExpiresAt.After(reference) {
			delete(s.sessions, id)
		}
	}
	return nil
}

func cloneSession(session persistence.Session) persistence.Session {
	out := session
	if session.RevokedAt != nil {
		at := *session.RevokedAt
		out.RevokedAt = &at
	}
	return out
}

package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/example/room-booking/internal/booking"
	"github.com/example/room-booking/internal/persistence"
)

// minAutoAssignCapacity is the capacity floor applied during auto-assignment.
// The request flow carries no attendee count, so every room with at least one
// seat is a candidate.
const minAutoAssignCapacity = 1

// BookingRepository captures the persistence interactions needed by the service.
type BookingRepository interface {
	CreateBooking(ctx context.Context, b Booking) (Booking, error)
	GetBooking(ctx context.Context, id string) (Booking, error)
	UpdateBooking(ctx context.Context, b Booking) (Booking, error)
	ListBookingsForRoom(ctx context.Context, roomID string) ([]Booking, error)
	ListBookings(ctx context.Context, filter BookingRepositoryFilter) ([]Booking, error)
}

// BookingRepositoryFilter narrows queries issued to the booking repository.
type BookingRepositoryFilter struct {
	UserID           string
	RoomID           string
	Status           booking.Status
	StartsAfter      *time.Time
	StartsBefore     *time.Time
	EndsBefore       *time.Time
	ExcludeCancelled bool
}

// RoomDirectory exposes the read-side room lookups the allocator needs.
type RoomDirectory interface {
	GetRoom(ctx context.Context, id string) (Room, error)
	// ListActiveRoomsWithCapacity returns active rooms with capacity >= n in
	// stable (name, id) order. The ordering is the allocation policy.
	ListActiveRoomsWithCapacity(ctx context.Context, minCapacity int) ([]Room, error)
}

// BookingService orchestrates booking creation, rescheduling, and
// cancellation. All conflict-check-then-commit sequences run under a per-room
// lock so concurrent requests cannot double-book a room.
type BookingService struct {
	bookings    BookingRepository
	rooms       RoomDirectory
	locks       *roomLockRegistry
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewBookingService wires dependencies for booking operations.
func NewBookingService(bookings BookingRepository, rooms RoomDirectory, idGenerator func() string, now func() time.Time) *BookingService {
	return NewBookingServiceWithLogger(bookings, rooms, idGenerator, now, nil)
}

// NewBookingServiceWithLogger constructs a booking service with a specified logger.
func NewBookingServiceWithLogger(bookings BookingRepository, rooms RoomDirectory, idGenerator func() string, now func() time.Time, logger *slog.Logger) *BookingService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &BookingService{
		bookings:    bookings,
		rooms:       rooms,
		locks:       newRoomLockRegistry(),
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *BookingService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "BookingService", operation, attrs...)
}

// CreateBooking validates the requested slot, assigns a room, and persists a
// confirmed booking. Validation order is fixed: interval ordering first, then
// the past check, then field validation, then allocation.
func (s *BookingService) CreateBooking(ctx context.Context, params CreateBookingParams) (result CreateBookingResult, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}

	input := params.Input
	logger := s.loggerWith(ctx, "CreateBooking",
		"principal_id", params.Principal.UserID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create booking", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With(
			"booking_id", result.Booking.ID,
			"room_id", result.Booking.RoomID,
			"was_preferred_room", result.WasPreferredRoom,
		).InfoContext(ctx, "booking created")
	}()

	var interval booking.Interval
	interval, err = booking.NewInterval(input.StartTime, input.EndTime)
	if err != nil {
		return
	}

	if interval.Start.Before(s.now()) {
		err = ErrBookingInPast
		return
	}

	purpose := strings.TrimSpace(input.Purpose)
	if vErr := validatePurpose(purpose); vErr.HasErrors() {
		err = vErr
		return
	}

	if s.bookings == nil || s.rooms == nil {
		err = fmt.Errorf("booking service not fully configured")
		return
	}

	createdAt := s.now()
	record := Booking{
		ID:        s.idGenerator(),
		UserID:    params.Principal.UserID,
		Date:      normalizeDate(input.Date, interval.Start),
		StartTime: interval.Start,
		EndTime:   interval.End,
		Purpose:   purpose,
		Status:    booking.StatusConfirmed,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}

	result, err = s.allocate(ctx, record, interval, input.PreferredRoomID)
	return
}

// allocate assigns a room to the booking record and persists it. The
// preferred room is tried first; otherwise active rooms are probed in stable
// order and the first free one wins. Each probe claims the room under its
// lock, so a "free" answer and the commit are a single atomic step.
func (s *BookingService) allocate(ctx context.Context, record Booking, interval booking.Interval, preferredRoomID *string) (CreateBookingResult, error) {
	preferred := ""
	if preferredRoomID != nil {
		preferred = strings.TrimSpace(*preferredRoomID)
	}

	var persisted *Booking

	claim := func(ctx context.Context, roomID string, iv booking.Interval) (bool, error) {
		var conflict bool
		err := s.locks.withRoom(roomID, func() error {
			existing, err := s.bookings.ListBookingsForRoom(ctx, roomID)
			if err != nil {
				return mapBookingRepoError(err)
			}
			if booking.HasConflict(toEntries(existing), iv, "") {
				conflict = true
				return nil
			}

			record.RoomID = roomID
			stored, err := s.bookings.CreateBooking(ctx, record)
			if err != nil {
				return mapBookingRepoError(err)
			}
			persisted = &stored
			return nil
		})
		return conflict, err
	}

	if preferred != "" {
		room, err := s.rooms.GetRoom(ctx, preferred)
		if err != nil {
			if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
				return CreateBookingResult{}, ErrRoomNotFound
			}
			return CreateBookingResult{}, err
		}
		if !room.IsActive {
			return CreateBookingResult{}, ErrRoomInactive
		}

		conflict, err := claim(ctx, room.ID, interval)
		if err != nil {
			return CreateBookingResult{}, err
		}
		if !conflict {
			return CreateBookingResult{Booking: *persisted, WasPreferredRoom: true}, nil
		}
	}

	candidates, err := s.rooms.ListActiveRoomsWithCapacity(ctx, minAutoAssignCapacity)
	if err != nil {
		return CreateBookingResult{}, err
	}

	roomIDs := make([]string, 0, len(candidates))
	for _, room := range candidates {
		if room.ID == preferred {
			continue
		}
		roomIDs = append(roomIDs, room.ID)
	}

	_, assigned, err := booking.FirstFit(ctx, roomIDs, interval, claim)
	if err != nil {
		return CreateBookingResult{}, err
	}
	if !assigned {
		return CreateBookingResult{}, &NoRoomAvailableError{PreferredRoomUnavailable: preferred != ""}
	}

	return CreateBookingResult{Booking: *persisted, WasPreferredRoom: false}, nil
}

// RescheduleBooking moves an existing booking to a new slot on its current
// room. The room is never reassigned; callers wanting a different room cancel
// and rebook.
func (s *BookingService) RescheduleBooking(ctx context.Context, params RescheduleBookingParams) (updated Booking, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}
	if s.bookings == nil {
		err = fmt.Errorf("booking repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "RescheduleBooking",
		"principal_id", params.Principal.UserID,
		"booking_id", params.BookingID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to reschedule booking", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("room_id", updated.RoomID).InfoContext(ctx, "booking rescheduled")
	}()

	var existing Booking
	existing, err = s.bookings.GetBooking(ctx, params.BookingID)
	if err != nil {
		err = mapBookingRepoError(err)
		return
	}

	if existing.UserID != params.Principal.UserID && !params.Principal.IsAdmin {
		err = ErrUnauthorized
		return
	}
	if existing.Status == booking.StatusCancelled {
		err = ErrCannotModifyCancelled
		return
	}

	candidate := existing
	patch := params.Patch
	if patch.Date != nil {
		candidate.Date = normalizeDate(*patch.Date, candidate.StartTime)
	}
	if patch.StartTime != nil {
		candidate.StartTime = *patch.StartTime
	}
	if patch.EndTime != nil {
		candidate.EndTime = *patch.EndTime
	}
	if patch.Purpose != nil {
		candidate.Purpose = strings.TrimSpace(*patch.Purpose)
	}

	var interval booking.Interval
	interval, err = booking.NewInterval(candidate.StartTime, candidate.EndTime)
	if err != nil {
		return
	}
	if interval.Start.Before(s.now()) {
		err = ErrBookingInPast
		return
	}
	if vErr := validatePurpose(candidate.Purpose); vErr.HasErrors() {
		err = vErr
		return
	}

	candidate.UpdatedAt = s.now()

	err = s.locks.withRoom(existing.RoomID, func() error {
		bookings, listErr := s.bookings.ListBookingsForRoom(ctx, existing.RoomID)
		if listErr != nil {
			return mapBookingRepoError(listErr)
		}
		if booking.HasConflict(toEntries(bookings), interval, existing.ID) {
			return ErrScheduleConflict
		}

		stored, updateErr := s.bookings.UpdateBooking(ctx, candidate)
		if updateErr != nil {
			return mapBookingRepoError(updateErr)
		}
		updated = stored
		return nil
	})
	return
}

// CancelBooking transitions a booking to cancelled. The transition is
// terminal and deliberately unconditional once authorization passes:
// cancelling an already-cancelled booking is a harmless no-op rather than an
// error, mirroring how reschedule treats the same state asymmetrically.
func (s *BookingService) CancelBooking(ctx context.Context, principal Principal, bookingID string) (cancelled Booking, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}
	if s.bookings == nil {
		err = fmt.Errorf("booking repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "CancelBooking",
		"principal_id", principal.UserID,
		"booking_id", bookingID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to cancel booking", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("room_id", cancelled.RoomID).InfoContext(ctx, "booking cancelled")
	}()

	var existing Booking
	existing, err = s.bookings.GetBooking(ctx, bookingID)
	if err != nil {
		err = mapBookingRepoError(err)
		return
	}

	if existing.UserID != principal.UserID && !principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	existing.Status = booking.StatusCancelled
	existing.UpdatedAt = s.now()

	cancelled, err = s.bookings.UpdateBooking(ctx, existing)
	if err != nil {
		err = mapBookingRepoError(err)
	}
	return
}

// GetBooking returns a single booking visible to the principal.
func (s *BookingService) GetBooking(ctx context.Context, principal Principal, bookingID string) (Booking, error) {
	if s == nil {
		return Booking{}, fmt.Errorf("BookingService is nil")
	}
	if s.bookings == nil {
		return Booking{}, fmt.Errorf("booking repository not configured")
	}

	stored, err := s.bookings.GetBooking(ctx, bookingID)
	if err != nil {
		return Booking{}, mapBookingRepoError(err)
	}
	if stored.UserID != principal.UserID && !principal.IsAdmin {
		return Booking{}, ErrUnauthorized
	}
	return stored, nil
}

// ListMyBookings returns the principal's non-cancelled bookings, newest slot
// first.
func (s *BookingService) ListMyBookings(ctx context.Context, params ListMyBookingsParams) ([]Booking, error) {
	if s == nil {
		return nil, fmt.Errorf("BookingService is nil")
	}
	if s.bookings == nil {
		return nil, nil
	}

	filter := BookingRepositoryFilter{
		UserID:           params.Principal.UserID,
		ExcludeCancelled: true,
	}

	now := s.now()
	switch params.Range {
	case MyBookingsUpcoming:
		filter.StartsAfter = &now
	case MyBookingsPast:
		filter.EndsBefore = &now
	}

	bookings, err := s.bookings.ListBookings(ctx, filter)
	if err != nil {
		return nil, mapBookingRepoError(err)
	}

	ordered := make([]Booking, len(bookings))
	copy(ordered, bookings)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].StartTime.Equal(ordered[j].StartTime) {
			return ordered[i].ID < ordered[j].ID
		}
		return ordered[i].StartTime.After(ordered[j].StartTime)
	})
	return ordered, nil
}

// ListBookings returns bookings across users. Administrators may query
// without constraints; other callers must scope by room or start date, the
// same restriction the original admin listing applies.
func (s *BookingService) ListBookings(ctx context.Context, params ListBookingsParams) ([]Booking, error) {
	if s == nil {
		return nil, fmt.Errorf("BookingService is nil")
	}
	if s.bookings == nil {
		return nil, nil
	}

	if !params.Principal.IsAdmin && params.RoomID == "" && params.DateFrom == nil {
		return nil, ErrUnauthorized
	}

	filter := BookingRepositoryFilter{
		RoomID: params.RoomID,
		Status: params.Status,
	}
	if params.Status == "" {
		filter.ExcludeCancelled = true
	}
	if params.DateFrom != nil {
		filter.StartsAfter = params.DateFrom
	}
	if params.DateTo != nil {
		endOfDay := endOfDay(*params.DateTo)
		filter.StartsBefore = &endOfDay
	}

	bookings, err := s.bookings.ListBookings(ctx, filter)
	if err != nil {
		return nil, mapBookingRepoError(err)
	}
	return bookings, nil
}

func toEntries(bookings []Booking) []booking.Entry {
	entries := make([]booking.Entry, 0, len(bookings))
	for _, b := range bookings {
		entries = append(entries, booking.Entry{
			ID:       b.ID,
			Interval: booking.Interval{Start: b.StartTime, End: b.EndTime},
			Status:   b.Status,
		})
	}
	return entries
}

func validatePurpose(purpose string) *ValidationError {
	vErr := &ValidationError{}
	if purpose == "" {
		vErr.add("purpose", "purpose is required")
	} else if len(purpose) > 500 {
		vErr.add("purpose", "purpose cannot exceed 500 characters")
	}
	return vErr
}

// normalizeDate truncates the booking date to local midnight. When no
// explicit date is supplied the slot's start day is used.
func normalizeDate(date time.Time, fallback time.Time) time.Time {
	if date.IsZero() {
		date = fallback
	}
	return time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
}

func mapBookingRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrDuplicate) {
		return ErrAlreadyExists
	}
	if errors.Is(err, persistence.ErrConstraintViolation) {
		return booking.ErrInvalidInterval
	}
	if errors.Is(err, persistence.ErrForeignKeyViolation) {
		vErr := &ValidationError{}
		vErr.add("references", "related records are missing")
		return vErr
	}
	return err
}

package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/example/room-booking/internal/booking"
)

var bookingTestNow = time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

type bookingStoreStub struct {
	mu       sync.Mutex
	bookings map[string]Booking

	createErr error
	listErr   error
}

func newBookingStoreStub(seed ...Booking) *bookingStoreStub {
	store := &bookingStoreStub{bookings: make(map[string]Booking)}
	for _, b := range seed {
		store.bookings[b.ID] = b
	}
	return store
}

func (s *bookingStoreStub) CreateBooking(ctx context.Context, b Booking) (Booking, error) {
	if s.createErr != nil {
		return Booking{}, s.createErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bookings[b.ID] = b
	return b, nil
}

func (s *bookingStoreStub) GetBooking(ctx context.Context, id string) (Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return Booking{}, ErrNotFound
	}
	return b, nil
}

func (s *bookingStoreStub) UpdateBooking(ctx context.Context, b Booking) (Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bookings[b.ID]; !ok {
		return Booking{}, ErrNotFound
	}
	s.bookings[b.ID] = b
	return b, nil
}

func (s *bookingStoreStub) ListBookingsForRoom(ctx context.Context, roomID string) ([]Booking, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Booking
	for _, b := range s.bookings {
		if b.RoomID == roomID && b.Status != booking.StatusCancelled {
			out = append(out, b)
		}
	}
	sortByStartAsc(out)
	return out, nil
}

func (s *bookingStoreStub) ListBookings(ctx context.Context, filter BookingRepositoryFilter) ([]Booking, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Booking
	for _, b := range s.bookings {
		if filter.UserID != "" && b.UserID != filter.UserID {
			continue
		}
		if filter.RoomID != "" && b.RoomID != filter.RoomID {
			continue
		}
		if filter.Status != "" {
			if b.Status != filter.Status {
				continue
			}
		} else if filter.ExcludeCancelled && b.Status == booking.StatusCancelled {
			continue
		}
		if filter.StartsAfter != nil && b.StartTime.Before(*filter.StartsAfter) {
			continue
		}
		if filter.StartsBefore != nil && b.StartTime.After(*filter.StartsBefore) {
			continue
		}
		if filter.EndsBefore != nil && !b.EndTime.Before(*filter.EndsBefore) {
			continue
		}
		out = append(out, b)
	}
	sortByStartAsc(out)
	return out, nil
}

func sortByStartAsc(bookings []Booking) {
	sort.Slice(bookings, func(i, j int) bool {
		if bookings[i].StartTime.Equal(bookings[j].StartTime) {
			return bookings[i].ID < bookings[j].ID
		}
		return bookings[i].StartTime.Before(bookings[j].StartTime)
	})
}

type roomDirectoryStub struct {
	rooms  []Room
	getErr error
}

func (r *roomDirectoryStub) GetRoom(ctx context.Context, id string) (Room, error) {
	if r.getErr != nil {
		return Room{}, r.getErr
	}
	for _, room := range r.rooms {
		if room.ID == id {
			return room, nil
		}
	}
	return Room{}, ErrNotFound
}

func (r *roomDirectoryStub) ListActiveRoomsWithCapacity(ctx context.Context, minCapacity int) ([]Room, error) {
	var out []Room
	for _, room := range r.rooms {
		if room.IsActive && room.Capacity >= minCapacity {
			out = append(out, room)
		}
	}
	return out, nil
}

func activeRoom(id, name string) Room {
	return Room{ID: id, Name: name, Capacity: 8, Location: "Floor 3", IsActive: true}
}

func slot(dayOffset, hour, durMinutes int) (time.Time, time.Time) {
	start := bookingTestNow.AddDate(0, 0, dayOffset).Truncate(24 * time.Hour).Add(time.Duration(hour) * time.Hour)
	return start, start.Add(time.Duration(durMinutes) * time.Minute)
}

func confirmedBooking(id, roomID, userID string, start, end time.Time) Booking {
	return Booking{
		ID:        id,
		RoomID:    roomID,
		UserID:    userID,
		Date:      time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location()),
		StartTime: start,
		EndTime:   end,
		Purpose:   "standup",
		Status:    booking.StatusConfirmed,
	}
}

func newBookingServiceForTest(store *bookingStoreStub, rooms *roomDirectoryStub) *BookingService {
	var seq atomic.Int64
	return NewBookingService(store, rooms,
		func() string { return fmt.Sprintf("bk-%d", seq.Add(1)) },
		func() time.Time { return bookingTestNow },
	)
}

func TestBookingService_CreateBooking(t *testing.T) {
	t.Run("rejects an inverted interval", func(t *testing.T) {
		svc := newBookingServiceForTest(newBookingStoreStub(), &roomDirectoryStub{})

		start, end := slot(1, 10, 60)
		_, err := svc.CreateBooking(context.Background(), CreateBookingParams{
			Principal: Principal{UserID: "user-1"},
			Input:     BookingInput{StartTime: end, EndTime: start, Purpose: "standup"},
		})

		if !errors.Is(err, booking.ErrInvalidInterval) {
			t.Fatalf("expected ErrInvalidInterval, got %v", err)
		}
	})

	t.Run("rejects slots in the past", func(t *testing.T) {
		svc := newBookingServiceForTest(newBookingStoreStub(), &roomDirectoryStub{})

		start, end := slot(-1, 10, 60)
		_, err := svc.CreateBooking(context.Background(), CreateBookingParams{
			Principal: Principal{UserID: "user-1"},
			Input:     BookingInput{StartTime: start, EndTime: end, Purpose: "standup"},
		})

		if !errors.Is(err, ErrBookingInPast) {
			t.Fatalf("expected ErrBookingInPast, got %v", err)
		}
	})

	t.Run("requires a purpose", func(t *testing.T) {
		svc := newBookingServiceForTest(newBookingStoreStub(), &roomDirectoryStub{})

		start, end := slot(1, 10, 60)
		_, err := svc.CreateBooking(context.Background(), CreateBookingParams{
			Principal: Principal{UserID: "user-1"},
			Input:     BookingInput{StartTime: start, EndTime: end, Purpose: "   "},
		})

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if _, ok := vErr.FieldErrors["purpose"]; !ok {
			t.Fatalf("expected purpose error, got %v", vErr.FieldErrors)
		}
	})

	t.Run("books the preferred room when it is free", func(t *testing.T) {
		store := newBookingStoreStub()
		rooms := &roomDirectoryStub{rooms: []Room{activeRoom("room-1", "Aurora"), activeRoom("room-2", "Borealis")}}
		svc := newBookingServiceForTest(store, rooms)

		preferred := "room-2"
		start, end := slot(1, 10, 60)
		result, err := svc.CreateBooking(context.Background(), CreateBookingParams{
			Principal: Principal{UserID: "user-1"},
			Input: BookingInput{
				StartTime:       start,
				EndTime:         end,
				Purpose:         "planning",
				PreferredRoomID: &preferred,
			},
		})
		if err != nil {
			t.Fatalf("CreateBooking returned error: %v", err)
		}

		if result.Booking.RoomID != "room-2" {
			t.Fatalf("expected preferred room, got %q", result.Booking.RoomID)
		}
		if !result.WasPreferredRoom {
			t.Fatal("expected WasPreferredRoom set")
		}
		if result.Booking.Status != booking.StatusConfirmed {
			t.Fatalf("expected confirmed status, got %q", result.Booking.Status)
		}
		wantDate := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
		if !result.Booking.Date.Equal(wantDate) {
			t.Fatalf("expected date %v, got %v", wantDate, result.Booking.Date)
		}
	})

	t.Run("rejects an unknown preferred room", func(t *testing.T) {
		rooms := &roomDirectoryStub{rooms: []Room{activeRoom("room-1", "Aurora")}}
		svc := newBookingServiceForTest(newBookingStoreStub(), rooms)

		preferred := "room-404"
		start, end := slot(1, 10, 60)
		_, err := svc.CreateBooking(context.Background(), CreateBookingParams{
			Principal: Principal{UserID: "user-1"},
			Input:     BookingInput{StartTime: start, EndTime: end, Purpose: "planning", PreferredRoomID: &preferred},
		})

		if !errors.Is(err, ErrRoomNotFound) {
			t.Fatalf("expected ErrRoomNotFound, got %v", err)
		}
	})

	t.Run("rejects an inactive preferred room", func(t *testing.T) {
		retired := activeRoom("room-1", "Aurora")
		retired.IsActive = false
		rooms := &roomDirectoryStub{rooms: []Room{retired}}
		svc := newBookingServiceForTest(newBookingStoreStub(), rooms)

		preferred := "room-1"
		start, end := slot(1, 10, 60)
		_, err := svc.CreateBooking(context.Background(), CreateBookingParams{
			Principal: Principal{UserID: "user-1"},
			Input:     BookingInput{StartTime: start, EndTime: end, Purpose: "planning", PreferredRoomID: &preferred},
		})

		if !errors.Is(err, ErrRoomInactive) {
			t.Fatalf("expected ErrRoomInactive, got %v", err)
		}
	})

	t.Run("falls back to the first free room when the preferred room is busy", func(t *testing.T) {
		start, end := slot(1, 10, 60)
		store := newBookingStoreStub(confirmedBooking("bk-existing", "room-1", "user-2", start, end))
		rooms := &roomDirectoryStub{rooms: []Room{activeRoom("room-1", "Aurora"), activeRoom("room-2", "Borealis")}}
		svc := newBookingServiceForTest(store, rooms)

		preferred := "room-1"
		result, err := svc.CreateBooking(context.Background(), CreateBookingParams{
			Principal: Principal{UserID: "user-1"},
			Input:     BookingInput{StartTime: start, EndTime: end, Purpose: "planning", PreferredRoomID: &preferred},
		})
		if err != nil {
			t.Fatalf("CreateBooking returned error: %v", err)
		}

		if result.Booking.RoomID != "room-2" {
			t.Fatalf("expected fallback to room-2, got %q", result.Booking.RoomID)
		}
		if result.WasPreferredRoom {
			t.Fatal("expected WasPreferredRoom unset after fallback")
		}
	})

	t.Run("probes rooms in order until one is free", func(t *testing.T) {
		start, end := slot(1, 10, 60)
		store := newBookingStoreStub(
			confirmedBooking("bk-a", "room-1", "user-2", start, end),
			confirmedBooking("bk-b", "room-2", "user-3", start, end),
		)
		rooms := &roomDirectoryStub{rooms: []Room{
			activeRoom("room-1", "Aurora"),
			activeRoom("room-2", "Borealis"),
			activeRoom("room-3", "Corona"),
		}}
		svc := newBookingServiceForTest(store, rooms)

		result, err := svc.CreateBooking(context.Background(), CreateBookingParams{
			Principal: Principal{UserID: "user-1"},
			Input:     BookingInput{StartTime: start, EndTime: end, Purpose: "planning"},
		})
		if err != nil {
			t.Fatalf("CreateBooking returned error: %v", err)
		}
		if result.Booking.RoomID != "room-3" {
			t.Fatalf("expected room-3, got %q", result.Booking.RoomID)
		}
	})

	t.Run("cancelled bookings do not block a slot", func(t *testing.T) {
		start, end := slot(1, 10, 60)
		blocked := confirmedBooking("bk-a", "room-1", "user-2", start, end)
		blocked.Status = booking.StatusCancelled
		store := newBookingStoreStub(blocked)
		rooms := &roomDirectoryStub{rooms: []Room{activeRoom("room-1", "Aurora")}}
		svc := newBookingServiceForTest(store, rooms)

		result, err := svc.CreateBooking(context.Background(), CreateBookingParams{
			Principal: Principal{UserID: "user-1"},
			Input:     BookingInput{StartTime: start, EndTime: end, Purpose: "planning"},
		})
		if err != nil {
			t.Fatalf("CreateBooking returned error: %v", err)
		}
		if result.Booking.RoomID != "room-1" {
			t.Fatalf("expected room-1, got %q", result.Booking.RoomID)
		}
	})

	t.Run("allows back-to-back bookings", func(t *testing.T) {
		start, end := slot(1, 10, 60)
		store := newBookingStoreStub(confirmedBooking("bk-a", "room-1", "user-2", start, end))
		rooms := &roomDirectoryStub{rooms: []Room{activeRoom("room-1", "Aurora")}}
		svc := newBookingServiceForTest(store, rooms)

		result, err := svc.CreateBooking(context.Background(), CreateBookingParams{
			Principal: Principal{UserID: "user-1"},
			Input:     BookingInput{StartTime: end, EndTime: end.Add(time.Hour), Purpose: "retro"},
		})
		if err != nil {
			t.Fatalf("CreateBooking returned error: %v", err)
		}
		if result.Booking.RoomID != "room-1" {
			t.Fatalf("expected room-1, got %q", result.Booking.RoomID)
		}
	})

	t.Run("reports exhaustion with the preferred flag set", func(t *testing.T) {
		start, end := slot(1, 10, 60)
		store := newBookingStoreStub(confirmedBooking("bk-a", "room-1", "user-2", start, end))
		rooms := &roomDirectoryStub{rooms: []Room{activeRoom("room-1", "Aurora")}}
		svc := newBookingServiceForTest(store, rooms)

		preferred := "room-1"
		_, err := svc.CreateBooking(context.Background(), CreateBookingParams{
			Principal: Principal{UserID: "user-1"},
			Input:     BookingInput{StartTime: start, EndTime: end, Purpose: "planning", PreferredRoomID: &preferred},
		})

		if !errors.Is(err, ErrNoRoomAvailable) {
			t.Fatalf("expected ErrNoRoomAvailable, got %v", err)
		}
		var noRoom *NoRoomAvailableError
		if !errors.As(err, &noRoom) {
			t.Fatalf("expected NoRoomAvailableError, got %v", err)
		}
		if !noRoom.PreferredRoomUnavailable {
			t.Fatal("expected PreferredRoomUnavailable set")
		}
	})

	t.Run("never double-books a room under concurrent requests", func(t *testing.T) {
		store := newBookingStoreStub()
		rooms := &roomDirectoryStub{rooms: []Room{activeRoom("room-1", "Aurora")}}
		svc := newBookingServiceForTest(store, rooms)

		start, end := slot(1, 10, 60)
		const attempts = 8

		var wg sync.WaitGroup
		errs := make([]error, attempts)
		for i := 0; i < attempts; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, err := svc.CreateBooking(context.Background(), CreateBookingParams{
					Principal: Principal{UserID: fmt.Sprintf("user-%d", i)},
					Input:     BookingInput{StartTime: start, EndTime: end, Purpose: "all hands"},
				})
				errs[i] = err
			}(i)
		}
		wg.Wait()

		successes := 0
		for _, err := range errs {
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrNoRoomAvailable):
			default:
				t.Fatalf("unexpected error: %v", err)
			}
		}
		if successes != 1 {
			t.Fatalf("expected exactly one booking to win, got %d", successes)
		}
		if len(store.bookings) != 1 {
			t.Fatalf("expected a single persisted booking, got %d", len(store.bookings))
		}
	})
}

func TestBookingService_RescheduleBooking(t *testing.T) {
	start, end := slot(1, 10, 60)

	t.Run("only the owner or an admin may reschedule", func(t *testing.T) {
		store := newBookingStoreStub(confirmedBooking("bk-1", "room-1", "user-1", start, end))
		svc := newBookingServiceForTest(store, &roomDirectoryStub{})

		newStart, newEnd := slot(2, 10, 60)
		_, err := svc.RescheduleBooking(context.Background(), RescheduleBookingParams{
			Principal: Principal{UserID: "user-2"},
			BookingID: "bk-1",
			Patch:     ReschedulePatch{StartTime: &newStart, EndTime: &newEnd},
		})
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}

		_, err = svc.RescheduleBooking(context.Background(), RescheduleBookingParams{
			Principal: Principal{UserID: "user-2", IsAdmin: true},
			BookingID: "bk-1",
			Patch:     ReschedulePatch{StartTime: &newStart, EndTime: &newEnd},
		})
		if err != nil {
			t.Fatalf("expected admin reschedule to succeed, got %v", err)
		}
	})

	t.Run("rejects cancelled bookings", func(t *testing.T) {
		cancelled := confirmedBooking("bk-1", "room-1", "user-1", start, end)
		cancelled.Status = booking.StatusCancelled
		store := newBookingStoreStub(cancelled)
		svc := newBookingServiceForTest(store, &roomDirectoryStub{})

		newStart, newEnd := slot(2, 10, 60)
		_, err := svc.RescheduleBooking(context.Background(), RescheduleBookingParams{
			Principal: Principal{UserID: "user-1"},
			BookingID: "bk-1",
			Patch:     ReschedulePatch{StartTime: &newStart, EndTime: &newEnd},
		})
		if !errors.Is(err, ErrCannotModifyCancelled) {
			t.Fatalf("expected ErrCannotModifyCancelled, got %v", err)
		}
	})

	t.Run("detects conflicts on the same room", func(t *testing.T) {
		otherStart, otherEnd := slot(2, 10, 60)
		store := newBookingStoreStub(
			confirmedBooking("bk-1", "room-1", "user-1", start, end),
			confirmedBooking("bk-2", "room-1", "user-2", otherStart, otherEnd),
		)
		svc := newBookingServiceForTest(store, &roomDirectoryStub{})

		_, err := svc.RescheduleBooking(context.Background(), RescheduleBookingParams{
			Principal: Principal{UserID: "user-1"},
			BookingID: "bk-1",
			Patch:     ReschedulePatch{StartTime: &otherStart, EndTime: &otherEnd},
		})
		if !errors.Is(err, ErrScheduleConflict) {
			t.Fatalf("expected ErrScheduleConflict, got %v", err)
		}
	})

	t.Run("does not conflict with its own current slot", func(t *testing.T) {
		store := newBookingStoreStub(confirmedBooking("bk-1", "room-1", "user-1", start, end))
		svc := newBookingServiceForTest(store, &roomDirectoryStub{})

		shifted := start.Add(30 * time.Minute)
		shiftedEnd := end.Add(30 * time.Minute)
		updated, err := svc.RescheduleBooking(context.Background(), RescheduleBookingParams{
			Principal: Principal{UserID: "user-1"},
			BookingID: "bk-1",
			Patch:     ReschedulePatch{StartTime: &shifted, EndTime: &shiftedEnd},
		})
		if err != nil {
			t.Fatalf("RescheduleBooking returned error: %v", err)
		}
		if !updated.StartTime.Equal(shifted) {
			t.Fatalf("expected shifted start, got %v", updated.StartTime)
		}
	})

	t.Run("carries forward unpatched fields and keeps the room", func(t *testing.T) {
		store := newBookingStoreStub(confirmedBooking("bk-1", "room-1", "user-1", start, end))
		svc := newBookingServiceForTest(store, &roomDirectoryStub{})

		purpose := "quarterly review"
		updated, err := svc.RescheduleBooking(context.Background(), RescheduleBookingParams{
			Principal: Principal{UserID: "user-1"},
			BookingID: "bk-1",
			Patch:     ReschedulePatch{Purpose: &purpose},
		})
		if err != nil {
			t.Fatalf("RescheduleBooking returned error: %v", err)
		}

		if updated.RoomID != "room-1" {
			t.Fatalf("expected room preserved, got %q", updated.RoomID)
		}
		if !updated.StartTime.Equal(start) || !updated.EndTime.Equal(end) {
			t.Fatalf("expected slot carried forward, got %v-%v", updated.StartTime, updated.EndTime)
		}
		if updated.Purpose != purpose {
			t.Fatalf("expected patched purpose, got %q", updated.Purpose)
		}
		if updated.Status != booking.StatusConfirmed {
			t.Fatalf("expected status untouched, got %q", updated.Status)
		}
	})

	t.Run("rejects moves into the past", func(t *testing.T) {
		store := newBookingStoreStub(confirmedBooking("bk-1", "room-1", "user-1", start, end))
		svc := newBookingServiceForTest(store, &roomDirectoryStub{})

		pastStart, pastEnd := slot(-2, 10, 60)
		_, err := svc.RescheduleBooking(context.Background(), RescheduleBookingParams{
			Principal: Principal{UserID: "user-1"},
			BookingID: "bk-1",
			Patch:     ReschedulePatch{StartTime: &pastStart, EndTime: &pastEnd},
		})
		if !errors.Is(err, ErrBookingInPast) {
			t.Fatalf("expected ErrBookingInPast, got %v", err)
		}
	})

	t.Run("reports unknown bookings", func(t *testing.T) {
		svc := newBookingServiceForTest(newBookingStoreStub(), &roomDirectoryStub{})

		_, err := svc.RescheduleBooking(context.Background(), RescheduleBookingParams{
			Principal: Principal{UserID: "user-1"},
			BookingID: "bk-404",
		})
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestBookingService_CancelBooking(t *testing.T) {
	start, end := slot(1, 10, 60)

	t.Run("only the owner or an admin may cancel", func(t *testing.T) {
		store := newBookingStoreStub(confirmedBooking("bk-1", "room-1", "user-1", start, end))
		svc := newBookingServiceForTest(store, &roomDirectoryStub{})

		_, err := svc.CancelBooking(context.Background(), Principal{UserID: "user-2"}, "bk-1")
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("marks the booking cancelled", func(t *testing.T) {
		store := newBookingStoreStub(confirmedBooking("bk-1", "room-1", "user-1", start, end))
		svc := newBookingServiceForTest(store, &roomDirectoryStub{})

		cancelled, err := svc.CancelBooking(context.Background(), Principal{UserID: "user-1"}, "bk-1")
		if err != nil {
			t.Fatalf("CancelBooking returned error: %v", err)
		}
		if cancelled.Status != booking.StatusCancelled {
			t.Fatalf("expected cancelled status, got %q", cancelled.Status)
		}
	})

	t.Run("cancelling twice is a no-op", func(t *testing.T) {
		store := newBookingStoreStub(confirmedBooking("bk-1", "room-1", "user-1", start, end))
		svc := newBookingServiceForTest(store, &roomDirectoryStub{})

		if _, err := svc.CancelBooking(context.Background(), Principal{UserID: "user-1"}, "bk-1"); err != nil {
			t.Fatalf("first cancel returned error: %v", err)
		}
		if _, err := svc.CancelBooking(context.Background(), Principal{UserID: "user-1"}, "bk-1"); err != nil {
			t.Fatalf("second cancel returned error: %v", err)
		}
	})

	t.Run("reports unknown bookings", func(t *testing.T) {
		svc := newBookingServiceForTest(newBookingStoreStub(), &roomDirectoryStub{})

		_, err := svc.CancelBooking(context.Background(), Principal{UserID: "user-1"}, "bk-404")
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestBookingService_GetBooking(t *testing.T) {
	start, end := slot(1, 10, 60)
	store := newBookingStoreStub(confirmedBooking("bk-1", "room-1", "user-1", start, end))
	svc := newBookingServiceForTest(store, &roomDirectoryStub{})

	t.Run("owner may read", func(t *testing.T) {
		if _, err := svc.GetBooking(context.Background(), Principal{UserID: "user-1"}, "bk-1"); err != nil {
			t.Fatalf("GetBooking returned error: %v", err)
		}
	})

	t.Run("admin may read", func(t *testing.T) {
		if _, err := svc.GetBooking(context.Background(), Principal{UserID: "user-9", IsAdmin: true}, "bk-1"); err != nil {
			t.Fatalf("GetBooking returned error: %v", err)
		}
	})

	t.Run("strangers may not read", func(t *testing.T) {
		_, err := svc.GetBooking(context.Background(), Principal{UserID: "user-2"}, "bk-1")
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})
}

func TestBookingService_ListMyBookings(t *testing.T) {
	pastStart, pastEnd := slot(-3, 10, 60)
	soonStart, soonEnd := slot(1, 10, 60)
	laterStart, laterEnd := slot(5, 10, 60)

	cancelledBooking := confirmedBooking("bk-cancelled", "room-1", "user-1", slotStart(2), slotStart(2).Add(time.Hour))
	cancelledBooking.Status = booking.StatusCancelled

	store := newBookingStoreStub(
		confirmedBooking("bk-past", "room-1", "user-1", pastStart, pastEnd),
		confirmedBooking("bk-soon", "room-1", "user-1", soonStart, soonEnd),
		confirmedBooking("bk-later", "room-2", "user-1", laterStart, laterEnd),
		confirmedBooking("bk-other", "room-1", "user-2", soonStart, soonEnd),
		cancelledBooking,
	)
	svc := newBookingServiceForTest(store, &roomDirectoryStub{})

	t.Run("returns own non-cancelled bookings newest first", func(t *testing.T) {
		bookings, err := svc.ListMyBookings(context.Background(), ListMyBookingsParams{
			Principal: Principal{UserID: "user-1"},
			Range:     MyBookingsAll,
		})
		if err != nil {
			t.Fatalf("ListMyBookings returned error: %v", err)
		}

		ids := bookingIDs(bookings)
		want := []string{"bk-later", "bk-soon", "bk-past"}
		if !equalStrings(ids, want) {
			t.Fatalf("expected %v, got %v", want, ids)
		}
	})

	t.Run("upcoming excludes past slots", func(t *testing.T) {
		bookings, err := svc.ListMyBookings(context.Background(), ListMyBookingsParams{
			Principal: Principal{UserID: "user-1"},
			Range:     MyBookingsUpcoming,
		})
		if err != nil {
			t.Fatalf("ListMyBookings returned error: %v", err)
		}
		if !equalStrings(bookingIDs(bookings), []string{"bk-later", "bk-soon"}) {
			t.Fatalf("unexpected upcoming set: %v", bookingIDs(bookings))
		}
	})

	t.Run("past excludes upcoming slots", func(t *testing.T) {
		bookings, err := svc.ListMyBookings(context.Background(), ListMyBookingsParams{
			Principal: Principal{UserID: "user-1"},
			Range:     MyBookingsPast,
		})
		if err != nil {
			t.Fatalf("ListMyBookings returned error: %v", err)
		}
		if !equalStrings(bookingIDs(bookings), []string{"bk-past"}) {
			t.Fatalf("unexpected past set: %v", bookingIDs(bookings))
		}
	})
}

func TestBookingService_ListBookings(t *testing.T) {
	soonStart, soonEnd := slot(1, 10, 60)
	laterStart, laterEnd := slot(5, 10, 60)

	cancelledBooking := confirmedBooking("bk-cancelled", "room-1", "user-2", soonStart.Add(2*time.Hour), soonEnd.Add(2*time.Hour))
	cancelledBooking.Status = booking.StatusCancelled

	store := newBookingStoreStub(
		confirmedBooking("bk-soon", "room-1", "user-1", soonStart, soonEnd),
		confirmedBooking("bk-later", "room-2", "user-2", laterStart, laterEnd),
		cancelledBooking,
	)
	svc := newBookingServiceForTest(store, &roomDirectoryStub{})

	t.Run("non-admins must scope the query", func(t *testing.T) {
		_, err := svc.ListBookings(context.Background(), ListBookingsParams{
			Principal: Principal{UserID: "user-1"},
		})
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("non-admins may query a specific room", func(t *testing.T) {
		bookings, err := svc.ListBookings(context.Background(), ListBookingsParams{
			Principal: Principal{UserID: "user-1"},
			RoomID:    "room-1",
		})
		if err != nil {
			t.Fatalf("ListBookings returned error: %v", err)
		}
		if !equalStrings(bookingIDs(bookings), []string{"bk-soon"}) {
			t.Fatalf("unexpected room listing: %v", bookingIDs(bookings))
		}
	})

	t.Run("admins see everything except cancelled by default", func(t *testing.T) {
		bookings, err := svc.ListBookings(context.Background(), ListBookingsParams{
			Principal: Principal{UserID: "admin-1", IsAdmin: true},
		})
		if err != nil {
			t.Fatalf("ListBookings returned error: %v", err)
		}
		if !equalStrings(bookingIDs(bookings), []string{"bk-soon", "bk-later"}) {
			t.Fatalf("unexpected admin listing: %v", bookingIDs(bookings))
		}
	})

	t.Run("an explicit status filter includes cancelled bookings", func(t *testing.T) {
		bookings, err := svc.ListBookings(context.Background(), ListBookingsParams{
			Principal: Principal{UserID: "admin-1", IsAdmin: true},
			Status:    booking.StatusCancelled,
		})
		if err != nil {
			t.Fatalf("ListBookings returned error: %v", err)
		}
		if !equalStrings(bookingIDs(bookings), []string{"bk-cancelled"}) {
			t.Fatalf("unexpected status listing: %v", bookingIDs(bookings))
		}
	})

	t.Run("a date range bounds the listing", func(t *testing.T) {
		from := soonStart.AddDate(0, 0, -1)
		to := soonStart
		bookings, err := svc.ListBookings(context.Background(), ListBookingsParams{
			Principal: Principal{UserID: "admin-1", IsAdmin: true},
			DateFrom:  &from,
			DateTo:    &to,
		})
		if err != nil {
			t.Fatalf("ListBookings returned error: %v", err)
		}
		if !equalStrings(bookingIDs(bookings), []string{"bk-soon"}) {
			t.Fatalf("unexpected ranged listing: %v", bookingIDs(bookings))
		}
	})
}

func slotStart(dayOffset int) time.Time {
	start, _ := slot(dayOffset, 10, 60)
	return start
}

func bookingIDs(bookings []Booking) []string {
	ids := make([]string, 0, len(bookings))
	for _, b := range bookings {
		ids = append(ids, b.ID)
	}
	return ids
}

func equalStrings(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/example/room-booking/internal/persistence"
)

// BookingRepository implements persistence.BookingRepository using SQLite.
type BookingRepository struct {
	pool  *ConnectionPool
	retry RetryConfig
}

// NewBookingRepository creates a new SQLite booking repository.
func NewBookingRepository(pool *ConnectionPool) *BookingRepository {
	return &BookingRepository{pool: pool, retry: DefaultRetryConfig()}
}

// CreateBooking inserts a new booking. Writes are retried on transient lock
// contention; constraint failures surface immediately.
func (r *BookingRepository) CreateBooking(ctx context.Context, booking persistence.Booking) error {
	if booking.ID == "" {
		return persistence.ErrConstraintViolation
	}
	if !booking.EndTime.After(booking.StartTime) {
		return persistence.ErrConstraintViolation
	}

	query := `
		INSERT INTO bookings (id, room_id, user_id, date, start_time, end_time, purpose, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	return withRetry(ctx, r.retry, func() error {
		_, err := r.pool.db.ExecContext(ctx, query,
			booking.ID,
			booking.RoomID,
			booking.UserID,
			booking.Date.UTC().Format(time.RFC3339),
			booking.StartTime.UTC().Format(time.RFC3339),
			booking.EndTime.UTC().Format(time.RFC3339),
			booking.Purpose,
			booking.Status,
			booking.CreatedAt.UTC().Format(time.RFC3339),
			booking.UpdatedAt.UTC().Format(time.RFC3339),
		)
		return err
	})
}

// UpdateBooking replaces the mutable fields of an existing booking. The room
// and owner references are deliberately not updatable.
func (r *BookingRepository) UpdateBooking(ctx context.Context, booking persistence.Booking) error {
	if booking.ID == "" {
		return persistence.ErrNotFound
	}
	if !booking.EndTime.After(booking.StartTime) {
		return persistence.ErrConstraintViolation
	}

	query := `
		UPDATE bookings
		SET date = ?, start_time = ?, end_time = ?, purpose = ?, status = ?, updated_at = ?
		WHERE id = ?
	`

	return withRetry(ctx, r.retry, func() error {
		result, err := r.pool.db.ExecContext(ctx, query,
			booking.Date.UTC().Format(time.RFC3339),
			booking.StartTime.UTC().Format(time.RFC3339),
			booking.EndTime.UTC().Format(time.RFC3339),
			booking.Purpose,
			booking.Status,
			booking.UpdatedAt.UTC().Format(time.RFC3339),
			booking.ID,
		)
		if err != nil {
			return err
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if affected == 0 {
			return persistence.ErrNotFound
		}
		return nil
	})
}

// GetBooking retrieves a booking by ID.
func (r *BookingRepository) GetBooking(ctx context.Context, id string) (persistence.Booking, error) {
	if id == "" {
		return persistence.Booking{}, persistence.ErrNotFound
	}

	query := bookingSelect + " WHERE id = ?"
	return scanBooking(r.pool.db.QueryRowContext(ctx, query, id))
}

// ListBookingsForRoom returns the room's non-cancelled bookings ordered by
// start time. Conflict detection scans exactly this set.
func (r *BookingRepository) ListBookingsForRoom(ctx context.Context, roomID string) ([]persistence.Booking, error) {
	if roomID == "" {
		return nil, nil
	}

	query := bookingSelect + " WHERE room_id = ? AND status != 'cancelled' ORDER BY start_time ASC, id ASC"
	rows, err := r.pool.db.QueryContext(ctx, query, roomID)
	if err != nil {
		return nil, mapStorageError(err)
	}
	defer rows.Close()

	return collectBookings(rows)
}

// ListBookings returns bookings matching the filter, ordered by start time.
func (r *BookingRepository) ListBookings(ctx context.Context, filter persistence.BookingFilter) ([]persistence.Booking, error) {
	var (
		conditions []string
		args       []any
	)

	if filter.UserID != "" {
		conditions = append(conditions, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.RoomID != "" {
		conditions = append(conditions, "room_id = ?")
		args = append(args, filter.RoomID)
	}
	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, filter.Status)
	} else if filter.ExcludeCancelled {
		conditions = append(conditions, "status != 'cancelled'")
	}
	if filter.StartsAfter != nil {
		conditions = append(conditions, "start_time >= ?")
		args = append(args, filter.StartsAfter.UTC().Format(time.RFC3339))
	}
	if filter.StartsBefore != nil {
		conditions = append(conditions, "start_time <= ?")
		args = append(args, filter.StartsBefore.UTC().Format(time.RFC3339))
	}
	if filter.EndsBefore != nil {
		conditions = append(conditions, "end_time < ?")
		args = append(args, filter.EndsBefore.UTC().Format(time.RFC3339))
	}

	query := bookingSelect
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY start_time ASC, id ASC"

	rows, err := r.pool.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapStorageError(err)
	}
	defer rows.Close()

	return collectBookings(rows)
}

const bookingSelect = `
	SELECT id, room_id, user_id, date, start_time, end_time, purpose, status, created_at, updated_at
	FROM bookings`

func scanBooking(row rowScanner) (persistence.Booking, error) {
	var (
		booking persistence.Booking
		date    string
		start   string
		end     string
		created string
		updated string
	)

	err := row.Scan(
		&booking.ID,
		&booking.RoomID,
		&booking.UserID,
		&date,
		&start,
		&end,
		&booking.Purpose,
		&booking.Status,
		&created,
		&updated,
	)
	if err != nil {
		return persistence.Booking{}, mapStorageError(err)
	}

	for _, field := range []struct {
		value  string
		target *time.Time
		name   string
	}{
		{date, &booking.Date, "date"},
		{start, &booking.StartTime, "start_time"},
		{end, &booking.EndTime, "end_time"},
		{created, &booking.CreatedAt, "created_at"},
		{updated, &booking.UpdatedAt, "updated_at"},
	} {
		parsed, err := time.Parse(time.RFC3339, field.value)
		if err != nil {
			return persistence.Booking{}, fmt.Errorf("failed to parse %s: %w", field.name, err)
		}
		*field.target = parsed
	}

	return booking, nil
}

func collectBookings(rows *sql.Rows) ([]persistence.Booking, error) {
	var bookings []persistence.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, booking)
	}
	if err := rows.Err(); err != nil {
		return nil, mapStorageError(err)
	}
	return bookings, nil
}

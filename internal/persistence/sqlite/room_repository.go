package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/example/room-booking/internal/persistence"
)

// RoomRepository implements persistence.RoomRepository using SQLite.
type RoomRepository struct {
	pool *ConnectionPool
}

// NewRoomRepository creates a new SQLite room repository.
func NewRoomRepository(pool *ConnectionPool) *RoomRepository {
	return &RoomRepository{pool: pool}
}

// CreateRoom inserts a new room with its amenities.
func (r *RoomRepository) CreateRoom(ctx context.Context, room persistence.Room) error {
	if room.ID == "" {
		return persistence.ErrConstraintViolation
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO rooms (id, name, capacity, location, description, is_active, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`
		_, err := tx.Exec(query,
			room.ID,
			room.Name,
			room.Capacity,
			room.Location,
			nullString(room.Description),
			boolToInt(room.IsActive),
			room.CreatedAt.UTC().Format(time.RFC3339),
			room.UpdatedAt.UTC().Format(time.RFC3339),
		)
		if err != nil {
			return mapStorageError(err)
		}
		return insertAmenities(tx, room.ID, room.Amenities)
	})
}

// UpdateRoom replaces an existing room's attributes and amenity set.
func (r *RoomRepository) UpdateRoom(ctx context.Context, room persistence.Room) error {
	if room.ID == "" {
		return persistence.ErrNotFound
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		query := `
			UPDATE rooms
			SET name = ?, capacity = ?, location = ?, description = ?, is_active = ?, updated_at = ?
			WHERE id = ?
		`
		result, err := tx.Exec(query,
			room.Name,
			room.Capacity,
			room.Location,
			nullString(room.Description),
			boolToInt(room.IsActive),
			room.UpdatedAt.UTC().Format(time.RFC3339),
			room.ID,
		)
		if err != nil {
			return mapStorageError(err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if affected == 0 {
			return persistence.ErrNotFound
		}

		if _, err := tx.Exec("DELETE FROM room_amenities WHERE room_id = ?", room.ID); err != nil {
			return mapStorageError(err)
		}
		return insertAmenities(tx, room.ID, room.Amenities)
	})
}

// GetRoom retrieves a room by ID, including inactive rooms so historical
// bookings can always resolve their room.
func (r *RoomRepository) GetRoom(ctx context.Context, id string) (persistence.Room, error) {
	if id == "" {
		return persistence.Room{}, persistence.ErrNotFound
	}

	query := `
		SELECT id, name, capacity, location, description, is_active, created_at, updated_at
		FROM rooms
		WHERE id = ?
	`
	room, err := scanRoom(r.pool.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return persistence.Room{}, err
	}

	amenities, err := r.loadAmenities(ctx, id)
	if err != nil {
		return persistence.Room{}, err
	}
	room.Amenities = amenities
	return room, nil
}

// ListRooms returns rooms matching the filter, ordered by name then ID. The
// stable ordering is what makes auto-assignment deterministic.
func (r *RoomRepository) ListRooms(ctx context.Context, filter persistence.RoomFilter) ([]persistence.Room, error) {
	var (
		conditions []string
		args       []any
	)

	if filter.MinCapacity > 0 {
		conditions = append(conditions, "capacity >= ?")
		args = append(args, filter.MinCapacity)
	}
	if filter.IsActive != nil {
		conditions = append(conditions, "is_active = ?")
		args = append(args, boolToInt(*filter.IsActive))
	}
	if loc := strings.TrimSpace(filter.Location); loc != "" {
		conditions = append(conditions, "location LIKE ? ESCAPE '\\'")
		args = append(args, "%"+escapeLike(loc)+"%")
	}
	for _, amenity := range filter.Amenities {
		conditions = append(conditions, "id IN (SELECT room_id FROM room_amenities WHERE amenity = ?)")
		args = append(args, amenity)
	}

	query := "SELECT id, name, capacity, location, description, is_active, created_at, updated_at FROM rooms"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY name ASC, id ASC"

	rows, err := r.pool.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapStorageError(err)
	}
	defer rows.Close()

	var rooms []persistence.Room
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}
	if err := rows.Err(); err != nil {
		return nil, mapStorageError(err)
	}

	for i := range rooms {
		amenities, err := r.loadAmenities(ctx, rooms[i].ID)
		if err != nil {
			return nil, err
		}
		rooms[i].Amenities = amenities
	}

	return rooms, nil
}

// DeactivateRoom soft-deletes a room. The record is retained so existing
// bookings keep a resolvable reference.
func (r *RoomRepository) DeactivateRoom(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	result, err := r.pool.db.ExecContext(ctx,
		"UPDATE rooms SET is_active = 0, updated_at = ? WHERE id = ?",
		time.Now().UTC().Format(time.RFC3339), id,
	)
	if err != nil {
		return mapStorageError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

func (r *RoomRepository) loadAmenities(ctx context.Context, roomID string) ([]string, error) {
	rows, err := r.pool.db.QueryContext(ctx,
		"SELECT amenity FROM room_amenities WHERE room_id = ? ORDER BY amenity ASC", roomID)
	if err != nil {
		return nil, mapStorageError(err)
	}
	defer rows.Close()

	var amenities []string
	for rows.Next() {
		var amenity string
		if err := rows.Scan(&amenity); err != nil {
			return nil, mapStorageError(err)
		}
		amenities = append(amenities, amenity)
	}
	return amenities, rows.Err()
}

func insertAmenities(tx *sql.Tx, roomID string, amenities []string) error {
	for _, amenity := range amenities {
		if strings.TrimSpace(amenity) == "" {
			continue
		}
		if _, err := tx.Exec(
			"INSERT OR IGNORE INTO room_amenities (room_id, amenity) VALUES (?, ?)",
			roomID, amenity,
		); err != nil {
			return mapStorageError(err)
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRoom(row rowScanner) (persistence.Room, error) {
	var (
		room                 persistence.Room
		description          sql.NullString
		isActive             int
		createdAt, updatedAt string
	)

	err := row.Scan(
		&room.ID,
		&room.Name,
		&room.Capacity,
		&room.Location,
		&description,
		&isActive,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return persistence.Room{}, mapStorageError(err)
	}

	if description.Valid {
		room.Description = &description.String
	}
	room.IsActive = isActive != 0

	if room.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return persistence.Room{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if room.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return persistence.Room{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return room, nil
}

func nullString(value *string) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func escapeLike(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(value)
}

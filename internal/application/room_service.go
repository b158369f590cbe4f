package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/room-booking/internal/persistence"
)

const (
	minRoomCapacity = 1
	maxRoomCapacity = 1000

	maxRoomNameLength        = 100
	maxRoomLocationLength    = 200
	maxRoomDescriptionLength = 500
)

// RoomRepository captures the persistence interactions needed by the room
// service.
type RoomRepository interface {
	CreateRoom(ctx context.Context, room Room) (Room, error)
	UpdateRoom(ctx context.Context, room Room) (Room, error)
	GetRoom(ctx context.Context, id string) (Room, error)
	ListRooms(ctx context.Context, filter RoomRepositoryFilter) ([]Room, error)
	DeactivateRoom(ctx context.Context, id string) error
}

// RoomRepositoryFilter narrows room listings.
type RoomRepositoryFilter struct {
	MinCapacity int
	Amenities   []string
	Location    string
	IsActive    *bool
}

// RoomService manages the room catalogue. Creation, update, and deactivation
// are admin-only; listing and lookup are open to any authenticated caller.
type RoomService struct {
	rooms       RoomRepository
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewRoomService wires dependencies for room management.
func NewRoomService(rooms RoomRepository, idGenerator func() string, now func() time.Time) *RoomService {
	return NewRoomServiceWithLogger(rooms, idGenerator, now, nil)
}

// NewRoomServiceWithLogger constructs a room service with a specified logger.
func NewRoomServiceWithLogger(rooms RoomRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *RoomService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &RoomService{
		rooms:       rooms,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *RoomService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "RoomService", operation, attrs...)
}

// CreateRoom adds a room to the catalogue.
func (s *RoomService) CreateRoom(ctx context.Context, params CreateRoomParams) (created Room, err error) {
	if s == nil {
		err = fmt.Errorf("RoomService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CreateRoom", "principal_id", params.Principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create room", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("room_id", created.ID, "room_name", created.Name).InfoContext(ctx, "room created")
	}()

	if !params.Principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	input := normalizeRoomInput(params.Input)
	if vErr := validateRoomInput(input); vErr.HasErrors() {
		err = vErr
		return
	}

	createdAt := s.now()
	room := Room{
		ID:          s.idGenerator(),
		Name:        input.Name,
		Capacity:    input.Capacity,
		Amenities:   input.Amenities,
		Location:    input.Location,
		Description: input.Description,
		IsActive:    true,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
	if input.IsActive != nil {
		room.IsActive = *input.IsActive
	}

	if s.rooms == nil {
		created = room
		return
	}

	created, err = s.rooms.CreateRoom(ctx, room)
	if err != nil {
		err = mapRoomRepoError(err)
	}
	return
}

// UpdateRoom replaces the mutable attributes of an existing room.
func (s *RoomService) UpdateRoom(ctx context.Context, params UpdateRoomParams) (updated Room, err error) {
	if s == nil {
		err = fmt.Errorf("RoomService is nil")
		return
	}

	logger := s.loggerWith(ctx, "UpdateRoom",
		"principal_id", params.Principal.UserID,
		"room_id", params.RoomID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update room", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "room updated")
	}()

	if !params.Principal.IsAdmin {
		err = ErrUnauthorized
		return
	}
	if s.rooms == nil {
		err = fmt.Errorf("room repository not configured")
		return
	}

	var existing Room
	existing, err = s.rooms.GetRoom(ctx, params.RoomID)
	if err != nil {
		err = mapRoomRepoError(err)
		if errors.Is(err, ErrNotFound) {
			err = ErrRoomNotFound
		}
		return
	}

	input := normalizeRoomInput(params.Input)
	if vErr := validateRoomInput(input); vErr.HasErrors() {
		err = vErr
		return
	}

	existing.Name = input.Name
	existing.Capacity = input.Capacity
	existing.Amenities = input.Amenities
	existing.Location = input.Location
	existing.Description = input.Description
	if input.IsActive != nil {
		existing.IsActive = *input.IsActive
	}
	existing.UpdatedAt = s.now()

	updated, err = s.rooms.UpdateRoom(ctx, existing)
	if err != nil {
		err = mapRoomRepoError(err)
	}
	return
}

// DeactivateRoom retires a room from new bookings. Existing bookings on the
// room are left untouched.
func (s *RoomService) DeactivateRoom(ctx context.Context, principal Principal, roomID string) (err error) {
	if s == nil {
		return fmt.Errorf("RoomService is nil")
	}

	logger := s.loggerWith(ctx, "DeactivateRoom",
		"principal_id", principal.UserID,
		"room_id", roomID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to deactivate room", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "room deactivated")
	}()

	if !principal.IsAdmin {
		return ErrUnauthorized
	}
	if s.rooms == nil {
		return fmt.Errorf("room repository not configured")
	}

	if err = s.rooms.DeactivateRoom(ctx, roomID); err != nil {
		err = mapRoomRepoError(err)
		if errors.Is(err, ErrNotFound) {
			err = ErrRoomNotFound
		}
	}
	return
}

// GetRoom returns a room by id, including inactive rooms.
func (s *RoomService) GetRoom(ctx context.Context, roomID string) (Room, error) {
	if s == nil {
		return Room{}, fmt.Errorf("RoomService is nil")
	}
	if s.rooms == nil {
		return Room{}, fmt.Errorf("room repository not configured")
	}

	room, err := s.rooms.GetRoom(ctx, roomID)
	if err != nil {
		err = mapRoomRepoError(err)
		if errors.Is(err, ErrNotFound) {
			err = ErrRoomNotFound
		}
		return Room{}, err
	}
	return room, nil
}

// ListRooms returns rooms matching the filter in stable (name, id) order.
// Unless the filter says otherwise only active rooms are returned.
func (s *RoomService) ListRooms(ctx context.Context, filter RoomListFilter) ([]Room, error) {
	if s == nil {
		return nil, fmt.Errorf("RoomService is nil")
	}
	if s.rooms == nil {
		return nil, nil
	}

	repoFilter := RoomRepositoryFilter{
		MinCapacity: filter.MinCapacity,
		Location:    strings.TrimSpace(filter.Location),
		IsActive:    filter.IsActive,
	}
	for _, amenity := range filter.Amenities {
		amenity = strings.TrimSpace(amenity)
		if amenity != "" {
			repoFilter.Amenities = append(repoFilter.Amenities, amenity)
		}
	}
	if repoFilter.IsActive == nil {
		active := true
		repoFilter.IsActive = &active
	}

	rooms, err := s.rooms.ListRooms(ctx, repoFilter)
	if err != nil {
		return nil, mapRoomRepoError(err)
	}
	return rooms, nil
}

// ListActiveRoomsWithCapacity satisfies RoomDirectory so the room service can
// back the booking allocator directly.
func (s *RoomService) ListActiveRoomsWithCapacity(ctx context.Context, minCapacity int) ([]Room, error) {
	active := true
	filter := RoomListFilter{MinCapacity: minCapacity, IsActive: &active}
	return s.ListRooms(ctx, filter)
}

func normalizeRoomInput(input RoomInput) RoomInput {
	input.Name = strings.TrimSpace(input.Name)
	input.Location = strings.TrimSpace(input.Location)
	if input.Description != nil {
		trimmed := strings.TrimSpace(*input.Description)
		if trimmed == "" {
			input.Description = nil
		} else {
			input.Description = &trimmed
		}
	}
	amenities := make([]string, 0, len(input.Amenities))
	for _, amenity := range input.Amenities {
		amenity = strings.TrimSpace(amenity)
		if amenity != "" {
			amenities = append(amenities, amenity)
		}
	}
	input.Amenities = amenities
	return input
}

func validateRoomInput(input RoomInput) *ValidationError {
	vErr := &ValidationError{}
	if input.Name == "" {
		vErr.add("name", "name is required")
	} else if len(input.Name) > maxRoomNameLength {
		vErr.add("name", fmt.Sprintf("name cannot exceed %d characters", maxRoomNameLength))
	}
	if input.Capacity < minRoomCapacity || input.Capacity > maxRoomCapacity {
		vErr.add("capacity", fmt.Sprintf("capacity must be between %d and %d", minRoomCapacity, maxRoomCapacity))
	}
	if input.Location == "" {
		vErr.add("location", "location is required")
	} else if len(input.Location) > maxRoomLocationLength {
		vErr.add("location", fmt.Sprintf("location cannot exceed %d characters", maxRoomLocationLength))
	}
	if input.Description != nil && len(*input.Description) > maxRoomDescriptionLength {
		vErr.add("description", fmt.Sprintf("description cannot exceed %d characters", maxRoomDescriptionLength))
	}
	return vErr
}

func mapRoomRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrDuplicate) {
		vErr := &ValidationError{}
		vErr.add("name", "a room with this name already exists")
		return vErr
	}
	if errors.Is(err, persistence.ErrConstraintViolation) {
		vErr := &ValidationError{}
		vErr.add("capacity", fmt.Sprintf("capacity must be between %d and %d", minRoomCapacity, maxRoomCapacity))
		return vErr
	}
	return err
}

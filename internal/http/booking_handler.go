package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/room-booking/internal/application"
	"github.com/example/room-booking/internal/booking"
)

type bookingService interface {
	CreateBooking(ctx context.Context, params application.CreateBookingParams) (application.CreateBookingResult, error)
	RescheduleBooking(ctx context.Context, params application.RescheduleBookingParams) (application.Booking, error)
	CancelBooking(ctx context.Context, principal application.Principal, bookingID string) (application.Booking, error)
	GetBooking(ctx context.Context, principal application.Principal, bookingID string) (application.Booking, error)
	ListMyBookings(ctx context.Context, params application.ListMyBookingsParams) ([]application.Booking, error)
	ListBookings(ctx context.Context, params application.ListBookingsParams) ([]application.Booking, error)
}

type BookingHandler struct {
	service   bookingService
	responder responder
	logger    *slog.Logger
}

func NewBookingHandler(service bookingService, logger *slog.Logger) *BookingHandler {
	base := defaultLogger(logger)
	return &BookingHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *BookingHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "BookingHandler", operation, attrs...)
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req createBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "principal_id", principal.UserID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode booking request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	input, err := req.toInput()
	if err != nil {
		h.log(r.Context(), "Create", "principal_id", principal.UserID, "error_kind", "bad_request").ErrorContext(r.Context(), "invalid booking payload", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	logger := h.log(r.Context(), "Create", "principal_id", principal.UserID)

	result, err := h.service.CreateBooking(r.Context(), application.CreateBookingParams{
		Principal: principal,
		Input:     input,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "booking creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With(
		"booking_id", result.Booking.ID,
		"room_id", result.Booking.RoomID,
	).InfoContext(r.Context(), "booking created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, createBookingResponse{
		Booking:          toBookingDTO(result.Booking),
		WasPreferredRoom: result.WasPreferredRoom,
	})
}

func (h *BookingHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	bookingID, ok := BookingIDFromContext(r.Context())
	if !ok || strings.TrimSpace(bookingID) == "" {
		h.log(r.Context(), "Reschedule", "error_kind", "bad_request").ErrorContext(r.Context(), "missing booking id for reschedule")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidBookingID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req rescheduleBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Reschedule", "principal_id", principal.UserID, "booking_id", bookingID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode reschedule request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	patch, err := req.toPatch()
	if err != nil {
		h.log(r.Context(), "Reschedule", "principal_id", principal.UserID, "booking_id", bookingID, "error_kind", "bad_request").ErrorContext(r.Context(), "invalid reschedule payload", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	logger := h.log(r.Context(), "Reschedule", "principal_id", principal.UserID, "booking_id", bookingID)

	updated, err := h.service.RescheduleBooking(r.Context(), application.RescheduleBookingParams{
		Principal: principal,
		BookingID: bookingID,
		Patch:     patch,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "booking reschedule failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "booking rescheduled")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, bookingResponse{Booking: toBookingDTO(updated)})
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	bookingID, ok := BookingIDFromContext(r.Context())
	if !ok || strings.TrimSpace(bookingID) == "" {
		h.log(r.Context(), "Cancel", "error_kind", "bad_request").ErrorContext(r.Context(), "missing booking id for cancel")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidBookingID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Cancel", "principal_id", principal.UserID, "booking_id", bookingID)

	cancelled, err := h.service.CancelBooking(r.Context(), principal, bookingID)
	if err != nil {
		logger.ErrorContext(r.Context(), "booking cancellation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("room_id", cancelled.RoomID).InfoContext(r.Context(), "booking cancelled")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, bookingResponse{Booking: toBookingDTO(cancelled)})
}

func (h *BookingHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	bookingID, ok := BookingIDFromContext(r.Context())
	if !ok || strings.TrimSpace(bookingID) == "" {
		h.log(r.Context(), "Get", "error_kind", "bad_request").ErrorContext(r.Context(), "missing booking id for lookup")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidBookingID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Get", "principal_id", principal.UserID, "booking_id", bookingID)

	found, err := h.service.GetBooking(r.Context(), principal, bookingID)
	if err != nil {
		logger.ErrorContext(r.Context(), "booking lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, bookingResponse{Booking: toBookingDTO(found)})
}

func (h *BookingHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	rangeValue := application.MyBookingsRange(strings.TrimSpace(r.URL.Query().Get("range")))
	switch rangeValue {
	case "", application.MyBookingsAll:
		rangeValue = application.MyBookingsAll
	case application.MyBookingsUpcoming, application.MyBookingsPast:
	default:
		h.log(r.Context(), "ListMine", "principal_id", principal.UserID, "error_kind", "bad_request").ErrorContext(r.Context(), "invalid range filter", "range", string(rangeValue))
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidRange)
		return
	}

	logger := h.log(r.Context(), "ListMine", "principal_id", principal.UserID, "range", string(rangeValue))

	bookings, err := h.service.ListMyBookings(r.Context(), application.ListMyBookingsParams{
		Principal: principal,
		Range:     rangeValue,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "booking listing failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, bookingListResponse{Bookings: toBookingDTOs(bookings)})
}

func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	params, err := bookingListParamsFromQuery(r, principal)
	if err != nil {
		h.log(r.Context(), "List", "principal_id", principal.UserID, "error_kind", "bad_request").ErrorContext(r.Context(), "invalid booking filter", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	logger := h.log(r.Context(), "List", "principal_id", principal.UserID)

	bookings, err := h.service.ListBookings(r.Context(), params)
	if err != nil {
		logger.ErrorContext(r.Context(), "booking listing failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, bookingListResponse{Bookings: toBookingDTOs(bookings)})
}

func bookingListParamsFromQuery(r *http.Request, principal application.Principal) (application.ListBookingsParams, error) {
	query := r.URL.Query()
	params := application.ListBookingsParams{
		Principal: principal,
		RoomID:    strings.TrimSpace(query.Get("room_id")),
	}

	if raw := strings.TrimSpace(query.Get("status")); raw != "" {
		status := booking.Status(raw)
		switch status {
		case booking.StatusConfirmed, booking.StatusCancelled, booking.StatusCompleted:
			params.Status = status
		default:
			return application.ListBookingsParams{}, errInvalidStatus
		}
	}

	if raw := strings.TrimSpace(query.Get("date_from")); raw != "" {
		from, err := parseDateParam(raw)
		if err != nil {
			return application.ListBookingsParams{}, errInvalidDateFrom
		}
		params.DateFrom = &from
	}

	if raw := strings.TrimSpace(query.Get("date_to")); raw != "" {
		to, err := parseDateParam(raw)
		if err != nil {
			return application.ListBookingsParams{}, errInvalidDateTo
		}
		params.DateTo = &to
	}

	return params, nil
}

func parseDateParam(raw string) (time.Time, error) {
	if parsed, err := time.Parse("2006-01-02", raw); err == nil {
		return parsed, nil
	}
	return time.Parse(time.RFC3339, raw)
}

var (
	errInvalidRange    = jsonFilterError("range must be one of all, upcoming, past")
	errInvalidStatus   = jsonFilterError("status must be one of confirmed, cancelled, completed")
	errInvalidDateFrom = jsonFilterError("date_from must be a date (2006-01-02) or RFC 3339 timestamp")
	errInvalidDateTo   = jsonFilterError("date_to must be a date (2006-01-02) or RFC 3339 timestamp")
	errInvalidStart    = jsonFilterError("start_time must be an RFC 3339 timestamp")
	errInvalidEnd      = jsonFilterError("end_time must be an RFC 3339 timestamp")
	errInvalidDate     = jsonFilterError("date must be a date (2006-01-02)")
)

type createBookingRequest struct {
	Date            string  `json:"date"`
	StartTime       string  `json:"start_time"`
	EndTime         string  `json:"end_time"`
	Purpose         string  `json:"purpose"`
	PreferredRoomID *string `json:"preferred_room_id"`
}

func (r createBookingRequest) toInput() (application.BookingInput, error) {
	input := application.BookingInput{
		Purpose:         r.Purpose,
		PreferredRoomID: r.PreferredRoomID,
	}

	start, err := time.Parse(time.RFC3339, strings.TrimSpace(r.StartTime))
	if err != nil {
		return application.BookingInput{}, errInvalidStart
	}
	input.StartTime = start

	end, err := time.Parse(time.RFC3339, strings.TrimSpace(r.EndTime))
	if err != nil {
		return application.BookingInput{}, errInvalidEnd
	}
	input.EndTime = end

	if raw := strings.TrimSpace(r.Date); raw != "" {
		date, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return application.BookingInput{}, errInvalidDate
		}
		input.Date = date
	}

	return input, nil
}

type rescheduleBookingRequest struct {
	Date      *string `json:"date"`
	StartTime *string `json:"start_time"`
	EndTime   *string `json:"end_time"`
	Purpose   *string `json:"purpose"`
}

func (r rescheduleBookingRequest) toPatch() (application.ReschedulePatch, error) {
	var patch application.ReschedulePatch

	if r.StartTime != nil {
		start, err := time.Parse(time.RFC3339, strings.TrimSpace(*r.StartTime))
		if err != nil {
			return application.ReschedulePatch{}, errInvalidStart
		}
		patch.StartTime = &start
	}
	if r.EndTime != nil {
		end, err := time.Parse(time.RFC3339, strings.TrimSpace(*r.EndTime))
		if err != nil {
			return application.ReschedulePatch{}, errInvalidEnd
		}
		patch.EndTime = &end
	}
	if r.Date != nil {
		date, err := time.Parse("2006-01-02", strings.TrimSpace(*r.Date))
		if err != nil {
			return application.ReschedulePatch{}, errInvalidDate
		}
		patch.Date = &date
	}
	patch.Purpose = r.Purpose

	return patch, nil
}

type bookingDTO struct {
	ID        string `json:"id"`
	RoomID    string `json:"room_id"`
	UserID    string `json:"user_id"`
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Purpose   string `json:"purpose"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type bookingResponse struct {
	Booking bookingDTO `json:"booking"`
}

type createBookingResponse struct {
	Booking          bookingDTO `json:"booking"`
	WasPreferredRoom bool       `json:"was_preferred_room"`
}

type bookingListResponse struct {
	Bookings []bookingDTO `json:"bookings"`
}

func toBookingDTO(b application.Booking) bookingDTO {
	return bookingDTO{
		ID:        b.ID,
		RoomID:    b.RoomID,
		UserID:    b.UserID,
		Date:      b.Date.Format("2006-01-02"),
		StartTime: b.StartTime.UTC().Format(time.RFC3339Nano),
		EndTime:   b.EndTime.UTC().Format(time.RFC3339Nano),
		Purpose:   b.Purpose,
		Status:    string(b.Status),
		CreatedAt: b.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt: b.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func toBookingDTOs(bookings []application.Booking) []bookingDTO {
	dtos := make([]bookingDTO, 0, len(bookings))
	for _, b := range bookings {
		dtos = append(dtos, toBookingDTO(b))
	}
	return dtos
}

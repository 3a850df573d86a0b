package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.opentelemetry.io/otel/trace"

	"parking-occupancy/internal/parking"
)

type Meta struct {
	TraceID   string `json:"trace_id,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Meta    *Meta  `json:"meta,omitempty"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Slots   int    `json:"slots"`
	Meta    *Meta  `json:"meta,omitempty"`
}

type AssignRequest struct {
	SlotID        int    `json:"slot_id"`
	VehicleNumber string `json:"vehicle_number"`
}

type SnapshotResponse struct {
	Total    int            `json:"total"`
	Occupied int            `json:"occupied"`
	Free     int            `json:"free"`
	Slots    []parking.Slot `json:"slots"`
}

type OccupiedResponse struct {
	Search     string         `json:"search"`
	Page       int            `json:"page"`
	PageSize   int            `json:"page_size"`
	TotalPages int            `json:"total_pages"`
	Matching   int            `json:"matching"`
	Slots      []parking.Slot `json:"slots"`
}

type BillResponse struct {
	SlotID        int    `json:"slot_id"`
	SlotNumber    string `json:"slot_number"`
	VehicleNumber string `json:"vehicle_number"`
	Hours         int    `json:"hours"`
	RatePerHour   int    `json:"rate_per_hour"`
	Amount        int    `json:"amount"`
}

// SlotPatch is the json-server style partial update accepted on /slots/{id}.
type SlotPatch struct {
	Occupied      *bool   `json:"occupied"`
	VehicleNumber *string `json:"vehicleNumber"`
	EntryTime     *string `json:"entryTime"`
}

func newSnapshotResponse(slots []parking.Slot) SnapshotResponse {
	occupied := len(parking.OccupiedSlots(slots))
	if slots == nil {
		slots = []parking.Slot{}
	}
	return SnapshotResponse{
		Total:    len(slots),
		Occupied: occupied,
		Free:     len(slots) - occupied,
		Slots:    slots,
	}
}

func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func extractMeta(ctx context.Context) *Meta {
	meta := &Meta{}

	span := trace.SpanFromContext(ctx)
	if span.SpanContext().HasTraceID() {
		meta.TraceID = span.SpanContext().TraceID().String()
	}

	if reqID, ok := ctx.Value(RequestIDKey).(string); ok {
		meta.RequestID = reqID
	}

	return meta
}

func WriteSuccess(ctx context.Context, w http.ResponseWriter, message string, data any) {
	WriteJSON(w, http.StatusOK, Response{
		Success: true,
		Message: message,
		Data:    data,
		Meta:    extractMeta(ctx),
	})
}

func WriteError(ctx context.Context, w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, Response{
		Success: false,
		Error:   message,
		Meta:    extractMeta(ctx),
	})
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, parking.ErrInvalidPlate):
		return http.StatusBadRequest
	case errors.Is(err, parking.ErrSlotNotFound), errors.Is(err, parking.ErrUnknownSlot):
		return http.StatusNotFound
	case errors.Is(err, parking.ErrSlotAlreadyOccupied),
		errors.Is(err, parking.ErrSlotNotOccupied),
		errors.Is(err, parking.ErrOperationInFlight),
		errors.Is(err, parking.ErrLotFull):
		return http.StatusConflict
	case errors.Is(err, parking.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeDomainError(ctx context.Context, w http.ResponseWriter, err error) {
	WriteError(ctx, w, statusFor(err), err.Error())
}

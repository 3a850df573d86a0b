package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"parking-occupancy/internal/logging"
	"parking-occupancy/internal/notify"
	"parking-occupancy/internal/parking"
)

type Handler struct {
	store       parking.SlotStore
	cache       *parking.SnapshotCache
	entry       *parking.EntryController
	exit        *parking.ExitController
	toast       *notify.Toast
	pageSize    int
	serviceName string
}

func NewHandler(deps Deps) *Handler {
	pageSize := deps.PageSize
	if pageSize <= 0 {
		pageSize = parking.DefaultPageSize
	}
	return &Handler{
		store:       deps.Store,
		cache:       deps.Cache,
		entry:       deps.Entry,
		exit:        deps.Exit,
		toast:       deps.Toast,
		pageSize:    pageSize,
		serviceName: deps.ServiceName,
	}
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Service: h.serviceName,
		Slots:   len(h.cache.Current()),
		Meta:    extractMeta(r.Context()),
	})
}

func (h *Handler) GetSlots(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(r.Context(), w, "Slots retrieved successfully", newSnapshotResponse(h.cache.Current()))
}

func (h *Handler) RefreshSlots(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.cache.Refresh(ctx); err != nil {
		writeDomainError(ctx, w, err)
		return
	}
	WriteSuccess(ctx, w, "Slots refreshed", newSnapshotResponse(h.cache.Current()))
}

func (h *Handler) GetFreeSlots(w http.ResponseWriter, r *http.Request) {
	free := h.entry.FreeSlots()
	if free == nil {
		free = []parking.Slot{}
	}
	WriteSuccess(r.Context(), w, "Free slots retrieved successfully", free)
}

// AssignVehicle parks a vehicle in the requested slot, or in the first free
// slot when slot_id is omitted.
func (h *Handler) AssignVehicle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req AssignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(ctx, w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.SlotID < 0 {
		WriteError(ctx, w, http.StatusBadRequest, "Slot id must be greater than 0")
		return
	}

	plate := parking.NormalizePlate(req.VehicleNumber)

	var (
		slot parking.Slot
		err  error
	)
	if req.SlotID == 0 {
		slot, err = h.entry.AssignFirstFree(ctx, plate)
	} else {
		slot, err = h.entry.AssignVehicle(ctx, req.SlotID, plate)
	}
	if err != nil {
		writeDomainError(ctx, w, err)
		return
	}

	WriteSuccess(ctx, w, "Vehicle parked successfully", slot)
}

func (h *Handler) GetOccupied(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	search := r.URL.Query().Get("search")

	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			WriteError(ctx, w, http.StatusBadRequest, "Page must be a positive integer")
			return
		}
		page = n
	}

	filtered := parking.FilterOccupied(h.cache.Current(), search)
	totalPages := parking.TotalPages(len(filtered), h.pageSize)
	if page > totalPages {
		page = totalPages
	}

	slots := parking.Paginate(filtered, page, h.pageSize)
	if slots == nil {
		slots = []parking.Slot{}
	}

	WriteSuccess(ctx, w, "Occupied slots retrieved successfully", OccupiedResponse{
		Search:     search,
		Page:       page,
		PageSize:   h.pageSize,
		TotalPages: totalPages,
		Matching:   len(filtered),
		Slots:      slots,
	})
}

func (h *Handler) ExitSlot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	slotID, ok := slotIDParam(w, r)
	if !ok {
		return
	}

	receipt, err := h.exit.Exit(ctx, slotID)
	if err != nil {
		writeDomainError(ctx, w, err)
		return
	}

	WriteSuccess(ctx, w, receipt.Message(), receipt)
}

func (h *Handler) GetBill(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	slotID, ok := slotIDParam(w, r)
	if !ok {
		return
	}

	quote, err := h.exit.Quote(slotID)
	if err != nil {
		writeDomainError(ctx, w, err)
		return
	}

	WriteSuccess(ctx, w, "Bill computed", BillResponse{
		SlotID:        quote.SlotID,
		SlotNumber:    quote.SlotNumber,
		VehicleNumber: quote.VehicleNumber,
		Hours:         quote.Hours,
		RatePerHour:   h.exit.Biller().RatePerHour(),
		Amount:        quote.Amount,
	})
}

func (h *Handler) GetLastReceipt(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	receipt, ok := h.exit.LastReceipt()
	if !ok {
		WriteError(ctx, w, http.StatusNotFound, "No vehicle has exited yet")
		return
	}
	WriteSuccess(ctx, w, receipt.Message(), receipt)
}

func (h *Handler) CurrentNotification(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	notice, ok := h.toast.Current()
	if !ok {
		WriteSuccess(ctx, w, "No active notification", nil)
		return
	}
	WriteSuccess(ctx, w, notice.Message, notice)
}

// ListCollection and the other collection handlers serve raw slot records
// in the json-server shape so another instance can use this one as its store.
func (h *Handler) ListCollection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	slots, err := h.store.ListSlots(ctx)
	if err != nil {
		writeDomainError(ctx, w, err)
		return
	}
	if slots == nil {
		slots = []parking.Slot{}
	}
	WriteJSON(w, http.StatusOK, slots)
}

func (h *Handler) GetCollectionSlot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	slotID, ok := slotIDParam(w, r)
	if !ok {
		return
	}

	slots, err := h.store.ListSlots(ctx)
	if err != nil {
		writeDomainError(ctx, w, err)
		return
	}
	for _, slot := range slots {
		if slot.ID == slotID {
			WriteJSON(w, http.StatusOK, slot)
			return
		}
	}
	writeDomainError(ctx, w, parking.ErrSlotNotFound)
}

// PatchCollectionSlot applies an occupy or release transition. Unlike a
// plain json-server it refuses transitions from the wrong state with 409.
func (h *Handler) PatchCollectionSlot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	slotID, ok := slotIDParam(w, r)
	if !ok {
		return
	}

	var patch SlotPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil || patch.Occupied == nil {
		WriteError(ctx, w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var (
		slot parking.Slot
		err  error
	)
	if *patch.Occupied {
		if patch.VehicleNumber == nil || *patch.VehicleNumber == "" {
			WriteError(ctx, w, http.StatusBadRequest, "vehicleNumber is required")
			return
		}
		entry := time.Now().UTC()
		if patch.EntryTime != nil && *patch.EntryTime != "" {
			entry, err = time.Parse(time.RFC3339Nano, *patch.EntryTime)
			if err != nil {
				WriteError(ctx, w, http.StatusBadRequest, "entryTime must be RFC 3339")
				return
			}
		}
		slot, err = h.store.Occupy(ctx, slotID, *patch.VehicleNumber, entry)
	} else {
		slot, err = h.store.Release(ctx, slotID)
	}
	if err != nil {
		writeDomainError(ctx, w, err)
		return
	}

	if err := h.cache.Refresh(ctx); err != nil {
		logging.Warn(ctx).Err(err).Int("slot_id", slotID).Msg("snapshot refresh after collection patch failed")
	}
	WriteJSON(w, http.StatusOK, slot)
}

func slotIDParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	slotID, err := strconv.Atoi(chi.URLParam(r, "slotID"))
	if err != nil || slotID <= 0 {
		WriteError(r.Context(), w, http.StatusBadRequest, "Invalid slot id")
		return 0, false
	}
	return slotID, true
}

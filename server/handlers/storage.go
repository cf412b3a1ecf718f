package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/teilomillet/chatline/errors"
	"github.com/teilomillet/chatline/server/middleware"
	"github.com/teilomillet/chatline/server/validation"
	"github.com/teilomillet/chatline/storage"
)

// StorageHandler reads and writes the persisted slots. Values are opaque
// JSON documents.
type StorageHandler struct {
	slots *storage.Slots
}

// NewStorageHandler creates a storage handler.
func NewStorageHandler(slots *storage.Slots) *StorageHandler {
	return &StorageHandler{slots: slots}
}

// SlotValue is the body returned by Get. Value is null for an unset slot.
type SlotValue struct {
	Slot  storage.Slot    `json:"slot"`
	Value json.RawMessage `json:"value"`
	Found bool            `json:"found"`
}

func (h *StorageHandler) slot(w http.ResponseWriter, r *http.Request) (storage.Slot, bool) {
	slot, err := storage.ParseSlot(chi.URLParam(r, "slot"))
	if err != nil {
		errors.WriteError(w, errors.NewNotFoundError(middleware.GetRequestID(r.Context()), err.Error()))
		return "", false
	}
	return slot, true
}

// Get handles GET /v1/storage/{slot}.
func (h *StorageHandler) Get(w http.ResponseWriter, r *http.Request) {
	slot, ok := h.slot(w, r)
	if !ok {
		return
	}

	resp := SlotValue{Slot: slot, Value: json.RawMessage("null")}
	if raw, found := h.slots.GetRaw(r.Context(), slot); found {
		resp.Value = raw
		resp.Found = true
	}
	writeJSON(w, http.StatusOK, resp)
}

// Put handles PUT /v1/storage/{slot}. The body is stored as given.
func (h *StorageHandler) Put(w http.ResponseWriter, r *http.Request) {
	slot, ok := h.slot(w, r)
	if !ok {
		return
	}
	requestID := middleware.GetRequestID(r.Context())

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, validation.MaxBodyBytes))
	if err != nil || !json.Valid(body) {
		errors.WriteError(w, errors.NewValidationError(requestID, "Body must be a JSON document", map[string]interface{}{
			"slot": string(slot),
		}))
		return
	}

	if !h.slots.Set(r.Context(), slot, json.RawMessage(body)) {
		errors.WriteError(w, errors.NewInternalError(requestID, nil))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Delete handles DELETE /v1/storage/{slot}.
func (h *StorageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	slot, ok := h.slot(w, r)
	if !ok {
		return
	}
	if !h.slots.Remove(r.Context(), slot) {
		errors.WriteError(w, errors.NewInternalError(middleware.GetRequestID(r.Context()), nil))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Clear handles DELETE /v1/storage, removing every slot.
func (h *StorageHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if !h.slots.Clear(r.Context()) {
		errors.WriteError(w, errors.NewInternalError(middleware.GetRequestID(r.Context()), nil))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

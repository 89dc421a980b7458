package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/Wd-70/cu-calculator-sub001/internal/domain/preset"
)

// ListPresets returns every stored preset.
func (h *Handler) ListPresets(w http.ResponseWriter, r *http.Request) {
	presets, err := h.presets.List(r.Context())
	if err != nil {
		respondInternal(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, presets)
}

// GetPreset returns a single preset by ID.
func (h *Handler) GetPreset(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	p, err := h.presets.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, preset.ErrNotFound) {
			respondError(w, r, http.StatusNotFound, "preset not found: "+id)
			return
		}
		respondInternal(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, p)
}

// CreatePreset stores a new preset. A missing ID is generated server-side.
func (h *Handler) CreatePreset(w http.ResponseWriter, r *http.Request) {
	var p preset.Preset
	if err := decodeBody(r, &p); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if p.Name == "" {
		respondError(w, r, http.StatusBadRequest, "name must not be empty")
		return
	}
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	p.UpdatedAt = h.now()

	if err := h.presets.Create(r.Context(), &p); err != nil {
		respondInternal(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusCreated, p)
}

// UpdatePreset replaces an existing preset.
func (h *Handler) UpdatePreset(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var p preset.Preset
	if err := decodeBody(r, &p); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	p.ID = id
	p.UpdatedAt = h.now()

	if err := h.presets.Update(r.Context(), &p); err != nil {
		if errors.Is(err, preset.ErrNotFound) {
			respondError(w, r, http.StatusNotFound, "preset not found: "+id)
			return
		}
		respondInternal(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, p)
}

// DeletePreset removes a preset.
func (h *Handler) DeletePreset(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if err := h.presets.Delete(r.Context(), id); err != nil {
		if errors.Is(err, preset.ErrNotFound) {
			respondError(w, r, http.StatusNotFound, "preset not found: "+id)
			return
		}
		respondInternal(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

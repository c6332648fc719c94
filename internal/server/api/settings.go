package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/awg-tools/portal/pkg/models"
)

// SettingsStore is satisfied by *storage.SettingRepository.
type SettingsStore interface {
	Get(ctx context.Context, key string) (*models.Setting, error)
	Set(ctx context.Context, key, value string) (*models.Setting, error)
	List(ctx context.Context) ([]models.Setting, error)
}

type SettingsHandler struct {
	settings SettingsStore
}

func NewSettingsHandler(settings SettingsStore) *SettingsHandler {
	return &SettingsHandler{settings: settings}
}

func (h *SettingsHandler) ListSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settings.List(r.Context())
	if err != nil {
		respondErrorJSON(w, http.StatusInternalServerError, "failed to fetch settings")
		return
	}
	respondJSON(w, http.StatusOK, settings)
}

// GetSetting reports a null value for unknown keys rather than a 404;
// callers interpret key semantics, the store does not.
func (h *SettingsHandler) GetSetting(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	setting, err := h.settings.Get(r.Context(), key)
	if err != nil {
		respondErrorJSON(w, http.StatusInternalServerError, "failed to fetch setting")
		return
	}

	resp := models.SettingResponse{Key: key}
	if setting != nil {
		resp.Value = &setting.Value
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *SettingsHandler) SetSetting(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	var req models.SetSettingRequest
	if err := decodeJSON(r, &req); err != nil || req.Value == nil {
		respondErrorJSON(w, http.StatusBadRequest, "value must be a string")
		return
	}

	setting, err := h.settings.Set(r.Context(), key, *req.Value)
	if err != nil {
		respondErrorJSON(w, http.StatusInternalServerError, "failed to save setting")
		return
	}
	respondJSON(w, http.StatusOK, setting)
}

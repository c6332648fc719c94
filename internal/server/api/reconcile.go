package api

import (
	"context"
	"net/http"

	"github.com/awg-tools/portal/pkg/models"
)

// ReconcilerService is the reconciliation surface the handlers depend on.
// Satisfied by *services.Reconciler.
type ReconcilerService interface {
	FindLegacy(ctx context.Context) ([]models.LegacyClient, error)
	MigrateAll(ctx context.Context) (int, error)
}

type ReconcileHandler struct {
	reconciler ReconcilerService
}

func NewReconcileHandler(reconciler ReconcilerService) *ReconcileHandler {
	return &ReconcileHandler{reconciler: reconciler}
}

func (h *ReconcileHandler) Sync(w http.ResponseWriter, r *http.Request) {
	count, err := h.reconciler.MigrateAll(r.Context())
	if err != nil {
		respondErrorJSON(w, http.StatusInternalServerError, "failed to sync clients: "+err.Error())
		return
	}
	respondJSON(w, http.StatusOK, models.SyncResponse{Success: true, ClientCount: count})
}

func (h *ReconcileHandler) ListLegacyClients(w http.ResponseWriter, r *http.Request) {
	legacy, err := h.reconciler.FindLegacy(r.Context())
	if err != nil {
		respondErrorJSON(w, http.StatusInternalServerError, "failed to fetch legacy clients")
		return
	}
	respondJSON(w, http.StatusOK, models.LegacyClientsResponse{
		LegacyClients: legacy,
		Count:         len(legacy),
	})
}

func (h *ReconcileHandler) MigrateAll(w http.ResponseWriter, r *http.Request) {
	count, err := h.reconciler.MigrateAll(r.Context())
	if err != nil {
		respondErrorJSON(w, http.StatusInternalServerError, "failed to migrate clients: "+err.Error())
		return
	}
	respondJSON(w, http.StatusOK, models.MigrateResponse{Success: true, MigratedCount: count})
}

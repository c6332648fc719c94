package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/awg-tools/portal/internal/server/services"
	"github.com/awg-tools/portal/pkg/models"
)

// ClientDirectory is the client lifecycle surface the handlers depend on.
// Satisfied by *services.ClientService.
type ClientDirectory interface {
	List(ctx context.Context) ([]models.Client, error)
	Get(ctx context.Context, name string) (*models.Client, error)
	Create(ctx context.Context, name, ipAddress string) (*models.Client, error)
	Delete(ctx context.Context, name string) error
	Stats(ctx context.Context, name string) (*models.ClientStats, error)
	SanitizedConfig(ctx context.Context, name string) (string, error)
	ClaimConfigDownload(ctx context.Context, name string) (bool, error)
}

type ClientHandler struct {
	clients ClientDirectory
}

func NewClientHandler(clients ClientDirectory) *ClientHandler {
	return &ClientHandler{clients: clients}
}

func (h *ClientHandler) ListClients(w http.ResponseWriter, r *http.Request) {
	clients, err := h.clients.List(r.Context())
	if err != nil {
		respondErrorJSON(w, http.StatusInternalServerError, "failed to fetch clients")
		return
	}
	respondJSON(w, http.StatusOK, clients)
}

func (h *ClientHandler) GetClient(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	client, err := h.clients.Get(r.Context(), name)
	if err != nil {
		if errors.Is(err, services.ErrClientNotFound) {
			respondErrorJSON(w, http.StatusNotFound, "client not found")
			return
		}
		respondErrorJSON(w, http.StatusInternalServerError, "failed to fetch client")
		return
	}
	respondJSON(w, http.StatusOK, client)
}

func (h *ClientHandler) CreateClient(w http.ResponseWriter, r *http.Request) {
	var req models.CreateClientRequest
	if err := decodeJSON(r, &req); err != nil {
		respondErrorJSON(w, http.StatusBadRequest, "invalid request body")
		return
	}

	client, err := h.clients.Create(r.Context(), req.Name, req.IPAddress)
	if err != nil {
		respondClientError(w, err, "failed to add client")
		return
	}
	respondJSON(w, http.StatusCreated, client)
}

func (h *ClientHandler) DeleteClient(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	if err := h.clients.Delete(r.Context(), name); err != nil {
		respondClientError(w, err, "failed to delete client")
		return
	}
	respondJSON(w, http.StatusOK, models.DeleteClientResponse{
		Success: true,
		Message: fmt.Sprintf("Client %s deleted", name),
	})
}

func (h *ClientHandler) GetClientStats(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	stats, err := h.clients.Stats(r.Context(), name)
	if err != nil {
		respondClientError(w, err, "failed to fetch client stats")
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// respondClientError maps the service error taxonomy onto HTTP statuses:
// validation 400, missing 404, duplicate 409, everything else 500.
func respondClientError(w http.ResponseWriter, err error, fallback string) {
	var vErr *services.ValidationError
	switch {
	case errors.As(err, &vErr):
		respondErrorJSON(w, http.StatusBadRequest, vErr.Reason)
	case errors.Is(err, services.ErrClientNotFound):
		respondErrorJSON(w, http.StatusNotFound, "client not found")
	case errors.Is(err, services.ErrClientExists):
		respondErrorJSON(w, http.StatusConflict, "client already exists")
	default:
		respondErrorJSON(w, http.StatusInternalServerError, fallback+": "+err.Error())
	}
}

package api

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/erazemk/najdeno/internal/model"
	"github.com/erazemk/najdeno/internal/store"
)

// ClaimsHandler handles claim endpoints.
type ClaimsHandler struct {
	DB *sql.DB
}

// Create handles POST /api/items/{id}/claims.
func (h *ClaimsHandler) Create(w http.ResponseWriter, r *http.Request) {
	itemID, ok := pathID(w, r, "item")
	if !ok {
		return
	}

	var in model.ClaimInput
	if err := decodeJSON(r, &in); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	in.Name = strings.TrimSpace(in.Name)
	if errs := in.Validate(); len(errs) > 0 {
		jsonValidation(w, errs)
		return
	}

	claims := GetClaims(r.Context())
	claim, err := store.CreateClaim(r.Context(), h.DB, itemID, in, &claims.UserID)
	switch {
	case errors.Is(err, store.ErrItemNotFound):
		jsonError(w, http.StatusNotFound, "item not found")
		return
	case errors.Is(err, store.ErrItemClaimed):
		jsonError(w, http.StatusConflict, "item already claimed")
		return
	case err != nil:
		slog.Error("creating claim", "item", itemID, "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to create claim")
		return
	}

	slog.Info("item claimed", "user", claims.Username, "item", itemID, "claim", claim.ID)
	jsonResponse(w, http.StatusCreated, claim)
}

// List handles GET /api/claims (admin).
func (h *ClaimsHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, err := store.ListClaims(r.Context(), h.DB)
	if err != nil {
		slog.Error("listing claims", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list claims")
		return
	}
	if claims == nil {
		claims = []model.Claim{}
	}
	jsonResponse(w, http.StatusOK, claims)
}

// SetStatus handles PUT /api/claims/{id}/status (admin).
func (h *ClaimsHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "claim")
	if !ok {
		return
	}

	var req statusRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !model.ValidClaimStatus(req.Status) {
		jsonError(w, http.StatusBadRequest, "invalid status")
		return
	}

	err := store.SetClaimStatus(r.Context(), h.DB, id, req.Status)
	if errors.Is(err, store.ErrClaimNotFound) {
		jsonError(w, http.StatusNotFound, "claim not found")
		return
	}
	if err != nil {
		slog.Error("setting claim status", "claim", id, "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to update claim")
		return
	}

	slog.Info("claim status changed", "user", GetClaims(r.Context()).Username, "claim", id, "status", req.Status)
	claim, _ := store.GetClaim(r.Context(), h.DB, id)
	jsonResponse(w, http.StatusOK, claim)
}

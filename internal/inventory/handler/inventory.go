package handler

import (
	"encoding/json"
	"net/http"

	"stockpile/internal/inventory/service"
	httputil "stockpile/pkg/http"
	"stockpile/pkg/logger"
	"stockpile/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type InventoryHandler struct {
	manager service.ReservationManager
	log     *logger.Logger
}

func NewInventoryHandler(manager service.ReservationManager, log *logger.Logger) *InventoryHandler {
	return &InventoryHandler{
		manager: manager,
		log:     log,
	}
}

func (h *InventoryHandler) Reserve(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.ReserveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Reserve", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	result, err := h.manager.ReserveBatch(r.Context(), &req)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Reserve", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if !result.Success {
		// The body carries every shortfall plus the partial hold's id so the
		// caller can compensate.
		if writeErr := httputil.WriteJSON(w, http.StatusConflict, httputil.SuccessResponse{Data: result}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Reserve", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteCreated(w, result); err != nil {
		h.log.Error("failed to write created response", "handler", "Reserve", "operation", "WriteCreated", "error", err)
	}
}

func (h *InventoryHandler) Release(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	if err := h.manager.ReleaseReservation(r.Context(), id); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Release", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	httputil.WriteNoContent(w)
}

func (h *InventoryHandler) Confirm(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	if err := h.manager.ConfirmReservation(r.Context(), id); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Confirm", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	httputil.WriteNoContent(w)
}

func (h *InventoryHandler) UpsertCapacity(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.UpsertCapacityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "UpsertCapacity", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	ledger, err := h.manager.UpsertCapacity(r.Context(), &req)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "UpsertCapacity", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, ledger); err != nil {
		h.log.Error("failed to write success response", "handler", "UpsertCapacity", "operation", "WriteSuccess", "error", err)
	}
}

func (h *InventoryHandler) AdjustStock(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.AdjustStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "AdjustStock", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	status, err := h.manager.AdjustStock(r.Context(), &req)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "AdjustStock", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, status); err != nil {
		h.log.Error("failed to write success response", "handler", "AdjustStock", "operation", "WriteSuccess", "error", err)
	}
}

func (h *InventoryHandler) GetStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	key := ps.ByName("key")

	status, err := h.manager.GetStatus(r.Context(), key)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetStatus", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, status); err != nil {
		h.log.Error("failed to write success response", "handler", "GetStatus", "operation", "WriteSuccess", "error", err)
	}
}

func (h *InventoryHandler) Sweep(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	result, err := h.manager.SweepExpired(r.Context())
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Sweep", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, result); err != nil {
		h.log.Error("failed to write success response", "handler", "Sweep", "operation", "WriteSuccess", "error", err)
	}
}

func (h *InventoryHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/reservations", h.Reserve)
	router.DELETE("/api/v1/reservations/:id", h.Release)
	router.POST("/api/v1/reservations/:id/confirm", h.Confirm)
	router.PUT("/api/v1/capacity", h.UpsertCapacity)
	router.POST("/api/v1/stock/adjust", h.AdjustStock)
	router.GET("/api/v1/stock/:key", h.GetStatus)
	router.POST("/api/v1/sweep", h.Sweep)
}

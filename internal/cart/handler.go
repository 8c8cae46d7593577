// internal/cart/handler.go
package cart

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"librastore/internal/apperr"
	"librastore/internal/httpx"
)

type Handler struct {
	service Service
	logger  *zap.Logger
}

func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Routes registers the cart endpoints on the /clientes router.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/{id}/carro", h.handleGet)
	r.Delete("/{id}/carro", h.handleClear)
	r.Post("/{id}/carro/items", h.handleAddItem)
	r.Put("/{id}/carro/items/{index}", h.handleSetQuantity)
}

type addItemRequest struct {
	BookID   int64 `json:"libro"`
	Quantity int   `json:"cantidad"`
}

type setQuantityRequest struct {
	Quantity *int `json:"cantidad"`
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IntParam(r, "id")
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	c, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *Handler) handleAddItem(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IntParam(r, "id")
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	var req addItemRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	item, err := h.service.AddItem(r.Context(), id, req.BookID, req.Quantity)
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, item)
}

func (h *Handler) handleSetQuantity(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IntParam(r, "id")
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		httpx.Error(w, h.logger, apperr.Validationf("invalid index %q", chi.URLParam(r, "index")))
		return
	}
	var req setQuantityRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	if req.Quantity == nil {
		httpx.Error(w, h.logger, apperr.Validation("cantidad is required"))
		return
	}
	if _, err := h.service.SetItemQuantity(r.Context(), id, index, *req.Quantity); err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.OK)
}

func (h *Handler) handleClear(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IntParam(r, "id")
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	if err := h.service.Clear(r.Context(), id); err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.OK)
}

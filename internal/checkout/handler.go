// internal/checkout/handler.go
package checkout

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"librastore/internal/apperr"
	"librastore/internal/httpx"
	"librastore/internal/models"
)

type Handler struct {
	service Service
	logger  *zap.Logger
}

func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Routes mounts the /facturas endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/facturas", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Post("/", h.handlePurchase)
		r.Put("/", h.handleReplaceAll)
		r.Delete("/", h.handleDeleteAll)
		r.Get("/{id}", h.handleGet)
		r.Delete("/{id}", h.handleDelete)
		r.Get("/{id}/pdf", h.handlePDF)
	})
}

func queryInt(r *http.Request, name string) (int64, bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, false, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, true, apperr.Validationf("invalid %s %q", name, raw)
	}
	return v, true, nil
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	clientID, ok, err := queryInt(r, "cliente")
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	if ok {
		invoices, err := h.service.ListByClient(r.Context(), clientID)
		if err != nil {
			httpx.Error(w, h.logger, err)
			return
		}
		httpx.JSON(w, http.StatusOK, invoices)
		return
	}

	number, ok, err := queryInt(r, "numero")
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	if ok {
		inv, err := h.service.GetByNumber(r.Context(), number)
		if err != nil && !apperr.Is(err, apperr.KindNotFound) {
			httpx.Error(w, h.logger, err)
			return
		}
		httpx.JSON(w, http.StatusOK, httpx.List(inv))
		return
	}

	invoices, err := h.service.List(r.Context())
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, invoices)
}

func (h *Handler) handlePurchase(w http.ResponseWriter, r *http.Request) {
	var req Billing
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	inv, err := h.service.Purchase(r.Context(), req)
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, inv)
}

func (h *Handler) handleReplaceAll(w http.ResponseWriter, r *http.Request) {
	var invoices []*models.Invoice
	if err := httpx.Decode(r, &invoices); err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	loaded, err := h.service.ReplaceAll(r.Context(), invoices)
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, loaded)
}

func (h *Handler) handleDeleteAll(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteAll(r.Context()); err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.OK)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IntParam(r, "id")
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	inv, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IntParam(r, "id")
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.OK)
}

func (h *Handler) handlePDF(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IntParam(r, "id")
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	inv, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	// Render fully before writing so a failure can still become a 500.
	var buf bytes.Buffer
	if err := h.service.RenderPDF(&buf, inv); err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=factura-%d.pdf", inv.Number))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

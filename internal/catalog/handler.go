// internal/catalog/handler.go
package catalog

import (
	"net/http"

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

// Routes mounts the /libros endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/libros", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Post("/", h.handleCreate)
		r.Put("/", h.handleReplaceAll)
		r.Delete("/", h.handleDeleteAll)
		r.Get("/{id}", h.handleGet)
		r.Put("/{id}", h.handleUpdate)
		r.Delete("/{id}", h.handleDelete)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if isbn := q.Get("isbn"); isbn != "" {
		b, err := h.service.GetByISBN(r.Context(), isbn)
		if err != nil && !apperr.Is(err, apperr.KindNotFound) {
			httpx.Error(w, h.logger, err)
			return
		}
		httpx.JSON(w, http.StatusOK, httpx.List(b))
		return
	}
	if title := q.Get("titulo"); title != "" {
		books, err := h.service.SearchTitle(r.Context(), title)
		if err != nil {
			httpx.Error(w, h.logger, err)
			return
		}
		httpx.JSON(w, http.StatusOK, books)
		return
	}

	books, err := h.service.List(r.Context())
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, books)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var in BookInput
	if err := httpx.Decode(r, &in); err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	b, err := h.service.Create(r.Context(), in)
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, b)
}

func (h *Handler) handleReplaceAll(w http.ResponseWriter, r *http.Request) {
	var inputs []BookInput
	if err := httpx.Decode(r, &inputs); err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	if _, err := h.service.ReplaceAll(r.Context(), inputs); err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	h.handleList(w, r)
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
	b, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, b)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IntParam(r, "id")
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	var in BookInput
	if err := httpx.Decode(r, &in); err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	b, err := h.service.Update(r.Context(), id, in)
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, b)
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

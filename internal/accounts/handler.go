// internal/accounts/handler.go
package accounts

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"librastore/internal/apperr"
	"librastore/internal/httpx"
	"librastore/internal/models"
)

// Handler serves one role's collection: /clientes or /admins.
type Handler struct {
	service Service
	role    models.Role
	logger  *zap.Logger
	// authLimit guards the authenticate endpoint; nil disables it.
	authLimit func(http.Handler) http.Handler
}

func NewHandler(service Service, role models.Role, authLimit func(http.Handler) http.Handler, logger *zap.Logger) *Handler {
	return &Handler{service: service, role: role, authLimit: authLimit, logger: logger}
}

// Routes registers the collection on a router already scoped to its prefix.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Post("/", h.handleCreate)
	r.Put("/", h.handleReplaceAll)
	r.Delete("/", h.handleDeleteAll)

	auth := http.Handler(http.HandlerFunc(h.handleAuthenticate))
	if h.authLimit != nil {
		auth = h.authLimit(auth)
	}
	r.Method(http.MethodPost, "/autenticar", auth)

	r.Get("/{id}", h.handleGet)
	r.Put("/{id}", h.handleUpdate)
	r.Delete("/{id}", h.handleDelete)
}

func publicAll(users []*models.User) []*models.User {
	out := make([]*models.User, len(users))
	for i, u := range users {
		out[i] = u.Public()
	}
	return out
}

func (h *Handler) single(w http.ResponseWriter, u *models.User, err error) {
	if err != nil && !apperr.Is(err, apperr.KindNotFound) {
		httpx.Error(w, h.logger, err)
		return
	}
	if u != nil {
		u = u.Public()
	}
	httpx.JSON(w, http.StatusOK, httpx.List(u))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if email := q.Get("email"); email != "" {
		u, err := h.service.GetByEmail(r.Context(), h.role, email)
		h.single(w, u, err)
		return
	}
	if dni := q.Get("dni"); dni != "" {
		u, err := h.service.GetByNationalID(r.Context(), h.role, dni)
		h.single(w, u, err)
		return
	}

	users, err := h.service.List(r.Context(), h.role)
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, publicAll(users))
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var in UserInput
	if err := httpx.Decode(r, &in); err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	in.Role = string(h.role)
	u, err := h.service.Create(r.Context(), in)
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, u.Public())
}

func (h *Handler) handleReplaceAll(w http.ResponseWriter, r *http.Request) {
	var inputs []UserInput
	if err := httpx.Decode(r, &inputs); err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	if _, err := h.service.ReplaceAll(r.Context(), h.role, inputs); err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	users, err := h.service.List(r.Context(), h.role)
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, publicAll(users))
}

func (h *Handler) handleDeleteAll(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteAll(r.Context(), h.role); err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.OK)
}

func (h *Handler) handleAuthenticate(w http.ResponseWriter, r *http.Request) {
	var c Credentials
	if err := httpx.Decode(r, &c); err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	u, err := h.service.Authenticate(r.Context(), h.role, c.Email, c.Password)
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, u.Public())
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IntParam(r, "id")
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	u, err := h.service.Get(r.Context(), h.role, id)
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, u.Public())
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IntParam(r, "id")
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	var in UserInput
	if err := httpx.Decode(r, &in); err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	u, err := h.service.Update(r.Context(), h.role, id, in)
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, u.Public())
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IntParam(r, "id")
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	if err := h.service.Delete(r.Context(), h.role, id); err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.OK)
}

package roles

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pmws/pmws/internal/platform/httpx"
)

// Guard binds a role group to an authorization middleware.
type Guard func(Group) func(http.Handler) http.Handler

// Handler exposes role listing endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	guard   Guard
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, guard Guard) *Handler {
	return &Handler{logger: logger, service: service, guard: guard}
}

// MountRoutes registers role routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard(Everyone))
		r.Get("/roles", h.listRoles)
	})
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.ListRoles(r.Context())
	if err != nil {
		h.logger.Error("list roles failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if len(records) == 0 {
		httpx.Respond(w, http.StatusOK, "No user roles found", records)
		return
	}
	httpx.Respond(w, http.StatusOK, "All user roles retrieved successfully", records)
}

package users

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/pmws/pmws/internal/auth"
	"github.com/pmws/pmws/internal/platform/httpx"
	"github.com/pmws/pmws/internal/rbac"
	"github.com/pmws/pmws/internal/roles"
	"github.com/pmws/pmws/internal/shared"
)

// Handler manages user administration endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	guard     roles.Guard
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, guard roles.Guard) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, guard: guard, validator: httpx.NewValidator()}
}

// MountRoutes registers user routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.guard(roles.Staff)).Get("/", h.list(StatusAll))
	r.Group(func(r chi.Router) {
		r.Use(h.guard(roles.ManagementUp))
		r.Get("/pending", h.list(StatusPending))
		r.Get("/suspended", h.list(StatusSuspended))
		r.Get("/deleted", h.list(StatusDeleted))
		r.Post("/approve", h.change(h.service.Approve, ActionApprove, auth.MsgUserApproved))
		r.Post("/suspend", h.change(h.service.Suspend, ActionSuspend, auth.MsgUserSuspended))
		r.Delete("/delete", h.change(h.service.Delete, ActionDelete, auth.MsgUserDeleted))
	})
}

type statusRequest struct {
	UserID int64 `json:"userId" validate:"required,gt=0"`
}

func (h *Handler) list(status Status) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, err := h.service.List(r.Context(), status)
		if err != nil {
			shared.LoggerWithRequest(r.Context(), h.logger).Error("list users failed",
				slog.String("status", string(status)),
				slog.String("detail", shared.Detail(err)),
			)
			httpx.RespondError(w, err)
			return
		}
		if len(users) == 0 {
			httpx.Respond(w, http.StatusOK, "No users found", users)
			return
		}
		httpx.Respond(w, http.StatusOK, "All users retrieved successfully", users)
	}
}

func (h *Handler) change(apply func(ctx context.Context, actorID, accountID int64) error, action, okMsg string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req statusRequest
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.Fail(w, http.StatusBadRequest, "Malformed request body", map[string]string{"body": err.Error()})
			return
		}
		if err := h.validator.Struct(req); err != nil {
			httpx.RespondValidation(w, err)
			return
		}
		actor := rbac.ClaimsFromContext(r.Context())
		if actor == nil {
			httpx.RespondError(w, shared.NewError(shared.KindUnauthenticated, rbac.MsgNoTokenProvided, nil))
			return
		}
		if err := apply(r.Context(), actor.AccountID, req.UserID); err != nil {
			shared.LoggerWithRequest(r.Context(), h.logger).Warn("account status change failed",
				slog.String("action", action),
				slog.Int64("account_id", req.UserID),
				slog.String("detail", shared.Detail(err)),
			)
			httpx.RespondError(w, err)
			return
		}
		httpx.Respond(w, http.StatusOK, okMsg, map[string]int64{"userId": req.UserID})
	}
}

package auth

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"

	"github.com/pmws/pmws/internal/notify"
	"github.com/pmws/pmws/internal/platform/httpx"
	"github.com/pmws/pmws/internal/rbac"
	"github.com/pmws/pmws/internal/roles"
	"github.com/pmws/pmws/internal/shared"
)

// PlatformHeader names the client platform during the handshake.
const PlatformHeader = "X-Platform"

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	gate      rbac.Gate
	validator *validator.Validate
	rateLimit int
}

// NewHandler constructs a Handler instance. rateLimit caps requests per
// minute and client IP on the credential endpoints; zero disables it.
func NewHandler(logger *slog.Logger, service *Service, gate rbac.Gate, rateLimit int) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	v := httpx.NewValidator()
	v.RegisterStructValidation(validateSignupIdentifier, signupRequest{})
	return &Handler{
		logger:    logger,
		service:   service,
		gate:      gate,
		validator: v,
		rateLimit: rateLimit,
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handshake)
	r.Group(func(r chi.Router) {
		if h.rateLimit > 0 {
			r.Use(httprate.Limit(h.rateLimit, time.Minute,
				httprate.WithKeyFuncs(httprate.KeyByIP, httprate.KeyByEndpoint),
				httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
					httpx.Fail(w, http.StatusTooManyRequests, MsgTooManyAttempts, nil)
				}),
			))
		}
		r.Post("/login", h.login)
		r.Post("/signup", h.signup)
		r.Post("/password/reset", h.generateResetToken)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.gate.RequireReset())
		r.Post("/password/verify", h.verifyResetToken)
		r.Post("/password/update", h.resetPassword)
	})
}

type loginRequest struct {
	Username string `json:"username" validate:"required,email|numeric"`
	Password string `json:"password" validate:"required"`
}

type signupRequest struct {
	FirstName            string `json:"firstName" validate:"required"`
	LastName             string `json:"lastName" validate:"required"`
	IdentificationNumber string `json:"identificationNumber" validate:"required"`
	Username             string `json:"username" validate:"omitempty,email|numeric"`
	Password             string `json:"password" validate:"required,min=8"`
	UserRoleID           int    `json:"userRoleId" validate:"required"`
	ContactNumber        string `json:"contactNumber" validate:"required"`
	Email                string `json:"email" validate:"required,email"`
	IsApartment          *bool  `json:"isApartment"`
	Apartment            string `json:"apartment" validate:"required_if=IsApartment true"`
	Building             string `json:"building" validate:"required_if=IsApartment false"`
	Street               string `json:"street" validate:"required"`
	Region               string `json:"region" validate:"required"`
	City                 string `json:"city" validate:"required"`
	Country              string `json:"country" validate:"required"`
	IsForeigner          *bool  `json:"isForeigner" validate:"required"`
}

// validateSignupIdentifier requires a numeric identification number when it
// doubles as the login username, since logins accept only email or numeric
// identifiers.
func validateSignupIdentifier(sl validator.StructLevel) {
	req := sl.Current().Interface().(signupRequest)
	if strings.TrimSpace(req.Username) != "" {
		return
	}
	if sl.Validator().Var(req.IdentificationNumber, "numeric") != nil {
		sl.ReportError(req.IdentificationNumber, "identificationNumber", "IdentificationNumber", "numeric", "")
	}
}

type resetRequest struct {
	Username string `json:"username" validate:"required,email|numeric"`
	Channel  string `json:"channel" validate:"omitempty,oneof=email sms"`
}

type verifyRequest struct {
	ResetCode string `json:"resetCode" validate:"required,numeric,len=5"`
}

type updatePasswordRequest struct {
	ResetCode string `json:"resetCode" validate:"required,numeric,len=5"`
	Password  string `json:"password" validate:"required,min=8"`
}

func (h *Handler) handshake(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Handshake(r.Header.Get(PlatformHeader)); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.Respond(w, http.StatusOK, MsgConnectionAuthenticated, struct{}{})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.service.Login(r.Context(), req.Username, req.Password, r.Header.Get(PlatformHeader))
	if err != nil {
		h.fail(w, r, "login", err)
		return
	}
	httpx.Respond(w, http.StatusOK, MsgLoginSuccess, res)
}

func (h *Handler) signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !h.decode(w, r, &req) {
		return
	}
	in := SignupInput{
		Person: Person{
			FirstName:            req.FirstName,
			LastName:             req.LastName,
			IdentificationNumber: req.IdentificationNumber,
			ContactNumber:        req.ContactNumber,
			Email:                req.Email,
			IsApartment:          req.IsApartment != nil && *req.IsApartment,
			Apartment:            req.Apartment,
			Building:             req.Building,
			Street:               req.Street,
			Region:               req.Region,
			City:                 req.City,
			Country:              req.Country,
			IsForeigner:          *req.IsForeigner,
		},
		Username: req.Username,
		Password: req.Password,
		Role:     roles.Role(req.UserRoleID),
	}
	if _, err := h.service.Signup(r.Context(), in); err != nil {
		h.fail(w, r, "signup", err)
		return
	}
	httpx.Respond(w, http.StatusCreated, MsgSignupSuccess, struct{}{})
}

func (h *Handler) generateResetToken(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if !h.decode(w, r, &req) {
		return
	}
	channel, err := notify.ParseChannel(req.Channel)
	if err != nil {
		httpx.RespondError(w, shared.NewError(shared.KindValidation, "channel failed on oneof", err))
		return
	}
	issue, err := h.service.GenerateResetToken(r.Context(), req.Username, channel)
	if err != nil {
		h.fail(w, r, "generate reset token", err)
		return
	}
	httpx.Respond(w, http.StatusOK, MsgResetTokenIssued, issue)
}

func (h *Handler) verifyResetToken(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.service.VerifyResetToken(r.Context(), rbac.ResetClaimsFromContext(r.Context()), req.ResetCode); err != nil {
		h.fail(w, r, "verify reset token", err)
		return
	}
	httpx.Respond(w, http.StatusOK, MsgTokenVerified, struct{}{})
}

func (h *Handler) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req updatePasswordRequest
	if !h.decode(w, r, &req) {
		return
	}
	claims := rbac.ResetClaimsFromContext(r.Context())
	if err := h.service.ResetPassword(r.Context(), claims, req.ResetCode, req.Password); err != nil {
		h.fail(w, r, "reset password", err)
		return
	}
	httpx.Respond(w, http.StatusOK, MsgResetPasswordSuccess, struct{}{})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httpx.DecodeJSON(r, dst); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "Malformed request body", map[string]string{"body": err.Error()})
		return false
	}
	if err := h.validator.Struct(dst); err != nil {
		httpx.RespondValidation(w, err)
		return false
	}
	return true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	logger := shared.LoggerWithRequest(r.Context(), h.logger)
	kind := shared.KindOf(err)
	if httpx.StatusFor(kind) >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), op+" failed", slog.String("kind", string(kind)), slog.String("detail", shared.Detail(err)))
	} else {
		logger.InfoContext(r.Context(), op+" rejected", slog.String("kind", string(kind)))
	}
	httpx.RespondError(w, err)
}

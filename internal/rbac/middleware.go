// Package rbac guards HTTP handlers with role-group checks on bearer tokens.
package rbac

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/pmws/pmws/internal/platform/httpx"
	"github.com/pmws/pmws/internal/roles"
	"github.com/pmws/pmws/internal/shared"
	"github.com/pmws/pmws/internal/token"
)

// Gate messages.
const (
	MsgNoTokenProvided   = "No token provided"
	MsgTokenRejected     = "Failed to authenticate jwt token"
	MsgNotAuthorized     = "You are not authorized to perform this operation"
	decisionGranted      = "granted"
	decisionForbidden    = "forbidden"
	decisionUnauthorized = "unauthenticated"
)

// Verifier validates bearer tokens. It is satisfied by *token.Service.
type Verifier interface {
	VerifySession(raw string) (*token.SessionClaims, error)
	VerifyReset(raw string) (*token.ResetClaims, error)
}

// DecisionRecorder counts gate outcomes.
type DecisionRecorder interface {
	ObserveAuthDecision(group, outcome string)
}

// Gate authorizes requests carrying session or reset tokens.
type Gate struct {
	Tokens  Verifier
	Logger  *slog.Logger
	Metrics DecisionRecorder
}

// Check reports whether claims may access group. Admin passes every group.
func Check(claims *token.SessionClaims, group roles.Group) error {
	if claims == nil {
		return shared.NewError(shared.KindUnauthenticated, MsgNoTokenProvided, nil)
	}
	if !group.Allows(claims.Role) {
		return shared.NewError(shared.KindForbidden, MsgNotAuthorized, nil)
	}
	return nil
}

// Authorize returns middleware admitting session tokens whose role is in group.
func (g Gate) Authorize(group roles.Group) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := shared.LoggerWithRequest(r.Context(), g.logger()).With(
				slog.String("group", group.Name),
				slog.String("path", r.URL.Path),
			)

			raw := BearerToken(r)
			if raw == "" {
				g.deny(w, r, logger, group.Name, decisionUnauthorized, shared.NewError(shared.KindUnauthenticated, MsgNoTokenProvided, nil))
				return
			}
			claims, err := g.Tokens.VerifySession(raw)
			if err != nil {
				g.deny(w, r, logger, group.Name, decisionUnauthorized, shared.NewError(shared.KindUnauthenticated, MsgTokenRejected, err))
				return
			}
			if err := Check(claims, group); err != nil {
				logger = logger.With(slog.Int64("account_id", claims.AccountID), slog.String("role", claims.Role.String()))
				g.deny(w, r, logger, group.Name, decisionForbidden, err)
				return
			}

			g.record(group.Name, decisionGranted)
			logger.DebugContext(r.Context(), "access granted",
				slog.Int64("account_id", claims.AccountID),
				slog.String("role", claims.Role.String()),
			)
			next.ServeHTTP(w, r.WithContext(ContextWithClaims(r.Context(), claims)))
		})
	}
}

// Guard adapts Authorize to the roles.Guard signature.
func (g Gate) Guard() roles.Guard {
	return g.Authorize
}

// RequireReset returns middleware admitting a valid reset token and storing
// its claims on the request context.
func (g Gate) RequireReset() func(http.Handler) http.Handler {
	const group = "reset"
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := shared.LoggerWithRequest(r.Context(), g.logger()).With(
				slog.String("group", group),
				slog.String("path", r.URL.Path),
			)
			raw := BearerToken(r)
			if raw == "" {
				g.deny(w, r, logger, group, decisionUnauthorized, shared.NewError(shared.KindUnauthenticated, MsgNoTokenProvided, nil))
				return
			}
			claims, err := g.Tokens.VerifyReset(raw)
			if err != nil {
				g.deny(w, r, logger, group, decisionUnauthorized, shared.NewError(shared.KindUnauthenticated, MsgTokenRejected, err))
				return
			}
			g.record(group, decisionGranted)
			next.ServeHTTP(w, r.WithContext(ContextWithResetClaims(r.Context(), claims)))
		})
	}
}

// BearerToken extracts the token from the Authorization header. Both
// "Bearer <token>" and a bare token are accepted.
func BearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) >= 7 && strings.EqualFold(header[:7], "bearer ") {
		header = strings.TrimSpace(header[7:])
	}
	return header
}

func (g Gate) deny(w http.ResponseWriter, r *http.Request, logger *slog.Logger, group, outcome string, err error) {
	g.record(group, outcome)
	logger.InfoContext(r.Context(), "access denied", slog.String("outcome", outcome), slog.String("reason", shared.UserSafeMessage(err)))
	httpx.RespondError(w, err)
}

func (g Gate) record(group, outcome string) {
	if g.Metrics != nil {
		g.Metrics.ObserveAuthDecision(group, outcome)
	}
}

func (g Gate) logger() *slog.Logger {
	if g.Logger == nil {
		return slog.Default()
	}
	return g.Logger
}

type claimsKey struct{}

type resetClaimsKey struct{}

// ContextWithClaims stores verified session claims in ctx.
func ContextWithClaims(ctx context.Context, claims *token.SessionClaims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// ClaimsFromContext returns the session claims stored by Authorize.
func ClaimsFromContext(ctx context.Context) *token.SessionClaims {
	claims, _ := ctx.Value(claimsKey{}).(*token.SessionClaims)
	return claims
}

// ContextWithResetClaims stores verified reset claims in ctx.
func ContextWithResetClaims(ctx context.Context, claims *token.ResetClaims) context.Context {
	return context.WithValue(ctx, resetClaimsKey{}, claims)
}

// ResetClaimsFromContext returns the reset claims stored by RequireReset.
func ResetClaimsFromContext(ctx context.Context) *token.ResetClaims {
	claims, _ := ctx.Value(resetClaimsKey{}).(*token.ResetClaims)
	return claims
}

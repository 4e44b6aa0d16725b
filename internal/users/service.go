package users

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/pmws/pmws/internal/shared"
)

// Audit actions recorded for account status transitions.
const (
	ActionApprove = "account.approve"
	ActionSuspend = "account.suspend"
	ActionDelete  = "account.delete"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	ListByStatus(ctx context.Context, status Status) ([]Summary, error)
}

// StatusChanger applies account status transitions. It is satisfied by
// *auth.Service.
type StatusChanger interface {
	ApproveAccount(ctx context.Context, actorID, accountID int64) error
	SuspendAccount(ctx context.Context, actorID, accountID int64) error
	DeleteAccount(ctx context.Context, actorID, accountID int64) error
}

// AuditRecorder stores administrative actions.
type AuditRecorder interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service handles user administration.
type Service struct {
	repo     RepositoryPort
	accounts StatusChanger
	audit    AuditRecorder
	logger   *slog.Logger
}

// NewService builds Service instance. audit may be nil.
func NewService(repo RepositoryPort, accounts StatusChanger, audit AuditRecorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, accounts: accounts, audit: audit, logger: logger}
}

// List returns the accounts in status.
func (s *Service) List(ctx context.Context, status Status) ([]Summary, error) {
	users, err := s.repo.ListByStatus(ctx, status)
	if err != nil {
		return nil, shared.NewError(shared.KindInternal, "Failed to retrieve users", err)
	}
	if users == nil {
		users = []Summary{}
	}
	return users, nil
}

// Approve marks accountID approved on behalf of actorID.
func (s *Service) Approve(ctx context.Context, actorID, accountID int64) error {
	return s.apply(ctx, ActionApprove, s.accounts.ApproveAccount, actorID, accountID)
}

// Suspend marks accountID suspended on behalf of actorID.
func (s *Service) Suspend(ctx context.Context, actorID, accountID int64) error {
	return s.apply(ctx, ActionSuspend, s.accounts.SuspendAccount, actorID, accountID)
}

// Delete marks accountID deleted on behalf of actorID.
func (s *Service) Delete(ctx context.Context, actorID, accountID int64) error {
	return s.apply(ctx, ActionDelete, s.accounts.DeleteAccount, actorID, accountID)
}

// apply runs change and then records it. An audit failure is logged but
// does not undo the status change.
func (s *Service) apply(ctx context.Context, action string, change func(ctx context.Context, actorID, accountID int64) error, actorID, accountID int64) error {
	if err := change(ctx, actorID, accountID); err != nil {
		return err
	}
	if s.audit == nil {
		return nil
	}
	entry := shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "account",
		EntityID: strconv.FormatInt(accountID, 10),
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		shared.LoggerWithRequest(ctx, s.logger).Warn("audit record failed",
			slog.String("action", action),
			slog.Int64("account_id", accountID),
			slog.Any("error", err),
		)
	}
	return nil
}

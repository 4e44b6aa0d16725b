package roles

import (
	"context"
	"log/slog"
)

// RepositoryPort defines data access methods for roles.
type RepositoryPort interface {
	ListRoles(ctx context.Context) ([]Record, error)
}

// Service handles role business logic.
type Service struct {
	repo   RepositoryPort
	logger *slog.Logger
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// ListRoles returns the stored roles, or the built-in ranks when the table
// is empty or unreachable.
func (s *Service) ListRoles(ctx context.Context) ([]Record, error) {
	if s.repo != nil {
		records, err := s.repo.ListRoles(ctx)
		if err == nil && len(records) > 0 {
			return records, nil
		}
		if err != nil {
			s.logger.Warn("list roles fallback", slog.Any("error", err))
		}
	}
	records := make([]Record, 0, len(All()))
	for _, r := range All() {
		records = append(records, Record{ID: r, Name: r.String()})
	}
	return records, nil
}

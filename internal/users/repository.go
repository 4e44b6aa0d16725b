package users

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pmws/pmws/internal/roles"
)

var statusFilters = map[Status]string{
	StatusAll:       "NOT a.deleted",
	StatusPending:   "NOT a.deleted AND NOT a.approved AND NOT a.suspended",
	StatusSuspended: "NOT a.deleted AND a.suspended",
	StatusDeleted:   "a.deleted",
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListByStatus returns the accounts matching status ordered by id.
func (r *Repository) ListByStatus(ctx context.Context, status Status) ([]Summary, error) {
	filter, ok := statusFilters[status]
	if !ok {
		return nil, fmt.Errorf("users: unknown status %q", status)
	}
	rows, err := r.pool.Query(ctx, `SELECT a.id, a.username, p.first_name, p.last_name, p.email, p.contact_number,
			a.role_id, a.employee_role_id, a.approved, a.suspended, a.deleted, a.created_at, a.modified_at
		FROM accounts a JOIN persons p ON p.id = a.person_id
		WHERE `+filter+`
		ORDER BY a.id`)
	if err != nil {
		return nil, fmt.Errorf("users: list %s: %w", status, err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var (
			s      Summary
			roleID int
		)
		if err := rows.Scan(&s.AccountID, &s.Username, &s.FirstName, &s.LastName, &s.Email, &s.ContactNumber,
			&roleID, &s.EmployeeRoleID, &s.Approved, &s.Suspended, &s.Deleted, &s.CreatedAt, &s.ModifiedAt); err != nil {
			return nil, fmt.Errorf("users: scan: %w", err)
		}
		s.Role = roles.Role(roleID)
		out = append(out, s)
	}
	return out, rows.Err()
}

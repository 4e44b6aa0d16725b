package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pmws/pmws/internal/platform/db"
	"github.com/pmws/pmws/internal/roles"
	"github.com/pmws/pmws/internal/shared"
)

const accountColumns = `a.id, a.person_id, a.username, a.password_hash, a.role_id, a.employee_role_id,
	a.approved, a.suspended, a.deleted, a.reset_token, p.email, p.contact_number,
	a.created_at, a.modified_at`

// pgQueries implements Queries over a pool or a transaction.
type pgQueries struct {
	db db.DBTX
}

// PGRepository implements Store using PostgreSQL.
type PGRepository struct {
	pgQueries
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pgQueries: pgQueries{db: pool}, pool: pool}
}

// Begin starts a repeatable-read transaction.
func (r *PGRepository) Begin(ctx context.Context) (Tx, error) {
	tx, err := db.Begin(ctx, r.pool)
	if err != nil {
		return nil, err
	}
	return &pgTx{pgQueries: pgQueries{db: tx}, tx: tx}, nil
}

type pgTx struct {
	pgQueries
	tx pgx.Tx
}

func (t *pgTx) Commit(ctx context.Context) error   { return t.tx.Commit(ctx) }
func (t *pgTx) Rollback(ctx context.Context) error { return t.tx.Rollback(ctx) }

// FindAccountByIdentifier fetches the account whose login identifier matches.
func (q pgQueries) FindAccountByIdentifier(ctx context.Context, identifier string) (*Account, error) {
	return q.findOneAccount(ctx, `SELECT `+accountColumns+`
		FROM accounts a JOIN persons p ON p.id = a.person_id
		WHERE a.username = $1
		LIMIT 2`, identifier)
}

// FindAccountByID fetches an account by primary key.
func (q pgQueries) FindAccountByID(ctx context.Context, id int64) (*Account, error) {
	return q.findOneAccount(ctx, `SELECT `+accountColumns+`
		FROM accounts a JOIN persons p ON p.id = a.person_id
		WHERE a.id = $1`, id)
}

func (q pgQueries) findOneAccount(ctx context.Context, sql string, arg any) (*Account, error) {
	rows, err := q.db.Query(ctx, sql, arg)
	if err != nil {
		return nil, fmt.Errorf("auth: query account: %w", err)
	}
	defer rows.Close()

	var found []Account
	for rows.Next() {
		var (
			a      Account
			roleID int
		)
		if err := rows.Scan(
			&a.ID, &a.PersonID, &a.Username, &a.PasswordHash, &roleID, &a.EmployeeRoleID,
			&a.Approved, &a.Suspended, &a.Deleted, &a.ResetToken, &a.Email, &a.ContactNumber,
			&a.CreatedAt, &a.ModifiedAt,
		); err != nil {
			return nil, fmt.Errorf("auth: scan account: %w", err)
		}
		a.Role = roles.Role(roleID)
		found = append(found, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("auth: iterate accounts: %w", err)
	}
	switch len(found) {
	case 0:
		return nil, shared.ErrNotFound
	case 1:
		return &found[0], nil
	default:
		return nil, shared.ErrAmbiguousRecord
	}
}

// FindPersonByUniqueField fetches the person whose field equals value.
func (q pgQueries) FindPersonByUniqueField(ctx context.Context, field UniqueField, value string) (*Person, error) {
	switch field {
	case FieldEmail, FieldIdentificationNumber, FieldContactNumber:
	default:
		return nil, fmt.Errorf("auth: unsupported unique field %q", field)
	}
	rows, err := q.db.Query(ctx, `SELECT id, first_name, last_name, identification_number, contact_number, email, created_at
		FROM persons
		WHERE `+string(field)+` = $1
		LIMIT 2`, value)
	if err != nil {
		return nil, fmt.Errorf("auth: query person: %w", err)
	}
	defer rows.Close()

	var found []Person
	for rows.Next() {
		var p Person
		if err := rows.Scan(&p.ID, &p.FirstName, &p.LastName, &p.IdentificationNumber, &p.ContactNumber, &p.Email, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("auth: scan person: %w", err)
		}
		found = append(found, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("auth: iterate persons: %w", err)
	}
	switch len(found) {
	case 0:
		return nil, shared.ErrNotFound
	case 1:
		return &found[0], nil
	default:
		return nil, shared.ErrAmbiguousRecord
	}
}

// CreatePerson inserts a person row and returns its id.
func (q pgQueries) CreatePerson(ctx context.Context, p Person) (int64, error) {
	var id int64
	err := q.db.QueryRow(ctx, `INSERT INTO persons (
			first_name, last_name, identification_number, contact_number, email,
			is_apartment, apartment, building, street, region, city, country, is_foreigner
		) VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), NULLIF($8, ''), $9, $10, $11, $12, $13)
		RETURNING id`,
		p.FirstName, p.LastName, p.IdentificationNumber, p.ContactNumber, p.Email,
		p.IsApartment, p.Apartment, p.Building, p.Street, p.Region, p.City, p.Country, p.IsForeigner,
	).Scan(&id)
	if err != nil {
		return 0, wrapWriteErr("create person", err)
	}
	return id, nil
}

// CreateAccount inserts an account row and returns its id.
func (q pgQueries) CreateAccount(ctx context.Context, a NewAccount) (int64, error) {
	var id int64
	err := q.db.QueryRow(ctx, `INSERT INTO accounts (person_id, username, password_hash, role_id, created_by, modified_by)
		VALUES ($1, $2, $3, $4, $5, $5)
		RETURNING id`,
		a.PersonID, a.Username, a.PasswordHash, int(a.Role), a.CreatedBy,
	).Scan(&id)
	if err != nil {
		return 0, wrapWriteErr("create account", err)
	}
	return id, nil
}

// UpdateAccountFields applies the non-nil fields of update to one account.
func (q pgQueries) UpdateAccountFields(ctx context.Context, accountID int64, update AccountUpdate) error {
	if update.Empty() {
		return errors.New("auth: empty account update")
	}
	var (
		sets []string
		args []any
	)
	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, column+" = $"+strconv.Itoa(len(args)))
	}
	if update.PasswordHash != nil {
		set("password_hash", *update.PasswordHash)
	}
	switch {
	case update.ClearResetToken:
		sets = append(sets, "reset_token = NULL")
	case update.ResetToken != nil:
		set("reset_token", *update.ResetToken)
	}
	if update.Approved != nil {
		set("approved", *update.Approved)
	}
	if update.Suspended != nil {
		set("suspended", *update.Suspended)
	}
	if update.Deleted != nil {
		set("deleted", *update.Deleted)
	}
	set("modified_by", update.ModifiedBy)
	sets = append(sets, "modified_at = NOW()")
	args = append(args, accountID)
	where := "id = $" + strconv.Itoa(len(args))
	if update.ExpectResetToken != nil {
		args = append(args, *update.ExpectResetToken)
		where += " AND reset_token = $" + strconv.Itoa(len(args))
	}

	sql := "UPDATE accounts SET " + strings.Join(sets, ", ") + " WHERE " + where
	tag, err := q.db.Exec(ctx, sql, args...)
	if err != nil {
		return wrapWriteErr("update account", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func wrapWriteErr(op string, err error) error {
	if db.IsUniqueViolation(err) {
		return fmt.Errorf("auth: %s: %w: %v", op, shared.ErrDuplicate, err)
	}
	return fmt.Errorf("auth: %s: %w", op, err)
}

var _ Store = (*PGRepository)(nil)

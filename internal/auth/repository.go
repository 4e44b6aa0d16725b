package auth

import "context"

// Queries is the row-level contract of the credential store. Lookups return
// shared.ErrNotFound when nothing matches and shared.ErrAmbiguousRecord when
// more than one row matches.
type Queries interface {
	FindAccountByIdentifier(ctx context.Context, identifier string) (*Account, error)
	FindAccountByID(ctx context.Context, id int64) (*Account, error)
	FindPersonByUniqueField(ctx context.Context, field UniqueField, value string) (*Person, error)
	CreatePerson(ctx context.Context, person Person) (int64, error)
	CreateAccount(ctx context.Context, account NewAccount) (int64, error)
	// UpdateAccountFields returns shared.ErrNotFound when no row was changed.
	UpdateAccountFields(ctx context.Context, accountID int64, update AccountUpdate) error
}

// Tx is a store transaction. Exactly one of Commit or Rollback must be called.
type Tx interface {
	Queries
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Store is the credential store. Calls made directly on the Store run in
// their own implicit transaction.
type Store interface {
	Queries
	Begin(ctx context.Context) (Tx, error)
}

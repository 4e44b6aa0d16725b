package auth_test

import (
	"context"
	"errors"
	"maps"
	"sync"

	"github.com/pmws/pmws/internal/auth"
	"github.com/pmws/pmws/internal/shared"
)

// memData is an in-memory credential table set.
type memData struct {
	persons    map[int64]auth.Person
	accounts   map[int64]auth.Account
	nextPerson int64
	nextAcct   int64
	faults     *faults
}

func (d *memData) clone() *memData {
	return &memData{
		persons:    maps.Clone(d.persons),
		accounts:   maps.Clone(d.accounts),
		nextPerson: d.nextPerson,
		nextAcct:   d.nextAcct,
		faults:     d.faults,
	}
}

// faults injects failures into store calls.
type faults struct {
	begin error
	// beforeBegin runs against the committed data before a transaction
	// takes its snapshot.
	beforeBegin   func(d *memData)
	createPerson  error
	createAccount error
	commit        error
	// update is consulted before every UpdateAccountFields call.
	update func(update auth.AccountUpdate) error
}

func (d *memData) FindAccountByIdentifier(_ context.Context, identifier string) (*auth.Account, error) {
	var found []auth.Account
	for _, a := range d.accounts {
		if a.Username == identifier {
			found = append(found, a)
		}
	}
	switch len(found) {
	case 0:
		return nil, shared.ErrNotFound
	case 1:
		return d.joined(found[0]), nil
	default:
		return nil, shared.ErrAmbiguousRecord
	}
}

func (d *memData) FindAccountByID(_ context.Context, id int64) (*auth.Account, error) {
	a, ok := d.accounts[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return d.joined(a), nil
}

func (d *memData) joined(a auth.Account) *auth.Account {
	p := d.persons[a.PersonID]
	a.Email = p.Email
	a.ContactNumber = p.ContactNumber
	if a.ResetToken != nil {
		v := *a.ResetToken
		a.ResetToken = &v
	}
	return &a
}

func (d *memData) FindPersonByUniqueField(_ context.Context, field auth.UniqueField, value string) (*auth.Person, error) {
	var found []auth.Person
	for _, p := range d.persons {
		var v string
		switch field {
		case auth.FieldEmail:
			v = p.Email
		case auth.FieldIdentificationNumber:
			v = p.IdentificationNumber
		case auth.FieldContactNumber:
			v = p.ContactNumber
		}
		if v == value {
			found = append(found, p)
		}
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

func (d *memData) CreatePerson(_ context.Context, p auth.Person) (int64, error) {
	if d.faults.createPerson != nil {
		return 0, d.faults.createPerson
	}
	d.nextPerson++
	p.ID = d.nextPerson
	d.persons[p.ID] = p
	return p.ID, nil
}

func (d *memData) CreateAccount(_ context.Context, a auth.NewAccount) (int64, error) {
	if d.faults.createAccount != nil {
		return 0, d.faults.createAccount
	}
	for _, existing := range d.accounts {
		if existing.Username == a.Username {
			return 0, shared.ErrDuplicate
		}
	}
	d.nextAcct++
	d.accounts[d.nextAcct] = auth.Account{
		ID:           d.nextAcct,
		PersonID:     a.PersonID,
		Username:     a.Username,
		PasswordHash: a.PasswordHash,
		Role:         a.Role,
	}
	return d.nextAcct, nil
}

func (d *memData) UpdateAccountFields(_ context.Context, id int64, u auth.AccountUpdate) error {
	if d.faults.update != nil {
		if err := d.faults.update(u); err != nil {
			return err
		}
	}
	a, ok := d.accounts[id]
	if !ok {
		return shared.ErrNotFound
	}
	if u.ExpectResetToken != nil && (a.ResetToken == nil || *a.ResetToken != *u.ExpectResetToken) {
		return shared.ErrNotFound
	}
	if u.PasswordHash != nil {
		a.PasswordHash = *u.PasswordHash
	}
	switch {
	case u.ClearResetToken:
		a.ResetToken = nil
	case u.ResetToken != nil:
		v := *u.ResetToken
		a.ResetToken = &v
	}
	if u.Approved != nil {
		a.Approved = *u.Approved
	}
	if u.Suspended != nil {
		a.Suspended = *u.Suspended
	}
	if u.Deleted != nil {
		a.Deleted = *u.Deleted
	}
	d.accounts[id] = a
	return nil
}

// memStore is a transactional in-memory auth.Store. A transaction works on
// a snapshot that replaces the committed data on Commit.
type memStore struct {
	mu sync.Mutex
	*memData
	faults    faults
	begins    int
	commits   int
	rollbacks int
}

func newMemStore() *memStore {
	s := &memStore{}
	s.memData = &memData{
		persons:  map[int64]auth.Person{},
		accounts: map[int64]auth.Account{},
		faults:   &s.faults,
	}
	return s
}

func (s *memStore) Begin(context.Context) (auth.Tx, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.faults.begin != nil {
		return nil, s.faults.begin
	}
	if s.faults.beforeBegin != nil {
		s.faults.beforeBegin(s.memData)
	}
	s.begins++
	return &memTx{memData: s.memData.clone(), store: s}, nil
}

// seed inserts a person and account directly and returns the account id.
func (s *memStore) seed(p auth.Person, a auth.Account) int64 {
	s.nextPerson++
	p.ID = s.nextPerson
	s.persons[p.ID] = p
	s.nextAcct++
	a.ID = s.nextAcct
	a.PersonID = p.ID
	s.accounts[a.ID] = a
	return a.ID
}

func (s *memStore) account(id int64) auth.Account {
	return s.accounts[id]
}

type memTx struct {
	*memData
	store *memStore
	done  bool
}

var errTxDone = errors.New("transaction already closed")

func (t *memTx) Commit(context.Context) error {
	if t.done {
		return errTxDone
	}
	t.done = true
	if t.store.faults.commit != nil {
		return t.store.faults.commit
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	t.store.memData.persons = t.persons
	t.store.memData.accounts = t.accounts
	t.store.memData.nextPerson = t.nextPerson
	t.store.memData.nextAcct = t.nextAcct
	t.store.commits++
	return nil
}

func (t *memTx) Rollback(context.Context) error {
	if t.done {
		return errTxDone
	}
	t.done = true
	t.store.mu.Lock()
	t.store.rollbacks++
	t.store.mu.Unlock()
	return nil
}

var (
	_ auth.Store = (*memStore)(nil)
	_ auth.Tx    = (*memTx)(nil)
)

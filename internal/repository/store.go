package repository

import (
	"context"
	"time"

	"givto/internal/database"
)

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

// Store is the persistence gateway: typed access to users, groups and invites
// bound to either the connection pool or a single transaction.
type Store struct {
	root *database.DB
	tx   *database.Tx

	Users   *UserRepository
	Groups  *GroupRepository
	Invites *InviteRepository
}

// NewStore creates a store bound to the connection pool
func NewStore(db *database.DB) *Store {
	return bind(db, nil, db)
}

func bind(root *database.DB, tx *database.Tx, conn database.DBTX) *Store {
	return &Store{
		root:    root,
		tx:      tx,
		Users:   NewUserRepository(conn),
		Groups:  NewGroupRepository(conn),
		Invites: NewInviteRepository(conn),
	}
}

// DB returns the underlying connection pool
func (s *Store) DB() *database.DB {
	return s.root
}

// WithTx runs fn against a store bound to one transaction. Calls made on a
// store that is already transactional reuse the open transaction.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Store) error) error {
	if s.tx != nil {
		return fn(s)
	}
	return s.root.WithTx(ctx, func(tx *database.Tx) error {
		return fn(bind(s.root, tx, tx))
	})
}

// utc normalizes timestamps before they are written so every dialect stores the same instant
func utc(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB is the querying surface shared by *pgxpool.Pool and pgx.Tx, so every
// repository works both standalone and inside a unit of work.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repositories bundles every repository over one DB handle. Inside a
// transaction the bundle shares the pgx.Tx, so multi-row mutations and
// their audit messages commit or roll back together.
type Repositories struct {
	Tenants      TenantRepository
	Users        UserRepository
	Tickets      TicketRepository
	Messages     MessageRepository
	Participants ParticipantRepository
	SecureKeys   SecureKeyRepository
	Settings     SettingsRepository
}

// NewRepositories constructs the bundle over the given handle.
func NewRepositories(db DB) *Repositories {
	return &Repositories{
		Tenants:      NewTenantRepository(db),
		Users:        NewUserRepository(db),
		Tickets:      NewTicketRepository(db),
		Messages:     NewMessageRepository(db),
		Participants: NewParticipantRepository(db),
		SecureKeys:   NewSecureKeyRepository(db),
		Settings:     NewSettingsRepository(db),
	}
}

// UnitOfWork runs mutating operations inside one transaction.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(r *Repositories) error) error
}

type pgxUnitOfWork struct {
	pool *pgxpool.Pool
}

// NewUnitOfWork builds a pool-backed UnitOfWork.
func NewUnitOfWork(pool *pgxpool.Pool) UnitOfWork {
	return &pgxUnitOfWork{pool: pool}
}

func (u *pgxUnitOfWork) WithinTx(ctx context.Context, fn func(r *Repositories) error) error {
	return pgx.BeginFunc(ctx, u.pool, func(tx pgx.Tx) error {
		return fn(NewRepositories(tx))
	})
}

package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// SecureKeyRepository persists encrypted ticket secrets. Values are
// ciphertext at rest; decryption happens in the vault, never here.
type SecureKeyRepository interface {
	Create(ctx context.Context, key *domain.SecureKey) error
	GetByID(ctx context.Context, id string) (*domain.SecureKey, error)
	ListByTicket(ctx context.Context, ticketID string) ([]domain.SecureKey, error)
	Delete(ctx context.Context, id string) error
}

type secureKeyRepository struct {
	db DB
}

// NewSecureKeyRepository instantiates repository.
func NewSecureKeyRepository(db DB) SecureKeyRepository {
	return &secureKeyRepository{db: db}
}

func (r *secureKeyRepository) Create(ctx context.Context, key *domain.SecureKey) error {
	const query = `
        INSERT INTO secure_keys (ticket_id, message_id, label, encrypted_value, iv, created_by)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	return r.db.QueryRow(ctx, query,
		key.TicketID,
		key.MessageID,
		key.Label,
		key.EncryptedValue,
		key.IV,
		key.CreatedBy,
	).Scan(&key.ID, &key.CreatedAt)
}

func (r *secureKeyRepository) GetByID(ctx context.Context, id string) (*domain.SecureKey, error) {
	const query = `
        SELECT id, ticket_id, message_id, label, encrypted_value, iv, created_by, created_at
        FROM secure_keys WHERE id=$1`
	var key domain.SecureKey
	if err := r.db.QueryRow(ctx, query, id).Scan(
		&key.ID,
		&key.TicketID,
		&key.MessageID,
		&key.Label,
		&key.EncryptedValue,
		&key.IV,
		&key.CreatedBy,
		&key.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &key, nil
}

func (r *secureKeyRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.SecureKey, error) {
	const query = `
        SELECT id, ticket_id, message_id, label, encrypted_value, iv, created_by, created_at
        FROM secure_keys WHERE ticket_id=$1 ORDER BY created_at`
	rows, err := r.db.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.SecureKey
	for rows.Next() {
		var key domain.SecureKey
		if err := rows.Scan(
			&key.ID,
			&key.TicketID,
			&key.MessageID,
			&key.Label,
			&key.EncryptedValue,
			&key.IV,
			&key.CreatedBy,
			&key.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, key)
	}
	return result, rows.Err()
}

func (r *secureKeyRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM secure_keys WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

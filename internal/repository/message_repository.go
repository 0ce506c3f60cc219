package repository

import (
	"context"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// MessageRepository persists the append-only ticket thread. Messages are
// never updated or deleted individually; DeleteByUser exists only for the
// hard-delete cascade of a zero-ticket account.
type MessageRepository interface {
	Create(ctx context.Context, message *domain.Message) error
	ListByTicket(ctx context.Context, ticketID string, includeInternal bool) ([]domain.Message, error)
	DeleteByUser(ctx context.Context, userID string) error
}

type messageRepository struct {
	db DB
}

// NewMessageRepository instantiates repository.
func NewMessageRepository(db DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(ctx context.Context, message *domain.Message) error {
	const query = `
        INSERT INTO messages (ticket_id, user_id, content, is_internal)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	return r.db.QueryRow(ctx, query,
		message.TicketID,
		message.UserID,
		message.Content,
		message.IsInternal,
	).Scan(&message.ID, &message.CreatedAt)
}

func (r *messageRepository) ListByTicket(ctx context.Context, ticketID string, includeInternal bool) ([]domain.Message, error) {
	query := `
        SELECT id, ticket_id, user_id, content, is_internal, created_at
        FROM messages WHERE ticket_id=$1`
	if !includeInternal {
		query += ` AND is_internal=FALSE`
	}
	query += ` ORDER BY created_at`

	rows, err := r.db.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Message
	for rows.Next() {
		var msg domain.Message
		if err := rows.Scan(
			&msg.ID,
			&msg.TicketID,
			&msg.UserID,
			&msg.Content,
			&msg.IsInternal,
			&msg.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, msg)
	}
	return result, rows.Err()
}

func (r *messageRepository) DeleteByUser(ctx context.Context, userID string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM messages WHERE user_id=$1`, userID)
	return err
}

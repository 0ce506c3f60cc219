package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// ParticipantRepository persists ticket participant grants, unique per
// (ticket, user).
type ParticipantRepository interface {
	Add(ctx context.Context, participant *domain.TicketParticipant) error
	Remove(ctx context.Context, ticketID, userID string) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketParticipant, error)
	Exists(ctx context.Context, ticketID, userID string) (bool, error)
	DeleteByUser(ctx context.Context, userID string) error
}

type participantRepository struct {
	db DB
}

// NewParticipantRepository instantiates repository.
func NewParticipantRepository(db DB) ParticipantRepository {
	return &participantRepository{db: db}
}

func (r *participantRepository) Add(ctx context.Context, participant *domain.TicketParticipant) error {
	const query = `
        INSERT INTO ticket_participants (ticket_id, user_id, added_by)
        VALUES ($1,$2,$3)
        ON CONFLICT (ticket_id, user_id) DO NOTHING
        RETURNING id, created_at`
	err := r.db.QueryRow(ctx, query,
		participant.TicketID,
		participant.UserID,
		participant.AddedBy,
	).Scan(&participant.ID, &participant.CreatedAt)
	if err == pgx.ErrNoRows {
		// already a participant; not an error
		return nil
	}
	return err
}

func (r *participantRepository) Remove(ctx context.Context, ticketID, userID string) error {
	cmd, err := r.db.Exec(ctx,
		`DELETE FROM ticket_participants WHERE ticket_id=$1 AND user_id=$2`, ticketID, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *participantRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketParticipant, error) {
	const query = `
        SELECT id, ticket_id, user_id, added_by, created_at
        FROM ticket_participants WHERE ticket_id=$1 ORDER BY created_at`
	rows, err := r.db.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketParticipant
	for rows.Next() {
		var p domain.TicketParticipant
		if err := rows.Scan(&p.ID, &p.TicketID, &p.UserID, &p.AddedBy, &p.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func (r *participantRepository) Exists(ctx context.Context, ticketID, userID string) (bool, error) {
	const query = `SELECT EXISTS(
        SELECT 1 FROM ticket_participants WHERE ticket_id=$1 AND user_id=$2)`
	var exists bool
	err := r.db.QueryRow(ctx, query, ticketID, userID).Scan(&exists)
	return exists, err
}

func (r *participantRepository) DeleteByUser(ctx context.Context, userID string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM ticket_participants WHERE user_id=$1`, userID)
	return err
}

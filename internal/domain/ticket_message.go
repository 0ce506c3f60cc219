package domain

import "time"

// Message is an append-only entry in a ticket's thread. Internal messages
// are visible only to internal-team roles. System-authored audit entries
// are stored as internal messages with the acting user as author.
type Message struct {
	ID         string
	TicketID   string
	UserID     string
	Content    string
	IsInternal bool
	CreatedAt  time.Time
}

// TicketParticipant grants a user message and secure-key visibility on a
// ticket without ownership. Unique per (ticket, user).
type TicketParticipant struct {
	ID        string
	TicketID  string
	UserID    string
	AddedBy   string
	CreatedAt time.Time
}

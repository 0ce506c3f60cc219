package domain

import "time"

// SecureKey is an encrypted secret attached to a ticket, optionally tied
// to the message it was posted with. The value is opaque ciphertext at
// rest and is decrypted only on an authorized read.
type SecureKey struct {
	ID             string
	TicketID       string
	MessageID      *string
	Label          string
	EncryptedValue string
	IV             string
	CreatedBy      string
	CreatedAt      time.Time
}

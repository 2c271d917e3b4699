package notification

import (
	"time"

	"github.com/google/uuid"
)

// Notification is a stored message for a single recipient. The message
// is rendered at emit time; the row only records who gets it, what it
// says, and whether they have seen it.
type Notification struct {
	ID          uuid.UUID `json:"id"`
	RecipientID uuid.UUID `json:"recipient_id"`
	Message     string    `json:"message"`
	Read        bool      `json:"read"`
	CreatedAt   time.Time `json:"created_at"`
}

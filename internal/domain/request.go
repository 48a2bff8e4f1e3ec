package domain

import (
	"time"

	"github.com/google/uuid"
)

type RequestStatus string

const (
	RequestPending   RequestStatus = "pending"
	RequestAccepted  RequestStatus = "accepted"
	RequestDeclined  RequestStatus = "declined"
	RequestWithdrawn RequestStatus = "withdrawn"
	RequestBlocked   RequestStatus = "blocked"
)

// Terminal reports whether the status permits no further transitions.
// Everything except pending is terminal.
func (s RequestStatus) Terminal() bool {
	return s != RequestPending
}

// MaxRequestMessageLen bounds the introduction message on a contact request.
const MaxRequestMessageLen = 200

type ContactRequest struct {
	ID         uuid.UUID     `json:"id"`
	SenderID   uuid.UUID     `json:"sender_id"`
	ReceiverID uuid.UUID     `json:"receiver_id"`
	Message    string        `json:"message"`
	Status     RequestStatus `json:"status"`
	CreatedAt  time.Time     `json:"created_at"`
}

package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Presence is the user's signal state as shown to contacts.
type Presence string

const (
	PresenceActiveSignal Presence = "active_signal"
	PresenceStandby      Presence = "standby"
	PresenceCloaked      Presence = "cloaked"
	PresenceOffline      Presence = "offline"
)

// AccountStatus tracks the lifecycle of the account itself.
type AccountStatus string

const (
	AccountPending   AccountStatus = "pending"
	AccountActive    AccountStatus = "active"
	AccountSuspended AccountStatus = "suspended"
)

type User struct {
	ID            uuid.UUID `json:"id"`
	Email         string    `json:"email"`
	EmailVerified bool      `json:"email_verified"`
	// Username is fixed at account creation and never mutated afterward.
	Username            string        `json:"username"`
	DisplayName         string        `json:"display_name"`
	AvatarURL           string        `json:"avatar_url,omitempty"`
	Status              Presence      `json:"status"`
	AccountStatus       AccountStatus `json:"account_status"`
	About               string        `json:"about,omitempty"`
	ReadReceiptsEnabled bool          `json:"read_receipts_enabled"`
	CreatedAt           time.Time     `json:"created_at"`
}

// SameUsername compares usernames case-insensitively.
func (u *User) SameUsername(username string) bool {
	return strings.EqualFold(u.Username, username)
}

package trust

import (
	"fmt"
	"net/url"

	"contextguard/internal/models"

	"github.com/google/uuid"
)

// Notification is the payload handed to the email collaborator when a new or
// still-pending suspicious context needs user action. Duplicate dispatch on
// retry is acceptable; the callback handlers are idempotent.
type Notification struct {
	RecordID    uuid.UUID
	Email       string
	ApproveLink string
	BlockLink   string
}

// Dispatcher builds verification notifications. Delivery belongs to the
// email service.
type Dispatcher struct {
	appURL string
}

func NewDispatcher(appURL string) *Dispatcher {
	return &Dispatcher{appURL: appURL}
}

// Build creates the approve/block action links for a ledger record. Links are
// single-use in effect: once the record leaves its pending state the
// callbacks become no-ops.
func (d *Dispatcher) Build(rec *models.SuspiciousLogin) Notification {
	query := url.Values{}
	query.Set("id", rec.ID.String())
	query.Set("email", rec.Email)
	encoded := query.Encode()

	return Notification{
		RecordID:    rec.ID,
		Email:       rec.Email,
		ApproveLink: fmt.Sprintf("%s/api/v1/auth/verify/login?%s", d.appURL, encoded),
		BlockLink:   fmt.Sprintf("%s/api/v1/auth/verify/block?%s", d.appURL, encoded),
	}
}

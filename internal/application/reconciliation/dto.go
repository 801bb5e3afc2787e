package reconciliation

import (
	"github.com/google/uuid"

	"github.com/printcore/backend/internal/domain/pod"
)

// WebhookResult reports what a delivery did to the order
type WebhookResult struct {
	OrderID uuid.UUID `json:"order_id"`
	Status  string    `json:"status"`
	// Changed is true when the delivery advanced the order
	Changed bool `json:"changed"`
	// Duplicate is true when the delivery's event ID was seen before
	Duplicate bool `json:"duplicate"`
}

func newWebhookResult(order *pod.PrintOrder, changed, duplicate bool) WebhookResult {
	return WebhookResult{
		OrderID:   order.ID,
		Status:    order.Status.String(),
		Changed:   changed,
		Duplicate: duplicate,
	}
}

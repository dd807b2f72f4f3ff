package course

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Gateway event processing outcomes
const (
	EventOutcomeApplied   = "APPLIED"
	EventOutcomeDuplicate = "DUPLICATE"
	EventOutcomeIgnored   = "IGNORED"
	EventOutcomeFailed    = "FAILED"
)

// PaymentGatewayEvent is an append-only audit log of webhook deliveries
// consumed from the payment provider. Reconciliation stays idempotent on its
// own; this log only records what arrived and what happened to it.
type PaymentGatewayEvent struct {
	gorm.Model
	SessionID       string         `json:"session_id" gorm:"index;not null"`
	EventKind       string         `json:"event_kind" gorm:"type:varchar(50)"`
	PaymentIntentID string         `json:"payment_intent_id"`
	EnrollmentID    uint           `json:"enrollment_id" gorm:"index"`
	Outcome         string         `json:"outcome" gorm:"type:varchar(20)"`
	Payload         datatypes.JSON `json:"payload"`
}

func (PaymentGatewayEvent) TableName() string {
	return "payment_gateway_events"
}

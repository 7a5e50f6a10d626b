// internal/models/purchase_order.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// PurchaseOrder groups the tickets and addons created in a single checkout.
// Payment platform fields are populated by the payment collaborator; this
// core consumes them but never computes them.
type PurchaseOrder struct {
	BaseModel
	UserID                     uuid.UUID                  `json:"user_id" gorm:"type:uuid;not null;index"`
	Status                     PurchaseOrderStatus        `json:"status" gorm:"type:varchar(20);default:'open';index"`
	PaymentStatus              PurchaseOrderPaymentStatus `json:"payment_status" gorm:"type:varchar(20);default:'unpaid';index"`
	PaymentPlatform            PaymentPlatform            `json:"payment_platform" gorm:"type:varchar(20);default:'none'"`
	PaymentPlatformReferenceID string                     `json:"payment_platform_reference_id,omitempty" gorm:"size:255"`
	PaymentLink                string                     `json:"payment_link,omitempty" gorm:"size:1000"`
	CurrencyID                 *uuid.UUID                 `json:"currency_id" gorm:"type:uuid"`
	TotalPriceInCents          int64                      `json:"total_price_in_cents" gorm:"default:0"`
	PaidAt                     *time.Time                 `json:"paid_at"`

	// Relationships
	User        User              `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Currency    *AllowedCurrency  `json:"currency,omitempty" gorm:"foreignKey:CurrencyID"`
	UserTickets []UserTicket      `json:"user_tickets,omitempty" gorm:"foreignKey:PurchaseOrderID"`
	Addons      []UserTicketAddon `json:"addons,omitempty" gorm:"foreignKey:PurchaseOrderID"`
}

func (o *PurchaseOrder) RequiresPayment() bool {
	return o.PaymentStatus == PurchaseOrderPaymentStatusUnpaid
}

type AuditLog struct {
	BaseModel
	UserID       *uuid.UUID `json:"user_id" gorm:"type:uuid;index"`
	Action       string     `json:"action" gorm:"size:255;not null"`
	ResourceType string     `json:"resource_type" gorm:"size:50;index"`
	ResourceID   *uuid.UUID `json:"resource_id" gorm:"type:uuid"`
	IPAddress    string     `json:"ip_address" gorm:"size:45"`
	UserAgent    string     `json:"user_agent" gorm:"size:500"`
	NewValues    JSONB      `json:"new_values,omitempty" gorm:"type:jsonb"`
}

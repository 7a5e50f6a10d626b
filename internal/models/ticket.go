// internal/models/ticket.go
package models

import (
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// TicketTemplate describes a purchasable ticket type for an event. Quantity
// is the total number of units that may ever be allocated; nil means
// unlimited.
type TicketTemplate struct {
	BaseModel
	EventID           uuid.UUID                `json:"event_id" gorm:"type:uuid;not null;index"`
	Name              string                   `json:"name" gorm:"size:200;not null"`
	Description       string                   `json:"description" gorm:"type:text"`
	Quantity          *int                     `json:"quantity"`
	IsFree            bool                     `json:"is_free" gorm:"default:false"`
	Status            TicketTemplateStatus     `json:"status" gorm:"type:varchar(20);default:'inactive';index"`
	Visibility        TicketTemplateVisibility `json:"visibility" gorm:"type:varchar(20);default:'public'"`
	RequiresApproval  bool                     `json:"requires_approval" gorm:"default:false"`
	MaxTicketsPerUser *int                     `json:"max_tickets_per_user"`
	Tags              pq.StringArray           `json:"tags" gorm:"type:text[]"`

	// Relationships
	Event        Event            `json:"event,omitempty" gorm:"foreignKey:EventID"`
	Prices       []TicketPrice    `json:"prices,omitempty" gorm:"foreignKey:TicketTemplateID"`
	TicketAddons []TicketAddon    `json:"ticket_addons,omitempty" gorm:"foreignKey:TicketTemplateID"`
	UserTickets  []UserTicket     `json:"user_tickets,omitempty" gorm:"foreignKey:TicketTemplateID"`
}

func (t *TicketTemplate) IsUnlimited() bool {
	return t.Quantity == nil
}

type TicketPrice struct {
	BaseModel
	TicketTemplateID uuid.UUID `json:"ticket_template_id" gorm:"type:uuid;not null;uniqueIndex:idx_ticket_currency"`
	CurrencyID       uuid.UUID `json:"currency_id" gorm:"type:uuid;not null;uniqueIndex:idx_ticket_currency"`
	PriceInCents     int64     `json:"price_in_cents" gorm:"not null"`

	// Relationships
	Currency AllowedCurrency `json:"currency,omitempty" gorm:"foreignKey:CurrencyID"`
}

// UserTicket is one allocated unit of a ticket template. Rows are never
// deleted; lifecycle is tracked through ApprovalStatus.
type UserTicket struct {
	BaseModel
	TicketTemplateID uuid.UUID              `json:"ticket_template_id" gorm:"type:uuid;not null;index"`
	UserID           uuid.UUID              `json:"user_id" gorm:"type:uuid;not null;index"`
	PurchaseOrderID  uuid.UUID              `json:"purchase_order_id" gorm:"type:uuid;not null;index"`
	ApprovalStatus   TicketApprovalStatus   `json:"approval_status" gorm:"type:varchar(20);default:'pending';index"`
	RedemptionStatus TicketRedemptionStatus `json:"redemption_status" gorm:"type:varchar(20);default:'pending'"`

	// Relationships
	TicketTemplate TicketTemplate    `json:"ticket_template,omitempty" gorm:"foreignKey:TicketTemplateID"`
	User           User              `json:"user,omitempty" gorm:"foreignKey:UserID"`
	PurchaseOrder  PurchaseOrder     `json:"purchase_order,omitempty" gorm:"foreignKey:PurchaseOrderID"`
	Addons         []UserTicketAddon `json:"addons,omitempty" gorm:"foreignKey:UserTicketID"`
}

// IsApproved reports whether the ticket may receive addon claims.
func (t *UserTicket) IsApproved() bool {
	return t.ApprovalStatus == TicketApprovalStatusApproved ||
		t.ApprovalStatus == TicketApprovalStatusNotRequired
}

func (t *UserTicket) HoldsStock() bool {
	for _, status := range TicketStockHoldingStatuses {
		if t.ApprovalStatus == status {
			return true
		}
	}
	return false
}

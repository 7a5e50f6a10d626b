// internal/models/addon.go
package models

import (
	"github.com/google/uuid"
)

// Addon is an extra purchasable against a ticket. TotalStock nil or
// IsUnlimited means no global cap; MaxPerTicket nil means no per-ticket cap.
type Addon struct {
	BaseModel
	EventID      uuid.UUID `json:"event_id" gorm:"type:uuid;not null;index"`
	Name         string    `json:"name" gorm:"size:200;not null"`
	Description  string    `json:"description" gorm:"type:text"`
	TotalStock   *int      `json:"total_stock"`
	MaxPerTicket *int      `json:"max_per_ticket"`
	IsUnlimited  bool      `json:"is_unlimited" gorm:"default:false"`
	IsFree       bool      `json:"is_free" gorm:"default:false"`

	// Relationships
	Event       Event             `json:"event,omitempty" gorm:"foreignKey:EventID"`
	Prices      []AddonPrice      `json:"prices,omitempty" gorm:"foreignKey:AddonID"`
	Constraints []AddonConstraint `json:"constraints,omitempty" gorm:"foreignKey:AddonID"`
}

func (a *Addon) HasUnlimitedStock() bool {
	return a.IsUnlimited || a.TotalStock == nil
}

// PriceForCurrency returns the unit price in cents for a currency, or false
// when the addon is not sold in that currency.
func (a *Addon) PriceForCurrency(currencyID uuid.UUID) (int64, bool) {
	for _, price := range a.Prices {
		if price.CurrencyID == currencyID {
			return price.PriceInCents, true
		}
	}
	return 0, false
}

type AddonPrice struct {
	BaseModel
	AddonID      uuid.UUID `json:"addon_id" gorm:"type:uuid;not null;uniqueIndex:idx_addon_currency"`
	CurrencyID   uuid.UUID `json:"currency_id" gorm:"type:uuid;not null;uniqueIndex:idx_addon_currency"`
	PriceInCents int64     `json:"price_in_cents" gorm:"not null"`

	// Relationships
	Currency AllowedCurrency `json:"currency,omitempty" gorm:"foreignKey:CurrencyID"`
}

// TicketAddon attaches an addon to a ticket template. Constraint edges are
// only meaningful between addons attached to the same template.
type TicketAddon struct {
	BaseModel
	TicketTemplateID uuid.UUID `json:"ticket_template_id" gorm:"type:uuid;not null;uniqueIndex:idx_template_addon"`
	AddonID          uuid.UUID `json:"addon_id" gorm:"type:uuid;not null;uniqueIndex:idx_template_addon"`
	OrderDisplay     int       `json:"order_display" gorm:"default:0"`

	// Relationships
	TicketTemplate TicketTemplate `json:"ticket_template,omitempty" gorm:"foreignKey:TicketTemplateID"`
	Addon          Addon          `json:"addon,omitempty" gorm:"foreignKey:AddonID"`
}

// AddonConstraint is a directed edge: AddonID depends on / excludes
// RelatedAddonID. The dependency subgraph restricted to any single ticket
// template's addon set must stay acyclic.
type AddonConstraint struct {
	BaseModel
	AddonID        uuid.UUID           `json:"addon_id" gorm:"type:uuid;not null;uniqueIndex:idx_constraint_pair;index"`
	RelatedAddonID uuid.UUID           `json:"related_addon_id" gorm:"type:uuid;not null;uniqueIndex:idx_constraint_pair;index"`
	ConstraintType AddonConstraintType `json:"constraint_type" gorm:"type:varchar(20);not null"`

	// Relationships
	Addon        Addon `json:"addon,omitempty" gorm:"foreignKey:AddonID"`
	RelatedAddon Addon `json:"related_addon,omitempty" gorm:"foreignKey:RelatedAddonID"`
}

// UserTicketAddon is a committed addon claim against a user ticket. Rows are
// never deleted; cancellation flips ApprovalStatus only.
type UserTicketAddon struct {
	BaseModel
	UserTicketID     uuid.UUID                     `json:"user_ticket_id" gorm:"type:uuid;not null;index"`
	AddonID          uuid.UUID                     `json:"addon_id" gorm:"type:uuid;not null;index"`
	PurchaseOrderID  uuid.UUID                     `json:"purchase_order_id" gorm:"type:uuid;not null;index"`
	Quantity         int                           `json:"quantity" gorm:"not null"`
	UnitPriceInCents int64                         `json:"unit_price_in_cents" gorm:"not null;default:0"`
	ApprovalStatus   UserTicketAddonApprovalStatus `json:"approval_status" gorm:"type:varchar(20);default:'pending';index"`

	// Relationships
	UserTicket    UserTicket    `json:"user_ticket,omitempty" gorm:"foreignKey:UserTicketID"`
	Addon         Addon         `json:"addon,omitempty" gorm:"foreignKey:AddonID"`
	PurchaseOrder PurchaseOrder `json:"purchase_order,omitempty" gorm:"foreignKey:PurchaseOrderID"`
}

func (a *UserTicketAddon) IsPaid() bool {
	return a.UnitPriceInCents > 0
}

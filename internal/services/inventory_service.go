// internal/services/inventory_service.go
package services

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/communityos/tickets-api/internal/models"
)

// InventoryService computes remaining stock for ticket templates and addons.
// Counting queries must run inside the caller's transaction, after the parent
// row has been locked, so a concurrent claim cannot pass the same check.
type InventoryService struct {
	db *gorm.DB
}

func NewInventoryService(db *gorm.DB) *InventoryService {
	return &InventoryService{db: db}
}

// lockForUpdate adds a FOR UPDATE lock to the rows the query selects. All
// stock and limit counts must run after the contended parent row went through
// this, inside the same transaction.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// Remaining returns capacity minus committed, clamped at zero. A nil capacity
// is the unlimited sentinel and yields nil.
func Remaining(capacity *int, committed int64) *int {
	if capacity == nil {
		return nil
	}
	remaining := *capacity - int(committed)
	if remaining < 0 {
		remaining = 0
	}
	return &remaining
}

// HasStock reports whether requested units fit into the remaining capacity.
func HasStock(capacity *int, committed int64, requested int) bool {
	remaining := Remaining(capacity, committed)
	return remaining == nil || *remaining >= requested
}

// CountCommittedTickets counts the user tickets holding stock on a template:
// pending, approved, gifted and not_required, but never rejected or cancelled.
func (s *InventoryService) CountCommittedTickets(tx *gorm.DB, ticketTemplateID uuid.UUID) (int64, error) {
	var count int64
	if err := tx.Model(&models.UserTicket{}).
		Where("ticket_template_id = ? AND approval_status IN ?", ticketTemplateID, models.TicketStockHoldingStatuses).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count committed tickets: %w", err)
	}
	return count, nil
}

// CountCommittedAddonUnits sums the quantities of non-cancelled addon claims.
func (s *InventoryService) CountCommittedAddonUnits(tx *gorm.DB, addonID uuid.UUID) (int64, error) {
	var total int64
	if err := tx.Model(&models.UserTicketAddon{}).
		Where("addon_id = ? AND approval_status IN ?", addonID, models.AddonStockHoldingStatuses).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&total).Error; err != nil {
		return 0, fmt.Errorf("failed to count committed addon units: %w", err)
	}
	return total, nil
}

// ClaimedQuantityForTicket sums the units of one addon already held by a user
// ticket, for the per-ticket limit check.
func (s *InventoryService) ClaimedQuantityForTicket(tx *gorm.DB, userTicketID, addonID uuid.UUID) (int64, error) {
	var total int64
	if err := tx.Model(&models.UserTicketAddon{}).
		Where("user_ticket_id = ? AND addon_id = ? AND approval_status IN ?",
			userTicketID, addonID, models.AddonStockHoldingStatuses).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&total).Error; err != nil {
		return 0, fmt.Errorf("failed to sum claimed quantity: %w", err)
	}
	return total, nil
}

// CountCommittedEventTickets counts stock-holding tickets across every
// template of an event, for the event-wide attendee cap.
func (s *InventoryService) CountCommittedEventTickets(tx *gorm.DB, eventID uuid.UUID) (int64, error) {
	var count int64
	if err := tx.Model(&models.UserTicket{}).
		Joins("JOIN ticket_templates ON ticket_templates.id = user_tickets.ticket_template_id").
		Where("ticket_templates.event_id = ? AND user_tickets.approval_status IN ?",
			eventID, models.TicketStockHoldingStatuses).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count event tickets: %w", err)
	}
	return count, nil
}

// CountUserTicketsForTemplate counts the non-cancelled, non-rejected tickets a
// user already holds for a template, for the per-user limit check.
func (s *InventoryService) CountUserTicketsForTemplate(tx *gorm.DB, userID, ticketTemplateID uuid.UUID) (int64, error) {
	var count int64
	if err := tx.Model(&models.UserTicket{}).
		Where("user_id = ? AND ticket_template_id = ? AND approval_status IN ?",
			userID, ticketTemplateID, models.TicketStockHoldingStatuses).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count user tickets: %w", err)
	}
	return count, nil
}

// RemainingTicketStock reports remaining units for a template. Nil means
// unlimited.
func (s *InventoryService) RemainingTicketStock(tx *gorm.DB, template *models.TicketTemplate) (*int, error) {
	if template.IsUnlimited() {
		return nil, nil
	}
	committed, err := s.CountCommittedTickets(tx, template.ID)
	if err != nil {
		return nil, err
	}
	return Remaining(template.Quantity, committed), nil
}

// RemainingAddonStock reports remaining units for an addon. Nil means
// unlimited.
func (s *InventoryService) RemainingAddonStock(tx *gorm.DB, addon *models.Addon) (*int, error) {
	if addon.HasUnlimitedStock() {
		return nil, nil
	}
	committed, err := s.CountCommittedAddonUnits(tx, addon.ID)
	if err != nil {
		return nil, err
	}
	return Remaining(addon.TotalStock, committed), nil
}

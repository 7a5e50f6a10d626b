// internal/services/ticket_service.go
package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/communityos/tickets-api/internal/apperrors"
	"github.com/communityos/tickets-api/internal/models"
)

// TicketService allocates ticket units from templates into purchase orders.
type TicketService struct {
	db                   *gorm.DB
	inventoryService     *InventoryService
	authorizationService *AuthorizationService
	paymentService       *PaymentService
	notificationService  *NotificationService
}

func NewTicketService(db *gorm.DB, inventoryService *InventoryService, authorizationService *AuthorizationService, paymentService *PaymentService, notificationService *NotificationService) *TicketService {
	return &TicketService{
		db:                   db,
		inventoryService:     inventoryService,
		authorizationService: authorizationService,
		paymentService:       paymentService,
		notificationService:  notificationService,
	}
}

type TicketClaimLine struct {
	TicketTemplateID uuid.UUID `json:"ticket_template_id" validate:"required"`
	Quantity         int       `json:"quantity" validate:"required,min=1"`
}

type ClaimTicketsRequest struct {
	Lines                []TicketClaimLine `json:"lines"`
	CurrencyID           *uuid.UUID        `json:"currency_id,omitempty"`
	AllowMultiplePerUser bool              `json:"allow_multiple_per_user,omitempty"`
}

type GiftTicketsRequest struct {
	TicketTemplateID uuid.UUID   `json:"ticket_template_id" validate:"required"`
	UserIDs          []uuid.UUID `json:"user_ids"`
}

// validateTicketLines runs the batch-shape checks: non-empty input, positive
// quantities, no duplicated template ids. Duplicated lines would each pass a
// limit or stock check the other line's units already consumed.
func validateTicketLines(lines []TicketClaimLine) error {
	if len(lines) == 0 {
		return apperrors.Validation("No tickets provided")
	}
	seen := make(map[uuid.UUID]bool, len(lines))
	for _, line := range lines {
		if line.Quantity <= 0 {
			return apperrors.Validation("Ticket quantity must be greater than zero")
		}
		if seen[line.TicketTemplateID] {
			return apperrors.Validation("Duplicated ticket template ids")
		}
		seen[line.TicketTemplateID] = true
	}
	return nil
}

// checkEventCapacity enforces the event-wide attendee cap across all of the
// event's templates. A nil MaxAttendees means uncapped.
func checkEventCapacity(event *models.Event, committed int64, requested int) error {
	if !HasStock(event.MaxAttendees, committed, requested) {
		return apperrors.Conflict("Event has reached its maximum number of attendees")
	}
	return nil
}

// checkEventClaimable rejects claims against inactive or finished events.
func checkEventClaimable(event *models.Event, now time.Time) error {
	if !event.IsActive() {
		return apperrors.Conflict("Event is not active")
	}
	if event.HasEnded(now) {
		return apperrors.Conflict("Event has already ended")
	}
	return nil
}

// approvalStatusOnClaim decides the initial approval status of an allocated
// ticket: templates requiring manual approval start pending, everything else
// is immediately usable.
func approvalStatusOnClaim(template *models.TicketTemplate) models.TicketApprovalStatus {
	if template.RequiresApproval {
		return models.TicketApprovalStatusPending
	}
	return models.TicketApprovalStatusNotRequired
}

// ClaimTickets allocates the requested units inside one transaction. Stock and
// per-user limits are re-checked under the template's row lock, so concurrent
// claims serialize on the template and cannot overshoot its quantity.
func (s *TicketService) ClaimTickets(userID uuid.UUID, req *ClaimTicketsRequest) (*models.PurchaseOrder, error) {
	if err := validateTicketLines(req.Lines); err != nil {
		return nil, err
	}

	now := time.Now()
	var order *models.PurchaseOrder
	err := s.db.Transaction(func(tx *gorm.DB) error {
		templates := make(map[uuid.UUID]*models.TicketTemplate, len(req.Lines))
		events := make(map[uuid.UUID]*models.Event)
		eventRequested := make(map[uuid.UUID]int)
		anyPaid := false

		for _, line := range req.Lines {
			var template models.TicketTemplate
			if err := lockForUpdate(tx).First(&template, line.TicketTemplateID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apperrors.NotFound("Ticket template not found")
				}
				return fmt.Errorf("database error: %w", err)
			}

			var event models.Event
			if err := tx.First(&event, template.EventID).Error; err != nil {
				return fmt.Errorf("database error: %w", err)
			}
			if err := checkEventClaimable(&event, now); err != nil {
				return err
			}
			if _, ok := events[event.ID]; !ok {
				events[event.ID] = &event
			}
			eventRequested[event.ID] += line.Quantity
			if template.Status != models.TicketTemplateStatusActive {
				return apperrors.Conflict("Ticket template is not active")
			}

			held, err := s.inventoryService.CountUserTicketsForTemplate(tx, userID, template.ID)
			if err != nil {
				return err
			}
			if !req.AllowMultiplePerUser && held+int64(line.Quantity) > 1 {
				return apperrors.Conflict("User already has a ticket for this event")
			}
			if template.MaxTicketsPerUser != nil && held+int64(line.Quantity) > int64(*template.MaxTicketsPerUser) {
				return apperrors.Newf(apperrors.KindConflict,
					"total quantity exceeds limit per user for ticket %s", template.ID)
			}

			if !template.IsUnlimited() {
				committed, err := s.inventoryService.CountCommittedTickets(tx, template.ID)
				if err != nil {
					return err
				}
				if !HasStock(template.Quantity, committed, line.Quantity) {
					return apperrors.Newf(apperrors.KindConflict,
						"Insufficient stock for ticket %s", template.Name)
				}
			}

			if !template.IsFree {
				anyPaid = true
			}
			templates[line.TicketTemplateID] = &template
		}

		// Attendee caps span templates, so they are checked once per event
		// over the batch's aggregate quantity.
		for eventID, event := range events {
			if event.MaxAttendees == nil {
				continue
			}
			committed, err := s.inventoryService.CountCommittedEventTickets(tx, eventID)
			if err != nil {
				return err
			}
			if err := checkEventCapacity(event, committed, eventRequested[eventID]); err != nil {
				return err
			}
		}

		var err error
		order, err = s.createOrderWithTickets(tx, userID, req, templates, anyPaid)
		return err
	})
	if err != nil {
		return nil, err
	}

	go s.notifyTicketsClaimed(order)

	return order, nil
}

func (s *TicketService) createOrderWithTickets(tx *gorm.DB, userID uuid.UUID, req *ClaimTicketsRequest, templates map[uuid.UUID]*models.TicketTemplate, anyPaid bool) (*models.PurchaseOrder, error) {
	if anyPaid && req.CurrencyID == nil {
		return nil, apperrors.Validation("Currency ID is required")
	}

	order := &models.PurchaseOrder{
		UserID:          userID,
		Status:          models.PurchaseOrderStatusComplete,
		PaymentStatus:   models.PurchaseOrderPaymentStatusNotRequired,
		PaymentPlatform: models.PaymentPlatformNone,
	}

	var totalInCents int64
	lineItems := make([]PaymentLineItem, 0, len(req.Lines))

	if anyPaid {
		var currency models.AllowedCurrency
		if err := tx.First(&currency, *req.CurrencyID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperrors.NotFound("Currency not found")
			}
			return nil, fmt.Errorf("database error: %w", err)
		}

		for _, line := range req.Lines {
			template := templates[line.TicketTemplateID]
			if template.IsFree {
				continue
			}
			var price models.TicketPrice
			if err := tx.Where("ticket_template_id = ? AND currency_id = ?",
				template.ID, *req.CurrencyID).First(&price).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return nil, apperrors.Newf(apperrors.KindValidation,
						"Ticket %s has no price for the selected currency", template.Name)
				}
				return nil, fmt.Errorf("database error: %w", err)
			}
			totalInCents += price.PriceInCents * int64(line.Quantity)
			lineItems = append(lineItems, PaymentLineItem{
				Name:         template.Name,
				Quantity:     int64(line.Quantity),
				UnitPrice:    price.PriceInCents,
				CurrencyCode: currency.Code,
			})
		}

		order.Status = models.PurchaseOrderStatusOpen
		order.PaymentStatus = models.PurchaseOrderPaymentStatusUnpaid
		order.PaymentPlatform = models.PaymentPlatformStripe
		order.CurrencyID = req.CurrencyID
		order.TotalPriceInCents = totalInCents
	}

	if err := tx.Create(order).Error; err != nil {
		return nil, fmt.Errorf("failed to create purchase order: %w", err)
	}

	for _, line := range req.Lines {
		template := templates[line.TicketTemplateID]
		for unit := 0; unit < line.Quantity; unit++ {
			ticket := &models.UserTicket{
				TicketTemplateID: template.ID,
				UserID:           userID,
				PurchaseOrderID:  order.ID,
				ApprovalStatus:   approvalStatusOnClaim(template),
				RedemptionStatus: models.TicketRedemptionStatusPending,
			}
			if err := tx.Create(ticket).Error; err != nil {
				return nil, fmt.Errorf("failed to create user ticket: %w", err)
			}
			order.UserTickets = append(order.UserTickets, *ticket)
		}
	}

	if anyPaid {
		if err := s.paymentService.GeneratePaymentLink(tx, order, lineItems); err != nil {
			return nil, err
		}
	}

	return order, nil
}

// GiftTickets allocates one gifted ticket per target user, skipping users who
// already hold one. The whole batch shares a single completed order owned by
// the acting user.
func (s *TicketService) GiftTickets(actingUserID uuid.UUID, req *GiftTicketsRequest) ([]models.UserTicket, error) {
	if len(req.UserIDs) == 0 {
		return nil, apperrors.Validation("No users provided")
	}

	now := time.Now()
	var tickets []models.UserTicket
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var template models.TicketTemplate
		if err := lockForUpdate(tx).First(&template, req.TicketTemplateID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("Ticket template not found")
			}
			return fmt.Errorf("database error: %w", err)
		}

		allowed, err := s.authorizationService.CanManageEvent(tx, actingUserID, template.EventID)
		if err != nil {
			return err
		}
		if !allowed {
			return apperrors.Authorization("Not authorized")
		}

		var event models.Event
		if err := tx.First(&event, template.EventID).Error; err != nil {
			return fmt.Errorf("database error: %w", err)
		}
		if err := checkEventClaimable(&event, now); err != nil {
			return err
		}

		recipients := make([]uuid.UUID, 0, len(req.UserIDs))
		for _, recipientID := range req.UserIDs {
			held, err := s.inventoryService.CountUserTicketsForTemplate(tx, recipientID, template.ID)
			if err != nil {
				return err
			}
			if held == 0 {
				recipients = append(recipients, recipientID)
			}
		}
		if len(recipients) == 0 {
			return apperrors.Conflict("All provided users already have tickets")
		}

		if !template.IsUnlimited() {
			committed, err := s.inventoryService.CountCommittedTickets(tx, template.ID)
			if err != nil {
				return err
			}
			if !HasStock(template.Quantity, committed, len(recipients)) {
				return apperrors.Newf(apperrors.KindConflict,
					"Insufficient stock for ticket %s", template.Name)
			}
		}

		if event.MaxAttendees != nil {
			committed, err := s.inventoryService.CountCommittedEventTickets(tx, event.ID)
			if err != nil {
				return err
			}
			if err := checkEventCapacity(&event, committed, len(recipients)); err != nil {
				return err
			}
		}

		order := &models.PurchaseOrder{
			UserID:          actingUserID,
			Status:          models.PurchaseOrderStatusComplete,
			PaymentStatus:   models.PurchaseOrderPaymentStatusNotRequired,
			PaymentPlatform: models.PaymentPlatformNone,
		}
		if err := tx.Create(order).Error; err != nil {
			return fmt.Errorf("failed to create purchase order: %w", err)
		}

		for _, recipientID := range recipients {
			ticket := models.UserTicket{
				TicketTemplateID: template.ID,
				UserID:           recipientID,
				PurchaseOrderID:  order.ID,
				ApprovalStatus:   models.TicketApprovalStatusGifted,
				RedemptionStatus: models.TicketRedemptionStatusPending,
			}
			if err := tx.Create(&ticket).Error; err != nil {
				return fmt.Errorf("failed to create user ticket: %w", err)
			}
			tickets = append(tickets, ticket)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for i := range tickets {
		go s.notifyTicketApproved(&tickets[i])
	}

	return tickets, nil
}

// canApproveTicket reports whether a ticket may transition to approved.
// Pending tickets await a manager's decision; gifted tickets await the same
// decision so they can start holding addon claims. There is no path out of
// rejected, cancelled or an already approved state.
func canApproveTicket(status models.TicketApprovalStatus) bool {
	return status == models.TicketApprovalStatusPending ||
		status == models.TicketApprovalStatusGifted
}

// ApproveUserTicket moves a pending or gifted ticket to approved. Only event
// managers may approve.
func (s *TicketService) ApproveUserTicket(actingUserID, userTicketID uuid.UUID) (*models.UserTicket, error) {
	var ticket models.UserTicket
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := lockForUpdate(tx).First(&ticket, userTicketID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("User ticket not found")
			}
			return fmt.Errorf("database error: %w", err)
		}

		var template models.TicketTemplate
		if err := tx.First(&template, ticket.TicketTemplateID).Error; err != nil {
			return fmt.Errorf("database error: %w", err)
		}

		allowed, err := s.authorizationService.CanManageEvent(tx, actingUserID, template.EventID)
		if err != nil {
			return err
		}
		if !allowed {
			return apperrors.Authorization("Not authorized")
		}

		if !canApproveTicket(ticket.ApprovalStatus) {
			return apperrors.Conflict("User ticket is not pending approval")
		}

		ticket.ApprovalStatus = models.TicketApprovalStatusApproved
		if err := tx.Save(&ticket).Error; err != nil {
			return fmt.Errorf("failed to approve user ticket: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	go s.notifyTicketApproved(&ticket)

	return &ticket, nil
}

func (s *TicketService) GetUserTickets(userID uuid.UUID) ([]models.UserTicket, error) {
	var tickets []models.UserTicket
	if err := s.db.Where("user_id = ?", userID).
		Preload("TicketTemplate").Preload("TicketTemplate.Event").Preload("Addons").
		Order("created_at DESC").
		Find(&tickets).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch user tickets: %w", err)
	}
	return tickets, nil
}

func (s *TicketService) notifyTicketsClaimed(order *models.PurchaseOrder) {
	if s.notificationService == nil || order == nil {
		return
	}
	if err := s.notificationService.SendTicketsClaimedNotification(order); err != nil {
		logrus.WithError(err).WithField("purchase_order_id", order.ID).
			Warn("Failed to send ticket claim notification")
	}
}

func (s *TicketService) notifyTicketApproved(ticket *models.UserTicket) {
	if s.notificationService == nil || ticket == nil {
		return
	}
	if err := s.notificationService.SendTicketApprovedNotification(ticket); err != nil {
		logrus.WithError(err).WithField("user_ticket_id", ticket.ID).
			Warn("Failed to send ticket approval notification")
	}
}

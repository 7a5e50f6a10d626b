// internal/services/addon_service.go
package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/communityos/tickets-api/internal/apperrors"
	"github.com/communityos/tickets-api/internal/models"
)

// AddonService executes addon claims and cancellations against user tickets.
// All stock checks and their corresponding writes happen inside one
// transaction with the contended rows locked FOR UPDATE, so two concurrent
// claims cannot both pass a check only one can satisfy.
type AddonService struct {
	db                   *gorm.DB
	inventoryService     *InventoryService
	authorizationService *AuthorizationService
	paymentService       *PaymentService
	notificationService  *NotificationService
}

func NewAddonService(db *gorm.DB, inventoryService *InventoryService, authorizationService *AuthorizationService, paymentService *PaymentService, notificationService *NotificationService) *AddonService {
	return &AddonService{
		db:                   db,
		inventoryService:     inventoryService,
		authorizationService: authorizationService,
		paymentService:       paymentService,
		notificationService:  notificationService,
	}
}

type AddonClaim struct {
	AddonID  uuid.UUID `json:"addon_id" validate:"required"`
	Quantity int       `json:"quantity" validate:"required,min=1"`
}

type ClaimAddonsRequest struct {
	UserTicketID uuid.UUID    `json:"user_ticket_id" validate:"required"`
	Claims       []AddonClaim `json:"claims"`
	CurrencyID   *uuid.UUID   `json:"currency_id,omitempty"`
}

type CancelAddonsRequest struct {
	UserTicketAddonIDs []uuid.UUID `json:"user_ticket_addon_ids"`
}

// validateClaimBatch runs the batch-shape checks that need no loaded state:
// non-empty input, positive quantities, no duplicated addon ids.
func validateClaimBatch(claims []AddonClaim) error {
	if len(claims) == 0 {
		return apperrors.Validation("No user ticket addons provided")
	}
	seen := make(map[uuid.UUID]bool, len(claims))
	for _, claim := range claims {
		if claim.Quantity <= 0 {
			return apperrors.Validation("Addon quantity must be greater than zero")
		}
		if seen[claim.AddonID] {
			return apperrors.Validation("Duplicated addon ids")
		}
		seen[claim.AddonID] = true
	}
	return nil
}

// checkPerTicketLimit enforces maxPerTicket against the quantity already held
// plus the new claim. Unlimited addons and addons without a cap always pass.
func checkPerTicketLimit(addon *models.Addon, existingQuantity int64, newQuantity int, userTicketID uuid.UUID) error {
	if addon.IsUnlimited || addon.MaxPerTicket == nil {
		return nil
	}
	if existingQuantity+int64(newQuantity) > int64(*addon.MaxPerTicket) {
		return apperrors.Newf(apperrors.KindConflict,
			"total quantity exceeds limit per ticket for ticket %s", userTicketID)
	}
	return nil
}

// checkDependenciesSatisfied verifies every dependency edge leaving a claimed
// addon. The prerequisite counts as satisfied when it is claimed in the same
// batch or already approved on the ticket. Edges whose prerequisite is not
// attached to the ticket's template are out of scope.
func checkDependenciesSatisfied(claimSet, approvedSet map[uuid.UUID]bool, constraints []models.AddonConstraint, attached map[uuid.UUID]*models.Addon) error {
	for _, constraint := range constraints {
		if constraint.ConstraintType != models.AddonConstraintTypeDependency {
			continue
		}
		if !claimSet[constraint.AddonID] {
			continue
		}
		prerequisite, inScope := attached[constraint.RelatedAddonID]
		if !inScope {
			continue
		}
		if !claimSet[constraint.RelatedAddonID] && !approvedSet[constraint.RelatedAddonID] {
			dependent := attached[constraint.AddonID]
			return apperrors.Newf(apperrors.KindDependency,
				"Addon %s requires addon %s to be claimed first", dependent.Name, prerequisite.Name)
		}
	}
	return nil
}

// checkExclusions rejects a claim when a mutual-exclusion edge, in either
// direction, connects a claimed addon with another claimed or already-approved
// addon on the same ticket.
func checkExclusions(claimSet, approvedSet map[uuid.UUID]bool, constraints []models.AddonConstraint, attached map[uuid.UUID]*models.Addon) error {
	present := func(id uuid.UUID) bool { return claimSet[id] || approvedSet[id] }
	for _, constraint := range constraints {
		if constraint.ConstraintType != models.AddonConstraintTypeMutualExclusion {
			continue
		}
		if _, inScope := attached[constraint.RelatedAddonID]; !inScope {
			continue
		}
		involvesClaim := claimSet[constraint.AddonID] || claimSet[constraint.RelatedAddonID]
		if involvesClaim && present(constraint.AddonID) && present(constraint.RelatedAddonID) {
			first := attached[constraint.AddonID]
			second := attached[constraint.RelatedAddonID]
			return apperrors.Newf(apperrors.KindConflict,
				"Addon %s cannot be combined with addon %s", first.Name, second.Name)
		}
	}
	return nil
}

// validateCancelBatch rejects empty or duplicated cancellation targets.
func validateCancelBatch(ids []uuid.UUID) error {
	if len(ids) == 0 {
		return apperrors.Validation("No user ticket addons provided")
	}
	seen := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			return apperrors.Validation("Duplicated user ticket addon ids")
		}
		seen[id] = true
	}
	return nil
}

// validateCancellation runs the per-row checks in contract order: no target
// may be cancelled already, no approved addon outside the batch may depend on
// a target, and only then are paid rows refused.
func validateCancellation(targets []models.UserTicketAddon, activeRows []models.UserTicketAddon, dependencyEdges []models.AddonConstraint) error {
	for _, target := range targets {
		if target.ApprovalStatus == models.UserTicketAddonApprovalStatusCancelled {
			return apperrors.Conflict("Some addons are already cancelled")
		}
	}

	if err := blockingDependents(targets, activeRows, dependencyEdges); err != nil {
		return err
	}

	for _, target := range targets {
		if target.IsPaid() {
			return apperrors.Conflict("Cancellation of paid addons is not supported yet")
		}
	}
	return nil
}

// blockingDependents re-checks the cancellation-dependency rule over the
// batch's post-state: an approved dependent only blocks cancellation when it
// is not itself being cancelled in the same call.
func blockingDependents(targets []models.UserTicketAddon, activeRows []models.UserTicketAddon, dependencyEdges []models.AddonConstraint) error {
	cancelling := make(map[uuid.UUID]bool, len(targets))
	for _, target := range targets {
		cancelling[target.ID] = true
	}

	// dependent addon id -> prerequisite addon ids
	dependsOn := make(map[uuid.UUID][]uuid.UUID)
	for _, edge := range dependencyEdges {
		if edge.ConstraintType == models.AddonConstraintTypeDependency {
			dependsOn[edge.AddonID] = append(dependsOn[edge.AddonID], edge.RelatedAddonID)
		}
	}

	for _, target := range targets {
		for _, row := range activeRows {
			if row.UserTicketID != target.UserTicketID || cancelling[row.ID] {
				continue
			}
			if row.ApprovalStatus != models.UserTicketAddonApprovalStatusApproved {
				continue
			}
			for _, prerequisiteID := range dependsOn[row.AddonID] {
				if prerequisiteID == target.AddonID {
					return apperrors.Newf(apperrors.KindDependency,
						"Cannot cancel addon %s because other addons depend on it", target.Addon.Name)
				}
			}
		}
	}
	return nil
}

// ClaimAddons validates and executes a batch claim of addons against a user
// ticket. The batch is all-or-nothing: the first failing precondition aborts
// with nothing written.
func (s *AddonService) ClaimAddons(userID uuid.UUID, req *ClaimAddonsRequest) (*models.PurchaseOrder, error) {
	if err := validateClaimBatch(req.Claims); err != nil {
		return nil, err
	}

	var order *models.PurchaseOrder
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var userTicket models.UserTicket
		if err := lockForUpdate(tx).First(&userTicket, req.UserTicketID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("User ticket not found")
			}
			return fmt.Errorf("database error: %w", err)
		}

		var template models.TicketTemplate
		if err := tx.First(&template, userTicket.TicketTemplateID).Error; err != nil {
			return fmt.Errorf("database error: %w", err)
		}

		if userTicket.UserID != userID {
			allowed, err := s.authorizationService.CanManageEvent(tx, userID, template.EventID)
			if err != nil {
				return err
			}
			if !allowed {
				return apperrors.Authorization("Not authorized")
			}
		}

		if !userTicket.IsApproved() {
			return apperrors.Conflict("User ticket is not approved")
		}

		attached, err := s.loadAttachedAddons(tx, template.ID)
		if err != nil {
			return err
		}

		claimSet := make(map[uuid.UUID]bool, len(req.Claims))
		for _, claim := range req.Claims {
			if _, ok := attached[claim.AddonID]; !ok {
				return apperrors.NotFound("Some addons were not found for this ticket")
			}
			claimSet[claim.AddonID] = true
		}

		// Quantity caps and stock, locking each claimed addon row first so
		// the committed count cannot move under us.
		for _, claim := range req.Claims {
			addon := attached[claim.AddonID]

			var locked models.Addon
			if err := lockForUpdate(tx).First(&locked, claim.AddonID).Error; err != nil {
				return fmt.Errorf("database error: %w", err)
			}

			existing, err := s.inventoryService.ClaimedQuantityForTicket(tx, userTicket.ID, claim.AddonID)
			if err != nil {
				return err
			}
			if err := checkPerTicketLimit(addon, existing, claim.Quantity, userTicket.ID); err != nil {
				return err
			}

			if !addon.HasUnlimitedStock() {
				committed, err := s.inventoryService.CountCommittedAddonUnits(tx, claim.AddonID)
				if err != nil {
					return err
				}
				if !HasStock(addon.TotalStock, committed, claim.Quantity) {
					return apperrors.Newf(apperrors.KindConflict,
						"Insufficient stock for addon %s", addon.Name)
				}
			}
		}

		constraints, err := s.loadConstraints(tx, attached)
		if err != nil {
			return err
		}
		approvedSet, err := s.loadApprovedAddonSet(tx, userTicket.ID)
		if err != nil {
			return err
		}
		if err := checkDependenciesSatisfied(claimSet, approvedSet, constraints, attached); err != nil {
			return err
		}
		if err := checkExclusions(claimSet, approvedSet, constraints, attached); err != nil {
			return err
		}

		order, err = s.createOrderWithAddons(tx, &userTicket, req, attached)
		return err
	})
	if err != nil {
		return nil, err
	}

	go s.notifyAddonsClaimed(order)

	return order, nil
}

func (s *AddonService) loadAttachedAddons(tx *gorm.DB, ticketTemplateID uuid.UUID) (map[uuid.UUID]*models.Addon, error) {
	var attachments []models.TicketAddon
	if err := tx.Where("ticket_template_id = ?", ticketTemplateID).
		Preload("Addon").Preload("Addon.Prices").
		Find(&attachments).Error; err != nil {
		return nil, fmt.Errorf("failed to load ticket addons: %w", err)
	}

	attached := make(map[uuid.UUID]*models.Addon, len(attachments))
	for i := range attachments {
		attached[attachments[i].AddonID] = &attachments[i].Addon
	}
	return attached, nil
}

func (s *AddonService) loadConstraints(tx *gorm.DB, attached map[uuid.UUID]*models.Addon) ([]models.AddonConstraint, error) {
	addonIDs := make([]uuid.UUID, 0, len(attached))
	for id := range attached {
		addonIDs = append(addonIDs, id)
	}

	var constraints []models.AddonConstraint
	if err := tx.Where("addon_id IN ?", addonIDs).Find(&constraints).Error; err != nil {
		return nil, fmt.Errorf("failed to load constraints: %w", err)
	}
	return constraints, nil
}

func (s *AddonService) loadApprovedAddonSet(tx *gorm.DB, userTicketID uuid.UUID) (map[uuid.UUID]bool, error) {
	var rows []models.UserTicketAddon
	if err := tx.Where("user_ticket_id = ? AND approval_status = ?",
		userTicketID, models.UserTicketAddonApprovalStatusApproved).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load approved addons: %w", err)
	}

	approved := make(map[uuid.UUID]bool, len(rows))
	for _, row := range rows {
		approved[row.AddonID] = true
	}
	return approved, nil
}

// anyPaidClaim reports whether the batch needs a payment: one non-free addon
// is enough to route the whole order through checkout.
func anyPaidClaim(claims []AddonClaim, attached map[uuid.UUID]*models.Addon) bool {
	for _, claim := range claims {
		if !attached[claim.AddonID].IsFree {
			return true
		}
	}
	return false
}

// createOrderWithAddons persists the purchase order and its addon rows. Free
// batches complete immediately with approved rows; paid batches stay pending
// behind a Stripe payment link until the payment webhook confirms them.
func (s *AddonService) createOrderWithAddons(tx *gorm.DB, userTicket *models.UserTicket, req *ClaimAddonsRequest, attached map[uuid.UUID]*models.Addon) (*models.PurchaseOrder, error) {
	anyPaid := anyPaidClaim(req.Claims, attached)

	if anyPaid && req.CurrencyID == nil {
		return nil, apperrors.Validation("Currency ID is required")
	}

	order := &models.PurchaseOrder{
		UserID:          userTicket.UserID,
		Status:          models.PurchaseOrderStatusComplete,
		PaymentStatus:   models.PurchaseOrderPaymentStatusNotRequired,
		PaymentPlatform: models.PaymentPlatformNone,
	}

	var totalInCents int64
	lineItems := make([]PaymentLineItem, 0, len(req.Claims))
	prices := make(map[uuid.UUID]int64, len(req.Claims))

	if anyPaid {
		var currency models.AllowedCurrency
		if err := tx.First(&currency, *req.CurrencyID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperrors.NotFound("Currency not found")
			}
			return nil, fmt.Errorf("database error: %w", err)
		}

		for _, claim := range req.Claims {
			addon := attached[claim.AddonID]
			if addon.IsFree {
				continue
			}
			unitPrice, ok := addon.PriceForCurrency(*req.CurrencyID)
			if !ok {
				return nil, apperrors.Newf(apperrors.KindValidation,
					"Addon %s has no price for the selected currency", addon.Name)
			}
			prices[claim.AddonID] = unitPrice
			totalInCents += unitPrice * int64(claim.Quantity)
			lineItems = append(lineItems, PaymentLineItem{
				Name:         addon.Name,
				Quantity:     int64(claim.Quantity),
				UnitPrice:    unitPrice,
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

	rowStatus := models.UserTicketAddonApprovalStatusApproved
	if anyPaid {
		rowStatus = models.UserTicketAddonApprovalStatusPending
	}

	for _, claim := range req.Claims {
		row := &models.UserTicketAddon{
			UserTicketID:     userTicket.ID,
			AddonID:          claim.AddonID,
			PurchaseOrderID:  order.ID,
			Quantity:         claim.Quantity,
			UnitPriceInCents: prices[claim.AddonID],
			ApprovalStatus:   rowStatus,
		}
		if err := tx.Create(row).Error; err != nil {
			return nil, fmt.Errorf("failed to create user ticket addon: %w", err)
		}
	}

	if anyPaid {
		if err := s.paymentService.GeneratePaymentLink(tx, order, lineItems); err != nil {
			return nil, err
		}
	}

	return order, nil
}

// CancelAddons flips addon claims to cancelled. Rows stay in place for audit;
// stock accounting releases them by excluding cancelled rows from the
// committed set.
func (s *AddonService) CancelAddons(userID uuid.UUID, req *CancelAddonsRequest) ([]models.UserTicketAddon, error) {
	if err := validateCancelBatch(req.UserTicketAddonIDs); err != nil {
		return nil, err
	}

	var targets []models.UserTicketAddon
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := lockForUpdate(tx).
			Where("id IN ?", req.UserTicketAddonIDs).
			Find(&targets).Error; err != nil {
			return fmt.Errorf("database error: %w", err)
		}
		if len(targets) != len(req.UserTicketAddonIDs) {
			return apperrors.NotFound("Some user ticket addons were not found or don't belong to the user")
		}

		// Load associations after the locking query; preloads run as
		// separate selects that would not take the lock.
		for i := range targets {
			if err := tx.First(&targets[i].UserTicket, targets[i].UserTicketID).Error; err != nil {
				return fmt.Errorf("database error: %w", err)
			}
			if err := tx.First(&targets[i].Addon, targets[i].AddonID).Error; err != nil {
				return fmt.Errorf("database error: %w", err)
			}
		}

		elevated, err := s.authorizationService.IsSuperAdmin(tx, userID)
		if err != nil {
			return err
		}
		if !elevated {
			for _, target := range targets {
				if target.UserTicket.UserID != userID {
					return apperrors.NotFound("Some user ticket addons were not found or don't belong to the user")
				}
			}
		}

		ticketIDs := make([]uuid.UUID, 0, len(targets))
		targetAddonIDs := make([]uuid.UUID, 0, len(targets))
		for _, target := range targets {
			ticketIDs = append(ticketIDs, target.UserTicketID)
			targetAddonIDs = append(targetAddonIDs, target.AddonID)
		}

		var activeRows []models.UserTicketAddon
		if err := tx.Where("user_ticket_id IN ? AND approval_status = ?",
			ticketIDs, models.UserTicketAddonApprovalStatusApproved).
			Find(&activeRows).Error; err != nil {
			return fmt.Errorf("failed to load active addons: %w", err)
		}

		var dependencyEdges []models.AddonConstraint
		if err := tx.Where("related_addon_id IN ? AND constraint_type = ?",
			targetAddonIDs, models.AddonConstraintTypeDependency).
			Find(&dependencyEdges).Error; err != nil {
			return fmt.Errorf("failed to load constraints: %w", err)
		}

		if err := validateCancellation(targets, activeRows, dependencyEdges); err != nil {
			return err
		}

		if err := tx.Model(&models.UserTicketAddon{}).
			Where("id IN ?", req.UserTicketAddonIDs).
			Update("approval_status", models.UserTicketAddonApprovalStatusCancelled).Error; err != nil {
			return fmt.Errorf("failed to cancel addons: %w", err)
		}
		for i := range targets {
			targets[i].ApprovalStatus = models.UserTicketAddonApprovalStatusCancelled
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return targets, nil
}

func (s *AddonService) GetTicketAddons(userTicketID uuid.UUID) ([]models.UserTicketAddon, error) {
	var rows []models.UserTicketAddon
	if err := s.db.Where("user_ticket_id = ?", userTicketID).
		Preload("Addon").Preload("PurchaseOrder").
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch user ticket addons: %w", err)
	}
	return rows, nil
}

func (s *AddonService) notifyAddonsClaimed(order *models.PurchaseOrder) {
	if s.notificationService == nil || order == nil {
		return
	}
	if err := s.notificationService.SendAddonsClaimedNotification(order); err != nil {
		logrus.WithError(err).WithField("purchase_order_id", order.ID).
			Warn("Failed to send addon claim notification")
	}
}

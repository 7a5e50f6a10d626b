// internal/services/constraint_service.go
package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/communityos/tickets-api/internal/apperrors"
	"github.com/communityos/tickets-api/internal/models"
)

// ConstraintService authors dependency/exclusion edges between addons. Every
// create and update revalidates the dependency subgraph of each ticket
// template that attaches both endpoints, because indirect cycles can appear
// transitively no matter the authoring order.
type ConstraintService struct {
	db *gorm.DB
}

func NewConstraintService(db *gorm.DB) *ConstraintService {
	return &ConstraintService{db: db}
}

type ConstraintEdge struct {
	AddonID        uuid.UUID
	RelatedAddonID uuid.UUID
	Type           models.AddonConstraintType
}

type CreateConstraintRequest struct {
	AddonID        uuid.UUID                  `json:"addon_id" validate:"required"`
	RelatedAddonID uuid.UUID                  `json:"related_addon_id" validate:"required"`
	ConstraintType models.AddonConstraintType `json:"constraint_type" validate:"required,oneof=dependency mutual_exclusion"`
}

type UpdateConstraintRequest struct {
	RelatedAddonID uuid.UUID                  `json:"related_addon_id" validate:"required"`
	ConstraintType models.AddonConstraintType `json:"constraint_type" validate:"required,oneof=dependency mutual_exclusion"`
}

// ValidateNoCycles runs cycle detection over the dependency edges whose two
// endpoints both belong to addonSet. Exclusion edges never participate.
// A self-referencing edge is a one-node cycle and is rejected the same way.
func ValidateNoCycles(addonSet map[uuid.UUID]bool, edges []ConstraintEdge) error {
	adjacency := make(map[uuid.UUID][]uuid.UUID)
	for _, edge := range edges {
		if edge.Type != models.AddonConstraintTypeDependency {
			continue
		}
		if edge.AddonID == edge.RelatedAddonID {
			return apperrors.Newf(apperrors.KindDependency,
				"Cyclic dependency detected for addon %s", edge.AddonID)
		}
		if !addonSet[edge.AddonID] || !addonSet[edge.RelatedAddonID] {
			continue
		}
		adjacency[edge.AddonID] = append(adjacency[edge.AddonID], edge.RelatedAddonID)
	}

	const (
		unvisited = 0
		inStack   = 1
		done      = 2
	)
	state := make(map[uuid.UUID]int, len(adjacency))

	var visit func(id uuid.UUID) error
	visit = func(id uuid.UUID) error {
		state[id] = inStack
		for _, next := range adjacency[id] {
			switch state[next] {
			case inStack:
				return apperrors.Newf(apperrors.KindDependency,
					"Cyclic dependency detected for addon %s", next)
			case unvisited:
				if err := visit(next); err != nil {
					return err
				}
			}
		}
		state[id] = done
		return nil
	}

	for id := range adjacency {
		if state[id] == unvisited {
			if err := visit(id); err != nil {
				return err
			}
		}
	}

	return nil
}

// MergeEdges combines persisted constraints with a proposal: constraints whose
// id appears in replacedIDs or deletedIDs are dropped from the persisted set
// before the proposed edges are appended.
func MergeEdges(existing []models.AddonConstraint, proposed []ConstraintEdge, replacedIDs, deletedIDs []uuid.UUID) []ConstraintEdge {
	dropped := make(map[uuid.UUID]bool, len(replacedIDs)+len(deletedIDs))
	for _, id := range replacedIDs {
		dropped[id] = true
	}
	for _, id := range deletedIDs {
		dropped[id] = true
	}

	merged := make([]ConstraintEdge, 0, len(existing)+len(proposed))
	for _, constraint := range existing {
		if dropped[constraint.ID] {
			continue
		}
		merged = append(merged, ConstraintEdge{
			AddonID:        constraint.AddonID,
			RelatedAddonID: constraint.RelatedAddonID,
			Type:           constraint.ConstraintType,
		})
	}
	return append(merged, proposed...)
}

func (s *ConstraintService) CreateConstraint(req *CreateConstraintRequest) (*models.AddonConstraint, error) {
	if req.AddonID == req.RelatedAddonID {
		return nil, apperrors.Validation("An addon cannot reference itself in a constraint")
	}

	var constraint *models.AddonConstraint
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var addon, related models.Addon
		if err := tx.First(&addon, req.AddonID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("Addon not found")
			}
			return fmt.Errorf("database error: %w", err)
		}
		if err := tx.First(&related, req.RelatedAddonID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("Related addon not found")
			}
			return fmt.Errorf("database error: %w", err)
		}
		if addon.EventID != related.EventID {
			return apperrors.Validation("Constraints can only relate addons of the same event")
		}

		var duplicates int64
		if err := tx.Model(&models.AddonConstraint{}).
			Where("addon_id = ? AND related_addon_id = ?", req.AddonID, req.RelatedAddonID).
			Count(&duplicates).Error; err != nil {
			return fmt.Errorf("failed to check existing constraints: %w", err)
		}
		if duplicates > 0 {
			return apperrors.Conflict("A constraint between these addons already exists")
		}

		proposed := []ConstraintEdge{{
			AddonID:        req.AddonID,
			RelatedAddonID: req.RelatedAddonID,
			Type:           req.ConstraintType,
		}}
		if err := s.validateAffectedTickets(tx, req.AddonID, req.RelatedAddonID, proposed, nil); err != nil {
			return err
		}

		constraint = &models.AddonConstraint{
			AddonID:        req.AddonID,
			RelatedAddonID: req.RelatedAddonID,
			ConstraintType: req.ConstraintType,
		}
		if err := tx.Create(constraint).Error; err != nil {
			return fmt.Errorf("failed to create constraint: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return constraint, nil
}

func (s *ConstraintService) UpdateConstraint(constraintID uuid.UUID, req *UpdateConstraintRequest) (*models.AddonConstraint, error) {
	var constraint models.AddonConstraint
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&constraint, constraintID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("Constraint not found")
			}
			return fmt.Errorf("database error: %w", err)
		}
		if constraint.AddonID == req.RelatedAddonID {
			return apperrors.Validation("An addon cannot reference itself in a constraint")
		}

		var related models.Addon
		if err := tx.First(&related, req.RelatedAddonID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("Related addon not found")
			}
			return fmt.Errorf("database error: %w", err)
		}

		var addon models.Addon
		if err := tx.First(&addon, constraint.AddonID).Error; err != nil {
			return fmt.Errorf("database error: %w", err)
		}
		if addon.EventID != related.EventID {
			return apperrors.Validation("Constraints can only relate addons of the same event")
		}

		proposed := []ConstraintEdge{{
			AddonID:        constraint.AddonID,
			RelatedAddonID: req.RelatedAddonID,
			Type:           req.ConstraintType,
		}}
		if err := s.validateAffectedTickets(tx, constraint.AddonID, req.RelatedAddonID, proposed, []uuid.UUID{constraint.ID}); err != nil {
			return err
		}

		constraint.RelatedAddonID = req.RelatedAddonID
		constraint.ConstraintType = req.ConstraintType
		if err := tx.Save(&constraint).Error; err != nil {
			return fmt.Errorf("failed to update constraint: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &constraint, nil
}

func (s *ConstraintService) DeleteConstraint(constraintID uuid.UUID) error {
	result := s.db.Delete(&models.AddonConstraint{}, constraintID)
	if result.Error != nil {
		return fmt.Errorf("failed to delete constraint: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.NotFound("Constraint not found")
	}
	return nil
}

func (s *ConstraintService) GetConstraintsForAddon(addonID uuid.UUID) ([]models.AddonConstraint, error) {
	var constraints []models.AddonConstraint
	if err := s.db.Where("addon_id = ? OR related_addon_id = ?", addonID, addonID).
		Preload("Addon").Preload("RelatedAddon").
		Find(&constraints).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch constraints: %w", err)
	}
	return constraints, nil
}

// validateAffectedTickets re-runs cycle detection for every ticket template
// that attaches both endpoints of the proposed edge, merging the proposal with
// the persisted edges of that template's addon set.
func (s *ConstraintService) validateAffectedTickets(tx *gorm.DB, addonID, relatedAddonID uuid.UUID, proposed []ConstraintEdge, replacedIDs []uuid.UUID) error {
	var ticketIDs []uuid.UUID
	if err := tx.Model(&models.TicketAddon{}).
		Where("addon_id = ?", addonID).
		Where("ticket_template_id IN (?)", tx.Model(&models.TicketAddon{}).
			Select("ticket_template_id").Where("addon_id = ?", relatedAddonID)).
		Pluck("ticket_template_id", &ticketIDs).Error; err != nil {
		return fmt.Errorf("failed to resolve affected tickets: %w", err)
	}

	for _, ticketID := range ticketIDs {
		if err := s.validateTicket(tx, ticketID, proposed, replacedIDs); err != nil {
			return err
		}
	}
	return nil
}

func (s *ConstraintService) validateTicket(tx *gorm.DB, ticketID uuid.UUID, proposed []ConstraintEdge, replacedIDs []uuid.UUID) error {
	var attachments []models.TicketAddon
	if err := tx.Where("ticket_template_id = ?", ticketID).Find(&attachments).Error; err != nil {
		return fmt.Errorf("failed to load ticket addons: %w", err)
	}

	addonSet := make(map[uuid.UUID]bool, len(attachments))
	addonIDs := make([]uuid.UUID, 0, len(attachments))
	for _, attachment := range attachments {
		addonSet[attachment.AddonID] = true
		addonIDs = append(addonIDs, attachment.AddonID)
	}

	var existing []models.AddonConstraint
	if err := tx.Where("addon_id IN ? AND related_addon_id IN ?", addonIDs, addonIDs).
		Find(&existing).Error; err != nil {
		return fmt.Errorf("failed to load constraints: %w", err)
	}

	return ValidateNoCycles(addonSet, MergeEdges(existing, proposed, replacedIDs, nil))
}

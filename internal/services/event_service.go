// internal/services/event_service.go
package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/communityos/tickets-api/internal/apperrors"
	"github.com/communityos/tickets-api/internal/models"
	"github.com/communityos/tickets-api/internal/utils"
)

// EventService covers the authoring side: events, ticket templates, addons
// and their attachments. Claiming lives in TicketService/AddonService.
type EventService struct {
	db                   *gorm.DB
	authorizationService *AuthorizationService
}

func NewEventService(db *gorm.DB, authorizationService *AuthorizationService) *EventService {
	return &EventService{
		db:                   db,
		authorizationService: authorizationService,
	}
}

type CreateTicketTemplateRequest struct {
	Name              string                          `json:"name" validate:"required,max=200"`
	Description       string                          `json:"description,omitempty"`
	Quantity          *int                            `json:"quantity,omitempty" validate:"omitempty,min=0"`
	IsFree            bool                            `json:"is_free"`
	Visibility        models.TicketTemplateVisibility `json:"visibility,omitempty" validate:"omitempty,oneof=public private unlisted"`
	RequiresApproval  bool                            `json:"requires_approval"`
	MaxTicketsPerUser *int                            `json:"max_tickets_per_user,omitempty" validate:"omitempty,min=1"`
	Tags              []string                        `json:"tags,omitempty"`
}

type CreateAddonRequest struct {
	Name         string `json:"name" validate:"required,max=200"`
	Description  string `json:"description,omitempty"`
	TotalStock   *int   `json:"total_stock,omitempty" validate:"omitempty,min=0"`
	MaxPerTicket *int   `json:"max_per_ticket,omitempty" validate:"omitempty,min=1"`
	IsUnlimited  bool   `json:"is_unlimited"`
	IsFree       bool   `json:"is_free"`
}

type CreateCurrencyRequest struct {
	Code string `json:"code" validate:"required,currency_code"`
}

type AttachAddonRequest struct {
	TicketTemplateID uuid.UUID `json:"ticket_template_id" validate:"required"`
	AddonID          uuid.UUID `json:"addon_id" validate:"required"`
	OrderDisplay     int       `json:"order_display"`
}

func (s *EventService) GetEvent(eventID uuid.UUID) (*models.Event, error) {
	var event models.Event
	if err := s.db.Preload("Community").Preload("TicketTemplates").Preload("Addons").
		First(&event, eventID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("Event not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &event, nil
}

func (s *EventService) SearchEvents(params utils.PaginationParams) ([]models.Event, int64, error) {
	query := s.db.Model(&models.Event{}).Preload("Community")

	if params.Search != "" {
		query = query.Where("name ILIKE ?", "%"+params.Search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count events: %w", err)
	}

	allowedSortFields := []string{"created_at", "start_date_time", "name"}
	query = utils.ApplySort(query, params, allowedSortFields)
	query = utils.ApplyPagination(query, params)

	var events []models.Event
	if err := query.Find(&events).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch events: %w", err)
	}

	return events, total, nil
}

func (s *EventService) CreateTicketTemplate(actingUserID, eventID uuid.UUID, req *CreateTicketTemplateRequest) (*models.TicketTemplate, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.Wrap(apperrors.KindValidation, "validation failed", err)
	}

	allowed, err := s.authorizationService.CanManageEvent(s.db, actingUserID, eventID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, apperrors.Authorization("Not authorized")
	}

	var event models.Event
	if err := s.db.First(&event, eventID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("Event not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	visibility := req.Visibility
	if visibility == "" {
		visibility = models.TicketTemplateVisibilityPublic
	}

	template := &models.TicketTemplate{
		EventID:           eventID,
		Name:              req.Name,
		Description:       req.Description,
		Quantity:          req.Quantity,
		IsFree:            req.IsFree,
		Status:            models.TicketTemplateStatusActive,
		Visibility:        visibility,
		RequiresApproval:  req.RequiresApproval,
		MaxTicketsPerUser: req.MaxTicketsPerUser,
		Tags:              req.Tags,
	}
	if err := s.db.Create(template).Error; err != nil {
		return nil, fmt.Errorf("failed to create ticket template: %w", err)
	}

	return template, nil
}

func (s *EventService) CreateAddon(actingUserID, eventID uuid.UUID, req *CreateAddonRequest) (*models.Addon, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.Wrap(apperrors.KindValidation, "validation failed", err)
	}

	allowed, err := s.authorizationService.CanManageEvent(s.db, actingUserID, eventID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, apperrors.Authorization("Not authorized")
	}

	addon := &models.Addon{
		EventID:      eventID,
		Name:         req.Name,
		Description:  req.Description,
		TotalStock:   req.TotalStock,
		MaxPerTicket: req.MaxPerTicket,
		IsUnlimited:  req.IsUnlimited,
		IsFree:       req.IsFree,
	}
	if err := s.db.Create(addon).Error; err != nil {
		return nil, fmt.Errorf("failed to create addon: %w", err)
	}

	return addon, nil
}

// AttachAddon makes an addon purchasable against a ticket template. Both must
// belong to the same event.
func (s *EventService) AttachAddon(actingUserID uuid.UUID, req *AttachAddonRequest) (*models.TicketAddon, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.Wrap(apperrors.KindValidation, "validation failed", err)
	}

	var attachment *models.TicketAddon
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var template models.TicketTemplate
		if err := tx.First(&template, req.TicketTemplateID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("Ticket template not found")
			}
			return fmt.Errorf("database error: %w", err)
		}

		var addon models.Addon
		if err := tx.First(&addon, req.AddonID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("Addon not found")
			}
			return fmt.Errorf("database error: %w", err)
		}

		if template.EventID != addon.EventID {
			return apperrors.Validation("Addon and ticket template belong to different events")
		}

		allowed, err := s.authorizationService.CanManageEvent(tx, actingUserID, template.EventID)
		if err != nil {
			return err
		}
		if !allowed {
			return apperrors.Authorization("Not authorized")
		}

		var duplicates int64
		if err := tx.Model(&models.TicketAddon{}).
			Where("ticket_template_id = ? AND addon_id = ?", req.TicketTemplateID, req.AddonID).
			Count(&duplicates).Error; err != nil {
			return fmt.Errorf("failed to check existing attachment: %w", err)
		}
		if duplicates > 0 {
			return apperrors.Conflict("Addon is already attached to this ticket template")
		}

		attachment = &models.TicketAddon{
			TicketTemplateID: req.TicketTemplateID,
			AddonID:          req.AddonID,
			OrderDisplay:     req.OrderDisplay,
		}
		if err := tx.Create(attachment).Error; err != nil {
			return fmt.Errorf("failed to attach addon: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return attachment, nil
}

func (s *EventService) ListCurrencies() ([]models.AllowedCurrency, error) {
	var currencies []models.AllowedCurrency
	if err := s.db.Order("code ASC").Find(&currencies).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch currencies: %w", err)
	}
	return currencies, nil
}

// CreateCurrency whitelists a new currency for ticket and addon pricing.
func (s *EventService) CreateCurrency(actingUserID uuid.UUID, req *CreateCurrencyRequest) (*models.AllowedCurrency, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.Wrap(apperrors.KindValidation, "validation failed", err)
	}

	elevated, err := s.authorizationService.IsSuperAdmin(s.db, actingUserID)
	if err != nil {
		return nil, err
	}
	if !elevated {
		return nil, apperrors.Authorization("Not authorized")
	}

	var duplicates int64
	if err := s.db.Model(&models.AllowedCurrency{}).
		Where("code = ?", req.Code).Count(&duplicates).Error; err != nil {
		return nil, fmt.Errorf("failed to check existing currencies: %w", err)
	}
	if duplicates > 0 {
		return nil, apperrors.Conflict("Currency already exists")
	}

	currency := &models.AllowedCurrency{Code: req.Code}
	if err := s.db.Create(currency).Error; err != nil {
		return nil, fmt.Errorf("failed to create currency: %w", err)
	}

	return currency, nil
}

func (s *EventService) UpdateEventBanner(actingUserID, eventID uuid.UUID, bannerURL string) (*models.Event, error) {
	allowed, err := s.authorizationService.CanManageEvent(s.db, actingUserID, eventID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, apperrors.Authorization("Not authorized")
	}

	var event models.Event
	if err := s.db.First(&event, eventID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("Event not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	event.BannerURL = bannerURL
	if err := s.db.Save(&event).Error; err != nil {
		return nil, fmt.Errorf("failed to update event: %w", err)
	}

	return &event, nil
}

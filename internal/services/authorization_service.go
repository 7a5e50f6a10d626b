// internal/services/authorization_service.go
package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/communityos/tickets-api/internal/models"
)

// AuthorizationService answers role questions over freshly loaded rows. The
// predicates are stateless: they take the data-access handle explicitly so
// they compose with whatever transaction the caller runs in.
type AuthorizationService struct {
	db *gorm.DB
}

func NewAuthorizationService(db *gorm.DB) *AuthorizationService {
	return &AuthorizationService{db: db}
}

func (s *AuthorizationService) IsSuperAdmin(tx *gorm.DB, userID uuid.UUID) (bool, error) {
	var user models.User
	if err := tx.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("database error: %w", err)
	}
	return user.IsSuperAdmin(), nil
}

// HasCommunityRole reports whether the user holds one of the given roles in
// the community.
func (s *AuthorizationService) HasCommunityRole(tx *gorm.DB, userID, communityID uuid.UUID, roles ...models.CommunityRole) (bool, error) {
	var count int64
	if err := tx.Model(&models.UserCommunityRole{}).
		Where("user_id = ? AND community_id = ? AND role IN ?", userID, communityID, roles).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check community role: %w", err)
	}
	return count > 0, nil
}

// CanManageEvent resolves event-level management through the community that
// owns the event: community admins and collaborators qualify, as do platform
// superadmins.
func (s *AuthorizationService) CanManageEvent(tx *gorm.DB, userID, eventID uuid.UUID) (bool, error) {
	elevated, err := s.IsSuperAdmin(tx, userID)
	if err != nil {
		return false, err
	}
	if elevated {
		return true, nil
	}

	var event models.Event
	if err := tx.First(&event, eventID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("database error: %w", err)
	}

	return s.HasCommunityRole(tx, userID, event.CommunityID,
		models.CommunityRoleAdmin, models.CommunityRoleCollaborator)
}

// IsTicketOwner reports whether the user owns the user ticket.
func (s *AuthorizationService) IsTicketOwner(tx *gorm.DB, userID, userTicketID uuid.UUID) (bool, error) {
	var ticket models.UserTicket
	if err := tx.First(&ticket, userTicketID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("database error: %w", err)
	}
	return ticket.UserID == userID, nil
}

// internal/models/common.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// JSONB type for PostgreSQL
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}

	return json.Unmarshal(bytes, j)
}

// Enums
type UserRole string

const (
	UserRoleUser       UserRole = "user"
	UserRoleAdmin      UserRole = "admin"
	UserRoleSuperAdmin UserRole = "superadmin"
)

type CommunityRole string

const (
	CommunityRoleAdmin        CommunityRole = "admin"
	CommunityRoleCollaborator CommunityRole = "collaborator"
	CommunityRoleMember       CommunityRole = "member"
)

type EventStatus string

const (
	EventStatusActive   EventStatus = "active"
	EventStatusInactive EventStatus = "inactive"
)

type TicketTemplateStatus string

const (
	TicketTemplateStatusActive   TicketTemplateStatus = "active"
	TicketTemplateStatusInactive TicketTemplateStatus = "inactive"
)

type TicketTemplateVisibility string

const (
	TicketTemplateVisibilityPublic   TicketTemplateVisibility = "public"
	TicketTemplateVisibilityPrivate  TicketTemplateVisibility = "private"
	TicketTemplateVisibilityUnlisted TicketTemplateVisibility = "unlisted"
)

type TicketApprovalStatus string

const (
	TicketApprovalStatusPending     TicketApprovalStatus = "pending"
	TicketApprovalStatusApproved    TicketApprovalStatus = "approved"
	TicketApprovalStatusRejected    TicketApprovalStatus = "rejected"
	TicketApprovalStatusCancelled   TicketApprovalStatus = "cancelled"
	TicketApprovalStatusGifted      TicketApprovalStatus = "gifted"
	TicketApprovalStatusNotRequired TicketApprovalStatus = "not_required"
)

// Approval states that hold a unit of ticket stock. Rejected and cancelled
// tickets release their allocation.
var TicketStockHoldingStatuses = []TicketApprovalStatus{
	TicketApprovalStatusPending,
	TicketApprovalStatusApproved,
	TicketApprovalStatusGifted,
	TicketApprovalStatusNotRequired,
}

type TicketRedemptionStatus string

const (
	TicketRedemptionStatusPending  TicketRedemptionStatus = "pending"
	TicketRedemptionStatusRedeemed TicketRedemptionStatus = "redeemed"
)

type AddonConstraintType string

const (
	AddonConstraintTypeDependency      AddonConstraintType = "dependency"
	AddonConstraintTypeMutualExclusion AddonConstraintType = "mutual_exclusion"
)

type UserTicketAddonApprovalStatus string

const (
	UserTicketAddonApprovalStatusPending   UserTicketAddonApprovalStatus = "pending"
	UserTicketAddonApprovalStatusApproved  UserTicketAddonApprovalStatus = "approved"
	UserTicketAddonApprovalStatusCancelled UserTicketAddonApprovalStatus = "cancelled"
)

// Addon approval states that hold stock. A pending row belongs to an unpaid
// order and keeps its units reserved until the order completes or expires.
var AddonStockHoldingStatuses = []UserTicketAddonApprovalStatus{
	UserTicketAddonApprovalStatusPending,
	UserTicketAddonApprovalStatusApproved,
}

type PurchaseOrderStatus string

const (
	PurchaseOrderStatusOpen     PurchaseOrderStatus = "open"
	PurchaseOrderStatusComplete PurchaseOrderStatus = "complete"
	PurchaseOrderStatusExpired  PurchaseOrderStatus = "expired"
)

type PurchaseOrderPaymentStatus string

const (
	PurchaseOrderPaymentStatusUnpaid      PurchaseOrderPaymentStatus = "unpaid"
	PurchaseOrderPaymentStatusPaid        PurchaseOrderPaymentStatus = "paid"
	PurchaseOrderPaymentStatusNotRequired PurchaseOrderPaymentStatus = "not_required"
)

type PaymentPlatform string

const (
	PaymentPlatformStripe PaymentPlatform = "stripe"
	PaymentPlatformNone   PaymentPlatform = "none"
)

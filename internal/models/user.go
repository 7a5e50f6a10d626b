// internal/models/user.go
package models

import (
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type User struct {
	BaseModel
	Username     string     `json:"username" gorm:"size:50;uniqueIndex;not null"`
	Email        string     `json:"email" gorm:"size:255;uniqueIndex;not null"`
	PasswordHash string     `json:"-" gorm:"size:255"`
	Name         string     `json:"name" gorm:"size:100"`
	Role         UserRole   `json:"role" gorm:"type:varchar(20);default:'user';index"`
	IsActive     bool       `json:"is_active" gorm:"default:true"`
	ProfileData  JSONB      `json:"profile_data,omitempty" gorm:"type:jsonb"`

	// Relationships
	CommunityRoles []UserCommunityRole `json:"community_roles,omitempty" gorm:"foreignKey:UserID"`
	UserTickets    []UserTicket        `json:"user_tickets,omitempty" gorm:"foreignKey:UserID"`
}

func (u *User) SetPassword(password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	return nil
}

func (u *User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

func (u *User) IsSuperAdmin() bool {
	return u.Role == UserRoleSuperAdmin
}

// UserCommunityRole grants a user a role within a community. Event-level
// permissions resolve through the community that owns the event.
type UserCommunityRole struct {
	BaseModel
	UserID      uuid.UUID     `json:"user_id" gorm:"type:uuid;not null;uniqueIndex:idx_user_community"`
	CommunityID uuid.UUID     `json:"community_id" gorm:"type:uuid;not null;uniqueIndex:idx_user_community"`
	Role        CommunityRole `json:"role" gorm:"type:varchar(20);not null"`

	// Relationships
	User      User      `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Community Community `json:"community,omitempty" gorm:"foreignKey:CommunityID"`
}

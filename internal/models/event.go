// internal/models/event.go
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type Community struct {
	BaseModel
	Name        string `json:"name" gorm:"size:100;not null"`
	Slug        string `json:"slug" gorm:"size:100;uniqueIndex;not null"`
	Description string `json:"description" gorm:"type:text"`
	LogoURL     string `json:"logo_url" gorm:"size:500"`
	IsActive    bool   `json:"is_active" gorm:"default:true"`

	// Relationships
	Events []Event             `json:"events,omitempty" gorm:"foreignKey:CommunityID"`
	Roles  []UserCommunityRole `json:"roles,omitempty" gorm:"foreignKey:CommunityID"`
}

type Event struct {
	BaseModel
	CommunityID   uuid.UUID      `json:"community_id" gorm:"type:uuid;not null;index"`
	Name          string         `json:"name" gorm:"size:200;not null"`
	Description   string         `json:"description" gorm:"type:text"`
	Status        EventStatus    `json:"status" gorm:"type:varchar(20);default:'inactive';index"`
	StartDateTime time.Time      `json:"start_date_time" gorm:"not null"`
	EndDateTime   *time.Time     `json:"end_date_time"`
	MaxAttendees  *int           `json:"max_attendees"`
	Address       string         `json:"address" gorm:"size:500"`
	Timezone      string         `json:"timezone" gorm:"size:64"`
	Tags          pq.StringArray `json:"tags" gorm:"type:text[]"`
	BannerURL     string         `json:"banner_url" gorm:"size:500"`

	// Relationships
	Community       Community        `json:"community,omitempty" gorm:"foreignKey:CommunityID"`
	TicketTemplates []TicketTemplate `json:"ticket_templates,omitempty" gorm:"foreignKey:EventID"`
	Addons          []Addon          `json:"addons,omitempty" gorm:"foreignKey:EventID"`
}

// HasEnded reports whether the event's end date has passed. Events without an
// end date never expire.
func (e *Event) HasEnded(now time.Time) bool {
	return e.EndDateTime != nil && e.EndDateTime.Before(now)
}

func (e *Event) IsActive() bool {
	return e.Status == EventStatusActive
}

type AllowedCurrency struct {
	BaseModel
	Code string `json:"code" gorm:"size:3;uniqueIndex;not null"`
}

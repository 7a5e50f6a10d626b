// internal/services/ticket_service_test.go
package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/communityos/tickets-api/internal/apperrors"
	"github.com/communityos/tickets-api/internal/models"
)

func TestValidateTicketLines(t *testing.T) {
	templateID := uuid.New()

	err := validateTicketLines(nil)
	assert.Error(t, err)
	assert.Equal(t, "No tickets provided", err.Error())

	err = validateTicketLines([]TicketClaimLine{{TicketTemplateID: templateID, Quantity: 0}})
	assert.Error(t, err)
	assert.Equal(t, "Ticket quantity must be greater than zero", err.Error())

	// Two lines naming the same template would each pass the stock check
	// against the units the other line already consumed.
	err = validateTicketLines([]TicketClaimLine{
		{TicketTemplateID: templateID, Quantity: 1},
		{TicketTemplateID: templateID, Quantity: 1},
	})
	assert.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
	assert.Equal(t, "Duplicated ticket template ids", err.Error())

	assert.NoError(t, validateTicketLines([]TicketClaimLine{
		{TicketTemplateID: templateID, Quantity: 2},
		{TicketTemplateID: uuid.New(), Quantity: 1},
	}))
}

func TestCheckEventCapacity(t *testing.T) {
	capped := &models.Event{MaxAttendees: intPtr(100)}

	assert.NoError(t, checkEventCapacity(capped, 98, 2))

	err := checkEventCapacity(capped, 99, 2)
	assert.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindConflict))
	assert.Equal(t, "Event has reached its maximum number of attendees", err.Error())

	uncapped := &models.Event{}
	assert.NoError(t, checkEventCapacity(uncapped, 100000, 50))
}

func TestCanApproveTicket(t *testing.T) {
	assert.True(t, canApproveTicket(models.TicketApprovalStatusPending))
	assert.True(t, canApproveTicket(models.TicketApprovalStatusGifted))

	assert.False(t, canApproveTicket(models.TicketApprovalStatusApproved))
	assert.False(t, canApproveTicket(models.TicketApprovalStatusNotRequired))
	assert.False(t, canApproveTicket(models.TicketApprovalStatusRejected))
	assert.False(t, canApproveTicket(models.TicketApprovalStatusCancelled))
}

func TestCheckEventClaimable(t *testing.T) {
	now := time.Now()
	future := now.Add(24 * time.Hour)
	past := now.Add(-24 * time.Hour)

	active := &models.Event{Status: models.EventStatusActive, EndDateTime: &future}
	assert.NoError(t, checkEventClaimable(active, now))

	// No end date means the event never expires.
	openEnded := &models.Event{Status: models.EventStatusActive}
	assert.NoError(t, checkEventClaimable(openEnded, now))

	inactive := &models.Event{Status: models.EventStatusInactive, EndDateTime: &future}
	err := checkEventClaimable(inactive, now)
	assert.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindConflict))
	assert.Equal(t, "Event is not active", err.Error())

	ended := &models.Event{Status: models.EventStatusActive, EndDateTime: &past}
	err = checkEventClaimable(ended, now)
	assert.Error(t, err)
	assert.Equal(t, "Event has already ended", err.Error())
}

func TestApprovalStatusOnClaim(t *testing.T) {
	curated := &models.TicketTemplate{RequiresApproval: true}
	assert.Equal(t, models.TicketApprovalStatusPending, approvalStatusOnClaim(curated))

	open := &models.TicketTemplate{}
	assert.Equal(t, models.TicketApprovalStatusNotRequired, approvalStatusOnClaim(open))
}

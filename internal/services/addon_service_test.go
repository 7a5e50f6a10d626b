// internal/services/addon_service_test.go
package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/communityos/tickets-api/internal/apperrors"
	"github.com/communityos/tickets-api/internal/models"
)

func namedAddon(name string) *models.Addon {
	addon := &models.Addon{Name: name}
	addon.ID = uuid.New()
	return addon
}

func TestValidateClaimBatchEmpty(t *testing.T) {
	err := validateClaimBatch(nil)

	assert.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
	assert.Equal(t, "No user ticket addons provided", err.Error())
}

func TestValidateClaimBatchDuplicates(t *testing.T) {
	addonID := uuid.New()

	err := validateClaimBatch([]AddonClaim{
		{AddonID: addonID, Quantity: 1},
		{AddonID: uuid.New(), Quantity: 2},
		{AddonID: addonID, Quantity: 1},
	})

	assert.Error(t, err)
	assert.Equal(t, "Duplicated addon ids", err.Error())
}

func TestValidateClaimBatchNonPositiveQuantity(t *testing.T) {
	for _, quantity := range []int{0, -1} {
		err := validateClaimBatch([]AddonClaim{{AddonID: uuid.New(), Quantity: quantity}})
		assert.Error(t, err)
		assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
	}
}

func TestValidateClaimBatchOK(t *testing.T) {
	err := validateClaimBatch([]AddonClaim{
		{AddonID: uuid.New(), Quantity: 1},
		{AddonID: uuid.New(), Quantity: 3},
	})

	assert.NoError(t, err)
}

func TestCheckPerTicketLimit(t *testing.T) {
	ticketID := uuid.New()

	capped := namedAddon("Workshop")
	capped.MaxPerTicket = intPtr(3)

	// 2 held + 1 new = 3, at the cap.
	assert.NoError(t, checkPerTicketLimit(capped, 2, 1, ticketID))

	// 2 held + 2 new = 4, over the cap.
	err := checkPerTicketLimit(capped, 2, 2, ticketID)
	assert.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindConflict))
	assert.Contains(t, err.Error(), "total quantity exceeds limit per ticket for ticket")

	uncapped := namedAddon("Sticker pack")
	assert.NoError(t, checkPerTicketLimit(uncapped, 100, 100, ticketID))

	unlimited := namedAddon("Livestream access")
	unlimited.IsUnlimited = true
	unlimited.MaxPerTicket = intPtr(1)
	assert.NoError(t, checkPerTicketLimit(unlimited, 5, 5, ticketID))
}

func attachedSet(addons ...*models.Addon) map[uuid.UUID]*models.Addon {
	attached := make(map[uuid.UUID]*models.Addon, len(addons))
	for _, addon := range addons {
		attached[addon.ID] = addon
	}
	return attached
}

func dependencyConstraint(dependent, prerequisite uuid.UUID) models.AddonConstraint {
	return models.AddonConstraint{
		AddonID:        dependent,
		RelatedAddonID: prerequisite,
		ConstraintType: models.AddonConstraintTypeDependency,
	}
}

func exclusionConstraint(first, second uuid.UUID) models.AddonConstraint {
	return models.AddonConstraint{
		AddonID:        first,
		RelatedAddonID: second,
		ConstraintType: models.AddonConstraintTypeMutualExclusion,
	}
}

func TestCheckDependenciesSatisfiedByBatch(t *testing.T) {
	workshop := namedAddon("Workshop")
	lunch := namedAddon("Lunch")
	attached := attachedSet(workshop, lunch)

	constraints := []models.AddonConstraint{dependencyConstraint(workshop.ID, lunch.ID)}
	claimSet := newAddonSet(workshop.ID, lunch.ID)

	assert.NoError(t, checkDependenciesSatisfied(claimSet, nil, constraints, attached))
}

func TestCheckDependenciesSatisfiedByApproved(t *testing.T) {
	workshop := namedAddon("Workshop")
	lunch := namedAddon("Lunch")
	attached := attachedSet(workshop, lunch)

	constraints := []models.AddonConstraint{dependencyConstraint(workshop.ID, lunch.ID)}
	claimSet := newAddonSet(workshop.ID)
	approvedSet := newAddonSet(lunch.ID)

	assert.NoError(t, checkDependenciesSatisfied(claimSet, approvedSet, constraints, attached))
}

func TestCheckDependenciesMissingPrerequisite(t *testing.T) {
	workshop := namedAddon("Workshop")
	lunch := namedAddon("Lunch")
	attached := attachedSet(workshop, lunch)

	constraints := []models.AddonConstraint{dependencyConstraint(workshop.ID, lunch.ID)}
	claimSet := newAddonSet(workshop.ID)

	err := checkDependenciesSatisfied(claimSet, nil, constraints, attached)

	assert.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindDependency))
	assert.Equal(t, "Addon Workshop requires addon Lunch to be claimed first", err.Error())
}

func TestCheckDependenciesIgnoresUnattachedPrerequisite(t *testing.T) {
	workshop := namedAddon("Workshop")
	attached := attachedSet(workshop)

	// The prerequisite is not attached to this ticket's template, so the
	// edge is out of scope here.
	constraints := []models.AddonConstraint{dependencyConstraint(workshop.ID, uuid.New())}
	claimSet := newAddonSet(workshop.ID)

	assert.NoError(t, checkDependenciesSatisfied(claimSet, nil, constraints, attached))
}

func TestCheckExclusionsWithinBatch(t *testing.T) {
	vegan := namedAddon("Vegan lunch")
	steak := namedAddon("Steak lunch")
	attached := attachedSet(vegan, steak)

	constraints := []models.AddonConstraint{exclusionConstraint(vegan.ID, steak.ID)}
	claimSet := newAddonSet(vegan.ID, steak.ID)

	err := checkExclusions(claimSet, nil, constraints, attached)

	assert.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindConflict))
	assert.Equal(t, "Addon Vegan lunch cannot be combined with addon Steak lunch", err.Error())
}

func TestCheckExclusionsAgainstApproved(t *testing.T) {
	vegan := namedAddon("Vegan lunch")
	steak := namedAddon("Steak lunch")
	attached := attachedSet(vegan, steak)

	// Edge direction is steak->vegan but the claim is vegan; exclusion
	// applies in both directions.
	constraints := []models.AddonConstraint{exclusionConstraint(steak.ID, vegan.ID)}
	claimSet := newAddonSet(vegan.ID)
	approvedSet := newAddonSet(steak.ID)

	err := checkExclusions(claimSet, approvedSet, constraints, attached)

	assert.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindConflict))
}

func TestCheckExclusionsPassWhenCounterpartAbsent(t *testing.T) {
	vegan := namedAddon("Vegan lunch")
	steak := namedAddon("Steak lunch")
	attached := attachedSet(vegan, steak)

	constraints := []models.AddonConstraint{exclusionConstraint(vegan.ID, steak.ID)}
	claimSet := newAddonSet(vegan.ID)

	assert.NoError(t, checkExclusions(claimSet, nil, constraints, attached))
}

func TestAnyPaidClaim(t *testing.T) {
	free := namedAddon("Sticker pack")
	free.IsFree = true
	paid := namedAddon("Workshop")
	attached := attachedSet(free, paid)

	assert.False(t, anyPaidClaim([]AddonClaim{{AddonID: free.ID, Quantity: 2}}, attached))
	assert.True(t, anyPaidClaim([]AddonClaim{
		{AddonID: free.ID, Quantity: 1},
		{AddonID: paid.ID, Quantity: 1},
	}, attached))
	assert.False(t, anyPaidClaim(nil, attached))
}

func TestValidateCancelBatch(t *testing.T) {
	err := validateCancelBatch(nil)
	assert.Error(t, err)
	assert.Equal(t, "No user ticket addons provided", err.Error())

	// A repeated id would make the not-found count disagree with the row
	// count even though every id exists.
	rowID := uuid.New()
	err = validateCancelBatch([]uuid.UUID{rowID, uuid.New(), rowID})
	assert.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
	assert.Equal(t, "Duplicated user ticket addon ids", err.Error())

	assert.NoError(t, validateCancelBatch([]uuid.UUID{uuid.New(), uuid.New()}))
}

func claimRow(userTicketID uuid.UUID, addon *models.Addon, status models.UserTicketAddonApprovalStatus) models.UserTicketAddon {
	row := models.UserTicketAddon{
		UserTicketID:   userTicketID,
		AddonID:        addon.ID,
		Quantity:       1,
		ApprovalStatus: status,
		Addon:          *addon,
	}
	row.ID = uuid.New()
	return row
}

func TestBlockingDependentsRejectsCancellation(t *testing.T) {
	ticketID := uuid.New()
	lunch := namedAddon("Lunch")
	workshop := namedAddon("Workshop")

	lunchRow := claimRow(ticketID, lunch, models.UserTicketAddonApprovalStatusApproved)
	workshopRow := claimRow(ticketID, workshop, models.UserTicketAddonApprovalStatusApproved)

	edges := []models.AddonConstraint{dependencyConstraint(workshop.ID, lunch.ID)}

	err := blockingDependents(
		[]models.UserTicketAddon{lunchRow},
		[]models.UserTicketAddon{lunchRow, workshopRow},
		edges,
	)

	assert.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindDependency))
	assert.Equal(t, "Cannot cancel addon Lunch because other addons depend on it", err.Error())
}

func TestBlockingDependentsAllowsBatchCancellation(t *testing.T) {
	// Cancelling the dependent and its prerequisite together is legal: the
	// check runs against the batch's post-state.
	ticketID := uuid.New()
	lunch := namedAddon("Lunch")
	workshop := namedAddon("Workshop")

	lunchRow := claimRow(ticketID, lunch, models.UserTicketAddonApprovalStatusApproved)
	workshopRow := claimRow(ticketID, workshop, models.UserTicketAddonApprovalStatusApproved)

	edges := []models.AddonConstraint{dependencyConstraint(workshop.ID, lunch.ID)}

	err := blockingDependents(
		[]models.UserTicketAddon{lunchRow, workshopRow},
		[]models.UserTicketAddon{lunchRow, workshopRow},
		edges,
	)

	assert.NoError(t, err)
}

func TestBlockingDependentsIgnoresOtherTickets(t *testing.T) {
	lunch := namedAddon("Lunch")
	workshop := namedAddon("Workshop")

	lunchRow := claimRow(uuid.New(), lunch, models.UserTicketAddonApprovalStatusApproved)
	// The dependent lives on a different user ticket.
	workshopRow := claimRow(uuid.New(), workshop, models.UserTicketAddonApprovalStatusApproved)

	edges := []models.AddonConstraint{dependencyConstraint(workshop.ID, lunch.ID)}

	err := blockingDependents(
		[]models.UserTicketAddon{lunchRow},
		[]models.UserTicketAddon{lunchRow, workshopRow},
		edges,
	)

	assert.NoError(t, err)
}

func TestValidateCancellationRejectsAlreadyCancelled(t *testing.T) {
	lunch := namedAddon("Lunch")
	row := claimRow(uuid.New(), lunch, models.UserTicketAddonApprovalStatusCancelled)

	err := validateCancellation([]models.UserTicketAddon{row}, nil, nil)

	assert.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindConflict))
	assert.Equal(t, "Some addons are already cancelled", err.Error())
}

func TestValidateCancellationChecksDependentsBeforePayment(t *testing.T) {
	// A paid prerequisite with an approved dependent violates two rules at
	// once; the dependency answer wins.
	ticketID := uuid.New()
	lunch := namedAddon("Lunch")
	workshop := namedAddon("Workshop")

	lunchRow := claimRow(ticketID, lunch, models.UserTicketAddonApprovalStatusApproved)
	lunchRow.UnitPriceInCents = 1500
	workshopRow := claimRow(ticketID, workshop, models.UserTicketAddonApprovalStatusApproved)

	edges := []models.AddonConstraint{dependencyConstraint(workshop.ID, lunch.ID)}

	err := validateCancellation(
		[]models.UserTicketAddon{lunchRow},
		[]models.UserTicketAddon{lunchRow, workshopRow},
		edges,
	)

	assert.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindDependency))
}

func TestValidateCancellationRejectsPaidRows(t *testing.T) {
	lunch := namedAddon("Lunch")
	row := claimRow(uuid.New(), lunch, models.UserTicketAddonApprovalStatusApproved)
	row.UnitPriceInCents = 1500

	err := validateCancellation([]models.UserTicketAddon{row}, []models.UserTicketAddon{row}, nil)

	assert.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindConflict))
	assert.Equal(t, "Cancellation of paid addons is not supported yet", err.Error())
}

func TestBlockingDependentsIgnoresPendingDependents(t *testing.T) {
	ticketID := uuid.New()
	lunch := namedAddon("Lunch")
	workshop := namedAddon("Workshop")

	lunchRow := claimRow(ticketID, lunch, models.UserTicketAddonApprovalStatusApproved)
	workshopRow := claimRow(ticketID, workshop, models.UserTicketAddonApprovalStatusPending)

	edges := []models.AddonConstraint{dependencyConstraint(workshop.ID, lunch.ID)}

	err := blockingDependents(
		[]models.UserTicketAddon{lunchRow},
		[]models.UserTicketAddon{lunchRow, workshopRow},
		edges,
	)

	assert.NoError(t, err)
}

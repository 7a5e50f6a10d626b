// internal/i18n/keys.go
package i18n

// Translation keys constants
const (
	// Common
	KeySuccess = "success"
	KeyError   = "error"

	// Authentication
	KeyAuthRequired     = "auth.required"
	KeyAuthInvalidToken = "auth.invalid_token"
	KeyAuthTokenExpired = "auth.token_expired"
	KeyAuthForbidden    = "auth.forbidden"

	// Validation
	KeyValidationInvalid = "validation.invalid"

	// Events
	KeyEventNotFound  = "event.not_found"
	KeyEventCreated   = "event.created"
	KeyEventNotActive = "event.not_active"
	KeyEventEnded     = "event.ended"

	// Tickets
	KeyTicketClaimed     = "ticket.claimed"
	KeyTicketGifted      = "ticket.gifted"
	KeyTicketApproved    = "ticket.approved"
	KeyTicketNotFound    = "ticket.not_found"
	KeyTicketOutOfStock  = "ticket.out_of_stock"
	KeyTicketNotApproved = "ticket.not_approved"

	// Addons
	KeyAddonClaimed    = "addon.claimed"
	KeyAddonCancelled  = "addon.cancelled"
	KeyAddonNotFound   = "addon.not_found"
	KeyAddonOutOfStock = "addon.out_of_stock"

	// Constraints
	KeyConstraintCreated = "constraint.created"
	KeyConstraintUpdated = "constraint.updated"
	KeyConstraintDeleted = "constraint.deleted"
	KeyConstraintCyclic  = "constraint.cyclic"

	// Orders
	KeyOrderCreated      = "order.created"
	KeyOrderPaymentDue   = "order.payment_due"
	KeyOrderNotFound     = "order.not_found"
)

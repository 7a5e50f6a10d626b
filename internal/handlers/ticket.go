// internal/handlers/ticket.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/communityos/tickets-api/internal/i18n"
	"github.com/communityos/tickets-api/internal/services"
	"github.com/communityos/tickets-api/internal/utils"
)

type TicketHandler struct {
	ticketService *services.TicketService
}

func NewTicketHandler(ticketService *services.TicketService) *TicketHandler {
	return &TicketHandler{
		ticketService: ticketService,
	}
}

// POST /tickets/claim
func (h *TicketHandler) ClaimTickets(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req services.ClaimTicketsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	order, err := h.ticketService.ClaimTickets(userID, &req)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	message := i18n.T(lang, i18n.KeyTicketClaimed)
	if order.RequiresPayment() {
		message = i18n.T(lang, i18n.KeyOrderPaymentDue)
	}
	utils.CreatedResponse(c, gin.H{
		"message": message,
		"order":   order,
	})
}

// POST /tickets/gift
func (h *TicketHandler) GiftTickets(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req services.GiftTicketsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	tickets, err := h.ticketService.GiftTickets(userID, &req)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyTicketGifted),
		"tickets": tickets,
	})
}

// POST /tickets/:id/approve
func (h *TicketHandler) ApproveTicket(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	ticketID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid ticket ID", nil)
		return
	}

	ticket, err := h.ticketService.ApproveUserTicket(userID, ticketID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyTicketApproved),
		"ticket":  ticket,
	})
}

// GET /tickets
func (h *TicketHandler) GetMyTickets(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	tickets, err := h.ticketService.GetUserTickets(userID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"tickets": tickets})
}

func requireUserID(c *gin.Context) (uuid.UUID, bool) {
	userIDStr, exists := utils.GetUserIDFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return uuid.Nil, false
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid user ID", nil)
		return uuid.Nil, false
	}
	return userID, true
}

// internal/handlers/addon.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/communityos/tickets-api/internal/i18n"
	"github.com/communityos/tickets-api/internal/services"
	"github.com/communityos/tickets-api/internal/utils"
)

type AddonHandler struct {
	addonService      *services.AddonService
	constraintService *services.ConstraintService
}

func NewAddonHandler(addonService *services.AddonService, constraintService *services.ConstraintService) *AddonHandler {
	return &AddonHandler{
		addonService:      addonService,
		constraintService: constraintService,
	}
}

// POST /addons/claim
func (h *AddonHandler) ClaimAddons(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req services.ClaimAddonsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	order, err := h.addonService.ClaimAddons(userID, &req)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	message := i18n.T(lang, i18n.KeyAddonClaimed)
	if order.RequiresPayment() {
		message = i18n.T(lang, i18n.KeyOrderPaymentDue)
	}
	utils.CreatedResponse(c, gin.H{
		"message": message,
		"order":   order,
	})
}

// POST /addons/cancel
func (h *AddonHandler) CancelAddons(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req services.CancelAddonsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	cancelled, err := h.addonService.CancelAddons(userID, &req)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":            i18n.T(lang, i18n.KeyAddonCancelled),
		"user_ticket_addons": cancelled,
	})
}

// GET /tickets/:id/addons
func (h *AddonHandler) GetTicketAddons(c *gin.Context) {
	if _, ok := requireUserID(c); !ok {
		return
	}

	userTicketID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid ticket ID", nil)
		return
	}

	rows, err := h.addonService.GetTicketAddons(userTicketID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"user_ticket_addons": rows})
}

// POST /constraints
func (h *AddonHandler) CreateConstraint(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.CreateConstraintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	constraint, err := h.constraintService.CreateConstraint(&req)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message":    i18n.T(lang, i18n.KeyConstraintCreated),
		"constraint": constraint,
	})
}

// PUT /constraints/:id
func (h *AddonHandler) UpdateConstraint(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	constraintID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid constraint ID", nil)
		return
	}

	var req services.UpdateConstraintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	constraint, err := h.constraintService.UpdateConstraint(constraintID, &req)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":    i18n.T(lang, i18n.KeyConstraintUpdated),
		"constraint": constraint,
	})
}

// DELETE /constraints/:id
func (h *AddonHandler) DeleteConstraint(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	constraintID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid constraint ID", nil)
		return
	}

	if err := h.constraintService.DeleteConstraint(constraintID); err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyConstraintDeleted),
	})
}

// GET /addons/:id/constraints
func (h *AddonHandler) GetAddonConstraints(c *gin.Context) {
	addonID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid addon ID", nil)
		return
	}

	constraints, err := h.constraintService.GetConstraintsForAddon(addonID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"constraints": constraints})
}

// internal/handlers/event.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/communityos/tickets-api/internal/i18n"
	"github.com/communityos/tickets-api/internal/services"
	"github.com/communityos/tickets-api/internal/utils"
)

type EventHandler struct {
	eventService   *services.EventService
	storageService *services.StorageService
}

func NewEventHandler(eventService *services.EventService, storageService *services.StorageService) *EventHandler {
	return &EventHandler{
		eventService:   eventService,
		storageService: storageService,
	}
}

// GET /events
func (h *EventHandler) SearchEvents(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	events, total, err := h.eventService.SearchEvents(params)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(events, total, params))
}

// GET /events/:id
func (h *EventHandler) GetEvent(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid event ID", nil)
		return
	}

	event, err := h.eventService.GetEvent(eventID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"event": event})
}

// POST /events/:id/ticket-templates
func (h *EventHandler) CreateTicketTemplate(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid event ID", nil)
		return
	}

	var req services.CreateTicketTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	template, err := h.eventService.CreateTicketTemplate(userID, eventID, &req)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{"ticket_template": template})
}

// POST /events/:id/addons
func (h *EventHandler) CreateAddon(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid event ID", nil)
		return
	}

	var req services.CreateAddonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	addon, err := h.eventService.CreateAddon(userID, eventID, &req)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{"addon": addon})
}

// POST /ticket-addons
func (h *EventHandler) AttachAddon(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req services.AttachAddonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	attachment, err := h.eventService.AttachAddon(userID, &req)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{"ticket_addon": attachment})
}

// GET /currencies
func (h *EventHandler) ListCurrencies(c *gin.Context) {
	currencies, err := h.eventService.ListCurrencies()
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"currencies": currencies})
}

// POST /currencies
func (h *EventHandler) CreateCurrency(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req services.CreateCurrencyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	currency, err := h.eventService.CreateCurrency(userID, &req)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{"currency": currency})
}

// POST /events/:id/banner
func (h *EventHandler) UploadEventBanner(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid event ID", nil)
		return
	}

	if h.storageService == nil {
		utils.ErrorResponse(c, http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE", "Storage is not configured", nil)
		return
	}

	file, header, err := c.Request.FormFile("banner")
	if err != nil {
		utils.BadRequestResponse(c, "Banner file is required", nil)
		return
	}
	defer file.Close()

	result, err := h.storageService.UploadFile(file, header, services.UploadOptions{
		Folder:       "events/banners",
		MaxSize:      5 * 1024 * 1024,
		AllowedTypes: []string{".jpg", ".jpeg", ".png", ".webp"},
	})
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	event, err := h.eventService.UpdateEventBanner(userID, eventID, result.URL)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"event":  event,
		"upload": result,
	})
}

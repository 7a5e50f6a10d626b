// internal/router/router.go
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/communityos/tickets-api/internal/config"
	"github.com/communityos/tickets-api/internal/handlers"
	"github.com/communityos/tickets-api/internal/middleware"
	"github.com/communityos/tickets-api/internal/services"
	"github.com/communityos/tickets-api/internal/utils"
)

func Initialize(db *gorm.DB, cfg *config.Config) *gin.Engine {
	// Initialize services
	notificationService := services.NewNotificationService(db, cfg)
	storageService, err := services.NewStorageService(cfg)
	if err != nil {
		logrus.WithError(err).Warn("Failed to initialize storage service, uploads disabled")
	}
	authorizationService := services.NewAuthorizationService(db)
	inventoryService := services.NewInventoryService(db)
	paymentService := services.NewPaymentService(db, cfg)

	eventService := services.NewEventService(db, authorizationService)
	constraintService := services.NewConstraintService(db)
	ticketService := services.NewTicketService(db, inventoryService, authorizationService, paymentService, notificationService)
	addonService := services.NewAddonService(db, inventoryService, authorizationService, paymentService, notificationService)

	// Initialize handlers
	eventHandler := handlers.NewEventHandler(eventService, storageService)
	ticketHandler := handlers.NewTicketHandler(ticketService)
	addonHandler := handlers.NewAddonHandler(addonService, constraintService)

	// Set JWT secret
	utils.SetJWTSecret(cfg.JWT.SecretKey)

	// Initialize Gin router
	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(cfg.Frontend.BaseURL))
	r.Use(middleware.I18nMiddleware())
	r.Use(middleware.GeneralRateLimit())
	r.Use(middleware.AuditLogMiddleware(db))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})

	// API v1 routes
	v1 := r.Group("/v1")
	{
		// Event routes
		events := v1.Group("/events")
		{
			events.GET("", middleware.OptionalAuth(), eventHandler.SearchEvents)
			events.GET("/:id", middleware.OptionalAuth(), eventHandler.GetEvent)

			// Organizer routes
			protected := events.Group("")
			protected.Use(middleware.AuthRequired())
			{
				protected.POST("/:id/ticket-templates", eventHandler.CreateTicketTemplate)
				protected.POST("/:id/addons", eventHandler.CreateAddon)
				protected.POST("/:id/banner", middleware.UploadRateLimit(), eventHandler.UploadEventBanner)
			}
		}

		// Ticket routes
		tickets := v1.Group("/tickets")
		tickets.Use(middleware.AuthRequired())
		{
			tickets.GET("", ticketHandler.GetMyTickets)
			tickets.POST("/claim", middleware.ClaimRateLimit(), ticketHandler.ClaimTickets)
			tickets.POST("/gift", ticketHandler.GiftTickets)
			tickets.POST("/:id/approve", ticketHandler.ApproveTicket)
			tickets.GET("/:id/addons", addonHandler.GetTicketAddons)
		}

		// Addon claim routes
		addons := v1.Group("/addons")
		{
			addons.GET("/:id/constraints", addonHandler.GetAddonConstraints)

			protected := addons.Group("")
			protected.Use(middleware.AuthRequired())
			{
				protected.POST("/claim", middleware.ClaimRateLimit(), addonHandler.ClaimAddons)
				protected.POST("/cancel", addonHandler.CancelAddons)
			}
		}

		// Ticket-addon attachment routes
		ticketAddons := v1.Group("/ticket-addons")
		ticketAddons.Use(middleware.AuthRequired())
		{
			ticketAddons.POST("", eventHandler.AttachAddon)
		}

		// Currency routes
		currencies := v1.Group("/currencies")
		{
			currencies.GET("", eventHandler.ListCurrencies)
			currencies.POST("", middleware.AuthRequired(), middleware.SuperAdminRequired(), eventHandler.CreateCurrency)
		}

		// Constraint authoring routes
		constraints := v1.Group("/constraints")
		constraints.Use(middleware.AuthRequired(), middleware.SuperAdminRequired())
		{
			constraints.POST("", addonHandler.CreateConstraint)
			constraints.PUT("/:id", addonHandler.UpdateConstraint)
			constraints.DELETE("/:id", addonHandler.DeleteConstraint)
		}
	}

	return r
}

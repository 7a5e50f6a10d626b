// internal/tests/claim_test.go
package tests

import (
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/communityos/tickets-api/internal/database"
	"github.com/communityos/tickets-api/internal/models"
	"github.com/communityos/tickets-api/internal/services"
)

// ClaimTestSuite exercises ticket claims against a real database, where the
// row locks and counting queries actually contend. Set TEST_DATABASE_DSN to a
// disposable Postgres database to run it; without it the suite skips.
type ClaimTestSuite struct {
	suite.Suite
	db            *gorm.DB
	ticketService *services.TicketService

	community models.Community
	event     models.Event
}

func (suite *ClaimTestSuite) SetupSuite() {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		suite.T().Skip("TEST_DATABASE_DSN not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		suite.T().Skipf("test database unreachable: %v", err)
	}
	suite.db = db

	suite.Require().NoError(database.RunMigrations(db))

	inventoryService := services.NewInventoryService(db)
	authorizationService := services.NewAuthorizationService(db)
	// Free claims never reach the payment or notification paths, so those
	// services stay nil here.
	suite.ticketService = services.NewTicketService(db, inventoryService, authorizationService, nil, nil)
}

func (suite *ClaimTestSuite) SetupTest() {
	suite.community = models.Community{
		Name: "Test community",
		Slug: "test-community-" + uuid.NewString(),
	}
	suite.Require().NoError(suite.db.Create(&suite.community).Error)

	suite.event = models.Event{
		CommunityID:   suite.community.ID,
		Name:          "Test event",
		Status:        models.EventStatusActive,
		StartDateTime: time.Now().Add(24 * time.Hour),
	}
	suite.Require().NoError(suite.db.Create(&suite.event).Error)
}

func (suite *ClaimTestSuite) createUser(name string) models.User {
	user := models.User{
		Username: name + "-" + uuid.NewString(),
		Email:    name + "-" + uuid.NewString() + "@example.com",
		Name:     name,
	}
	suite.Require().NoError(suite.db.Create(&user).Error)
	return user
}

func (suite *ClaimTestSuite) createTemplate(quantity *int) models.TicketTemplate {
	template := models.TicketTemplate{
		EventID:  suite.event.ID,
		Name:     "General admission",
		Quantity: quantity,
		IsFree:   true,
		Status:   models.TicketTemplateStatusActive,
	}
	suite.Require().NoError(suite.db.Create(&template).Error)
	return template
}

func (suite *ClaimTestSuite) committedCount(templateID uuid.UUID) int64 {
	var count int64
	suite.Require().NoError(suite.db.Model(&models.UserTicket{}).
		Where("ticket_template_id = ? AND approval_status IN ?", templateID, models.TicketStockHoldingStatuses).
		Count(&count).Error)
	return count
}

func intPtr(v int) *int { return &v }

// Two users race for the last unit of a bounded template. The template row
// lock serializes them, so exactly one claim lands.
func (suite *ClaimTestSuite) TestBoundedTemplateNeverOversells() {
	template := suite.createTemplate(intPtr(1))
	alice := suite.createUser("alice")
	bob := suite.createUser("bob")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, userID := range []uuid.UUID{alice.ID, bob.ID} {
		wg.Add(1)
		go func(i int, userID uuid.UUID) {
			defer wg.Done()
			_, errs[i] = suite.ticketService.ClaimTickets(userID, &services.ClaimTicketsRequest{
				Lines: []services.TicketClaimLine{{TicketTemplateID: template.ID, Quantity: 1}},
			})
		}(i, userID)
	}
	wg.Wait()

	failures := 0
	for _, err := range errs {
		if err != nil {
			failures++
			suite.Contains(err.Error(), "Insufficient stock")
		}
	}
	suite.Equal(1, failures)
	suite.Equal(int64(1), suite.committedCount(template.ID))
}

func (suite *ClaimTestSuite) TestDuplicateLinesRejected() {
	template := suite.createTemplate(intPtr(10))
	alice := suite.createUser("alice")

	_, err := suite.ticketService.ClaimTickets(alice.ID, &services.ClaimTicketsRequest{
		Lines: []services.TicketClaimLine{
			{TicketTemplateID: template.ID, Quantity: 1},
			{TicketTemplateID: template.ID, Quantity: 1},
		},
		AllowMultiplePerUser: true,
	})

	suite.Error(err)
	suite.Equal("Duplicated ticket template ids", err.Error())
	suite.Equal(int64(0), suite.committedCount(template.ID))
}

func (suite *ClaimTestSuite) TestEventAttendeeCapEnforced() {
	suite.Require().NoError(suite.db.Model(&suite.event).
		Update("max_attendees", 1).Error)
	template := suite.createTemplate(nil)
	alice := suite.createUser("alice")
	bob := suite.createUser("bob")

	_, err := suite.ticketService.ClaimTickets(alice.ID, &services.ClaimTicketsRequest{
		Lines: []services.TicketClaimLine{{TicketTemplateID: template.ID, Quantity: 1}},
	})
	suite.NoError(err)

	_, err = suite.ticketService.ClaimTickets(bob.ID, &services.ClaimTicketsRequest{
		Lines: []services.TicketClaimLine{{TicketTemplateID: template.ID, Quantity: 1}},
	})
	suite.Error(err)
	suite.Equal("Event has reached its maximum number of attendees", err.Error())
	suite.Equal(int64(1), suite.committedCount(template.ID))
}

func TestClaimSuite(t *testing.T) {
	suite.Run(t, new(ClaimTestSuite))
}

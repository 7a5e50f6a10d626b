// internal/database/connection.go
package database

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/communityos/tickets-api/internal/config"
	"github.com/communityos/tickets-api/internal/models"
)

var DB *gorm.DB

func Initialize(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var err error
	var gormConfig *gorm.Config

	// Configure GORM logger
	if cfg.LogLevel == "silent" {
		gormConfig = &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		}
	} else {
		gormConfig = &gorm.Config{
			Logger: logger.Default.LogMode(logger.Info),
		}
	}

	// Connect to database
	DB, err = gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying sql.DB
	sqlDB, err := DB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pool
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.MaxLifetime) * time.Second)

	// Test connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("Database connection established successfully")
	return DB, nil
}

func Close(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		log.Printf("Error getting underlying sql.DB: %v", err)
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Printf("Error closing database connection: %v", err)
	} else {
		log.Println("Database connection closed successfully")
	}
}

func RunMigrations(db *gorm.DB) error {
	log.Println("Running database migrations...")

	// Enable UUID extension
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS \"uuid-ossp\"").Error; err != nil {
		return fmt.Errorf("failed to create UUID extension: %w", err)
	}

	// Run auto-migrations
	err := db.AutoMigrate(
		&models.User{},
		&models.Community{},
		&models.UserCommunityRole{},
		&models.Event{},
		&models.AllowedCurrency{},
		&models.TicketTemplate{},
		&models.TicketPrice{},
		&models.Addon{},
		&models.AddonPrice{},
		&models.TicketAddon{},
		&models.AddonConstraint{},
		&models.PurchaseOrder{},
		&models.UserTicket{},
		&models.UserTicketAddon{},
		&models.AuditLog{},
	)

	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// Create indexes
	if err := createIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	log.Println("Database migrations completed successfully")
	return nil
}

func createIndexes(db *gorm.DB) error {
	indexes := []string{
		// User indexes
		"CREATE INDEX IF NOT EXISTS idx_users_email ON users(email)",
		"CREATE INDEX IF NOT EXISTS idx_users_role ON users(role)",

		// Event indexes
		"CREATE INDEX IF NOT EXISTS idx_events_community ON events(community_id)",
		"CREATE INDEX IF NOT EXISTS idx_events_status_dates ON events(status, start_date_time, end_date_time)",

		// Ticketing indexes
		"CREATE INDEX IF NOT EXISTS idx_ticket_templates_event_status ON ticket_templates(event_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_user_tickets_template_status ON user_tickets(ticket_template_id, approval_status)",
		"CREATE INDEX IF NOT EXISTS idx_user_tickets_user_template ON user_tickets(user_id, ticket_template_id)",
		"CREATE INDEX IF NOT EXISTS idx_user_tickets_order ON user_tickets(purchase_order_id)",

		// Addon indexes
		"CREATE INDEX IF NOT EXISTS idx_addons_event ON addons(event_id)",
		"CREATE INDEX IF NOT EXISTS idx_ticket_addons_template ON ticket_addons(ticket_template_id)",
		"CREATE INDEX IF NOT EXISTS idx_addon_constraints_addon ON addon_constraints(addon_id)",
		"CREATE INDEX IF NOT EXISTS idx_addon_constraints_related ON addon_constraints(related_addon_id, constraint_type)",
		"CREATE INDEX IF NOT EXISTS idx_user_ticket_addons_addon_status ON user_ticket_addons(addon_id, approval_status)",
		"CREATE INDEX IF NOT EXISTS idx_user_ticket_addons_ticket_status ON user_ticket_addons(user_ticket_id, approval_status)",

		// Order indexes
		"CREATE INDEX IF NOT EXISTS idx_purchase_orders_user_status ON purchase_orders(user_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_purchase_orders_payment ON purchase_orders(payment_status, payment_platform)",

		// Audit indexes
		"CREATE INDEX IF NOT EXISTS idx_audit_logs_user_action ON audit_logs(user_id, action)",
		"CREATE INDEX IF NOT EXISTS idx_audit_logs_resource ON audit_logs(resource_type, resource_id)",
		"CREATE INDEX IF NOT EXISTS idx_audit_logs_created ON audit_logs(created_at DESC)",
	}

	for _, index := range indexes {
		if err := db.Exec(index).Error; err != nil {
			log.Printf("Warning: Failed to create index: %s, Error: %v", index, err)
			// Continue with other indexes instead of failing completely
		}
	}

	return nil
}

// SeedInitialData creates the default superadmin and the currencies claims
// can be priced in.
func SeedInitialData(db *gorm.DB) error {
	log.Println("Seeding initial data...")

	var adminCount int64
	db.Model(&models.User{}).Where("role = ?", models.UserRoleSuperAdmin).Count(&adminCount)

	if adminCount == 0 {
		admin := &models.User{
			Username: "admin",
			Email:    "admin@communityos.io",
			Name:     "Platform Administrator",
			Role:     models.UserRoleSuperAdmin,
			IsActive: true,
		}

		if err := admin.SetPassword("admin123!@#"); err != nil {
			return fmt.Errorf("failed to set admin password: %w", err)
		}

		if err := db.Create(admin).Error; err != nil {
			return fmt.Errorf("failed to create admin user: %w", err)
		}

		log.Println("Default admin user created successfully")
	}

	for _, code := range []string{"USD", "CLP", "MXN"} {
		var count int64
		db.Model(&models.AllowedCurrency{}).Where("code = ?", code).Count(&count)
		if count == 0 {
			if err := db.Create(&models.AllowedCurrency{Code: code}).Error; err != nil {
				log.Printf("Warning: Failed to create currency %s: %v", code, err)
			}
		}
	}

	log.Println("Initial data seeding completed")
	return nil
}

// Transaction helper
func WithTransaction(db *gorm.DB, fn func(*gorm.DB) error) error {
	tx := db.Begin()
	if tx.Error != nil {
		return tx.Error
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit().Error
}

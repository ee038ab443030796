package database

import (
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/nusasms/nusasms-go/environments"
	"github.com/nusasms/nusasms-go/pkg/logger"
)

func NewMySQLDB(cfg environments.DatabaseConfig) (*sqlx.DB, error) {
	dsn := fmt.Sprintf(
		"%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4&collation=utf8mb4_unicode_ci",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName,
	)

	db, err := sqlx.Connect("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Verify connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Infof("Connected to MySQL database")
	return db, nil
}

func RunMigrations(db *sqlx.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS outbound_messages (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		sender VARCHAR(11) NOT NULL,
		destination TEXT NOT NULL,
		body TEXT NOT NULL,
		segments INT NOT NULL DEFAULT 1,
		status VARCHAR(20) NOT NULL DEFAULT 'failed',
		provider_id VARCHAR(100),
		error_text TEXT,
		delivered_at DATETIME,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		INDEX idx_outbound_status (status),
		INDEX idx_outbound_provider_id (provider_id),
		INDEX idx_outbound_created_at (created_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;
	`

	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Infof("Database migrations completed")

	return nil
}

func SeedTestData(db *sqlx.DB) error {
	var count int

	err := db.Get(&count, "SELECT COUNT(*) FROM outbound_messages")
	if err != nil {
		return err
	}

	if count > 0 {
		logger.Infof("Database already has %d messages, skipping seed", count)
		return nil
	}

	testMessages := []struct {
		sender      string
		destination string
		body        string
		segments    int
		status      string
		providerID  string
	}{
		{"INFOSMS", "6281234567890", "Your verification code is 123456", 1, "delivered", "90001"},
		{"INFOSMS", "6289876543210", "Welcome! Your account is now active.", 1, "submitted", "90002"},
		{"PROMO", "6281111222333", "Special offer just for you, 20% off all products this week only.", 1, "undelivered", "90003"},
		{"INFOSMS", "6285551112222,6285553334444", "Reminder: your appointment is tomorrow at 10 AM", 1, "submitted", "90004"},
		{"BILLING", "6281222333444", "Your invoice #12345 is due on Friday.", 1, "delivered", "90005"},
	}

	for _, msg := range testMessages {
		_, err := db.Exec(
			"INSERT INTO outbound_messages (sender, destination, body, segments, status, provider_id) VALUES (?, ?, ?, ?, ?, ?)",
			msg.sender, msg.destination, msg.body, msg.segments, msg.status, msg.providerID,
		)
		if err != nil {
			return fmt.Errorf("failed to seed test data: %w", err)
		}
	}

	logger.Infof("Seeded %d test messages", len(testMessages))
	return nil
}

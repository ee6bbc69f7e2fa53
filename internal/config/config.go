package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/hfenton/property_search/internal/models"
)

type Config struct {
	ServerPort int
	LogLevel   string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	ESURL      string
	ESUser     string
	ESPassword string

	KafkaAddress string

	AccessTokenSecret  []byte
	RefreshTokenSecret []byte
	SessionSecret      []byte

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}

	config := &Config{
		ServerPort: envIntDefault("SERVER_PORT", 8080),
		LogLevel:   envDefault("LOG_LEVEL", "info"),

		DBHost:     os.Getenv("DB_HOST"),
		DBPort:     os.Getenv("DB_PORT"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),

		ESURL:      os.Getenv("ES_URL"),
		ESUser:     os.Getenv("ES_USER"),
		ESPassword: os.Getenv("ES_PASSWORD"),

		KafkaAddress: os.Getenv("KAFKA_ADDRESS"),

		AccessTokenSecret:  []byte(os.Getenv("ACCESS_TOKEN_SECRET")),
		RefreshTokenSecret: []byte(os.Getenv("REFRESH_TOKEN_SECRET")),
		SessionSecret:      []byte(os.Getenv("SESSION_SECRET")),

		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleRedirectURL:  os.Getenv("GOOGLE_REDIRECT_URL"),
	}

	// Signing with an empty key must never happen silently.
	MustNonEmptyBytes(config.AccessTokenSecret, "ACCESS_TOKEN_SECRET")
	MustNonEmptyBytes(config.RefreshTokenSecret, "REFRESH_TOKEN_SECRET")
	MustNonEmptyBytes(config.SessionSecret, "SESSION_SECRET")
	MustNonEmpty(config.GoogleClientID, "GOOGLE_CLIENT_ID")
	MustNonEmpty(config.GoogleClientSecret, "GOOGLE_CLIENT_SECRET")

	return config, nil
}

func InitDB(cfg *Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName,
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Role{},
		&models.InvitationToken{},
		&models.UsedInvitationToken{},
		&models.Session{},
		&models.Property{},
	); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	if err := EnsureRoles(db); err != nil {
		return nil, err
	}
	return db, nil
}

// EnsureRoles seeds the built-in roles before the server accepts requests.
func EnsureRoles(db *gorm.DB) error {
	roles := []models.Role{
		{RoleName: "admin", Description: "full access to listings and invitations"},
		{RoleName: "user", Description: "read access to listings"},
	}
	for _, role := range roles {
		if err := db.Where(models.Role{RoleName: role.RoleName}).FirstOrCreate(&role).Error; err != nil {
			return fmt.Errorf("failed to seed role %s: %w", role.RoleName, err)
		}
	}
	return nil
}

func envDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

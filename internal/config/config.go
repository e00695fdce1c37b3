package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"trueheal-portal/internal/models"
)

const defaultJWTSecret = "default_jwt_secret"

// Config holds all configuration for our application
type Config struct {
	Port        string
	Origin      string
	Environment string
	JWTSecret   string
	AppURL      string
	ClientURL   string
	Hospital    string
	Database    DatabaseConfig
	Mailer      MailerConfig
	RateLimit   RateLimitConfig
	Log         LogConfig

	JWTExpirationHours       int
	OTPExpiryMinutes         int
	PasswordResetTokenExpiry int
	DefaultAppointmentStatus models.AppointmentStatus
}

// DatabaseConfig holds database connection details
type DatabaseConfig struct {
	Driver        string // mysql, mongo or memory
	Host          string
	Port          string
	Username      string
	Password      string
	Name          string
	DSN           string
	MongoURI      string
	MongoDatabase string
}

// MailerConfig holds email service configuration
type MailerConfig struct {
	Transport   string // smtp or log
	Host        string
	Port        string
	Username    string
	Password    string
	DefaultFrom string
	Timeout     time.Duration
}

// RateLimitConfig bounds the public auth endpoints per client IP.
type RateLimitConfig struct {
	RPS   float64
	Burst int
}

// LogConfig selects level and handler format.
type LogConfig struct {
	Level  string
	Format string
}

// TokenTTL is the session token lifetime.
func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.JWTExpirationHours) * time.Hour
}

// OTPTTL is the registration code lifetime.
func (c *Config) OTPTTL() time.Duration {
	return time.Duration(c.OTPExpiryMinutes) * time.Minute
}

// ResetTTL is the password reset token lifetime.
func (c *Config) ResetTTL() time.Duration {
	return time.Duration(c.PasswordResetTokenExpiry) * time.Minute
}

// IsDevelopment reports whether the server runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// Validate rejects settings that are unsafe or meaningless.
func (c *Config) Validate() error {
	if !c.IsDevelopment() && c.JWTSecret == defaultJWTSecret {
		return errors.New("JWT_SECRET must be set outside development")
	}
	if c.JWTExpirationHours <= 0 || c.OTPExpiryMinutes <= 0 || c.PasswordResetTokenExpiry <= 0 {
		return errors.New("token lifetimes must be positive")
	}
	switch c.Database.Driver {
	case "mysql", "mongo", "memory":
	default:
		return fmt.Errorf("unknown DB_DRIVER %q", c.Database.Driver)
	}
	if c.DefaultAppointmentStatus.IsTerminal() {
		return fmt.Errorf("DEFAULT_APPOINTMENT_STATUS cannot be terminal (%s)", c.DefaultAppointmentStatus)
	}
	return nil
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	// Load database configuration
	dbConfig := DatabaseConfig{
		Driver:        getEnv("DB_DRIVER", "mysql"),
		Host:          getEnv("DB_HOST", "localhost"),
		Port:          getEnv("DB_PORT", "3306"),
		Username:      getEnv("DB_USERNAME", "root"),
		Password:      getEnv("DB_PASSWORD", ""),
		Name:          getEnv("DB_NAME", "trueheal"),
		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGO_DB", "trueHeal"),
	}

	// Build DSN (Data Source Name) for MySQL connection
	dbConfig.DSN = getEnv("DB_DSN", fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		dbConfig.Username, dbConfig.Password, dbConfig.Host, dbConfig.Port, dbConfig.Name))

	// Load mailer configuration
	mailerConfig := MailerConfig{
		Transport:   getEnv("MAILER_TRANSPORT", "log"),
		Host:        getEnv("SMTP_HOST", ""),
		Port:        getEnv("SMTP_PORT", "587"),
		Username:    getEnv("SMTP_USER", ""),
		Password:    getEnv("SMTP_PASS", ""),
		DefaultFrom: getEnv("MAILER_DEFAULT_FROM", ""),
	}

	smtpTimeout, err := strconv.Atoi(getEnv("SMTP_TIMEOUT_SECONDS", "30"))
	if err != nil {
		return nil, fmt.Errorf("invalid SMTP_TIMEOUT_SECONDS: %w", err)
	}
	mailerConfig.Timeout = time.Duration(smtpTimeout) * time.Second

	jwtExpHours, err := strconv.Atoi(getEnv("JWT_EXPIRATION_HOURS", "168")) // 7 days
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_EXPIRATION_HOURS: %w", err)
	}

	otpExpiry, err := strconv.Atoi(getEnv("OTP_EXPIRY_MINUTES", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid OTP_EXPIRY_MINUTES: %w", err)
	}

	passwordResetTokenExpiry, err := strconv.Atoi(getEnv("RESET_TOKEN_EXPIRY_MINUTES", "15"))
	if err != nil {
		return nil, fmt.Errorf("invalid RESET_TOKEN_EXPIRY_MINUTES: %w", err)
	}

	rps, err := strconv.ParseFloat(getEnv("RATE_LIMIT_RPS", "5"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_RPS: %w", err)
	}

	burst, err := strconv.Atoi(getEnv("RATE_LIMIT_BURST", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_BURST: %w", err)
	}

	defaultStatus, err := models.ParseAppointmentStatus(getEnv("DEFAULT_APPOINTMENT_STATUS", string(models.StatusPending)))
	if err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_APPOINTMENT_STATUS: %w", err)
	}

	// Return complete configuration
	return &Config{
		Port:                     getEnv("PORT", "5000"),
		Origin:                   getEnv("ORIGIN", "http://localhost:5173"),
		Environment:              getEnv("APP_ENV", "development"),
		JWTSecret:                getEnv("JWT_SECRET", defaultJWTSecret),
		AppURL:                   getEnv("APP_URL", "http://localhost:5000"),
		ClientURL:                getEnv("CLIENT_URL", "http://localhost:5173"),
		Hospital:                 getEnv("HOSPITAL_NAME", "True Heal Hospital"),
		Database:                 dbConfig,
		Mailer:                   mailerConfig,
		RateLimit:                RateLimitConfig{RPS: rps, Burst: burst},
		Log:                      LogConfig{Level: getEnv("LOG_LEVEL", "info"), Format: getEnv("LOG_FORMAT", "text")},
		JWTExpirationHours:       jwtExpHours,
		OTPExpiryMinutes:         otpExpiry,
		PasswordResetTokenExpiry: passwordResetTokenExpiry,
		DefaultAppointmentStatus: defaultStatus,
	}, nil
}

// Helper function to get environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

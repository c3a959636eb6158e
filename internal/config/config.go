package config // package config loads application configuration from environment variables

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable; defaults are declared on the struct tags so a
// developer can start the service with only the database and JWT secret set.
type Config struct {
	Env  string `env:"APP_ENV" envDefault:"dev"`
	Port string `env:"APP_PORT" envDefault:"8080"`

	DBUser    string `env:"DB_USER,notEmpty"`
	DBPass    string `env:"DB_PASS"`
	DBHost    string `env:"DB_HOST" envDefault:"127.0.0.1"`
	DBPort    string `env:"DB_PORT" envDefault:"3306"`
	DBName    string `env:"DB_NAME,notEmpty"`
	DBMigrate bool   `env:"DB_MIGRATE" envDefault:"true"` // apply embedded migrations on start

	JWTSecret   string        `env:"JWT_SECRET,notEmpty"`
	JWTIssuer   string        `env:"JWT_ISSUER" envDefault:"table-reservation"`
	JWTAudience string        `env:"JWT_AUDIENCE" envDefault:"table-reservation-clients"`
	JWTTTL      time.Duration `env:"JWT_TTL" envDefault:"24h"`
	BcryptCost  int           `env:"BCRYPT_COST" envDefault:"10"`

	// TimeSlots is the catalogue of bookable slot labels ("HH:MM-HH:MM").
	TimeSlots []string `env:"TIME_SLOTS" envSeparator:"," envDefault:"10:00-12:00,12:00-14:00,14:00-16:00,17:00-19:00,19:00-21:00,21:00-23:00"`
	// Timezone decides what "today" means when rejecting past booking dates.
	Timezone string `env:"TIMEZONE" envDefault:"UTC"`

	AdminUsername string `env:"ADMIN_USERNAME" envDefault:"admin"`
	AdminEmail    string `env:"ADMIN_EMAIL" envDefault:"admin@restaurant.com"`
	AdminPassword string `env:"ADMIN_PASSWORD"` // empty disables seeding
	AdminFullName string `env:"ADMIN_FULL_NAME" envDefault:"Administrator"`
	AdminPhone    string `env:"ADMIN_PHONE" envDefault:"0812345678"`

	StorageDriver string `env:"STORAGE_DRIVER" envDefault:"local"` // local | s3
	UploadDir     string `env:"UPLOAD_DIR" envDefault:"uploads"`
	MaxImageBytes int64  `env:"MAX_IMAGE_BYTES" envDefault:"5242880"`
	S3            S3Config

	RabbitMQURL          string `env:"RABBITMQ_URL"`
	QueueConsumerEnabled bool   `env:"QUEUE_CONSUMER_ENABLED" envDefault:"false"`
	BookingLogPath       string `env:"BOOKING_LOG_PATH" envDefault:"logs/booking.log"`

	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"*"`
	LogLevel    string   `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat   string   `env:"LOG_FORMAT" envDefault:"json"` // json | text
}

// S3Config points the image store at an S3 compatible bucket (MinIO in development).
type S3Config struct {
	Endpoint  string `env:"S3_ENDPOINT"`
	Region    string `env:"S3_REGION" envDefault:"us-east-1"`
	Bucket    string `env:"S3_BUCKET" envDefault:"table-images"`
	AccessKey string `env:"S3_ACCESS_KEY"`
	SecretKey string `env:"S3_SECRET_KEY"`
	UseSSL    bool   `env:"S3_USE_SSL" envDefault:"false"`
	PublicURL string `env:"S3_PUBLIC_URL"`
}

// Load reads an optional .env file and then parses the environment into a
// Config.  Missing required variables and out-of-range values are reported as
// an error so main can exit with a clear message.
func Load() (Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return Config{}, fmt.Errorf("load .env: %w", err)
		}
	}
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return fmt.Errorf("BCRYPT_COST must be between 4 and 31, got %d", c.BcryptCost)
	}
	if c.JWTTTL <= 0 {
		return errors.New("JWT_TTL must be positive")
	}
	if len(c.TimeSlots) == 0 {
		return errors.New("TIME_SLOTS must list at least one slot")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	switch c.StorageDriver {
	case "local":
	case "s3":
		if c.S3.Endpoint == "" || c.S3.AccessKey == "" || c.S3.SecretKey == "" {
			return errors.New("S3_ENDPOINT, S3_ACCESS_KEY and S3_SECRET_KEY are required when STORAGE_DRIVER=s3")
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}
	return nil
}

// Location returns the business time zone.  validate guarantees it loads.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

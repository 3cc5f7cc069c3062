package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env         string
	ServerPort  string
	SocketAddr  string
	BaseURL     string
	FrontendURL string
	DatabaseDSN string
	LogLevel    string

	JWTSecret      string
	JWTExpire      time.Duration
	BcryptCost     int
	VerifyTokenTTL time.Duration
	ResetTokenTTL  time.Duration

	RateLimitMax    int
	RateLimitWindow time.Duration

	KafkaBroker   string
	KafkaTopic    string
	KafkaGroupID  string
	KafkaUsername string
	KafkaPassword string

	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	MailFrom     string
	MailFromName string

	CloudinaryUrl string
}

func LoadConfig() Config {
	if os.Getenv("ENV") != "prod" {
		// Overload so a local .env wins over stale shell exports
		if err := godotenv.Overload(); err != nil {
			log.Println("Warning: env file not found or could not be loaded:", err)
		}
	}

	return Config{
		Env:         getEnv("ENV", "dev"),
		ServerPort:  getEnv("SERVER_PORT", ":3000"),
		SocketAddr:  getEnv("SOCKET_ADDR", ":3001"),
		BaseURL:     getEnv("BASE_URL", "*"),
		FrontendURL: strings.TrimRight(getEnv("FRONTEND_URL", "http://localhost:5173"), "/"),
		DatabaseDSN: os.Getenv("DATABASE_DSN"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		JWTSecret:      os.Getenv("JWT_SECRET"),
		JWTExpire:      getDuration("JWT_EXPIRE", 7*24*time.Hour),
		BcryptCost:     getInt("BCRYPT_COST", 10),
		VerifyTokenTTL: getDuration("VERIFY_TOKEN_TTL", 24*time.Hour),
		ResetTokenTTL:  getDuration("RESET_TOKEN_TTL", time.Hour),

		RateLimitMax:    getInt("RATE_LIMIT_MAX", 100),
		RateLimitWindow: getDuration("RATE_LIMIT_WINDOW", 15*time.Minute),

		KafkaBroker:   os.Getenv("KAFKA_BROKER"),
		KafkaTopic:    getEnv("KAFKA_TOPIC", "mail-events"),
		KafkaGroupID:  getEnv("KAFKA_GROUP_ID", "mailer"),
		KafkaUsername: os.Getenv("KAFKA_USERNAME"),
		KafkaPassword: os.Getenv("KAFKA_PASSWORD"),

		SMTPHost:     getEnv("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:     getInt("SMTP_PORT", 587),
		SMTPUser:     os.Getenv("SMTP_USER"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		MailFrom:     getEnv("MAIL_FROM", os.Getenv("SMTP_USER")),
		MailFromName: getEnv("MAIL_FROM_NAME", "Indah Bermasyarakat"),

		CloudinaryUrl: os.Getenv("CLOUDINARY_URL"),
	}
}

// Validate reports settings the API cannot run without.
func (c Config) Validate() error {
	var errs []error
	if c.DatabaseDSN == "" {
		errs = append(errs, errors.New("DATABASE_DSN is required"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.JWTExpire <= 0 {
		errs = append(errs, fmt.Errorf("JWT_EXPIRE must be positive, got %s", c.JWTExpire))
	}
	return errors.Join(errs...)
}

// UseKafka is true when mail should go through the broker instead of direct SMTP.
func (c Config) UseKafka() bool {
	return c.KafkaBroker != ""
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("Warning: %s=%q is not an integer, using %d", key, v, def)
		return def
	}
	return n
}

func getDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := ParseDuration(v)
	if err != nil {
		log.Printf("Warning: %s=%q: %v, using %s", key, v, err, def)
		return def
	}
	return d
}

// ParseDuration accepts Go durations plus a whole-day suffix such as "7d".
func ParseDuration(s string) (time.Duration, error) {
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, fmt.Errorf("invalid day duration %q", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}

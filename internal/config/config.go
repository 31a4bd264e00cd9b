package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	AI       AIConfig
	Billing  BillingConfig
	Chat     ChatConfig
}

type ServerConfig struct {
	Port        string
	BillingPort string
	Environment string
}

type DatabaseConfig struct {
	Host           string
	Port           string
	User           string
	Password       string
	DBName         string
	SSLMode        string
	MigrationsPath string
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type AIConfig struct {
	OpenAIKey    string
	DefaultModel string
}

type BillingConfig struct {
	StripeSecret string
	SuccessURL   string
	CancelURL    string
}

type ChatConfig struct {
	// StrictConversationLookup turns unknown conversation ids into
	// errors instead of silently starting a new conversation.
	StrictConversationLookup bool
	ContextTurns             int
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	contextTurns, _ := strconv.Atoi(getEnv("CHAT_CONTEXT_TURNS", "20"))
	strictLookup, _ := strconv.ParseBool(getEnv("CHAT_STRICT_LOOKUP", "false"))

	return &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			BillingPort: getEnv("BILLING_PORT", "8081"),
			Environment: getEnv("ENVIRONMENT", "development"),
		},
		Database: DatabaseConfig{
			Host:           getEnv("DB_HOST", "localhost"),
			Port:           getEnv("DB_PORT", "5432"),
			User:           getEnv("DB_USER", "postgres"),
			Password:       getEnv("DB_PASSWORD", ""),
			DBName:         getEnv("DB_NAME", "chatforge"),
			SSLMode:        getEnv("DB_SSLMODE", "disable"),
			MigrationsPath: getEnv("DB_MIGRATIONS_PATH", "migrations"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		AI: AIConfig{
			OpenAIKey:    getEnv("OPENAI_API_KEY", ""),
			DefaultModel: getEnv("OPENAI_DEFAULT_MODEL", "gpt-4o-mini"),
		},
		Billing: BillingConfig{
			StripeSecret: getEnv("STRIPE_SECRET", ""),
			SuccessURL:   getEnv("BILLING_SUCCESS_URL", "http://localhost:3000/billing/success"),
			CancelURL:    getEnv("BILLING_CANCEL_URL", "http://localhost:3000/billing/cancel"),
		},
		Chat: ChatConfig{
			StrictConversationLookup: strictLookup,
			ContextTurns:             contextTurns,
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port      string
	JWTKey    string
	SaltRound int

	EmailSender string
	Password    string // SMTP Password

	PaymentApiURL     string // Checkout provider base URL
	PaymentApiKey     string
	PaymentSecretKey  string
	PaymentWebhookKey string // Shared secret for webhook signature verification
	PaymentReturnURL  string // Where the provider redirects after checkout

	CertStoreURL string // Certificate storage service base URL
	CertStoreKey string
}

// AppConfig is a global variable to access configuration
var AppConfig *Config

// LoadConfig initializes configuration from environment variables or defaults
func LoadConfig() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found. Using system environment variables.")
	}

	AppConfig = &Config{
		Port:      getEnv("PORT", "3000"),
		JWTKey:    getEnv("JWT_SECRET_KEY", "defaultSecret"),
		SaltRound: getEnvInt("SALT_ROUND", 10),

		EmailSender: getEnv("EMAIL_SENDER", "defaultSecret"),
		Password:    getEnv("PASSWORD", "defaultSecret"),

		PaymentApiURL:     getEnv("PAYMENT_API_URL", "https://api.sandbox.credpay.io/v1/"),
		PaymentApiKey:     getEnv("PAYMENT_API_KEY", "defaultSecret"),
		PaymentSecretKey:  getEnv("PAYMENT_SECRET_KEY", "defaultSecret"),
		PaymentWebhookKey: getEnv("PAYMENT_WEBHOOK_KEY", "defaultSecret"),
		PaymentReturnURL:  getEnv("PAYMENT_RETURN_URL", "https://app.learnhub.io/payment/return"),

		CertStoreURL: getEnv("CERT_STORE_URL", "https://certs.learnhub.io/api/"),
		CertStoreKey: getEnv("CERT_STORE_KEY", "defaultSecret"),
	}

	// Validate critical configuration
	if AppConfig.JWTKey == "defaultSecret" {
		log.Println("Warning: Using default JWT_SECRET_KEY. Update it in your environment.")
	}
	if AppConfig.PaymentWebhookKey == "defaultSecret" {
		log.Println("Warning: Using default PAYMENT_WEBHOOK_KEY. Webhook signatures cannot be trusted.")
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvInt retrieves an environment variable as an integer or returns the default integer value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Error converting environment variable %s to int: %v", key, err)
		return defaultValue
	}
	return intValue
}

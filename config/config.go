package config

import (
	"log"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort  string `mapstructure:"APP_PORT"`
	Env      string `mapstructure:"ENV"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	// MongoDB connection string.
	DatabaseURL string `mapstructure:"DATABASE_URL"`

	// Redis configuration.
	RedisAddr            string `mapstructure:"REDIS_ADDR"`
	RedisPassword        string `mapstructure:"REDIS_PASSWORD"`
	RedisContextDB       int    `mapstructure:"REDIS_CONTEXT_DB"`
	RedisReminderQueueDB int    `mapstructure:"REDIS_REMINDER_QUEUE_DB"`

	// UltraMsg WhatsApp gateway.
	UltraMsgBaseURL      string `mapstructure:"ULTRAMSG_BASE_URL"`
	UltraMsgInstanceID   string `mapstructure:"ULTRAMSG_INSTANCE_ID"`
	UltraMsgToken        string `mapstructure:"ULTRAMSG_TOKEN"`
	UltraMsgWebhookToken string `mapstructure:"ULTRAMSG_WEBHOOK_TOKEN"`

	// Practice identity and routing.
	CoordinatorPhone string `mapstructure:"COORDINATOR_PHONE"`
	ClinicName       string `mapstructure:"CLINIC_NAME"`
	ClinicAddress    string `mapstructure:"CLINIC_ADDRESS"`

	// Wording for the client's "we'll confirm shortly" reply. Placeholders:
	// {ref}, {service}, {datetime}.
	ClientAckTemplate string `mapstructure:"CLIENT_ACK_TEMPLATE"`

	// Gemini API key for the intent extractor.
	GeminiAPIKey string `mapstructure:"GEMINI_API_KEY"`

	// Admin API.
	AdminJWTSecret string `mapstructure:"ADMIN_JWT_SECRET"`

	// Minutes before a confirmed session that the reminder fires.
	ReminderLeadMinutes int `mapstructure:"REMINDER_LEAD_MINUTES"`

	MaxRequestsPerMin int `mapstructure:"MAX_REQUESTS_PER_MIN"`
}

var AppConfig Config

func LoadConfig() {
	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	// Automatically use environment variables where available.
	viper.AutomaticEnv()

	// Set default values.
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_CONTEXT_DB", 0)
	viper.SetDefault("REDIS_REMINDER_QUEUE_DB", 1)
	viper.SetDefault("ULTRAMSG_BASE_URL", "https://api.ultramsg.com")
	viper.SetDefault("CLINIC_NAME", "Wellness Therapy Center")
	viper.SetDefault("CLINIC_ADDRESS", "")
	viper.SetDefault("CLIENT_ACK_TEMPLATE", "")
	viper.SetDefault("REMINDER_LEAD_MINUTES", 120)
	viper.SetDefault("MAX_REQUESTS_PER_MIN", 100)

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if AppConfig.CoordinatorPhone == "" {
		log.Println("WARNING: COORDINATOR_PHONE is not set; every inbound message will be treated as client traffic")
	}
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}

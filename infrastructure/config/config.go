package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	domainconfig "github.com/zhaizeyu/smart-mind/domain/config"
	"github.com/zhaizeyu/smart-mind/infrastructure/ai"
)

// Storage drivers
const (
	DriverFile     = "file"
	DriverBadger   = "badger"
	DriverSQLite   = "sqlite"
	DriverDynamoDB = "dynamodb"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress string
	Environment   string
	MapID         string

	// Storage
	StorageDriver string
	DataDir       string

	// AWS configuration
	AWSRegion     string
	DynamoDBTable string
	EventBusName  string

	// Lambda configuration
	IsLambda bool

	// Logging
	LogLevel string

	// Authentication
	JWTSecret string
	JWTIssuer string

	// AI
	AI           ai.Settings
	HistoryPath  string
	AskRateLimit int // requests per minute per client, 0 disables

	// Layout tunables, hot-reloaded from ConfigFile
	Layout     domainconfig.LayoutConfig
	ConfigFile string

	// Feature flags
	EnableMetrics bool
	EnableTracing bool
	EnableCORS    bool
	EnableAuth    bool
}

// FileConfig is the optional YAML overlay named by SMARTMIND_CONFIG
type FileConfig struct {
	Storage struct {
		Driver  string `yaml:"driver"`
		DataDir string `yaml:"data_dir"`
	} `yaml:"storage"`
	AI          ai.Settings                `yaml:"ai"`
	HistoryPath string                     `yaml:"history_path"`
	Layout      *domainconfig.LayoutConfig `yaml:"layout"`
}

// LoadConfig loads configuration from a .env file, the YAML overlay and
// environment variables, in increasing precedence.
func LoadConfig() (*Config, error) {
	// A missing .env is the common case
	_ = godotenv.Load()

	cfg := &Config{
		ServerAddress: ":8080",
		Environment:   "development",
		MapID:         domainconfig.DefaultDomainConfig().DefaultMapID,
		StorageDriver: DriverFile,
		DataDir:       "data",
		AWSRegion:     "us-west-2",
		DynamoDBTable: "smartmind",
		EventBusName:  "",
		JWTIssuer:     "smartmind",
		LogLevel:      "info",
		AI:            ai.DefaultSettings(),
		AskRateLimit:  60,
		Layout:        domainconfig.DefaultLayoutConfig(),
		EnableCORS:    true,
	}

	cfg.ConfigFile = getEnv("SMARTMIND_CONFIG", "")
	if cfg.ConfigFile != "" {
		fc, err := ReadFile(cfg.ConfigFile)
		if err != nil {
			return nil, err
		}
		cfg.apply(fc)
	}

	cfg.ServerAddress = getEnv("SERVER_ADDRESS", cfg.ServerAddress)
	cfg.Environment = getEnv("ENVIRONMENT", cfg.Environment)
	cfg.MapID = getEnv("MAP_ID", cfg.MapID)
	cfg.StorageDriver = getEnv("STORAGE_DRIVER", cfg.StorageDriver)
	cfg.DataDir = getEnv("DATA_DIR", cfg.DataDir)
	cfg.AWSRegion = getEnv("AWS_REGION", cfg.AWSRegion)
	cfg.DynamoDBTable = getEnv("TABLE_NAME", cfg.DynamoDBTable)
	cfg.EventBusName = getEnv("EVENT_BUS_NAME", cfg.EventBusName)
	cfg.IsLambda = getEnvBool("IS_LAMBDA", os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "")
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.JWTSecret = getEnv("JWT_SECRET", cfg.JWTSecret)
	cfg.JWTIssuer = getEnv("JWT_ISSUER", cfg.JWTIssuer)

	cfg.AI.Provider = getEnv("SMARTMIND_AI_PROVIDER", cfg.AI.Provider)
	cfg.AI.BaseURL = getEnv("SMARTMIND_AI_BASE_URL", cfg.AI.BaseURL)
	cfg.AI.APIKey = getEnv("SMARTMIND_AI_API_KEY", cfg.AI.APIKey)
	cfg.AI.Model = getEnv("SMARTMIND_AI_MODEL", cfg.AI.Model)
	cfg.AI.Timeout = getEnvDuration("SMARTMIND_AI_TIMEOUT", cfg.AI.Timeout)
	cfg.HistoryPath = getEnv("SMARTMIND_HISTORY_PATH", cfg.HistoryPath)
	if cfg.HistoryPath == "" {
		cfg.HistoryPath = cfg.DataDir + "/history.json"
	}
	cfg.AskRateLimit = getEnvInt("ASK_RATE_LIMIT", cfg.AskRateLimit)

	cfg.EnableMetrics = getEnvBool("ENABLE_METRICS", cfg.EnableMetrics)
	cfg.EnableTracing = getEnvBool("ENABLE_TRACING", cfg.EnableTracing)
	cfg.EnableCORS = getEnvBool("ENABLE_CORS", cfg.EnableCORS)
	cfg.EnableAuth = getEnvBool("ENABLE_AUTH", cfg.EnableAuth)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ReadFile parses a YAML overlay
func ReadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	fc := FileConfig{AI: ai.DefaultSettings()}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if fc.Layout != nil {
		// Decode the section again over the defaults so keys left out keep
		// their default while an explicit 0 stays 0.
		l := domainconfig.DefaultLayoutConfig()
		section := struct {
			Layout *domainconfig.LayoutConfig `yaml:"layout"`
		}{Layout: &l}
		if err := yaml.Unmarshal(data, &section); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
		if err := l.Validate(); err != nil {
			return nil, fmt.Errorf("config %s: %w", path, err)
		}
		fc.Layout = &l
	}
	return &fc, nil
}

func (c *Config) apply(fc *FileConfig) {
	if fc.Storage.Driver != "" {
		c.StorageDriver = fc.Storage.Driver
	}
	if fc.Storage.DataDir != "" {
		c.DataDir = fc.Storage.DataDir
	}
	c.AI = fc.AI
	if fc.HistoryPath != "" {
		c.HistoryPath = fc.HistoryPath
	}
	if fc.Layout != nil {
		c.Layout = *fc.Layout
	}
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	switch c.StorageDriver {
	case DriverFile, DriverBadger, DriverSQLite, DriverDynamoDB:
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}
	if c.StorageDriver == DriverDynamoDB && c.DynamoDBTable == "" {
		return errors.New("TABLE_NAME is required for the dynamodb driver")
	}
	if c.EnableAuth && c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required when ENABLE_AUTH is set")
	}
	if c.IsProduction() && c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required in production")
	}
	return c.Layout.Validate()
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := strings.ToLower(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("45s") or plain seconds ("30")
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.ParseFloat(value, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	return defaultValue
}

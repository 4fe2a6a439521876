package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
// SSOT: every environment variable is read here and nowhere else.
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// AI providers
	AI AIConfig

	// Market data sources
	DataSource DataSourceConfig

	// Analysis engine
	Engine EngineConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	URL      string

	// Connection pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// AIConfig holds LLM provider configuration. Provider selects the default
// profile: "deepseek" (cost-optimized) or "chatgpt" (premium).
type AIConfig struct {
	Provider       string
	DeepSeekKey    string
	DeepSeekURL    string
	DeepSeekModel  string
	ChatGPTKey     string
	ChatGPTURL     string
	ChatGPTModel   string
	CallTimeout    time.Duration
	DailyBudget    int // max AI calls per calendar day, 0 disables AI
	MaxConcurrency int
}

// DataSourceConfig holds market data provider configuration.
type DataSourceConfig struct {
	EastMoneyURL string
	TencentURL   string
	SinaNewsURL  string
	HTTPTimeout  time.Duration
	MaxRetries   int
	RatePerMin   int // per-provider request budget enforced via Redis
}

// EngineConfig holds scoring/signal/simulator parameters.
type EngineConfig struct {
	BuyThreshold    float64
	SellThreshold   float64
	MaxPositionPct  float64
	CommissionRate  float64
	MinCommission   float64
	AnalyzerWorkers int // concurrent analyzers per stock
	StockWorkers    int // concurrent stocks per universe run
	UniverseLimit   int // max stocks per pipeline run
}

// Load reads configuration from environment variables.
// SSOT: this is the only function that calls os.Getenv.
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8086"),
		Env:  getEnv("ENV", "development"),

		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			Name:            getEnv("DB_NAME", "cerisier"),
			User:            getEnv("DB_USER", "cerisier"),
			Password:        getEnv("DB_PASSWORD", ""),
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 5),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", true),
		},

		AI: AIConfig{
			Provider:       getEnv("AI_PROVIDER", "deepseek"),
			DeepSeekKey:    getEnv("DEEPSEEK_API_KEY", ""),
			DeepSeekURL:    getEnv("DEEPSEEK_BASE_URL", "https://api.deepseek.com/v1"),
			DeepSeekModel:  getEnv("DEEPSEEK_MODEL", "deepseek-chat"),
			ChatGPTKey:     getEnv("OPENAI_API_KEY", ""),
			ChatGPTURL:     getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			ChatGPTModel:   getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			CallTimeout:    getEnvAsDuration("AI_CALL_TIMEOUT", "30s"),
			DailyBudget:    getEnvAsInt("AI_DAILY_BUDGET", 200),
			MaxConcurrency: getEnvAsInt("AI_MAX_CONCURRENCY", 2),
		},

		DataSource: DataSourceConfig{
			EastMoneyURL: getEnv("EASTMONEY_BASE_URL", "https://push2his.eastmoney.com"),
			TencentURL:   getEnv("TENCENT_BASE_URL", "https://web.ifzq.gtimg.cn"),
			SinaNewsURL:  getEnv("SINA_NEWS_BASE_URL", "https://vip.stock.finance.sina.com.cn"),
			HTTPTimeout:  getEnvAsDuration("DATASOURCE_HTTP_TIMEOUT", "10s"),
			MaxRetries:   getEnvAsInt("DATASOURCE_MAX_RETRIES", 3),
			RatePerMin:   getEnvAsInt("DATASOURCE_RATE_PER_MIN", 120),
		},

		Engine: EngineConfig{
			BuyThreshold:    getEnvAsFloat("ENGINE_BUY_THRESHOLD", 70),
			SellThreshold:   getEnvAsFloat("ENGINE_SELL_THRESHOLD", 30),
			MaxPositionPct:  getEnvAsFloat("ENGINE_MAX_POSITION_PCT", 20),
			CommissionRate:  getEnvAsFloat("ENGINE_COMMISSION_RATE", 0.00025),
			MinCommission:   getEnvAsFloat("ENGINE_MIN_COMMISSION", 5),
			AnalyzerWorkers: getEnvAsInt("ENGINE_ANALYZER_WORKERS", 4),
			StockWorkers:    getEnvAsInt("ENGINE_STOCK_WORKERS", 8),
			UniverseLimit:   getEnvAsInt("ENGINE_UNIVERSE_LIMIT", 200),
		},

		LogLevel:  getEnv("LOG_LEVEL", "debug"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set.
func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Engine.SellThreshold >= c.Engine.BuyThreshold {
		return fmt.Errorf("ENGINE_SELL_THRESHOLD must be below ENGINE_BUY_THRESHOLD")
	}

	if c.Engine.MaxPositionPct <= 0 || c.Engine.MaxPositionPct > 100 {
		return fmt.Errorf("ENGINE_MAX_POSITION_PCT must be in (0, 100]")
	}

	return nil
}

// loadEnvFile tries to load .env from multiple locations. ENV_FILE
// wins when set (the CLI --config flag sets it).
func loadEnvFile() {
	if path := os.Getenv("ENV_FILE"); path != "" {
		_ = godotenv.Load(path)
		return
	}

	paths := []string{
		".env",
	}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
			filepath.Join(exeDir, "..", "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}

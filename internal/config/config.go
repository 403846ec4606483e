package config

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"tradewatch/pkg/secrets"
)

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Backpack    BackpackConfig    `mapstructure:"backpack"`
	Hyperliquid HyperliquidConfig `mapstructure:"hyperliquid"`
	Analysis    AnalysisConfig    `mapstructure:"analysis"`
	Data        DataConfig        `mapstructure:"data"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	GCP         GCPConfig         `mapstructure:"gcp"`
}

type ServerConfig struct {
	Port          int    `mapstructure:"port"`
	StaticDir     string `mapstructure:"static_dir"`
	JWTSigningKey string `mapstructure:"jwt_signing_key"`
}

type BackpackConfig struct {
	APIKey            string `mapstructure:"api_key"`
	APISecret         string `mapstructure:"api_secret"`
	RequestsPerMinute int    `mapstructure:"requests_per_minute"`
}

type HyperliquidConfig struct {
	RequestsPerMinute int             `mapstructure:"requests_per_minute"`
	WebSocket         WebSocketConfig `mapstructure:"websocket"`
}

type WebSocketConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	URL     string   `mapstructure:"url"`
	Symbols []string `mapstructure:"symbols"`
}

type AnalysisConfig struct {
	MinTrades        int      `mapstructure:"min_trades"`
	MinMarketTrades  int      `mapstructure:"min_market_trades"`
	MinMarketVolume  float64  `mapstructure:"min_market_volume"`
	TradeLimit       int      `mapstructure:"trade_limit"`
	OrderBookDepth   int      `mapstructure:"order_book_depth"`
	KlineInterval    string   `mapstructure:"kline_interval"`
	KlineLimit       int      `mapstructure:"kline_limit"`
	RefreshSeconds   int      `mapstructure:"refresh_seconds"`
	TrackedAddresses []string `mapstructure:"tracked_addresses"`
}

type DataConfig struct {
	Dir string `mapstructure:"dir"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type GCPConfig struct {
	ProjectID   string              `mapstructure:"project_id"`
	UseSecrets  bool                `mapstructure:"use_secrets"`
	SecretNames secrets.SecretNames `mapstructure:"secret_names"`
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/tradewatch")
	}

	v.SetEnvPrefix("TRADEWATCH")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; use defaults and environment
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	overrideFromEnv(&config)

	if config.GCP.UseSecrets && config.GCP.ProjectID != "" {
		ctx := context.Background()
		logger := logrus.New()
		if err := loadSecretsFromGCP(ctx, &config, logger); err != nil {
			return nil, fmt.Errorf("error loading secrets from GCP: %w", err)
		}
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.static_dir", "")
	v.SetDefault("server.jwt_signing_key", "")

	// Exchange defaults; both venues advertise 2000 requests per minute
	v.SetDefault("backpack.requests_per_minute", 2000)
	v.SetDefault("hyperliquid.requests_per_minute", 2000)
	v.SetDefault("hyperliquid.websocket.enabled", false)
	v.SetDefault("hyperliquid.websocket.url", "wss://api.hyperliquid.xyz/ws")

	// Analysis defaults
	v.SetDefault("analysis.min_trades", 10)
	v.SetDefault("analysis.min_market_trades", 100)
	v.SetDefault("analysis.min_market_volume", 1000)
	v.SetDefault("analysis.trade_limit", 100)
	v.SetDefault("analysis.order_book_depth", 20)
	v.SetDefault("analysis.kline_interval", "1h")
	v.SetDefault("analysis.kline_limit", 24)
	v.SetDefault("analysis.refresh_seconds", 300)

	// Data defaults
	v.SetDefault("data.dir", "./data")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// GCP defaults
	v.SetDefault("gcp.use_secrets", false)
	v.SetDefault("gcp.project_id", "")

	secretNames := secrets.DefaultSecretNames()
	v.SetDefault("gcp.secret_names.backpack_api_key", secretNames.BackpackAPIKey)
	v.SetDefault("gcp.secret_names.backpack_api_secret", secretNames.BackpackAPISecret)
	v.SetDefault("gcp.secret_names.api_jwt_signing_key", secretNames.APIJWTSigningKey)
}

func overrideFromEnv(config *Config) {
	if apiKey := os.Getenv("BACKPACK_API_KEY"); apiKey != "" {
		config.Backpack.APIKey = apiKey
	}
	if apiSecret := os.Getenv("BACKPACK_API_SECRET"); apiSecret != "" {
		config.Backpack.APISecret = apiSecret
	}
	if signingKey := os.Getenv("TRADEWATCH_JWT_SIGNING_KEY"); signingKey != "" {
		config.Server.JWTSigningKey = signingKey
	}

	if projectID := os.Getenv("GCP_PROJECT_ID"); projectID != "" {
		config.GCP.ProjectID = projectID
	}
	if useSecrets := os.Getenv("GCP_USE_SECRETS"); useSecrets == "true" {
		config.GCP.UseSecrets = true
	}
}

func loadSecretsFromGCP(ctx context.Context, config *Config, logger *logrus.Logger) error {
	secretManager, err := secrets.NewGCPSecretManager(ctx, config.GCP.ProjectID, logger)
	if err != nil {
		return fmt.Errorf("failed to create secret manager: %w", err)
	}
	defer secretManager.Close()

	// Only load secrets that are not already set
	if config.Backpack.APIKey == "" {
		config.Backpack.APIKey = secretManager.GetSecretWithDefault(ctx,
			config.GCP.SecretNames.BackpackAPIKey, "")
	}
	if config.Backpack.APISecret == "" {
		config.Backpack.APISecret = secretManager.GetSecretWithDefault(ctx,
			config.GCP.SecretNames.BackpackAPISecret, "")
	}
	if config.Server.JWTSigningKey == "" {
		config.Server.JWTSigningKey = secretManager.GetSecretWithDefault(ctx,
			config.GCP.SecretNames.APIJWTSigningKey, "")
	}

	logger.Info("Successfully loaded secrets from GCP Secret Manager")
	return nil
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"tradewatch/api"
	"tradewatch/internal/config"
	"tradewatch/pkg/backpack"
	"tradewatch/pkg/collector"
	"tradewatch/pkg/datastore"
	"tradewatch/pkg/hyperliquid"
)

var (
	cfgFile string
	logger  *logrus.Logger
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "tradewatch",
		Short: "Exchange market and trader analytics",
		Long:  `Collects market data from Backpack and Hyperliquid and serves ranked trading-performance statistics`,
		Run:   runServe,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")

	topCmd := &cobra.Command{
		Use:   "top-traders",
		Short: "Fetch fills, rank tracked addresses, and print the result",
		Run:   runTopTraders,
	}
	topCmd.Flags().Int("min-trades", 0, "minimum trade count per address")
	topCmd.Flags().Int("limit", 0, "maximum number of traders to print")

	marketsCmd := &cobra.Command{
		Use:   "markets",
		Short: "Scan markets, rank the active ones, and print the result",
		Run:   runMarkets,
	}
	marketsCmd.Flags().Int("min-trades", 0, "minimum trade count per market")
	marketsCmd.Flags().Float64("min-volume", 0, "minimum traded value per market")
	marketsCmd.Flags().Int("limit", 0, "maximum number of markets to print")

	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an API bearer token",
		Run:   runToken,
	}
	tokenCmd.Flags().String("subject", "operator", "token subject")
	tokenCmd.Flags().Duration("ttl", 24*time.Hour, "token lifetime")

	rootCmd.AddCommand(topCmd, marketsCmd, tokenCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func loadConfig() *config.Config {
	// Initialize logger
	logger = logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	// Credentials may live in a local .env during development
	_ = godotenv.Load()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		logger.WithError(err).Error("Invalid log level, using INFO")
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	if cfg.Logging.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{})
	}

	return cfg
}

func buildCollector(cfg *config.Config) *collector.Collector {
	backpackClient := backpack.NewClient(perMinuteLimiter(cfg.Backpack.RequestsPerMinute), logger)
	if cfg.Backpack.APIKey != "" && cfg.Backpack.APISecret != "" {
		signer, err := backpack.NewSigner(cfg.Backpack.APIKey, cfg.Backpack.APISecret)
		if err != nil {
			logger.WithError(err).Fatal("Invalid Backpack credentials")
		}
		backpackClient.WithSigner(signer)
	}

	hyperliquidClient := hyperliquid.NewClient(perMinuteLimiter(cfg.Hyperliquid.RequestsPerMinute), logger)

	store, err := datastore.NewStore(cfg.Data.Dir, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize data store")
	}

	coll := collector.New(backpackClient, hyperliquidClient, store, collector.Options{
		TradeLimit:       cfg.Analysis.TradeLimit,
		OrderBookDepth:   cfg.Analysis.OrderBookDepth,
		KlineInterval:    cfg.Analysis.KlineInterval,
		KlineLimit:       cfg.Analysis.KlineLimit,
		MinTrades:        cfg.Analysis.MinTrades,
		MinMarketTrades:  cfg.Analysis.MinMarketTrades,
		MinMarketVolume:  cfg.Analysis.MinMarketVolume,
		RefreshInterval:  time.Duration(cfg.Analysis.RefreshSeconds) * time.Second,
		TrackedAddresses: cfg.Analysis.TrackedAddresses,
	}, logger)

	return coll
}

func perMinuteLimiter(requestsPerMinute int) *rate.Limiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 2000
	}
	return rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60), 1)
}

func runServe(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	coll := buildCollector(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := coll.Start(ctx); err != nil {
		logger.WithError(err).Fatal("Failed to start collector")
	}

	if cfg.Hyperliquid.WebSocket.Enabled {
		feed := hyperliquid.NewWebSocketClient(coll.IngestLiveTrades, logger)
		if cfg.Hyperliquid.WebSocket.URL != "" {
			feed.WithURL(cfg.Hyperliquid.WebSocket.URL)
		}
		if err := feed.Connect(ctx); err != nil {
			logger.WithError(err).Error("Failed to connect trade feed")
		} else {
			for _, symbol := range cfg.Hyperliquid.WebSocket.Symbols {
				if err := feed.Subscribe(symbol); err != nil {
					logger.WithError(err).WithField("symbol", symbol).Error("Failed to subscribe")
				}
			}
		}
	}

	apiServer := api.NewServer(coll, logger, fmt.Sprintf("%d", cfg.Server.Port)).
		WithStaticDir(cfg.Server.StaticDir).
		WithSigningKey(cfg.Server.JWTSigningKey)
	go func() {
		if err := apiServer.Start(); err != nil {
			logger.WithError(err).Fatal("Failed to start API server")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("tradewatch is running. Press Ctrl+C to stop.")

	<-sigChan
	logger.Info("Received shutdown signal")

	coll.Stop()
	cancel()

	logger.Info("tradewatch stopped")
}

func runTopTraders(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	if minTrades, _ := cmd.Flags().GetInt("min-trades"); minTrades > 0 {
		cfg.Analysis.MinTrades = minTrades
	}
	coll := buildCollector(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	coll.RefreshTraders(ctx)
	traders := coll.TopTraders()

	if limit, _ := cmd.Flags().GetInt("limit"); limit > 0 && len(traders) > limit {
		traders = traders[:limit]
	}
	printJSON(traders)
}

func runMarkets(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	if minTrades, _ := cmd.Flags().GetInt("min-trades"); minTrades > 0 {
		cfg.Analysis.MinMarketTrades = minTrades
	}
	if minVolume, _ := cmd.Flags().GetFloat64("min-volume"); minVolume > 0 {
		cfg.Analysis.MinMarketVolume = minVolume
	}
	coll := buildCollector(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
	defer cancel()

	coll.RefreshMarkets(ctx)
	markets := coll.ActiveMarkets()

	if limit, _ := cmd.Flags().GetInt("limit"); limit > 0 && len(markets) > limit {
		markets = markets[:limit]
	}
	printJSON(markets)
}

func runToken(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	if cfg.Server.JWTSigningKey == "" {
		logger.Fatal("server.jwt_signing_key is not configured")
	}

	subject, _ := cmd.Flags().GetString("subject")
	ttl, _ := cmd.Flags().GetDuration("ttl")

	token, err := api.GenerateToken(cfg.Server.JWTSigningKey, subject, ttl)
	if err != nil {
		logger.WithError(err).Fatal("Failed to generate token")
	}
	fmt.Println(token)
}

func printJSON(data interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		logger.WithError(err).Fatal("Failed to encode output")
	}
}

package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"okx-market-monitor/config"
	"okx-market-monitor/internal/alertlog"
	"okx-market-monitor/internal/analysis"
	"okx-market-monitor/internal/api"
	"okx-market-monitor/internal/monitor"
	"okx-market-monitor/internal/notification"
	"okx-market-monitor/internal/okx"
	"okx-market-monitor/internal/scanner"
	"okx-market-monitor/internal/strategy"
	"okx-market-monitor/internal/vault"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallback := zerolog.New(os.Stderr)
		fallback.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger := setupLogger(cfg.LoggingConfig)
	logger.Info().Msg("Starting OKX market monitor")

	ctx := context.Background()

	// Credentials: Vault when enabled, config values otherwise
	vaultClient, err := vault.NewClient(cfg.VaultConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create vault client")
	}
	for i := range cfg.Accounts {
		account := &cfg.Accounts[i]
		if !vaultClient.IsEnabled() {
			break
		}
		creds, err := vaultClient.GetCredentials(ctx, account.Name)
		if err != nil {
			logger.Warn().Err(err).Str("account", account.Name).Msg("Vault lookup failed, using configured credentials")
			continue
		}
		account.APIKey = creds.APIKey
		account.SecretKey = creds.SecretKey
		account.Passphrase = creds.Passphrase
	}

	// Market data: public candles/tickers, optionally cached in Redis
	var market okx.MarketDataProvider
	var publicProvider okx.Provider
	if cfg.OKXConfig.MockMode {
		logger.Warn().Msg("Mock mode enabled, using simulated market data")
		publicProvider = okx.NewMockClient()
	} else {
		publicProvider = okx.NewClient(cfg.OKXConfig.BaseURL, cfg.OKXConfig.Timeframe, "", "", "")
	}
	market = publicProvider

	if cfg.RedisConfig.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisConfig.Address,
			Password: cfg.RedisConfig.Password,
			DB:       cfg.RedisConfig.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn().Err(err).Msg("Redis unavailable, candle caching disabled")
		} else {
			ttl := time.Duration(cfg.RedisConfig.CacheTTL) * time.Second
			market = okx.NewCachedClient(publicProvider, rdb, ttl, logger)
			logger.Info().Dur("ttl", ttl).Msg("Candle caching enabled")
		}
	}

	// Accounts: one authenticated client each
	accounts := make([]monitor.Account, 0, len(cfg.Accounts))
	for _, ac := range cfg.Accounts {
		var provider okx.Provider
		if cfg.OKXConfig.MockMode {
			provider = okx.NewMockClient()
		} else {
			provider = okx.NewClient(cfg.OKXConfig.BaseURL, cfg.OKXConfig.Timeframe, ac.APIKey, ac.SecretKey, ac.Passphrase)
		}
		accounts = append(accounts, monitor.Account{Config: ac, Provider: provider})
		logger.Info().Str("account", ac.Name).Str("type", string(ac.Type)).Msg("Account configured")
	}

	// Core pipeline
	analyzer := analysis.NewAnalyzer(cfg.SignalConfig.SwingLookback, cfg.SignalConfig.PivotLookback, cfg.SignalConfig.TrendPeriod)
	generator := strategy.NewGenerator(market, analyzer, cfg.SignalConfig, logger)
	sc := scanner.NewScanner(generator, cfg.MonitorConfig.ScanSymbols, cfg.ScannerConfig.WorkerCount, cfg.SignalConfig.MinConfidence, cfg.ScannerConfig.TopN, logger)

	// Notifications
	notifier := notification.NewManager(cfg.NotificationConfig.Enabled, cfg.SignalConfig.NotifyListFloor, cfg.SignalConfig.NotifyEntryFloor, logger)
	notifier.AddNotifier(notification.NewFeishuNotifier(notification.FeishuConfig{
		WebhookURL: cfg.NotificationConfig.Feishu.WebhookURL,
		Enabled:    cfg.NotificationConfig.Feishu.Enabled,
	}))
	notifier.AddNotifier(notification.NewTelegramNotifier(notification.TelegramConfig{
		BotToken: cfg.NotificationConfig.Telegram.BotToken,
		ChatID:   cfg.NotificationConfig.Telegram.ChatID,
		Enabled:  cfg.NotificationConfig.Telegram.Enabled,
	}))

	// Alert persistence
	var repo *alertlog.Repository
	if cfg.DatabaseConfig.Enabled {
		db, err := alertlog.NewDB(alertlog.Config{
			Host:     cfg.DatabaseConfig.Host,
			Port:     cfg.DatabaseConfig.Port,
			User:     cfg.DatabaseConfig.User,
			Password: cfg.DatabaseConfig.Password,
			Database: cfg.DatabaseConfig.Database,
			SSLMode:  cfg.DatabaseConfig.SSLMode,
		}, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to connect to database")
		}
		defer db.Close()

		if err := db.RunMigrations(ctx); err != nil {
			logger.Fatal().Err(err).Msg("Database migrations failed")
		}
		repo = alertlog.NewRepository(db)
	}

	// Live alert feed
	hub := api.NewWSHub(logger)
	go hub.Run()

	mon := monitor.New(accounts, market, analyzer, generator, sc, notifier, repo, hub, cfg.SignalConfig, cfg.MonitorConfig, logger)

	var server *api.Server
	if cfg.ServerConfig.Enabled {
		server = api.NewServer(cfg.ServerConfig, mon, sc, generator, repo, hub, logger)
		server.Start()
	}

	state := monitor.NewCycleState()
	mon.Start(state)

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Info().Str("signal", sig.String()).Msg("Shutting down")

	mon.Stop()

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("API server shutdown failed")
		}
	}

	logger.Info().Msg("Shutdown complete")
}

func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if cfg.Pretty {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		logger = zerolog.New(os.Stderr)
	}
	return logger.Level(level).With().Timestamp().Logger()
}

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	OKXConfig          OKXConfig          `json:"okx"`
	Accounts           []AccountConfig    `json:"accounts"`
	SignalConfig       SignalConfig       `json:"signal"`
	MonitorConfig      MonitorConfig      `json:"monitor"`
	ScannerConfig      ScannerConfig      `json:"scanner"`
	NotificationConfig NotificationConfig `json:"notification"`
	ServerConfig       ServerConfig       `json:"server"`
	DatabaseConfig     DatabaseConfig     `json:"database"`
	RedisConfig        RedisConfig        `json:"redis"`
	VaultConfig        VaultConfig        `json:"vault"`
	LoggingConfig      LoggingConfig      `json:"logging"`
}

// AccountType distinguishes the monitored account variants.
type AccountType string

const (
	AccountTest AccountType = "test"
	AccountMain AccountType = "main"
)

// AccountConfig holds one monitored account. Credentials may be empty when
// Vault is enabled; they are then resolved at startup.
type AccountConfig struct {
	Type       AccountType `json:"type"`
	Name       string      `json:"name"`
	APIKey     string      `json:"api_key"`
	SecretKey  string      `json:"secret_key"`
	Passphrase string      `json:"passphrase"`
}

type OKXConfig struct {
	BaseURL  string `json:"base_url"`
	Timeframe string `json:"timeframe"` // e.g. "1H"
	MockMode bool   `json:"mock_mode"` // Use simulated data when the OKX API is unavailable
}

// SignalConfig holds the structure/signal parameters. All values are fixed
// constants; nothing here is fitted.
type SignalConfig struct {
	SwingLookback     int     `json:"swing_lookback"`      // half-width of the swing window
	PivotLookback     int     `json:"pivot_lookback"`      // half-width of the pivot window
	SNRThreshold      float64 `json:"snr_threshold"`       // max relative distance to a level
	StopLossPct       float64 `json:"stop_loss_pct"`
	TakeProfitPct     float64 `json:"take_profit_pct"`
	TrendPeriod       int     `json:"trend_period"`        // EMA / volume baseline period
	SignalCandles     int     `json:"signal_candles"`      // window for signal generation
	OrderCandles      int     `json:"order_candles"`       // window for order/price-alert evaluation
	ExitCandles       int     `json:"exit_candles"`        // window for exit evaluation
	MinValidCandles   int     `json:"min_valid_candles"`   // below this, no signal
	MinConfidence     int     `json:"min_confidence"`      // ranking floor
	NotifyListFloor   int     `json:"notify_list_floor"`   // top-list notification floor
	NotifyEntryFloor  int     `json:"notify_entry_floor"`  // single-signal notification floor
}

type MonitorConfig struct {
	Symbols                []string `json:"symbols"`
	ScanSymbols            []string `json:"scan_symbols"` // universe for the top-5 scan
	IntervalSeconds        int      `json:"interval_seconds"`
	PriceAlertThreshold    float64  `json:"price_alert_threshold"`    // single-cycle move alert
	BalanceChangeThreshold float64  `json:"balance_change_threshold"` // balance anomaly alert
}

type ScannerConfig struct {
	WorkerCount int `json:"worker_count"`
	TopN        int `json:"top_n"`
}

type NotificationConfig struct {
	Enabled  bool           `json:"enabled"`
	Feishu   FeishuConfig   `json:"feishu"`
	Telegram TelegramConfig `json:"telegram"`
}

type FeishuConfig struct {
	Enabled    bool   `json:"enabled"`
	WebhookURL string `json:"webhook_url"`
}

type TelegramConfig struct {
	Enabled  bool   `json:"enabled"`
	BotToken string `json:"bot_token"`
	ChatID   string `json:"chat_id"`
}

type ServerConfig struct {
	Enabled         bool   `json:"enabled"`
	Host            string `json:"host"`
	Port            int    `json:"port"`
	AllowedOrigins  string `json:"allowed_origins"`
	ReadTimeout     int    `json:"read_timeout"`  // seconds
	WriteTimeout    int    `json:"write_timeout"` // seconds
	ShutdownTimeout int    `json:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Enabled  bool   `json:"enabled"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
	SSLMode  string `json:"ssl_mode"`
}

type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	CacheTTL int    `json:"cache_ttl"` // candle cache TTL in seconds
}

type VaultConfig struct {
	Enabled    bool   `json:"enabled"`
	Address    string `json:"address"`
	Token      string `json:"token"`
	MountPath  string `json:"mount_path"`
	SecretPath string `json:"secret_path"`
	TLSEnabled bool   `json:"tls_enabled"`
	CACert     string `json:"ca_cert"`
}

type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Pretty bool   `json:"pretty"` // console writer instead of JSON
}

func Load() (*Config, error) {
	// First try to load base config from file
	cfg, err := loadFromFile("config.json")
	if err != nil {
		// If no config file, start with empty config
		cfg = &Config{}
	}

	// Apply environment variable overrides (these take precedence)
	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects parameter combinations the structure extractor cannot work
// with.
func (c *Config) Validate() error {
	s := c.SignalConfig
	if s.SwingLookback <= 0 || s.PivotLookback <= 0 {
		return fmt.Errorf("config: swing_lookback and pivot_lookback must be positive")
	}
	if s.PivotLookback >= s.SwingLookback {
		return fmt.Errorf("config: pivot_lookback (%d) must be smaller than swing_lookback (%d)",
			s.PivotLookback, s.SwingLookback)
	}
	if s.SNRThreshold <= 0 {
		return fmt.Errorf("config: snr_threshold must be positive")
	}
	// The structure extractor discards swing_lookback candles at each edge
	// of a window, so every fetch size must leave enough rows for its
	// consumer after that exclusion.
	edgeLoss := 2 * s.SwingLookback
	if s.SignalCandles > 0 && s.SignalCandles < edgeLoss+s.MinValidCandles {
		return fmt.Errorf("config: signal_candles (%d) leaves fewer than min_valid_candles (%d) rows after the swing exclusion (%d per edge)",
			s.SignalCandles, s.MinValidCandles, s.SwingLookback)
	}
	if s.OrderCandles > 0 && s.OrderCandles <= edgeLoss {
		return fmt.Errorf("config: order_candles (%d) leaves no rows after the swing exclusion (%d per edge)",
			s.OrderCandles, s.SwingLookback)
	}
	if s.ExitCandles > 0 && s.ExitCandles < edgeLoss+10 {
		return fmt.Errorf("config: exit_candles (%d) leaves fewer than the 10 rows exit evaluation needs after the swing exclusion (%d per edge)",
			s.ExitCandles, s.SwingLookback)
	}
	for _, acct := range c.Accounts {
		if acct.Type != AccountTest && acct.Type != AccountMain {
			return fmt.Errorf("config: unknown account type %q", acct.Type)
		}
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
// OKX credentials can come from environment for single-account deployments;
// multi-account setups should use Vault.
func applyEnvOverrides(cfg *Config) {
	cfg.OKXConfig.BaseURL = getEnvOrDefault("OKX_BASE_URL", cfg.OKXConfig.BaseURL)
	cfg.OKXConfig.Timeframe = getEnvOrDefault("OKX_TIMEFRAME", cfg.OKXConfig.Timeframe)
	cfg.OKXConfig.MockMode = getEnvOrDefault("MOCK_MODE", "false") == "true"

	if key := os.Getenv("OKX_API_KEY"); key != "" && len(cfg.Accounts) == 0 {
		cfg.Accounts = []AccountConfig{{
			Type:       AccountMain,
			Name:       "main",
			APIKey:     key,
			SecretKey:  os.Getenv("OKX_API_SECRET"),
			Passphrase: os.Getenv("OKX_PASSPHRASE"),
		}}
	}

	if symbols := os.Getenv("MONITOR_SYMBOLS"); symbols != "" {
		cfg.MonitorConfig.Symbols = strings.Split(symbols, ",")
	}
	cfg.MonitorConfig.IntervalSeconds = getEnvIntOrDefault("MONITOR_INTERVAL_SECONDS", cfg.MonitorConfig.IntervalSeconds)

	// Notification config
	cfg.NotificationConfig.Enabled = getEnvOrDefault("NOTIFICATIONS_ENABLED", "false") == "true"
	cfg.NotificationConfig.Feishu.Enabled = getEnvOrDefault("FEISHU_ENABLED", "false") == "true"
	cfg.NotificationConfig.Feishu.WebhookURL = getEnvOrDefault("FEISHU_WEBHOOK_URL", cfg.NotificationConfig.Feishu.WebhookURL)
	cfg.NotificationConfig.Telegram.Enabled = getEnvOrDefault("TELEGRAM_ENABLED", "false") == "true"
	cfg.NotificationConfig.Telegram.BotToken = getEnvOrDefault("TELEGRAM_BOT_TOKEN", cfg.NotificationConfig.Telegram.BotToken)
	cfg.NotificationConfig.Telegram.ChatID = getEnvOrDefault("TELEGRAM_CHAT_ID", cfg.NotificationConfig.Telegram.ChatID)

	// Server config
	cfg.ServerConfig.Enabled = getEnvOrDefault("SERVER_ENABLED", "true") == "true"
	cfg.ServerConfig.Host = getEnvOrDefault("SERVER_HOST", "0.0.0.0")
	cfg.ServerConfig.Port = getEnvIntOrDefault("SERVER_PORT", 8080)
	cfg.ServerConfig.AllowedOrigins = getEnvOrDefault("SERVER_ALLOWED_ORIGINS", "*")

	// Database config
	cfg.DatabaseConfig.Enabled = getEnvOrDefault("DATABASE_ENABLED", strconv.FormatBool(cfg.DatabaseConfig.Enabled)) == "true"
	cfg.DatabaseConfig.Host = getEnvOrDefault("DATABASE_HOST", cfg.DatabaseConfig.Host)
	cfg.DatabaseConfig.Port = getEnvIntOrDefault("DATABASE_PORT", cfg.DatabaseConfig.Port)
	cfg.DatabaseConfig.User = getEnvOrDefault("DATABASE_USER", cfg.DatabaseConfig.User)
	cfg.DatabaseConfig.Password = getEnvOrDefault("DATABASE_PASSWORD", cfg.DatabaseConfig.Password)
	cfg.DatabaseConfig.Database = getEnvOrDefault("DATABASE_NAME", cfg.DatabaseConfig.Database)
	cfg.DatabaseConfig.SSLMode = getEnvOrDefault("DATABASE_SSLMODE", cfg.DatabaseConfig.SSLMode)

	// Redis config
	cfg.RedisConfig.Enabled = getEnvOrDefault("REDIS_ENABLED", strconv.FormatBool(cfg.RedisConfig.Enabled)) == "true"
	cfg.RedisConfig.Address = getEnvOrDefault("REDIS_ADDRESS", cfg.RedisConfig.Address)
	cfg.RedisConfig.Password = getEnvOrDefault("REDIS_PASSWORD", cfg.RedisConfig.Password)

	// Vault config
	cfg.VaultConfig.Enabled = getEnvOrDefault("VAULT_ENABLED", "false") == "true"
	cfg.VaultConfig.Address = getEnvOrDefault("VAULT_ADDR", cfg.VaultConfig.Address)
	cfg.VaultConfig.Token = getEnvOrDefault("VAULT_TOKEN", cfg.VaultConfig.Token)
	cfg.VaultConfig.MountPath = getEnvOrDefault("VAULT_MOUNT_PATH", cfg.VaultConfig.MountPath)
	cfg.VaultConfig.SecretPath = getEnvOrDefault("VAULT_SECRET_PATH", cfg.VaultConfig.SecretPath)

	// Logging config
	cfg.LoggingConfig.Level = getEnvOrDefault("LOG_LEVEL", cfg.LoggingConfig.Level)
	cfg.LoggingConfig.Pretty = getEnvOrDefault("LOG_PRETTY", "false") == "true"
}

func applyDefaults(cfg *Config) {
	if cfg.OKXConfig.BaseURL == "" {
		cfg.OKXConfig.BaseURL = "https://www.okx.com"
	}
	if cfg.OKXConfig.Timeframe == "" {
		cfg.OKXConfig.Timeframe = "1H"
	}

	s := &cfg.SignalConfig
	if s.SwingLookback == 0 {
		s.SwingLookback = 30
	}
	if s.PivotLookback == 0 {
		s.PivotLookback = 2
	}
	if s.SNRThreshold == 0 {
		s.SNRThreshold = 0.08
	}
	if s.StopLossPct == 0 {
		s.StopLossPct = 0.033
	}
	if s.TakeProfitPct == 0 {
		s.TakeProfitPct = 0.084
	}
	if s.TrendPeriod == 0 {
		s.TrendPeriod = 30
	}
	if s.SignalCandles == 0 {
		s.SignalCandles = 150
	}
	if s.OrderCandles == 0 {
		s.OrderCandles = 100
	}
	if s.ExitCandles == 0 {
		s.ExitCandles = 100
	}
	if s.MinValidCandles == 0 {
		s.MinValidCandles = 50
	}
	if s.MinConfidence == 0 {
		s.MinConfidence = 60
	}
	if s.NotifyListFloor == 0 {
		s.NotifyListFloor = 70
	}
	if s.NotifyEntryFloor == 0 {
		s.NotifyEntryFloor = 65
	}

	m := &cfg.MonitorConfig
	if len(m.Symbols) == 0 {
		m.Symbols = []string{"BTC-USDT-SWAP", "ETH-USDT-SWAP", "SOL-USDT-SWAP"}
	}
	if len(m.ScanSymbols) == 0 {
		m.ScanSymbols = []string{
			"BTC-USDT-SWAP", "ETH-USDT-SWAP", "SOL-USDT-SWAP",
			"XRP-USDT-SWAP", "DOGE-USDT-SWAP", "ADA-USDT-SWAP",
			"AVAX-USDT-SWAP", "LINK-USDT-SWAP", "MATIC-USDT-SWAP",
			"DOT-USDT-SWAP", "UNI-USDT-SWAP", "ATOM-USDT-SWAP",
		}
	}
	if m.IntervalSeconds == 0 {
		m.IntervalSeconds = 300
	}
	if m.PriceAlertThreshold == 0 {
		m.PriceAlertThreshold = 0.02
	}
	if m.BalanceChangeThreshold == 0 {
		m.BalanceChangeThreshold = 0.05
	}

	if cfg.ScannerConfig.WorkerCount == 0 {
		cfg.ScannerConfig.WorkerCount = 4
	}
	if cfg.ScannerConfig.TopN == 0 {
		cfg.ScannerConfig.TopN = 5
	}

	if cfg.DatabaseConfig.Port == 0 {
		cfg.DatabaseConfig.Port = 5432
	}
	if cfg.DatabaseConfig.SSLMode == "" {
		cfg.DatabaseConfig.SSLMode = "disable"
	}
	if cfg.RedisConfig.Address == "" {
		cfg.RedisConfig.Address = "localhost:6379"
	}
	if cfg.RedisConfig.CacheTTL == 0 {
		cfg.RedisConfig.CacheTTL = 60
	}
	if cfg.VaultConfig.Address == "" {
		cfg.VaultConfig.Address = "http://localhost:8200"
	}
	if cfg.VaultConfig.MountPath == "" {
		cfg.VaultConfig.MountPath = "secret"
	}
	if cfg.VaultConfig.SecretPath == "" {
		cfg.VaultConfig.SecretPath = "okx-monitor/api-keys"
	}
	if cfg.LoggingConfig.Level == "" {
		cfg.LoggingConfig.Level = "info"
	}

	if cfg.ServerConfig.ReadTimeout == 0 {
		cfg.ServerConfig.ReadTimeout = 30
	}
	if cfg.ServerConfig.WriteTimeout == 0 {
		cfg.ServerConfig.WriteTimeout = 30
	}
	if cfg.ServerConfig.ShutdownTimeout == 0 {
		cfg.ServerConfig.ShutdownTimeout = 10
	}
}

func loadFromFile(filename string) (*Config, error) {
	file, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(file, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return &config, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// Interval returns the monitoring cycle period.
func (m MonitorConfig) Interval() time.Duration {
	return time.Duration(m.IntervalSeconds) * time.Second
}

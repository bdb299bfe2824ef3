package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	JWT       JWTConfig       `yaml:"jwt"`
	Security  SecurityConfig  `yaml:"security"`
	Wallet    WalletConfig    `yaml:"wallet"`
	Sepay     SepayConfig     `yaml:"sepay"`
	PayPal    PayPalConfig    `yaml:"paypal"`
	WebSocket WebSocketConfig `yaml:"websocket"`
}

type ServerConfig struct {
	Host        string `yaml:"host"`
	Port        string `yaml:"port"`
	Environment string `yaml:"environment"`
}

type DatabaseConfig struct {
	Host            string `yaml:"host"`
	Port            string `yaml:"port"`
	User            string `yaml:"user"`
	DBName          string `yaml:"name"`
	Password        string `yaml:"password"`
	SSLMode         string `yaml:"ssl_mode"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifetime string `yaml:"conn_max_lifetime"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type JWTConfig struct {
	Secret string `yaml:"secret"`
	Issuer string `yaml:"issuer"`
}

type SecurityConfig struct {
	// InternalAPIKey guards the escrow endpoints exposed to the job
	// subsystem and the provider webhooks.
	InternalAPIKey string `yaml:"internal_api_key"`

	RateLimit         int           `yaml:"rate_limit"`
	RateLimitWindow   time.Duration `yaml:"rate_limit_window"`
	RateLimitBlockFor time.Duration `yaml:"rate_limit_block_for"`
}

// WalletConfig holds the money-movement policy values. Amounts are USD cents.
type WalletConfig struct {
	MinDepositCents      int64         `yaml:"min_deposit_cents"`
	MinWithdrawalCents   int64         `yaml:"min_withdrawal_cents"`
	USDToVNDRate         int64         `yaml:"usd_to_vnd_rate"`
	DepositExpiry        time.Duration `yaml:"deposit_expiry"`
	SweepInterval        time.Duration `yaml:"sweep_interval"`
	ProcessingTimeout    time.Duration `yaml:"processing_timeout"`
	SettleRetryAttempts  int           `yaml:"settle_retry_attempts"`
	SettleRetryBackoff   time.Duration `yaml:"settle_retry_backoff"`
}

type SepayConfig struct {
	BankName      string `yaml:"bank_name"`
	AccountNumber string `yaml:"account_number"`
	QRBaseURL     string `yaml:"qr_base_url"`
	APIKey        string `yaml:"api_key"`
	BaseURL       string `yaml:"base_url"`
	Timeout       int    `yaml:"timeout"`
	MaxRetries    int    `yaml:"max_retries"`
}

type PayPalConfig struct {
	BaseURL      string `yaml:"base_url"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	ReturnURL    string `yaml:"return_url"`
	CancelURL    string `yaml:"cancel_url"`
	Timeout      int    `yaml:"timeout"`
	MaxRetries   int    `yaml:"max_retries"`
}

type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size"`
	WriteBufferSize int           `yaml:"write_buffer_size"`
	CheckOrigin     bool          `yaml:"check_origin"`
	PingPeriod      time.Duration `yaml:"ping_period"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	var config Config
	configData, err := os.ReadFile("./config.yaml")
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(configData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()
	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Wallet.MinDepositCents == 0 {
		c.Wallet.MinDepositCents = 1000 // $10
	}
	if c.Wallet.MinWithdrawalCents == 0 {
		c.Wallet.MinWithdrawalCents = 5000 // $50
	}
	if c.Wallet.USDToVNDRate == 0 {
		c.Wallet.USDToVNDRate = 24000
	}
	if c.Wallet.DepositExpiry == 0 {
		c.Wallet.DepositExpiry = 30 * time.Minute
	}
	if c.Wallet.SweepInterval == 0 {
		c.Wallet.SweepInterval = time.Minute
	}
	if c.Wallet.ProcessingTimeout == 0 {
		c.Wallet.ProcessingTimeout = 24 * time.Hour
	}
	if c.Wallet.SettleRetryAttempts == 0 {
		c.Wallet.SettleRetryAttempts = 3
	}
	if c.Wallet.SettleRetryBackoff == 0 {
		c.Wallet.SettleRetryBackoff = 50 * time.Millisecond
	}
	if c.Security.RateLimit == 0 {
		c.Security.RateLimit = 30
	}
	if c.Security.RateLimitWindow == 0 {
		c.Security.RateLimitWindow = time.Minute
	}
	if c.Security.RateLimitBlockFor == 0 {
		c.Security.RateLimitBlockFor = 5 * time.Minute
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 50
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 10
	}
}

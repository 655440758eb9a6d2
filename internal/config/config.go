package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Server     ServerConfig     `yaml:"server"`
	Redis      RedisConfig      `yaml:"redis"`
	Mail       MailConfig       `yaml:"mail"`
	SMS        SMSConfig        `yaml:"sms"`
	Maps       MapsConfig       `yaml:"maps"`
	Links      LinksConfig      `yaml:"links"`
	Admin      AdminConfig      `yaml:"admin"`
	Worker     WorkerConfig     `yaml:"worker"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type ServerConfig struct {
	Port                 int `yaml:"port"`
	ReadHeaderTimeoutSec int `yaml:"read_header_timeout_sec"`
	WriteTimeoutSec      int `yaml:"write_timeout_sec"`
	ShutdownTimeoutSec   int `yaml:"shutdown_timeout_sec"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

// MailConfig drives the Microsoft Graph sender. When TenantID, ClientID or
// ClientSecret are empty the notifier runs in demo mode: deliveries are
// logged instead of sent and never fail the calling operation.
type MailConfig struct {
	TenantID     string `yaml:"tenant_id"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	FromAddress  string `yaml:"from_address"`
	AdminMailbox string `yaml:"admin_mailbox"`
	TimeoutSec   int    `yaml:"timeout_sec"`
}

// Demo reports whether mail credentials are absent.
func (m MailConfig) Demo() bool {
	return m.TenantID == "" || m.ClientID == "" || m.ClientSecret == ""
}

// SMSConfig describes the email-to-SMS gateway. Messages become mail to
// {countryCode}{national}@{gateway_domain}.
type SMSConfig struct {
	GatewayDomain string `yaml:"gateway_domain"`
	CountryCode   string `yaml:"country_code"`
}

type MapsConfig struct {
	APIKey     string `yaml:"api_key"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// LinksConfig holds public URLs baked into notifications and portals.
type LinksConfig struct {
	PublicBaseURL string `yaml:"public_base_url"`
	AdminBaseURL  string `yaml:"admin_base_url"`
}

type AdminConfig struct {
	HeaderAPIKey string          `yaml:"header_api_key"`
	APIKeys      []AdminAPIKey   `yaml:"api_keys"`
	RateLimit    RateLimitConfig `yaml:"rate_limit"`
}

type AdminAPIKey struct {
	Key         string   `yaml:"key"`
	Name        string   `yaml:"name"`
	Permissions []string `yaml:"permissions"`
}

type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type WorkerConfig struct {
	MaxRetries      int `yaml:"max_retries"`
	InitialDelaySec int `yaml:"initial_delay_sec"`
	MaxDelaySec     int `yaml:"max_delay_sec"`
	PollIntervalSec int `yaml:"poll_interval_sec"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

// Load reads YAML config with environment variable expansion. A .env file
// is loaded first when present so local runs do not need exported vars.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Redis.Address == "" {
		return errors.New("redis address is required")
	}
	if c.Links.PublicBaseURL == "" {
		return errors.New("public base URL is required")
	}
	if !c.Mail.Demo() && c.Mail.FromAddress == "" {
		return errors.New("mail from_address is required when mail credentials are set")
	}
	for _, k := range c.Admin.APIKeys {
		if strings.TrimSpace(k.Key) == "" {
			return fmt.Errorf("admin api key %q has an empty key", k.Name)
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadHeaderTimeoutSec == 0 {
		c.Server.ReadHeaderTimeoutSec = 5
	}
	if c.Server.WriteTimeoutSec == 0 {
		c.Server.WriteTimeoutSec = 15
	}
	if c.Server.ShutdownTimeoutSec == 0 {
		c.Server.ShutdownTimeoutSec = 10
	}
	if c.Mail.TimeoutSec == 0 {
		c.Mail.TimeoutSec = 15
	}
	if c.Mail.AdminMailbox == "" {
		c.Mail.AdminMailbox = c.Mail.FromAddress
	}
	if c.SMS.CountryCode == "" {
		c.SMS.CountryCode = "64"
	}
	if c.Maps.TimeoutSec == 0 {
		c.Maps.TimeoutSec = 10
	}
	if c.Admin.HeaderAPIKey == "" {
		c.Admin.HeaderAPIKey = "x-api-key"
	}
	if c.Admin.RateLimit.RPS == 0 {
		c.Admin.RateLimit.RPS = 10
	}
	if c.Admin.RateLimit.Burst == 0 {
		c.Admin.RateLimit.Burst = 5
	}
	if c.Worker.MaxRetries == 0 {
		c.Worker.MaxRetries = 5
	}
	if c.Worker.InitialDelaySec == 0 {
		c.Worker.InitialDelaySec = 2
	}
	if c.Worker.MaxDelaySec == 0 {
		c.Worker.MaxDelaySec = 60
	}
	if c.Worker.PollIntervalSec == 0 {
		c.Worker.PollIntervalSec = 2
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
}

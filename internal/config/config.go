// Package config loads the process-wide configuration from a YAML file
// (with environment variable overrides), mirroring the teacher
// pay-system's viper-based config loader.
package config

import (
	"log"
	"strings"

	"github.com/spf13/viper"
)

// Config is the root configuration structure.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	MySQL    MySQLConfig    `mapstructure:"mysql"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Identity IdentityConfig `mapstructure:"identity"`
	Payment  PaymentConfig  `mapstructure:"payment"`
	RTC      RTCConfig      `mapstructure:"rtc"`
	PubSub   PubSubConfig   `mapstructure:"pubsub"`
	Business BusinessConfig `mapstructure:"business"`
}

type ServerConfig struct {
	Port        int    `mapstructure:"port"`
	FrontendURL string `mapstructure:"frontend_url"`
}

type MySQLConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Brokers []string         `mapstructure:"brokers"`
	Topic   KafkaTopicConfig `mapstructure:"topic"`
}

type KafkaTopicConfig struct {
	SessionLifecycle string `mapstructure:"session_lifecycle"`
	Notification     string `mapstructure:"notification"`
}

// IdentityConfig holds the key material used to verify subjects handed
// to us by the external identity/authentication collaborator. The core
// never issues its own credentials (spec.md §1 Non-goals).
type IdentityConfig struct {
	VerificationKey string `mapstructure:"verification_key"`
}

// PaymentConfig holds the external payment-intent processor's secrets.
type PaymentConfig struct {
	Secret              string `mapstructure:"secret"`
	WebhookSigningKey   string `mapstructure:"webhook_signing_key"`
}

// RTCConfig holds the external realtime media service's app id and
// signing certificate, used only by the Token Broker.
type RTCConfig struct {
	AppID              string `mapstructure:"app_id"`
	SigningCertificate string `mapstructure:"signing_certificate"`
	TokenTTLHours      int    `mapstructure:"token_ttl_hours"`
}

// PubSubConfig holds the external realtime pub/sub service's api key.
type PubSubConfig struct {
	APIKey       string `mapstructure:"api_key"`
	APISecret    string `mapstructure:"api_secret"`
	TokenTTLMins int    `mapstructure:"token_ttl_minutes"`
}

// BusinessConfig holds the tunables named in spec.md §6's environment
// variable list.
//
// SessionTimeoutMinutes is reserved for a future active-session
// force-end sweep (distinct from PendingSweepMinutes, which times out
// unaccepted requests); nothing reads it yet, since no such sweep runs.
type BusinessConfig struct {
	SessionTimeoutMinutes int     `mapstructure:"session_timeout_minutes"`
	PlatformFeePercent    int64   `mapstructure:"platform_fee_percent"`
	MinPayout             int64   `mapstructure:"min_payout_cents"`
	ReserveMultiplier     int64   `mapstructure:"reserve_multiplier"`
	RingWindowSeconds     int     `mapstructure:"ring_window_seconds"`
	PendingSweepMinutes   int     `mapstructure:"pending_sweep_minutes"`
	MaxRetryCount         int     `mapstructure:"max_retry_count"`
}

// Global is the process-wide configuration, set once by Load.
var Global *Config

// Load reads configPath (YAML), overlays environment variables, and
// unmarshals into a Config.
func Load(configPath string) *Config {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	viper.SetEnvPrefix("READING")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		log.Fatalf("failed to read config file: %v", err)
	}

	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		log.Fatalf("failed to parse config file: %v", err)
	}

	Global = cfg
	return cfg
}

func setDefaults() {
	viper.SetDefault("business.session_timeout_minutes", 5)
	viper.SetDefault("business.platform_fee_percent", 30)
	viper.SetDefault("business.min_payout_cents", 1500)
	viper.SetDefault("business.reserve_multiplier", 3)
	viper.SetDefault("business.ring_window_seconds", 60)
	viper.SetDefault("business.pending_sweep_minutes", 5)
	viper.SetDefault("business.max_retry_count", 5)
	viper.SetDefault("rtc.token_ttl_hours", 24)
	viper.SetDefault("pubsub.token_ttl_minutes", 60)
}

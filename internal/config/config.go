package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds everything the process needs, loaded from VELORA_* env vars.
type Config struct {
	Chat     ChatConfig
	Schedule ScheduleConfig
	Commerce CommerceConfig
	Payment  PaymentConfig
	Catalog  CatalogConfig
	VIP      VIPConfig
	Watch    WatchConfig
	Database DatabaseConfig
	Log      LogConfig
}

type ChatConfig struct {
	Token         string `envconfig:"CHAT_TOKEN" required:"true"`
	APIBase       string `envconfig:"CHAT_API_BASE" default:"https://api.telegram.org"`
	ChannelChatID int64  `envconfig:"CHANNEL_CHAT_ID" default:"0"`
	AdminChatID   int64  `envconfig:"ADMIN_CHAT_ID" default:"0"`
}

type ScheduleConfig struct {
	BaseURL string        `envconfig:"SCHEDULE_BASE_URL" required:"true"`
	APIKey  string        `envconfig:"SCHEDULE_API_KEY" default:""`
	Timeout time.Duration `envconfig:"SCHEDULE_TIMEOUT" default:"15s"`
	HoldTTL time.Duration `envconfig:"SCHEDULE_HOLD_TTL" default:"10m"`
}

type CommerceConfig struct {
	BaseURL        string        `envconfig:"COMMERCE_BASE_URL" required:"true"`
	ConsumerKey    string        `envconfig:"COMMERCE_CONSUMER_KEY" required:"true"`
	ConsumerSecret string        `envconfig:"COMMERCE_CONSUMER_SECRET" required:"true"`
	Timeout        time.Duration `envconfig:"COMMERCE_TIMEOUT" default:"20s"`
}

type PaymentConfig struct {
	BaseURL    string `envconfig:"PAYMENT_BASE_URL" default:""`
	MerchantID string `envconfig:"PAYMENT_MERCHANT_ID" default:""`
	Secret     string `envconfig:"PAYMENT_SECRET" default:""`
	ReturnURL  string `envconfig:"PAYMENT_RETURN_URL" default:""`
	FailURL    string `envconfig:"PAYMENT_FAIL_URL" default:""`
}

type CatalogConfig struct {
	ManifestURL string        `envconfig:"CATALOG_MANIFEST_URL" required:"true"`
	CacheTTL    time.Duration `envconfig:"CATALOG_CACHE_TTL" default:"5m"`
}

type VIPConfig struct {
	Price       float64       `envconfig:"VIP_PRICE" default:"1500"`
	Currency    string        `envconfig:"VIP_CURRENCY" default:"RUB"`
	DiscountPct int           `envconfig:"VIP_DISCOUNT_PCT" default:"10"`
	OfferWindow time.Duration `envconfig:"VIP_OFFER_WINDOW" default:"24h"`
	CouponCode  string        `envconfig:"VIP_COUPON_CODE" default:"VIP10"`
}

type WatchConfig struct {
	PostPurchaseInterval time.Duration `envconfig:"WATCH_POST_PURCHASE_INTERVAL" default:"60s"`
	SlotsInterval        time.Duration `envconfig:"WATCH_SLOTS_INTERVAL" default:"5m"`
	ChannelInterval      time.Duration `envconfig:"WATCH_CHANNEL_INTERVAL" default:"10m"`
	CooldownHours        int           `envconfig:"WATCH_COOLDOWN_HOURS" default:"24"`
}

type DatabaseConfig struct {
	Path string `envconfig:"DB_PATH" default:"velora.db"`
}

type LogConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Format string `envconfig:"LOG_FORMAT" default:"text"`
}

// Load reads configuration from the environment using the VELORA prefix.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("VELORA", &cfg); err != nil {
		return Config{}, fmt.Errorf("process env config: %w", err)
	}
	if cfg.Watch.PostPurchaseInterval < 15*time.Second {
		cfg.Watch.PostPurchaseInterval = 15 * time.Second
	}
	return cfg, nil
}

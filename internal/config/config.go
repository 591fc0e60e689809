package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port               string
	AllowedOrigin      string
	DatabaseURL        string
	AutoMigrate        bool
	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	AuthSecret         string
	SessionTTLMinutes  int
	ManagerPIN         string
	StoreName          string
	StoreTimezone      string
	PhoneCountryCode   string
	LowStockThreshold  int
	LoginRatePerMinute int
}

// Load reads configuration from the environment. Secrets have no defaults;
// cmd/server refuses to start without them.
func Load() Config {
	v := viper.New()
	v.SetDefault("PORT", "8080")
	v.SetDefault("ALLOWED_ORIGIN", "http://127.0.0.1:3000")
	v.SetDefault("AUTO_MIGRATE", false)
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("SESSION_TTL_MINUTES", 480)
	v.SetDefault("STORE_NAME", "Nawaem Boutique")
	v.SetDefault("STORE_TIMEZONE", "Asia/Baghdad")
	v.SetDefault("PHONE_COUNTRY_CODE", "964")
	v.SetDefault("LOW_STOCK_THRESHOLD", 3)
	v.SetDefault("LOGIN_RATE_PER_MINUTE", 10)
	for _, key := range []string{"DATABASE_URL", "REDIS_ADDR", "REDIS_PASSWORD", "AUTH_SECRET", "MANAGER_PIN"} {
		_ = v.BindEnv(key)
	}
	v.AutomaticEnv()

	cfg := Config{
		Port:               v.GetString("PORT"),
		AllowedOrigin:      v.GetString("ALLOWED_ORIGIN"),
		DatabaseURL:        strings.TrimSpace(v.GetString("DATABASE_URL")),
		AutoMigrate:        v.GetBool("AUTO_MIGRATE"),
		RedisAddr:          strings.TrimSpace(v.GetString("REDIS_ADDR")),
		RedisPassword:      v.GetString("REDIS_PASSWORD"),
		RedisDB:            v.GetInt("REDIS_DB"),
		AuthSecret:         strings.TrimSpace(v.GetString("AUTH_SECRET")),
		SessionTTLMinutes:  v.GetInt("SESSION_TTL_MINUTES"),
		ManagerPIN:         strings.TrimSpace(v.GetString("MANAGER_PIN")),
		StoreName:          strings.TrimSpace(v.GetString("STORE_NAME")),
		StoreTimezone:      strings.TrimSpace(v.GetString("STORE_TIMEZONE")),
		PhoneCountryCode:   strings.TrimLeft(strings.TrimSpace(v.GetString("PHONE_COUNTRY_CODE")), "+"),
		LowStockThreshold:  v.GetInt("LOW_STOCK_THRESHOLD"),
		LoginRatePerMinute: v.GetInt("LOGIN_RATE_PER_MINUTE"),
	}

	if cfg.SessionTTLMinutes < 1 {
		cfg.SessionTTLMinutes = 480
	}
	if cfg.LowStockThreshold < 0 {
		cfg.LowStockThreshold = 3
	}
	if cfg.LoginRatePerMinute < 1 {
		cfg.LoginRatePerMinute = 10
	}
	if cfg.StoreTimezone == "" {
		cfg.StoreTimezone = "Asia/Baghdad"
	}

	return cfg
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func (c Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLMinutes) * time.Minute
}

// Location resolves StoreTimezone; report day boundaries use it.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.StoreTimezone)
	if err != nil {
		return nil, fmt.Errorf("load STORE_TIMEZONE %q: %w", c.StoreTimezone, err)
	}
	return loc, nil
}

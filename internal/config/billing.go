package config

import (
	"fmt"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// BillingConfig is the pricing surface for one reconciliation run. It is
// passed by value into the engine so a run never observes a mid-flight
// reload.
type BillingConfig struct {
	// FreeMinsCount and FreeSMSCount are the period-wide thresholds used by
	// the top-down invoice estimate, not per-subscriber allowances.
	FreeMinsCount int
	FreeSMSCount  int

	MinutePrice   decimal.Decimal
	SMSPrice      decimal.Decimal
	InternetPrice decimal.Decimal
	ProcessingFee decimal.Decimal

	// BasePeriodFee is the contract's fixed monthly base price added to the
	// period estimate.
	BasePeriodFee decimal.Decimal

	Currency string
}

// rawBillingConfig is the file/env representation; prices are strings so
// they can be parsed as decimals instead of binary floats.
type rawBillingConfig struct {
	FreeMinsCount int    `mapstructure:"free_mins_count"`
	FreeSMSCount  int    `mapstructure:"free_sms_count"`
	MinutePrice   string `mapstructure:"minute_price"`
	SMSPrice      string `mapstructure:"sms_price"`
	InternetPrice string `mapstructure:"internet_price"`
	ProcessingFee string `mapstructure:"processing_fee"`
	BasePeriodFee string `mapstructure:"base_period_fee"`
	Currency      string `mapstructure:"currency"`
}

func defaultRawBillingConfig() rawBillingConfig {
	return rawBillingConfig{
		FreeMinsCount: 5000,
		FreeSMSCount:  1000,
		MinutePrice:   "1.5",
		SMSPrice:      "1",
		InternetPrice: "66",
		ProcessingFee: "0",
		BasePeriodFee: "5526",
		Currency:      "CZK",
	}
}

type BillingConfigHolder struct {
	current atomic.Value // holds BillingConfig
}

func NewBillingConfigHolder() (*BillingConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("billing")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/vpnbill")
	v.AddConfigPath(".")

	v.SetEnvPrefix("VPNBILL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := defaultRawBillingConfig()
	v.SetDefault("billing.free_mins_count", defaults.FreeMinsCount)
	v.SetDefault("billing.free_sms_count", defaults.FreeSMSCount)
	v.SetDefault("billing.minute_price", defaults.MinutePrice)
	v.SetDefault("billing.sms_price", defaults.SMSPrice)
	v.SetDefault("billing.internet_price", defaults.InternetPrice)
	v.SetDefault("billing.processing_fee", defaults.ProcessingFee)
	v.SetDefault("billing.base_period_fee", defaults.BasePeriodFee)
	v.SetDefault("billing.currency", defaults.Currency)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	cfg, err := unmarshalBillingConfig(v)
	if err != nil {
		return nil, err
	}

	holder := &BillingConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := unmarshalBillingConfig(v)
		if err != nil {
			log.Printf("[billing-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[billing-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticBillingConfigHolder wraps a fixed config with no file watching.
// Intended for tests.
func NewStaticBillingConfigHolder(cfg BillingConfig) *BillingConfigHolder {
	holder := &BillingConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func (h *BillingConfigHolder) Get() BillingConfig {
	return h.current.Load().(BillingConfig)
}

func unmarshalBillingConfig(v *viper.Viper) (BillingConfig, error) {
	var raw rawBillingConfig
	if err := v.UnmarshalKey("billing", &raw); err != nil {
		return BillingConfig{}, err
	}
	return parseBillingConfig(raw)
}

func parseBillingConfig(raw rawBillingConfig) (BillingConfig, error) {
	if raw.FreeMinsCount < 0 || raw.FreeSMSCount < 0 {
		return BillingConfig{}, fmt.Errorf("billing thresholds cannot be negative")
	}
	currency := strings.ToUpper(strings.TrimSpace(raw.Currency))
	if currency == "" {
		return BillingConfig{}, fmt.Errorf("billing.currency cannot be empty")
	}

	cfg := BillingConfig{
		FreeMinsCount: raw.FreeMinsCount,
		FreeSMSCount:  raw.FreeSMSCount,
		Currency:      currency,
	}

	for _, field := range []struct {
		name  string
		value string
		dst   *decimal.Decimal
	}{
		{"billing.minute_price", raw.MinutePrice, &cfg.MinutePrice},
		{"billing.sms_price", raw.SMSPrice, &cfg.SMSPrice},
		{"billing.internet_price", raw.InternetPrice, &cfg.InternetPrice},
		{"billing.processing_fee", raw.ProcessingFee, &cfg.ProcessingFee},
		{"billing.base_period_fee", raw.BasePeriodFee, &cfg.BasePeriodFee},
	} {
		parsed, err := decimal.NewFromString(strings.TrimSpace(field.value))
		if err != nil {
			return BillingConfig{}, fmt.Errorf("%s: %w", field.name, err)
		}
		if parsed.IsNegative() {
			return BillingConfig{}, fmt.Errorf("%s cannot be negative", field.name)
		}
		*field.dst = parsed
	}

	return cfg, nil
}

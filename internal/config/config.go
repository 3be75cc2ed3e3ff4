package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// LoadEnv loads the .env file if one exists. A missing file is fine; real
// environment variables always win.
func LoadEnv() {
	_ = godotenv.Load()
}

func GetEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func GetEnvInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

// Settings is the config.yaml contents: tuning knobs plus the property seed
// list. Zero values are replaced with defaults in ApplyDefaults.
type Settings struct {
	Scheduler  SchedulerSettings `yaml:"scheduler"`
	Messages   MessageSettings   `yaml:"messages"`
	Pricing    PricingSettings   `yaml:"pricing"`
	Properties []PropertySeed    `yaml:"properties"`
}

type SchedulerSettings struct {
	CalendarSyncIntervalMin int `yaml:"calendar_sync_interval"`
	EmailCheckIntervalMin   int `yaml:"email_check_interval"`
	MessageCheckIntervalMin int `yaml:"message_check_interval"`
}

type MessageSettings struct {
	CheckInInstructions struct {
		TriggerHoursBeforeCheckin int `yaml:"trigger_hours_before_checkin"`
	} `yaml:"check_in_instructions"`
	CheckoutReminder struct {
		TriggerHoursBeforeCheckout int `yaml:"trigger_hours_before_checkout"`
	} `yaml:"checkout_reminder"`
	ReviewRequest struct {
		TriggerHoursAfterCheckout int `yaml:"trigger_hours_after_checkout"`
	} `yaml:"review_request"`
}

type SeasonSettings struct {
	Months     []int   `yaml:"months"`
	Multiplier float64 `yaml:"multiplier"`
}

type PricingSettings struct {
	WeekendMultiplier  float64        `yaml:"weekend_multiplier"`
	HighSeason         SeasonSettings `yaml:"high_season"`
	LowSeason          SeasonSettings `yaml:"low_season"`
	LastMinuteDays     int            `yaml:"last_minute_days"`
	LastMinuteDiscount float64        `yaml:"last_minute_discount"`
	FarOutDays         int            `yaml:"far_out_days"`
	FarOutPremium      float64        `yaml:"far_out_premium"`
	MinPriceRatio      float64        `yaml:"min_price_ratio"`
	MaxPriceRatio      float64        `yaml:"max_price_ratio"`
}

type PropertySeed struct {
	Name         string  `yaml:"name"`
	Address      string  `yaml:"address"`
	ICalURL      string  `yaml:"ical_url"`
	Bedrooms     int     `yaml:"bedrooms"`
	MaxGuests    int     `yaml:"max_guests"`
	BasePrice    float64 `yaml:"base_price"`
	CleaningFee  float64 `yaml:"cleaning_fee"`
	WifiPassword string  `yaml:"wifi_password"`
	LockboxCode  string  `yaml:"lockbox_code"`
	CheckinTime  string  `yaml:"checkin_time"`
	CheckoutTime string  `yaml:"checkout_time"`
	CleanerName  string  `yaml:"cleaner_name"`
	CleanerPhone string  `yaml:"cleaner_phone"`
	CleanerEmail string  `yaml:"cleaner_email"`
	Notes        string  `yaml:"notes"`
}

// LoadSettings reads and parses config.yaml.
func LoadSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read settings %s: %w", path, err)
	}
	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse settings %s: %w", path, err)
	}
	s.ApplyDefaults()
	return &s, nil
}

// ApplyDefaults fills unset knobs with the stock values.
func (s *Settings) ApplyDefaults() {
	if s.Scheduler.CalendarSyncIntervalMin <= 0 {
		s.Scheduler.CalendarSyncIntervalMin = 15
	}
	if s.Scheduler.EmailCheckIntervalMin <= 0 {
		s.Scheduler.EmailCheckIntervalMin = 3
	}
	if s.Scheduler.MessageCheckIntervalMin <= 0 {
		s.Scheduler.MessageCheckIntervalMin = 5
	}
	if s.Messages.CheckInInstructions.TriggerHoursBeforeCheckin <= 0 {
		s.Messages.CheckInInstructions.TriggerHoursBeforeCheckin = 24
	}
	if s.Messages.CheckoutReminder.TriggerHoursBeforeCheckout <= 0 {
		s.Messages.CheckoutReminder.TriggerHoursBeforeCheckout = 18
	}
	if s.Messages.ReviewRequest.TriggerHoursAfterCheckout <= 0 {
		s.Messages.ReviewRequest.TriggerHoursAfterCheckout = 48
	}
	if s.Pricing.WeekendMultiplier <= 0 {
		s.Pricing.WeekendMultiplier = 1.15
	}
	if s.Pricing.HighSeason.Multiplier <= 0 {
		s.Pricing.HighSeason.Multiplier = 1.25
	}
	if s.Pricing.LowSeason.Multiplier <= 0 {
		s.Pricing.LowSeason.Multiplier = 0.85
	}
	if s.Pricing.LastMinuteDays <= 0 {
		s.Pricing.LastMinuteDays = 3
	}
	if s.Pricing.LastMinuteDiscount <= 0 {
		s.Pricing.LastMinuteDiscount = 0.10
	}
	if s.Pricing.FarOutDays <= 0 {
		s.Pricing.FarOutDays = 60
	}
	if s.Pricing.FarOutPremium <= 0 {
		s.Pricing.FarOutPremium = 0.05
	}
	if s.Pricing.MinPriceRatio <= 0 {
		s.Pricing.MinPriceRatio = 0.70
	}
	if s.Pricing.MaxPriceRatio <= 0 {
		s.Pricing.MaxPriceRatio = 2.00
	}
}

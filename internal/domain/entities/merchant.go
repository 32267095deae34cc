package entities

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeOfDay is a wall-clock time within a trading day
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses "HH:MM" into a TimeOfDay
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return TimeOfDay{}, fmt.Errorf("invalid hour in %q", s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return TimeOfDay{}, fmt.Errorf("invalid minute in %q", s)
	}
	return TimeOfDay{Hour: hour, Minute: minute}, nil
}

// Minutes returns the time of day as minutes from midnight
func (t TimeOfDay) Minutes() int {
	return t.Hour*60 + t.Minute
}

// On anchors the time of day to the date of ref, in ref's location
func (t TimeOfDay) On(ref time.Time) time.Time {
	return time.Date(ref.Year(), ref.Month(), ref.Day(), t.Hour, t.Minute, 0, 0, ref.Location())
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// MerchantConfig is the immutable per-merchant configuration loaded from the
// roster at process start
type MerchantConfig struct {
	MerchantID       string
	EstateID         string
	DeviceID         string
	Name             string
	ClientID         string
	ClientSecret     string
	SaleInterval     time.Duration
	FailureRate      float64
	DepositThreshold float64
	DepositAmount    float64
	OpeningTime      TimeOfDay
	ClosingTime      TimeOfDay
	Enabled          bool
	RequiresEndOfDay bool
	ContractIDs      []string
}

// BeforeOpening reports whether now falls before today's opening time
func (c MerchantConfig) BeforeOpening(now time.Time) bool {
	return now.Before(c.OpeningTime.On(now))
}

// AfterClosing reports whether now falls after today's closing time
func (c MerchantConfig) AfterClosing(now time.Time) bool {
	return !now.Before(c.ClosingTime.On(now))
}

// UntilOpening returns how long to wait from now until today's opening time
func (c MerchantConfig) UntilOpening(now time.Time) time.Duration {
	return c.OpeningTime.On(now).Sub(now)
}

// UntilNextOpening returns how long to wait from now until the next opening
// time, spanning midnight when the close-to-open window wraps the day
func (c MerchantConfig) UntilNextOpening(now time.Time) time.Duration {
	d := c.OpeningTime.On(now).Sub(now)
	if d < 0 {
		d += 24 * time.Hour
	}
	return d
}

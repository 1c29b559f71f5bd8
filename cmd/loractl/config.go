package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/soypat/subghz"
	"github.com/soypat/subghz/linuxhat"
	"github.com/soypat/subghz/sx126x"
)

// Default values for the command line flags.
const (
	DefaultRegion   = "eu"
	DefaultPower    = 14
	DefaultWindow   = 10 * time.Second
	DefaultInterval = 5 * time.Second
	DefaultLogLevel = "info"
	DefaultTopic    = "subghz/rx"
)

// Config holds the command line configuration.
type Config struct {
	Region   string
	Freq     uint // Hz, overrides the region frequency when non-zero.
	SF       uint
	BW       uint // kHz
	CR       uint // Denominator of the 4/x coding rate.
	Power    int
	Window   time.Duration
	Count    int
	Interval time.Duration
	Private  bool
	TCXO     bool
	LogLevel string
	// LPP encodes the tx payload argument as Cayenne LPP fields.
	LPP bool
	// MQTTBroker receives packets as JSON when set, e.g. tcp://localhost:1883.
	MQTTBroker string
	MQTTTopic  string
	Hat        linuxhat.Config
}

// NewDefaultConfig returns the default configuration.
func NewDefaultConfig() Config {
	return Config{
		Region:    DefaultRegion,
		Power:     DefaultPower,
		Window:    DefaultWindow,
		Count:     1,
		Interval:  DefaultInterval,
		TCXO:      true,
		LogLevel:  DefaultLogLevel,
		MQTTTopic: DefaultTopic,
		Hat:       linuxhat.DefaultConfig(),
	}
}

// RfConfig returns the region defaults with the explicit overrides applied.
func (c *Config) RfConfig() (subghz.RfConfig, error) {
	rf, _, err := subghz.RegionConfig(c.Region)
	if err != nil {
		return rf, fmt.Errorf("region %q: %w", c.Region, err)
	}
	if c.Freq != 0 {
		rf.Frequency = subghz.Frequency(c.Freq)
	}
	if c.SF != 0 {
		if c.SF < 7 || c.SF > 12 {
			return rf, fmt.Errorf("%w: spreading factor %d not in 7..12", subghz.ErrBadConfig, c.SF)
		}
		rf.SpreadFactor = subghz.SpreadFactor(c.SF)
	}
	switch c.BW {
	case 0:
	case 125:
		rf.Bandwidth = subghz.BW125k
	case 250:
		rf.Bandwidth = subghz.BW250k
	case 500:
		rf.Bandwidth = subghz.BW500k
	default:
		return rf, fmt.Errorf("%w: bandwidth must be 125, 250 or 500kHz", subghz.ErrBadConfig)
	}
	if c.CR != 0 {
		if c.CR < 5 || c.CR > 8 {
			return rf, fmt.Errorf("%w: coding rate 4/%d not in 4/5..4/8", subghz.ErrBadConfig, c.CR)
		}
		rf.CodingRate = subghz.CodingRate(c.CR - 4)
	}
	return rf, rf.Validate()
}

// RadioConfig returns the bring-up configuration of an SX1262 HAT.
func (c *Config) RadioConfig(logger *slog.Logger) subghz.Config {
	cfg := subghz.DefaultConfig()
	cfg.TrimHSE = false
	if !c.TCXO {
		cfg.Tcxo = nil
	}
	if c.Private {
		cfg.SyncWord = sx126x.SyncWordPrivate
	}
	cfg.Logger = logger
	return cfg
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	err := level.UnmarshalText([]byte(s))
	return level, err
}

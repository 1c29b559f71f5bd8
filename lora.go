package subghz

import (
	"errors"
	"fmt"
	"time"
)

// RfConfig is the logical LoRa configuration of a single transmit or
// receive operation.
type RfConfig struct {
	// Frequency is the carrier frequency of the radio, a.k.a center frequency.
	Frequency    Frequency
	SpreadFactor SpreadFactor
	Bandwidth    Bandwidth
	CodingRate   CodingRate
}

// TxConfig is the configuration of a transmission.
type TxConfig struct {
	Rf RfConfig
	// Power is the requested output power level in 0..16. Levels up to 14
	// use the low power amplifier, 15 and 16 the high power amplifier.
	Power int
}

// RxQuality is the signal quality of a received packet.
type RxQuality struct {
	RSSI int16 // dBm
	SNR  int8  // dB, truncated toward zero.
}

// Validate checks that c only holds values the radio supports.
func (c *RfConfig) Validate() error {
	switch {
	case c.SpreadFactor < SF7 || c.SpreadFactor > SF12:
		return fmt.Errorf("%w: spread factor %d", ErrBadConfig, c.SpreadFactor)
	case c.Bandwidth.Hertz() <= 0:
		return fmt.Errorf("%w: bandwidth %d", ErrBadConfig, c.Bandwidth)
	case c.CodingRate < CR4_5 || c.CodingRate > CR4_8:
		return fmt.Errorf("%w: coding rate %d", ErrBadConfig, c.CodingRate)
	case c.Frequency < minFrequency || c.Frequency > maxFrequency:
		return fmt.Errorf("%w: frequency %dHz out of range 150..960MHz", ErrBadConfig, c.Frequency)
	}
	return nil
}

// SymbolPeriod returns the time it takes to transmit a single symbol.
func (c *RfConfig) SymbolPeriod() time.Duration {
	bw := c.Bandwidth.Hertz()
	if bw <= 0 {
		return 0
	}
	return time.Second * time.Duration(c.SpreadFactor.ChipsPerSymbol()) / time.Duration(bw)
}

// TimeOnAir returns the time it takes to transmit a packet of the given
// payload length with the packet settings used by Radio.Transmit: 8 symbol
// preamble, explicit header and CRC on.
func (c *RfConfig) TimeOnAir(payloadLength int) time.Duration {
	bw := c.Bandwidth.Hertz()
	if bw <= 0 {
		return 0
	}
	const (
		crc = 1
		ih  = 0
	)
	ldr := int64(b2u8(LowDataRateOptimize(c.SpreadFactor, c.Bandwidth)))
	cr := int64(c.CodingRate)
	spread := int64(c.SpreadFactor)
	// Page 31 SX1276IMLTRT SEMTECH | Alldatasheet.
	Npayload := 8*int64(payloadLength) - 4*spread + 28 + 16*crc - 20*ih
	div := 4 * (spread - 2*ldr)
	// Apply Ceil and max with minimal branching.
	if Npayload < 0 || div <= 0 {
		Npayload = 0
	} else if Npayload%div == 0 {
		Npayload /= div
		Npayload *= (cr + 4)
	} else {
		Npayload /= div
		Npayload++
		Npayload *= (cr + 4)
	}
	Npayload += 8 + preambleLength
	// Preamble takes 4.25 symbols more than its length, count quarter symbols.
	quarters := 4*Npayload + 17
	return time.Second * time.Duration(quarters*c.SpreadFactor.ChipsPerSymbol()) /
		time.Duration(4*bw)
}

// SpreadFactor defines the number of chips per symbol. Higher spread factors
// imply longer transmission times but more robust communications.
type SpreadFactor uint8

const (
	SF7 SpreadFactor = iota + 7
	SF8
	SF9
	SF10
	SF11
	SF12
)

func (sf SpreadFactor) ChipsPerSymbol() int64 {
	return 1 << sf
}

// Bandwidth is the LoRa channel bandwidth.
type Bandwidth uint8

const (
	BW125k Bandwidth = iota + 1 // 125kHz
	BW250k                      // 250kHz
	BW500k                      // 500kHz
)

// Hertz returns the bandwidth in Hz or -1 for an undefined bandwidth.
func (bw Bandwidth) Hertz() int64 {
	switch bw {
	case BW125k:
		return 125e3
	case BW250k:
		return 250e3
	case BW500k:
		return 500e3
	}
	return -1
}

// CodingRate defines the forward error correction of the LoRa modem.
// A CR of 4/5 means that for every 4 bits of data, 1 bit of error
// correction is added.
type CodingRate uint8

const (
	CR4_5 CodingRate = iota + 1
	CR4_6
	CR4_7
	CR4_8
)

// Frequency is a frequency in Hertz.
type Frequency int64

func (f Frequency) Hertz() int64 { return int64(f) }

const (
	Hertz     Frequency = 1
	KiloHertz Frequency = 1000 * Hertz
	MegaHertz Frequency = 1000 * KiloHertz
)

// Common LoRa frequencies.
const (
	Freq433_0M = 433050000 * Hertz // Medical, scientific and industrial band.
	Freq434_8M = 434790000 * Hertz // Medical, scientific and industrial band.
	Freq868_1M = 868100000 * Hertz
	Freq868_3M = 868300000 * Hertz
	Freq868_5M = 868500000 * Hertz
	Freq902_3M = 902300000 * Hertz
	Freq915_2M = 915200000 * Hertz
	Freq916_8M = 916800000 * Hertz
	Freq923_3M = 923300000 * Hertz
)

// Range of the SX126x synthesizer.
const (
	minFrequency = 150 * MegaHertz
	maxFrequency = 960 * MegaHertz
)

const preambleLength = 8

// RegionConfig returns the default uplink configuration and the maximum
// payload length for a country code. See https://www.thethingsnetwork.org/country/
func RegionConfig(code string) (cfg RfConfig, maxPayload uint8, err error) {
	// Set Default values.
	cfg.CodingRate = CR4_5
	cfg.Bandwidth = BW125k
	cfg.SpreadFactor = SF9
	// https://www.iban.com/country-codes
	switch code {
	case "us", "ca", "mx":
		cfg.Frequency = Freq902_3M // US915 sub-band 1.
		maxPayload = 53
	case "ar", "au", "br", "cl":
		cfg.Frequency = Freq915_2M // AU915 sub-band 1.
		maxPayload = 115
	case "de", "es", "fr", "be", "it", "nl", "eu":
		cfg.Frequency = Freq868_1M
		maxPayload = 115
	default:
		return cfg, 0, errors.New("country config not added yet")
	}
	return cfg, maxPayload, nil
}

func b2u8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

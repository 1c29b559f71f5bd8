package subghz

import (
	"fmt"

	"tinygo.org/x/drivers/lora"
)

// FromLoRaConfig converts a tinygo.org/x/drivers/lora configuration to a
// TxConfig. Fields fixed by this driver (preamble, header type, CRC, IQ
// and sync word) are ignored.
func FromLoRaConfig(c lora.Config) (TxConfig, error) {
	var tc TxConfig
	tc.Rf.Frequency = Frequency(c.Freq)
	switch c.Sf {
	case lora.SpreadingFactor7:
		tc.Rf.SpreadFactor = SF7
	case lora.SpreadingFactor8:
		tc.Rf.SpreadFactor = SF8
	case lora.SpreadingFactor9:
		tc.Rf.SpreadFactor = SF9
	case lora.SpreadingFactor10:
		tc.Rf.SpreadFactor = SF10
	case lora.SpreadingFactor11:
		tc.Rf.SpreadFactor = SF11
	case lora.SpreadingFactor12:
		tc.Rf.SpreadFactor = SF12
	default:
		return tc, fmt.Errorf("%w: unsupported lora spreading factor %d", ErrBadConfig, c.Sf)
	}
	switch c.Bw {
	case lora.Bandwidth_125_0:
		tc.Rf.Bandwidth = BW125k
	case lora.Bandwidth_250_0:
		tc.Rf.Bandwidth = BW250k
	case lora.Bandwidth_500_0:
		tc.Rf.Bandwidth = BW500k
	default:
		return tc, fmt.Errorf("%w: unsupported lora bandwidth %d", ErrBadConfig, c.Bw)
	}
	switch c.Cr {
	case lora.CodingRate4_5:
		tc.Rf.CodingRate = CR4_5
	case lora.CodingRate4_6:
		tc.Rf.CodingRate = CR4_6
	case lora.CodingRate4_7:
		tc.Rf.CodingRate = CR4_7
	case lora.CodingRate4_8:
		tc.Rf.CodingRate = CR4_8
	default:
		return tc, fmt.Errorf("%w: unsupported lora coding rate %d", ErrBadConfig, c.Cr)
	}
	tc.Power = int(c.LoraTxPowerDBm)
	if _, err := PaConfigForPower(tc.Power); err != nil {
		return tc, err
	}
	return tc, tc.Rf.Validate()
}

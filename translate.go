package subghz

import (
	"strconv"

	"github.com/soypat/subghz/sx126x"
)

// Functions in this file map the logical radio model onto sx126x register
// encodings. They expect a validated RfConfig and panic on values
// RfConfig.Validate rejects.

func HwSpreadFactor(sf SpreadFactor) sx126x.SpreadFactor {
	switch sf {
	case SF7:
		return sx126x.SF7
	case SF8:
		return sx126x.SF8
	case SF9:
		return sx126x.SF9
	case SF10:
		return sx126x.SF10
	case SF11:
		return sx126x.SF11
	case SF12:
		return sx126x.SF12
	}
	panic("subghz: invalid spread factor " + strconv.Itoa(int(sf)))
}

func HwBandwidth(bw Bandwidth) sx126x.LoRaBandwidth {
	switch bw {
	case BW125k:
		return sx126x.BW125
	case BW250k:
		return sx126x.BW250
	case BW500k:
		return sx126x.BW500
	}
	panic("subghz: invalid bandwidth " + strconv.Itoa(int(bw)))
}

func HwCodingRate(cr CodingRate) sx126x.CodingRate {
	switch cr {
	case CR4_5:
		return sx126x.CR4_5
	case CR4_6:
		return sx126x.CR4_6
	case CR4_7:
		return sx126x.CR4_7
	case CR4_8:
		return sx126x.CR4_8
	}
	panic("subghz: invalid coding rate " + strconv.Itoa(int(cr)))
}

// LowDataRateOptimize reports whether low data rate optimization must be
// enabled, that is when the symbol time reaches 16ms or more.
func LowDataRateOptimize(sf SpreadFactor, bw Bandwidth) bool {
	switch sf {
	case SF12:
		return bw == BW125k || bw == BW250k
	case SF11:
		return bw == BW125k
	}
	return false
}

// PaConfigForPower selects the power amplifier settings for a power level.
// Levels 0..14 use the low power PA, 15 and 16 the high power PA.
func PaConfigForPower(power int) (sx126x.PaConfig, error) {
	switch {
	case power >= 0 && power <= 14:
		return sx126x.PaConfig{DutyCycle: 0x4, HpMax: 0x0, PaSel: sx126x.PaSelLP}, nil
	case power == 15:
		return sx126x.PaConfig{DutyCycle: 0x2, HpMax: 0x2, PaSel: sx126x.PaSelHP}, nil
	case power == 16:
		return sx126x.PaConfig{DutyCycle: 0x2, HpMax: 0x3, PaSel: sx126x.PaSelHP}, nil
	}
	return sx126x.PaConfig{}, ErrInvalidPower
}

// ModParams returns the modulation parameters for cfg.
func ModParams(cfg RfConfig) sx126x.LoRaModParams {
	return sx126x.LoRaModParams{
		SF:   HwSpreadFactor(cfg.SpreadFactor),
		BW:   HwBandwidth(cfg.Bandwidth),
		CR:   HwCodingRate(cfg.CodingRate),
		LDRO: LowDataRateOptimize(cfg.SpreadFactor, cfg.Bandwidth),
	}
}

func RfFreq(f Frequency) sx126x.RfFreq {
	return sx126x.RfFreqFromHz(uint32(f))
}

var imageBands = []struct {
	lo, hi Frequency
	ci     sx126x.CalibrateImage
}{
	{430 * MegaHertz, 440 * MegaHertz, sx126x.CalibrateImage430_440},
	{470 * MegaHertz, 510 * MegaHertz, sx126x.CalibrateImage470_510},
	{779 * MegaHertz, 787 * MegaHertz, sx126x.CalibrateImage779_787},
	{863 * MegaHertz, 870 * MegaHertz, sx126x.CalibrateImage863_870},
	{902 * MegaHertz, 928 * MegaHertz, sx126x.CalibrateImage902_928},
}

// CalibrateImageFor returns the image calibration band containing f.
func CalibrateImageFor(f Frequency) (sx126x.CalibrateImage, bool) {
	for _, b := range imageBands {
		if f >= b.lo && f <= b.hi {
			return b.ci, true
		}
	}
	return sx126x.CalibrateImage{}, false
}

func QualityFromPacketStatus(ps sx126x.LoRaPacketStatus) RxQuality {
	return RxQuality{RSSI: ps.RSSI(), SNR: ps.SNR()}
}

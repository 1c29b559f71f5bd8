package subghz

import (
	"errors"
	"testing"
	"time"

	"github.com/soypat/subghz/sx126x"
	"tinygo.org/x/drivers/lora"
)

func TestTimeOnAir(t *testing.T) {
	for _, tt := range []struct {
		cfg  RfConfig
		pl   int
		want time.Duration
	}{
		{eu868(SF7), 10, 41216 * time.Microsecond},
		{eu868(SF12), 51, 2465792 * time.Microsecond},
	} {
		if got := tt.cfg.TimeOnAir(tt.pl); got != tt.want {
			t.Errorf("SF%d %d bytes: got %s, want %s", tt.cfg.SpreadFactor, tt.pl, got, tt.want)
		}
	}
	cfg := eu868(SF9)
	if cfg.SymbolPeriod() != 4096*time.Microsecond {
		t.Errorf("symbol period %s", cfg.SymbolPeriod())
	}
}

func TestLowDataRateOptimize(t *testing.T) {
	for _, sf := range []SpreadFactor{SF7, SF8, SF9, SF10, SF11, SF12} {
		for _, bw := range []Bandwidth{BW125k, BW250k, BW500k} {
			want := (sf == SF12 && (bw == BW125k || bw == BW250k)) || (sf == SF11 && bw == BW125k)
			if got := LowDataRateOptimize(sf, bw); got != want {
				t.Errorf("SF%d %dHz: got %v", sf, bw.Hertz(), got)
			}
			cfg := RfConfig{Frequency: Freq868_1M, SpreadFactor: sf, Bandwidth: bw, CodingRate: CR4_8}
			// Symbol periods of 16ms and more need the optimization.
			if long := cfg.SymbolPeriod() >= 16*time.Millisecond; long != want {
				t.Errorf("SF%d %dHz: symbol period %s", sf, bw.Hertz(), cfg.SymbolPeriod())
			}
		}
	}
}

func TestModParams(t *testing.T) {
	got := ModParams(RfConfig{Frequency: Freq915_2M, SpreadFactor: SF11, Bandwidth: BW250k, CodingRate: CR4_7})
	want := sx126x.LoRaModParams{SF: sx126x.SF11, BW: sx126x.BW250, CR: sx126x.CR4_7}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestValidate(t *testing.T) {
	good := eu868(SF7)
	if err := good.Validate(); err != nil {
		t.Fatal(err)
	}
	for _, bad := range []RfConfig{
		{Frequency: Freq868_1M, SpreadFactor: 6, Bandwidth: BW125k, CodingRate: CR4_5},
		{Frequency: Freq868_1M, SpreadFactor: SF7, Bandwidth: 4, CodingRate: CR4_5},
		{Frequency: Freq868_1M, SpreadFactor: SF7, Bandwidth: BW125k, CodingRate: 0},
		{Frequency: 100 * MegaHertz, SpreadFactor: SF7, Bandwidth: BW125k, CodingRate: CR4_5},
	} {
		if err := bad.Validate(); !errors.Is(err, ErrBadConfig) {
			t.Errorf("%+v: got %v", bad, err)
		}
	}
}

func TestCalibrateImageFor(t *testing.T) {
	for _, tt := range []struct {
		f    Frequency
		want sx126x.CalibrateImage
		ok   bool
	}{
		{Freq433_0M, sx126x.CalibrateImage430_440, true},
		{Freq868_1M, sx126x.CalibrateImage863_870, true},
		{Freq915_2M, sx126x.CalibrateImage902_928, true},
		{600 * MegaHertz, sx126x.CalibrateImage{}, false},
	} {
		got, ok := CalibrateImageFor(tt.f)
		if got != tt.want || ok != tt.ok {
			t.Errorf("%dHz: got %+v %v", tt.f, got, ok)
		}
	}
}

func TestRegionConfig(t *testing.T) {
	cfg, max, err := RegionConfig("de")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Frequency != Freq868_1M || max != 115 {
		t.Errorf("got %+v max %d", cfg, max)
	}
	if err := cfg.Validate(); err != nil {
		t.Error(err)
	}
	if _, _, err := RegionConfig("xx"); err == nil {
		t.Error("expected error for unknown country")
	}
}

func TestFromLoRaConfig(t *testing.T) {
	tc, err := FromLoRaConfig(lora.Config{
		Freq:           868100000,
		Bw:             lora.Bandwidth_125_0,
		Sf:             lora.SpreadingFactor9,
		Cr:             lora.CodingRate4_7,
		HeaderType:     lora.HeaderExplicit,
		Preamble:       12,
		Iq:             lora.IQStandard,
		Crc:            lora.CRCOn,
		SyncWord:       lora.SyncPrivate,
		LoraTxPowerDBm: 14,
	})
	if err != nil {
		t.Fatal(err)
	}
	want := TxConfig{Rf: RfConfig{Frequency: Freq868_1M, SpreadFactor: SF9, Bandwidth: BW125k, CodingRate: CR4_7}, Power: 14}
	if tc != want {
		t.Errorf("got %+v, want %+v", tc, want)
	}

	_, err = FromLoRaConfig(lora.Config{Freq: 868100000, Bw: lora.Bandwidth_125_0, Sf: lora.SpreadingFactor9,
		Cr: lora.CodingRate4_5, LoraTxPowerDBm: 20})
	if !errors.Is(err, ErrInvalidPower) {
		t.Errorf("20dBm: got %v", err)
	}
	_, err = FromLoRaConfig(lora.Config{Freq: 868100000, Bw: lora.Bandwidth_62_5, Sf: lora.SpreadingFactor9,
		Cr: lora.CodingRate4_5})
	if !errors.Is(err, ErrBadConfig) {
		t.Errorf("62.5kHz: got %v", err)
	}
}

package sx126x

import (
	"bytes"
	"errors"
	"testing"
	"time"
)

// fakeSPI records every transaction and answers reads from a queue.
type fakeSPI struct {
	writes    [][]byte
	responses [][]byte
	nssLog    []bool
	err       error
}

func (f *fakeSPI) Tx(w, r []byte) error {
	if f.err != nil {
		return f.err
	}
	f.writes = append(f.writes, append([]byte(nil), w...))
	if r != nil && len(f.responses) > 0 {
		copy(r, f.responses[0])
		f.responses = f.responses[1:]
	}
	return nil
}

func (f *fakeSPI) Transfer(b byte) (byte, error) { return 0, f.err }

func newTestDev() (*Dev, *fakeSPI) {
	bus := &fakeSPI{}
	d := New(bus, func(level bool) { bus.nssLog = append(bus.nssLog, level) }, nil, nil)
	return d, bus
}

func TestCommandEncoding(t *testing.T) {
	for _, tt := range []struct {
		name string
		do   func(d *Dev) error
		want []byte
	}{
		{"sleep warm", func(d *Dev) error { return d.SetSleep(SleepCfg{WarmStart: true}) }, []byte{0x84, 0x04}},
		{"sleep cold rtc", func(d *Dev) error { return d.SetSleep(SleepCfg{RTCWakeup: true}) }, []byte{0x84, 0x01}},
		{"standby rc", func(d *Dev) error { return d.SetStandby(StandbyRC) }, []byte{0x80, 0x00}},
		{"tx 4s", func(d *Dev) error { return d.SetTx(TimeoutFromDuration(4 * time.Second)) }, []byte{0x83, 0x03, 0xe8, 0x00}},
		{"rx disabled", func(d *Dev) error { return d.SetRx(TimeoutDisabled) }, []byte{0x82, 0, 0, 0}},
		{"regulator smps", func(d *Dev) error { return d.SetRegulatorMode(RegModeSMPS) }, []byte{0x96, 0x01}},
		{"tcxo", func(d *Dev) error {
			return d.SetTcxoMode(TcxoMode{Trim: TcxoVolts1_7, Timeout: TimeoutFromDuration(100 * time.Millisecond)})
		}, []byte{0x97, 0x01, 0x00, 0x19, 0x00}},
		{"calibrate all", func(d *Dev) error { return d.Calibrate(CalibAll) }, []byte{0x89, 0x7f}},
		{"calibrate image", func(d *Dev) error { return d.CalibrateImage(CalibrateImage863_870) }, []byte{0x98, 0xd7, 0xdb}},
		{"pa config hp", func(d *Dev) error {
			return d.SetPaConfig(PaConfig{DutyCycle: 2, HpMax: 3, PaSel: PaSelHP})
		}, []byte{0x95, 0x02, 0x03, 0x00, 0x01}},
		{"tx params negative", func(d *Dev) error { return d.SetTxParams(TxParams{Power: -9, Ramp: Ramp40us}) }, []byte{0x8e, 0xf7, 0x02}},
		{"ocp", func(d *Dev) error { return d.SetPaOCP(Ocp140mA) }, []byte{0x0d, 0x08, 0xe7, 0x38}},
		{"hse trim", func(d *Dev) error { return d.SetHSEInTrim(HSETrimMin) }, []byte{0x0d, 0x09, 0x11, 0x00, 0x00}},
		{"packet type", func(d *Dev) error { return d.SetPacketType(PacketTypeLoRa) }, []byte{0x8a, 0x01}},
		{"sync word", func(d *Dev) error { return d.SetLoRaSyncWord(SyncWordPublic) }, []byte{0x0d, 0x07, 0x40, 0x34, 0x44}},
		{"mod params", func(d *Dev) error {
			return d.SetLoRaModParams(LoRaModParams{SF: SF12, BW: BW125, CR: CR4_5, LDRO: true})
		}, []byte{0x8b, 0x0c, 0x04, 0x01, 0x01}},
		{"packet params", func(d *Dev) error {
			return d.SetLoRaPacketParams(LoRaPacketParams{PreambleLen: 8, Header: HeaderVariable, PayloadLen: 255, InvertIQ: true})
		}, []byte{0x8c, 0x00, 0x08, 0x00, 0xff, 0x00, 0x01}},
		{"irq cfg", func(d *Dev) error {
			return d.SetIrqCfg(CfgIrq{}.EnableAll(IrqTxDone).EnableAll(IrqTimeout))
		}, []byte{0x08, 0x02, 0x01, 0x02, 0x01, 0x02, 0x01, 0x02, 0x01}},
		{"clear irq", func(d *Dev) error { return d.ClearIrqStatus(IrqAll) }, []byte{0x02, 0xff, 0xff}},
		{"buffer base", func(d *Dev) error { return d.SetBufferBaseAddress(0, 0x80) }, []byte{0x8f, 0x00, 0x80}},
		{"write buffer", func(d *Dev) error { return d.WriteBuffer(0, []byte("hi")) }, []byte{0x0e, 0x00, 'h', 'i'}},
	} {
		t.Run(tt.name, func(t *testing.T) {
			d, bus := newTestDev()
			if err := tt.do(d); err != nil {
				t.Fatal(err)
			}
			if len(bus.writes) != 1 {
				t.Fatalf("got %d transactions, want 1", len(bus.writes))
			}
			if !bytes.Equal(bus.writes[0], tt.want) {
				t.Errorf("got % x, want % x", bus.writes[0], tt.want)
			}
		})
	}
}

func TestRfFrequency(t *testing.T) {
	d, bus := newTestDev()
	f := RfFreqFromHz(868_100_000)
	if f != 0x36419999 {
		t.Fatalf("got %#x", uint32(f))
	}
	if got := f.Hz(); got < 868_099_990 || got > 868_100_000 {
		t.Errorf("round trip frequency %d", got)
	}
	if err := d.SetRfFrequency(f); err != nil {
		t.Fatal(err)
	}
	want := []byte{0x86, 0x36, 0x41, 0x99, 0x99}
	if !bytes.Equal(bus.writes[0], want) {
		t.Errorf("got % x, want % x", bus.writes[0], want)
	}
}

func TestIrqStatus(t *testing.T) {
	d, bus := newTestDev()
	bus.responses = [][]byte{{0xaa, 0x2c, 0x02, 0x01}}
	status, irq, err := d.IrqStatus()
	if err != nil {
		t.Fatal(err)
	}
	if irq != IrqTxDone|IrqTimeout {
		t.Errorf("irq %016b", irq)
	}
	if status.Mode() != ModeStandbyRC || status.Cmd() != CmdTxDone {
		t.Errorf("status %s", status)
	}
	if !bytes.Equal(bus.writes[0], []byte{0x12, 0, 0, 0}) {
		t.Errorf("wrote % x", bus.writes[0])
	}
}

func TestRxBufferAndPacketStatus(t *testing.T) {
	d, bus := newTestDev()
	bus.responses = [][]byte{
		{0, 0x24, 5, 0x80},
		{0, 0x24, 160, 0xe1, 161},
		{0, 0, 0, 'h', 'e', 'l', 'l', 'o'},
	}
	_, n, ptr, err := d.RxBufferStatus()
	if err != nil {
		t.Fatal(err)
	}
	if n != 5 || ptr != 0x80 {
		t.Errorf("len=%d ptr=%#x", n, ptr)
	}
	ps, err := d.LoRaPacketStatus()
	if err != nil {
		t.Fatal(err)
	}
	if ps.RSSI() != -80 {
		t.Errorf("rssi %d", ps.RSSI())
	}
	if ps.SNR() != -7 {
		t.Errorf("snr %d, want truncation to -7", ps.SNR())
	}
	if ps.SignalRSSI() != -80 {
		t.Errorf("signal rssi %d", ps.SignalRSSI())
	}
	buf := make([]byte, n)
	if err := d.ReadBuffer(ptr, buf); err != nil {
		t.Fatal(err)
	}
	if string(buf) != "hello" {
		t.Errorf("got %q", buf)
	}
	if !bytes.Equal(bus.writes[2][:3], []byte{0x1e, 0x80, 0x00}) || len(bus.writes[2]) != 8 {
		t.Errorf("read buffer wrote % x", bus.writes[2])
	}
}

func TestPacketStatusTruncation(t *testing.T) {
	for _, tt := range []struct {
		raw  int8
		want int8
	}{
		{31, 7}, // 7.75dB
		{30, 7}, // 7.5dB
		{-31, -7},
		{3, 0},
		{-128, -32},
	} {
		ps := LoRaPacketStatus{SNRPkt: tt.raw}
		if got := ps.SNR(); got != tt.want {
			t.Errorf("SNR(%d) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}

func TestTimeoutFromDuration(t *testing.T) {
	for _, tt := range []struct {
		d    time.Duration
		want Timeout
	}{
		{0, TimeoutDisabled},
		{-time.Second, TimeoutDisabled},
		{time.Nanosecond, 1},
		{15625 * time.Nanosecond, 1},
		{time.Millisecond, 64},
		{4 * time.Second, 256000},
		{time.Hour, TimeoutMax},
	} {
		if got := TimeoutFromDuration(tt.d); got != tt.want {
			t.Errorf("TimeoutFromDuration(%s) = %d, want %d", tt.d, got, tt.want)
		}
	}
	if d := Timeout(64).Duration(); d != time.Millisecond {
		t.Errorf("duration %s", d)
	}
}

func TestNSSFraming(t *testing.T) {
	d, bus := newTestDev()
	if err := d.SetStandby(StandbyXOSC); err != nil {
		t.Fatal(err)
	}
	// High on construction, then low/high around the transaction.
	want := []bool{true, false, true}
	if len(bus.nssLog) != len(want) {
		t.Fatalf("nss log %v", bus.nssLog)
	}
	for i := range want {
		if bus.nssLog[i] != want[i] {
			t.Fatalf("nss log %v, want %v", bus.nssLog, want)
		}
	}
}

func TestBusyTimeout(t *testing.T) {
	bus := &fakeSPI{}
	d := New(bus, nil, func() bool { return true }, nil)
	err := d.SetStandby(StandbyRC)
	if !errors.Is(err, ErrBusyTimeout) {
		t.Fatalf("got %v", err)
	}
	if len(bus.writes) != 0 {
		t.Error("transaction issued while busy")
	}
}

func TestCheckConnection(t *testing.T) {
	d, bus := newTestDev()
	bus.responses = [][]byte{{0, 0x00}}
	if err := d.CheckConnection(); !errors.Is(err, ErrNotDetected) {
		t.Errorf("zero status: got %v", err)
	}
	bus.responses = [][]byte{{0, 0x28}} // stby_rc, processing error.
	if err := d.CheckConnection(); !errors.Is(err, ErrBadStatus) {
		t.Errorf("processing error: got %v", err)
	}
	bus.responses = [][]byte{{0, 0x22}}
	if err := d.CheckConnection(); err != nil {
		t.Errorf("stby_rc: got %v", err)
	}
	bus.err = errors.New("spi down")
	if err := d.CheckConnection(); err == nil {
		t.Error("expected bus error")
	}
}

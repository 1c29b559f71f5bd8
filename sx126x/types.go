package sx126x

import "time"

// Status is the chip status byte returned by every command.
type Status uint8

// Mode returns the chip mode field of the status byte.
func (s Status) Mode() ChipMode { return ChipMode((s >> 4) & 0b111) }

// Cmd returns the command status field of the status byte.
func (s Status) Cmd() CmdStatus { return CmdStatus((s >> 1) & 0b111) }

// Err returns ErrBadStatus if the command status reports a failure.
func (s Status) Err() error {
	switch s.Cmd() {
	case CmdProcessingError, CmdExecFailure:
		return ErrBadStatus
	}
	return nil
}

func (s Status) String() string {
	return "mode=" + s.Mode().String() + " cmd=" + s.Cmd().String()
}

type ChipMode uint8

const (
	ModeStandbyRC   ChipMode = 2
	ModeStandbyXOSC ChipMode = 3
	ModeFS          ChipMode = 4
	ModeRx          ChipMode = 5
	ModeTx          ChipMode = 6
)

func (m ChipMode) String() string {
	switch m {
	case ModeStandbyRC:
		return "stby_rc"
	case ModeStandbyXOSC:
		return "stby_xosc"
	case ModeFS:
		return "fs"
	case ModeRx:
		return "rx"
	case ModeTx:
		return "tx"
	}
	return "unknown"
}

type CmdStatus uint8

const (
	CmdDataAvailable   CmdStatus = 2
	CmdTimeout         CmdStatus = 3
	CmdProcessingError CmdStatus = 4
	CmdExecFailure     CmdStatus = 5
	CmdTxDone          CmdStatus = 6
)

func (c CmdStatus) String() string {
	switch c {
	case CmdDataAvailable:
		return "data_available"
	case CmdTimeout:
		return "timeout"
	case CmdProcessingError:
		return "processing_error"
	case CmdExecFailure:
		return "exec_failure"
	case CmdTxDone:
		return "tx_done"
	}
	return "ok"
}

// Irq is a bitmask of radio interrupt sources. The same layout is used by
// SetDioIrqParams, GetIrqStatus and ClearIrqStatus.
type Irq uint16

const (
	IrqTxDone Irq = 1 << iota
	IrqRxDone
	IrqPreambleDetected
	IrqSyncWordValid
	IrqHeaderValid
	IrqHeaderErr
	// IrqErr is raised on preamble, sync word, address, CRC or length errors.
	IrqErr
	IrqCadDone
	IrqCadDetected
	IrqTimeout

	IrqAll Irq = 0xffff
)

// CfgIrq holds the global IRQ mask and the per DIO line masks.
type CfgIrq struct {
	IrqMask  Irq
	Dio1Mask Irq
	Dio2Mask Irq
	Dio3Mask Irq
}

// EnableAll returns c with irq unmasked globally and routed to all DIO lines.
func (c CfgIrq) EnableAll(irq Irq) CfgIrq {
	c.IrqMask |= irq
	c.Dio1Mask |= irq
	c.Dio2Mask |= irq
	c.Dio3Mask |= irq
	return c
}

// Timeout is a radio timer value in steps of 15.625µs. Only the lower 24
// bits are sent to the device.
type Timeout uint32

const (
	// TimeoutDisabled disables the timer. For SetRx this is single mode
	// without timeout, for SetTx there is no safety timeout.
	TimeoutDisabled Timeout = 0
	// TimeoutContinuous puts SetRx in continuous receive mode.
	TimeoutContinuous Timeout = 0xffffff
	// TimeoutMax is the longest finite timeout, about 262s.
	TimeoutMax Timeout = 0xfffffe
)

const timeoutStep = 15625 * time.Nanosecond

// TimeoutFromDuration converts d to timer steps rounding up, saturating at
// TimeoutMax. Non-positive durations yield TimeoutDisabled.
func TimeoutFromDuration(d time.Duration) Timeout {
	if d <= 0 {
		return TimeoutDisabled
	}
	steps := (d + timeoutStep - 1) / timeoutStep
	if steps > time.Duration(TimeoutMax) {
		return TimeoutMax
	}
	return Timeout(steps)
}

// Duration returns the timeout as a time.Duration.
func (t Timeout) Duration() time.Duration { return time.Duration(t&0xffffff) * timeoutStep }

func (t Timeout) bytes() [3]byte {
	return [3]byte{byte(t >> 16), byte(t >> 8), byte(t)}
}

// RegMode selects the power regulator.
type RegMode uint8

const (
	RegModeLDO  RegMode = 0
	RegModeSMPS RegMode = 1
)

// StandbyClk selects the clock used in standby mode.
type StandbyClk uint8

const (
	StandbyRC   StandbyClk = 0
	StandbyXOSC StandbyClk = 1
)

// SleepCfg configures SetSleep.
type SleepCfg struct {
	// WarmStart retains the configuration while asleep.
	WarmStart bool
	// RTCWakeup wakes the device on RTC timeout.
	RTCWakeup bool
}

func (s SleepCfg) byte() byte {
	return b2u8(s.WarmStart)<<2 | b2u8(s.RTCWakeup)
}

// TcxoTrim is the supply voltage on DIO3 for an external TCXO.
type TcxoTrim uint8

const (
	TcxoVolts1_6 TcxoTrim = iota
	TcxoVolts1_7
	TcxoVolts1_8
	TcxoVolts2_2
	TcxoVolts2_4
	TcxoVolts2_7
	TcxoVolts3_0
	TcxoVolts3_3
)

// TcxoMode configures the TCXO supply and its startup timeout.
type TcxoMode struct {
	Trim    TcxoTrim
	Timeout Timeout
}

// CalibParam is the block mask passed to Calibrate.
type CalibParam uint8

const (
	CalibRC64k    CalibParam = 1 << 0
	CalibRC13M    CalibParam = 1 << 1
	CalibPLL      CalibParam = 1 << 2
	CalibADCPulse CalibParam = 1 << 3
	CalibADCBulkN CalibParam = 1 << 4
	CalibADCBulkP CalibParam = 1 << 5
	CalibImage    CalibParam = 1 << 6
	CalibAll      CalibParam = 0x7f
)

// CalibrateImage holds the frequency band limits for image calibration
// in units of 4MHz.
type CalibrateImage struct {
	F1, F2 uint8
}

var (
	CalibrateImage430_440 = CalibrateImage{0x6b, 0x6f}
	CalibrateImage470_510 = CalibrateImage{0x75, 0x81}
	CalibrateImage779_787 = CalibrateImage{0xc1, 0xc5}
	CalibrateImage863_870 = CalibrateImage{0xd7, 0xdb}
	CalibrateImage902_928 = CalibrateImage{0xe1, 0xe9}
)

// PaSel selects the power amplifier.
type PaSel uint8

const (
	PaSelHP PaSel = 0
	PaSelLP PaSel = 1
)

func (p PaSel) String() string {
	if p == PaSelLP {
		return "lp"
	}
	return "hp"
}

// PaConfig is the argument of SetPaConfig.
type PaConfig struct {
	DutyCycle uint8
	HpMax     uint8
	PaSel     PaSel
}

const paLut = 0x01

// RampTime is the PA ramp up time.
type RampTime uint8

const (
	Ramp10us RampTime = iota
	Ramp20us
	Ramp40us
	Ramp80us
	Ramp200us
	Ramp800us
	Ramp1700us
	Ramp3400us
)

// TxParams is the argument of SetTxParams. Power is in dBm.
type TxParams struct {
	Power int8
	Ramp  RampTime
}

// Ocp is the over current protection register value in 2.5mA steps.
type Ocp uint8

const (
	Ocp60mA  Ocp = 0x18
	Ocp140mA Ocp = 0x38
)

type PacketType uint8

const (
	PacketTypeGFSK PacketType = 0
	PacketTypeLoRa PacketType = 1
)

type LoRaSyncWord uint16

const (
	SyncWordPublic  LoRaSyncWord = 0x3444
	SyncWordPrivate LoRaSyncWord = 0x1424
)

// RfFreq is the RF frequency register value.
type RfFreq uint32

const xtalFreq = 32_000_000

// RfFreqFromHz converts a frequency in Hz to the register value
// freq * 2^25 / 32MHz.
func RfFreqFromHz(hz uint32) RfFreq {
	return RfFreq(uint64(hz) << 25 / xtalFreq)
}

// Hz converts the register value back to Hz.
func (f RfFreq) Hz() uint32 {
	return uint32(uint64(f) * xtalFreq >> 25)
}

type SpreadFactor uint8

const (
	SF5 SpreadFactor = iota + 5
	SF6
	SF7
	SF8
	SF9
	SF10
	SF11
	SF12
)

type LoRaBandwidth uint8

const (
	BW7   LoRaBandwidth = 0x00 // 7.81kHz
	BW15  LoRaBandwidth = 0x01 // 15.63kHz
	BW31  LoRaBandwidth = 0x02 // 31.25kHz
	BW62  LoRaBandwidth = 0x03 // 62.5kHz
	BW125 LoRaBandwidth = 0x04 // 125kHz
	BW250 LoRaBandwidth = 0x05 // 250kHz
	BW500 LoRaBandwidth = 0x06 // 500kHz
	BW10  LoRaBandwidth = 0x08 // 10.42kHz
	BW20  LoRaBandwidth = 0x09 // 20.83kHz
	BW41  LoRaBandwidth = 0x0a // 41.67kHz
)

type CodingRate uint8

const (
	CR4_5 CodingRate = iota + 1
	CR4_6
	CR4_7
	CR4_8
)

// LoRaModParams is the argument of SetModulationParams in LoRa mode.
type LoRaModParams struct {
	SF   SpreadFactor
	BW   LoRaBandwidth
	CR   CodingRate
	LDRO bool // Low data rate optimization.
}

type HeaderType uint8

const (
	// HeaderVariable is the explicit header mode, length is sent in the header.
	HeaderVariable HeaderType = 0
	// HeaderFixed is the implicit header mode.
	HeaderFixed HeaderType = 1
)

// LoRaPacketParams is the argument of SetPacketParams in LoRa mode.
type LoRaPacketParams struct {
	PreambleLen uint16
	Header      HeaderType
	PayloadLen  uint8
	CRC         bool
	InvertIQ    bool
}

// LoRaPacketStatus is the response of GetPacketStatus in LoRa mode.
type LoRaPacketStatus struct {
	Status Status
	// RSSIPkt is the average RSSI over the last packet, -RSSIPkt/2 dBm.
	RSSIPkt uint8
	// SNRPkt is the packet SNR in quarter dB.
	SNRPkt int8
	// SignalRSSIPkt is the despread signal RSSI, -SignalRSSIPkt/2 dBm.
	SignalRSSIPkt uint8
}

// RSSI returns the packet RSSI in dBm truncated toward zero.
func (p LoRaPacketStatus) RSSI() int16 { return -int16(p.RSSIPkt) / 2 }

// SNR returns the packet SNR in dB truncated toward zero, so 7.75dB is 7
// and -7.75dB is -7.
func (p LoRaPacketStatus) SNR() int8 { return p.SNRPkt / 4 }

// SignalRSSI returns the despread signal RSSI in dBm truncated toward zero.
func (p LoRaPacketStatus) SignalRSSI() int16 { return -int16(p.SignalRSSIPkt) / 2 }

func b2u8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

package subghz

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/soypat/subghz/sx126x"
)

// Registers is the command interface of an SX126x class transceiver.
// It is implemented by *sx126x.Dev.
type Registers interface {
	Reset() error
	SetSleep(sx126x.SleepCfg) error
	SetStandby(sx126x.StandbyClk) error
	SetTx(sx126x.Timeout) error
	SetRx(sx126x.Timeout) error
	SetRegulatorMode(sx126x.RegMode) error
	SetTcxoMode(sx126x.TcxoMode) error
	SetHSEInTrim(trim uint8) error
	Calibrate(sx126x.CalibParam) error
	CalibrateImage(sx126x.CalibrateImage) error
	SetPaConfig(sx126x.PaConfig) error
	SetTxParams(sx126x.TxParams) error
	SetPaOCP(sx126x.Ocp) error
	SetPacketType(sx126x.PacketType) error
	SetLoRaSyncWord(sx126x.LoRaSyncWord) error
	SetRfFrequency(sx126x.RfFreq) error
	SetLoRaModParams(sx126x.LoRaModParams) error
	SetLoRaPacketParams(sx126x.LoRaPacketParams) error
	SetIrqCfg(sx126x.CfgIrq) error
	IrqStatus() (sx126x.Status, sx126x.Irq, error)
	ClearIrqStatus(sx126x.Irq) error
	SetBufferBaseAddress(tx, rx uint8) error
	RxBufferStatus() (status sx126x.Status, length, ptr uint8, err error)
	LoRaPacketStatus() (sx126x.LoRaPacketStatus, error)
	WriteBuffer(offset uint8, data []byte) error
	ReadBuffer(offset uint8, dst []byte) error
}

var _ Registers = (*sx126x.Dev)(nil)

// Switch drives the RF front end antenna switch.
type Switch interface {
	EnableRx() error
	EnableTx() error
	Disable() error
}

// IRQLine is the radio interrupt line as seen by the driver. Implementations
// call Radio.HandleInterrupt when the line fires while enabled.
type IRQLine interface {
	Enable()
	Disable()
	// Unpend discards an interrupt latched while the line was disabled.
	Unpend()
}

// Config is the hardware bring-up configuration of a Radio.
type Config struct {
	RegMode sx126x.RegMode
	// CalibrateImage is used when the operating frequency falls outside
	// the known image calibration bands.
	CalibrateImage sx126x.CalibrateImage
	PaConfig       sx126x.PaConfig
	TxParams       sx126x.TxParams
	// Tcxo configures the TCXO supply on DIO3. Nil for crystal boards.
	Tcxo *sx126x.TcxoMode
	// TrimHSE sets the HSE32 input capacitance trim to its minimum. STM32WL only.
	TrimHSE  bool
	SyncWord sx126x.LoRaSyncWord
	// Logger receives debug logs. Nil discards them.
	Logger *slog.Logger
}

// DefaultConfig returns the bring-up configuration of an STM32WL board with
// a 1.7V TCXO operating in the 863-870MHz band.
func DefaultConfig() Config {
	return Config{
		RegMode:        sx126x.RegModeSMPS,
		CalibrateImage: sx126x.CalibrateImage863_870,
		PaConfig:       sx126x.PaConfig{DutyCycle: 0x4, HpMax: 0x0, PaSel: sx126x.PaSelLP},
		TxParams:       sx126x.TxParams{Power: 14, Ramp: sx126x.Ramp40us},
		Tcxo: &sx126x.TcxoMode{
			Trim:    sx126x.TcxoVolts1_7,
			Timeout: sx126x.TimeoutFromDuration(100 * time.Millisecond),
		},
		TrimHSE:  true,
		SyncWord: sx126x.SyncWordPublic,
	}
}

// State is the phase of the operation in progress.
type State uint8

const (
	StateIdle State = iota
	StateConfiguring
	StateArmed
	StateSuspended
	StateResumed
	StateComplete
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConfiguring:
		return "configuring"
	case StateArmed:
		return "armed"
	case StateSuspended:
		return "suspended"
	case StateResumed:
		return "resumed"
	case StateComplete:
		return "complete"
	case StateFailed:
		return "failed"
	}
	return "State(" + fmt.Sprint(uint8(s)) + ")"
}

const (
	// MaxPayload is the largest payload the radio buffer holds.
	MaxPayload = sx126x.MaxPayload
	txTimeout  = 4000 * time.Millisecond
)

// Radio drives a LoRa transceiver through one transmit, receive or sleep
// operation at a time. Radio is not safe for concurrent use with the
// exception of HandleInterrupt.
type Radio struct {
	regs  Registers
	sw    Switch
	irq   IRQLine
	sig   *Signal
	cfg   Config
	log   *slog.Logger
	state State
	op    string
	// cold is set after a sleep that lost the chip configuration.
	cold bool
}

// New resets the transceiver and runs the bring-up configuration.
// A nil sw is treated as a board without antenna switch.
func New(regs Registers, sw Switch, irq IRQLine, cfg Config) (*Radio, error) {
	if regs == nil {
		return nil, errNilRegisterIface
	}
	if irq == nil {
		return nil, errNilIRQLine
	}
	if sw == nil {
		sw = noSwitch{}
	}
	r := &Radio{
		regs: regs,
		sw:   sw,
		irq:  irq,
		sig:  NewSignal(),
		cfg:  cfg,
		log:  cfg.Logger,
		op:   "init",
	}
	if r.log == nil {
		r.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	irq.Disable()
	err := regs.Reset()
	if err != nil {
		return nil, busErr("reset", err)
	}
	err = r.configure(cfg.CalibrateImage, cfg.PaConfig, cfg.TxParams)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// State returns the phase of the last or current operation.
func (r *Radio) State() State { return r.state }

// HandleInterrupt is the interrupt service routine of the radio IRQ line.
// It masks the line and wakes the waiting operation.
func (r *Radio) HandleInterrupt() {
	r.irq.Disable()
	r.sig.Raise()
}

// Transmit sends payload and blocks until the radio reports completion.
// The returned byte count is always 0 on success.
func (r *Radio) Transmit(ctx context.Context, cfg TxConfig, payload []byte) (n int, err error) {
	pa, err := PaConfigForPower(cfg.Power)
	if err != nil {
		return 0, err
	}
	if err = cfg.Rf.Validate(); err != nil {
		return 0, err
	}
	if len(payload) > MaxPayload {
		return 0, ErrPayloadTooLarge
	}
	r.begin("tx")
	defer func() { r.end(err) }()

	err = r.sw.Disable()
	if err != nil {
		return 0, busErr("switch disable", err)
	}
	err = r.sw.EnableTx()
	if err != nil {
		return 0, busErr("switch tx", err)
	}
	err = r.regs.SetRfFrequency(RfFreq(cfg.Rf.Frequency))
	if err != nil {
		return 0, busErr("rf frequency", err)
	}
	ci, ok := CalibrateImageFor(cfg.Rf.Frequency)
	if !ok {
		ci = r.cfg.CalibrateImage
	}
	err = r.configure(ci, pa, sx126x.TxParams{Power: int8(cfg.Power), Ramp: sx126x.Ramp40us})
	if err != nil {
		return 0, err
	}
	r.cold = false
	err = r.regs.SetLoRaModParams(ModParams(cfg.Rf))
	if err != nil {
		return 0, busErr("mod params", err)
	}
	err = r.regs.SetLoRaPacketParams(sx126x.LoRaPacketParams{
		PreambleLen: preambleLength,
		Header:      sx126x.HeaderVariable,
		PayloadLen:  uint8(len(payload)),
		CRC:         true,
		InvertIQ:    false,
	})
	if err != nil {
		return 0, busErr("packet params", err)
	}
	err = r.regs.SetIrqCfg(sx126x.CfgIrq{}.EnableAll(sx126x.IrqTxDone | sx126x.IrqTimeout))
	if err != nil {
		return 0, busErr("irq cfg", err)
	}
	err = r.regs.SetBufferBaseAddress(0, 0)
	if err != nil {
		return 0, busErr("buffer base", err)
	}
	err = r.regs.WriteBuffer(0, payload)
	if err != nil {
		return 0, busErr("write buffer", err)
	}
	r.setState(StateArmed)
	err = r.regs.SetTx(sx126x.TimeoutFromDuration(txTimeout))
	if err != nil {
		return 0, busErr("set tx", err)
	}
	for {
		irq, err := r.irqWait(ctx)
		if err != nil {
			return 0, err
		}
		switch {
		case irq&sx126x.IrqTimeout != 0:
			return 0, ErrTimeout
		case irq&sx126x.IrqTxDone != 0:
			return 0, nil
		}
	}
}

// Receive listens for a single packet and copies it into buf. A window of
// zero or less waits until a packet arrives or ctx is done. It returns
// io.ErrShortBuffer if the packet does not fit in buf.
func (r *Radio) Receive(ctx context.Context, cfg RfConfig, window time.Duration, buf []byte) (n int, q RxQuality, err error) {
	if err = cfg.Validate(); err != nil {
		return 0, q, err
	}
	r.begin("rx")
	defer func() { r.end(err) }()

	err = r.sw.Disable()
	if err != nil {
		return 0, q, busErr("switch disable", err)
	}
	err = r.sw.EnableRx()
	if err != nil {
		return 0, q, busErr("switch rx", err)
	}
	if r.cold {
		err = r.configure(r.cfg.CalibrateImage, r.cfg.PaConfig, r.cfg.TxParams)
		if err != nil {
			return 0, q, err
		}
		r.cold = false
	}
	err = r.regs.SetRfFrequency(RfFreq(cfg.Frequency))
	if err != nil {
		return 0, q, busErr("rf frequency", err)
	}
	err = r.regs.SetLoRaModParams(ModParams(cfg))
	if err != nil {
		return 0, q, busErr("mod params", err)
	}
	err = r.regs.SetLoRaPacketParams(sx126x.LoRaPacketParams{
		PreambleLen: preambleLength,
		Header:      sx126x.HeaderVariable,
		PayloadLen:  MaxPayload,
		CRC:         false,
		InvertIQ:    true,
	})
	if err != nil {
		return 0, q, busErr("packet params", err)
	}
	const rxIrqs = sx126x.IrqRxDone | sx126x.IrqPreambleDetected | sx126x.IrqHeaderValid |
		sx126x.IrqHeaderErr | sx126x.IrqErr | sx126x.IrqTimeout
	err = r.regs.SetIrqCfg(sx126x.CfgIrq{}.EnableAll(rxIrqs))
	if err != nil {
		return 0, q, busErr("irq cfg", err)
	}
	err = r.regs.SetBufferBaseAddress(0, 0)
	if err != nil {
		return 0, q, busErr("buffer base", err)
	}
	r.setState(StateArmed)
	err = r.regs.SetRx(sx126x.TimeoutFromDuration(window))
	if err != nil {
		return 0, q, busErr("set rx", err)
	}
	for {
		irq, err := r.irqWait(ctx)
		if err != nil {
			return 0, q, err
		}
		switch {
		case irq&sx126x.IrqRxDone != 0:
			return r.readPacket(buf)
		case irq&sx126x.IrqTimeout != 0:
			return 0, q, ErrTimeout
		case irq&sx126x.IrqHeaderErr != 0:
			return 0, q, ErrHeader
		case irq&sx126x.IrqErr != 0:
			return 0, q, ErrGeneric
		}
	}
}

func (r *Radio) readPacket(buf []byte) (int, RxQuality, error) {
	var q RxQuality
	_, length, ptr, err := r.regs.RxBufferStatus()
	if err != nil {
		return 0, q, busErr("rx buffer status", err)
	}
	ps, err := r.regs.LoRaPacketStatus()
	if err != nil {
		return 0, q, busErr("packet status", err)
	}
	q = QualityFromPacketStatus(ps)
	r.log.Debug("packet received", slog.Int("len", int(length)),
		slog.Int("rssi", int(q.RSSI)), slog.Int("snr", int(q.SNR)))
	if len(buf) < int(length) {
		return 0, q, io.ErrShortBuffer
	}
	err = r.regs.ReadBuffer(ptr, buf[:length])
	if err != nil {
		return 0, q, busErr("read buffer", err)
	}
	err = r.regs.SetStandby(sx126x.StandbyRC)
	if err != nil {
		return 0, q, busErr("standby", err)
	}
	return int(length), q, nil
}

// Sleep disables the antenna switch and puts the radio to sleep. With
// warmStart the configuration is retained, otherwise the next operation
// runs the bring-up sequence again.
func (r *Radio) Sleep(warmStart bool) error {
	err := r.sw.Disable()
	if err != nil {
		return busErr("switch disable", err)
	}
	err = r.regs.SetSleep(sx126x.SleepCfg{WarmStart: warmStart})
	if err != nil {
		return busErr("sleep", err)
	}
	r.cold = !warmStart
	r.log.Debug("sleep", slog.Bool("warm", warmStart))
	return nil
}

// configure runs the transceiver bring-up sequence.
func (r *Radio) configure(ci sx126x.CalibrateImage, pa sx126x.PaConfig, txp sx126x.TxParams) error {
	err := r.regs.SetRegulatorMode(r.cfg.RegMode)
	if err != nil {
		return busErr("regulator mode", err)
	}
	err = r.regs.SetStandby(sx126x.StandbyRC)
	if err != nil {
		return busErr("standby", err)
	}
	if r.cfg.Tcxo != nil {
		err = r.regs.SetTcxoMode(*r.cfg.Tcxo)
		if err != nil {
			return busErr("tcxo mode", err)
		}
	}
	if r.cfg.TrimHSE {
		err = r.regs.SetHSEInTrim(sx126x.HSETrimMin)
		if err != nil {
			return busErr("hse trim", err)
		}
	}
	err = r.regs.Calibrate(sx126x.CalibAll)
	if err != nil {
		return busErr("calibrate", err)
	}
	err = r.regs.CalibrateImage(ci)
	if err != nil {
		return busErr("calibrate image", err)
	}
	err = r.regs.SetPaConfig(pa)
	if err != nil {
		return busErr("pa config", err)
	}
	err = r.regs.SetTxParams(txp)
	if err != nil {
		return busErr("tx params", err)
	}
	err = r.regs.SetPaOCP(sx126x.Ocp140mA)
	if err != nil {
		return busErr("ocp", err)
	}
	err = r.regs.SetPacketType(sx126x.PacketTypeLoRa)
	if err != nil {
		return busErr("packet type", err)
	}
	err = r.regs.SetLoRaSyncWord(r.cfg.SyncWord)
	if err != nil {
		return busErr("sync word", err)
	}
	return nil
}

// irqWait arms the IRQ line and returns the first non-zero interrupt status,
// suspending until the line fires while the status is zero. The status read
// is cleared on the device before returning.
func (r *Radio) irqWait(ctx context.Context) (sx126x.Irq, error) {
	for {
		r.sig.Reset()
		r.irq.Unpend()
		r.irq.Enable()
		status, irq, err := r.regs.IrqStatus()
		if err != nil {
			r.irq.Disable()
			return 0, busErr("irq status", err)
		}
		if irq != 0 {
			r.irq.Disable()
			err = r.regs.ClearIrqStatus(irq)
			if err != nil {
				return 0, busErr("clear irq", err)
			}
			r.log.Debug("irq", slog.String("op", r.op), slog.String("status", status.String()),
				slog.String("irq", fmt.Sprintf("%#04x", uint16(irq))))
			return irq, nil
		}
		r.setState(StateSuspended)
		err = r.sig.Wait(ctx)
		if err != nil {
			r.irq.Disable()
			return 0, err
		}
		r.setState(StateResumed)
	}
}

func (r *Radio) begin(op string) {
	r.op = op
	r.setState(StateConfiguring)
}

func (r *Radio) end(err error) {
	if err != nil {
		r.setState(StateFailed)
	} else {
		r.setState(StateComplete)
	}
}

func (r *Radio) setState(s State) {
	r.state = s
	r.log.Debug("state", slog.String("op", r.op), slog.String("state", s.String()))
}

type noSwitch struct{}

func (noSwitch) EnableRx() error { return nil }
func (noSwitch) EnableTx() error { return nil }
func (noSwitch) Disable() error  { return nil }

/*
package sx126x implements the command interface of the SX126x LoRa
transceiver family. This includes the SX1261, SX1262 and the SUBGHZ
radio peripheral of the STM32WL which is an SX126x behind an internal
SPI bus.

Unlike the SX127x the SX126x is not register mapped. The host sends
opcodes followed by parameters and the device answers with a status byte
on every transaction. The BUSY line must be low before NSS is asserted.

The Dev type performs no buffering or state tracking. Sequencing a
transmission or reception is left to the caller.
*/
package sx126x

import (
	"encoding/binary"
	"errors"
	"fmt"
	"runtime"
	"time"

	"tinygo.org/x/drivers"
)

// PinOutput is a function that sets the logic-level of a pin to high (true)
// or low (false). It is used to abstract a GPIO pin interface.
type PinOutput func(level bool)

// PinInput is a function that returns the logic-level of a pin.
type PinInput func() bool

// MaxPayload is the size of the device data buffer.
const MaxPayload = 255

// Opcodes.
const (
	cmdSetSleep            = 0x84
	cmdSetStandby          = 0x80
	cmdSetTx               = 0x83
	cmdSetRx               = 0x82
	cmdSetRegulatorMode    = 0x96
	cmdCalibrate           = 0x89
	cmdCalibrateImage      = 0x98
	cmdSetPaConfig         = 0x95
	cmdSetTxParams         = 0x8e
	cmdSetDioIrqParams     = 0x08
	cmdGetIrqStatus        = 0x12
	cmdClearIrqStatus      = 0x02
	cmdSetRfFrequency      = 0x86
	cmdSetPacketType       = 0x8a
	cmdSetModulationParams = 0x8b
	cmdSetPacketParams     = 0x8c
	cmdSetBufferBaseAddr   = 0x8f
	cmdWriteBuffer         = 0x0e
	cmdReadBuffer          = 0x1e
	cmdWriteRegister       = 0x0d
	cmdReadRegister        = 0x1d
	cmdGetRxBufferStatus   = 0x13
	cmdGetPacketStatus     = 0x14
	cmdGetStatus           = 0xc0
	cmdSetTcxoMode         = 0x97
)

// Registers.
const (
	regLoRaSyncWordMSB = 0x0740
	regOCP             = 0x08e7
	regHSEInTrimXTA    = 0x0911 // XTB trim follows at 0x0912.
)

// HSETrimMin is the minimum HSE32 input capacitance trim of the STM32WL.
const HSETrimMin = 0x00

const busyTimeout = 100 * time.Millisecond

var (
	ErrNotDetected = errors.New("sx126x not detected")
	ErrBusyTimeout = errors.New("sx126x busy timeout")
	ErrBadStatus   = errors.New("sx126x command failed")
)

// Dev is an SX126x device on an SPI bus.
type Dev struct {
	spi  drivers.SPI
	nss  PinOutput
	busy PinInput
	rst  PinOutput
	// Scratch buffers sized for a full data buffer transfer.
	wbuf, rbuf [MaxPayload + 4]byte
}

// New returns a new SX126x device. It performs no I/O operations.
// nss and reset may be nil if the bus controls chip select or the device
// is reset by other means. busy may be nil if the bus already waits on BUSY.
func New(spi drivers.SPI, nss PinOutput, busy PinInput, reset PinOutput) *Dev {
	if nss == nil {
		nss = func(bool) {}
	}
	d := &Dev{spi: spi, nss: nss, busy: busy, rst: reset}
	d.nss(true) // Make sure CS is set to high or first transaction will fail.
	return d
}

// Reset pulses the reset line and waits for the device to become ready.
func (d *Dev) Reset() error {
	if d.rst != nil {
		d.rst(false)
		time.Sleep(time.Millisecond)
		d.rst(true)
		time.Sleep(10 * time.Millisecond)
	}
	return d.waitBusy()
}

// CheckConnection validates the device is connected and SPI is working.
func (d *Dev) CheckConnection() error {
	status, err := d.GetStatus()
	if err != nil {
		return fmt.Errorf("failed to read from SPI: %w", err)
	}
	if status == 0 || status == 0xff {
		return ErrNotDetected
	}
	return status.Err()
}

// GetStatus returns the chip status.
func (d *Dev) GetStatus() (Status, error) {
	return d.get(cmdGetStatus, nil)
}

// SetSleep puts the device in sleep mode.
func (d *Dev) SetSleep(cfg SleepCfg) error {
	return d.command(cmdSetSleep, cfg.byte())
}

// SetStandby puts the device in standby mode with the given clock.
func (d *Dev) SetStandby(clk StandbyClk) error {
	return d.command(cmdSetStandby, byte(clk))
}

// SetTx starts a transmission. The device returns to standby on TxDone or timeout.
func (d *Dev) SetTx(t Timeout) error {
	b := t.bytes()
	return d.command(cmdSetTx, b[:]...)
}

// SetRx starts a reception.
func (d *Dev) SetRx(t Timeout) error {
	b := t.bytes()
	return d.command(cmdSetRx, b[:]...)
}

// SetRegulatorMode selects the LDO or the SMPS regulator.
func (d *Dev) SetRegulatorMode(mode RegMode) error {
	return d.command(cmdSetRegulatorMode, byte(mode))
}

// SetTcxoMode enables the TCXO supply on DIO3.
func (d *Dev) SetTcxoMode(cfg TcxoMode) error {
	b := cfg.Timeout.bytes()
	return d.command(cmdSetTcxoMode, byte(cfg.Trim), b[0], b[1], b[2])
}

// SetHSEInTrim sets the HSE32 input capacitance trim of the STM32WL on
// both the XTA and XTB pins.
func (d *Dev) SetHSEInTrim(trim uint8) error {
	return d.WriteRegister(regHSEInTrimXTA, []byte{trim, trim})
}

// Calibrate runs calibration of the selected blocks.
func (d *Dev) Calibrate(blocks CalibParam) error {
	return d.command(cmdCalibrate, byte(blocks))
}

// CalibrateImage runs image rejection calibration for a frequency band.
func (d *Dev) CalibrateImage(ci CalibrateImage) error {
	return d.command(cmdCalibrateImage, ci.F1, ci.F2)
}

// SetPaConfig selects and configures the power amplifier.
func (d *Dev) SetPaConfig(cfg PaConfig) error {
	return d.command(cmdSetPaConfig, cfg.DutyCycle, cfg.HpMax, byte(cfg.PaSel), paLut)
}

// SetTxParams sets output power and PA ramp time.
func (d *Dev) SetTxParams(p TxParams) error {
	return d.command(cmdSetTxParams, byte(p.Power), byte(p.Ramp))
}

// SetPaOCP sets the over current protection limit.
func (d *Dev) SetPaOCP(ocp Ocp) error {
	return d.WriteRegister(regOCP, []byte{byte(ocp)})
}

// SetPacketType selects the modem.
func (d *Dev) SetPacketType(pt PacketType) error {
	return d.command(cmdSetPacketType, byte(pt))
}

// SetLoRaSyncWord writes the 16 bit LoRa sync word.
func (d *Dev) SetLoRaSyncWord(sw LoRaSyncWord) error {
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], uint16(sw))
	return d.WriteRegister(regLoRaSyncWordMSB, buf[:])
}

// SetRfFrequency sets the carrier frequency.
func (d *Dev) SetRfFrequency(f RfFreq) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], uint32(f))
	return d.command(cmdSetRfFrequency, buf[:]...)
}

// SetLoRaModParams sets LoRa modulation parameters.
func (d *Dev) SetLoRaModParams(p LoRaModParams) error {
	return d.command(cmdSetModulationParams, byte(p.SF), byte(p.BW), byte(p.CR), b2u8(p.LDRO))
}

// SetLoRaPacketParams sets LoRa packet parameters.
func (d *Dev) SetLoRaPacketParams(p LoRaPacketParams) error {
	return d.command(cmdSetPacketParams,
		byte(p.PreambleLen>>8), byte(p.PreambleLen),
		byte(p.Header), p.PayloadLen, b2u8(p.CRC), b2u8(p.InvertIQ))
}

// SetIrqCfg sets the IRQ mask and DIO routing.
func (d *Dev) SetIrqCfg(cfg CfgIrq) error {
	var buf [8]byte
	binary.BigEndian.PutUint16(buf[0:], uint16(cfg.IrqMask))
	binary.BigEndian.PutUint16(buf[2:], uint16(cfg.Dio1Mask))
	binary.BigEndian.PutUint16(buf[4:], uint16(cfg.Dio2Mask))
	binary.BigEndian.PutUint16(buf[6:], uint16(cfg.Dio3Mask))
	return d.command(cmdSetDioIrqParams, buf[:]...)
}

// IrqStatus returns the chip status and the pending IRQ bits.
func (d *Dev) IrqStatus() (Status, Irq, error) {
	var buf [2]byte
	status, err := d.get(cmdGetIrqStatus, buf[:])
	return status, Irq(binary.BigEndian.Uint16(buf[:])), err
}

// ClearIrqStatus clears the IRQ bits set in mask.
func (d *Dev) ClearIrqStatus(mask Irq) error {
	return d.command(cmdClearIrqStatus, byte(mask>>8), byte(mask))
}

// SetBufferBaseAddress sets the TX and RX base addresses in the data buffer.
func (d *Dev) SetBufferBaseAddress(tx, rx uint8) error {
	return d.command(cmdSetBufferBaseAddr, tx, rx)
}

// RxBufferStatus returns the length and start offset of the last packet received.
func (d *Dev) RxBufferStatus() (status Status, length, ptr uint8, err error) {
	var buf [2]byte
	status, err = d.get(cmdGetRxBufferStatus, buf[:])
	return status, buf[0], buf[1], err
}

// LoRaPacketStatus returns signal quality of the last packet received.
func (d *Dev) LoRaPacketStatus() (LoRaPacketStatus, error) {
	var buf [3]byte
	status, err := d.get(cmdGetPacketStatus, buf[:])
	return LoRaPacketStatus{
		Status:        status,
		RSSIPkt:       buf[0],
		SNRPkt:        int8(buf[1]),
		SignalRSSIPkt: buf[2],
	}, err
}

// WriteBuffer writes data to the data buffer starting at offset.
func (d *Dev) WriteBuffer(offset uint8, data []byte) error {
	if len(data) > MaxPayload {
		return errors.New("data exceeds device buffer")
	}
	d.wbuf[0] = cmdWriteBuffer
	d.wbuf[1] = offset
	n := copy(d.wbuf[2:], data)
	return d.tx(d.wbuf[:2+n], nil)
}

// ReadBuffer reads len(dst) bytes from the data buffer starting at offset.
func (d *Dev) ReadBuffer(offset uint8, dst []byte) error {
	if len(dst) > MaxPayload {
		return errors.New("read exceeds device buffer")
	}
	const hdr = 3 // opcode, offset, NOP.
	n := hdr + len(dst)
	d.wbuf[0] = cmdReadBuffer
	d.wbuf[1] = offset
	clear(d.wbuf[2:n])
	err := d.tx(d.wbuf[:n], d.rbuf[:n])
	copy(dst, d.rbuf[hdr:n])
	return err
}

// WriteRegister writes data to consecutive registers starting at addr.
func (d *Dev) WriteRegister(addr uint16, data []byte) error {
	if len(data) > MaxPayload {
		return errors.New("data too long")
	}
	d.wbuf[0] = cmdWriteRegister
	binary.BigEndian.PutUint16(d.wbuf[1:], addr)
	n := copy(d.wbuf[3:], data)
	return d.tx(d.wbuf[:3+n], nil)
}

// ReadRegister reads len(dst) consecutive registers starting at addr.
func (d *Dev) ReadRegister(addr uint16, dst []byte) error {
	if len(dst) > MaxPayload {
		return errors.New("read too long")
	}
	const hdr = 4 // opcode, address, NOP.
	n := hdr + len(dst)
	d.wbuf[0] = cmdReadRegister
	binary.BigEndian.PutUint16(d.wbuf[1:], addr)
	clear(d.wbuf[3:n])
	err := d.tx(d.wbuf[:n], d.rbuf[:n])
	copy(dst, d.rbuf[hdr:n])
	return err
}

// IO

// command writes an opcode followed by its parameters.
func (d *Dev) command(op byte, params ...byte) error {
	d.wbuf[0] = op
	n := copy(d.wbuf[1:], params)
	return d.tx(d.wbuf[:1+n], nil)
}

// get writes an opcode and reads back the status byte followed by len(dst) bytes.
func (d *Dev) get(op byte, dst []byte) (Status, error) {
	n := 2 + len(dst)
	d.wbuf[0] = op
	clear(d.wbuf[1:n])
	err := d.tx(d.wbuf[:n], d.rbuf[:n])
	if err != nil {
		return 0, err
	}
	copy(dst, d.rbuf[2:n])
	return Status(d.rbuf[1]), nil
}

func (d *Dev) tx(w, r []byte) error {
	err := d.waitBusy()
	if err != nil {
		return err
	}
	d.enable(true)
	err = d.spi.Tx(w, r)
	d.enable(false)
	return err
}

func (d *Dev) waitBusy() error {
	if d.busy == nil {
		return nil
	}
	start := time.Now()
	for d.busy() {
		if time.Since(start) > busyTimeout {
			return ErrBusyTimeout
		}
		runtime.Gosched()
	}
	return nil
}

//go:inline
func (d *Dev) enable(b bool) {
	d.nss(!b)
}

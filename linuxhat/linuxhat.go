// Package linuxhat opens an SX126x radio HAT attached to a Linux single
// board computer. The SPI bus is always driven through periph.io, GPIO
// lines either through periph.io or through the GPIO character device.
package linuxhat

import (
	"errors"
	"fmt"

	"github.com/soypat/subghz"
	"github.com/soypat/subghz/rfswitch"
	"github.com/soypat/subghz/sx126x"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// GPIO backends.
const (
	BackendPeriph = "periph"
	BackendGPIOD  = "gpiod"
)

// Unused marks an optional pin as not connected.
const Unused = -1

// Config describes how the HAT is wired. Pins are BCM GPIO numbers, which
// are also the line offsets on gpiochip0 of a Raspberry Pi.
type Config struct {
	Backend string
	// SPIPort is the periph.io SPI port name, "" selects the first port.
	SPIPort string
	SPIFreq physic.Frequency
	// Chip is the GPIO character device used by the gpiod backend.
	Chip string
	// NSS is Unused when the SPI controller drives chip select.
	NSS   int
	Reset int
	Busy  int
	DIO1  int
	RxEn  int
	TxEn  int
}

// DefaultConfig returns the wiring of the Waveshare SX1262 LoRa HAT.
func DefaultConfig() Config {
	return Config{
		Backend: BackendPeriph,
		SPIPort: "/dev/spidev0.0",
		SPIFreq: 2 * physic.MegaHertz,
		Chip:    "gpiochip0",
		NSS:     Unused,
		Reset:   18,
		Busy:    20,
		DIO1:    16,
		RxEn:    Unused,
		TxEn:    6,
	}
}

// Board holds the radio peripherals of an opened HAT.
type Board struct {
	Dev    *sx126x.Dev
	Switch rfswitch.Pins
	IRQ    *subghz.Line

	port    spi.PortCloser
	closers []func() error
}

// pinSet is what a GPIO backend provides.
type pinSet struct {
	nss, reset sx126x.PinOutput
	busy       sx126x.PinInput
	rxEn, txEn rfswitch.PinOutput
	closers    []func() error
}

// Open initializes the host drivers, the SPI bus and the GPIO lines of the HAT.
func Open(cfg Config) (*Board, error) {
	if cfg.Reset == Unused || cfg.Busy == Unused || cfg.DIO1 == Unused {
		return nil, errors.New("linuxhat: reset, busy and dio1 pins are required")
	}
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("linuxhat: failed to initialize periph.io host: %w", err)
	}
	port, err := spireg.Open(cfg.SPIPort)
	if err != nil {
		return nil, fmt.Errorf("linuxhat: failed to open SPI port: %w", err)
	}
	if cfg.SPIFreq == 0 {
		cfg.SPIFreq = 2 * physic.MegaHertz
	}
	conn, err := port.Connect(cfg.SPIFreq, spi.Mode0, 8)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("linuxhat: failed to create SPI connection: %w", err)
	}
	b := &Board{IRQ: &subghz.Line{}, port: port}
	var pins pinSet
	switch cfg.Backend {
	case "", BackendPeriph:
		pins, err = openPeriph(cfg, b.IRQ)
	case BackendGPIOD:
		pins, err = openGPIOD(cfg, b.IRQ)
	default:
		err = fmt.Errorf("unknown gpio backend %q", cfg.Backend)
	}
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("linuxhat: %w", err)
	}
	b.closers = pins.closers
	b.Dev = sx126x.New(spiBus{conn: conn}, pins.nss, pins.busy, pins.reset)
	b.Switch = rfswitch.Pins{RxEn: pins.rxEn, TxEn: pins.txEn}
	return b, nil
}

// NewRadio resets the transceiver and returns a radio with its interrupt
// line bound to the DIO1 pin of the board.
func (b *Board) NewRadio(cfg subghz.Config) (*subghz.Radio, error) {
	r, err := subghz.New(b.Dev, b.Switch, b.IRQ, cfg)
	if err != nil {
		return nil, err
	}
	b.IRQ.SetHandler(r.HandleInterrupt)
	return r, nil
}

// Close releases the GPIO lines and the SPI port.
func (b *Board) Close() error {
	var errs []error
	for _, c := range b.closers {
		errs = append(errs, c())
	}
	errs = append(errs, b.port.Close())
	return errors.Join(errs...)
}

// spiBus adapts a periph.io SPI connection to the tinygo drivers.SPI
// interface used by sx126x.
type spiBus struct {
	conn spi.Conn
}

func (b spiBus) Tx(w, r []byte) error {
	return b.conn.Tx(w, r)
}

func (b spiBus) Transfer(w byte) (byte, error) {
	var r [1]byte
	err := b.conn.Tx([]byte{w}, r[:])
	return r[0], err
}

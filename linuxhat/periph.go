package linuxhat

import (
	"fmt"
	"time"

	"github.com/soypat/subghz"
	"github.com/soypat/subghz/rfswitch"
	"github.com/soypat/subghz/sx126x"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
)

// edgePoll bounds how long the edge goroutine blocks before checking for
// shutdown.
const edgePoll = time.Second

func openPeriph(cfg Config, irq *subghz.Line) (pins pinSet, err error) {
	byNum := func(n int) (gpio.PinIO, error) {
		name := fmt.Sprintf("GPIO%d", n)
		p := gpioreg.ByName(name)
		if p == nil {
			return nil, fmt.Errorf("failed to open pin %s", name)
		}
		return p, nil
	}
	output := func(n int, initial gpio.Level) (gpio.PinIO, error) {
		p, err := byNum(n)
		if err != nil {
			return nil, err
		}
		return p, p.Out(initial)
	}

	p, err := output(cfg.Reset, gpio.High)
	if err != nil {
		return pins, err
	}
	pins.reset = periphPin(p)
	if cfg.NSS != Unused {
		p, err = output(cfg.NSS, gpio.High)
		if err != nil {
			return pins, err
		}
		pins.nss = periphPin(p)
	}
	if cfg.RxEn != Unused {
		p, err = output(cfg.RxEn, gpio.Low)
		if err != nil {
			return pins, err
		}
		pins.rxEn = periphSwitchPin(p)
	}
	if cfg.TxEn != Unused {
		p, err = output(cfg.TxEn, gpio.Low)
		if err != nil {
			return pins, err
		}
		pins.txEn = periphSwitchPin(p)
	}

	busy, err := byNum(cfg.Busy)
	if err != nil {
		return pins, err
	}
	if err = busy.In(gpio.PullNoChange, gpio.NoEdge); err != nil {
		return pins, err
	}
	pins.busy = func() bool { return busy.Read() == gpio.High }

	dio1, err := byNum(cfg.DIO1)
	if err != nil {
		return pins, err
	}
	if err = dio1.In(gpio.PullDown, gpio.RisingEdge); err != nil {
		return pins, fmt.Errorf("failed to enable edge detection on %s: %w", dio1, err)
	}
	pins.closers = append(pins.closers, watchEdges(dio1, irq))
	return pins, nil
}

func periphPin(p gpio.PinOut) sx126x.PinOutput {
	return func(level bool) { p.Out(gpio.Level(level)) }
}

func periphSwitchPin(p gpio.PinOut) rfswitch.PinOutput {
	return func(level bool) error { return p.Out(gpio.Level(level)) }
}

// watchEdges converts WaitForEdge into calls to irq.edge from a goroutine.
// The returned function stops the goroutine and disables edge detection.
func watchEdges(pin gpio.PinIn, irq *subghz.Line) (stop func() error) {
	quit := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if pin.WaitForEdge(edgePoll) {
				irq.Edge()
			}
			select {
			case <-quit:
				return
			default:
			}
		}
	}()
	return func() error {
		close(quit)
		<-done
		return pin.In(gpio.PullNoChange, gpio.NoEdge)
	}
}

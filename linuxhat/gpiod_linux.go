package linuxhat

import (
	"fmt"

	"github.com/soypat/subghz"
	"github.com/soypat/subghz/rfswitch"
	"github.com/soypat/subghz/sx126x"
	"github.com/warthog618/gpiod"
)

func openGPIOD(cfg Config, irq *subghz.Line) (pins pinSet, err error) {
	if cfg.Chip == "" {
		cfg.Chip = "gpiochip0"
	}
	var lines []*gpiod.Line
	defer func() {
		if err != nil {
			for _, l := range lines {
				l.Close()
			}
		}
	}()
	request := func(offset int, opts ...gpiod.LineReqOption) (*gpiod.Line, error) {
		l, err := gpiod.RequestLine(cfg.Chip, offset, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to request %s line %d: %w", cfg.Chip, offset, err)
		}
		lines = append(lines, l)
		return l, nil
	}

	l, err := request(cfg.Reset, gpiod.AsOutput(1))
	if err != nil {
		return pins, err
	}
	pins.reset = gpiodPin(l)
	if cfg.NSS != Unused {
		l, err = request(cfg.NSS, gpiod.AsOutput(1))
		if err != nil {
			return pins, err
		}
		pins.nss = gpiodPin(l)
	}
	if cfg.RxEn != Unused {
		l, err = request(cfg.RxEn, gpiod.AsOutput(0))
		if err != nil {
			return pins, err
		}
		pins.rxEn = gpiodSwitchPin(l)
	}
	if cfg.TxEn != Unused {
		l, err = request(cfg.TxEn, gpiod.AsOutput(0))
		if err != nil {
			return pins, err
		}
		pins.txEn = gpiodSwitchPin(l)
	}
	busy, err := request(cfg.Busy, gpiod.AsInput)
	if err != nil {
		return pins, err
	}
	pins.busy = func() bool {
		v, err := busy.Value()
		return err == nil && v == 1
	}
	_, err = request(cfg.DIO1, gpiod.AsInput, gpiod.WithRisingEdge,
		gpiod.WithEventHandler(func(gpiod.LineEvent) { irq.Edge() }))
	if err != nil {
		return pins, err
	}
	for _, l := range lines {
		pins.closers = append(pins.closers, l.Close)
	}
	return pins, nil
}

func gpiodPin(l *gpiod.Line) sx126x.PinOutput {
	return func(level bool) { l.SetValue(level2int(level)) }
}

func gpiodSwitchPin(l *gpiod.Line) rfswitch.PinOutput {
	return func(level bool) error { return l.SetValue(level2int(level)) }
}

func level2int(level bool) int {
	if level {
		return 1
	}
	return 0
}

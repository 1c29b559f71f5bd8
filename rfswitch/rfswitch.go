// Package rfswitch implements antenna switches for the RF front end of
// sub-GHz radio boards.
package rfswitch

// PinOutput sets the level of a GPIO output.
type PinOutput func(level bool) error

// Noop is the switch of boards without external RF path selection.
type Noop struct{}

func (Noop) EnableRx() error { return nil }
func (Noop) EnableTx() error { return nil }
func (Noop) Disable() error  { return nil }

// Pins is a switch with independent receive and transmit enable lines, as
// found on most SX1262 modules (RXEN/TXEN). Either line may be nil.
type Pins struct {
	RxEn PinOutput
	TxEn PinOutput
}

// EnableRx drives TXEN low before driving RXEN high.
func (p Pins) EnableRx() error {
	err := set(p.TxEn, false)
	if err != nil {
		return err
	}
	return set(p.RxEn, true)
}

// EnableTx drives RXEN low before driving TXEN high.
func (p Pins) EnableTx() error {
	err := set(p.RxEn, false)
	if err != nil {
		return err
	}
	return set(p.TxEn, true)
}

func (p Pins) Disable() error {
	err := set(p.RxEn, false)
	if err != nil {
		return err
	}
	return set(p.TxEn, false)
}

// ThreePin is the FE_CTRL1..3 switch of STM32WL reference boards.
//
//	         CTRL1 CTRL2 CTRL3
//	off        0     0     0
//	rx         1     0     1
//	tx lp      1     1     1
//	tx hp      0     1     1
type ThreePin struct {
	Ctrl1, Ctrl2, Ctrl3 PinOutput
	// HighPower selects the high power PA path on transmit.
	HighPower bool
}

func (t ThreePin) EnableRx() error { return t.write(true, false, true) }

func (t ThreePin) EnableTx() error {
	if t.HighPower {
		return t.write(false, true, true)
	}
	return t.write(true, true, true)
}

func (t ThreePin) Disable() error { return t.write(false, false, false) }

// write sets CTRL3 last so the switch is only enabled once the path is set.
func (t ThreePin) write(c1, c2, c3 bool) error {
	err := set(t.Ctrl1, c1)
	if err != nil {
		return err
	}
	err = set(t.Ctrl2, c2)
	if err != nil {
		return err
	}
	return set(t.Ctrl3, c3)
}

func set(pin PinOutput, level bool) error {
	if pin == nil {
		return nil
	}
	return pin(level)
}

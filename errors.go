package subghz

import (
	"errors"
	"fmt"
)

var (
	// ErrBus is returned when the register interface or antenna switch fails.
	// The underlying error is wrapped as well.
	ErrBus = errors.New("bus error")
	// ErrTimeout is returned when the radio reports its operation timed out.
	ErrTimeout          = errors.New("radio timeout")
	ErrHeader           = errors.New("lora header error")
	ErrGeneric          = errors.New("radio error")
	ErrInvalidPower     = errors.New("power level must be in 0..16")
	ErrPayloadTooLarge  = errors.New("payload exceeds 255 bytes")
	ErrBadConfig        = errors.New("bad rf config")
	errNilIRQLine       = errors.New("nil irq line")
	errNilRegisterIface = errors.New("nil register interface")
)

func busErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrBus, op, err)
}

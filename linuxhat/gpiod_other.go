//go:build !linux

package linuxhat

import (
	"errors"

	"github.com/soypat/subghz"
)

func openGPIOD(Config, *subghz.Line) (pinSet, error) {
	return pinSet{}, errors.New("gpiod backend requires linux")
}

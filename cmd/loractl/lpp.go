package main

import (
	"fmt"
	"strconv"
	"strings"

	cayennelpp "github.com/TheThingsNetwork/go-cayenne-lib"
)

// encodeLPP encodes a comma separated list of kind:channel=value fields as
// a Cayenne LPP payload, for example "temp:1=21.5,hum:2=45". Supported kinds
// are temp (°C), hum (%RH), analog and digital.
func encodeLPP(fields string) ([]byte, error) {
	encoder := cayennelpp.NewEncoder()
	for _, field := range strings.Split(fields, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(field), "=")
		if !ok {
			return nil, fmt.Errorf("lpp field %q: missing value", field)
		}
		kind, ch, ok := strings.Cut(key, ":")
		if !ok {
			return nil, fmt.Errorf("lpp field %q: missing channel", field)
		}
		channel, err := strconv.ParseUint(ch, 10, 8)
		if err != nil {
			return nil, fmt.Errorf("lpp field %q: bad channel: %w", field, err)
		}
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("lpp field %q: bad value: %w", field, err)
		}
		switch kind {
		case "temp":
			encoder.AddTemperature(uint8(channel), v)
		case "hum":
			encoder.AddRelativeHumidity(uint8(channel), v)
		case "analog":
			encoder.AddAnalogInput(uint8(channel), v)
		case "digital":
			encoder.AddDigitalInput(uint8(channel), uint8(v))
		default:
			return nil, fmt.Errorf("lpp field %q: unknown kind %q", field, kind)
		}
	}
	return encoder.Bytes(), nil
}

// Command loractl transmits and receives LoRa packets with an SX126x HAT
// attached to a Linux single board computer.
//
// Usage:
//
//	loractl [flags] tx <payload>
//	loractl [flags] rx
//	loractl [flags] sleep
//	loractl [flags] airtime <length>
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/soypat/subghz"
	"github.com/soypat/subghz/linuxhat"
)

var config = NewDefaultConfig()

func init() {
	flag.StringVar(&config.Region, "region", DefaultRegion, "Country code selecting frequency and spread factor defaults")
	flag.UintVar(&config.Freq, "freq", 0, "Frequency in Hz, overrides the region frequency")
	flag.UintVar(&config.SF, "sf", 0, "Spread factor 7..12, overrides the region spread factor")
	flag.UintVar(&config.BW, "bw", 0, "Bandwidth in kHz (125, 250 or 500)")
	flag.UintVar(&config.CR, "cr", 0, "Coding rate denominator 5..8 (4/5..4/8)")
	flag.IntVar(&config.Power, "power", DefaultPower, "Transmit power level 0..16")
	flag.DurationVar(&config.Window, "window", DefaultWindow, "Receive window, 0 waits forever")
	flag.IntVar(&config.Count, "count", 1, "Number of packets to send or receive, 0 is unlimited")
	flag.DurationVar(&config.Interval, "interval", DefaultInterval, "Time between transmissions")
	flag.BoolVar(&config.Private, "private", false, "Use the private network sync word")
	flag.BoolVar(&config.TCXO, "tcxo", true, "Board has a TCXO powered from DIO3")
	flag.StringVar(&config.LogLevel, "loglevel", DefaultLogLevel, "Log level (debug, info, warn, error)")
	flag.BoolVar(&config.LPP, "lpp", false, "Encode the tx payload as Cayenne LPP fields (temp:1=21.5,hum:2=45)")
	flag.StringVar(&config.MQTTBroker, "mqtt", "", "MQTT broker URL to forward received packets to")
	flag.StringVar(&config.MQTTTopic, "topic", DefaultTopic, "MQTT topic for received packets")
	flag.StringVar(&config.Hat.Backend, "gpio", linuxhat.BackendPeriph, "GPIO backend (periph or gpiod)")
	flag.StringVar(&config.Hat.SPIPort, "spi", config.Hat.SPIPort, "SPI port")
	flag.StringVar(&config.Hat.Chip, "chip", config.Hat.Chip, "GPIO chip for the gpiod backend")
}

func main() {
	flag.Parse()
	level, err := parseLevel(config.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := run(ctx, logger, flag.Args()); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("loractl failed", slog.String("err", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, args []string) error {
	if len(args) == 0 {
		return errors.New("missing command, expected tx, rx, sleep or airtime")
	}
	rf, err := config.RfConfig()
	if err != nil {
		return err
	}
	if args[0] == "airtime" {
		return airtime(rf, args[1:])
	}

	board, err := linuxhat.Open(config.Hat)
	if err != nil {
		return err
	}
	defer board.Close()
	radio, err := board.NewRadio(config.RadioConfig(logger))
	if err != nil {
		return err
	}
	logger.Info("radio ready", slog.Int64("freq", rf.Frequency.Hertz()),
		slog.Int("sf", int(rf.SpreadFactor)), slog.Int64("bw", rf.Bandwidth.Hertz()))

	switch args[0] {
	case "tx":
		if len(args) < 2 {
			return errors.New("tx requires a payload")
		}
		payload := []byte(args[1])
		if config.LPP {
			payload, err = encodeLPP(args[1])
			if err != nil {
				return err
			}
		}
		err = transmit(ctx, logger, radio, rf, payload)
	case "rx":
		var fwd *forwarder
		if config.MQTTBroker != "" {
			fwd, err = newForwarder(config.MQTTBroker, config.MQTTTopic, "loractl")
			if err != nil {
				return err
			}
			defer fwd.close()
		}
		err = receive(ctx, logger, radio, rf, fwd)
	case "sleep":
		return radio.Sleep(true)
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
	if serr := radio.Sleep(false); serr != nil {
		logger.Warn("failed to put radio to sleep", slog.String("err", serr.Error()))
	}
	return err
}

func transmit(ctx context.Context, logger *slog.Logger, radio *subghz.Radio, rf subghz.RfConfig, payload []byte) error {
	tx := subghz.TxConfig{Rf: rf, Power: config.Power}
	for i := 0; config.Count == 0 || i < config.Count; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(config.Interval):
			}
		}
		start := time.Now()
		_, err := radio.Transmit(ctx, tx, payload)
		if err != nil {
			return err
		}
		logger.Info("sent", slog.Int("len", len(payload)), slog.Duration("took", time.Since(start)),
			slog.Duration("airtime", rf.TimeOnAir(len(payload))))
	}
	return nil
}

func receive(ctx context.Context, logger *slog.Logger, radio *subghz.Radio, rf subghz.RfConfig, fwd *forwarder) error {
	buf := make([]byte, subghz.MaxPayload)
	for i := 0; config.Count == 0 || i < config.Count; {
		n, q, err := radio.Receive(ctx, rf, config.Window, buf)
		switch {
		case errors.Is(err, subghz.ErrTimeout):
			logger.Debug("receive window elapsed")
			continue
		case errors.Is(err, subghz.ErrHeader), errors.Is(err, subghz.ErrGeneric):
			logger.Warn("bad packet", slog.String("err", err.Error()))
			continue
		case err != nil:
			return err
		}
		i++
		logger.Info("received", slog.Int("len", n), slog.Int("rssi", int(q.RSSI)), slog.Int("snr", int(q.SNR)))
		fmt.Printf("%q\n", buf[:n])
		if fwd == nil {
			continue
		}
		if err := fwd.publish(newPacketMessage(rf, q, buf[:n])); err != nil {
			logger.Warn("failed to forward packet", slog.String("err", err.Error()))
		}
	}
	return nil
}

func airtime(rf subghz.RfConfig, args []string) error {
	if len(args) == 0 {
		return errors.New("airtime requires a payload length")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 0 || n > subghz.MaxPayload {
		return fmt.Errorf("invalid payload length %q", args[0])
	}
	fmt.Println(rf.TimeOnAir(n))
	return nil
}

package rfswitch

import (
	"errors"
	"strings"
	"testing"
)

type pinLog []string

func (l *pinLog) pin(name string) PinOutput {
	return func(level bool) error {
		s := name + "=0"
		if level {
			s = name + "=1"
		}
		*l = append(*l, s)
		return nil
	}
}

func TestPins(t *testing.T) {
	var log pinLog
	sw := Pins{RxEn: log.pin("rx"), TxEn: log.pin("tx")}
	for _, tt := range []struct {
		name string
		do   func() error
		want string
	}{
		{"rx", sw.EnableRx, "tx=0 rx=1"},
		{"tx", sw.EnableTx, "rx=0 tx=1"},
		{"off", sw.Disable, "rx=0 tx=0"},
	} {
		log = log[:0]
		if err := tt.do(); err != nil {
			t.Fatal(err)
		}
		if got := strings.Join(log, " "); got != tt.want {
			t.Errorf("%s: got %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestPinsNilLine(t *testing.T) {
	var log pinLog
	sw := Pins{TxEn: log.pin("tx")}
	if err := sw.EnableRx(); err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(log, " "); got != "tx=0" {
		t.Errorf("got %q", got)
	}
}

func TestThreePin(t *testing.T) {
	var log pinLog
	sw := ThreePin{Ctrl1: log.pin("c1"), Ctrl2: log.pin("c2"), Ctrl3: log.pin("c3")}
	hp := sw
	hp.HighPower = true
	for _, tt := range []struct {
		name string
		do   func() error
		want string
	}{
		{"off", sw.Disable, "c1=0 c2=0 c3=0"},
		{"rx", sw.EnableRx, "c1=1 c2=0 c3=1"},
		{"tx lp", sw.EnableTx, "c1=1 c2=1 c3=1"},
		{"tx hp", hp.EnableTx, "c1=0 c2=1 c3=1"},
	} {
		log = log[:0]
		if err := tt.do(); err != nil {
			t.Fatal(err)
		}
		if got := strings.Join(log, " "); got != tt.want {
			t.Errorf("%s: got %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestPinError(t *testing.T) {
	errPin := errors.New("gpio")
	var log pinLog
	sw := Pins{RxEn: func(bool) error { return errPin }, TxEn: log.pin("tx")}
	if err := sw.EnableTx(); !errors.Is(err, errPin) {
		t.Errorf("got %v", err)
	}
	if len(log) != 0 {
		t.Errorf("tx driven after rx failure: %v", log)
	}
}

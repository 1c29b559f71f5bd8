package main

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/soypat/subghz"
)

func TestPacketMessage(t *testing.T) {
	rf := subghz.RfConfig{Frequency: subghz.Freq868_1M, SpreadFactor: subghz.SF9, Bandwidth: subghz.BW125k, CodingRate: subghz.CR4_5}
	payload := []byte("hello")
	msg := newPacketMessage(rf, subghz.RxQuality{RSSI: -80, SNR: 7}, payload)
	payload[0] = 'j'
	if string(msg.Payload) != "hello" {
		t.Errorf("payload aliased: %q", msg.Payload)
	}

	b, err := json.Marshal(msg)
	if err != nil {
		t.Fatal(err)
	}
	var doc map[string]any
	if err := json.Unmarshal(b, &doc); err != nil {
		t.Fatal(err)
	}
	if len(doc) != 7 {
		t.Errorf("got keys %v", doc)
	}
	for key, want := range map[string]any{
		"frequency": 868.1e6,
		"sf":        9.0,
		"bandwidth": 125e3,
		"rssi":      -80.0,
		"snr":       7.0,
		"payload":   "aGVsbG8=",
	} {
		if doc[key] != want {
			t.Errorf("%s = %v, want %v", key, doc[key], want)
		}
	}
	ts, ok := doc["time"].(string)
	if !ok {
		t.Fatalf("time = %v", doc["time"])
	}
	if _, err := time.Parse(time.RFC3339Nano, ts); err != nil {
		t.Error(err)
	}
}

type fakeToken struct {
	mqtt.Token
	err error
}

func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Error() error                   { return t.err }

type fakeClient struct {
	mqtt.Client
	topic    string
	qos      byte
	retained bool
	payload  []byte
	err      error
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.topic = topic
	c.qos = qos
	c.retained = retained
	c.payload, _ = payload.([]byte)
	return &fakeToken{err: c.err}
}

func TestPublish(t *testing.T) {
	client := &fakeClient{}
	f := &forwarder{client: client, topic: DefaultTopic}
	msg := packetMessage{Frequency: 915_200_000, SF: 7, Payload: []byte{1, 2}}
	if err := f.publish(msg); err != nil {
		t.Fatal(err)
	}
	if client.topic != DefaultTopic || client.qos != 1 || client.retained {
		t.Errorf("published to %q qos=%d retained=%v", client.topic, client.qos, client.retained)
	}
	var got packetMessage
	if err := json.Unmarshal(client.payload, &got); err != nil {
		t.Fatal(err)
	}
	if got.Frequency != msg.Frequency || got.SF != msg.SF || string(got.Payload) != string(msg.Payload) {
		t.Errorf("got %+v", got)
	}

	client.err = errors.New("not connected")
	if err := f.publish(msg); err != client.err {
		t.Errorf("got %v", err)
	}
}

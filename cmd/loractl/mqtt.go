package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/soypat/subghz"
)

const mqttTimeout = 5 * time.Second

// packetMessage is the JSON document published for every received packet.
type packetMessage struct {
	Time      time.Time `json:"time"`
	Frequency int64     `json:"frequency"`
	SF        uint8     `json:"sf"`
	Bandwidth int64     `json:"bandwidth"`
	RSSI      int16     `json:"rssi"`
	SNR       int8      `json:"snr"`
	Payload   []byte    `json:"payload"`
}

func newPacketMessage(rf subghz.RfConfig, q subghz.RxQuality, payload []byte) packetMessage {
	return packetMessage{
		Time:      time.Now().UTC(),
		Frequency: rf.Frequency.Hertz(),
		SF:        uint8(rf.SpreadFactor),
		Bandwidth: rf.Bandwidth.Hertz(),
		RSSI:      q.RSSI,
		SNR:       q.SNR,
		Payload:   append([]byte(nil), payload...),
	}
}

// forwarder publishes received packets to an MQTT broker.
type forwarder struct {
	client mqtt.Client
	topic  string
}

func newForwarder(broker, topic, clientID string) (*forwarder, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientID)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(time.Second)
	opts.SetWriteTimeout(time.Second)
	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(mqttTimeout) {
		return nil, fmt.Errorf("mqtt: timed out connecting to %s", broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt: %w", err)
	}
	return &forwarder{client: client, topic: topic}, nil
}

func (f *forwarder) publish(msg packetMessage) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	token := f.client.Publish(f.topic, 1, false, b)
	if !token.WaitTimeout(mqttTimeout) {
		return errors.New("mqtt: publish timed out")
	}
	return token.Error()
}

func (f *forwarder) close() {
	f.client.Disconnect(250)
}

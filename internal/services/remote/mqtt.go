package remote

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
)

// MQTTConfig holds the MQTT subscriber settings.
type MQTTConfig struct {
	URL      string
	Topic    string
	ClientID string
	Username string
	Password string
}

// Subscriber receives pixel writes from an MQTT topic. Payloads use the same
// records as the UDP channel.
type Subscriber struct {
	cfg    MQTTConfig
	target Submitter
	client mqtt.Client

	messages atomic.Uint64
	dropped  atomic.Uint64
}

// NewSubscriber creates a subscriber; nothing connects until Run.
func NewSubscriber(cfg MQTTConfig, target Submitter) *Subscriber {
	s := &Subscriber{cfg: cfg, target: target}

	options := mqtt.NewClientOptions().
		AddBroker(cfg.URL).
		SetClientID(cfg.ClientID).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetKeepAlive(30 * time.Second).
		SetPingTimeout(5 * time.Second).
		SetAutoReconnect(true).
		SetOnConnectHandler(s.handleOnConnect).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.Printf("⚠️  MQTT connection lost: %v", err)
		})
	s.client = mqtt.NewClient(options)
	return s
}

// Run connects and keeps the subscription until ctx is done.
func (s *Subscriber) Run(ctx context.Context) error {
	token := s.client.Connect()
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return errors.Wrapf(err, "failed to connect to MQTT broker %s", s.cfg.URL)
		}
	case <-ctx.Done():
		return ctx.Err()
	}

	<-ctx.Done()
	s.client.Disconnect(250)
	log.Printf("📡 MQTT subscriber disconnected")
	return ctx.Err()
}

// subscribe again on every (re)connect
func (s *Subscriber) handleOnConnect(client mqtt.Client) {
	log.Printf("📡 MQTT connected, subscribing to %s", s.cfg.Topic)
	token := client.Subscribe(s.cfg.Topic, 0, s.handleMessage)
	go func() {
		if token.Wait() && token.Error() != nil {
			log.Printf("⚠️  MQTT subscribe to %s failed: %v", s.cfg.Topic, token.Error())
		}
	}()
}

func (s *Subscriber) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	writes := Decode(msg.Payload())
	s.messages.Add(1)
	if dropped := submitAll(s.target, writes); dropped > 0 {
		s.dropped.Add(uint64(dropped))
	}
}

// Stats returns the number of messages received and records dropped.
func (s *Subscriber) Stats() (messages, dropped uint64) {
	return s.messages.Load(), s.dropped.Load()
}

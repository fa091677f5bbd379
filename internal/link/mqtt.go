package link

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const disconnectQuiesceMs = 250

// MQTTConfig configures the broker connection and topic layout.
type MQTTConfig struct {
	Broker      string
	ClientID    string
	TopicPrefix string
	QoS         byte
	Username    string
	Password    string
}

// Topics derived from the prefix.
func (c MQTTConfig) TopicIR() string      { return c.TopicPrefix + "/ir" }
func (c MQTTConfig) TopicAccel() string   { return c.TopicPrefix + "/accel" }
func (c MQTTConfig) TopicPointer() string { return c.TopicPrefix + "/pointer" }
func (c MQTTConfig) TopicGesture() string { return c.TopicPrefix + "/gesture" }

// MQTT receives blob frames and acceleration samples from a broker and
// publishes pointer and gesture events back to it.
type MQTT struct {
	cfg    MQTTConfig
	client mqtt.Client
}

// NewMQTT creates an MQTT link. Call Connect before Subscribe or Publish.
func NewMQTT(cfg MQTTConfig) *MQTT {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetMaxReconnectInterval(10 * time.Second).
		SetOrderMatters(true)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username).SetPassword(cfg.Password)
	}

	return NewMQTTWithClient(cfg, mqtt.NewClient(opts))
}

// NewMQTTWithClient creates an MQTT link over an existing client.
func NewMQTTWithClient(cfg MQTTConfig, client mqtt.Client) *MQTT {
	return &MQTT{cfg: cfg, client: client}
}

// Connect connects to the broker.
func (m *MQTT) Connect() error {
	if token := m.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("connect to %s: %w", m.cfg.Broker, token.Error())
	}
	log.Printf("link: connected to MQTT broker at %s", m.cfg.Broker)
	return nil
}

// Subscribe routes the IR and acceleration topics into sink. With ordered
// delivery, sink methods are called from a single paho goroutine.
func (m *MQTT) Subscribe(sink Sink) error {
	irToken := m.client.Subscribe(m.cfg.TopicIR(), m.cfg.QoS, func(_ mqtt.Client, msg mqtt.Message) {
		blobs, err := decodeBlobs(msg.Payload())
		if err != nil {
			log.Printf("link: %s: %v", msg.Topic(), err)
			return
		}
		sink.HandleBlobs(blobs)
	})
	irToken.Wait()
	if irToken.Error() != nil {
		return fmt.Errorf("subscribe %s: %w", m.cfg.TopicIR(), irToken.Error())
	}
	log.Printf("link: subscribed to %s", m.cfg.TopicIR())

	accelToken := m.client.Subscribe(m.cfg.TopicAccel(), m.cfg.QoS, func(_ mqtt.Client, msg mqtt.Message) {
		a, err := decodeAccel(msg.Payload())
		if err != nil {
			log.Printf("link: %s: %v", msg.Topic(), err)
			return
		}
		sink.HandleAccel(a.X, a.Y, a.Z)
	})
	accelToken.Wait()
	if accelToken.Error() != nil {
		return fmt.Errorf("subscribe %s: %w", m.cfg.TopicAccel(), accelToken.Error())
	}
	log.Printf("link: subscribed to %s", m.cfg.TopicAccel())

	return nil
}

// PublishPointer implements Publisher.
func (m *MQTT) PublishPointer(e PointerEvent) error {
	return m.publish(m.cfg.TopicPointer(), false, e)
}

// PublishGesture implements Publisher.
func (m *MQTT) PublishGesture(e GestureEvent) error {
	return m.publish(m.cfg.TopicGesture(), false, e)
}

func (m *MQTT) publish(topic string, retained bool, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", topic, err)
	}

	if token := m.client.Publish(topic, m.cfg.QoS, retained, payload); token.Wait() && token.Error() != nil {
		return fmt.Errorf("publish %s: %w", topic, token.Error())
	}
	return nil
}

// Close disconnects from the broker.
func (m *MQTT) Close() {
	if m.client.IsConnected() {
		m.client.Disconnect(disconnectQuiesceMs)
	}
}

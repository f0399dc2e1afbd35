package notify

import (
	"context"
	"encoding/json"
	"fmt"

	paho "github.com/eclipse/paho.mqtt.golang"
)

type mqttPublisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

// MQTT publishes alerts as JSON under <topicRoot>/alerts.
type MQTT struct {
	topicRoot string
	opts      *paho.ClientOptions
	client    paho.Client
	publisher mqttPublisher
}

func NewMQTT(brokerURL string, clientID string, topicRoot string) *MQTT {
	opts := paho.NewClientOptions().AddBroker(brokerURL)
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)

	return &MQTT{
		topicRoot: topicRoot,
		opts:      opts,
	}
}

func (m *MQTT) Connect() error {
	m.client = paho.NewClient(m.opts)
	token := m.client.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("connect error: %w", err)
	}
	m.publisher = m.client
	return nil
}

func (m *MQTT) Notify(ctx context.Context, message string) error {
	if m.publisher == nil {
		return fmt.Errorf("client not connected")
	}

	payload, err := json.Marshal(newAlert(message))
	if err != nil {
		return fmt.Errorf("unable to encode payload: %w", err)
	}

	token := m.publisher.Publish(m.topicRoot+"/alerts", 1, false, payload)
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *MQTT) Close() error {
	if m.client != nil {
		m.client.Disconnect(250)
	}
	return nil
}

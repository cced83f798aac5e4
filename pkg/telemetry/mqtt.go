package telemetry

import (
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var ErrTimeout = errors.New("MQTT publish timed out")

type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTT publishes each written line, without its line ending, as one message.
type MQTT struct {
	client  publisher
	topic   string
	timeout time.Duration
	close   func()
}

func DialMQTT(broker, clientID, topic string) (*MQTT, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.OnConnect = func(mqtt.Client) {
		log.Info().Str("broker", broker).Msg("Connected to MQTT broker")
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Warn().Err(err).Msg("MQTT connection lost")
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(5 * time.Second) {
		return nil, errors.Errorf("timed out connecting to %s", broker)
	}
	if err := token.Error(); err != nil {
		return nil, errors.Wrapf(err, "failed to connect to %s", broker)
	}
	return &MQTT{
		client:  client,
		topic:   topic,
		timeout: 2 * time.Second,
		close:   func() { client.Disconnect(250) },
	}, nil
}

func (m *MQTT) Write(p []byte) (int, error) {
	payload := strings.TrimRight(string(p), "\r\n")
	token := m.client.Publish(m.topic, 1, false, payload)
	if !token.WaitTimeout(m.timeout) {
		return 0, ErrTimeout
	}
	if err := token.Error(); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (m *MQTT) WriteLine(text string) error {
	_, err := m.Write([]byte(text))
	return err
}

func (m *MQTT) Close() error {
	if m.close != nil {
		m.close()
	}
	return nil
}

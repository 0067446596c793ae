package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/pitwall/internal/config"
	"github.com/yourusername/pitwall/internal/metrics"
	"github.com/yourusername/pitwall/internal/models"
)

const defaultMQTTTimeout = 5 * time.Second

// mqttClient is the subset of the paho client used for publishing
type mqttClient interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTTPublisher publishes predictions as retained messages, so a new subscriber
// immediately receives the latest one.
type MQTTPublisher struct {
	client  mqttClient
	topic   string
	qos     byte
	timeout time.Duration
	logger  *logrus.Entry
}

// NewMQTTPublisher connects to the configured broker
func NewMQTTPublisher(cfg config.MQTTConfig, logger *logrus.Logger) (*MQTTPublisher, error) {
	log := logger.WithFields(logrus.Fields{"component": "mqtt", "broker": cfg.BrokerURL})

	clientID := cfg.ClientID
	if clientID == "" {
		clientID = fmt.Sprintf("pitwall-%d", time.Now().Unix())
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.BrokerURL)
	opts.SetClientID(clientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(defaultMQTTTimeout)
	opts.OnConnect = func(mqtt.Client) {
		log.Info("Connected to MQTT broker")
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.WithError(err).Warn("MQTT connection lost")
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(defaultMQTTTimeout) {
		return nil, errors.New("mqtt connect timed out")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect failed: %w", err)
	}

	return newMQTTPublisher(client, cfg.Topic, byte(cfg.QoS), log), nil
}

func newMQTTPublisher(client mqttClient, topic string, qos byte, log *logrus.Entry) *MQTTPublisher {
	if topic == "" {
		topic = "pitwall/predictions"
	}
	return &MQTTPublisher{
		client:  client,
		topic:   topic,
		qos:     qos,
		timeout: defaultMQTTTimeout,
		logger:  log,
	}
}

// Publish implements Publisher
func (p *MQTTPublisher) Publish(_ context.Context, result *models.PredictionResult) error {
	err := p.publish(result)
	metrics.RecordNotification(channelMQTT, err)
	return err
}

func (p *MQTTPublisher) publish(result *models.PredictionResult) error {
	payload, err := encode(result)
	if err != nil {
		return err
	}

	token := p.client.Publish(p.topic, p.qos, true, payload)
	if !token.WaitTimeout(p.timeout) {
		return fmt.Errorf("mqtt publish to %s timed out", p.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt publish to %s failed: %w", p.topic, err)
	}
	return nil
}

// Close disconnects from the broker
func (p *MQTTPublisher) Close() {
	p.client.Disconnect(250)
}

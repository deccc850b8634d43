package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/panoptes-nms/panoptes-server/internal/config"
	"github.com/panoptes-nms/panoptes-server/internal/models"
)

// Forwarder fans monitor events out to NATS, an MQTT broker and an HTTP
// webhook as configured. Publish never blocks the caller and never propagates
// delivery failures; the event log in storage is the durable record.
type Forwarder struct {
	nc            *nats.Conn // optional
	subjectPrefix string

	cfg config.ForwarderConfig

	mqttClient mqtt.Client
	httpClient *http.Client
}

// NewForwarder creates a forwarder. nc may be nil when NATS is not
// configured; MQTT and HTTP targets are driven by cfg.
func NewForwarder(nc *nats.Conn, subjectPrefix string, cfg config.ForwarderConfig) *Forwarder {
	f := &Forwarder{
		nc:            nc,
		subjectPrefix: subjectPrefix,
		cfg:           cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	if cfg.MQTT.Enabled {
		if err := f.connectMQTT(); err != nil {
			log.Error().Err(err).Str("broker", cfg.MQTT.Broker).Msg("MQTT forwarder not connected")
		}
	}

	return f
}

// Publish fans one event out to every configured target.
func (f *Forwarder) Publish(event *models.EventLog) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal event")
		return
	}

	if f.nc != nil {
		go f.forwardToNATS(event, data)
	}
	if f.cfg.MQTT.Enabled && f.mqttClient != nil {
		go f.forwardToMQTT(event, data)
	}
	if f.cfg.HTTP.Enabled {
		go f.forwardToHTTP(event, data)
	}
}

// Close disconnects the MQTT client.
func (f *Forwarder) Close() {
	if f.mqttClient != nil && f.mqttClient.IsConnected() {
		f.mqttClient.Disconnect(250)
		log.Info().Msg("MQTT forwarder disconnected")
	}
}

// subject builds the NATS subject for an event:
// <prefix>.<user>.location.<location>.<type>
func (f *Forwarder) subject(event *models.EventLog) string {
	user := "server"
	if event.UserID != nil {
		user = event.UserID.String()
	}
	location := event.LocationID
	if location == "" {
		location = "none"
	}
	return fmt.Sprintf("%s.%s.location.%s.%s",
		f.subjectPrefix, user, location, strings.ToLower(string(event.Type)))
}

func (f *Forwarder) forwardToNATS(event *models.EventLog, data []byte) {
	subject := f.subject(event)
	if err := f.nc.Publish(subject, data); err != nil {
		log.Error().
			Err(err).
			Str("subject", subject).
			Msg("Failed to publish event to NATS")
		return
	}
	log.Debug().
		Str("subject", subject).
		Str("type", string(event.Type)).
		Msg("Event published to NATS")
}

func (f *Forwarder) forwardToMQTT(event *models.EventLog, data []byte) {
	topic := f.cfg.MQTT.TopicPattern
	if topic == "" {
		topic = "monitor/{location_id}/{type}"
	}
	topic = strings.ReplaceAll(topic, "{location_id}", event.LocationID)
	topic = strings.ReplaceAll(topic, "{customer_id}", event.CustomerID)
	topic = strings.ReplaceAll(topic, "{type}", strings.ToLower(string(event.Type)))

	token := f.mqttClient.Publish(topic, f.cfg.MQTT.QoS, false, data)
	if token.WaitTimeout(5 * time.Second) {
		if err := token.Error(); err != nil {
			log.Error().
				Err(err).
				Str("topic", topic).
				Msg("Failed to publish event to MQTT")
			return
		}
		log.Debug().
			Str("topic", topic).
			Str("type", string(event.Type)).
			Msg("Event published to MQTT")
	} else {
		log.Error().
			Str("topic", topic).
			Msg("MQTT publish timeout")
	}
}

func (f *Forwarder) forwardToHTTP(event *models.EventLog, data []byte) {
	req, err := http.NewRequest(http.MethodPost, f.cfg.HTTP.Endpoint, bytes.NewReader(data))
	if err != nil {
		log.Error().Err(err).Msg("Failed to create webhook request")
		return
	}

	req.Header.Set("Content-Type", "application/json")
	for k, v := range f.cfg.HTTP.Headers {
		req.Header.Set(k, v)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		log.Error().
			Err(err).
			Str("endpoint", f.cfg.HTTP.Endpoint).
			Msg("Failed to forward event to webhook")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		log.Error().
			Int("status", resp.StatusCode).
			Str("endpoint", f.cfg.HTTP.Endpoint).
			Msg("Webhook forward failed")
		return
	}

	log.Debug().
		Str("endpoint", f.cfg.HTTP.Endpoint).
		Str("type", string(event.Type)).
		Msg("Event forwarded to webhook")
}

func (f *Forwarder) connectMQTT() error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(f.cfg.MQTT.Broker)
	opts.SetClientID("panoptes-forwarder")

	if f.cfg.MQTT.Username != "" {
		opts.SetUsername(f.cfg.MQTT.Username)
		opts.SetPassword(f.cfg.MQTT.Password)
	}

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectTimeout(10 * time.Second)
	opts.SetKeepAlive(30 * time.Second)

	opts.SetOnConnectHandler(func(client mqtt.Client) {
		log.Info().Str("broker", f.cfg.MQTT.Broker).Msg("MQTT forwarder connected")
	})
	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		log.Error().Err(err).Str("broker", f.cfg.MQTT.Broker).Msg("MQTT forwarder connection lost")
	})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if token.WaitTimeout(10*time.Second) && token.Error() == nil {
		f.mqttClient = client
		return nil
	}

	// Retry keeps running in the background; keep the client so later
	// publishes succeed once the broker comes up.
	f.mqttClient = client
	if token.Error() != nil {
		return token.Error()
	}
	return fmt.Errorf("mqtt connect timeout")
}

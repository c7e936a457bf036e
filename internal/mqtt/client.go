package mqtt

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"regexp"
	"time"

	"github.com/chargesteer/chargesteer/internal/config"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	MQTT_PAYLOAD_ONLINE  = "online"
	MQTT_PAYLOAD_OFFLINE = "offline"
	MQTT_PAYLOAD_ON      = "on"
	MQTT_PAYLOAD_OFF     = "off"

	POINT_COMMAND_MODE  = "mode"
	POINT_COMMAND_LIMIT = "limit"
	POINT_COMMAND_SOC   = "soc"
)

func OptsFromConfig(cfg *config.Config) *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.MQTT.Host, cfg.MQTT.Port))
	opts.SetClientID(fmt.Sprintf("chargesteer_%d", rand.IntN(1000)))
	if cfg.MQTT.Username != "" && cfg.MQTT.Password != "" {
		opts.SetUsername(cfg.MQTT.Username)
		opts.SetPassword(cfg.MQTT.Password)
	}
	opts.WillEnabled = true
	opts.WillPayload = []byte(MQTT_PAYLOAD_OFFLINE)
	opts.WillRetained = true
	opts.WillTopic = bridgeStateTopic(cfg.MQTT.BaseTopic)
	opts.WillQos = 0

	return opts
}

func CreateMQTTClient(cfg *config.Config, opts *mqtt.ClientOptions, onConnectHandler func(client mqtt.Client),
	onConnectionLostHandler func(mqtt.Client, error)) *MQTTClient {
	if onConnectHandler != nil {
		opts.OnConnect = onConnectHandler
	}
	if onConnectionLostHandler != nil {
		opts.OnConnectionLost = onConnectionLostHandler
	}
	return &MQTTClient{
		client:             mqtt.NewClient(opts),
		cfg:                cfg.MQTT,
		pointCommandRegexp: pointCommandExtractor(cfg.MQTT.BaseTopic),
		telemetryRegexp:    telemetryExtractor(cfg.MQTT.BaseTopic),
	}
}

type MQTTClient struct {
	client             mqtt.Client
	cfg                config.MQTTConfig
	pointCommandRegexp *regexp.Regexp
	telemetryRegexp    *regexp.Regexp
}

// ParsedPointCommand is an operator command addressed to a single charge
// point, extracted from a `<base>/point/<id>/<field>/set` topic.
type ParsedPointCommand struct {
	PointID string
	Field   string
	Payload string
}

func (c *MQTTClient) baseTopic() string {
	return c.cfg.BaseTopic
}

func (c *MQTTClient) BridgeStateTopic() string {
	return bridgeStateTopic(c.baseTopic())
}

// SensorStateTopic carries engine-level readouts (signals, totals).
func (c *MQTTClient) SensorStateTopic(sensorId string) string {
	return fmt.Sprintf("%s/sensor/%s/state", c.baseTopic(), sensorId)
}

func (c *MQTTClient) BinarySensorStateTopic(sensorId string) string {
	return fmt.Sprintf("%s/binary_sensor/%s/state", c.baseTopic(), sensorId)
}

// PointStateTopic carries per-point readouts (mode, target, soc, status).
func (c *MQTTClient) PointStateTopic(pointId string, field string) string {
	return fmt.Sprintf("%s/point/%s/%s/state", c.baseTopic(), pointId, field)
}

func (c *MQTTClient) PointCommandTopic(pointId string, field string) string {
	return fmt.Sprintf("%s/point/%s/%s/set", c.baseTopic(), pointId, field)
}

// PointTargetTopic is where the gateway picks up the power limit to apply
// at the physical charger.
func (c *MQTTClient) PointTargetTopic(pointId string) string {
	return fmt.Sprintf("%s/point/%s/target", c.baseTopic(), pointId)
}

// PointTelemetryTopic is where the gateway reports charger telemetry from.
func (c *MQTTClient) PointTelemetryTopic() string {
	return fmt.Sprintf("%s/telemetry/#", c.baseTopic())
}

func (c *MQTTClient) ParsePointCommand(msg mqtt.Message) (*ParsedPointCommand, error) {
	topic := msg.Topic()
	matches := c.pointCommandRegexp.FindAllStringSubmatch(topic, 1)
	if len(matches) == 0 {
		return nil, errors.New("invalid command")
	}
	if len(matches[0]) != 3 {
		return nil, errors.New("invalid point command")
	}
	return &ParsedPointCommand{
		PointID: matches[0][1],
		Field:   matches[0][2],
		Payload: string(msg.Payload()),
	}, nil
}

// ParseTelemetryTopic extracts the point id from a gateway telemetry topic.
func (c *MQTTClient) ParseTelemetryTopic(topic string) (string, error) {
	matches := c.telemetryRegexp.FindAllStringSubmatch(topic, 1)
	if len(matches) == 0 || len(matches[0]) != 2 {
		return "", errors.New("invalid telemetry topic")
	}
	return matches[0][1], nil
}

func (c *MQTTClient) Publish(topic string, payload any, qos byte, retain bool, continuation func(error), timeout time.Duration) {
	token := c.client.Publish(topic, qos, retain, payload)
	go func() {
		didTO := token.WaitTimeout(timeout)
		if !didTO {
			continuation(errors.New("MQTT publish timed out"))
		} else {
			continuation(token.Error())
		}
	}()
}

func (c *MQTTClient) Subscribe(topic string, qos byte, handler mqtt.MessageHandler, continuation func(error), timeout time.Duration) {
	token := c.client.Subscribe(topic, qos, handler)
	go func() {
		didTO := token.WaitTimeout(timeout)
		if !didTO {
			continuation(errors.New("MQTT subscribe timed out"))
		} else {
			continuation(token.Error())
		}
	}()
}

func (c *MQTTClient) SubscribeToCommandTopic(handler mqtt.MessageHandler, continuation func(error), timeout time.Duration) {
	c.Subscribe(c.commandTopic(), 1, handler, continuation, timeout)
}

func (c *MQTTClient) SubscribeToTelemetryTopic(handler mqtt.MessageHandler, continuation func(error), timeout time.Duration) {
	c.Subscribe(c.PointTelemetryTopic(), 1, handler, continuation, timeout)
}

func (c *MQTTClient) Unsubscribe(topic string, continuation func(error), timeout time.Duration) {
	token := c.client.Unsubscribe(topic)
	go func() {
		didTO := token.WaitTimeout(timeout)
		if !didTO {
			continuation(errors.New("MQTT unsubscribe timed out"))
		} else {
			continuation(token.Error())
		}
	}()
}

func (c *MQTTClient) Connect(continuation func(error), timeout time.Duration) {
	token := c.client.Connect()
	go func() {
		didTO := token.WaitTimeout(timeout)
		if !didTO {
			continuation(errors.New("MQTT connect timed out"))
		} else {
			continuation(token.Error())
		}
	}()
}

func (c *MQTTClient) Disconnect(timeout time.Duration) {
	c.client.Disconnect(uint(timeout.Milliseconds()))
}

// commandTopic is the subscription filter for operator commands. It stays
// narrow so the bridge never receives its own published state mirrors.
func (c *MQTTClient) commandTopic() string {
	return fmt.Sprintf("%s/point/+/+/set", c.baseTopic())
}

func pointCommandExtractor(baseTopic string) *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf("%s/point/([a-zA-Z0-9_-]+)/(mode|limit|soc)/set", baseTopic))
}

func telemetryExtractor(baseTopic string) *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf("%s/telemetry/([a-zA-Z0-9_-]+)$", baseTopic))
}

func bridgeStateTopic(baseTopic string) string {
	return fmt.Sprintf("%s/bridge/state", baseTopic)
}

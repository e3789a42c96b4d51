package mqtt

import (
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Client manages the broker connection only. Subscriber handles the
// telemetry topics and Publisher the fan command topic.
type Client struct {
	client mqtt.Client
	config ClientConfig
}

// ClientConfig holds MQTT connection settings
type ClientConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
}

// NewClient connects to the broker with auto-reconnect enabled so silo
// firmware can keep publishing across backend restarts
func NewClient(config ClientConfig) (*Client, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(config.Broker)
	opts.SetClientID(config.ClientID)
	opts.SetUsername(config.Username)
	opts.SetPassword(config.Password)
	opts.SetOnConnectHandler(onConnect)
	opts.SetConnectionLostHandler(onConnectionLost)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(30 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	client := mqtt.NewClient(opts)

	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	log.Println("MQTT Client: Connected to broker:", config.Broker)

	return &Client{
		client: client,
		config: config,
	}, nil
}

// GetNativeClient returns the underlying paho client for Subscriber and
// Publisher
func (c *Client) GetNativeClient() mqtt.Client {
	return c.client
}

// IsConnected reports whether the broker connection is up
func (c *Client) IsConnected() bool {
	return c.client.IsConnected()
}

// Close disconnects from the broker
func (c *Client) Close() {
	c.client.Disconnect(250)
	log.Println("MQTT Client: Disconnected")
}

var onConnect mqtt.OnConnectHandler = func(client mqtt.Client) {
	log.Println("MQTT Client: Connection established")
}

var onConnectionLost mqtt.ConnectionLostHandler = func(client mqtt.Client, err error) {
	log.Printf("MQTT Client: Connection lost, reconnecting: %v", err)
}

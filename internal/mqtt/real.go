package mqtt

import (
	"fmt"
	"log"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

// Options configures a RealClient.
type Options struct {
	Broker    string
	ClientID  string // generated when empty
	Username  string
	Password  string
	Namespace string

	// OnConnectionChange, if set, is called on every connect and
	// connection loss.
	OnConnectionChange func(connected bool)
}

// RealClient talks to an actual MQTT broker.
type RealClient struct {
	client    paho.Client
	namespace string
}

// NewClientID returns a unique client identifier for this process.
func NewClientID() string {
	return "central-heating-" + uuid.NewString()[:8]
}

// NewRealClient connects to the broker and subscribes to every device in
// the namespace, delivering messages to handler. The subscription is
// renewed on every reconnect. If the broker is unreachable the client keeps
// retrying in the background and publishes are dropped until it connects.
func NewRealClient(o Options, handler MessageHandler) (*RealClient, error) {
	if o.Namespace == "" {
		o.Namespace = DefaultNamespace
	}
	if o.ClientID == "" {
		o.ClientID = NewClientID()
	}
	filter := SubscribeTopic(o.Namespace)

	opts := paho.NewClientOptions().
		AddBroker(o.Broker).
		SetClientID(o.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOrderMatters(true)
	if o.Username != "" {
		opts.SetUsername(o.Username)
		opts.SetPassword(o.Password)
	}

	opts.SetOnConnectHandler(func(c paho.Client) {
		log.Printf("mqtt: connected to %s", o.Broker)
		if o.OnConnectionChange != nil {
			o.OnConnectionChange(true)
		}
		token := c.Subscribe(filter, 0, func(_ paho.Client, m paho.Message) {
			if handler != nil {
				handler(m.Topic(), m.Payload())
			}
		})
		go func() {
			if !token.WaitTimeout(10 * time.Second) {
				log.Printf("mqtt: subscribe %s: timeout", filter)
				return
			}
			if err := token.Error(); err != nil {
				log.Printf("mqtt: subscribe %s: %v", filter, err)
				return
			}
			log.Printf("mqtt: subscribed to %s", filter)
		}()
	})
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		log.Printf("mqtt: connection lost: %v", err)
		if o.OnConnectionChange != nil {
			o.OnConnectionChange(false)
		}
	})

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		log.Printf("mqtt: broker %s not reachable yet, retrying in background", o.Broker)
	} else if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return &RealClient{client: client, namespace: o.Namespace}, nil
}

// IsConnected reports whether the connection to the broker is up.
func (c *RealClient) IsConnected() bool {
	return c.client.IsConnectionOpen()
}

// Publish sends payload to topic with QoS 0. Dropped silently while
// disconnected.
func (c *RealClient) Publish(topic string, payload []byte) error {
	if !c.client.IsConnectionOpen() {
		return nil
	}

	token := c.client.Publish(topic, 0, false, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish %s: timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// Close disconnects from the broker.
func (c *RealClient) Close() error {
	c.client.Disconnect(1000) // 1 second timeout
	return nil
}

package mqtt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const publishTimeout = 5 * time.Second

var ErrStopped = errors.New("mqtt publisher stopped")

type Options struct {
	// Broker is host:port or a full URL such as tcp://host:1883.
	Broker   string
	ClientID string
	QoS      byte
	Logger   *slog.Logger
}

type Publisher struct {
	client    mqtt.Client
	opts      Options
	logger    *slog.Logger
	mu        sync.RWMutex
	connected bool

	stopCh   chan struct{}
	stopOnce sync.Once
}

// BrokerURL normalises host:port to tcp://host:port.
func BrokerURL(broker string) string {
	if strings.Contains(broker, "://") {
		return broker
	}
	return "tcp://" + broker
}

func NewPublisher(opts Options) *Publisher {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.ClientID == "" {
		opts.ClientID = "weatherduino-udplistener"
	}
	p := &Publisher{
		opts:   opts,
		logger: opts.Logger,
		stopCh: make(chan struct{}),
	}

	co := mqtt.NewClientOptions()
	co.AddBroker(BrokerURL(opts.Broker))
	co.SetClientID(opts.ClientID)
	co.SetCleanSession(true)

	// The first connect must fail loudly; after that paho reconnects on its own.
	co.SetConnectRetry(false)
	co.SetAutoReconnect(true)
	co.SetMaxReconnectInterval(60 * time.Second)

	co.SetKeepAlive(30 * time.Second)
	co.SetPingTimeout(10 * time.Second)

	co.SetOnConnectHandler(func(_ mqtt.Client) {
		p.setConnected(true)
		p.logger.Info("mqtt connected", "broker", opts.Broker)
	})
	co.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		p.setConnected(false)
		p.logger.Warn("mqtt connection lost", "error", err)
	})

	p.client = mqtt.NewClient(co)
	return p
}

// Connect waits for the initial connection, honouring ctx and Disconnect.
func (p *Publisher) Connect(ctx context.Context) error {
	select {
	case <-p.stopCh:
		return ErrStopped
	default:
	}

	if p.IsConnected() {
		return nil
	}

	token := p.client.Connect()

	const poll = 200 * time.Millisecond
	for {
		if token.WaitTimeout(poll) {
			if err := token.Error(); err != nil {
				return fmt.Errorf("mqtt connect %s: %w", p.opts.Broker, err)
			}
			p.setConnected(true)
			return nil
		}

		select {
		case <-ctx.Done():
			p.client.Disconnect(0)
			return ctx.Err()
		case <-p.stopCh:
			p.client.Disconnect(0)
			return ErrStopped
		default:
		}
	}
}

// Publish sends payload to topic and waits for the broker to acknowledge it.
func (p *Publisher) Publish(topic string, payload []byte) error {
	if !p.IsConnected() {
		return fmt.Errorf("mqtt client not connected")
	}

	token := p.client.Publish(topic, p.opts.QoS, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish timeout for topic %s", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}

	p.logger.Debug("mqtt published", "topic", topic, "size", len(payload))
	return nil
}

func (p *Publisher) IsConnected() bool {
	p.mu.RLock()
	connected := p.connected
	p.mu.RUnlock()
	return connected && p.client.IsConnected()
}

// Disconnect is idempotent; Connect fails with ErrStopped afterwards.
func (p *Publisher) Disconnect() {
	p.stopOnce.Do(func() { close(p.stopCh) })

	if p.client != nil {
		p.client.Disconnect(250)
	}

	p.setConnected(false)
	p.logger.Info("mqtt disconnected")
}

func (p *Publisher) setConnected(v bool) {
	p.mu.Lock()
	p.connected = v
	p.mu.Unlock()
}

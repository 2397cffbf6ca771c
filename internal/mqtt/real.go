package mqtt

import (
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// DefaultBufferSize is the number of messages held while disconnected.
const DefaultBufferSize = 100

// Options configures a RealPublisher.
type Options struct {
	Broker     string
	ClientID   string
	BufferSize int

	// OnCommand, if set, receives schedule updates from TopicScheduleSet.
	OnCommand func(hour, minute int) error

	// OnConnectionChange, if set, is called on every connect and disconnect.
	OnConnectionChange func(connected bool)

	Log *zap.Logger
}

// RealPublisher publishes to an actual MQTT broker. Messages published while
// the connection is down are buffered and replayed on reconnect.
type RealPublisher struct {
	client paho.Client
	opts   Options
	log    *zap.Logger

	mu        sync.Mutex
	buf       *ringBuffer
	connected bool // true after the first successful connect
}

// NewRealPublisher creates a publisher for the given broker. The connection
// is retried in the background; an unreachable broker does not fail startup.
func NewRealPublisher(opts Options) (*RealPublisher, error) {
	if opts.Broker == "" {
		return nil, fmt.Errorf("mqtt: broker address required")
	}
	if opts.ClientID == "" {
		opts.ClientID = "feeder"
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = DefaultBufferSize
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}

	p := &RealPublisher{
		opts: opts,
		log:  opts.Log.With(zap.String("broker", opts.Broker)),
		buf:  newRingBuffer(opts.BufferSize),
	}

	will, err := FormatSystemPayload(SystemEvent{
		Timestamp: time.Now(),
		Event:     "SHUTDOWN",
		Reason:    "MQTT_DISCONNECT",
	})
	if err != nil {
		return nil, fmt.Errorf("format will: %w", err)
	}

	co := paho.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetBinaryWill(TopicSystem, will, 1, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(p.onConnectionLost)

	p.client = paho.NewClient(co)
	token := p.client.Connect()
	if token.WaitTimeout(10 * time.Second) {
		if err := token.Error(); err != nil {
			return nil, fmt.Errorf("connect to broker: %w", err)
		}
	} else {
		p.log.Warn("mqtt broker not reachable yet, buffering until connected")
	}

	return p, nil
}

func (p *RealPublisher) onConnect(c paho.Client) {
	p.mu.Lock()
	reconnect := p.connected
	p.connected = true
	pending := p.buf.drainAll()
	p.mu.Unlock()

	p.log.Info("mqtt connected", zap.Bool("reconnect", reconnect), zap.Int("buffered", len(pending)))
	if p.opts.OnConnectionChange != nil {
		p.opts.OnConnectionChange(true)
	}

	if p.opts.OnCommand != nil {
		token := c.Subscribe(TopicScheduleSet, 1, p.onScheduleMessage)
		if token.WaitTimeout(5*time.Second) && token.Error() != nil {
			p.log.Error("subscribe failed", zap.String("topic", TopicScheduleSet), zap.Error(token.Error()))
		}
	}

	for _, msg := range pending {
		if err := p.send(msg); err != nil {
			p.log.Warn("replay failed", zap.String("topic", msg.topic), zap.Error(err))
		}
	}

	if reconnect {
		payload, _ := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "RECONNECTED"})
		if err := p.send(bufferedMsg{topic: TopicSystem, payload: payload, qos: 1}); err != nil {
			p.log.Warn("publish reconnected failed", zap.Error(err))
		}
	}
}

func (p *RealPublisher) onConnectionLost(_ paho.Client, err error) {
	p.log.Warn("mqtt connection lost", zap.Error(err))
	if p.opts.OnConnectionChange != nil {
		p.opts.OnConnectionChange(false)
	}
}

func (p *RealPublisher) onScheduleMessage(_ paho.Client, m paho.Message) {
	if err := HandleScheduleCommand(m.Payload(), p.opts.OnCommand); err != nil {
		p.log.Warn("schedule command rejected", zap.ByteString("payload", m.Payload()), zap.Error(err))
		return
	}
	p.log.Info("schedule command applied", zap.ByteString("payload", m.Payload()))
}

// publish sends msg now or buffers it while disconnected.
func (p *RealPublisher) publish(msg bufferedMsg) error {
	if !p.client.IsConnectionOpen() {
		p.mu.Lock()
		dropped := p.buf.push(msg)
		p.mu.Unlock()
		if dropped {
			p.log.Warn("mqtt buffer full, dropping oldest", zap.Int("capacity", p.opts.BufferSize))
		}
		return nil
	}
	return p.send(msg)
}

func (p *RealPublisher) send(msg bufferedMsg) error {
	token := p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// Publish sends a feed report to the MQTT broker.
func (p *RealPublisher) Publish(report FeedReport) error {
	payload, err := FormatPayload(report)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	// QoS 1: feeds are rare and worth confirming.
	return p.publish(bufferedMsg{topic: Topic, payload: payload, qos: 1})
}

// PublishSchedule sends a schedule change to the MQTT broker.
func (p *RealPublisher) PublishSchedule(change ScheduleChange) error {
	payload, err := FormatSchedulePayload(change)
	if err != nil {
		return fmt.Errorf("format schedule payload: %w", err)
	}
	return p.publish(bufferedMsg{topic: Topic, payload: payload, qos: 1})
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	return p.publish(bufferedMsg{topic: TopicSystem, payload: payload, qos: 1, retained: event.Retained})
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}

// HandleScheduleCommand decodes payload and passes it to apply.
func HandleScheduleCommand(payload []byte, apply func(hour, minute int) error) error {
	hour, minute, err := ParseScheduleCommand(payload)
	if err != nil {
		return err
	}
	return apply(hour, minute)
}

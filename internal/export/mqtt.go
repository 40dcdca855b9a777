package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/ornithopter83/selftrack/internal/dns"
	"github.com/ornithopter83/selftrack/internal/pose"
	"github.com/ornithopter83/selftrack/internal/session"
)

var ErrNotConnected = errors.New("mqtt not connected")

// Message is the JSON payload published for every exported frame.
type Message struct {
	Room      string          `json:"room"`
	Timestamp int64           `json:"ts"`
	Landmarks []pose.Landmark `json:"landmarks"`
}

// Stats contains exporter statistics
type Stats struct {
	Connected  bool
	Published  uint64
	Superseded uint64
	Errors     uint64
}

type publishFunc func(topic string, payload []byte) error

// MQTTExporter publishes accepted landmark frames to an MQTT broker.
//
// Offer never blocks: it keeps only the newest frame and a background
// goroutine publishes whatever is latest, so a slow broker drops frames
// instead of delaying the receiver.
type MQTTExporter struct {
	broker string
	topic  string
	room   session.Token

	client  mqtt.Client
	publish publishFunc

	mu      sync.Mutex
	pending pose.Frame
	has     bool
	wake    chan struct{}
	done    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once

	connected  atomic.Bool
	published  atomic.Uint64
	superseded atomic.Uint64
	errors     atomic.Uint64
}

// NewMQTTExporter creates an exporter publishing to "<prefix>/<room>/pose".
func NewMQTTExporter(broker, prefix string, room session.Token) *MQTTExporter {
	return &MQTTExporter{
		broker: broker,
		topic:  fmt.Sprintf("%s/%s/pose", prefix, room),
		room:   room,
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Topic returns the topic frames are published on.
func (e *MQTTExporter) Topic() string {
	return e.topic
}

// Connect establishes the broker connection and starts publishing.
func (e *MQTTExporter) Connect(ctx context.Context) error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(e.broker)
	opts.SetClientID("selftrack-" + e.room.String())
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)
	if plainTCP(e.broker) {
		opts.SetCustomOpenConnectionFn(openConnection)
	}

	opts.OnConnect = func(c mqtt.Client) {
		e.connected.Store(true)
		slog.Info("mqtt connection established", "broker", e.broker, "topic", e.topic)
	}
	opts.OnConnectionLost = func(c mqtt.Client, err error) {
		e.connected.Store(false)
		slog.Warn("mqtt connection lost, will auto-reconnect", "broker", e.broker, "error", err)
	}

	e.client = mqtt.NewClient(opts)

	slog.Info("connecting to mqtt broker", "broker", e.broker)
	token := e.client.Connect()

	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Second):
		return fmt.Errorf("mqtt connection timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connection failed: %w", err)
	}
	e.connected.Store(true)

	e.start(e.publishMQTT)
	return nil
}

// plainTCP reports whether broker is reached over a bare TCP connection.
// TLS and websocket brokers keep paho's own dialer.
func plainTCP(broker string) bool {
	u, err := url.Parse(broker)
	if err != nil {
		return false
	}
	return u.Scheme == "tcp" || u.Scheme == "mqtt"
}

func openConnection(uri *url.URL, options mqtt.ClientOptions) (net.Conn, error) {
	timeout := options.ConnectTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return dns.DialContext(ctx, "tcp", uri.Host)
}

func (e *MQTTExporter) publishMQTT(topic string, payload []byte) error {
	if !e.connected.Load() {
		return ErrNotConnected
	}
	token := e.client.Publish(topic, 0, false, payload)
	if !token.WaitTimeout(2 * time.Second) {
		return fmt.Errorf("publish timeout")
	}
	return token.Error()
}

func (e *MQTTExporter) start(publish publishFunc) {
	e.publish = publish
	e.wg.Add(1)
	go e.run()
}

// Offer hands a frame to the exporter, replacing any frame not yet published.
func (e *MQTTExporter) Offer(frame pose.Frame) {
	e.mu.Lock()
	if e.has {
		e.superseded.Add(1)
	}
	e.pending = frame
	e.has = true
	e.mu.Unlock()

	select {
	case e.wake <- struct{}{}:
	default:
	}
}

func (e *MQTTExporter) run() {
	defer e.wg.Done()
	for {
		select {
		case <-e.done:
			return
		case <-e.wake:
		}

		e.mu.Lock()
		frame, ok := e.pending, e.has
		e.pending, e.has = nil, false
		e.mu.Unlock()
		if !ok {
			continue
		}

		payload, err := json.Marshal(Message{
			Room:      e.room.String(),
			Timestamp: time.Now().UnixMilli(),
			Landmarks: frame,
		})
		if err == nil {
			err = e.publish(e.topic, payload)
		}
		if err != nil {
			e.errors.Add(1)
			slog.Debug("frame export failed", "topic", e.topic, "error", err)
			continue
		}
		e.published.Add(1)
	}
}

// Close stops publishing and disconnects from the broker.
func (e *MQTTExporter) Close() {
	e.once.Do(func() {
		close(e.done)
		e.wg.Wait()
		// Disconnect also stops a connect retry still in flight.
		if e.client != nil {
			e.client.Disconnect(250)
			slog.Info("mqtt disconnected")
		}
		e.connected.Store(false)
	})
}

// Stats returns exporter statistics
func (e *MQTTExporter) Stats() Stats {
	return Stats{
		Connected:  e.connected.Load(),
		Published:  e.published.Load(),
		Superseded: e.superseded.Load(),
		Errors:     e.errors.Load(),
	}
}

package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/homebus/internal/automation"
	"github.com/nerrad567/homebus/internal/device"
	"github.com/nerrad567/homebus/internal/infrastructure/mqtt"
	"github.com/nerrad567/homebus/internal/protocol"
)

// handlerTimeout bounds the side effects of one inbound message.
const handlerTimeout = 10 * time.Second

// Bus is the publish/subscribe transport. *mqtt.Client satisfies it.
type Bus interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// Options configures a Coordinator.
type Options struct {
	// Identity is the coordinator's sender name on the bus.
	Identity string

	// Topics builds the topic scheme.
	Topics mqtt.Topics

	// QoS is used for commands, registration acks and subscriptions.
	QoS byte

	// RequestTTL expires unacknowledged requests. 0 keeps them forever.
	RequestTTL time.Duration

	// SweepInterval is how often Run expires requests.
	SweepInterval time.Duration
}

// Deps holds the coordinator's collaborators. Only Bus is required.
type Deps struct {
	Bus       Bus
	Registry  *device.Registry
	Rooms     *device.Rooms
	Catalogue *automation.Catalogue
	Hub       WSHub
	Metrics   Metrics
	Telemetry Telemetry
	Commands  CommandLog
	Logger    Logger
}

// Coordinator is the single owner of the registry, the correlation table
// and the profile engine for one homebus.
type Coordinator struct {
	opts   Options
	sender *protocol.CoordinatorSender

	bus       Bus
	registry  *device.Registry
	rooms     *device.Rooms
	requests  *Requests
	engine    *automation.Engine
	hub       WSHub
	metrics   Metrics
	telemetry Telemetry
	commands  CommandLog
	logger    Logger

	// dispatchMu serializes inbound message handling. subscriptions is
	// only touched while it is held.
	dispatchMu    sync.Mutex
	subscriptions map[string]string
}

// New creates a Coordinator.
//
// Parameters:
//   - opts: Identity, topic scheme, QoS and request expiry
//   - deps: Transport and optional collaborators; nil fields get defaults
//
// Returns:
//   - *Coordinator: Ready for Start
//   - error: If the bus or identity is missing
func New(opts Options, deps Deps) (*Coordinator, error) {
	if deps.Bus == nil {
		return nil, errors.New("coordinator: bus is required")
	}
	if opts.Identity == "" {
		return nil, errors.New("coordinator: identity is required")
	}

	c := &Coordinator{
		opts:          opts,
		sender:        &protocol.CoordinatorSender{Name: opts.Identity},
		bus:           deps.Bus,
		registry:      deps.Registry,
		rooms:         deps.Rooms,
		requests:      NewRequests(opts.RequestTTL),
		hub:           deps.Hub,
		metrics:       deps.Metrics,
		telemetry:     deps.Telemetry,
		commands:      deps.Commands,
		logger:        deps.Logger,
		subscriptions: make(map[string]string),
	}
	if c.registry == nil {
		c.registry = device.NewRegistry()
	}
	if c.rooms == nil {
		c.rooms = device.NewRooms()
	}
	if c.hub == nil {
		c.hub = noopHub{}
	}
	if c.metrics == nil {
		c.metrics = noopMetrics{}
	}
	if c.telemetry == nil {
		c.telemetry = noopTelemetry{}
	}
	if c.commands == nil {
		c.commands = noopCommandLog{}
	}
	if c.logger == nil {
		c.logger = noopLogger{}
	}

	catalogue := deps.Catalogue
	if catalogue == nil {
		catalogue = automation.NewCatalogue()
	}
	c.engine = automation.NewEngine(catalogue, c.registry, c, c.hub, c.logger)

	return c, nil
}

// Will returns the last will a coordinator with identity registers with
// the broker: a retained disconnected_<identity> notice on the broadcast topic.
func Will(topics mqtt.Topics, identity string, qos byte) (mqtt.Will, error) {
	payload, err := protocol.EncodeString(protocol.DisconnectedBody(identity), &protocol.CoordinatorSender{Name: identity})
	if err != nil {
		return mqtt.Will{}, err
	}
	return mqtt.Will{
		Topic:    topics.Broadcast(),
		Payload:  payload,
		QoS:      qos,
		Retained: true,
	}, nil
}

// Start subscribes to the registration topic and clears the retained last
// will a previous run may have left on the broadcast topic.
func (c *Coordinator) Start() error {
	topic := c.opts.Topics.Registration()
	if err := c.bus.Subscribe(topic, c.opts.QoS, c.HandleMessage); err != nil {
		return fmt.Errorf("subscribing to %s: %w", topic, err)
	}
	if err := c.ClearWill(); err != nil {
		return err
	}
	c.logger.Info("coordinator listening", "identity", c.opts.Identity, "topic", topic)
	return nil
}

// ClearWill publishes an empty retained message on the broadcast topic,
// removing any retained disconnected_<identity> notice. Call it again after
// a reconnect, since the broker publishes the will when the session drops.
func (c *Coordinator) ClearWill() error {
	topic := c.opts.Topics.Broadcast()
	if err := c.bus.Publish(topic, []byte{}, c.opts.QoS, true); err != nil {
		return fmt.Errorf("clearing will on %s: %w", topic, err)
	}
	return nil
}

// Run expires unacknowledged requests every SweepInterval until ctx ends.
// Without a request TTL it only waits for ctx.
func (c *Coordinator) Run(ctx context.Context) error {
	if c.opts.RequestTTL <= 0 || c.opts.SweepInterval <= 0 {
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(c.opts.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			c.Sweep(now)
		}
	}
}

// Sweep expires requests older than the TTL and returns how many were expired.
func (c *Coordinator) Sweep(now time.Time) int {
	n := c.requests.Expire(now)
	if n > 0 {
		c.logger.Warn("requests expired without acknowledgement", "count", n, "ttl", c.opts.RequestTTL)
		c.metrics.RequestsExpired(n)
	}
	c.metrics.ObservePending(c.requests.Len())
	return n
}

// Stop fails every pending request with ErrShutdown.
func (c *Coordinator) Stop() {
	if n := c.requests.FailAll(ErrShutdown); n > 0 {
		c.logger.Info("pending requests abandoned", "count", n)
	}
	c.metrics.ObservePending(0)
}

// HandleMessage routes one inbound bus message. It matches
// mqtt.MessageHandler and is the handler for every coordinator subscription.
//
// Protocol anomalies are counted and returned; the transport logs them.
func (c *Coordinator) HandleMessage(topic string, payload []byte) error {
	c.dispatchMu.Lock()
	defer c.dispatchMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	err := c.route(ctx, topic, payload)
	if err != nil {
		c.metrics.ProtocolError(errorKind(err))
	}
	return err
}

func (c *Coordinator) route(ctx context.Context, topic string, payload []byte) error {
	if topic == c.opts.Topics.Registration() {
		return c.handleRegistration(payload)
	}
	if dt, ok := c.opts.Topics.ParseDevice(topic); ok && dt.Suffix == mqtt.SuffixPublish {
		return c.handleUpdate(ctx, dt, payload)
	}
	return fmt.Errorf("%w: %s", ErrUnexpectedTopic, topic)
}

func (c *Coordinator) decode(payload []byte) (protocol.Envelope, error) {
	env, err := protocol.Decode(payload)
	switch {
	case err == nil:
		return env, nil
	case errors.Is(err, protocol.ErrUnexpectedSender):
		return protocol.Envelope{}, fmt.Errorf("%w: %w", ErrUnexpectedDevice, err)
	default:
		return protocol.Envelope{}, fmt.Errorf("%w: %w", ErrUnexpectedMessage, err)
	}
}

// publish encodes body with the coordinator as sender.
func (c *Coordinator) publish(topic, body string, retained bool) error {
	data, err := protocol.EncodeString(body, c.sender)
	if err != nil {
		return err
	}
	return c.bus.Publish(topic, data, c.opts.QoS, retained)
}

func (c *Coordinator) observeRegistry() {
	stats := c.registry.GetStats()
	c.metrics.ObserveRegistry(stats.TotalDevices, stats.DevicesOn, c.registry.ActiveConsumption())
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, ErrUnexpectedTopic):
		return "unexpected_topic"
	case errors.Is(err, device.ErrUnexpectedDeviceType):
		return "unexpected_device_type"
	case errors.Is(err, ErrUnexpectedDevice):
		return "unexpected_device"
	case errors.Is(err, automation.ErrUnexpectedValue):
		return "unexpected_value"
	case errors.Is(err, ErrUnexpectedMessage):
		return "unexpected_message"
	default:
		return "internal"
	}
}

// Identity returns the coordinator's bus identity.
func (c *Coordinator) Identity() string { return c.opts.Identity }

// Registry returns the device registry.
func (c *Coordinator) Registry() *device.Registry { return c.registry }

// Rooms returns the known rooms.
func (c *Coordinator) Rooms() *device.Rooms { return c.rooms }

// Engine returns the profile engine.
func (c *Coordinator) Engine() *automation.Engine { return c.engine }

// Requests returns the correlation table.
func (c *Coordinator) Requests() *Requests { return c.requests }

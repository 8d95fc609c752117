package simulator

import (
	"errors"
	"fmt"
	"sync"

	"github.com/nerrad567/homebus/internal/device"
	"github.com/nerrad567/homebus/internal/infrastructure/mqtt"
	"github.com/nerrad567/homebus/internal/protocol"
)

// ErrUnexpectedCommand is returned for a command the device does not understand.
var ErrUnexpectedCommand = errors.New("simulator: unexpected command")

// Bus is the transport a simulated device talks through.
type Bus interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// Logger defines the logging interface used by the simulator.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Device is one simulated device.
//
// All public methods are thread-safe.
type Device struct {
	id        device.Identity
	topics    mqtt.Topics
	qos       byte
	bus       Bus
	generator Generator
	logger    Logger

	mu         sync.Mutex
	registered bool
	isOn       bool
	value      *string
}

// NewDevice creates a simulated device. Sensors need a generator; it is
// ignored for actuators.
func NewDevice(id device.Identity, topics mqtt.Topics, qos byte, bus Bus, generator Generator, logger Logger) (*Device, error) {
	if err := device.ValidateIdentity(id); err != nil {
		return nil, err
	}
	if bus == nil {
		return nil, errors.New("simulator: bus is required")
	}
	if id.Type.IsSensor() && generator == nil {
		return nil, fmt.Errorf("simulator: sensor %s has no reading generator", id.Name)
	}
	if logger == nil {
		logger = noopLogger{}
	}
	return &Device{
		id:        id,
		topics:    topics,
		qos:       qos,
		bus:       bus,
		generator: generator,
		logger:    logger,
	}, nil
}

// Will returns the last will the device's broker connection should carry:
// a disconnected_<name> notice on the registration topic.
func Will(topics mqtt.Topics, id device.Identity, qos byte) (mqtt.Will, error) {
	payload, err := protocol.EncodeString(protocol.DisconnectedBody(id.Name), id.Sender())
	if err != nil {
		return mqtt.Will{}, err
	}
	return mqtt.Will{Topic: topics.Registration(), Payload: payload, QoS: qos}, nil
}

// Identity returns the device's identity.
func (d *Device) Identity() device.Identity {
	return d.id
}

// Registered reports whether the coordinator has acknowledged the registration.
func (d *Device) Registered() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.registered
}

// State returns the on/off flag and the last value set.
func (d *Device) State() (isOn bool, value *string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.value != nil {
		v := *d.value
		value = &v
	}
	return d.isOn, value
}

// Start subscribes to the device's command and broadcast topics, then
// asks the coordinator to register it.
func (d *Device) Start() error {
	if err := d.bus.Subscribe(d.subscribeTopic(), d.qos, d.HandleMessage); err != nil {
		return fmt.Errorf("subscribing %s: %w", d.id.Name, err)
	}
	if err := d.bus.Subscribe(d.topics.Broadcast(), d.qos, d.HandleMessage); err != nil {
		return fmt.Errorf("subscribing %s to broadcast: %w", d.id.Name, err)
	}
	return d.register()
}

// Stop deregisters the device and drops its subscriptions.
func (d *Device) Stop() error {
	d.mu.Lock()
	d.registered = false
	d.mu.Unlock()

	err := d.publish(d.topics.Registration(), protocol.DisconnectedBody(d.id.Name))
	for _, topic := range []string{d.subscribeTopic(), d.topics.Broadcast()} {
		if uerr := d.bus.Unsubscribe(topic); uerr != nil && err == nil {
			err = uerr
		}
	}
	return err
}

// Tick runs one simulation step: re-register when the coordinator has not
// acknowledged us, otherwise publish a reading if this is a sensor.
func (d *Device) Tick() error {
	if !d.Registered() {
		return d.register()
	}
	if d.generator == nil || !d.id.Type.IsSensor() {
		return nil
	}

	reading := d.generator.Next()
	d.mu.Lock()
	d.value = &reading
	d.mu.Unlock()

	update := protocol.OneWay(protocol.CommandUpdate, &reading)
	d.logger.Debug("sensor reading", "name", d.id.Name, "value", reading)
	return d.publish(d.publishTopic(), update.String())
}

// HandleMessage processes a message from the coordinator.
//
// register_success marks the device registered. A disconnect notice for the
// device, or the coordinator's own last will, marks it unregistered so the
// next Tick registers again. Anything else is a command: it is applied and
// echoed back unchanged as the acknowledgement.
func (d *Device) HandleMessage(topic string, payload []byte) error {
	if len(payload) == 0 && topic == d.topics.Broadcast() {
		// Retained will cleared by a coordinator coming online.
		return nil
	}
	env, err := protocol.Decode(payload)
	if err != nil {
		return err
	}
	body := env.Body()

	if topic == d.topics.Broadcast() {
		if verb, _, ok := protocol.ParseRegistration(body); ok && verb == protocol.VerbDisconnected {
			d.setRegistered(false)
			d.logger.Info("coordinator went away", "name", d.id.Name)
		}
		return nil
	}

	switch body {
	case protocol.RegisterSuccess:
		d.setRegistered(true)
		d.logger.Info("device registered", "name", d.id.Name)
		return nil
	case protocol.DisconnectedBody(d.id.Name):
		d.setRegistered(false)
		return nil
	}

	cmd, err := protocol.ParseCommand(body)
	if err != nil {
		return err
	}
	if err := d.apply(cmd); err != nil {
		return err
	}
	return d.publish(d.publishTopic(), cmd.String())
}

func (d *Device) apply(cmd protocol.Command) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch cmd.Name {
	case protocol.CommandTurnOn:
		d.isOn = true
	case protocol.CommandTurnOff:
		d.isOn = false
	case protocol.CommandSetValue:
		if cmd.Value == nil {
			return fmt.Errorf("%w: setValue without value", ErrUnexpectedCommand)
		}
		v := *cmd.Value
		d.value = &v
	default:
		return fmt.Errorf("%w: %q", ErrUnexpectedCommand, cmd.Name)
	}
	return nil
}

func (d *Device) setRegistered(registered bool) {
	d.mu.Lock()
	d.registered = registered
	d.mu.Unlock()
}

func (d *Device) register() error {
	return d.publish(d.topics.Registration(), protocol.RegisterBody(d.id.Name))
}

func (d *Device) publish(topic, body string) error {
	payload, err := protocol.EncodeString(body, d.id.Sender())
	if err != nil {
		return err
	}
	return d.bus.Publish(topic, payload, d.qos, false)
}

func (d *Device) subscribeTopic() string {
	return d.topics.DeviceSubscribe(string(d.id.Type), d.id.Name)
}

func (d *Device) publishTopic() string {
	return d.topics.DevicePublish(string(d.id.Type), d.id.Name)
}

package coordinator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/homebus/internal/automation"
	"github.com/nerrad567/homebus/internal/device"
	"github.com/nerrad567/homebus/internal/infrastructure/mqtt"
	"github.com/nerrad567/homebus/internal/protocol"
)

// ─── Fake Bus ───────────────────────────────────────────────────────────────

type publishedMsg struct {
	Topic    string
	Payload  []byte
	QoS      byte
	Retained bool
}

type fakeBus struct {
	mu           sync.Mutex
	published    []publishedMsg
	subscribed   map[string]int
	unsubscribed []string
	publishErr   error
	subscribeErr map[string]error
}

func newFakeBus() *fakeBus {
	return &fakeBus{subscribed: make(map[string]int)}
}

func (b *fakeBus) Publish(topic string, payload []byte, qos byte, retained bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.publishErr != nil {
		return b.publishErr
	}
	b.published = append(b.published, publishedMsg{Topic: topic, Payload: payload, QoS: qos, Retained: retained})
	return nil
}

func (b *fakeBus) Subscribe(topic string, _ byte, _ mqtt.MessageHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.subscribeErr[topic]; err != nil {
		return err
	}
	b.subscribed[topic]++
	return nil
}

func (b *fakeBus) Unsubscribe(topic string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.unsubscribed = append(b.unsubscribed, topic)
	return nil
}

// on returns the decoded bodies published on topic, in order.
func (b *fakeBus) on(t *testing.T, topic string) []publishedMsg {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []publishedMsg
	for _, m := range b.published {
		if m.Topic == topic {
			out = append(out, m)
		}
	}
	return out
}

func body(t *testing.T, m publishedMsg) string {
	t.Helper()
	p, err := protocol.DecodePayload(m.Payload)
	if err != nil || p == nil {
		t.Fatalf("DecodePayload() = %v, %v", p, err)
	}
	return *p
}

type fakeMetrics struct {
	noopMetrics
	mu     sync.Mutex
	errors map[string]int
}

func (m *fakeMetrics) ProtocolError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.errors == nil {
		m.errors = make(map[string]int)
	}
	m.errors[kind]++
}

// ─── Helpers ────────────────────────────────────────────────────────────────

var topics = mqtt.Topics{Prefix: "homebus"}

func newTestCoordinator(t *testing.T, ttl time.Duration) (*Coordinator, *fakeBus) {
	t.Helper()
	bus := newFakeBus()
	c, err := New(Options{
		Identity:      "hub",
		Topics:        topics,
		QoS:           1,
		RequestTTL:    ttl,
		SweepInterval: time.Second,
	}, Deps{Bus: bus})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c, bus
}

func envelope(t *testing.T, text string, sender protocol.Sender) []byte {
	t.Helper()
	data, err := protocol.EncodeString(text, sender)
	if err != nil {
		t.Fatalf("EncodeString() error = %v", err)
	}
	return data
}

func registerDevice(t *testing.T, c *Coordinator, id device.Identity) {
	t.Helper()
	if err := c.HandleMessage(topics.Registration(), envelope(t, protocol.RegisterBody(id.Name), id.Sender())); err != nil {
		t.Fatalf("register %s: %v", id.Name, err)
	}
}

func disconnectDevice(t *testing.T, c *Coordinator, id device.Identity) {
	t.Helper()
	if err := c.HandleMessage(topics.Registration(), envelope(t, protocol.DisconnectedBody(id.Name), id.Sender())); err != nil {
		t.Fatalf("disconnect %s: %v", id.Name, err)
	}
}

func publishFrom(t *testing.T, c *Coordinator, id device.Identity, cmd protocol.Command) error {
	t.Helper()
	return c.HandleMessage(topics.DevicePublish(string(id.Type), id.Name), envelope(t, cmd.String(), id.Sender()))
}

func strPtr(s string) *string { return &s }

var lightA = device.Identity{Name: "A", Room: "Living room", Type: device.TypeLight, Consumption: 10}

// ─── Registration ───────────────────────────────────────────────────────────

func TestCoordinator_LightScenario(t *testing.T) {
	c, bus := newTestCoordinator(t, 0)
	ctx := context.Background()

	registerDevice(t, c, lightA)

	if got := len(c.Registry().All()); got != 1 {
		t.Fatalf("len(All()) = %d, want 1", got)
	}
	if bus.subscribed["homebus/Light/A/publish"] != 1 {
		t.Errorf("publish topic subscriptions = %v", bus.subscribed)
	}
	acks := bus.on(t, "homebus/Light/A/subscribe")
	if len(acks) != 1 || body(t, acks[0]) != protocol.RegisterSuccess || !acks[0].Retained {
		t.Fatalf("acks = %+v, want one retained register_success", acks)
	}
	if !c.Rooms().Contains("Living room") {
		t.Error("room not learnt from registration")
	}

	completion, err := c.SendUpdate(ctx, "A", protocol.CommandTurnOn, nil)
	if err != nil {
		t.Fatalf("SendUpdate() error = %v", err)
	}

	sent := bus.on(t, "homebus/Light/A/subscribe")
	cmd, err := protocol.ParseCommand(body(t, sent[len(sent)-1]))
	if err != nil {
		t.Fatalf("ParseCommand() error = %v", err)
	}
	if cmd.ID != 1 || cmd.Name != protocol.CommandTurnOn || sent[len(sent)-1].Retained {
		t.Errorf("published command = %+v, want non-retained turnOn with id 1", cmd)
	}

	if err := publishFrom(t, c, lightA, cmd); err != nil {
		t.Fatalf("echo error = %v", err)
	}

	reply, err := completion.Wait(ctx)
	if err != nil || reply.ID != cmd.ID {
		t.Errorf("Wait() = %+v, %v", reply, err)
	}
	if got := c.Registry().ActiveConsumption(); got != 10 {
		t.Errorf("ActiveConsumption() = %v, want 10", got)
	}

	disconnectDevice(t, c, lightA)

	if got := len(c.Registry().All()); got != 0 {
		t.Errorf("len(All()) after disconnect = %d, want 0", got)
	}
	if len(bus.unsubscribed) != 1 || bus.unsubscribed[0] != "homebus/Light/A/publish" {
		t.Errorf("unsubscribed = %v", bus.unsubscribed)
	}
	notices := bus.on(t, "homebus/Light/A/subscribe")
	last := notices[len(notices)-1]
	if body(t, last) != "disconnected_A" || !last.Retained {
		t.Errorf("last message = %q retained=%v, want retained disconnect notice", body(t, last), last.Retained)
	}
}

func TestCoordinator_RegisterIsIdempotent(t *testing.T) {
	c, bus := newTestCoordinator(t, 0)

	registerDevice(t, c, lightA)
	registerDevice(t, c, lightA)

	if got := c.Registry().Count(); got != 1 {
		t.Errorf("Count() = %d, want 1", got)
	}
	if got := bus.subscribed["homebus/Light/A/publish"]; got != 1 {
		t.Errorf("Subscribe calls = %d, want 1", got)
	}
	if got := len(bus.on(t, "homebus/Light/A/subscribe")); got != 2 {
		t.Errorf("acks = %d, want 2", got)
	}
}

func TestCoordinator_ReRegisterWithNewMetadata(t *testing.T) {
	c, bus := newTestCoordinator(t, 0)

	registerDevice(t, c, lightA)
	moved := device.Identity{Name: "A", Room: "Kitchen", Type: device.TypeShutter, Consumption: 5}
	registerDevice(t, c, moved)

	all := c.Registry().All()
	if len(all) != 1 || all[0].Identity != moved {
		t.Fatalf("All() = %+v, want only the new identity", all)
	}
	if len(bus.unsubscribed) != 1 || bus.unsubscribed[0] != "homebus/Light/A/publish" {
		t.Errorf("unsubscribed = %v, want old publish topic", bus.unsubscribed)
	}
	if bus.subscribed["homebus/Shutter/A/publish"] != 1 {
		t.Errorf("subscribed = %v, want new publish topic", bus.subscribed)
	}
}

func TestCoordinator_ReRegisterSubscribeFailureKeepsDevice(t *testing.T) {
	c, bus := newTestCoordinator(t, 0)
	registerDevice(t, c, lightA)

	boom := errors.New("boom")
	bus.subscribeErr = map[string]error{"homebus/Oven/A/publish": boom}
	oven := device.Identity{Name: "A", Room: "Kitchen", Type: device.TypeOven, Consumption: 2000}

	err := c.HandleMessage(topics.Registration(), envelope(t, protocol.RegisterBody("A"), oven.Sender()))
	if !errors.Is(err, boom) {
		t.Fatalf("HandleMessage() error = %v, want boom", err)
	}

	got, ok := c.Registry().FindByName("A")
	if !ok || got.Identity != lightA {
		t.Errorf("FindByName(A) = %+v, %v, want the original light", got, ok)
	}
	if len(bus.unsubscribed) != 0 {
		t.Errorf("unsubscribed = %v, want old topic kept", bus.unsubscribed)
	}
	if c.subscriptions["A"] != "homebus/Light/A/publish" {
		t.Errorf("subscriptions = %v", c.subscriptions)
	}
	if len(bus.on(t, "homebus/Oven/A/subscribe")) != 0 {
		t.Error("failed re-registration was acknowledged")
	}

	if err := publishFrom(t, c, lightA, protocol.OneWay(protocol.CommandTurnOn, nil)); err != nil {
		t.Errorf("publish from kept device error = %v", err)
	}
}

func TestCoordinator_RegisterSubscribeFailure(t *testing.T) {
	c, bus := newTestCoordinator(t, 0)
	bus.subscribeErr = map[string]error{"homebus/Light/A/publish": errors.New("boom")}

	if err := c.HandleMessage(topics.Registration(), envelope(t, protocol.RegisterBody("A"), lightA.Sender())); err == nil {
		t.Fatal("HandleMessage() error = nil, want subscribe failure")
	}
	if c.Registry().Count() != 0 {
		t.Errorf("Count() = %d, want 0", c.Registry().Count())
	}
}

func TestCoordinator_StartClearsWill(t *testing.T) {
	c, bus := newTestCoordinator(t, 0)

	if err := c.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if bus.subscribed["homebus/registration"] != 1 {
		t.Errorf("subscribed = %v, want registration topic", bus.subscribed)
	}
	msgs := bus.on(t, "homebus/broadcast")
	if len(msgs) != 1 || !msgs[0].Retained || len(msgs[0].Payload) != 0 {
		t.Errorf("broadcast = %+v, want one empty retained message", msgs)
	}

	bus.publishErr = mqtt.ErrNotConnected
	if err := c.ClearWill(); !errors.Is(err, mqtt.ErrNotConnected) {
		t.Errorf("ClearWill() error = %v, want ErrNotConnected", err)
	}
}

func TestCoordinator_DisconnectUnknownDevice(t *testing.T) {
	c, bus := newTestCoordinator(t, 0)

	disconnectDevice(t, c, lightA)

	if len(bus.unsubscribed) != 0 {
		t.Errorf("unsubscribed = %v, want none", bus.unsubscribed)
	}
}

func TestCoordinator_ProtocolErrors(t *testing.T) {
	thermo := device.Identity{Name: "t1", Room: "Bedroom", Type: device.TypeThermometer}
	coord := &protocol.CoordinatorSender{Name: "other-hub"}

	tests := []struct {
		name    string
		topic   string
		payload func(t *testing.T) []byte
		wantErr error
		kind    string
	}{
		{
			name:    "unknown topic",
			topic:   "homebus/somewhere",
			payload: func(t *testing.T) []byte { return envelope(t, "register_A", lightA.Sender()) },
			wantErr: ErrUnexpectedTopic,
			kind:    "unexpected_topic",
		},
		{
			name:    "subscribe direction",
			topic:   "homebus/Light/A/subscribe",
			payload: func(t *testing.T) []byte { return envelope(t, "{}", lightA.Sender()) },
			wantErr: ErrUnexpectedTopic,
			kind:    "unexpected_topic",
		},
		{
			name:    "not an envelope",
			topic:   "homebus/registration",
			payload: func(*testing.T) []byte { return []byte("register_A") },
			wantErr: ErrUnexpectedMessage,
			kind:    "unexpected_message",
		},
		{
			name:    "unknown verb",
			topic:   "homebus/registration",
			payload: func(t *testing.T) []byte { return envelope(t, "hello_A", lightA.Sender()) },
			wantErr: ErrUnexpectedMessage,
			kind:    "unexpected_message",
		},
		{
			name:    "no verb separator",
			topic:   "homebus/registration",
			payload: func(t *testing.T) []byte { return envelope(t, "register", lightA.Sender()) },
			wantErr: ErrUnexpectedMessage,
			kind:    "unexpected_message",
		},
		{
			name:    "absent sender",
			topic:   "homebus/registration",
			payload: func(t *testing.T) []byte { return envelope(t, "register_A", nil) },
			wantErr: ErrUnexpectedDevice,
			kind:    "unexpected_device",
		},
		{
			name:    "coordinator sender",
			topic:   "homebus/registration",
			payload: func(t *testing.T) []byte { return envelope(t, "register_A", coord) },
			wantErr: ErrUnexpectedDevice,
			kind:    "unexpected_device",
		},
		{
			name:    "name mismatch",
			topic:   "homebus/registration",
			payload: func(t *testing.T) []byte { return envelope(t, "register_B", lightA.Sender()) },
			wantErr: ErrUnexpectedDevice,
			kind:    "unexpected_device",
		},
		{
			name:  "unknown device type",
			topic: "homebus/registration",
			payload: func(t *testing.T) []byte {
				return envelope(t, "register_x", &protocol.DeviceSender{Name: "x", Room: "R", Type: "Toaster"})
			},
			wantErr: device.ErrUnexpectedDeviceType,
			kind:    "unexpected_device_type",
		},
		{
			name:    "update from unregistered device",
			topic:   "homebus/Thermometer/t1/publish",
			payload: func(t *testing.T) []byte { return envelope(t, protocol.OneWay("update", strPtr("20")).String(), thermo.Sender()) },
			wantErr: ErrUnexpectedDevice,
			kind:    "unexpected_device",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			metrics := &fakeMetrics{}
			c, err := New(Options{Identity: "hub", Topics: topics}, Deps{Bus: newFakeBus(), Metrics: metrics})
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}

			err = c.HandleMessage(tt.topic, tt.payload(t))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("HandleMessage() error = %v, want %v", err, tt.wantErr)
			}
			if metrics.errors[tt.kind] != 1 {
				t.Errorf("protocol errors = %v, want one %s", metrics.errors, tt.kind)
			}
			if c.Registry().Count() != 0 {
				t.Error("registry changed by a rejected message")
			}
		})
	}
}

func TestCoordinator_UpdateErrors(t *testing.T) {
	c, _ := newTestCoordinator(t, 0)
	registerDevice(t, c, lightA)

	impostor := device.Identity{Name: "B", Room: "Living room", Type: device.TypeLight}
	err := c.HandleMessage("homebus/Light/A/publish", envelope(t, protocol.OneWay("turnOn", nil).String(), impostor.Sender()))
	if !errors.Is(err, ErrUnexpectedDevice) {
		t.Errorf("impostor sender error = %v, want ErrUnexpectedDevice", err)
	}

	err = c.HandleMessage("homebus/Shutter/A/publish", envelope(t, protocol.OneWay("turnOn", nil).String(), lightA.Sender()))
	if !errors.Is(err, device.ErrUnexpectedDeviceType) {
		t.Errorf("type mismatch error = %v, want ErrUnexpectedDeviceType", err)
	}

	err = c.HandleMessage("homebus/Light/A/publish", envelope(t, `{"id":null}`, lightA.Sender()))
	if !errors.Is(err, ErrUnexpectedMessage) {
		t.Errorf("malformed command error = %v, want ErrUnexpectedMessage", err)
	}
}

// ─── Requests ───────────────────────────────────────────────────────────────

func TestCoordinator_SendUpdateDeviceNotFound(t *testing.T) {
	c, bus := newTestCoordinator(t, 0)

	_, err := c.SendUpdate(context.Background(), "ghost", protocol.CommandTurnOn, nil)
	if !errors.Is(err, device.ErrDeviceNotFound) {
		t.Errorf("SendUpdate() error = %v, want ErrDeviceNotFound", err)
	}
	if c.Requests().Len() != 0 || len(bus.published) != 0 {
		t.Error("failed SendUpdate left state behind")
	}
}

func TestCoordinator_SendUpdatePublishFailure(t *testing.T) {
	c, bus := newTestCoordinator(t, 0)
	registerDevice(t, c, lightA)
	bus.publishErr = mqtt.ErrNotConnected

	_, err := c.SendUpdate(context.Background(), "A", protocol.CommandTurnOff, nil)
	if !errors.Is(err, mqtt.ErrNotConnected) {
		t.Errorf("SendUpdate() error = %v, want ErrNotConnected", err)
	}
	if c.Requests().Len() != 0 {
		t.Errorf("Requests().Len() = %d, want 0", c.Requests().Len())
	}
}

func TestCoordinator_UnrelatedAckIsNoop(t *testing.T) {
	c, _ := newTestCoordinator(t, 0)
	registerDevice(t, c, lightA)

	completion, err := c.SendUpdate(context.Background(), "A", protocol.CommandSetValue, strPtr("3"))
	if err != nil {
		t.Fatalf("SendUpdate() error = %v", err)
	}

	if err := publishFrom(t, c, lightA, protocol.Command{ID: 99, Name: protocol.CommandSetValue, Value: strPtr("3")}); err != nil {
		t.Fatalf("publish error = %v", err)
	}
	if completion.Resolved() {
		t.Error("completion resolved by unrelated id")
	}
	if c.Requests().Len() != 1 {
		t.Errorf("Requests().Len() = %d, want 1", c.Requests().Len())
	}
}

func TestCoordinator_AckFromOtherDeviceIsIgnored(t *testing.T) {
	c, _ := newTestCoordinator(t, 0)
	lightB := device.Identity{Name: "B", Room: "Living room", Type: device.TypeLight, Consumption: 5}
	registerDevice(t, c, lightA)
	registerDevice(t, c, lightB)

	completion, err := c.SendUpdate(context.Background(), "A", protocol.CommandTurnOn, nil)
	if err != nil {
		t.Fatalf("SendUpdate() error = %v", err)
	}

	if err := publishFrom(t, c, lightB, protocol.Command{ID: 1, Name: protocol.CommandTurnOn}); err != nil {
		t.Fatalf("publish from B error = %v", err)
	}
	if completion.Resolved() {
		t.Fatal("request to A resolved by B")
	}
	if a, _ := c.Registry().FindByName("A"); a.IsOn {
		t.Error("A reported on without acknowledging")
	}
	if c.Requests().Len() != 1 {
		t.Errorf("Requests().Len() = %d, want 1", c.Requests().Len())
	}

	if err := publishFrom(t, c, lightA, protocol.Command{ID: 1, Name: protocol.CommandTurnOn}); err != nil {
		t.Fatalf("publish from A error = %v", err)
	}
	if !completion.Resolved() {
		t.Error("request not resolved by its target")
	}
}

func TestCoordinator_SweepAndStop(t *testing.T) {
	c, _ := newTestCoordinator(t, time.Minute)
	registerDevice(t, c, lightA)

	first, _ := c.SendUpdate(context.Background(), "A", protocol.CommandTurnOn, nil)
	if n := c.Sweep(time.Now().Add(2 * time.Minute)); n != 1 {
		t.Fatalf("Sweep() = %d, want 1", n)
	}
	if _, err := first.Wait(context.Background()); !errors.Is(err, ErrRequestExpired) {
		t.Errorf("Wait() error = %v, want ErrRequestExpired", err)
	}

	second, _ := c.SendUpdate(context.Background(), "A", protocol.CommandTurnOn, nil)
	c.Stop()
	if _, err := second.Wait(context.Background()); !errors.Is(err, ErrShutdown) {
		t.Errorf("Wait() error = %v, want ErrShutdown", err)
	}
}

func TestCoordinator_RunStopsWithContext(t *testing.T) {
	c, _ := newTestCoordinator(t, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}

// ─── Profiles ───────────────────────────────────────────────────────────────

func TestCoordinator_SensorUpdateDrivesProfile(t *testing.T) {
	c, bus := newTestCoordinator(t, 0)

	thermo := device.Identity{Name: "thermo", Room: "Bedroom", Type: device.TypeThermometer}
	acBedroom := device.Identity{Name: "ac-bedroom", Room: "Bedroom", Type: device.TypeAirConditioner, Consumption: 900}
	acLiving := device.Identity{Name: "ac-living", Room: "Living room", Type: device.TypeAirConditioner, Consumption: 900}
	for _, id := range []device.Identity{thermo, acBedroom, acLiving} {
		registerDevice(t, c, id)
	}

	profile, err := automation.NewCustomProfile(automation.CustomSpec{
		Name: "Cool",
		Rules: map[device.Type][]automation.Rule{
			device.TypeThermometer: {
				{
					When: automation.Predicate{Op: automation.OpGreaterEqual, Threshold: 25},
					Commands: automation.CommandSet{
						{Target: "ac-bedroom", Action: automation.Action{Name: protocol.CommandTurnOff}},
						{Target: "ac-living", Action: automation.Action{Name: protocol.CommandTurnOff}},
					},
				},
				{When: automation.Predicate{Op: automation.OpLess, Threshold: 25}},
			},
		},
	})
	if err != nil {
		t.Fatalf("NewCustomProfile() error = %v", err)
	}
	c.Engine().Activate(context.Background(), profile)

	if err := publishFrom(t, c, thermo, protocol.OneWay(protocol.CommandUpdate, strPtr("30"))); err != nil {
		t.Fatalf("sensor update error = %v", err)
	}

	bedroom := bus.on(t, "homebus/AirConditioner/ac-bedroom/subscribe")
	cmd, err := protocol.ParseCommand(body(t, bedroom[len(bedroom)-1]))
	if err != nil || cmd.Name != protocol.CommandTurnOff || cmd.AwaitsAck() {
		t.Errorf("ac-bedroom last command = %+v, %v, want one-way turnOff", cmd, err)
	}
	if living := bus.on(t, "homebus/AirConditioner/ac-living/subscribe"); len(living) != 1 {
		t.Errorf("ac-living messages = %d, want only its registration ack", len(living))
	}

	rec, _ := c.Registry().FindByName("thermo")
	if rec.Value == nil || *rec.Value != "30" {
		t.Errorf("thermometer value = %v, want 30", rec.Value)
	}
}

func TestCoordinator_BadSensorReading(t *testing.T) {
	c, _ := newTestCoordinator(t, 0)
	motion := device.Identity{Name: "pir", Room: "Hall", Type: device.TypeMotionSensor}
	registerDevice(t, c, motion)

	err := publishFrom(t, c, motion, protocol.OneWay(protocol.CommandUpdate, strPtr("perhaps")))
	if !errors.Is(err, automation.ErrUnexpectedValue) {
		t.Errorf("error = %v, want ErrUnexpectedValue", err)
	}
}

func TestWill(t *testing.T) {
	will, err := Will(topics, "hub", 1)
	if err != nil {
		t.Fatalf("Will() error = %v", err)
	}
	if will.Topic != "homebus/broadcast" || !will.Retained || will.QoS != 1 {
		t.Errorf("Will() = %+v", will)
	}

	sender, err := protocol.DecodeSender[*protocol.CoordinatorSender](will.Payload)
	if err != nil || sender == nil || sender.Name != "hub" {
		t.Errorf("will sender = %+v, %v", sender, err)
	}
	if p, _ := protocol.DecodePayload(will.Payload); p == nil || *p != "disconnected_hub" {
		t.Errorf("will payload = %v", p)
	}
}

func TestNew_RequiresBus(t *testing.T) {
	if _, err := New(Options{Identity: "hub"}, Deps{}); err == nil {
		t.Error("New() without bus succeeded")
	}
	if _, err := New(Options{}, Deps{Bus: newFakeBus()}); err == nil {
		t.Error("New() without identity succeeded")
	}
}

func TestCoordinator_ActivateProfile(t *testing.T) {
	c, bus := newTestCoordinator(t, 0)
	ctx := context.Background()
	registerDevice(t, c, lightA)

	changed, err := c.ActivateProfile(ctx, "Night")
	if err != nil || !changed {
		t.Fatalf("ActivateProfile(Night) = %v, %v", changed, err)
	}
	sent := bus.on(t, "homebus/Light/A/subscribe")
	cmd, err := protocol.ParseCommand(body(t, sent[len(sent)-1]))
	if err != nil || cmd.Name != protocol.CommandTurnOff {
		t.Errorf("light A last command = %+v, %v, want turnOff", cmd, err)
	}

	if changed, _ := c.ActivateProfile(ctx, "Night"); changed {
		t.Error("second ActivateProfile(Night) reported a change")
	}
	if _, err := c.ActivateProfile(ctx, "Party"); !errors.Is(err, automation.ErrUnexpectedProfile) {
		t.Errorf("ActivateProfile(Party) error = %v, want ErrUnexpectedProfile", err)
	}
}

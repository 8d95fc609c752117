package protocol

// SenderKind is the discriminant of the sender tagged union.
type SenderKind string

// Sender kinds.
const (
	KindDevice      SenderKind = "device"
	KindCoordinator SenderKind = "coordinator"
)

// Sender identifies who produced an envelope.
//
// Implemented by *DeviceSender and *CoordinatorSender only.
type Sender interface {
	Kind() SenderKind
	ID() string
	sealed()
}

// DeviceSender is the public identity snapshot of a device.
type DeviceSender struct {
	Name        string  `json:"name"`
	Room        string  `json:"room"`
	Type        string  `json:"type"`
	Consumption float64 `json:"consumption"`
}

// Kind implements Sender.
func (*DeviceSender) Kind() SenderKind { return KindDevice }

// ID implements Sender.
func (d *DeviceSender) ID() string { return d.Name }

func (*DeviceSender) sealed() {}

// CoordinatorSender identifies the coordinator.
type CoordinatorSender struct {
	Name string `json:"name"`
}

// Kind implements Sender.
func (*CoordinatorSender) Kind() SenderKind { return KindCoordinator }

// ID implements Sender.
func (c *CoordinatorSender) ID() string { return c.Name }

func (*CoordinatorSender) sealed() {}

// wireSender is the JSON form of a Sender. Exactly one of Device and
// Coordinator is set, matching Kind.
type wireSender struct {
	Kind        SenderKind         `json:"kind"`
	Device      *DeviceSender      `json:"device,omitempty"`
	Coordinator *CoordinatorSender `json:"coordinator,omitempty"`
}

// toWire converts a Sender for encoding. A nil sender, including a typed
// nil pointer, encodes as null.
func toWire(s Sender) *wireSender {
	switch v := s.(type) {
	case *DeviceSender:
		if v == nil {
			return nil
		}
		cp := *v
		return &wireSender{Kind: KindDevice, Device: &cp}
	case *CoordinatorSender:
		if v == nil {
			return nil
		}
		cp := *v
		return &wireSender{Kind: KindCoordinator, Coordinator: &cp}
	default:
		return nil
	}
}

// fromWire rebuilds the typed sender by switching on the discriminant.
func fromWire(w *wireSender) (Sender, error) {
	if w == nil {
		return nil, nil
	}

	switch w.Kind {
	case KindDevice:
		if w.Device == nil {
			return nil, ErrMalformedEnvelope
		}
		return w.Device, nil
	case KindCoordinator:
		if w.Coordinator == nil {
			return nil, ErrMalformedEnvelope
		}
		return w.Coordinator, nil
	default:
		return nil, ErrUnexpectedSender
	}
}

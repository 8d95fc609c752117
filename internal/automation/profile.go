package automation

import (
	"context"

	"github.com/nerrad567/homebus/internal/device"
)

// Kind distinguishes profile variants.
type Kind string

// Profile kinds.
const (
	KindBasic  Kind = "basic"
	KindCustom Kind = "custom"
)

// Applier is what a profile needs from the engine to act on the house.
type Applier interface {
	// Devices returns the registered devices.
	Devices() []device.Device

	// ApplyCommands sends every command in set to its target, restricted
	// to devices passing filter, and returns how many commands were sent.
	ApplyCommands(ctx context.Context, set CommandSet, filter RoomFilter) int
}

// Profile is a named behaviour for the house. Profiles are immutable and
// compared by name.
type Profile interface {
	Name() string
	Description() string
	Kind() Kind

	// OnActivate runs once when the profile becomes active.
	OnActivate(ctx context.Context, a Applier)

	// OnNotification reacts to a sensor reading.
	OnNotification(ctx context.Context, a Applier, n Notification)
}

// BasicProfile runs fixed, device-type based routines over every device.
type BasicProfile struct {
	name        string
	description string
	activation  TypeActions
	sensors     map[device.Type]TypeActions
}

// NewBasicProfile creates a BasicProfile.
// sensors maps a sensor kind to the routine its notifications trigger.
func NewBasicProfile(name, description string, activation TypeActions, sensors map[device.Type]TypeActions) *BasicProfile {
	return &BasicProfile{
		name:        name,
		description: description,
		activation:  activation,
		sensors:     sensors,
	}
}

// Name implements Profile.
func (p *BasicProfile) Name() string { return p.name }

// Description implements Profile.
func (p *BasicProfile) Description() string { return p.description }

// Kind implements Profile.
func (p *BasicProfile) Kind() Kind { return KindBasic }

// OnActivate implements Profile.
func (p *BasicProfile) OnActivate(ctx context.Context, a Applier) {
	p.run(ctx, a, p.activation)
}

// OnNotification implements Profile. Motion readings of false are ignored.
func (p *BasicProfile) OnNotification(ctx context.Context, a Applier, n Notification) {
	if n.Kind == device.TypeMotionSensor && !n.Motion {
		return
	}
	p.run(ctx, a, p.sensors[n.Kind])
}

func (p *BasicProfile) run(ctx context.Context, a Applier, routine TypeActions) {
	if len(routine) == 0 {
		return
	}
	a.ApplyCommands(ctx, routine.Bind(a.Devices()), AllRooms)
}

// CustomSpec describes a CustomProfile.
type CustomSpec struct {
	Name        string
	Description string

	// Activation is applied unconditionally to every room.
	Activation CommandSet

	// Rules holds the ordered rules for Thermometer, Hygrometer and Photometer.
	Rules map[device.Type][]Rule

	// Motion is applied to the notifying room when motion is detected.
	Motion CommandSet
}

// CustomProfile is a user-defined rule table.
type CustomProfile struct {
	spec CustomSpec
}

// NewCustomProfile validates spec and freezes a copy of it.
func NewCustomProfile(spec CustomSpec) (*CustomProfile, error) {
	if err := ValidateCustomSpec(spec); err != nil {
		return nil, err
	}
	return &CustomProfile{spec: copySpec(spec)}, nil
}

// Name implements Profile.
func (p *CustomProfile) Name() string { return p.spec.Name }

// Description implements Profile.
func (p *CustomProfile) Description() string { return p.spec.Description }

// Kind implements Profile.
func (p *CustomProfile) Kind() Kind { return KindCustom }

// Spec returns a copy of the profile definition.
func (p *CustomProfile) Spec() CustomSpec {
	return copySpec(p.spec)
}

// OnActivate implements Profile.
func (p *CustomProfile) OnActivate(ctx context.Context, a Applier) {
	if len(p.spec.Activation) == 0 {
		return
	}
	a.ApplyCommands(ctx, p.spec.Activation, AllRooms)
}

// OnNotification implements Profile.
func (p *CustomProfile) OnNotification(ctx context.Context, a Applier, n Notification) {
	if n.Kind == device.TypeMotionSensor {
		if n.Motion && len(p.spec.Motion) > 0 {
			a.ApplyCommands(ctx, p.spec.Motion, InRoom(n.Room))
		}
		return
	}
	p.checkAndApply(ctx, a, p.spec.Rules[n.Kind], n)
}

// checkAndApply fires the first rule whose predicate holds, scoped to the
// notifying room. Later rules are not evaluated.
func (p *CustomProfile) checkAndApply(ctx context.Context, a Applier, rules []Rule, n Notification) {
	for _, r := range rules {
		if r.When.Eval(n.Value) {
			a.ApplyCommands(ctx, r.Commands, InRoom(n.Room))
			return
		}
	}
}

func copySpec(s CustomSpec) CustomSpec {
	out := CustomSpec{
		Name:        s.Name,
		Description: s.Description,
		Activation:  copySet(s.Activation),
		Motion:      copySet(s.Motion),
	}
	if s.Rules != nil {
		out.Rules = make(map[device.Type][]Rule, len(s.Rules))
		for k, rules := range s.Rules {
			cp := make([]Rule, len(rules))
			for i, r := range rules {
				cp[i] = Rule{When: r.When, Commands: copySet(r.Commands)}
			}
			out.Rules[k] = cp
		}
	}
	return out
}

func copySet(s CommandSet) CommandSet {
	if s == nil {
		return nil
	}
	out := make(CommandSet, len(s))
	copy(out, s)
	return out
}

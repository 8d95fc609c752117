package automation

import (
	"fmt"
	"strings"

	"github.com/nerrad567/homebus/internal/device"
	"github.com/nerrad567/homebus/internal/infrastructure/config"
	"github.com/nerrad567/homebus/internal/protocol"
)

// Validation constants.
const (
	maxNameLength     = 100
	maxDescriptionLen = 500
	maxRulesPerKind   = 50
)

// ValidateCustomSpec checks a custom profile definition.
func ValidateCustomSpec(s CustomSpec) error {
	name := strings.TrimSpace(s.Name)
	if name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidProfile)
	}
	if len(s.Name) > maxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidProfile, maxNameLength)
	}
	if len(s.Description) > maxDescriptionLen {
		return fmt.Errorf("%w: description exceeds %d characters", ErrInvalidProfile, maxDescriptionLen)
	}

	if err := validateSet(s.Activation); err != nil {
		return fmt.Errorf("activation: %w", err)
	}
	if err := validateSet(s.Motion); err != nil {
		return fmt.Errorf("motion: %w", err)
	}

	for kind, rules := range s.Rules {
		switch kind {
		case device.TypeThermometer, device.TypeHygrometer, device.TypePhotometer:
		default:
			return fmt.Errorf("%w: rules for %q, want Thermometer, Hygrometer or Photometer", ErrInvalidProfile, kind)
		}
		if len(rules) > maxRulesPerKind {
			return fmt.Errorf("%w: %s has more than %d rules", ErrInvalidProfile, kind, maxRulesPerKind)
		}
		for i, r := range rules {
			if _, err := NewPredicate(string(r.When.Op), r.When.Threshold); err != nil {
				return fmt.Errorf("%s rule %d: %w", kind, i, err)
			}
			if err := validateSet(r.Commands); err != nil {
				return fmt.Errorf("%s rule %d: %w", kind, i, err)
			}
		}
	}
	return nil
}

func validateSet(set CommandSet) error {
	for _, c := range set {
		if c.Target == "" {
			return fmt.Errorf("%w: command %q has no target device", ErrInvalidProfile, c.Action.Name)
		}
		switch c.Action.Name {
		case protocol.CommandTurnOn, protocol.CommandTurnOff:
		case protocol.CommandSetValue:
			if c.Action.Value == nil {
				return fmt.Errorf("%w: setValue on %s needs a value", ErrInvalidProfile, c.Target)
			}
		default:
			return fmt.Errorf("%w: command %q", ErrUnexpectedValue, c.Action.Name)
		}
	}
	return nil
}

// FromConfig converts a profile declared in homebus.yaml or posted to the
// API into a CustomProfile.
func FromConfig(pc config.ProfileConfig) (*CustomProfile, error) {
	spec := CustomSpec{
		Name:        pc.Name,
		Description: pc.Description,
		Activation:  commandsFromConfig(pc.Activation),
		Motion:      commandsFromConfig(pc.Motion),
		Rules:       make(map[device.Type][]Rule),
	}

	kinds := []struct {
		kind  device.Type
		rules []config.RuleConfig
	}{
		{device.TypeThermometer, pc.Thermometer},
		{device.TypeHygrometer, pc.Hygrometer},
		{device.TypePhotometer, pc.Photometer},
	}
	for _, k := range kinds {
		for i, rc := range k.rules {
			pred, err := ParsePredicate(rc.When)
			if err != nil {
				return nil, fmt.Errorf("profile %q %s rule %d: %w", pc.Name, k.kind, i, err)
			}
			spec.Rules[k.kind] = append(spec.Rules[k.kind], Rule{
				When:     pred,
				Commands: commandsFromConfig(rc.Commands),
			})
		}
	}

	p, err := NewCustomProfile(spec)
	if err != nil {
		return nil, fmt.Errorf("profile %q: %w", pc.Name, err)
	}
	return p, nil
}

func commandsFromConfig(ccs []config.CommandConfig) CommandSet {
	if len(ccs) == 0 {
		return nil
	}
	set := make(CommandSet, 0, len(ccs))
	for _, cc := range ccs {
		set = append(set, Command{
			Target: cc.Device,
			Action: Action{Name: cc.Command, Value: cc.Value},
		})
	}
	return set
}

// LoadCatalogue builds a catalogue holding the built-ins followed by the
// configured custom profiles.
func LoadCatalogue(profiles []config.ProfileConfig) (*Catalogue, error) {
	c := NewCatalogue()
	for _, pc := range profiles {
		p, err := FromConfig(pc)
		if err != nil {
			return nil, err
		}
		if err := c.Add(p); err != nil {
			return nil, err
		}
	}
	return c, nil
}

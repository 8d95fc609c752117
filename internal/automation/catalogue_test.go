package automation

import (
	"errors"
	"math"
	"testing"

	"github.com/nerrad567/homebus/internal/device"
	"github.com/nerrad567/homebus/internal/infrastructure/config"
)

func TestCatalogue_BuiltinsAndOrder(t *testing.T) {
	c := NewCatalogue()

	custom, err := NewCustomProfile(CustomSpec{Name: "Away"})
	if err != nil {
		t.Fatalf("NewCustomProfile() error = %v", err)
	}
	if err := c.Add(custom); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	want := []string{DefaultProfileName, NightProfileName, "Away"}
	got := c.List()
	if len(got) != len(want) {
		t.Fatalf("List() len = %d, want %d", len(got), len(want))
	}
	for i, name := range want {
		if got[i].Name() != name {
			t.Errorf("List()[%d] = %q, want %q", i, got[i].Name(), name)
		}
	}

	if err := c.Add(NightProfile()); !errors.Is(err, ErrProfileExists) {
		t.Errorf("Add(duplicate) error = %v, want ErrProfileExists", err)
	}
	if _, err := c.Get("Missing"); !errors.Is(err, ErrUnexpectedProfile) {
		t.Errorf("Get(missing) error = %v, want ErrUnexpectedProfile", err)
	}
}

func TestValidateCustomSpec(t *testing.T) {
	tests := []struct {
		name    string
		spec    CustomSpec
		wantErr error
	}{
		{"minimal", CustomSpec{Name: "x"}, nil},
		{"missing name", CustomSpec{}, ErrInvalidProfile},
		{"rules on actuator", CustomSpec{Name: "x", Rules: map[device.Type][]Rule{device.TypeLight: nil}}, ErrInvalidProfile},
		{"rules on motion", CustomSpec{Name: "x", Rules: map[device.Type][]Rule{device.TypeMotionSensor: nil}}, ErrInvalidProfile},
		{"untargeted command", CustomSpec{Name: "x", Motion: CommandSet{{Action: turnOn}}}, ErrInvalidProfile},
		{"unknown command", CustomSpec{Name: "x", Activation: CommandSet{{Target: "a", Action: Action{Name: "explode"}}}}, ErrUnexpectedValue},
		{"setValue without value", CustomSpec{Name: "x", Activation: CommandSet{{Target: "a", Action: Action{Name: "setValue"}}}}, ErrInvalidProfile},
		{"nan threshold", CustomSpec{Name: "x", Rules: map[device.Type][]Rule{device.TypeThermometer: {{When: Predicate{Op: OpLess, Threshold: math.NaN()}}}}}, ErrUnexpectedValue},
		{"bad operator", CustomSpec{Name: "x", Rules: map[device.Type][]Rule{
			device.TypeThermometer: {{When: Predicate{Op: "=<"}}},
		}}, ErrUnexpectedValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCustomSpec(tt.spec)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateCustomSpec() error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateCustomSpec() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestFromConfig(t *testing.T) {
	v := "40"
	pc := config.ProfileConfig{
		Name:        "Summer",
		Description: "keep cool",
		Activation:  []config.CommandConfig{{Device: "shutter", Command: "setValue", Value: &v}},
		Thermometer: []config.RuleConfig{
			{When: ">= 25", Commands: []config.CommandConfig{{Device: "ac", Command: "turnOn"}}},
			{When: "< 20", Commands: []config.CommandConfig{{Device: "ac", Command: "turnOff"}}},
		},
		Motion: []config.CommandConfig{{Device: "lamp", Command: "turnOn"}},
	}

	p, err := FromConfig(pc)
	if err != nil {
		t.Fatalf("FromConfig() error = %v", err)
	}
	spec := p.Spec()
	if spec.Name != "Summer" || len(spec.Activation) != 1 || len(spec.Motion) != 1 {
		t.Errorf("Spec() = %+v", spec)
	}
	rules := spec.Rules[device.TypeThermometer]
	if len(rules) != 2 || rules[0].When != (Predicate{OpGreaterEqual, 25}) || rules[1].When != (Predicate{OpLess, 20}) {
		t.Errorf("thermometer rules = %+v, want insertion order preserved", rules)
	}

	pc.Thermometer[0].When = "≈ 25"
	if _, err := FromConfig(pc); !errors.Is(err, ErrUnexpectedValue) {
		t.Errorf("FromConfig(bad predicate) error = %v, want ErrUnexpectedValue", err)
	}
}

func TestLoadCatalogue(t *testing.T) {
	c, err := LoadCatalogue([]config.ProfileConfig{{Name: "Away"}, {Name: "Party"}})
	if err != nil {
		t.Fatalf("LoadCatalogue() error = %v", err)
	}
	if c.Len() != 4 {
		t.Errorf("Len() = %d, want 4", c.Len())
	}

	if _, err := LoadCatalogue([]config.ProfileConfig{{Name: NightProfileName}}); !errors.Is(err, ErrProfileExists) {
		t.Errorf("LoadCatalogue(shadowing Night) error = %v, want ErrProfileExists", err)
	}
}

func TestCustomProfile_SpecIsCopied(t *testing.T) {
	set := CommandSet{{Target: "a", Action: turnOn}}
	p, err := NewCustomProfile(CustomSpec{Name: "x", Activation: set})
	if err != nil {
		t.Fatalf("NewCustomProfile() error = %v", err)
	}
	set[0].Target = "mutated"

	if got := p.Spec().Activation[0].Target; got != "a" {
		t.Errorf("activation target = %q, want profile unaffected by caller mutation", got)
	}
}

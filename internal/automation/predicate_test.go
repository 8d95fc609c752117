package automation

import (
	"errors"
	"math"
	"testing"

	"github.com/nerrad567/homebus/internal/device"
)

func TestPredicate_Eval(t *testing.T) {
	tests := []struct {
		op   Operator
		v    float64
		want bool
	}{
		{OpLess, 24.9, true},
		{OpLess, 25, false},
		{OpLessEqual, 25, true},
		{OpEqual, 25, true},
		{OpEqual, 25.1, false},
		{OpGreaterEqual, 25, true},
		{OpGreaterEqual, 24, false},
		{OpGreater, 25, false},
		{OpGreater, 26, true},
		{OpNotEqual, 25, false},
		{OpNotEqual, 3, true},
		{Operator("~"), 25, false},
	}

	for _, tt := range tests {
		p := Predicate{Op: tt.op, Threshold: 25}
		if got := p.Eval(tt.v); got != tt.want {
			t.Errorf("%s.Eval(%v) = %v, want %v", p, tt.v, got, tt.want)
		}
	}
}

func TestParsePredicate(t *testing.T) {
	tests := []struct {
		expr    string
		want    Predicate
		wantErr bool
	}{
		{">= 25", Predicate{OpGreaterEqual, 25}, false},
		{"<18.5", Predicate{OpLess, 18.5}, false},
		{" != -3 ", Predicate{OpNotEqual, -3}, false},
		{"== 0", Predicate{OpEqual, 0}, false},
		{"=> 25", Predicate{}, true},
		{"<> 25", Predicate{}, true},
		{"25", Predicate{}, true},
		{">= warm", Predicate{}, true},
		{"< NaN", Predicate{}, true},
		{"> Inf", Predicate{}, true},
		{">= -Inf", Predicate{}, true},
		{"", Predicate{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := ParsePredicate(tt.expr)
			if tt.wantErr {
				if !errors.Is(err, ErrUnexpectedValue) {
					t.Errorf("ParsePredicate(%q) error = %v, want ErrUnexpectedValue", tt.expr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParsePredicate(%q) error = %v", tt.expr, err)
			}
			if got != tt.want {
				t.Errorf("ParsePredicate(%q) = %+v, want %+v", tt.expr, got, tt.want)
			}
		})
	}
}

func TestNewPredicate_InvalidSymbol(t *testing.T) {
	if _, err := NewPredicate("≥", 1); !errors.Is(err, ErrUnexpectedValue) {
		t.Errorf("NewPredicate(≥) error = %v, want ErrUnexpectedValue", err)
	}
}

func TestNewPredicate_NonFiniteThreshold(t *testing.T) {
	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		if _, err := NewPredicate("<", v); !errors.Is(err, ErrUnexpectedValue) {
			t.Errorf("NewPredicate(<, %v) error = %v, want ErrUnexpectedValue", v, err)
		}
	}
}

func TestNewNotification(t *testing.T) {
	tests := []struct {
		name    string
		kind    device.Type
		raw     string
		want    Notification
		wantErr error
	}{
		{"temperature", device.TypeThermometer, "21.5", Notification{Kind: device.TypeThermometer, Room: "R", Value: 21.5}, nil},
		{"motion", device.TypeMotionSensor, "true", Notification{Kind: device.TypeMotionSensor, Room: "R", Motion: true}, nil},
		{"bad number", device.TypeHygrometer, "humid", Notification{}, ErrUnexpectedValue},
		{"bad bool", device.TypeMotionSensor, "maybe", Notification{}, ErrUnexpectedValue},
		{"nan reading", device.TypeThermometer, "NaN", Notification{}, ErrUnexpectedValue},
		{"infinite reading", device.TypePhotometer, "+Inf", Notification{}, ErrUnexpectedValue},
		{"not a sensor", device.TypeOven, "200", Notification{}, device.ErrUnexpectedDeviceType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewNotification(tt.kind, "R", tt.raw)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("NewNotification() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("NewNotification() = %+v, %v, want %+v", got, err, tt.want)
			}
		})
	}
}

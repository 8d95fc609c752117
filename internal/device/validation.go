package device

import (
	"fmt"
	"strings"

	"github.com/nerrad567/homebus/internal/protocol"
)

const maxNameLength = 100

// validTypes is the lookup set behind ParseType.
var validTypes map[Type]struct{}

func init() {
	validTypes = make(map[Type]struct{}, len(AllTypes()))
	for _, t := range AllTypes() {
		validTypes[t] = struct{}{}
	}
}

// ParseType converts a wire string into a Type.
// Matching is exact; "light" is not "Light".
func ParseType(s string) (Type, error) {
	t := Type(s)
	if _, ok := validTypes[t]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnexpectedDeviceType, s)
	}
	return t, nil
}

// ValidateName checks a device or room name.
// Names become MQTT topic levels, so wildcards and separators are rejected.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidName)
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidName, maxNameLength)
	}
	if strings.ContainsAny(name, "/+#") {
		return fmt.Errorf("%w: %q contains a topic separator or wildcard", ErrInvalidName, name)
	}
	return nil
}

// ValidateIdentity checks every field of an identity.
func ValidateIdentity(id Identity) error {
	if err := ValidateName(id.Name); err != nil {
		return err
	}
	if strings.TrimSpace(id.Room) == "" {
		return fmt.Errorf("%w: room is required", ErrInvalidDevice)
	}
	if _, err := ParseType(string(id.Type)); err != nil {
		return err
	}
	if id.Consumption < 0 {
		return fmt.Errorf("%w: consumption %v is negative", ErrInvalidDevice, id.Consumption)
	}
	return nil
}

// IdentityFromSender validates an envelope sender and converts it.
//
// Returns ErrUnexpectedDeviceType for an unknown type and ErrInvalidDevice
// or ErrInvalidName for other malformed fields.
func IdentityFromSender(s *protocol.DeviceSender) (Identity, error) {
	if s == nil {
		return Identity{}, fmt.Errorf("%w: no sender", ErrInvalidDevice)
	}
	id := Identity{
		Name:        s.Name,
		Room:        s.Room,
		Type:        Type(s.Type),
		Consumption: s.Consumption,
	}
	if err := ValidateIdentity(id); err != nil {
		return Identity{}, err
	}
	return id, nil
}

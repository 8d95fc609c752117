package automation

import "errors"

// Domain errors for the automation package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, automation.ErrUnexpectedProfile) {
//	    // handle unknown profile name
//	}
var (
	// ErrUnexpectedProfile is returned when a profile name is not in the catalogue.
	ErrUnexpectedProfile = errors.New("profile: unexpected profile")

	// ErrUnexpectedValue is returned for an invalid predicate symbol or an
	// unparsable sensor reading.
	ErrUnexpectedValue = errors.New("profile: unexpected value")

	// ErrProfileExists is returned when adding a profile whose name is taken.
	ErrProfileExists = errors.New("profile: already exists")

	// ErrInvalidProfile is returned when a profile definition fails validation.
	ErrInvalidProfile = errors.New("profile: invalid")
)

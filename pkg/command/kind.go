package command

import (
	"fmt"
	"strings"
)

// Kind is the type of effect a command produces on a device.
type Kind string

const (
	KindShock   Kind = "shock"
	KindVibrate Kind = "vibrate"
	KindSound   Kind = "sound"
)

// Kinds lists every known kind in a stable order.
func Kinds() []Kind {
	return []Kind{KindShock, KindVibrate, KindSound}
}

// ParseKind normalizes s to lower case and returns the matching Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
	return k, nil
}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindShock, KindVibrate, KindSound:
		return true
	default:
		return false
	}
}

func (k Kind) String() string {
	return string(k)
}

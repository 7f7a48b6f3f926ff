// Package command defines the unit of device interaction: a closed set of
// command kinds and the immutable Command value sent to an actuator.
//
// Kinds are parsed case-insensitively because upstream event sources (gift
// handlers, chat commands, minigame payouts) do not agree on casing:
//
//	cmd, err := command.New("Vibrate", "device-1", 40, 1000)
//	if err != nil {
//		// command.ErrUnknownKind or command.ErrInvalidIntensity
//	}
//
// Validation happens once, at construction. A Command is never mutated after
// that; WithIntensity, WithDuration and WithDevice return modified copies,
// which is how safety checkers hand back an adjusted command.
package command

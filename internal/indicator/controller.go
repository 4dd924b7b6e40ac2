// Package indicator drives a board status LED from camera acquisition state.
package indicator

// Patterns understood by every controller.
const (
	PatternSolid     = "solid"
	PatternBlink     = "blink"
	PatternHeartbeat = "heartbeat"
)

// Controller abstracts LED hardware across boards.
type Controller interface {
	// Set switches an LED on or off. pattern is one of Patterns, or empty
	// to leave the current pattern unchanged.
	Set(led string, on bool, pattern string) error

	// Available lists the LED names this board exposes.
	Available() []string

	// Patterns lists the supported patterns.
	Patterns() []string
}

package indicator

import "github.com/smazurov/grabnode/internal/logging"

// noop is used on boards without a known LED.
type noop struct {
	logger logging.Logger
}

func newNoop(logger logging.Logger) *noop {
	return &noop{logger: logger}
}

func (n *noop) Set(led string, on bool, pattern string) error {
	n.logger.Debug("LED control not available", "led", led, "on", on, "pattern", pattern)
	return nil
}

func (n *noop) Available() []string { return nil }

func (n *noop) Patterns() []string { return nil }

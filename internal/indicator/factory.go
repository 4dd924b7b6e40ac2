package indicator

import (
	"os"
	"strings"

	"github.com/smazurov/grabnode/internal/logging"
)

const deviceTreeModelPath = "/proc/device-tree/model"

// board maps a device-tree model substring to its LEDs. The first LED is the
// one the status Manager drives by default.
type board struct {
	match string
	leds  map[string]string
	main  string
}

var boards = []board{
	{match: "NanoPC-T6", leds: map[string]string{"user": "usr_led", "system": "sys_led"}, main: "system"},
	{match: "Orange Pi", leds: map[string]string{"blue": "blue_led", "green": "green_led"}, main: "green"},
	{match: "Raspberry Pi", leds: map[string]string{"act": "ACT"}, main: "act"},
}

// New detects the board and returns its controller along with the LED the
// status Manager should drive. Unknown boards get a no-op controller.
func New(logger logging.Logger) (Controller, string) {
	return forModel(detectBoard(), sysfsLEDPath, logger)
}

func forModel(model, root string, logger logging.Logger) (Controller, string) {
	for _, b := range boards {
		if strings.Contains(model, b.match) {
			logger.Info("Detected board with LED support", "board_model", model, "led", b.main)
			return newSysfs(root, b.leds), b.main
		}
	}
	logger.Info("No LED support detected, using no-op controller", "board_model", model)
	return newNoop(logger), ""
}

// detectBoard reads the device tree model, which is NUL-terminated.
func detectBoard() string {
	data, err := os.ReadFile(deviceTreeModelPath)
	if err != nil {
		return "unknown"
	}
	return strings.TrimRight(string(data), "\x00")
}

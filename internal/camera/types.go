package camera

import (
	"fmt"
	"strings"
	"time"
)

// Geometry defaults.
const (
	DefaultWidth   = 5120
	DefaultHeight  = 5120
	DefaultChannel = 1

	DefaultViewportWidth  = 192
	DefaultViewportHeight = 108
	DefaultViewportScale  = 1
)

// Frame is one image delivered by a provider. The core never inspects it.
type Frame struct {
	Width     int
	Height    int
	Channels  int
	Data      []byte
	Seq       uint64
	Timestamp time.Time
}

// FrameFunc receives frames from a provider.
type FrameFunc func(Frame)

// Handler receives frames delivered to a subscription.
type Handler func(frame Frame, sub *Subscription)

// AcquisitionMode selects how the device is triggered.
type AcquisitionMode int

// Acquisition modes.
const (
	InternalTrigger AcquisitionMode = iota
	ExternalTrigger
	SingleShot
)

func (m AcquisitionMode) String() string {
	switch m {
	case InternalTrigger:
		return "internal"
	case ExternalTrigger:
		return "external"
	case SingleShot:
		return "single"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Label returns a display name for the mode.
func (m AcquisitionMode) Label() string {
	switch m {
	case InternalTrigger:
		return "Internal trigger"
	case ExternalTrigger:
		return "External trigger"
	case SingleShot:
		return "Single shot"
	default:
		return m.String()
	}
}

// Modes lists every acquisition mode in declaration order.
func Modes() []AcquisitionMode {
	return []AcquisitionMode{InternalTrigger, ExternalTrigger, SingleShot}
}

// ParseAcquisitionMode parses the String form of a mode. Empty means InternalTrigger.
func ParseAcquisitionMode(s string) (AcquisitionMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "internal", "grabinternal":
		return InternalTrigger, nil
	case "external", "grabexternal":
		return ExternalTrigger, nil
	case "single", "singleshot":
		return SingleShot, nil
	default:
		return InternalTrigger, fmt.Errorf("unknown acquisition mode %q", s)
	}
}

// Identity describes a camera at construction. Zero geometry gets defaults.
type Identity struct {
	ID      int
	Model   string
	Serial  string
	Name    string
	Width   int
	Height  int
	Channel int
}

// Viewport is the cropped and scaled region delivered to a subscription.
type Viewport struct {
	Width  int     `json:"width"`
	Height int     `json:"height"`
	Scale  float64 `json:"scale"`
	Dx     int     `json:"dx"`
	Dy     int     `json:"dy"`
}

// DefaultViewport returns the viewport of a new subscription.
func DefaultViewport() Viewport {
	return Viewport{
		Width:  DefaultViewportWidth,
		Height: DefaultViewportHeight,
		Scale:  DefaultViewportScale,
	}
}

// ParseViewport reads a positional [width, height, scale, dx, dy] list.
func ParseViewport(values []float64) (Viewport, error) {
	if len(values) != 5 {
		return Viewport{}, fmt.Errorf("viewport needs 5 values [width, height, scale, dx, dy], got %d", len(values))
	}
	return Viewport{
		Width:  int(values[0]),
		Height: int(values[1]),
		Scale:  values[2],
		Dx:     int(values[3]),
		Dy:     int(values[4]),
	}, nil
}

// Values returns the viewport in positional form.
func (v Viewport) Values() []float64 {
	return []float64{float64(v.Width), float64(v.Height), v.Scale, float64(v.Dx), float64(v.Dy)}
}

// Package inventory describes the cameras a node runs and persists them as TOML.
package inventory

import (
	"errors"
	"fmt"

	"github.com/smazurov/grabnode/internal/camera"
)

// Camera is one configured camera.
type Camera struct {
	ID            int            `toml:"id" json:"id"`
	Model         string         `toml:"model" json:"model"`
	Serial        string         `toml:"serial" json:"serial"`
	Name          string         `toml:"name,omitempty" json:"name,omitempty"`
	Width         int            `toml:"width,omitempty" json:"width,omitempty"`
	Height        int            `toml:"height,omitempty" json:"height,omitempty"`
	Channel       int            `toml:"channel,omitempty" json:"channel,omitempty"`
	Mode          string         `toml:"mode,omitempty" json:"mode,omitempty"`
	Exposure      float64        `toml:"exposure,omitempty" json:"exposure,omitempty"`
	Distortion    []float64      `toml:"distortion,omitempty" json:"distortion,omitempty"`
	Subscriptions []Subscription `toml:"subscriptions,omitempty" json:"subscriptions,omitempty"`
}

// Subscription is one configured feed of a camera.
type Subscription struct {
	Name string `toml:"name" json:"name"`
	// Viewport is [width, height, scale, dx, dy]. Empty means the default viewport.
	Viewport  []float64 `toml:"viewport,omitempty" json:"viewport,omitempty"`
	Autostart bool      `toml:"autostart,omitempty" json:"autostart,omitempty"`
	Silent    bool      `toml:"silent,omitempty" json:"silent,omitempty"`
}

// Identity converts c to a camera identity.
func (c Camera) Identity() camera.Identity {
	return camera.Identity{
		ID:      c.ID,
		Model:   c.Model,
		Serial:  c.Serial,
		Name:    c.Name,
		Width:   c.Width,
		Height:  c.Height,
		Channel: c.Channel,
	}
}

// AcquisitionMode parses Mode. Empty means internal trigger.
func (c Camera) AcquisitionMode() (camera.AcquisitionMode, error) {
	return camera.ParseAcquisitionMode(c.Mode)
}

// ViewportOrDefault parses Viewport, falling back to the default viewport
// when none is configured.
func (s Subscription) ViewportOrDefault() (camera.Viewport, error) {
	if len(s.Viewport) == 0 {
		return camera.DefaultViewport(), nil
	}
	return camera.ParseViewport(s.Viewport)
}

// Validate reports every problem found in cams.
func Validate(cams []Camera) error {
	var errs []error
	ids := make(map[int]bool)
	serials := make(map[string]bool)

	for i, c := range cams {
		where := fmt.Sprintf("camera[%d] (id %d)", i, c.ID)
		if ids[c.ID] {
			errs = append(errs, fmt.Errorf("%s: duplicate id", where))
		}
		ids[c.ID] = true

		if c.Serial == "" {
			errs = append(errs, fmt.Errorf("%s: serial is required", where))
		} else if serials[c.Serial] {
			errs = append(errs, fmt.Errorf("%s: duplicate serial %q", where, c.Serial))
		}
		serials[c.Serial] = true

		if c.Width < 0 || c.Height < 0 || c.Channel < 0 {
			errs = append(errs, fmt.Errorf("%s: geometry must not be negative", where))
		}
		if _, err := c.AcquisitionMode(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", where, err))
		}

		names := make(map[string]bool)
		for j, s := range c.Subscriptions {
			swhere := fmt.Sprintf("%s subscription[%d]", where, j)
			if s.Name == "" {
				errs = append(errs, fmt.Errorf("%s: name is required", swhere))
			} else if names[s.Name] {
				errs = append(errs, fmt.Errorf("%s: duplicate name %q", swhere, s.Name))
			}
			names[s.Name] = true

			if _, err := s.ViewportOrDefault(); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", swhere, err))
			}
		}
	}
	return errors.Join(errs...)
}

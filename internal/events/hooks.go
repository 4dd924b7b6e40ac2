package events

import (
	"time"

	"github.com/smazurov/grabnode/internal/camera"
)

// Hooks returns camera hooks that publish state transitions on bus.
// OnFrame is left unset; frames are too frequent for the bus.
func Hooks(bus *Bus) camera.Hooks {
	return camera.Hooks{
		OnAcquisition: func(cam *camera.Camera, r camera.Result) {
			ev := AcquisitionChangedEvent{
				CameraID:  cam.ID(),
				Serial:    cam.Serial(),
				Acquiring: r.Acquiring,
				Result:    r.Kind.String(),
				Timestamp: now(),
			}
			if r.Err != nil {
				ev.Error = r.Err.Error()
			}
			bus.Publish(ev)
		},
		OnFeed: func(sub *camera.Subscription, subscribed bool) {
			bus.Publish(FeedStateChangedEvent{
				CameraID:     sub.Camera().ID(),
				Subscription: sub.Name(),
				Subscribed:   subscribed,
				Timestamp:    now(),
			})
		},
		OnMode: func(cam *camera.Camera, from, to camera.AcquisitionMode) {
			bus.Publish(ModeSwitchedEvent{
				CameraID:  cam.ID(),
				From:      from.String(),
				To:        to.String(),
				Timestamp: now(),
			})
		},
	}
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

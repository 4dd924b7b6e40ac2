package events

// Event type constants for kelindar/event.
const (
	TypeAcquisitionChanged uint32 = iota + 1
	TypeFeedStateChanged
	TypeModeSwitched
	TypeExposureChanged
	TypeCameraAdded
	TypeCameraRemoved
	TypeInventoryReloaded
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// AcquisitionChangedEvent is published when a start or stop acquisition
// call settles.
type AcquisitionChangedEvent struct {
	CameraID  int    `json:"camera_id" example:"1" doc:"Camera identifier"`
	Serial    string `json:"serial" example:"SN-0001" doc:"Camera serial number"`
	Acquiring bool   `json:"acquiring" doc:"Acquisition state after the call"`
	Result    string `json:"result" example:"succeeded" doc:"Outcome: succeeded or failed"`
	Error     string `json:"error,omitempty" doc:"Provider error, if the call failed"`
	Timestamp string `json:"timestamp" example:"2026-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for AcquisitionChangedEvent.
func (e AcquisitionChangedEvent) Type() uint32 { return TypeAcquisitionChanged }

// FeedStateChangedEvent is published when a subscription feed starts or stops.
type FeedStateChangedEvent struct {
	CameraID     int    `json:"camera_id" example:"1" doc:"Camera identifier"`
	Subscription string `json:"subscription" example:"preview" doc:"Subscription name"`
	Subscribed   bool   `json:"subscribed" doc:"Whether frames are being delivered"`
	Timestamp    string `json:"timestamp" example:"2026-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for FeedStateChangedEvent.
func (e FeedStateChangedEvent) Type() uint32 { return TypeFeedStateChanged }

// ModeSwitchedEvent is published when a camera changes acquisition mode.
type ModeSwitchedEvent struct {
	CameraID  int    `json:"camera_id" example:"1" doc:"Camera identifier"`
	From      string `json:"from" example:"internal" doc:"Previous mode"`
	To        string `json:"to" example:"external" doc:"New mode"`
	Timestamp string `json:"timestamp" example:"2026-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for ModeSwitchedEvent.
func (e ModeSwitchedEvent) Type() uint32 { return TypeModeSwitched }

// ExposureChangedEvent is published after an exposure change is accepted.
type ExposureChangedEvent struct {
	CameraID  int     `json:"camera_id" example:"1" doc:"Camera identifier"`
	Exposure  float64 `json:"exposure" example:"1000" doc:"Exposure time"`
	Timestamp string  `json:"timestamp" example:"2026-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for ExposureChangedEvent.
func (e ExposureChangedEvent) Type() uint32 { return TypeExposureChanged }

// CameraAddedEvent is published when a camera joins the rig.
type CameraAddedEvent struct {
	CameraID  int    `json:"camera_id" example:"1" doc:"Camera identifier"`
	Serial    string `json:"serial" example:"SN-0001" doc:"Camera serial number"`
	Model     string `json:"model" example:"MV-CA050" doc:"Camera model"`
	Name      string `json:"name" example:"left" doc:"Display name"`
	Timestamp string `json:"timestamp" example:"2026-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for CameraAddedEvent.
func (e CameraAddedEvent) Type() uint32 { return TypeCameraAdded }

// CameraRemovedEvent is published when a camera leaves the rig.
type CameraRemovedEvent struct {
	CameraID  int    `json:"camera_id" example:"1" doc:"Camera identifier"`
	Serial    string `json:"serial" example:"SN-0001" doc:"Camera serial number"`
	Timestamp string `json:"timestamp" example:"2026-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for CameraRemovedEvent.
func (e CameraRemovedEvent) Type() uint32 { return TypeCameraRemoved }

// InventoryReloadedEvent is published after the inventory file is re-applied.
type InventoryReloadedEvent struct {
	Path      string `json:"path" example:"cameras.toml" doc:"Inventory file"`
	Cameras   int    `json:"cameras" example:"2" doc:"Cameras after reload"`
	Error     string `json:"error,omitempty" doc:"Reload error, if any"`
	Timestamp string `json:"timestamp" example:"2026-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for InventoryReloadedEvent.
func (e InventoryReloadedEvent) Type() uint32 { return TypeInventoryReloaded }

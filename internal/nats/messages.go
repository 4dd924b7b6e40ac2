package nats

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/smazurov/grabnode/internal/events"
)

// Subject prefixes.
const (
	SubjectCamerasPrefix = "grabnode.cameras"
	SubjectControlPrefix = "grabnode.control"
	SubjectInventory     = "grabnode.inventory.reloaded"
)

// Control actions.
const (
	ActionStart = "start"
	ActionStop  = "stop"
	ActionMode  = "mode"
)

// SubjectCamera returns the subject for a camera event kind.
func SubjectCamera(cameraID int, kind string) string {
	return fmt.Sprintf("%s.%d.%s", SubjectCamerasPrefix, cameraID, kind)
}

// SubjectControl returns the control subject of a camera.
func SubjectControl(cameraID int) string {
	return fmt.Sprintf("%s.%d", SubjectControlPrefix, cameraID)
}

// controlCameraID extracts the camera id from a control subject.
func controlCameraID(subject string) (int, error) {
	rest, ok := strings.CutPrefix(subject, SubjectControlPrefix+".")
	if !ok {
		return 0, fmt.Errorf("not a control subject: %s", subject)
	}
	return strconv.Atoi(rest)
}

// subjectFor maps a bus event to its subject.
func subjectFor(ev any) (string, bool) {
	switch e := ev.(type) {
	case events.AcquisitionChangedEvent:
		return SubjectCamera(e.CameraID, "acquisition"), true
	case events.FeedStateChangedEvent:
		return SubjectCamera(e.CameraID, "feed"), true
	case events.ModeSwitchedEvent:
		return SubjectCamera(e.CameraID, "mode"), true
	case events.ExposureChangedEvent:
		return SubjectCamera(e.CameraID, "exposure"), true
	case events.CameraAddedEvent:
		return SubjectCamera(e.CameraID, "added"), true
	case events.CameraRemovedEvent:
		return SubjectCamera(e.CameraID, "removed"), true
	case events.InventoryReloadedEvent:
		return SubjectInventory, true
	default:
		return "", false
	}
}

// ControlMessage is a camera control request.
type ControlMessage struct {
	Action string `json:"action"` // start, stop, mode
	Mode   string `json:"mode,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// Marshal serializes the message to JSON.
func (m ControlMessage) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// ControlReply answers a ControlMessage.
type ControlReply struct {
	OK        bool   `json:"ok"`
	Acquiring bool   `json:"acquiring"`
	Result    string `json:"result,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Marshal serializes the reply to JSON.
func (r ControlReply) Marshal() ([]byte, error) {
	return json.Marshal(r)
}

// UnmarshalControl deserializes a ControlMessage from JSON.
func UnmarshalControl(data []byte) (ControlMessage, error) {
	var m ControlMessage
	err := json.Unmarshal(data, &m)
	return m, err
}

// UnmarshalReply deserializes a ControlReply from JSON.
func UnmarshalReply(data []byte) (ControlReply, error) {
	var r ControlReply
	err := json.Unmarshal(data, &r)
	return r, err
}
